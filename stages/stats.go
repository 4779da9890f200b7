package stages

import (
	"time"

	"github.com/yossideutsch1973/vidpipe/core"
)

// Stats is a pass-through frame-rate probe: it counts frames and logs
// the observed rate once a second.
type Stats struct {
	*core.StageBase

	count uint64
	last  time.Time
	seen  uint64
}

func NewStats(parent *core.StageBase) core.Stage {
	s := &Stats{StageBase: parent}
	s.Options.Descr = "log observed frame rate"
	return s
}

func (s *Stats) Process(in *core.Frame) (*core.Frame, error) {
	s.count++
	s.seen++

	now := time.Now()
	if s.last.IsZero() {
		s.last = now
		s.seen = 0
		return in, nil
	}

	if el := now.Sub(s.last); el >= time.Second {
		fps := float64(s.seen) / el.Seconds()
		s.Info().Uint64("frames", s.count).Float64("fps", fps).
			Int("w", in.Width).Int("h", in.Height).Int("ch", in.Channels).
			Msg("throughput")
		s.last = now
		s.seen = 0
	}
	return in, nil
}
