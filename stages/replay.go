package stages

import (
	"bufio"
	"io"
	"os"

	"github.com/yossideutsch1973/vidpipe/core"
)

// Replay reads frames back from a frame log written by record. At the
// end of the log it goes quiet, or rewinds when the "loop" param is
// set.
type Replay struct {
	*core.StageBase

	fpath string
	loop  bool

	fh     *os.File
	rd     io.Reader
	cclose io.Closer
	count  uint64
}

func NewReplay(parent *core.StageBase) core.Stage {
	s := &Replay{StageBase: parent}

	o := &s.Options
	o.Descr = "replay a recorded frame log"
	o.IsSource = true

	s.fpath = s.ParamString("path", "frames.vpz")
	s.loop = s.ParamInt("loop", 0) != 0
	return s
}

func (s *Replay) Prepare() error {
	return s.open()
}

func (s *Replay) open() error {
	fh, err := os.Open(s.fpath)
	if err != nil {
		return s.Errorf("%w", err)
	}

	rd, closer, err := decompressor(s.fpath, bufio.NewReader(fh))
	if err != nil {
		fh.Close()
		return s.Errorf("%w", err)
	}

	s.fh = fh
	s.rd = rd
	s.cclose = closer
	return nil
}

func (s *Replay) Process(_ *core.Frame) (*core.Frame, error) {
	if s.fh == nil {
		return nil, nil // exhausted
	}

	// at most two decode attempts per tick, so an empty log cannot spin here
	for attempt := 0; attempt < 2; attempt++ {
		f, err := decodeFrame(s.rd)
		if err == io.EOF {
			s.close()
			if !s.loop {
				s.Info().Uint64("frames", s.count).Msg("replay finished")
				return nil, nil
			}
			if err := s.open(); err != nil {
				return nil, err
			}
			continue
		}
		if err != nil {
			return nil, s.Errorf("read: %w", err)
		}

		s.count++
		return f, nil
	}
	return nil, nil
}

func (s *Replay) close() {
	if s.cclose != nil {
		s.cclose.Close()
		s.cclose = nil
	}
	if s.fh != nil {
		s.fh.Close()
		s.fh = nil
	}
}

func (s *Replay) Stop() error {
	s.close()
	return nil
}
