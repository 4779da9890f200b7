package stages

import "github.com/yossideutsch1973/vidpipe/core"

// Motion subtracts the previous frame from the current one, leaving
// only what moved. The previous frame lives in the stage instance,
// so re-running a pipeline starts from a clean slate.
type Motion struct {
	*core.StageBase

	prev *core.Frame
}

func NewMotion(parent *core.StageBase) core.Stage {
	s := &Motion{StageBase: parent}
	s.Options.Descr = "frame-difference motion extraction"
	return s
}

func (s *Motion) Process(in *core.Frame) (*core.Frame, error) {
	prev := s.prev
	s.prev = in.Copy()

	if prev == nil || len(prev.Data) != len(in.Data) {
		return nil, nil // need two comparable frames
	}

	out := core.NewFrame(in.Width, in.Height, in.Channels)
	out.Timestamp = in.Timestamp
	for i := range in.Data {
		d := int(in.Data[i]) - int(prev.Data[i])
		if d < 0 {
			d = -d
		}
		out.Data[i] = byte(d)
	}
	return out, nil
}

func (s *Motion) Stop() error {
	s.prev = nil
	return nil
}
