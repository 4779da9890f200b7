package stages

import "github.com/yossideutsch1973/vidpipe/core"

// Invert flips every sample: v -> 255-v.
type Invert struct {
	*core.StageBase
}

func NewInvert(parent *core.StageBase) core.Stage {
	s := &Invert{StageBase: parent}
	s.Options.Descr = "invert sample values"
	return s
}

func (s *Invert) Process(in *core.Frame) (*core.Frame, error) {
	out := in.Copy()
	for i, v := range out.Data {
		out.Data[i] = 255 - v
	}
	return out, nil
}
