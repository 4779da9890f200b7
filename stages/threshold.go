package stages

import "github.com/yossideutsch1973/vidpipe/core"

// Threshold binarizes every sample at a level: threshold(level), or
// the "level" param, default 128.
type Threshold struct {
	*core.StageBase

	level byte
}

func NewThreshold(parent *core.StageBase) core.Stage {
	s := &Threshold{StageBase: parent}
	s.Options.Descr = "binarize samples at a level"
	s.level = byte(s.Arg(0, int(s.ParamInt("level", 128))))
	return s
}

func (s *Threshold) Process(in *core.Frame) (*core.Frame, error) {
	out := in.Copy()
	for i, v := range out.Data {
		if v > s.level {
			out.Data[i] = 255
		} else {
			out.Data[i] = 0
		}
	}
	return out, nil
}
