package stages

import "github.com/yossideutsch1973/vidpipe/core"

// Passthrough hands every frame through untouched.
type Passthrough struct {
	*core.StageBase
}

func NewPassthrough(parent *core.StageBase) core.Stage {
	s := &Passthrough{StageBase: parent}
	s.Options.Descr = "identity pass-through"
	return s
}

func (s *Passthrough) Process(in *core.Frame) (*core.Frame, error) {
	return in, nil
}
