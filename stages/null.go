package stages

import "github.com/yossideutsch1973/vidpipe/core"

// Null consumes and discards frames; a sink for load tests.
type Null struct {
	*core.StageBase
}

func NewNull(parent *core.StageBase) core.Stage {
	s := &Null{StageBase: parent}
	s.Options.Descr = "discard frames"
	s.Options.IsSink = true
	return s
}

func (s *Null) Process(_ *core.Frame) (*core.Frame, error) {
	return nil, nil
}
