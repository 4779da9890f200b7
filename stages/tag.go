package stages

import (
	"strconv"

	"github.com/yossideutsch1973/vidpipe/core"
)

// Tag stamps frames so parallel branches can be told apart at a merge
// point: tag(v) writes v into the first sample and records it in the
// frame metadata. With no argument the marker is the node index.
type Tag struct {
	*core.StageBase

	marker byte
	label  string
}

func NewTag(parent *core.StageBase) core.Stage {
	s := &Tag{StageBase: parent}
	s.Options.Descr = "stamp a branch marker into frames"

	s.marker = byte(s.Arg(0, s.Index))
	s.label = s.ParamString("label", strconv.Itoa(int(s.marker)))
	return s
}

func (s *Tag) Process(in *core.Frame) (*core.Frame, error) {
	out := in.Copy()
	if len(out.Data) > 0 {
		out.Data[0] = s.marker
	}
	out.SetMeta("tag", s.label)
	return out, nil
}
