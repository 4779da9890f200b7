package stages

import "github.com/yossideutsch1973/vidpipe/core"

// Const emits small frames filled with a constant value: const(v), or
// const(v,n) to stop after n frames. Useful for wiring tests and as a
// load generator.
type Const struct {
	*core.StageBase

	value byte
	limit int
	count uint64
	size  int
}

func NewConst(parent *core.StageBase) core.Stage {
	s := &Const{StageBase: parent}

	o := &s.Options
	o.Descr = "constant-valued frame source"
	o.IsSource = true

	s.value = byte(s.Arg(0, 0))
	s.limit = s.Arg(1, 0) // 0 = unlimited
	s.size = int(s.ParamInt("size", 8))
	return s
}

func (s *Const) Process(_ *core.Frame) (*core.Frame, error) {
	if s.limit > 0 && s.count >= uint64(s.limit) {
		return nil, nil // exhausted, keep ticking
	}

	f := core.NewFrame(s.size, s.size, 1)
	f.Timestamp = s.count
	s.count++
	for i := range f.Data {
		f.Data[i] = s.value
	}
	return f, nil
}
