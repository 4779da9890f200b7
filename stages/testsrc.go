package stages

import "github.com/yossideutsch1973/vidpipe/core"

// Testsrc synthesizes an animated RGB gradient pattern, the camera-less
// test feed. Geometry comes from the call site: testsrc(w,h).
type Testsrc struct {
	*core.StageBase

	width  int
	height int
	count  uint64
}

func NewTestsrc(parent *core.StageBase) core.Stage {
	s := &Testsrc{StageBase: parent}

	o := &s.Options
	o.Descr = "synthetic RGB gradient source"
	o.IsSource = true

	s.width = s.Arg(0, int(s.ParamInt("width", 640)))
	s.height = s.Arg(1, int(s.ParamInt("height", 480)))
	return s
}

func (s *Testsrc) Process(_ *core.Frame) (*core.Frame, error) {
	f := core.NewFrame(s.width, s.height, 3)
	f.Timestamp = s.count
	s.count++

	for y := 0; y < f.Height; y++ {
		for x := 0; x < f.Width; x++ {
			idx := (y*f.Width + x) * 3
			f.Data[idx] = byte(x * 255 / f.Width)
			f.Data[idx+1] = byte(y * 255 / f.Height)
			f.Data[idx+2] = byte(s.count % 255)
		}
	}
	return f, nil
}
