package stages

import "github.com/yossideutsch1973/vidpipe/core"

// Camera simulates a live feed: a bright object bouncing over a dim
// gradient. Each instance owns its motion state, so two camera nodes
// in one graph drift independently.
type Camera struct {
	*core.StageBase

	width  int
	height int
	count  uint64

	ox, oy float64 // object position
	vx, vy float64 // object velocity
}

func NewCamera(parent *core.StageBase) core.Stage {
	s := &Camera{StageBase: parent}

	o := &s.Options
	o.Descr = "simulated live camera feed with movement"
	o.IsSource = true

	s.width = s.Arg(0, 640)
	s.height = s.Arg(1, 480)
	s.ox, s.oy = float64(s.width)/4, float64(s.height)/4
	s.vx, s.vy = 2.5, 1.8
	return s
}

func (s *Camera) Process(_ *core.Frame) (*core.Frame, error) {
	const obj = 40 // object edge length

	f := core.NewFrame(s.width, s.height, 3)
	f.Timestamp = s.count
	s.count++

	// dim gradient background
	for y := 0; y < f.Height; y++ {
		for x := 0; x < f.Width; x++ {
			idx := (y*f.Width + x) * 3
			f.Data[idx] = byte(x * 64 / f.Width)
			f.Data[idx+1] = byte(y * 64 / f.Height)
			f.Data[idx+2] = 32
		}
	}

	// advance and bounce
	s.ox += s.vx
	s.oy += s.vy
	if s.ox < 0 || s.ox > float64(s.width-obj) {
		s.vx = -s.vx
		s.ox += s.vx
	}
	if s.oy < 0 || s.oy > float64(s.height-obj) {
		s.vy = -s.vy
		s.oy += s.vy
	}

	// bright object
	for y := int(s.oy); y < int(s.oy)+obj && y < f.Height; y++ {
		for x := int(s.ox); x < int(s.ox)+obj && x < f.Width; x++ {
			if x < 0 || y < 0 {
				continue
			}
			idx := (y*f.Width + x) * 3
			f.Data[idx] = 255
			f.Data[idx+1] = 220
			f.Data[idx+2] = 64
		}
	}
	return f, nil
}
