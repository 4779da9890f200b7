package stages

import "github.com/yossideutsch1973/vidpipe/core"

// Resize scales frames with nearest-neighbour sampling: resize(w,h),
// defaulting to half size.
type Resize struct {
	*core.StageBase

	width  int
	height int
}

func NewResize(parent *core.StageBase) core.Stage {
	s := &Resize{StageBase: parent}
	s.Options.Descr = "nearest-neighbour resize"
	s.width = s.Arg(0, 0)
	s.height = s.Arg(1, 0)
	return s
}

func (s *Resize) Process(in *core.Frame) (*core.Frame, error) {
	nw, nh := s.width, s.height
	if nw <= 0 {
		nw = in.Width / 2
	}
	if nh <= 0 {
		nh = in.Height / 2
	}
	if nw < 1 || nh < 1 {
		return in, nil
	}

	out := core.NewFrame(nw, nh, in.Channels)
	out.Timestamp = in.Timestamp

	xr := float64(in.Width) / float64(nw)
	yr := float64(in.Height) / float64(nh)
	for y := 0; y < nh; y++ {
		sy := int(float64(y) * yr)
		for x := 0; x < nw; x++ {
			sx := int(float64(x) * xr)
			for c := 0; c < in.Channels; c++ {
				out.Data[(y*nw+x)*in.Channels+c] = in.Data[(sy*in.Width+sx)*in.Channels+c]
			}
		}
	}
	return out, nil
}
