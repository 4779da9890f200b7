package stages

import (
	"math"

	"github.com/yossideutsch1973/vidpipe/core"
)

// Edges runs a Sobel gradient magnitude over 1-channel frames.
// Multi-channel input passes through; put a gray stage in front.
type Edges struct {
	*core.StageBase
}

func NewEdges(parent *core.StageBase) core.Stage {
	s := &Edges{StageBase: parent}
	s.Options.Descr = "Sobel edge detection (1-channel input)"
	return s
}

var (
	sobel_x = [3][3]int{{-1, 0, 1}, {-2, 0, 2}, {-1, 0, 1}}
	sobel_y = [3][3]int{{-1, -2, -1}, {0, 0, 0}, {1, 2, 1}}
)

func (s *Edges) Process(in *core.Frame) (*core.Frame, error) {
	if in.Channels != 1 {
		return in, nil
	}

	out := core.NewFrame(in.Width, in.Height, 1)
	out.Timestamp = in.Timestamp

	for y := 1; y < in.Height-1; y++ {
		for x := 1; x < in.Width-1; x++ {
			var gx, gy int
			for ky := -1; ky <= 1; ky++ {
				for kx := -1; kx <= 1; kx++ {
					px := int(in.Data[(y+ky)*in.Width+(x+kx)])
					gx += px * sobel_x[ky+1][kx+1]
					gy += px * sobel_y[ky+1][kx+1]
				}
			}
			mag := int(math.Sqrt(float64(gx*gx + gy*gy)))
			if mag > 255 {
				mag = 255
			}
			out.Data[y*out.Width+x] = byte(mag)
		}
	}
	return out, nil
}
