package stages

import "github.com/yossideutsch1973/vidpipe/core"

// Blur applies a 3x3 Gaussian kernel per channel.
type Blur struct {
	*core.StageBase
}

func NewBlur(parent *core.StageBase) core.Stage {
	s := &Blur{StageBase: parent}
	s.Options.Descr = "3x3 Gaussian blur"
	return s
}

var blur_kernel = [3][3]float64{
	{1.0 / 16, 2.0 / 16, 1.0 / 16},
	{2.0 / 16, 4.0 / 16, 2.0 / 16},
	{1.0 / 16, 2.0 / 16, 1.0 / 16},
}

func (s *Blur) Process(in *core.Frame) (*core.Frame, error) {
	out := core.NewFrame(in.Width, in.Height, in.Channels)
	out.Timestamp = in.Timestamp

	for c := 0; c < in.Channels; c++ {
		for y := 1; y < in.Height-1; y++ {
			for x := 1; x < in.Width-1; x++ {
				var sum float64
				for ky := -1; ky <= 1; ky++ {
					for kx := -1; kx <= 1; kx++ {
						idx := ((y+ky)*in.Width+(x+kx))*in.Channels + c
						sum += float64(in.Data[idx]) * blur_kernel[ky+1][kx+1]
					}
				}
				out.Data[(y*out.Width+x)*out.Channels+c] = byte(sum)
			}
		}
	}
	return out, nil
}
