package stages

import "github.com/yossideutsch1973/vidpipe/core"

// Gray converts RGB frames to 1-channel luma with the usual
// 0.299/0.587/0.114 weights. Non-RGB input passes through.
type Gray struct {
	*core.StageBase
}

func NewGray(parent *core.StageBase) core.Stage {
	s := &Gray{StageBase: parent}
	s.Options.Descr = "convert RGB to grayscale luma"
	return s
}

func (s *Gray) Process(in *core.Frame) (*core.Frame, error) {
	if in.Channels != 3 {
		return in, nil
	}

	out := core.NewFrame(in.Width, in.Height, 1)
	out.Timestamp = in.Timestamp

	for i := 0; i < in.Width*in.Height; i++ {
		idx := i * 3
		out.Data[i] = byte(0.299*float64(in.Data[idx]) +
			0.587*float64(in.Data[idx+1]) +
			0.114*float64(in.Data[idx+2]))
	}
	return out, nil
}
