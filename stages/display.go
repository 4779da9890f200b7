package stages

import (
	"fmt"
	"os"

	"github.com/valyala/bytebufferpool"
	"github.com/yossideutsch1973/vidpipe/core"
)

// Display renders frames as downsampled ASCII art on stdout, the
// terminal fallback when no graphical sink is available.
type Display struct {
	*core.StageBase

	cols int
	rows int
}

var display_ramp = []byte(" .:-=+*#%@")

func NewDisplay(parent *core.StageBase) core.Stage {
	s := &Display{StageBase: parent}

	o := &s.Options
	o.Descr = "ASCII rendering on stdout"
	o.IsSink = true

	s.cols = int(s.ParamInt("cols", 80))
	s.rows = int(s.ParamInt("rows", 40))
	return s
}

func (s *Display) Process(in *core.Frame) (*core.Frame, error) {
	stepX := in.Width / s.cols
	stepY := in.Height / s.rows
	if stepX < 1 {
		stepX = 1
	}
	if stepY < 1 {
		stepY = 1
	}

	// build the whole screen, then write once
	bb := bytebufferpool.Get()
	defer bytebufferpool.Put(bb)

	bb.WriteString("\033[2J\033[H")
	fmt.Fprintf(bb, "frame %d: %dx%d, %d channels\n",
		in.Timestamp, in.Width, in.Height, in.Channels)

	for y := 0; y < in.Height && y < s.rows*stepY; y += stepY {
		for x := 0; x < in.Width && x < s.cols*stepX; x += stepX {
			idx := (y*in.Width + x) * in.Channels
			var brightness int
			if in.Channels >= 3 {
				brightness = (int(in.Data[idx]) + int(in.Data[idx+1]) + int(in.Data[idx+2])) / 3
			} else {
				brightness = int(in.Data[idx])
			}
			bb.WriteByte(display_ramp[brightness*(len(display_ramp)-1)/255])
		}
		bb.WriteByte('\n')
	}

	os.Stdout.Write(bb.B)
	return in, nil
}
