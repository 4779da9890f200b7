package stages

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/yossideutsch1973/vidpipe/core"
)

func newBase(name string, args ...int) *core.StageBase {
	return &core.StageBase{Logger: zerolog.Nop(), Name: name, Args: args}
}

func rgbFrame(w, h int, r, g, b byte) *core.Frame {
	f := core.NewFrame(w, h, 3)
	for i := 0; i < w*h; i++ {
		f.Data[i*3] = r
		f.Data[i*3+1] = g
		f.Data[i*3+2] = b
	}
	return f
}

func TestGrayConversion(t *testing.T) {
	s := NewGray(newBase("gray"))
	in := rgbFrame(4, 4, 255, 0, 0)
	in.Timestamp = 9

	out, err := s.Process(in)
	if err != nil {
		t.Fatal(err)
	}
	if out.Channels != 1 {
		t.Fatalf("channels: got %d, want 1", out.Channels)
	}
	if out.Timestamp != 9 {
		t.Error("timestamp not preserved")
	}
	// 0.299 * 255 = 76
	if out.Data[0] != 76 {
		t.Errorf("red luma: got %d, want 76", out.Data[0])
	}
}

func TestGrayPassthroughNonRGB(t *testing.T) {
	s := NewGray(newBase("gray"))
	in := core.NewFrame(4, 4, 1)
	out, err := s.Process(in)
	if err != nil {
		t.Fatal(err)
	}
	if out != in {
		t.Error("1-channel input should pass through")
	}
}

func TestInvert(t *testing.T) {
	s := NewInvert(newBase("invert"))
	in := core.NewFrame(2, 2, 1)
	in.Data[0] = 10
	in.Data[3] = 255

	out, err := s.Process(in)
	if err != nil {
		t.Fatal(err)
	}
	if out == in {
		t.Fatal("invert must not mutate its input")
	}
	if out.Data[0] != 245 || out.Data[3] != 0 {
		t.Errorf("got %v", out.Data)
	}
	if in.Data[0] != 10 {
		t.Error("input was mutated")
	}
}

func TestThresholdLevelArg(t *testing.T) {
	s := NewThreshold(newBase("threshold", 100))
	in := core.NewFrame(2, 1, 1)
	in.Data[0] = 99
	in.Data[1] = 101

	out, err := s.Process(in)
	if err != nil {
		t.Fatal(err)
	}
	if out.Data[0] != 0 || out.Data[1] != 255 {
		t.Errorf("got %v", out.Data)
	}
}

func TestThresholdLevelParam(t *testing.T) {
	base := newBase("threshold")
	base.Params = []byte(`{"threshold":{"level":10}}`)
	s := NewThreshold(base)

	in := core.NewFrame(1, 1, 1)
	in.Data[0] = 11
	out, _ := s.Process(in)
	if out.Data[0] != 255 {
		t.Errorf("param level ignored: got %d", out.Data[0])
	}
}

func TestEdgesGradient(t *testing.T) {
	s := NewEdges(newBase("edges"))

	// vertical step edge down the middle
	in := core.NewFrame(8, 8, 1)
	for y := 0; y < 8; y++ {
		for x := 4; x < 8; x++ {
			in.Set(x, y, 0, 255)
		}
	}

	out, err := s.Process(in)
	if err != nil {
		t.Fatal(err)
	}
	if out.At(4, 4, 0) == 0 {
		t.Error("no response on the edge")
	}
	if out.At(1, 4, 0) != 0 {
		t.Error("response on a flat region")
	}
	if out.At(0, 0, 0) != 0 {
		t.Error("border must stay zero")
	}
}

func TestBlurFlatRegion(t *testing.T) {
	s := NewBlur(newBase("blur"))
	in := rgbFrame(6, 6, 100, 100, 100)

	out, err := s.Process(in)
	if err != nil {
		t.Fatal(err)
	}
	// a flat region stays flat under a normalized kernel, modulo
	// float truncation
	if v := out.At(3, 3, 0); v < 98 || v > 100 {
		t.Errorf("flat region changed: %d", v)
	}
}

func TestResize(t *testing.T) {
	s := NewResize(newBase("resize", 4, 2))
	in := core.NewFrame(8, 4, 3)
	in.Timestamp = 5

	out, err := s.Process(in)
	if err != nil {
		t.Fatal(err)
	}
	if out.Width != 4 || out.Height != 2 {
		t.Errorf("got %dx%d, want 4x2", out.Width, out.Height)
	}
	if out.Timestamp != 5 {
		t.Error("timestamp not preserved")
	}
}

func TestResizeDefaultHalf(t *testing.T) {
	s := NewResize(newBase("resize"))
	out, err := s.Process(core.NewFrame(8, 6, 1))
	if err != nil {
		t.Fatal(err)
	}
	if out.Width != 4 || out.Height != 3 {
		t.Errorf("got %dx%d, want 4x3", out.Width, out.Height)
	}
}

func TestMotionNeedsTwoFrames(t *testing.T) {
	s := NewMotion(newBase("motion"))

	a := core.NewFrame(2, 2, 1)
	out, err := s.Process(a)
	if err != nil {
		t.Fatal(err)
	}
	if out != nil {
		t.Fatal("first frame must produce no output")
	}

	b := core.NewFrame(2, 2, 1)
	b.Data[0] = 50
	out, err = s.Process(b)
	if err != nil {
		t.Fatal(err)
	}
	if out == nil || out.Data[0] != 50 || out.Data[1] != 0 {
		t.Errorf("difference wrong: %v", out)
	}
}

func TestTagStampsFrames(t *testing.T) {
	s := NewTag(newBase("tag", 66))
	in := core.NewFrame(2, 2, 1)

	out, err := s.Process(in)
	if err != nil {
		t.Fatal(err)
	}
	if out == in {
		t.Fatal("tag must not mutate its input")
	}
	if out.Data[0] != 66 {
		t.Errorf("marker: got %d, want 66", out.Data[0])
	}
	if out.GetMeta("tag") != "66" {
		t.Errorf("meta: got %q", out.GetMeta("tag"))
	}
}

func TestConstLimit(t *testing.T) {
	s := NewConst(newBase("const", 42, 2))

	for i := 0; i < 2; i++ {
		f, err := s.Process(nil)
		if err != nil {
			t.Fatal(err)
		}
		if f == nil || f.Data[0] != 42 {
			t.Fatalf("frame %d: %v", i, f)
		}
		if f.Timestamp != uint64(i) {
			t.Errorf("timestamp: got %d, want %d", f.Timestamp, i)
		}
	}
	if f, _ := s.Process(nil); f != nil {
		t.Error("const emitted past its limit")
	}
}

func TestTestsrcGeometry(t *testing.T) {
	s := NewTestsrc(newBase("testsrc", 32, 16))
	f, err := s.Process(nil)
	if err != nil {
		t.Fatal(err)
	}
	if f.Width != 32 || f.Height != 16 || f.Channels != 3 {
		t.Errorf("got %dx%dx%d", f.Width, f.Height, f.Channels)
	}
}

func TestRepoComplete(t *testing.T) {
	for cmd, newfunc := range Repo {
		base := newBase(cmd)
		s := newfunc(base)
		if s == nil {
			t.Errorf("%s: constructor returned nil", cmd)
		}
		if base.Options.Descr == "" {
			t.Errorf("%s: no description", cmd)
		}
	}
}
