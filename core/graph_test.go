package core

import (
	"errors"
	"sync"
	"testing"
	"time"
)

// --- test stage library ---

// emitStage is a source: emit(value, limit), limit 0 = unlimited.
type emitStage struct {
	*StageBase
	value byte
	limit int
	count uint64
}

func (s *emitStage) Process(_ *Frame) (*Frame, error) {
	if s.limit > 0 && s.count >= uint64(s.limit) {
		return nil, nil
	}
	f := NewFrame(2, 2, 1)
	f.Timestamp = s.count
	s.count++
	for i := range f.Data {
		f.Data[i] = s.value
	}
	return f, nil
}

// identStage passes frames through untouched.
type identStage struct {
	*StageBase
}

func (s *identStage) Process(in *Frame) (*Frame, error) {
	return in, nil
}

// slowStage sleeps per frame to force backpressure.
type slowStage struct {
	*StageBase
	delay time.Duration
}

func (s *slowStage) Process(in *Frame) (*Frame, error) {
	time.Sleep(s.delay)
	return in, nil
}

// markStage stamps the first sample: mark(v).
type markStage struct {
	*StageBase
	marker byte
}

func (s *markStage) Process(in *Frame) (*Frame, error) {
	out := in.Copy()
	out.Data[0] = s.marker
	return out, nil
}

// failStage errors out on the first frame.
type failStage struct {
	*StageBase
}

func (s *failStage) Process(_ *Frame) (*Frame, error) {
	return nil, errors.New("boom")
}

// collectStage is a sink that keeps what it saw.
type collectStage struct {
	*StageBase
	mu     sync.Mutex
	frames []*Frame
}

func (s *collectStage) Process(in *Frame) (*Frame, error) {
	s.mu.Lock()
	s.frames = append(s.frames, in)
	s.mu.Unlock()
	return nil, nil
}

func (s *collectStage) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.frames)
}

func (s *collectStage) snapshot() []*Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*Frame(nil), s.frames...)
}

func newTestRegistry() *Registry {
	reg := NewRegistry()
	reg.AddRepo(map[string]NewStage{
		"src": func(b *StageBase) Stage {
			b.Options.IsSource = true
			return &emitStage{StageBase: b, value: 7}
		},
		"emit": func(b *StageBase) Stage {
			b.Options.IsSource = true
			return &emitStage{StageBase: b, value: byte(b.Arg(0, 0)), limit: b.Arg(1, 0)}
		},
		"id": func(b *StageBase) Stage {
			return &identStage{StageBase: b}
		},
		"slow": func(b *StageBase) Stage {
			return &slowStage{StageBase: b, delay: 10 * time.Millisecond}
		},
		"mark": func(b *StageBase) Stage {
			return &markStage{StageBase: b, marker: byte(b.Arg(0, 0))}
		},
		"fail": func(b *StageBase) Stage {
			return &failStage{StageBase: b}
		},
		"collect": func(b *StageBase) Stage {
			b.Options.IsSink = true
			return &collectStage{StageBase: b}
		},
	})
	return reg
}

func mustBuild(t *testing.T, src string) *Graph {
	t.Helper()
	tree, err := Parse(Lex(src))
	if err != nil {
		t.Fatal(err)
	}
	g, err := BuildGraph(tree, newTestRegistry(), GraphOptions{})
	if err != nil {
		t.Fatal(err)
	}
	return g
}

// --- graph builder tests ---

func TestBuildPipelineWiring(t *testing.T) {
	g := mustBuild(t, "src -> id -> collect")

	if len(g.Nodes) != 3 {
		t.Fatalf("nodes: got %d, want 3", len(g.Nodes))
	}
	src, id, sink := g.Nodes[0], g.Nodes[1], g.Nodes[2]

	if src.In != nil {
		t.Error("source has an input queue")
	}
	if len(src.Out) != 1 || src.Out[0] != id.In {
		t.Error("src does not feed id's input queue")
	}
	if len(id.Out) != 1 || id.Out[0] != sink.In {
		t.Error("id does not feed collect's input queue")
	}
	if len(sink.Out) != 0 {
		t.Error("terminal sink has output queues")
	}
}

func TestBuildQueueCapacities(t *testing.T) {
	g := mustBuild(t, "src [5]-> id -> collect")

	if got := g.Nodes[1].In.Cap(); got != 5 {
		t.Errorf("buffered edge cap: got %d, want 5", got)
	}
	if got := g.Nodes[2].In.Cap(); got != 1 {
		t.Errorf("default edge cap: got %d, want 1", got)
	}
}

func TestBuildParallelFanOut(t *testing.T) {
	g := mustBuild(t, "src -> id &> mark(1) &> mark(2)")

	src := g.Nodes[0]
	if len(src.Out) != 3 {
		t.Fatalf("fan-out queues on src: got %d, want 3", len(src.Out))
	}
	seen := map[*FrameQueue]bool{}
	for _, q := range src.Out {
		seen[q] = true
	}
	for _, n := range g.Nodes[1:] {
		if !seen[n.In] {
			t.Errorf("branch %s not fed by src", n.Name)
		}
	}
}

func TestBuildMergeSharesQueue(t *testing.T) {
	g := mustBuild(t, "src -> mark(1) &> mark(2) +> collect")

	var m1, m2, sink *ExecNode
	for _, n := range g.Nodes {
		switch n.Name {
		case "mark":
			if m1 == nil {
				m1 = n
			} else {
				m2 = n
			}
		case "collect":
			sink = n
		}
	}
	if m1 == nil || m2 == nil || sink == nil {
		t.Fatal("missing nodes")
	}
	if len(m1.Out) != 1 || len(m2.Out) != 1 {
		t.Fatal("marks must each feed one queue")
	}
	if m1.Out[0] != sink.In || m2.Out[0] != sink.In {
		t.Error("merge branches do not share the sink's input queue")
	}
}

func TestBuildSourceInsideParallel(t *testing.T) {
	// a source branch feeds its siblings instead of taking input
	g := mustBuild(t, "emit(65,5) &> mark(1) &> mark(2) +> collect")

	src := g.Nodes[0]
	if src.Name != "emit" {
		t.Fatalf("unexpected first node %s", src.Name)
	}
	if len(src.Out) != 2 {
		t.Errorf("tee queues on emit: got %d, want 2", len(src.Out))
	}
}

func TestBuildErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want error
	}{
		{"unknown stage", "src -> does_not_exist", ErrStageCmd},
		{"sink in the middle", "src -> collect -> id", ErrSinkMiddle},
		{"source takes input", "src -> src", ErrSourceInput},
		{"choice unimplemented", "id | mark(1)", ErrChoice},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree, err := Parse(Lex(tt.src))
			if err != nil {
				t.Fatal(err)
			}
			g, err := BuildGraph(tree, newTestRegistry(), GraphOptions{})
			if !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
			if g != nil {
				t.Error("partial graph returned on error")
			}
		})
	}
}

func TestBuildLoopIsGrouping(t *testing.T) {
	g := mustBuild(t, "{ src -> id -> collect }")
	if len(g.Nodes) != 3 {
		t.Fatalf("nodes: got %d, want 3", len(g.Nodes))
	}
	if len(g.Nodes[0].Out) != 1 {
		t.Error("loop changed the wiring")
	}
}
