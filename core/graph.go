package core

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/knadh/koanf/v2"
	"github.com/rs/zerolog"
)

// ExecNode runs one stage instance on its own worker. Sources have no
// input queue; terminal sinks have no output queues. Multiple output
// queues mean fan-out with frame duplication; multiple nodes sharing a
// downstream input queue mean fan-in.
type ExecNode struct {
	*StageBase

	In  *FrameQueue   // nil for sources
	Out []*FrameQueue // each is the input queue of one downstream node

	running atomic.Bool   // false -> true -> false, never re-armed
	done    chan struct{} // closed when the worker exits
}

// Running reports whether the node's worker is active.
func (n *ExecNode) Running() bool {
	return n.running.Load()
}

// Graph is the lowered dataflow graph: stage nodes wired by bounded
// queues, ready for the runtime.
type Graph struct {
	Nodes []*ExecNode
}

// GraphOptions parameterize graph building. The zero value works.
type GraphOptions struct {
	Logger zerolog.Logger
	K      *koanf.Koanf
	Ctx    context.Context // handed to stages for their own I/O
	Params []byte          // raw --params JSON handed to every StageBase
}

// Queues returns the distinct input queues of the graph.
func (g *Graph) Queues() []*FrameQueue {
	var qs []*FrameQueue
	for _, n := range g.Nodes {
		if n.In != nil {
			qs = append(qs, n.In)
		}
	}
	return qs
}

// Close closes and drains every queue. Used to tear down a partially
// built or stopped graph.
func (g *Graph) Close() {
	for _, q := range g.Queues() {
		q.Close()
		q.Drain()
	}
}

// String renders the wired graph, one node per line, for --explain.
func (g *Graph) String() string {
	var sb strings.Builder
	for _, n := range g.Nodes {
		fmt.Fprintf(&sb, "%s", n)
		switch {
		case n.Options.IsSource:
			sb.WriteString(" source")
		case n.Options.IsSink:
			sb.WriteString(" sink")
		}
		if n.In != nil {
			fmt.Fprintf(&sb, " in(cap=%d)", n.In.Cap())
		}
		if len(n.Out) > 0 {
			fmt.Fprintf(&sb, " out=%d", len(n.Out))
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

// ports are the entry and exit sets of a built subexpression: entries
// take the subexpression input, exits feed the subexpression output.
type ports struct {
	entries []*ExecNode
	exits   []*ExecNode
}

type builder struct {
	g   *Graph
	reg *Registry
	opt GraphOptions
}

// BuildGraph lowers an expression tree to a dataflow graph against
// the given stage registry. On error no graph is returned and every
// queue allocated so far has been closed and drained.
func BuildGraph(root *Node, reg *Registry, opt GraphOptions) (*Graph, error) {
	if root == nil {
		return nil, ErrEmptyGraph
	}

	if opt.Ctx == nil {
		opt.Ctx = context.Background()
	}
	b := &builder{g: &Graph{}, reg: reg, opt: opt}
	if _, err := b.build(root, 0); err != nil {
		b.g.Close()
		return nil, err
	}
	if len(b.g.Nodes) == 0 {
		return nil, ErrEmptyGraph
	}
	return b.g, nil
}

// build lowers node in post-order. incap is the capacity of the edge
// feeding this subexpression's entries (0 means the default of 1).
func (b *builder) build(node *Node, incap int) (ports, error) {
	switch node.Type {
	case NODE_FUNCTION:
		return b.function(node, incap)
	case NODE_PIPELINE:
		return b.pipeline(node, incap)
	case NODE_PARALLEL:
		return b.parallel(node, incap)
	case NODE_MERGE:
		return b.merge(node, incap)
	case NODE_LOOP:
		// grouping only: the workers already loop
		return b.build(node.Kids[0], incap)
	case NODE_CHOICE:
		return ports{}, ErrChoice
	}
	return ports{}, fmt.Errorf("%w: unsupported node type %d", ErrParse, node.Type)
}

// function allocates an execution node with a fresh stage instance.
func (b *builder) function(node *Node, incap int) (ports, error) {
	newfunc := b.reg.Get(node.Name)
	if newfunc == nil {
		return ports{}, fmt.Errorf("%w: %s", ErrStageCmd, node.Name)
	}

	base := &StageBase{
		Name:   node.Name,
		Index:  len(b.g.Nodes) + 1,
		Args:   node.Args,
		K:      b.opt.K,
		Ctx:    b.opt.Ctx,
		Params: b.opt.Params,
	}
	base.Logger = b.opt.Logger.With().Str("stage", node.Name).Logger()
	base.Stage = newfunc(base)

	n := &ExecNode{StageBase: base, done: make(chan struct{})}
	if !base.Options.IsSource {
		if incap < 1 {
			incap = 1
		}
		n.In = NewFrameQueue(incap)
	}
	b.g.Nodes = append(b.g.Nodes, n)

	if base.Options.IsSource {
		return ports{exits: []*ExecNode{n}}, nil
	}
	return ports{entries: []*ExecNode{n}, exits: []*ExecNode{n}}, nil
}

// pipeline wires left exits into right entries.
func (b *builder) pipeline(node *Node, incap int) (ports, error) {
	left, err := b.build(node.Kids[0], incap)
	if err != nil {
		return ports{}, err
	}

	edgecap := 1
	if node.Conn == CONN_BUFFERED {
		edgecap = node.Cap
	}
	right, err := b.build(node.Kids[1], edgecap)
	if err != nil {
		return ports{}, err
	}

	if err := b.connect(left.exits, right.entries); err != nil {
		return ports{}, err
	}
	return ports{entries: left.entries, exits: right.exits}, nil
}

// parallel is the fan-out tee. A pure-source branch inside the group
// feeds deep copies to every sibling branch instead of taking the
// upstream input, so "const &> tagB &> tagC" means const feeds B and C.
func (b *builder) parallel(node *Node, incap int) (ports, error) {
	var branches []ports
	for _, kid := range node.Kids {
		br, err := b.build(kid, incap)
		if err != nil {
			return ports{}, err
		}
		branches = append(branches, br)
	}

	var srcs, rest []ports
	for _, br := range branches {
		if len(br.entries) == 0 {
			srcs = append(srcs, br)
		} else {
			rest = append(rest, br)
		}
	}

	// mixed group: sources drive their siblings
	if len(srcs) > 0 && len(rest) > 0 {
		var out ports
		for _, br := range rest {
			out.entries = append(out.entries, br.entries...)
			out.exits = append(out.exits, br.exits...)
		}
		for _, src := range srcs {
			if err := b.connect(src.exits, out.entries); err != nil {
				return ports{}, err
			}
		}
		// entries were consumed by the internal tee
		return ports{exits: out.exits}, nil
	}

	// homogeneous group: plain tee fed by the enclosing upstream
	var out ports
	for _, br := range branches {
		out.entries = append(out.entries, br.entries...)
		out.exits = append(out.exits, br.exits...)
	}
	return out, nil
}

// merge joins both sides into the downstream continuation: every left
// exit pushes to the shared input queues of the right entries.
func (b *builder) merge(node *Node, incap int) (ports, error) {
	left, err := b.build(node.Kids[0], incap)
	if err != nil {
		return ports{}, err
	}
	right, err := b.build(node.Kids[1], 0)
	if err != nil {
		return ports{}, err
	}

	if err := b.connect(left.exits, right.entries); err != nil {
		return ports{}, err
	}
	return ports{entries: left.entries, exits: right.exits}, nil
}

// connect adds every entry's input queue to every exit's outputs.
func (b *builder) connect(exits, entries []*ExecNode) error {
	if len(entries) == 0 {
		// the downstream side is all sources
		name := ""
		if len(exits) > 0 {
			name = exits[0].Name
		}
		return fmt.Errorf("%w: nothing downstream of %s can take input", ErrSourceInput, name)
	}

	for _, x := range exits {
		if x.Options.IsSink {
			return fmt.Errorf("%w: %s", ErrSinkMiddle, x.Name)
		}
		for _, y := range entries {
			x.Out = append(x.Out, y.In)
		}
	}
	return nil
}
