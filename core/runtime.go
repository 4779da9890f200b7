package core

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/VictoriaMetrics/metrics"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const (
	// DEFAULT_FPS is the advisory pacing target for sources and sinks.
	DEFAULT_FPS = 30.0

	// idle_sleep is the cooperative wait between try-pops, and the
	// upper bound on shutdown observation latency for mid stages.
	idle_sleep = time.Millisecond
)

// Runtime drives a graph: one worker per execution node, bounded
// queues between them. Backpressure comes from blocking pushes;
// shutdown is cooperative and idempotent.
type Runtime struct {
	zerolog.Logger

	Ctx    context.Context
	Cancel context.CancelCauseFunc

	g   *Graph
	fps float64
	set *metrics.Set

	running atomic.Bool
	stopped atomic.Bool
	wg      sync.WaitGroup
}

// NewRuntime creates a runtime under parent. fps <= 0 selects
// DEFAULT_FPS for source and sink pacing.
func NewRuntime(parent context.Context, logger zerolog.Logger, fps float64) *Runtime {
	if parent == nil {
		parent = context.Background()
	}
	if fps <= 0 {
		fps = DEFAULT_FPS
	}
	r := &Runtime{Logger: logger, fps: fps}
	r.Ctx, r.Cancel = context.WithCancelCause(parent)
	return r
}

// Execute prepares every stage and starts one worker per node. It
// returns immediately; use Wait to block until the pipeline winds
// down. A runtime drives a single graph once: re-use is an error.
func (r *Runtime) Execute(g *Graph) error {
	if r.stopped.Load() {
		return ErrStopped
	}
	if r.running.Swap(true) {
		return ErrRunning
	}
	if g == nil || len(g.Nodes) == 0 {
		r.running.Store(false)
		return ErrEmptyGraph
	}

	// prepare stages before any worker starts
	for i, n := range g.Nodes {
		if err := n.Stage.Prepare(); err != nil {
			for _, m := range g.Nodes[:i] {
				m.Stage.Stop()
			}
			r.running.Store(false)
			return n.Errorf("prepare: %w", err)
		}
	}

	r.g = g
	r.set = metrics.NewSet()
	registerQueueGauges(r.set, g)

	for _, n := range g.Nodes {
		n.running.Store(true)
		r.wg.Add(1)
		go r.worker(n)
	}

	r.Debug().Int("nodes", len(g.Nodes)).Float64("fps", r.fps).Msg("pipeline started")
	return nil
}

// worker is the per-node loop: obtain a frame, process it, distribute
// the output, pace. It observes the node's running flag at the loop
// head and inside every blocking point.
func (r *Runtime) worker(n *ExecNode) {
	defer r.wg.Done()
	defer close(n.done)

	nm := newNodeMetrics(n.Name)
	paced := n.Options.IsSource || n.Options.IsSink
	var lim *rate.Limiter
	if paced {
		lim = rate.NewLimiter(rate.Limit(r.fps), 1)
	}

	for n.running.Load() {
		// obtain an input frame
		var in *Frame
		if !n.Options.IsSource {
			in = n.In.TryPop()
			if in == nil {
				time.Sleep(idle_sleep)
				continue
			}
		}

		out, err := n.Stage.Process(in)
		if err != nil {
			r.Cancel(fmt.Errorf("%s: %w", n, err))
			return
		}

		switch {
		case n.Options.IsSink:
			// side effects only, discard any pass-through
		case out == nil:
			nm.nulls.Inc()
		case len(n.Out) > 0:
			r.distribute(n, nm, out)
		}
		if out != nil || n.Options.IsSink {
			nm.frames.Inc()
		}
		// an input neither queued downstream nor passed through is
		// dropped here; the collector reclaims it

		// pace: sources and sinks at the fps target, mid stages yield
		if paced {
			if lim.Wait(r.Ctx) != nil {
				return // context canceled
			}
		} else {
			time.Sleep(idle_sleep)
		}
	}
}

// distribute fans one output frame into every output queue: a deep
// copy to the first k-1 queues, the frame itself to the last. Pushes
// happen in queue order; a blocking push delays but never drops the
// remaining copies. A closed queue means shutdown is in progress.
func (r *Runtime) distribute(n *ExecNode, nm *nodeMetrics, out *Frame) {
	last := len(n.Out) - 1
	for i, q := range n.Out {
		f := out
		if i < last {
			f = out.Copy()
			nm.copies.Inc()
		}
		if !q.Push(f) {
			return
		}
	}
}

// Stop winds the pipeline down: clears every node's running flag,
// closes the queues so blocked pushers wake up, cancels the context,
// and joins all workers. Idempotent; the second call is a no-op.
func (r *Runtime) Stop() {
	if !r.running.Load() || r.stopped.Swap(true) {
		return
	}

	r.Debug().Msg("stopping pipeline")
	for _, n := range r.g.Nodes {
		n.running.Store(false)
	}
	for _, q := range r.g.Queues() {
		q.Close()
	}
	r.Cancel(ErrStopped)
	r.wg.Wait()

	// destroy pending queue contents
	dropped := 0
	for _, q := range r.g.Queues() {
		dropped += q.Drain()
	}

	for _, n := range r.g.Nodes {
		if err := n.Stage.Stop(); err != nil {
			n.Warn().Err(err).Msg("stage stop failed")
		}
	}

	r.running.Store(false)
	r.Debug().Int("dropped", dropped).Msg("pipeline stopped")
}

// Wait blocks until every worker has exited. It does not itself stop
// the pipeline; pair it with Stop or a canceled context.
func (r *Runtime) Wait() {
	r.wg.Wait()
}

// Done exposes the runtime context's done channel: closed on Stop, on
// a stage error, or when the parent context winds down.
func (r *Runtime) Done() <-chan struct{} {
	return r.Ctx.Done()
}

// Err returns the cancel cause, or nil while running. ErrStopped
// means a clean shutdown.
func (r *Runtime) Err() error {
	err := context.Cause(r.Ctx)
	if err == context.Canceled {
		return nil
	}
	return err
}

// Close stops the pipeline and releases the runtime. Safe to call
// multiple times and without a prior Execute.
func (r *Runtime) Close() {
	r.Stop()
	if r.g != nil {
		r.g.Close()
	}
}
