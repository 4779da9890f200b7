package core

import (
	"fmt"
	"io"

	"github.com/VictoriaMetrics/metrics"
)

// nodeMetrics are the per-node counters. Counters live in the global
// metrics registry so they aggregate across pipeline runs; queue
// depth gauges are registered per runtime in their own set because
// each run allocates fresh queues.
type nodeMetrics struct {
	frames *metrics.Counter // frames processed
	nulls  *metrics.Counter // empty outputs (back-off ticks)
	copies *metrics.Counter // fan-out duplicates produced
}

func newNodeMetrics(name string) *nodeMetrics {
	return &nodeMetrics{
		frames: metrics.GetOrCreateCounter(fmt.Sprintf(`vidpipe_frames_total{stage=%q}`, name)),
		nulls:  metrics.GetOrCreateCounter(fmt.Sprintf(`vidpipe_null_outputs_total{stage=%q}`, name)),
		copies: metrics.GetOrCreateCounter(fmt.Sprintf(`vidpipe_fanout_copies_total{stage=%q}`, name)),
	}
}

// registerQueueGauges exposes every input queue's depth and bound.
func registerQueueGauges(set *metrics.Set, g *Graph) {
	for _, n := range g.Nodes {
		if n.In == nil {
			continue
		}
		q := n.In
		set.NewGauge(fmt.Sprintf(`vidpipe_queue_depth{stage=%q}`, n.String()), func() float64 {
			return float64(q.Len())
		})
		set.NewGauge(fmt.Sprintf(`vidpipe_queue_capacity{stage=%q}`, n.String()), func() float64 {
			return float64(q.Cap())
		})
	}
}

// WriteMetrics dumps the global counters and this runtime's queue
// gauges in Prometheus text format.
func (r *Runtime) WriteMetrics(w io.Writer) {
	metrics.WritePrometheus(w, false)
	if r.set != nil {
		r.set.WritePrometheus(w)
	}
}
