package stages

import (
	"io"

	"github.com/VictoriaMetrics/metrics"
)

// writePrometheus dumps the process-wide stage counters.
func writePrometheus(w io.Writer) {
	metrics.WritePrometheus(w, false)
}
