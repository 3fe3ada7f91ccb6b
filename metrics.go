package endb

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/VictoriaMetrics/metrics"
)

// opMetrics records per-operation counters and durations in the default VictoriaMetrics set.
type opMetrics struct {
	adapter string
}

func (m opMetrics) observe(op string, start time.Time, err error) {
	metrics.GetOrCreateCounter(fmt.Sprintf(`endb_operations_total{adapter=%q,op=%q}`, m.adapter, op)).Inc()
	metrics.GetOrCreateHistogram(fmt.Sprintf(`endb_operation_duration_seconds{adapter=%q,op=%q}`, m.adapter, op)).
		Update(time.Since(start).Seconds())
	if err != nil {
		metrics.GetOrCreateCounter(fmt.Sprintf(`endb_errors_total{adapter=%q,op=%q,kind=%q}`, m.adapter, op, errorKind(err))).Inc()
	}
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, ErrConnection):
		return "connection"
	case errors.Is(err, ErrNotReady):
		return "not_ready"
	case errors.Is(err, ErrDestroyed):
		return "destroyed"
	case errors.Is(err, ErrTypeValidation):
		return "type_validation"
	case errors.Is(err, ErrSerialization):
		return "serialization"
	case errors.Is(err, ErrNotSupported):
		return "not_supported"
	default:
		return "operation"
	}
}

// WriteMetrics writes the operation metrics of all Endb instances in Prometheus text format.
func WriteMetrics(w io.Writer) {
	metrics.WritePrometheus(w, false)
}
