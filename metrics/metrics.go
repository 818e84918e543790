// Package metrics exposes Prometheus counters for the funding services.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "matchfund"

// Result labels.
const (
	ResultOK       = "ok"
	ResultRejected = "rejected"
)

// Recorder counts operations and transferred value. A nil *Recorder is valid
// and records nothing.
type Recorder struct {
	operations  *prometheus.CounterVec
	transferred *prometheus.CounterVec
}

// NewRecorder creates a Recorder and registers its collectors with reg.
func NewRecorder(reg prometheus.Registerer) (*Recorder, error) {
	r := &Recorder{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Funding operations by service, operation and result.",
		}, []string{"service", "op", "result"}),
		transferred: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transferred_total",
			Help:      "Asset units moved by committed operations.",
		}, []string{"service", "op"}),
	}
	for _, c := range []prometheus.Collector{r.operations, r.transferred} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("metrics: register collector: %w", err)
		}
	}
	return r, nil
}

// ObserveOperation counts one finished operation.
func (r *Recorder) ObserveOperation(service, op string, err error) {
	if r == nil {
		return
	}
	result := ResultOK
	if err != nil {
		result = ResultRejected
	}
	r.operations.WithLabelValues(service, op, result).Inc()
}

// ObserveTransferred adds units moved by a committed operation. Amounts beyond
// float64 precision are approximated.
func (r *Recorder) ObserveTransferred(service, op string, units float64) {
	if r == nil || units <= 0 {
		return
	}
	r.transferred.WithLabelValues(service, op).Add(units)
}
