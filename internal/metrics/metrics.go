package metrics

import (
	"time"

	"github.com/funkoshop/order-service/internal/orders"
	"github.com/prometheus/client_golang/prometheus"
)

// Recorder exports lifecycle metrics. It implements orders.Observer.
type Recorder struct {
	operations *prometheus.CounterVec
	latency    *prometheus.HistogramVec
	stock      *prometheus.CounterVec
}

var _ orders.Observer = (*Recorder)(nil)

func NewRecorder(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "orders",
			Name:      "operations_total",
			Help:      "Order lifecycle operations by outcome.",
		}, []string{"op", "result"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "orders",
			Name:      "operation_duration_seconds",
			Help:      "Latency of order lifecycle operations.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
		stock: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "orders",
			Name:      "stock_units_total",
			Help:      "Units reserved from or returned to inventory.",
		}, []string{"direction"}),
	}
	reg.MustRegister(r.operations, r.latency, r.stock)
	return r
}

func (r *Recorder) ObserveOperation(op string, d time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = orders.Reason(err)
	}
	r.operations.WithLabelValues(op, result).Inc()
	r.latency.WithLabelValues(op).Observe(d.Seconds())
}

func (r *Recorder) ObserveStock(direction string, units int) {
	if units <= 0 {
		return
	}
	r.stock.WithLabelValues(direction).Add(float64(units))
}
