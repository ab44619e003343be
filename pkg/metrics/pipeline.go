package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PipelineMetrics covers the checkout and payment funnel.
type PipelineMetrics struct {
	checkouts        *prometheus.CounterVec
	checkoutDuration prometheus.Histogram
	captures         *prometheus.CounterVec
	stockRejections  prometheus.Counter
	statusChanges    *prometheus.CounterVec
}

// NewPipelineMetrics registers the funnel metrics on the provided registerer.
func NewPipelineMetrics(reg prometheus.Registerer) *PipelineMetrics {
	if reg == nil {
		return &PipelineMetrics{}
	}
	checkouts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_total",
		Help: "Checkout submissions by result.",
	}, []string{"result"})
	checkoutDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "checkout_duration_seconds",
		Help:    "Duration of checkout transactions in seconds.",
		Buckets: prometheus.DefBuckets,
	})
	captures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_capture_total",
		Help: "Payment capture attempts by result.",
	}, []string{"result"})
	stockRejections := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "inventory_reservation_rejections_total",
		Help: "Reservations rejected because stock was insufficient.",
	})
	statusChanges := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "order_status_transitions_total",
		Help: "Order status transitions by target status.",
	}, []string{"to"})
	reg.MustRegister(checkouts, checkoutDuration, captures, stockRejections, statusChanges)
	return &PipelineMetrics{
		checkouts:        checkouts,
		checkoutDuration: checkoutDuration,
		captures:         captures,
		stockRejections:  stockRejections,
		statusChanges:    statusChanges,
	}
}

// IncCheckout counts one checkout submission with the given result label.
func (p *PipelineMetrics) IncCheckout(result string) {
	if p == nil || p.checkouts == nil {
		return
	}
	p.checkouts.WithLabelValues(normalizeLabel(result)).Inc()
}

// ObserveCheckoutDuration records how long the checkout transaction took.
func (p *PipelineMetrics) ObserveCheckoutDuration(d time.Duration) {
	if p == nil || p.checkoutDuration == nil {
		return
	}
	p.checkoutDuration.Observe(d.Seconds())
}

// IncCapture counts one capture attempt with the given result label.
func (p *PipelineMetrics) IncCapture(result string) {
	if p == nil || p.captures == nil {
		return
	}
	p.captures.WithLabelValues(normalizeLabel(result)).Inc()
}

// IncStockRejection counts a reservation rejected for insufficient stock.
func (p *PipelineMetrics) IncStockRejection() {
	if p == nil || p.stockRejections == nil {
		return
	}
	p.stockRejections.Inc()
}

// IncStatusTransition counts an order moving into the given status.
func (p *PipelineMetrics) IncStatusTransition(to string) {
	if p == nil || p.statusChanges == nil {
		return
	}
	p.statusChanges.WithLabelValues(normalizeLabel(to)).Inc()
}
