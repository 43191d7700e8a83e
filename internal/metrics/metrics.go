package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// StoreMetrics counts order lifecycle transitions and payment attempts.
type StoreMetrics struct {
	Transitions     *prometheus.CounterVec
	PaymentAttempts *prometheus.CounterVec
	PaymentFailures *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *StoreMetrics {
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gamestore",
		Subsystem: "orders",
		Name:      "status_transitions_total",
		Help:      "Total number of successful order status transitions.",
	}, []string{"from", "to"})
	attempts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gamestore",
		Subsystem: "payments",
		Name:      "attempts_total",
		Help:      "Total number of payment attempts by method.",
	}, []string{"method"})
	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gamestore",
		Subsystem: "payments",
		Name:      "failures_total",
		Help:      "Total number of failed payment attempts by method and kind.",
	}, []string{"method", "kind"})

	reg.MustRegister(transitions, attempts, failures)
	return &StoreMetrics{
		Transitions:     transitions,
		PaymentAttempts: attempts,
		PaymentFailures: failures,
	}
}

func Handler() http.Handler {
	return promhttp.Handler()
}
