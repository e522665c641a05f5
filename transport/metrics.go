package transport

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are the client side request metrics.
type Metrics struct {
	// Requests counts completed calls by method and status ("error" when no response was received).
	Requests *prometheus.CounterVec
	// Refreshes counts token refreshes by result: "success" or "failure".
	Refreshes *prometheus.CounterVec
	// Duration measures round trip duration by method.
	Duration *prometheus.HistogramVec
}

// NewMetrics creates the metrics and registers them with reg. A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Requests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "educloud",
				Subsystem: "client",
				Name:      "requests_total",
				Help:      "Total number of API requests",
			},
			[]string{"method", "status"},
		),
		Refreshes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "educloud",
				Subsystem: "client",
				Name:      "refresh_total",
				Help:      "Total number of access token refreshes",
			},
			[]string{"result"},
		),
		Duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "educloud",
				Subsystem: "client",
				Name:      "request_duration_seconds",
				Help:      "Duration of API requests in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method"},
		),
	}
}

func (m *Metrics) observe(method string, status int, elapsed time.Duration) {
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	m.Requests.WithLabelValues(method, label).Inc()
	m.Duration.WithLabelValues(method).Observe(elapsed.Seconds())
}

func (m *Metrics) refreshed(ok bool) {
	result := "failure"
	if ok {
		result = "success"
	}
	m.Refreshes.WithLabelValues(result).Inc()
}
