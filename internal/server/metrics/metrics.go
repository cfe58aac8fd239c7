// Package metrics holds the Prometheus collectors for authentication and
// throttling outcomes.
package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "authkeeper"

// Result labels.
const (
	ResultSuccess  = "success"
	ResultRejected = "rejected"
	ResultError    = "error"
)

type Metrics struct {
	Logins    *prometheus.CounterVec
	Refreshes *prometheus.CounterVec
	Throttle  *prometheus.CounterVec
	Requests  *prometheus.HistogramVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		Logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "logins_total",
			Help:      "Login attempts by result.",
		}, []string{"result"}),
		Refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refreshes_total",
			Help:      "Token refresh attempts by result.",
		}, []string{"result"}),
		Throttle: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "throttle_decisions_total",
			Help:      "Throttle decisions by route group and decision.",
		}, []string{"group", "decision"}),
		Requests: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route and status.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "status"}),
	}

	for _, c := range []prometheus.Collector{m.Logins, m.Refreshes, m.Throttle, m.Requests} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Outcome maps an error to a result label: nil is success, a domain
// rejection is rejected, anything else is error.
func Outcome(err error, rejected func(error) bool) string {
	switch {
	case err == nil:
		return ResultSuccess
	case rejected(err):
		return ResultRejected
	default:
		return ResultError
	}
}
