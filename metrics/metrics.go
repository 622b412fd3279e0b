// Package metrics exports engine and HTTP counters to prometheus.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/warp/approval-ledger/generic"
)

const namespace = "approval_ledger"

// Metrics implements generic.Observer. A nil *Metrics records nothing.
type Metrics struct {
	transitions *prometheus.CounterVec
	appends     *prometheus.CounterVec
	httpLatency *prometheus.HistogramVec
}

var _ generic.Observer = (*Metrics)(nil)

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		return &Metrics{}
	}
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "transitions_total",
		Help:      "Committed request status transitions.",
	}, []string{"domain", "from", "to"})
	appends := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ledger_appends_total",
		Help:      "Ledger append attempts by transaction kind and outcome.",
	}, []string{"kind", "outcome"})
	httpLatency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by route and status code.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route", "code"})
	reg.MustRegister(transitions, appends, httpLatency)
	return &Metrics{
		transitions: transitions,
		appends:     appends,
		httpLatency: httpLatency,
	}
}

func (m *Metrics) TransitionCommitted(domain generic.Domain, from, to generic.Status) {
	if m == nil || m.transitions == nil {
		return
	}
	m.transitions.WithLabelValues(normalizeLabel(string(domain)), string(from), string(to)).Inc()
}

func (m *Metrics) TransactionAppended(kind generic.TransactionKind, outcome string) {
	if m == nil || m.appends == nil {
		return
	}
	m.appends.WithLabelValues(normalizeLabel(string(kind)), normalizeLabel(outcome)).Inc()
}

// ObserveHTTP records one served request.
func (m *Metrics) ObserveHTTP(method, route, code string, d time.Duration) {
	if m == nil || m.httpLatency == nil {
		return
	}
	m.httpLatency.WithLabelValues(method, normalizeLabel(route), code).Observe(d.Seconds())
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
