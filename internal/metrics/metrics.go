package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the service collectors. A nil *Metrics, or one built
// without a registerer, silently drops observations.
type Metrics struct {
	oracleRequests *prometheus.CounterVec
	oracleDuration *prometheus.HistogramVec
	transitions    *prometheus.CounterVec
	gateVerdicts   *prometheus.CounterVec
	httpRequests   *prometheus.CounterVec
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		return &Metrics{}
	}
	m := &Metrics{
		oracleRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "oracle_requests_total",
			Help: "Text-generation requests by purpose and outcome.",
		}, []string{"purpose", "outcome"}),
		oracleDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "oracle_request_duration_seconds",
			Help:    "Latency of text-generation requests.",
			Buckets: prometheus.DefBuckets,
		}, []string{"purpose"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "negotiation_transitions_total",
			Help: "Negotiation status changes by target status.",
		}, []string{"to"}),
		gateVerdicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "insight_gate_total",
			Help: "Chat relevance gate verdicts.",
		}, []string{"verdict"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by method, route pattern and status.",
		}, []string{"method", "route", "status"}),
	}
	reg.MustRegister(m.oracleRequests, m.oracleDuration, m.transitions, m.gateVerdicts, m.httpRequests)
	return m
}

// ObserveOracle records one oracle call.
func (m *Metrics) ObserveOracle(purpose string, elapsed time.Duration, err error) {
	if m == nil || m.oracleRequests == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	purpose = normalizeLabel(purpose)
	m.oracleRequests.WithLabelValues(purpose, outcome).Inc()
	m.oracleDuration.WithLabelValues(purpose).Observe(elapsed.Seconds())
}

// IncTransition counts a negotiation moving into status to.
func (m *Metrics) IncTransition(to string) {
	if m == nil || m.transitions == nil {
		return
	}
	m.transitions.WithLabelValues(normalizeLabel(to)).Inc()
}

// IncGate counts a relevance gate verdict.
func (m *Metrics) IncGate(relevant bool) {
	if m == nil || m.gateVerdicts == nil {
		return
	}
	verdict := "noise"
	if relevant {
		verdict = "relevant"
	}
	m.gateVerdicts.WithLabelValues(verdict).Inc()
}

// IncHTTP counts a served request.
func (m *Metrics) IncHTTP(method, route string, status int) {
	if m == nil || m.httpRequests == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, normalizeLabel(route), strconv.Itoa(status)).Inc()
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
