package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Editor holds the collectors the senotype module reports to.
type Editor struct {
	LookupDuration *prometheus.HistogramVec
	LookupRetries  *prometheus.CounterVec
	Submissions    *prometheus.CounterVec
	Sessions       prometheus.Gauge
}

func NewEditor(reg prometheus.Registerer) *Editor {
	m := &Editor{
		LookupDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "senotype",
			Subsystem: "lookup",
			Name:      "duration_seconds",
			Help:      "Latency of external lookup requests.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"host", "outcome"}),
		LookupRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "senotype",
			Subsystem: "lookup",
			Name:      "retries_total",
			Help:      "Retried external lookup attempts.",
		}, []string{"host"}),
		Submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "senotype",
			Name:      "submissions_total",
			Help:      "Senotype submissions by action and outcome.",
		}, []string{"action", "outcome"}),
		Sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "senotype",
			Name:      "editor_sessions",
			Help:      "Live editor sessions.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.LookupDuration, m.LookupRetries, m.Submissions, m.Sessions)
	}
	return m
}

func (m *Editor) ObserveLookup(host, outcome string, started time.Time) {
	if m == nil {
		return
	}
	m.LookupDuration.WithLabelValues(host, outcome).Observe(time.Since(started).Seconds())
}

func (m *Editor) Retry(host string) {
	if m == nil {
		return
	}
	m.LookupRetries.WithLabelValues(host).Inc()
}

func (m *Editor) Submitted(action, outcome string) {
	if m == nil {
		return
	}
	m.Submissions.WithLabelValues(action, outcome).Inc()
}

func (m *Editor) SessionOpened() {
	if m != nil {
		m.Sessions.Inc()
	}
}

func (m *Editor) SessionClosed() {
	if m != nil {
		m.Sessions.Dec()
	}
}
