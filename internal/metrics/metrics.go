// Package metrics provides the Prometheus instruments of the service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"uocsclub.net/aocstats/internal/stats"
)

const namespace = "aocstats"

// Fetch results.
const (
	FetchOK          = "ok"
	FetchError       = "error"
	FetchRateLimited = "rate_limited"
)

type Manager struct {
	fetches         *prometheus.CounterVec
	scoreMismatches prometheus.Counter
	decodeErrors    prometheus.Counter
	processDuration prometheus.Histogram
	members         prometheus.Gauge
}

// New creates the instruments and registers them with reg.
func New(reg prometheus.Registerer) (*Manager, error) {
	m := &Manager{
		fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_total",
			Help:      "Leaderboard fetches from adventofcode.com by result.",
		}, []string{"result"}),
		scoreMismatches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "score_mismatch_total",
			Help:      "Members whose recomputed score differed from the reported local score.",
		}),
		decodeErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decode_errors_total",
			Help:      "Share tokens or uploads that failed to decode or validate.",
		}),
		processDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "process_duration_seconds",
			Help:      "Time spent computing member statistics for one leaderboard.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
		}),
		members: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "members",
			Help:      "Members on the most recently processed leaderboard.",
		}),
	}

	for _, c := range []prometheus.Collector{m.fetches, m.scoreMismatches, m.decodeErrors, m.processDuration, m.members} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Manager) ObserveFetch(result string) {
	m.fetches.WithLabelValues(result).Inc()
}

func (m *Manager) ObserveDecodeError() {
	m.decodeErrors.Inc()
}

// ObserveProcess records one processing run.
func (m *Manager) ObserveProcess(took time.Duration, members int) {
	m.processDuration.Observe(took.Seconds())
	m.members.Set(float64(members))
}

// MismatchHandler counts score mismatches reported by a stats.Processor.
func (m *Manager) MismatchHandler() func(stats.Mismatch) {
	return func(stats.Mismatch) {
		m.scoreMismatches.Inc()
	}
}
