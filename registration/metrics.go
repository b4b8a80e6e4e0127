package registration

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records registration passes in Prometheus. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	outcomes     *prometheus.CounterVec
	passDuration *prometheus.HistogramVec
	scanFailures *prometheus.CounterVec
}

// NewMetrics creates the registration collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "semwire",
			Subsystem: "registration",
			Name:      "outcomes_total",
			Help:      "Candidate outcomes by pipeline variant and kind.",
		}, []string{"variant", "kind"}),
		passDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "semwire",
			Subsystem: "registration",
			Name:      "pass_duration_seconds",
			Help:      "Duration of completed registration passes.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 8),
		}, []string{"variant"}),
		scanFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "semwire",
			Subsystem: "registration",
			Name:      "scan_failures_total",
			Help:      "Registration passes aborted because the namespace could not be scanned.",
		}, []string{"variant"}),
	}

	for _, c := range []prometheus.Collector{m.outcomes, m.passDuration, m.scanFailures} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register registration metrics: %w", err)
		}
	}
	return m, nil
}

func (m *Metrics) recordOutcome(variant string, kind Kind) {
	if m == nil {
		return
	}
	m.outcomes.WithLabelValues(variant, kind.String()).Inc()
}

func (m *Metrics) recordPass(variant string, d time.Duration) {
	if m == nil {
		return
	}
	m.passDuration.WithLabelValues(variant).Observe(d.Seconds())
}

func (m *Metrics) recordScanFailure(variant string) {
	if m == nil {
		return
	}
	m.scanFailures.WithLabelValues(variant).Inc()
}
