package harness

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/armadaproject/proxgrad/internal/common/metrics"
)

const (
	outcomePassed   = "passed"
	outcomeMismatch = "mismatch"
	outcomeError    = "error"
)

// Metrics records the outcome of sweep cases.
// A nil *Metrics records nothing.
type Metrics struct {
	cases      *prometheus.CounterVec
	mismatches *prometheus.CounterVec
	duration   *prometheus.HistogramVec
}

// NewMetrics registers the harness metrics with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		cases: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: metrics.MetricPrefix + "harness_cases_total",
				Help: "Number of comparison cases run, by outcome",
			},
			[]string{"kind", "mode", "outcome"},
		),
		mismatches: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: metrics.MetricPrefix + "harness_mismatches_total",
				Help: "Number of elements on which candidate and reference disagreed beyond tolerance",
			},
			[]string{"kind", "mode"},
		),
		duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metrics.MetricPrefix + "harness_case_duration_seconds",
				Help:    "Time taken to run one comparison case",
				Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
			},
			[]string{"kind"},
		),
	}
}

func (m *Metrics) record(c Case, result *Result, err error, d time.Duration) {
	if m == nil {
		return
	}
	kind, mode := c.Kind.String(), c.Mode.String()
	m.duration.WithLabelValues(kind).Observe(d.Seconds())
	switch {
	case err != nil:
		m.cases.WithLabelValues(kind, mode, outcomeError).Inc()
	case result.Passed():
		m.cases.WithLabelValues(kind, mode, outcomePassed).Inc()
	default:
		m.cases.WithLabelValues(kind, mode, outcomeMismatch).Inc()
		m.mismatches.WithLabelValues(kind, mode).Add(float64(len(result.Mismatches)))
	}
}
