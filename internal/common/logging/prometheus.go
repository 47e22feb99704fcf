package logging

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sirupsen/logrus"

	"github.com/armadaproject/proxgrad/internal/common/metrics"
)

// PrometheusHook is a logrus hook counting log lines by level.
type PrometheusHook struct {
	counter *prometheus.CounterVec
}

// NewPrometheusHook registers a counter of log lines with reg.
func NewPrometheusHook(reg prometheus.Registerer) *PrometheusHook {
	return &PrometheusHook{
		counter: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: metrics.MetricPrefix + "log_messages",
				Help: "Total number of log lines logged by level",
			},
			[]string{"level"},
		),
	}
}

func (h *PrometheusHook) Levels() []logrus.Level {
	return []logrus.Level{logrus.ErrorLevel, logrus.WarnLevel, logrus.InfoLevel, logrus.DebugLevel}
}

func (h *PrometheusHook) Fire(entry *logrus.Entry) error {
	h.counter.WithLabelValues(entry.Level.String()).Inc()
	return nil
}
