package trainer

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/armadaproject/proxgrad/internal/common/metrics"
)

// Metrics exports training progress. A nil *Metrics records nothing.
type Metrics struct {
	steps         prometheus.Counter
	loss          prometheus.Gauge
	zeroGroups    prometheus.Gauge
	samplesPerSec prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		steps: factory.NewCounter(prometheus.CounterOpts{
			Name: metrics.MetricPrefix + "trainer_steps_total",
			Help: "Number of optimiser steps taken",
		}),
		loss: factory.NewGauge(prometheus.GaugeOpts{
			Name: metrics.MetricPrefix + "trainer_loss",
			Help: "Mean mini-batch loss over the last logging window",
		}),
		zeroGroups: factory.NewGauge(prometheus.GaugeOpts{
			Name: metrics.MetricPrefix + "trainer_zero_groups",
			Help: "Number of weight rows that are exactly zero",
		}),
		samplesPerSec: factory.NewGauge(prometheus.GaugeOpts{
			Name: metrics.MetricPrefix + "trainer_samples_per_second",
			Help: "Training throughput over the last logging window",
		}),
	}
}

func (m *Metrics) record(snap Snapshot, zeroGroups int) {
	if m == nil {
		return
	}
	m.steps.Add(float64(snap.Steps))
	m.loss.Set(snap.MeanLoss)
	m.zeroGroups.Set(float64(zeroGroups))
	m.samplesPerSec.Set(snap.SamplesPerSec)
}
