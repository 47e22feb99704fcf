package trainer

import "time"

// Window accumulates step statistics between two log lines.
type Window struct {
	samples  int
	compute  time.Duration
	steps    int
	lossSum  float64
	lastLoss float64
}

// Record adds a step over batchSize samples.
func (w *Window) Record(batchSize int, computeTime time.Duration, loss float64) {
	w.samples += batchSize
	w.compute += computeTime
	w.steps++
	w.lossSum += loss
	w.lastLoss = loss
}

// Snapshot returns aggregated statistics and resets the window.
func (w *Window) Snapshot() Snapshot {
	snap := Snapshot{Steps: w.steps, LastLoss: w.lastLoss}
	if w.compute > 0 {
		snap.SamplesPerSec = float64(w.samples) / w.compute.Seconds()
	}
	if w.steps > 0 {
		snap.AvgStepMS = (w.compute.Seconds() * 1000) / float64(w.steps)
		snap.MeanLoss = w.lossSum / float64(w.steps)
	}
	*w = Window{}
	return snap
}

type Snapshot struct {
	Steps         int
	SamplesPerSec float64
	AvgStepMS     float64
	MeanLoss      float64
	LastLoss      float64
}
