// Package base contains the hyperparameter handling shared by all optimisers:
// learning rate and its schedule, per-index multipliers, weight decay,
// gradient rescaling and clipping, and per-index update counters.
package base

import (
	"fmt"
	"math"

	"github.com/pkg/errors"

	"github.com/armadaproject/proxgrad/internal/common/armadaerrors"
)

// Scheduler computes the learning rate after numUpdate updates.
type Scheduler interface {
	LearningRate(numUpdate int) float64
}

// Params holds the hyperparameters common to every optimiser.
// Fields not used by a particular optimiser are ignored by it.
type Params struct {
	LearningRate float64
	WeightDecay  float64
	// Gradients are multiplied by RescaleGrad before any other processing.
	RescaleGrad float64
	// If non-nil, rescaled gradients are clamped into [-ClipGradient, ClipGradient].
	ClipGradient *float64
	// If nil, the optimiser's default epsilon is used.
	Epsilon *float64
	// Group lasso regularisation strength.
	L2RegularizationStrength float64
	// Momentum coefficient of Nesterov.
	Momentum float64
	// If non-nil, overrides LearningRate.
	Scheduler Scheduler
	// Per-index multipliers of the learning rate and weight decay. Missing indices use 1.
	LRMult map[int]float64
	WDMult map[int]float64
}

// DefaultParams returns parameters with a learning rate of 0.01 and no rescaling, clipping or regularisation.
func DefaultParams() Params {
	return Params{
		LearningRate: 0.01,
		RescaleGrad:  1,
	}
}

// WithClipGradient returns a copy of p with clipping enabled at c.
func (p Params) WithClipGradient(c float64) Params {
	p.ClipGradient = &c
	return p
}

// WithEpsilon returns a copy of p with epsilon set to eps.
func (p Params) WithEpsilon(eps float64) Params {
	p.Epsilon = &eps
	return p
}

// EpsilonOr returns the configured epsilon, or def if none is configured.
func (p Params) EpsilonOr(def float64) float64 {
	if p.Epsilon == nil {
		return def
	}
	return *p.Epsilon
}

func (p Params) Validate() error {
	if !(p.LearningRate > 0) {
		return errors.WithStack(&armadaerrors.ErrInvalidArgument{
			Name:    "learningRate",
			Value:   p.LearningRate,
			Message: fmt.Sprintf("outside allowed range (0, Inf)"),
		})
	}
	if p.WeightDecay < 0 {
		return errors.WithStack(&armadaerrors.ErrInvalidArgument{
			Name:    "weightDecay",
			Value:   p.WeightDecay,
			Message: fmt.Sprintf("outside allowed range [0, Inf)"),
		})
	}
	if p.RescaleGrad == 0 || math.IsNaN(p.RescaleGrad) {
		return errors.WithStack(&armadaerrors.ErrInvalidArgument{
			Name:    "rescaleGrad",
			Value:   p.RescaleGrad,
			Message: "must be non-zero",
		})
	}
	if p.ClipGradient != nil && !(*p.ClipGradient > 0) {
		return errors.WithStack(&armadaerrors.ErrInvalidArgument{
			Name:    "clipGradient",
			Value:   *p.ClipGradient,
			Message: fmt.Sprintf("outside allowed range (0, Inf)"),
		})
	}
	if p.Epsilon != nil && !(*p.Epsilon > 0) {
		return errors.WithStack(&armadaerrors.ErrInvalidArgument{
			Name:    "epsilon",
			Value:   *p.Epsilon,
			Message: fmt.Sprintf("outside allowed range (0, Inf)"),
		})
	}
	if p.L2RegularizationStrength < 0 || math.IsNaN(p.L2RegularizationStrength) {
		return errors.WithStack(&armadaerrors.ErrInvalidArgument{
			Name:    "l2RegularizationStrength",
			Value:   p.L2RegularizationStrength,
			Message: fmt.Sprintf("outside allowed range [0, Inf)"),
		})
	}
	if p.Momentum < 0 || p.Momentum >= 1 {
		return errors.WithStack(&armadaerrors.ErrInvalidArgument{
			Name:    "momentum",
			Value:   p.Momentum,
			Message: fmt.Sprintf("outside allowed range [0, 1)"),
		})
	}
	for index, mult := range p.LRMult {
		if mult < 0 {
			return errors.WithStack(&armadaerrors.ErrInvalidArgument{
				Name:    fmt.Sprintf("lrMult[%d]", index),
				Value:   mult,
				Message: fmt.Sprintf("outside allowed range [0, Inf)"),
			})
		}
	}
	for index, mult := range p.WDMult {
		if mult < 0 {
			return errors.WithStack(&armadaerrors.ErrInvalidArgument{
				Name:    fmt.Sprintf("wdMult[%d]", index),
				Value:   mult,
				Message: fmt.Sprintf("outside allowed range [0, Inf)"),
			})
		}
	}
	return nil
}

// Base is embedded by optimisers to share hyperparameter handling.
// It is not safe for concurrent use.
type Base struct {
	params Params
	// Number of updates performed for each parameter index.
	updateCounts map[int]int
	// Largest value in updateCounts.
	numUpdate int
}

func New(params Params) (*Base, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &Base{
		params:       params,
		updateCounts: make(map[int]int),
	}, nil
}

func (b *Base) Params() Params {
	return b.params
}

// UpdateCount records an update of the parameter at index.
func (b *Base) UpdateCount(index int) {
	b.updateCounts[index]++
	if c := b.updateCounts[index]; c > b.numUpdate {
		b.numUpdate = c
	}
}

// UpdateCountOf returns the number of updates recorded for index.
func (b *Base) UpdateCountOf(index int) int {
	return b.updateCounts[index]
}

// NumUpdate returns the largest number of updates recorded for any index.
func (b *Base) NumUpdate() int {
	return b.numUpdate
}

// LearningRate returns the learning rate for index at the current update count.
func (b *Base) LearningRate(index int) float64 {
	lr := b.params.LearningRate
	if b.params.Scheduler != nil {
		lr = b.params.Scheduler.LearningRate(b.numUpdate)
	}
	if mult, ok := b.params.LRMult[index]; ok {
		lr *= mult
	}
	return lr
}

// WeightDecay returns the weight decay for index.
func (b *Base) WeightDecay(index int) float64 {
	wd := b.params.WeightDecay
	if mult, ok := b.params.WDMult[index]; ok {
		wd *= mult
	}
	return wd
}

// PrepareGradient rescales g and, if clipping is enabled, clamps it.
func (b *Base) PrepareGradient(g float64) float64 {
	g *= b.params.RescaleGrad
	if c := b.params.ClipGradient; c != nil {
		g = math.Max(-*c, math.Min(*c, g))
	}
	return g
}
