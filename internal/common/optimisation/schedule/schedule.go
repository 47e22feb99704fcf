// Package schedule contains learning rate schedules evaluated on the number of updates performed.
package schedule

import (
	"fmt"
	"math"

	"github.com/pkg/errors"

	"github.com/armadaproject/proxgrad/internal/common/armadaerrors"
	armadaslices "github.com/armadaproject/proxgrad/internal/common/slices"
)

// Factor multiplies the learning rate by factor once every step updates,
// never letting it drop below stopFactorLR.
type Factor struct {
	baseLR       float64
	step         int
	factor       float64
	stopFactorLR float64
}

func NewFactor(baseLR float64, step int, factor, stopFactorLR float64) (*Factor, error) {
	if !(baseLR > 0) {
		return nil, errors.WithStack(&armadaerrors.ErrInvalidArgument{
			Name:    "baseLR",
			Value:   baseLR,
			Message: fmt.Sprintf("outside allowed range (0, Inf)"),
		})
	}
	if step < 1 {
		return nil, errors.WithStack(&armadaerrors.ErrInvalidArgument{
			Name:    "step",
			Value:   step,
			Message: fmt.Sprintf("outside allowed range [1, Inf)"),
		})
	}
	if factor <= 0 || factor > 1 {
		return nil, errors.WithStack(&armadaerrors.ErrInvalidArgument{
			Name:    "factor",
			Value:   factor,
			Message: fmt.Sprintf("outside allowed range (0, 1]"),
		})
	}
	if stopFactorLR < 0 {
		return nil, errors.WithStack(&armadaerrors.ErrInvalidArgument{
			Name:    "stopFactorLR",
			Value:   stopFactorLR,
			Message: fmt.Sprintf("outside allowed range [0, Inf)"),
		})
	}
	return &Factor{baseLR: baseLR, step: step, factor: factor, stopFactorLR: stopFactorLR}, nil
}

func MustNewFactor(baseLR float64, step int, factor, stopFactorLR float64) *Factor {
	s, err := NewFactor(baseLR, step, factor, stopFactorLR)
	if err != nil {
		panic(err)
	}
	return s
}

// LearningRate returns baseLR * factor^k, where k is the number of completed multiples of step
// strictly before numUpdate, floored at stopFactorLR.
func (s *Factor) LearningRate(numUpdate int) float64 {
	if numUpdate <= s.step {
		return s.baseLR
	}
	k := (numUpdate - 1) / s.step
	return math.Max(s.baseLR*math.Pow(s.factor, float64(k)), s.stopFactorLR)
}

// MultiFactor multiplies the learning rate by factor each time numUpdate passes one of steps.
type MultiFactor struct {
	baseLR float64
	steps  []int
	factor float64
}

func NewMultiFactor(baseLR float64, steps []int, factor float64) (*MultiFactor, error) {
	if !(baseLR > 0) {
		return nil, errors.WithStack(&armadaerrors.ErrInvalidArgument{
			Name:    "baseLR",
			Value:   baseLR,
			Message: fmt.Sprintf("outside allowed range (0, Inf)"),
		})
	}
	if !armadaslices.IsStrictlyIncreasing(steps) || (len(steps) > 0 && steps[0] < 1) {
		return nil, errors.WithStack(&armadaerrors.ErrInvalidArgument{
			Name:    "steps",
			Value:   steps,
			Message: "must be strictly increasing and at least 1",
		})
	}
	if factor <= 0 || factor > 1 {
		return nil, errors.WithStack(&armadaerrors.ErrInvalidArgument{
			Name:    "factor",
			Value:   factor,
			Message: fmt.Sprintf("outside allowed range (0, 1]"),
		})
	}
	return &MultiFactor{baseLR: baseLR, steps: append([]int(nil), steps...), factor: factor}, nil
}

func MustNewMultiFactor(baseLR float64, steps []int, factor float64) *MultiFactor {
	s, err := NewMultiFactor(baseLR, steps, factor)
	if err != nil {
		panic(err)
	}
	return s
}

func (s *MultiFactor) LearningRate(numUpdate int) float64 {
	lr := s.baseLR
	for _, step := range s.steps {
		if numUpdate <= step {
			break
		}
		lr *= s.factor
	}
	return lr
}
