package adagrad

import (
	"math"

	"github.com/pkg/errors"
	"golang.org/x/exp/constraints"

	"github.com/armadaproject/proxgrad/internal/common/armadaerrors"
	"github.com/armadaproject/proxgrad/internal/common/optimisation/base"
	"github.com/armadaproject/proxgrad/internal/common/tensor"
)

// DefaultEpsilon is used if no epsilon is configured.
const DefaultEpsilon = 1e-7

// AdaGrad keeps one squared-gradient accumulator per weight element:
//
//	h += g^2
//	w -= lr * (g / sqrt(h + eps) + wd * w)
//
// Row-sparse gradients update only their stored rows and don't support weight decay.
type AdaGrad[T constraints.Float] struct {
	*base.Base
	eps float64
}

func New[T constraints.Float](params base.Params) (*AdaGrad[T], error) {
	b, err := base.New(params)
	if err != nil {
		return nil, err
	}
	return &AdaGrad[T]{Base: b, eps: params.EpsilonOr(DefaultEpsilon)}, nil
}

func MustNew[T constraints.Float](params base.Params) *AdaGrad[T] {
	opt, err := New[T](params)
	if err != nil {
		panic(err)
	}
	return opt
}

// CreateState returns a zeroed accumulator with the shape of weight.
func (o *AdaGrad[T]) CreateState(_ int, weight tensor.Tensor[T]) (*tensor.Dense[T], error) {
	if err := tensor.Require2D("weight", weight); err != nil {
		return nil, err
	}
	return base.ZeroState(weight, tensor.Cols(weight))
}

func (o *AdaGrad[T]) Update(index int, weight, grad tensor.Tensor[T], state *tensor.Dense[T]) error {
	if err := tensor.Require2D("weight", weight); err != nil {
		return err
	}
	if err := base.CheckUpdateArgs(weight, grad, state, tensor.Cols(weight)); err != nil {
		return err
	}
	wd := o.WeightDecay(index)
	if wd != 0 && grad.StorageType() == tensor.StorageRowSparse {
		return errors.WithStack(&armadaerrors.ErrUnsupported{
			Feature: "weightDecay",
			Value:   wd,
			Message: "adagrad does not support weight decay with row-sparse gradients",
		})
	}
	o.UpdateCount(index)
	lr := o.LearningRate(index)
	base.VisitRows(weight, grad, func(i int, w, g []T) {
		h := state.Row(i)
		for j := range w {
			gj := o.PrepareGradient(float64(g[j]))
			h[j] = T(float64(h[j]) + gj*gj)
			x := float64(w[j])
			w[j] = T(x - lr*(gj/math.Sqrt(float64(h[j])+o.eps)+wd*x))
		}
	})
	return nil
}
