package reference

import (
	"math"

	"github.com/pkg/errors"
	"golang.org/x/exp/constraints"
	"gonum.org/v1/gonum/mat"

	"github.com/armadaproject/proxgrad/internal/common/armadaerrors"
	"github.com/armadaproject/proxgrad/internal/common/optimisation/adagrad"
	"github.com/armadaproject/proxgrad/internal/common/optimisation/base"
	"github.com/armadaproject/proxgrad/internal/common/tensor"
)

type AdaGrad[T constraints.Float] struct {
	*base.Base
	eps float64
}

func NewAdaGrad[T constraints.Float](params base.Params) (*AdaGrad[T], error) {
	b, err := base.New(params)
	if err != nil {
		return nil, err
	}
	return &AdaGrad[T]{Base: b, eps: params.EpsilonOr(adagrad.DefaultEpsilon)}, nil
}

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
		return errors.WithStack(&armadaerrors.ErrUnsupported{Feature: "weightDecay", Value: wd})
	}
	o.UpdateCount(index)
	lr := o.LearningRate(index)
	w, g, ok := operands(o.Base, weight, grad)
	if !ok {
		return nil
	}

	var sq mat.Dense
	sq.MulElem(g, g)
	h := state.ToMat()
	h.Add(h, &sq)
	h, err := storeRounded(state, h)
	if err != nil {
		return err
	}

	var denom, step, decay mat.Dense
	denom.Apply(func(_, _ int, v float64) float64 { return math.Sqrt(v + o.eps) }, h)
	step.DivElem(g, &denom)
	decay.Scale(wd, w)
	step.Add(&step, &decay)
	step.Scale(lr, &step)
	w.Sub(w, &step)
	return writeBack(weight, w)
}
