package reference

import (
	"math"

	"github.com/pkg/errors"
	"golang.org/x/exp/constraints"
	"gonum.org/v1/gonum/mat"

	"github.com/armadaproject/proxgrad/internal/common/armadaerrors"
	"github.com/armadaproject/proxgrad/internal/common/linalg"
	"github.com/armadaproject/proxgrad/internal/common/optimisation/base"
	"github.com/armadaproject/proxgrad/internal/common/optimisation/proxgroupadagrad"
	"github.com/armadaproject/proxgrad/internal/common/tensor"
)

type ProxGroupAdaGrad[T constraints.Float] struct {
	*base.Base
	eps    float64
	lambda float64
}

func NewProxGroupAdaGrad[T constraints.Float](params base.Params) (*ProxGroupAdaGrad[T], error) {
	if params.WeightDecay != 0 {
		return nil, errors.WithStack(&armadaerrors.ErrUnsupported{
			Feature: "weightDecay",
			Value:   params.WeightDecay,
		})
	}
	b, err := base.New(params)
	if err != nil {
		return nil, err
	}
	return &ProxGroupAdaGrad[T]{
		Base:   b,
		eps:    params.EpsilonOr(proxgroupadagrad.DefaultEpsilon),
		lambda: params.L2RegularizationStrength,
	}, nil
}

func (o *ProxGroupAdaGrad[T]) CreateState(_ int, weight tensor.Tensor[T]) (*tensor.Dense[T], error) {
	return base.ZeroState(weight, 1)
}

func (o *ProxGroupAdaGrad[T]) Update(index int, weight, grad tensor.Tensor[T], state *tensor.Dense[T]) error {
	if err := base.CheckUpdateArgs(weight, grad, state, 1); err != nil {
		return err
	}
	if wd := o.WeightDecay(index); wd != 0 {
		return errors.WithStack(&armadaerrors.ErrUnsupported{Feature: "weightDecay", Value: wd})
	}
	o.UpdateCount(index)
	lr := o.LearningRate(index)
	w, g, ok := operands(o.Base, weight, grad)
	if !ok {
		return nil
	}

	// history += mean(g^2, axis=1)
	h := state.ToMat()
	h.Add(h, linalg.RowMeanSquares(nil, g))
	h, err := storeRounded(state, h)
	if err != nil {
		return err
	}

	// scale = lr / sqrt(history + eps); w -= scale * g
	scale := linalg.ApplyVec(nil, h.ColView(0), func(v float64) float64 {
		return lr / math.Sqrt(v+o.eps)
	})
	var div mat.Dense
	linalg.ScaleRows(&div, scale, g)
	w.Sub(w, &div)

	if o.lambda > 0 {
		norms := linalg.RowNorms(nil, w)
		shrink := mat.NewVecDense(norms.Len(), nil)
		for i := 0; i < norms.Len(); i++ {
			threshold := scale.AtVec(i) * o.lambda
			if n := norms.AtVec(i); n > threshold {
				shrink.SetVec(i, 1-threshold/n)
			}
		}
		linalg.ScaleRows(w, shrink, w)
	}
	return writeBack(weight, w)
}
