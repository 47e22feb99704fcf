package reference

import (
	"golang.org/x/exp/constraints"
	"gonum.org/v1/gonum/mat"

	"github.com/armadaproject/proxgrad/internal/common/optimisation/base"
	"github.com/armadaproject/proxgrad/internal/common/tensor"
)

type Nesterov[T constraints.Float] struct {
	*base.Base
	rho float64
}

func NewNesterov[T constraints.Float](params base.Params) (*Nesterov[T], error) {
	b, err := base.New(params)
	if err != nil {
		return nil, err
	}
	return &Nesterov[T]{Base: b, rho: params.Momentum}, nil
}

func (o *Nesterov[T]) CreateState(_ int, weight tensor.Tensor[T]) (*tensor.Dense[T], error) {
	if err := tensor.Require2D("weight", weight); err != nil {
		return nil, err
	}
	return base.ZeroState(weight, tensor.Cols(weight))
}

func (o *Nesterov[T]) Update(index int, weight, grad tensor.Tensor[T], state *tensor.Dense[T]) error {
	if err := tensor.Require2D("weight", weight); err != nil {
		return err
	}
	if err := base.CheckUpdateArgs(weight, grad, state, tensor.Cols(weight)); err != nil {
		return err
	}
	o.UpdateCount(index)
	lr := o.LearningRate(index)
	wd := o.WeightDecay(index)
	w, g, ok := operands(o.Base, weight, grad)
	if !ok {
		return nil
	}
	var decay mat.Dense
	decay.Scale(wd, w)
	g.Add(g, &decay)

	// w += rho^2 * v - (1 + rho) * lr * g
	v := state.ToMat()
	var momentum, step mat.Dense
	momentum.Scale(o.rho*o.rho, v)
	step.Scale((1+o.rho)*lr, g)
	w.Add(w, &momentum)
	w.Sub(w, &step)

	// v = rho * v - lr * g
	step.Scale(lr, g)
	v.Scale(o.rho, v)
	v.Sub(v, &step)
	if err := state.SetFromMat(v); err != nil {
		return err
	}
	return writeBack(weight, w)
}
