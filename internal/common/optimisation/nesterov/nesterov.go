package nesterov

import (
	"golang.org/x/exp/constraints"

	"github.com/armadaproject/proxgrad/internal/common/optimisation/base"
	"github.com/armadaproject/proxgrad/internal/common/tensor"
)

// Nesterov accelerated gradient descent optimiser; see the following link for details:
// https://fluxml.ai/Flux.jl/stable/training/optimisers/
//
// The state holds one velocity per weight element. With momentum rho and g = grad + wd * w:
//
//	w <- w + rho^2 * v - (1 + rho) * lr * g
//	v <- rho * v - lr * g
//
// With a row-sparse gradient only the stored rows, and their velocities, are updated.
type Nesterov[T constraints.Float] struct {
	*base.Base
	rho float64
}

func New[T constraints.Float](params base.Params) (*Nesterov[T], error) {
	b, err := base.New(params)
	if err != nil {
		return nil, err
	}
	return &Nesterov[T]{Base: b, rho: params.Momentum}, nil
}

func MustNew[T constraints.Float](params base.Params) *Nesterov[T] {
	opt, err := New[T](params)
	if err != nil {
		panic(err)
	}
	return opt
}

// CreateState returns a zeroed velocity with the shape of weight.
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
	rho := o.rho
	base.VisitRows(weight, grad, func(i int, w, g []T) {
		v := state.Row(i)
		for j := range w {
			x := float64(w[j])
			gj := o.PrepareGradient(float64(g[j])) + wd*x
			vj := float64(v[j])
			w[j] = T(x + rho*rho*vj - (1+rho)*lr*gj)
			v[j] = T(rho*vj - lr*gj)
		}
	})
	return nil
}
