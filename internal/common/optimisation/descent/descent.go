package descent

import (
	"golang.org/x/exp/constraints"

	"github.com/armadaproject/proxgrad/internal/common/optimisation/base"
	"github.com/armadaproject/proxgrad/internal/common/tensor"
)

// Gradient descent optimiser; see the following link for details:
// https://fluxml.ai/Flux.jl/stable/training/optimisers/
//
// Each updated row is moved by -lr * (g + wd * w). Descent keeps no state.
// With a row-sparse gradient only the stored rows are updated, including their weight decay.
type Descent[T constraints.Float] struct {
	*base.Base
}

func New[T constraints.Float](params base.Params) (*Descent[T], error) {
	b, err := base.New(params)
	if err != nil {
		return nil, err
	}
	return &Descent[T]{Base: b}, nil
}

func MustNew[T constraints.Float](params base.Params) *Descent[T] {
	opt, err := New[T](params)
	if err != nil {
		panic(err)
	}
	return opt
}

// CreateState validates weight and returns a nil state.
func (o *Descent[T]) CreateState(_ int, weight tensor.Tensor[T]) (*tensor.Dense[T], error) {
	return nil, tensor.Require2D("weight", weight)
}

func (o *Descent[T]) Update(index int, weight, grad tensor.Tensor[T], _ *tensor.Dense[T]) error {
	if err := base.CheckUpdateArgs(weight, grad, nil, -1); err != nil {
		return err
	}
	o.UpdateCount(index)
	lr := o.LearningRate(index)
	wd := o.WeightDecay(index)
	base.VisitRows(weight, grad, func(_ int, w, g []T) {
		for j := range w {
			x := float64(w[j])
			w[j] = T(x - lr*(o.PrepareGradient(float64(g[j]))+wd*x))
		}
	})
	return nil
}
