package reference

import (
	"golang.org/x/exp/constraints"
	"gonum.org/v1/gonum/mat"

	"github.com/armadaproject/proxgrad/internal/common/optimisation/base"
	"github.com/armadaproject/proxgrad/internal/common/tensor"
)

type Descent[T constraints.Float] struct {
	*base.Base
}

func NewDescent[T constraints.Float](params base.Params) (*Descent[T], error) {
	b, err := base.New(params)
	if err != nil {
		return nil, err
	}
	return &Descent[T]{Base: b}, nil
}

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
	w, g, ok := operands(o.Base, weight, grad)
	if !ok {
		return nil
	}
	var decay mat.Dense
	decay.Scale(wd, w)
	g.Add(g, &decay)
	g.Scale(lr, g)
	w.Sub(w, g)
	return writeBack(weight, w)
}
