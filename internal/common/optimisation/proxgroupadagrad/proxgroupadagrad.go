package proxgroupadagrad

import (
	"math"

	"github.com/pkg/errors"
	"golang.org/x/exp/constraints"

	"github.com/armadaproject/proxgrad/internal/common/armadaerrors"
	"github.com/armadaproject/proxgrad/internal/common/optimisation/base"
	"github.com/armadaproject/proxgrad/internal/common/tensor"
)

// DefaultEpsilon is used if no epsilon is configured.
const DefaultEpsilon = 1e-5

// ProxGroupAdaGrad is AdaGrad with one accumulator per row (group) of the weight,
// followed by the proximal operator of the group lasso penalty
// l2RegularizationStrength * sum_i ||w_i||_2, which drives whole rows to exactly zero.
//
// Per updated row i, with g the rescaled and clipped gradient row:
//
//	h_i += mean(g^2)
//	w_i -= lr * g / sqrt(h_i + eps)
//	w_i *= max(0, 1 - t_i/||w_i||),  t_i = lr * l2RegularizationStrength / sqrt(h_i + eps)
//
// The shrinkage factor is only computed when ||w_i|| > t_i; otherwise the row is set to zero.
// With a row-sparse gradient, rows the gradient doesn't store are left untouched.
// Weight decay is not supported.
type ProxGroupAdaGrad[T constraints.Float] struct {
	*base.Base
	eps    float64
	lambda float64
	// Scratch space for one row of prepared gradients.
	g []float64
}

func New[T constraints.Float](params base.Params) (*ProxGroupAdaGrad[T], error) {
	if params.WeightDecay != 0 {
		return nil, errors.WithStack(&armadaerrors.ErrUnsupported{
			Feature: "weightDecay",
			Value:   params.WeightDecay,
			Message: "proximal group adagrad does not implement weight decay",
		})
	}
	b, err := base.New(params)
	if err != nil {
		return nil, err
	}
	return &ProxGroupAdaGrad[T]{
		Base:   b,
		eps:    params.EpsilonOr(DefaultEpsilon),
		lambda: params.L2RegularizationStrength,
	}, nil
}

func MustNew[T constraints.Float](params base.Params) *ProxGroupAdaGrad[T] {
	opt, err := New[T](params)
	if err != nil {
		panic(err)
	}
	return opt
}

// CreateState returns a zeroed accumulator of shape (rows, 1).
func (o *ProxGroupAdaGrad[T]) CreateState(_ int, weight tensor.Tensor[T]) (*tensor.Dense[T], error) {
	return base.ZeroState(weight, 1)
}

func (o *ProxGroupAdaGrad[T]) Update(index int, weight, grad tensor.Tensor[T], state *tensor.Dense[T]) error {
	if err := base.CheckUpdateArgs(weight, grad, state, 1); err != nil {
		return err
	}
	if wd := o.WeightDecay(index); wd != 0 {
		return errors.WithStack(&armadaerrors.ErrUnsupported{
			Feature: "weightDecay",
			Value:   wd,
		})
	}
	o.UpdateCount(index)
	lr := o.LearningRate(index)
	cols := tensor.Cols(weight)
	if cap(o.g) < cols {
		o.g = make([]float64, cols)
	}
	g := o.g[:cols]
	h := state.Data()
	base.VisitRows(weight, grad, func(i int, wi, gi []T) {
		h[i] = T(float64(h[i]) + o.prepareRow(g, gi))
		o.updateRow(wi, g, lr, float64(h[i]))
	})
	return nil
}

// prepareRow writes the rescaled and clipped gradient into dst and returns the mean of its squares.
func (o *ProxGroupAdaGrad[T]) prepareRow(dst []float64, g []T) float64 {
	if len(g) == 0 {
		return 0
	}
	sumSq := 0.0
	for j, v := range g {
		x := o.PrepareGradient(float64(v))
		dst[j] = x
		sumSq += x * x
	}
	return sumSq / float64(len(g))
}

func (o *ProxGroupAdaGrad[T]) updateRow(w []T, g []float64, lr, h float64) {
	scale := lr / math.Sqrt(h+o.eps)
	if o.lambda == 0 {
		for j := range w {
			w[j] = T(float64(w[j]) - scale*g[j])
		}
		return
	}

	// Candidate row w - div, kept in the scratch slice.
	norm := 0.0
	for j := range w {
		g[j] = float64(w[j]) - scale*g[j]
		norm += g[j] * g[j]
	}
	norm = math.Sqrt(norm)
	threshold := scale * o.lambda
	if norm > threshold {
		f := 1 - threshold/norm
		for j := range w {
			w[j] = T(g[j] * f)
		}
	} else {
		for j := range w {
			w[j] = 0
		}
	}
}
