// Package reference contains straightforward implementations of the optimisers built from whole-matrix
// gonum operations. They always perform a dense update: row-sparse gradients are densified,
// so rows the gradient doesn't store are updated with a zero gradient.
// These implementations are used as the ground truth the fused kernels are compared against.
package reference

import (
	"golang.org/x/exp/constraints"
	"gonum.org/v1/gonum/mat"

	"github.com/armadaproject/proxgrad/internal/common/linalg"
	"github.com/armadaproject/proxgrad/internal/common/optimisation/base"
	"github.com/armadaproject/proxgrad/internal/common/tensor"
)

// operands returns float64 copies of weight and grad, with the gradient rescaled and clipped.
// ok is false if the tensors have no elements, in which case there is nothing to update.
func operands[T constraints.Float](b *base.Base, weight, grad tensor.Tensor[T]) (w, g *mat.Dense, ok bool) {
	if tensor.Rows(weight) == 0 || tensor.Cols(weight) == 0 {
		return nil, nil, false
	}
	w = tensor.ToDense(weight).ToMat()
	g = tensor.ToDense(grad).ToMat()
	params := b.Params()
	g.Scale(params.RescaleGrad, g)
	if params.ClipGradient != nil {
		linalg.Clip(g, g, *params.ClipGradient)
	}
	return w, g, true
}

// storeRounded writes m into dst and returns m as stored, i.e., rounded to T.
// Reading state back after storing it keeps the reference in step with kernels that accumulate in T.
func storeRounded[T constraints.Float](dst *tensor.Dense[T], m *mat.Dense) (*mat.Dense, error) {
	if err := dst.SetFromMat(m); err != nil {
		return nil, err
	}
	return dst.ToMat(), nil
}

// writeBack stores m into weight, which is either dense or row-sparse with every row present.
func writeBack[T constraints.Float](weight tensor.Tensor[T], m *mat.Dense) error {
	if d, ok := weight.(*tensor.Dense[T]); ok {
		return d.SetFromMat(m)
	}
	for _, i := range weight.StoredRows() {
		row, _ := weight.RowData(i)
		for j := range row {
			row[j] = T(m.At(i, j))
		}
	}
	return nil
}
