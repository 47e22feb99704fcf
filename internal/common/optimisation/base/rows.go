package base

import (
	"fmt"

	"github.com/pkg/errors"
	"golang.org/x/exp/constraints"

	"github.com/armadaproject/proxgrad/internal/common/armadaerrors"
	"github.com/armadaproject/proxgrad/internal/common/tensor"
)

// CheckUpdateArgs validates the arguments of an update: weight must be 2-D and,
// if row-sparse, store every row; grad must have the shape of weight;
// and, unless stateCols is negative, state must have shape (rows, stateCols).
func CheckUpdateArgs[T constraints.Float](weight, grad tensor.Tensor[T], state *tensor.Dense[T], stateCols int) error {
	if err := tensor.Require2D("weight", weight); err != nil {
		return err
	}
	if rs, ok := weight.(*tensor.RowSparse[T]); ok {
		if err := rs.CheckAllRowsPresent(); err != nil {
			return err
		}
	}
	if err := tensor.RequireShape("grad", grad, weight.Shape()); err != nil {
		return err
	}
	if stateCols < 0 {
		return nil
	}
	if state == nil {
		return errors.WithStack(&armadaerrors.ErrInvalidArgument{
			Name:    "state",
			Value:   nil,
			Message: "state is required; create it with CreateState",
		})
	}
	return tensor.RequireShape[T]("state", state, []int{tensor.Rows(weight), stateCols})
}

// ZeroState returns a zero-initialised state of shape (rows, cols) for a 2-D weight.
func ZeroState[T constraints.Float](weight tensor.Tensor[T], cols int) (*tensor.Dense[T], error) {
	if err := tensor.Require2D("weight", weight); err != nil {
		return nil, err
	}
	return tensor.NewZeros[T](tensor.Rows(weight), cols), nil
}

// VisitRows calls fn for every row stored by grad, in increasing order,
// with the corresponding weight row. Both slices alias tensor storage.
// Weight rows must all be present; see CheckUpdateArgs.
func VisitRows[T constraints.Float](weight, grad tensor.Tensor[T], fn func(i int, w, g []T)) {
	switch g := grad.(type) {
	case *tensor.RowSparse[T]:
		for k, i := range g.Indices() {
			w, ok := weight.RowData(i)
			if !ok {
				panic(fmt.Sprintf("weight row %d is not stored", i))
			}
			fn(i, w, g.StoredRow(k))
		}
	default:
		for _, i := range grad.StoredRows() {
			w, ok := weight.RowData(i)
			if !ok {
				panic(fmt.Sprintf("weight row %d is not stored", i))
			}
			gi, _ := grad.RowData(i)
			fn(i, w, gi)
		}
	}
}
