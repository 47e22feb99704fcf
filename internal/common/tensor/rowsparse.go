package tensor

import (
	"fmt"
	"sort"

	"github.com/pkg/errors"
	"golang.org/x/exp/constraints"

	"github.com/armadaproject/proxgrad/internal/common/armadaerrors"
)

// RowSparse is a 2-D tensor of which only the rows listed in indices are stored.
// Rows not stored are logically zero.
// indices is sorted in strictly increasing order and values holds len(indices) rows of cols elements.
type RowSparse[T constraints.Float] struct {
	rows    int
	cols    int
	indices []int
	values  []T
}

// NewRowSparse returns a row-sparse tensor of shape (rows, cols).
// indices and values are not copied.
func NewRowSparse[T constraints.Float](rows, cols int, indices []int, values []T) (*RowSparse[T], error) {
	if rows < 0 {
		return nil, errors.WithStack(&armadaerrors.ErrInvalidArgument{
			Name:    "rows",
			Value:   rows,
			Message: "outside allowed range [0, Inf)",
		})
	}
	if cols < 0 {
		return nil, errors.WithStack(&armadaerrors.ErrInvalidArgument{
			Name:    "cols",
			Value:   cols,
			Message: "outside allowed range [0, Inf)",
		})
	}
	for k, i := range indices {
		if i < 0 || i >= rows {
			return nil, errors.WithStack(&armadaerrors.ErrInvalidArgument{
				Name:    fmt.Sprintf("indices[%d]", k),
				Value:   i,
				Message: fmt.Sprintf("outside allowed range [0, %d)", rows),
			})
		}
		if k > 0 && i <= indices[k-1] {
			return nil, errors.WithStack(&armadaerrors.ErrInvalidArgument{
				Name:    fmt.Sprintf("indices[%d]", k),
				Value:   i,
				Message: "indices must be sorted and unique",
			})
		}
	}
	if len(values) != len(indices)*cols {
		return nil, errors.WithStack(&armadaerrors.ErrShape{
			Name:     "values",
			Expected: []int{len(indices), cols},
			Actual:   []int{len(values)},
		})
	}
	return &RowSparse[T]{rows: rows, cols: cols, indices: indices, values: values}, nil
}

func MustNewRowSparse[T constraints.Float](rows, cols int, indices []int, values []T) *RowSparse[T] {
	t, err := NewRowSparse(rows, cols, indices, values)
	if err != nil {
		panic(err)
	}
	return t
}

func (t *RowSparse[T]) Shape() []int {
	return []int{t.rows, t.cols}
}

func (t *RowSparse[T]) StorageType() StorageType {
	return StorageRowSparse
}

// Indices returns the stored row indices. Callers must not modify them.
func (t *RowSparse[T]) Indices() []int {
	return t.indices
}

// Values returns the stored rows, concatenated in the order of Indices.
func (t *RowSparse[T]) Values() []T {
	return t.values
}

// NumStored returns the number of stored rows.
func (t *RowSparse[T]) NumStored() int {
	return len(t.indices)
}

// StoredRow returns the k-th stored row, i.e., the row with index Indices()[k].
func (t *RowSparse[T]) StoredRow(k int) []T {
	return t.values[k*t.cols : (k+1)*t.cols : (k+1)*t.cols]
}

func (t *RowSparse[T]) RowData(i int) ([]T, bool) {
	k := sort.SearchInts(t.indices, i)
	if k == len(t.indices) || t.indices[k] != i {
		return nil, false
	}
	return t.StoredRow(k), true
}

func (t *RowSparse[T]) StoredRows() []int {
	return t.indices
}

// CheckAllRowsPresent returns an error unless every row of t is stored.
// Optimisers require this of row-sparse weights, since a missing weight row has nowhere to be written.
func (t *RowSparse[T]) CheckAllRowsPresent() error {
	if len(t.indices) != t.rows {
		return errors.WithStack(&armadaerrors.ErrInvalidArgument{
			Name:    "weight",
			Value:   fmt.Sprintf("%d of %d rows", len(t.indices), t.rows),
			Message: "row-sparse weights must store every row",
		})
	}
	// Sorted, unique and in range, so storing rows elements means storing 0, ..., rows-1.
	return nil
}

// ToDense returns a dense copy of t with rows not stored set to zero.
func (t *RowSparse[T]) ToDense() *Dense[T] {
	rv := NewZeros[T](t.rows, t.cols)
	for k, i := range t.indices {
		copy(rv.Row(i), t.StoredRow(k))
	}
	return rv
}

// Clone returns a deep copy of t.
func (t *RowSparse[T]) Clone() *RowSparse[T] {
	return &RowSparse[T]{
		rows:    t.rows,
		cols:    t.cols,
		indices: append([]int(nil), t.indices...),
		values:  append([]T(nil), t.values...),
	}
}
