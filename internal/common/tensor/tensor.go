// Package tensor provides the minimal parameter containers optimisers operate on:
// row-major dense arrays of any rank and two-dimensional row-sparse arrays
// that store only a sorted subset of their rows.
package tensor

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/exp/constraints"

	"github.com/armadaproject/proxgrad/internal/common/armadaerrors"
)

// StorageType describes how a tensor stores its elements.
type StorageType int

const (
	StorageDefault StorageType = iota
	StorageRowSparse
)

func (s StorageType) String() string {
	switch s {
	case StorageDefault:
		return "default"
	case StorageRowSparse:
		return "row_sparse"
	default:
		return fmt.Sprintf("StorageType(%d)", int(s))
	}
}

// ParseStorageType converts the textual representation used in configuration to a StorageType.
func ParseStorageType(s string) (StorageType, error) {
	switch strings.ToLower(s) {
	case "default", "dense":
		return StorageDefault, nil
	case "row_sparse", "rowsparse":
		return StorageRowSparse, nil
	default:
		return StorageDefault, errors.WithStack(&armadaerrors.ErrInvalidArgument{
			Name:    "storageType",
			Value:   s,
			Message: "must be one of default, row_sparse",
		})
	}
}

// DType identifies the element type of tensors, for use where it is chosen at runtime.
type DType int

const (
	Float32 DType = iota
	Float64
)

func (d DType) String() string {
	switch d {
	case Float32:
		return "float32"
	case Float64:
		return "float64"
	default:
		return fmt.Sprintf("DType(%d)", int(d))
	}
}

func (d DType) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func ParseDType(s string) (DType, error) {
	switch strings.ToLower(s) {
	case "float32":
		return Float32, nil
	case "float64":
		return Float64, nil
	default:
		return Float32, errors.WithStack(&armadaerrors.ErrInvalidArgument{
			Name:    "dtype",
			Value:   s,
			Message: "must be one of float32, float64",
		})
	}
}

// Tensor is implemented by Dense and RowSparse.
type Tensor[T constraints.Float] interface {
	// Shape returns the logical shape of the tensor. Callers must not modify it.
	Shape() []int
	StorageType() StorageType
	// RowData returns the elements of row i of a 2-D tensor and true,
	// or nil and false if the row is not stored.
	// The returned slice aliases the tensor's storage.
	RowData(i int) ([]T, bool)
	// StoredRows returns the indices of the rows held by the tensor in increasing order.
	StoredRows() []int
}

// Rows returns the number of rows of a 2-D tensor.
func Rows[T constraints.Float](t Tensor[T]) int {
	return t.Shape()[0]
}

// Cols returns the number of columns of a 2-D tensor.
func Cols[T constraints.Float](t Tensor[T]) int {
	return t.Shape()[1]
}

// Require2D returns an ErrShape if t is not two-dimensional.
func Require2D[T constraints.Float](name string, t Tensor[T]) error {
	if t == nil {
		return errors.WithStack(&armadaerrors.ErrInvalidArgument{Name: name, Value: nil, Message: "tensor is nil"})
	}
	if len(t.Shape()) != 2 {
		return errors.WithStack(&armadaerrors.ErrShape{
			Name:    name,
			Actual:  copyShape(t.Shape()),
			Message: "must be 2-D",
		})
	}
	return nil
}

// RequireShape returns an ErrShape if the shape of t differs from expected.
func RequireShape[T constraints.Float](name string, t Tensor[T], expected []int) error {
	if t == nil {
		return errors.WithStack(&armadaerrors.ErrInvalidArgument{Name: name, Value: nil, Message: "tensor is nil"})
	}
	if !shapeEqual(t.Shape(), expected) {
		return errors.WithStack(&armadaerrors.ErrShape{
			Name:     name,
			Expected: copyShape(expected),
			Actual:   copyShape(t.Shape()),
		})
	}
	return nil
}

// ToDense returns t as a dense tensor, copying only if t is row-sparse.
func ToDense[T constraints.Float](t Tensor[T]) *Dense[T] {
	switch v := t.(type) {
	case *Dense[T]:
		return v
	case *RowSparse[T]:
		return v.ToDense()
	default:
		rv := NewZeros[T](t.Shape()...)
		for _, i := range t.StoredRows() {
			row, _ := t.RowData(i)
			copy(rv.Row(i), row)
		}
		return rv
	}
}

func shapeEqual(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func copyShape(shape []int) []int {
	return append([]int(nil), shape...)
}

func numElements(shape []int) int {
	n := 1
	for _, d := range shape {
		n *= d
	}
	return n
}
