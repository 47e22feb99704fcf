package tensor

import (
	"fmt"

	"github.com/pkg/errors"
	"golang.org/x/exp/constraints"
	"gonum.org/v1/gonum/mat"

	"github.com/armadaproject/proxgrad/internal/common/armadaerrors"
)

// Dense is a row-major array of arbitrary rank.
type Dense[T constraints.Float] struct {
	shape []int
	data  []T
}

// NewDense returns a dense tensor of the given shape backed by data, which is not copied.
// If data is nil, a zero-filled backing slice is allocated.
func NewDense[T constraints.Float](shape []int, data []T) (*Dense[T], error) {
	for i, d := range shape {
		if d < 0 {
			return nil, errors.WithStack(&armadaerrors.ErrInvalidArgument{
				Name:    fmt.Sprintf("shape[%d]", i),
				Value:   d,
				Message: "outside allowed range [0, Inf)",
			})
		}
	}
	n := numElements(shape)
	if data == nil {
		data = make([]T, n)
	}
	if len(data) != n {
		return nil, errors.WithStack(&armadaerrors.ErrShape{
			Name:    "data",
			Actual:  []int{len(data)},
			Message: fmt.Sprintf("shape %v requires %d elements", shape, n),
		})
	}
	return &Dense[T]{shape: copyShape(shape), data: data}, nil
}

func MustNewDense[T constraints.Float](shape []int, data []T) *Dense[T] {
	t, err := NewDense(shape, data)
	if err != nil {
		panic(err)
	}
	return t
}

// NewZeros returns a zero-filled dense tensor of the given shape.
func NewZeros[T constraints.Float](shape ...int) *Dense[T] {
	return MustNewDense[T](shape, nil)
}

// FromMat copies a gonum matrix into a new 2-D dense tensor, converting elements to T.
func FromMat[T constraints.Float](m mat.Matrix) *Dense[T] {
	r, c := m.Dims()
	rv := NewZeros[T](r, c)
	for i := 0; i < r; i++ {
		row := rv.Row(i)
		for j := 0; j < c; j++ {
			row[j] = T(m.At(i, j))
		}
	}
	return rv
}

func (t *Dense[T]) Shape() []int {
	return t.shape
}

func (t *Dense[T]) StorageType() StorageType {
	return StorageDefault
}

// Data returns the backing slice in row-major order.
func (t *Dense[T]) Data() []T {
	return t.data
}

// Row returns row i of a 2-D tensor. The slice aliases the tensor's storage.
func (t *Dense[T]) Row(i int) []T {
	c := t.shape[1]
	return t.data[i*c : (i+1)*c : (i+1)*c]
}

func (t *Dense[T]) RowData(i int) ([]T, bool) {
	if len(t.shape) != 2 || i < 0 || i >= t.shape[0] {
		return nil, false
	}
	return t.Row(i), true
}

func (t *Dense[T]) StoredRows() []int {
	if len(t.shape) == 0 {
		return nil
	}
	rv := make([]int, t.shape[0])
	for i := range rv {
		rv[i] = i
	}
	return rv
}

func (t *Dense[T]) At(i, j int) T {
	return t.data[i*t.shape[1]+j]
}

func (t *Dense[T]) Set(i, j int, v T) {
	t.data[i*t.shape[1]+j] = v
}

// Clone returns a deep copy of t.
func (t *Dense[T]) Clone() *Dense[T] {
	return &Dense[T]{
		shape: copyShape(t.shape),
		data:  append([]T(nil), t.data...),
	}
}

// CopyFrom overwrites the elements of t with those of src, which must have the same shape.
func (t *Dense[T]) CopyFrom(src *Dense[T]) error {
	if err := RequireShape[T]("src", src, t.shape); err != nil {
		return err
	}
	copy(t.data, src.data)
	return nil
}

// ToMat returns a float64 copy of a 2-D tensor as a gonum matrix.
func (t *Dense[T]) ToMat() *mat.Dense {
	r, c := t.shape[0], t.shape[1]
	data := make([]float64, len(t.data))
	for i, v := range t.data {
		data[i] = float64(v)
	}
	if r == 0 || c == 0 {
		return &mat.Dense{}
	}
	return mat.NewDense(r, c, data)
}

// SetFromMat overwrites a 2-D tensor with the elements of m, rounding to T.
func (t *Dense[T]) SetFromMat(m mat.Matrix) error {
	r, c := m.Dims()
	if len(t.shape) != 2 || t.shape[0] != r || t.shape[1] != c {
		return errors.WithStack(&armadaerrors.ErrShape{
			Name:     "matrix",
			Expected: copyShape(t.shape),
			Actual:   []int{r, c},
		})
	}
	for i := 0; i < r; i++ {
		row := t.Row(i)
		for j := 0; j < c; j++ {
			row[j] = T(m.At(i, j))
		}
	}
	return nil
}

// ToRowSparse returns a row-sparse copy of a 2-D tensor holding the given rows.
func (t *Dense[T]) ToRowSparse(indices []int) (*RowSparse[T], error) {
	if err := Require2D[T]("dense", t); err != nil {
		return nil, err
	}
	values := make([]T, 0, len(indices)*t.shape[1])
	for _, i := range indices {
		if i < 0 || i >= t.shape[0] {
			return nil, errors.WithStack(&armadaerrors.ErrInvalidArgument{
				Name:    "indices",
				Value:   i,
				Message: fmt.Sprintf("outside allowed range [0, %d)", t.shape[0]),
			})
		}
		values = append(values, t.Row(i)...)
	}
	return NewRowSparse(t.shape[0], t.shape[1], append([]int(nil), indices...), values)
}
