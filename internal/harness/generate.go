package harness

import (
	"math/rand"

	"golang.org/x/exp/constraints"

	"github.com/armadaproject/proxgrad/internal/common/tensor"
)

// randomDense returns a (rows, cols) tensor of standard normal samples.
func randomDense[T constraints.Float](r *rand.Rand, rows, cols int) *tensor.Dense[T] {
	rv := tensor.NewZeros[T](rows, cols)
	data := rv.Data()
	for i := range data {
		data[i] = T(r.NormFloat64())
	}
	return rv
}

// randomRows returns, in increasing order, the rows of [0, rows) each selected with probability density.
func randomRows(r *rand.Rand, rows int, density float64) []int {
	rv := make([]int, 0, rows)
	for i := 0; i < rows; i++ {
		if r.Float64() < density {
			rv = append(rv, i)
		}
	}
	return rv
}

// weightFor returns a copy of w stored as mode requires.
// Row-sparse weights store every row.
func weightFor[T constraints.Float](w *tensor.Dense[T], mode Mode) (tensor.Tensor[T], error) {
	if mode.WeightStorage() == tensor.StorageRowSparse {
		return w.ToRowSparse(w.StoredRows())
	}
	return w.Clone(), nil
}

// randomGrad returns a gradient for c stored as its mode requires, and the rows it stores.
func randomGrad[T constraints.Float](r *rand.Rand, c Case) (tensor.Tensor[T], []int, error) {
	if c.Mode.GradStorage() == tensor.StorageDefault {
		g := randomDense[T](r, c.Rows, c.Cols)
		return g, g.StoredRows(), nil
	}
	rows := randomRows(r, c.Rows, c.RowDensity)
	values := make([]T, 0, len(rows)*c.Cols)
	for range rows {
		for j := 0; j < c.Cols; j++ {
			values = append(values, T(r.NormFloat64()))
		}
	}
	g, err := tensor.NewRowSparse(c.Rows, c.Cols, rows, values)
	if err != nil {
		return nil, nil, err
	}
	return g, rows, nil
}

// copyInto overwrites the stored rows of dst with those of src. Both must store the same rows.
func copyInto[T constraints.Float](dst, src tensor.Tensor[T]) {
	for _, i := range src.StoredRows() {
		s, _ := src.RowData(i)
		if d, ok := dst.RowData(i); ok {
			copy(d, s)
		}
	}
}
