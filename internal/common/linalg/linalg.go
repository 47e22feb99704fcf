package linalg

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// RowMeanSquares returns the mean of the squared elements of each row of m.
// If dst is nil, a new vector is allocated.
func RowMeanSquares(dst *mat.VecDense, m mat.Matrix) *mat.VecDense {
	r, c := m.Dims()
	dst = reuseVec(dst, r)
	for i := 0; i < r; i++ {
		sum := 0.0
		for j := 0; j < c; j++ {
			v := m.At(i, j)
			sum += v * v
		}
		dst.SetVec(i, sum/float64(c))
	}
	return dst
}

// RowNorms returns the L2 norm of each row of m.
// If dst is nil, a new vector is allocated.
func RowNorms(dst *mat.VecDense, m *mat.Dense) *mat.VecDense {
	r, _ := m.Dims()
	dst = reuseVec(dst, r)
	for i := 0; i < r; i++ {
		dst.SetVec(i, floats.Norm(m.RawRowView(i), 2))
	}
	return dst
}

// ScaleRows stores in dst the result of multiplying row i of m by factors[i].
// dst and m may be the same matrix.
func ScaleRows(dst *mat.Dense, factors mat.Vector, m mat.Matrix) {
	dst.Apply(func(i, _ int, v float64) float64 {
		return factors.AtVec(i) * v
	}, m)
}

// Clip stores in dst the elements of m clamped into [-c, c].
func Clip(dst *mat.Dense, m mat.Matrix, c float64) {
	dst.Apply(func(_, _ int, v float64) float64 {
		return math.Max(-c, math.Min(c, v))
	}, m)
}

// ApplyVec stores in dst the result of calling fn on each element of v.
func ApplyVec(dst *mat.VecDense, v mat.Vector, fn func(float64) float64) *mat.VecDense {
	dst = reuseVec(dst, v.Len())
	for i := 0; i < v.Len(); i++ {
		dst.SetVec(i, fn(v.AtVec(i)))
	}
	return dst
}

func reuseVec(vec *mat.VecDense, n int) *mat.VecDense {
	if vec == nil || vec.IsEmpty() {
		return mat.NewVecDense(n, nil)
	}
	if vec.Len() != n {
		panic(mat.ErrShape)
	}
	return vec
}
