package linalg

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/mat"

	armadaslices "github.com/armadaproject/proxgrad/internal/common/slices"
)

func TestRowMeanSquares(t *testing.T) {
	tests := map[string]struct {
		m        *mat.Dense
		expected *mat.VecDense
	}{
		"ones": {
			m:        mat.NewDense(2, 3, armadaslices.Ones[float64](6)),
			expected: mat.NewVecDense(2, armadaslices.Ones[float64](2)),
		},
		"mixed": {
			m:        mat.NewDense(2, 2, []float64{1, -3, 0, 2}),
			expected: mat.NewVecDense(2, []float64{5, 2}),
		},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			actual := RowMeanSquares(nil, tc.m)
			assert.Equal(t, tc.expected, actual)
		})
	}
}

func TestRowNorms(t *testing.T) {
	m := mat.NewDense(3, 2, []float64{3, 4, 0, 0, -1, 0})
	actual := RowNorms(nil, m)
	assert.Equal(t, mat.NewVecDense(3, []float64{5, 0, 1}), actual)
}

func TestRowNormsReusesDst(t *testing.T) {
	dst := mat.NewVecDense(1, nil)
	rv := RowNorms(dst, mat.NewDense(1, 2, []float64{3, 4}))
	assert.Same(t, dst, rv)
	assert.Equal(t, 5.0, dst.AtVec(0))
	assert.Panics(t, func() { RowNorms(dst, mat.NewDense(2, 2, nil)) })
}

func TestScaleRows(t *testing.T) {
	m := mat.NewDense(2, 2, []float64{1, 2, 3, 4})
	ScaleRows(m, mat.NewVecDense(2, []float64{2, 0}), m)
	assert.Equal(t, mat.NewDense(2, 2, []float64{2, 4, 0, 0}), m)
}

func TestClip(t *testing.T) {
	var dst mat.Dense
	Clip(&dst, mat.NewDense(1, 4, []float64{-2, -0.1, 0.3, 7}), 0.5)
	assert.Equal(t, []float64{-0.5, -0.1, 0.3, 0.5}, dst.RawRowView(0))
}

func TestApplyVec(t *testing.T) {
	actual := ApplyVec(nil, mat.NewVecDense(2, []float64{4, 9}), math.Sqrt)
	assert.Equal(t, mat.NewVecDense(2, []float64{2, 3}), actual)
}
