package optimisation

import (
	"math/rand"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/armadaproject/proxgrad/internal/common/armadaerrors"
	"github.com/armadaproject/proxgrad/internal/common/optimisation/adagrad"
	"github.com/armadaproject/proxgrad/internal/common/optimisation/descent"
	"github.com/armadaproject/proxgrad/internal/common/optimisation/nesterov"
	"github.com/armadaproject/proxgrad/internal/common/optimisation/proxgroupadagrad"
	"github.com/armadaproject/proxgrad/internal/common/optimisation/reference"
	"github.com/armadaproject/proxgrad/internal/common/optimisation/schedule"
	"github.com/armadaproject/proxgrad/internal/common/tensor"
)

var (
	_ Optimiser[float32] = &proxgroupadagrad.ProxGroupAdaGrad[float32]{}
	_ Optimiser[float32] = &adagrad.AdaGrad[float32]{}
	_ Optimiser[float32] = &descent.Descent[float32]{}
	_ Optimiser[float32] = &nesterov.Nesterov[float32]{}
	_ Optimiser[float64] = &reference.ProxGroupAdaGrad[float64]{}
	_ Optimiser[float64] = &reference.AdaGrad[float64]{}
	_ Optimiser[float64] = &reference.Descent[float64]{}
	_ Optimiser[float64] = &reference.Nesterov[float64]{}
)

func TestParseKind(t *testing.T) {
	tests := map[string]struct {
		input    string
		expected Kind
		valid    bool
	}{
		"proxgroupadagrad":   {input: "proxgroupadagrad", expected: ProxGroupAdaGrad, valid: true},
		"prox_group_adagrad": {input: "Prox_Group_AdaGrad", expected: ProxGroupAdaGrad, valid: true},
		"adagrad":            {input: "adagrad", expected: AdaGrad, valid: true},
		"descent":            {input: "DESCENT", expected: Descent, valid: true},
		"nesterov":           {input: "nesterov", expected: Nesterov, valid: true},
		"unknown":            {input: "adam", valid: false},
		"empty":              {input: "", valid: false},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			actual, err := ParseKind(tc.input)
			if !tc.valid {
				var e *armadaerrors.ErrInvalidArgument
				assert.True(t, errors.As(err, &e))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, actual)
			roundTrip, err := ParseKind(actual.String())
			require.NoError(t, err)
			assert.Equal(t, actual, roundTrip)
		})
	}
}

func TestNewUnknownKind(t *testing.T) {
	_, err := New[float32](Kind(99), testParams())
	var e *armadaerrors.ErrInvalidArgument
	assert.True(t, errors.As(err, &e))
	_, err = NewReference[float32](Kind(99), testParams())
	assert.True(t, errors.As(err, &e))
	assert.Equal(t, "Kind(99)", Kind(99).String())
}

func TestNewReturnsNilOnError(t *testing.T) {
	params := testParams()
	params.WeightDecay = 0.1
	opt, err := New[float32](ProxGroupAdaGrad, params)
	var e *armadaerrors.ErrUnsupported
	assert.True(t, errors.As(err, &e))
	assert.Nil(t, opt)

	opt, err = NewReference[float32](ProxGroupAdaGrad, params)
	assert.True(t, errors.As(err, &e))
	assert.Nil(t, opt)
}

func testParams() Params {
	return Params{LearningRate: 0.1, RescaleGrad: 1}
}

func randomDense(r *rand.Rand, rows, cols int) *tensor.Dense[float64] {
	data := make([]float64, rows*cols)
	for i := range data {
		data[i] = r.NormFloat64()
	}
	return tensor.MustNewDense([]int{rows, cols}, data)
}

// The fused kernels and the gonum implementations agree on dense inputs.
func TestFusedMatchesReference(t *testing.T) {
	clip := 0.5
	tests := map[Kind]Params{
		ProxGroupAdaGrad: {LearningRate: 0.1, RescaleGrad: 0.8, ClipGradient: &clip, L2RegularizationStrength: 0.05},
		AdaGrad:          {LearningRate: 0.1, RescaleGrad: 0.8, ClipGradient: &clip, WeightDecay: 0.01},
		Descent:          {LearningRate: 0.1, RescaleGrad: 1, WeightDecay: 0.01},
		Nesterov:         {LearningRate: 0.1, RescaleGrad: 1, Momentum: 0.9, WeightDecay: 0.01},
	}
	for kind, params := range tests {
		t.Run(kind.String(), func(t *testing.T) {
			params.Scheduler = schedule.MustNewFactor(params.LearningRate, 2, 0.5, 0)
			r := rand.New(rand.NewSource(0))
			fused, err := New[float64](kind, params)
			require.NoError(t, err)
			ref, err := NewReference[float64](kind, params)
			require.NoError(t, err)

			w0 := randomDense(r, 4, 3)
			w1, w2 := w0.Clone(), w0.Clone()
			s1, err := fused.CreateState(0, w1)
			require.NoError(t, err)
			s2, err := ref.CreateState(0, w2)
			require.NoError(t, err)
			for step := 0; step < 5; step++ {
				g := randomDense(r, 4, 3)
				require.NoError(t, fused.Update(0, w1, g, s1))
				require.NoError(t, ref.Update(0, w2, g, s2))
				assert.InDeltaSlice(t, w2.Data(), w1.Data(), 1e-9)
				if s2 != nil {
					assert.InDeltaSlice(t, s2.Data(), s1.Data(), 1e-9)
				}
			}
		})
	}
}

func TestDenseUpdateMovesUntouchedRows(t *testing.T) {
	tests := map[string]struct {
		kind     Kind
		params   Params
		expected bool
	}{
		"prox group adagrad without l2": {kind: ProxGroupAdaGrad, params: Params{}, expected: false},
		"prox group adagrad with l2":    {kind: ProxGroupAdaGrad, params: Params{L2RegularizationStrength: 0.05}, expected: true},
		"adagrad":                       {kind: AdaGrad, params: Params{}, expected: false},
		"descent with weight decay":     {kind: Descent, params: Params{WeightDecay: 0.1}, expected: true},
		"nesterov without momentum":     {kind: Nesterov, params: Params{}, expected: true},
		"nesterov with momentum":        {kind: Nesterov, params: Params{Momentum: 0.9}, expected: true},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.expected, DenseUpdateMovesUntouchedRows(tc.kind, tc.params))
		})
	}
}
