package trainer

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slices"
	"gonum.org/v1/gonum/mat"
	clocktesting "k8s.io/utils/clock/testing"

	"github.com/armadaproject/proxgrad/internal/common/armadacontext"
	"github.com/armadaproject/proxgrad/internal/common/optimisation"
	"github.com/armadaproject/proxgrad/internal/common/tensor"
	"github.com/armadaproject/proxgrad/internal/common/util"
)

func testConfig() Config {
	c := DefaultConfig()
	c.DType = tensor.Float64
	c.Features = 16
	c.Outputs = 2
	c.ActiveFeatures = 4
	c.FeaturesPerSample = 4
	c.Samples = 256
	c.BatchSize = 16
	c.Steps = 300
	c.LogEvery = 100
	c.Seed = 1
	return c
}

func TestNewDataset(t *testing.T) {
	c := testConfig()
	c.Noise = 0
	ds := NewDataset(util.NewRand(0), c)

	assert.Len(t, ds.Support, c.ActiveFeatures)
	assert.IsIncreasing(t, ds.Support)
	for i := 0; i < c.Features; i++ {
		rowIsZero := mat.Norm(ds.Weight.RowView(i), 2) == 0
		assert.Equal(t, !slices.Contains(ds.Support, i), rowIsZero)
	}
	for s, features := range ds.Active {
		assert.Len(t, features, c.FeaturesPerSample)
		for f := 0; f < c.Features; f++ {
			if !slices.Contains(features, f) {
				assert.Equal(t, 0.0, ds.X.At(s, f))
			}
		}
	}
	var expected mat.Dense
	expected.Mul(ds.X, ds.Weight)
	assert.True(t, mat.EqualApprox(&expected, ds.Y, 1e-12))
}

func TestDataset_Batch(t *testing.T) {
	ds := &Dataset{
		X:      mat.NewDense(3, 2, []float64{1, 2, 3, 4, 5, 6}),
		Y:      mat.NewDense(3, 1, []float64{7, 8, 9}),
		Active: [][]int{{0}, {1, 3}, {3, 2}},
	}
	x, y := ds.Batch([]int{2, 0, 2})
	assert.Equal(t, []float64{5, 6, 1, 2, 5, 6}, x.RawMatrix().Data)
	assert.Equal(t, []float64{9, 7, 9}, y.RawMatrix().Data)
	assert.Equal(t, []int{1, 2, 3}, ds.TouchedFeatures([]int{1, 2, 1}))
	assert.Equal(t, []int{0}, ds.TouchedFeatures([]int{0}))
}

func TestWindow(t *testing.T) {
	var w Window
	w.Record(10, 100*time.Millisecond, 4)
	w.Record(10, 300*time.Millisecond, 2)
	snap := w.Snapshot()
	assert.Equal(t, 2, snap.Steps)
	assert.InDelta(t, 50, snap.SamplesPerSec, 1e-9)
	assert.InDelta(t, 200, snap.AvgStepMS, 1e-9)
	assert.Equal(t, 3.0, snap.MeanLoss)
	assert.Equal(t, 2.0, snap.LastLoss)
	assert.Equal(t, Snapshot{}, w.Snapshot())
}

func TestTrainer_LossDecreases(t *testing.T) {
	tests := map[string]struct {
		kind   optimisation.Kind
		params optimisation.Params
	}{
		"prox group adagrad": {
			kind:   optimisation.ProxGroupAdaGrad,
			params: optimisation.Params{LearningRate: 0.1, RescaleGrad: 1, L2RegularizationStrength: 0.001},
		},
		"adagrad": {
			kind:   optimisation.AdaGrad,
			params: optimisation.Params{LearningRate: 0.1, RescaleGrad: 1},
		},
		"descent": {
			kind:   optimisation.Descent,
			params: optimisation.Params{LearningRate: 0.1, RescaleGrad: 1},
		},
		"nesterov": {
			kind:   optimisation.Nesterov,
			params: optimisation.Params{LearningRate: 0.05, RescaleGrad: 1, Momentum: 0.9},
		},
	}
	for name, tc := range tests {
		for _, sparse := range []bool{false, true} {
			t.Run(fmt.Sprintf("%s/sparse=%t", name, sparse), func(t *testing.T) {
				c := testConfig()
				c.Optimiser = tc.kind
				c.Params = tc.params
				c.Sparse = sparse
				tr, err := New[float64](c, nil, nil)
				require.NoError(t, err)
				initial := tr.Loss()

				summary, err := tr.Run(armadacontext.Background())
				require.NoError(t, err)
				assert.Equal(t, c.Steps, summary.Steps)
				assert.Less(t, summary.FinalLoss, initial/2)
				assert.NoError(t, tr.Check())
			})
		}
	}
}

func TestTrainer_GroupSparsity(t *testing.T) {
	tests := map[string]struct {
		l2                 float64
		expectedZeroGroups int
	}{
		"no regularisation":     {l2: 0, expectedZeroGroups: 0},
		"strong regularisation": {l2: 100, expectedZeroGroups: 16},
	}
	for name, tc := range tests {
		for _, sparse := range []bool{false, true} {
			t.Run(fmt.Sprintf("%s/sparse=%t", name, sparse), func(t *testing.T) {
				c := testConfig()
				c.Params = optimisation.Params{LearningRate: 0.1, RescaleGrad: 1, L2RegularizationStrength: tc.l2}
				c.Sparse = sparse
				tr, err := New[float64](c, nil, nil)
				require.NoError(t, err)
				summary, err := tr.Run(armadacontext.Background())
				require.NoError(t, err)
				assert.Equal(t, tc.expectedZeroGroups, summary.ZeroGroups)
				assert.Equal(t, tc.expectedZeroGroups, tr.ZeroGroups())
				assert.Equal(t, c.Features, summary.ZeroGroups+summary.SupportRecovered+summary.FalsePositives)
			})
		}
	}
}

func TestTrainer_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	clock := clocktesting.NewFakePassiveClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	c := testConfig()
	c.Steps = 10
	c.LogEvery = 4
	tr, err := New[float32](c, m, clock)
	require.NoError(t, err)
	summary, err := tr.Run(armadacontext.Background())
	require.NoError(t, err)

	assert.Equal(t, 10.0, testutil.ToFloat64(m.steps))
	assert.Equal(t, float64(summary.ZeroGroups), testutil.ToFloat64(m.zeroGroups))
	assert.Positive(t, testutil.ToFloat64(m.loss))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.samplesPerSec))
	assert.Equal(t, time.Duration(0), summary.Duration)
}

func TestTrainer_Diverges(t *testing.T) {
	c := testConfig()
	c.DType = tensor.Float32
	c.Optimiser = optimisation.Descent
	c.Params = optimisation.Params{LearningRate: 1000, RescaleGrad: 1}
	c.Steps = 1000
	tr, err := New[float32](c, nil, nil)
	require.NoError(t, err)
	_, err = tr.Run(armadacontext.Background())
	assert.ErrorContains(t, err, "training diverged")
	assert.Error(t, tr.Check())
}

func TestTrainer_Cancelled(t *testing.T) {
	ctx, cancel := armadacontext.WithCancel(armadacontext.Background())
	cancel()
	tr, err := New[float64](testConfig(), nil, nil)
	require.NoError(t, err)
	_, err = tr.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewRunner(t *testing.T) {
	c := testConfig()
	c.DType = tensor.Float32
	r, err := NewRunner(c, nil, nil)
	require.NoError(t, err)
	assert.IsType(t, &Trainer[float32]{}, r)

	c.DType = tensor.Float64
	r, err = NewRunner(c, nil, nil)
	require.NoError(t, err)
	assert.IsType(t, &Trainer[float64]{}, r)
}

func TestNewRunner_Invalid(t *testing.T) {
	tests := map[string]func(c *Config){
		"more active features than features": func(c *Config) { c.ActiveFeatures = c.Features + 1 },
		"no samples":                         func(c *Config) { c.Samples = 0 },
		"negative noise":                     func(c *Config) { c.Noise = -1 },
		"weight decay with prox":             func(c *Config) { c.Params.WeightDecay = 0.1 },
		"zero learning rate":                 func(c *Config) { c.Params.LearningRate = 0 },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			c := testConfig()
			mutate(&c)
			r, err := NewRunner(c, nil, nil)
			assert.Error(t, err)
			assert.Nil(t, r)
		})
	}
}
