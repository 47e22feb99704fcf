// Package trainer fits a group-sparse linear regression with any of the optimisers,
// to exercise them on a problem whose solution has rows that should vanish.
package trainer

import (
	"math"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/exp/constraints"
	"gonum.org/v1/gonum/mat"
	"k8s.io/utils/clock"

	"github.com/armadaproject/proxgrad/internal/common/armadacontext"
	"github.com/armadaproject/proxgrad/internal/common/linalg"
	"github.com/armadaproject/proxgrad/internal/common/optimisation"
	"github.com/armadaproject/proxgrad/internal/common/tensor"
	"github.com/armadaproject/proxgrad/internal/common/util"
)

// weightIndex is the index the weight is registered under with the optimiser.
const weightIndex = 0

type Config struct {
	Optimiser optimisation.Kind
	Params    optimisation.Params
	DType     tensor.DType
	// Number of input features, i.e., rows of the weight.
	Features int `validate:"gte=1"`
	// Number of outputs, i.e., columns of the weight.
	Outputs int `validate:"gte=1"`
	// Number of non-zero rows of the true weight.
	ActiveFeatures int `validate:"gte=0,ltefield=Features"`
	// Number of non-zero features of each sample.
	FeaturesPerSample int     `validate:"gte=1,ltefield=Features"`
	Samples           int     `validate:"gte=1"`
	BatchSize         int     `validate:"gte=1"`
	Noise             float64 `validate:"gte=0"`
	Steps             int     `validate:"gte=1"`
	LogEvery          int     `validate:"gte=1"`
	// If true, gradients are row-sparse, storing only the features used by the mini-batch.
	Sparse bool
	Seed   int64
}

// DefaultConfig returns a small problem trained with proximal group adagrad.
func DefaultConfig() Config {
	return Config{
		Optimiser: optimisation.ProxGroupAdaGrad,
		Params: optimisation.Params{
			LearningRate:             0.1,
			RescaleGrad:              1,
			L2RegularizationStrength: 0.01,
		},
		DType:             tensor.Float32,
		Features:          64,
		Outputs:           4,
		ActiveFeatures:    8,
		FeaturesPerSample: 8,
		Samples:           1024,
		BatchSize:         32,
		Noise:             0.01,
		Steps:             1000,
		LogEvery:          100,
	}
}

func (c Config) Validate() error {
	return validator.New().Struct(c)
}

// Summary describes the outcome of a training run.
type Summary struct {
	Steps int
	// Loss over the whole dataset after the last step.
	FinalLoss float64
	// Number of weight rows that are exactly zero.
	ZeroGroups int
	// Number of rows of the true support that are non-zero.
	SupportRecovered int
	// Number of rows outside the true support that are non-zero.
	FalsePositives int
	Duration       time.Duration
}

// Runner trains a model. Check may be called concurrently with Run.
type Runner interface {
	Run(ctx *armadacontext.Context) (*Summary, error)
	Check() error
}

// NewRunner returns a Trainer with the element type selected by c.DType.
func NewRunner(c Config, metrics *Metrics, clk clock.PassiveClock) (Runner, error) {
	if c.DType == tensor.Float64 {
		t, err := New[float64](c, metrics, clk)
		if err != nil {
			return nil, err
		}
		return t, nil
	}
	t, err := New[float32](c, metrics, clk)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// Trainer runs mini-batch gradient descent on a Dataset.
type Trainer[T constraints.Float] struct {
	config  Config
	data    *Dataset
	opt     optimisation.Optimiser[T]
	weight  *tensor.Dense[T]
	state   *tensor.Dense[T]
	rand    *rand.Rand
	clock   clock.PassiveClock
	metrics *Metrics
	window  Window
	// Bits of the most recent mini-batch loss, read by Check.
	lastLoss atomic.Uint64
}

// New returns a Trainer for c. If clk is nil, the real clock is used.
func New[T constraints.Float](c Config, metrics *Metrics, clk clock.PassiveClock) (*Trainer[T], error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	opt, err := optimisation.New[T](c.Optimiser, c.Params)
	if err != nil {
		return nil, err
	}
	if clk == nil {
		clk = clock.RealClock{}
	}
	r := util.NewRand(c.Seed)
	data := NewDataset(r, c)
	weight := tensor.NewZeros[T](c.Features, c.Outputs)
	state, err := opt.CreateState(weightIndex, weight)
	if err != nil {
		return nil, err
	}
	return &Trainer[T]{
		config:  c,
		data:    data,
		opt:     opt,
		weight:  weight,
		state:   state,
		rand:    r,
		clock:   clk,
		metrics: metrics,
	}, nil
}

// Weight returns the current weight. It is updated in-place by Step.
func (t *Trainer[T]) Weight() *tensor.Dense[T] {
	return t.weight
}

func (t *Trainer[T]) Dataset() *Dataset {
	return t.data
}

// Step updates the weight using the gradient of a random mini-batch and returns the mini-batch loss
// before the update.
func (t *Trainer[T]) Step() (float64, error) {
	samples := make([]int, t.config.BatchSize)
	for i := range samples {
		samples[i] = t.rand.Intn(t.config.Samples)
	}
	x, y := t.data.Batch(samples)
	w := t.weight.ToMat()

	var residual mat.Dense
	residual.Mul(x, w)
	residual.Sub(&residual, y)
	n := float64(len(samples))
	loss := squaredNorm(&residual) / (2 * n)

	var g mat.Dense
	g.Mul(x.T(), &residual)
	g.Scale(1/n, &g)
	grad, err := t.gradient(&g, samples)
	if err != nil {
		return 0, err
	}
	if err := t.opt.Update(weightIndex, t.weight, grad, t.state); err != nil {
		return 0, err
	}
	t.lastLoss.Store(math.Float64bits(loss))
	return loss, nil
}

func (t *Trainer[T]) gradient(g *mat.Dense, samples []int) (tensor.Tensor[T], error) {
	if !t.config.Sparse {
		return tensor.FromMat[T](g), nil
	}
	rows := t.data.TouchedFeatures(samples)
	values := make([]T, 0, len(rows)*t.config.Outputs)
	for _, i := range rows {
		for _, v := range g.RawRowView(i) {
			values = append(values, T(v))
		}
	}
	return tensor.NewRowSparse(t.config.Features, t.config.Outputs, rows, values)
}

// Loss returns the loss of the current weight over the whole dataset.
func (t *Trainer[T]) Loss() float64 {
	var residual mat.Dense
	residual.Mul(t.data.X, t.weight.ToMat())
	residual.Sub(&residual, t.data.Y)
	n, _ := t.data.X.Dims()
	return squaredNorm(&residual) / (2 * float64(n))
}

// ZeroGroups returns the number of rows of the weight that are exactly zero.
func (t *Trainer[T]) ZeroGroups() int {
	norms := linalg.RowNorms(nil, t.weight.ToMat())
	rv := 0
	for i := 0; i < norms.Len(); i++ {
		if norms.AtVec(i) == 0 {
			rv++
		}
	}
	return rv
}

// Check returns an error if the most recent loss is not finite.
func (t *Trainer[T]) Check() error {
	loss := math.Float64frombits(t.lastLoss.Load())
	if math.IsNaN(loss) || math.IsInf(loss, 0) {
		return errors.Errorf("training diverged: loss is %v", loss)
	}
	return nil
}

// Run takes config.Steps steps, logging progress every config.LogEvery steps.
// It stops early if ctx is cancelled or the loss diverges.
func (t *Trainer[T]) Run(ctx *armadacontext.Context) (*Summary, error) {
	ctx = armadacontext.WithLogFields(ctx, logrus.Fields{
		"optimiser": t.config.Optimiser,
		"dtype":     t.config.DType,
		"sparse":    t.config.Sparse,
	})
	ctx.Log.WithFields(logrus.Fields{
		"features": t.config.Features,
		"outputs":  t.config.Outputs,
	}).Info("Starting training")
	start := t.clock.Now()
	for step := 1; step <= t.config.Steps; step++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		stepStart := t.clock.Now()
		loss, err := t.Step()
		if err != nil {
			return nil, errors.WithMessagef(err, "step %d", step)
		}
		t.window.Record(t.config.BatchSize, t.clock.Since(stepStart), loss)
		if err := t.Check(); err != nil {
			return nil, errors.WithMessagef(err, "step %d", step)
		}
		if step%t.config.LogEvery == 0 || step == t.config.Steps {
			snap := t.window.Snapshot()
			zeroGroups := t.ZeroGroups()
			t.metrics.record(snap, zeroGroups)
			ctx.Log.WithFields(logrus.Fields{
				"step":          step,
				"loss":          snap.MeanLoss,
				"zeroGroups":    zeroGroups,
				"samplesPerSec": snap.SamplesPerSec,
				"stepMs":        snap.AvgStepMS,
			}).Info("Training progress")
		}
	}
	summary := t.summary()
	summary.Duration = t.clock.Since(start)
	ctx.Log.WithFields(logrus.Fields{
		"loss":             summary.FinalLoss,
		"zeroGroups":       summary.ZeroGroups,
		"supportRecovered": summary.SupportRecovered,
		"falsePositives":   summary.FalsePositives,
		"duration":         summary.Duration,
	}).Info("Training complete")
	return summary, nil
}

func (t *Trainer[T]) summary() *Summary {
	inSupport := make(map[int]bool, len(t.data.Support))
	for _, i := range t.data.Support {
		inSupport[i] = true
	}
	norms := linalg.RowNorms(nil, t.weight.ToMat())
	rv := &Summary{Steps: t.config.Steps, FinalLoss: t.Loss()}
	for i := 0; i < norms.Len(); i++ {
		switch {
		case norms.AtVec(i) == 0:
			rv.ZeroGroups++
		case inSupport[i]:
			rv.SupportRecovered++
		default:
			rv.FalsePositives++
		}
	}
	return rv
}

func squaredNorm(m *mat.Dense) float64 {
	norm := mat.Norm(m, 2)
	return norm * norm
}
