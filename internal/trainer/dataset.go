package trainer

import (
	"math/rand"

	"golang.org/x/exp/slices"
	"gonum.org/v1/gonum/mat"

	armadaslices "github.com/armadaproject/proxgrad/internal/common/slices"
)

// Dataset is a multi-output linear regression problem y = x W + noise whose true weight W
// has only a few non-zero rows (groups), and whose samples each have only a few non-zero features.
// The gradient of a mini-batch is therefore non-zero only on the features its samples use.
type Dataset struct {
	X *mat.Dense
	Y *mat.Dense
	// Features used by each sample, in increasing order.
	Active [][]int
	// True weight, of shape (features, outputs).
	Weight *mat.Dense
	// Rows of Weight that are non-zero, in increasing order.
	Support []int
}

// NewDataset draws a dataset of shape c from r.
func NewDataset(r *rand.Rand, c Config) *Dataset {
	d, k, n := c.Features, c.Outputs, c.Samples

	support := r.Perm(d)[:c.ActiveFeatures]
	slices.Sort(support)
	weight := mat.NewDense(d, k, nil)
	for _, i := range support {
		for j := 0; j < k; j++ {
			weight.Set(i, j, r.NormFloat64())
		}
	}

	x := mat.NewDense(n, d, nil)
	active := make([][]int, n)
	for s := 0; s < n; s++ {
		features := r.Perm(d)[:c.FeaturesPerSample]
		slices.Sort(features)
		for _, f := range features {
			x.Set(s, f, r.NormFloat64())
		}
		active[s] = features
	}

	y := mat.NewDense(n, k, nil)
	y.Mul(x, weight)
	y.Apply(func(_, _ int, v float64) float64 {
		return v + c.Noise*r.NormFloat64()
	}, y)

	return &Dataset{X: x, Y: y, Active: active, Weight: weight, Support: support}
}

// Batch returns copies of the rows of X and Y of the given samples.
func (ds *Dataset) Batch(samples []int) (x, y *mat.Dense) {
	_, d := ds.X.Dims()
	_, k := ds.Y.Dims()
	x = mat.NewDense(len(samples), d, nil)
	y = mat.NewDense(len(samples), k, nil)
	for b, s := range samples {
		x.SetRow(b, ds.X.RawRowView(s))
		y.SetRow(b, ds.Y.RawRowView(s))
	}
	return x, y
}

// TouchedFeatures returns, in increasing order, the features used by any of the given samples.
func (ds *Dataset) TouchedFeatures(samples []int) []int {
	features := armadaslices.Flatten(armadaslices.Map(samples, func(s int) []int { return ds.Active[s] }))
	features = armadaslices.Unique(features)
	slices.Sort(features)
	return features
}
