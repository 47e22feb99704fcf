package harness

import (
	"sort"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/armadaproject/proxgrad/internal/common/armadacontext"
	"github.com/armadaproject/proxgrad/internal/common/armadaerrors"
	"github.com/armadaproject/proxgrad/internal/common/optimisation"
	armadaslices "github.com/armadaproject/proxgrad/internal/common/slices"
	"github.com/armadaproject/proxgrad/internal/common/tensor"
	"github.com/armadaproject/proxgrad/internal/common/util"
)

// Grid describes the cross product of hyperparameters a sweep runs.
// In Epsilons and ClipGradients, a zero entry selects the optimiser's default epsilon and no clipping respectively.
// An empty list is equivalent to a list holding only the zero value.
type Grid struct {
	Kind          optimisation.Kind
	LearningRate  float64
	Epsilons      []float64
	ClipGradients []float64
	RescaleGrads  []float64
	// Only used by proximal group adagrad.
	L2Strengths []float64
	// Only used by nesterov.
	Momentums    []float64
	WeightDecays []float64
	Modes        []Mode
	DTypes       []tensor.DType
	// Overrides of DefaultTolerance by element type.
	Tolerances map[tensor.DType]Tolerance

	Rows          int
	Cols          int
	Steps         int
	RowDensity    float64
	CompareStates bool
}

// DefaultGrid returns the proximal group adagrad grid run by default,
// covering 2 epsilons, 3 clip settings, 3 rescale factors, and 2 regularisation strengths in every mode.
func DefaultGrid() Grid {
	return Grid{
		Kind:          optimisation.ProxGroupAdaGrad,
		LearningRate:  0.01,
		Epsilons:      []float64{0, 1e-8},
		ClipGradients: []float64{0, 0.4, 0.5},
		RescaleGrads:  []float64{1, 0.14, 0.8},
		L2Strengths:   []float64{0, 0.05},
		Modes:         AllModes,
		DTypes:        []tensor.DType{tensor.Float32},
		Rows:          3,
		Cols:          4,
		Steps:         1,
		RowDensity:    0.5,
		CompareStates: true,
	}
}

// Cases returns every case of the grid, in a deterministic order.
func (g Grid) Cases() []Case {
	rv := make([]Case, 0)
	for _, dtype := range orDefault(g.DTypes, tensor.Float32) {
		for _, eps := range orDefault(g.Epsilons, 0) {
			for _, clip := range orDefault(g.ClipGradients, 0) {
				for _, rescale := range orDefault(g.RescaleGrads, 1) {
					for _, l2 := range orDefault(g.L2Strengths, 0) {
						for _, momentum := range orDefault(g.Momentums, 0) {
							for _, wd := range orDefault(g.WeightDecays, 0) {
								params := optimisation.Params{
									LearningRate:             g.LearningRate,
									RescaleGrad:              rescale,
									WeightDecay:              wd,
									L2RegularizationStrength: l2,
									Momentum:                 momentum,
								}
								if eps != 0 {
									params = params.WithEpsilon(eps)
								}
								if clip != 0 {
									params = params.WithClipGradient(clip)
								}
								for _, mode := range orDefault(g.Modes, ModeDense) {
									rv = append(rv, Case{
										Kind:          g.Kind,
										Params:        params,
										Mode:          mode,
										DType:         dtype,
										Rows:          g.Rows,
										Cols:          g.Cols,
										Steps:         g.Steps,
										RowDensity:    g.RowDensity,
										CompareStates: g.CompareStates,
										Tolerance:     g.tolerance(dtype),
									})
								}
							}
						}
					}
				}
			}
		}
	}
	return rv
}

func (g Grid) tolerance(dtype tensor.DType) Tolerance {
	if tol, ok := g.Tolerances[dtype]; ok {
		return tol
	}
	return DefaultTolerance(dtype)
}

func orDefault[E any](s []E, v E) []E {
	if len(s) == 0 {
		return []E{v}
	}
	return s
}

type SweepConfig struct {
	// Seed from which the seed of each case is derived.
	Seed int64
	// Number of goroutines cases are spread over.
	Parallelism int
}

// Report collects the results of a sweep, in the order the cases were given.
type Report struct {
	Results  []*Result
	Duration time.Duration
}

// Sweep runs every case and collects the results.
//
// Each case draws from its own source, seeded from cfg.Seed and the position of the case,
// so reports are reproducible regardless of cfg.Parallelism.
// Mismatches don't stop the sweep; a case that can't be run, or cancellation of ctx, does.
func Sweep(ctx *armadacontext.Context, cases []Case, cfg SweepConfig, metrics *Metrics) (*Report, error) {
	if cfg.Parallelism < 1 {
		return nil, errors.WithStack(&armadaerrors.ErrInvalidArgument{
			Name:    "parallelism",
			Value:   cfg.Parallelism,
			Message: "outside allowed range [1, Inf)",
		})
	}
	start := time.Now()
	seeds := util.DeriveSeeds(cfg.Seed, len(cases))
	indices := make([]int, len(cases))
	for i := range indices {
		indices[i] = i
	}

	results := make([]*Result, len(cases))
	g, gctx := armadacontext.ErrGroup(ctx)
	for _, partition := range armadaslices.Partition(indices, cfg.Parallelism) {
		partition := partition
		g.Go(func() error {
			for _, i := range partition {
				if err := gctx.Err(); err != nil {
					return err
				}
				caseStart := time.Now()
				result, err := CompareCase(gctx, cases[i], util.NewRand(seeds[i]))
				d := time.Since(caseStart)
				metrics.record(cases[i], result, err, d)
				if err != nil {
					return err
				}
				result.Duration = d
				results[i] = result
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	report := &Report{Results: results, Duration: time.Since(start)}
	ctx.Log.WithFields(logrus.Fields{
		"cases":    len(results),
		"failed":   len(report.Failed()),
		"duration": report.Duration,
	}).Info("Sweep complete")
	return report, nil
}

func (r *Report) Failed() []*Result {
	rv := make([]*Result, 0)
	for _, result := range r.Results {
		if !result.Passed() {
			rv = append(rv, result)
		}
	}
	return rv
}

// Err returns nil if every case passed and otherwise a multierror holding every mismatch.
func (r *Report) Err() error {
	var result *multierror.Error
	for _, failed := range r.Failed() {
		result = multierror.Append(result, failed.Err())
	}
	return result.ErrorOrNil()
}

type group struct {
	kind    optimisation.Kind
	mode    Mode
	results []*Result
}

// groups returns the results grouped by kind and mode, ordered by kind then mode.
func (r *Report) groups() []*group {
	type key struct {
		kind optimisation.Kind
		mode Mode
	}
	byKey := make(map[key]*group)
	rv := make([]*group, 0)
	for _, result := range r.Results {
		k := key{kind: result.Case.Kind, mode: result.Case.Mode}
		g, ok := byKey[k]
		if !ok {
			g = &group{kind: k.kind, mode: k.mode}
			byKey[k] = g
			rv = append(rv, g)
		}
		g.results = append(g.results, result)
	}
	sort.SliceStable(rv, func(i, j int) bool {
		if rv[i].kind != rv[j].kind {
			return rv[i].kind < rv[j].kind
		}
		return rv[i].mode < rv[j].mode
	})
	return rv
}

// Summary returns a table with one line per kind and mode.
func (r *Report) Summary() string {
	table := util.NewTable("KIND", "MODE", "CASES", "FAILED", "MISMATCHES", "STATES SKIPPED", "MAX ABS DIFF")
	for _, g := range r.groups() {
		failed, mismatches, skipped := 0, 0, 0
		maxAbsDiff := 0.0
		for _, result := range g.results {
			if !result.Passed() {
				failed++
			}
			if result.StatesSkipped {
				skipped++
			}
			mismatches += len(result.Mismatches)
			if result.MaxAbsDiff > maxAbsDiff {
				maxAbsDiff = result.MaxAbsDiff
			}
		}
		table.AddRow(g.kind, g.mode, len(g.results), failed, mismatches, skipped, maxAbsDiff)
	}
	return table.String()
}
