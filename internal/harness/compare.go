package harness

import (
	"math"
	"math/rand"

	"github.com/pkg/errors"
	"github.com/sanity-io/litter"
	"github.com/sirupsen/logrus"
	"golang.org/x/exp/constraints"

	"github.com/armadaproject/proxgrad/internal/common/armadacontext"
	"github.com/armadaproject/proxgrad/internal/common/optimisation"
	"github.com/armadaproject/proxgrad/internal/common/tensor"
)

// parameterIndex is the index both optimisers see the parameter under.
const parameterIndex = 0

// CompareCase runs Compare with the element type selected by c.DType.
func CompareCase(ctx *armadacontext.Context, c Case, r *rand.Rand) (*Result, error) {
	if c.DType == tensor.Float64 {
		return Compare[float64](ctx, c, r)
	}
	return Compare[float32](ctx, c, r)
}

// Compare constructs a reference and a candidate optimiser with the hyperparameters of c,
// runs c.Steps identical randomly generated (weight, gradient) pairs through both, drawing from r,
// and reports every element on which they disagree beyond c.Tolerance.
//
// If the reference's dense update is expected to diverge from a row-sparse update on rows
// the gradient doesn't store, only the stored rows of the weight are compared, states are not,
// and the reference is resynchronised to the candidate after each step.
//
// A non-nil error means the case could not be run, e.g., since an optimiser rejected its hyperparameters;
// disagreements are reported in the returned Result instead.
func Compare[T constraints.Float](ctx *armadacontext.Context, c Case, r *rand.Rand) (*Result, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	desc := c.String()
	ref, err := optimisation.NewReference[T](c.Kind, c.Params)
	if err != nil {
		return nil, errors.WithMessagef(err, "creating reference for %s", desc)
	}
	cand, err := optimisation.New[T](c.Kind, c.Params)
	if err != nil {
		return nil, errors.WithMessagef(err, "creating candidate for %s", desc)
	}

	w0 := randomDense[T](r, c.Rows, c.Cols)
	refWeight, err := weightFor(w0, c.Mode)
	if err != nil {
		return nil, err
	}
	candWeight, err := weightFor(w0, c.Mode)
	if err != nil {
		return nil, err
	}
	refState, err := ref.CreateState(parameterIndex, refWeight)
	if err != nil {
		return nil, errors.WithMessagef(err, "creating reference state for %s", desc)
	}
	candState, err := cand.CreateState(parameterIndex, candWeight)
	if err != nil {
		return nil, errors.WithMessagef(err, "creating candidate state for %s", desc)
	}

	diverges := c.DivergesOffGradient()
	compareStates := c.CompareStates && !diverges && refState != nil
	cmp := &comparer[T]{
		result: &Result{Case: c, StatesSkipped: c.CompareStates && diverges},
		desc:   desc,
		log:    ctx.Log.WithField("case", desc),
	}
	if compareStates {
		cmp.compare(0, "state", refState, candState, nil)
	}
	for step := 1; step <= c.Steps; step++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		grad, touched, err := randomGrad[T](r, c)
		if err != nil {
			return nil, err
		}
		if err := ref.Update(parameterIndex, refWeight, grad, refState); err != nil {
			return nil, errors.WithMessagef(err, "updating reference for %s", desc)
		}
		if err := cand.Update(parameterIndex, candWeight, grad, candState); err != nil {
			return nil, errors.WithMessagef(err, "updating candidate for %s", desc)
		}

		var rows []int
		if diverges {
			rows = touched
		}
		cmp.compare(step, "weight", tensor.ToDense(refWeight), tensor.ToDense(candWeight), rows)
		if compareStates {
			cmp.compare(step, "state", refState, candState, nil)
		}
		if diverges {
			copyInto(refWeight, candWeight)
			if refState != nil {
				copyInto[T](refState, candState)
			}
		}
	}
	ctx.Log.WithFields(logrus.Fields{
		"case":       desc,
		"compared":   cmp.result.Compared,
		"mismatches": len(cmp.result.Mismatches),
		"maxAbsDiff": cmp.result.MaxAbsDiff,
	}).Debug("Compared optimisers")
	return cmp.result, nil
}

type comparer[T constraints.Float] struct {
	result *Result
	desc   string
	log    *logrus.Entry
}

// compare checks the given rows of cand against ref, or every row if rows is nil.
func (c *comparer[T]) compare(step int, name string, ref, cand *tensor.Dense[T], rows []int) {
	if rows == nil {
		rows = ref.StoredRows()
	}
	tol := c.result.Case.Tolerance
	for _, i := range rows {
		refRow, candRow := ref.Row(i), cand.Row(i)
		mismatched := false
		for j := range refRow {
			a, b := float64(candRow[j]), float64(refRow[j])
			c.result.Compared++
			if d := math.Abs(a - b); d > c.result.MaxAbsDiff {
				c.result.MaxAbsDiff = d
			}
			if !tol.Close(a, b) {
				mismatched = true
				c.result.Mismatches = append(c.result.Mismatches, Mismatch{
					Case:      c.desc,
					Mode:      c.result.Case.Mode,
					Step:      step,
					Tensor:    name,
					Row:       i,
					Col:       j,
					Reference: b,
					Candidate: a,
				})
			}
		}
		if mismatched && c.log.Logger.IsLevelEnabled(logrus.DebugLevel) {
			c.log.WithFields(logrus.Fields{"step": step, "tensor": name, "row": i}).
				Debugf("Row mismatch\nreference: %s\ncandidate: %s", litter.Sdump(refRow), litter.Sdump(candRow))
		}
	}
}
