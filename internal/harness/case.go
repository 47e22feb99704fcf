package harness

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/armadaproject/proxgrad/internal/common/armadaerrors"
	"github.com/armadaproject/proxgrad/internal/common/optimisation"
	"github.com/armadaproject/proxgrad/internal/common/tensor"
)

// Case is one comparison of a candidate optimiser against its reference.
type Case struct {
	Kind   optimisation.Kind
	Params optimisation.Params
	Mode   Mode
	DType  tensor.DType
	// Shape of the parameter.
	Rows int
	Cols int
	// Number of (weight, gradient) pairs run through both optimisers.
	Steps int
	// Probability of each row being stored in a row-sparse gradient.
	RowDensity float64
	// If true, optimiser states are compared too, except where a dense update is expected
	// to diverge from a row-sparse one.
	CompareStates bool
	Tolerance     Tolerance
}

// DefaultCase returns a single-step proximal group adagrad case on a (3, 4) float32 parameter.
func DefaultCase() Case {
	return Case{
		Kind:       optimisation.ProxGroupAdaGrad,
		Params:     optimisation.Params{LearningRate: 0.01, RescaleGrad: 1},
		Mode:       ModeDense,
		DType:      tensor.Float32,
		Rows:       3,
		Cols:       4,
		Steps:      1,
		RowDensity: 0.5,
		Tolerance:  DefaultTolerance(tensor.Float32),
	}
}

func (c Case) Validate() error {
	if c.Rows < 1 {
		return errors.WithStack(&armadaerrors.ErrInvalidArgument{Name: "rows", Value: c.Rows, Message: "outside allowed range [1, Inf)"})
	}
	if c.Cols < 1 {
		return errors.WithStack(&armadaerrors.ErrInvalidArgument{Name: "cols", Value: c.Cols, Message: "outside allowed range [1, Inf)"})
	}
	if c.Steps < 1 {
		return errors.WithStack(&armadaerrors.ErrInvalidArgument{Name: "steps", Value: c.Steps, Message: "outside allowed range [1, Inf)"})
	}
	if c.RowDensity < 0 || c.RowDensity > 1 {
		return errors.WithStack(&armadaerrors.ErrInvalidArgument{Name: "rowDensity", Value: c.RowDensity, Message: "outside allowed range [0, 1]"})
	}
	if c.Tolerance.Rtol < 0 || c.Tolerance.Atol < 0 {
		return errors.WithStack(&armadaerrors.ErrInvalidArgument{Name: "tolerance", Value: c.Tolerance, Message: "must be non-negative"})
	}
	return nil
}

// DivergesOffGradient returns true if the reference's dense update is expected to change rows
// a row-sparse gradient doesn't store, so only the stored rows can be compared.
func (c Case) DivergesOffGradient() bool {
	return c.Mode != ModeDense && optimisation.DenseUpdateMovesUntouchedRows(c.Kind, c.Params)
}

// String identifies the hyperparameter combination and mode of the case.
func (c Case) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "kind=%s mode=%s dtype=%s", c.Kind, c.Mode, c.DType)
	fmt.Fprintf(&sb, " lr=%s rescale=%s", formatFloat(c.Params.LearningRate), formatFloat(c.Params.RescaleGrad))
	if c.Params.Epsilon != nil {
		fmt.Fprintf(&sb, " eps=%s", formatFloat(*c.Params.Epsilon))
	} else {
		sb.WriteString(" eps=default")
	}
	if c.Params.ClipGradient != nil {
		fmt.Fprintf(&sb, " clip=%s", formatFloat(*c.Params.ClipGradient))
	} else {
		sb.WriteString(" clip=none")
	}
	if c.Params.WeightDecay != 0 {
		fmt.Fprintf(&sb, " wd=%s", formatFloat(c.Params.WeightDecay))
	}
	switch c.Kind {
	case optimisation.ProxGroupAdaGrad:
		fmt.Fprintf(&sb, " l2=%s", formatFloat(c.Params.L2RegularizationStrength))
	case optimisation.Nesterov:
		fmt.Fprintf(&sb, " momentum=%s", formatFloat(c.Params.Momentum))
	}
	return sb.String()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// Mismatch is an element on which candidate and reference disagree beyond tolerance.
type Mismatch struct {
	Case      string
	Mode      Mode
	Step      int
	Tensor    string
	Row       int
	Col       int
	Reference float64
	Candidate float64
}

func (m Mismatch) Error() string {
	return fmt.Sprintf(
		"%s: step %d: %s[%d, %d] is %g but reference is %g",
		m.Case, m.Step, m.Tensor, m.Row, m.Col, m.Candidate, m.Reference,
	)
}

// Result is the outcome of one case.
type Result struct {
	Case       Case
	Mismatches []Mismatch
	// Number of elements compared across all steps.
	Compared int
	// Largest absolute difference observed.
	MaxAbsDiff float64
	// True if states were requested but not compared, since the case diverges off the gradient.
	StatesSkipped bool
	// Time taken to run the case. Only set by Sweep.
	Duration time.Duration
}

func (r *Result) Passed() bool {
	return len(r.Mismatches) == 0
}

// Err returns nil if the case passed and otherwise a multierror holding every mismatch.
func (r *Result) Err() error {
	if r.Passed() {
		return nil
	}
	var result *multierror.Error
	for _, m := range r.Mismatches {
		result = multierror.Append(result, m)
	}
	return result.ErrorOrNil()
}
