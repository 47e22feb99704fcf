package harness

import (
	"fmt"
	"math"
	"strings"

	"github.com/pkg/errors"

	"github.com/armadaproject/proxgrad/internal/common/armadaerrors"
	"github.com/armadaproject/proxgrad/internal/common/tensor"
)

// Mode is the combination of weight and gradient storage types a case is run with.
type Mode int

const (
	// Dense weight, dense gradient.
	ModeDense Mode = iota
	// Row-sparse weight storing every row, row-sparse gradient.
	ModeRowSparse
	// Dense weight, row-sparse gradient.
	ModeMixed
)

// AllModes lists every mode in the order sweeps run them.
var AllModes = []Mode{ModeDense, ModeRowSparse, ModeMixed}

func (m Mode) String() string {
	switch m {
	case ModeDense:
		return "dense"
	case ModeRowSparse:
		return "row_sparse"
	case ModeMixed:
		return "mixed"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(s) {
	case "dense", "default":
		return ModeDense, nil
	case "row_sparse", "rowsparse", "sparse":
		return ModeRowSparse, nil
	case "mixed":
		return ModeMixed, nil
	default:
		return ModeDense, errors.WithStack(&armadaerrors.ErrInvalidArgument{
			Name:    "mode",
			Value:   s,
			Message: "must be one of dense, row_sparse, mixed",
		})
	}
}

// UnmarshalText allows modes to be decoded from configuration.
func (m *Mode) UnmarshalText(text []byte) error {
	parsed, err := ParseMode(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

func (m Mode) WeightStorage() tensor.StorageType {
	if m == ModeRowSparse {
		return tensor.StorageRowSparse
	}
	return tensor.StorageDefault
}

func (m Mode) GradStorage() tensor.StorageType {
	if m == ModeDense {
		return tensor.StorageDefault
	}
	return tensor.StorageRowSparse
}

// Tolerance bounds the elementwise difference between a candidate value a and a reference value b:
// |a - b| <= Atol + Rtol * |b|.
type Tolerance struct {
	Rtol float64 `validate:"gte=0"`
	Atol float64 `validate:"gte=0"`
}

// DefaultTolerance returns the tolerance used for elements of the given type.
func DefaultTolerance(dtype tensor.DType) Tolerance {
	if dtype == tensor.Float64 {
		return Tolerance{Rtol: 1e-7, Atol: 1e-9}
	}
	return Tolerance{Rtol: 1e-4, Atol: 1e-5}
}

// Close reports whether a is within tolerance of b. NaNs are never close.
func (t Tolerance) Close(a, b float64) bool {
	if math.IsNaN(a) || math.IsNaN(b) {
		return false
	}
	if a == b {
		return true
	}
	return math.Abs(a-b) <= t.Atol+t.Rtol*math.Abs(b)
}
