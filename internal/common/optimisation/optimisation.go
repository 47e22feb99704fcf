package optimisation

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/exp/constraints"

	"github.com/armadaproject/proxgrad/internal/common/armadaerrors"
	"github.com/armadaproject/proxgrad/internal/common/optimisation/adagrad"
	"github.com/armadaproject/proxgrad/internal/common/optimisation/base"
	"github.com/armadaproject/proxgrad/internal/common/optimisation/descent"
	"github.com/armadaproject/proxgrad/internal/common/optimisation/nesterov"
	"github.com/armadaproject/proxgrad/internal/common/optimisation/proxgroupadagrad"
	"github.com/armadaproject/proxgrad/internal/common/optimisation/reference"
	"github.com/armadaproject/proxgrad/internal/common/tensor"
)

// Optimiser represents a first-order optimisation algorithm operating on 2-D parameters.
// Implementations are not safe for concurrent use; callers serialise updates.
type Optimiser[T constraints.Float] interface {
	// CreateState returns the auxiliary state for the parameter at index, zero-initialised.
	// Optimisers without state return nil. Fails with armadaerrors.ErrShape if weight is not 2-D.
	CreateState(index int, weight tensor.Tensor[T]) (*tensor.Dense[T], error)
	// Update the parameter at index in-place using grad, updating state in-place.
	// Each call advances the update counter of index.
	Update(index int, weight, grad tensor.Tensor[T], state *tensor.Dense[T]) error
}

type Params = base.Params

// Kind selects an optimisation algorithm.
type Kind int

const (
	ProxGroupAdaGrad Kind = iota
	AdaGrad
	Descent
	Nesterov
)

var kindNames = map[Kind]string{
	ProxGroupAdaGrad: "proxgroupadagrad",
	AdaGrad:          "adagrad",
	Descent:          "descent",
	Nesterov:         "nesterov",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// MarshalText encodes a kind by name, as accepted by ParseKind.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func ParseKind(s string) (Kind, error) {
	normalised := strings.ReplaceAll(strings.ToLower(s), "_", "")
	for k, name := range kindNames {
		if name == normalised {
			return k, nil
		}
	}
	return ProxGroupAdaGrad, errors.WithStack(&armadaerrors.ErrInvalidArgument{
		Name:    "optimiser",
		Value:   s,
		Message: "must be one of proxgroupadagrad, adagrad, descent, nesterov",
	})
}

// New returns the fused implementation of the optimiser of the given kind.
func New[T constraints.Float](kind Kind, params Params) (Optimiser[T], error) {
	var opt Optimiser[T]
	var err error
	switch kind {
	case ProxGroupAdaGrad:
		opt, err = proxgroupadagrad.New[T](params)
	case AdaGrad:
		opt, err = adagrad.New[T](params)
	case Descent:
		opt, err = descent.New[T](params)
	case Nesterov:
		opt, err = nesterov.New[T](params)
	default:
		err = unknownKind(kind)
	}
	if err != nil {
		return nil, err
	}
	return opt, nil
}

// NewReference returns the dense gonum implementation of the optimiser of the given kind.
func NewReference[T constraints.Float](kind Kind, params Params) (Optimiser[T], error) {
	var opt Optimiser[T]
	var err error
	switch kind {
	case ProxGroupAdaGrad:
		opt, err = reference.NewProxGroupAdaGrad[T](params)
	case AdaGrad:
		opt, err = reference.NewAdaGrad[T](params)
	case Descent:
		opt, err = reference.NewDescent[T](params)
	case Nesterov:
		opt, err = reference.NewNesterov[T](params)
	default:
		err = unknownKind(kind)
	}
	if err != nil {
		return nil, err
	}
	return opt, nil
}

// DenseUpdateMovesUntouchedRows returns true if, for the given kind and parameters, a dense update with a
// zero gradient row may change that row or its state. For such configurations a row-sparse update,
// which skips rows absent from the gradient, is expected to differ from a dense one outside the updated rows.
func DenseUpdateMovesUntouchedRows(kind Kind, params Params) bool {
	switch kind {
	case ProxGroupAdaGrad:
		return params.L2RegularizationStrength > 0
	case Nesterov:
		// A dense step rewrites the velocity of every row, resetting untouched rows to zero at zero momentum.
		return true
	default:
		return params.WeightDecay != 0
	}
}

func unknownKind(kind Kind) error {
	return errors.WithStack(&armadaerrors.ErrInvalidArgument{
		Name:    "kind",
		Value:   kind,
		Message: "unknown optimiser kind",
	})
}
