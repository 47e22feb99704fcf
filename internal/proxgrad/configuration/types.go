package configuration

import (
	"github.com/go-playground/validator/v10"

	"github.com/armadaproject/proxgrad/internal/common/logging"
	"github.com/armadaproject/proxgrad/internal/common/optimisation"
	"github.com/armadaproject/proxgrad/internal/common/tensor"
	"github.com/armadaproject/proxgrad/internal/harness"
)

type Configuration struct {
	Logging  logging.Config
	Metrics  MetricsConfig
	Harness  HarnessConfig
	Training TrainingConfig
}

type MetricsConfig struct {
	// If true, metrics and health are served over http while training.
	Enabled bool
	Port    uint16 `validate:"required_if=Enabled true"`
}

// OptimiserConfig holds the hyperparameters of a single optimiser.
type OptimiserConfig struct {
	Kind         optimisation.Kind
	LearningRate float64 `validate:"gt=0"`
	WeightDecay  float64 `validate:"gte=0"`
	RescaleGrad  float64 `validate:"ne=0"`
	// Zero disables clipping.
	ClipGradient float64 `validate:"gte=0"`
	// Zero selects the optimiser's default.
	Epsilon                  float64 `validate:"gte=0"`
	L2RegularizationStrength float64 `validate:"gte=0"`
	Momentum                 float64 `validate:"gte=0,lt=1"`
	Schedule                 ScheduleConfig
}

// ScheduleConfig selects a learning rate schedule. An empty Type keeps the learning rate constant.
type ScheduleConfig struct {
	Type ScheduleType `validate:"omitempty,oneof=factor multifactor"`
	// Used by factor schedules.
	Step         int     `validate:"required_if=Type factor"`
	StopFactorLR float64 `validate:"gte=0"`
	// Used by multifactor schedules.
	Steps  []int   `validate:"required_if=Type multifactor"`
	Factor float64 `validate:"required_with=Type"`
}

type ScheduleType string

const (
	ScheduleFactor      ScheduleType = "factor"
	ScheduleMultiFactor ScheduleType = "multifactor"
)

// HarnessConfig describes the sweep run by the compare command.
type HarnessConfig struct {
	Optimiser    optimisation.Kind
	LearningRate float64 `validate:"gt=0"`
	// Zero entries select the default epsilon.
	Epsilons []float64 `validate:"dive,gte=0"`
	// Zero entries disable clipping.
	ClipGradients []float64 `validate:"dive,gte=0"`
	RescaleGrads  []float64 `validate:"dive,ne=0"`
	L2Strengths   []float64 `validate:"dive,gte=0"`
	Momentums     []float64 `validate:"dive,gte=0,lt=1"`
	WeightDecays  []float64 `validate:"dive,gte=0"`
	Modes         []harness.Mode
	DTypes        []tensor.DType
	Rows          int     `validate:"gte=1"`
	Cols          int     `validate:"gte=1"`
	Steps         int     `validate:"gte=1"`
	RowDensity    float64 `validate:"gte=0,lte=1"`
	CompareStates bool
	// Tolerances by element type; types not listed use the defaults.
	Float32Tolerance *harness.Tolerance
	Float64Tolerance *harness.Tolerance
	Seed             int64
	Parallelism      int `validate:"gte=1"`
	// If set, the report is also written to this path as JUnit XML.
	JUnitReport string
}

// TrainingConfig describes the problem solved by the train command.
type TrainingConfig struct {
	Optimiser         OptimiserConfig
	DType             tensor.DType
	Features          int     `validate:"gte=1"`
	Outputs           int     `validate:"gte=1"`
	ActiveFeatures    int     `validate:"gte=0,ltefield=Features"`
	FeaturesPerSample int     `validate:"gte=1,ltefield=Features"`
	Samples           int     `validate:"gte=1"`
	BatchSize         int     `validate:"gte=1"`
	Noise             float64 `validate:"gte=0"`
	Steps             int     `validate:"gte=1"`
	LogEvery          int     `validate:"gte=1"`
	Sparse            bool
	Seed              int64
}

func (c Configuration) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}
	return c.Logging.Validate()
}
