package configuration

import (
	"github.com/armadaproject/proxgrad/internal/common/optimisation"
	"github.com/armadaproject/proxgrad/internal/common/optimisation/schedule"
	"github.com/armadaproject/proxgrad/internal/common/tensor"
	"github.com/armadaproject/proxgrad/internal/harness"
	"github.com/armadaproject/proxgrad/internal/trainer"
)

// Params returns the optimiser hyperparameters c describes.
func (c OptimiserConfig) Params() (optimisation.Params, error) {
	params := optimisation.Params{
		LearningRate:             c.LearningRate,
		WeightDecay:              c.WeightDecay,
		RescaleGrad:              c.RescaleGrad,
		L2RegularizationStrength: c.L2RegularizationStrength,
		Momentum:                 c.Momentum,
	}
	if c.ClipGradient != 0 {
		params = params.WithClipGradient(c.ClipGradient)
	}
	if c.Epsilon != 0 {
		params = params.WithEpsilon(c.Epsilon)
	}
	switch c.Schedule.Type {
	case ScheduleFactor:
		s, err := schedule.NewFactor(c.LearningRate, c.Schedule.Step, c.Schedule.Factor, c.Schedule.StopFactorLR)
		if err != nil {
			return optimisation.Params{}, err
		}
		params.Scheduler = s
	case ScheduleMultiFactor:
		s, err := schedule.NewMultiFactor(c.LearningRate, c.Schedule.Steps, c.Schedule.Factor)
		if err != nil {
			return optimisation.Params{}, err
		}
		params.Scheduler = s
	}
	return params, params.Validate()
}

func (c HarnessConfig) Grid() harness.Grid {
	tolerances := make(map[tensor.DType]harness.Tolerance)
	if c.Float32Tolerance != nil {
		tolerances[tensor.Float32] = *c.Float32Tolerance
	}
	if c.Float64Tolerance != nil {
		tolerances[tensor.Float64] = *c.Float64Tolerance
	}
	return harness.Grid{
		Kind:          c.Optimiser,
		LearningRate:  c.LearningRate,
		Epsilons:      c.Epsilons,
		ClipGradients: c.ClipGradients,
		RescaleGrads:  c.RescaleGrads,
		L2Strengths:   c.L2Strengths,
		Momentums:     c.Momentums,
		WeightDecays:  c.WeightDecays,
		Modes:         c.Modes,
		DTypes:        c.DTypes,
		Tolerances:    tolerances,
		Rows:          c.Rows,
		Cols:          c.Cols,
		Steps:         c.Steps,
		RowDensity:    c.RowDensity,
		CompareStates: c.CompareStates,
	}
}

func (c HarnessConfig) SweepConfig() harness.SweepConfig {
	return harness.SweepConfig{
		Seed:        c.Seed,
		Parallelism: c.Parallelism,
	}
}

func (c TrainingConfig) TrainerConfig() (trainer.Config, error) {
	params, err := c.Optimiser.Params()
	if err != nil {
		return trainer.Config{}, err
	}
	return trainer.Config{
		Optimiser:         c.Optimiser.Kind,
		Params:            params,
		DType:             c.DType,
		Features:          c.Features,
		Outputs:           c.Outputs,
		ActiveFeatures:    c.ActiveFeatures,
		FeaturesPerSample: c.FeaturesPerSample,
		Samples:           c.Samples,
		BatchSize:         c.BatchSize,
		Noise:             c.Noise,
		Steps:             c.Steps,
		LogEvery:          c.LogEvery,
		Sparse:            c.Sparse,
		Seed:              c.Seed,
	}, nil
}
