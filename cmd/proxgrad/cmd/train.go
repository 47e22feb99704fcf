package cmd

import (
	"github.com/spf13/cobra"

	"github.com/armadaproject/proxgrad/internal/common/optimisation"
	"github.com/armadaproject/proxgrad/internal/proxgrad/configuration"
)

func trainCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Fit a synthetic group-sparse regression problem",
		Long: `Train fits a linear model to data generated from a weight with few non-zero rows,
and reports how many of the rows the optimiser drove to exactly zero.`,
		RunE: train,
	}
	cmd.Flags().Int("steps", 0, "Number of optimiser steps; overrides training.steps")
	cmd.Flags().String("optimiser", "", "Optimiser to train with (proxgroupadagrad, adagrad, descent, nesterov); overrides training.optimiser.kind")
	cmd.Flags().Bool("sparse", false, "Use row-sparse gradients; overrides training.sparse")
	cmd.Flags().Uint16("metricsPort", 0, "Serve metrics and health on this port while training; overrides metrics.port and enables metrics")
	return cmd
}

func train(cmd *cobra.Command, _ []string) error {
	overrides, err := trainOverrides(cmd)
	if err != nil {
		return err
	}
	a, err := newApp(cmd, overrides...)
	if err != nil {
		return err
	}
	_, err = a.Train(commandContext(cmd))
	return err
}

func trainOverrides(cmd *cobra.Command) ([]func(c *configuration.Configuration), error) {
	var overrides []func(c *configuration.Configuration)
	flags := cmd.Flags()
	if flags.Changed("steps") {
		steps, err := flags.GetInt("steps")
		if err != nil {
			return nil, err
		}
		overrides = append(overrides, func(c *configuration.Configuration) { c.Training.Steps = steps })
	}
	if flags.Changed("optimiser") {
		name, err := flags.GetString("optimiser")
		if err != nil {
			return nil, err
		}
		kind, err := optimisation.ParseKind(name)
		if err != nil {
			return nil, err
		}
		overrides = append(overrides, func(c *configuration.Configuration) { c.Training.Optimiser.Kind = kind })
	}
	if flags.Changed("sparse") {
		sparse, err := flags.GetBool("sparse")
		if err != nil {
			return nil, err
		}
		overrides = append(overrides, func(c *configuration.Configuration) { c.Training.Sparse = sparse })
	}
	if flags.Changed("metricsPort") {
		port, err := flags.GetUint16("metricsPort")
		if err != nil {
			return nil, err
		}
		overrides = append(overrides, func(c *configuration.Configuration) {
			c.Metrics.Enabled = true
			c.Metrics.Port = port
		})
	}
	return overrides, nil
}
