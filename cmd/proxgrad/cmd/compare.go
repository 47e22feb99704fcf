package cmd

import (
	"github.com/spf13/cobra"

	"github.com/armadaproject/proxgrad/internal/common/tensor"
	"github.com/armadaproject/proxgrad/internal/proxgrad/configuration"
)

func compareCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Compare the fused optimiser against its reference over a grid of hyperparameters",
		Long: `Compare runs every hyperparameter combination of the configured grid in every configured mode,
updating the same weight with the fused optimiser and with its dense reference implementation,
and reports every element on which they disagree beyond tolerance.`,
		RunE: compare,
	}
	cmd.Flags().Int64("seed", 0, "Seed from which the seed of each case is derived; overrides harness.seed")
	cmd.Flags().Int("steps", 0, "Number of updates per case; overrides harness.steps")
	cmd.Flags().StringSlice("dtype", nil, "Element types to compare (float32, float64); overrides harness.dTypes")
	cmd.Flags().Int("parallelism", 0, "Number of cases run concurrently; overrides harness.parallelism")
	cmd.Flags().String("junit", "", "Also write the report to this path as JUnit XML; overrides harness.junitReport")
	return cmd
}

func compare(cmd *cobra.Command, _ []string) error {
	overrides, err := compareOverrides(cmd)
	if err != nil {
		return err
	}
	a, err := newApp(cmd, overrides...)
	if err != nil {
		return err
	}
	_, err = a.Compare(commandContext(cmd))
	return err
}

func compareOverrides(cmd *cobra.Command) ([]func(c *configuration.Configuration), error) {
	var overrides []func(c *configuration.Configuration)
	flags := cmd.Flags()
	if flags.Changed("seed") {
		seed, err := flags.GetInt64("seed")
		if err != nil {
			return nil, err
		}
		overrides = append(overrides, func(c *configuration.Configuration) { c.Harness.Seed = seed })
	}
	if flags.Changed("steps") {
		steps, err := flags.GetInt("steps")
		if err != nil {
			return nil, err
		}
		overrides = append(overrides, func(c *configuration.Configuration) { c.Harness.Steps = steps })
	}
	if flags.Changed("dtype") {
		names, err := flags.GetStringSlice("dtype")
		if err != nil {
			return nil, err
		}
		dtypes := make([]tensor.DType, len(names))
		for i, name := range names {
			if dtypes[i], err = tensor.ParseDType(name); err != nil {
				return nil, err
			}
		}
		overrides = append(overrides, func(c *configuration.Configuration) { c.Harness.DTypes = dtypes })
	}
	if flags.Changed("parallelism") {
		parallelism, err := flags.GetInt("parallelism")
		if err != nil {
			return nil, err
		}
		overrides = append(overrides, func(c *configuration.Configuration) { c.Harness.Parallelism = parallelism })
	}
	if flags.Changed("junit") {
		path, err := flags.GetString("junit")
		if err != nil {
			return nil, err
		}
		overrides = append(overrides, func(c *configuration.Configuration) { c.Harness.JUnitReport = path })
	}
	return overrides, nil
}
