package cmd

import (
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/armadaproject/proxgrad/internal/common/armadacontext"
	commonconfig "github.com/armadaproject/proxgrad/internal/common/config"
	"github.com/armadaproject/proxgrad/internal/common/logging"
	"github.com/armadaproject/proxgrad/internal/proxgrad"
	"github.com/armadaproject/proxgrad/internal/proxgrad/configuration"
)

const (
	CustomConfigLocation string = "config"
	envPrefix            string = "PROXGRAD"
)

// Directory holding the base config.yaml. Relative to the working directory.
var defaultConfigPath = "./config/proxgrad"

// RootCmd is the root Cobra command that gets called from the main func.
// All other sub-commands should be registered here.
func RootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "proxgrad",
		SilenceUsage:  true,
		SilenceErrors: true,
		Short:         "proxgrad checks fused optimiser updates against reference implementations and trains with them.",
	}

	cmd.PersistentFlags().StringSlice(
		CustomConfigLocation,
		[]string{},
		"Fully qualified path to application configuration file (for multiple config files repeat this arg or separate paths with commas)")
	_ = viper.BindPFlag(CustomConfigLocation, cmd.PersistentFlags().Lookup(CustomConfigLocation))

	cmd.AddCommand(
		compareCmd(),
		trainCmd(),
		versionCmd(),
		configCmd(),
	)

	return cmd
}

func loadConfig() (configuration.Configuration, error) {
	var config configuration.Configuration
	userSpecifiedConfigs := viper.GetStringSlice(CustomConfigLocation)

	err := commonconfig.LoadConfig(&config, defaultConfigPath, userSpecifiedConfigs, envPrefix)
	return config, err
}

// newApp loads the config, applies overrides from flags, validates the result, and configures logging as it describes.
func newApp(cmd *cobra.Command, overrides ...func(c *configuration.Configuration)) (*proxgrad.App, error) {
	config, err := loadConfig()
	if err != nil {
		return nil, err
	}
	for _, override := range overrides {
		override(&config)
	}
	if err := config.Validate(); err != nil {
		commonconfig.LogValidationErrors(err)
		return nil, err
	}
	if err := logging.Configure(log.StandardLogger(), config.Logging); err != nil {
		return nil, err
	}
	a := proxgrad.New(config)
	a.Out = cmd.OutOrStdout()
	log.AddHook(logging.NewPrometheusHook(a.Registry))
	return a, nil
}

func commandContext(cmd *cobra.Command) *armadacontext.Context {
	if ctx, ok := cmd.Context().(*armadacontext.Context); ok {
		return ctx
	}
	return armadacontext.New(cmd.Context(), log.NewEntry(log.StandardLogger()))
}
