package cmd

import (
	"github.com/spf13/cobra"

	"github.com/armadaproject/proxgrad/internal/proxgrad"
)

func versionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := &proxgrad.App{Out: cmd.OutOrStdout()}
			return a.Version()
		},
	}
	return cmd
}
