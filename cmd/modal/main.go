// Command modal renders, inspects and fits modal resonator presets.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "modal",
		Short:         "modal resonator synthesis tools",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	rootCmd.AddCommand(
		newRenderCmd(),
		newModesCmd(),
		newPlotCmd(),
		newAnalyzeCmd(),
		newFitCmd(),
	)
	return rootCmd
}
