package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// version is set at build time via -ldflags.
var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "ocvdiag",
	Short: "Battery OCV degradation diagnostics",
	Long: "ocvdiag builds pristine and degraded open-circuit-voltage curves from\n" +
		"half-cell data and fits degradation parameters (LLI, LAM) to measured curves.",
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
}

var rootFlags struct {
	dataDir string
}

func init() {
	rootCmd.PersistentFlags().StringVar(&rootFlags.dataDir, "data-dir", "./data", "Data directory holding pristine/ profiles and half-cell CSVs")
	rootCmd.AddCommand(curvesCmd)
	rootCmd.AddCommand(fitCmd)
	rootCmd.AddCommand(synthCmd)
	rootCmd.Version = version
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
