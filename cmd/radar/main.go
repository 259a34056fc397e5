package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	rootCmd := &cobra.Command{
		Use:     "radar",
		Short:   "GPU-accelerated radar signal processing engine",
		Long:    "radar drives a fractional-delay Lagrange interpolation processor and a batched antenna FFT + peak extractor over OpenCL.",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	}

	rootCmd.AddCommand(
		newDevicesCommand(),
		newBenchCommand(),
		newDelayCommand(),
		newFFTCommand(),
		newReportCommand(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
