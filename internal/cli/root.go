// Package cli wires the quantcal cobra commands.
package cli

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/rmarkell/quantcal/internal/logging"
)

// isTerminal checks if the given file is a terminal.
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// logger is the package-level logger for CLI operations.
var logger zerolog.Logger //nolint:gochecknoglobals // Required for zerolog context integration

// NewRootCmd creates the root cobra command for the quantcal CLI.
// It wires up logging, tracing, and the calibrate, benchmark, cache, and
// config subcommands.
func NewRootCmd(ver string) *cobra.Command {
	var logResult *logging.Result

	cmd := &cobra.Command{
		Use:   "quantcal",
		Short: "Post-training quantization calibration and speedup benchmarking",
		Long: `quantcal calibrates INT8 quantization ranges for a pretrained image-classification
model over a pool of representative samples, builds an accelerated engine from the
result, and measures its accuracy and latency against the FP32 baseline.

Calibration results are cached on disk and reused across runs.`,
		Version: ver,
		Example: rootCmdExample,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			result := setupLogging(cmd)
			logResult = result
			return nil
		},
		PersistentPostRunE: func(_ *cobra.Command, _ []string) error {
			if logResult != nil {
				return logResult.Close()
			}
			return nil
		},
	}

	cmd.PersistentFlags().Bool("debug", false, "enable debug logging")
	cmd.AddCommand(newCalibrateCmd(), newBenchmarkCmd(), newCacheCmd(), newConfigCmd())

	return cmd
}

const rootCmdExample = `  # Calibrate INT8 ranges over 512 samples, caching the result
  quantcal calibrate --model lenet.json --images train-images-idx3-ubyte.gz --samples 512

  # Benchmark the INT8 engine against the FP32 baseline
  quantcal benchmark --model lenet.json \
    --images t10k-images-idx3-ubyte.gz --labels t10k-labels-idx1-ubyte.gz

  # Inspect the calibration cache for a model
  quantcal cache info --model-name lenet

  # Initialize configuration
  quantcal config init`
