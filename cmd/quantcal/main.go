// Command quantcal calibrates INT8 quantization for pretrained models and
// benchmarks accelerated engines against the FP32 baseline.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rmarkell/quantcal/internal/cli"
	"github.com/rmarkell/quantcal/pkg/version"
)

func main() {
	os.Exit(run())
}

// run executes the root command and maps the outcome to an exit code.
// Kept separate from main so tests can exercise it.
func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := cli.NewRootCmd(version.GetVersion())
	if err := root.ExecuteContext(ctx); err != nil {
		return 1
	}
	return 0
}
