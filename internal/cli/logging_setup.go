package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/rmarkell/quantcal/internal/config"
	"github.com/rmarkell/quantcal/internal/logging"
)

// setupLogging configures logging based on config file, environment, and
// CLI flags, attaches a trace ID, and stores the logger on the command
// context. Returns the logging result so the log file can be closed after
// the command runs.
func setupLogging(cmd *cobra.Command) *logging.Result {
	loggingCfg := config.New().Logging

	debug, _ := cmd.Flags().GetBool("debug")
	if debug {
		loggingCfg.Level = "debug"
		loggingCfg.Format = "console"
		loggingCfg.File = ""
	}

	if envLevel := os.Getenv(config.EnvLogLevel); envLevel != "" && !debug {
		loggingCfg.Level = envLevel
	}

	result := logging.NewLogger(logging.Config{
		Level:  loggingCfg.Level,
		Format: loggingCfg.Format,
		File:   loggingCfg.File,
		Caller: debug,
	})
	logger = logging.ComponentLogger(result.Logger, "cli")

	ctx := cmd.Context()
	traceID := logging.GetOrGenerateTraceID(ctx)
	ctx = logging.ContextWithTraceID(ctx, traceID)
	ctx = logger.WithContext(ctx)
	cmd.SetContext(ctx)

	logger.Debug().Str("command", cmd.Name()).Str("trace_id", traceID).Msg("command started")

	return &result
}
