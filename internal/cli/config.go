package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rmarkell/quantcal/internal/config"
)

// newConfigCmd creates the config command group.
func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage quantcal configuration",
	}
	cmd.AddCommand(newConfigInitCmd(), newConfigValidateCmd())
	return cmd
}

// newConfigInitCmd creates the config init command.
func newConfigInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize the configuration file with default values",
		Example: `  # Create ~/.quantcal/config.yaml
  quantcal config init

  # Overwrite an existing configuration
  quantcal config init --force`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConfigInit(cmd, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "overwrite existing configuration file")

	return cmd
}

// runConfigInit writes the default configuration.
func runConfigInit(cmd *cobra.Command, force bool) error {
	cfg := config.Default()

	if !force {
		if _, err := os.Stat(cfg.ConfigPath()); err == nil {
			return errors.New("configuration file already exists, use --force to overwrite")
		} else if !os.IsNotExist(err) {
			return fmt.Errorf("cannot access config path %s: %w", cfg.ConfigPath(), err)
		}
	}

	if err := cfg.Save(); err != nil {
		return err
	}

	cmd.Printf("Configuration written to %s\n", cfg.ConfigPath())
	return nil
}

// newConfigValidateCmd creates the config validate command.
func newConfigValidateCmd() *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration file",
		Example: `  # Validate current configuration
  quantcal config validate

  # Validate and show detailed information
  quantcal config validate --verbose`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConfigValidate(cmd, verbose)
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "show detailed validation information")

	return cmd
}

// runConfigValidate executes the configuration validation logic.
func runConfigValidate(cmd *cobra.Command, verbose bool) error {
	cfg := config.New()

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	cmd.Println("Configuration is valid")

	if verbose {
		cmd.Println()
		cmd.Println("Configuration details:")
		cmd.Printf("  Dataset dir:     %s\n", cfg.Dataset.Dir)
		cmd.Printf("  Batch size:      %d\n", cfg.Calibration.BatchSize)
		cmd.Printf("  Passes:          %d\n", cfg.Calibration.Passes)
		cmd.Printf("  Cache dir:       %s\n", cfg.Calibration.CacheDir)
		cmd.Printf("  Logging level:   %s\n", cfg.Logging.Level)
		cmd.Printf("  Logging format:  %s\n", cfg.Logging.Format)
		cmd.Printf("  Log file:        %s\n", cfg.Logging.File)
	}

	return nil
}
