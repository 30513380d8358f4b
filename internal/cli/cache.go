package cli

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/rmarkell/quantcal/internal/calib"
	"github.com/rmarkell/quantcal/internal/calib/cache"
	"github.com/rmarkell/quantcal/internal/config"
)

// newCacheCmd creates the cache command group.
func newCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and manage calibration cache artifacts",
	}
	cmd.AddCommand(newCacheInfoCmd(), newCacheClearCmd())
	return cmd
}

// newCacheInfoCmd creates the cache info command.
func newCacheInfoCmd() *cobra.Command {
	var (
		path      string
		modelName string
	)

	cmd := &cobra.Command{
		Use:   "info",
		Short: "Show metadata for a calibration cache artifact",
		Example: `  quantcal cache info --model-name lenet
  quantcal cache info --path /tmp/lenet.calib.json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			resolved, err := resolveCachePath(path, modelName)
			if err != nil {
				return err
			}
			return runCacheInfo(cmd, resolved)
		},
	}

	cmd.Flags().StringVar(&path, "path", "", "cache artifact path")
	cmd.Flags().StringVar(&modelName, "model-name", "", "derive the path from a model name")

	return cmd
}

// runCacheInfo prints artifact metadata and the number of calibrated tensors.
func runCacheInfo(cmd *cobra.Command, path string) error {
	store := cache.NewStore()

	entry, err := store.Read(path)
	if err != nil {
		if errors.Is(err, cache.ErrNotFound) {
			return fmt.Errorf("no calibration cache at %s", path)
		}
		return err
	}

	size, err := store.Stat(path)
	if err != nil {
		return err
	}

	var ranges calib.Ranges
	tensors := "unknown"
	if err := json.Unmarshal(entry.Data, &ranges); err == nil {
		tensors = fmt.Sprintf("%d", len(ranges))
	}

	cmd.Printf("Path:        %s\n", path)
	cmd.Printf("Run ID:      %s\n", entry.RunID)
	cmd.Printf("Created:     %s\n", entry.CreatedAt.Format(time.RFC3339))
	cmd.Printf("Fingerprint: %s\n", entry.Fingerprint)
	cmd.Printf("Size:        %d bytes\n", size)
	cmd.Printf("Tensors:     %s\n", tensors)
	return nil
}

// newCacheClearCmd creates the cache clear command.
func newCacheClearCmd() *cobra.Command {
	var (
		path      string
		modelName string
		all       bool
	)

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove calibration cache artifacts",
		Example: `  quantcal cache clear --model-name lenet
  quantcal cache clear --all`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if all {
				return runCacheClearAll(cmd)
			}
			resolved, err := resolveCachePath(path, modelName)
			if err != nil {
				return err
			}
			if err := cache.NewStore().Remove(resolved); err != nil {
				return err
			}
			cmd.Printf("Removed %s\n", resolved)
			return nil
		},
	}

	cmd.Flags().StringVar(&path, "path", "", "cache artifact path")
	cmd.Flags().StringVar(&modelName, "model-name", "", "derive the path from a model name")
	cmd.Flags().BoolVar(&all, "all", false, "remove every artifact in the configured cache directory")

	return cmd
}

// runCacheClearAll removes every artifact under the configured cache dir.
func runCacheClearAll(cmd *cobra.Command) error {
	cfg := config.New()
	pattern := filepath.Join(cfg.Calibration.CacheDir, "*.calib.json")

	matches, err := filepath.Glob(pattern)
	if err != nil {
		return fmt.Errorf("listing cache artifacts: %w", err)
	}

	store := cache.NewStore()
	for _, m := range matches {
		if err := store.Remove(m); err != nil {
			return err
		}
	}

	cmd.Printf("Removed %d cache artifact(s) from %s\n", len(matches), cfg.Calibration.CacheDir)
	return nil
}

// resolveCachePath resolves the artifact path from --path or --model-name.
func resolveCachePath(path, modelName string) (string, error) {
	switch {
	case path != "" && modelName != "":
		return "", errors.New("--path and --model-name are mutually exclusive")
	case path != "":
		return path, nil
	case modelName != "":
		return config.New().CachePathFor(modelName), nil
	default:
		return "", errors.New("one of --path or --model-name is required")
	}
}
