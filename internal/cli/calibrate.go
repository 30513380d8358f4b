package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rmarkell/quantcal/internal/calib"
	"github.com/rmarkell/quantcal/internal/calib/cache"
	"github.com/rmarkell/quantcal/internal/config"
	"github.com/rmarkell/quantcal/internal/model"
	"github.com/rmarkell/quantcal/internal/tui"
)

// calibrateOptions holds the calibrate command's flag values.
type calibrateOptions struct {
	modelPath  string
	imagesPath string
	labelsPath string
	cachePath  string
	samples    int
	batchSize  int
	passes     int
	force      bool
	useTUI     bool
}

// newCalibrateCmd creates the calibrate command. It runs (or reuses) a
// calibration sweep and persists the resulting ranges as a cache artifact.
func newCalibrateCmd() *cobra.Command {
	var opts calibrateOptions

	cmd := &cobra.Command{
		Use:   "calibrate",
		Short: "Run post-training quantization calibration over a sample pool",
		Long: `Loads a pretrained model and a pool of representative images, sweeps the model
over the pool in fixed-size batches while observing per-tensor activation ranges,
and persists the result as a calibration cache artifact.

A later run with the same model, pool size, and batching reuses the artifact and
skips the sweep. Use --force to discard an existing artifact first.`,
		Example: `  # Calibrate with defaults from config
  quantcal calibrate --model lenet.json --images train-images-idx3-ubyte.gz

  # Calibrate 512 samples in batches of 64, with a live progress bar
  quantcal calibrate --model lenet.json --images train-images-idx3-ubyte.gz \
    --samples 512 --batch-size 64 --tui`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCalibrate(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.modelPath, "model", "", "path to the model manifest")
	cmd.Flags().StringVar(&opts.imagesPath, "images", "", "path to the IDX image file")
	cmd.Flags().StringVar(&opts.labelsPath, "labels", "", "path to the IDX label file (optional)")
	cmd.Flags().StringVar(&opts.cachePath, "cache", "", "calibration cache path (default derived from model name)")
	cmd.Flags().IntVar(&opts.samples, "samples", 0, "cap the calibration pool to the first N samples")
	cmd.Flags().IntVar(&opts.batchSize, "batch-size", 0, "samples per calibration batch")
	cmd.Flags().IntVar(&opts.passes, "passes", 0, "full sweeps over the pool")
	cmd.Flags().BoolVar(&opts.force, "force", false, "discard any existing cache artifact before calibrating")
	cmd.Flags().BoolVar(&opts.useTUI, "tui", false, "show a live progress bar (requires a terminal)")
	_ = cmd.MarkFlagRequired("model")
	_ = cmd.MarkFlagRequired("images")

	return cmd
}

// runCalibrate executes the calibration flow.
func runCalibrate(cmd *cobra.Command, opts calibrateOptions) error {
	cfg := config.New()

	m, err := model.Load(opts.modelPath)
	if err != nil {
		return err
	}

	pool, err := loadPool(opts.imagesPath, opts.labelsPath, opts.samples)
	if err != nil {
		return err
	}

	cachePath := opts.cachePath
	if cachePath == "" {
		cachePath = cfg.CachePathFor(m.Name)
	}
	if opts.force {
		if err := cache.NewStore().Remove(cachePath); err != nil {
			return err
		}
	}

	batcher, err := calib.NewBatcher(pool.Samples, cachePath, resolveInt(opts.batchSize, cfg.Calibration.BatchSize))
	if err != nil {
		return err
	}

	cal, err := calib.NewCalibrator(m, batcher, resolveInt(opts.passes, cfg.Calibration.Passes))
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	var (
		ranges calib.Ranges
		cached bool
	)

	if opts.useTUI && isTerminal(os.Stderr) {
		ranges, cached, err = runWithProgressTUI(cmd, cal)
	} else {
		ranges, cached, err = cal.Run(ctx)
	}
	if err != nil {
		return err
	}

	if cached {
		cmd.Printf("Reused calibration cache at %s (%d tensors)\n", cachePath, len(ranges))
		return nil
	}

	cmd.Printf("Calibrated %d tensors over %d samples (run %s)\n",
		len(ranges), batcher.PoolLen(), cal.RunID())
	cmd.Printf("Cache artifact written to %s\n", cachePath)
	return nil
}

// runWithProgressTUI runs the calibration on a goroutine while the progress
// view owns the terminal. The update channel is closed when the sweep ends,
// which tells the view to exit.
func runWithProgressTUI(cmd *cobra.Command, cal *calib.Calibrator) (calib.Ranges, bool, error) {
	updates := make(chan calib.Progress, 1)
	cal.WithProgressCallback(func(p calib.Progress) {
		// Drop updates rather than stall the sweep behind the renderer.
		select {
		case updates <- p:
		default:
		}
	})

	type outcome struct {
		ranges calib.Ranges
		cached bool
		err    error
	}
	results := make(chan outcome, 1)

	go func() {
		ranges, cached, err := cal.Run(cmd.Context())
		close(updates)
		results <- outcome{ranges: ranges, cached: cached, err: err}
	}()

	if err := tui.Run(updates); err != nil {
		logger.Warn().Err(err).Msg("progress view failed, calibration continues")
	}

	res := <-results
	if res.err != nil {
		return nil, false, fmt.Errorf("calibration: %w", res.err)
	}
	return res.ranges, res.cached, nil
}
