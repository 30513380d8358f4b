package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rmarkell/quantcal/internal/calib"
	"github.com/rmarkell/quantcal/internal/config"
	"github.com/rmarkell/quantcal/internal/dataset"
	"github.com/rmarkell/quantcal/internal/engine"
	"github.com/rmarkell/quantcal/internal/model"
	"github.com/rmarkell/quantcal/internal/report"
)

// Benchmark defaults.
const (
	// defaultCalibSamples is how many leading samples calibrate when the
	// flag is unset.
	defaultCalibSamples = 512

	// defaultEvalSamples caps the evaluation pool when the flag is unset.
	defaultEvalSamples = 1000
)

// benchmarkOptions holds the benchmark command's flag values.
type benchmarkOptions struct {
	modelPath    string
	imagesPath   string
	labelsPath   string
	cachePath    string
	precision    string
	evalSamples  int
	calibSamples int
	batchSize    int
	passes       int
	warmup       int
}

// newBenchmarkCmd creates the benchmark command. It calibrates (or reuses a
// cached calibration), builds baseline and accelerated engines, and reports
// accuracy and latency for both.
func newBenchmarkCmd() *cobra.Command {
	var opts benchmarkOptions

	cmd := &cobra.Command{
		Use:   "benchmark",
		Short: "Compare an accelerated engine against the FP32 baseline",
		Long: `Splits a labeled image pool into a calibration head and an evaluation tail,
calibrates quantization ranges over the head (reusing a cached artifact when one
matches), builds FP32 baseline and accelerated engines, and measures top-1
accuracy and per-inference latency for both.`,
		Example: `  # INT8 engine vs FP32 baseline on the MNIST test set
  quantcal benchmark --model lenet.json \
    --images t10k-images-idx3-ubyte.gz --labels t10k-labels-idx1-ubyte.gz

  # FP16 comparison over 2000 evaluation samples
  quantcal benchmark --model lenet.json --precision fp16 --samples 2000 \
    --images t10k-images-idx3-ubyte.gz --labels t10k-labels-idx1-ubyte.gz`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBenchmark(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.modelPath, "model", "", "path to the model manifest")
	cmd.Flags().StringVar(&opts.imagesPath, "images", "", "path to the IDX image file")
	cmd.Flags().StringVar(&opts.labelsPath, "labels", "", "path to the IDX label file")
	cmd.Flags().StringVar(&opts.cachePath, "cache", "", "calibration cache path (default derived from model name)")
	cmd.Flags().StringVar(&opts.precision, "precision", string(model.PrecisionINT8), "accelerated engine precision (INT8, FP16, FP32)")
	cmd.Flags().IntVar(&opts.evalSamples, "samples", defaultEvalSamples, "cap the evaluation pool to the first N samples")
	cmd.Flags().IntVar(&opts.calibSamples, "calib-samples", defaultCalibSamples, "samples used for calibration")
	cmd.Flags().IntVar(&opts.batchSize, "batch-size", 0, "samples per calibration batch")
	cmd.Flags().IntVar(&opts.passes, "passes", 0, "full calibration sweeps over the pool")
	cmd.Flags().IntVar(&opts.warmup, "warmup", -1, "inferences discarded before latency measurement")
	_ = cmd.MarkFlagRequired("model")
	_ = cmd.MarkFlagRequired("images")
	_ = cmd.MarkFlagRequired("labels")

	return cmd
}

// runBenchmark executes the benchmark flow.
func runBenchmark(cmd *cobra.Command, opts benchmarkOptions) error {
	ctx := cmd.Context()
	cfg := config.New()

	precision, err := model.ParsePrecision(opts.precision)
	if err != nil {
		return fmt.Errorf("--precision: %w", err)
	}

	m, err := model.Load(opts.modelPath)
	if err != nil {
		return err
	}

	pool, err := loadPool(opts.imagesPath, opts.labelsPath, 0)
	if err != nil {
		return err
	}

	calibPool, evalPool, err := splitPools(pool, opts.calibSamples)
	if err != nil {
		return err
	}
	evalPool = evalPool.Take(opts.evalSamples)

	ranges, err := calibrateForBenchmark(cmd, cfg, m, calibPool, opts)
	if err != nil {
		return err
	}

	baseline, err := engine.Build(m, nil, m.InputShape, model.PrecisionFP32)
	if err != nil {
		return err
	}
	accelerated, err := engine.Build(m, ranges, m.InputShape, precision)
	if err != nil {
		return err
	}

	baselineResult, err := measure(ctx, "baseline FP32", baseline, evalPool, opts.warmup)
	if err != nil {
		return err
	}
	acceleratedResult, err := measure(ctx, "accelerated "+string(precision), accelerated, evalPool, opts.warmup)
	if err != nil {
		return err
	}

	report.Render(cmd.OutOrStdout(), m.Name, baselineResult, acceleratedResult)
	return nil
}

// splitPools carves the calibration head off the pool, shrinking the head
// when the pool is too small to honor the requested size.
func splitPools(pool *dataset.Pool, calibSamples int) (head, tail *dataset.Pool, err error) {
	if calibSamples >= pool.Len() {
		calibSamples = pool.Len() / 2
	}
	if calibSamples < 1 {
		return nil, nil, fmt.Errorf("pool of %d samples is too small to split for calibration", pool.Len())
	}
	return pool.Split(calibSamples)
}

// calibrateForBenchmark runs (or reuses) the calibration sweep over the
// calibration head.
func calibrateForBenchmark(
	cmd *cobra.Command,
	cfg *config.Config,
	m *model.Model,
	calibPool *dataset.Pool,
	opts benchmarkOptions,
) (calib.Ranges, error) {
	cachePath := opts.cachePath
	if cachePath == "" {
		cachePath = cfg.CachePathFor(m.Name)
	}

	batcher, err := calib.NewBatcher(calibPool.Samples, cachePath, resolveInt(opts.batchSize, cfg.Calibration.BatchSize))
	if err != nil {
		return nil, err
	}

	cal, err := calib.NewCalibrator(m, batcher, resolveInt(opts.passes, cfg.Calibration.Passes))
	if err != nil {
		return nil, err
	}

	ranges, cached, err := cal.Run(cmd.Context())
	if err != nil {
		return nil, fmt.Errorf("calibration: %w", err)
	}
	if cached {
		cmd.PrintErrf("Reusing calibration cache at %s\n", cachePath)
	}
	return ranges, nil
}

// measure evaluates one engine's accuracy and latency over the pool.
func measure(
	ctx context.Context,
	label string,
	eng *engine.Engine,
	pool *dataset.Pool,
	warmup int,
) (report.Result, error) {
	accuracy, err := engine.EvaluateAccuracy(ctx, eng, pool)
	if err != nil {
		return report.Result{}, fmt.Errorf("%s accuracy: %w", label, err)
	}

	latency, err := engine.MeasureLatency(ctx, eng, pool, warmup)
	if err != nil {
		return report.Result{}, fmt.Errorf("%s latency: %w", label, err)
	}

	return report.Result{
		Label:     label,
		Precision: eng.Precision(),
		Accuracy:  accuracy,
		Latency:   latency,
		Samples:   pool.Len(),
	}, nil
}
