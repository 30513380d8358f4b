package engine

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rmarkell/quantcal/internal/dataset"
)

// DefaultWarmupRuns is the number of inferences discarded before latency
// measurement starts.
const DefaultWarmupRuns = 5

// Evaluation errors.
var (
	ErrUnlabeledPool = errors.New("accuracy evaluation requires a labeled pool")
	ErrNoSamples     = errors.New("evaluation pool cannot be empty")
)

// Inferencer is the inference contract an acceleration engine exposes.
type Inferencer interface {
	Inference(in *dataset.Tensor) (*dataset.Tensor, time.Duration, error)
}

// LatencyStats summarizes per-inference wall times.
type LatencyStats struct {
	Mean time.Duration
	P50  time.Duration
	P99  time.Duration
}

// EvaluateAccuracy runs the engine over a labeled pool and returns top-1
// accuracy in [0, 1]. Samples are evaluated concurrently, bounded by the
// CPU count; per-call timings are ignored here since concurrency skews them.
func EvaluateAccuracy(ctx context.Context, inf Inferencer, pool *dataset.Pool) (float64, error) {
	if pool == nil || pool.Len() == 0 {
		return 0, ErrNoSamples
	}
	if !pool.Labeled() {
		return 0, ErrUnlabeledPool
	}

	var correct atomic.Int64

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())

	for i := range pool.Samples {
		i := i
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			out, _, err := inf.Inference(pool.Samples[i])
			if err != nil {
				return fmt.Errorf("sample %d: %w", i, err)
			}
			if out.ArgMax() == pool.Labels[i] {
				correct.Add(1)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return 0, err
	}

	return float64(correct.Load()) / float64(pool.Len()), nil
}

// MeasureLatency runs the engine sequentially over the pool and returns
// latency statistics. The first warmup inferences are discarded; pass a
// negative warmup to use DefaultWarmupRuns.
func MeasureLatency(ctx context.Context, inf Inferencer, pool *dataset.Pool, warmup int) (LatencyStats, error) {
	if pool == nil || pool.Len() == 0 {
		return LatencyStats{}, ErrNoSamples
	}
	if warmup < 0 {
		warmup = DefaultWarmupRuns
	}
	if warmup >= pool.Len() {
		warmup = pool.Len() - 1
	}

	durations := make([]time.Duration, 0, pool.Len()-warmup)
	for i, sample := range pool.Samples {
		if err := ctx.Err(); err != nil {
			return LatencyStats{}, err
		}

		_, elapsed, err := inf.Inference(sample)
		if err != nil {
			return LatencyStats{}, fmt.Errorf("sample %d: %w", i, err)
		}
		if i >= warmup {
			durations = append(durations, elapsed)
		}
	}

	return summarize(durations), nil
}

// summarize computes mean/p50/p99 over a non-empty duration set.
func summarize(durations []time.Duration) LatencyStats {
	sort.Slice(durations, func(i, j int) bool { return durations[i] < durations[j] })

	var total time.Duration
	for _, d := range durations {
		total += d
	}

	return LatencyStats{
		Mean: total / time.Duration(len(durations)),
		P50:  percentile(durations, 50),
		P99:  percentile(durations, 99),
	}
}

// percentile returns the nearest-rank percentile of sorted durations.
func percentile(sorted []time.Duration, p int) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	rank := (p*len(sorted) + 99) / 100 // Ceil of p% of n.
	if rank < 1 {
		rank = 1
	}
	if rank > len(sorted) {
		rank = len(sorted)
	}
	return sorted[rank-1]
}
