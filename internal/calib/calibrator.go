package calib

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/oklog/ulid/v2"

	"github.com/rmarkell/quantcal/internal/calib/cache"
	"github.com/rmarkell/quantcal/internal/dataset"
	"github.com/rmarkell/quantcal/internal/logging"
	"github.com/rmarkell/quantcal/internal/model"
)

// DefaultPasses is the number of sweeps over the pool when the
// configuration does not override it. One pass is enough for min/max
// observers; the knob exists because calibration backends may request more.
const DefaultPasses = 1

// Calibrator construction errors.
var (
	ErrNilModel       = errors.New("calibrator model cannot be nil")
	ErrNilBatcher     = errors.New("calibrator batcher cannot be nil")
	ErrInvalidPasses  = errors.New("calibration passes must be a positive integer")
	ErrNoObservations = errors.New("calibration produced no observations")
)

// Progress reports the state of a running calibration sweep.
type Progress struct {
	Pass         int
	TotalPasses  int
	Batches      int
	TotalBatches int
	Samples      int
	TotalSamples int
}

// PercentComplete returns overall completion across all passes (0-100).
func (p Progress) PercentComplete() float64 {
	total := p.TotalSamples * p.TotalPasses
	if total == 0 {
		return 0
	}
	done := p.Pass*p.TotalSamples + p.Samples
	return float64(done) / float64(total) * 100
}

// ProgressFunc receives progress updates after each calibration batch.
type ProgressFunc func(Progress)

// Calibrator sweeps a model over a batched sample pool, observing the range
// of every activation tensor, and persists the result at the batcher's
// cache path. A later run with a matching fingerprint reuses the artifact
// and skips the sweep.
type Calibrator struct {
	model   *model.Model
	batcher *Batcher[*dataset.Tensor]
	store   *cache.Store
	passes  int
	runID   string

	onProgress ProgressFunc
}

// NewCalibrator creates a calibrator driving the batcher through `passes`
// full sweeps of the pool.
func NewCalibrator(m *model.Model, b *Batcher[*dataset.Tensor], passes int) (*Calibrator, error) {
	if m == nil {
		return nil, ErrNilModel
	}
	if b == nil {
		return nil, ErrNilBatcher
	}
	if passes <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidPasses, passes)
	}

	return &Calibrator{
		model:   m,
		batcher: b,
		store:   cache.NewStore(),
		passes:  passes,
		runID:   ulid.Make().String(),
	}, nil
}

// WithProgressCallback sets a progress callback for the calibrator.
func (c *Calibrator) WithProgressCallback(fn ProgressFunc) *Calibrator {
	c.onProgress = fn
	return c
}

// RunID returns the identifier stamped on this calibration run.
func (c *Calibrator) RunID() string {
	return c.runID
}

// Fingerprint identifies the inputs of a calibration run: model identity and
// quantizable layers, pool length, batch size, and pass count. A cache
// artifact is only reused when its fingerprint matches.
func (c *Calibrator) Fingerprint() string {
	h := sha256.New()
	fmt.Fprintf(h, "model=%s/%s\n", c.model.Name, c.model.FormatVersion)
	fmt.Fprintf(h, "layers=%s\n", strings.Join(c.model.QuantizableLayers(), ","))
	fmt.Fprintf(h, "pool=%d batch=%d passes=%d\n",
		c.batcher.PoolLen(), c.batcher.BatchSize(), c.passes)
	return hex.EncodeToString(h.Sum(nil))
}

// Run performs the calibration sweep, or reuses a cached artifact when one
// with a matching fingerprint exists at the batcher's cache path.
// The boolean result is true when the ranges came from the cache.
func (c *Calibrator) Run(ctx context.Context) (Ranges, bool, error) {
	log := logging.FromContext(ctx)

	if ranges, ok := c.readCache(ctx); ok {
		return ranges, true, nil
	}

	start := time.Now()
	observers := make(map[string]*RangeObserver)
	observe := func(name string, values []float32) {
		o, ok := observers[name]
		if !ok {
			o = NewRangeObserver(name)
			observers[name] = o
		}
		o.Observe(values)
	}

	totalBatches := c.batcher.NumBatches()
	for pass := 0; pass < c.passes; pass++ {
		c.batcher.Reset()
		batches, samples := 0, 0

		for {
			if err := ctx.Err(); err != nil {
				return nil, false, err
			}

			batch, err := c.batcher.NextBatch()
			if errors.Is(err, ErrExhausted) {
				break
			}
			if err != nil {
				return nil, false, err
			}

			for _, sample := range batch {
				if _, err := c.model.Forward(sample, observe); err != nil {
					return nil, false, fmt.Errorf("calibration forward pass: %w", err)
				}
			}

			batches++
			samples += len(batch)
			if c.onProgress != nil {
				c.onProgress(Progress{
					Pass:         pass,
					TotalPasses:  c.passes,
					Batches:      batches,
					TotalBatches: totalBatches,
					Samples:      samples,
					TotalSamples: c.batcher.PoolLen(),
				})
			}
		}
	}

	if len(observers) == 0 {
		return nil, false, ErrNoObservations
	}

	ranges := make(Ranges, len(observers))
	for name, o := range observers {
		ranges[name] = o.Range()
	}

	log.Info().
		Str("run_id", c.runID).
		Int("tensors", len(ranges)).
		Int("samples", c.batcher.PoolLen()).
		Int("passes", c.passes).
		Dur("elapsed", time.Since(start)).
		Msg("calibration sweep complete")

	if err := c.writeCache(ctx, ranges); err != nil {
		return nil, false, err
	}

	return ranges, false, nil
}

// readCache attempts to reuse a persisted artifact. Corrupt or mismatched
// artifacts are treated as misses; the sweep will overwrite them.
func (c *Calibrator) readCache(ctx context.Context) (Ranges, bool) {
	path := c.batcher.CachePath()
	if path == "" {
		return nil, false
	}

	log := logging.FromContext(ctx)

	entry, err := c.store.Read(path)
	if err != nil {
		if errors.Is(err, cache.ErrCorrupt) {
			log.Warn().Str("path", path).Err(err).Msg("ignoring corrupt calibration cache")
		}
		return nil, false
	}

	if !entry.Matches(c.Fingerprint()) {
		log.Debug().Str("path", path).Msg("calibration cache fingerprint mismatch, recalibrating")
		return nil, false
	}

	var ranges Ranges
	if err := json.Unmarshal(entry.Data, &ranges); err != nil {
		log.Warn().Str("path", path).Err(err).Msg("ignoring undecodable calibration cache payload")
		return nil, false
	}

	log.Info().
		Str("path", path).
		Str("run_id", entry.RunID).
		Dur("age", entry.Age()).
		Msg("reusing calibration cache")
	return ranges, true
}

// writeCache persists the ranges at the batcher's cache path, if one is set.
func (c *Calibrator) writeCache(ctx context.Context, ranges Ranges) error {
	path := c.batcher.CachePath()
	if path == "" {
		return nil
	}

	payload, err := json.Marshal(ranges)
	if err != nil {
		return fmt.Errorf("encoding calibration ranges: %w", err)
	}

	entry := cache.NewEntry(c.runID, c.Fingerprint(), payload)
	if err := c.store.Write(path, entry); err != nil {
		return fmt.Errorf("persisting calibration cache: %w", err)
	}

	logging.FromContext(ctx).Debug().
		Str("path", path).
		Str("run_id", c.runID).
		Msg("calibration cache written")
	return nil
}
