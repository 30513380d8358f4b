package report

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/rmarkell/quantcal/internal/engine"
	"github.com/rmarkell/quantcal/internal/model"
)

func TestResult_Throughput(t *testing.T) {
	tests := []struct {
		name string
		mean time.Duration
		want float64
	}{
		{"OneMillisecond", time.Millisecond, 1000},
		{"TenMilliseconds", 10 * time.Millisecond, 100},
		{"ZeroMean", 0, 0},
		{"NegativeMean", -time.Millisecond, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Result{Latency: engine.LatencyStats{Mean: tt.mean}}
			assert.InDelta(t, tt.want, r.Throughput(), 1e-9)
		})
	}
}

func TestRender(t *testing.T) {
	baseline := Result{
		Label:     "baseline FP32",
		Precision: model.PrecisionFP32,
		Accuracy:  0.97,
		Latency: engine.LatencyStats{
			Mean: 4 * time.Millisecond,
			P50:  3 * time.Millisecond,
			P99:  9 * time.Millisecond,
		},
		Samples: 1000,
	}
	accelerated := Result{
		Label:     "INT8",
		Precision: model.PrecisionINT8,
		Accuracy:  0.96,
		Latency: engine.LatencyStats{
			Mean: time.Millisecond,
			P50:  time.Millisecond,
			P99:  2 * time.Millisecond,
		},
		Samples: 1000,
	}

	var buf strings.Builder
	Render(&buf, "mnist-mlp", baseline, accelerated)
	out := buf.String()

	assert.Contains(t, out, "mnist-mlp")
	assert.Contains(t, out, "baseline FP32")
	assert.Contains(t, out, "INT8")
	assert.Contains(t, out, "97.00%")
	assert.Contains(t, out, "96.00%")
	assert.Contains(t, out, "4.00x")
	assert.Contains(t, out, "-1.00%")
	assert.Contains(t, out, "1,000")
}

func TestRender_UnmeasuredLatency(t *testing.T) {
	var buf strings.Builder
	Render(&buf, "m", Result{Label: "a"}, Result{Label: "b"})

	assert.Contains(t, buf.String(), "n/a")
}

func TestFormatNumber(t *testing.T) {
	assert.Equal(t, "0", FormatNumber(0))
	assert.Equal(t, "999", FormatNumber(999))
	assert.Equal(t, "18,248", FormatNumber(18248))
	assert.Equal(t, "1,234,567", FormatNumber(1234567))
}

func TestFormatFloat(t *testing.T) {
	assert.Equal(t, "3.14", FormatFloat(3.14159, 2))
	assert.Equal(t, "12,345.6", FormatFloat(12345.61, 1))
	assert.Equal(t, "1", FormatFloat(0.9, 0))
}

func TestFormatPercent(t *testing.T) {
	assert.Equal(t, "97.50%", FormatPercent(0.975))
	assert.Equal(t, "0.00%", FormatPercent(0))
	assert.Equal(t, "100.00%", FormatPercent(1))
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		name string
		d    time.Duration
		want string
	}{
		{"Zero", 0, "n/a"},
		{"Negative", -time.Second, "n/a"},
		{"Microseconds", 250 * time.Microsecond, "250.0µs"},
		{"Milliseconds", 4200 * time.Microsecond, "4.20ms"},
		{"Seconds", 1500 * time.Millisecond, "1.50s"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatDuration(tt.d))
		})
	}
}
