// Package report renders benchmark results comparing a baseline engine
// against an accelerated one.
package report

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/rmarkell/quantcal/internal/engine"
	"github.com/rmarkell/quantcal/internal/model"
)

// printer is the locale-aware message printer for number formatting.
//
//nolint:gochecknoglobals // Global printer is idiomatic for x/text/message usage.
var printer = message.NewPrinter(language.English)

// Result holds one engine's measured accuracy and latency.
type Result struct {
	// Label names the engine in the report (e.g. "baseline FP32").
	Label string

	// Precision is the engine precision.
	Precision model.Precision

	// Accuracy is top-1 accuracy in [0, 1].
	Accuracy float64

	// Latency summarizes per-inference wall times.
	Latency engine.LatencyStats

	// Samples is the number of evaluated samples.
	Samples int
}

// Throughput returns inferences per second at the mean latency.
func (r Result) Throughput() float64 {
	if r.Latency.Mean <= 0 {
		return 0
	}
	return float64(time.Second) / float64(r.Latency.Mean)
}

// Styles used across the report.
//
//nolint:gochecknoglobals // Static lipgloss styles, shared across renders.
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Border(lipgloss.NormalBorder(), false, false, true, false)

	headerStyle = lipgloss.NewStyle().Bold(true).Faint(true)

	betterStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	worseStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
)

// Render writes a styled comparison of baseline and accelerated results.
func Render(w io.Writer, modelName string, baseline, accelerated Result) {
	fmt.Fprintln(w, titleStyle.Render(fmt.Sprintf("quantcal benchmark: %s", modelName)))
	fmt.Fprintln(w)

	const rowFormat = "%-18s %10s %12s %12s %12s %14s\n"
	fmt.Fprintf(w, rowFormat,
		headerStyle.Render("engine"), "accuracy", "mean", "p50", "p99", "inferences/s")

	for _, r := range []Result{baseline, accelerated} {
		fmt.Fprintf(w, rowFormat,
			r.Label,
			FormatPercent(r.Accuracy),
			FormatDuration(r.Latency.Mean),
			FormatDuration(r.Latency.P50),
			FormatDuration(r.Latency.P99),
			FormatFloat(r.Throughput(), 1),
		)
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "speedup: %s    accuracy delta: %s    samples: %s\n",
		renderSpeedup(baseline, accelerated),
		renderAccuracyDelta(baseline, accelerated),
		FormatNumber(int64(accelerated.Samples)),
	)
}

// renderSpeedup colors the latency ratio green above 1x, red below.
func renderSpeedup(baseline, accelerated Result) string {
	if accelerated.Latency.Mean <= 0 || baseline.Latency.Mean <= 0 {
		return "n/a"
	}
	ratio := float64(baseline.Latency.Mean) / float64(accelerated.Latency.Mean)
	text := FormatFloat(ratio, 2) + "x"
	if ratio >= 1 {
		return betterStyle.Render(text)
	}
	return worseStyle.Render(text)
}

// renderAccuracyDelta colors the accuracy change by sign.
func renderAccuracyDelta(baseline, accelerated Result) string {
	delta := accelerated.Accuracy - baseline.Accuracy
	text := fmt.Sprintf("%+.2f%%", delta*100)
	if delta >= 0 {
		return betterStyle.Render(text)
	}
	return worseStyle.Render(text)
}

// FormatNumber formats an integer with thousand separators.
// Example: FormatNumber(18248) returns "18,248".
func FormatNumber(n int64) string {
	return printer.Sprintf("%d", n)
}

// FormatFloat formats a float with the given precision and thousand
// separators on the integer part.
func FormatFloat(f float64, precision int) string {
	return printer.Sprintf("%.*f", precision, f)
}

// FormatPercent formats a [0,1] ratio as a percentage.
func FormatPercent(ratio float64) string {
	return fmt.Sprintf("%.2f%%", ratio*100)
}

// FormatDuration formats a latency value at microsecond-friendly precision.
func FormatDuration(d time.Duration) string {
	switch {
	case d <= 0:
		return "n/a"
	case d < time.Millisecond:
		return fmt.Sprintf("%.1fµs", float64(d)/float64(time.Microsecond))
	case d < time.Second:
		return fmt.Sprintf("%.2fms", float64(d)/float64(time.Millisecond))
	default:
		return fmt.Sprintf("%.2fs", d.Seconds())
	}
}
