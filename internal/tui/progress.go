// Package tui provides the live calibration progress view.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/rmarkell/quantcal/internal/calib"
)

// progressBarWidth is the rendered width of the progress bar.
const progressBarWidth = 40

// updateMsg carries a calibration progress snapshot into the model.
type updateMsg calib.Progress

// doneMsg signals that the progress channel closed.
type doneMsg struct{}

// labelStyle renders the pass/batch counters next to the bar.
//
//nolint:gochecknoglobals // Static lipgloss style.
var labelStyle = lipgloss.NewStyle().Faint(true)

// Model is the bubbletea model for a calibration run. It consumes progress
// snapshots from a channel fed by the calibrator's progress callback and
// exits when the channel closes.
type Model struct {
	bar     progress.Model
	updates <-chan calib.Progress
	latest  calib.Progress
	done    bool
}

// NewModel creates a progress model reading from updates.
func NewModel(updates <-chan calib.Progress) Model {
	bar := progress.New(progress.WithDefaultGradient())
	bar.Width = progressBarWidth
	return Model{bar: bar, updates: updates}
}

// Init starts listening for progress updates.
func (m Model) Init() tea.Cmd {
	return m.waitForUpdate()
}

// waitForUpdate blocks on the next progress snapshot.
func (m Model) waitForUpdate() tea.Cmd {
	return func() tea.Msg {
		p, ok := <-m.updates
		if !ok {
			return doneMsg{}
		}
		return updateMsg(p)
	}
}

// Update handles progress snapshots, completion, and ctrl+c.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case updateMsg:
		m.latest = calib.Progress(msg)
		return m, m.waitForUpdate()
	case doneMsg:
		m.done = true
		return m, tea.Quit
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
	}
	return m, nil
}

// View renders the bar with pass and batch counters.
func (m Model) View() string {
	if m.done {
		return ""
	}

	var b strings.Builder
	b.WriteString("calibrating ")
	b.WriteString(m.bar.ViewAs(m.latest.PercentComplete() / 100))
	b.WriteString(labelStyle.Render(fmt.Sprintf("  pass %d/%d  batch %d/%d",
		m.latest.Pass+1, m.latest.TotalPasses, m.latest.Batches, m.latest.TotalBatches)))
	b.WriteString("\n")
	return b.String()
}

// Run drives the progress view until updates closes. It blocks; callers run
// the calibration on another goroutine and close the channel when finished.
func Run(updates <-chan calib.Progress) error {
	_, err := tea.NewProgram(NewModel(updates)).Run()
	return err
}
