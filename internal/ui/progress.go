package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"
)

// StepStatus represents the current state of one serial in a batch
type StepStatus int

const (
	StepPending  StepStatus = iota // Not yet started
	StepRunning                    // Request in flight
	StepComplete                   // Resolved to a model
	StepFailed                     // Lookup failed
)

// Step is one serial number in a batch lookup
type Step struct {
	Number  int        // Position in the batch (1-based)
	Name    string     // Serial number as entered
	Status  StepStatus // Current status
	Message string     // Model name or failure message
}

// Progress renders a progress bar and per-serial status lines for a batch
type Progress struct {
	Label     string
	Steps     []Step
	Total     int
	Percent   float64 // 0.0 - 1.0
	Width     int
	ShowBar   bool
	ShowSteps bool
	bar       progress.Model
}

// NewProgress creates a progress display with one step per serial
func NewProgress(label string, serials []string) *Progress {
	steps := make([]Step, len(serials))
	for i, serial := range serials {
		steps[i] = Step{
			Number: i + 1,
			Name:   serial,
			Status: StepPending,
		}
	}

	return &Progress{
		Label:     label,
		Steps:     steps,
		Total:     len(serials),
		Width:     GetTerminalWidth(),
		ShowBar:   true,
		ShowSteps: true,
		bar: progress.New(
			progress.WithDefaultGradient(),
			progress.WithWidth(40),
		),
	}
}

// SetWidth sets the terminal width for responsive rendering
func (p *Progress) SetWidth(width int) *Progress {
	p.Width = width
	barWidth := width - 20 // Leave room for percentage and counter
	if barWidth < 20 {
		barWidth = 20
	}
	if barWidth > 50 {
		barWidth = 50
	}
	p.bar = progress.New(
		progress.WithDefaultGradient(),
		progress.WithWidth(barWidth),
	)
	return p
}

// UpdateStep updates a step's status and message
func (p *Progress) UpdateStep(stepNumber int, status StepStatus, message string) {
	if stepNumber < 1 || stepNumber > len(p.Steps) {
		return
	}
	idx := stepNumber - 1
	p.Steps[idx].Status = status
	p.Steps[idx].Message = message

	if p.Total > 0 {
		p.Percent = float64(p.Done()) / float64(p.Total)
	}
}

// Done returns how many steps have finished, successfully or not
func (p *Progress) Done() int {
	done := 0
	for _, s := range p.Steps {
		if s.Status == StepComplete || s.Status == StepFailed {
			done++
		}
	}
	return done
}

// Failed returns how many steps failed
func (p *Progress) Failed() int {
	failed := 0
	for _, s := range p.Steps {
		if s.Status == StepFailed {
			failed++
		}
	}
	return failed
}

// Render returns the styled progress display as a string
func (p *Progress) Render() string {
	var b strings.Builder

	if p.Label != "" {
		b.WriteString(ProgressLabelStyle.Render(p.Label))
		b.WriteString("\n\n")
	}

	if p.ShowBar {
		b.WriteString(p.RenderBar())
		b.WriteString("\n\n")
	}

	if p.ShowSteps {
		lines := make([]string, 0, len(p.Steps))
		for _, step := range p.Steps {
			lines = append(lines, p.RenderStepLine(step))
		}
		b.WriteString(strings.Join(lines, "\n"))
	}

	return b.String()
}

// RenderBar renders the progress bar line
func (p *Progress) RenderBar() string {
	barView := p.bar.ViewAs(p.Percent)
	percentStr := fmt.Sprintf("%3.0f%%", p.Percent*100)
	countStr := fmt.Sprintf("[%d/%d]", p.Done(), p.Total)

	return lipgloss.NewStyle().
		PaddingLeft(2).
		Render(fmt.Sprintf("%s  %s  %s", barView, percentStr, countStr))
}

// RenderStepLine renders a single serial's status line
func (p *Progress) RenderStepLine(step Step) string {
	prefix := fmt.Sprintf("  [%d/%d]", step.Number, p.Total)

	var marker string
	var nameStyle lipgloss.Style
	switch step.Status {
	case StepComplete:
		marker = StepMarkerComplete
		nameStyle = StepCompleteStyle
	case StepRunning:
		marker = StepMarkerRunning
		nameStyle = StepRunningStyle
	case StepFailed:
		marker = FailureMarker
		nameStyle = ErrorTitleStyle
	default:
		marker = StepMarkerPending
		nameStyle = StepPendingStyle
	}

	var b strings.Builder
	b.WriteString(prefix)
	b.WriteString(" ")
	b.WriteString(nameStyle.Render(step.Name))

	// Keep markers in one column; 12 is the longest valid serial
	padding := 14 - lipgloss.Width(step.Name)
	if padding < 1 {
		padding = 1
	}
	b.WriteString(strings.Repeat(" ", padding))
	b.WriteString(nameStyle.Render(marker))

	if step.Message != "" {
		b.WriteString("  ")
		b.WriteString(StepNoteStyle.Render(step.Message))
	}

	return b.String()
}

// String implements fmt.Stringer
func (p *Progress) String() string {
	return p.Render()
}
