package ui

import (
	"fmt"
	"strings"

	"github.com/muurk/modelfinder/internal/lookup"
)

// ResultType indicates success or failure
type ResultType int

const (
	ResultSuccess ResultType = iota
	ResultFailure
)

// Result represents a result box for a single lookup
type Result struct {
	Type            ResultType // Success or failure
	Label           string     // Status word; defaults to FOUND or FAILED
	Title           string     // e.g., "C02ABCDEFGHI"
	Details         []Param    // Key-value details to display
	Error           error      // Error (for failure results)
	Troubleshooting []string   // Troubleshooting tips (for failure results)
	Width           int        // Terminal width
}

// NewSuccessResult creates a success result box
func NewSuccessResult(title string, details ...Param) *Result {
	return &Result{
		Type:    ResultSuccess,
		Title:   title,
		Details: details,
		Width:   GetTerminalWidth(),
	}
}

// NewFailureResult creates a failure result box
func NewFailureResult(title string, err error, troubleshooting []string) *Result {
	return &Result{
		Type:            ResultFailure,
		Title:           title,
		Error:           err,
		Troubleshooting: troubleshooting,
		Width:           GetTerminalWidth(),
	}
}

// NewLookupResult builds the box for a lookup outcome
func NewLookupResult(r lookup.Result) *Result {
	title := r.Serial
	if title == "" {
		title = "(empty)"
	}

	if !r.OK() {
		res := NewFailureResult(title, r.Err, lookup.GetTroubleshootingSteps(r.Err))
		if r.Key != "" {
			res.AddDetail("Lookup key", r.Key)
		}
		return res
	}

	model := r.Model
	if model == "" {
		model = "(no name returned)"
	}
	return NewSuccessResult(title,
		Param{Key: "Model", Value: model},
		Param{Key: "Lookup key", Value: r.Key},
	)
}

// SetWidth sets the terminal width for responsive rendering
func (r *Result) SetWidth(width int) *Result {
	r.Width = width
	return r
}

// AddDetail adds a detail key-value pair
func (r *Result) AddDetail(key, value string) *Result {
	r.Details = append(r.Details, Param{Key: key, Value: value})
	return r
}

// Render returns the styled result box as a string
func (r *Result) Render() string {
	width := r.Width
	if width < MinTerminalWidth {
		width = MinTerminalWidth
	}

	if r.Type == ResultFailure {
		return r.renderFailure(width)
	}
	return r.renderSuccess(width)
}

func (r *Result) renderSuccess(width int) string {
	lines := []string{
		"",
		SuccessTitleStyle.Render(fmt.Sprintf("   %s  %s  ─  %s", SuccessMarker, r.label("FOUND"), r.Title)),
		"",
	}
	lines = append(lines, r.detailLines()...)
	lines = append(lines, "")

	return SuccessBoxStyle(width).Render(strings.Join(lines, "\n"))
}

func (r *Result) renderFailure(width int) string {
	lines := []string{
		"",
		ErrorTitleStyle.Render(fmt.Sprintf("   %s  %s  ─  %s", FailureMarker, r.label("FAILED"), r.Title)),
		"",
	}

	if r.Error != nil {
		lines = append(lines, ErrorMessageStyle.Render("   Error: "+r.Error.Error()), "")
	}

	if len(r.Details) > 0 {
		lines = append(lines, r.detailLines()...)
		lines = append(lines, "")
	}

	if len(r.Troubleshooting) > 0 {
		lines = append(lines, r.renderTroubleshootingBox(width), "")
	}

	return ErrorBoxStyle(width).Render(strings.Join(lines, "\n"))
}

func (r *Result) label(def string) string {
	if r.Label != "" {
		return r.Label
	}
	return def
}

func (r *Result) detailLines() []string {
	lines := make([]string, 0, len(r.Details))
	for _, d := range r.Details {
		keyStyled := ResultKeyStyle.Render("   " + d.Key + ":")
		valueStyle := ResultValueStyle
		if d.Key == "Model" {
			valueStyle = ModelNameStyle
		}
		lines = append(lines, keyStyled+" "+valueStyle.Render(d.Value))
	}
	return lines
}

func (r *Result) renderTroubleshootingBox(width int) string {
	lines := []string{
		TroubleshootingTitleStyle.Render("Troubleshooting:"),
		"",
	}
	for _, tip := range r.Troubleshooting {
		lines = append(lines, TroubleshootingItemStyle.Render("  • "+tip))
	}
	return TroubleshootingBoxStyle(width).Render(strings.Join(lines, "\n"))
}

// String implements fmt.Stringer
func (r *Result) String() string {
	return r.Render()
}

// CompactLine renders a lookup result as a single line:
//
//	✓ C02ABCDEFGHI  FGHI  MacBook Pro (13-inch, 2016)
//	✗ ABCDE  Not a valid length
func CompactLine(r lookup.Result) string {
	if r.OK() {
		return fmt.Sprintf("%s %s  %s  %s",
			StepCompleteStyle.Render(SuccessMarker), r.Serial, r.Key, ModelNameStyle.Render(r.Model))
	}

	parts := []string{ErrorTitleStyle.Render(FailureMarker), r.Serial}
	if r.Key != "" {
		parts = append(parts, " "+r.Key)
	}
	return strings.Join(parts, " ") + "  " + ErrorMessageStyle.Render(r.Err.Error())
}
