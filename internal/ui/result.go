package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/muurk/snepd/internal/snep"
)

// ResultType selects the marker and border color of a result box
type ResultType int

const (
	ResultSuccess ResultType = iota
	ResultFailure
	ResultWarning
)

type resultKind struct {
	marker string
	label  string
	color  lipgloss.Color
}

var resultKinds = map[ResultType]resultKind{
	ResultSuccess: {SuccessMarker, "SUCCESS", SuccessColor},
	ResultFailure: {FailureMarker, "FAILED", ErrorColor},
	ResultWarning: {WarningMarker, "WARNING", WarningColor},
}

// Result is the box printed when a command finishes
type Result struct {
	Type            ResultType
	Title           string
	Response        string            // SNEP response line, empty when there was no exchange
	Details         map[string]string // Shown sorted by key
	Error           error
	Troubleshooting []string
	Width           int
}

// NewSuccessResult creates a success result box
func NewSuccessResult(title string, details map[string]string) *Result {
	return &Result{Type: ResultSuccess, Title: title, Details: details, Width: GetTerminalWidth()}
}

// NewFailureResult creates a failure result box
func NewFailureResult(title string, err error, troubleshooting []string) *Result {
	return &Result{Type: ResultFailure, Title: title, Error: err, Troubleshooting: troubleshooting, Width: GetTerminalWidth()}
}

// NewWarningResult creates a warning result box
func NewWarningResult(title string, details map[string]string) *Result {
	return &Result{Type: ResultWarning, Title: title, Details: details, Width: GetTerminalWidth()}
}

// NewResponseResult reports the outcome of a SNEP exchange. Success
// responses get a success box; every other code is a warning.
func NewResponseResult(title string, code snep.Code, details map[string]string) *Result {
	typ := ResultWarning
	if code == snep.ResponseSuccess {
		typ = ResultSuccess
	}
	return &Result{
		Type:     typ,
		Title:    title,
		Response: fmt.Sprintf("%s (0x%02X)", code, byte(code)),
		Details:  details,
		Width:    GetTerminalWidth(),
	}
}

// SetWidth sets the terminal width for responsive rendering
func (r *Result) SetWidth(width int) *Result {
	r.Width = width
	return r
}

// Render returns the styled result box as a string
func (r *Result) Render() string {
	kind, ok := resultKinds[r.Type]
	if !ok {
		kind = resultKinds[ResultSuccess]
	}
	width := max(r.Width, MinTerminalWidth)

	title := lipgloss.NewStyle().Foreground(kind.color).Bold(true).
		Render(fmt.Sprintf("   %s  %s  ─  %s", kind.marker, kind.label, r.Title))
	lines := []string{"", title, ""}

	if r.Response != "" {
		lines = append(lines, detailLine("Response", r.Response))
	}
	for _, key := range sortedKeys(r.Details) {
		lines = append(lines, detailLine(key, r.Details[key]))
	}
	if r.Response != "" || len(r.Details) > 0 {
		lines = append(lines, "")
	}

	if r.Error != nil {
		lines = append(lines, ErrorMessageStyle.Render("   Error: "+r.Error.Error()), "")
	}
	if len(r.Troubleshooting) > 0 {
		lines = append(lines, renderTroubleshooting(r.Troubleshooting, width), "")
	}

	return lipgloss.NewStyle().
		Border(lipgloss.DoubleBorder()).
		BorderForeground(kind.color).
		Width(width - 2).
		Padding(0, 2).
		Render(strings.Join(lines, "\n"))
}

func detailLine(key, value string) string {
	return ResultKeyStyle.Render("   "+key+":") + " " + ResultValueStyle.Render(value)
}

// renderTroubleshooting renders the tips box nested in a failure result
func renderTroubleshooting(tips []string, width int) string {
	lines := []string{TroubleshootingTitleStyle.Render("Troubleshooting:"), ""}
	for _, tip := range tips {
		lines = append(lines, TroubleshootingItemStyle.Render("  • "+tip))
	}

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(MutedColor).
		Width(max(width-12, 40)).
		Padding(0, 1).
		MarginLeft(3).
		Render(strings.Join(lines, "\n"))
}
