package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/muurk/modelfinder/internal/ui"
	"github.com/muurk/modelfinder/internal/urls"
	"github.com/muurk/modelfinder/internal/version"
)

// Application branding constants
const (
	AppName   = "APPLE MODEL FINDER"
	GitHubURL = "github.com/muurk/modelfinder"
)

// AppVersion returns the application version from the centralized version package
func AppVersion() string {
	return version.Version
}

// Layout constants for responsive terminal width
const (
	MinTerminalWidth = 60
	DefaultHeight    = 24
)

var (
	BorderColor = ui.PrimaryColor

	TitleStyle = lipgloss.NewStyle().
			Foreground(ui.PrimaryColor).
			Bold(true).
			Padding(1, 0, 0, 2)

	SubtitleStyle = lipgloss.NewStyle().
			Foreground(ui.MutedColor).
			Italic(true).
			PaddingLeft(2)

	SpinnerStyle = lipgloss.NewStyle().
			Foreground(ui.PrimaryColor)

	InputBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ui.PrimaryColor).
			Padding(0, 1).
			MarginLeft(2)

	// ModelLabelStyle is the resolved model shown under the input
	ModelLabelStyle = lipgloss.NewStyle().
			Foreground(ui.SuccessColor).
			Bold(true).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ui.SuccessColor).
			Padding(1, 2).
			MarginLeft(2)

	// ErrorBannerStyle is the transient error under the input
	ErrorBannerStyle = lipgloss.NewStyle().
				Foreground(ui.ErrorColor).
				Bold(true).
				Border(lipgloss.RoundedBorder()).
				BorderForeground(ui.ErrorColor).
				Padding(0, 2).
				MarginLeft(2)

	PendingStyle = lipgloss.NewStyle().
			Foreground(ui.WarningColor).
			PaddingLeft(2)

	HistoryTitleStyle = lipgloss.NewStyle().
				Foreground(ui.MutedColor).
				Bold(true).
				PaddingLeft(2)

	HistoryItemStyle = lipgloss.NewStyle().
				Foreground(ui.MutedColor).
				PaddingLeft(4)
)

// BuildHeaderContent creates header content with app name and GitHub URL
func BuildHeaderContent() string {
	left := lipgloss.NewStyle().
		Foreground(ui.TextColor).
		Bold(true).
		Render(AppName + " v" + AppVersion())

	right := lipgloss.NewStyle().
		Foreground(ui.MutedColor).
		Render(GitHubURL)

	return lipgloss.JoinHorizontal(lipgloss.Top, left, " ", right)
}

// BuildFooterContent creates footer content with help text
func BuildFooterContent(helpText string) string {
	return lipgloss.NewStyle().
		Foreground(ui.MutedColor).
		Render(helpText)
}

// RenderApplicationContainer wraps a screen with the application header,
// a help footer and an outer border sized to the terminal.
//
//	func (m Model) View() string {
//	    content := m.buildContent()
//	    return RenderApplicationContainer(content, m.Help.View(m.Keys), m.Width, m.Height)
//	}
func RenderApplicationContainer(content string, footerText string, terminalWidth int, terminalHeight int) string {
	if terminalWidth < MinTerminalWidth {
		terminalWidth = MinTerminalWidth
	}
	if terminalHeight <= 0 {
		terminalHeight = DefaultHeight
	}

	headerStyle := lipgloss.NewStyle().
		BorderStyle(lipgloss.Border{Bottom: "─"}).
		BorderForeground(BorderColor).
		Width(terminalWidth-4). // Leave room for outer border
		Padding(0, 1)

	footerStyle := lipgloss.NewStyle().
		BorderStyle(lipgloss.Border{Top: "─"}).
		BorderForeground(BorderColor).
		Width(terminalWidth-4).
		Padding(0, 1)

	contentStyle := lipgloss.NewStyle().
		Width(terminalWidth - 4)

	innerContent := lipgloss.JoinVertical(
		lipgloss.Left,
		headerStyle.Render(BuildHeaderContent()),
		contentStyle.Render(content),
		footerStyle.Render(BuildFooterContent(footerText)),
	)

	bordered := lipgloss.NewStyle().
		Border(lipgloss.NormalBorder()).
		BorderForeground(BorderColor).
		Width(terminalWidth - 2).
		Height(terminalHeight - 2).
		AlignVertical(lipgloss.Top).
		Render(innerContent)

	return lipgloss.Place(
		terminalWidth,
		terminalHeight,
		lipgloss.Left,
		lipgloss.Top,
		bordered,
	)
}

// findSerialHint points users at Apple's guide for locating a serial number
func findSerialHint() string {
	return "Find your serial number: " + urls.FindSerialNumber
}
