// Package cli provides styled terminal output using lipgloss.
package cli

import (
	"github.com/charmbracelet/lipgloss"
)

// Ledger palette. Credits share the success hue and debits the error hue.
var (
	brandColor  = lipgloss.Color("#7B61FF")
	creditColor = lipgloss.Color("#4ECDC4")
	debitColor  = lipgloss.Color("#FF6B6B")
	noticeColor = lipgloss.Color("#FFE66D")
	mutedColor  = lipgloss.Color("#666666")
	ruleColor   = lipgloss.Color("#333")

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(brandColor).
			MarginBottom(1)

	// SubtitleStyle is used for secondary headings.
	SubtitleStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			MarginBottom(1)

	// SubtleStyle formats less prominent text.
	SubtleStyle = lipgloss.NewStyle().
			Foreground(mutedColor)

	// BoldStyle makes text bold.
	BoldStyle = lipgloss.NewStyle().
			Bold(true)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ruleColor).
			Padding(1, 2)

	// TableHeaderStyle underlines the column names of a table.
	TableHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				BorderStyle(lipgloss.NormalBorder()).
				BorderBottom(true).
				BorderForeground(ruleColor)

	// TableCellStyle pads table cells.
	TableCellStyle = lipgloss.NewStyle().
			PaddingRight(2)

	// CreditStyle colors money arriving in an account.
	CreditStyle = lipgloss.NewStyle().
			Foreground(creditColor)

	// DebitStyle colors money leaving an account.
	DebitStyle = lipgloss.NewStyle().
			Foreground(debitColor)

	noticeStyle = lipgloss.NewStyle().Foreground(noticeColor)
	promptStyle = lipgloss.NewStyle().Bold(true).Foreground(brandColor)
)

// Icons.
const (
	SuccessIcon = "✓"
	ErrorIcon   = "✗"
	WarningIcon = "⚠️"
	LedgerIcon  = "💰"
	ChartIcon   = "📊"
	ArrowIcon   = "→"
)

// FormatSuccess reports a committed change.
func FormatSuccess(message string) string {
	return CreditStyle.Render(SuccessIcon + " " + message)
}

// FormatError reports a failed command.
func FormatError(message string) string {
	return DebitStyle.Render(ErrorIcon + " " + message)
}

// FormatWarning flags something that needs attention but did not fail.
func FormatWarning(message string) string {
	return noticeStyle.Render(WarningIcon + " " + message)
}

// FormatInfo renders a neutral progress note.
func FormatInfo(message string) string {
	return SubtleStyle.Render(ArrowIcon + " " + message)
}

// FormatTitle formats a title with the ledger icon.
func FormatTitle(title string) string {
	return titleStyle.Render(LedgerIcon + " " + title)
}

// FormatPrompt formats a prompt message.
func FormatPrompt(prompt string) string {
	return promptStyle.Render(prompt + " " + ArrowIcon + " ")
}

// RenderBox renders content in a bordered box under a title.
func RenderBox(title, content string) string {
	return boxStyle.Render(lipgloss.JoinVertical(
		lipgloss.Left,
		titleStyle.UnsetMargins().Render(title),
		content,
	))
}

// StyleAmount colors a formatted amount by its sign.
func StyleAmount(negative bool, text string) string {
	if negative {
		return DebitStyle.Render(text)
	}
	return CreditStyle.Render(text)
}
