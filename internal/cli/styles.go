// Package cli provides styled terminal output using lipgloss.
package cli

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"
)

var (
	// PrimaryColor is the main theme color.
	PrimaryColor = lipgloss.Color("#26A69A")
	// SuccessColor indicates successful operations.
	SuccessColor = lipgloss.Color("#4CAF50")
	// WarningColor indicates warnings or caution messages.
	WarningColor = lipgloss.Color("#FFC107")
	// ErrorColor indicates errors or failure messages.
	ErrorColor = lipgloss.Color("#F44336")
	// InfoColor indicates informational messages.
	InfoColor = lipgloss.Color("#90CAF9")
	// SubtleColor indicates less prominent UI elements.
	SubtleColor = lipgloss.Color("#757575")
	// DebitColor marks money going out.
	DebitColor = lipgloss.Color("#EF5350")
	// CreditColor marks money coming in.
	CreditColor = lipgloss.Color("#66BB6A")

	// TitleStyle is used for section titles.
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(PrimaryColor).
			MarginBottom(1)

	// SuccessStyle formats success messages.
	SuccessStyle = lipgloss.NewStyle().
			Foreground(SuccessColor)

	// WarningStyle formats warning messages.
	WarningStyle = lipgloss.NewStyle().
			Foreground(WarningColor)

	// ErrorStyle formats error messages.
	ErrorStyle = lipgloss.NewStyle().
			Foreground(ErrorColor)

	// InfoStyle formats informational messages.
	InfoStyle = lipgloss.NewStyle().
			Foreground(InfoColor)

	// SubtleStyle formats less prominent text.
	SubtleStyle = lipgloss.NewStyle().
			Foreground(SubtleColor)

	// BoldStyle makes text bold.
	BoldStyle = lipgloss.NewStyle().
			Bold(true)

	// BoxStyle is used for bordered content boxes.
	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#333")).
			Padding(1, 2)

	// TableHeaderStyle is used for table headers.
	TableHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				BorderStyle(lipgloss.NormalBorder()).
				BorderBottom(true).
				BorderForeground(lipgloss.Color("#333"))

	// PromptStyle is used for user prompts.
	PromptStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(PrimaryColor)

	debitStyle  = lipgloss.NewStyle().Foreground(DebitColor)
	creditStyle = lipgloss.NewStyle().Foreground(CreditColor)
)

// Icons.
const (
	SuccessIcon   = "✓"
	ErrorIcon     = "✗"
	WarningIcon   = "⚠️"
	InfoIcon      = "ℹ️"
	WalletIcon    = "💸"
	DocumentIcon  = "📄"
	MessageIcon   = "✉️"
	DuplicateIcon = "⧉"
)

// CurrencySymbol prefixes rendered amounts.
const CurrencySymbol = "₹"

// FormatSuccess formats a success message with icon.
func FormatSuccess(message string) string {
	return SuccessStyle.Render(SuccessIcon + " " + message)
}

// FormatError formats an error message with icon.
func FormatError(message string) string {
	return ErrorStyle.Render(ErrorIcon + " " + message)
}

// FormatWarning formats a warning message with icon.
func FormatWarning(message string) string {
	return WarningStyle.Render(WarningIcon + " " + message)
}

// FormatInfo formats an info message with icon.
func FormatInfo(message string) string {
	return InfoStyle.Render(InfoIcon + " " + message)
}

// FormatTitle formats a title with the wallet icon.
func FormatTitle(title string) string {
	return TitleStyle.Render(WalletIcon + " " + title)
}

// FormatPrompt formats a prompt message.
func FormatPrompt(prompt string) string {
	return PromptStyle.Render(prompt + " → ")
}

// FormatMoney renders an amount with two decimals and the currency symbol.
func FormatMoney(amount decimal.Decimal) string {
	return CurrencySymbol + amount.StringFixed(2)
}

// FormatSigned renders a debit as negative red and a credit as positive green.
func FormatSigned(amount decimal.Decimal, debit bool) string {
	if debit {
		return debitStyle.Render("-" + FormatMoney(amount))
	}
	return creditStyle.Render("+" + FormatMoney(amount))
}

// CategoryBadge renders a category name in its own color.
func CategoryBadge(icon, name, color string) string {
	style := lipgloss.NewStyle().Bold(true)
	if color != "" {
		style = style.Foreground(lipgloss.Color(color))
	}
	if icon != "" {
		return style.Render(icon + " " + name)
	}
	return style.Render(name)
}

// RenderBox renders content in a styled box.
func RenderBox(title, content string) string {
	boxTitle := TitleStyle.
		UnsetMargins().
		Render(title)

	boxContent := lipgloss.JoinVertical(
		lipgloss.Left,
		boxTitle,
		content,
	)

	return BoxStyle.Render(boxContent)
}
