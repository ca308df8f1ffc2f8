package tui

import (
	"fmt"
	"strings"

	"github.com/Veraticus/spendwise/internal/cli"
	"github.com/charmbracelet/lipgloss"
)

const (
	dateWidth     = 10
	amountWidth   = 14
	categoryWidth = 14
	minDescWidth  = 16
)

var (
	cursorStyle   = lipgloss.NewStyle().Foreground(cli.PrimaryColor).Bold(true)
	debitStyle    = lipgloss.NewStyle().Foreground(cli.DebitColor)
	creditStyle   = lipgloss.NewStyle().Foreground(cli.CreditColor)
	dupStyle      = lipgloss.NewStyle().Foreground(cli.WarningColor)
	unselectStyle = lipgloss.NewStyle().Foreground(cli.SubtleColor)
)

// View renders the review screen.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	title := cli.DocumentIcon + " Review statement"
	if m.review.Source != "" {
		title += " " + cli.SubtleStyle.Render(m.review.Source)
	}
	b.WriteString(cli.TitleStyle.Render(title))
	b.WriteString("\n")

	if len(m.review.Rows) == 0 {
		b.WriteString(cli.FormatWarning("No transactions found in this statement"))
		b.WriteString("\n\n")
		b.WriteString(m.help.View(m.keymap))
		return b.String()
	}

	desc := m.descriptionWidth()
	header := fmt.Sprintf("    %-*s  %-*s  %*s  %-*s",
		dateWidth, "Date", desc, "Description", amountWidth, "Amount", categoryWidth, "Category")
	b.WriteString(cli.TableHeaderStyle.Render(header))
	b.WriteString("\n")

	end := min(len(m.review.Rows), m.offset+m.pageSize())
	for i := m.offset; i < end; i++ {
		b.WriteString(m.renderRow(i, desc))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.renderSummary())
	b.WriteString("\n")
	b.WriteString(m.help.View(m.keymap))
	return b.String()
}

func (m Model) renderRow(i, descWidth int) string {
	row := m.review.Rows[i]

	pointer := "  "
	if i == m.cursor {
		pointer = cursorStyle.Render("▸ ")
	}
	check := "[ ]"
	if row.IsSelected {
		check = "[x]"
	}

	date := row.DateText
	if date == "" && !row.Timestamp.IsZero() {
		date = row.Timestamp.Format("02/01/06")
	}

	amount := fmt.Sprintf("%*s", amountWidth, cli.FormatSigned(row.Amount(), row.IsDebit()))
	if row.IsDebit() {
		amount = debitStyle.Render(amount)
	} else {
		amount = creditStyle.Render(amount)
	}

	line := fmt.Sprintf("%s%s %-*s  %-*s  %s  %-*s",
		pointer, check,
		dateWidth, truncate(date, dateWidth),
		descWidth, truncate(row.Description, descWidth),
		amount,
		categoryWidth, truncate(m.categoryName(row.SuggestedCategoryID), categoryWidth))

	if row.IsDuplicate {
		line += " " + dupStyle.Render(cli.DuplicateIcon+" duplicate")
	}
	if !row.IsSelected {
		return unselectStyle.Render(line)
	}
	return line
}

func (m Model) renderSummary() string {
	c := m.review.Counts()
	summary := fmt.Sprintf("%d of %d selected · %d debits · %d credits",
		c.Selected, c.Total, c.Debits, c.Credits)
	if c.Duplicates > 0 {
		summary += " · " + dupStyle.Render(fmt.Sprintf("%d possible duplicates", c.Duplicates))
	}
	return cli.SubtleStyle.Render(summary)
}

func (m Model) descriptionWidth() int {
	// pointer, checkbox and column gaps
	used := 2 + 3 + 1 + dateWidth + 2 + 2 + amountWidth + 2 + categoryWidth
	return max(minDescWidth, m.width-used)
}

func truncate(s string, width int) string {
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	if width <= 1 {
		return string(r[:width])
	}
	return string(r[:width-1]) + "…"
}
