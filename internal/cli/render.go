package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/Veraticus/bloomfi/internal/engine"
	"github.com/Veraticus/bloomfi/internal/model"
)

// table lays rows out in left-aligned columns under a bold header.
func table(header []string, rows [][]string) string {
	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if w := lipgloss.Width(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}

	line := func(cells []string, style lipgloss.Style) string {
		rendered := make([]string, len(cells))
		for i, cell := range cells {
			rendered[i] = TableCellStyle.Width(widths[i] + 2).Render(cell)
		}
		return style.Render(lipgloss.JoinHorizontal(lipgloss.Top, rendered...))
	}

	lines := []string{line(header, TableHeaderStyle)}
	for _, row := range rows {
		lines = append(lines, line(row, lipgloss.NewStyle()))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

// RenderAccounts lists accounts with their display balances.
func RenderAccounts(accounts []model.Account) string {
	if len(accounts) == 0 {
		return FormatInfo("No accounts yet. Open one with: bloomfi accounts open")
	}

	rows := make([][]string, 0, len(accounts))
	for _, a := range accounts {
		rows = append(rows, []string{
			fmt.Sprintf("%d", a.ID),
			a.Name,
			a.Type,
			a.DisplayNumber,
			model.FormatCurrency(a.Balance),
		})
	}
	return table([]string{"ID", "Name", "Type", "Number", "Balance"}, rows)
}

// RenderDashboard draws the total balance, the accounts and recent activity.
func RenderDashboard(d *engine.Dashboard) string {
	var b strings.Builder

	b.WriteString(BoldStyle.Render("Total balance: "))
	b.WriteString(model.FormatCurrency(d.TotalBalance))
	b.WriteString("\n\n")
	b.WriteString(RenderAccounts(d.Accounts))

	b.WriteString("\n\n")
	b.WriteString(SubtitleStyle.UnsetMargins().Render("Recent activity"))
	b.WriteString("\n")
	if len(d.Recent) == 0 {
		b.WriteString(SubtleStyle.Render("No transactions yet"))
		return RenderBox(ChartIcon+" Dashboard", b.String())
	}

	rows := make([][]string, 0, len(d.Recent))
	for _, txn := range d.Recent {
		note := txn.Note
		if note == "" {
			note = "Unknown"
		}
		category := txn.Category
		if category == "" {
			category = "Uncategorized"
		}
		rows = append(rows, []string{
			txn.CreatedAt.Format("2006-01-02 15:04"),
			note,
			category,
			StyleAmount(txn.Amount.IsNegative(), model.FormatSigned(txn.Amount)),
		})
	}
	b.WriteString(table([]string{"When", "Description", "Category", "Amount"}, rows))

	return RenderBox(ChartIcon+" Dashboard", b.String())
}

// RenderTransfer summarizes a committed transfer.
func RenderTransfer(res *engine.TransferResult) string {
	lines := []string{
		FormatSuccess("Transfer successful"),
		fmt.Sprintf("%s %s %s",
			res.Debit.Note,
			ArrowIcon,
			StyleAmount(false, model.FormatCurrency(res.Credit.Amount))),
		fmt.Sprintf("Account %d balance: %s", res.Debit.AccountID, model.FormatCurrency(res.FromBalance)),
		fmt.Sprintf("Account %d balance: %s", res.Credit.AccountID, model.FormatCurrency(res.ToBalance)),
	}
	return strings.Join(lines, "\n")
}

// RenderAdjustment summarizes a committed deposit or withdrawal.
func RenderAdjustment(res *engine.AdjustResult) string {
	verb := "Deposited"
	if res.Transaction.IsDebit() {
		verb = "Withdrew"
	}
	return strings.Join([]string{
		FormatSuccess(fmt.Sprintf("%s %s", verb, model.FormatCurrency(res.Transaction.Amount.Abs()))),
		fmt.Sprintf("Account %d balance: %s", res.Transaction.AccountID, model.FormatCurrency(res.Balance)),
	}, "\n")
}

// ImportSummary counts what happened to each statement entry.
type ImportSummary struct {
	Files      int
	Applied    int
	Duplicates int
	Overdrawn  int
}

// RenderImportSummary reports the outcome of a statement import.
func RenderImportSummary(s ImportSummary) string {
	lines := []string{
		FormatSuccess(fmt.Sprintf("Imported %d entries from %d file(s)", s.Applied, s.Files)),
	}
	if s.Duplicates > 0 {
		lines = append(lines, FormatInfo(fmt.Sprintf("%d already imported, skipped", s.Duplicates)))
	}
	if s.Overdrawn > 0 {
		lines = append(lines, FormatWarning(fmt.Sprintf("%d withdrawals skipped for insufficient funds", s.Overdrawn)))
	}
	return strings.Join(lines, "\n")
}
