package cli

import (
	"fmt"
	"strings"

	"fintrack/internal/core"
	"fintrack/internal/currency"

	"github.com/fatih/color"
	"github.com/pterm/pterm"
)

var (
	boldRed    = color.New(color.FgRed, color.Bold).SprintFunc()
	boldGreen  = color.New(color.FgGreen, color.Bold).SprintFunc()
	boldYellow = color.New(color.FgYellow, color.Bold).SprintFunc()
	boldCyan   = color.New(color.FgCyan, color.Bold).SprintFunc()
)

// nearLimit is the share of the budget after which status turns yellow.
const nearLimit = 80.0

func (a *App) table(header []string, rows [][]string) error {
	data := pterm.TableData{header}
	data = append(data, rows...)
	rendered, err := pterm.DefaultTable.
		WithHasHeader().
		WithBoxed().
		WithHeaderStyle(pterm.NewStyle(pterm.FgLightCyan)).
		WithData(data).
		Srender()
	if err != nil {
		return fmt.Errorf("render table: %w", err)
	}
	_, err = fmt.Fprintln(a.out, rendered)
	return err
}

func (a *App) success(format string, args ...any) {
	fmt.Fprintln(a.out, pterm.Success.Sprintf(format, args...))
}

func (a *App) info(format string, args ...any) {
	fmt.Fprintln(a.out, pterm.Info.Sprintf(format, args...))
}

func (a *App) warning(format string, args ...any) {
	fmt.Fprintln(a.out, pterm.Warning.Sprintf(format, args...))
}

func money(m core.Money) string { return currency.Format(m) }

// signed colours negative amounts red.
func signed(m core.Money) string {
	if m.Amount.IsNegative() {
		return boldRed(money(m))
	}
	return boldGreen(money(m))
}

func percent(p float64) string { return fmt.Sprintf("%.1f%%", p) }

func budgetState(s core.BudgetStatus) string {
	switch {
	case s.OverBudget:
		return boldRed("OVER BUDGET")
	case s.PercentUsed >= nearLimit:
		return boldYellow("NEAR LIMIT")
	default:
		return boldGreen("ON TRACK")
	}
}

func tags(t []string) string {
	if len(t) == 0 {
		return "-"
	}
	return strings.Join(t, ", ")
}

func orDash(d core.Date) string {
	if d.IsZero() {
		return "-"
	}
	return d.String()
}
