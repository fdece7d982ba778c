package cli

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"fintrack/internal/core"
	"fintrack/internal/export"
	"fintrack/internal/ledger"

	"github.com/spf13/cobra"
)

func currencyFlag(cmd *cobra.Command) (core.CurrencyCode, error) {
	s, _ := cmd.Flags().GetString("currency")
	if s == "" {
		return "", nil
	}
	return core.ParseCurrency(s)
}

func (a *App) totalCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "total",
		Short: "Show total expenses, income and net balance",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			code, err := currencyFlag(cmd)
			if err != nil {
				return err
			}
			t, err := a.tracker.Totals(code)
			if err != nil {
				return err
			}
			return a.table([]string{"Metric", "Count", "Amount"}, [][]string{
				{"Expenses", strconv.Itoa(t.ExpenseCount), money(t.TotalExpenses)},
				{"Income", strconv.Itoa(t.IncomeCount), money(t.TotalIncome)},
				{"Net balance", "", signed(t.NetBalance)},
			})
		},
	}
	cmd.Flags().StringP("currency", "c", "", "Report in this currency (default: preferred currency)")
	return cmd
}

func (a *App) summaryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Show spending by category, by day and against the budget",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			code, err := currencyFlag(cmd)
			if err != nil {
				return err
			}
			byCategory, err := a.tracker.CategoryTotals(code)
			if err != nil {
				return err
			}
			trend, err := a.tracker.Trend(code)
			if err != nil {
				return err
			}
			if len(byCategory) == 0 {
				a.info("No expenses recorded")
			} else {
				rows := make([][]string, 0, len(byCategory))
				for _, c := range byCategory {
					rows = append(rows, []string{c.Name, money(c.Amount)})
				}
				if err := a.table([]string{"Category", "Spent"}, rows); err != nil {
					return err
				}
				rows = rows[:0]
				for _, p := range trend {
					rows = append(rows, []string{p.Date.String(), money(p.Amount)})
				}
				if err := a.table([]string{"Date", "Spent"}, rows); err != nil {
					return err
				}
			}
			return a.printBudget()
		},
	}
	cmd.Flags().StringP("currency", "c", "", "Report in this currency (default: preferred currency)")
	return cmd
}

func (a *App) exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write expenses or the whole state to a file",
	}
	cmd.PersistentFlags().StringP("dir", "d", "", "Directory for the file (default: current directory)")
	cmd.PersistentFlags().StringP("name", "n", "fintrack", "Base name of the file, a timestamp is appended")

	write := func(ext string, fn func(w io.Writer) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, _ []string) error {
			dir, _ := cmd.Flags().GetString("dir")
			name, _ := cmd.Flags().GetString("name")
			path, err := export.Filename(name, dir, ext, a.now())
			if err != nil {
				return err
			}
			abs, err := export.ToFile(path, fn)
			if err != nil {
				return err
			}
			a.success("Saved %s", abs)
			return nil
		}
	}

	csvCmd := &cobra.Command{
		Use:   "csv",
		Short: "Export expenses as CSV",
		Args:  cobra.NoArgs,
		RunE: write("csv", func(w io.Writer) error {
			return export.WriteCSV(w, a.tracker.FilteredExpenses(ledger.Filter{}))
		}),
	}
	pdfCmd := &cobra.Command{
		Use:   "pdf",
		Short: "Export an expense report as PDF",
		Args:  cobra.NoArgs,
		RunE: write("pdf", func(w io.Writer) error {
			r, err := export.BuildReport(a.tracker, a.now())
			if err != nil {
				return err
			}
			return export.WritePDF(w, r)
		}),
	}
	jsonCmd := &cobra.Command{
		Use:   "json",
		Short: "Export the full state as a JSON snapshot",
		Args:  cobra.NoArgs,
		RunE: write("json", func(w io.Writer) error {
			data, err := a.tracker.SnapshotJSON()
			if err != nil {
				return err
			}
			_, err = w.Write(data)
			return err
		}),
	}

	cmd.AddCommand(csvCmd, pdfCmd, jsonCmd)
	return cmd
}

func (a *App) importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Replace the state from a file",
	}
	jsonCmd := &cobra.Command{
		Use:   "json FILE",
		Short: "Replace the whole state with a JSON snapshot",
		Args:  cobra.ExactArgs(1),
		Annotations: map[string]string{
			annotationSkipApply:    "true",
			annotationAllowCorrupt: "true",
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read snapshot: %w", err)
			}
			if err := a.tracker.RestoreJSON(cmd.Context(), data); err != nil {
				return err
			}
			s := a.tracker.Snapshot()
			a.success("Imported %d expense(s), %d income(s), %d recurring expense(s) and %d goal(s)",
				len(s.Expenses), len(s.Incomes), len(s.RecurringExpenses), len(s.SavingsGoals))
			return nil
		},
	}
	cmd.AddCommand(jsonCmd)
	return cmd
}
