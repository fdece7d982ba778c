package cli

import (
	"errors"
	"fmt"
	"strings"

	"fintrack/internal/core"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

func (a *App) recurringCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recurring",
		Short: "Manage recurring expense templates",
	}

	add := &cobra.Command{
		Use:   "add NAME AMOUNT",
		Short: "Add a recurring expense",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			code, _ := cmd.Flags().GetString("currency")
			freq, _ := cmd.Flags().GetString("frequency")
			category, _ := cmd.Flags().GetString("category")
			m, err := a.tracker.ParseMoney(args[1], code)
			if err != nil {
				return err
			}
			re, err := a.tracker.SubmitRecurring(cmd.Context(), core.RecurringExpense{
				Name:      args[0],
				Category:  category,
				Money:     m,
				Frequency: core.Frequency(strings.ToLower(freq)),
			})
			if err != nil {
				return err
			}
			a.success("Added %s recurring expense %s: %s (id %s)", re.Frequency, re.Name, money(re.Money), re.ID)
			return nil
		},
	}
	add.Flags().StringP("currency", "c", "", "Currency code (default: preferred currency)")
	add.Flags().StringP("frequency", "f", string(core.Monthly), "daily, weekly, monthly or yearly")
	add.Flags().StringP("category", "k", "", "Category, added as a tag on each generated expense")

	list := &cobra.Command{
		Use:   "list",
		Short: "List recurring expenses and whether they are due",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			views := a.tracker.RecurringExpensesView(a.today())
			if len(views) == 0 {
				a.info("No recurring expenses")
				return nil
			}
			rows := make([][]string, 0, len(views))
			for _, v := range views {
				due := "no"
				if v.DueToday {
					due = boldYellow("yes")
				}
				category := v.Category
				if category == "" {
					category = "-"
				}
				rows = append(rows, []string{v.ID, v.Name, category, string(v.Frequency), money(v.Money), orDash(v.LastApplied), due})
			}
			return a.table([]string{"ID", "Name", "Category", "Frequency", "Amount", "Last applied", "Due"}, rows)
		},
	}

	rm := &cobra.Command{
		Use:     "rm ID",
		Aliases: []string{"remove"},
		Short:   "Remove a recurring expense; generated expenses are kept",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.tracker.DeleteRecurring(cmd.Context(), args[0]); err != nil {
				return err
			}
			a.success("Removed recurring expense %s", args[0])
			return nil
		},
	}

	apply := &cobra.Command{
		Use:         "apply",
		Short:       "Generate the expenses that are due",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{annotationSkipApply: "true"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			dateFlag, _ := cmd.Flags().GetString("date")
			day, err := parseDateFlag(dateFlag)
			if err != nil {
				return err
			}
			if day.IsZero() {
				day = a.today()
			}
			applied, err := a.tracker.ApplyDue(cmd.Context(), day)
			if err != nil {
				return err
			}
			if len(applied) == 0 {
				a.info("No recurring expenses due on %s", day)
				return nil
			}
			rows := make([][]string, 0, len(applied))
			for _, ap := range applied {
				rows = append(rows, []string{ap.RecurringID, ap.Expense.ID, ap.Expense.Name, money(ap.Expense.Money)})
			}
			if err := a.table([]string{"Recurring", "Expense", "Name", "Amount"}, rows); err != nil {
				return err
			}
			a.success("Applied %d recurring expense(s) for %s", len(applied), day)
			return nil
		},
	}
	apply.Flags().StringP("date", "d", "", "Day to apply for as YYYY-MM-DD (default: today)")

	cmd.AddCommand(add, list, rm, apply)
	return cmd
}

// parseBudgetAmount accepts zero, which clears the budget.
func parseBudgetAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.ReplaceAll(strings.TrimSpace(s), ",", "."))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", core.ErrInvalidAmount, s)
	}
	return d, nil
}

func (a *App) budgetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "budget",
		Short: "Set and check the spending budget",
	}

	set := &cobra.Command{
		Use:   "set AMOUNT",
		Short: "Replace the budget (0 clears it)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			code, _ := cmd.Flags().GetString("currency")
			d, err := parseBudgetAmount(args[0])
			if err != nil {
				return err
			}
			m, err := a.tracker.MoneyOf(d, code)
			if err != nil {
				return err
			}
			b, err := a.tracker.SubmitBudget(cmd.Context(), m)
			if err != nil {
				return err
			}
			a.success("Budget set to %s", money(b.Money))
			return nil
		},
	}
	set.Flags().StringP("currency", "c", "", "Currency code (default: preferred currency)")

	status := &cobra.Command{
		Use:   "status",
		Short: "Show how much of the budget is spent",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.printBudget()
		},
	}

	cmd.AddCommand(set, status)
	return cmd
}

func (a *App) printBudget() error {
	s, err := a.tracker.BudgetStatus()
	if errors.Is(err, core.ErrDivisionByZero) {
		a.warning("No budget set")
		return nil
	}
	if err != nil {
		return err
	}
	return a.table([]string{"Budget", "Spent", "Remaining", "Used", "Status"}, [][]string{{
		money(s.Budget), money(s.Spent), signed(s.Remaining), percent(s.PercentUsed), budgetState(s),
	}})
}

func (a *App) goalCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "goal",
		Aliases: []string{"goals"},
		Short:   "Manage savings goals",
	}

	add := &cobra.Command{
		Use:   "add NAME TARGET",
		Short: "Add a savings goal",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			code, _ := cmd.Flags().GetString("currency")
			currentFlag, _ := cmd.Flags().GetString("current")
			deadlineFlag, _ := cmd.Flags().GetString("deadline")

			target, err := a.tracker.ParseMoney(args[1], code)
			if err != nil {
				return err
			}
			current := core.Zero(target.Currency)
			if currentFlag != "" {
				d, err := parseBudgetAmount(currentFlag)
				if err != nil {
					return err
				}
				current.Amount = d
			}
			deadline, err := parseDateFlag(deadlineFlag)
			if err != nil {
				return err
			}
			g, err := a.tracker.AddGoal(cmd.Context(), core.SavingsGoal{
				Name:     args[0],
				Target:   target,
				Current:  current,
				Deadline: deadline,
			})
			if err != nil {
				return err
			}
			a.success("Added goal %s: target %s (id %s)", g.Name, money(g.Target), g.ID)
			return nil
		},
	}
	add.Flags().StringP("currency", "c", "", "Currency code (default: preferred currency)")
	add.Flags().String("current", "", "Amount already saved")
	add.Flags().String("deadline", "", "Deadline as YYYY-MM-DD")

	list := &cobra.Command{
		Use:   "list",
		Short: "List goals with their progress",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			view := a.tracker.SavingsGoalsView()
			if len(view.Goals) == 0 {
				a.info("No savings goals")
				return nil
			}
			rows := make([][]string, 0, len(view.Goals))
			for _, g := range view.Goals {
				progress := percent(g.Progress)
				if g.Progress >= 100 {
					progress = boldGreen(progress)
				}
				rows = append(rows, []string{g.ID, g.Name, money(g.Current), money(g.Target), progress, orDash(g.Deadline)})
			}
			if err := a.table([]string{"ID", "Name", "Saved", "Target", "Progress", "Deadline"}, rows); err != nil {
				return err
			}
			a.info("Average progress %s", percent(view.AverageProgress))
			return nil
		},
	}

	deposit := &cobra.Command{
		Use:   "deposit ID AMOUNT",
		Short: "Add money to a goal, converted into the goal currency",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			code, _ := cmd.Flags().GetString("currency")
			m, err := a.tracker.ParseMoney(args[1], code)
			if err != nil {
				return err
			}
			g, err := a.tracker.Deposit(cmd.Context(), args[0], m)
			if err != nil {
				return err
			}
			a.success("Deposited %s into %s: %s of %s (%s)", money(m), g.Name, money(g.Current), money(g.Target), percent(g.Progress))
			return nil
		},
	}
	deposit.Flags().StringP("currency", "c", "", "Currency code (default: preferred currency)")

	rm := &cobra.Command{
		Use:     "rm ID",
		Aliases: []string{"remove"},
		Short:   "Remove a savings goal",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.tracker.DeleteGoal(cmd.Context(), args[0]); err != nil {
				return err
			}
			a.success("Removed goal %s", args[0])
			return nil
		},
	}

	cmd.AddCommand(add, list, deposit, rm)
	return cmd
}

func (a *App) currencyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "currency",
		Short: "Show rates and choose the reporting currency",
	}

	set := &cobra.Command{
		Use:   "set CODE",
		Short: "Set the preferred currency",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			code, err := core.ParseCurrency(args[0])
			if err != nil {
				return err
			}
			if err := a.tracker.SetPreferredCurrency(cmd.Context(), code); err != nil {
				return err
			}
			a.success("Preferred currency set to %s", code)
			return nil
		},
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "List known currencies and their rates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			conv := a.tracker.Converter()
			preferred := a.tracker.PreferredCurrency()
			codes := conv.Codes()
			rows := make([][]string, 0, len(codes))
			for _, c := range codes {
				rate, err := conv.Rate(c)
				if err != nil {
					return err
				}
				mark := ""
				if c == preferred {
					mark = boldCyan("preferred")
				}
				rows = append(rows, []string{string(c), rate.String(), mark})
			}
			return a.table([]string{"Currency", "Rate per INR", ""}, rows)
		},
	}

	cmd.AddCommand(set, show)
	return cmd
}
