package cli

import (
	"fmt"

	"fintrack/internal/core"
	"fintrack/internal/ledger"

	"github.com/spf13/cobra"
)

func parseDateFlag(s string) (core.Date, error) {
	if s == "" {
		return core.Date{}, nil
	}
	d, err := core.ParseDate(s)
	if err != nil {
		return core.Date{}, fmt.Errorf("%w: %w", core.ErrInvalidInput, err)
	}
	return d, nil
}

func (a *App) expenseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "expense",
		Aliases: []string{"expenses"},
		Short:   "Record, list and remove expenses",
	}

	add := &cobra.Command{
		Use:   "add NAME AMOUNT",
		Short: "Record an expense",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			code, _ := cmd.Flags().GetString("currency")
			category, _ := cmd.Flags().GetString("category")
			tagList, _ := cmd.Flags().GetStringSlice("tag")
			dateFlag, _ := cmd.Flags().GetString("date")

			m, err := a.tracker.ParseMoney(args[1], code)
			if err != nil {
				return err
			}
			date, err := parseDateFlag(dateFlag)
			if err != nil {
				return err
			}
			e, err := a.tracker.SubmitExpense(cmd.Context(), core.Expense{
				Name:     args[0],
				Category: category,
				Tags:     tagList,
				Money:    m,
				Date:     date,
			})
			if err != nil {
				return err
			}
			a.success("Added expense %s: %s on %s (id %s)", e.Name, money(e.Money), e.Date, e.ID)
			return nil
		},
	}
	add.Flags().StringP("currency", "c", "", "Currency code (default: preferred currency)")
	add.Flags().StringP("category", "k", "other", "Category")
	add.Flags().StringSliceP("tag", "t", nil, "Tags (comma-separated or repeated)")
	add.Flags().StringP("date", "d", "", "Date as YYYY-MM-DD (default: today)")

	list := &cobra.Command{
		Use:   "list",
		Short: "List expenses, newest last",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var f ledger.Filter
			f.Category, _ = cmd.Flags().GetString("category")
			f.Tag, _ = cmd.Flags().GetString("tag")
			from, _ := cmd.Flags().GetString("from")
			to, _ := cmd.Flags().GetString("to")
			var err error
			if f.From, err = parseDateFlag(from); err != nil {
				return err
			}
			if f.To, err = parseDateFlag(to); err != nil {
				return err
			}

			expenses := a.tracker.FilteredExpenses(f)
			if len(expenses) == 0 {
				a.info("No expenses found")
				return nil
			}
			preferred := a.tracker.PreferredCurrency()
			total := core.Zero(preferred)
			rows := make([][]string, 0, len(expenses))
			for _, e := range expenses {
				rows = append(rows, []string{e.ID, e.Date.String(), e.Name, e.Category, tags(e.Tags), money(e.Money)})
				converted, err := a.tracker.Converter().ConvertMoney(e.Money, preferred)
				if err != nil {
					return err
				}
				total.Amount = total.Amount.Add(converted.Amount)
			}
			if err := a.table([]string{"ID", "Date", "Name", "Category", "Tags", "Amount"}, rows); err != nil {
				return err
			}
			a.info("%d expense(s), total %s", len(expenses), boldCyan(money(total)))
			return nil
		},
	}
	list.Flags().StringP("category", "k", "", "Only this category")
	list.Flags().StringP("tag", "t", "", "Only expenses with this tag")
	list.Flags().String("from", "", "Only on or after this date")
	list.Flags().String("to", "", "Only on or before this date")

	rm := &cobra.Command{
		Use:     "rm ID",
		Aliases: []string{"remove"},
		Short:   "Remove an expense",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.tracker.DeleteExpense(cmd.Context(), args[0]); err != nil {
				return err
			}
			a.success("Removed expense %s", args[0])
			return nil
		},
	}

	cmd.AddCommand(add, list, rm)
	return cmd
}

func (a *App) incomeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "income",
		Aliases: []string{"incomes"},
		Short:   "Record, list and remove income",
	}

	add := &cobra.Command{
		Use:   "add SOURCE AMOUNT",
		Short: "Record an income",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			code, _ := cmd.Flags().GetString("currency")
			dateFlag, _ := cmd.Flags().GetString("date")
			m, err := a.tracker.ParseMoney(args[1], code)
			if err != nil {
				return err
			}
			date, err := parseDateFlag(dateFlag)
			if err != nil {
				return err
			}
			in, err := a.tracker.SubmitIncome(cmd.Context(), core.Income{Source: args[0], Money: m, Date: date})
			if err != nil {
				return err
			}
			a.success("Added income %s: %s on %s (id %s)", in.Source, money(in.Money), in.Date, in.ID)
			return nil
		},
	}
	add.Flags().StringP("currency", "c", "", "Currency code (default: preferred currency)")
	add.Flags().StringP("date", "d", "", "Date as YYYY-MM-DD (default: today)")

	list := &cobra.Command{
		Use:   "list",
		Short: "List income",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			incomes := a.tracker.Incomes()
			if len(incomes) == 0 {
				a.info("No income recorded")
				return nil
			}
			rows := make([][]string, 0, len(incomes))
			for _, in := range incomes {
				rows = append(rows, []string{in.ID, in.Date.String(), in.Source, money(in.Money)})
			}
			return a.table([]string{"ID", "Date", "Source", "Amount"}, rows)
		},
	}

	rm := &cobra.Command{
		Use:     "rm ID",
		Aliases: []string{"remove"},
		Short:   "Remove an income",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.tracker.DeleteIncome(cmd.Context(), args[0]); err != nil {
				return err
			}
			a.success("Removed income %s", args[0])
			return nil
		},
	}

	cmd.AddCommand(add, list, rm)
	return cmd
}

func (a *App) categoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "category",
		Aliases: []string{"categories"},
		Short:   "Manage expense categories",
	}

	add := &cobra.Command{
		Use:   "add NAME",
		Short: "Add a category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.tracker.AddCategory(cmd.Context(), args[0]); err != nil {
				return err
			}
			a.success("Added category %s", core.NormalizeCategory(args[0]))
			return nil
		},
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List categories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			categories := a.tracker.Categories()
			rows := make([][]string, 0, len(categories))
			for _, c := range categories {
				rows = append(rows, []string{c})
			}
			return a.table([]string{"Category"}, rows)
		},
	}

	rm := &cobra.Command{
		Use:     "rm NAME",
		Aliases: []string{"remove"},
		Short:   "Remove a category and every expense filed under it",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			removed, err := a.tracker.DeleteCategory(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			a.success("Removed category %s and %d expense(s)", core.NormalizeCategory(args[0]), removed)
			return nil
		},
	}

	cmd.AddCommand(add, list, rm)
	return cmd
}
