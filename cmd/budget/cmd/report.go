package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"budget/internal/core"
)

func newTodayCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "today",
		Short: "List today's records and totals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			day, err := s.svc.TodayOverview(cmd.Context())
			if err != nil {
				return err
			}
			return printDay(cmd.OutOrStdout(), day)
		},
	}
}

func newDayCommand(a *app) *cobra.Command {
	var date string

	cmd := &cobra.Command{
		Use:   "day",
		Short: "List the records of one day and their totals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			d := s.svc.Today()
			if date != "" {
				if d, err = core.ParseDate(date); err != nil {
					return err
				}
			}
			day, err := s.svc.Day(cmd.Context(), d)
			if err != nil {
				return err
			}
			return printDay(cmd.OutOrStdout(), day)
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "day to list (YYYY-MM-DD, default today)")
	return cmd
}

func newMonthCommand(a *app) *cobra.Command {
	now := time.Now()
	var year, month int

	cmd := &cobra.Command{
		Use:   "month",
		Short: "Summarise one month by kind and expense category",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if month < 1 || month > 12 {
				return fmt.Errorf("invalid month %d: must be between 1 and 12", month)
			}
			s, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			ov, err := s.svc.Month(cmd.Context(), year, month)
			if err != nil {
				return err
			}
			return printMonth(cmd.OutOrStdout(), ov)
		},
	}
	cmd.Flags().IntVar(&year, "year", now.Year(), "year")
	cmd.Flags().IntVar(&month, "month", int(now.Month()), "month (1-12)")
	return cmd
}

func printDay(out io.Writer, day core.DayOverview) error {
	fmt.Fprintf(out, "Records for %s\n\n", day.Date)
	if len(day.Records) == 0 {
		fmt.Fprintln(out, "No records.")
	} else {
		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "TYPE\tCATEGORY\tAMOUNT\tNOTE")
		for _, r := range day.Records {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.Kind, r.Category, r.Amount, r.Note)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}
	fmt.Fprintln(out)
	return printTotals(out, day.Totals)
}

func printMonth(out io.Writer, ov core.MonthOverview) error {
	fmt.Fprintf(out, "Summary for %04d-%02d (%d records)\n\n", ov.Year, ov.Month, len(ov.Records))
	if err := printTotals(out, ov.Totals); err != nil {
		return err
	}

	shares := ov.ByCategory.Shares()
	if len(shares) == 0 {
		return nil
	}
	fmt.Fprintln(out)
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "CATEGORY\tEXPENSE\tSHARE\t")
	for _, sh := range shares {
		fmt.Fprintf(tw, "%s\t%s\t%s%%\t\n", sh.Name, core.FormatDecimal(sh.Amount), sh.Percent.StringFixed(1))
	}
	return tw.Flush()
}

func printTotals(out io.Writer, t core.Totals) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Income:\t%s\n", core.FormatDecimal(t.Income))
	fmt.Fprintf(tw, "Expense:\t%s\n", core.FormatDecimal(t.Expense))
	fmt.Fprintf(tw, "Balance:\t%s\n", core.FormatDecimal(t.Balance()))
	return tw.Flush()
}
