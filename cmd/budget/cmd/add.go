package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"budget/internal/services"
)

func newAddCommand(a *app) *cobra.Command {
	var (
		in    services.RecordInput
		force bool
	)

	cmd := &cobra.Command{
		Use:   "add <income|expense> <amount>",
		Short: "Append a record to the ledger",
		Long: `Append one income or expense record.

The date defaults to today and the category to Other. Categories outside the
configured set are rejected unless --force is given.

Example:
  budget add expense 12,50 --category Food --note "lunch"
  budget add income 1500 --category Salary --date 2024-05-01 --force`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			in.Kind, in.Amount = args[0], args[1]

			s, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			if !force {
				category, err := s.svc.Categories().Check(in.Category)
				if err != nil {
					return err
				}
				in.Category = category
			}

			rec, ref, err := s.svc.AddRecord(cmd.Context(), in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %s %s %s on %s (%s)\n",
				rec.Kind, rec.Amount, rec.Category, rec.Date, ref)
			return nil
		},
	}

	cmd.Flags().StringVar(&in.Category, "category", "", "record category")
	cmd.Flags().StringVar(&in.Note, "note", "", "free-text note")
	cmd.Flags().StringVar(&in.Date, "date", "", "record date (YYYY-MM-DD, default today)")
	cmd.Flags().BoolVar(&force, "force", false, "accept a category outside the configured set")
	return cmd
}
