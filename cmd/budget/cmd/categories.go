package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"budget/internal/taxonomy"
)

func newCategoriesCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "List the configured categories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := taxonomy.LoadFile(a.cfg.CategoriesFile)
			if err != nil {
				return err
			}
			for _, name := range t.List() {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
}
