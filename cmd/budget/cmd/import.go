package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"budget/internal/core"
	"budget/internal/ledger/csvfile"
)

// bulkImporter is implemented by stores that load many records at once.
type bulkImporter interface {
	Import(ctx context.Context, records []core.Record) (int, error)
}

func newImportCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import <ledger.csv>",
		Short: "Copy every record of a CSV ledger into the configured backend",
		Long: `Copy every record of a CSV ledger into the configured backend.

The sqlite backend copies rows as stored in a single transaction, malformed
ones included. Other backends validate every row first, so a row with a
blank or malformed date, type or amount aborts the import before anything is
written. A blank category becomes Other.

Example:
  DATA_BACKEND=sqlite budget import ./data/budget.csv`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			records, err := csvfile.ReadTable(f)
			if err != nil {
				return fmt.Errorf("read %s: %w", args[0], err)
			}

			s, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			n, err := importRecords(cmd.Context(), s, records)
			if err != nil {
				return fmt.Errorf("imported %d of %d records: %w", n, len(records), err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d records\n", n)
			return nil
		},
	}
}

func importRecords(ctx context.Context, s *session, records []core.Record) (int, error) {
	if bi, ok := s.store.(bulkImporter); ok {
		return bi.Import(ctx, records)
	}
	// Append would stamp a blank date with today.
	for i, r := range records {
		if err := r.Validate(); err != nil {
			return 0, fmt.Errorf("row %d: %w", i+2, err)
		}
	}
	for i, r := range records {
		if _, err := s.store.Append(ctx, r); err != nil {
			return i, err
		}
	}
	return len(records), nil
}
