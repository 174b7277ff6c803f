package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"budget/internal/core"
	"budget/internal/export"
)

func newExportCommand(a *app) *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write monthly CSV exports and daily PDF reports",
	}
	cmd.PersistentFlags().StringVar(&dir, "dir", "", "output directory (default EXPORT_DIR)")

	cmd.AddCommand(newExportCSVCommand(a, &dir), newExportPDFCommand(a, &dir))
	return cmd
}

func newExportCSVCommand(a *app, dir *string) *cobra.Command {
	now := time.Now()
	var year, month int

	cmd := &cobra.Command{
		Use:   "csv",
		Short: "Export one month of records as CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			path, err := exporterFor(a, s, *dir).MonthCSV(cmd.Context(), year, month)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			return nil
		},
	}
	cmd.Flags().IntVar(&year, "year", now.Year(), "year")
	cmd.Flags().IntVar(&month, "month", int(now.Month()), "month (1-12)")
	return cmd
}

func newExportPDFCommand(a *app, dir *string) *cobra.Command {
	var date string

	cmd := &cobra.Command{
		Use:   "pdf",
		Short: "Render one day's records as a PDF report",
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
			path, err := exporterFor(a, s, *dir).DailyPDF(cmd.Context(), d)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			return nil
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "report day (YYYY-MM-DD, default today)")
	return cmd
}

// exporterFor returns the session exporter, or one writing to dir when set.
func exporterFor(a *app, s *session, dir string) *export.Exporter {
	if dir == "" {
		return s.exporter
	}
	return export.NewExporter(s.store, dir, export.WithLinesPerPage(a.cfg.ReportLinesPerPage))
}
