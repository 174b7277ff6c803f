// Package export writes month CSV extracts and daily PDF reports.
package export

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"budget/internal/core"
	"budget/internal/ledger"
	"budget/internal/log"
	"budget/internal/query"
)

// DefaultLinesPerPage is used when an Exporter is built without a page size.
const DefaultLinesPerPage = 40

// Exporter reads the full ledger and writes derived files.
type Exporter struct {
	reader       ledger.Reader
	dir          string
	linesPerPage int
	logger       *slog.Logger
}

type Option func(*Exporter)

// WithLinesPerPage sets the report page size, capped at MaxLinesPerPage.
func WithLinesPerPage(n int) Option {
	return func(e *Exporter) {
		if n > 0 {
			e.linesPerPage = min(n, MaxLinesPerPage)
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(e *Exporter) { e.logger = l }
}

// NewExporter writes files into dir; an empty dir means the working directory.
func NewExporter(reader ledger.Reader, dir string, opts ...Option) *Exporter {
	if dir == "" {
		dir = "."
	}
	e := &Exporter{
		reader:       reader,
		dir:          dir,
		linesPerPage: DefaultLinesPerPage,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Dir returns the output directory.
func (e *Exporter) Dir() string {
	return e.dir
}

// WriteMonthCSV writes the records of one month as a ledger table.
func (e *Exporter) WriteMonthCSV(ctx context.Context, w io.Writer, year, month int) (int, error) {
	records, err := e.reader.ReadAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("read ledger: %w", err)
	}
	selected := query.FilterByMonth(records, year, month)
	if err := WriteMonthTable(w, selected); err != nil {
		return 0, err
	}
	return len(selected), nil
}

// MonthCSV writes export_YYYY_MM.csv into the output directory and returns
// its path.
func (e *Exporter) MonthCSV(ctx context.Context, year, month int) (string, error) {
	path := filepath.Join(e.dir, MonthFileName(year, month))
	var n int
	err := writeFileAtomic(path, func(w io.Writer) error {
		var err error
		n, err = e.WriteMonthCSV(ctx, w, year, month)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("export %04d-%02d: %w", year, month, err)
	}
	fields := log.NewFields().WithOperation(log.OpExport).WithPeriod(year, month)
	fields[log.FieldFile] = path
	fields[log.FieldCount] = n
	e.logger.InfoContext(ctx, "Exported month", fields.ToSlice()...)
	return path, nil
}

// DailyReport builds the paginated report for date.
func (e *Exporter) DailyReport(ctx context.Context, date core.Date) (Report, error) {
	records, err := e.reader.ReadAll(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("read ledger: %w", err)
	}
	day := query.FilterByExactDate(records, date)
	totals, err := query.SumByKind(day)
	if err != nil {
		return Report{}, fmt.Errorf("totals for %s: %w", date, err)
	}
	return BuildDailyReport(core.DayOverview{Date: date, Records: day, Totals: totals}, e.linesPerPage)
}

// WriteDailyPDF renders the report for date to w.
func (e *Exporter) WriteDailyPDF(ctx context.Context, w io.Writer, date core.Date) error {
	rep, err := e.DailyReport(ctx, date)
	if err != nil {
		return err
	}
	return WritePDF(w, rep)
}

// DailyPDF writes report_YYYY-MM-DD.pdf into the output directory and
// returns its path.
func (e *Exporter) DailyPDF(ctx context.Context, date core.Date) (string, error) {
	rep, err := e.DailyReport(ctx, date)
	if err != nil {
		return "", err
	}
	path := filepath.Join(e.dir, ReportFileName(date))
	if err := writeFileAtomic(path, func(w io.Writer) error { return WritePDF(w, rep) }); err != nil {
		return "", fmt.Errorf("report %s: %w", date, err)
	}
	e.logger.InfoContext(ctx, "Exported daily report",
		log.FieldFile, path, log.FieldCount, rep.Count, log.FieldDate, date.String(), "pages", len(rep.Pages))
	return path, nil
}

// writeFileAtomic writes through a temp file in the target directory and
// renames it into place, so a failed export leaves no partial file.
func writeFileAtomic(path string, write func(io.Writer) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create export dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".export-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := write(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}
