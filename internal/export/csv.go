package export

import (
	"fmt"
	"io"

	"budget/internal/core"
	"budget/internal/ledger/csvfile"
)

// MonthFileName is the export file name for a month.
func MonthFileName(year, month int) string {
	return fmt.Sprintf("export_%04d_%02d.csv", year, month)
}

// WriteMonthTable writes records in the ledger table layout. Amounts are
// written as stored, so malformed values are exported verbatim.
func WriteMonthTable(w io.Writer, records []core.Record) error {
	if err := csvfile.WriteTable(w, records); err != nil {
		return fmt.Errorf("write export table: %w", err)
	}
	return nil
}
