package csvfile

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"budget/internal/core"
	"budget/internal/ledger"
)

// EncodeRow renders a record as the five table columns.
func EncodeRow(r core.Record) []string {
	return []string{r.Date.String(), string(r.Kind), r.Category, r.Amount.String(), r.Note}
}

// DecodeRow turns positional columns into a record. Missing columns read as
// empty and nothing is validated.
func DecodeRow(cols []string) core.Record {
	get := func(i int) string {
		if i < len(cols) {
			return cols[i]
		}
		return ""
	}
	return core.Record{
		Date:     core.DateFromText(get(0)),
		Kind:     core.Kind(get(1)),
		Category: get(2),
		Amount:   core.AmountFromText(get(3)),
		Note:     get(4),
	}
}

// WriteHeader writes the header row.
func WriteHeader(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ledger.Header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	cw.Flush()
	return cw.Error()
}

// WriteTable writes the header followed by one row per record.
func WriteTable(w io.Writer, records []core.Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ledger.Header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, r := range records {
		if err := cw.Write(EncodeRow(r)); err != nil {
			return fmt.Errorf("write row %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadTable reads a table written by WriteTable. The first row is the header
// and columns are matched by name, so a reordered or partial header still
// decodes; columns it lacks read as empty.
func ReadTable(r io.Reader) ([]core.Record, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return []core.Record{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	positions := columnPositions(header)

	out := make([]core.Record, 0)
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", len(out)+1, err)
		}
		cols := make([]string, len(ledger.Header))
		for i, pos := range positions {
			if pos >= 0 && pos < len(row) {
				cols[i] = row[pos]
			}
		}
		out = append(out, DecodeRow(cols))
	}
	return out, nil
}

func columnPositions(header []string) []int {
	positions := make([]int, len(ledger.Header))
	for i, name := range ledger.Header {
		positions[i] = -1
		for j, h := range header {
			if strings.EqualFold(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")), name) {
				positions[i] = j
				break
			}
		}
	}
	return positions
}
