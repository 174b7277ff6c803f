package google

import (
	"fmt"
	"strings"

	"budget/internal/core"
	"budget/internal/ledger"
)

// parseRecords converts a values matrix (as returned by the Sheets API) into
// records. The first row is the header; columns are matched by name and
// blank rows are skipped.
func parseRecords(values [][]interface{}) []core.Record {
	out := make([]core.Record, 0)
	if len(values) == 0 {
		return out
	}
	headers := toStrings(values[0])
	cols := make([]int, len(ledger.Header))
	for i, name := range ledger.Header {
		cols[i] = indexOf(headers, name)
	}

	for _, raw := range values[1:] {
		row := toStrings(raw)
		if isBlank(row) {
			continue
		}
		out = append(out, core.Record{
			Date:     core.DateFromText(safeGet(row, cols[0])),
			Kind:     core.Kind(safeGet(row, cols[1])),
			Category: safeGet(row, cols[2]),
			Amount:   core.AmountFromText(safeGet(row, cols[3])),
			Note:     safeGet(row, cols[4]),
		})
	}
	return out
}

func recordRow(r core.Record) []any {
	return []any{r.Date.String(), string(r.Kind), r.Category, r.Amount.String(), r.Note}
}

func toRow(in []string) []any {
	out := make([]any, len(in))
	for i, v := range in {
		out[i] = v
	}
	return out
}

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

func isBlank(row []string) bool {
	for _, v := range row {
		if v != "" {
			return false
		}
	}
	return true
}

func indexOf(arr []string, target string) int {
	for i, v := range arr {
		if strings.EqualFold(strings.TrimSpace(v), strings.TrimSpace(target)) {
			return i
		}
	}
	return -1
}

func safeGet(arr []string, idx int) string {
	if idx < 0 || idx >= len(arr) {
		return ""
	}
	return arr[idx]
}
