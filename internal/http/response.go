package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"budget/internal/core"
	"budget/internal/log"
	"budget/internal/taxonomy"
)

type recordJSON struct {
	Date     string `json:"date"`
	Type     string `json:"type"`
	Category string `json:"category"`
	Amount   string `json:"amount"`
	Note     string `json:"note"`
}

type totalsJSON struct {
	Income  string `json:"income"`
	Expense string `json:"expense"`
	Balance string `json:"balance"`
}

type categoryJSON struct {
	Name    string `json:"name"`
	Amount  string `json:"amount"`
	Percent string `json:"percent"`
}

type dayJSON struct {
	Date    string       `json:"date"`
	Records []recordJSON `json:"records"`
	Totals  totalsJSON   `json:"totals"`
}

type monthJSON struct {
	Year       int            `json:"year"`
	Month      int            `json:"month"`
	Records    []recordJSON   `json:"records"`
	Totals     totalsJSON     `json:"totals"`
	Categories []categoryJSON `json:"categories"`
}

type createdJSON struct {
	Ref    string     `json:"ref"`
	Record recordJSON `json:"record"`
}

type errorJSON struct {
	Error string `json:"error"`
}

func toRecordJSON(r core.Record) recordJSON {
	return recordJSON{
		Date:     r.Date.String(),
		Type:     string(r.Kind),
		Category: r.Category,
		Amount:   r.Amount.String(),
		Note:     r.Note,
	}
}

func toRecordsJSON(records []core.Record) []recordJSON {
	out := make([]recordJSON, 0, len(records))
	for _, r := range records {
		out = append(out, toRecordJSON(r))
	}
	return out
}

func toTotalsJSON(t core.Totals) totalsJSON {
	return totalsJSON{
		Income:  core.FormatDecimal(t.Income),
		Expense: core.FormatDecimal(t.Expense),
		Balance: core.FormatDecimal(t.Balance()),
	}
}

func toCategoriesJSON(c core.CategoryTotals) []categoryJSON {
	shares := c.Shares()
	out := make([]categoryJSON, 0, len(shares))
	for _, s := range shares {
		out = append(out, categoryJSON{Name: s.Name, Amount: core.FormatDecimal(s.Amount), Percent: s.Percent.StringFixed(1)})
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps err to a status code: bad parameters are 400, oversized
// bodies 413, validation failures and unknown categories 422, anything else
// 500.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, errBadRequest):
		status = http.StatusBadRequest
	case errors.Is(err, errTooLarge):
		status = http.StatusRequestEntityTooLarge
	case errors.Is(err, core.ErrValidation), errors.Is(err, taxonomy.ErrUnknownCategory):
		status = http.StatusUnprocessableEntity
	}

	logger := log.FromContext(r.Context())
	if status >= 500 {
		logger.ErrorContext(r.Context(), "Request failed", log.FieldError, err, log.FieldPath, r.URL.Path)
	} else {
		logger.DebugContext(r.Context(), "Request rejected", log.FieldError, err, log.FieldStatusCode, status)
	}
	writeJSON(w, status, errorJSON{Error: err.Error()})
}
