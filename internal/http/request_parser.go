package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"budget/internal/core"
	"budget/internal/services"
)

// maxBodyBytes caps POST bodies.
const maxBodyBytes = 64 << 10

var (
	// errBadRequest marks parameter errors that map to 400.
	errBadRequest = errors.New("bad request")
	// errTooLarge marks bodies cut off by maxBodyBytes; they map to 413.
	errTooLarge = errors.New("request body too large")
)

// recordPayload is the JSON shape accepted by POST /records.
type recordPayload struct {
	Date     string          `json:"date"`
	Type     string          `json:"type"`
	Category string          `json:"category"`
	Amount   json.RawMessage `json:"amount"`
	Note     string          `json:"note"`
}

// parseRecordInput reads a record from a JSON body or form values. JSON
// amounts may be strings or numbers.
func parseRecordInput(w http.ResponseWriter, r *http.Request) (services.RecordInput, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		var p recordPayload
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&p); err != nil && !errors.Is(err, io.EOF) {
			return services.RecordInput{}, bodyError("invalid JSON body", err)
		}
		amount, err := rawAmount(p.Amount)
		if err != nil {
			return services.RecordInput{}, err
		}
		return services.RecordInput{
			Date:     sanitizeInput(p.Date),
			Kind:     sanitizeInput(p.Type),
			Category: sanitizeInput(p.Category),
			Amount:   amount,
			Note:     sanitizeInput(p.Note),
		}, nil
	}

	if err := r.ParseForm(); err != nil {
		return services.RecordInput{}, bodyError("invalid form", err)
	}
	return formRecordInput(r.PostForm), nil
}

func bodyError(what string, err error) error {
	var mbe *http.MaxBytesError
	if errors.As(err, &mbe) {
		return fmt.Errorf("%w: limit is %d bytes", errTooLarge, mbe.Limit)
	}
	return fmt.Errorf("%w: %s: %v", errBadRequest, what, err)
}

func formRecordInput(form url.Values) services.RecordInput {
	return services.RecordInput{
		Date:     sanitizeInput(form.Get("date")),
		Kind:     sanitizeInput(form.Get("type")),
		Category: sanitizeInput(form.Get("category")),
		Amount:   sanitizeInput(form.Get("amount")),
		Note:     sanitizeInput(form.Get("note")),
	}
}

func rawAmount(raw json.RawMessage) (string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return sanitizeInput(s), nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String(), nil
	}
	return "", fmt.Errorf("%w: amount must be a string or number", errBadRequest)
}

// parseMonthParams reads year and month, defaulting to the given current
// period. Non-numeric values are rejected; an out-of-range month is passed
// through and simply matches nothing.
func parseMonthParams(query url.Values, today core.Date) (year, month int, err error) {
	year, month = today.Year(), today.Month()
	if v := strings.TrimSpace(query.Get("year")); v != "" {
		if year, err = strconv.Atoi(v); err != nil {
			return 0, 0, fmt.Errorf("%w: year must be a number", errBadRequest)
		}
	}
	if v := strings.TrimSpace(query.Get("month")); v != "" {
		if month, err = strconv.Atoi(v); err != nil {
			return 0, 0, fmt.Errorf("%w: month must be a number", errBadRequest)
		}
	}
	return year, month, nil
}

// parseDateParam reads the date parameter, defaulting to today.
func parseDateParam(query url.Values, today core.Date) (core.Date, error) {
	v := strings.TrimSpace(query.Get("date"))
	if v == "" {
		return today, nil
	}
	d, err := core.ParseDate(v)
	if err != nil {
		return core.Date{}, fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return d, nil
}

// sanitizeInput trims and removes control characters except tab, newline
// and carriage return.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s)
}
