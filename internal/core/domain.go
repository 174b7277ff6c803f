package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// DateLayout is the ISO calendar layout used wherever a date is stored.
const DateLayout = "2006-01-02"

// DefaultCategory is the label stored when a record is appended without one.
const DefaultCategory = "Other"

const (
	Income  Kind = "income"
	Expense Kind = "expense"
)

type (
	Kind string

	// Date is a calendar day in UTC. A Date decoded from storage keeps the
	// original text when that text is not a valid ISO date.
	Date struct {
		time.Time
		raw string
	}

	Record struct {
		Date     Date
		Kind     Kind
		Category string
		Amount   Amount
		Note     string
	}
)

// ErrValidation is wrapped by every error returned for bad input on the
// append path.
var ErrValidation = errors.New("validation failed")

var (
	ErrInvalidDate   = fmt.Errorf("%w: invalid date", ErrValidation)
	ErrInvalidKind   = fmt.Errorf("%w: invalid kind", ErrValidation)
	ErrInvalidAmount = fmt.Errorf("%w: invalid amount", ErrValidation)

	// ErrMalformedAmount is returned by aggregations that meet a stored
	// amount which does not parse.
	ErrMalformedAmount = errors.New("malformed amount")
)

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf returns the calendar day of t in t's own location.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil || t.IsZero() {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return Date{Time: t}, nil
}

// DateFromText decodes a stored date. It never fails: text that is not a
// valid date is kept verbatim and the result reports !Valid().
func DateFromText(s string) Date {
	t, err := time.Parse(DateLayout, s)
	if err != nil || t.IsZero() {
		return Date{raw: s}
	}
	return Date{Time: t}
}

// Valid reports whether d holds a real calendar day.
func (d Date) Valid() bool {
	return !d.IsZero()
}

// Day returns the day of the month
func (d Date) Day() int {
	return d.Time.Day()
}

// Month returns the month
func (d Date) Month() int {
	return int(d.Time.Month())
}

// Year returns the year
func (d Date) Year() int {
	return d.Time.Year()
}

// SameDay reports whether both dates are valid and fall on the same day.
func (d Date) SameDay(o Date) bool {
	if !d.Valid() || !o.Valid() {
		return false
	}
	return d.Year() == o.Year() && d.Month() == o.Month() && d.Day() == o.Day()
}

// String renders the date in storage form, or the original text for an
// invalid stored date.
func (d Date) String() string {
	if !d.Valid() {
		return d.raw
	}
	return d.Format(DateLayout)
}

// Equal compares two dates including any undecoded text.
func (d Date) Equal(o Date) bool {
	return d.Time.Equal(o.Time) && d.raw == o.raw
}

func (d Date) Validate() error {
	if !d.Valid() {
		if d.raw != "" {
			return fmt.Errorf("%w: %q", ErrInvalidDate, d.raw)
		}
		return ErrInvalidDate
	}
	return nil
}

// ParseKind accepts "income" or "expense" in any case.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if err := k.Validate(); err != nil {
		return "", err
	}
	return k, nil
}

func (k Kind) Validate() error {
	switch k {
	case Income, Expense:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrInvalidKind, string(k))
	}
}

// WithDefaults fills the fields a caller may leave out when appending:
// a missing date becomes today and a blank category becomes DefaultCategory.
// Line breaks in the note become "\n", the only form the CSV reader returns.
func (r Record) WithDefaults(today Date) Record {
	if r.Date.IsZero() && r.Date.raw == "" {
		r.Date = today
	}
	r.Category = strings.TrimSpace(r.Category)
	if r.Category == "" {
		r.Category = DefaultCategory
	}
	r.Note = normalizeNewlines(r.Note)
	return r
}

func normalizeNewlines(s string) string {
	if !strings.ContainsRune(s, '\r') {
		return s
	}
	return strings.ReplaceAll(strings.ReplaceAll(s, "\r\n", "\n"), "\r", "\n")
}

// Validate checks a record before it is written.
func (r Record) Validate() error {
	if err := r.Date.Validate(); err != nil {
		return err
	}
	if err := r.Kind.Validate(); err != nil {
		return err
	}
	if err := r.Amount.Validate(); err != nil {
		return err
	}
	return nil
}

// Equal compares records field by field; amounts compare by value.
func (r Record) Equal(o Record) bool {
	return r.Date.Equal(o.Date) &&
		r.Kind == o.Kind &&
		r.Category == o.Category &&
		r.Amount.Equal(o.Amount) &&
		r.Note == o.Note
}
