// Package query derives views over a record sequence without mutating it.
//
// Filters are tolerant: a record whose date does not parse never matches
// and never produces an error. Aggregations are strict: an amount that does
// not parse aborts the call with core.ErrMalformedAmount.
package query

import "budget/internal/core"

// FilterByExactDate returns the records dated on date, in their original order.
func FilterByExactDate(records []core.Record, date core.Date) []core.Record {
	out := make([]core.Record, 0)
	for _, r := range records {
		if r.Date.SameDay(date) {
			out = append(out, r)
		}
	}
	return out
}

// FilterByMonth returns the records dated within year and month (1-12).
// Records with a malformed date are skipped; a month outside 1-12 matches
// nothing.
func FilterByMonth(records []core.Record, year, month int) []core.Record {
	out := make([]core.Record, 0)
	for _, r := range records {
		if !r.Date.Valid() {
			continue
		}
		if r.Date.Year() == year && r.Date.Month() == month {
			out = append(out, r)
		}
	}
	return out
}
