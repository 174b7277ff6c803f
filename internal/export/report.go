package export

import (
	"fmt"
	"strings"

	"budget/internal/core"
)

// ReportTitle heads every daily report.
const ReportTitle = "Daily Budget Report"

// Report is a daily listing split into pages, with totals for the last page.
type Report struct {
	Title   string
	Date    core.Date
	Pages   [][]string
	Count   int
	Totals  core.Totals
	Summary []string
}

// ReportFileName is the PDF file name for a day.
func ReportFileName(date core.Date) string {
	return fmt.Sprintf("report_%s.pdf", date)
}

// BuildDailyReport formats one line per record and splits them into pages of
// linesPerPage, at most MaxLinesPerPage. A day without records still yields a
// single empty page.
func BuildDailyReport(day core.DayOverview, linesPerPage int) (Report, error) {
	if linesPerPage <= 0 {
		linesPerPage = DefaultLinesPerPage
	}
	linesPerPage = min(linesPerPage, MaxLinesPerPage)

	lines := make([]string, 0, len(day.Records))
	for i, r := range day.Records {
		line, err := ReportLine(r)
		if err != nil {
			return Report{}, fmt.Errorf("report line %d: %w", i, err)
		}
		lines = append(lines, line)
	}

	var pages [][]string
	for start := 0; start < len(lines); start += linesPerPage {
		end := min(start+linesPerPage, len(lines))
		pages = append(pages, lines[start:end])
	}
	if len(pages) == 0 {
		pages = [][]string{{}}
	}

	return Report{
		Title:  ReportTitle,
		Date:   day.Date,
		Pages:  pages,
		Count:  len(lines),
		Totals: day.Totals,
		Summary: []string{
			"Total Income: " + day.Totals.Income.StringFixed(2),
			"Total Expense: " + day.Totals.Expense.StringFixed(2),
			"Balance: " + day.Totals.Balance().StringFixed(2),
		},
	}, nil
}

// ReportLine renders a record as a fixed-width listing line.
func ReportLine(r core.Record) (string, error) {
	amount, err := r.Amount.Decimal()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s  %-7s  %-12s %10s  %s",
		r.Date, strings.ToUpper(string(r.Kind)), r.Category, amount.StringFixed(2), r.Note), nil
}
