package http

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strconv"

	"budget/internal/export"
	"budget/internal/log"
)

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
		defer cancel()
		if err := s.ready(ctx); err != nil {
			log.FromContext(ctx).WarnContext(ctx, "Readiness check failed", log.FieldError, err)
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func (s *Server) handleRateLimited(w http.ResponseWriter, r *http.Request) {
	log.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded", log.FieldPath, r.URL.Path)
	writeJSON(w, http.StatusTooManyRequests, errorJSON{Error: "rate limit exceeded, try again later"})
}

func (s *Server) handleListRecords(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	records, err := s.svc.Records(ctx)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toRecordsJSON(records))
}

// handleCreateRecord appends one record. Categories must belong to the
// configured set; a blank category is stored as the default.
func (s *Server) handleCreateRecord(w http.ResponseWriter, r *http.Request) {
	in, err := parseRecordInput(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	category, err := s.svc.Categories().Check(in.Category)
	if err != nil {
		writeError(w, r, err)
		return
	}
	in.Category = category

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	rec, ref, err := s.svc.AddRecord(ctx, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Location", "/days?date="+rec.Date.String())
	writeJSON(w, http.StatusCreated, createdJSON{Ref: ref, Record: toRecordJSON(rec)})
}

func (s *Server) handleDay(w http.ResponseWriter, r *http.Request) {
	date, err := parseDateParam(r.URL.Query(), s.svc.Today())
	if err != nil {
		writeError(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	day, err := s.svc.Day(ctx, date)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dayJSON{
		Date:    day.Date.String(),
		Records: toRecordsJSON(day.Records),
		Totals:  toTotalsJSON(day.Totals),
	})
}

func (s *Server) handleMonth(w http.ResponseWriter, r *http.Request) {
	year, month, err := parseMonthParams(r.URL.Query(), s.svc.Today())
	if err != nil {
		writeError(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	ov, err := s.svc.Month(ctx, year, month)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, monthJSON{
		Year:       ov.Year,
		Month:      ov.Month,
		Records:    toRecordsJSON(ov.Records),
		Totals:     toTotalsJSON(ov.Totals),
		Categories: toCategoriesJSON(ov.ByCategory),
	})
}

func (s *Server) handleCategories(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"categories": s.svc.Categories().List()})
}

// handleExportMonth streams export_YYYY_MM.csv. The body is buffered so a
// read failure still produces a clean error response.
func (s *Server) handleExportMonth(w http.ResponseWriter, r *http.Request) {
	year, month, err := parseMonthParams(r.URL.Query(), s.svc.Today())
	if err != nil {
		writeError(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	var buf bytes.Buffer
	n, err := s.exporter.WriteMonthCSV(ctx, &buf, year, month)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", attachment(export.MonthFileName(year, month)))
	w.Header().Set("X-Record-Count", strconv.Itoa(n))
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handleDayReport(w http.ResponseWriter, r *http.Request) {
	date, err := parseDateParam(r.URL.Query(), s.svc.Today())
	if err != nil {
		writeError(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	var buf bytes.Buffer
	if err := s.exporter.WriteDailyPDF(ctx, &buf, date); err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", attachment(export.ReportFileName(date)))
	_, _ = w.Write(buf.Bytes())
}

func attachment(name string) string {
	return fmt.Sprintf("attachment; filename=%q", name)
}
