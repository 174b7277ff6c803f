package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"budget/internal/core"
	"budget/internal/export"
	"budget/internal/ledger/csvfile"
	"budget/internal/ledger/memory"
	"budget/internal/log"
	"budget/internal/middleware/ratelimit"
	"budget/internal/services"
)

func fixedClock() time.Time { return time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC) }

func newTestServer(t *testing.T, store *memory.Store, opts ...Option) *Server {
	t.Helper()
	var buf bytes.Buffer
	logger := log.New(log.Config{Level: slog.LevelDebug, Component: log.ComponentHTTP, Output: &buf})
	store.SetClock(fixedClock)
	svc := services.NewLedgerService(store, services.WithClock(fixedClock), services.WithLogger(logger))
	srv := NewServer(":0", svc, export.NewExporter(store, t.TempDir()), logger, opts...)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return srv
}

func do(t *testing.T, srv *Server, method, target string, body string, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", contentType)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func errorMessage(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var e errorJSON
	if err := json.Unmarshal(rr.Body.Bytes(), &e); err != nil {
		t.Fatalf("error body is not JSON: %s", rr.Body.String())
	}
	return e.Error
}

func TestHealthAndReady(t *testing.T) {
	srv := newTestServer(t, memory.New())
	for _, path := range []string{"/healthz", "/readyz"} {
		rr := do(t, srv, http.MethodGet, path, "", "")
		if rr.Code != http.StatusOK {
			t.Fatalf("%s status=%d", path, rr.Code)
		}
		if rr.Header().Get("X-Request-ID") == "" || rr.Header().Get("X-Content-Type-Options") != "nosniff" {
			t.Fatalf("%s missing middleware headers: %v", path, rr.Header())
		}
	}

	notReady := newTestServer(t, memory.New(), WithReadiness(func(context.Context) error { return errors.New("disk gone") }))
	if rr := do(t, notReady, http.MethodGet, "/readyz", "", ""); rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rr.Code)
	}
}

func TestCreateRecord(t *testing.T) {
	form := "application/x-www-form-urlencoded"
	tests := []struct {
		name        string
		body        string
		contentType string
		wantStatus  int
		wantError   string
	}{
		{"form", url.Values{"type": {"expense"}, "amount": {"12,5"}, "category": {"food"}, "note": {"lunch"}}.Encode(), form, http.StatusCreated, ""},
		{"json string amount", `{"type":"income","amount":"1000","category":"Savings"}`, "application/json", http.StatusCreated, ""},
		{"json number amount", `{"type":"income","amount":12.25}`, "application/json; charset=utf-8", http.StatusCreated, ""},
		{"bad amount", url.Values{"type": {"expense"}, "amount": {"abc"}}.Encode(), form, http.StatusUnprocessableEntity, "invalid amount"},
		{"empty amount", url.Values{"type": {"expense"}}.Encode(), form, http.StatusUnprocessableEntity, "invalid amount"},
		{"negative amount", `{"type":"expense","amount":-4}`, "application/json", http.StatusUnprocessableEntity, "negative"},
		{"bad kind", url.Values{"type": {"gift"}, "amount": {"1"}}.Encode(), form, http.StatusUnprocessableEntity, "invalid kind"},
		{"bad date", url.Values{"type": {"expense"}, "amount": {"1"}, "date": {"2024-02-30"}}.Encode(), form, http.StatusUnprocessableEntity, "invalid date"},
		{"unknown category", url.Values{"type": {"expense"}, "amount": {"1"}, "category": {"Fod"}}.Encode(), form, http.StatusUnprocessableEntity, `did you mean "Food"`},
		{"malformed json", `{"type":`, "application/json", http.StatusBadRequest, "invalid JSON"},
		{"unknown json field", `{"kind":"expense"}`, "application/json", http.StatusBadRequest, "invalid JSON"},
		{"oversized json", `{"type":"expense","amount":"1","note":"` + strings.Repeat("x", maxBodyBytes) + `"}`, "application/json", http.StatusRequestEntityTooLarge, "too large"},
		{"oversized form", "type=expense&amount=1&note=" + strings.Repeat("x", maxBodyBytes), form, http.StatusRequestEntityTooLarge, "too large"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := memory.New()
			srv := newTestServer(t, store)
			rr := do(t, srv, http.MethodPost, "/records", tt.body, tt.contentType)
			if rr.Code != tt.wantStatus {
				t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
			}
			if tt.wantError != "" {
				if msg := errorMessage(t, rr); !strings.Contains(msg, tt.wantError) {
					t.Fatalf("expected %q in %q", tt.wantError, msg)
				}
				if store.Len() != 0 {
					t.Fatal("rejected input must not be stored")
				}
				return
			}
			if store.Len() != 1 {
				t.Fatalf("expected one stored record, got %d", store.Len())
			}
		})
	}
}

func TestCreateRecordResponse(t *testing.T) {
	store := memory.New()
	srv := newTestServer(t, store)
	rr := do(t, srv, http.MethodPost, "/records", "type=expense&amount=12,5&category=food", "application/x-www-form-urlencoded")
	if rr.Code != http.StatusCreated {
		t.Fatalf("status=%d", rr.Code)
	}
	var got createdJSON
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := recordJSON{Date: "2024-03-01", Type: "expense", Category: "Food", Amount: "12.50"}
	if got.Ref != "mem:1" || got.Record != want {
		t.Fatalf("unexpected response %+v", got)
	}
	if rr.Header().Get("Location") != "/days?date=2024-03-01" {
		t.Fatalf("unexpected location %q", rr.Header().Get("Location"))
	}
}

func TestCreateRecordBlankCategoryDefaults(t *testing.T) {
	store := memory.New()
	srv := newTestServer(t, store)
	rr := do(t, srv, http.MethodPost, "/records", `{"type":"expense","amount":"3","category":"  "}`, "application/json")
	if rr.Code != http.StatusCreated {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	records, _ := store.ReadAll(context.Background())
	if records[0].Category != core.DefaultCategory {
		t.Fatalf("expected default category, got %q", records[0].Category)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	srv := newTestServer(t, memory.New())
	if rr := do(t, srv, http.MethodDelete, "/records", "", ""); rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rr.Code)
	}
}

func seeded() *memory.Store {
	return memory.New(
		core.Record{Date: core.NewDate(2024, 3, 1), Kind: core.Income, Category: "Salary", Amount: core.MustAmount("1000.00")},
		core.Record{Date: core.NewDate(2024, 3, 1), Kind: core.Expense, Category: "Food", Amount: core.MustAmount("50.00"), Note: "lunch"},
		core.Record{Date: core.DateFromText("not-a-date"), Kind: core.Expense, Category: "Food", Amount: core.MustAmount("1")},
		core.Record{Date: core.NewDate(2024, 3, 20), Kind: core.Expense, Category: "Bills", Amount: core.MustAmount("150")},
	)
}

func TestDay(t *testing.T) {
	srv := newTestServer(t, seeded())

	rr := do(t, srv, http.MethodGet, "/days", "", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	var got dayJSON
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Date != "2024-03-01" || len(got.Records) != 2 || got.Records[1].Note != "lunch" {
		t.Fatalf("unexpected day %+v", got)
	}
	if got.Totals != (totalsJSON{Income: "1000.00", Expense: "50.00", Balance: "950.00"}) {
		t.Fatalf("unexpected totals %+v", got.Totals)
	}

	if rr := do(t, srv, http.MethodGet, "/days?date=01/03/2024", "", ""); rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad date, got %d", rr.Code)
	}
}

func TestMonth(t *testing.T) {
	srv := newTestServer(t, seeded())

	rr := do(t, srv, http.MethodGet, "/months?year=2024&month=3", "", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	var got monthJSON
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got.Records) != 3 {
		t.Fatalf("malformed date must be excluded, got %d records", len(got.Records))
	}
	want := []categoryJSON{{Name: "Food", Amount: "50.00", Percent: "25.0"}, {Name: "Bills", Amount: "150.00", Percent: "75.0"}}
	if len(got.Categories) != 2 || got.Categories[0] != want[0] || got.Categories[1] != want[1] {
		t.Fatalf("unexpected categories %+v", got.Categories)
	}

	rr = do(t, srv, http.MethodGet, "/months?year=2024&month=13", "", "")
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), `"records":[]`) {
		t.Fatalf("month 13 should be empty: %d %s", rr.Code, rr.Body.String())
	}

	for _, q := range []string{"year=abc", "month=march"} {
		if rr := do(t, srv, http.MethodGet, "/months?"+q, "", ""); rr.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", q, rr.Code)
		}
	}
}

func TestMalformedAmountIsServerError(t *testing.T) {
	store := memory.New(core.Record{Date: core.NewDate(2024, 3, 2), Kind: core.Expense, Category: "Food", Amount: core.AmountFromText("oops")})
	srv := newTestServer(t, store)

	for _, target := range []string{"/months?year=2024&month=3", "/days?date=2024-03-02", "/reports/day.pdf?date=2024-03-02"} {
		rr := do(t, srv, http.MethodGet, target, "", "")
		if rr.Code != http.StatusInternalServerError || !strings.Contains(errorMessage(t, rr), "malformed amount") {
			t.Fatalf("%s: expected visible 500, got %d %s", target, rr.Code, rr.Body.String())
		}
	}
}

func TestCategories(t *testing.T) {
	srv := newTestServer(t, memory.New())
	rr := do(t, srv, http.MethodGet, "/categories", "", "")
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), `"Groceries"`) {
		t.Fatalf("unexpected categories response %d %s", rr.Code, rr.Body.String())
	}
}

func TestExportMonthCSV(t *testing.T) {
	srv := newTestServer(t, seeded())
	rr := do(t, srv, http.MethodGet, "/exports/month.csv?year=2024&month=3", "", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	if rr.Header().Get("Content-Disposition") != `attachment; filename="export_2024_03.csv"` || rr.Header().Get("X-Record-Count") != "3" {
		t.Fatalf("unexpected headers %v", rr.Header())
	}
	records, err := csvfile.ReadTable(rr.Body)
	if err != nil || len(records) != 3 {
		t.Fatalf("read back %d records, err=%v", len(records), err)
	}
}

func TestDayReportPDF(t *testing.T) {
	srv := newTestServer(t, seeded())
	rr := do(t, srv, http.MethodGet, "/reports/day.pdf?date=2024-03-01", "", "")
	if rr.Code != http.StatusOK || rr.Header().Get("Content-Type") != "application/pdf" {
		t.Fatalf("status=%d headers=%v", rr.Code, rr.Header())
	}
	if !bytes.HasPrefix(rr.Body.Bytes(), []byte("%PDF-")) {
		t.Fatal("body is not a PDF")
	}
}

func TestCreateRecordRateLimited(t *testing.T) {
	srv := newTestServer(t, memory.New(), WithRateLimit(ratelimit.Config{RequestsPerMinute: 1}))
	body := "type=expense&amount=1"
	if rr := do(t, srv, http.MethodPost, "/records", body, "application/x-www-form-urlencoded"); rr.Code != http.StatusCreated {
		t.Fatalf("first request: %d", rr.Code)
	}
	rr := do(t, srv, http.MethodPost, "/records", body, "application/x-www-form-urlencoded")
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rr.Code)
	}
	if rr := do(t, srv, http.MethodGet, "/records", "", ""); rr.Code != http.StatusOK {
		t.Fatalf("reads are not limited, got %d", rr.Code)
	}
}
