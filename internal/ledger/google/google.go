// Package google stores the ledger in a Google Sheets worksheet. Row 1 holds
// the header and every record is one row below it.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"budget/internal/cache"
	"budget/internal/core"
	"budget/internal/ledger"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// DefaultSheetName is used when no worksheet name is configured.
const DefaultSheetName = "Ledger"

// Ensure interface conformance
var _ ledger.Store = (*Client)(nil)

type Config struct {
	SpreadsheetID   string
	SheetName       string
	CredentialsFile string
	CredentialsJSON string
	// ReadCacheTTL keeps fetched ranges for this long. Zero disables caching.
	ReadCacheTTL time.Duration
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheet         string
	now           func() time.Time
	values        cache.Cache[[][]interface{}] // nil when caching is off
}

// New creates a Sheets client. Credentials come from cfg unless extra client
// options already provide them.
func New(ctx context.Context, cfg Config, opts ...goption.ClientOption) (*Client, error) {
	spreadsheetID := strings.TrimSpace(cfg.SpreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	sheet := strings.TrimSpace(cfg.SheetName)
	if sheet == "" {
		sheet = DefaultSheetName
	}

	if len(opts) == 0 {
		creds, err := credentialsOption(ctx, cfg)
		if err != nil {
			return nil, err
		}
		opts = []goption.ClientOption{creds, goption.WithScopes(gsheet.SpreadsheetsScope)}
	}

	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	slog.InfoContext(ctx, "Google Sheets ledger configured", "spreadsheet_id", spreadsheetID, "sheet", sheet)
	c := &Client{svc: svc, spreadsheetID: spreadsheetID, sheet: sheet, now: time.Now}
	if cfg.ReadCacheTTL > 0 {
		c.values = cache.NewLRUCache[[][]interface{}](4, cfg.ReadCacheTTL)
	}
	return c, nil
}

// credentialsOption resolves service account credentials: inline JSON first,
// then a file, then GOOGLE_APPLICATION_CREDENTIALS.
func credentialsOption(ctx context.Context, cfg Config) (goption.ClientOption, error) {
	inline := strings.TrimSpace(cfg.CredentialsJSON)
	file := strings.TrimSpace(cfg.CredentialsFile)
	if inline == "" && file == "" {
		file = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	switch {
	case inline != "":
		slog.DebugContext(ctx, "Using inline JSON credentials", "json_length", len(inline))
		return goption.WithCredentialsJSON([]byte(inline)), nil
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		slog.DebugContext(ctx, "Read credentials file", "path", file, "size", len(data))
		return goption.WithCredentialsJSON(data), nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_CREDENTIALS_JSON, GOOGLE_CREDENTIALS_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
}

// SetClock overrides the clock used to default a missing date.
func (c *Client) SetClock(now func() time.Time) {
	c.now = now
}

func (c *Client) rng(cells string) string {
	return fmt.Sprintf("%s!%s", c.sheet, cells)
}

// EnsureInitialized writes the header into row 1 when that row is empty.
func (c *Client) EnsureInitialized(ctx context.Context) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	header, err := c.getValues(ctx, c.rng("A1:E1"))
	if err != nil {
		return fmt.Errorf("read header of %s: %w", c.sheet, err)
	}
	if len(header) > 0 && len(header[0]) > 0 {
		return nil
	}

	vr := &gsheet.ValueRange{Values: [][]any{toRow(ledger.Header)}}
	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, c.rng("A1:E1"), vr).
		ValueInputOption("RAW").Context(ctx).Do()
	c.invalidate()
	if err != nil {
		return fmt.Errorf("write header of %s: %w", c.sheet, err)
	}
	slog.InfoContext(ctx, "Ledger header written", "sheet", c.sheet)
	return nil
}

// Append implements ledger.Appender. Values are written RAW so the sheet keeps
// the same text the flat file would. The reference is the updated range.
func (c *Client) Append(ctx context.Context, r core.Record) (string, error) {
	r = r.WithDefaults(core.DateOf(c.now()))
	if err := r.Validate(); err != nil {
		return "", err
	}
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}
	if err := c.EnsureInitialized(ctx); err != nil {
		return "", err
	}

	vr := &gsheet.ValueRange{Values: [][]any{recordRow(r)}}
	resp, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, c.rng("A:E"), vr).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	c.invalidate()
	if err != nil {
		return "", fmt.Errorf("append to sheet %s: %w", c.sheet, err)
	}

	ref := c.rng("A:E")
	if resp.Updates != nil && resp.Updates.UpdatedRange != "" {
		ref = resp.Updates.UpdatedRange
	}
	slog.InfoContext(ctx, "Record appended to sheet", "ref", ref, "date", r.Date.String(), "type", string(r.Kind))
	return ref, nil
}

// ReadAll implements ledger.Reader.
func (c *Client) ReadAll(ctx context.Context) ([]core.Record, error) {
	if err := c.EnsureInitialized(ctx); err != nil {
		return nil, err
	}
	values, err := c.getValues(ctx, c.rng("A:E"))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", c.rng("A:E"), err)
	}
	return parseRecords(values), nil
}

// getValues fetches a range, serving it from the read cache while fresh.
// Cached matrices are shared and must not be modified.
func (c *Client) getValues(ctx context.Context, rng string) ([][]interface{}, error) {
	if c.values != nil {
		if v, ok := c.values.Get(rng); ok {
			return v, nil
		}
	}
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	if c.values != nil {
		c.values.Set(rng, resp.Values)
	}
	return resp.Values, nil
}

// invalidate drops cached ranges after any write attempt, failed ones
// included.
func (c *Client) invalidate() {
	if c.values != nil {
		c.values.Clear()
	}
}
