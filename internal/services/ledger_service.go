package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"budget/internal/core"
	"budget/internal/ledger"
	"budget/internal/log"
	"budget/internal/query"
	"budget/internal/taxonomy"
)

// readAllKey groups concurrent full reads of the store.
const readAllKey = "all"

// Publisher announces records that were appended to the ledger.
type Publisher interface {
	PublishRecordAppended(ctx context.Context, r core.Record, ref string) error
}

// RecordInput is raw user input for a new record. Every field is text so
// that parsing and trimming happen in one place.
type RecordInput struct {
	Date     string // YYYY-MM-DD; empty means today
	Kind     string
	Category string
	Amount   string
	Note     string
}

// LedgerService is what the CLI and HTTP surfaces call: it parses input,
// appends to the store and runs the query engine over full reads.
type LedgerService struct {
	store      ledger.Store
	publisher  Publisher
	categories *taxonomy.Taxonomy
	now        func() time.Time
	logger     *log.Logger
	reads      singleflight.Group
}

type Option func(*LedgerService)

// WithPublisher announces each successful append.
func WithPublisher(p Publisher) Option {
	return func(s *LedgerService) { s.publisher = p }
}

// WithClock overrides the clock used for "today".
func WithClock(now func() time.Time) Option {
	return func(s *LedgerService) { s.now = now }
}

func WithLogger(l *log.Logger) Option {
	return func(s *LedgerService) { s.logger = l }
}

// WithCategories sets the category set returned by Categories.
func WithCategories(t *taxonomy.Taxonomy) Option {
	return func(s *LedgerService) { s.categories = t }
}

func NewLedgerService(store ledger.Store, opts ...Option) *LedgerService {
	s := &LedgerService{
		store:      store,
		categories: taxonomy.New(taxonomy.Default),
		now:        time.Now,
		logger:     log.New(log.DefaultConfig()).WithComponent(log.ComponentLedger),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Today is the current calendar day according to the service clock.
func (s *LedgerService) Today() core.Date {
	return core.DateOf(s.now())
}

// ParseInput converts raw input into a record ready for append. It trims
// every field; a blank date becomes today and a blank category becomes
// core.DefaultCategory.
func (s *LedgerService) ParseInput(in RecordInput) (core.Record, error) {
	var r core.Record

	if d := strings.TrimSpace(in.Date); d != "" {
		date, err := core.ParseDate(d)
		if err != nil {
			return core.Record{}, err
		}
		r.Date = date
	}

	kind, err := core.ParseKind(in.Kind)
	if err != nil {
		return core.Record{}, err
	}
	r.Kind = kind

	amount, err := core.ParseAmount(in.Amount)
	if err != nil {
		return core.Record{}, err
	}
	r.Amount = amount

	r.Category = strings.TrimSpace(in.Category)
	r.Note = strings.TrimSpace(in.Note)

	r = r.WithDefaults(s.Today())
	if err := r.Validate(); err != nil {
		return core.Record{}, err
	}
	return r, nil
}

// AddRecord parses in and appends it. Publishing failures are logged and
// never returned: the record is already durable.
func (s *LedgerService) AddRecord(ctx context.Context, in RecordInput) (core.Record, string, error) {
	r, err := s.ParseInput(in)
	if err != nil {
		return core.Record{}, "", err
	}

	ref, err := s.store.Append(ctx, r)
	if err != nil {
		return core.Record{}, "", fmt.Errorf("append record: %w", err)
	}
	// A read already in flight may predate this row.
	s.reads.Forget(readAllKey)
	log.NewStructuredLogger(s.logger).LogRecordAppended(ctx, r, ref)

	if s.publisher != nil {
		if err := s.publisher.PublishRecordAppended(ctx, r, ref); err != nil {
			fields := log.NewFields().WithRecord(r)
			fields[log.FieldRowRef] = ref
			log.NewStructuredLogger(s.logger).LogError(ctx, "Failed to publish record appended event", err, log.OpPublish, fields)
		}
	}
	return r, ref, nil
}

// Records returns the full ledger. Concurrent callers share one read and
// each gets its own copy of the slice.
func (s *LedgerService) Records(ctx context.Context) ([]core.Record, error) {
	ch := s.reads.DoChan(readAllKey, func() (any, error) {
		return s.store.ReadAll(context.WithoutCancel(ctx))
	})
	var res singleflight.Result
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("read ledger: %w", ctx.Err())
	case res = <-ch:
	}
	if res.Err != nil {
		return nil, fmt.Errorf("read ledger: %w", res.Err)
	}
	shared := res.Val.([]core.Record)
	out := make([]core.Record, len(shared))
	copy(out, shared)
	return out, nil
}

// Day lists the records on date with their totals.
func (s *LedgerService) Day(ctx context.Context, date core.Date) (core.DayOverview, error) {
	records, err := s.Records(ctx)
	if err != nil {
		return core.DayOverview{}, err
	}
	day := query.FilterByExactDate(records, date)
	totals, err := query.SumByKind(day)
	if err != nil {
		return core.DayOverview{}, fmt.Errorf("totals for %s: %w", date, err)
	}
	return core.DayOverview{Date: date, Records: day, Totals: totals}, nil
}

// TodayOverview is Day for the current date.
func (s *LedgerService) TodayOverview(ctx context.Context) (core.DayOverview, error) {
	return s.Day(ctx, s.Today())
}

// Month summarises one calendar month. A month outside 1-12 yields an empty
// overview.
func (s *LedgerService) Month(ctx context.Context, year, month int) (core.MonthOverview, error) {
	records, err := s.Records(ctx)
	if err != nil {
		return core.MonthOverview{}, err
	}
	inMonth := query.FilterByMonth(records, year, month)
	totals, err := query.SumByKind(inMonth)
	if err != nil {
		return core.MonthOverview{}, fmt.Errorf("totals for %04d-%02d: %w", year, month, err)
	}
	byCat, err := query.SumExpenseByCategory(inMonth)
	if err != nil {
		return core.MonthOverview{}, fmt.Errorf("categories for %04d-%02d: %w", year, month, err)
	}
	return core.MonthOverview{
		Year:       year,
		Month:      month,
		Records:    inMonth,
		Totals:     totals,
		ByCategory: byCat,
	}, nil
}

// Categories returns the configured category set.
func (s *LedgerService) Categories() *taxonomy.Taxonomy {
	return s.categories
}
