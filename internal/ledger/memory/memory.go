// Package memory keeps the ledger in process memory. It is used by tests and
// for throwaway sessions.
package memory

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"
	"time"

	"budget/internal/core"
	"budget/internal/ledger"
	"budget/internal/ledger/csvfile"
)

var _ ledger.Store = (*Store)(nil)

type Store struct {
	mu    sync.Mutex
	now   func() time.Time
	items []core.Record
}

func New(seed ...core.Record) *Store {
	return &Store{now: time.Now, items: append([]core.Record(nil), seed...)}
}

// NewFromTable seeds the store from a ledger table on disk. A missing file
// yields an empty store.
func NewFromTable(path string) (*Store, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return New(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("open seed table: %w", err)
	}
	defer f.Close()

	records, err := csvfile.ReadTable(f)
	if err != nil {
		return nil, fmt.Errorf("read seed table %s: %w", path, err)
	}
	return New(records...), nil
}

// SetClock overrides the clock used to default a missing date.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *Store) EnsureInitialized(_ context.Context) error {
	return nil
}

// Append stores the record and returns a synthetic row reference.
func (s *Store) Append(_ context.Context, r core.Record) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r = r.WithDefaults(core.DateOf(s.now()))
	if err := r.Validate(); err != nil {
		return "", err
	}
	s.items = append(s.items, r)
	return fmt.Sprintf("mem:%d", len(s.items)), nil
}

func (s *Store) ReadAll(_ context.Context) ([]core.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Record, len(s.items))
	copy(out, s.items)
	return out, nil
}

// Len reports how many records are stored.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}
