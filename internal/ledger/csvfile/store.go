// Package csvfile stores the ledger as an append-only CSV file.
package csvfile

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"budget/internal/core"
	"budget/internal/ledger"
)

// Ensure interface conformance
var _ ledger.Store = (*Store)(nil)

// Store is the flat-file ledger. A mutex serialises calls made from one
// process; nothing guards against other processes writing the same file.
type Store struct {
	mu   sync.Mutex
	path string
	now  func() time.Time
}

type Option func(*Store)

// WithClock overrides the clock used to default a missing date.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func New(path string, opts ...Option) *Store {
	s := &Store{path: path, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// EnsureInitialized creates the file with only the header row when it does
// not exist yet.
func (s *Store) EnsureInitialized(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ensure(ctx)
}

// ensure writes the header when the file is missing or empty. An empty file
// is what a crash between create and header write leaves behind.
func (s *Store) ensure(ctx context.Context) error {
	if info, err := os.Stat(s.path); err == nil && info.Size() > 0 {
		return nil
	} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("stat ledger: %w", err)
	}

	if dir := filepath.Dir(s.path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create ledger directory: %w", err)
		}
	}

	f, err := os.OpenFile(s.path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("create ledger: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return fmt.Errorf("stat ledger: %w", err)
	}
	if info.Size() > 0 {
		return f.Close()
	}
	if err := WriteHeader(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("sync ledger: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close ledger: %w", err)
	}

	slog.DebugContext(ctx, "Ledger header written", "path", s.path)
	return nil
}

// Append validates r and writes it as the last row. The row is flushed and
// synced to disk before Append returns. The returned reference is the byte
// offset the row was written at.
func (s *Store) Append(ctx context.Context, r core.Record) (string, error) {
	r = r.WithDefaults(core.DateOf(s.now()))
	if err := r.Validate(); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensure(ctx); err != nil {
		return "", err
	}

	f, err := os.OpenFile(s.path, os.O_WRONLY|os.O_APPEND, 0)
	if err != nil {
		return "", fmt.Errorf("open ledger: %w", err)
	}
	defer f.Close()

	offset, err := f.Seek(0, io.SeekEnd)
	if err != nil {
		return "", fmt.Errorf("seek ledger: %w", err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(EncodeRow(r)); err != nil {
		return "", fmt.Errorf("write record: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("flush record: %w", err)
	}
	if err := f.Sync(); err != nil {
		return "", fmt.Errorf("sync ledger: %w", err)
	}

	return fmt.Sprintf("%s@%d", filepath.Base(s.path), offset), nil
}

// ReadAll returns every row in file order. Reading before anything was
// written yields an empty slice.
func (s *Store) ReadAll(ctx context.Context) ([]core.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensure(ctx); err != nil {
		return nil, err
	}

	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	defer f.Close()

	records, err := ReadTable(f)
	if err != nil {
		return nil, fmt.Errorf("read ledger %s: %w", s.path, err)
	}
	return records, nil
}
