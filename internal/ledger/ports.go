// Package ledger defines the ports every record store implements.
package ledger

import (
	"context"

	"budget/internal/core"
)

// Header is the column layout of the persisted table, in order.
var Header = []string{"date", "type", "category", "amount", "note"}

// Ports for ledger backends.
type (
	// Initializer prepares empty storage. It must be idempotent.
	Initializer interface {
		EnsureInitialized(ctx context.Context) error
	}

	// Appender writes one record as the last entry. Implementations default
	// a missing date to today and a blank category to core.DefaultCategory,
	// and reject invalid records before anything is written.
	Appender interface {
		Append(ctx context.Context, r core.Record) (rowRef string, err error)
	}

	// Reader returns every stored record in append order. Malformed rows are
	// returned as decoded values, never as errors.
	Reader interface {
		ReadAll(ctx context.Context) ([]core.Record, error)
	}

	Store interface {
		Initializer
		Appender
		Reader
	}
)
