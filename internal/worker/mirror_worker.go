// Package worker applies record-appended events to a mirror ledger.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"budget/internal/amqp"
	"budget/internal/ledger"
	"budget/internal/log"
)

// DefaultSeenWindow is how many processed event ids a MirrorWorker remembers.
const DefaultSeenWindow = 4096

// MirrorWorker appends the record carried by each message to a target store.
// Append is not idempotent, so redelivered events are recognised by id and
// skipped. An id is reserved before the append and released if it fails, so
// concurrent deliveries of the same event append at most once.
type MirrorWorker struct {
	target ledger.Appender

	mu       sync.Mutex
	seen     map[string]struct{}
	inflight map[string]struct{}
	ring     []string
	next     int
}

func NewMirrorWorker(target ledger.Appender, window int) *MirrorWorker {
	if window <= 0 {
		window = DefaultSeenWindow
	}
	return &MirrorWorker{
		target:   target,
		seen:     make(map[string]struct{}, window),
		inflight: make(map[string]struct{}),
		ring:     make([]string, window),
	}
}

// HandleRecordAppended mirrors a single message. It has the signature of
// amqp.Handler.
func (w *MirrorWorker) HandleRecordAppended(ctx context.Context, msg *amqp.RecordAppendedMessage) error {
	if !w.reserve(msg.EventID) {
		slog.InfoContext(ctx, "Skipping duplicate record appended message",
			log.FieldEventID, msg.EventID,
			"ref", msg.Ref)
		return nil
	}

	slog.InfoContext(ctx, "Processing record appended message",
		log.FieldOperation, log.OpMirror,
		log.FieldEventID, msg.EventID,
		"ref", msg.Ref,
		log.FieldDate, msg.Date)

	mirrorRef, err := w.target.Append(ctx, msg.Record())
	w.release(msg.EventID, err == nil)
	if err != nil {
		return fmt.Errorf("mirror record %s: %w", msg.Ref, err)
	}

	slog.InfoContext(ctx, "Mirrored record",
		log.FieldOperation, log.OpMirror,
		log.FieldEventID, msg.EventID,
		"ref", msg.Ref,
		"mirror_ref", mirrorRef)
	return nil
}

// reserve marks id as in flight. It reports false when id was already
// mirrored or another delivery of it is being handled.
func (w *MirrorWorker) reserve(id string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.seen[id]; ok {
		return false
	}
	if _, ok := w.inflight[id]; ok {
		return false
	}
	w.inflight[id] = struct{}{}
	return true
}

// release clears the reservation for id and, when done, remembers it,
// evicting the oldest id once the window is full.
func (w *MirrorWorker) release(id string, done bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.inflight, id)
	if !done {
		return
	}
	if old := w.ring[w.next]; old != "" {
		delete(w.seen, old)
	}
	w.ring[w.next] = id
	w.seen[id] = struct{}{}
	w.next = (w.next + 1) % len(w.ring)
}
