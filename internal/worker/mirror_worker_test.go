package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"budget/internal/amqp"
	"budget/internal/core"
	"budget/internal/ledger/memory"
)

func message(t *testing.T, category string) *amqp.RecordAppendedMessage {
	t.Helper()
	return amqp.NewRecordAppendedMessage(core.Record{
		Date:     core.NewDate(2024, 3, 1),
		Kind:     core.Expense,
		Category: category,
		Amount:   core.MustAmount("9.90"),
		Note:     "mirrored",
	}, "ledger.csv@17")
}

func alreadySeen(w *MirrorWorker, id string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, ok := w.seen[id]
	return ok
}

func TestMirrorWorkerAppendsRecord(t *testing.T) {
	target := memory.New()
	w := NewMirrorWorker(target, 0)

	msg := message(t, "Food")
	if err := w.HandleRecordAppended(context.Background(), msg); err != nil {
		t.Fatalf("handle: %v", err)
	}

	got, _ := target.ReadAll(context.Background())
	if len(got) != 1 || !got[0].Equal(msg.Record()) {
		t.Fatalf("unexpected mirror content: %+v", got)
	}
}

func TestMirrorWorkerSkipsDuplicates(t *testing.T) {
	target := memory.New()
	w := NewMirrorWorker(target, 8)

	msg := message(t, "Food")
	for i := 0; i < 3; i++ {
		if err := w.HandleRecordAppended(context.Background(), msg); err != nil {
			t.Fatalf("handle %d: %v", i, err)
		}
	}
	if target.Len() != 1 {
		t.Fatalf("redelivery must not duplicate, got %d records", target.Len())
	}
}

func TestMirrorWorkerWindowEvictsOldest(t *testing.T) {
	target := memory.New()
	w := NewMirrorWorker(target, 2)

	first := message(t, "A")
	for _, m := range []*amqp.RecordAppendedMessage{first, message(t, "B"), message(t, "C")} {
		if err := w.HandleRecordAppended(context.Background(), m); err != nil {
			t.Fatalf("handle: %v", err)
		}
	}
	if alreadySeen(w, first.EventID) {
		t.Fatal("oldest id should have been evicted")
	}
	if len(w.seen) != 2 {
		t.Fatalf("window should hold 2 ids, got %d", len(w.seen))
	}
}

type failingAppender struct{ err error }

func (f failingAppender) Append(context.Context, core.Record) (string, error) { return "", f.err }

func TestMirrorWorkerFailureIsRetryable(t *testing.T) {
	boom := errors.New("sheets unavailable")
	w := NewMirrorWorker(failingAppender{err: boom}, 4)

	msg := message(t, "Food")
	if err := w.HandleRecordAppended(context.Background(), msg); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped append error, got %v", err)
	}
	if alreadySeen(w, msg.EventID) {
		t.Fatal("a failed event must not be marked as processed")
	}
}

func TestMirrorWorkerRejectsInvalidRecord(t *testing.T) {
	target := memory.New()
	w := NewMirrorWorker(target, 4)

	msg := message(t, "Food")
	msg.Amount = "not-a-number"
	if err := w.HandleRecordAppended(context.Background(), msg); !errors.Is(err, core.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if target.Len() != 0 {
		t.Fatal("invalid record must not be mirrored")
	}
}

// blockingAppender holds every Append until release is closed.
type blockingAppender struct {
	entered chan struct{}
	release chan struct{}

	mu    sync.Mutex
	calls int
}

func (b *blockingAppender) Append(context.Context, core.Record) (string, error) {
	b.mu.Lock()
	b.calls++
	b.mu.Unlock()
	b.entered <- struct{}{}
	<-b.release
	return "mirror@1", nil
}

func TestMirrorWorkerConcurrentRedeliveryAppendsOnce(t *testing.T) {
	target := &blockingAppender{entered: make(chan struct{}, 2), release: make(chan struct{})}
	w := NewMirrorWorker(target, 8)
	msg := message(t, "Food")

	first := make(chan error, 1)
	go func() { first <- w.HandleRecordAppended(context.Background(), msg) }()

	select {
	case <-target.entered:
	case <-time.After(5 * time.Second):
		t.Fatal("first delivery never reached the target")
	}

	// The first delivery is still inside Append.
	if err := w.HandleRecordAppended(context.Background(), msg); err != nil {
		t.Fatalf("second delivery: %v", err)
	}
	close(target.release)
	if err := <-first; err != nil {
		t.Fatalf("first delivery: %v", err)
	}

	target.mu.Lock()
	defer target.mu.Unlock()
	if target.calls != 1 {
		t.Fatalf("expected a single append, got %d", target.calls)
	}
	if !alreadySeen(w, msg.EventID) {
		t.Fatal("mirrored event should be remembered")
	}
}

func TestMirrorWorkerFailedReservationCanBeRetried(t *testing.T) {
	w := NewMirrorWorker(failingAppender{err: errors.New("down")}, 4)
	msg := message(t, "Food")
	if err := w.HandleRecordAppended(context.Background(), msg); err == nil {
		t.Fatal("expected failure")
	}

	w.target = memory.New()
	if err := w.HandleRecordAppended(context.Background(), msg); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if len(w.inflight) != 0 {
		t.Fatalf("reservations leaked: %v", w.inflight)
	}
}
