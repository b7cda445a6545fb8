package sched

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"tradedesk/api/internal/quote"
)

func TestDebouncerCoalescesBursts(t *testing.T) {
	var mu sync.Mutex
	var flushed []string
	d := NewDebouncer(20*time.Millisecond, func(v string) {
		mu.Lock()
		defer mu.Unlock()
		flushed = append(flushed, v)
	})
	defer d.Stop()

	d.Trigger("one")
	d.Trigger("two")
	d.Trigger("three")

	time.Sleep(80 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if len(flushed) != 1 || flushed[0] != "three" {
		t.Fatalf("expected a single flush of the latest snapshot, got %v", flushed)
	}
}

func TestDebouncerFlushIsSynchronousAndDrainsPending(t *testing.T) {
	var mu sync.Mutex
	var flushed []string
	d := NewDebouncer(time.Hour, func(v string) {
		mu.Lock()
		defer mu.Unlock()
		flushed = append(flushed, v)
	})
	defer d.Stop()

	d.Trigger("pending")
	d.Flush()

	mu.Lock()
	if len(flushed) != 1 || flushed[0] != "pending" {
		mu.Unlock()
		t.Fatalf("expected immediate flush of the pending snapshot, got %v", flushed)
	}
	mu.Unlock()

	// Nothing pending now: Flush is a no-op, and the old timer must not
	// fire a duplicate.
	d.Flush()
	time.Sleep(30 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if len(flushed) != 1 {
		t.Fatalf("expected exactly one flush, got %v", flushed)
	}
}

func TestDebouncerStopDropsPendingWork(t *testing.T) {
	var mu sync.Mutex
	count := 0
	d := NewDebouncer(10*time.Millisecond, func(string) {
		mu.Lock()
		defer mu.Unlock()
		count++
	})

	d.Trigger("doomed")
	d.Stop()
	d.Trigger("ignored")

	time.Sleep(40 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if count != 0 {
		t.Fatalf("stopped debouncer must not flush, got %d flushes", count)
	}
}

type fakeWriter struct {
	mu    sync.Mutex
	saves []*quote.Quote
	fail  bool
}

func (w *fakeWriter) SaveQuote(ctx context.Context, q *quote.Quote) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.fail {
		return errors.New("remote unavailable")
	}
	w.saves = append(w.saves, q)
	return nil
}

func (w *fakeWriter) saved() []*quote.Quote {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]*quote.Quote(nil), w.saves...)
}

func (w *fakeWriter) setFail(fail bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.fail = fail
}

func populatedQuote() *quote.Quote {
	q := quote.New("q_sync", quote.TypeQuotation, quote.Settings{LabourRate: 50})
	q.Title = "Fence repair"
	q.CustomerID = "c_2"
	return q
}

func TestSyncerSkipsEmptyDocuments(t *testing.T) {
	writer := &fakeWriter{}
	syncer := NewRemoteSyncer(writer, 10*time.Millisecond, nil)
	defer syncer.Stop()

	syncer.Schedule(quote.New("q_blank", quote.TypeQuotation, quote.Settings{}))
	time.Sleep(40 * time.Millisecond)

	if len(writer.saved()) != 0 {
		t.Fatalf("empty documents must never reach remote storage")
	}
}

func TestSyncerConfirmsIdentityOnFirstSuccess(t *testing.T) {
	writer := &fakeWriter{}
	var mu sync.Mutex
	var confirmedIDs []string
	syncer := NewRemoteSyncer(writer, 10*time.Millisecond, func(id string) {
		mu.Lock()
		defer mu.Unlock()
		confirmedIDs = append(confirmedIDs, id)
	})
	defer syncer.Stop()

	if syncer.Confirmed() {
		t.Fatalf("identity must start unconfirmed")
	}

	syncer.Schedule(populatedQuote())
	time.Sleep(50 * time.Millisecond)

	if !syncer.Confirmed() {
		t.Fatalf("first successful write must confirm the identity")
	}

	syncer.Schedule(populatedQuote())
	time.Sleep(50 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if len(confirmedIDs) != 1 || confirmedIDs[0] != "q_sync" {
		t.Fatalf("confirmation must fire exactly once, got %v", confirmedIDs)
	}
	if len(writer.saved()) != 2 {
		t.Fatalf("expected two remote writes, got %d", len(writer.saved()))
	}
}

func TestSyncerRetriesSilentlyAfterFailure(t *testing.T) {
	writer := &fakeWriter{fail: true}
	syncer := NewRemoteSyncer(writer, 10*time.Millisecond, nil)
	defer syncer.Stop()

	syncer.Schedule(populatedQuote())
	time.Sleep(40 * time.Millisecond)

	if syncer.Confirmed() {
		t.Fatalf("failed write must not confirm the identity")
	}

	// The next mutation's debounce cycle picks the write back up.
	writer.setFail(false)
	syncer.Schedule(populatedQuote())
	time.Sleep(40 * time.Millisecond)

	if len(writer.saved()) != 1 {
		t.Fatalf("expected the retry to land, got %d writes", len(writer.saved()))
	}
	if !syncer.Confirmed() {
		t.Fatalf("retry success must confirm the identity")
	}
}

func TestSyncerCoalescesToLatestSnapshot(t *testing.T) {
	writer := &fakeWriter{}
	syncer := NewRemoteSyncer(writer, 25*time.Millisecond, nil)
	defer syncer.Stop()

	first := populatedQuote()
	first.Notes = "v1"
	second := populatedQuote()
	second.Notes = "v2"

	syncer.Schedule(first)
	syncer.Schedule(second)
	time.Sleep(80 * time.Millisecond)

	saves := writer.saved()
	if len(saves) != 1 {
		t.Fatalf("overlapping windows must coalesce, got %d writes", len(saves))
	}
	if saves[0].Notes != "v2" {
		t.Fatalf("expected the latest snapshot, got %q", saves[0].Notes)
	}
}
