package sched

import (
	"context"
	"log"
	"sync"
	"time"

	"tradedesk/api/internal/quote"
)

// RemoteWriter is the durable persistence boundary. SaveQuote must be
// idempotent under repeated calls with the same identity.
type RemoteWriter interface {
	SaveQuote(ctx context.Context, q *quote.Quote) error
}

// RemoteSyncer promotes an in-progress document to durable remote storage
// on a debounce cycle. Writes are skipped while the document is empty,
// failures are logged and silently retried on the next cycle, and the
// first success promotes the document's identity to confirmed.
type RemoteSyncer struct {
	writer    RemoteWriter
	debouncer *Debouncer[*quote.Quote]

	mu        sync.Mutex
	confirmed bool
	onConfirm func(id string)
}

// NewRemoteSyncer builds a syncer with the given debounce window. The
// remote window should be longer than the draft cache's: remote writes are
// more expensive and less urgent. onConfirm, if non-nil, fires once when
// the first write succeeds.
func NewRemoteSyncer(writer RemoteWriter, window time.Duration, onConfirm func(id string)) *RemoteSyncer {
	s := &RemoteSyncer{writer: writer, onConfirm: onConfirm}
	s.debouncer = NewDebouncer(window, s.write)
	return s
}

// Schedule queues a snapshot for the next debounce flush. Empty documents
// are dropped up front so an opened-and-abandoned document never floods
// remote storage with blanks.
func (s *RemoteSyncer) Schedule(snapshot *quote.Quote) {
	if snapshot.Empty() {
		return
	}
	s.debouncer.Trigger(snapshot)
}

// Flush writes any pending snapshot synchronously.
func (s *RemoteSyncer) Flush() {
	s.debouncer.Flush()
}

// Cancel drops any pending write while keeping the syncer usable.
func (s *RemoteSyncer) Cancel() {
	s.debouncer.Cancel()
}

// Stop cancels pending writes without aborting in-flight ones.
func (s *RemoteSyncer) Stop() {
	s.debouncer.Stop()
}

// MarkConfirmed presets the confirmed flag for documents that already
// exist remotely. The flag never goes back down.
func (s *RemoteSyncer) MarkConfirmed() {
	s.mu.Lock()
	s.confirmed = true
	s.mu.Unlock()
}

// Confirmed reports whether the document identity has been acknowledged by
// the remote store.
func (s *RemoteSyncer) Confirmed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.confirmed
}

func (s *RemoteSyncer) write(snapshot *quote.Quote) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	snapshot.Confirmed = s.Confirmed()
	if err := s.writer.SaveQuote(ctx, snapshot); err != nil {
		// Retried on the next mutation's debounce cycle; never surfaced.
		log.Printf("sync: background save %s: %v", snapshot.ID, err)
		return
	}

	s.mu.Lock()
	first := !s.confirmed
	s.confirmed = true
	onConfirm := s.onConfirm
	s.mu.Unlock()

	if first && onConfirm != nil {
		onConfirm(snapshot.ID)
	}
}
