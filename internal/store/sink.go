package store

import (
	"sync"
	"sync/atomic"

	"github.com/tlindal/nasasniff/internal/monitoring"
	"github.com/tlindal/nasasniff/internal/nasa"
	"github.com/tlindal/nasasniff/internal/nasa/reassembler"
	"github.com/tlindal/nasasniff/internal/nasa/session"
)

// Sink adapts a Store to session.Sink. Writes are queued and applied
// from a background goroutine so a slow database never blocks the
// session's history ring or fan-out to subscribers (SPEC_FULL.md §5,
// persistence writer note).
type Sink struct {
	store   *Store
	queue   chan func(*Store)
	wg      sync.WaitGroup
	dropped atomic.Uint64
}

// NewSink starts a Sink backed by store, with a bounded write queue of
// the given depth (0 selects a default of 256).
func NewSink(store *Store, queueDepth int) *Sink {
	if queueDepth <= 0 {
		queueDepth = 256
	}
	s := &Sink{store: store, queue: make(chan func(*Store), queueDepth)}
	s.wg.Add(1)
	go s.run()
	return s
}

func (s *Sink) run() {
	defer s.wg.Done()
	for fn := range s.queue {
		fn(s.store)
	}
}

// enqueue never blocks the decode loop: when the queue is full it drops
// the oldest pending write to make room for fn, so the store favors
// recent history over stale backlog (SPEC_FULL.md §5, persistence
// writer note).
func (s *Sink) enqueue(fn func(*Store)) {
	for {
		select {
		case s.queue <- fn:
			return
		default:
		}
		select {
		case <-s.queue:
			s.dropped.Add(1)
			monitoring.Logf("store: write queue full, dropped oldest pending record (%d total)", s.dropped.Load())
		default:
		}
	}
}

// Dropped returns the number of pending writes discarded because the
// queue was full when a new one arrived.
func (s *Sink) Dropped() uint64 {
	return s.dropped.Load()
}

var _ session.Sink = (*Sink)(nil)

func (s *Sink) ObservePacket(p nasa.Packet) {
	s.enqueue(func(st *Store) {
		if err := st.InsertPacket(p); err != nil {
			monitoring.Logf("store: %v", err)
		}
	})
}

func (s *Sink) ObserveError(e session.ErrorEvent) {
	s.enqueue(func(st *Store) {
		kind := "unknown"
		if decErr, ok := e.Err.(*nasa.DecodeError); ok {
			kind = string(decErr.Kind)
		}
		if err := st.InsertDecodeError(kind, e.Frame); err != nil {
			monitoring.Logf("store: %v", err)
		}
	})
}

func (s *Sink) ObserveResync(reassembler.Resync) {
	// Resyncs are informational and not persisted; a decode error or the
	// next successfully decoded packet already captures the outcome.
}

// Close drains the write queue and stops the background worker.
func (s *Sink) Close() {
	close(s.queue)
	s.wg.Wait()
}
