// Package session holds the live (or replayed) packet history for one
// capture and fans decoded packets out to subscribers and sinks.
package session

import (
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/tlindal/nasasniff/internal/monitoring"
	"github.com/tlindal/nasasniff/internal/nasa"
	"github.com/tlindal/nasasniff/internal/nasa/reassembler"
)

// State is the session's lifecycle state.
type State int

const (
	Constructed State = iota
	Running
	Stopping
	Stopped
)

func (s State) String() string {
	switch s {
	case Constructed:
		return "Constructed"
	case Running:
		return "Running"
	case Stopping:
		return "Stopping"
	case Stopped:
		return "Stopped"
	default:
		return "Unknown"
	}
}

// Mode distinguishes a live capture session from one replaying a
// persisted history (§6.3/view mode).
type Mode int

const (
	ModeLive Mode = iota
	ModeView
)

func (m Mode) String() string {
	if m == ModeView {
		return "view"
	}
	return "live"
}

// ErrorEvent pairs a non-fatal decode error with the raw bytes that
// produced it.
type ErrorEvent struct {
	Err   error
	Frame []byte
}

// Event is delivered to every subscriber. Exactly one of its payload
// fields is populated, selected by Kind.
type EventKind int

const (
	EventInit EventKind = iota
	EventPacket
	EventError
	EventResync
)

type Event struct {
	Kind    EventKind
	Mode    Mode                // valid on EventInit
	History []nasa.Packet       // valid on EventInit: snapshot at attach time
	Packet  nasa.Packet         // valid on EventPacket
	Error   *ErrorEvent         // valid on EventError
	Resync  *reassembler.Resync // valid on EventResync
}

// Sink receives every successfully decoded packet, decode error, and
// resync event the session observes, in order. Sinks run synchronously
// from the publishing goroutine's perspective but MUST NOT block for
// long: a slow sink stalls fan-out to every subscriber.
type Sink interface {
	ObservePacket(nasa.Packet)
	ObserveError(ErrorEvent)
	ObserveResync(reassembler.Resync)
}

// DefaultHistoryCapacity is the ring buffer size used when Config.Capacity
// is zero.
const DefaultHistoryCapacity = 1000

// Config configures a Session.
type Config struct {
	// Capacity bounds the history ring. 0 selects DefaultHistoryCapacity.
	Capacity int
	// Mode selects live vs. view semantics. Zero value is ModeLive.
	Mode Mode
}

type subscriber struct {
	ch chan Event
}

// Session fans decoded packets out to subscribers and sinks, and
// retains a bounded ring of recent history.
type Session struct {
	mu sync.Mutex

	state    State
	mode     Mode
	capacity int
	ring     []nasa.Packet // logical ring; oldest first
	sinks    []Sink

	subscribers map[string]*subscriber
}

// New constructs a Session in the Constructed state. Call Start to
// begin accepting publishes and subscribers.
func New(cfg Config) *Session {
	capacity := cfg.Capacity
	if capacity <= 0 {
		capacity = DefaultHistoryCapacity
	}
	return &Session{
		state:       Constructed,
		mode:        cfg.Mode,
		capacity:    capacity,
		subscribers: make(map[string]*subscriber),
	}
}

// RegisterSink adds a sink. Sinks registered before Start observe every
// event from the first Publish onward; sinks do not receive a replay of
// history already in the ring.
func (s *Session) RegisterSink(sink Sink) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sinks = append(s.sinks, sink)
}

// Start transitions Constructed → Running. Idempotent if already
// Running.
func (s *Session) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Running {
		return
	}
	s.state = Running
}

// Stop transitions Running → Stopping → Stopped, closing every
// subscriber channel. Idempotent.
func (s *Session) Stop() {
	s.mu.Lock()
	if s.state == Stopped {
		s.mu.Unlock()
		return
	}
	s.state = Stopping
	subs := s.subscribers
	s.subscribers = make(map[string]*subscriber)
	s.state = Stopped
	s.mu.Unlock()

	for _, sub := range subs {
		close(sub.ch)
	}
}

// ErrSessionNotRunning is returned by Publish/ReportError/ReportResync
// when the session is not in the Running state.
var ErrSessionNotRunning = errors.New("session: not running")

// ErrViewMode is returned by Publish on a view-mode session, and by
// LoadHistory on a live session.
var ErrViewMode = errors.New("session: mutating operation on a view-mode session")

// Publish appends p to the history ring (evicting the oldest entry if
// full), hands it to every registered sink, and pushes it to every
// subscriber as a single-packet event. Live mode only.
func (s *Session) Publish(p nasa.Packet) error {
	if s.mode == ModeView {
		return ErrViewMode
	}

	s.mu.Lock()
	if s.state != Running {
		s.mu.Unlock()
		return ErrSessionNotRunning
	}
	s.appendHistoryLocked(p)
	sinks := append([]Sink(nil), s.sinks...)
	subs := snapshotSubscribers(s.subscribers)
	s.mu.Unlock()

	for _, sink := range sinks {
		sink.ObservePacket(p)
	}
	broadcast(subs, Event{Kind: EventPacket, Packet: p})
	return nil
}

// ReportError delivers a non-fatal decode error to sinks and
// subscribers. It does not affect the history ring.
func (s *Session) ReportError(err error, frame []byte) {
	s.mu.Lock()
	sinks := append([]Sink(nil), s.sinks...)
	subs := snapshotSubscribers(s.subscribers)
	s.mu.Unlock()

	ev := ErrorEvent{Err: err, Frame: frame}
	for _, sink := range sinks {
		sink.ObserveError(ev)
	}
	broadcast(subs, Event{Kind: EventError, Error: &ev})
	monitoring.Logf("session: decode error: %v", err)
}

// ReportResync delivers an informational resync event to sinks and
// subscribers.
func (s *Session) ReportResync(r reassembler.Resync) {
	s.mu.Lock()
	sinks := append([]Sink(nil), s.sinks...)
	subs := snapshotSubscribers(s.subscribers)
	s.mu.Unlock()

	for _, sink := range sinks {
		sink.ObserveResync(r)
	}
	broadcast(subs, Event{Kind: EventResync, Resync: &r})
}

// LoadHistory replaces the entire history ring, for view-mode sessions
// populated from a persisted capture (§6.3). It is rejected on live
// sessions to avoid silently discarding in-flight capture state.
func (s *Session) LoadHistory(packets []nasa.Packet) error {
	if s.mode != ModeView {
		return ErrViewMode
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ring = append([]nasa.Packet(nil), packets...)
	if len(s.ring) > s.capacity {
		s.ring = s.ring[len(s.ring)-s.capacity:]
	}
	return nil
}

func (s *Session) appendHistoryLocked(p nasa.Packet) {
	s.ring = append(s.ring, p)
	if len(s.ring) > s.capacity {
		s.ring = s.ring[len(s.ring)-s.capacity:]
	}
}

// Subscribe registers a new subscriber and returns its id and event
// channel. The channel immediately receives an EventInit carrying the
// session's mode and a snapshot of the current history, taken under the
// same critical section as enrollment so the subscriber can neither
// double-see nor miss a packet across the snapshot boundary. Subscribe
// is rejected once the session has begun stopping.
func (s *Session) Subscribe() (string, <-chan Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == Stopping || s.state == Stopped {
		return "", nil, ErrSessionNotRunning
	}

	id := uuid.NewString()
	ch := make(chan Event, 64)
	s.subscribers[id] = &subscriber{ch: ch}

	snapshot := append([]nasa.Packet(nil), s.ring...)
	ch <- Event{Kind: EventInit, Mode: s.mode, History: snapshot}

	return id, ch, nil
}

// Unsubscribe removes a subscriber. Silent and idempotent.
func (s *Session) Unsubscribe(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sub, ok := s.subscribers[id]; ok {
		close(sub.ch)
		delete(s.subscribers, id)
	}
}

// State reports the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// History returns a snapshot of the current ring, oldest first.
func (s *Session) History() []nasa.Packet {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]nasa.Packet(nil), s.ring...)
}

func snapshotSubscribers(m map[string]*subscriber) []*subscriber {
	out := make([]*subscriber, 0, len(m))
	for _, sub := range m {
		out = append(out, sub)
	}
	return out
}

// broadcast pushes ev to every subscriber. A subscriber whose channel is
// full is skipped for this event rather than blocking fan-out to the
// rest (mirroring the teacher's subscriber-broadcast discipline).
func broadcast(subs []*subscriber, ev Event) {
	for _, sub := range subs {
		select {
		case sub.ch <- ev:
		default:
			monitoring.Logf("session: subscriber channel full, dropping event")
		}
	}
}
