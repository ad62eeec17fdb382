package transport

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/tlindal/nasasniff/internal/monitoring"
)

// TCPConfig describes an RS-485-to-TCP bridge endpoint.
type TCPConfig struct {
	Addr string // host:port

	// InitialBackoff and MaxBackoff bound the exponential reconnect
	// delay. Zero values select sensible defaults.
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

func (c TCPConfig) normalize() TCPConfig {
	out := c
	if out.InitialBackoff <= 0 {
		out.InitialBackoff = 250 * time.Millisecond
	}
	if out.MaxBackoff <= 0 {
		out.MaxBackoff = 30 * time.Second
	}
	return out
}

// TCPTransport dials a host:port endpoint and reconnects with
// exponential backoff on read failure.
type TCPTransport struct {
	cfg     TCPConfig
	conn    net.Conn
	events  chan Event
	buf     []byte
	backoff time.Duration
}

// NewTCP creates a TCPTransport for the given configuration. Call
// Connect before Read.
func NewTCP(cfg TCPConfig) *TCPTransport {
	cfg = cfg.normalize()
	return &TCPTransport{
		cfg:     cfg,
		events:  make(chan Event, 8),
		buf:     make([]byte, 4096),
		backoff: cfg.InitialBackoff,
	}
}

func (t *TCPTransport) Connect(ctx context.Context) error {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", t.cfg.Addr)
	if err != nil {
		t.emit(Event{Kind: EventError, Err: err})
		return fmt.Errorf("transport: dial %s: %w", t.cfg.Addr, err)
	}
	t.conn = conn
	t.backoff = t.cfg.InitialBackoff
	t.emit(Event{Kind: EventConnected})
	monitoring.Logf("transport: tcp %s connected", t.cfg.Addr)
	return nil
}

// Read returns the next chunk of bytes. On a read error it transparently
// reconnects with exponential backoff (emitting EventReconnecting
// between attempts) rather than returning the error to the caller,
// since disconnects are transient per SPEC_FULL.md §6.2. It only
// returns an error if ctx is cancelled while reconnecting.
func (t *TCPTransport) Read(ctx context.Context) ([]byte, error) {
	for {
		n, err := t.conn.Read(t.buf)
		if err == nil {
			if n == 0 {
				return nil, nil
			}
			out := make([]byte, n)
			copy(out, t.buf[:n])
			return out, nil
		}

		t.emit(Event{Kind: EventDisconnected, Err: err})
		if reconnErr := t.reconnect(ctx); reconnErr != nil {
			return nil, reconnErr
		}
	}
}

func (t *TCPTransport) reconnect(ctx context.Context) error {
	for {
		t.emit(Event{Kind: EventReconnecting, Delay: t.backoff})
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(t.backoff):
		}

		if t.conn != nil {
			t.conn.Close()
		}
		var d net.Dialer
		conn, err := d.DialContext(ctx, "tcp", t.cfg.Addr)
		if err != nil {
			t.emit(Event{Kind: EventError, Err: err})
			t.backoff *= 2
			if t.backoff > t.cfg.MaxBackoff {
				t.backoff = t.cfg.MaxBackoff
			}
			continue
		}

		t.conn = conn
		t.backoff = t.cfg.InitialBackoff
		t.emit(Event{Kind: EventConnected})
		return nil
	}
}

func (t *TCPTransport) Events() <-chan Event { return t.events }

func (t *TCPTransport) Close() error {
	if t.conn == nil {
		return nil
	}
	err := t.conn.Close()
	close(t.events)
	return err
}

func (t *TCPTransport) emit(ev Event) {
	select {
	case t.events <- ev:
	default:
		monitoring.Logf("transport: event channel full, dropping %v", ev.Kind)
	}
}
