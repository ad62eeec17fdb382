package transport

import (
	"context"
	"fmt"

	"go.bug.st/serial"

	"github.com/tlindal/nasasniff/internal/monitoring"
)

// SerialConfig describes a named serial device and its line parameters.
// The NASA bus default is 9600 8N1.
type SerialConfig struct {
	Path     string
	BaudRate int
	DataBits int
	StopBits int
	Parity   string
}

// Normalize applies the NASA-bus defaults to any unset field.
func (c SerialConfig) Normalize() SerialConfig {
	out := c
	if out.BaudRate <= 0 {
		out.BaudRate = 9600
	}
	if out.DataBits == 0 {
		out.DataBits = 8
	}
	if out.StopBits == 0 {
		out.StopBits = 1
	}
	if out.Parity == "" {
		out.Parity = "N"
	}
	return out
}

func (c SerialConfig) serialMode() (*serial.Mode, error) {
	mode := &serial.Mode{
		BaudRate: c.BaudRate,
		DataBits: c.DataBits,
	}
	switch c.StopBits {
	case 1:
		mode.StopBits = serial.OneStopBit
	case 2:
		mode.StopBits = serial.TwoStopBits
	default:
		return nil, fmt.Errorf("transport: unsupported stop bits %d", c.StopBits)
	}
	switch c.Parity {
	case "N", "n":
		mode.Parity = serial.NoParity
	case "E", "e":
		mode.Parity = serial.EvenParity
	case "O", "o":
		mode.Parity = serial.OddParity
	default:
		return nil, fmt.Errorf("transport: unsupported parity %q", c.Parity)
	}
	return mode, nil
}

// SerialTransport reads from a local serial device via go.bug.st/serial.
type SerialTransport struct {
	cfg    SerialConfig
	port   serial.Port
	events chan Event
	buf    []byte
}

// NewSerial creates a SerialTransport for the given configuration. Call
// Connect before Read.
func NewSerial(cfg SerialConfig) *SerialTransport {
	return &SerialTransport{
		cfg:    cfg.Normalize(),
		events: make(chan Event, 8),
		buf:    make([]byte, 4096),
	}
}

func (s *SerialTransport) Connect(ctx context.Context) error {
	mode, err := s.cfg.serialMode()
	if err != nil {
		s.emit(Event{Kind: EventError, Err: err})
		return err
	}

	port, err := serial.Open(s.cfg.Path, mode)
	if err != nil {
		s.emit(Event{Kind: EventError, Err: err})
		return fmt.Errorf("transport: open serial port %s: %w", s.cfg.Path, err)
	}
	s.port = port
	s.emit(Event{Kind: EventConnected})
	monitoring.Logf("transport: serial port %s connected at %d baud", s.cfg.Path, s.cfg.BaudRate)
	return nil
}

func (s *SerialTransport) Read(ctx context.Context) ([]byte, error) {
	n, err := s.port.Read(s.buf)
	if err != nil {
		s.emit(Event{Kind: EventDisconnected, Err: err})
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}
	out := make([]byte, n)
	copy(out, s.buf[:n])
	return out, nil
}

func (s *SerialTransport) Events() <-chan Event { return s.events }

func (s *SerialTransport) Close() error {
	if s.port == nil {
		return nil
	}
	err := s.port.Close()
	close(s.events)
	return err
}

func (s *SerialTransport) emit(ev Event) {
	select {
	case s.events <- ev:
	default:
		monitoring.Logf("transport: event channel full, dropping %v", ev.Kind)
	}
}
