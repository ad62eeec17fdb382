package transport

import (
	"context"
	"net"
	"testing"
	"time"
)

func TestSerialConfig_NormalizeAppliesNASABusDefaults(t *testing.T) {
	cfg := SerialConfig{Path: "/dev/ttyUSB0"}.Normalize()
	if cfg.BaudRate != 9600 {
		t.Errorf("BaudRate = %d, want 9600", cfg.BaudRate)
	}
	if cfg.DataBits != 8 {
		t.Errorf("DataBits = %d, want 8", cfg.DataBits)
	}
	if cfg.StopBits != 1 {
		t.Errorf("StopBits = %d, want 1", cfg.StopBits)
	}
	if cfg.Parity != "N" {
		t.Errorf("Parity = %q, want N", cfg.Parity)
	}
}

func TestSerialConfig_SerialModeRejectsUnsupportedParity(t *testing.T) {
	cfg := SerialConfig{Path: "/dev/ttyUSB0", Parity: "X"}.Normalize()
	if _, err := cfg.serialMode(); err == nil {
		t.Fatal("expected an error for unsupported parity")
	}
}

func TestTCPTransport_ConnectAndReadRoundTrip(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		conn.Write([]byte("hello"))
	}()

	tr := NewTCP(TCPConfig{Addr: ln.Addr().String()})
	ctx := context.Background()
	if err := tr.Connect(ctx); err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer tr.Close()

	chunk, err := tr.Read(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(chunk) != "hello" {
		t.Fatalf("chunk = %q, want %q", chunk, "hello")
	}

	select {
	case ev := <-tr.Events():
		if ev.Kind != EventConnected {
			t.Fatalf("expected EventConnected, got %v", ev.Kind)
		}
	default:
		t.Fatal("expected a connected event to have been emitted")
	}
}

func TestTCPTransport_ReconnectsAfterServerClosesConnection(t *testing.T) {
	addr := "127.0.0.1:0"
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	realAddr := ln.Addr().String()

	accepted := make(chan net.Conn, 2)
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			accepted <- conn
		}
	}()

	tr := NewTCP(TCPConfig{
		Addr:           realAddr,
		InitialBackoff: 10 * time.Millisecond,
		MaxBackoff:     50 * time.Millisecond,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := tr.Connect(ctx); err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer tr.Close()

	firstConn := <-accepted
	firstConn.Close() // force a read error on the transport side

	// Accept the reconnect attempt and write a payload through it.
	go func() {
		conn := <-accepted
		conn.Write([]byte("back"))
	}()

	type readResult struct {
		chunk []byte
		err   error
	}
	readDone := make(chan readResult, 1)
	go func() {
		chunk, err := tr.Read(ctx)
		readDone <- readResult{chunk, err}
	}()

	var reconnecting Event
	for reconnecting.Kind != EventReconnecting {
		select {
		case reconnecting = <-tr.Events():
		case <-ctx.Done():
			t.Fatal("timed out waiting for an EventReconnecting event")
		}
	}
	if reconnecting.Delay <= 0 {
		t.Fatalf("expected EventReconnecting to carry a positive backoff delay, got %s", reconnecting.Delay)
	}

	result := <-readDone
	if result.err != nil {
		t.Fatalf("read after reconnect: %v", result.err)
	}
	if string(result.chunk) != "back" {
		t.Fatalf("chunk = %q, want %q", result.chunk, "back")
	}

	ln.Close()
}
