//go:build !pcap
// +build !pcap

package transport

import (
	"context"
	"fmt"
)

// PcapConfig selects the capture file and flow to replay. Proto selects
// which transport-layer payload to extract ("tcp", "udp", or "raw").
type PcapConfig struct {
	File  string
	Proto string
	Port  int
}

// PcapTransport is a stub used when the pcap build tag is not set.
// Rebuild with -tags=pcap to enable offline capture replay.
type PcapTransport struct{}

// NewPcap returns a stub PcapTransport whose Connect always fails.
func NewPcap(cfg PcapConfig) *PcapTransport { return &PcapTransport{} }

func (p *PcapTransport) Connect(ctx context.Context) error {
	return fmt.Errorf("transport: pcap support not enabled: rebuild with -tags=pcap")
}

func (p *PcapTransport) Read(ctx context.Context) ([]byte, error) {
	return nil, fmt.Errorf("transport: pcap support not enabled: rebuild with -tags=pcap")
}

func (p *PcapTransport) Events() <-chan Event { return nil }

func (p *PcapTransport) Close() error { return nil }
