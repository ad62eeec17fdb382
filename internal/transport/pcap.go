//go:build pcap
// +build pcap

package transport

import (
	"context"
	"fmt"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcap"

	"github.com/tlindal/nasasniff/internal/monitoring"
)

// PcapConfig selects the capture file and flow to replay. Proto selects
// which transport-layer payload to extract ("tcp", "udp", or "raw" for
// the full link-layer payload with no flow filtering).
type PcapConfig struct {
	File  string
	Proto string
	Port  int
}

// PcapTransport replays the payload bytes of a configured flow from an
// offline capture file, for deterministic testing and offline analysis
// of a captured bus session. Requires the 'pcap' build tag (libpcap/cgo).
type PcapTransport struct {
	cfg    PcapConfig
	handle *pcap.Handle
	source *gopacket.PacketSource
	events chan Event
}

// NewPcap creates a PcapTransport for the given configuration. Call
// Connect before Read.
func NewPcap(cfg PcapConfig) *PcapTransport {
	return &PcapTransport{cfg: cfg, events: make(chan Event, 8)}
}

func (p *PcapTransport) Connect(ctx context.Context) error {
	handle, err := pcap.OpenOffline(p.cfg.File)
	if err != nil {
		p.emit(Event{Kind: EventError, Err: err})
		return fmt.Errorf("transport: open pcap file %s: %w", p.cfg.File, err)
	}

	if p.cfg.Proto == "tcp" || p.cfg.Proto == "udp" {
		filter := fmt.Sprintf("%s port %d", p.cfg.Proto, p.cfg.Port)
		if err := handle.SetBPFFilter(filter); err != nil {
			handle.Close()
			p.emit(Event{Kind: EventError, Err: err})
			return fmt.Errorf("transport: set bpf filter %q: %w", filter, err)
		}
		monitoring.Logf("transport: pcap replay %s filter=%q", p.cfg.File, filter)
	} else {
		monitoring.Logf("transport: pcap replay %s raw link-layer", p.cfg.File)
	}

	p.handle = handle
	p.source = gopacket.NewPacketSource(handle, handle.LinkType())
	p.emit(Event{Kind: EventConnected})
	return nil
}

// Read returns the next packet's transport-layer payload (or full
// link-layer payload in raw mode). At end of capture it emits
// EventDisconnected and returns the packet source's error (io.EOF). In
// tcp/udp mode a packet with no TCP or UDP layer yields a nil chunk with
// a nil error, which callers treat like a live transport's zero-length
// read.
func (p *PcapTransport) Read(ctx context.Context) ([]byte, error) {
	pkt, err := p.source.NextPacket()
	if err != nil {
		p.emit(Event{Kind: EventDisconnected, Err: err})
		return nil, err
	}

	if p.cfg.Proto != "tcp" && p.cfg.Proto != "udp" {
		return pkt.Data(), nil
	}

	if tcpLayer := pkt.Layer(layers.LayerTypeTCP); tcpLayer != nil {
		if tcp, ok := tcpLayer.(*layers.TCP); ok {
			return append([]byte(nil), tcp.Payload...), nil
		}
	}
	if udpLayer := pkt.Layer(layers.LayerTypeUDP); udpLayer != nil {
		if udp, ok := udpLayer.(*layers.UDP); ok {
			return append([]byte(nil), udp.Payload...), nil
		}
	}
	return nil, nil
}

func (p *PcapTransport) Events() <-chan Event { return p.events }

func (p *PcapTransport) Close() error {
	if p.handle == nil {
		return nil
	}
	p.handle.Close()
	close(p.events)
	return nil
}

func (p *PcapTransport) emit(ev Event) {
	select {
	case p.events <- ev:
	default:
		monitoring.Logf("transport: event channel full, dropping %v", ev.Kind)
	}
}
