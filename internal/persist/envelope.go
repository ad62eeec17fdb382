// Package persist exports and imports a session's packet history as a
// portable JSON capture envelope (SPEC_FULL.md §6.3). The format is not
// part of the wire contract and may evolve; readers ignore unknown
// fields by construction (encoding/json's default decode behaviour).
package persist

import (
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/tlindal/nasasniff/internal/fsutil"
	"github.com/tlindal/nasasniff/internal/nasa"
	"github.com/tlindal/nasasniff/internal/security"
)

// EnvelopeVersion is the current on-disk schema version.
const EnvelopeVersion = 1

// EnvelopeMessage is one MessageSet record within an EnvelopePacket,
// using the short field codes of SPEC_FULL.md §6.3.
type EnvelopeMessage struct {
	MessageNumber    uint16 `json:"mn"`
	MessageNumberHex string `json:"mnh"`
	Kind             uint8  `json:"mt"`
	KindName         string `json:"mtn"`
	Value            int64  `json:"v"`
	Readable         string `json:"rv"`
	Name             string `json:"n"`
}

// EnvelopePacket is one decoded packet record, using the short field
// codes of SPEC_FULL.md §6.3.
type EnvelopePacket struct {
	Timestamp           string            `json:"t"`
	Source              string            `json:"s"`
	SourceReadable      string            `json:"sr"`
	Destination         string            `json:"d"`
	DestinationReadable string            `json:"dr"`
	PacketType          uint8             `json:"pt"`
	PacketTypeName      string            `json:"ptn"`
	DataType            uint8             `json:"dt"`
	DataTypeName        string            `json:"dtn"`
	PacketNumber        uint8             `json:"pn"`
	ProtocolVersion     uint8             `json:"pv"`
	RetryCount          uint8             `json:"rc"`
	Messages            []EnvelopeMessage `json:"m"`
	RawFrame            string            `json:"rd"`  // hex-encoded, exact round-trip
	RawFrameHuman       string            `json:"rdh"` // space-separated hex, for eyeballing
}

// CaptureEnvelope is the top-level export/import document.
type CaptureEnvelope struct {
	ID         string           `json:"id"`
	Version    int              `json:"version"`
	ExportedAt string           `json:"exported_at"`
	Count      int              `json:"count"`
	Packets    []EnvelopePacket `json:"p"`
}

func toEnvelopePacket(p nasa.Packet) EnvelopePacket {
	messages := make([]EnvelopeMessage, 0, len(p.Messages))
	for _, m := range p.Messages {
		messages = append(messages, EnvelopeMessage{
			MessageNumber:    m.MessageNumber,
			MessageNumberHex: fmt.Sprintf("%04x", m.MessageNumber),
			Kind:             uint8(m.Kind),
			KindName:         kindName(m.Kind),
			Value:            m.Value(),
			Readable:         m.Readable(),
			Name:             nasa.MessageName(m.MessageNumber),
		})
	}

	return EnvelopePacket{
		Timestamp:           p.Timestamp,
		Source:              p.Source.String(),
		SourceReadable:      p.Source.Human(),
		Destination:         p.Destination.String(),
		DestinationReadable: p.Destination.Human(),
		PacketType:          uint8(p.Command.PacketType),
		PacketTypeName:      p.Command.PacketType.String(),
		DataType:            uint8(p.Command.DataType),
		DataTypeName:        p.Command.DataType.String(),
		PacketNumber:        p.Command.PacketNumber,
		ProtocolVersion:     p.Command.ProtocolVersion,
		RetryCount:          p.Command.RetryCount,
		Messages:            messages,
		RawFrame:            hex.EncodeToString(p.RawFrame),
		RawFrameHuman:       spacedHex(p.RawFrame),
	}
}

func fromEnvelopePacket(e EnvelopePacket) (nasa.Packet, error) {
	raw, err := hex.DecodeString(e.RawFrame)
	if err != nil {
		return nasa.Packet{}, fmt.Errorf("persist: decode raw frame: %w", err)
	}

	messages := make([]nasa.MessageSet, 0, len(e.Messages))
	for _, m := range e.Messages {
		ms := nasa.MessageSet{MessageNumber: m.MessageNumber, Kind: nasa.MessageKind(m.Kind)}
		switch ms.Kind {
		case nasa.KindEnum:
			ms.Enum = uint8(m.Value)
		case nasa.KindVariable:
			ms.Variable = int16(m.Value)
		case nasa.KindLongVariable:
			ms.LongVariable = int32(m.Value)
		}
		messages = append(messages, ms)
	}

	return nasa.Packet{
		Source:      nasa.DecodeAddress(mustDecodeAddr(e.Source)),
		Destination: nasa.DecodeAddress(mustDecodeAddr(e.Destination)),
		Command: nasa.Command{
			ProtocolVersion: e.ProtocolVersion,
			RetryCount:      e.RetryCount,
			PacketType:      nasa.PacketType(e.PacketType),
			DataType:        nasa.DataType(e.DataType),
			PacketNumber:    e.PacketNumber,
		},
		Messages:  messages,
		RawFrame:  raw,
		Timestamp: e.Timestamp,
	}, nil
}

// mustDecodeAddr parses a "XX.XX.XX" dotted-hex address string back into
// the 3 raw bytes nasa.DecodeAddress expects. Malformed strings decode
// to the zero address rather than erroring, since address strings are
// always produced by Address.String() on export.
func mustDecodeAddr(s string) []byte {
	b, err := hex.DecodeString(stripDots(s))
	if err != nil || len(b) != 3 {
		return []byte{0, 0, 0}
	}
	return b
}

func stripDots(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] != '.' {
			out = append(out, s[i])
		}
	}
	return string(out)
}

func spacedHex(b []byte) string {
	out := make([]byte, 0, len(b)*3)
	for i, v := range b {
		if i > 0 {
			out = append(out, ' ')
		}
		out = append(out, []byte(fmt.Sprintf("%02X", v))...)
	}
	return string(out)
}

func kindName(k nasa.MessageKind) string {
	switch k {
	case nasa.KindEnum:
		return "Enum"
	case nasa.KindVariable:
		return "Variable"
	case nasa.KindLongVariable:
		return "LongVariable"
	case nasa.KindStructure:
		return "Structure"
	default:
		return "Unknown"
	}
}

// BuildEnvelope assembles a CaptureEnvelope from an ordered packet
// history. exportedAt is the caller-supplied timestamp string (callers
// use timeutil.Clock rather than this package reaching for wall-clock
// time directly, keeping persist deterministic and testable).
func BuildEnvelope(packets []nasa.Packet, exportedAt string) CaptureEnvelope {
	records := make([]EnvelopePacket, 0, len(packets))
	for _, p := range packets {
		records = append(records, toEnvelopePacket(p))
	}
	return CaptureEnvelope{
		ID:         uuid.NewString(),
		Version:    EnvelopeVersion,
		ExportedAt: exportedAt,
		Count:      len(records),
		Packets:    records,
	}
}

// Decode reconstructs the ordered packet history from the envelope.
func (e CaptureEnvelope) Decode() ([]nasa.Packet, error) {
	out := make([]nasa.Packet, 0, len(e.Packets))
	for i, rec := range e.Packets {
		p, err := fromEnvelopePacket(rec)
		if err != nil {
			return nil, fmt.Errorf("persist: packet %d: %w", i, err)
		}
		out = append(out, p)
	}
	return out, nil
}

// Export validates that path lies within baseDir, then marshals env as
// indented JSON and writes it via fsys.
func Export(fsys fsutil.FileSystem, baseDir, path string, env CaptureEnvelope) error {
	if err := security.ValidatePathWithinDirectory(path, baseDir); err != nil {
		return fmt.Errorf("persist: %w", err)
	}
	data, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return fmt.Errorf("persist: marshal envelope: %w", err)
	}
	return fsys.WriteFile(path, data, 0o644)
}

// Import validates that path lies within baseDir, then reads and parses
// a CaptureEnvelope and reconstructs its packet history in order.
func Import(fsys fsutil.FileSystem, baseDir, path string) (CaptureEnvelope, []nasa.Packet, error) {
	if err := security.ValidatePathWithinDirectory(path, baseDir); err != nil {
		return CaptureEnvelope{}, nil, fmt.Errorf("persist: %w", err)
	}
	data, err := fsys.ReadFile(path)
	if err != nil {
		return CaptureEnvelope{}, nil, fmt.Errorf("persist: read %s: %w", path, err)
	}

	var env CaptureEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return CaptureEnvelope{}, nil, fmt.Errorf("persist: unmarshal envelope: %w", err)
	}

	packets, err := env.Decode()
	if err != nil {
		return CaptureEnvelope{}, nil, err
	}
	return env, packets, nil
}
