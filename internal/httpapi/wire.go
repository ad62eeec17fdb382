package httpapi

import (
	"encoding/hex"
	"fmt"

	"github.com/tlindal/nasasniff/internal/nasa"
	"github.com/tlindal/nasasniff/internal/nasa/session"
)

// wireMessage is one MessageSet record in the long-field-name push
// payload, distinct from persist's short-coded capture envelope.
type wireMessage struct {
	MessageNumber    uint16 `json:"messageNumber"`
	MessageNumberHex string `json:"messageNumberHex"`
	Kind             uint8  `json:"kind"`
	KindName         string `json:"kindName"`
	Value            int64  `json:"value"`
	ReadableValue    string `json:"readableValue"`
	Name             string `json:"name"`
}

// wirePacket is one decoded packet in the push-channel's JSON wire
// format, using long field names per SPEC_FULL.md §6.4.
type wirePacket struct {
	Timestamp           string        `json:"timestamp"`
	Source              string        `json:"source"`
	SourceReadable      string        `json:"sourceReadable"`
	Destination         string        `json:"destination"`
	DestinationReadable string        `json:"destinationReadable"`
	PacketType          uint8         `json:"packetType"`
	PacketTypeName      string        `json:"packetTypeName"`
	DataType            uint8         `json:"dataType"`
	DataTypeName        string        `json:"dataTypeName"`
	PacketNumber        uint8         `json:"packetNumber"`
	ProtocolVersion     uint8         `json:"protocolVersion"`
	RetryCount          uint8         `json:"retryCount"`
	Messages            []wireMessage `json:"messages"`
	RawFrame            string        `json:"rawFrame"`
	RawFrameHuman       string        `json:"rawFrameHuman"`
}

func toWirePacket(p nasa.Packet) wirePacket {
	messages := make([]wireMessage, 0, len(p.Messages))
	for _, m := range p.Messages {
		messages = append(messages, wireMessage{
			MessageNumber:    m.MessageNumber,
			MessageNumberHex: fmt.Sprintf("%04x", m.MessageNumber),
			Kind:             uint8(m.Kind),
			KindName:         wireKindName(m.Kind),
			Value:            m.Value(),
			ReadableValue:    m.Readable(),
			Name:             nasa.MessageName(m.MessageNumber),
		})
	}

	return wirePacket{
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

func wireKindName(k nasa.MessageKind) string {
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

// wireEvent is the JSON envelope sent over the live-tail SSE stream, per
// SPEC_FULL.md §6.4: `{type: "init", viewMode, packets}` on attach,
// `{type: "packet", data}` per live packet, `{type: "history", packets}`
// for bulk resend, plus `error`/`resync` informational events.
type wireEvent struct {
	Type     string       `json:"type"`
	ViewMode *bool        `json:"viewMode,omitempty"`
	Packets  []wirePacket `json:"packets,omitempty"`
	Data     *wirePacket  `json:"data,omitempty"`
	Error    string       `json:"error,omitempty"`
}

func toWireEvent(ev session.Event) wireEvent {
	switch ev.Kind {
	case session.EventInit:
		viewMode := ev.Mode == session.ModeView
		packets := make([]wirePacket, 0, len(ev.History))
		for _, p := range ev.History {
			packets = append(packets, toWirePacket(p))
		}
		return wireEvent{Type: "init", ViewMode: &viewMode, Packets: packets}
	case session.EventPacket:
		data := toWirePacket(ev.Packet)
		return wireEvent{Type: "packet", Data: &data}
	case session.EventError:
		msg := ""
		if ev.Error != nil && ev.Error.Err != nil {
			msg = ev.Error.Err.Error()
		}
		return wireEvent{Type: "error", Error: msg}
	case session.EventResync:
		return wireEvent{Type: "resync"}
	default:
		return wireEvent{Type: "unknown"}
	}
}
