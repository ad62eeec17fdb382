// Package decoder validates one candidate NASA-bus frame (as recovered
// by internal/nasa/reassembler) and produces either a decoded
// nasa.Packet or a typed, non-fatal nasa.DecodeError.
package decoder

import (
	"github.com/tlindal/nasasniff/internal/nasa"
	"github.com/tlindal/nasasniff/internal/timeutil"
)

// Decoder decodes candidate frames into Packets. Its clock (normally
// timeutil.RealClock; timeutil.MockClock in tests) supplies the
// wall-clock instant stamped onto successfully decoded packets.
type Decoder struct {
	clock timeutil.Clock
}

// New creates a Decoder stamping packets with wall-clock time from
// clock.
func New(clock timeutil.Clock) *Decoder {
	return &Decoder{clock: clock}
}

// Decode validates and decodes one candidate frame per SPEC_FULL.md §4.2.
func (d *Decoder) Decode(frame []byte) (nasa.Packet, error) {
	n := len(frame)

	if frame[0] != 0x32 {
		return nasa.Packet{}, &nasa.DecodeError{Kind: nasa.ErrInvalidStart, Frame: frame}
	}
	if n < 16 || n > 1500 {
		return nasa.Packet{}, &nasa.DecodeError{Kind: nasa.ErrUnexpectedSize, Frame: frame}
	}
	if nasa.DeclaredFrameLen(frame) != n {
		return nasa.Packet{}, &nasa.DecodeError{Kind: nasa.ErrSizeMismatch, Frame: frame}
	}
	if frame[n-1] != 0x34 {
		return nasa.Packet{}, &nasa.DecodeError{Kind: nasa.ErrInvalidEnd, Frame: frame}
	}

	payloadEnd := n - 3
	expectedCRC := be16(frame[payloadEnd : n-1])
	actualCRC := nasa.CRC16(frame[3:payloadEnd])
	if expectedCRC != actualCRC {
		return nasa.Packet{}, &nasa.DecodeError{
			Kind:        nasa.ErrCrc,
			Frame:       frame,
			CrcExpected: expectedCRC,
			CrcActual:   actualCRC,
		}
	}

	cursor := 3
	source := nasa.DecodeAddress(frame[cursor : cursor+3])
	cursor += 3
	destination := nasa.DecodeAddress(frame[cursor : cursor+3])
	cursor += 3
	command := nasa.DecodeCommand(frame[cursor : cursor+3])
	cursor += 3

	capacity := int(frame[cursor])
	cursor += 1

	messages := make([]nasa.MessageSet, 0, capacity)
	for i := 0; i < capacity; i++ {
		structureLen := payloadEnd - cursor - 2 // remaining bytes after this record's message number
		m, next, ok := nasa.DecodeMessageSetAt(frame, cursor, payloadEnd, structureLen)
		if !ok {
			return nasa.Packet{}, &nasa.DecodeError{Kind: nasa.ErrTruncatedMessage, Frame: frame}
		}
		messages = append(messages, m)
		cursor = next
	}

	if cursor != payloadEnd {
		return nasa.Packet{}, &nasa.DecodeError{Kind: nasa.ErrTrailingBytes, Frame: frame}
	}

	raw := make([]byte, n)
	copy(raw, frame)

	return nasa.Packet{
		Source:      source,
		Destination: destination,
		Command:     command,
		Messages:    messages,
		RawFrame:    raw,
		Timestamp:   timeutil.FormatISO8601Milli(d.clock.Now()),
	}, nil
}

func be16(b []byte) uint16 {
	return uint16(b[0])<<8 | uint16(b[1])
}
