package nasa

import (
	"encoding/binary"
	"fmt"
	"strings"
)

const (
	startByte = 0x32
	endByte   = 0x34

	minFrameLen = 16
	maxFrameLen = 1500
)

// Packet is a fully decoded NASA-bus frame.
type Packet struct {
	Source      Address
	Destination Address
	Command     Command
	Messages    []MessageSet

	// RawFrame is the full on-wire frame, including the start/end
	// delimiters. It is never mutated after decode.
	RawFrame []byte

	// Timestamp is the wall-clock instant at decode, formatted per
	// SPEC_FULL.md §4.2 (see timeutil.FormatISO8601Milli).
	Timestamp string
}

// DeclaredFrameLen reads the declared frame length from the size field at
// offset 1-2 of a frame (or partial frame with at least 3 bytes).
func DeclaredFrameLen(b []byte) int {
	return int(binary.BigEndian.Uint16(b[1:3])) + 2
}

// Validate re-checks the invariants every decoded Packet must satisfy
// (SPEC_FULL.md §3): start/end bytes, declared-length consistency, frame
// length bounds, and CRC.
func (p Packet) Validate() error {
	f := p.RawFrame
	n := len(f)
	if n < minFrameLen || n > maxFrameLen {
		return &DecodeError{Kind: ErrUnexpectedSize, Frame: f}
	}
	if f[0] != startByte {
		return &DecodeError{Kind: ErrInvalidStart, Frame: f}
	}
	if f[n-1] != endByte {
		return &DecodeError{Kind: ErrInvalidEnd, Frame: f}
	}
	if DeclaredFrameLen(f) != n {
		return &DecodeError{Kind: ErrSizeMismatch, Frame: f}
	}
	expected := binary.BigEndian.Uint16(f[n-3 : n-1])
	actual := CRC16(f[3 : n-3])
	if expected != actual {
		return &DecodeError{Kind: ErrCrc, Frame: f, CrcExpected: expected, CrcActual: actual}
	}
	return nil
}

// Signature is the canonical grouping key for p, per SPEC_FULL.md §4.4:
// "<source>-><destination>:<data_type_name>:[<msg_id_1>,...]".
func (p Packet) Signature() string {
	var ids strings.Builder
	ids.WriteByte('[')
	for i, m := range p.Messages {
		if i > 0 {
			ids.WriteByte(',')
		}
		fmt.Fprintf(&ids, "%04x", m.MessageNumber)
	}
	ids.WriteByte(']')

	return fmt.Sprintf("%s->%s:%s:%s", p.Source, p.Destination, p.Command.DataType, ids.String())
}
