package nasa

import "encoding/binary"

// MessageKind selects the wire shape of a MessageSet record, carried in
// bits 9-10 of the message number.
type MessageKind uint8

const (
	KindEnum MessageKind = iota
	KindVariable
	KindLongVariable
	KindStructure
)

// messageKind derives the wire shape from a raw message number.
func messageKind(messageNumber uint16) MessageKind {
	return MessageKind((messageNumber & 0x0600) >> 9)
}

// payloadLen returns the fixed payload length for fixed-shape kinds; it
// is meaningless for KindStructure, whose length is derived from the
// remaining frame bytes.
func (k MessageKind) payloadLen() int {
	switch k {
	case KindEnum:
		return 1
	case KindVariable:
		return 2
	case KindLongVariable:
		return 4
	default:
		return -1
	}
}

// MessageSet is one variable-length record within a packet's payload.
// The raw numeric value is preserved exactly; Enum is unsigned 8-bit,
// Variable is signed 16-bit, LongVariable is signed 32-bit, Structure is
// opaque bytes.
type MessageSet struct {
	MessageNumber uint16
	Kind          MessageKind
	Enum          uint8
	Variable      int16
	LongVariable  int32
	Structure     []byte
}

// Value returns the kind-appropriate raw integer as an int64, or 0 for
// KindStructure (use Structure directly for that kind).
func (m MessageSet) Value() int64 {
	switch m.Kind {
	case KindEnum:
		return int64(m.Enum)
	case KindVariable:
		return int64(m.Variable)
	case KindLongVariable:
		return int64(m.LongVariable)
	default:
		return 0
	}
}

// Size returns the total on-wire size of m: 2 (message number) plus the
// kind's payload length.
func (m MessageSet) Size() int {
	if m.Kind == KindStructure {
		return 2 + len(m.Structure)
	}
	return 2 + m.Kind.payloadLen()
}

// Encode serialises m to its on-wire bytes.
func (m MessageSet) Encode() []byte {
	out := make([]byte, 2, m.Size())
	binary.BigEndian.PutUint16(out, m.MessageNumber)
	switch m.Kind {
	case KindEnum:
		out = append(out, m.Enum)
	case KindVariable:
		out = binary.BigEndian.AppendUint16(out, uint16(m.Variable))
	case KindLongVariable:
		out = binary.BigEndian.AppendUint32(out, uint32(m.LongVariable))
	case KindStructure:
		out = append(out, m.Structure...)
	}
	return out
}

// DecodeMessageSetAt decodes one record from b at the given cursor,
// returning the record and the cursor advanced past it. structureLen is
// the number of bytes a KindStructure record should absorb (all
// remaining payload bytes before the trailing CRC); it is ignored for
// other kinds. Returns ok=false if the record would overrun end.
func DecodeMessageSetAt(b []byte, cursor, end, structureLen int) (MessageSet, int, bool) {
	if cursor+2 > end {
		return MessageSet{}, cursor, false
	}
	messageNumber := binary.BigEndian.Uint16(b[cursor : cursor+2])
	kind := messageKind(messageNumber)
	cursor += 2

	m := MessageSet{MessageNumber: messageNumber, Kind: kind}

	switch kind {
	case KindEnum:
		if cursor+1 > end {
			return MessageSet{}, cursor, false
		}
		m.Enum = b[cursor]
		cursor += 1
	case KindVariable:
		if cursor+2 > end {
			return MessageSet{}, cursor, false
		}
		m.Variable = int16(binary.BigEndian.Uint16(b[cursor : cursor+2]))
		cursor += 2
	case KindLongVariable:
		if cursor+4 > end {
			return MessageSet{}, cursor, false
		}
		m.LongVariable = int32(binary.BigEndian.Uint32(b[cursor : cursor+4]))
		cursor += 4
	case KindStructure:
		if cursor+structureLen > end {
			return MessageSet{}, cursor, false
		}
		m.Structure = append([]byte(nil), b[cursor:cursor+structureLen]...)
		cursor += structureLen
	}

	return m, cursor, true
}
