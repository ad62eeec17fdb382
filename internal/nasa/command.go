package nasa

// PacketType is the high nibble of command byte 1.
type PacketType uint8

const (
	PacketTypeStandBy PacketType = iota
	PacketTypeNormal
	PacketTypeGathering
	PacketTypeInstall
	PacketTypeDownload
)

var packetTypeNames = map[PacketType]string{
	PacketTypeStandBy:   "StandBy",
	PacketTypeNormal:    "Normal",
	PacketTypeGathering: "Gathering",
	PacketTypeInstall:   "Install",
	PacketTypeDownload:  "Download",
}

// String renders the enumerant spelling, or "Unknown" for an
// out-of-range value.
func (t PacketType) String() string {
	if name, ok := packetTypeNames[t]; ok {
		return name
	}
	return "Unknown"
}

// DataType is the low nibble of command byte 1.
type DataType uint8

const (
	DataTypeUndefined DataType = iota
	DataTypeRead
	DataTypeWrite
	DataTypeRequest
	DataTypeNotification
	DataTypeResponse
	DataTypeAck
	DataTypeNack
)

var dataTypeNames = map[DataType]string{
	DataTypeUndefined:    "Undefined",
	DataTypeRead:         "Read",
	DataTypeWrite:        "Write",
	DataTypeRequest:      "Request",
	DataTypeNotification: "Notification",
	DataTypeResponse:     "Response",
	DataTypeAck:          "Ack",
	DataTypeNack:         "Nack",
}

// String renders the enumerant spelling, or "Unknown" for an
// out-of-range value.
func (d DataType) String() string {
	if name, ok := dataTypeNames[d]; ok {
		return name
	}
	return "Unknown"
}

// Command is the 3-byte bit-packed command header described in
// SPEC_FULL.md §3.
type Command struct {
	PacketInformation bool
	ProtocolVersion   uint8 // 0-3
	RetryCount        uint8 // 0-3
	PacketType        PacketType
	DataType          DataType
	PacketNumber      uint8
}

// DecodeCommand reads a 3-byte command header from the front of b.
func DecodeCommand(b []byte) Command {
	b0, b1, b2 := b[0], b[1], b[2]
	return Command{
		PacketInformation: b0&0x80 != 0,
		ProtocolVersion:   (b0 >> 5) & 0x03,
		RetryCount:        (b0 >> 3) & 0x03,
		PacketType:        PacketType(b1 >> 4),
		DataType:          DataType(b1 & 0x0F),
		PacketNumber:      b2,
	}
}

// Encode returns the 3-byte on-wire form of c.
func (c Command) Encode() [3]byte {
	var b0 byte
	if c.PacketInformation {
		b0 |= 0x80
	}
	b0 |= (c.ProtocolVersion & 0x03) << 5
	b0 |= (c.RetryCount & 0x03) << 3

	b1 := (byte(c.PacketType) << 4) | (byte(c.DataType) & 0x0F)

	return [3]byte{b0, b1, c.PacketNumber}
}
