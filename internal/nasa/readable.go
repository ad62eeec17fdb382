package nasa

import (
	"fmt"
	"strconv"
	"strings"
)

// messageNames is the static, read-only lookup table from message
// number to its symbolic name, used only by the readable rendering
// heuristics of SPEC_FULL.md §4.3. It is intentionally small: unknown
// numbers still decode successfully and render as "UNKNOWN" per §6.1.
//
// These are the commonly observed NASA-bus message numbers; the table is
// not exhaustive and MAY grow without changing decode semantics.
var messageNames = map[uint16]string{
	0x4000: "power",
	0x4001: "op_mode",
	0x4002: "indoor_temp",
	0x4003: "indoor_temp_target",
	0x4006: "fan_mode",
	0x4007: "in_fan_mode",
	0x4008: "power",
	0x4201: "outdoor_temp",
	0x4203: "discharge_temp",
	0x4205: "evaporator_in_temp",
	0x8413: "outdoor_comp_current",
}

// modeNames/fanNames back the enumerated renderings of §4.3.
var modeNames = []string{"Auto", "Cool", "Dry", "Fan", "Heat"}
var fanNames = []string{"Auto", "Low", "Mid", "High", "Turbo"}

// MessageName returns the symbolic name for a message number, or
// "UNKNOWN" if it is not in the static table.
func MessageName(messageNumber uint16) string {
	if name, ok := messageNames[messageNumber]; ok {
		return name
	}
	return "UNKNOWN"
}

// Readable renders m's value using the heuristics of SPEC_FULL.md §4.3.
// It is observational only: consumers that need the numeric value must
// use m.Value()/m.Structure directly.
func (m MessageSet) Readable() string {
	name := MessageName(m.MessageNumber)

	switch {
	case strings.Contains(name, "temp"):
		return fmt.Sprintf("%.1f°C", float64(m.Value())/10.0)
	case strings.Contains(name, "power"):
		if m.Value() != 0 {
			return "ON"
		}
		return "OFF"
	case m.MessageNumber == 0x4001:
		return indexOrUnknown(modeNames, m.Value())
	case m.MessageNumber == 0x4006, m.MessageNumber == 0x4007:
		return indexOrUnknown(fanNames, m.Value())
	default:
		return strconv.FormatInt(m.Value(), 10)
	}
}

func indexOrUnknown(names []string, v int64) string {
	if v < 0 || v >= int64(len(names)) {
		return fmt.Sprintf("Unknown(%d)", v)
	}
	return names[v]
}
