package nasa

import "fmt"

// AddressClass identifies the kind of device an Address refers to.
type AddressClass uint8

// Address class enumeration per SPEC_FULL.md §6.1.
const (
	ClassOutdoor                     AddressClass = 0x10
	ClassHTU                         AddressClass = 0x11
	ClassIndoor                      AddressClass = 0x20
	ClassERV                         AddressClass = 0x30
	ClassDiffuser                    AddressClass = 0x35
	ClassMCU                         AddressClass = 0x38
	ClassRMC                         AddressClass = 0x40
	ClassWiredRemote                 AddressClass = 0x50
	ClassPIM                         AddressClass = 0x58
	ClassSIM                         AddressClass = 0x59
	ClassPeak                        AddressClass = 0x5A
	ClassPowerDivider                AddressClass = 0x5B
	ClassOnOffController             AddressClass = 0x60
	ClassWiFiKit                     AddressClass = 0x62
	ClassMIM                         AddressClass = 0x63
	ClassCentralController           AddressClass = 0x65
	ClassDMS                         AddressClass = 0x6A
	ClassJIGTester                   AddressClass = 0x80
	ClassBroadcastSelfLayer          AddressClass = 0xB0
	ClassBroadcastControlLayer       AddressClass = 0xB1
	ClassBroadcastSetLayer           AddressClass = 0xB2
	ClassBroadcastControlAndSetLayer AddressClass = 0xB3
	ClassBroadcastModuleLayer        AddressClass = 0xB4
	ClassBroadcastCSM                AddressClass = 0xB7
	ClassBroadcastLocalLayer         AddressClass = 0xB8
	ClassBroadcastCSML               AddressClass = 0xBF
	ClassUndefined                   AddressClass = 0xFF
)

var addressClassNames = map[AddressClass]string{
	ClassOutdoor:                     "Outdoor",
	ClassHTU:                         "HTU",
	ClassIndoor:                      "Indoor",
	ClassERV:                         "ERV",
	ClassDiffuser:                    "Diffuser",
	ClassMCU:                         "MCU",
	ClassRMC:                         "RMC",
	ClassWiredRemote:                 "WiredRemote",
	ClassPIM:                         "PIM",
	ClassSIM:                         "SIM",
	ClassPeak:                        "Peak",
	ClassPowerDivider:                "PowerDivider",
	ClassOnOffController:             "OnOffController",
	ClassWiFiKit:                     "WiFiKit",
	ClassMIM:                         "MIM",
	ClassCentralController:           "CentralController",
	ClassDMS:                         "DMS",
	ClassJIGTester:                   "JIGTester",
	ClassBroadcastSelfLayer:          "BroadcastSelfLayer",
	ClassBroadcastControlLayer:       "BroadcastControlLayer",
	ClassBroadcastSetLayer:           "BroadcastSetLayer",
	ClassBroadcastControlAndSetLayer: "BroadcastControlAndSetLayer",
	ClassBroadcastModuleLayer:        "BroadcastModuleLayer",
	ClassBroadcastCSM:                "BroadcastCSM",
	ClassBroadcastLocalLayer:         "BroadcastLocalLayer",
	ClassBroadcastCSML:               "BroadcastCSML",
	ClassUndefined:                   "Undefined",
}

// Name returns the enumerant spelling for c, or "Unknown" for an
// unrecognised class byte.
func (c AddressClass) Name() string {
	if name, ok := addressClassNames[c]; ok {
		return name
	}
	return "Unknown"
}

// Address is a 3-byte NASA-bus device address: class, channel, node.
type Address struct {
	Class   AddressClass
	Channel uint8
	Node    uint8
}

// DecodeAddress reads a 3-byte address from the front of b.
func DecodeAddress(b []byte) Address {
	return Address{
		Class:   AddressClass(b[0]),
		Channel: b[1],
		Node:    b[2],
	}
}

// Encode returns the 3-byte on-wire form of a.
func (a Address) Encode() [3]byte {
	return [3]byte{byte(a.Class), a.Channel, a.Node}
}

// String renders the dotted hex form, e.g. "20.00.00".
func (a Address) String() string {
	return fmt.Sprintf("%02X.%02X.%02X", byte(a.Class), a.Channel, a.Node)
}

// Human renders the class-prefixed form, e.g. "Indoor(20.00.00)".
func (a Address) Human() string {
	return fmt.Sprintf("%s(%s)", a.Class.Name(), a.String())
}
