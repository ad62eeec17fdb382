package httpapi

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/tlindal/nasasniff/internal/nasa"
	"github.com/tlindal/nasasniff/internal/nasa/session"
)

func TestToWirePacket_MatchesExpectedShape(t *testing.T) {
	got := toWirePacket(testPacket())

	want := wirePacket{
		Timestamp:           "2026-08-02T00:00:00Z",
		Source:              "20.00.0A",
		SourceReadable:      "Indoor(20.00.0A)",
		Destination:         "10.00.0A",
		DestinationReadable: "Outdoor(10.00.0A)",
		PacketType:          uint8(nasa.PacketTypeNormal),
		PacketTypeName:      "Normal",
		DataType:            uint8(nasa.DataTypeNotification),
		DataTypeName:        "Notification",
		PacketNumber:        0,
		ProtocolVersion:     0,
		RetryCount:          0,
		Messages: []wireMessage{
			{
				MessageNumber:    4000,
				MessageNumberHex: "0fa0",
				Kind:             uint8(nasa.KindEnum),
				KindName:         "Enum",
				Value:            1,
				ReadableValue:    "1",
				Name:             "UNKNOWN",
			},
		},
		RawFrame:      "320010010203000034",
		RawFrameHuman: "32 00 10 01 02 03 00 00 34",
	}

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("toWirePacket mismatch (-want +got):\n%s", diff)
	}
}

func TestToWireEvent_InitCarriesViewModeAndSnapshot(t *testing.T) {
	ev := toWireEvent(session.Event{
		Kind:    session.EventInit,
		Mode:    session.ModeView,
		History: []nasa.Packet{testPacket(), testPacket()},
	})

	if ev.Type != "init" {
		t.Fatalf("expected type=init, got %q", ev.Type)
	}
	if ev.ViewMode == nil || !*ev.ViewMode {
		t.Fatal("expected viewMode=true")
	}
	if len(ev.Packets) != 2 {
		t.Fatalf("expected 2 packets in snapshot, got %d", len(ev.Packets))
	}
}

func TestToWireEvent_PacketCarriesLongFieldNames(t *testing.T) {
	ev := toWireEvent(session.Event{Kind: session.EventPacket, Packet: testPacket()})

	if ev.Type != "packet" {
		t.Fatalf("expected type=packet, got %q", ev.Type)
	}
	if ev.Data == nil {
		t.Fatal("expected data payload")
	}
	if len(ev.Data.Messages) != 1 || ev.Data.Messages[0].MessageNumber != 4000 {
		t.Fatalf("expected one message with number 4000, got %+v", ev.Data.Messages)
	}
	if ev.Data.Source != "20.00.0A" {
		t.Errorf("expected dotted-hex source, got %q", ev.Data.Source)
	}
}

func TestToWireEvent_ErrorCarriesMessage(t *testing.T) {
	ev := toWireEvent(session.Event{
		Kind:  session.EventError,
		Error: &session.ErrorEvent{Err: errors.New("boom")},
	})

	if ev.Type != "error" {
		t.Fatalf("expected type=error, got %q", ev.Type)
	}
	if ev.Error != "boom" {
		t.Errorf("expected error message %q, got %q", "boom", ev.Error)
	}
}
