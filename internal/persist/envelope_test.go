package persist

import (
	"path/filepath"
	"testing"

	"github.com/tlindal/nasasniff/internal/fsutil"
	"github.com/tlindal/nasasniff/internal/nasa"
)

func samplePackets() []nasa.Packet {
	return []nasa.Packet{
		{
			Source:      nasa.DecodeAddress([]byte{0x20, 0x00, 0x00}),
			Destination: nasa.DecodeAddress([]byte{0x10, 0x00, 0x00}),
			Command:     nasa.Command{DataType: nasa.DataTypeNotification, PacketType: nasa.PacketTypeNormal},
			Messages: []nasa.MessageSet{
				{MessageNumber: 0x4000, Kind: nasa.KindEnum, Enum: 1},
				{MessageNumber: 0x4201, Kind: nasa.KindVariable, Variable: 0x00DC},
			},
			RawFrame:  []byte{0x32, 0x00, 0x10, 0x20, 0x00, 0x00, 0x34},
			Timestamp: "2026-01-01 00:00:00.000",
		},
	}
}

func TestBuildEnvelope_RoundTripsRawFrameBytesExactly(t *testing.T) {
	packets := samplePackets()
	env := BuildEnvelope(packets, "2026-01-01 00:00:01.000")

	if env.Count != 1 {
		t.Fatalf("expected count 1, got %d", env.Count)
	}
	if env.Version != EnvelopeVersion {
		t.Fatalf("expected version %d, got %d", EnvelopeVersion, env.Version)
	}

	decoded, err := env.Decode()
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(decoded) != 1 {
		t.Fatalf("expected 1 decoded packet, got %d", len(decoded))
	}
	if string(decoded[0].RawFrame) != string(packets[0].RawFrame) {
		t.Fatalf("raw frame mismatch: got %x, want %x", decoded[0].RawFrame, packets[0].RawFrame)
	}
	if decoded[0].Timestamp != packets[0].Timestamp {
		t.Fatalf("timestamp mismatch: got %q, want %q", decoded[0].Timestamp, packets[0].Timestamp)
	}
	if len(decoded[0].Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(decoded[0].Messages))
	}
	if decoded[0].Messages[0].Enum != 1 {
		t.Fatalf("expected enum value 1, got %d", decoded[0].Messages[0].Enum)
	}
	if decoded[0].Messages[1].Variable != 0x00DC {
		t.Fatalf("expected variable 0x00DC, got %x", decoded[0].Messages[1].Variable)
	}
}

func TestExportImport_RoundTripOnDisk(t *testing.T) {
	fsys := fsutil.OSFileSystem{}
	packets := samplePackets()
	env := BuildEnvelope(packets, "2026-01-01 00:00:01.000")

	baseDir := t.TempDir()
	path := filepath.Join(baseDir, "session.json")

	if err := Export(fsys, baseDir, path, env); err != nil {
		t.Fatalf("export: %v", err)
	}

	gotEnv, gotPackets, err := Import(fsys, baseDir, path)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if gotEnv.ID != env.ID {
		t.Fatalf("envelope id mismatch: got %q, want %q", gotEnv.ID, env.ID)
	}
	if len(gotPackets) != len(packets) {
		t.Fatalf("expected %d packets, got %d", len(packets), len(gotPackets))
	}
	if string(gotPackets[0].RawFrame) != string(packets[0].RawFrame) {
		t.Fatalf("raw frame mismatch after file round-trip")
	}
}

func TestExport_RejectsPathOutsideBaseDir(t *testing.T) {
	fsys := fsutil.OSFileSystem{}
	env := BuildEnvelope(samplePackets(), "2026-01-01 00:00:01.000")

	baseDir := t.TempDir()
	err := Export(fsys, baseDir, "/etc/passwd", env)
	if err == nil {
		t.Fatal("expected an error for a path outside the base directory")
	}
}
