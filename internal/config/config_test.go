package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmpty_GettersReturnDocumentedDefaults(t *testing.T) {
	cfg := Empty()

	if got := cfg.GetTransport(); got != TransportSerial {
		t.Errorf("GetTransport() = %v, want %v", got, TransportSerial)
	}
	if got := cfg.GetSerialBaudRate(); got != 9600 {
		t.Errorf("GetSerialBaudRate() = %d, want 9600", got)
	}
	if got := cfg.GetHistoryCapacity(); got != 1000 {
		t.Errorf("GetHistoryCapacity() = %d, want 1000", got)
	}
	if got := cfg.GetStorePath(); got != "" {
		t.Errorf("GetStorePath() = %q, want empty (store disabled by default)", got)
	}
	if got := cfg.GetExportOnStop(); got != false {
		t.Errorf("GetExportOnStop() = %v, want false", got)
	}
	if got := cfg.GetListenAddr(); got != ":8080" {
		t.Errorf("GetListenAddr() = %q, want :8080", got)
	}
}

func TestLoad_PartialOverrideLeavesOtherDefaultsIntact(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nasasniff.json")
	body := `{
  "transport": "tcp",
  "tcp_addr": "10.0.0.5:5000",
  "history_capacity": 5000
}`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, TransportTCP, cfg.GetTransport())
	assert.Equal(t, "10.0.0.5:5000", cfg.GetTCPAddr())
	assert.Equal(t, 5000, cfg.GetHistoryCapacity())
	// Not set in the file: must still fall back to its default.
	assert.Equal(t, 9600, cfg.GetSerialBaudRate())
}

func TestLoad_RejectsNonJSONExtension(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nasasniff.yaml")
	if err := os.WriteFile(path, []byte("{}"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if _, err := Load(path); err == nil {
		t.Fatal("expected an error for a non-.json extension")
	}
}

func TestLoad_RejectsUnknownTransport(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nasasniff.json")
	if err := os.WriteFile(path, []byte(`{"transport": "carrier-pigeon"}`), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if _, err := Load(path); err == nil {
		t.Fatal("expected an error for an unknown transport")
	}
}

func TestConfig_PointerHelpersBuildOverrides(t *testing.T) {
	cfg := &Config{
		Transport:       ptrString(string(TransportPcap)),
		HistoryCapacity: ptrInt(42),
		ExportOnStop:    ptrBool(true),
	}

	if got := cfg.GetTransport(); got != TransportPcap {
		t.Errorf("GetTransport() = %v, want pcap", got)
	}
	if got := cfg.GetHistoryCapacity(); got != 42 {
		t.Errorf("GetHistoryCapacity() = %d, want 42", got)
	}
	if got := cfg.GetExportOnStop(); got != true {
		t.Errorf("GetExportOnStop() = %v, want true", got)
	}
}
