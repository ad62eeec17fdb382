// Package config loads the capture session's runtime configuration from
// a JSON file, following the pointer-field partial-override schema used
// throughout this codebase: fields omitted from the file keep their
// documented defaults.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// DefaultConfigPath is where a capture session looks for its
// configuration file when none is given on the command line.
const DefaultConfigPath = "config/nasasniff.json"

// TransportKind selects which concrete transport a capture session
// dials.
type TransportKind string

const (
	TransportSerial TransportKind = "serial"
	TransportTCP    TransportKind = "tcp"
	TransportPcap   TransportKind = "pcap"
)

// Config is the root configuration for a capture session. The schema
// mirrors the JSON shape an operator hand-edits or a deploy tool
// generates; every field is optional and falls back to its Get* default.
type Config struct {
	Transport *string `json:"transport,omitempty"` // "serial" | "tcp" | "pcap"

	// Serial transport
	SerialPath     *string `json:"serial_path,omitempty"`
	SerialBaudRate *int    `json:"serial_baud_rate,omitempty"`
	SerialDataBits *int    `json:"serial_data_bits,omitempty"`
	SerialStopBits *int    `json:"serial_stop_bits,omitempty"`
	SerialParity   *string `json:"serial_parity,omitempty"`

	// TCP transport
	TCPAddr           *string `json:"tcp_addr,omitempty"`
	TCPInitialBackoff *string `json:"tcp_initial_backoff,omitempty"` // duration string like "250ms"
	TCPMaxBackoff     *string `json:"tcp_max_backoff,omitempty"`     // duration string like "30s"

	// Pcap replay transport (build tag pcap)
	PcapFile  *string `json:"pcap_file,omitempty"`
	PcapProto *string `json:"pcap_proto,omitempty"`
	PcapPort  *int    `json:"pcap_port,omitempty"`

	// Session
	HistoryCapacity *int `json:"history_capacity,omitempty"`

	// Analyser
	AnalyserHistoryLimit *int `json:"analyser_history_limit,omitempty"`

	// Persistence
	StorePath    *string `json:"store_path,omitempty"`    // empty/unset disables the SQLite store sink
	StoreQueue   *int    `json:"store_queue,omitempty"`   // async write queue depth
	CaptureDir   *string `json:"capture_dir,omitempty"`   // base directory for JSON envelope export/import
	ExportOnStop *bool   `json:"export_on_stop,omitempty"`

	// HTTP surface
	ListenAddr *string `json:"listen_addr,omitempty"`
}

// Helper functions to create pointers, mirroring the partial-override
// config pattern used elsewhere in this codebase.
func ptrString(v string) *string { return &v }
func ptrInt(v int) *int          { return &v }
func ptrBool(v bool) *bool       { return &v }

// Empty returns a Config with every field nil. Use Load to populate one
// from a file; unset fields fall back to the Get* defaults.
func Empty() *Config {
	return &Config{}
}

// Load reads and parses a Config from path. The file must have a
// .json extension and be under 1MB; fields omitted from the JSON retain
// their nil (default-falling-back) value.
func Load(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	info, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if info.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Empty()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks internal consistency of whichever fields are set.
func (c *Config) Validate() error {
	if c.Transport != nil {
		switch TransportKind(*c.Transport) {
		case TransportSerial, TransportTCP, TransportPcap:
		default:
			return fmt.Errorf("unknown transport %q", *c.Transport)
		}
	}
	if c.SerialBaudRate != nil && *c.SerialBaudRate <= 0 {
		return fmt.Errorf("serial_baud_rate must be positive, got %d", *c.SerialBaudRate)
	}
	if c.HistoryCapacity != nil && *c.HistoryCapacity <= 0 {
		return fmt.Errorf("history_capacity must be positive, got %d", *c.HistoryCapacity)
	}
	if c.StoreQueue != nil && *c.StoreQueue <= 0 {
		return fmt.Errorf("store_queue must be positive, got %d", *c.StoreQueue)
	}
	if c.TCPInitialBackoff != nil {
		if _, err := time.ParseDuration(*c.TCPInitialBackoff); err != nil {
			return fmt.Errorf("invalid tcp_initial_backoff %q: %w", *c.TCPInitialBackoff, err)
		}
	}
	if c.TCPMaxBackoff != nil {
		if _, err := time.ParseDuration(*c.TCPMaxBackoff); err != nil {
			return fmt.Errorf("invalid tcp_max_backoff %q: %w", *c.TCPMaxBackoff, err)
		}
	}
	return nil
}

// GetTransport returns the configured transport kind, defaulting to
// serial (the field bus's native medium).
func (c *Config) GetTransport() TransportKind {
	if c.Transport == nil {
		return TransportSerial
	}
	return TransportKind(*c.Transport)
}

// GetSerialPath returns the serial device path, defaulting to the
// common Linux USB-serial adapter path.
func (c *Config) GetSerialPath() string {
	if c.SerialPath == nil {
		return "/dev/ttyUSB0"
	}
	return *c.SerialPath
}

// GetSerialBaudRate returns the configured baud rate, defaulting to the
// NASA-bus field default of 9600.
func (c *Config) GetSerialBaudRate() int {
	if c.SerialBaudRate == nil {
		return 9600
	}
	return *c.SerialBaudRate
}

// GetSerialDataBits returns the configured data bits, defaulting to 8.
func (c *Config) GetSerialDataBits() int {
	if c.SerialDataBits == nil {
		return 8
	}
	return *c.SerialDataBits
}

// GetSerialStopBits returns the configured stop bits, defaulting to 1.
func (c *Config) GetSerialStopBits() int {
	if c.SerialStopBits == nil {
		return 1
	}
	return *c.SerialStopBits
}

// GetSerialParity returns the configured parity, defaulting to "N".
func (c *Config) GetSerialParity() string {
	if c.SerialParity == nil {
		return "N"
	}
	return *c.SerialParity
}

// GetTCPAddr returns the configured TCP address, defaulting to the
// conventional RS-485-to-TCP bridge port.
func (c *Config) GetTCPAddr() string {
	if c.TCPAddr == nil {
		return "localhost:5000"
	}
	return *c.TCPAddr
}

// GetPcapFile returns the capture file path to replay.
func (c *Config) GetPcapFile() string {
	if c.PcapFile == nil {
		return ""
	}
	return *c.PcapFile
}

// GetPcapProto returns which transport-layer payload to extract from
// the capture file, defaulting to "tcp".
func (c *Config) GetPcapProto() string {
	if c.PcapProto == nil {
		return "tcp"
	}
	return *c.PcapProto
}

// GetPcapPort returns the flow port to filter on when replaying a
// capture file.
func (c *Config) GetPcapPort() int {
	if c.PcapPort == nil {
		return 0
	}
	return *c.PcapPort
}

// GetTCPInitialBackoff returns the parsed reconnect initial backoff,
// defaulting to 250ms on an unset or unparsable value.
func (c *Config) GetTCPInitialBackoff() time.Duration {
	if c.TCPInitialBackoff == nil {
		return 250 * time.Millisecond
	}
	d, err := time.ParseDuration(*c.TCPInitialBackoff)
	if err != nil {
		return 250 * time.Millisecond
	}
	return d
}

// GetTCPMaxBackoff returns the parsed reconnect max backoff, defaulting
// to 30s on an unset or unparsable value.
func (c *Config) GetTCPMaxBackoff() time.Duration {
	if c.TCPMaxBackoff == nil {
		return 30 * time.Second
	}
	d, err := time.ParseDuration(*c.TCPMaxBackoff)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// GetHistoryCapacity returns the session ring capacity, defaulting to
// session.DefaultHistoryCapacity's value (kept as a literal here to
// avoid config depending on the session package).
func (c *Config) GetHistoryCapacity() int {
	if c.HistoryCapacity == nil {
		return 1000
	}
	return *c.HistoryCapacity
}

// GetAnalyserHistoryLimit returns the per-group retention bound, 0
// meaning unbounded.
func (c *Config) GetAnalyserHistoryLimit() int {
	if c.AnalyserHistoryLimit == nil {
		return 0
	}
	return *c.AnalyserHistoryLimit
}

// GetStorePath returns the SQLite store path, or "" if the store sink
// is disabled (the default: the core session never requires it).
func (c *Config) GetStorePath() string {
	if c.StorePath == nil {
		return ""
	}
	return *c.StorePath
}

// GetStoreQueue returns the async store sink's queue depth.
func (c *Config) GetStoreQueue() int {
	if c.StoreQueue == nil {
		return 256
	}
	return *c.StoreQueue
}

// GetCaptureDir returns the base directory JSON envelope paths are
// validated against.
func (c *Config) GetCaptureDir() string {
	if c.CaptureDir == nil {
		return "captures"
	}
	return *c.CaptureDir
}

// GetExportOnStop reports whether the session's history should be
// exported as a JSON envelope when the capture stops.
func (c *Config) GetExportOnStop() bool {
	if c.ExportOnStop == nil {
		return false
	}
	return *c.ExportOnStop
}

// GetListenAddr returns the HTTP admin/live surface's listen address.
func (c *Config) GetListenAddr() string {
	if c.ListenAddr == nil {
		return ":8080"
	}
	return *c.ListenAddr
}
