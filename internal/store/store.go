// Package store persists observed packets, their analyser group
// membership, and decode errors into a SQLite database, schema-versioned
// with golang-migrate, so an operator can query capture history beyond
// the lifetime of the in-memory session ring.
package store

import (
	"database/sql"
	"embed"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/tailscale/tailsql/server/tailsql"
	_ "modernc.org/sqlite"
	"tailscale.com/tsweb"

	"github.com/tlindal/nasasniff/internal/monitoring"
	"github.com/tlindal/nasasniff/internal/nasa"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store wraps a SQLite-backed capture database.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens (creating if necessary) a SQLite database at path and
// migrates it to the latest schema version.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}

	s := &Store{db: db, path: path}
	if err := s.migrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrateUp() error {
	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("store: load embedded migrations: %w", err)
	}

	dbDriver, err := sqlite.WithInstance(s.db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("store: create sqlite migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite", dbDriver)
	if err != nil {
		return fmt.Errorf("store: create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("store: migrate up: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// InsertPacket persists one decoded packet and its MessageSet records.
func (s *Store) InsertPacket(p nasa.Packet) error {
	res, err := s.db.Exec(
		`INSERT INTO packets (captured_at, source, destination, packet_type, data_type, signature, raw_frame_hex)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.Timestamp, p.Source.String(), p.Destination.String(),
		p.Command.PacketType.String(), p.Command.DataType.String(),
		p.Signature(), hex.EncodeToString(p.RawFrame),
	)
	if err != nil {
		return fmt.Errorf("store: insert packet: %w", err)
	}

	packetID, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("store: last insert id: %w", err)
	}

	for _, m := range p.Messages {
		if _, err := s.db.Exec(
			`INSERT INTO messages (packet_id, message_number, kind, value, readable, name)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			packetID, m.MessageNumber, uint8(m.Kind), m.Value(), m.Readable(), nasa.MessageName(m.MessageNumber),
		); err != nil {
			return fmt.Errorf("store: insert message: %w", err)
		}
	}

	return s.upsertGroup(p)
}

func (s *Store) upsertGroup(p nasa.Packet) error {
	sig := p.Signature()
	_, err := s.db.Exec(
		`INSERT INTO groups (signature, count, first_seen, last_seen)
		 VALUES (?, 1, ?, ?)
		 ON CONFLICT(signature) DO UPDATE SET
		   count = count + 1,
		   last_seen = excluded.last_seen`,
		sig, p.Timestamp, p.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("store: upsert group: %w", err)
	}
	return nil
}

// InsertDecodeError records a non-fatal decode error and its raw bytes.
func (s *Store) InsertDecodeError(kind string, frame []byte) error {
	_, err := s.db.Exec(
		`INSERT INTO decode_errors (kind, raw_frame_hex) VALUES (?, ?)`,
		kind, hex.EncodeToString(frame),
	)
	if err != nil {
		return fmt.Errorf("store: insert decode error: %w", err)
	}
	return nil
}

// AttachAdminRoutes mounts a read-only SQL browser over the capture
// database at /debug/tailsql/, locked to loopback/Tailscale access by
// tsweb.Debugger.
func (s *Store) AttachAdminRoutes(mux *http.ServeMux) error {
	debug := tsweb.Debugger(mux)

	tsql, err := tailsql.NewServer(tailsql.Options{
		RoutePrefix: "/debug/tailsql/",
	})
	if err != nil {
		return fmt.Errorf("store: create tailsql server: %w", err)
	}
	tsql.SetDB(fmt.Sprintf("sqlite://%s", s.path), s.db, &tailsql.DBOptions{
		Label: "NASA bus captures",
	})

	debug.Handle("tailsql/", "SQL browser over the capture database", tsql.NewMux())
	monitoring.Logf("store: admin SQL browser mounted at /debug/tailsql/")
	return nil
}
