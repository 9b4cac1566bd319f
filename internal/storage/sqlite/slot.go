// Package sqlite keeps cart slots in a local SQLite file, the closest
// server-side analogue of browser storage for single-node deployments.
package sqlite

import (
	"context"
	"database/sql"

	"github.com/go-faster/errors"
	_ "modernc.org/sqlite"

	"github.com/xenking/notions-storefront/internal/domain/cart"
)

const schema = `CREATE TABLE IF NOT EXISTS cart_slot (
	slot_key   TEXT PRIMARY KEY,
	payload    BLOB NOT NULL,
	updated_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ', 'now'))
)`

const (
	getSlotSQL = `SELECT payload FROM cart_slot WHERE slot_key = ?`
	setSlotSQL = `INSERT INTO cart_slot (slot_key, payload) VALUES (?, ?)
		ON CONFLICT (slot_key) DO UPDATE SET
			payload = excluded.payload,
			updated_at = strftime('%Y-%m-%dT%H:%M:%fZ', 'now')`
)

var _ cart.SlotStore = (*SlotStore)(nil)

// SlotStore implements cart.SlotStore with one row per slot.
type SlotStore struct {
	db *sql.DB
}

// Open opens (or creates) the database at path with WAL journaling and a busy
// timeout, and ensures the slot table exists.
func Open(ctx context.Context, path string) (*SlotStore, error) {
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "open sqlite")
	}
	s, err := New(ctx, db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an open database and creates the slot table if needed.
func New(ctx context.Context, db *sql.DB) (*SlotStore, error) {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, errors.Wrap(err, "create cart_slot table")
	}
	return &SlotStore{db: db}, nil
}

// Get returns the payload stored under key.
func (s *SlotStore) Get(ctx context.Context, key string) ([]byte, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx, getSlotSQL, key).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, cart.ErrSlotNotFound
		}
		return nil, errors.Wrapf(err, "get slot %q", key)
	}
	return payload, nil
}

// Set upserts the payload for key in a single statement.
func (s *SlotStore) Set(ctx context.Context, key string, value []byte) error {
	if _, err := s.db.ExecContext(ctx, setSlotSQL, key, value); err != nil {
		return errors.Wrapf(err, "set slot %q", key)
	}
	return nil
}

// Ping checks the database connection.
func (s *SlotStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close releases the database.
func (s *SlotStore) Close() error {
	return s.db.Close()
}
