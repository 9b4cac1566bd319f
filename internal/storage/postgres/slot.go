package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/notions-storefront/internal/domain/cart"
)

const (
	getSlotSQL = `SELECT payload::text FROM cart_slots WHERE slot_key = $1`

	setSlotSQL = `INSERT INTO cart_slots (slot_key, payload, updated_at)
		VALUES ($1, $2::jsonb, now())
		ON CONFLICT (slot_key) DO UPDATE SET payload = EXCLUDED.payload, updated_at = now()`
)

var _ cart.SlotStore = (*SlotStore)(nil)

// SlotStore implements cart.SlotStore with one JSONB row per slot. Payloads
// that are not valid JSON are rejected by the column type and surface as a
// Set error.
type SlotStore struct {
	pool *pgxpool.Pool
}

// NewSlotStore returns a SlotStore that uses the given pool.
func NewSlotStore(pool *pgxpool.Pool) *SlotStore {
	return &SlotStore{pool: pool}
}

// Get returns the payload stored under key.
func (s *SlotStore) Get(ctx context.Context, key string) ([]byte, error) {
	var payload string
	if err := s.pool.QueryRow(ctx, getSlotSQL, key).Scan(&payload); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, cart.ErrSlotNotFound
		}
		return nil, errors.Wrapf(err, "get slot %q", key)
	}
	return []byte(payload), nil
}

// Set upserts the payload for key.
func (s *SlotStore) Set(ctx context.Context, key string, value []byte) error {
	if _, err := s.pool.Exec(ctx, setSlotSQL, key, string(value)); err != nil {
		return errors.Wrapf(err, "set slot %q", key)
	}
	return nil
}

// Ping checks the pool.
func (s *SlotStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}
