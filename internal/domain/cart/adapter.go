package cart

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
)

// DefaultSlotKey names the storage slot that holds a visitor's cart.
const DefaultSlotKey = "ninasNotionsCart"

// ErrSlotNotFound is returned by a SlotStore when the slot was never written.
var ErrSlotNotFound = errors.New("slot not found")

// SlotStore is durable key-value storage holding one opaque value per key.
// Set replaces the whole value in a single write.
type SlotStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Ping(ctx context.Context) error
}

// Adapter reads and writes carts in a SlotStore. It never mutates line items
// and never returns storage errors: failures are logged and degrade to an
// empty cart on load or to a no-op on save.
type Adapter struct {
	store   SlotStore
	slotKey string
}

// NewAdapter returns an Adapter over store. An empty slotKey uses DefaultSlotKey.
func NewAdapter(store SlotStore, slotKey string) *Adapter {
	if slotKey == "" {
		slotKey = DefaultSlotKey
	}
	return &Adapter{store: store, slotKey: slotKey}
}

// Key returns the slot key for a visitor.
func (a *Adapter) Key(visitorID string) string {
	if visitorID == "" {
		return a.slotKey
	}
	return a.slotKey + ":" + visitorID
}

// Load returns the persisted line items for visitorID, or an empty sequence
// when the slot is absent, unreadable or corrupt.
func (a *Adapter) Load(ctx context.Context, visitorID string) []LineItem {
	items, _ := a.load(ctx, visitorID)
	return items
}

// load is Load that also reports whether the store answered. ok is false only
// when the read itself failed; an absent or corrupt slot is a readable empty
// cart that may be overwritten.
func (a *Adapter) load(ctx context.Context, visitorID string) (items []LineItem, ok bool) {
	key := a.Key(visitorID)
	data, err := a.store.Get(ctx, key)
	switch {
	case errors.Is(err, ErrSlotNotFound):
		return []LineItem{}, true
	case err != nil:
		zctx.From(ctx).Warn("Error loading cart", zap.String("slot", key), zap.Error(err))
		return []LineItem{}, false
	case len(data) == 0:
		return []LineItem{}, true
	}

	items, err = Decode(data)
	if err != nil {
		zctx.From(ctx).Warn("Error loading cart", zap.String("slot", key), zap.Error(err))
		return []LineItem{}, true
	}
	return items, true
}

// Save replaces the persisted line items for visitorID. It reports whether the
// write succeeded; a failed write leaves the in-memory cart authoritative.
func (a *Adapter) Save(ctx context.Context, visitorID string, items []LineItem) bool {
	key := a.Key(visitorID)
	if err := a.store.Set(ctx, key, Encode(items)); err != nil {
		zctx.From(ctx).Warn("Error saving cart", zap.String("slot", key), zap.Error(err))
		return false
	}
	return true
}

// Ping checks that the underlying store is reachable.
func (a *Adapter) Ping(ctx context.Context) error {
	return a.store.Ping(ctx)
}
