package cart

import (
	"context"
	"hash/fnv"
	"sync"

	"github.com/go-faster/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/xenking/notions-storefront/internal/domain/product"
)

var (
	// ErrEmptyCart is returned by Checkout when there is nothing to check out.
	ErrEmptyCart = errors.New("your cart is empty")
	// ErrUnavailable is returned by AddItem when the stored cart could not be
	// read. The change is not applied so the stored cart is never replaced by
	// a partial one.
	ErrUnavailable = errors.New("cart storage unavailable")
)

// Listener is called after every applied mutation with the new cart state,
// once the save has been attempted.
type Listener func(ctx context.Context, visitorID string, c *Cart)

// ServiceConfig holds non-dependency configuration for the Service.
type ServiceConfig struct {
	// MaxQuantity caps every line item. Zero uses DefaultMaxQuantity.
	MaxQuantity int
}

// Service is the single cart entry point shared by all handlers. Every
// mutation loads the visitor's cart, applies the change, persists the full
// state and then notifies listeners.
//
// A cart whose save failed is kept in memory and served in place of the
// stored one until a later save for that visitor succeeds.
type Service struct {
	adapter     *Adapter
	maxQuantity int
	locks       [64]sync.Mutex

	unsavedMu sync.Mutex
	unsaved   map[string][]LineItem

	mu        sync.RWMutex
	listeners []Listener

	added     metric.Int64Counter
	removed   metric.Int64Counter
	cleared   metric.Int64Counter
	checkouts metric.Int64Counter
}

// NewService creates a cart Service persisting through adapter and recording
// metrics on meter.
func NewService(adapter *Adapter, cfg ServiceConfig, meter metric.Meter) (*Service, error) {
	s := &Service{
		adapter:     adapter,
		maxQuantity: cfg.MaxQuantity,
		unsaved:     make(map[string][]LineItem),
	}
	if s.maxQuantity < 1 {
		s.maxQuantity = DefaultMaxQuantity
	}

	var err error
	if s.added, err = meter.Int64Counter("cart.items.added",
		metric.WithDescription("Units added to carts"),
	); err != nil {
		return nil, errors.Wrap(err, "create added counter")
	}
	if s.removed, err = meter.Int64Counter("cart.items.removed",
		metric.WithDescription("Line items removed from carts"),
	); err != nil {
		return nil, errors.Wrap(err, "create removed counter")
	}
	if s.cleared, err = meter.Int64Counter("cart.cleared",
		metric.WithDescription("Carts cleared by visitors"),
	); err != nil {
		return nil, errors.Wrap(err, "create cleared counter")
	}
	if s.checkouts, err = meter.Int64Counter("cart.checkout.attempts",
		metric.WithDescription("Checkout button activations"),
	); err != nil {
		return nil, errors.Wrap(err, "create checkout counter")
	}
	return s, nil
}

// OnChange registers a listener invoked after each persisted mutation.
func (s *Service) OnChange(l Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, l)
}

// MaxQuantity returns the per-line ceiling.
func (s *Service) MaxQuantity() int {
	return s.maxQuantity
}

// Get returns the current cart for visitorID.
func (s *Service) Get(ctx context.Context, visitorID string) *Cart {
	c, _ := s.current(ctx, visitorID)
	return c
}

// AddItem adds quantity units of p to the visitor's cart. It returns the
// number of units actually added, which is less than quantity (possibly zero)
// when the line hits the ceiling.
func (s *Service) AddItem(ctx context.Context, visitorID string, p product.Product, quantity int) (*Cart, int, error) {
	var (
		added  int
		addErr error
	)
	c, err := s.mutate(ctx, visitorID, func(c *Cart) bool {
		before, _ := c.Item(p.ID)
		if addErr = c.AddItem(p, quantity); addErr != nil {
			return false
		}
		after, _ := c.Item(p.ID)
		added = max(after.Quantity-before.Quantity, 0)
		return added > 0
	})
	if err != nil {
		return c, 0, err
	}
	if addErr != nil {
		return c, 0, addErr
	}
	if added > 0 {
		s.added.Add(ctx, int64(added), metric.WithAttributes(attribute.Int("product.id", p.ID)))
	}
	return c, added, nil
}

// RemoveItem drops productID from the visitor's cart; absent ids are a no-op.
func (s *Service) RemoveItem(ctx context.Context, visitorID string, productID int) *Cart {
	removed := false
	c, _ := s.mutate(ctx, visitorID, func(c *Cart) bool {
		removed = c.RemoveItem(productID)
		return removed
	})
	if removed {
		s.removed.Add(ctx, 1)
	}
	return c
}

// UpdateQuantity sets the quantity for productID; zero or less removes it.
func (s *Service) UpdateQuantity(ctx context.Context, visitorID string, productID, quantity int) *Cart {
	c, _ := s.mutate(ctx, visitorID, func(c *Cart) bool {
		return c.UpdateQuantity(productID, quantity)
	})
	return c
}

// Increase bumps productID by one unit, up to the ceiling.
func (s *Service) Increase(ctx context.Context, visitorID string, productID int) *Cart {
	return s.step(ctx, visitorID, productID, 1)
}

// Decrease drops productID by one unit, removing the line at zero.
func (s *Service) Decrease(ctx context.Context, visitorID string, productID int) *Cart {
	return s.step(ctx, visitorID, productID, -1)
}

// Clear empties the visitor's cart.
func (s *Service) Clear(ctx context.Context, visitorID string) *Cart {
	c, err := s.mutate(ctx, visitorID, func(c *Cart) bool {
		c.Clear()
		return true
	})
	if err == nil {
		s.cleared.Add(ctx, 1)
	}
	return c
}

// Checkout is a stub: it never changes state. It returns ErrEmptyCart when
// the cart has no lines.
func (s *Service) Checkout(ctx context.Context, visitorID string) (*Cart, error) {
	c := s.Get(ctx, visitorID)
	s.checkouts.Add(ctx, 1, metric.WithAttributes(attribute.Bool("cart.empty", c.IsEmpty())))
	if c.IsEmpty() {
		return c, ErrEmptyCart
	}
	return c, nil
}

// Ping checks the cart storage.
func (s *Service) Ping(ctx context.Context) error {
	return s.adapter.Ping(ctx)
}

func (s *Service) step(ctx context.Context, visitorID string, productID, delta int) *Cart {
	c, _ := s.mutate(ctx, visitorID, func(c *Cart) bool {
		it, ok := c.Item(productID)
		if !ok {
			return false
		}
		return c.UpdateQuantity(productID, it.Quantity+delta)
	})
	return c
}

// mutate runs fn against the visitor's cart under the visitor's lock. When fn
// reports a change, the cart is persisted before listeners run. When the
// stored cart cannot be read, fn is not run and ErrUnavailable is returned.
func (s *Service) mutate(ctx context.Context, visitorID string, fn func(c *Cart) bool) (*Cart, error) {
	mu := s.lockFor(visitorID)
	mu.Lock()
	defer mu.Unlock()

	c, ok := s.current(ctx, visitorID)
	if !ok {
		return c, ErrUnavailable
	}
	if !fn(c) {
		return c, nil
	}
	s.persist(ctx, visitorID, c)

	s.mu.RLock()
	listeners := s.listeners
	s.mu.RUnlock()
	for _, l := range listeners {
		l(ctx, visitorID, c)
	}
	return c, nil
}

// current returns the unsaved cart for visitorID if there is one, otherwise
// the stored cart. ok is false when the store could not be read.
func (s *Service) current(ctx context.Context, visitorID string) (c *Cart, ok bool) {
	s.unsavedMu.Lock()
	items, pending := s.unsaved[visitorID]
	s.unsavedMu.Unlock()
	if pending {
		return New(items, s.maxQuantity), true
	}
	items, ok = s.adapter.load(ctx, visitorID)
	return New(items, s.maxQuantity), ok
}

func (s *Service) persist(ctx context.Context, visitorID string, c *Cart) {
	items := c.Items()
	saved := s.adapter.Save(ctx, visitorID, items)

	s.unsavedMu.Lock()
	defer s.unsavedMu.Unlock()
	if saved {
		delete(s.unsaved, visitorID)
		return
	}
	s.unsaved[visitorID] = items
}

func (s *Service) lockFor(visitorID string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(visitorID))
	return &s.locks[h.Sum32()%uint32(len(s.locks))]
}
