package app

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/xenking/notions-storefront/internal/catalog"
	"github.com/xenking/notions-storefront/internal/domain/cart"
	"github.com/xenking/notions-storefront/internal/domain/class"
	"github.com/xenking/notions-storefront/internal/domain/product"
	"github.com/xenking/notions-storefront/internal/storage/memory"
	"github.com/xenking/notions-storefront/internal/storage/postgres"
	"github.com/xenking/notions-storefront/internal/storage/redis"
	"github.com/xenking/notions-storefront/internal/storage/sqlite"
)

// stores bundles the storage the storefront runs on.
type stores struct {
	slots    cart.SlotStore
	products product.Repository
	classes  class.Repository
	closers  []func()
}

func (s *stores) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

// openStores connects the configured slot backend and catalog source. The
// PostgreSQL pool is shared when both use it.
func openStores(ctx context.Context, lg *zap.Logger, cfg *Config) (_ *stores, rerr error) {
	s := &stores{}
	defer func() {
		if rerr != nil {
			s.Close()
		}
	}()

	var pool *pgxpool.Pool
	needPool := cfg.Storage.Backend == BackendPostgres || cfg.Catalog.Source == CatalogPostgres
	if needPool {
		p, err := postgres.NewPool(ctx, cfg.Storage.DatabaseURL)
		if err != nil {
			return nil, errors.Wrap(err, "create db pool")
		}
		s.closers = append(s.closers, p.Close)
		if err := postgres.RunMigrations(ctx, p); err != nil {
			return nil, errors.Wrap(err, "run migrations")
		}
		pool = p
	}

	switch cfg.Storage.Backend {
	case BackendMemory:
		s.slots = memory.NewSlotStore()
	case BackendRedis:
		client, err := redis.NewClient(ctx, cfg.Storage.RedisURL)
		if err != nil {
			return nil, errors.Wrap(err, "connect redis")
		}
		s.closers = append(s.closers, func() { _ = client.Close() })
		s.slots = redis.NewSlotStore(client, cfg.Storage.TTL)
	case BackendSQLite:
		store, err := sqlite.Open(ctx, cfg.Storage.SQLitePath)
		if err != nil {
			return nil, errors.Wrap(err, "open sqlite")
		}
		s.closers = append(s.closers, func() { _ = store.Close() })
		s.slots = store
	case BackendPostgres:
		s.slots = postgres.NewSlotStore(pool)
	default:
		return nil, errors.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}

	switch cfg.Catalog.Source {
	case CatalogStatic:
		static := catalog.NewStaticStore()
		s.products, s.classes = static, static.Classes()
	case CatalogPostgres:
		s.products = postgres.NewProductRepository(pool)
		s.classes = postgres.NewClassRepository(pool)
	default:
		return nil, errors.Errorf("unknown catalog source %q", cfg.Catalog.Source)
	}

	lg.Info("Storage ready",
		zap.String("backend", cfg.Storage.Backend),
		zap.String("catalog", cfg.Catalog.Source),
	)
	return s, nil
}
