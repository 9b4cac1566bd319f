// Command seed-db loads the product and class catalog into PostgreSQL.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/notions-storefront/internal/catalog"
	"github.com/xenking/notions-storefront/internal/storage/postgres"
)

func main() {
	var (
		databaseURL string
		catalogFile string
		workers     int
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&catalogFile, "catalog-file", "", "catalog JSON file, optionally .gz; the built-in catalog when empty")
	flag.IntVar(&workers, "workers", 4, "concurrent upserts")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, catalogFile, workers); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, catalogFile string, workers int) error {
	store := catalog.NewStaticStore()
	if catalogFile != "" {
		slog.Info("reading catalog file", slog.String("path", catalogFile))
		s, err := catalog.LoadFile(catalogFile)
		if err != nil {
			return errors.Wrap(err, "load catalog")
		}
		store = s
	}

	products, err := store.List(ctx)
	if err != nil {
		return errors.Wrap(err, "list products")
	}
	classes, err := store.Classes().List(ctx)
	if err != nil {
		return errors.Wrap(err, "list classes")
	}

	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	productRepo := postgres.NewProductRepository(pool)
	classRepo := postgres.NewClassRepository(pool)

	slog.Info("upserting catalog",
		slog.Int("products", len(products)),
		slog.Int("classes", len(classes)),
		slog.Int("workers", workers),
	)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(workers, 1))
	for _, p := range products {
		g.Go(func() error {
			if err := productRepo.Upsert(ctx, p); err != nil {
				return err
			}
			slog.Info("upserted product", slog.Int("id", p.ID), slog.String("name", p.Name))
			return nil
		})
	}
	for _, o := range classes {
		g.Go(func() error {
			if err := classRepo.Upsert(ctx, o); err != nil {
				return err
			}
			slog.Info("upserted class", slog.Int("id", o.ID), slog.String("name", o.Name))
			return nil
		})
	}
	return g.Wait()
}
