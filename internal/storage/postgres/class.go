package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/notions-storefront/internal/domain/class"
)

const (
	listClassesSQL = `SELECT id, name, cost, dates, sessions, description, link
		FROM classes ORDER BY id`

	getClassByIDSQL = `SELECT id, name, cost, dates, sessions, description, link
		FROM classes WHERE id = $1`

	upsertClassSQL = `INSERT INTO classes (id, name, cost, dates, sessions, description, link)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			cost = EXCLUDED.cost,
			dates = EXCLUDED.dates,
			sessions = EXCLUDED.sessions,
			description = EXCLUDED.description,
			link = EXCLUDED.link`
)

var _ class.Repository = (*ClassRepository)(nil)

// ClassRepository implements class.Repository backed by PostgreSQL.
type ClassRepository struct {
	pool *pgxpool.Pool
}

// NewClassRepository returns a ClassRepository that uses the given pool.
func NewClassRepository(pool *pgxpool.Pool) *ClassRepository {
	return &ClassRepository{pool: pool}
}

// List returns all classes ordered by ID.
func (r *ClassRepository) List(ctx context.Context) ([]class.Offering, error) {
	rows, err := r.pool.Query(ctx, listClassesSQL)
	if err != nil {
		return nil, errors.Wrap(err, "list classes")
	}
	return pgx.CollectRows(rows, scanClass)
}

// GetByID returns a single class by its identifier.
func (r *ClassRepository) GetByID(ctx context.Context, id int) (*class.Offering, error) {
	rows, err := r.pool.Query(ctx, getClassByIDSQL, id)
	if err != nil {
		return nil, errors.Wrapf(err, "get class %d", id)
	}

	o, err := pgx.CollectExactlyOneRow(rows, scanClass)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, class.ErrNotFound
		}
		return nil, errors.Wrapf(err, "get class %d", id)
	}
	return &o, nil
}

// Upsert inserts or replaces a class row.
func (r *ClassRepository) Upsert(ctx context.Context, o class.Offering) error {
	if o.Dates == nil {
		o.Dates = []string{}
	}
	if _, err := r.pool.Exec(ctx, upsertClassSQL,
		o.ID, o.Name, o.Cost, o.Dates, o.Sessions, o.Description, o.Link,
	); err != nil {
		return errors.Wrapf(err, "upsert class %d", o.ID)
	}
	return nil
}

func scanClass(row pgx.CollectableRow) (class.Offering, error) {
	var o class.Offering
	err := row.Scan(&o.ID, &o.Name, &o.Cost, &o.Dates, &o.Sessions, &o.Description, &o.Link)
	return o, err
}
