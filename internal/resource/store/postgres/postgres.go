// Package postgres persists resources in PostgreSQL. Every lifecycle write is
// a single conditional statement, so concurrent deletes and restores of one
// row serialize on the row lock.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"baseresource/internal/resource/models"
	"baseresource/pkg/platform/sentinel"
	"baseresource/pkg/platform/tx"
	"baseresource/pkg/requestcontext"
)

const maxRestoreAttempts = 3

// Store is a PostgreSQL-backed resource store. It joins a transaction carried
// in the context (see pkg/platform/tx) and uses the pool otherwise.
type Store[E any, T models.EntityPtr[E]] struct {
	db      *sql.DB
	schema  Schema[T]
	queries queries
}

// New constructs a store for the table described by schema.
func New[E any, T models.EntityPtr[E]](db *sql.DB, schema Schema[T]) (*Store[E, T], error) {
	if db == nil {
		return nil, fmt.Errorf("postgres store: db is required")
	}
	if err := schema.validate(); err != nil {
		return nil, err
	}
	return &Store[E, T]{db: db, schema: schema, queries: buildQueries(schema)}, nil
}

func (s *Store[E, T]) Create(ctx context.Context, entity T) (T, error) {
	if entity == nil {
		return nil, fmt.Errorf("create: %w", sentinel.ErrInvalidInput)
	}
	now := requestcontext.Now(ctx)
	args := append([]any{now, now}, s.schema.Values(entity)...)
	row := tx.QuerierFrom(ctx, s.db).QueryRowContext(ctx, s.queries.insert, args...)
	return s.scanOne(row, "create "+s.schema.Table)
}

func (s *Store[E, T]) FindByID(ctx context.Context, id models.ID, includeDeleted bool) (T, error) {
	row := tx.QuerierFrom(ctx, s.db).QueryRowContext(ctx, s.queries.selectByID, int64(id))
	found, err := s.scanOne(row, "find "+s.schema.Table)
	if err != nil {
		return nil, err
	}
	if !includeDeleted && found.Meta().IsDeleted() {
		return nil, sentinel.ErrNotFound
	}
	return found, nil
}

// FindMany runs the page query and the count concurrently on the pool. Inside
// a transaction both run on the transaction's connection, one after the other.
func (s *Store[E, T]) FindMany(ctx context.Context, filter models.Filter, page models.PageRequest) ([]T, int, error) {
	var (
		items []T
		total int
	)
	list := func(ctx context.Context) error {
		var err error
		items, err = s.list(ctx, filter, page)
		return err
	}
	count := func(ctx context.Context) error {
		err := tx.QuerierFrom(ctx, s.db).QueryRowContext(ctx, s.queries.count, filter.IncludeDeleted).Scan(&total)
		return classify("count "+s.schema.Table, err)
	}

	if _, inTx := tx.From(ctx); inTx {
		if err := list(ctx); err != nil {
			return nil, 0, err
		}
		if err := count(ctx); err != nil {
			return nil, 0, err
		}
		return items, total, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return list(gctx) })
	g.Go(func() error { return count(gctx) })
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (s *Store[E, T]) list(ctx context.Context, filter models.Filter, page models.PageRequest) ([]T, error) {
	limit := any(nil)
	if page.Limit > 0 {
		limit = page.Limit
	}
	rows, err := tx.QuerierFrom(ctx, s.db).QueryContext(ctx, s.queries.selectPage, filter.IncludeDeleted, limit, page.Offset)
	if err != nil {
		return nil, classify("list "+s.schema.Table, err)
	}
	defer rows.Close()

	items := make([]T, 0, page.Limit)
	for rows.Next() {
		entity := T(new(E))
		if err := rows.Scan(s.targets(entity)...); err != nil {
			return nil, classify("scan "+s.schema.Table, err)
		}
		items = append(items, normalize[E, T](entity))
	}
	if err := rows.Err(); err != nil {
		return nil, classify("list "+s.schema.Table, err)
	}
	return items, nil
}

func (s *Store[E, T]) Update(ctx context.Context, id models.ID, entity T) (T, error) {
	if entity == nil {
		return nil, fmt.Errorf("update: %w", sentinel.ErrInvalidInput)
	}
	args := append([]any{int64(id), requestcontext.Now(ctx)}, s.schema.Values(entity)...)
	row := tx.QuerierFrom(ctx, s.db).QueryRowContext(ctx, s.queries.update, args...)
	return s.scanOne(row, "update "+s.schema.Table)
}

func (s *Store[E, T]) SoftDelete(ctx context.Context, id models.ID) (T, error) {
	row := tx.QuerierFrom(ctx, s.db).QueryRowContext(ctx, s.queries.softDelete, int64(id), requestcontext.Now(ctx))
	return s.scanOne(row, "soft delete "+s.schema.Table)
}

// Restore clears deleted_at on a deleted row. When the conditional update
// matches nothing the row is read back: an active row is returned unchanged,
// a row deleted again in between is retried.
func (s *Store[E, T]) Restore(ctx context.Context, id models.ID) (T, bool, error) {
	op := "restore " + s.schema.Table
	for range maxRestoreAttempts {
		row := tx.QuerierFrom(ctx, s.db).QueryRowContext(ctx, s.queries.restore, int64(id))
		restored, err := s.scanOne(row, op)
		if err == nil {
			return restored, true, nil
		}
		if !errors.Is(err, sentinel.ErrNotFound) {
			return nil, false, err
		}

		current, err := s.FindByID(ctx, id, true)
		if err != nil {
			return nil, false, err
		}
		if !current.Meta().IsDeleted() {
			return current, false, nil
		}
	}
	return nil, false, fmt.Errorf("%s: row %d kept changing: %w", op, id, sentinel.ErrConflict)
}

func (s *Store[E, T]) scanOne(row *sql.Row, op string) (T, error) {
	entity := T(new(E))
	if err := row.Scan(s.targets(entity)...); err != nil {
		return nil, classify(op, err)
	}
	return normalize[E, T](entity), nil
}

// targets returns scan destinations in RETURNING column order. deleted_at is
// scanned straight into the *time.Time field; NULL leaves it nil.
func (s *Store[E, T]) targets(entity T) []any {
	meta := entity.Meta()
	return append([]any{(*int64)(&meta.ID), &meta.CreatedAt, &meta.UpdatedAt, &meta.DeletedAt}, s.schema.Targets(entity)...)
}

func normalize[E any, T models.EntityPtr[E]](entity T) T {
	meta := entity.Meta()
	meta.CreatedAt = meta.CreatedAt.UTC()
	meta.UpdatedAt = meta.UpdatedAt.UTC()
	if meta.DeletedAt != nil {
		at := meta.DeletedAt.UTC()
		meta.DeletedAt = &at
	}
	return entity
}
