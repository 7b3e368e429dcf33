// Package memory is an in-process resource store for development and tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"baseresource/internal/resource/models"
	"baseresource/pkg/platform/sentinel"
	"baseresource/pkg/requestcontext"
)

// Store keeps resources in a map guarded by a single mutex. Every operation
// runs its check and its write under the lock, so delete and restore on the
// same id never interleave.
type Store[E any, T models.EntityPtr[E]] struct {
	mu     sync.RWMutex
	rows   map[models.ID]T
	nextID models.ID
}

// New constructs an empty store for resources of type E.
func New[E any, T models.EntityPtr[E]]() *Store[E, T] {
	return &Store[E, T]{rows: make(map[models.ID]T)}
}

func (s *Store[E, T]) Create(ctx context.Context, entity T) (T, error) {
	if entity == nil {
		return nil, fmt.Errorf("create: %w", sentinel.ErrInvalidInput)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	row := clone[E, T](entity)
	row.Meta().Stamp(s.nextID, requestcontext.Now(ctx))
	s.rows[row.Meta().ID] = row
	return clone[E, T](row), nil
}

func (s *Store[E, T]) FindByID(_ context.Context, id models.ID, includeDeleted bool) (T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row, ok := s.rows[id]
	if !ok || (!includeDeleted && row.Meta().IsDeleted()) {
		return nil, sentinel.ErrNotFound
	}
	return clone[E, T](row), nil
}

func (s *Store[E, T]) FindMany(_ context.Context, filter models.Filter, page models.PageRequest) ([]T, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]models.ID, 0, len(s.rows))
	for id, row := range s.rows {
		if !filter.IncludeDeleted && row.Meta().IsDeleted() {
			continue
		}
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	total := len(ids)
	start := min(page.Offset, total)
	end := total
	if page.Limit > 0 {
		end = min(start+page.Limit, total)
	}

	items := make([]T, 0, end-start)
	for _, id := range ids[start:end] {
		items = append(items, clone[E, T](s.rows[id]))
	}
	return items, total, nil
}

func (s *Store[E, T]) Update(ctx context.Context, id models.ID, entity T) (T, error) {
	if entity == nil {
		return nil, fmt.Errorf("update: %w", sentinel.ErrInvalidInput)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.rows[id]
	if !ok || current.Meta().IsDeleted() {
		return nil, sentinel.ErrNotFound
	}
	row := clone[E, T](entity)
	meta := *current.Meta()
	meta.UpdatedAt = requestcontext.Now(ctx)
	*row.Meta() = meta
	s.rows[id] = row
	return clone[E, T](row), nil
}

func (s *Store[E, T]) SoftDelete(ctx context.Context, id models.ID) (T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.rows[id]
	if !ok || row.Meta().CanDelete() != nil {
		return nil, sentinel.ErrNotFound
	}
	row.Meta().ApplyDelete(requestcontext.Now(ctx))
	return clone[E, T](row), nil
}

func (s *Store[E, T]) Restore(_ context.Context, id models.ID) (T, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.rows[id]
	if !ok {
		return nil, false, sentinel.ErrNotFound
	}
	if !row.Meta().IsDeleted() {
		return clone[E, T](row), false, nil
	}
	row.Meta().ApplyRecover()
	return clone[E, T](row), true, nil
}

// clone copies the struct and detaches the DeletedAt pointer so callers never
// share lifecycle state with the map.
func clone[E any, T models.EntityPtr[E]](src T) T {
	dst := T(new(E))
	*dst = *src
	if at := src.Meta().DeletedAt; at != nil {
		copied := *at
		dst.Meta().DeletedAt = &copied
	}
	return dst
}
