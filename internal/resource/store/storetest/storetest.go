// Package storetest is the contract every resource store must satisfy.
// Store packages run it from their own tests:
//
//	suite.Run(t, &storetest.Suite[widget, *widget]{NewStore: ..., NewEntity: ...})
package storetest

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/stretchr/testify/suite"

	"baseresource/internal/resource/models"
	"baseresource/pkg/platform/sentinel"
	"baseresource/pkg/requestcontext"
)

// Store is the repository surface under test.
type Store[T any] interface {
	Create(ctx context.Context, entity T) (T, error)
	FindByID(ctx context.Context, id models.ID, includeDeleted bool) (T, error)
	FindMany(ctx context.Context, filter models.Filter, page models.PageRequest) ([]T, int, error)
	Update(ctx context.Context, id models.ID, entity T) (T, error)
	SoftDelete(ctx context.Context, id models.ID) (T, error)
	Restore(ctx context.Context, id models.ID) (T, bool, error)
}

// Suite exercises a Store. NewStore is called before every test and must
// return a store with no rows. Label reads one domain field so the suite can
// observe updates.
type Suite[E any, T models.EntityPtr[E]] struct {
	suite.Suite

	NewStore  func() Store[T]
	NewEntity func(label string) T
	Label     func(T) string

	store Store[T]
	ctx   context.Context
	now   time.Time
}

func (s *Suite[E, T]) SetupTest() {
	s.store = s.NewStore()
	s.now = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)
}

func (s *Suite[E, T]) create(label string) T {
	created, err := s.store.Create(s.ctx, s.NewEntity(label))
	s.Require().NoError(err)
	return created
}

func (s *Suite[E, T]) later(d time.Duration) context.Context {
	return requestcontext.WithTime(context.Background(), s.now.Add(d))
}

func (s *Suite[E, T]) TestCreate() {
	s.Run("assigns identity and timestamps", func() {
		first := s.create("name1")
		second := s.create("name2")

		s.True(first.Meta().ID.IsValid())
		s.Greater(second.Meta().ID, first.Meta().ID)
		s.True(first.Meta().CreatedAt.Equal(s.now))
		s.True(first.Meta().CreatedAt.Equal(first.Meta().UpdatedAt))
		s.Nil(first.Meta().DeletedAt)
		s.Equal("name1", s.Label(first))
	})

	s.Run("ignores client supplied lifecycle fields", func() {
		entity := s.NewEntity("preset")
		deletedAt := s.now.Add(-time.Hour)
		entity.Meta().ID = 999999
		entity.Meta().DeletedAt = &deletedAt

		created, err := s.store.Create(s.ctx, entity)
		s.Require().NoError(err)
		s.NotEqual(models.ID(999999), created.Meta().ID)
		s.Nil(created.Meta().DeletedAt)
	})
}

// TestVisibility covers default visibility: a soft-deleted row is invisible
// unless the caller asks for deleted rows.
func (s *Suite[E, T]) TestVisibility() {
	created := s.create("name1")
	id := created.Meta().ID

	_, err := s.store.SoftDelete(s.ctx, id)
	s.Require().NoError(err)

	_, err = s.store.FindByID(s.ctx, id, false)
	s.ErrorIs(err, sentinel.ErrNotFound)

	found, err := s.store.FindByID(s.ctx, id, true)
	s.Require().NoError(err)
	s.NotNil(found.Meta().DeletedAt)

	_, err = s.store.FindByID(s.ctx, id+1000, true)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

// TestDeleteRestoreRoundTrip checks that delete then restore yields the
// original entity with every field but deletedAt unchanged.
func (s *Suite[E, T]) TestDeleteRestoreRoundTrip() {
	created := s.create("name1")
	id := created.Meta().ID
	original, err := s.store.FindByID(s.ctx, id, false)
	s.Require().NoError(err)

	deleted, err := s.store.SoftDelete(s.later(time.Minute), id)
	s.Require().NoError(err)
	s.Require().NotNil(deleted.Meta().DeletedAt)
	s.True(deleted.Meta().DeletedAt.Equal(s.now.Add(time.Minute)))

	restored, changed, err := s.store.Restore(s.later(2*time.Minute), id)
	s.Require().NoError(err)
	s.True(changed)
	s.Nil(restored.Meta().DeletedAt)
	s.Equal(original.Meta().ID, restored.Meta().ID)
	s.True(original.Meta().CreatedAt.Equal(restored.Meta().CreatedAt))
	s.True(original.Meta().UpdatedAt.Equal(restored.Meta().UpdatedAt))
	s.Equal(s.Label(original), s.Label(restored))
}

func (s *Suite[E, T]) TestSoftDelete() {
	s.Run("second delete is not found", func() {
		id := s.create("twice").Meta().ID
		_, err := s.store.SoftDelete(s.ctx, id)
		s.Require().NoError(err)

		_, err = s.store.SoftDelete(s.ctx, id)
		s.ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("unknown id is not found", func() {
		_, err := s.store.SoftDelete(s.ctx, models.ID(424242))
		s.ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("concurrent deletes succeed exactly once", func() {
		id := s.create("race").Meta().ID
		const goroutines = 20

		var wg sync.WaitGroup
		var ok, notFound atomic.Int32
		for range goroutines {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := s.store.SoftDelete(s.ctx, id)
				switch {
				case err == nil:
					ok.Add(1)
				case errors.Is(err, sentinel.ErrNotFound):
					notFound.Add(1)
				}
			}()
		}
		wg.Wait()

		s.Equal(int32(1), ok.Load())
		s.Equal(int32(goroutines-1), notFound.Load())
	})
}

func (s *Suite[E, T]) TestRestore() {
	s.Run("active entity is returned unchanged", func() {
		created := s.create("active")
		first, changed, err := s.store.Restore(s.ctx, created.Meta().ID)
		s.Require().NoError(err)
		s.False(changed)
		second, changed, err := s.store.Restore(s.ctx, created.Meta().ID)
		s.Require().NoError(err)
		s.False(changed)

		s.Nil(first.Meta().DeletedAt)
		s.Nil(second.Meta().DeletedAt)
		s.True(first.Meta().UpdatedAt.Equal(second.Meta().UpdatedAt))
		s.Equal(s.Label(created), s.Label(second))
	})

	s.Run("unknown id is not found", func() {
		_, changed, err := s.store.Restore(s.ctx, models.ID(424242))
		s.ErrorIs(err, sentinel.ErrNotFound)
		s.False(changed)
	})

	s.Run("concurrent restores change the row exactly once", func() {
		id := s.create("race").Meta().ID
		_, err := s.store.SoftDelete(s.ctx, id)
		s.Require().NoError(err)
		const goroutines = 20

		var wg sync.WaitGroup
		var changedCount, unchanged atomic.Int32
		for range goroutines {
			wg.Add(1)
			go func() {
				defer wg.Done()
				restored, changed, err := s.store.Restore(s.ctx, id)
				if err != nil || restored.Meta().IsDeleted() {
					return
				}
				if changed {
					changedCount.Add(1)
				} else {
					unchanged.Add(1)
				}
			}()
		}
		wg.Wait()

		s.Equal(int32(1), changedCount.Load())
		s.Equal(int32(goroutines-1), unchanged.Load())
	})
}

func (s *Suite[E, T]) TestUpdate() {
	s.Run("replaces domain fields and bumps updatedAt", func() {
		created := s.create("before")
		id := created.Meta().ID

		patch := s.NewEntity("after")
		updated, err := s.store.Update(s.later(time.Hour), id, patch)
		s.Require().NoError(err)

		s.Equal(id, updated.Meta().ID)
		s.Equal("after", s.Label(updated))
		s.True(updated.Meta().CreatedAt.Equal(created.Meta().CreatedAt))
		s.True(updated.Meta().UpdatedAt.Equal(s.now.Add(time.Hour)))

		found, err := s.store.FindByID(s.ctx, id, false)
		s.Require().NoError(err)
		s.Equal("after", s.Label(found))
	})

	s.Run("deleted entity is not found", func() {
		id := s.create("gone").Meta().ID
		_, err := s.store.SoftDelete(s.ctx, id)
		s.Require().NoError(err)

		_, err = s.store.Update(s.ctx, id, s.NewEntity("ghost"))
		s.ErrorIs(err, sentinel.ErrNotFound)

		found, err := s.store.FindByID(s.ctx, id, true)
		s.Require().NoError(err)
		s.Equal("gone", s.Label(found))
	})

	s.Run("unknown id is not found", func() {
		_, err := s.store.Update(s.ctx, models.ID(424242), s.NewEntity("ghost"))
		s.ErrorIs(err, sentinel.ErrNotFound)
	})
}

// TestFindMany covers list exclusion counts, ordering and windows.
func (s *Suite[E, T]) TestFindMany() {
	var ids []models.ID
	for _, label := range []string{"a", "b", "c", "d", "e"} {
		ids = append(ids, s.create(label).Meta().ID)
	}
	_, err := s.store.SoftDelete(s.ctx, ids[1])
	s.Require().NoError(err)

	s.Run("excludes deleted rows by default", func() {
		items, total, err := s.store.FindMany(s.ctx, models.Filter{}, models.PageRequest{Limit: 100})
		s.Require().NoError(err)
		s.Equal(4, total)
		s.Len(items, 4)
		for _, item := range items {
			s.Nil(item.Meta().DeletedAt)
		}
	})

	s.Run("includes deleted rows on request", func() {
		items, total, err := s.store.FindMany(s.ctx, models.Filter{IncludeDeleted: true}, models.PageRequest{Limit: 100})
		s.Require().NoError(err)
		s.Equal(5, total)
		s.Len(items, 5)
	})

	s.Run("orders by ascending id and honours the window", func() {
		items, total, err := s.store.FindMany(s.ctx, models.Filter{}, models.PageRequest{Offset: 1, Limit: 2})
		s.Require().NoError(err)
		s.Equal(4, total)
		s.Require().Len(items, 2)
		s.Equal(ids[2], items[0].Meta().ID)
		s.Equal(ids[3], items[1].Meta().ID)
	})

	s.Run("window past the end is empty", func() {
		items, total, err := s.store.FindMany(s.ctx, models.Filter{}, models.PageRequest{Offset: 10, Limit: 2})
		s.Require().NoError(err)
		s.Equal(4, total)
		s.Empty(items)
	})
}
