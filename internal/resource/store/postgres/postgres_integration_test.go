//go:build integration

package postgres_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"baseresource/internal/base"
	"baseresource/internal/platform/database"
	"baseresource/internal/resource/models"
	"baseresource/internal/resource/store/postgres"
	"baseresource/internal/resource/store/storetest"
	"baseresource/pkg/platform/sentinel"
	"baseresource/pkg/testutil/containers"
)

func setup(t *testing.T) *containers.PostgresContainer {
	t.Helper()
	pg := containers.GetManager().GetPostgres(t)
	_, err := database.MigrateUp(context.Background(), pg.DB)
	require.NoError(t, err)
	return pg
}

func newStore(t *testing.T, pg *containers.PostgresContainer) *postgres.Store[base.Resource, *base.Resource] {
	t.Helper()
	require.NoError(t, pg.TruncateTables(context.Background(), base.Table))
	store, err := postgres.New[base.Resource](pg.DB, base.Schema())
	require.NoError(t, err)
	return store
}

func TestPostgresStoreContract(t *testing.T) {
	pg := setup(t)
	suite.Run(t, &storetest.Suite[base.Resource, *base.Resource]{
		NewStore: func() storetest.Store[*base.Resource] {
			return newStore(t, pg)
		},
		NewEntity: func(label string) *base.Resource { return &base.Resource{Name: label} },
		Label:     func(r *base.Resource) string { return r.Name },
	})
}

func TestPostgresStoreTransactions(t *testing.T) {
	pg := setup(t)
	ctx := context.Background()

	t.Run("rollback discards every write", func(t *testing.T) {
		store := newStore(t, pg)
		boom := errors.New("boom")

		err := database.RunInTx(ctx, pg.DB, func(ctx context.Context) error {
			created, err := store.Create(ctx, &base.Resource{Name: "name1"})
			require.NoError(t, err)
			_, err = store.SoftDelete(ctx, created.ID)
			require.NoError(t, err)

			items, total, err := store.FindMany(ctx, models.Filter{IncludeDeleted: true}, models.PageRequest{})
			require.NoError(t, err)
			assert.Len(t, items, 1)
			assert.Equal(t, 1, total)
			return boom
		})
		require.ErrorIs(t, err, boom)

		_, total, err := store.FindMany(ctx, models.Filter{IncludeDeleted: true}, models.PageRequest{})
		require.NoError(t, err)
		assert.Zero(t, total)
	})

	t.Run("commit keeps every write", func(t *testing.T) {
		store := newStore(t, pg)
		err := database.RunInTx(ctx, pg.DB, func(ctx context.Context) error {
			for _, name := range []string{"name1", "name2"} {
				if _, err := store.Create(ctx, &base.Resource{Name: name}); err != nil {
					return err
				}
			}
			return nil
		})
		require.NoError(t, err)

		items, total, err := store.FindMany(ctx, models.Filter{}, models.PageRequest{})
		require.NoError(t, err)
		assert.Equal(t, 2, total)
		assert.Equal(t, "name1", items[0].Name)
	})
}

func TestPostgresStoreConstraints(t *testing.T) {
	pg := setup(t)
	store := newStore(t, pg)

	_, err := store.Create(context.Background(), &base.Resource{Name: ""})
	assert.ErrorIs(t, err, sentinel.ErrInvalidInput, "empty names violate the check constraint")
}
