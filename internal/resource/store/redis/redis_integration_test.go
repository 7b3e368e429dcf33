//go:build integration

package redis_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"baseresource/internal/base"
	"baseresource/internal/resource/models"
	"baseresource/internal/resource/store/redis"
	"baseresource/internal/resource/store/storetest"
	"baseresource/pkg/testutil/containers"
)

func newStore(t *testing.T, rc *containers.RedisContainer, name string) *redis.Store[base.Resource, *base.Resource] {
	t.Helper()
	require.NoError(t, rc.FlushAll(context.Background()))
	store, err := redis.New[base.Resource](rc.Client, name)
	require.NoError(t, err)
	return store
}

func TestRedisStoreContract(t *testing.T) {
	rc := containers.GetManager().GetRedis(t)
	suite.Run(t, &storetest.Suite[base.Resource, *base.Resource]{
		NewStore: func() storetest.Store[*base.Resource] {
			return newStore(t, rc, base.Name)
		},
		NewEntity: func(label string) *base.Resource { return &base.Resource{Name: label} },
		Label:     func(r *base.Resource) string { return r.Name },
	})
}

func TestRedisStoresAreIsolatedByName(t *testing.T) {
	rc := containers.GetManager().GetRedis(t)
	ctx := context.Background()

	first := newStore(t, rc, "first")
	second, err := redis.New[base.Resource](rc.Client, "second")
	require.NoError(t, err)

	created, err := first.Create(ctx, &base.Resource{Name: "name1"})
	require.NoError(t, err)
	assert.Equal(t, models.ID(1), created.ID)

	_, total, err := second.FindMany(ctx, models.Filter{}, models.PageRequest{})
	require.NoError(t, err)
	assert.Zero(t, total)

	other, err := second.Create(ctx, &base.Resource{Name: "name1"})
	require.NoError(t, err)
	assert.Equal(t, models.ID(1), other.ID, "each name keeps its own id sequence")
}

func TestRedisStoreLargeOffset(t *testing.T) {
	rc := containers.GetManager().GetRedis(t)
	ctx := context.Background()
	store := newStore(t, rc, base.Name)

	_, err := store.Create(ctx, &base.Resource{Name: "name1"})
	require.NoError(t, err)

	items, total, err := store.FindMany(ctx, models.Filter{}, models.PageRequest{Offset: 100000000000000, Limit: 20})
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Equal(t, 1, total)
}
