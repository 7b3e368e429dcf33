package memory_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"baseresource/internal/resource/models"
	"baseresource/internal/resource/store/memory"
	"baseresource/internal/resource/store/storetest"
)

type widget struct {
	models.Model
	Name string `json:"name"`
}

func TestMemoryStoreContract(t *testing.T) {
	suite.Run(t, &storetest.Suite[widget, *widget]{
		NewStore: func() storetest.Store[*widget] {
			return memory.New[widget]()
		},
		NewEntity: func(label string) *widget { return &widget{Name: label} },
		Label:     func(w *widget) string { return w.Name },
	})
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := memory.New[widget]()

	created, err := store.Create(ctx, &widget{Name: "original"})
	require.NoError(t, err)

	created.Name = "mutated"
	deleted, err := store.SoftDelete(ctx, created.ID)
	require.NoError(t, err)
	*deleted.DeletedAt = deleted.DeletedAt.AddDate(-1, 0, 0)

	found, err := store.FindByID(ctx, created.ID, true)
	require.NoError(t, err)
	assert.Equal(t, "original", found.Name)
	assert.NotEqual(t, *deleted.DeletedAt, *found.DeletedAt)

	_, total, err := store.FindMany(ctx, models.Filter{IncludeDeleted: true}, models.PageRequest{})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
}
