package base

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"baseresource/internal/resource/store/memory"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		input string
		field string
	}{
		{"valid", "name1", ""},
		{"empty", "", "is required"},
		{"blank", "   ", "is required"},
		{"too long", strings.Repeat("x", maxNameLength+1), "must be at most 255 characters"},
		{"multibyte at limit", strings.Repeat("é", maxNameLength), ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fields := (&Resource{Name: tt.input}).Validate()
			assert.Equal(t, tt.field, fields["name"])
		})
	}
}

func TestSchemaBindsName(t *testing.T) {
	schema := Schema()
	r := &Resource{Name: "name1"}

	assert.Equal(t, Table, schema.Table)
	assert.Equal(t, []any{"name1"}, schema.Values(r))

	targets := schema.Targets(r)
	require.Len(t, targets, 1)
	*(targets[0].(*string)) = "changed"
	assert.Equal(t, "changed", r.Name)
}

func TestNewRepository(t *testing.T) {
	repo, err := NewRepository(DriverMemory, Backends{})
	require.NoError(t, err)
	assert.IsType(t, &memory.Store[Resource, *Resource]{}, repo)

	_, err = NewRepository(DriverPostgres, Backends{})
	assert.Error(t, err, "postgres without a db")

	_, err = NewRepository(DriverRedis, Backends{})
	assert.Error(t, err, "redis without a client")

	_, err = NewRepository("cassandra", Backends{})
	assert.Error(t, err)
}
