package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"baseresource/internal/resource/models"
)

type gadget struct {
	models.Model
	Name string
}

func gadgetSchema() Schema[*gadget] {
	return Schema[*gadget]{
		Table:   "gadgets",
		Columns: []string{"name"},
		Values:  func(g *gadget) []any { return []any{g.Name} },
		Targets: func(g *gadget) []any { return []any{&g.Name} },
	}
}

func TestSchemaValidate(t *testing.T) {
	require.NoError(t, gadgetSchema().validate())

	noTable := gadgetSchema()
	noTable.Table = ""
	assert.ErrorContains(t, noTable.validate(), "table is required")

	noColumns := gadgetSchema()
	noColumns.Columns = nil
	assert.ErrorContains(t, noColumns.validate(), "columns, values and targets")

	noTargets := gadgetSchema()
	noTargets.Targets = nil
	assert.Error(t, noTargets.validate())
}

func TestBuildQueries(t *testing.T) {
	q := buildQueries(gadgetSchema())
	returning := `id, created_at, updated_at, deleted_at, "name"`

	assert.Equal(t,
		`INSERT INTO "gadgets" (created_at, updated_at, "name") VALUES ($1, $2, $3) RETURNING `+returning,
		q.insert)
	assert.Equal(t, `SELECT `+returning+` FROM "gadgets" WHERE id = $1`, q.selectByID)
	assert.Equal(t,
		`SELECT `+returning+` FROM "gadgets" WHERE ($1 OR deleted_at IS NULL) ORDER BY id ASC LIMIT $2 OFFSET $3`,
		q.selectPage)
	assert.Equal(t, `SELECT COUNT(*) FROM "gadgets" WHERE ($1 OR deleted_at IS NULL)`, q.count)

	t.Run("lifecycle writes are conditional on the active state", func(t *testing.T) {
		assert.Contains(t, q.update, `WHERE id = $1 AND deleted_at IS NULL`)
		assert.Contains(t, q.update, `"name" = $3`)
		assert.Contains(t, q.softDelete, `SET deleted_at = $2 WHERE id = $1 AND deleted_at IS NULL`)
		assert.Contains(t, q.restore, `SET deleted_at = NULL WHERE id = $1 AND deleted_at IS NOT NULL`)
		assert.NotContains(t, q.softDelete, "updated_at =")
		assert.NotContains(t, q.restore, "updated_at =")
	})

	t.Run("identifiers are quoted", func(t *testing.T) {
		s := gadgetSchema()
		s.Table = `odd"table`
		assert.Contains(t, buildQueries(s).count, `"odd""table"`)
	})
}

func TestNewRequiresDB(t *testing.T) {
	_, err := New[gadget](nil, gadgetSchema())
	assert.Error(t, err)
}
