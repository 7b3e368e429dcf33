package postgres

import (
	"fmt"
	"strings"

	"github.com/lib/pq"
)

// Schema binds a resource type to its table. The lifecycle columns id,
// created_at, updated_at and deleted_at are implied; Columns lists the domain
// columns in the order Values and Targets produce them.
type Schema[T any] struct {
	Table   string
	Columns []string
	// Values returns the domain column values of an entity.
	Values func(T) []any
	// Targets returns scan destinations for the domain columns of an entity.
	Targets func(T) []any
}

func (s Schema[T]) validate() error {
	if s.Table == "" {
		return fmt.Errorf("postgres schema: table is required")
	}
	if len(s.Columns) == 0 || s.Values == nil || s.Targets == nil {
		return fmt.Errorf("postgres schema %s: columns, values and targets are required", s.Table)
	}
	return nil
}

// queries holds the statements derived from a Schema once at construction.
type queries struct {
	insert     string
	selectByID string
	selectPage string
	count      string
	update     string
	softDelete string
	restore    string
}

func buildQueries[T any](s Schema[T]) queries {
	table := pq.QuoteIdentifier(s.Table)

	domain := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		domain[i] = pq.QuoteIdentifier(c)
	}
	returning := "id, created_at, updated_at, deleted_at, " + strings.Join(domain, ", ")

	insertCols := append([]string{"created_at", "updated_at"}, domain...)
	insertArgs := placeholders(1, len(insertCols))

	sets := make([]string, len(domain))
	for i, c := range domain {
		sets[i] = fmt.Sprintf("%s = $%d", c, i+3)
	}

	return queries{
		insert: fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s) RETURNING %s`,
			table, strings.Join(insertCols, ", "), insertArgs, returning),
		selectByID: fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, returning, table),
		selectPage: fmt.Sprintf(`SELECT %s FROM %s WHERE ($1 OR deleted_at IS NULL) ORDER BY id ASC LIMIT $2 OFFSET $3`,
			returning, table),
		count: fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE ($1 OR deleted_at IS NULL)`, table),
		update: fmt.Sprintf(`UPDATE %s SET updated_at = $2, %s WHERE id = $1 AND deleted_at IS NULL RETURNING %s`,
			table, strings.Join(sets, ", "), returning),
		softDelete: fmt.Sprintf(`UPDATE %s SET deleted_at = $2 WHERE id = $1 AND deleted_at IS NULL RETURNING %s`,
			table, returning),
		restore: fmt.Sprintf(`UPDATE %s SET deleted_at = NULL WHERE id = $1 AND deleted_at IS NOT NULL RETURNING %s`,
			table, returning),
	}
}

func placeholders(from, n int) string {
	ps := make([]string, n)
	for i := range ps {
		ps[i] = fmt.Sprintf("$%d", from+i)
	}
	return strings.Join(ps, ", ")
}
