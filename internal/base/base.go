// Package base defines the "base" resource: a named entity with the standard
// soft-delete lifecycle, and its bindings to each storage engine.
package base

import (
	"database/sql"
	"fmt"
	"strings"
	"unicode/utf8"

	goredis "github.com/redis/go-redis/v9"

	"baseresource/internal/resource/models"
	"baseresource/internal/resource/service"
	"baseresource/internal/resource/store/memory"
	"baseresource/internal/resource/store/postgres"
	"baseresource/internal/resource/store/redis"
)

const (
	// Name identifies the resource in logs, metrics, events and redis keys.
	Name = "base"
	// Table is the PostgreSQL table holding base resources.
	Table = "base_resources"

	maxNameLength = 255
)

// Storage drivers understood by NewRepository.
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
)

// Resource is the base entity.
type Resource struct {
	models.Model
	Name string `json:"name"`
}

// Validate checks the domain fields.
func (r *Resource) Validate() map[string]string {
	fields := map[string]string{}
	switch name := strings.TrimSpace(r.Name); {
	case name == "":
		fields["name"] = "is required"
	case utf8.RuneCountInString(name) > maxNameLength:
		fields["name"] = fmt.Sprintf("must be at most %d characters", maxNameLength)
	}
	return fields
}

// Schema maps Resource onto the base_resources table.
func Schema() postgres.Schema[*Resource] {
	return postgres.Schema[*Resource]{
		Table:   Table,
		Columns: []string{"name"},
		Values:  func(r *Resource) []any { return []any{r.Name} },
		Targets: func(r *Resource) []any { return []any{&r.Name} },
	}
}

// Backends carries the connections a repository may be built on.
type Backends struct {
	DB    *sql.DB
	Redis *goredis.Client
}

// NewRepository builds the store selected by driver.
func NewRepository(driver string, b Backends) (service.Repository[*Resource], error) {
	switch driver {
	case "", DriverMemory:
		return memory.New[Resource](), nil
	case DriverPostgres:
		store, err := postgres.New[Resource](b.DB, Schema())
		if err != nil {
			return nil, err
		}
		return store, nil
	case DriverRedis:
		store, err := redis.New[Resource](b.Redis, Name)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", driver)
	}
}
