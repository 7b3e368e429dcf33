// Package models defines the contract every stored resource satisfies and the
// value types (identifiers, filters, pages) shared by stores, services and handlers.
package models

import (
	"strconv"
	"strings"
	"time"

	dErrors "baseresource/pkg/domain-errors"
)

// ID identifies a resource. Storage assigns it on create; it never changes and
// is never reused.
type ID int64

func (id ID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

// IsValid reports whether id could have been assigned by storage.
func (id ID) IsValid() bool {
	return id > 0
}

// ParseID parses a path segment into an ID. Only the canonical spelling is
// accepted: ASCII digits, no sign, no leading zero, no surrounding space.
// Anything else is rejected with CodeInvalidInput.
func ParseID(s string) (ID, error) {
	if s == "" {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "id is required")
	}
	if s[0] == '0' || strings.IndexFunc(s, notDigit) >= 0 {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "id must be a positive integer")
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "id must be a positive integer")
	}
	id := ID(n)
	if !id.IsValid() {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "id must be a positive integer")
	}
	return id, nil
}

func notDigit(r rune) bool {
	return r < '0' || r > '9'
}

// Model carries the identity and audit fields every resource embeds.
//
// Invariants:
//   - ID is assigned by storage on create and immutable afterwards
//   - CreatedAt is set once; UpdatedAt moves on create and update only
//   - DeletedAt is the sole lifecycle discriminator: nil means active
//   - DeletedAt only moves nil -> timestamp (delete) or timestamp -> nil (recover)
type Model struct {
	ID        ID         `json:"id"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
	DeletedAt *time.Time `json:"deletedAt"`
}

// Meta exposes the embedded Model so generic code can reach lifecycle fields
// of any type that embeds it.
func (m *Model) Meta() *Model {
	return m
}

// State derives the lifecycle state from DeletedAt.
func (m *Model) State() State {
	if m.DeletedAt != nil {
		return StateDeleted
	}
	return StateActive
}

// IsDeleted reports whether the resource is soft-deleted.
func (m *Model) IsDeleted() bool {
	return m.DeletedAt != nil
}

// Entity is satisfied by pointers to structs embedding Model.
type Entity interface {
	Meta() *Model
}

// EntityPtr lets generic stores allocate and copy entities: E is the struct,
// T is *E. Callers name only E; T is inferred.
type EntityPtr[E any] interface {
	*E
	Entity
}

// Validator is implemented by resources that check their own domain fields.
// Validate returns field name -> problem; an empty map means valid.
type Validator interface {
	Validate() map[string]string
}
