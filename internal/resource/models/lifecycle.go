package models

import (
	"time"

	dErrors "baseresource/pkg/domain-errors"
)

// State is the lifecycle state of a resource as seen through the service.
type State string

const (
	StateActive  State = "active"
	StateDeleted State = "deleted"
)

// Transition names a lifecycle action.
type Transition string

const (
	TransitionDelete  Transition = "delete"
	TransitionRecover Transition = "recover"
)

// Next returns the state reached by applying t in s.
//
//	active  --delete-->  deleted
//	deleted --recover--> active
//	active  --recover--> active   (idempotent)
//	deleted --delete-->  not found (the row is invisible to delete)
func (s State) Next(t Transition) (State, error) {
	switch t {
	case TransitionDelete:
		if s == StateActive {
			return StateDeleted, nil
		}
		return s, dErrors.New(dErrors.CodeNotFound, "resource not found")
	case TransitionRecover:
		return StateActive, nil
	default:
		return s, dErrors.New(dErrors.CodeInvariantViolation, "unknown transition "+string(t))
	}
}

// CanDelete checks the delete transition for m.
func (m *Model) CanDelete() error {
	_, err := m.State().Next(TransitionDelete)
	return err
}

// ApplyDelete marks m deleted at now. Call CanDelete first.
func (m *Model) ApplyDelete(now time.Time) {
	at := now.UTC()
	m.DeletedAt = &at
}

// ApplyRecover clears the deletion marker. Recovering an active model is a no-op.
func (m *Model) ApplyRecover() {
	m.DeletedAt = nil
}

// Stamp assigns identity and creation timestamps to a freshly stored model.
func (m *Model) Stamp(id ID, now time.Time) {
	now = now.UTC()
	m.ID = id
	m.CreatedAt = now
	m.UpdatedAt = now
	m.DeletedAt = nil
}
