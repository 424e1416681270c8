package store

import (
	"errors"
	"fmt"

	"github.com/jacentio/tessera/schema"
)

var (
	// ErrNotFound is returned when no row exists at the requested key.
	ErrNotFound = errors.New("tessera: row not found")

	// ErrArityMismatch is returned when InsertFull receives a value count
	// different from the configured field count.
	ErrArityMismatch = errors.New("tessera: value count does not match field count")

	// ErrUnsupported is returned for lookups the configuration does not
	// provide a table for, such as a by-field lookup on a Storaged field.
	ErrUnsupported = errors.New("tessera: unsupported operation")

	// ErrTypeMismatch is returned when a value is null or its kind does not
	// match the field's type.
	ErrTypeMismatch = errors.New("tessera: value type does not match field")

	// ErrDuplicateField is returned when a partial write names a field twice.
	ErrDuplicateField = errors.New("tessera: field listed more than once")

	// ErrUnknownField is returned when a field name is not configured.
	// It wraps schema.ErrInvalidConfig.
	ErrUnknownField = fmt.Errorf("%w: unknown field", schema.ErrInvalidConfig)

	// ErrUnknownRelation is returned when a relation name is not configured.
	// It wraps schema.ErrInvalidConfig.
	ErrUnknownRelation = fmt.Errorf("%w: unknown relation", schema.ErrInvalidConfig)

	// ErrPlanTooLarge is returned when a write can produce more statements
	// than one batch may hold. New returns it for entities whose worst-case
	// write does not fit. It wraps schema.ErrInvalidConfig.
	ErrPlanTooLarge = fmt.Errorf("%w: write plan exceeds batch limit", schema.ErrInvalidConfig)
)

// StoreError wraps a failure reported by the Session.
type StoreError struct {
	// Op is the store operation that failed (e.g. "insert", "first_by_id").
	Op string

	// Consistency is the level the operation was attempted at.
	Consistency Consistency

	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("tessera: %s at %s: %v", e.Op, e.Consistency, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

func storeErr(op string, c Consistency, err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{Op: op, Consistency: c, Err: err}
}
