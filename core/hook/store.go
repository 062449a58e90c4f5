package hook

import (
	"context"
	"errors"
	"fmt"
)

// Store is the external entity store the pipeline wraps. It executes the
// four CRUD operations against durable storage and enforces uniqueness
// and link constraints; the pipeline never reimplements those.
type Store interface {
	// Add persists the given records, assigning an identifier to each,
	// and returns them as accepted.
	Add(ctx context.Context, entity Entity, with ...Record) ([]Record, error)
	// Set applies the partial payload `to` to every record matching sel
	// and returns the updated records.
	Set(ctx context.Context, entity Entity, sel Selector, to Record) ([]Record, error)
	// Remove deletes every record matching sel and returns them.
	// Removing nothing is not an error.
	Remove(ctx context.Context, entity Entity, sel Selector) ([]Record, error)
	// Get returns every record matching sel in insertion order.
	Get(ctx context.Context, entity Entity, sel Selector) ([]Record, error)
}

// ErrNotFound is returned by stores when a required record does not exist.
var ErrNotFound = errors.New("record not found")

// UniqueError reports a store-level uniqueness constraint violation.
type UniqueError struct {
	Entity Entity
	Field  string
}

func (e *UniqueError) Error() string {
	return fmt.Sprintf("%s: a record with this %s already exists", e.Entity, e.Field)
}

// IsUniqueViolation reports whether err is (or wraps) a uniqueness
// constraint violation. The cascade scheduler's idempotency rests on
// this classification: a duplicate cascade attempt is harmless.
func IsUniqueViolation(err error) bool {
	var ue *UniqueError
	return errors.As(err, &ue)
}
