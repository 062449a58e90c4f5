// Package waitlist exposes read-only access to waitlist entries. The
// external session-issuing service consults them before minting a
// one-time code; nothing in this subsystem ever writes one.
package waitlist

import (
	"context"

	"github.com/pkg/errors"

	"github.com/shule-app/shule/core"
	"github.com/shule-app/shule/core/hook"
)

const Entity = hook.Entity("waitlist")

var ErrNotFound = errors.New("waitlist entry not found")

// Entry is a typed view over a waitlist record.
type Entry struct {
	Email      string `json:"email"`
	Name       string `json:"name"`
	UserType   string `json:"user_type"`
	IsApproved bool   `json:"is_approved"`
}

type Service struct {
	store hook.Store
}

func NewService(store hook.Store) *Service {
	return &Service{store: store}
}

// Find returns the waitlist entry for an email, or ErrNotFound.
func (svc *Service) Find(ctx context.Context, email string) (Entry, error) {
	email = core.CleanString(email, true /* lower */)
	recs, err := svc.store.Get(ctx, Entity, hook.Selector{"email": email})
	if err != nil {
		return Entry{}, errors.Wrap(err, "looking up waitlist entry")
	}
	if len(recs) == 0 {
		return Entry{}, ErrNotFound
	}

	rec := recs[0]
	entry := Entry{
		Email:    rec.Str("email"),
		Name:     rec.Str("name"),
		UserType: rec.Str("userType"),
	}
	entry.IsApproved, _ = rec.Bool("isApproved")
	return entry, nil
}

// Approved reports whether an email is on the waitlist and approved.
// An unknown email is simply not approved, not an error.
func (svc *Service) Approved(ctx context.Context, email string) (bool, error) {
	entry, err := svc.Find(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return entry.IsApproved, nil
}
