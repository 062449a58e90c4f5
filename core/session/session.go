// Package session holds the lifecycle hooks of the session entity.
// Sessions are minted and destroyed by the external auth service; the
// pipeline only defaults their expiry on the way in and garbage-collects
// orphans on the way out.
package session

import (
	"context"
	"fmt"
	"time"

	"github.com/shule-app/shule/core"
	"github.com/shule-app/shule/core/account"
	"github.com/shule-app/shule/core/hook"
)

const Entity = hook.Entity("session")

var nowFunc = time.Now

// Fields is the authoritative set of fields a session may carry.
var Fields = []string{
	"token", "accountId", "expiresAt", "ipAddress", "userAgent",
	"createdAt", "updatedAt",
}

type Hooks struct {
	cfg    *core.Config
	log    core.Logger
	events *hook.Emitter
}

func NewHooks(cfg *core.Config, log core.Logger, events *hook.Emitter) *Hooks {
	return &Hooks{cfg: cfg, log: log, events: events}
}

// NormalizeAdd stamps timestamps and defaults the expiry.
func (h *Hooks) NormalizeAdd(_ context.Context, q *hook.Query) error {
	for _, rec := range q.With {
		now := nowFunc().UTC()
		rec["createdAt"] = now
		rec["updatedAt"] = now
		if !rec.Has("expiresAt") {
			rec["expiresAt"] = now.Add(h.cfg.SessionTTL)
			h.events.Emit(hook.Event{Kind: hook.EventFieldDefaulted, Entity: Entity, Field: "expiresAt"})
		}
	}
	return nil
}

func (h *Hooks) NormalizeSet(_ context.Context, q *hook.Query) error {
	if q.To != nil {
		q.To["updatedAt"] = nowFunc().UTC()
	}
	return nil
}

// ValidateAccounts is the referential integrity guard on the read path.
// Every fetched session's account reference is resolved independently;
// a session whose account is gone, or cannot be resolved at all, is
// deleted and excluded from the result. Survivors keep their order.
// A session pointing at a non-existent identity must never be treated
// as valid, so resolution errors fall toward deletion.
func (h *Hooks) ValidateAccounts(ctx context.Context, store hook.Store, recs []hook.Record) ([]hook.Record, error) {
	valid := make([]hook.Record, 0, len(recs))
	for _, rec := range recs {
		accountID := rec.Str("accountId")
		if accountID == "" {
			valid = append(valid, rec)
			continue
		}

		accs, err := store.Get(ctx, account.Entity, hook.ByID(accountID))
		if err == nil && len(accs) > 0 {
			valid = append(valid, rec)
			continue
		}

		reason := "account no longer exists"
		if err != nil {
			h.log.Error(fmt.Sprintf("session guard: resolving account %s: %v", accountID, err))
			reason = "account could not be resolved"
		}
		h.removeOrphan(ctx, store, rec, accountID, reason)
	}
	return valid, nil
}

func (h *Hooks) removeOrphan(ctx context.Context, store hook.Store, rec hook.Record, accountID, reason string) {
	id := rec.Str("id")
	// deleting an already-deleted session is a no-op, so concurrent
	// readers may race here freely
	if _, err := store.Remove(ctx, Entity, hook.ByID(id)); err != nil {
		h.log.Error(fmt.Sprintf("session guard: removing orphaned session %s: %v", id, err))
	}
	h.log.Warn(fmt.Sprintf("removed orphaned session %s for missing account %s", id, accountID))
	h.events.Emit(hook.Event{
		Kind:     hook.EventOrphanRemoved,
		Entity:   Entity,
		Field:    "accountId",
		RecordID: id,
		Reason:   reason,
	})
}
