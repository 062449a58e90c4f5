package session_test

import (
	"context"
	"io"
	"log"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shule-app/shule/core"
	"github.com/shule-app/shule/core/account"
	"github.com/shule-app/shule/core/hook"
	"github.com/shule-app/shule/core/session"
	logsvc "github.com/shule-app/shule/services/logger"
	"github.com/shule-app/shule/storage/database/inmem"
)

func newTestHooks(t *testing.T) (*session.Hooks, *core.Config, *hook.Recorder) {
	t.Helper()
	cfg := core.NewConfig()
	recorder := hook.NewRecorder()
	events := hook.NewEmitter()
	events.Attach(recorder)
	logger := logsvc.NewConsoleLogger(log.New(io.Discard, "", 0), false)
	return session.NewHooks(cfg, logger, events), cfg, recorder
}

func TestNormalizeAdd_defaultsExpiry(t *testing.T) {
	h, cfg, recorder := newTestHooks(t)

	rec := hook.Record{"token": "tok-1", "accountId": "a1"}
	q := hook.Query{Op: hook.OpAdd, Entity: session.Entity, With: []hook.Record{rec}}
	require.NoError(t, h.NormalizeAdd(context.Background(), &q))

	createdAt, ok := rec["createdAt"].(time.Time)
	require.True(t, ok)
	expiresAt, ok := rec["expiresAt"].(time.Time)
	require.True(t, ok)
	assert.WithinDuration(t, createdAt.Add(cfg.SessionTTL), expiresAt, time.Second)
	assert.Len(t, recorder.ByKind(hook.EventFieldDefaulted), 1)
}

func TestNormalizeAdd_keepsExplicitExpiry(t *testing.T) {
	h, _, recorder := newTestHooks(t)

	expiry := time.Date(2021, 6, 1, 0, 0, 0, 0, time.UTC)
	rec := hook.Record{"token": "tok-1", "expiresAt": expiry}
	q := hook.Query{Op: hook.OpAdd, Entity: session.Entity, With: []hook.Record{rec}}
	require.NoError(t, h.NormalizeAdd(context.Background(), &q))

	assert.Equal(t, expiry, rec["expiresAt"])
	assert.Empty(t, recorder.ByKind(hook.EventFieldDefaulted))
}

func TestValidateAccounts(t *testing.T) {
	h, _, recorder := newTestHooks(t)
	ctx := context.Background()

	db, err := inmem.Open()
	require.NoError(t, err)
	store := inmem.NewStore(db)

	accs, err := store.Add(ctx, account.Entity, hook.Record{"email": "jane@example.com"})
	require.NoError(t, err)
	accountID := accs[0].Str("id")

	sessions, err := store.Add(ctx, session.Entity,
		hook.Record{"token": "tok-valid", "accountId": accountID},
		hook.Record{"token": "tok-orphan", "accountId": "gone"},
		hook.Record{"token": "tok-anon"},
	)
	require.NoError(t, err)

	valid, err := h.ValidateAccounts(ctx, store, sessions)
	require.NoError(t, err)

	// survivors keep their order; the orphan is gone
	require.Len(t, valid, 2)
	assert.Equal(t, "tok-valid", valid[0].Str("token"))
	assert.Equal(t, "tok-anon", valid[1].Str("token"))

	events := recorder.ByKind(hook.EventOrphanRemoved)
	require.Len(t, events, 1)
	assert.Equal(t, sessions[1].Str("id"), events[0].RecordID)

	// the orphan was deleted from the store, not just filtered out
	left, err := store.Get(ctx, session.Entity, hook.Selector{})
	require.NoError(t, err)
	require.Len(t, left, 2)
	for _, rec := range left {
		assert.NotEqual(t, "tok-orphan", rec.Str("token"))
	}
}
