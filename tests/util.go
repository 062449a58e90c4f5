// Package testutil provides shared helpers for exercising the pipeline
// against the in-memory store.
package testutil

import (
	"context"
	"io"
	"log"
	"testing"

	"github.com/shule-app/shule/core"
	"github.com/shule-app/shule/core/hook"
	"github.com/shule-app/shule/pipeline"
	emailsvc "github.com/shule-app/shule/services/email"
	logsvc "github.com/shule-app/shule/services/logger"
	"github.com/shule-app/shule/storage/database/inmem"
)

// QuietLogger returns a logger that discards everything.
func QuietLogger() core.Logger {
	return logsvc.NewConsoleLogger(log.New(io.Discard, "", 0), false)
}

// Pipeline builds a fully wired engine over a fresh in-memory store,
// with an event recorder attached and a synchronous mock email service.
func Pipeline(t *testing.T) (*hook.Engine, *inmem.Store, *hook.Recorder, *emailsvc.ConsoleService) {
	t.Helper()

	db, err := inmem.Open()
	if err != nil {
		t.Fatalf("Pipeline() failed: %v", err)
	}
	store := inmem.NewStore(db)

	cfg := core.NewConfig()
	logger := QuietLogger()

	recorder := hook.NewRecorder()
	events := hook.NewEmitter()
	events.Attach(recorder)

	mailSvc := emailsvc.NewConsoleServiceMock(cfg, logger)

	eng := pipeline.New(store, cfg, logger, events, mailSvc)
	return eng, store, recorder, mailSvc
}

// CreateAccount pushes a candidate account through the pipeline and
// returns the accepted record.
func CreateAccount(t *testing.T, eng *hook.Engine, rec hook.Record) hook.Record {
	t.Helper()

	accepted, err := eng.Add(context.Background(), "account", rec)
	if err != nil {
		t.Fatalf("CreateAccount() failed: %v", err)
	}
	if len(accepted) != 1 {
		t.Fatalf("CreateAccount() accepted %d records, want 1", len(accepted))
	}
	return accepted[0]
}
