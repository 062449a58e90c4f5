// Package inmem provides an in-memory implementation of the entity
// store, used by tests and local development. It enforces the same
// uniqueness constraints a production store would.
package inmem

import (
	"sync"

	"github.com/shule-app/shule/core/hook"
)

type (
	DB struct {
		mutex  sync.RWMutex
		tables map[hook.Entity]*table
	}

	table struct {
		recs  map[string]hook.Record
		order []string
	}
)

func Open() (*DB, error) {
	return &DB{tables: make(map[hook.Entity]*table)}, nil
}

// table returns the entity's table, creating it lazily.
// Callers must hold the write lock when it may create.
func (db *DB) table(entity hook.Entity) *table {
	t, ok := db.tables[entity]
	if !ok {
		t = &table{recs: make(map[string]hook.Record)}
		db.tables[entity] = t
	}
	return t
}
