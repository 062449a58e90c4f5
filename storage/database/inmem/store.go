package inmem

import (
	"context"
	"reflect"

	"github.com/google/uuid"

	"github.com/shule-app/shule/core/hook"
	"github.com/shule-app/shule/storage/database"
)

// Store implements hook.Store over an in-memory DB. Records are cloned
// on the way in and out so callers never alias table state.
type Store struct {
	db     *DB
	unique map[hook.Entity][]string
}

var _ hook.Store = (*Store)(nil)

func NewStore(db *DB) *Store {
	return &Store{db: db, unique: database.UniqueFields}
}

func (s *Store) Add(_ context.Context, entity hook.Entity, with ...hook.Record) ([]hook.Record, error) {
	s.db.mutex.Lock()
	defer s.db.mutex.Unlock()

	t := s.db.table(entity)
	accepted := make([]hook.Record, 0, len(with))
	for _, rec := range with {
		rec = rec.Clone()
		if err := s.checkUnique(entity, t, rec, ""); err != nil {
			return nil, err
		}
		id := rec.Str("id")
		if id == "" {
			id = uuid.New().String()
			rec["id"] = id
		} else if _, exists := t.recs[id]; exists {
			return nil, &hook.UniqueError{Entity: entity, Field: "id"}
		}
		t.recs[id] = rec
		t.order = append(t.order, id)
		accepted = append(accepted, rec.Clone())
	}
	return accepted, nil
}

func (s *Store) Set(_ context.Context, entity hook.Entity, sel hook.Selector, to hook.Record) ([]hook.Record, error) {
	s.db.mutex.Lock()
	defer s.db.mutex.Unlock()

	t := s.db.table(entity)
	updated := make([]hook.Record, 0, 1)
	for _, id := range t.order {
		rec := t.recs[id]
		if !matches(rec, sel) {
			continue
		}
		merged := rec.Clone()
		for k, v := range to {
			merged[k] = v
		}
		if err := s.checkUnique(entity, t, merged, id); err != nil {
			return nil, err
		}
		t.recs[id] = merged
		updated = append(updated, merged.Clone())
	}
	return updated, nil
}

func (s *Store) Remove(_ context.Context, entity hook.Entity, sel hook.Selector) ([]hook.Record, error) {
	s.db.mutex.Lock()
	defer s.db.mutex.Unlock()

	t := s.db.table(entity)
	removed := make([]hook.Record, 0, 1)
	order := t.order[:0]
	for _, id := range t.order {
		rec := t.recs[id]
		if matches(rec, sel) {
			removed = append(removed, rec)
			delete(t.recs, id)
			continue
		}
		order = append(order, id)
	}
	t.order = order
	return removed, nil
}

func (s *Store) Get(_ context.Context, entity hook.Entity, sel hook.Selector) ([]hook.Record, error) {
	s.db.mutex.RLock()
	defer s.db.mutex.RUnlock()

	t, ok := s.db.tables[entity]
	if !ok {
		return nil, nil
	}
	res := make([]hook.Record, 0, len(t.order))
	for _, id := range t.order {
		if rec := t.recs[id]; matches(rec, sel) {
			res = append(res, rec.Clone())
		}
	}
	return res, nil
}

// checkUnique enforces the entity's uniqueness constraints against
// every stored record except selfID. Absent and empty values never
// conflict.
func (s *Store) checkUnique(entity hook.Entity, t *table, rec hook.Record, selfID string) error {
	for _, field := range s.unique[entity] {
		val, ok := rec[field]
		if !ok || val == nil || val == "" {
			continue
		}
		for id, other := range t.recs {
			if id == selfID {
				continue
			}
			if reflect.DeepEqual(other[field], val) {
				return &hook.UniqueError{Entity: entity, Field: field}
			}
		}
	}
	return nil
}

func matches(rec hook.Record, sel hook.Selector) bool {
	for k, want := range sel {
		if !reflect.DeepEqual(rec[k], want) {
			return false
		}
	}
	return true
}
