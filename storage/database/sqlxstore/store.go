// Package sqlxstore implements the entity store on PostgreSQL. Every
// entity maps to a table holding one JSONB document per record:
//
//	id  TEXT PRIMARY KEY, seq BIGSERIAL, doc JSONB NOT NULL
//
// with unique expression indexes named <table>_<field>_key for each
// constraint declared in the database package. Timestamps round-trip
// through JSON, so fetched records carry them as RFC 3339 strings.
package sqlxstore

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/shule-app/shule/core/hook"
	"github.com/shule-app/shule/storage/database"
)

type Store struct {
	db *sqlx.DB
}

var _ hook.Store = (*Store)(nil)

func Open(databaseURL string) (*Store, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, errors.Wrap(err, "connecting to database")
	}
	return &Store{db: db}, nil
}

func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) Add(ctx context.Context, entity hook.Entity, with ...hook.Record) ([]hook.Record, error) {
	table, err := tableFor(entity)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "beginning transaction")
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	query := fmt.Sprintf(`INSERT INTO %s (id, doc) VALUES ($1, $2::jsonb)`, pq.QuoteIdentifier(table))
	accepted := make([]hook.Record, 0, len(with))
	for _, rec := range with {
		rec = rec.Clone()
		if rec.Str("id") == "" {
			rec["id"] = newID()
		}
		doc, err := json.Marshal(rec)
		if err != nil {
			return nil, errors.Wrapf(err, "encoding %s record", entity)
		}
		if _, err = tx.ExecContext(ctx, query, rec.Str("id"), doc); err != nil {
			return nil, translateError(entity, table, err)
		}
		accepted = append(accepted, rec)
	}
	if err = tx.Commit(); err != nil {
		return nil, translateError(entity, table, err)
	}
	return accepted, nil
}

func (s *Store) Set(ctx context.Context, entity hook.Entity, sel hook.Selector, to hook.Record) ([]hook.Record, error) {
	table, err := tableFor(entity)
	if err != nil {
		return nil, err
	}
	match, err := json.Marshal(sel)
	if err != nil {
		return nil, errors.Wrap(err, "encoding selector")
	}
	patch, err := json.Marshal(to)
	if err != nil {
		return nil, errors.Wrapf(err, "encoding %s update", entity)
	}

	query := fmt.Sprintf(
		`UPDATE %s SET doc = doc || $2::jsonb WHERE doc @> $1::jsonb RETURNING doc`,
		pq.QuoteIdentifier(table),
	)
	rows, err := s.db.QueryxContext(ctx, query, match, patch)
	if err != nil {
		return nil, translateError(entity, table, err)
	}
	return scanDocs(entity, rows)
}

func (s *Store) Remove(ctx context.Context, entity hook.Entity, sel hook.Selector) ([]hook.Record, error) {
	table, err := tableFor(entity)
	if err != nil {
		return nil, err
	}
	match, err := json.Marshal(sel)
	if err != nil {
		return nil, errors.Wrap(err, "encoding selector")
	}

	query := fmt.Sprintf(`DELETE FROM %s WHERE doc @> $1::jsonb RETURNING doc`, pq.QuoteIdentifier(table))
	rows, err := s.db.QueryxContext(ctx, query, match)
	if err != nil {
		return nil, translateError(entity, table, err)
	}
	return scanDocs(entity, rows)
}

func (s *Store) Get(ctx context.Context, entity hook.Entity, sel hook.Selector) ([]hook.Record, error) {
	table, err := tableFor(entity)
	if err != nil {
		return nil, err
	}
	match, err := json.Marshal(sel)
	if err != nil {
		return nil, errors.Wrap(err, "encoding selector")
	}

	query := fmt.Sprintf(`SELECT doc FROM %s WHERE doc @> $1::jsonb ORDER BY seq`, pq.QuoteIdentifier(table))
	rows, err := s.db.QueryxContext(ctx, query, match)
	if err != nil {
		return nil, translateError(entity, table, err)
	}
	return scanDocs(entity, rows)
}

func newID() string { return uuid.New().String() }

func tableFor(entity hook.Entity) (string, error) {
	table, ok := database.Tables[entity]
	if !ok {
		return "", errors.Errorf("unknown entity %q", entity)
	}
	return table, nil
}

func scanDocs(entity hook.Entity, rows *sqlx.Rows) ([]hook.Record, error) {
	defer rows.Close()

	var res []hook.Record
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, errors.Wrapf(err, "scanning %s record", entity)
		}
		var rec hook.Record
		if err := json.Unmarshal(doc, &rec); err != nil {
			return nil, errors.Wrapf(err, "decoding %s record", entity)
		}
		res = append(res, rec)
	}
	return res, errors.Wrap(rows.Err(), "iterating rows")
}

// translateError maps a pq unique-constraint violation to the typed
// error the pipeline classifies cascades by; anything else is wrapped
// untouched.
func translateError(entity hook.Entity, table string, err error) error {
	if pqErr, ok := errors.Cause(err).(*pq.Error); ok && pqErr.Code == "23505" {
		field := strings.TrimPrefix(pqErr.Constraint, table+"_")
		field = strings.TrimSuffix(field, "_key")
		if pqErr.Constraint == table+"_pkey" {
			field = "id"
		}
		return &hook.UniqueError{Entity: entity, Field: field}
	}
	return errors.Wrapf(err, "%s query", entity)
}
