package sqlxstore

import (
	"context"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/shule-app/shule/storage/database"
)

// Schema returns the DDL this store expects: one document table per
// entity plus a unique expression index per declared constraint. The
// indexes are built over NULLIF(doc->>field, '') so absent and empty
// values never conflict, matching the in-memory store. Index names
// follow <table>_<field>_key, which translateError maps back to the
// violated field.
func Schema() string {
	var b strings.Builder
	for _, entity := range database.Entities() {
		table := database.Tables[entity]
		fmt.Fprintf(&b,
			"CREATE TABLE IF NOT EXISTS %s (\n\tid TEXT PRIMARY KEY,\n\tseq BIGSERIAL,\n\tdoc JSONB NOT NULL\n);\n",
			pq.QuoteIdentifier(table),
		)
		for _, field := range database.UniqueFields[entity] {
			fmt.Fprintf(&b,
				"CREATE UNIQUE INDEX IF NOT EXISTS %s ON %s ((NULLIF(doc->>%s, '')));\n",
				pq.QuoteIdentifier(fmt.Sprintf("%s_%s_key", table, field)),
				pq.QuoteIdentifier(table),
				pq.QuoteLiteral(field),
			)
		}
	}
	return b.String()
}

// EnsureSchema applies the expected DDL; every statement is idempotent.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, Schema())
	return errors.Wrap(err, "applying schema")
}
