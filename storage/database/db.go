// Package database declares the storage-level shape of the entity set:
// table names and the uniqueness constraints every store implementation
// must enforce. The cascade scheduler's idempotency and the session
// token guarantees rest on these constraints.
package database

import (
	"sort"

	"github.com/shule-app/shule/core/account"
	"github.com/shule-app/shule/core/educontext"
	"github.com/shule-app/shule/core/gradelevel"
	"github.com/shule-app/shule/core/hook"
	"github.com/shule-app/shule/core/profile"
	"github.com/shule-app/shule/core/session"
	"github.com/shule-app/shule/core/waitlist"
)

// Tables maps every entity to its table name.
var Tables = map[hook.Entity]string{
	account.Entity:      "accounts",
	session.Entity:      "sessions",
	profile.Student:     "students",
	profile.Teacher:     "teachers",
	profile.SchoolAdmin: "school_admins",
	gradelevel.Entity:   "grade_levels",
	educontext.Entity:   "educational_contexts",
	waitlist.Entity:     "waitlist",
}

// UniqueFields lists the per-entity fields that must be unique across
// records. Absent or empty values never conflict, the way SQL treats
// NULLs in a unique index.
var UniqueFields = map[hook.Entity][]string{
	account.Entity:      {"email", "username", "slug"},
	session.Entity:      {"token"},
	profile.Student:     {"accountId"},
	profile.Teacher:     {"accountId"},
	profile.SchoolAdmin: {"accountId"},
	waitlist.Entity:     {"email"},
}

// Entities returns every entity known to the storage layer, sorted so
// schema generation is deterministic.
func Entities() []hook.Entity {
	entities := make([]hook.Entity, 0, len(Tables))
	for e := range Tables {
		entities = append(entities, e)
	}
	sort.Slice(entities, func(i, j int) bool { return entities[i] < entities[j] })
	return entities
}
