package hook

// Entity identifies a record type known to the pipeline ("account", "session", ...).
type Entity string

// Op is one of the four operations the underlying store executes.
type Op string

const (
	OpAdd    Op = "add"
	OpSet    Op = "set"
	OpRemove Op = "remove"
	OpGet    Op = "get"
)

// Record is a loosely-typed entity payload as exchanged with the store.
// Callers may send stray or partial fields; the pipeline's hooks are
// responsible for normalizing and sanitizing them.
type Record map[string]interface{}

// Str returns the string value for key, or "" if absent or not a string.
func (r Record) Str(key string) string {
	s, _ := r[key].(string)
	return s
}

// Has reports whether key is present, even with a nil value.
func (r Record) Has(key string) bool {
	_, ok := r[key]
	return ok
}

// Bool returns the bool value for key and whether it was a bool.
func (r Record) Bool(key string) (bool, bool) {
	b, ok := r[key].(bool)
	return b, ok
}

// BoolDefault returns the bool value for key, or def if absent or not a bool.
func (r Record) BoolDefault(key string, def bool) bool {
	if b, ok := r[key].(bool); ok {
		return b
	}
	return def
}

// Int returns the integer value for key, tolerating the numeric types
// a JSON decoder or a caller may have used.
func (r Record) Int(key string) (int, bool) {
	switch n := r[key].(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	}
	return 0, false
}

// Clone returns a shallow copy of the record.
func (r Record) Clone() Record {
	cp := make(Record, len(r))
	for k, v := range r {
		cp[k] = v
	}
	return cp
}

// Selector matches records whose fields equal every given value.
// An empty selector matches all records of an entity.
type Selector map[string]interface{}

// ByID selects a single record by its server-assigned identifier.
func ByID(id string) Selector { return Selector{"id": id} }

// Query is a write/read intent against the store. Exactly one of the
// payload shapes is used depending on Op: With for add, Selector+To for
// set, Selector for remove and get.
type Query struct {
	Op       Op
	Entity   Entity
	With     []Record
	Selector Selector
	To       Record
}

// AddOne builds a single-record add intent; cascades produce these.
func AddOne(entity Entity, rec Record) Query {
	return Query{Op: OpAdd, Entity: entity, With: []Record{rec}}
}
