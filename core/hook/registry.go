package hook

import "context"

// Phase names a point in an entity's write/read lifecycle.
type Phase string

const (
	// before:* phases transform the pending query prior to submission.
	BeforeAdd    Phase = "before:add"
	BeforeSet    Phase = "before:set"
	BeforeRemove Phase = "before:remove"

	// after:* phases run once the primary write has been accepted and
	// may schedule cascaded writes.
	AfterAdd    Phase = "after:add"
	AfterSet    Phase = "after:set"
	AfterRemove Phase = "after:remove"

	// commit:* phases run after the write is durably visible; best effort.
	CommitAdd    Phase = "commit:add"
	CommitSet    Phase = "commit:set"
	CommitRemove Phase = "commit:remove"

	// AfterGet runs on fetched records and may filter them.
	AfterGet Phase = "after:get"
)

type (
	// TransformFunc mutates a pending query in place (normalization,
	// sanitization). An error aborts the operation before it reaches
	// the store.
	TransformFunc func(ctx context.Context, q *Query) error

	// CascadeFunc inspects one accepted record and returns additional
	// write intents to run as part of the same logical operation.
	CascadeFunc func(ctx context.Context, accepted Record) ([]Query, error)

	// CommitFunc observes the final state of a committed write.
	// It has no error return: failures here must never surface.
	CommitFunc func(ctx context.Context, q Query, before, after []Record)

	// ReadFunc inspects fetched records and returns the surviving
	// subset. It may reach back into the store (e.g. to self-heal
	// orphaned links).
	ReadFunc func(ctx context.Context, store Store, recs []Record) ([]Record, error)
)

// Registry maps (entity, phase) to the ordered list of hooks to invoke.
// It is assembled once at startup so the pipeline's behavior is fully
// enumerable; it is not safe for concurrent registration afterwards.
type Registry struct {
	transforms map[Entity]map[Phase][]TransformFunc
	cascades   map[Entity]map[Phase][]CascadeFunc
	commits    map[Entity]map[Phase][]CommitFunc
	reads      map[Entity][]ReadFunc
}

func NewRegistry() *Registry {
	return &Registry{
		transforms: make(map[Entity]map[Phase][]TransformFunc),
		cascades:   make(map[Entity]map[Phase][]CascadeFunc),
		commits:    make(map[Entity]map[Phase][]CommitFunc),
		reads:      make(map[Entity][]ReadFunc),
	}
}

// Transform appends transforms for an entity's before:* phase, in call order.
func (r *Registry) Transform(entity Entity, phase Phase, fns ...TransformFunc) {
	m, ok := r.transforms[entity]
	if !ok {
		m = make(map[Phase][]TransformFunc)
		r.transforms[entity] = m
	}
	m[phase] = append(m[phase], fns...)
}

// Cascade appends cascade schedulers for an entity's after:* phase.
func (r *Registry) Cascade(entity Entity, phase Phase, fns ...CascadeFunc) {
	m, ok := r.cascades[entity]
	if !ok {
		m = make(map[Phase][]CascadeFunc)
		r.cascades[entity] = m
	}
	m[phase] = append(m[phase], fns...)
}

// Commit appends post-commit observers for an entity's commit:* phase.
func (r *Registry) Commit(entity Entity, phase Phase, fns ...CommitFunc) {
	m, ok := r.commits[entity]
	if !ok {
		m = make(map[Phase][]CommitFunc)
		r.commits[entity] = m
	}
	m[phase] = append(m[phase], fns...)
}

// Read appends read guards for an entity's get path.
func (r *Registry) Read(entity Entity, fns ...ReadFunc) {
	r.reads[entity] = append(r.reads[entity], fns...)
}

func (r *Registry) transformsFor(entity Entity, phase Phase) []TransformFunc {
	return r.transforms[entity][phase]
}

func (r *Registry) cascadesFor(entity Entity, phase Phase) []CascadeFunc {
	return r.cascades[entity][phase]
}

func (r *Registry) commitsFor(entity Entity, phase Phase) []CommitFunc {
	return r.commits[entity][phase]
}

func (r *Registry) readsFor(entity Entity) []ReadFunc {
	return r.reads[entity]
}
