package hook

import "sync"

// EventKind classifies the pipeline's observable behaviors: silent
// corrections, soft-fails and fail-safe deletions each emit one event
// per instance so they can be verified without scraping logs.
type EventKind string

const (
	// EventFieldDefaulted is emitted when a missing or malformed field
	// was filled with a computed default (silent correction).
	EventFieldDefaulted EventKind = "field_defaulted"
	// EventFieldDropped is emitted when a field outside an entity's
	// allowlist was removed from an update payload.
	EventFieldDropped EventKind = "field_dropped"
	// EventCredentialStripped is emitted when a credential-shaped field
	// was removed unconditionally.
	EventCredentialStripped EventKind = "credential_stripped"
	// EventSoftFail is emitted when an operation proceeded despite a
	// missing association (student without teacher, admin without school).
	EventSoftFail EventKind = "soft_fail"
	// EventCascadeDuplicate is emitted when a cascaded write failed on a
	// uniqueness constraint, i.e. a harmless retry duplicate.
	EventCascadeDuplicate EventKind = "cascade_duplicate"
	// EventOrphanRemoved is emitted when the integrity guard deleted a
	// record whose linked parent no longer exists.
	EventOrphanRemoved EventKind = "orphan_removed"
)

type Event struct {
	Kind     EventKind
	Entity   Entity
	Field    string
	RecordID string
	Reason   string
}

// Sink consumes pipeline events.
type Sink interface {
	Emit(ev Event)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(ev Event)

func (f SinkFunc) Emit(ev Event) { f(ev) }

// Emitter fans events out to attached sinks. A nil *Emitter is valid
// and drops everything, so hooks never need to nil-check.
type Emitter struct {
	mutex sync.RWMutex
	sinks []Sink
}

func NewEmitter() *Emitter { return &Emitter{} }

func (e *Emitter) Attach(sinks ...Sink) {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	e.sinks = append(e.sinks, sinks...)
}

func (e *Emitter) Emit(ev Event) {
	if e == nil {
		return
	}
	e.mutex.RLock()
	defer e.mutex.RUnlock()
	for _, s := range e.sinks {
		s.Emit(ev)
	}
}

// Recorder is a Sink that retains every event; meant for tests.
type Recorder struct {
	mutex  sync.Mutex
	events []Event
}

func NewRecorder() *Recorder { return &Recorder{} }

func (r *Recorder) Emit(ev Event) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.events = append(r.events, ev)
}

func (r *Recorder) Events() []Event {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return append([]Event(nil), r.events...)
}

func (r *Recorder) ByKind(kind EventKind) []Event {
	var res []Event
	for _, ev := range r.Events() {
		if ev.Kind == kind {
			res = append(res, ev)
		}
	}
	return res
}

func (r *Recorder) Reset() {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.events = nil
}
