package hook

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/shule-app/shule/core"
)

// Engine drives an entity write/read through its registered hooks and
// the underlying store:
//
//	before:* transforms -> store write -> after:* cascades (one batch)
//	-> commit:* observers (best effort)
//
// The engine holds no shared mutable state; correctness under
// concurrency rests on the store's own constraints.
type Engine struct {
	store    Store
	registry *Registry
	log      core.Logger
	events   *Emitter
}

func NewEngine(store Store, registry *Registry, log core.Logger, events *Emitter) *Engine {
	return &Engine{store: store, registry: registry, log: log, events: events}
}

// Store exposes the wrapped store for collaborators that bypass the
// pipeline (read-only lookups such as the waitlist).
func (e *Engine) Store() Store { return e.store }

// CascadeError reports cascaded writes that failed after the primary
// write was accepted. The caller still receives the accepted records:
// this is a partial-success condition, not a rollback.
type CascadeError struct {
	Errors []error
}

func (e *CascadeError) Error() string {
	msgs := make([]string, 0, len(e.Errors))
	for _, err := range e.Errors {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("%d cascaded write(s) failed: %s", len(e.Errors), strings.Join(msgs, "; "))
}

// Add normalizes and persists one or more candidate records, runs the
// cascade phase on the accepted input and fires post-commit observers.
// Store rejections (uniqueness violations included) surface unchanged.
func (e *Engine) Add(ctx context.Context, entity Entity, with ...Record) ([]Record, error) {
	q := Query{Op: OpAdd, Entity: entity, With: with}
	if err := e.transform(ctx, &q, BeforeAdd); err != nil {
		return nil, err
	}

	accepted, err := e.store.Add(ctx, entity, q.With...)
	if err != nil {
		return nil, err
	}

	cascadeErr := e.runCascades(ctx, entity, AfterAdd, accepted)
	e.runCommits(ctx, Query{Op: OpAdd, Entity: entity, With: accepted}, CommitAdd, nil, accepted)
	return accepted, cascadeErr
}

// Set sanitizes and applies a partial update to every record matching sel.
func (e *Engine) Set(ctx context.Context, entity Entity, sel Selector, to Record) ([]Record, error) {
	q := Query{Op: OpSet, Entity: entity, Selector: sel, To: to}
	if err := e.transform(ctx, &q, BeforeSet); err != nil {
		return nil, err
	}

	// snapshot the previous state only when a post-commit observer wants it
	var before []Record
	if len(e.registry.commitsFor(entity, CommitSet)) > 0 {
		var err error
		if before, err = e.store.Get(ctx, entity, q.Selector); err != nil {
			e.log.Debug(fmt.Sprintf("hook: pre-update snapshot of %s failed: %v", entity, err))
		}
	}

	updated, err := e.store.Set(ctx, entity, q.Selector, q.To)
	if err != nil {
		return nil, err
	}

	cascadeErr := e.runCascades(ctx, entity, AfterSet, updated)
	e.runCommits(ctx, q, CommitSet, before, updated)
	return updated, cascadeErr
}

// Remove deletes every record matching sel.
func (e *Engine) Remove(ctx context.Context, entity Entity, sel Selector) ([]Record, error) {
	q := Query{Op: OpRemove, Entity: entity, Selector: sel}
	if err := e.transform(ctx, &q, BeforeRemove); err != nil {
		return nil, err
	}

	removed, err := e.store.Remove(ctx, entity, q.Selector)
	if err != nil {
		return nil, err
	}

	cascadeErr := e.runCascades(ctx, entity, AfterRemove, removed)
	e.runCommits(ctx, q, CommitRemove, removed, nil)
	return removed, cascadeErr
}

// Get fetches records matching sel and passes them through the entity's
// read guards, which may filter the result set.
func (e *Engine) Get(ctx context.Context, entity Entity, sel Selector) ([]Record, error) {
	recs, err := e.store.Get(ctx, entity, sel)
	if err != nil {
		return nil, err
	}
	for _, guard := range e.registry.readsFor(entity) {
		if recs, err = guard(ctx, e.store, recs); err != nil {
			return nil, err
		}
	}
	return recs, nil
}

func (e *Engine) transform(ctx context.Context, q *Query, phase Phase) error {
	for _, fn := range e.registry.transformsFor(q.Entity, phase) {
		if err := fn(ctx, q); err != nil {
			return errors.Wrapf(err, "hook: %s %s", phase, q.Entity)
		}
	}
	return nil
}

// runCascades collects every extra write intent scheduled for the
// accepted records and submits them as one batch. Uniqueness violations
// inside the batch are harmless retry duplicates; anything else is
// returned as a CascadeError once the whole batch has been attempted.
func (e *Engine) runCascades(ctx context.Context, entity Entity, phase Phase, accepted []Record) error {
	fns := e.registry.cascadesFor(entity, phase)
	if len(fns) == 0 || len(accepted) == 0 {
		return nil
	}

	var (
		batch  []Query
		failed []error
	)
	for _, rec := range accepted {
		for _, fn := range fns {
			qs, err := fn(ctx, rec)
			if err != nil {
				failed = append(failed, errors.Wrapf(err, "scheduling cascade for %s", entity))
				continue
			}
			batch = append(batch, qs...)
		}
	}

	for _, q := range batch {
		if err := e.submit(ctx, q); err != nil {
			if IsUniqueViolation(err) {
				e.log.Warn(fmt.Sprintf("hook: duplicate cascade on %s ignored: %v", q.Entity, err))
				e.events.Emit(Event{Kind: EventCascadeDuplicate, Entity: q.Entity, Reason: err.Error()})
				continue
			}
			failed = append(failed, errors.Wrapf(err, "cascaded %s on %s", q.Op, q.Entity))
		}
	}

	if len(failed) > 0 {
		return &CascadeError{Errors: failed}
	}
	return nil
}

func (e *Engine) submit(ctx context.Context, q Query) error {
	var err error
	switch q.Op {
	case OpAdd:
		_, err = e.store.Add(ctx, q.Entity, q.With...)
	case OpSet:
		_, err = e.store.Set(ctx, q.Entity, q.Selector, q.To)
	case OpRemove:
		_, err = e.store.Remove(ctx, q.Entity, q.Selector)
	default:
		err = errors.Errorf("unsupported cascaded op %q", q.Op)
	}
	return err
}

// runCommits fires post-commit observers. Failures here never reach the
// caller: the primary operation already succeeded.
func (e *Engine) runCommits(ctx context.Context, q Query, phase Phase, before, after []Record) {
	for _, fn := range e.registry.commitsFor(q.Entity, phase) {
		func() {
			defer func() {
				if r := recover(); r != nil {
					e.log.Error(fmt.Sprintf("hook: %s observer for %s panicked: %v", phase, q.Entity, r))
				}
			}()
			fn(ctx, q, before, after)
		}()
	}
}
