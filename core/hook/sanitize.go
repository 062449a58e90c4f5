package hook

import (
	"context"
	"fmt"

	"github.com/shule-app/shule/core"
)

// AllowFields returns a transform that deletes every key of an update
// payload that is not in the entity's authoritative field set. Stray
// fields from loosely-typed callers are dropped silently: one event
// per deletion, never an error.
func AllowFields(entity Entity, fields []string, events *Emitter, log core.Logger) TransformFunc {
	allowed := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		allowed[f] = struct{}{}
	}

	return func(ctx context.Context, q *Query) error {
		if q.To == nil {
			return nil
		}
		for key := range q.To {
			if _, ok := allowed[key]; ok {
				continue
			}
			delete(q.To, key)
			log.Info(fmt.Sprintf("hook: dropped unknown field %q from %s update", key, entity))
			events.Emit(Event{Kind: EventFieldDropped, Entity: entity, Field: key})
		}
		return nil
	}
}
