// Package educontext holds the lifecycle hooks of educational contexts
// ("Traditional High School", "Fitness Certification", ...), which
// carry a serialized list of default grade-level names.
package educontext

import (
	"context"
	"encoding/json"
	"time"

	"github.com/shule-app/shule/core"
	"github.com/shule-app/shule/core/hook"
)

const Entity = hook.Entity("educationalContext")

var nowFunc = time.Now

// Fields is the authoritative set of fields an educational context may carry.
var Fields = []string{
	"name", "type", "description", "defaultGradeLevels",
	"teacherId", "isActive", "createdAt", "updatedAt",
}

type Hooks struct {
	log    core.Logger
	events *hook.Emitter
}

func NewHooks(log core.Logger, events *hook.Emitter) *Hooks {
	return &Hooks{log: log, events: events}
}

// NormalizeAdd validates the serialized default grade-level list,
// defaults the active flag and stamps timestamps.
func (h *Hooks) NormalizeAdd(_ context.Context, q *hook.Query) error {
	for _, rec := range q.With {
		h.normalizeNew(rec)
	}
	return nil
}

func (h *Hooks) normalizeNew(rec hook.Record) {
	rec["defaultGradeLevels"] = h.normalizeGradeLevels(rec)

	rec["isActive"] = rec.BoolDefault("isActive", true)

	now := nowFunc().UTC()
	rec["createdAt"] = now
	rec["updatedAt"] = now
}

// normalizeGradeLevels re-serializes the provided list, treating
// anything absent or malformed as empty. A parse failure is swallowed,
// never raised to the caller.
func (h *Hooks) normalizeGradeLevels(rec hook.Record) string {
	raw, ok := rec["defaultGradeLevels"].(string)
	if !ok || raw == "" {
		if rec.Has("defaultGradeLevels") {
			h.events.Emit(hook.Event{
				Kind:   hook.EventFieldDefaulted,
				Entity: Entity,
				Field:  "defaultGradeLevels",
				Reason: "not a serialized list",
			})
		}
		return "[]"
	}

	var levels []interface{}
	if err := json.Unmarshal([]byte(raw), &levels); err != nil {
		h.events.Emit(hook.Event{
			Kind:   hook.EventFieldDefaulted,
			Entity: Entity,
			Field:  "defaultGradeLevels",
			Reason: "malformed serialized list",
		})
		return "[]"
	}
	// "null" decodes without error but is not a list
	if levels == nil {
		h.events.Emit(hook.Event{
			Kind:   hook.EventFieldDefaulted,
			Entity: Entity,
			Field:  "defaultGradeLevels",
			Reason: "not a serialized list",
		})
		return "[]"
	}

	normalized, err := json.Marshal(levels)
	if err != nil {
		return "[]"
	}
	return string(normalized)
}

func (h *Hooks) NormalizeSet(_ context.Context, q *hook.Query) error {
	if q.To != nil {
		q.To["updatedAt"] = nowFunc().UTC()
	}
	return nil
}
