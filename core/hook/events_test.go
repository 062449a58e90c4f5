package hook

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEmitterFanOut(t *testing.T) {
	emitter := NewEmitter()

	var got []Event
	emitter.Attach(SinkFunc(func(ev Event) { got = append(got, ev) }))

	recorder := NewRecorder()
	emitter.Attach(recorder)

	ev := Event{Kind: EventFieldDropped, Entity: "account", Field: "password"}
	emitter.Emit(ev)

	assert.Equal(t, []Event{ev}, got)
	assert.Equal(t, []Event{ev}, recorder.Events())
}

func TestEmitterNilIsSafe(t *testing.T) {
	var emitter *Emitter
	assert.NotPanics(t, func() {
		emitter.Emit(Event{Kind: EventSoftFail})
	})
}

func TestRecorderByKindAndReset(t *testing.T) {
	recorder := NewRecorder()
	recorder.Emit(Event{Kind: EventFieldDefaulted, Field: "name"})
	recorder.Emit(Event{Kind: EventSoftFail, Reason: "no teacher"})
	recorder.Emit(Event{Kind: EventFieldDefaulted, Field: "slug"})

	defaulted := recorder.ByKind(EventFieldDefaulted)
	assert.Len(t, defaulted, 2)
	assert.Equal(t, "name", defaulted[0].Field)
	assert.Equal(t, "slug", defaulted[1].Field)

	recorder.Reset()
	assert.Empty(t, recorder.Events())
}
