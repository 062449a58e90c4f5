package hook

import (
	"context"
	"strconv"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Fatal(string, ...interface{}) {}

// stubStore records writes and fails on demand, per entity.
type stubStore struct {
	added  map[Entity][]Record
	addErr map[Entity]error
	nextID int
}

func newStubStore() *stubStore {
	return &stubStore{added: make(map[Entity][]Record), addErr: make(map[Entity]error)}
}

func (s *stubStore) Add(_ context.Context, entity Entity, with ...Record) ([]Record, error) {
	if err := s.addErr[entity]; err != nil {
		return nil, err
	}
	accepted := make([]Record, 0, len(with))
	for _, rec := range with {
		rec = rec.Clone()
		if rec.Str("id") == "" {
			s.nextID++
			rec["id"] = "id-" + strconv.Itoa(s.nextID)
		}
		s.added[entity] = append(s.added[entity], rec)
		accepted = append(accepted, rec)
	}
	return accepted, nil
}

func (s *stubStore) Set(_ context.Context, entity Entity, _ Selector, to Record) ([]Record, error) {
	updated := make([]Record, 0, len(s.added[entity]))
	for i, rec := range s.added[entity] {
		merged := rec.Clone()
		for k, v := range to {
			merged[k] = v
		}
		s.added[entity][i] = merged
		updated = append(updated, merged)
	}
	return updated, nil
}

func (s *stubStore) Remove(_ context.Context, entity Entity, _ Selector) ([]Record, error) {
	removed := s.added[entity]
	s.added[entity] = nil
	return removed, nil
}

func (s *stubStore) Get(_ context.Context, entity Entity, _ Selector) ([]Record, error) {
	recs := make([]Record, 0, len(s.added[entity]))
	for _, rec := range s.added[entity] {
		recs = append(recs, rec.Clone())
	}
	return recs, nil
}

func newTestEngine(store Store, reg *Registry) (*Engine, *Recorder) {
	recorder := NewRecorder()
	events := NewEmitter()
	events.Attach(recorder)
	return NewEngine(store, reg, nopLogger{}, events), recorder
}

func TestEngineAdd_transformOrder(t *testing.T) {
	store := newStubStore()
	reg := NewRegistry()
	reg.Transform("thing", BeforeAdd,
		func(_ context.Context, q *Query) error {
			for _, rec := range q.With {
				rec["trace"] = rec.Str("trace") + "a"
			}
			return nil
		},
		func(_ context.Context, q *Query) error {
			for _, rec := range q.With {
				rec["trace"] = rec.Str("trace") + "b"
			}
			return nil
		},
	)
	eng, _ := newTestEngine(store, reg)

	accepted, err := eng.Add(context.Background(), "thing", Record{}, Record{})
	require.NoError(t, err)
	require.Len(t, accepted, 2)
	for _, rec := range accepted {
		assert.Equal(t, "ab", rec.Str("trace"))
	}
	assert.Len(t, store.added["thing"], 2)
}

func TestEngineAdd_transformErrorAborts(t *testing.T) {
	store := newStubStore()
	reg := NewRegistry()
	reg.Transform("thing", BeforeAdd, func(context.Context, *Query) error {
		return errors.New("bad payload")
	})
	eng, _ := newTestEngine(store, reg)

	_, err := eng.Add(context.Background(), "thing", Record{})
	require.Error(t, err)
	assert.Empty(t, store.added["thing"], "store must not see an aborted write")
}

func TestEngineAdd_storeRejectionSurfacesUnchanged(t *testing.T) {
	store := newStubStore()
	wantErr := &UniqueError{Entity: "thing", Field: "email"}
	store.addErr["thing"] = wantErr
	eng, _ := newTestEngine(store, NewRegistry())

	_, err := eng.Add(context.Background(), "thing", Record{"email": "x@y.z"})
	assert.Equal(t, wantErr, err)
}

func TestEngineAdd_cascadeBatchSubmitted(t *testing.T) {
	store := newStubStore()
	reg := NewRegistry()
	reg.Cascade("parent", AfterAdd, func(_ context.Context, accepted Record) ([]Query, error) {
		return []Query{AddOne("child", Record{"parentId": accepted.Str("id")})}, nil
	})
	eng, _ := newTestEngine(store, reg)

	accepted, err := eng.Add(context.Background(), "parent", Record{}, Record{})
	require.NoError(t, err)
	require.Len(t, store.added["child"], 2)
	assert.Equal(t, accepted[0].Str("id"), store.added["child"][0].Str("parentId"))
	assert.Equal(t, accepted[1].Str("id"), store.added["child"][1].Str("parentId"))
}

func TestEngineAdd_duplicateCascadeIsHarmless(t *testing.T) {
	store := newStubStore()
	store.addErr["child"] = &UniqueError{Entity: "child", Field: "parentId"}
	reg := NewRegistry()
	reg.Cascade("parent", AfterAdd, func(_ context.Context, accepted Record) ([]Query, error) {
		return []Query{AddOne("child", Record{"parentId": accepted.Str("id")})}, nil
	})
	eng, recorder := newTestEngine(store, reg)

	accepted, err := eng.Add(context.Background(), "parent", Record{})
	require.NoError(t, err, "a duplicate cascade must not fail the operation")
	assert.Len(t, accepted, 1)
	assert.Len(t, recorder.ByKind(EventCascadeDuplicate), 1)
}

func TestEngineAdd_cascadeFailureIsPartialSuccess(t *testing.T) {
	store := newStubStore()
	store.addErr["child"] = errors.New("store exploded")
	reg := NewRegistry()
	reg.Cascade("parent", AfterAdd, func(_ context.Context, accepted Record) ([]Query, error) {
		return []Query{AddOne("child", Record{"parentId": accepted.Str("id")})}, nil
	})
	eng, _ := newTestEngine(store, reg)

	accepted, err := eng.Add(context.Background(), "parent", Record{})
	require.Len(t, accepted, 1, "primary write stands even when the cascade fails")

	var cascadeErr *CascadeError
	require.True(t, errors.As(err, &cascadeErr))
	assert.Len(t, cascadeErr.Errors, 1)
}

func TestEngineAdd_commitObserverPanicIsolated(t *testing.T) {
	store := newStubStore()
	reg := NewRegistry()
	reg.Commit("thing", CommitAdd, func(context.Context, Query, []Record, []Record) {
		panic("observer bug")
	})
	eng, _ := newTestEngine(store, reg)

	accepted, err := eng.Add(context.Background(), "thing", Record{})
	require.NoError(t, err)
	assert.Len(t, accepted, 1)
}

func TestEngineSet_commitObserverSeesBeforeAndAfter(t *testing.T) {
	store := newStubStore()
	reg := NewRegistry()
	var gotBefore, gotAfter []Record
	reg.Commit("thing", CommitSet, func(_ context.Context, _ Query, before, after []Record) {
		gotBefore, gotAfter = before, after
	})
	eng, _ := newTestEngine(store, reg)

	ctx := context.Background()
	_, err := eng.Add(ctx, "thing", Record{"v": "old"})
	require.NoError(t, err)

	_, err = eng.Set(ctx, "thing", Selector{}, Record{"v": "new"})
	require.NoError(t, err)

	require.Len(t, gotBefore, 1)
	require.Len(t, gotAfter, 1)
	assert.Equal(t, "old", gotBefore[0].Str("v"))
	assert.Equal(t, "new", gotAfter[0].Str("v"))
}

func TestEngineGet_readGuardFilters(t *testing.T) {
	store := newStubStore()
	reg := NewRegistry()
	reg.Read("thing", func(_ context.Context, _ Store, recs []Record) ([]Record, error) {
		valid := make([]Record, 0, len(recs))
		for _, rec := range recs {
			if rec.Str("keep") == "yes" {
				valid = append(valid, rec)
			}
		}
		return valid, nil
	})
	eng, _ := newTestEngine(store, reg)

	ctx := context.Background()
	_, err := eng.Add(ctx, "thing", Record{"keep": "yes"}, Record{"keep": "no"}, Record{"keep": "yes"})
	require.NoError(t, err)

	recs, err := eng.Get(ctx, "thing", Selector{})
	require.NoError(t, err)
	require.Len(t, recs, 2)
	for _, rec := range recs {
		assert.Equal(t, "yes", rec.Str("keep"))
	}
}
