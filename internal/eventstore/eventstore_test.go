package eventstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

type testEvent struct {
	Message string `json:"message"`
}

func newEvent(t testing.TB, msg string) Event {
	t.Helper()
	data, err := json.Marshal(testEvent{Message: msg})
	require.NoError(t, err)
	return Event{EventType: "TestEvent", EventData: data}
}

func TestAppendAndLoad(t *testing.T) {
	ctx := context.Background()
	store := NewEventStore()
	id := uuid.New()

	require.NoError(t, store.AppendEvents(ctx, id, "contract", 0, []Event{newEvent(t, "a"), newEvent(t, "b")}))
	require.NoError(t, store.AppendEvents(ctx, id, "contract", 2, []Event{newEvent(t, "c")}))

	events, err := store.LoadEvents(ctx, id, 0, 0)
	require.NoError(t, err)
	require.Len(t, events, 3)
	for i, e := range events {
		assert.Equal(t, i+1, e.Version)
		assert.Equal(t, id, e.AggregateID)
		assert.Equal(t, "contract", e.AggregateType)
	}

	ranged, err := store.LoadEvents(ctx, id, 2, 2)
	require.NoError(t, err)
	require.Len(t, ranged, 1)
	assert.Equal(t, 2, ranged[0].Version)

	version, err := store.GetCurrentVersion(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 3, version)
}

func TestAppendRejectsStaleVersion(t *testing.T) {
	ctx := context.Background()
	store := NewEventStore()
	id := uuid.New()

	require.NoError(t, store.AppendEvents(ctx, id, "contract", 0, []Event{newEvent(t, "a")}))

	err := store.AppendEvents(ctx, id, "contract", 0, []Event{newEvent(t, "b")})
	assert.ErrorIs(t, err, ErrConcurrencyConflict)

	err = store.AppendEvents(ctx, id, "contract", -1, []Event{newEvent(t, "b")})
	assert.ErrorIs(t, err, ErrInvalidVersion)
}

func TestConcurrentAppendsOnlyOneWins(t *testing.T) {
	ctx := context.Background()
	store := NewEventStore()
	id := uuid.New()

	var wg sync.WaitGroup
	var mu sync.Mutex
	successCount := 0
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if err := store.AppendEvents(ctx, id, "contract", 0, []Event{newEvent(t, fmt.Sprint(i))}); err == nil {
				mu.Lock()
				successCount++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, successCount, "only one append at version 0 should succeed")
}

func TestLoadUnknownAggregate(t *testing.T) {
	_, err := NewEventStore().LoadEvents(context.Background(), uuid.New(), 0, 0)
	assert.ErrorIs(t, err, ErrAggregateNotFound)
}

func TestStreamEventsPagesInAppendOrder(t *testing.T) {
	ctx := context.Background()
	store := NewEventStore()
	a, b := uuid.New(), uuid.New()

	require.NoError(t, store.AppendEvents(ctx, a, "contract", 0, []Event{newEvent(t, "a1")}))
	require.NoError(t, store.AppendEvents(ctx, b, "contract", 0, []Event{newEvent(t, "b1")}))
	require.NoError(t, store.AppendEvents(ctx, a, "contract", 1, []Event{newEvent(t, "a2")}))

	first, err := store.StreamEvents(ctx, 0, 2)
	require.NoError(t, err)
	require.Len(t, first, 2)
	assert.Equal(t, int64(1), first[0].ID)
	assert.Equal(t, b, first[1].AggregateID)

	rest, err := store.StreamEvents(ctx, first[len(first)-1].ID, 10)
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Equal(t, int64(3), rest[0].ID)

	empty, err := store.StreamEvents(ctx, 3, 10)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestSnapshotsKeepNewestVersion(t *testing.T) {
	ctx := context.Background()
	store := NewEventStore()
	id := uuid.New()

	snap, err := store.LoadSnapshot(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, snap)

	require.NoError(t, store.SaveSnapshot(ctx, Snapshot{AggregateID: id, Version: 3, State: json.RawMessage(`{"v":3}`)}))
	require.NoError(t, store.SaveSnapshot(ctx, Snapshot{AggregateID: id, Version: 2, State: json.RawMessage(`{"v":2}`)}))

	snap, err = store.LoadSnapshot(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Equal(t, 3, snap.Version)
	assert.JSONEq(t, `{"v":3}`, string(snap.State))
}

func TestAppendRecordsSpan(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	defer tp.Shutdown(context.Background())

	store := NewEventStore()
	store.tracer = tp.Tracer("test")

	id := uuid.New()
	require.NoError(t, store.AppendEvents(context.Background(), id, "contract", 0, []Event{newEvent(t, "a")}))

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "eventstore.append", spans[0].Name())
	require.Len(t, spans[0].Events(), 1)
	assert.Equal(t, "event.appended", spans[0].Events()[0].Name)
}

func BenchmarkAppendEvents(b *testing.B) {
	store := NewEventStore()
	ctx := context.Background()
	event := newEvent(b, "bench")

	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		if err := store.AppendEvents(ctx, uuid.New(), "contract", 0, []Event{event}); err != nil {
			b.Fatalf("AppendEvents failed: %v", err)
		}
	}
}
