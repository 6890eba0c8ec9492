package eventstore

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	ErrConcurrencyConflict = errors.New("concurrency conflict: version mismatch")
	ErrAggregateNotFound   = errors.New("aggregate not found")
	ErrInvalidVersion      = errors.New("invalid version number")
)

// Event is a recorded domain fact about one aggregate.
type Event struct {
	ID            int64             `json:"id"`
	AggregateID   uuid.UUID         `json:"aggregate_id"`
	AggregateType string            `json:"aggregate_type"`
	EventType     string            `json:"event_type"`
	EventData     json.RawMessage   `json:"event_data"`
	Metadata      map[string]string `json:"metadata,omitempty"`
	Version       int               `json:"version"`
	CreatedAt     time.Time         `json:"created_at"`
}

// Snapshot holds aggregate state at a version for faster reconstitution.
type Snapshot struct {
	AggregateID   uuid.UUID       `json:"aggregate_id"`
	AggregateType string          `json:"aggregate_type"`
	Version       int             `json:"version"`
	State         json.RawMessage `json:"state"`
	CreatedAt     time.Time       `json:"created_at"`
}

// EventStore is an in-process append-only log with per-aggregate
// optimistic concurrency. Events get a global, gapless ID in append order.
type EventStore struct {
	mu        sync.RWMutex
	log       []Event
	streams   map[uuid.UUID][]int
	snapshots map[uuid.UUID]Snapshot
	now       func() time.Time
	tracer    trace.Tracer
}

// NewEventStore creates an empty event store.
func NewEventStore() *EventStore {
	return &EventStore{
		streams:   make(map[uuid.UUID][]int),
		snapshots: make(map[uuid.UUID]Snapshot),
		now:       func() time.Time { return time.Now().UTC() },
		tracer:    otel.Tracer("warranty/eventstore"),
	}
}

// AppendEvents atomically appends events after checking that the
// aggregate is still at expectedVersion.
func (es *EventStore) AppendEvents(ctx context.Context, aggregateID uuid.UUID, aggregateType string, expectedVersion int, events []Event) error {
	_, span := es.tracer.Start(ctx, "eventstore.append",
		trace.WithAttributes(
			attribute.String("aggregate.id", aggregateID.String()),
			attribute.String("aggregate.type", aggregateType),
			attribute.Int("expected.version", expectedVersion),
			attribute.Int("event.count", len(events)),
		),
	)
	defer span.End()

	if expectedVersion < 0 {
		span.SetStatus(codes.Error, ErrInvalidVersion.Error())
		return ErrInvalidVersion
	}

	es.mu.Lock()
	defer es.mu.Unlock()

	currentVersion := len(es.streams[aggregateID])
	if currentVersion != expectedVersion {
		span.SetAttributes(
			attribute.Int("actual.version", currentVersion),
			attribute.Bool("conflict.detected", true),
		)
		span.SetStatus(codes.Error, ErrConcurrencyConflict.Error())
		return ErrConcurrencyConflict
	}

	for i, event := range events {
		event.ID = int64(len(es.log) + 1)
		event.AggregateID = aggregateID
		event.AggregateType = aggregateType
		event.Version = expectedVersion + i + 1
		event.CreatedAt = es.now()

		es.log = append(es.log, event)
		es.streams[aggregateID] = append(es.streams[aggregateID], len(es.log)-1)

		span.AddEvent("event.appended", trace.WithAttributes(
			attribute.Int64("event.id", event.ID),
			attribute.Int("event.version", event.Version),
			attribute.String("event.type", event.EventType),
		))
	}

	span.SetAttributes(attribute.Bool("append.success", true))
	return nil
}

// LoadEvents returns an aggregate's events with fromVersion <= version,
// bounded above by toVersion when toVersion > 0.
func (es *EventStore) LoadEvents(ctx context.Context, aggregateID uuid.UUID, fromVersion, toVersion int) ([]Event, error) {
	_, span := es.tracer.Start(ctx, "eventstore.load",
		trace.WithAttributes(
			attribute.String("aggregate.id", aggregateID.String()),
			attribute.Int("from.version", fromVersion),
			attribute.Int("to.version", toVersion),
		),
	)
	defer span.End()

	es.mu.RLock()
	defer es.mu.RUnlock()

	stream, ok := es.streams[aggregateID]
	if !ok {
		return nil, ErrAggregateNotFound
	}

	var events []Event
	for _, idx := range stream {
		event := es.log[idx]
		if event.Version < fromVersion {
			continue
		}
		if toVersion > 0 && event.Version > toVersion {
			break
		}
		events = append(events, event)
	}

	span.SetAttributes(attribute.Int("events.loaded", len(events)))
	return events, nil
}

// GetCurrentVersion returns the latest version for an aggregate, 0 when
// nothing was recorded.
func (es *EventStore) GetCurrentVersion(ctx context.Context, aggregateID uuid.UUID) (int, error) {
	_, span := es.tracer.Start(ctx, "eventstore.get_version",
		trace.WithAttributes(attribute.String("aggregate.id", aggregateID.String())),
	)
	defer span.End()

	es.mu.RLock()
	version := len(es.streams[aggregateID])
	es.mu.RUnlock()

	span.SetAttributes(attribute.Int("current.version", version))
	return version, nil
}

// StreamEvents pages through the whole log in append order, starting
// after fromID.
func (es *EventStore) StreamEvents(ctx context.Context, fromID int64, batchSize int) ([]Event, error) {
	_, span := es.tracer.Start(ctx, "eventstore.stream",
		trace.WithAttributes(
			attribute.Int64("from.id", fromID),
			attribute.Int("batch.size", batchSize),
		),
	)
	defer span.End()

	es.mu.RLock()
	defer es.mu.RUnlock()

	if fromID < 0 {
		fromID = 0
	}
	if fromID >= int64(len(es.log)) || batchSize <= 0 {
		return nil, nil
	}
	end := fromID + int64(batchSize)
	if end > int64(len(es.log)) {
		end = int64(len(es.log))
	}

	events := make([]Event, end-fromID)
	copy(events, es.log[fromID:end])

	span.SetAttributes(attribute.Int("events.streamed", len(events)))
	return events, nil
}

// SaveSnapshot stores aggregate state. Older snapshots never replace newer ones.
func (es *EventStore) SaveSnapshot(ctx context.Context, snapshot Snapshot) error {
	_, span := es.tracer.Start(ctx, "eventstore.save_snapshot")
	defer span.End()

	es.mu.Lock()
	defer es.mu.Unlock()

	if existing, ok := es.snapshots[snapshot.AggregateID]; ok && existing.Version >= snapshot.Version {
		return nil
	}
	snapshot.CreatedAt = es.now()
	es.snapshots[snapshot.AggregateID] = snapshot
	return nil
}

// LoadSnapshot returns the latest snapshot, or nil when none exists.
func (es *EventStore) LoadSnapshot(ctx context.Context, aggregateID uuid.UUID) (*Snapshot, error) {
	_, span := es.tracer.Start(ctx, "eventstore.load_snapshot")
	defer span.End()

	es.mu.RLock()
	defer es.mu.RUnlock()

	snapshot, ok := es.snapshots[aggregateID]
	if !ok {
		return nil, nil
	}
	return &snapshot, nil
}
