package outbox

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"example.com/coursetrack/internal/events"
)

// ProgressTopic carries every progress event, keyed by user.
const ProgressTopic = "progress_events"

// Route describes where an event type is published and which schema frames it.
type Route struct {
	Topic         string
	SchemaSubject string
	Schema        string
}

var catalog = map[string]Route{
	events.TypeDayCompleted: {
		Topic:         ProgressTopic,
		SchemaSubject: "progress_events-day_completed-value",
		Schema:        dayCompletedSchema,
	},
	events.TypeDayReopened: {
		Topic:         ProgressTopic,
		SchemaSubject: "progress_events-day_reopened-value",
		Schema:        dayReopenedSchema,
	},
	events.TypeSeeded: {
		Topic:         ProgressTopic,
		SchemaSubject: "progress_events-seeded-value",
		Schema:        seededSchema,
	},
}

// RouteFor returns the routing metadata of eventType.
func RouteFor(eventType string) (Route, error) {
	route, ok := catalog[eventType]
	if !ok {
		return Route{}, fmt.Errorf("unknown event type: %s", eventType)
	}
	return route, nil
}

// Event is a domain event waiting to be appended to the outbox.
type Event struct {
	AggregateType string
	AggregateID   string
	EventType     string
	PartitionKey  string
	DedupeKey     string
	Payload       any
}

// Enqueue appends evt to the outbox within tx. Events sharing a dedupe key are written once.
func Enqueue(ctx context.Context, tx pgx.Tx, evt Event) error {
	route, err := RouteFor(evt.EventType)
	if err != nil {
		return err
	}
	body, err := json.Marshal(evt.Payload)
	if err != nil {
		return err
	}

	const stmt = `INSERT INTO outbox (aggregate_type, aggregate_id, event_type, topic, schema_subject, partition_key, payload, dedupe_key)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        ON CONFLICT (dedupe_key) WHERE dedupe_key IS NOT NULL DO NOTHING`

	_, err = tx.Exec(ctx, stmt,
		evt.AggregateType,
		evt.AggregateID,
		evt.EventType,
		route.Topic,
		route.SchemaSubject,
		evt.PartitionKey,
		body,
		nullIfEmpty(evt.DedupeKey),
	)
	return err
}

func nullIfEmpty(value string) any {
	if value == "" {
		return nil
	}
	return value
}
