package consumer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/coursetrack/internal/events"
	"example.com/coursetrack/internal/observability"
)

// ErrInvalidPayload marks events whose payload can never be stored.
var ErrInvalidPayload = errors.New("invalid event payload")

// PersistenceHandler appends consumed progress events to progress_event_log.
// Redelivered records are ignored by their (topic, partition, offset) position.
type PersistenceHandler struct {
	pool *pgxpool.Pool
}

// NewPersistenceHandler constructs a handler backed by pool.
func NewPersistenceHandler(pool *pgxpool.Pool) *PersistenceHandler {
	return &PersistenceHandler{pool: pool}
}

// Handle validates the payload and stores the event.
func (h *PersistenceHandler) Handle(ctx context.Context, msg Message) error {
	if err := ValidatePayload(msg); err != nil {
		return err
	}

	_, err := h.pool.Exec(ctx,
		`INSERT INTO progress_event_log (event_type, aggregate_id, schema_id, schema_subject, topic, partition, record_offset, payload, received_at)
         VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
         ON CONFLICT (topic, partition, record_offset) DO NOTHING`,
		msg.EventType,
		msg.AggregateID,
		msg.SchemaID,
		msg.SchemaSubject,
		msg.Topic,
		msg.Partition,
		msg.Offset,
		msg.Payload,
		msg.Timestamp,
	)
	if err != nil {
		return err
	}
	observability.RecordProgressEvent(msg.Timestamp)
	return nil
}

// ValidatePayload decodes the payload into the struct registered for its event type.
func ValidatePayload(msg Message) error {
	var target any
	switch msg.EventType {
	case events.TypeDayCompleted:
		target = &events.DayCompleted{}
	case events.TypeDayReopened:
		target = &events.DayReopened{}
	case events.TypeSeeded:
		target = &events.Seeded{}
	default:
		return fmt.Errorf("%w: unsupported event type %q", ErrInvalidPayload, msg.EventType)
	}
	dec := json.NewDecoder(bytes.NewReader(msg.Payload))
	dec.DisallowUnknownFields()
	if err := dec.Decode(target); err != nil {
		return fmt.Errorf("%w: decode %s: %v", ErrInvalidPayload, msg.EventType, err)
	}
	return nil
}
