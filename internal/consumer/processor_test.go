package consumer

import (
	"context"
	"encoding/binary"
	"errors"
	"log"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
)

func TestProcessorCommitsOnSuccess(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	payload := []byte(`{"user_id":"u1","day":3,"week_number":1,"completed_at":"2026-01-07T08:00:00Z"}`)
	value := make([]byte, 5+len(payload))
	value[0] = 0
	binary.BigEndian.PutUint32(value[1:5], uint32(42))
	copy(value[5:], payload)

	msg := kafka.Message{
		Topic:     "progress_events",
		Partition: 0,
		Offset:    10,
		Time:      time.Now().UTC(),
		Value:     value,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte("progress.day_completed")},
			{Key: "aggregate_id", Value: []byte("u1:3")},
			{Key: "schema_subject", Value: []byte("progress_events-day_completed-value")},
		},
	}

	reader := &stubReader{
		messages: []kafka.Message{msg},
		after:    contextCanceled,
	}
	handler := &stubHandler{}

	processor := NewProcessor(reader, handler, WithLogger(log.New(testWriter{t}, "", 0)))

	err := processor.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)

	require.Equal(t, 1, handler.calls)
	require.Equal(t, 1, reader.commitCalls)
	require.Equal(t, "progress.day_completed", handler.last.EventType)
	require.Equal(t, "u1:3", handler.last.AggregateID)
	require.NoError(t, ValidatePayload(handler.last))
	require.Equal(t, 42, handler.last.SchemaID)
	require.JSONEq(t, string(payload), string(handler.last.Payload))
}

func TestProcessorSkipsCommitOnHandlerError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	payload := []byte(`{"user_id":"u2","days":[1,2],"occurred_at":"2026-01-07T08:00:00Z"}`)
	value := make([]byte, 5+len(payload))
	value[0] = 0
	binary.BigEndian.PutUint32(value[1:5], uint32(99))
	copy(value[5:], payload)

	msg := kafka.Message{
		Topic:     "progress_events",
		Partition: 0,
		Offset:    20,
		Time:      time.Now().UTC(),
		Value:     value,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte("progress.seeded")},
			{Key: "aggregate_id", Value: []byte("u2")},
			{Key: "schema_subject", Value: []byte("progress_events-seeded-value")},
		},
	}

	reader := &stubReader{
		messages: []kafka.Message{msg},
		after:    contextCanceled,
	}
	handler := &stubHandler{err: errors.New("boom")}

	processor := NewProcessor(reader, handler,
		WithLogger(log.New(testWriter{t}, "", 0)),
		WithHandlerRetries(2, time.Millisecond),
	)

	err := processor.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)

	require.Equal(t, 2, handler.calls)
	require.Equal(t, 0, reader.commitCalls)
}

type stubReader struct {
	messages    []kafka.Message
	index       int
	commitCalls int
	after       func() error
}

func (r *stubReader) FetchMessage(context.Context) (kafka.Message, error) {
	if r.index >= len(r.messages) {
		if r.after != nil {
			return kafka.Message{}, r.after()
		}
		return kafka.Message{}, context.Canceled
	}
	msg := r.messages[r.index]
	r.index++
	return msg, nil
}

func (r *stubReader) CommitMessages(_ context.Context, _ ...kafka.Message) error {
	r.commitCalls++
	return nil
}

func (r *stubReader) Close() error { return nil }

func contextCanceled() error { return context.Canceled }

type stubHandler struct {
	calls     int
	err       error
	failFirst int
	last      Message
}

func (h *stubHandler) Handle(_ context.Context, msg Message) error {
	h.calls++
	h.last = msg
	if h.calls <= h.failFirst {
		return errors.New("transient")
	}
	return h.err
}

type testWriter struct {
	t *testing.T
}

func (tw testWriter) Write(p []byte) (int, error) {
	tw.t.Log(string(p))
	return len(p), nil
}

func TestProcessorCommitsMalformedMessages(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reader := &stubReader{
		messages: []kafka.Message{
			{Topic: "progress_events", Value: []byte{0, 1}},
			{Topic: "progress_events", Value: []byte{9, 0, 0, 0, 1, '{', '}'}, Headers: []kafka.Header{{Key: "event_type", Value: []byte("progress.seeded")}}},
			{Topic: "progress_events", Value: []byte{0, 0, 0, 0, 1, '{', '}'}},
		},
		after: contextCanceled,
	}
	handler := &stubHandler{}

	err := NewProcessor(reader, handler, WithLogger(log.New(testWriter{t}, "", 0))).Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	require.Zero(t, handler.calls)
	require.Equal(t, 3, reader.commitCalls)
}

func TestValidatePayload(t *testing.T) {
	ok := Message{EventType: "progress.day_reopened", Payload: []byte(`{"user_id":"u1","day":2,"week_number":1,"occurred_at":"2026-01-06T00:00:00Z"}`)}
	require.NoError(t, ValidatePayload(ok))

	unknownField := Message{EventType: "progress.day_reopened", Payload: []byte(`{"user_id":"u1","streak_bonus":2}`)}
	require.ErrorIs(t, ValidatePayload(unknownField), ErrInvalidPayload)

	unknownType := Message{EventType: "progress.archived", Payload: []byte(`{}`)}
	require.ErrorIs(t, ValidatePayload(unknownType), ErrInvalidPayload)
}

func framed(eventType string, payload string) kafka.Message {
	value := append([]byte{0, 0, 0, 0, 7}, payload...)
	return kafka.Message{
		Topic:   "progress_events",
		Value:   value,
		Headers: []kafka.Header{{Key: "event_type", Value: []byte(eventType)}},
	}
}

func TestProcessorRetriesTransientHandlerErrors(t *testing.T) {
	reader := &stubReader{
		messages: []kafka.Message{framed("progress.seeded", `{"user_id":"u3","days":[1],"occurred_at":"2026-01-07T08:00:00Z"}`)},
		after:    contextCanceled,
	}
	handler := &stubHandler{failFirst: 2}

	err := NewProcessor(reader, handler,
		WithLogger(log.New(testWriter{t}, "", 0)),
		WithHandlerRetries(3, time.Millisecond),
	).Run(context.Background())
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 3, handler.calls)
	require.Equal(t, 1, reader.commitCalls)
}

func TestProcessorCommitsRejectedPayloads(t *testing.T) {
	reader := &stubReader{
		messages: []kafka.Message{framed("progress.day_completed", `{"user_id":"u1","unexpected":true}`)},
		after:    contextCanceled,
	}
	handler := &stubHandler{err: ValidatePayload(Message{EventType: "progress.day_completed", Payload: []byte(`{"unexpected":true}`)})}
	require.ErrorIs(t, handler.err, ErrInvalidPayload)

	err := NewProcessor(reader, handler, WithLogger(log.New(testWriter{t}, "", 0))).Run(context.Background())
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 1, handler.calls)
	require.Equal(t, 1, reader.commitCalls)
}
