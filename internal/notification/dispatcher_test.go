package notification_test

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"

	"leavedesk/internal/events"
	"leavedesk/internal/messaging/kafka"
	"leavedesk/internal/notification"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

type fakeOutboxRepository struct {
	withTxCalled bool
	created      []kafka.OutboxEvent
	createFn     func(ctx context.Context, event kafka.OutboxEvent) error
}

func (f *fakeOutboxRepository) WithTx(tx *sql.Tx) kafka.OutboxRepository {
	f.withTxCalled = true
	return f
}

func (f *fakeOutboxRepository) Create(ctx context.Context, event kafka.OutboxEvent) error {
	f.created = append(f.created, event)
	if f.createFn != nil {
		return f.createFn(ctx, event)
	}
	return nil
}

func (f *fakeOutboxRepository) ListPending(ctx context.Context, limit int) ([]kafka.OutboxEvent, error) {
	return nil, nil
}

func (f *fakeOutboxRepository) MarkSent(ctx context.Context, id string) error {
	return nil
}

func (f *fakeOutboxRepository) MarkFailed(ctx context.Context, id string, reason string) error {
	return nil
}

func TestOutboxDispatcher_Dispatch(t *testing.T) {
	ctx := context.Background()

	event := events.LeaveWorkflowEvent{
		EventType:  events.EventLeaveSubmitted,
		EventID:    uuid.New().String(),
		RequestID:  uuid.New().String(),
		TraceID:    "req-123",
		EmployeeID: uuid.New().String(),
		Recipients: []string{uuid.New().String()},
	}

	t.Run("success queues one pending outbox row", func(t *testing.T) {
		outbox := &fakeOutboxRepository{}
		d := notification.NewOutboxDispatcher(outbox)

		err := d.Dispatch(ctx, nil, event)

		assert.NoError(t, err)
		assert.False(t, outbox.withTxCalled)
		assert.Len(t, outbox.created, 1)

		row := outbox.created[0]
		assert.Equal(t, event.EventID, row.ID)
		assert.Equal(t, "req-123", row.TraceID)
		assert.Equal(t, "leave_request", row.AggregateType)
		assert.Equal(t, event.RequestID, row.AggregateID)
		assert.Equal(t, events.LeaveWorkflowTopic, row.Topic)
		assert.Equal(t, kafka.OutboxStatusPending, row.Status)

		var decoded events.LeaveWorkflowEvent
		assert.NoError(t, json.Unmarshal(row.Payload, &decoded))
		assert.Equal(t, event.EventID, decoded.EventID)
		assert.Equal(t, event.Recipients, decoded.Recipients)
	})

	t.Run("success rides the supplied transaction", func(t *testing.T) {
		outbox := &fakeOutboxRepository{}
		d := notification.NewOutboxDispatcher(outbox)

		err := d.Dispatch(ctx, &sql.Tx{}, event)

		assert.NoError(t, err)
		assert.True(t, outbox.withTxCalled)
	})
}
