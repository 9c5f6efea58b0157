package notification

import (
	"context"
	"database/sql"
	"encoding/json"

	"leavedesk/internal/events"
	"leavedesk/internal/messaging/kafka"

	"go.uber.org/zap"
)

// Dispatcher is the single capability the workflow engine consumes. Dispatch
// is transactional when a tx is supplied: the event rides in the workflow's
// own commit via the outbox, so a committed transition is never silently
// unannounced, and an aborted one never notifies anyone.
//
//go:generate mockgen -source=dispatcher.go -destination=mock/dispatcher_mock.go -package=mock
type Dispatcher interface {
	Dispatch(ctx context.Context, tx *sql.Tx, event events.LeaveWorkflowEvent) error
}

type outboxDispatcher struct {
	outbox kafka.OutboxRepository
	logger *zap.Logger
}

func NewOutboxDispatcher(outbox kafka.OutboxRepository, logger ...*zap.Logger) Dispatcher {
	l := zap.L().Named("notification.dispatcher")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("notification.dispatcher")
	}
	return &outboxDispatcher{outbox: outbox, logger: l}
}

func (d *outboxDispatcher) Dispatch(ctx context.Context, tx *sql.Tx, event events.LeaveWorkflowEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	repo := d.outbox
	if tx != nil {
		repo = repo.WithTx(tx)
	}

	if err := repo.Create(ctx, kafka.OutboxEvent{
		ID:            event.EventID,
		TraceID:       event.TraceID,
		AggregateType: "leave_request",
		AggregateID:   event.RequestID,
		EventType:     event.EventType,
		Topic:         events.LeaveWorkflowTopic,
		Payload:       payload,
		Status:        kafka.OutboxStatusPending,
	}); err != nil {
		return err
	}

	d.logger.Debug("workflow event queued",
		zap.String("event_id", event.EventID),
		zap.String("event_type", event.EventType),
		zap.String("request_id", event.RequestID),
		zap.Int("recipients", len(event.Recipients)),
	)
	return nil
}
