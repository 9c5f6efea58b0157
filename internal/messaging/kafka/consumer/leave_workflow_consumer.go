package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"leavedesk/internal/events"
	"leavedesk/internal/notification"

	"github.com/jackc/pgx/v5/pgconn"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// ConsumeLeaveWorkflow fans workflow transition events out into notification
// rows. Messages that fail to decode are committed and dropped; transient
// failures leave the message uncommitted for redelivery.
func ConsumeLeaveWorkflow(
	ctx context.Context,
	reader *kafkago.Reader,
	notificationService notification.Service,
	logger *zap.Logger,
) {
	log := logger.Named("kafka.consumer.leave_workflow")
	log.Info("leave workflow consumer started")

	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				log.Info("leave workflow consumer stopped")
				return
			}
			log.Error("fetch leave workflow message failed", zap.Error(err))
			continue
		}

		var event events.LeaveWorkflowEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			log.Error("decode leave workflow event failed", zap.Error(err))
			_ = reader.CommitMessages(ctx, msg)
			continue
		}

		if err := notificationService.FanOut(ctx, event); err != nil {
			if isDuplicateNotification(err) {
				log.Warn("notifications already exist for event, skipping",
					zap.String("event_id", event.EventID),
				)
				_ = reader.CommitMessages(ctx, msg)
				continue
			}

			log.Error("fan out workflow event failed",
				zap.String("event_id", event.EventID),
				zap.String("event_type", event.EventType),
				zap.Error(err),
			)
			continue
		}

		if err := reader.CommitMessages(ctx, msg); err != nil {
			log.Error("commit leave workflow message failed", zap.Error(err))
			continue
		}

		log.Info("notifications created from workflow event",
			zap.String("event_id", event.EventID),
			zap.String("event_type", event.EventType),
		)
	}
}

func isDuplicateNotification(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" && pgErr.ConstraintName == "uq_notifications_event_user"
	}

	errMsg := strings.ToLower(err.Error())
	return strings.Contains(errMsg, "duplicate key value") && strings.Contains(errMsg, "uq_notifications_event_user")
}
