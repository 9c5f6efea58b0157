package notification

import (
	"context"

	"leavedesk/internal/events"
	notificationerrors "leavedesk/internal/notification/errors"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

//go:generate mockgen -source=notification_service.go -destination=mock/notification_service_mock.go -package=mock
type Service interface {
	// FanOut renders the event once and inserts one row per recipient.
	// Replays of the same event are absorbed by the idempotent insert.
	FanOut(ctx context.Context, event events.LeaveWorkflowEvent) error
	GetAllForUser(ctx context.Context, userID string) ([]NotificationResponse, error)
	MarkRead(ctx context.Context, userID, id string) error
}

type service struct {
	repo   Repository
	logger *zap.Logger
}

func NewService(repo Repository, logger ...*zap.Logger) Service {
	l := zap.L().Named("notification.service")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("notification.service")
	}
	return &service{repo: repo, logger: l}
}

func (s *service) FanOut(ctx context.Context, event events.LeaveWorkflowEvent) error {
	eventID, err := uuid.Parse(event.EventID)
	if err != nil {
		return notificationerrors.ErrInvalidEvent
	}
	if len(event.Recipients) == 0 {
		s.logger.Warn("workflow event has no recipients",
			zap.String("event_id", event.EventID),
			zap.String("event_type", event.EventType),
		)
		return nil
	}

	text := renderEvent(event)
	rows := make([]Notification, 0, len(event.Recipients))
	for _, recipient := range event.Recipients {
		userID, err := uuid.Parse(recipient)
		if err != nil {
			s.logger.Warn("skipping malformed recipient id",
				zap.String("event_id", event.EventID),
				zap.String("recipient", recipient),
			)
			continue
		}
		rows = append(rows, Notification{
			ID:       uuid.New(),
			EventID:  eventID,
			UserID:   userID,
			Type:     event.EventType,
			Title:    text.Title,
			Message:  text.Message,
			Priority: text.Priority,
		})
	}

	if err := s.repo.CreateIgnoreDuplicates(ctx, rows); err != nil {
		return err
	}

	s.logger.Info("workflow event fanned out",
		zap.String("event_id", event.EventID),
		zap.String("event_type", event.EventType),
		zap.Int("recipients", len(rows)),
	)
	return nil
}

func (s *service) GetAllForUser(ctx context.Context, userID string) ([]NotificationResponse, error) {
	rows, err := s.repo.FindAllByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return mapToListResponse(rows), nil
}

func (s *service) MarkRead(ctx context.Context, userID, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return notificationerrors.ErrNotificationNotFound
	}

	affected, err := s.repo.MarkRead(ctx, userID, id)
	if err != nil {
		return err
	}
	if affected == 0 {
		return notificationerrors.ErrNotificationNotFound
	}
	return nil
}
