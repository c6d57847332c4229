package service

import (
	"context"
	"encoding/json"
	"fmt"

	"anoa.com/campuscomplaint/internal/entity"
	notifRepo "anoa.com/campuscomplaint/internal/modules/notification/repository"
	"anoa.com/campuscomplaint/pkg/apperror"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// Message is one event addressed to a single recipient.
type Message struct {
	UserID      string
	ComplaintID *uuid.UUID
	Title       string
	Body        string
	Type        entity.NotificationType
}

type NotificationService interface {
	Notify(ctx context.Context, msg Message) error
	NotifyAll(ctx context.Context, userIDs []string, msg Message) int
	ListForUser(ctx context.Context, userID string, limit int) ([]entity.Notification, error)
	UnreadCount(ctx context.Context, userID string) (int64, error)
	MarkRead(ctx context.Context, id uuid.UUID, userID string) error
	MarkAllRead(ctx context.Context, userID string) error
}

type notificationService struct {
	repo      notifRepo.NotificationRepository
	publisher Publisher
	log       logrus.FieldLogger
}

func NewNotificationService(repo notifRepo.NotificationRepository, publisher Publisher, log logrus.FieldLogger) NotificationService {
	return &notificationService{
		repo:      repo,
		publisher: publisher,
		log:       log,
	}
}

// Notify stores the notification and then pushes it live. Only the store
// write can fail the call; publishing is logged and dropped.
func (s *notificationService) Notify(ctx context.Context, msg Message) error {
	if msg.UserID == "" {
		return apperror.InvalidInput("notification recipient is required")
	}
	if !msg.Type.IsValid() {
		return apperror.InvalidInput(fmt.Sprintf("unknown notification type %q", msg.Type))
	}

	notification := &entity.Notification{
		UserID:      msg.UserID,
		ComplaintID: msg.ComplaintID,
		Title:       msg.Title,
		Message:     msg.Body,
		Type:        msg.Type,
	}
	if err := s.repo.Create(ctx, notification); err != nil {
		return apperror.Dependency("failed to store notification", err)
	}

	s.publish(ctx, notification)
	return nil
}

// NotifyAll fans msg out to every recipient and reports how many were stored.
func (s *notificationService) NotifyAll(ctx context.Context, userIDs []string, msg Message) int {
	sent := 0
	seen := make(map[string]struct{}, len(userIDs))
	for _, id := range userIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		m := msg
		m.UserID = id
		if err := s.Notify(ctx, m); err != nil {
			s.log.WithError(err).WithFields(logrus.Fields{
				"user_id": id,
				"type":    msg.Type,
			}).Warn("notification fan-out failed")
			continue
		}
		sent++
	}
	return sent
}

func (s *notificationService) publish(ctx context.Context, notification *entity.Notification) {
	if s.publisher == nil {
		return
	}

	payload, err := json.Marshal(notification)
	if err != nil {
		s.log.WithError(err).Warn("failed to encode notification for live delivery")
		return
	}

	if err := s.publisher.Publish(ctx, notification.UserID, payload); err != nil {
		s.log.WithError(err).WithField("user_id", notification.UserID).Warn("failed to publish notification")
	}
}

func (s *notificationService) ListForUser(ctx context.Context, userID string, limit int) ([]entity.Notification, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}

	notifications, err := s.repo.GetByUserID(ctx, userID, limit)
	if err != nil {
		return nil, apperror.Dependency("failed to load notifications", err)
	}
	return notifications, nil
}

func (s *notificationService) UnreadCount(ctx context.Context, userID string) (int64, error) {
	count, err := s.repo.CountUnread(ctx, userID)
	if err != nil {
		return 0, apperror.Dependency("failed to count notifications", err)
	}
	return count, nil
}

// MarkRead succeeds for unknown, foreign, or already-read ids; those simply
// match nothing.
func (s *notificationService) MarkRead(ctx context.Context, id uuid.UUID, userID string) error {
	if err := s.repo.MarkAsRead(ctx, id, userID); err != nil {
		return apperror.Dependency("failed to update notification", err)
	}
	return nil
}

func (s *notificationService) MarkAllRead(ctx context.Context, userID string) error {
	if err := s.repo.MarkAllAsRead(ctx, userID); err != nil {
		return apperror.Dependency("failed to update notifications", err)
	}
	return nil
}
