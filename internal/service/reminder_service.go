package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/mentor-scheduling-api/internal/models"
	appErrors "github.com/noah-isme/mentor-scheduling-api/pkg/errors"
)

type reminderRepository interface {
	ListByMeeting(ctx context.Context, meetingID string) ([]models.Reminder, error)
	ListDue(ctx context.Context, now time.Time, limit int) ([]models.Reminder, error)
	MarkSent(ctx context.Context, id string, sentAt time.Time) (*models.Reminder, error)
}

// ReminderService serves precomputed reminders to the external dispatcher.
type ReminderService struct {
	repo       reminderRepository
	metrics    *MetricsService
	logger     *zap.Logger
	batchLimit int
	now        func() time.Time
}

// NewReminderService constructs the service. batchLimit caps ListDue.
func NewReminderService(repo reminderRepository, metrics *MetricsService, logger *zap.Logger, batchLimit int) *ReminderService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if batchLimit <= 0 {
		batchLimit = 100
	}
	return &ReminderService{repo: repo, metrics: metrics, logger: logger, batchLimit: batchLimit, now: func() time.Time { return time.Now().UTC() }}
}

// ListDue returns unsent reminders due by now, oldest first.
func (s *ReminderService) ListDue(ctx context.Context, limit int) ([]models.Reminder, error) {
	if limit <= 0 || limit > s.batchLimit {
		limit = s.batchLimit
	}
	reminders, err := s.repo.ListDue(ctx, s.now(), limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list due reminders")
	}
	if reminders == nil {
		reminders = []models.Reminder{}
	}
	return reminders, nil
}

// ListForMeeting returns the reminders materialized for a meeting.
func (s *ReminderService) ListForMeeting(ctx context.Context, meetingID string) ([]models.Reminder, error) {
	reminders, err := s.repo.ListByMeeting(ctx, meetingID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list reminders")
	}
	if reminders == nil {
		reminders = []models.Reminder{}
	}
	return reminders, nil
}

// MarkSent records a dispatcher acknowledgement.
func (s *ReminderService) MarkSent(ctx context.Context, reminderID string) (*models.Reminder, error) {
	reminder, err := s.repo.MarkSent(ctx, reminderID, s.now())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "reminder not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark reminder sent")
	}
	s.metrics.RecordReminderSent()
	s.logger.Info("reminder sent", zap.String("reminder_id", reminder.ID), zap.String("meeting_id", reminder.MeetingID))
	return reminder, nil
}
