package service

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/mentor-scheduling-api/internal/dto"
	"github.com/noah-isme/mentor-scheduling-api/internal/models"
	appErrors "github.com/noah-isme/mentor-scheduling-api/pkg/errors"
	"github.com/noah-isme/mentor-scheduling-api/pkg/jobs"
)

const notificationJobType = "notification"

type notificationRepository interface {
	Create(ctx context.Context, notification *models.Notification) error
	ListByUser(ctx context.Context, userID string, unreadOnly bool, limit, offset int) ([]models.Notification, int, error)
}

// NotificationService is the fire-and-forget notification sink. Events are
// queued in memory and persisted by background workers.
type NotificationService struct {
	repo      notificationRepository
	queue     *jobs.Queue
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewNotificationService wires the delivery queue around repo.
func NewNotificationService(repo notificationRepository, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, cfg jobs.QueueConfig) *NotificationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &NotificationService{repo: repo, metrics: metrics, validator: validate, logger: logger}
	cfg.Logger = logger
	cfg.OnDrop = func(job jobs.Job, err error) {
		metrics.RecordNotification(NotificationResultFailed)
		logger.Error("notification dropped", zap.String("job_id", job.ID), zap.Error(err))
	}
	svc.queue = jobs.NewQueue("notifications", svc.deliver, cfg)
	return svc
}

// Start launches the delivery workers.
func (s *NotificationService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop halts the delivery workers.
func (s *NotificationService) Stop() {
	s.queue.Stop()
}

// Notify queues a notification. It never blocks and never fails the caller;
// a full or stopped queue is logged and counted.
func (s *NotificationService) Notify(ctx context.Context, notification models.Notification) {
	if notification.ID == "" {
		notification.ID = uuid.NewString()
	}
	if notification.CreatedAt.IsZero() {
		notification.CreatedAt = time.Now().UTC()
	}

	err := s.queue.TryEnqueue(jobs.Job{ID: notification.ID, Type: notificationJobType, Payload: notification})
	if err != nil {
		s.metrics.RecordNotification(NotificationResultDropped)
		s.logger.Warn("notification not queued",
			zap.String("user_id", notification.UserID),
			zap.String("title", notification.Title),
			zap.Error(err),
		)
		return
	}
	s.metrics.RecordNotification(NotificationResultQueued)
}

// List pages through the user's notifications.
func (s *NotificationService) List(ctx context.Context, userID string, query dto.NotificationListQuery) ([]models.Notification, *models.Pagination, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid notification query")
	}
	page := query.Page
	if page < 1 {
		page = 1
	}
	size := query.PageSize
	if size <= 0 {
		size = 20
	}

	items, total, err := s.repo.ListByUser(ctx, userID, query.Unread, size, (page-1)*size)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list notifications")
	}
	if items == nil {
		items = []models.Notification{}
	}
	return items, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

func (s *NotificationService) deliver(ctx context.Context, job jobs.Job) error {
	notification, ok := job.Payload.(models.Notification)
	if !ok {
		return fmt.Errorf("unexpected payload %T", job.Payload)
	}
	if err := s.repo.Create(ctx, &notification); err != nil {
		return err
	}
	s.metrics.RecordNotification(NotificationResultDelivered)
	return nil
}
