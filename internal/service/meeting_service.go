package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/mentor-scheduling-api/internal/dto"
	"github.com/noah-isme/mentor-scheduling-api/internal/models"
	"github.com/noah-isme/mentor-scheduling-api/internal/repository"
	"github.com/noah-isme/mentor-scheduling-api/internal/scheduling"
	appErrors "github.com/noah-isme/mentor-scheduling-api/pkg/errors"
	"github.com/noah-isme/mentor-scheduling-api/pkg/keylock"
)

const conflictMessage = "this time slot conflicts with an existing meeting"

type meetingRepository interface {
	FindByID(ctx context.Context, id string) (*models.Meeting, error)
	List(ctx context.Context, filter models.MeetingFilter) ([]models.Meeting, error)
	ListActiveOverlapping(ctx context.Context, userID string, start, end time.Time) ([]models.Meeting, error)
	CreateWithReminders(ctx context.Context, meeting *models.Meeting, reminders []models.Reminder) error
	UpdateGuarded(ctx context.Context, meeting *models.Meeting, base models.MeetingVersion, reminders []models.Reminder) error
	UpdateStatus(ctx context.Context, id string, status models.MeetingStatus) (*models.Meeting, error)
}

type userDirectory interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

type notificationSink interface {
	Notify(ctx context.Context, notification models.Notification)
}

// Requester is the authenticated caller of a meeting operation.
type Requester struct {
	UserID string
	Role   models.UserRole
}

// RequesterRole is the capacity in which a requester acts on one meeting.
type RequesterRole int

const (
	RequesterOutsider RequesterRole = iota
	RequesterMentor
	RequesterStudent
	RequesterAdmin
)

func (r RequesterRole) String() string {
	switch r {
	case RequesterMentor:
		return "mentor"
	case RequesterStudent:
		return "student"
	case RequesterAdmin:
		return "admin"
	}
	return "outsider"
}

// Participant reports whether the requester is the mentor or the student.
func (r RequesterRole) Participant() bool {
	return r == RequesterMentor || r == RequesterStudent
}

// ResolveRequester decides once how the requester relates to a meeting's
// participants. Participation wins over the admin role.
func ResolveRequester(req Requester, mentorID, studentID string) RequesterRole {
	switch {
	case req.UserID == "":
		return RequesterOutsider
	case req.UserID == mentorID:
		return RequesterMentor
	case req.UserID == studentID:
		return RequesterStudent
	case req.Role == models.RoleAdmin:
		return RequesterAdmin
	}
	return RequesterOutsider
}

// MeetingOptions tunes the meeting service.
type MeetingOptions struct {
	Policy       scheduling.ReminderPolicy
	Metrics      *MetricsService
	Locks        *keylock.Locker
	QueryTimeout time.Duration
	Now          func() time.Time
}

// MeetingService implements the meeting lifecycle.
type MeetingService struct {
	repo          meetingRepository
	users         userDirectory
	notifications notificationSink
	validator     *validator.Validate
	logger        *zap.Logger

	policy       scheduling.ReminderPolicy
	metrics      *MetricsService
	locks        *keylock.Locker
	queryTimeout time.Duration
	now          func() time.Time
}

// NewMeetingService constructs the service. notifications may be nil.
func NewMeetingService(repo meetingRepository, users userDirectory, notifications notificationSink, validate *validator.Validate, logger *zap.Logger, opts MeetingOptions) *MeetingService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Policy == nil {
		opts.Policy = scheduling.DefaultReminderPolicy
	}
	if opts.Locks == nil {
		opts.Locks = keylock.New()
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Now().UTC() }
	}
	registerSchedulingValidations(validate)
	return &MeetingService{
		repo:          repo,
		users:         users,
		notifications: notifications,
		validator:     validate,
		logger:        logger,
		policy:        opts.Policy,
		metrics:       opts.Metrics,
		locks:         opts.Locks,
		queryTimeout:  opts.QueryTimeout,
		now:           opts.Now,
	}
}

// Schedule books a meeting after checking both participants for collisions.
func (s *MeetingService) Schedule(ctx context.Context, requester Requester, req dto.ScheduleMeetingRequest) (*models.Meeting, error) {
	role := ResolveRequester(requester, req.MentorID, req.StudentID)
	if role == RequesterOutsider {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the mentor, the student or an admin can schedule this meeting")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid meeting payload")
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if err := s.ensureUserRole(ctx, req.MentorID, models.RoleMentor); err != nil {
		return nil, err
	}
	if err := s.ensureUserRole(ctx, req.StudentID, models.RoleStudent); err != nil {
		return nil, err
	}

	meeting := &models.Meeting{
		ID:          uuid.NewString(),
		MentorID:    req.MentorID,
		StudentID:   req.StudentID,
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		StartTime:   req.StartTime.UTC(),
		EndTime:     req.EndTime.UTC(),
		Status:      models.MeetingStatusScheduled,
		MeetingType: models.MeetingType(req.MeetingType),
		Location:    trimmed(req.Location),
		MeetingLink: trimmed(req.MeetingLink),
		CreatedBy:   requester.UserID,
	}
	if err := validateMeetingShape(meeting); err != nil {
		return nil, err
	}

	unlock := s.locks.LockAll(meeting.MentorID, meeting.StudentID)
	defer unlock()

	if err := s.ensureFree(ctx, meeting); err != nil {
		return nil, err
	}

	now := s.now()
	meeting.CreatedAt = now
	meeting.UpdatedAt = now
	reminders := s.policy.Materialize(*meeting, now)
	if err := s.repo.CreateWithReminders(ctx, meeting, reminders); err != nil {
		return nil, s.storeError(err, "failed to schedule meeting")
	}

	s.metrics.RecordMeetingScheduled(string(meeting.MeetingType))
	s.logger.Info("meeting scheduled",
		zap.String("meeting_id", meeting.ID),
		zap.String("mentor_id", meeting.MentorID),
		zap.String("student_id", meeting.StudentID),
		zap.String("requester_role", role.String()),
		zap.Int("reminders", len(reminders)),
	)

	when := meeting.StartTime.Format(time.RFC1123)
	s.notifyParticipants(ctx, meeting, "New meeting scheduled", fmt.Sprintf("%q is scheduled for %s", meeting.Title, when))
	return meeting, nil
}

// Update applies a partial patch. Moving the meeting re-runs collision
// detection excluding the meeting itself; status changes follow the lifecycle.
func (s *MeetingService) Update(ctx context.Context, requester Requester, meetingID string, patch dto.UpdateMeetingRequest) (*models.Meeting, error) {
	if err := s.validator.Struct(patch); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid meeting update")
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	unlockMeeting := s.locks.Lock(meetingLockKey(meetingID))
	defer unlockMeeting()

	current, err := s.find(ctx, meetingID)
	if err != nil {
		return nil, err
	}
	if !ResolveRequester(requester, current.MentorID, current.StudentID).Participant() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only meeting participants can update it")
	}
	if patch.Empty() {
		return current, nil
	}

	updated, err := applyPatch(*current, patch)
	if err != nil {
		return nil, err
	}
	moved := patch.TimeChanged() && (!updated.StartTime.Equal(current.StartTime) || !updated.EndTime.Equal(current.EndTime))
	if moved && !current.Status.Active() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("a %s meeting cannot be moved", current.Status))
	}

	var reminders []models.Reminder
	if moved {
		unlock := s.locks.LockAll(updated.MentorID, updated.StudentID)
		defer unlock()
		if updated.Status.Active() {
			if err := s.ensureFree(ctx, &updated); err != nil {
				return nil, err
			}
		}
		reminders = s.policy.Materialize(updated, s.now())
	}

	if err := s.repo.UpdateGuarded(ctx, &updated, current.Version(), reminders); err != nil {
		return nil, s.storeError(err, "failed to update meeting")
	}

	if updated.Status != current.Status {
		s.metrics.RecordStatusChange(string(updated.Status))
	}
	s.logger.Info("meeting updated",
		zap.String("meeting_id", updated.ID),
		zap.Bool("moved", moved),
		zap.String("status", string(updated.Status)),
	)
	if moved || updated.Status != current.Status {
		s.notifyCounterpart(ctx, requester.UserID, &updated, "Meeting updated",
			fmt.Sprintf("%q is now %s for %s", updated.Title, updated.Status, updated.StartTime.Format(time.RFC1123)))
	}
	return &updated, nil
}

// Cancel sets the meeting to cancelled regardless of its current status.
func (s *MeetingService) Cancel(ctx context.Context, requester Requester, meetingID string) (*models.Meeting, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	unlockMeeting := s.locks.Lock(meetingLockKey(meetingID))
	defer unlockMeeting()

	current, err := s.find(ctx, meetingID)
	if err != nil {
		return nil, err
	}
	if !ResolveRequester(requester, current.MentorID, current.StudentID).Participant() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only meeting participants can cancel it")
	}
	if scheduling.Terminal(current.Status) {
		s.logger.Warn("cancelling a meeting in a terminal status",
			zap.String("meeting_id", current.ID),
			zap.String("status", string(current.Status)),
		)
	}

	meeting, err := s.repo.UpdateStatus(ctx, meetingID, models.MeetingStatusCancelled)
	if err != nil {
		return nil, s.storeError(err, "failed to cancel meeting")
	}

	s.metrics.RecordStatusChange(string(models.MeetingStatusCancelled))
	s.logger.Info("meeting cancelled", zap.String("meeting_id", meeting.ID), zap.String("by", requester.UserID))
	s.notifyParticipants(ctx, meeting, "Meeting cancelled", fmt.Sprintf("%q on %s was cancelled", meeting.Title, meeting.StartTime.Format(time.RFC1123)))
	return meeting, nil
}

// Get returns a meeting visible to its participants and admins.
func (s *MeetingService) Get(ctx context.Context, requester Requester, meetingID string) (*models.Meeting, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	meeting, err := s.find(ctx, meetingID)
	if err != nil {
		return nil, err
	}
	if ResolveRequester(requester, meeting.MentorID, meeting.StudentID) == RequesterOutsider {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not a participant of this meeting")
	}
	return meeting, nil
}

// ListMine returns the requester's meetings ordered by start time.
func (s *MeetingService) ListMine(ctx context.Context, requester Requester, query dto.MeetingListQuery) ([]models.Meeting, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid status filter")
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	filter := models.MeetingFilter{ParticipantID: requester.UserID}
	for _, raw := range query.Status {
		filter.Statuses = append(filter.Statuses, models.MeetingStatus(raw))
	}
	meetings, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list meetings")
	}
	if meetings == nil {
		meetings = []models.Meeting{}
	}
	return meetings, nil
}

func (s *MeetingService) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.queryTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.queryTimeout)
}

func (s *MeetingService) find(ctx context.Context, id string) (*models.Meeting, error) {
	meeting, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "meeting not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load meeting")
	}
	return meeting, nil
}

func (s *MeetingService) ensureUserRole(ctx context.Context, userID string, want models.UserRole) error {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("%s %s does not exist", want, userID))
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve participant")
	}
	if user.Role != want {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("user %s is not a %s", userID, want))
	}
	if !user.Active {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("%s %s is inactive", want, userID))
	}
	return nil
}

// ensureFree checks the mentor side, then the student side.
func (s *MeetingService) ensureFree(ctx context.Context, meeting *models.Meeting) error {
	sides := []struct {
		name   string
		userID string
	}{
		{"mentor", meeting.MentorID},
		{"student", meeting.StudentID},
	}
	for _, side := range sides {
		existing, err := s.repo.ListActiveOverlapping(ctx, side.userID, meeting.StartTime, meeting.EndTime)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check meeting conflicts")
		}
		if hits := scheduling.Collisions(meeting.StartTime, meeting.EndTime, existing, meeting.ID); len(hits) > 0 {
			ids := make([]string, len(hits))
			for i, m := range hits {
				ids[i] = m.ID
			}
			return s.conflict(side.name, ids)
		}
	}
	return nil
}

func (s *MeetingService) conflict(side string, ids []string) error {
	s.metrics.RecordMeetingConflict(side)
	detail := &models.MeetingConflictError{Message: conflictMessage, Side: side, MeetingIDs: ids}
	err := appErrors.Wrap(detail, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, conflictMessage)
	err.Details = detail
	return err
}

func (s *MeetingService) storeError(err error, message string) error {
	var overlap *repository.OverlapError
	switch {
	case errors.As(err, &overlap):
		return s.conflict("store", overlap.MeetingIDs)
	case errors.Is(err, repository.ErrMeetingOverlap):
		return s.conflict("store", nil)
	case errors.Is(err, repository.ErrMeetingChanged):
		s.metrics.RecordMeetingConflict("stale")
		return appErrors.Clone(appErrors.ErrConflict, "meeting was changed by another request, reload and retry")
	case errors.Is(err, sql.ErrNoRows):
		return appErrors.Clone(appErrors.ErrNotFound, "meeting not found")
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}

// meetingLockKey keeps meeting keys apart from the participant keys Schedule locks.
func meetingLockKey(meetingID string) string {
	return "meeting:" + meetingID
}

func (s *MeetingService) notifyParticipants(ctx context.Context, meeting *models.Meeting, title, message string) {
	if s.notifications == nil {
		return
	}
	for _, userID := range []string{meeting.MentorID, meeting.StudentID} {
		s.notifications.Notify(ctx, newMeetingNotification(userID, meeting.ID, title, message))
	}
}

func (s *MeetingService) notifyCounterpart(ctx context.Context, actorID string, meeting *models.Meeting, title, message string) {
	if s.notifications == nil {
		return
	}
	target := meeting.StudentID
	if actorID == meeting.StudentID {
		target = meeting.MentorID
	}
	s.notifications.Notify(ctx, newMeetingNotification(target, meeting.ID, title, message))
}

func newMeetingNotification(userID, meetingID, title, message string) models.Notification {
	related := meetingID
	return models.Notification{UserID: userID, Title: title, Message: message, RelatedMeetingID: &related}
}

func applyPatch(m models.Meeting, patch dto.UpdateMeetingRequest) (models.Meeting, error) {
	if patch.Title != nil {
		m.Title = strings.TrimSpace(*patch.Title)
	}
	if patch.Description != nil {
		m.Description = *patch.Description
	}
	if patch.StartTime != nil {
		m.StartTime = patch.StartTime.UTC()
	}
	if patch.EndTime != nil {
		m.EndTime = patch.EndTime.UTC()
	}
	if patch.MeetingType != nil {
		m.MeetingType = models.MeetingType(*patch.MeetingType)
	}
	if patch.Location != nil {
		m.Location = trimmed(patch.Location)
	}
	if patch.MeetingLink != nil {
		m.MeetingLink = trimmed(patch.MeetingLink)
	}
	if patch.Status != nil {
		next := models.MeetingStatus(*patch.Status)
		if !scheduling.CanTransition(m.Status, next) {
			return m, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("cannot change status from %s to %s", m.Status, next))
		}
		m.Status = next
	}
	if err := validateMeetingShape(&m); err != nil {
		return m, err
	}
	return m, nil
}

func validateMeetingShape(m *models.Meeting) error {
	if m.Title == "" {
		return appErrors.Clone(appErrors.ErrValidation, "title is required")
	}
	if m.StartTime.IsZero() || m.EndTime.IsZero() {
		return appErrors.Clone(appErrors.ErrValidation, "start_time and end_time are required")
	}
	if !m.StartTime.Before(m.EndTime) {
		return appErrors.Clone(appErrors.ErrValidation, "start_time must be before end_time")
	}
	switch m.MeetingType {
	case models.MeetingTypeInPerson:
		if m.Location == nil {
			return appErrors.Clone(appErrors.ErrValidation, "location is required for in-person meetings")
		}
	case models.MeetingTypeVideo:
		if m.MeetingLink == nil {
			return appErrors.Clone(appErrors.ErrValidation, "meeting_link is required for video meetings")
		}
	case models.MeetingTypePhone:
	default:
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown meeting type %q", m.MeetingType))
	}
	return nil
}

func trimmed(v *string) *string {
	if v == nil {
		return nil
	}
	t := strings.TrimSpace(*v)
	if t == "" {
		return nil
	}
	return &t
}
