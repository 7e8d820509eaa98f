package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/mentor-scheduling-api/internal/models"
)

// ErrMeetingOverlap is returned when a guarded write finds an active meeting
// already occupying the range for one of the participants.
var ErrMeetingOverlap = errors.New("meeting overlaps an active meeting")

// ErrMeetingChanged is returned by UpdateGuarded when the stored row no longer
// matches the version the caller read.
var ErrMeetingChanged = errors.New("meeting changed since it was read")

// OverlapError carries the meetings found by the in-transaction re-check.
type OverlapError struct {
	MeetingIDs []string
}

func (e *OverlapError) Error() string {
	return fmt.Sprintf("%s: %s", ErrMeetingOverlap.Error(), strings.Join(e.MeetingIDs, ","))
}

func (e *OverlapError) Unwrap() error { return ErrMeetingOverlap }

const meetingColumns = `id, mentor_id, student_id, title, description, start_time, end_time, status, meeting_type, location, meeting_link, reminder_sent, created_by, created_at, updated_at`

// MeetingRepository persists meetings and the reminders created with them.
type MeetingRepository struct {
	db *sqlx.DB
}

// NewMeetingRepository constructs the repository.
func NewMeetingRepository(db *sqlx.DB) *MeetingRepository {
	return &MeetingRepository{db: db}
}

// FindByID returns a meeting by identifier.
func (r *MeetingRepository) FindByID(ctx context.Context, id string) (*models.Meeting, error) {
	query := `SELECT ` + meetingColumns + ` FROM meetings WHERE id = $1`
	var meeting models.Meeting
	if err := r.db.GetContext(ctx, &meeting, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find meeting: %w", err)
	}
	return &meeting, nil
}

// List returns meetings matching the filter ordered by start time.
func (r *MeetingRepository) List(ctx context.Context, filter models.MeetingFilter) ([]models.Meeting, error) {
	var (
		where []string
		args  []interface{}
	)
	if filter.ParticipantID != "" {
		args = append(args, filter.ParticipantID)
		where = append(where, fmt.Sprintf("(mentor_id = $%d OR student_id = $%d)", len(args), len(args)))
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, s := range filter.Statuses {
			statuses[i] = string(s)
		}
		args = append(args, pq.Array(statuses))
		where = append(where, fmt.Sprintf("status = ANY($%d)", len(args)))
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		where = append(where, fmt.Sprintf("start_time >= $%d", len(args)))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		where = append(where, fmt.Sprintf("start_time < $%d", len(args)))
	}

	query := `SELECT ` + meetingColumns + ` FROM meetings`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY start_time ASC"

	var meetings []models.Meeting
	if err := r.db.SelectContext(ctx, &meetings, query, args...); err != nil {
		return nil, fmt.Errorf("list meetings: %w", err)
	}
	return meetings, nil
}

// ListActiveOverlapping returns active meetings of userID intersecting [start, end).
func (r *MeetingRepository) ListActiveOverlapping(ctx context.Context, userID string, start, end time.Time) ([]models.Meeting, error) {
	query := `SELECT ` + meetingColumns + ` FROM meetings
		WHERE (mentor_id = $1 OR student_id = $1)
		  AND status IN ('scheduled', 'confirmed')
		  AND start_time < $2 AND end_time > $3
		ORDER BY start_time ASC`
	var meetings []models.Meeting
	if err := r.db.SelectContext(ctx, &meetings, query, userID, end, start); err != nil {
		return nil, fmt.Errorf("list overlapping meetings: %w", err)
	}
	return meetings, nil
}

// ListForMentorBetween returns the mentor's active meetings overlapping [from, to).
func (r *MeetingRepository) ListForMentorBetween(ctx context.Context, mentorID string, from, to time.Time) ([]models.Meeting, error) {
	query := `SELECT ` + meetingColumns + ` FROM meetings
		WHERE mentor_id = $1
		  AND status IN ('scheduled', 'confirmed')
		  AND start_time < $2 AND end_time > $3
		ORDER BY start_time ASC`
	var meetings []models.Meeting
	if err := r.db.SelectContext(ctx, &meetings, query, mentorID, to, from); err != nil {
		return nil, fmt.Errorf("list mentor meetings: %w", err)
	}
	return meetings, nil
}

// CreateWithReminders inserts a meeting and its reminders in one transaction.
// Both participants are serialised with transaction-scoped advisory locks and
// the overlap check is repeated under those locks.
func (r *MeetingRepository) CreateWithReminders(ctx context.Context, meeting *models.Meeting, reminders []models.Reminder) (err error) {
	if meeting.ID == "" {
		meeting.ID = uuid.NewString()
	}
	now := time.Now().UTC().Truncate(time.Microsecond)
	if meeting.CreatedAt.IsZero() {
		meeting.CreatedAt = now
	}
	meeting.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin meeting transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = lockParticipants(ctx, tx, meeting.MentorID, meeting.StudentID); err != nil {
		return err
	}
	if err = ensureNoOverlap(ctx, tx, meeting, ""); err != nil {
		return err
	}

	const insertMeeting = `INSERT INTO meetings (id, mentor_id, student_id, title, description, start_time, end_time, status, meeting_type, location, meeting_link, reminder_sent, created_by, created_at, updated_at)
VALUES (:id, :mentor_id, :student_id, :title, :description, :start_time, :end_time, :status, :meeting_type, :location, :meeting_link, :reminder_sent, :created_by, :created_at, :updated_at)`
	if _, err = tx.NamedExecContext(ctx, insertMeeting, meeting); err != nil {
		return fmt.Errorf("insert meeting: %w", err)
	}

	if err = insertReminders(ctx, tx, meeting.ID, reminders); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit meeting: %w", err)
	}
	return nil
}

// UpdateGuarded writes the mutable meeting fields. The row is locked first
// and must still match base, otherwise ErrMeetingChanged is returned. When
// reminders is non-nil the meeting was moved: the overlap check runs again
// excluding the meeting itself and unsent reminders are replaced.
func (r *MeetingRepository) UpdateGuarded(ctx context.Context, meeting *models.Meeting, base models.MeetingVersion, reminders []models.Reminder) (err error) {
	meeting.UpdatedAt = time.Now().UTC().Truncate(time.Microsecond)

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin meeting update: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var stored models.MeetingVersion
	if err = tx.GetContext(ctx, &stored, `SELECT status, updated_at FROM meetings WHERE id = $1 FOR UPDATE`, meeting.ID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return err
		}
		return fmt.Errorf("lock meeting: %w", err)
	}
	if !stored.Matches(base) {
		err = ErrMeetingChanged
		return err
	}

	moved := reminders != nil
	if moved {
		if err = lockParticipants(ctx, tx, meeting.MentorID, meeting.StudentID); err != nil {
			return err
		}
		if meeting.Status.Active() {
			if err = ensureNoOverlap(ctx, tx, meeting, meeting.ID); err != nil {
				return err
			}
		}
	}

	const updateMeeting = `UPDATE meetings SET title = :title, description = :description, start_time = :start_time, end_time = :end_time,
status = :status, meeting_type = :meeting_type, location = :location, meeting_link = :meeting_link, updated_at = :updated_at
WHERE id = :id`
	res, err := tx.NamedExecContext(ctx, updateMeeting, meeting)
	if err != nil {
		return fmt.Errorf("update meeting: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		err = sql.ErrNoRows
		return err
	}

	if moved {
		if _, err = tx.ExecContext(ctx, `DELETE FROM reminders WHERE meeting_id = $1 AND is_sent = FALSE`, meeting.ID); err != nil {
			return fmt.Errorf("clear pending reminders: %w", err)
		}
		if err = insertReminders(ctx, tx, meeting.ID, reminders); err != nil {
			return err
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit meeting update: %w", err)
	}
	return nil
}

// UpdateStatus sets the status unconditionally and returns the stored row.
func (r *MeetingRepository) UpdateStatus(ctx context.Context, id string, status models.MeetingStatus) (*models.Meeting, error) {
	query := `UPDATE meetings SET status = $2, updated_at = $3 WHERE id = $1 RETURNING ` + meetingColumns
	var meeting models.Meeting
	if err := r.db.GetContext(ctx, &meeting, query, id, status, time.Now().UTC().Truncate(time.Microsecond)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("update meeting status: %w", err)
	}
	return &meeting, nil
}

func lockParticipants(ctx context.Context, tx *sqlx.Tx, ids ...string) error {
	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != "" {
			keys = append(keys, id)
		}
	}
	sort.Strings(keys)
	for _, key := range keys {
		if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, key); err != nil {
			return fmt.Errorf("lock participant %s: %w", key, err)
		}
	}
	return nil
}

func ensureNoOverlap(ctx context.Context, tx *sqlx.Tx, meeting *models.Meeting, excludeID string) error {
	query := `SELECT id FROM meetings
		WHERE (mentor_id = ANY($1) OR student_id = ANY($1))
		  AND status IN ('scheduled', 'confirmed')
		  AND start_time < $2 AND end_time > $3`
	args := []interface{}{pq.Array([]string{meeting.MentorID, meeting.StudentID}), meeting.EndTime, meeting.StartTime}
	if excludeID != "" {
		query += ` AND id <> $4`
		args = append(args, excludeID)
	}

	var ids []string
	if err := tx.SelectContext(ctx, &ids, query, args...); err != nil {
		return fmt.Errorf("check meeting overlap: %w", err)
	}
	if len(ids) > 0 {
		return &OverlapError{MeetingIDs: ids}
	}
	return nil
}

func insertReminders(ctx context.Context, tx *sqlx.Tx, meetingID string, reminders []models.Reminder) error {
	const insertReminder = `INSERT INTO reminders (id, meeting_id, recipient_id, reminder_time, method, is_sent, sent_at, created_at)
VALUES (:id, :meeting_id, :recipient_id, :reminder_time, :method, :is_sent, :sent_at, :created_at)`
	for i := range reminders {
		reminder := &reminders[i]
		if reminder.ID == "" {
			reminder.ID = uuid.NewString()
		}
		if reminder.CreatedAt.IsZero() {
			reminder.CreatedAt = time.Now().UTC()
		}
		reminder.MeetingID = meetingID
		if _, err := tx.NamedExecContext(ctx, insertReminder, reminder); err != nil {
			return fmt.Errorf("insert reminder: %w", err)
		}
	}
	return nil
}
