package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/mentor-scheduling-api/internal/models"
)

const reminderColumns = `id, meeting_id, recipient_id, reminder_time, method, is_sent, sent_at, created_at`

// ReminderRepository exposes reminders to the external dispatcher.
type ReminderRepository struct {
	db *sqlx.DB
}

// NewReminderRepository constructs the repository.
func NewReminderRepository(db *sqlx.DB) *ReminderRepository {
	return &ReminderRepository{db: db}
}

// ListByMeeting returns a meeting's reminders ordered by fire time.
func (r *ReminderRepository) ListByMeeting(ctx context.Context, meetingID string) ([]models.Reminder, error) {
	query := `SELECT ` + reminderColumns + ` FROM reminders WHERE meeting_id = $1 ORDER BY reminder_time ASC`
	var reminders []models.Reminder
	if err := r.db.SelectContext(ctx, &reminders, query, meetingID); err != nil {
		return nil, fmt.Errorf("list meeting reminders: %w", err)
	}
	return reminders, nil
}

// ListDue returns unsent reminders whose time has passed, skipping meetings
// that are no longer active.
func (r *ReminderRepository) ListDue(ctx context.Context, now time.Time, limit int) ([]models.Reminder, error) {
	const query = `SELECT r.id, r.meeting_id, r.recipient_id, r.reminder_time, r.method, r.is_sent, r.sent_at, r.created_at
FROM reminders r
JOIN meetings m ON m.id = r.meeting_id
WHERE r.is_sent = FALSE AND r.reminder_time <= $1 AND m.status IN ('scheduled', 'confirmed')
ORDER BY r.reminder_time ASC
LIMIT $2`
	var reminders []models.Reminder
	if err := r.db.SelectContext(ctx, &reminders, query, now, limit); err != nil {
		return nil, fmt.Errorf("list due reminders: %w", err)
	}
	return reminders, nil
}

// MarkSent flags a reminder as delivered and marks its meeting as reminded.
// Repeated calls keep the first sent_at.
func (r *ReminderRepository) MarkSent(ctx context.Context, id string, sentAt time.Time) (reminder *models.Reminder, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin reminder transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	query := `UPDATE reminders SET is_sent = TRUE, sent_at = COALESCE(sent_at, $2) WHERE id = $1 RETURNING ` + reminderColumns
	var updated models.Reminder
	if err = tx.GetContext(ctx, &updated, query, id, sentAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("mark reminder sent: %w", err)
	}

	if _, err = tx.ExecContext(ctx, `UPDATE meetings SET reminder_sent = TRUE, updated_at = $2 WHERE id = $1`, updated.MeetingID, sentAt); err != nil {
		return nil, fmt.Errorf("flag meeting reminded: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit reminder: %w", err)
	}
	return &updated, nil
}
