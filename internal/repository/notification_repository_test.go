package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/mentor-scheduling-api/internal/models"
)

func TestNotificationRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewNotificationRepository(db)

	mock.ExpectExec("INSERT INTO notifications").WillReturnResult(sqlmock.NewResult(1, 1))

	meetingID := "meeting-1"
	notification := &models.Notification{UserID: "mentor-x", Title: "New meeting", Message: "Booked", RelatedMeetingID: &meetingID}
	require.NoError(t, repo.Create(context.Background(), notification))
	assert.NotEmpty(t, notification.ID)
	assert.False(t, notification.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNotificationRepositoryListByUserUnread(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewNotificationRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "user_id", "title", "message", "related_meeting_id", "is_read", "created_at"}).
		AddRow("n-1", "student-a", "Meeting cancelled", "Career chat was cancelled", "meeting-1", false, now)
	mock.ExpectQuery(regexp.QuoteMeta("FROM notifications WHERE user_id = $1 AND is_read = FALSE ORDER BY created_at DESC LIMIT 20 OFFSET 20")).
		WithArgs("student-a").
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND is_read = FALSE")).
		WithArgs("student-a").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(21))

	items, total, err := repo.ListByUser(context.Background(), "student-a", true, 20, 20)
	require.NoError(t, err)
	assert.Equal(t, 21, total)
	require.Len(t, items, 1)
	require.NotNil(t, items[0].RelatedMeetingID)
	assert.Equal(t, "meeting-1", *items[0].RelatedMeetingID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
