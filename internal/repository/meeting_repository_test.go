package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/mentor-scheduling-api/internal/models"
)

var meetingRowColumns = []string{"id", "mentor_id", "student_id", "title", "description", "start_time", "end_time", "status", "meeting_type", "location", "meeting_link", "reminder_sent", "created_by", "created_at", "updated_at"}

func sampleMeeting() *models.Meeting {
	start := time.Date(2024, 5, 6, 9, 0, 0, 0, time.UTC)
	return &models.Meeting{
		MentorID:    "mentor-x",
		StudentID:   "student-a",
		Title:       "Career chat",
		StartTime:   start,
		EndTime:     start.Add(time.Hour),
		Status:      models.MeetingStatusScheduled,
		MeetingType: models.MeetingTypePhone,
		CreatedBy:   "student-a",
	}
}

func TestMeetingRepositoryCreateWithReminders(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewMeetingRepository(db)
	meeting := sampleMeeting()
	reminders := []models.Reminder{
		{RecipientID: "mentor-x", ReminderTime: meeting.StartTime.Add(-24 * time.Hour), Method: models.ReminderMethodEmail},
		{RecipientID: "student-a", ReminderTime: meeting.StartTime.Add(-time.Hour), Method: models.ReminderMethodNotification},
	}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("SELECT pg_advisory_xact_lock(hashtext($1))")).WithArgs("mentor-x").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("SELECT pg_advisory_xact_lock(hashtext($1))")).WithArgs("student-a").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT id FROM meetings").
		WithArgs(sqlmock.AnyArg(), meeting.EndTime, meeting.StartTime).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectExec("INSERT INTO meetings").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO reminders").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO reminders").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := repo.CreateWithReminders(context.Background(), meeting, reminders)
	require.NoError(t, err)
	assert.NotEmpty(t, meeting.ID)
	for _, r := range reminders {
		assert.Equal(t, meeting.ID, r.MeetingID)
		assert.NotEmpty(t, r.ID)
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMeetingRepositoryCreateWithRemindersOverlap(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewMeetingRepository(db)
	meeting := sampleMeeting()

	mock.ExpectBegin()
	mock.ExpectExec("pg_advisory_xact_lock").WithArgs("mentor-x").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("pg_advisory_xact_lock").WithArgs("student-a").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT id FROM meetings").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("existing-1"))
	mock.ExpectRollback()

	err := repo.CreateWithReminders(context.Background(), meeting, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMeetingOverlap))
	var overlap *OverlapError
	require.ErrorAs(t, err, &overlap)
	assert.Equal(t, []string{"existing-1"}, overlap.MeetingIDs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

var lockMeetingRow = regexp.QuoteMeta("SELECT status, updated_at FROM meetings WHERE id = $1 FOR UPDATE")

func TestMeetingRepositoryUpdateGuardedMoved(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewMeetingRepository(db)
	meeting := sampleMeeting()
	meeting.ID = "meeting-1"
	readAt := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	base := models.MeetingVersion{Status: models.MeetingStatusScheduled, UpdatedAt: readAt}

	mock.ExpectBegin()
	mock.ExpectQuery(lockMeetingRow).
		WithArgs("meeting-1").
		WillReturnRows(sqlmock.NewRows([]string{"status", "updated_at"}).AddRow("scheduled", readAt))
	mock.ExpectExec("pg_advisory_xact_lock").WithArgs("mentor-x").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("pg_advisory_xact_lock").WithArgs("student-a").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT id FROM meetings .* AND id <> \$4`).
		WithArgs(sqlmock.AnyArg(), meeting.EndTime, meeting.StartTime, "meeting-1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectExec("UPDATE meetings SET title").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM reminders WHERE meeting_id = $1 AND is_sent = FALSE")).
		WithArgs("meeting-1").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("INSERT INTO reminders").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := repo.UpdateGuarded(context.Background(), meeting, base, []models.Reminder{{RecipientID: "student-a", Method: models.ReminderMethodSMS}})
	require.NoError(t, err)
	assert.True(t, meeting.UpdatedAt.After(readAt))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMeetingRepositoryUpdateGuardedMissing(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewMeetingRepository(db)
	meeting := sampleMeeting()
	meeting.ID = "ghost"

	mock.ExpectBegin()
	mock.ExpectQuery(lockMeetingRow).
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows([]string{"status", "updated_at"}))
	mock.ExpectRollback()

	err := repo.UpdateGuarded(context.Background(), meeting, meeting.Version(), nil)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMeetingRepositoryUpdateGuardedRejectsChangedStatus(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewMeetingRepository(db)
	readAt := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	meeting := sampleMeeting()
	meeting.ID = "meeting-1"
	meeting.Title = "Renamed"
	base := models.MeetingVersion{Status: models.MeetingStatusScheduled, UpdatedAt: readAt}

	mock.ExpectBegin()
	mock.ExpectQuery(lockMeetingRow).
		WithArgs("meeting-1").
		WillReturnRows(sqlmock.NewRows([]string{"status", "updated_at"}).AddRow("cancelled", readAt.Add(time.Second)))
	mock.ExpectRollback()

	err := repo.UpdateGuarded(context.Background(), meeting, base, nil)
	assert.ErrorIs(t, err, ErrMeetingChanged)
	assert.NoError(t, mock.ExpectationsWereMet(), "no UPDATE may run once the row changed")
}

func TestMeetingRepositoryUpdateGuardedRejectsChangedTimestamp(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewMeetingRepository(db)
	readAt := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	meeting := sampleMeeting()
	meeting.ID = "meeting-1"
	base := models.MeetingVersion{Status: models.MeetingStatusScheduled, UpdatedAt: readAt}

	mock.ExpectBegin()
	mock.ExpectQuery(lockMeetingRow).
		WithArgs("meeting-1").
		WillReturnRows(sqlmock.NewRows([]string{"status", "updated_at"}).AddRow("scheduled", readAt.Add(time.Millisecond)))
	mock.ExpectRollback()

	err := repo.UpdateGuarded(context.Background(), meeting, base, nil)
	assert.ErrorIs(t, err, ErrMeetingChanged)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMeetingRepositoryListFilters(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewMeetingRepository(db)

	now := time.Now().UTC()
	rows := sqlmock.NewRows(meetingRowColumns).
		AddRow("meeting-1", "mentor-x", "student-a", "Intro", "", now, now.Add(time.Hour), "scheduled", "video", nil, "https://meet.example/abc", false, "student-a", now, now)
	mock.ExpectQuery(regexp.QuoteMeta("FROM meetings WHERE (mentor_id = $1 OR student_id = $1) AND status = ANY($2) ORDER BY start_time ASC")).
		WithArgs("student-a", sqlmock.AnyArg()).
		WillReturnRows(rows)

	meetings, err := repo.List(context.Background(), models.MeetingFilter{
		ParticipantID: "student-a",
		Statuses:      []models.MeetingStatus{models.MeetingStatusScheduled},
	})
	require.NoError(t, err)
	require.Len(t, meetings, 1)
	assert.Nil(t, meetings[0].Location)
	require.NotNil(t, meetings[0].MeetingLink)
	assert.Equal(t, "https://meet.example/abc", *meetings[0].MeetingLink)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMeetingRepositoryListForMentorBetween(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewMeetingRepository(db)

	from := time.Date(2024, 5, 6, 0, 0, 0, 0, time.UTC)
	to := from.Add(24 * time.Hour)
	mock.ExpectQuery("WHERE mentor_id = \\$1 AND status IN \\('scheduled', 'confirmed'\\) AND start_time < \\$2 AND end_time > \\$3").
		WithArgs("mentor-x", to, from).
		WillReturnRows(sqlmock.NewRows(meetingRowColumns))

	meetings, err := repo.ListForMentorBetween(context.Background(), "mentor-x", from, to)
	require.NoError(t, err)
	assert.Empty(t, meetings)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMeetingRepositoryUpdateStatus(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewMeetingRepository(db)

	now := time.Now().UTC()
	rows := sqlmock.NewRows(meetingRowColumns).
		AddRow("meeting-1", "mentor-x", "student-a", "Intro", "", now, now.Add(time.Hour), "cancelled", "phone", nil, nil, false, "student-a", now, now)
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE meetings SET status = $2, updated_at = $3 WHERE id = $1 RETURNING")).
		WithArgs("meeting-1", models.MeetingStatusCancelled, sqlmock.AnyArg()).
		WillReturnRows(rows)

	meeting, err := repo.UpdateStatus(context.Background(), "meeting-1", models.MeetingStatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, models.MeetingStatusCancelled, meeting.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}
