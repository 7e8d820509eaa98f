package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/mentor-scheduling-api/internal/models"
	appErrors "github.com/noah-isme/mentor-scheduling-api/pkg/errors"
)

type fakeReminderRepo struct {
	reminders map[string]models.Reminder
	dueLimit  int
	dueNow    time.Time
	listErr   error
}

func (f *fakeReminderRepo) ListByMeeting(ctx context.Context, meetingID string) ([]models.Reminder, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []models.Reminder
	for _, r := range f.reminders {
		if r.MeetingID == meetingID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeReminderRepo) ListDue(ctx context.Context, now time.Time, limit int) ([]models.Reminder, error) {
	f.dueNow, f.dueLimit = now, limit
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []models.Reminder
	for _, r := range f.reminders {
		if !r.IsSent && !r.ReminderTime.After(now) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeReminderRepo) MarkSent(ctx context.Context, id string, sentAt time.Time) (*models.Reminder, error) {
	r, ok := f.reminders[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	if !r.IsSent {
		r.IsSent = true
		r.SentAt = &sentAt
		f.reminders[id] = r
	}
	return &r, nil
}

func TestReminderServiceListDue(t *testing.T) {
	now := may1(8, 0)
	repo := &fakeReminderRepo{reminders: map[string]models.Reminder{
		"r1": {ID: "r1", MeetingID: "m1", ReminderTime: may1(7, 0)},
		"r2": {ID: "r2", MeetingID: "m1", ReminderTime: may1(9, 0)},
		"r3": {ID: "r3", MeetingID: "m1", ReminderTime: may1(6, 0), IsSent: true},
	}}
	svc := NewReminderService(repo, NewMetricsService(), zap.NewNop(), 50)
	svc.now = func() time.Time { return now }

	due, err := svc.ListDue(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, "r1", due[0].ID)
	assert.Equal(t, 50, repo.dueLimit)
	assert.Equal(t, now, repo.dueNow)

	_, err = svc.ListDue(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, 10, repo.dueLimit)

	_, err = svc.ListDue(context.Background(), 5000)
	require.NoError(t, err)
	assert.Equal(t, 50, repo.dueLimit)
}

func TestReminderServiceMarkSent(t *testing.T) {
	repo := &fakeReminderRepo{reminders: map[string]models.Reminder{
		"r1": {ID: "r1", MeetingID: "m1", ReminderTime: may1(7, 0)},
	}}
	svc := NewReminderService(repo, NewMetricsService(), zap.NewNop(), 0)
	first := may1(7, 1)
	svc.now = func() time.Time { return first }

	reminder, err := svc.MarkSent(context.Background(), "r1")
	require.NoError(t, err)
	assert.True(t, reminder.IsSent)
	assert.Equal(t, first, *reminder.SentAt)

	svc.now = func() time.Time { return first.Add(time.Hour) }
	again, err := svc.MarkSent(context.Background(), "r1")
	require.NoError(t, err)
	assert.Equal(t, first, *again.SentAt, "acknowledging twice keeps the original timestamp")

	_, err = svc.MarkSent(context.Background(), "missing")
	assertAppCode(t, err, appErrors.ErrNotFound)
}

func TestReminderServiceListForMeeting(t *testing.T) {
	repo := &fakeReminderRepo{reminders: map[string]models.Reminder{}}
	svc := NewReminderService(repo, nil, nil, 0)

	reminders, err := svc.ListForMeeting(context.Background(), "m1")
	require.NoError(t, err)
	assert.NotNil(t, reminders)
	assert.Empty(t, reminders)

	repo.listErr = errors.New("db down")
	_, err = svc.ListForMeeting(context.Background(), "m1")
	assertAppCode(t, err, appErrors.ErrInternal)
}
