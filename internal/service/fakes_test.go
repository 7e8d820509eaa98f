package service

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"github.com/noah-isme/mentor-scheduling-api/internal/models"
	"github.com/noah-isme/mentor-scheduling-api/internal/repository"
	"github.com/noah-isme/mentor-scheduling-api/internal/scheduling"
)

type fakeMeetingRepo struct {
	mu        sync.Mutex
	meetings  map[string]models.Meeting
	reminders map[string][]models.Reminder
	createErr error
	// checkDelay widens the window between the collision read and the write.
	checkDelay time.Duration
	// beforeUpdate runs once, after the caller's read and before UpdateGuarded writes.
	beforeUpdate func()
	clock        int64
}

func newFakeMeetingRepo() *fakeMeetingRepo {
	return &fakeMeetingRepo{meetings: map[string]models.Meeting{}, reminders: map[string][]models.Reminder{}}
}

func (f *fakeMeetingRepo) seed(m models.Meeting) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.meetings[m.ID] = m
}

func (f *fakeMeetingRepo) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.meetings)
}

func (f *fakeMeetingRepo) FindByID(ctx context.Context, id string) (*models.Meeting, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.meetings[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &m, nil
}

func (f *fakeMeetingRepo) List(ctx context.Context, filter models.MeetingFilter) ([]models.Meeting, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Meeting
	for _, m := range f.meetings {
		if filter.ParticipantID != "" && !m.HasParticipant(filter.ParticipantID) {
			continue
		}
		if len(filter.Statuses) > 0 {
			match := false
			for _, s := range filter.Statuses {
				if s == m.Status {
					match = true
				}
			}
			if !match {
				continue
			}
		}
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out, nil
}

func (f *fakeMeetingRepo) ListActiveOverlapping(ctx context.Context, userID string, start, end time.Time) ([]models.Meeting, error) {
	f.mu.Lock()
	var out []models.Meeting
	for _, m := range f.meetings {
		if m.HasParticipant(userID) && m.Status.Active() && scheduling.Overlaps(m.StartTime, m.EndTime, start, end) {
			out = append(out, m)
		}
	}
	f.mu.Unlock()
	if f.checkDelay > 0 {
		time.Sleep(f.checkDelay)
	}
	return out, nil
}

func (f *fakeMeetingRepo) ListForMentorBetween(ctx context.Context, mentorID string, from, to time.Time) ([]models.Meeting, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Meeting
	for _, m := range f.meetings {
		if m.MentorID == mentorID && m.Status.Active() && scheduling.Overlaps(m.StartTime, m.EndTime, from, to) {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeMeetingRepo) CreateWithReminders(ctx context.Context, meeting *models.Meeting, reminders []models.Reminder) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.meetings[meeting.ID] = *meeting
	f.reminders[meeting.ID] = append([]models.Reminder(nil), reminders...)
	return nil
}

func (f *fakeMeetingRepo) UpdateGuarded(ctx context.Context, meeting *models.Meeting, base models.MeetingVersion, reminders []models.Reminder) error {
	f.mu.Lock()
	hook := f.beforeUpdate
	f.beforeUpdate = nil
	f.mu.Unlock()
	if hook != nil {
		hook()
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.meetings[meeting.ID]
	if !ok {
		return sql.ErrNoRows
	}
	if !stored.Version().Matches(base) {
		return repository.ErrMeetingChanged
	}
	meeting.UpdatedAt = f.tick()
	f.meetings[meeting.ID] = *meeting
	if reminders != nil {
		var kept []models.Reminder
		for _, r := range f.reminders[meeting.ID] {
			if r.IsSent {
				kept = append(kept, r)
			}
		}
		f.reminders[meeting.ID] = append(kept, reminders...)
	}
	return nil
}

// tick returns a strictly increasing timestamp; callers hold f.mu.
func (f *fakeMeetingRepo) tick() time.Time {
	f.clock++
	return time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(f.clock) * time.Microsecond)
}

func (f *fakeMeetingRepo) UpdateStatus(ctx context.Context, id string, status models.MeetingStatus) (*models.Meeting, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.meetings[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	m.Status = status
	m.UpdatedAt = f.tick()
	f.meetings[id] = m
	return &m, nil
}

type fakeUserDirectory map[string]models.User

func (d fakeUserDirectory) FindByID(ctx context.Context, id string) (*models.User, error) {
	u, ok := d[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &u, nil
}

func defaultDirectory() fakeUserDirectory {
	dir := fakeUserDirectory{
		"mentor-x":  {ID: "mentor-x", Role: models.RoleMentor, Active: true},
		"mentor-y":  {ID: "mentor-y", Role: models.RoleMentor, Active: true},
		"mentor-z":  {ID: "mentor-z", Role: models.RoleMentor, Active: false},
		"student-a": {ID: "student-a", Role: models.RoleStudent, Active: true},
		"student-b": {ID: "student-b", Role: models.RoleStudent, Active: true},
		"admin-1":   {ID: "admin-1", Role: models.RoleAdmin, Active: true},
	}
	return dir
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []models.Notification
}

func (r *recordingNotifier) Notify(ctx context.Context, n models.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
}

func (r *recordingNotifier) recipients() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.sent))
	for i, n := range r.sent {
		out[i] = n.UserID
	}
	return out
}
