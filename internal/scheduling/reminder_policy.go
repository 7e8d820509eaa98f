package scheduling

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/mentor-scheduling-api/internal/models"
)

// ReminderRule schedules one reminder Offset before a meeting starts.
type ReminderRule struct {
	Offset    time.Duration
	Recipient models.UserRole
	Method    models.ReminderMethod
}

// ReminderPolicy is the ordered rule set applied to every new meeting.
type ReminderPolicy []ReminderRule

// DefaultReminderPolicy gives the mentor an email a day ahead and the student
// an in-app notification an hour ahead.
var DefaultReminderPolicy = ReminderPolicy{
	{Offset: 24 * time.Hour, Recipient: models.RoleMentor, Method: models.ReminderMethodEmail},
	{Offset: time.Hour, Recipient: models.RoleStudent, Method: models.ReminderMethodNotification},
}

// ParseReminderPolicy reads "offset:recipient:method" rules separated by
// commas, e.g. "24h:mentor:email,1h:student:notification". An empty string
// yields the default policy.
func ParseReminderPolicy(raw string) (ReminderPolicy, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return append(ReminderPolicy(nil), DefaultReminderPolicy...), nil
	}
	var policy ReminderPolicy
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		fields := strings.Split(part, ":")
		if len(fields) != 3 {
			return nil, fmt.Errorf("reminder rule %q: expected offset:recipient:method", part)
		}
		offset, err := time.ParseDuration(strings.TrimSpace(fields[0]))
		if err != nil || offset < 0 {
			return nil, fmt.Errorf("reminder rule %q: invalid offset", part)
		}
		recipient := models.UserRole(strings.ToLower(strings.TrimSpace(fields[1])))
		if recipient != models.RoleMentor && recipient != models.RoleStudent {
			return nil, fmt.Errorf("reminder rule %q: recipient must be mentor or student", part)
		}
		method := models.ReminderMethod(strings.ToLower(strings.TrimSpace(fields[2])))
		switch method {
		case models.ReminderMethodEmail, models.ReminderMethodNotification, models.ReminderMethodSMS:
		default:
			return nil, fmt.Errorf("reminder rule %q: unknown method", part)
		}
		policy = append(policy, ReminderRule{Offset: offset, Recipient: recipient, Method: method})
	}
	return policy, nil
}

// Materialize builds the reminder records for meeting. IDs are assigned here
// so the meeting and its reminders can be written in one transaction.
func (p ReminderPolicy) Materialize(meeting models.Meeting, now time.Time) []models.Reminder {
	reminders := make([]models.Reminder, 0, len(p))
	for _, rule := range p {
		recipient := meeting.StudentID
		if rule.Recipient == models.RoleMentor {
			recipient = meeting.MentorID
		}
		reminders = append(reminders, models.Reminder{
			ID:           uuid.NewString(),
			MeetingID:    meeting.ID,
			RecipientID:  recipient,
			ReminderTime: meeting.StartTime.Add(-rule.Offset),
			Method:       rule.Method,
			CreatedAt:    now,
		})
	}
	return reminders
}
