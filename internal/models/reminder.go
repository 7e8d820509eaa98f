package models

import "time"

// ReminderMethod is the channel a downstream dispatcher should use.
type ReminderMethod string

const (
	ReminderMethodEmail        ReminderMethod = "email"
	ReminderMethodNotification ReminderMethod = "notification"
	ReminderMethodSMS          ReminderMethod = "sms"
)

// Reminder is a precomputed delivery obligation tied to a meeting.
type Reminder struct {
	ID           string         `db:"id" json:"id"`
	MeetingID    string         `db:"meeting_id" json:"meeting_id"`
	RecipientID  string         `db:"recipient_id" json:"recipient_id"`
	ReminderTime time.Time      `db:"reminder_time" json:"reminder_time"`
	Method       ReminderMethod `db:"method" json:"method"`
	IsSent       bool           `db:"is_sent" json:"is_sent"`
	SentAt       *time.Time     `db:"sent_at" json:"sent_at,omitempty"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
}
