package models

import "time"

// Notification is an in-app message produced by meeting lifecycle events.
type Notification struct {
	ID               string    `db:"id" json:"id"`
	UserID           string    `db:"user_id" json:"user_id"`
	Title            string    `db:"title" json:"title"`
	Message          string    `db:"message" json:"message"`
	RelatedMeetingID *string   `db:"related_meeting_id" json:"related_meeting_id,omitempty"`
	IsRead           bool      `db:"is_read" json:"is_read"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
}
