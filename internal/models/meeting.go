package models

import "time"

// MeetingStatus tracks a meeting through its lifecycle.
type MeetingStatus string

const (
	MeetingStatusScheduled   MeetingStatus = "scheduled"
	MeetingStatusConfirmed   MeetingStatus = "confirmed"
	MeetingStatusCompleted   MeetingStatus = "completed"
	MeetingStatusCancelled   MeetingStatus = "cancelled"
	MeetingStatusRescheduled MeetingStatus = "rescheduled"
)

// Active reports whether a meeting in this status occupies its time range.
func (s MeetingStatus) Active() bool {
	return s == MeetingStatusScheduled || s == MeetingStatusConfirmed
}

// Valid reports whether s is a known status.
func (s MeetingStatus) Valid() bool {
	switch s {
	case MeetingStatusScheduled, MeetingStatusConfirmed, MeetingStatusCompleted, MeetingStatusCancelled, MeetingStatusRescheduled:
		return true
	}
	return false
}

// ActiveMeetingStatuses lists statuses that block new bookings.
var ActiveMeetingStatuses = []MeetingStatus{MeetingStatusScheduled, MeetingStatusConfirmed}

// MeetingType describes the meeting medium.
type MeetingType string

const (
	MeetingTypeInPerson MeetingType = "in-person"
	MeetingTypeVideo    MeetingType = "video"
	MeetingTypePhone    MeetingType = "phone"
)

// Meeting is a dated engagement between one mentor and one student.
type Meeting struct {
	ID           string        `db:"id" json:"id"`
	MentorID     string        `db:"mentor_id" json:"mentor_id"`
	StudentID    string        `db:"student_id" json:"student_id"`
	Title        string        `db:"title" json:"title"`
	Description  string        `db:"description" json:"description"`
	StartTime    time.Time     `db:"start_time" json:"start_time"`
	EndTime      time.Time     `db:"end_time" json:"end_time"`
	Status       MeetingStatus `db:"status" json:"status"`
	MeetingType  MeetingType   `db:"meeting_type" json:"meeting_type"`
	Location     *string       `db:"location" json:"location,omitempty"`
	MeetingLink  *string       `db:"meeting_link" json:"meeting_link,omitempty"`
	ReminderSent bool          `db:"reminder_sent" json:"reminder_sent"`
	CreatedBy    string        `db:"created_by" json:"created_by"`
	CreatedAt    time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time     `db:"updated_at" json:"updated_at"`
}

// HasParticipant reports whether userID is the mentor or the student.
func (m *Meeting) HasParticipant(userID string) bool {
	return m != nil && userID != "" && (m.MentorID == userID || m.StudentID == userID)
}

// MeetingVersion identifies the stored state a read-modify-write started from.
type MeetingVersion struct {
	Status    MeetingStatus `db:"status"`
	UpdatedAt time.Time     `db:"updated_at"`
}

// Version returns the state a guarded update must still find in storage.
func (m Meeting) Version() MeetingVersion {
	return MeetingVersion{Status: m.Status, UpdatedAt: m.UpdatedAt}
}

// Matches reports whether other describes the same stored state.
func (v MeetingVersion) Matches(other MeetingVersion) bool {
	return v.Status == other.Status && v.UpdatedAt.Equal(other.UpdatedAt)
}

// MeetingFilter narrows meeting listings.
type MeetingFilter struct {
	ParticipantID string
	Statuses      []MeetingStatus
	From          *time.Time
	To            *time.Time
}

// MeetingConflictError lists the meetings a proposed range collides with.
type MeetingConflictError struct {
	Message    string   `json:"message"`
	Side       string   `json:"side,omitempty"`
	MeetingIDs []string `json:"meeting_ids,omitempty"`
}

// Error implements the error interface for conflict errors.
func (e *MeetingConflictError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return e.Message
}
