package dto

import "time"

// ScheduleMeetingRequest books a meeting between a mentor and a student.
type ScheduleMeetingRequest struct {
	MentorID    string    `json:"mentor_id" validate:"required"`
	StudentID   string    `json:"student_id" validate:"required,nefield=MentorID"`
	Title       string    `json:"title" validate:"required,max=200"`
	Description string    `json:"description" validate:"omitempty,max=2000"`
	StartTime   time.Time `json:"start_time" validate:"required"`
	EndTime     time.Time `json:"end_time" validate:"required"`
	MeetingType string    `json:"meeting_type" validate:"required,meeting_type"`
	Location    *string   `json:"location" validate:"omitempty,max=255"`
	MeetingLink *string   `json:"meeting_link" validate:"omitempty,url"`
}

// UpdateMeetingRequest is a partial patch; nil fields are left untouched.
type UpdateMeetingRequest struct {
	Title       *string    `json:"title" validate:"omitempty,min=1,max=200"`
	Description *string    `json:"description" validate:"omitempty,max=2000"`
	StartTime   *time.Time `json:"start_time"`
	EndTime     *time.Time `json:"end_time"`
	MeetingType *string    `json:"meeting_type" validate:"omitempty,meeting_type"`
	Location    *string    `json:"location" validate:"omitempty,max=255"`
	MeetingLink *string    `json:"meeting_link" validate:"omitempty,url"`
	Status      *string    `json:"status" validate:"omitempty,meeting_status"`
}

// Empty reports whether the patch changes nothing.
func (r UpdateMeetingRequest) Empty() bool {
	return r.Title == nil && r.Description == nil && r.StartTime == nil && r.EndTime == nil &&
		r.MeetingType == nil && r.Location == nil && r.MeetingLink == nil && r.Status == nil
}

// TimeChanged reports whether the patch moves the meeting.
func (r UpdateMeetingRequest) TimeChanged() bool {
	return r.StartTime != nil || r.EndTime != nil
}

// MeetingListQuery filters the caller's meetings.
type MeetingListQuery struct {
	Status []string `form:"status" validate:"omitempty,dive,meeting_status"`
}

// CalendarFeedResponse describes a calendar subscription link.
type CalendarFeedResponse struct {
	Token     string    `json:"token"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}
