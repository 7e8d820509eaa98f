package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// DefaultTimezone applies when a user never stored a timezone.
const DefaultTimezone = "UTC"

// TimeSlot is a dateless HH:MM interval inside a weekday pattern. IsBooked is
// a display hint only; bookings are always derived from meetings.
type TimeSlot struct {
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	IsBooked  bool   `json:"is_booked"`
}

// DayPattern is the recurring availability for one weekday.
type DayPattern struct {
	Day         string     `json:"day"`
	IsAvailable bool       `json:"is_available"`
	TimeSlots   []TimeSlot `json:"time_slots"`
}

// Availability is a user's recurring weekly availability document.
type Availability struct {
	ID        string       `db:"id" json:"id,omitempty"`
	UserID    string       `db:"user_id" json:"user_id"`
	Days      []DayPattern `db:"-" json:"days"`
	Timezone  string       `db:"timezone" json:"timezone"`
	CreatedAt time.Time    `db:"created_at" json:"created_at,omitempty"`
	UpdatedAt time.Time    `db:"updated_at" json:"updated_at,omitempty"`
}

// AvailabilityRow mirrors the availabilities table, days held as JSONB.
type AvailabilityRow struct {
	ID        string         `db:"id"`
	UserID    string         `db:"user_id"`
	Days      types.JSONText `db:"days"`
	Timezone  string         `db:"timezone"`
	CreatedAt time.Time      `db:"created_at"`
	UpdatedAt time.Time      `db:"updated_at"`
}

// EmptyAvailability is returned for users without a stored record.
func EmptyAvailability(userID string) *Availability {
	return &Availability{UserID: userID, Days: []DayPattern{}, Timezone: DefaultTimezone}
}

// Day returns the pattern for the given lowercase weekday name.
func (a *Availability) Day(name string) (DayPattern, bool) {
	if a == nil {
		return DayPattern{}, false
	}
	for _, d := range a.Days {
		if d.Day == name {
			return d, true
		}
	}
	return DayPattern{}, false
}

// AvailableSlot is a concrete free slot on a calendar date.
type AvailableSlot struct {
	StartTime string    `json:"start_time"`
	EndTime   string    `json:"end_time"`
	IsBooked  bool      `json:"is_booked"`
	StartsAt  time.Time `json:"starts_at"`
	EndsAt    time.Time `json:"ends_at"`
}
