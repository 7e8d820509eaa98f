package dto

// TimeSlotRequest is one HH:MM interval in a weekday pattern.
type TimeSlotRequest struct {
	StartTime string `json:"start_time" validate:"required,clock"`
	EndTime   string `json:"end_time" validate:"required,clock"`
	IsBooked  bool   `json:"is_booked"`
}

// DayPatternRequest describes a weekday in a SetAvailability payload.
type DayPatternRequest struct {
	Day         string            `json:"day" validate:"required,weekday"`
	IsAvailable bool              `json:"is_available"`
	TimeSlots   []TimeSlotRequest `json:"time_slots" validate:"omitempty,dive"`
}

// SetAvailabilityRequest fully replaces the caller's weekly availability.
type SetAvailabilityRequest struct {
	Days     []DayPatternRequest `json:"days" validate:"omitempty,max=7,dive"`
	Timezone string              `json:"timezone" validate:"omitempty,max=64"`
}

// AvailableSlotsQuery selects the calendar date to resolve slots for.
type AvailableSlotsQuery struct {
	Date string `form:"date" validate:"required,datetime=2006-01-02"`
}
