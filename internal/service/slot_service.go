package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/mentor-scheduling-api/internal/models"
	"github.com/noah-isme/mentor-scheduling-api/internal/scheduling"
	appErrors "github.com/noah-isme/mentor-scheduling-api/pkg/errors"
)

type slotMeetingRepository interface {
	ListForMentorBetween(ctx context.Context, mentorID string, from, to time.Time) ([]models.Meeting, error)
}

// SlotService projects a mentor's weekly availability onto a calendar date.
type SlotService struct {
	availability *AvailabilityService
	meetings     slotMeetingRepository
	logger       *zap.Logger
}

// NewSlotService constructs the slot resolver.
func NewSlotService(availability *AvailabilityService, meetings slotMeetingRepository, logger *zap.Logger) *SlotService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SlotService{availability: availability, meetings: meetings, logger: logger}
}

// AvailableSlots returns the mentor's free slots on date (YYYY-MM-DD, read in
// the mentor's timezone). Booked state is derived from live meetings only.
func (s *SlotService) AvailableSlots(ctx context.Context, mentorID, date string) ([]models.AvailableSlot, error) {
	availability, found, err := s.availability.load(ctx, mentorID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "mentor availability not found")
	}

	loc, err := time.LoadLocation(availability.Timezone)
	if err != nil {
		s.logger.Warn("stored timezone not loadable, using UTC", zap.String("user_id", mentorID), zap.String("timezone", availability.Timezone))
		loc = time.UTC
	}

	day, err := scheduling.ParseDateIn(date, loc)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "date must be formatted as YYYY-MM-DD")
	}

	pattern, ok := availability.Day(scheduling.WeekdayName(day))
	if !ok || !pattern.IsAvailable {
		return []models.AvailableSlot{}, nil
	}

	from, to := scheduling.DayBounds(day, loc)
	meetings, err := s.meetings.ListForMentorBetween(ctx, mentorID, from.UTC(), to.UTC())
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load mentor meetings")
	}

	slots := make([]models.AvailableSlot, 0, len(pattern.TimeSlots))
	for _, slot := range pattern.TimeSlots {
		start, err := scheduling.ParseClock(slot.StartTime)
		if err != nil {
			continue
		}
		end, err := scheduling.ParseClock(slot.EndTime)
		if err != nil || start >= end {
			continue
		}
		startsAt, endsAt := start.On(day), end.On(day)
		if scheduling.HasCollision(startsAt, endsAt, meetings, "") {
			continue
		}
		slots = append(slots, models.AvailableSlot{
			StartTime: slot.StartTime,
			EndTime:   slot.EndTime,
			IsBooked:  false,
			StartsAt:  startsAt,
			EndsAt:    endsAt,
		})
	}
	return slots, nil
}
