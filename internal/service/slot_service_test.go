package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/mentor-scheduling-api/internal/models"
	appErrors "github.com/noah-isme/mentor-scheduling-api/pkg/errors"
)

func newSlotFixture(t *testing.T, availability *models.Availability) (*SlotService, *fakeMeetingRepo) {
	t.Helper()
	avRepo := newFakeAvailabilityRepo()
	if availability != nil {
		avRepo.store[availability.UserID] = availability
	}
	meetings := newFakeMeetingRepo()
	svc := NewSlotService(NewAvailabilityService(avRepo, nil, nil, zap.NewNop()), meetings, zap.NewNop())
	return svc, meetings
}

// 2024-05-01 is a Wednesday.
func wednesdayMorning(tz string) *models.Availability {
	return &models.Availability{
		UserID:   "mentor-x",
		Timezone: tz,
		Days: []models.DayPattern{
			{Day: "wednesday", IsAvailable: true, TimeSlots: []models.TimeSlot{
				{StartTime: "09:00", EndTime: "10:00"},
				{StartTime: "10:00", EndTime: "11:00"},
				{StartTime: "11:00", EndTime: "12:00", IsBooked: true},
			}},
			{Day: "thursday", IsAvailable: false, TimeSlots: []models.TimeSlot{
				{StartTime: "09:00", EndTime: "10:00"},
			}},
		},
	}
}

func TestAvailableSlotsExcludesCollidingSlots(t *testing.T) {
	svc, meetings := newSlotFixture(t, wednesdayMorning("UTC"))
	meetings.seed(models.Meeting{ID: "m1", MentorID: "mentor-x", StudentID: "student-a", StartTime: may1(9, 30), EndTime: may1(10, 15), Status: models.MeetingStatusConfirmed})
	meetings.seed(models.Meeting{ID: "m2", MentorID: "mentor-x", StudentID: "student-b", StartTime: may1(11, 0), EndTime: may1(12, 0), Status: models.MeetingStatusCancelled})

	slots, err := svc.AvailableSlots(context.Background(), "mentor-x", "2024-05-01")
	require.NoError(t, err)
	require.Len(t, slots, 1)
	assert.Equal(t, "11:00", slots[0].StartTime)
	assert.Equal(t, "12:00", slots[0].EndTime)
	assert.False(t, slots[0].IsBooked, "stored booked flag is not authoritative")
	assert.Equal(t, may1(11, 0), slots[0].StartsAt.UTC())
}

func TestAvailableSlotsUsesMentorTimezone(t *testing.T) {
	svc, meetings := newSlotFixture(t, wednesdayMorning("America/New_York"))
	// 09:00 New York on 2024-05-01 is 13:00 UTC.
	meetings.seed(models.Meeting{ID: "m1", MentorID: "mentor-x", StudentID: "student-a", StartTime: may1(13, 0), EndTime: may1(14, 0), Status: models.MeetingStatusScheduled})

	slots, err := svc.AvailableSlots(context.Background(), "mentor-x", "2024-05-01")
	require.NoError(t, err)
	require.Len(t, slots, 2)
	assert.Equal(t, "10:00", slots[0].StartTime)
	assert.Equal(t, may1(14, 0), slots[0].StartsAt.UTC())
}

func TestAvailableSlotsEmptyForUnavailableOrMissingDay(t *testing.T) {
	svc, _ := newSlotFixture(t, wednesdayMorning("UTC"))

	thursday, err := svc.AvailableSlots(context.Background(), "mentor-x", "2024-05-02")
	require.NoError(t, err)
	assert.NotNil(t, thursday)
	assert.Empty(t, thursday)

	friday, err := svc.AvailableSlots(context.Background(), "mentor-x", "2024-05-03")
	require.NoError(t, err)
	assert.Empty(t, friday)
}

func TestAvailableSlotsErrors(t *testing.T) {
	svc, _ := newSlotFixture(t, wednesdayMorning("UTC"))

	_, err := svc.AvailableSlots(context.Background(), "mentor-y", "2024-05-01")
	assertAppCode(t, err, appErrors.ErrNotFound)

	for _, date := range []string{"", "01/05/2024", "2024-13-01"} {
		_, err = svc.AvailableSlots(context.Background(), "mentor-x", date)
		assertAppCode(t, err, appErrors.ErrValidation)
	}
}

func TestAvailableSlotsWholeDayBooked(t *testing.T) {
	svc, meetings := newSlotFixture(t, wednesdayMorning("UTC"))
	meetings.seed(models.Meeting{ID: "m1", MentorID: "mentor-x", StudentID: "student-a", StartTime: may1(8, 0), EndTime: may1(12, 0), Status: models.MeetingStatusScheduled})

	slots, err := svc.AvailableSlots(context.Background(), "mentor-x", "2024-05-01")
	require.NoError(t, err)
	assert.Empty(t, slots)
}
