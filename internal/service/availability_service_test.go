package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/mentor-scheduling-api/internal/dto"
	"github.com/noah-isme/mentor-scheduling-api/internal/models"
	appErrors "github.com/noah-isme/mentor-scheduling-api/pkg/errors"
)

type fakeAvailabilityRepo struct {
	store   map[string]*models.Availability
	reads   int
	saveErr error
}

func newFakeAvailabilityRepo() *fakeAvailabilityRepo {
	return &fakeAvailabilityRepo{store: map[string]*models.Availability{}}
}

func (f *fakeAvailabilityRepo) GetByUser(ctx context.Context, userID string) (*models.Availability, error) {
	f.reads++
	a, ok := f.store[userID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *a
	return &clone, nil
}

func (f *fakeAvailabilityRepo) Upsert(ctx context.Context, a *models.Availability) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	a.ID = "av-" + a.UserID
	clone := *a
	f.store[a.UserID] = &clone
	return nil
}

func assertAppCode(t *testing.T, err error, want *appErrors.Error) {
	t.Helper()
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr), "expected *appErrors.Error, got %T", err)
	assert.Equal(t, want.Code, appErr.Code)
}

func mondayNineToEleven() dto.SetAvailabilityRequest {
	return dto.SetAvailabilityRequest{
		Timezone: "UTC",
		Days: []dto.DayPatternRequest{{
			Day:         "Monday",
			IsAvailable: true,
			TimeSlots: []dto.TimeSlotRequest{
				{StartTime: "10:00", EndTime: "11:00"},
				{StartTime: "09:00", EndTime: "10:00"},
			},
		}},
	}
}

func TestAvailabilityServiceSetNormalizes(t *testing.T) {
	repo := newFakeAvailabilityRepo()
	svc := NewAvailabilityService(repo, nil, validator.New(), zap.NewNop())

	availability, err := svc.SetAvailability(context.Background(), "mentor-x", mondayNineToEleven())
	require.NoError(t, err)
	require.Len(t, availability.Days, 1)
	assert.Equal(t, "monday", availability.Days[0].Day)
	assert.Equal(t, "09:00", availability.Days[0].TimeSlots[0].StartTime)
	assert.Equal(t, "10:00", availability.Days[0].TimeSlots[1].StartTime)
	assert.Equal(t, "UTC", availability.Timezone)
}

func TestAvailabilityServiceRejectsInvertedSlot(t *testing.T) {
	svc := NewAvailabilityService(newFakeAvailabilityRepo(), nil, validator.New(), zap.NewNop())

	_, err := svc.SetAvailability(context.Background(), "mentor-x", dto.SetAvailabilityRequest{
		Days: []dto.DayPatternRequest{{
			Day:         "tuesday",
			IsAvailable: true,
			TimeSlots:   []dto.TimeSlotRequest{{StartTime: "10:00", EndTime: "09:00"}},
		}},
	})
	assertAppCode(t, err, appErrors.ErrValidation)
}

func TestAvailabilityServiceRejectsMalformedInput(t *testing.T) {
	svc := NewAvailabilityService(newFakeAvailabilityRepo(), nil, validator.New(), zap.NewNop())

	cases := map[string]dto.SetAvailabilityRequest{
		"unparseable time": {Days: []dto.DayPatternRequest{{Day: "monday", TimeSlots: []dto.TimeSlotRequest{{StartTime: "9am", EndTime: "10:00"}}}}},
		"overlapping slots": {Days: []dto.DayPatternRequest{{Day: "monday", TimeSlots: []dto.TimeSlotRequest{
			{StartTime: "09:00", EndTime: "10:30"},
			{StartTime: "10:00", EndTime: "11:00"},
		}}}},
		"unknown day":   {Days: []dto.DayPatternRequest{{Day: "someday"}}},
		"duplicate day": {Days: []dto.DayPatternRequest{{Day: "friday"}, {Day: "Friday"}}},
		"bad timezone":  {Timezone: "Mars/Olympus"},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.SetAvailability(context.Background(), "mentor-x", req)
			assertAppCode(t, err, appErrors.ErrValidation)
		})
	}
}

func TestAvailabilityServiceGetDefaultsWhenMissing(t *testing.T) {
	svc := NewAvailabilityService(newFakeAvailabilityRepo(), nil, validator.New(), zap.NewNop())

	availability, err := svc.GetAvailability(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Equal(t, "UTC", availability.Timezone)
	assert.NotNil(t, availability.Days)
	assert.Empty(t, availability.Days)
}

func TestAvailabilityServiceSetReplacesWholeDocument(t *testing.T) {
	repo := newFakeAvailabilityRepo()
	svc := NewAvailabilityService(repo, nil, validator.New(), zap.NewNop())
	ctx := context.Background()

	_, err := svc.SetAvailability(ctx, "mentor-x", mondayNineToEleven())
	require.NoError(t, err)
	_, err = svc.SetAvailability(ctx, "mentor-x", dto.SetAvailabilityRequest{
		Timezone: "Asia/Jakarta",
		Days:     []dto.DayPatternRequest{{Day: "wednesday", IsAvailable: true}},
	})
	require.NoError(t, err)

	availability, err := svc.GetAvailability(ctx, "mentor-x")
	require.NoError(t, err)
	require.Len(t, availability.Days, 1)
	assert.Equal(t, "wednesday", availability.Days[0].Day)
	assert.Equal(t, "Asia/Jakarta", availability.Timezone)
}

func TestAvailabilityServiceUsesCache(t *testing.T) {
	repo := newFakeAvailabilityRepo()
	cache := NewCacheService(newJSONCacheRepo(), nil, 0, nil, true)
	svc := NewAvailabilityService(repo, cache, validator.New(), zap.NewNop())
	ctx := context.Background()

	_, err := svc.SetAvailability(ctx, "mentor-x", mondayNineToEleven())
	require.NoError(t, err)

	_, err = svc.GetAvailability(ctx, "mentor-x")
	require.NoError(t, err)
	second, err := svc.GetAvailability(ctx, "mentor-x")
	require.NoError(t, err)
	assert.Equal(t, 1, repo.reads)
	assert.Equal(t, "monday", second.Days[0].Day)

	_, err = svc.SetAvailability(ctx, "mentor-x", dto.SetAvailabilityRequest{})
	require.NoError(t, err)
	third, err := svc.GetAvailability(ctx, "mentor-x")
	require.NoError(t, err)
	assert.Equal(t, 2, repo.reads)
	assert.Empty(t, third.Days)
}

func TestAvailabilityServiceSaveFailure(t *testing.T) {
	repo := newFakeAvailabilityRepo()
	repo.saveErr = errors.New("db down")
	svc := NewAvailabilityService(repo, nil, validator.New(), zap.NewNop())

	_, err := svc.SetAvailability(context.Background(), "mentor-x", mondayNineToEleven())
	assertAppCode(t, err, appErrors.ErrInternal)
}
