package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/mentor-scheduling-api/internal/dto"
	"github.com/noah-isme/mentor-scheduling-api/internal/models"
	"github.com/noah-isme/mentor-scheduling-api/internal/scheduling"
	appErrors "github.com/noah-isme/mentor-scheduling-api/pkg/errors"
)

type availabilityRepository interface {
	GetByUser(ctx context.Context, userID string) (*models.Availability, error)
	Upsert(ctx context.Context, availability *models.Availability) error
}

// AvailabilityService stores and serves recurring weekly availability.
type AvailabilityService struct {
	repo      availabilityRepository
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAvailabilityService constructs the service. cache may be nil.
func NewAvailabilityService(repo availabilityRepository, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *AvailabilityService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	registerSchedulingValidations(validate)
	return &AvailabilityService{repo: repo, cache: cache, validator: validate, logger: logger}
}

// SetAvailability replaces the user's days and timezone wholesale.
func (s *AvailabilityService) SetAvailability(ctx context.Context, userID string, req dto.SetAvailabilityRequest) (*models.Availability, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid availability payload")
	}

	tz := strings.TrimSpace(req.Timezone)
	if tz == "" {
		tz = models.DefaultTimezone
	}
	if _, err := time.LoadLocation(tz); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown timezone %q", tz))
	}

	days, err := normalizeDays(req.Days)
	if err != nil {
		return nil, err
	}

	availability := &models.Availability{UserID: userID, Days: days, Timezone: tz}
	if err := s.repo.Upsert(ctx, availability); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save availability")
	}

	if err := s.cache.Invalidate(ctx, AvailabilityKey(userID)); err != nil {
		s.logger.Warn("availability cache not invalidated", zap.String("user_id", userID), zap.Error(err))
	}
	s.logger.Info("availability updated", zap.String("user_id", userID), zap.Int("days", len(days)), zap.String("timezone", tz))
	return availability, nil
}

// GetAvailability returns the stored availability, or an empty UTC document
// when the user never set one.
func (s *AvailabilityService) GetAvailability(ctx context.Context, userID string) (*models.Availability, error) {
	availability, found, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !found {
		return models.EmptyAvailability(userID), nil
	}
	return availability, nil
}

// load reports whether a stored document exists so slot resolution can
// distinguish "never configured" from "configured but empty".
func (s *AvailabilityService) load(ctx context.Context, userID string) (*models.Availability, bool, error) {
	var cached models.Availability
	if hit, _ := s.cache.Get(ctx, AvailabilityKey(userID), &cached); hit {
		return &cached, true, nil
	}

	availability, err := s.repo.GetByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load availability")
	}

	_ = s.cache.Set(ctx, AvailabilityKey(userID), availability, 0)
	return availability, true, nil
}

func normalizeDays(in []dto.DayPatternRequest) ([]models.DayPattern, error) {
	days := make([]models.DayPattern, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, d := range in {
		name, ok := scheduling.NormalizeWeekday(d.Day)
		if !ok {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown weekday %q", d.Day))
		}
		if _, dup := seen[name]; dup {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("%s is listed more than once", name))
		}
		seen[name] = struct{}{}

		slots, err := normalizeSlots(name, d.TimeSlots)
		if err != nil {
			return nil, err
		}
		days = append(days, models.DayPattern{Day: name, IsAvailable: d.IsAvailable, TimeSlots: slots})
	}
	return days, nil
}

type parsedSlot struct {
	start, end scheduling.Clock
	booked     bool
}

func normalizeSlots(day string, in []dto.TimeSlotRequest) ([]models.TimeSlot, error) {
	parsed := make([]parsedSlot, 0, len(in))
	for _, slot := range in {
		start, err := scheduling.ParseClock(slot.StartTime)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, fmt.Sprintf("invalid start time on %s", day))
		}
		end, err := scheduling.ParseClock(slot.EndTime)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, fmt.Sprintf("invalid end time on %s", day))
		}
		if start >= end {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("slot %s-%s on %s must start before it ends", start, end, day))
		}
		parsed = append(parsed, parsedSlot{start: start, end: end, booked: slot.IsBooked})
	}

	sort.Slice(parsed, func(i, j int) bool { return parsed[i].start < parsed[j].start })
	for i := 1; i < len(parsed); i++ {
		if parsed[i].start < parsed[i-1].end {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("slots %s-%s and %s-%s on %s overlap",
				parsed[i-1].start, parsed[i-1].end, parsed[i].start, parsed[i].end, day))
		}
	}

	slots := make([]models.TimeSlot, len(parsed))
	for i, p := range parsed {
		slots[i] = models.TimeSlot{StartTime: p.start.String(), EndTime: p.end.String(), IsBooked: p.booked}
	}
	return slots, nil
}
