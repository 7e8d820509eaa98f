package service

import (
	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/mentor-scheduling-api/internal/models"
	"github.com/noah-isme/mentor-scheduling-api/internal/scheduling"
)

func registerSchedulingValidations(v *validator.Validate) {
	_ = v.RegisterValidation("clock", func(fl validator.FieldLevel) bool {
		_, err := scheduling.ParseClock(fl.Field().String())
		return err == nil
	})
	_ = v.RegisterValidation("weekday", func(fl validator.FieldLevel) bool {
		_, ok := scheduling.NormalizeWeekday(fl.Field().String())
		return ok
	})
	_ = v.RegisterValidation("meeting_type", func(fl validator.FieldLevel) bool {
		switch models.MeetingType(fl.Field().String()) {
		case models.MeetingTypeInPerson, models.MeetingTypeVideo, models.MeetingTypePhone:
			return true
		}
		return false
	})
	_ = v.RegisterValidation("meeting_status", func(fl validator.FieldLevel) bool {
		return models.MeetingStatus(fl.Field().String()).Valid()
	})
}
