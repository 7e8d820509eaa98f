package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/mentor-scheduling-api/internal/dto"
	"github.com/noah-isme/mentor-scheduling-api/internal/models"
	appErrors "github.com/noah-isme/mentor-scheduling-api/pkg/errors"
	"github.com/noah-isme/mentor-scheduling-api/pkg/response"
)

type slotService interface {
	AvailableSlots(ctx context.Context, mentorID, date string) ([]models.AvailableSlot, error)
}

// SlotHandler resolves free slots for a mentor.
type SlotHandler struct {
	service slotService
}

// NewSlotHandler constructs the handler.
func NewSlotHandler(service slotService) *SlotHandler {
	return &SlotHandler{service: service}
}

// List godoc
// @Summary List a mentor's free slots on a date
// @Tags Availability
// @Produce json
// @Param mentor_id path string true "Mentor ID"
// @Param date query string true "Date (YYYY-MM-DD) in the mentor's timezone"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /mentors/{mentor_id}/slots [get]
func (h *SlotHandler) List(c *gin.Context) {
	var query dto.AvailableSlotsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		invalidPayload(c, err)
		return
	}
	if query.Date == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "date is required"))
		return
	}
	slots, err := h.service.AvailableSlots(c.Request.Context(), c.Param("mentor_id"), query.Date)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, slots)
}
