package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/mentor-scheduling-api/internal/dto"
	"github.com/noah-isme/mentor-scheduling-api/internal/models"
	"github.com/noah-isme/mentor-scheduling-api/pkg/response"
)

type reminderService interface {
	ListDue(ctx context.Context, limit int) ([]models.Reminder, error)
	MarkSent(ctx context.Context, reminderID string) (*models.Reminder, error)
}

// ReminderHandler serves the external reminder dispatcher.
type ReminderHandler struct {
	service reminderService
}

// NewReminderHandler constructs the handler.
func NewReminderHandler(service reminderService) *ReminderHandler {
	return &ReminderHandler{service: service}
}

// Due godoc
// @Summary Poll reminders that are due
// @Tags Reminders
// @Produce json
// @Param limit query int false "Batch size"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /reminders/due [get]
func (h *ReminderHandler) Due(c *gin.Context) {
	var query dto.DueRemindersQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		invalidPayload(c, err)
		return
	}
	reminders, err := h.service.ListDue(c.Request.Context(), query.Limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, reminders)
}

// MarkSent godoc
// @Summary Acknowledge a delivered reminder
// @Tags Reminders
// @Produce json
// @Param id path string true "Reminder ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /reminders/{id}/sent [post]
func (h *ReminderHandler) MarkSent(c *gin.Context) {
	reminder, err := h.service.MarkSent(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, reminder)
}
