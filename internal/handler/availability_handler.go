package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/mentor-scheduling-api/internal/dto"
	"github.com/noah-isme/mentor-scheduling-api/internal/models"
	"github.com/noah-isme/mentor-scheduling-api/pkg/response"
)

type availabilityService interface {
	SetAvailability(ctx context.Context, userID string, req dto.SetAvailabilityRequest) (*models.Availability, error)
	GetAvailability(ctx context.Context, userID string) (*models.Availability, error)
}

// AvailabilityHandler exposes weekly availability endpoints.
type AvailabilityHandler struct {
	service availabilityService
}

// NewAvailabilityHandler constructs the handler.
func NewAvailabilityHandler(service availabilityService) *AvailabilityHandler {
	return &AvailabilityHandler{service: service}
}

// Set godoc
// @Summary Replace my weekly availability
// @Tags Availability
// @Accept json
// @Produce json
// @Param payload body dto.SetAvailabilityRequest true "Availability"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /availability [put]
func (h *AvailabilityHandler) Set(c *gin.Context) {
	requester, ok := requesterFromContext(c)
	if !ok {
		return
	}
	var req dto.SetAvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidPayload(c, err)
		return
	}
	availability, err := h.service.SetAvailability(c.Request.Context(), requester.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, availability)
}

// Me godoc
// @Summary Get my weekly availability
// @Tags Availability
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /availability/me [get]
func (h *AvailabilityHandler) Me(c *gin.Context) {
	requester, ok := requesterFromContext(c)
	if !ok {
		return
	}
	h.respond(c, requester.UserID)
}

// Get godoc
// @Summary Get a user's weekly availability
// @Tags Availability
// @Produce json
// @Param user_id path string true "User ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /availability/{user_id} [get]
func (h *AvailabilityHandler) Get(c *gin.Context) {
	h.respond(c, c.Param("user_id"))
}

func (h *AvailabilityHandler) respond(c *gin.Context, userID string) {
	availability, err := h.service.GetAvailability(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, availability)
}
