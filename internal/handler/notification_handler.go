package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/mentor-scheduling-api/internal/dto"
	"github.com/noah-isme/mentor-scheduling-api/internal/models"
	"github.com/noah-isme/mentor-scheduling-api/pkg/response"
)

type notificationLister interface {
	List(ctx context.Context, userID string, query dto.NotificationListQuery) ([]models.Notification, *models.Pagination, error)
}

// NotificationHandler lists in-app notifications.
type NotificationHandler struct {
	service notificationLister
}

// NewNotificationHandler constructs the handler.
func NewNotificationHandler(service notificationLister) *NotificationHandler {
	return &NotificationHandler{service: service}
}

// List godoc
// @Summary List my notifications
// @Tags Notifications
// @Produce json
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Param unread query bool false "Only unread"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /notifications [get]
func (h *NotificationHandler) List(c *gin.Context) {
	requester, ok := requesterFromContext(c)
	if !ok {
		return
	}
	var query dto.NotificationListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		invalidPayload(c, err)
		return
	}
	items, pagination, err := h.service.List(c.Request.Context(), requester.UserID, query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}
