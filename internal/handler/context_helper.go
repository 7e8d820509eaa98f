package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/mentor-scheduling-api/internal/middleware"
	"github.com/noah-isme/mentor-scheduling-api/internal/service"
	appErrors "github.com/noah-isme/mentor-scheduling-api/pkg/errors"
	"github.com/noah-isme/mentor-scheduling-api/pkg/response"
)

// requesterFromContext turns the verified token claims into a service
// requester, writing a 401 when the route is not behind JWT.
func requesterFromContext(c *gin.Context) (service.Requester, bool) {
	claims, ok := middleware.Claims(c)
	if !ok || claims.UserID == "" {
		response.Error(c, appErrors.ErrUnauthorized)
		return service.Requester{}, false
	}
	return service.Requester{UserID: claims.UserID, Role: claims.Role}, true
}

func invalidPayload(c *gin.Context, err error) {
	response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload"))
}
