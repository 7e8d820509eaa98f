package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/mentor-scheduling-api/internal/middleware"
	"github.com/noah-isme/mentor-scheduling-api/internal/models"
	"github.com/noah-isme/mentor-scheduling-api/pkg/middleware/ratelimit"
)

// Router bundles everything RegisterRoutes mounts.
type Router struct {
	Tokens         middleware.TokenValidator
	Availability   *AvailabilityHandler
	Slots          *SlotHandler
	Meetings       *MeetingHandler
	Reminders      *ReminderHandler
	Notifications  *NotificationHandler
	Metrics        *MetricsHandler
	MeetingLimiter *ratelimit.Limiter
}

// RegisterRoutes mounts the ops endpoints at the root and the API under prefix.
// Calendar feeds authenticate through their signed token instead of the JWT.
func RegisterRoutes(r *gin.Engine, prefix string, rt Router) {
	r.GET("/health", rt.Metrics.Health)
	r.GET("/ready", rt.Metrics.Ready)
	r.GET("/metrics", rt.Metrics.Prometheus)

	r.GET(prefix+"/calendar/feeds/:token/meetings.ics", rt.Meetings.SubscribedCalendar)

	api := r.Group(prefix)
	api.Use(middleware.JWT(rt.Tokens))

	availability := api.Group("/availability")
	availability.PUT("", rt.Availability.Set)
	availability.GET("/me", rt.Availability.Me)
	availability.GET("/:user_id", rt.Availability.Get)

	api.GET("/mentors/:mentor_id/slots", rt.Slots.List)

	meetings := api.Group("/meetings")
	meetings.POST("", ratelimit.Middleware(rt.MeetingLimiter, userKey), rt.Meetings.Schedule)
	meetings.GET("", rt.Meetings.List)
	meetings.GET("/calendar.ics", rt.Meetings.Calendar)
	meetings.POST("/calendar/feed", rt.Meetings.CalendarFeed)
	meetings.GET("/:id", rt.Meetings.Get)
	meetings.PATCH("/:id", rt.Meetings.Update)
	meetings.POST("/:id/cancel", rt.Meetings.Cancel)
	meetings.GET("/:id/reminders", rt.Meetings.Reminders)

	reminders := api.Group("/reminders", middleware.RequireRoles(models.RoleAdmin))
	reminders.GET("/due", rt.Reminders.Due)
	reminders.POST("/:id/sent", rt.Reminders.MarkSent)

	api.GET("/notifications", rt.Notifications.List)
}

// userKey buckets rate limits per authenticated user.
func userKey(c *gin.Context) string {
	if claims, ok := middleware.Claims(c); ok {
		return "user:" + claims.UserID
	}
	return ""
}
