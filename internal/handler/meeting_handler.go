package handler

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/mentor-scheduling-api/internal/dto"
	"github.com/noah-isme/mentor-scheduling-api/internal/models"
	"github.com/noah-isme/mentor-scheduling-api/internal/service"
	"github.com/noah-isme/mentor-scheduling-api/pkg/response"
)

type meetingService interface {
	Schedule(ctx context.Context, requester service.Requester, req dto.ScheduleMeetingRequest) (*models.Meeting, error)
	Update(ctx context.Context, requester service.Requester, meetingID string, patch dto.UpdateMeetingRequest) (*models.Meeting, error)
	Cancel(ctx context.Context, requester service.Requester, meetingID string) (*models.Meeting, error)
	Get(ctx context.Context, requester service.Requester, meetingID string) (*models.Meeting, error)
	ListMine(ctx context.Context, requester service.Requester, query dto.MeetingListQuery) ([]models.Meeting, error)
}

type meetingReminderLister interface {
	ListForMeeting(ctx context.Context, meetingID string) ([]models.Reminder, error)
}

type calendarExporter interface {
	Export(ctx context.Context, requester service.Requester) (string, error)
	FeedToken(requester service.Requester) (*dto.CalendarFeedResponse, error)
	ExportFeed(ctx context.Context, token string) (string, error)
}

// MeetingHandler exposes the meeting lifecycle.
type MeetingHandler struct {
	meetings  meetingService
	reminders meetingReminderLister
	calendar  calendarExporter
}

// NewMeetingHandler constructs the handler.
func NewMeetingHandler(meetings meetingService, reminders meetingReminderLister, calendar calendarExporter) *MeetingHandler {
	return &MeetingHandler{meetings: meetings, reminders: reminders, calendar: calendar}
}

// Schedule godoc
// @Summary Schedule a meeting
// @Tags Meetings
// @Accept json
// @Produce json
// @Param payload body dto.ScheduleMeetingRequest true "Meeting"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 429 {object} response.Envelope
// @Security BearerAuth
// @Router /meetings [post]
func (h *MeetingHandler) Schedule(c *gin.Context) {
	requester, ok := requesterFromContext(c)
	if !ok {
		return
	}
	var req dto.ScheduleMeetingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidPayload(c, err)
		return
	}
	meeting, err := h.meetings.Schedule(c.Request.Context(), requester, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, meeting)
}

// List godoc
// @Summary List my meetings
// @Tags Meetings
// @Produce json
// @Param status query []string false "Status filter" collectionFormat(multi)
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /meetings [get]
func (h *MeetingHandler) List(c *gin.Context) {
	requester, ok := requesterFromContext(c)
	if !ok {
		return
	}
	var query dto.MeetingListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		invalidPayload(c, err)
		return
	}
	meetings, err := h.meetings.ListMine(c.Request.Context(), requester, query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, meetings)
}

// Get godoc
// @Summary Get a meeting
// @Tags Meetings
// @Produce json
// @Param id path string true "Meeting ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /meetings/{id} [get]
func (h *MeetingHandler) Get(c *gin.Context) {
	requester, ok := requesterFromContext(c)
	if !ok {
		return
	}
	meeting, err := h.meetings.Get(c.Request.Context(), requester, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, meeting)
}

// Update godoc
// @Summary Update a meeting
// @Description Partial update. Moving the meeting re-checks both participants for collisions.
// @Tags Meetings
// @Accept json
// @Produce json
// @Param id path string true "Meeting ID"
// @Param payload body dto.UpdateMeetingRequest true "Patch"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /meetings/{id} [patch]
func (h *MeetingHandler) Update(c *gin.Context) {
	requester, ok := requesterFromContext(c)
	if !ok {
		return
	}
	var patch dto.UpdateMeetingRequest
	if err := c.ShouldBindJSON(&patch); err != nil {
		invalidPayload(c, err)
		return
	}
	meeting, err := h.meetings.Update(c.Request.Context(), requester, c.Param("id"), patch)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, meeting)
}

// Cancel godoc
// @Summary Cancel a meeting
// @Tags Meetings
// @Produce json
// @Param id path string true "Meeting ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /meetings/{id}/cancel [post]
func (h *MeetingHandler) Cancel(c *gin.Context) {
	requester, ok := requesterFromContext(c)
	if !ok {
		return
	}
	meeting, err := h.meetings.Cancel(c.Request.Context(), requester, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, meeting)
}

// Reminders godoc
// @Summary List reminders of a meeting
// @Tags Meetings
// @Produce json
// @Param id path string true "Meeting ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /meetings/{id}/reminders [get]
func (h *MeetingHandler) Reminders(c *gin.Context) {
	requester, ok := requesterFromContext(c)
	if !ok {
		return
	}
	meeting, err := h.meetings.Get(c.Request.Context(), requester, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	reminders, err := h.reminders.ListForMeeting(c.Request.Context(), meeting.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, reminders)
}

// Calendar godoc
// @Summary Export my meetings as iCalendar
// @Tags Meetings
// @Produce text/calendar
// @Success 200 {string} string "VCALENDAR document"
// @Security BearerAuth
// @Router /meetings/calendar.ics [get]
func (h *MeetingHandler) Calendar(c *gin.Context) {
	requester, ok := requesterFromContext(c)
	if !ok {
		return
	}
	body, err := h.calendar.Export(c.Request.Context(), requester)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, "meetings.ics", "text/calendar; charset=utf-8", []byte(body))
}

// CalendarFeed godoc
// @Summary Issue a calendar subscription link
// @Description The returned URL serves the caller's meetings without a bearer token until it expires.
// @Tags Meetings
// @Produce json
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /meetings/calendar/feed [post]
func (h *MeetingHandler) CalendarFeed(c *gin.Context) {
	requester, ok := requesterFromContext(c)
	if !ok {
		return
	}
	feed, err := h.calendar.FeedToken(requester)
	if err != nil {
		response.Error(c, err)
		return
	}
	base := strings.TrimSuffix(c.Request.URL.Path, "/meetings/calendar/feed")
	feed.URL = base + "/calendar/feeds/" + feed.Token + "/meetings.ics"
	response.Created(c, feed)
}

// SubscribedCalendar godoc
// @Summary Calendar subscription feed
// @Tags Meetings
// @Produce text/calendar
// @Param token path string true "Feed token"
// @Success 200 {string} string "VCALENDAR document"
// @Failure 401 {object} response.Envelope
// @Router /calendar/feeds/{token}/meetings.ics [get]
func (h *MeetingHandler) SubscribedCalendar(c *gin.Context) {
	body, err := h.calendar.ExportFeed(c.Request.Context(), c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, "meetings.ics", "text/calendar; charset=utf-8", []byte(body))
}
