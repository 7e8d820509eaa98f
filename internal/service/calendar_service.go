package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	ical "github.com/arran4/golang-ical"

	"github.com/noah-isme/mentor-scheduling-api/internal/dto"
	"github.com/noah-isme/mentor-scheduling-api/internal/models"
	appErrors "github.com/noah-isme/mentor-scheduling-api/pkg/errors"
	"github.com/noah-isme/mentor-scheduling-api/pkg/signedurl"
)

const calendarProductID = "-//mentor-scheduling-api//meetings//EN"

type calendarMeetingLister interface {
	ListMine(ctx context.Context, requester Requester, query dto.MeetingListQuery) ([]models.Meeting, error)
}

type feedSigner interface {
	Sign(subject, scope string) (string, time.Time, error)
	Verify(token string) (*signedurl.Claims, error)
}

// CalendarService renders a requester's meetings as an iCalendar feed.
type CalendarService struct {
	meetings calendarMeetingLister
	feeds    feedSigner
	now      func() time.Time
}

// NewCalendarService constructs the exporter. feeds may be nil, which
// disables subscription links.
func NewCalendarService(meetings calendarMeetingLister, feeds feedSigner) *CalendarService {
	return &CalendarService{meetings: meetings, feeds: feeds, now: func() time.Time { return time.Now().UTC() }}
}

// FeedToken issues a subscription token calendar clients can poll without a bearer token.
func (s *CalendarService) FeedToken(requester Requester) (*dto.CalendarFeedResponse, error) {
	if s.feeds == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "calendar subscriptions are disabled")
	}
	token, expiresAt, err := s.feeds.Sign(requester.UserID, string(requester.Role))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to issue calendar feed token")
	}
	return &dto.CalendarFeedResponse{Token: token, ExpiresAt: expiresAt}, nil
}

// ExportFeed renders the calendar of the user a subscription token was issued to.
func (s *CalendarService) ExportFeed(ctx context.Context, token string) (string, error) {
	if s.feeds == nil {
		return "", appErrors.Clone(appErrors.ErrNotFound, "calendar subscriptions are disabled")
	}
	claims, err := s.feeds.Verify(token)
	if err != nil {
		message := "invalid calendar feed token"
		if errors.Is(err, signedurl.ErrExpired) {
			message = "calendar feed token expired"
		}
		return "", appErrors.Clone(appErrors.ErrUnauthorized, message)
	}
	return s.Export(ctx, Requester{UserID: claims.Subject, Role: models.UserRole(claims.Scope)})
}

// Export serialises every meeting of requester into a VCALENDAR document.
func (s *CalendarService) Export(ctx context.Context, requester Requester) (string, error) {
	meetings, err := s.meetings.ListMine(ctx, requester, dto.MeetingListQuery{})
	if err != nil {
		return "", err
	}

	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(calendarProductID)

	stamp := s.now()
	for _, m := range meetings {
		event := cal.AddEvent(fmt.Sprintf("%s@mentor-scheduling", m.ID))
		event.SetDtStampTime(stamp)
		event.SetCreatedTime(m.CreatedAt)
		event.SetModifiedAt(m.UpdatedAt)
		event.SetStartAt(m.StartTime)
		event.SetEndAt(m.EndTime)
		event.SetSummary(m.Title)
		if m.Description != "" {
			event.SetDescription(m.Description)
		}
		if m.Location != nil {
			event.SetLocation(*m.Location)
		}
		if m.MeetingLink != nil {
			event.SetURL(*m.MeetingLink)
		}
		event.SetStatus(eventStatus(m.Status))
	}
	return cal.Serialize(), nil
}

func eventStatus(status models.MeetingStatus) ical.ObjectStatus {
	switch status {
	case models.MeetingStatusScheduled:
		return ical.ObjectStatusTentative
	case models.MeetingStatusConfirmed, models.MeetingStatusCompleted:
		return ical.ObjectStatusConfirmed
	}
	return ical.ObjectStatusCancelled
}
