package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
	"go.uber.org/zap"

	"campus-events/backend/internal/model"
	"campus-events/backend/internal/repository"
)

// ── iCalendar feed ──────────────────────────────────────────
//
// Approved events as an RFC 5545 feed. Recently finished events stay in
// the feed for calendarLookback so subscribers keep them in history.
// ─────────────────────────────────────────────────────────────

const (
	calendarLookback = 30 * 24 * time.Hour
	calendarProdID   = "-//campus-events//events//EN"
)

// CalendarService builds the approved-events feed
type CalendarService interface {
	Feed(ctx context.Context) ([]byte, error)
}

type calendarService struct {
	repo    *repository.Repository
	name    string
	baseURL string
	logger  *zap.Logger
	now     func() time.Time
}

// NewCalendarService creates a CalendarService. baseURL prefixes the event
// links written to each entry.
func NewCalendarService(repo *repository.Repository, name, baseURL string, logger *zap.Logger) CalendarService {
	return &calendarService{
		repo:    repo,
		name:    name,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger,
		now:     time.Now,
	}
}

func (s *calendarService) Feed(ctx context.Context) ([]byte, error) {
	now := s.now()
	events, err := s.repo.Event.ListApprovedSince(ctx, now.Add(-calendarLookback))
	if err != nil {
		s.logger.Error("list calendar events failed", zap.Error(err))
		return nil, err
	}

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId(calendarProdID)
	if s.name != "" {
		cal.SetName(s.name)
		cal.SetXWRCalName(s.name)
	}

	for i := range events {
		s.addEvent(cal, &events[i], now)
	}

	return []byte(cal.Serialize()), nil
}

func (s *calendarService) addEvent(cal *ics.Calendar, e *model.Event, now time.Time) {
	vevent := cal.AddEvent(e.EventID + "@campus-events")
	vevent.SetDtStampTime(now.UTC())
	vevent.SetCreatedTime(e.CreatedAt.UTC())
	vevent.SetModifiedAt(e.UpdatedAt.UTC())
	vevent.SetStartAt(e.StartDate.UTC())
	vevent.SetEndAt(e.EndDate.UTC())
	vevent.SetSummary(e.Title)
	if e.Venue != "" {
		vevent.SetLocation(e.Venue)
	}
	if desc := calendarDescription(e); desc != "" {
		vevent.SetDescription(desc)
	}
	if s.baseURL != "" {
		vevent.SetURL(fmt.Sprintf("%s/events/%s", s.baseURL, e.EventID))
	}
	vevent.AddProperty(ics.ComponentPropertyCategories, eventTypeLabel(e))
}

// calendarDescription description followed by the round schedule
func calendarDescription(e *model.Event) string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(e.Description))
	if len(e.Rounds) > 0 {
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString("Rounds:")
		for _, r := range e.Rounds {
			fmt.Fprintf(&b, "\n- %s: %s to %s", r.Name,
				r.StartDate.UTC().Format("2006-01-02 15:04 MST"),
				r.EndDate.UTC().Format("2006-01-02 15:04 MST"))
		}
	}
	if e.RegistrationDeadline != nil {
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "Registration closes %s", e.RegistrationDeadline.UTC().Format("2006-01-02 15:04 MST"))
	}
	return b.String()
}

func eventTypeLabel(e *model.Event) string {
	if e.Type == model.EventTypeOther && e.CustomType != "" {
		return e.CustomType
	}
	return string(e.Type)
}
