package service

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	ics "github.com/arran4/golang-ical"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"campus-events/backend/internal/model"
)

func TestCalendarService_Feed(t *testing.T) {
	store := newMockStore()
	cell := store.addUser("Cell", model.RoleInnovationCell, nil, 0)
	deadline := testNow.Add(24 * time.Hour)

	upcoming := store.addEvent(&model.Event{
		Title:                "Hack Week",
		Description:          "Build something.",
		Type:                 model.EventTypeHackathon,
		Status:               model.EventStatusApproved,
		Venue:                "Main Hall",
		StartDate:            testNow.Add(48 * time.Hour),
		EndDate:              testNow.Add(96 * time.Hour),
		RegistrationDeadline: &deadline,
		Rounds: datatypes.JSONSlice[model.EventRound]{
			{Name: "Prelims", StartDate: testNow.Add(48 * time.Hour), EndDate: testNow.Add(60 * time.Hour)},
		},
		CreatorID: cell.UserID,
	})
	store.addEvent(&model.Event{
		Title: "Pending Talk", Type: model.EventTypeSeminar, Status: model.EventStatusPending,
		StartDate: testNow.Add(time.Hour), EndDate: testNow.Add(2 * time.Hour), CreatorID: cell.UserID,
	})
	store.addEvent(&model.Event{
		Title: "Ancient Fair", Type: model.EventTypeOther, CustomType: "Fair", Status: model.EventStatusApproved,
		StartDate: testNow.Add(-90 * 24 * time.Hour), EndDate: testNow.Add(-89 * 24 * time.Hour), CreatorID: cell.UserID,
	})

	svc := NewCalendarService(store.repository(), "Campus Events", "https://events.campus.test/", zap.NewNop()).(*calendarService)
	svc.now = fixedClock(testNow)

	data, err := svc.Feed(context.Background())
	if err != nil {
		t.Fatalf("Feed failed: %v", err)
	}

	cal, err := ics.ParseCalendar(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("feed is not valid iCalendar: %v", err)
	}
	events := cal.Events()
	if len(events) != 1 {
		t.Fatalf("only the recent approved event belongs in the feed, got %d", len(events))
	}

	vevent := events[0]
	prop := func(p ics.ComponentProperty) string {
		if v := vevent.GetProperty(p); v != nil {
			return v.Value
		}
		return ""
	}
	if prop(ics.ComponentPropertyUniqueId) != upcoming.EventID+"@campus-events" {
		t.Errorf("unexpected uid %s", prop(ics.ComponentPropertyUniqueId))
	}
	if prop(ics.ComponentPropertySummary) != "Hack Week" || prop(ics.ComponentPropertyLocation) != "Main Hall" {
		t.Errorf("unexpected summary/location %q %q", prop(ics.ComponentPropertySummary), prop(ics.ComponentPropertyLocation))
	}
	if prop(ics.ComponentPropertyUrl) != "https://events.campus.test/events/"+upcoming.EventID {
		t.Errorf("unexpected url %s", prop(ics.ComponentPropertyUrl))
	}
	if prop(ics.ComponentPropertyCategories) != string(model.EventTypeHackathon) {
		t.Errorf("unexpected category %s", prop(ics.ComponentPropertyCategories))
	}
	if !strings.Contains(string(data), "Prelims") {
		t.Error("round schedule should be part of the description")
	}
}

func TestEventTypeLabel(t *testing.T) {
	if got := eventTypeLabel(&model.Event{Type: model.EventTypeOther, CustomType: "Fair"}); got != "Fair" {
		t.Errorf("expected custom type, got %s", got)
	}
	if got := eventTypeLabel(&model.Event{Type: model.EventTypeWorkshop}); got != "workshop" {
		t.Errorf("expected workshop, got %s", got)
	}
}
