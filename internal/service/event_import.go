package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
	"go.uber.org/zap"

	"campus-events/backend/internal/dto"
	"campus-events/backend/internal/model"
	pkgerrors "campus-events/backend/pkg/errors"
)

// ── iCalendar import ──────────────────────────────────────────
//
// Every VEVENT becomes a draft event owned by the importer:
//   - SUMMARY → title, DESCRIPTION → description, LOCATION → venue
//   - CATEGORIES picks the event type when one matches, otherwise "other"
//   - a DAILY/WEEKLY RRULE becomes one event whose rounds are the
//     occurrences (EXDATE honoured, capped at icsMaxOccurrences)
//
// Drafts go through EventService.Create, so they are validated exactly like
// hand-made events and stay invisible until submitted.
// ─────────────────────────────────────────────────────────────

const (
	icsMaxFileSize    = 5 << 20
	icsMaxEvents      = 200
	icsMaxOccurrences = 52
)

var (
	ErrImportICSUnreadable = pkgerrors.New(pkgerrors.ErrValidation, "file is not a readable iCalendar document")
	ErrImportICSTooLarge   = pkgerrors.New(pkgerrors.ErrValidation, fmt.Sprintf("calendar file exceeds %d bytes", icsMaxFileSize))
	ErrImportICSEmpty      = pkgerrors.New(pkgerrors.ErrValidation, "calendar contains no events")
	ErrImportICSTooMany    = pkgerrors.New(pkgerrors.ErrValidation, fmt.Sprintf("calendar contains more than %d events", icsMaxEvents))
)

// EventImportService creates draft events from an iCalendar file
type EventImportService interface {
	ImportICS(ctx context.Context, actor Actor, reader io.Reader) (*dto.ImportEventsResponse, error)
}

type eventImportService struct {
	events EventService
	loc    *time.Location
	logger *zap.Logger
}

// NewEventImportService floating times in the file are read in loc
func NewEventImportService(events EventService, loc *time.Location, logger *zap.Logger) EventImportService {
	return &eventImportService{events: events, loc: loc, logger: logger}
}

// ────────────────────── ImportICS ──────────────────────

func (s *eventImportService) ImportICS(ctx context.Context, actor Actor, reader io.Reader) (*dto.ImportEventsResponse, error) {
	if !actor.Role.CanCreateEvents() {
		return nil, ErrEventCreateForbidden
	}

	raw, err := io.ReadAll(io.LimitReader(reader, icsMaxFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("read calendar: %w", err)
	}
	if len(raw) > icsMaxFileSize {
		return nil, ErrImportICSTooLarge
	}

	cal, err := ics.ParseCalendar(bytes.NewReader(raw))
	if err != nil {
		return nil, ErrImportICSUnreadable
	}
	vevents := cal.Events()
	switch {
	case len(vevents) == 0:
		return nil, ErrImportICSEmpty
	case len(vevents) > icsMaxEvents:
		return nil, ErrImportICSTooMany
	}

	result := &dto.ImportEventsResponse{Total: len(vevents), Events: []dto.EventResponse{}}
	fail := func(i int, summary, reason string) {
		result.Failed++
		result.Errors = append(result.Errors, dto.ImportEventError{Index: i + 1, Summary: summary, Reason: reason})
	}

	for i, vevent := range vevents {
		req, err := s.toCreateRequest(vevent)
		if err != nil {
			fail(i, propertyValue(vevent, ics.ComponentPropertySummary), err.Error())
			continue
		}

		created, err := s.events.Create(ctx, actor, req)
		if err != nil {
			if !isBusinessError(err) {
				s.logger.Error("import calendar event", zap.Int("index", i+1), zap.Error(err))
				return nil, err
			}
			fail(i, req.Title, err.Error())
			continue
		}
		result.Success++
		result.Events = append(result.Events, *created)
	}

	s.logger.Info("calendar imported",
		zap.String("actor", actor.UserID),
		zap.Int("total", result.Total),
		zap.Int("success", result.Success),
		zap.Int("failed", result.Failed),
	)
	return result, nil
}

// toCreateRequest maps one VEVENT onto a draft creation request
func (s *eventImportService) toCreateRequest(vevent *ics.VEvent) (*dto.CreateEventRequest, error) {
	title := propertyValue(vevent, ics.ComponentPropertySummary)
	if title == "" {
		return nil, fmt.Errorf("missing SUMMARY")
	}

	start, allDay, err := parseICSDateTime(vevent, ics.ComponentPropertyDtStart, s.loc)
	if err != nil {
		return nil, fmt.Errorf("DTSTART: %w", err)
	}
	end, _, err := parseICSDateTime(vevent, ics.ComponentPropertyDtEnd, s.loc)
	switch {
	case err == nil:
	case propertyValue(vevent, ics.ComponentPropertyDuration) != "":
		d, derr := parseICSDuration(propertyValue(vevent, ics.ComponentPropertyDuration))
		if derr != nil {
			return nil, fmt.Errorf("DURATION: %w", derr)
		}
		end = start.Add(d)
	case allDay:
		end = start.AddDate(0, 0, 1)
	default:
		return nil, fmt.Errorf("missing DTEND and DURATION")
	}
	length := end.Sub(start)

	req := &dto.CreateEventRequest{
		Title:       title,
		Description: propertyValue(vevent, ics.ComponentPropertyDescription),
		Venue:       propertyValue(vevent, ics.ComponentPropertyLocation),
		Scope:       string(model.EventScopeCollege),
		Draft:       true,
	}
	req.Type, req.CustomType = eventTypeFromCategories(propertyValue(vevent, ics.ComponentPropertyCategories))

	starts := occurrences(vevent, start, s.loc)
	req.StartDate = starts[0]
	req.EndDate = starts[len(starts)-1].Add(length)
	if len(starts) > 1 {
		req.Rounds = make([]dto.EventRoundPayload, len(starts))
		for i, st := range starts {
			req.Rounds[i] = dto.EventRoundPayload{
				Name:      fmt.Sprintf("Session %d", i+1),
				StartDate: st,
				EndDate:   st.Add(length),
			}
		}
	}
	return req, nil
}

// eventTypeFromCategories first category naming a known type wins; otherwise
// the event is "other" with the first category as its custom label
func eventTypeFromCategories(value string) (string, string) {
	var first string
	for _, c := range strings.Split(value, ",") {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		if first == "" {
			first = c
		}
		switch t := model.EventType(strings.ToLower(c)); t {
		case model.EventTypeHackathon, model.EventTypeWorkshop, model.EventTypeSeminar, model.EventTypeCompetition:
			return string(t), ""
		}
	}
	if first == "" {
		first = "Imported"
	}
	return string(model.EventTypeOther), first
}

// ── recurrence ──

// occurrences start times of the event: DTSTART alone, or the expansion of
// a DAILY/WEEKLY RRULE minus EXDATEs
func occurrences(vevent *ics.VEvent, start time.Time, loc *time.Location) []time.Time {
	prop := vevent.GetProperty(ics.ComponentPropertyRrule)
	if prop == nil {
		return []time.Time{start}
	}

	rule := parseRRule(prop.Value)
	var step int
	switch rule.freq {
	case "DAILY":
		step = 1
	case "WEEKLY":
		step = 7
	default:
		return []time.Time{start}
	}
	if rule.interval < 1 {
		rule.interval = 1
	}

	exDates := parseExDates(vevent, loc)
	var out []time.Time
	current := start
	for n := 0; len(out) < icsMaxOccurrences; n++ {
		if rule.count > 0 && n >= rule.count {
			break
		}
		if !rule.until.IsZero() && current.After(rule.until) {
			break
		}
		if !exDates[current.Format("20060102")] {
			out = append(out, current)
		}
		current = current.AddDate(0, 0, step*rule.interval)
	}
	if len(out) == 0 {
		return []time.Time{start}
	}
	return out
}

// rruleParams the RRULE parts the importer understands
type rruleParams struct {
	freq     string
	interval int
	count    int
	until    time.Time
}

// parseRRule e.g. FREQ=WEEKLY;COUNT=16;INTERVAL=1
func parseRRule(value string) rruleParams {
	r := rruleParams{interval: 1}
	for _, part := range strings.Split(value, ";") {
		kv := strings.SplitN(part, "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch strings.ToUpper(kv[0]) {
		case "FREQ":
			r.freq = strings.ToUpper(kv[1])
		case "INTERVAL":
			r.interval, _ = strconv.Atoi(kv[1])
		case "COUNT":
			r.count, _ = strconv.Atoi(kv[1])
		case "UNTIL":
			t, err := time.Parse("20060102T150405Z", kv[1])
			if err != nil {
				// a date-only UNTIL includes that whole day
				if t, err = time.Parse("20060102", kv[1]); err == nil {
					t = t.Add(24*time.Hour - time.Second)
				}
			}
			r.until = t
		}
	}
	return r
}

// parseExDates every EXDATE as a yyyymmdd set in loc
func parseExDates(vevent *ics.VEvent, loc *time.Location) map[string]bool {
	exDates := make(map[string]bool)
	for _, prop := range vevent.Properties {
		if prop.IANAToken != string(ics.ComponentPropertyExdate) {
			continue
		}
		for _, v := range strings.Split(prop.Value, ",") {
			t, err := time.Parse("20060102T150405Z", v)
			if err != nil {
				t, err = time.ParseInLocation("20060102T150405", v, loc)
				if err != nil {
					t, err = time.ParseInLocation("20060102", v, loc)
				}
			}
			if err == nil {
				exDates[t.In(loc).Format("20060102")] = true
			}
		}
	}
	return exDates
}

// ── value parsing ──

func propertyValue(vevent *ics.VEvent, name ics.ComponentProperty) string {
	prop := vevent.GetProperty(name)
	if prop == nil {
		return ""
	}
	return strings.TrimSpace(prop.Value)
}

// parseICSDateTime reads a DATE or DATE-TIME property. UTC values and TZID
// parameters are honoured; floating values are read in loc.
func parseICSDateTime(vevent *ics.VEvent, name ics.ComponentProperty, loc *time.Location) (time.Time, bool, error) {
	prop := vevent.GetProperty(name)
	if prop == nil {
		return time.Time{}, false, fmt.Errorf("missing property %s", name)
	}
	val := strings.TrimSpace(prop.Value)

	if t, err := time.Parse("20060102T150405Z", val); err == nil {
		return t.In(loc), false, nil
	}

	target := loc
	for k, v := range prop.ICalParameters {
		if strings.EqualFold(k, "TZID") && len(v) > 0 {
			if tz, err := time.LoadLocation(v[0]); err == nil {
				target = tz
			}
		}
	}
	if t, err := time.ParseInLocation("20060102T150405", val, target); err == nil {
		return t.In(loc), false, nil
	}
	if t, err := time.ParseInLocation("20060102", val, loc); err == nil {
		return t, true, nil
	}
	return time.Time{}, false, fmt.Errorf("unparseable date %q", val)
}

// parseICSDuration RFC 5545 dur-value: P[n]W or P[n]D[T[n]H[n]M[n]S]
func parseICSDuration(value string) (time.Duration, error) {
	s := strings.TrimPrefix(strings.ToUpper(strings.TrimSpace(value)), "+")
	if !strings.HasPrefix(s, "P") || len(s) < 3 {
		return 0, fmt.Errorf("unsupported duration %q", value)
	}
	s = s[1:]

	var (
		total  time.Duration
		num    string
		inTime bool
	)
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			num += string(r)
			continue
		case r == 'T':
			inTime = true
			continue
		}
		n, err := strconv.Atoi(num)
		if err != nil {
			return 0, fmt.Errorf("unsupported duration %q", value)
		}
		num = ""
		switch {
		case r == 'W' && !inTime:
			total += time.Duration(n) * 7 * 24 * time.Hour
		case r == 'D' && !inTime:
			total += time.Duration(n) * 24 * time.Hour
		case r == 'H' && inTime:
			total += time.Duration(n) * time.Hour
		case r == 'M' && inTime:
			total += time.Duration(n) * time.Minute
		case r == 'S' && inTime:
			total += time.Duration(n) * time.Second
		default:
			return 0, fmt.Errorf("unsupported duration %q", value)
		}
	}
	if num != "" || total <= 0 {
		return 0, fmt.Errorf("unsupported duration %q", value)
	}
	return total, nil
}
