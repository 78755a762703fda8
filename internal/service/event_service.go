package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"campus-events/backend/internal/dto"
	"campus-events/backend/internal/model"
	"campus-events/backend/internal/repository"
	pkgerrors "campus-events/backend/pkg/errors"
)

// ── event module errors ──

var (
	ErrEventNotFound            = pkgerrors.New(pkgerrors.ErrNotFound, "event not found")
	ErrEventTitleRequired       = pkgerrors.New(pkgerrors.ErrValidation, "title is required")
	ErrEventTypeInvalid         = pkgerrors.New(pkgerrors.ErrValidation, "unknown event type")
	ErrEventCustomTypeRequired  = pkgerrors.New(pkgerrors.ErrValidation, "custom_type is required when type is other")
	ErrEventScopeInvalid        = pkgerrors.New(pkgerrors.ErrValidation, "unknown event scope")
	ErrEventDepartmentRequired  = pkgerrors.New(pkgerrors.ErrValidation, "department_id is required for department scope")
	ErrEventDepartmentForbidden = pkgerrors.New(pkgerrors.ErrValidation, "department_id is only allowed for department scope")
	ErrEventDepartmentUnknown   = pkgerrors.New(pkgerrors.ErrValidation, "department does not exist")
	ErrEventDatesRequired       = pkgerrors.New(pkgerrors.ErrValidation, "start_date and end_date are required")
	ErrEventDateOrder           = pkgerrors.New(pkgerrors.ErrValidation, "start_date must be before end_date")
	ErrEventRoundInvalid        = pkgerrors.New(pkgerrors.ErrValidation, "every round needs a name and a start before its end")
	ErrEventTeamSizeMin         = pkgerrors.New(pkgerrors.ErrValidation, "team_size_min must be at least 1")
	ErrEventTeamSizeMax         = pkgerrors.New(pkgerrors.ErrValidation, "team_size_max must not be below team_size_min")
	ErrEventAllowedYears        = pkgerrors.New(pkgerrors.ErrValidation, "allowed_years must be between 1 and 5")
	ErrEventMaxParticipants     = pkgerrors.New(pkgerrors.ErrValidation, "max_participants must not be negative")
	ErrEventStatusInvalid       = pkgerrors.New(pkgerrors.ErrValidation, "unknown event status")
	ErrEventHasParticipants     = pkgerrors.New(pkgerrors.ErrInvalidState, "event still has teams or registrations")
)

// EventService event lifecycle operations
type EventService interface {
	Create(ctx context.Context, actor Actor, req *dto.CreateEventRequest) (*dto.EventResponse, error)
	GetByID(ctx context.Context, actor Actor, id string) (*dto.EventResponse, error)
	List(ctx context.Context, actor Actor, req *dto.EventListRequest) ([]dto.EventResponse, int64, error)
	Update(ctx context.Context, actor Actor, id string, req *dto.UpdateEventRequest) (*dto.EventResponse, error)
	Delete(ctx context.Context, actor Actor, id string) error
	Submit(ctx context.Context, actor Actor, id string) (*dto.EventResponse, error)
	Approve(ctx context.Context, actor Actor, id string) (*dto.EventResponse, error)
	Reject(ctx context.Context, actor Actor, id string, comment string) (*dto.EventResponse, error)
}

type eventService struct {
	repo     *repository.Repository
	notifier *notifier
	logger   *zap.Logger
	now      func() time.Time
}

// NewEventService creates an EventService
func NewEventService(repo *repository.Repository, notifier *notifier, logger *zap.Logger) EventService {
	return &eventService{repo: repo, notifier: notifier, logger: logger, now: time.Now}
}

// ────────────────────── Create ──────────────────────

func (s *eventService) Create(ctx context.Context, actor Actor, req *dto.CreateEventRequest) (*dto.EventResponse, error) {
	if !actor.Role.CanCreateEvents() {
		return nil, ErrEventCreateForbidden
	}

	event := &model.Event{
		Title:                strings.TrimSpace(req.Title),
		Description:          req.Description,
		Type:                 model.EventType(req.Type),
		CustomType:           strings.TrimSpace(req.CustomType),
		Scope:                model.EventScope(req.Scope),
		Venue:                req.Venue,
		StartDate:            req.StartDate,
		EndDate:              req.EndDate,
		RegistrationDeadline: req.RegistrationDeadline,
		TeamSizeMin:          req.TeamSizeMin,
		TeamSizeMax:          req.TeamSizeMax,
		RequiresMentor:       req.RequiresMentor,
		AllowedDepartments:   datatypes.NewJSONSlice(req.AllowedDepartments),
		AllowedYears:         model.IntArray(req.AllowedYears),
		Rounds:               toModelRounds(req.Rounds),
		Prizes:               toModelPrizes(req.Prizes),
		Contacts:             toModelContacts(req.Contacts),
		Rules:                req.Rules,
		MaxParticipants:      req.MaxParticipants,
		Images:               datatypes.NewJSONSlice(req.Images),
		CreatorID:            actor.UserID,
		DepartmentID:         req.DepartmentID,
	}
	// individual participation unless a team size was given
	if event.TeamSizeMin == 0 && event.TeamSizeMax == 0 {
		event.TeamSizeMin, event.TeamSizeMax = 1, 1
	}

	if err := validateEvent(event); err != nil {
		return nil, err
	}
	if err := s.checkDepartment(ctx, event.DepartmentID); err != nil {
		return nil, err
	}

	applyEventStatus(event, actor, initialEventStatus(actor.Role, req.Draft), "", s.now())
	event.Version = 1
	event.CreatedBy = &actor.UserID
	event.UpdatedBy = &actor.UserID

	if err := s.repo.Event.Create(ctx, event); err != nil {
		s.logger.Error("create event failed", zap.Error(err))
		return nil, err
	}

	if event.Status == model.EventStatusPending {
		s.notifyReviewers(ctx, event)
	}

	return s.reload(ctx, event), nil
}

// ────────────────────── GetByID ──────────────────────

func (s *eventService) GetByID(ctx context.Context, actor Actor, id string) (*dto.EventResponse, error) {
	event, err := s.getEvent(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canViewEvent(event, actor) {
		return nil, ErrEventNotFound
	}
	return toEventResponse(event, s.now()), nil
}

// ────────────────────── List ──────────────────────

func (s *eventService) List(ctx context.Context, actor Actor, req *dto.EventListRequest) ([]dto.EventResponse, int64, error) {
	now := s.now()
	filter := repository.EventFilter{
		Status:       model.EventStatus(req.Status),
		Type:         model.EventType(req.Type),
		Scope:        model.EventScope(req.Scope),
		DepartmentID: req.DepartmentID,
		Keyword:      req.Keyword,
		Phase:        model.EventPhase(req.Phase),
		Now:          now,
	}
	if req.Status != "" && !validEventStatus(filter.Status) {
		return nil, 0, ErrEventStatusInvalid
	}
	if req.Mine {
		filter.CreatorID = actor.UserID
	}
	if !actor.Role.CanViewAllEvents() {
		filter.ApprovedOnly = true
		filter.VisibleCreatorID = actor.UserID
	}

	events, total, err := s.repo.Event.List(ctx, filter, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("list events failed", zap.Error(err))
		return nil, 0, err
	}

	result := make([]dto.EventResponse, 0, len(events))
	for i := range events {
		result = append(result, *toEventResponse(&events[i], now))
	}
	return result, total, nil
}

// ────────────────────── Update ──────────────────────

func (s *eventService) Update(ctx context.Context, actor Actor, id string, req *dto.UpdateEventRequest) (*dto.EventResponse, error) {
	event, err := s.getEvent(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canManageEvent(event, actor) {
		return nil, ErrEventManageForbidden
	}

	// the status change is decided against the stored state, before any field changes
	var target model.EventStatus
	if req.Status != nil {
		requested := model.EventStatus(*req.Status)
		if !validEventStatus(requested) {
			return nil, ErrEventStatusInvalid
		}
		action, noop, err := actionForStatus(event.Status, requested)
		if err != nil {
			return nil, err
		}
		if !noop {
			next, err := nextEventStatus(event, actor, action)
			if err != nil {
				return nil, err
			}
			if next != requested {
				return nil, ErrInvalidEventTransition
			}
			target = next
		}
	}

	rulesBefore := teamRulesOf(event)
	applyEventUpdate(event, req)
	rulesChanged := teamRulesOf(event) != rulesBefore
	if err := validateEvent(event); err != nil {
		return nil, err
	}
	if req.DepartmentID != nil {
		if err := s.checkDepartment(ctx, event.DepartmentID); err != nil {
			return nil, err
		}
	}

	previous := event.Status
	if target != "" {
		applyEventStatus(event, actor, target, req.Comment, s.now())
	}
	event.UpdatedBy = &actor.UserID

	err = s.repo.Transaction(ctx, func(txRepo *repository.Repository) error {
		if err := txRepo.Event.Update(ctx, event); err != nil {
			return err
		}
		if !rulesChanged {
			return nil
		}
		return s.rederiveTeams(ctx, txRepo, event, actor)
	})
	if err != nil {
		if !errors.Is(err, pkgerrors.ErrOptimisticLock) {
			s.logger.Error("update event failed", zap.String("id", id), zap.Error(err))
		}
		return nil, err
	}

	if target != "" {
		s.notifyStatusChange(ctx, event, actor, previous)
	}
	return s.reload(ctx, event), nil
}

// teamRules the event fields DeriveTeamStatus reads
type teamRules struct {
	min, max       int
	requiresMentor bool
}

func teamRulesOf(e *model.Event) teamRules {
	return teamRules{min: e.TeamSizeMin, max: e.TeamSizeMax, requiresMentor: e.RequiresMentor}
}

// rederiveTeams rewrites the cached status of every team of event whose
// derived status moved with the new size bounds or mentor requirement
func (s *eventService) rederiveTeams(ctx context.Context, txRepo *repository.Repository, event *model.Event, actor Actor) error {
	teams, err := txRepo.Team.ListByEvent(ctx, event.EventID)
	if err != nil {
		return err
	}
	for i := range teams {
		team := &teams[i]
		status := DeriveTeamStatus(team, event)
		if status == team.Status {
			continue
		}
		s.logger.Info("team status re-derived",
			zap.String("team_id", team.TeamID),
			zap.String("from", string(team.Status)),
			zap.String("to", string(status)))
		team.Status = status
		team.UpdatedBy = &actor.UserID
		if err := txRepo.Team.Update(ctx, team); err != nil {
			return err
		}
	}
	return nil
}

// ────────────────────── Delete ──────────────────────

func (s *eventService) Delete(ctx context.Context, actor Actor, id string) error {
	event, err := s.getEvent(ctx, id)
	if err != nil {
		return err
	}
	if !canManageEvent(event, actor) {
		return ErrEventManageForbidden
	}

	err = s.repo.Transaction(ctx, func(txRepo *repository.Repository) error {
		// team creation and solo registration take the same row lock
		if err := txRepo.Event.LockForRegistration(ctx, id); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrEventNotFound
			}
			return err
		}
		teams, err := txRepo.Team.CountByEvent(ctx, id)
		if err != nil {
			s.logger.Error("count event teams failed", zap.String("id", id), zap.Error(err))
			return err
		}
		regs, err := txRepo.Registration.CountByEvent(ctx, id)
		if err != nil {
			s.logger.Error("count event registrations failed", zap.String("id", id), zap.Error(err))
			return err
		}
		if teams > 0 || regs > 0 {
			return ErrEventHasParticipants
		}
		if err := txRepo.Event.Delete(ctx, id); err != nil {
			if errors.Is(err, gorm.ErrForeignKeyViolated) {
				return ErrEventHasParticipants
			}
			s.logger.Error("delete event failed", zap.String("id", id), zap.Error(err))
			return err
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.Info("event deleted", zap.String("id", id), zap.String("by", actor.UserID))
	return nil
}

// ────────────────────── Submit / Approve / Reject ──────────────────────

func (s *eventService) Submit(ctx context.Context, actor Actor, id string) (*dto.EventResponse, error) {
	return s.transition(ctx, actor, id, actionSubmit, "")
}

func (s *eventService) Approve(ctx context.Context, actor Actor, id string) (*dto.EventResponse, error) {
	return s.transition(ctx, actor, id, actionApprove, "")
}

func (s *eventService) Reject(ctx context.Context, actor Actor, id string, comment string) (*dto.EventResponse, error) {
	return s.transition(ctx, actor, id, actionReject, strings.TrimSpace(comment))
}

func (s *eventService) transition(ctx context.Context, actor Actor, id string, action lifecycleAction, comment string) (*dto.EventResponse, error) {
	event, err := s.getEvent(ctx, id)
	if err != nil {
		return nil, err
	}

	target, err := nextEventStatus(event, actor, action)
	if err != nil {
		return nil, err
	}

	previous := event.Status
	applyEventStatus(event, actor, target, comment, s.now())
	event.UpdatedBy = &actor.UserID

	if err := s.repo.Event.Update(ctx, event); err != nil {
		if !errors.Is(err, pkgerrors.ErrOptimisticLock) {
			s.logger.Error("update event status failed", zap.String("id", id), zap.Error(err))
		}
		return nil, err
	}

	s.logger.Info("event status changed",
		zap.String("event_id", id),
		zap.String("from", string(previous)),
		zap.String("to", string(target)),
		zap.String("actor", actor.UserID))

	s.notifyStatusChange(ctx, event, actor, previous)
	return s.reload(ctx, event), nil
}

// ── helpers ──

func (s *eventService) getEvent(ctx context.Context, id string) (*model.Event, error) {
	event, err := s.repo.Event.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEventNotFound
		}
		s.logger.Error("get event failed", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return event, nil
}

// reload re-reads the event with its associations, falling back to the
// in-memory copy
func (s *eventService) reload(ctx context.Context, event *model.Event) *dto.EventResponse {
	if fresh, err := s.repo.Event.GetByID(ctx, event.EventID); err == nil {
		event = fresh
	}
	return toEventResponse(event, s.now())
}

func (s *eventService) checkDepartment(ctx context.Context, id *string) error {
	if id == nil {
		return nil
	}
	if _, err := s.repo.Department.GetByID(ctx, *id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrEventDepartmentUnknown
		}
		return err
	}
	return nil
}

func (s *eventService) notifyReviewers(ctx context.Context, event *model.Event) {
	reviewers, _, err := s.repo.User.List(ctx, repository.UserFilter{Role: model.RoleInnovationCell}, 0, 100)
	if err != nil {
		s.logger.Warn("list reviewers failed", zap.Error(err))
		return
	}
	items := make([]model.Notification, 0, len(reviewers))
	for _, r := range reviewers {
		items = append(items, newNotification(r.UserID, model.NotificationEventSubmitted,
			"Event awaiting review",
			fmt.Sprintf("%q was submitted for review.", event.Title),
			"event", event.EventID))
	}
	s.notifier.send(ctx, items...)
}

func (s *eventService) notifyStatusChange(ctx context.Context, event *model.Event, actor Actor, previous model.EventStatus) {
	switch event.Status {
	case model.EventStatusPending:
		s.notifyReviewers(ctx, event)
	case model.EventStatusApproved, model.EventStatusRejected:
		if previous != model.EventStatusPending || event.CreatorID == actor.UserID {
			return
		}
		content := fmt.Sprintf("%q was %s.", event.Title, event.Status)
		if event.ReviewComment != "" {
			content += " Comment: " + event.ReviewComment
		}
		s.notifier.send(ctx, newNotification(event.CreatorID, model.NotificationEventReviewed,
			"Event reviewed", content, "event", event.EventID))
	}
}

// ── validation ──

func validEventStatus(s model.EventStatus) bool {
	switch s {
	case model.EventStatusDraft, model.EventStatusPending, model.EventStatusApproved, model.EventStatusRejected:
		return true
	}
	return false
}

// validateEvent checks the invariants every stored event satisfies
func validateEvent(e *model.Event) error {
	if strings.TrimSpace(e.Title) == "" {
		return ErrEventTitleRequired
	}

	switch e.Type {
	case model.EventTypeHackathon, model.EventTypeWorkshop, model.EventTypeSeminar, model.EventTypeCompetition:
	case model.EventTypeOther:
		if strings.TrimSpace(e.CustomType) == "" {
			return ErrEventCustomTypeRequired
		}
	default:
		return ErrEventTypeInvalid
	}

	switch e.Scope {
	case model.EventScopeDepartment:
		if e.DepartmentID == nil || *e.DepartmentID == "" {
			return ErrEventDepartmentRequired
		}
	case model.EventScopeCollege, model.EventScopeInterCollege, model.EventScopeNational, model.EventScopeInternational:
		if e.DepartmentID != nil {
			return ErrEventDepartmentForbidden
		}
	default:
		return ErrEventScopeInvalid
	}

	if e.StartDate.IsZero() || e.EndDate.IsZero() {
		return ErrEventDatesRequired
	}
	if !e.StartDate.Before(e.EndDate) {
		return ErrEventDateOrder
	}
	for i, r := range e.Rounds {
		if strings.TrimSpace(r.Name) == "" || r.StartDate.IsZero() || !r.StartDate.Before(r.EndDate) {
			return fmt.Errorf("%w (round %d)", ErrEventRoundInvalid, i+1)
		}
	}

	if e.TeamSizeMin < 1 {
		return ErrEventTeamSizeMin
	}
	if e.TeamSizeMax < e.TeamSizeMin {
		return ErrEventTeamSizeMax
	}
	for _, y := range e.AllowedYears {
		if y < 1 || y > 5 {
			return ErrEventAllowedYears
		}
	}
	if e.MaxParticipants < 0 {
		return ErrEventMaxParticipants
	}
	return nil
}

// applyEventUpdate copies every present field of req onto e
func applyEventUpdate(e *model.Event, req *dto.UpdateEventRequest) {
	if req.Title != nil {
		e.Title = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		e.Description = *req.Description
	}
	if req.Type != nil {
		e.Type = model.EventType(*req.Type)
	}
	if req.CustomType != nil {
		e.CustomType = strings.TrimSpace(*req.CustomType)
	}
	if req.Scope != nil {
		e.Scope = model.EventScope(*req.Scope)
		if e.Scope != model.EventScopeDepartment && req.DepartmentID == nil {
			e.DepartmentID = nil
		}
	}
	if req.Venue != nil {
		e.Venue = *req.Venue
	}
	if req.StartDate != nil {
		e.StartDate = *req.StartDate
	}
	if req.EndDate != nil {
		e.EndDate = *req.EndDate
	}
	if req.RegistrationDeadline != nil {
		e.RegistrationDeadline = req.RegistrationDeadline
	}
	if req.TeamSizeMin != nil {
		e.TeamSizeMin = *req.TeamSizeMin
	}
	if req.TeamSizeMax != nil {
		e.TeamSizeMax = *req.TeamSizeMax
	}
	if req.RequiresMentor != nil {
		e.RequiresMentor = *req.RequiresMentor
	}
	if req.AllowedDepartments != nil {
		e.AllowedDepartments = datatypes.NewJSONSlice(*req.AllowedDepartments)
	}
	if req.AllowedYears != nil {
		e.AllowedYears = model.IntArray(*req.AllowedYears)
	}
	if req.Rounds != nil {
		e.Rounds = toModelRounds(*req.Rounds)
	}
	if req.Prizes != nil {
		e.Prizes = toModelPrizes(*req.Prizes)
	}
	if req.Contacts != nil {
		e.Contacts = toModelContacts(*req.Contacts)
	}
	if req.Rules != nil {
		e.Rules = *req.Rules
	}
	if req.MaxParticipants != nil {
		e.MaxParticipants = *req.MaxParticipants
	}
	if req.Images != nil {
		e.Images = datatypes.NewJSONSlice(*req.Images)
	}
	if req.DepartmentID != nil {
		e.DepartmentID = req.DepartmentID
	}
}

func toModelRounds(in []dto.EventRoundPayload) datatypes.JSONSlice[model.EventRound] {
	out := make([]model.EventRound, 0, len(in))
	for _, r := range in {
		out = append(out, model.EventRound{
			Name:        strings.TrimSpace(r.Name),
			Description: r.Description,
			StartDate:   r.StartDate,
			EndDate:     r.EndDate,
		})
	}
	return datatypes.NewJSONSlice(out)
}

func toModelPrizes(in []dto.EventPrizePayload) datatypes.JSONSlice[model.EventPrize] {
	out := make([]model.EventPrize, 0, len(in))
	for _, p := range in {
		out = append(out, model.EventPrize(p))
	}
	return datatypes.NewJSONSlice(out)
}

func toModelContacts(in []dto.EventContactPayload) datatypes.JSONSlice[model.EventContact] {
	out := make([]model.EventContact, 0, len(in))
	for _, c := range in {
		out = append(out, model.EventContact(c))
	}
	return datatypes.NewJSONSlice(out)
}
