package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"campus-events/backend/internal/dto"
	"campus-events/backend/internal/model"
	"campus-events/backend/internal/repository"
	pkgerrors "campus-events/backend/pkg/errors"
)

// ── team module errors ──

var (
	ErrTeamNotFound          = pkgerrors.New(pkgerrors.ErrNotFound, "team not found")
	ErrTeamJoinForbidden     = pkgerrors.New(pkgerrors.ErrAuthorization, "only students can take part in events")
	ErrNotTeamCreator        = pkgerrors.New(pkgerrors.ErrAuthorization, "only the team creator can do this")
	ErrNotInvited            = pkgerrors.New(pkgerrors.ErrAuthorization, "you are not invited to this team")
	ErrVerifyForbidden       = pkgerrors.New(pkgerrors.ErrAuthorization, "only the innovation cell can verify teams")
	ErrTeamNameRequired      = pkgerrors.New(pkgerrors.ErrValidation, "team name is required")
	ErrTeamNameTaken         = pkgerrors.New(pkgerrors.ErrValidation, "team name is already used for this event")
	ErrInviteeNotFound       = pkgerrors.New(pkgerrors.ErrValidation, "no user with this email")
	ErrInviteeNotStudent     = pkgerrors.New(pkgerrors.ErrValidation, "only students can be invited as members")
	ErrInviteeIsCreator      = pkgerrors.New(pkgerrors.ErrValidation, "the creator is already part of the team")
	ErrMentorNotFound        = pkgerrors.New(pkgerrors.ErrValidation, "no mentor with this email")
	ErrMentorNotEligible     = pkgerrors.New(pkgerrors.ErrValidation, "mentor must be staff or a head of department")
	ErrMentorRequired        = pkgerrors.New(pkgerrors.ErrValidation, "this event requires a mentor")
	ErrTeamTooLarge          = pkgerrors.New(pkgerrors.ErrValidation, "team exceeds the maximum team size")
	ErrNotEligible           = pkgerrors.New(pkgerrors.ErrValidation, "participant is not eligible for this event")
	ErrAlreadyInTeam         = pkgerrors.New(pkgerrors.ErrValidation, "participant already belongs to a team for this event")
	ErrInvalidResponse       = pkgerrors.New(pkgerrors.ErrValidation, "response must be accepted or rejected")
	ErrProofRequired         = pkgerrors.New(pkgerrors.ErrValidation, "proof_url is required")
	ErrEventNotOpen          = pkgerrors.New(pkgerrors.ErrInvalidState, "event is not open for registration")
	ErrSoloEvent             = pkgerrors.New(pkgerrors.ErrInvalidState, "this event takes individual registrations, not teams")
	ErrNotSoloEvent          = pkgerrors.New(pkgerrors.ErrInvalidState, "this event takes team registrations")
	ErrAlreadyResponded      = pkgerrors.New(pkgerrors.ErrInvalidState, "invitation was already answered")
	ErrAcceptedElsewhere     = pkgerrors.New(pkgerrors.ErrInvalidState, "you already belong to another team for this event")
	ErrTeamNotReady          = pkgerrors.New(pkgerrors.ErrInvalidState, "team is not ready for registration")
	ErrTeamAlreadyRegistered = pkgerrors.New(pkgerrors.ErrInvalidState, "team is already registered")
	ErrTeamNotRegistered     = pkgerrors.New(pkgerrors.ErrInvalidState, "team is not registered")
	ErrTeamAlreadyVerified   = pkgerrors.New(pkgerrors.ErrInvalidState, "team is already verified")
	ErrProofMissing          = pkgerrors.New(pkgerrors.ErrInvalidState, "team has not submitted proof of participation")
	ErrEventFull             = pkgerrors.New(pkgerrors.ErrInvalidState, "event has reached its participant limit")
	ErrAlreadyRegistered     = pkgerrors.New(pkgerrors.ErrInvalidState, "already registered for this event")
)

// TeamService team formation, registration and solo registration
type TeamService interface {
	Create(ctx context.Context, actor Actor, eventID string, req *dto.CreateTeamRequest) (*dto.TeamResponse, error)
	GetByID(ctx context.Context, actor Actor, id string) (*dto.TeamResponse, error)
	ListByEvent(ctx context.Context, actor Actor, eventID string) ([]dto.TeamResponse, error)
	ListMine(ctx context.Context, actor Actor) ([]dto.TeamResponse, error)
	ListInvitations(ctx context.Context, actor Actor) ([]dto.InvitationResponse, error)
	Respond(ctx context.Context, actor Actor, teamID string, response string) (*dto.TeamResponse, error)
	Register(ctx context.Context, actor Actor, teamID string) (*dto.TeamResponse, error)
	SubmitProof(ctx context.Context, actor Actor, teamID string, proofURL string) (*dto.TeamResponse, error)
	Verify(ctx context.Context, actor Actor, teamID string) (*dto.TeamResponse, error)
	Disband(ctx context.Context, actor Actor, teamID string) error
	RegisterSolo(ctx context.Context, actor Actor, eventID string) (*dto.SoloRegistrationResponse, error)
}

type teamService struct {
	repo     *repository.Repository
	locker   Locker
	notifier *notifier
	logger   *zap.Logger
	now      func() time.Time
}

// NewTeamService creates a TeamService
func NewTeamService(repo *repository.Repository, locker Locker, notifier *notifier, logger *zap.Logger) TeamService {
	if locker == nil {
		locker = noopLocker{}
	}
	return &teamService{repo: repo, locker: locker, notifier: notifier, logger: logger, now: time.Now}
}

func teamLockKey(teamID string) string { return "team:" + teamID }

func capacityLockKey(eventID string) string { return "event:" + eventID + ":capacity" }

// membershipLockKey guards "one accepted team per user per event"
func membershipLockKey(eventID, userID string) string {
	return "event:" + eventID + ":member:" + userID
}

// ────────────────────── Create ──────────────────────

func (s *teamService) Create(ctx context.Context, actor Actor, eventID string, req *dto.CreateTeamRequest) (*dto.TeamResponse, error) {
	if !actor.Role.CanJoinTeams() {
		return nil, ErrTeamJoinForbidden
	}

	event, err := s.getEvent(ctx, s.repo, eventID)
	if err != nil {
		return nil, err
	}
	if !event.RegistrationOpen(s.now()) {
		return nil, ErrEventNotOpen
	}
	if event.IsSolo() {
		return nil, ErrSoloEvent
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, ErrTeamNameRequired
	}

	creator, err := s.getUser(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	if !event.Admits(creator) {
		return nil, fmt.Errorf("%w: %s", ErrNotEligible, creator.Email)
	}

	members, err := s.resolveMembers(ctx, event, creator, req.MemberEmails)
	if err != nil {
		return nil, err
	}
	if 1+len(members) > event.TeamSizeMax {
		return nil, ErrTeamTooLarge
	}

	mentor, err := s.resolveMentor(ctx, req.MentorEmail)
	if err != nil {
		return nil, err
	}
	if event.RequiresMentor && mentor == nil {
		return nil, ErrMentorRequired
	}

	team := &model.Team{
		EventID:   event.EventID,
		Name:      name,
		CreatorID: creator.UserID,
		Members:   make([]model.TeamMember, 0, len(members)),
	}
	for i, u := range members {
		team.Members = append(team.Members, model.TeamMember{
			UserID:   u.UserID,
			Position: i + 1,
			Status:   model.InviteStatusPending,
		})
	}
	if mentor != nil {
		pending := model.InviteStatusPending
		team.MentorID = &mentor.UserID
		team.MentorStatus = &pending
	}
	team.Status = DeriveTeamStatus(team, event)
	team.Version = 1
	team.CreatedBy = &actor.UserID
	team.UpdatedBy = &actor.UserID

	participants := append([]*model.User{creator}, members...)
	keys := make([]string, 0, len(participants))
	for _, u := range participants {
		keys = append(keys, membershipLockKey(event.EventID, u.UserID))
	}
	release, err := s.lockAll(ctx, keys)
	if err != nil {
		return nil, err
	}
	defer release()

	err = s.repo.Transaction(ctx, func(txRepo *repository.Repository) error {
		// serializes membership checks of this event in the database as well
		if err := txRepo.Event.LockForRegistration(ctx, event.EventID); err != nil {
			return err
		}
		taken, err := txRepo.Team.ExistsByName(ctx, event.EventID, name)
		if err != nil {
			return err
		}
		if taken {
			return ErrTeamNameTaken
		}

		for _, u := range participants {
			other, err := txRepo.Team.FindAcceptedTeamID(ctx, event.EventID, u.UserID, "")
			if err != nil {
				return err
			}
			if other != "" {
				return fmt.Errorf("%w: %s", ErrAlreadyInTeam, u.Email)
			}
		}

		return txRepo.Team.Create(ctx, team)
	})
	if err != nil {
		if !isBusinessError(err) {
			s.logger.Error("create team failed", zap.String("event_id", eventID), zap.Error(err))
		}
		return nil, err
	}

	s.logger.Info("team created",
		zap.String("team_id", team.TeamID),
		zap.String("event_id", event.EventID),
		zap.Int("invited", len(members)))

	s.notifyInvitees(ctx, team, event, creator, members, mentor)
	return s.reload(ctx, team, event), nil
}

// resolveMembers deduplicates emails and resolves each to an eligible student
func (s *teamService) resolveMembers(ctx context.Context, event *model.Event, creator *model.User, emails []string) ([]*model.User, error) {
	seen := make(map[string]bool, len(emails))
	members := make([]*model.User, 0, len(emails))
	for _, raw := range emails {
		email := strings.ToLower(strings.TrimSpace(raw))
		if email == "" || seen[email] {
			continue
		}
		seen[email] = true

		if email == strings.ToLower(creator.Email) {
			return nil, ErrInviteeIsCreator
		}
		user, err := s.repo.User.GetByEmail(ctx, email)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("%w: %s", ErrInviteeNotFound, email)
			}
			s.logger.Error("look up invitee failed", zap.Error(err))
			return nil, err
		}
		if user.UserID == creator.UserID {
			return nil, ErrInviteeIsCreator
		}
		if !user.Role.CanJoinTeams() {
			return nil, fmt.Errorf("%w: %s", ErrInviteeNotStudent, email)
		}
		if !event.Admits(user) {
			return nil, fmt.Errorf("%w: %s", ErrNotEligible, email)
		}
		members = append(members, user)
	}
	return members, nil
}

func (s *teamService) resolveMentor(ctx context.Context, email *string) (*model.User, error) {
	if email == nil || strings.TrimSpace(*email) == "" {
		return nil, nil
	}
	mentor, err := s.repo.User.GetByEmail(ctx, *email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrMentorNotFound, strings.TrimSpace(*email))
		}
		s.logger.Error("look up mentor failed", zap.Error(err))
		return nil, err
	}
	if !mentor.Role.CanMentor() {
		return nil, ErrMentorNotEligible
	}
	return mentor, nil
}

// ────────────────────── Queries ──────────────────────

func (s *teamService) GetByID(ctx context.Context, actor Actor, id string) (*dto.TeamResponse, error) {
	team, err := s.getTeam(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}
	event, err := s.getEvent(ctx, s.repo, team.EventID)
	if err != nil {
		return nil, err
	}
	if !isTeamParticipant(team, actor.UserID) && !canOverseeTeams(event, actor) {
		return nil, ErrForbidden
	}
	return toTeamResponse(team, event), nil
}

func (s *teamService) ListByEvent(ctx context.Context, actor Actor, eventID string) ([]dto.TeamResponse, error) {
	event, err := s.getEvent(ctx, s.repo, eventID)
	if err != nil {
		return nil, err
	}
	if !canOverseeTeams(event, actor) {
		return nil, ErrForbidden
	}

	teams, err := s.repo.Team.ListByEvent(ctx, eventID)
	if err != nil {
		s.logger.Error("list event teams failed", zap.String("event_id", eventID), zap.Error(err))
		return nil, err
	}
	result := make([]dto.TeamResponse, 0, len(teams))
	for i := range teams {
		result = append(result, *toTeamResponse(&teams[i], event))
	}
	return result, nil
}

func (s *teamService) ListMine(ctx context.Context, actor Actor) ([]dto.TeamResponse, error) {
	teams, err := s.repo.Team.ListByUser(ctx, actor.UserID)
	if err != nil {
		s.logger.Error("list user teams failed", zap.String("user_id", actor.UserID), zap.Error(err))
		return nil, err
	}
	result := make([]dto.TeamResponse, 0, len(teams))
	for i := range teams {
		result = append(result, *toTeamResponse(&teams[i], teams[i].Event))
	}
	return result, nil
}

func (s *teamService) ListInvitations(ctx context.Context, actor Actor) ([]dto.InvitationResponse, error) {
	teams, err := s.repo.Team.ListPendingInvitations(ctx, actor.UserID)
	if err != nil {
		s.logger.Error("list invitations failed", zap.String("user_id", actor.UserID), zap.Error(err))
		return nil, err
	}

	result := make([]dto.InvitationResponse, 0, len(teams))
	for i := range teams {
		t := &teams[i]
		inv := dto.InvitationResponse{
			TeamID:   t.TeamID,
			TeamName: t.Name,
			Creator:  toUserBrief(t.Creator),
			AsMentor: t.IsMentor(actor.UserID),
		}
		if t.Event != nil {
			inv.Event = toTeamEventBrief(t.Event)
		} else {
			inv.Event.ID = t.EventID
		}
		result = append(result, inv)
	}
	return result, nil
}

// ────────────────────── Respond ──────────────────────

func (s *teamService) Respond(ctx context.Context, actor Actor, teamID string, response string) (*dto.TeamResponse, error) {
	answer := model.InviteStatus(response)
	if answer != model.InviteStatusAccepted && answer != model.InviteStatusRejected {
		return nil, ErrInvalidResponse
	}

	// an acceptance is checked against the user's other teams of the event,
	// so acceptances by one user are serialized across teams
	if answer == model.InviteStatusAccepted {
		current, err := s.getTeam(ctx, s.repo, teamID)
		if err != nil {
			return nil, err
		}
		if current.MemberIndex(actor.UserID) >= 0 {
			release, err := s.lock(ctx, membershipLockKey(current.EventID, actor.UserID))
			if err != nil {
				return nil, err
			}
			defer release()
		}
	}

	var asMentor bool
	team, event, err := s.mutate(ctx, actor, teamID, func(txRepo *repository.Repository, team *model.Team, event *model.Event) error {
		now := s.now()
		idx := team.MemberIndex(actor.UserID)
		switch {
		case idx >= 0:
			if team.Members[idx].Status != model.InviteStatusPending {
				return ErrAlreadyResponded
			}
		case team.IsMentor(actor.UserID):
			if team.MentorStatus != nil && *team.MentorStatus != model.InviteStatusPending {
				return ErrAlreadyResponded
			}
			asMentor = true
		default:
			return ErrNotInvited
		}

		if idx >= 0 && answer == model.InviteStatusAccepted {
			if err := txRepo.Event.LockForRegistration(ctx, team.EventID); err != nil {
				return err
			}
			other, err := txRepo.Team.FindAcceptedTeamID(ctx, team.EventID, actor.UserID, team.TeamID)
			if err != nil {
				return err
			}
			if other != "" {
				return ErrAcceptedElsewhere
			}
		}

		if asMentor {
			team.MentorStatus = &answer
			team.MentorRespondedAt = &now
		} else {
			team.Members[idx].Status = answer
			team.Members[idx].RespondedAt = &now
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	role := "member"
	if asMentor {
		role = "mentor"
	}
	s.logger.Info("invitation answered",
		zap.String("team_id", teamID),
		zap.String("user_id", actor.UserID),
		zap.String("as", role),
		zap.String("response", response),
		zap.String("team_status", string(team.Status)))

	s.notifier.send(ctx, newNotification(team.CreatorID, model.NotificationInviteAnswered,
		"Invitation answered",
		fmt.Sprintf("A %s invitation for team %q was %s. Team status: %s.", role, team.Name, answer, team.Status),
		"team", team.TeamID))

	return s.reload(ctx, team, event), nil
}

// ────────────────────── Register ──────────────────────

func (s *teamService) Register(ctx context.Context, actor Actor, teamID string) (*dto.TeamResponse, error) {
	current, err := s.getTeam(ctx, s.repo, teamID)
	if err != nil {
		return nil, err
	}
	if current.CreatorID != actor.UserID {
		return nil, ErrNotTeamCreator
	}

	// registrations of one event are serialized so the participant limit holds
	release, err := s.lock(ctx, capacityLockKey(current.EventID))
	if err != nil {
		return nil, err
	}
	defer release()

	team, event, err := s.mutate(ctx, actor, teamID, func(txRepo *repository.Repository, team *model.Team, event *model.Event) error {
		now := s.now()
		if team.CreatorID != actor.UserID {
			return ErrNotTeamCreator
		}
		if team.RegisteredAt != nil {
			return ErrTeamAlreadyRegistered
		}
		if DeriveTeamStatus(team, event) != model.TeamStatusReady {
			return ErrTeamNotReady
		}
		if !event.RegistrationOpen(now) {
			return ErrEventNotOpen
		}
		if event.MaxParticipants > 0 {
			used, err := s.usedCapacity(ctx, txRepo, event.EventID)
			if err != nil {
				return err
			}
			if used+team.Headcount() > event.MaxParticipants {
				return ErrEventFull
			}
		}
		team.RegisteredAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("team registered", zap.String("team_id", teamID), zap.String("event_id", team.EventID))

	items := make([]model.Notification, 0, len(team.Members)+1)
	content := fmt.Sprintf("Team %q is registered for %q.", team.Name, event.Title)
	for _, m := range team.Members {
		items = append(items, newNotification(m.UserID, model.NotificationTeamRegistered, "Team registered", content, "team", team.TeamID))
	}
	if team.MentorAccepted() {
		items = append(items, newNotification(*team.MentorID, model.NotificationTeamRegistered, "Team registered", content, "team", team.TeamID))
	}
	s.notifier.send(ctx, items...)

	return s.reload(ctx, team, event), nil
}

// usedCapacity participants already registered for the event. The event row
// stays locked until txRepo's transaction ends.
func (s *teamService) usedCapacity(ctx context.Context, txRepo *repository.Repository, eventID string) (int, error) {
	if err := txRepo.Event.LockForRegistration(ctx, eventID); err != nil {
		return 0, err
	}
	teams, err := txRepo.Team.SumRegisteredHeadcount(ctx, eventID)
	if err != nil {
		return 0, err
	}
	solo, err := txRepo.Registration.CountByEvent(ctx, eventID)
	if err != nil {
		return 0, err
	}
	return teams + int(solo), nil
}

// ────────────────────── Proof / Verify ──────────────────────

func (s *teamService) SubmitProof(ctx context.Context, actor Actor, teamID string, proofURL string) (*dto.TeamResponse, error) {
	proofURL = strings.TrimSpace(proofURL)
	if proofURL == "" {
		return nil, ErrProofRequired
	}

	team, event, err := s.mutate(ctx, actor, teamID, func(_ *repository.Repository, team *model.Team, _ *model.Event) error {
		if team.CreatorID != actor.UserID {
			return ErrNotTeamCreator
		}
		if team.RegisteredAt == nil {
			return ErrTeamNotRegistered
		}
		if team.VerifiedAt != nil {
			return ErrTeamAlreadyVerified
		}
		now := s.now()
		team.ProofURL = proofURL
		team.ProofSubmittedAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.reload(ctx, team, event), nil
}

func (s *teamService) Verify(ctx context.Context, actor Actor, teamID string) (*dto.TeamResponse, error) {
	if !actor.Role.CanVerifyTeams() {
		return nil, ErrVerifyForbidden
	}

	team, event, err := s.mutate(ctx, actor, teamID, func(_ *repository.Repository, team *model.Team, _ *model.Event) error {
		if team.RegisteredAt == nil {
			return ErrTeamNotRegistered
		}
		if team.VerifiedAt != nil {
			return ErrTeamAlreadyVerified
		}
		if team.ProofURL == "" {
			return ErrProofMissing
		}
		now := s.now()
		team.VerifiedAt = &now
		team.VerifiedBy = &actor.UserID
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifier.send(ctx, newNotification(team.CreatorID, model.NotificationTeamVerified,
		"Participation verified",
		fmt.Sprintf("Team %q was verified for %q.", team.Name, event.Title),
		"team", team.TeamID))

	return s.reload(ctx, team, event), nil
}

// ────────────────────── Disband ──────────────────────

func (s *teamService) Disband(ctx context.Context, actor Actor, teamID string) error {
	release, err := s.lock(ctx, teamLockKey(teamID))
	if err != nil {
		return err
	}
	defer release()

	err = s.repo.Transaction(ctx, func(txRepo *repository.Repository) error {
		team, err := s.getTeam(ctx, txRepo, teamID)
		if err != nil {
			return err
		}
		if team.CreatorID != actor.UserID {
			return ErrNotTeamCreator
		}
		if team.RegisteredAt != nil {
			return ErrTeamAlreadyRegistered
		}
		return txRepo.Team.Delete(ctx, teamID)
	})
	if err != nil && !isBusinessError(err) {
		s.logger.Error("disband team failed", zap.String("team_id", teamID), zap.Error(err))
	}
	return err
}

// ────────────────────── RegisterSolo ──────────────────────

func (s *teamService) RegisterSolo(ctx context.Context, actor Actor, eventID string) (*dto.SoloRegistrationResponse, error) {
	if !actor.Role.CanJoinTeams() {
		return nil, ErrTeamJoinForbidden
	}
	event, err := s.getEvent(ctx, s.repo, eventID)
	if err != nil {
		return nil, err
	}
	if !event.RegistrationOpen(s.now()) {
		return nil, ErrEventNotOpen
	}
	if !event.IsSolo() {
		return nil, ErrNotSoloEvent
	}
	user, err := s.getUser(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	if !event.Admits(user) {
		return nil, ErrNotEligible
	}

	release, err := s.lock(ctx, capacityLockKey(eventID))
	if err != nil {
		return nil, err
	}
	defer release()

	reg := &model.EventRegistration{EventID: eventID, UserID: user.UserID}
	err = s.repo.Transaction(ctx, func(txRepo *repository.Repository) error {
		exists, err := txRepo.Registration.Exists(ctx, eventID, user.UserID)
		if err != nil {
			return err
		}
		if exists {
			return ErrAlreadyRegistered
		}
		if event.MaxParticipants > 0 {
			used, err := s.usedCapacity(ctx, txRepo, eventID)
			if err != nil {
				return err
			}
			if used >= event.MaxParticipants {
				return ErrEventFull
			}
		}
		return txRepo.Registration.Create(ctx, reg)
	})
	if err != nil {
		if !isBusinessError(err) {
			s.logger.Error("solo registration failed", zap.String("event_id", eventID), zap.Error(err))
		}
		return nil, err
	}

	return &dto.SoloRegistrationResponse{
		ID:        reg.RegistrationID,
		EventID:   eventID,
		User:      toUserBrief(user),
		CreatedAt: reg.CreatedAt,
	}, nil
}

// ── helpers ──

// mutate runs one read-modify-write of a team under the team lock and
// inside a transaction. fn sees fresh copies of the team and its event;
// the composite status is re-derived and the version-checked update is
// written only when fn succeeds.
func (s *teamService) mutate(
	ctx context.Context,
	actor Actor,
	teamID string,
	fn func(txRepo *repository.Repository, team *model.Team, event *model.Event) error,
) (*model.Team, *model.Event, error) {
	release, err := s.lock(ctx, teamLockKey(teamID))
	if err != nil {
		return nil, nil, err
	}
	defer release()

	var (
		team  *model.Team
		event *model.Event
	)
	err = s.repo.Transaction(ctx, func(txRepo *repository.Repository) error {
		t, err := s.getTeam(ctx, txRepo, teamID)
		if err != nil {
			return err
		}
		e, err := s.getEvent(ctx, txRepo, t.EventID)
		if err != nil {
			return err
		}
		if err := fn(txRepo, t, e); err != nil {
			return err
		}

		t.Status = DeriveTeamStatus(t, e)
		t.UpdatedBy = &actor.UserID
		if err := txRepo.Team.Update(ctx, t); err != nil {
			return err
		}
		team, event = t, e
		return nil
	})
	if err != nil {
		if !isBusinessError(err) {
			s.logger.Error("team write failed", zap.String("team_id", teamID), zap.Error(err))
		}
		return nil, nil, err
	}
	return team, event, nil
}

// lock takes a distributed lock; when the lock backend itself fails the
// write proceeds on the version check alone
func (s *teamService) lock(ctx context.Context, key string) (func(), error) {
	release, err := s.locker.Lock(ctx, key)
	if err == nil {
		return release, nil
	}
	if errors.Is(err, ErrBusy) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil, err
	}
	s.logger.Warn("lock backend unavailable, relying on version check", zap.String("key", key), zap.Error(err))
	return func() {}, nil
}

// lockAll takes every key in sorted order and releases them in reverse
func (s *teamService) lockAll(ctx context.Context, keys []string) (func(), error) {
	sort.Strings(keys)
	releases := make([]func(), 0, len(keys))
	releaseAll := func() {
		for i := len(releases) - 1; i >= 0; i-- {
			releases[i]()
		}
	}
	for _, key := range keys {
		release, err := s.lock(ctx, key)
		if err != nil {
			releaseAll()
			return nil, err
		}
		releases = append(releases, release)
	}
	return releaseAll, nil
}

func (s *teamService) getTeam(ctx context.Context, repo *repository.Repository, id string) (*model.Team, error) {
	team, err := repo.Team.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTeamNotFound
		}
		s.logger.Error("get team failed", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return team, nil
}

func (s *teamService) getEvent(ctx context.Context, repo *repository.Repository, id string) (*model.Event, error) {
	event, err := repo.Event.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEventNotFound
		}
		s.logger.Error("get event failed", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return event, nil
}

func (s *teamService) getUser(ctx context.Context, id string) (*model.User, error) {
	user, err := s.repo.User.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		s.logger.Error("get user failed", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return user, nil
}

// reload re-reads the team with its associations, falling back to the
// in-memory copy
func (s *teamService) reload(ctx context.Context, team *model.Team, event *model.Event) *dto.TeamResponse {
	if fresh, err := s.repo.Team.GetByID(ctx, team.TeamID); err == nil {
		team = fresh
	}
	return toTeamResponse(team, event)
}

func (s *teamService) notifyInvitees(ctx context.Context, team *model.Team, event *model.Event, creator *model.User, members []*model.User, mentor *model.User) {
	items := make([]model.Notification, 0, len(members)+1)
	for _, u := range members {
		items = append(items, newNotification(u.UserID, model.NotificationTeamInvite,
			"Team invitation",
			fmt.Sprintf("%s invited you to team %q for %q.", creator.Name, team.Name, event.Title),
			"team", team.TeamID))
	}
	if mentor != nil {
		items = append(items, newNotification(mentor.UserID, model.NotificationMentorInvite,
			"Mentor invitation",
			fmt.Sprintf("%s asked you to mentor team %q for %q.", creator.Name, team.Name, event.Title),
			"team", team.TeamID))
	}
	s.notifier.send(ctx, items...)
}

// isTeamParticipant creator, invited member or invited mentor
func isTeamParticipant(team *model.Team, userID string) bool {
	return team.CreatorID == userID || team.MemberIndex(userID) >= 0 || team.IsMentor(userID)
}

// canOverseeTeams may see every team of the event
func canOverseeTeams(event *model.Event, actor Actor) bool {
	return event.CreatorID == actor.UserID ||
		actor.Role.CanManageAnyEvent() ||
		actor.Role.CanVerifyTeams() ||
		actor.Role.CanViewAllEvents()
}
