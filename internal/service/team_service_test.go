package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"campus-events/backend/internal/dto"
	"campus-events/backend/internal/model"
	"campus-events/backend/internal/repository"
	pkgerrors "campus-events/backend/pkg/errors"
)

type teamFixture struct {
	store  *mockStore
	svc    *teamService
	dept   *model.Department
	cell   *model.User
	mentor *model.User
	alice  *model.User
	bob    *model.User
	carol  *model.User
	dave   *model.User
}

func newTeamFixture() *teamFixture {
	store := newMockStore()
	repo := store.repository()
	svc := NewTeamService(repo, noopLocker{}, newTestNotifier(repo), zap.NewNop()).(*teamService)
	svc.now = fixedClock(testNow)

	dept := store.addDepartment("CSE")
	return &teamFixture{
		store:  store,
		svc:    svc,
		dept:   dept,
		cell:   store.addUser("Cell", model.RoleInnovationCell, nil, 0),
		mentor: store.addUser("Mentor", model.RoleStaff, dept, 0),
		alice:  store.addUser("Alice", model.RoleStudent, dept, 2),
		bob:    store.addUser("Bob", model.RoleStudent, dept, 2),
		carol:  store.addUser("Carol", model.RoleStudent, dept, 3),
		dave:   store.addUser("Dave", model.RoleStudent, dept, 1),
	}
}

// openEvent adds an approved event starting in two days
func (f *teamFixture) openEvent(min, max int, requiresMentor bool) *model.Event {
	return f.store.addEvent(&model.Event{
		Title:          "Hack Week",
		Type:           model.EventTypeHackathon,
		Scope:          model.EventScopeCollege,
		Status:         model.EventStatusApproved,
		StartDate:      testNow.Add(48 * time.Hour),
		EndDate:        testNow.Add(96 * time.Hour),
		TeamSizeMin:    min,
		TeamSizeMax:    max,
		RequiresMentor: requiresMentor,
		CreatorID:      f.cell.UserID,
	})
}

func (f *teamFixture) createTeam(t *testing.T, creator *model.User, eventID, name string, members []*model.User, mentor *model.User) *dto.TeamResponse {
	t.Helper()
	req := &dto.CreateTeamRequest{Name: name}
	for _, m := range members {
		req.MemberEmails = append(req.MemberEmails, m.Email)
	}
	if mentor != nil {
		email := mentor.Email
		req.MentorEmail = &email
	}
	resp, err := f.svc.Create(context.Background(), actorOf(creator), eventID, req)
	if err != nil {
		t.Fatalf("create team: %v", err)
	}
	return resp
}

func (f *teamFixture) respond(t *testing.T, u *model.User, teamID, answer string) *dto.TeamResponse {
	t.Helper()
	resp, err := f.svc.Respond(context.Background(), actorOf(u), teamID, answer)
	if err != nil {
		t.Fatalf("%s responding %s: %v", u.Name, answer, err)
	}
	return resp
}

// ────────────────────── scenarios ──────────────────────

func TestTeam_ReadyAfterLastAcceptance(t *testing.T) {
	f := newTeamFixture()
	event := f.openEvent(2, 4, false)

	team := f.createTeam(t, f.alice, event.EventID, "Rocket", []*model.User{f.bob}, nil)
	if team.Status != string(model.TeamStatusForming) {
		t.Fatalf("new team should be forming, got %s", team.Status)
	}
	if team.Headcount != 1 {
		t.Errorf("only the creator counts before acceptance, got %d", team.Headcount)
	}

	resp := f.respond(t, f.bob, team.ID, "accepted")
	if resp.Status != string(model.TeamStatusReady) {
		t.Errorf("expected ready after the last acceptance, got %s", resp.Status)
	}
	if stored := f.store.team(team.ID); stored.Status != model.TeamStatusReady {
		t.Errorf("stored status cache should be ready, got %s", stored.Status)
	}
	if got := f.store.notificationsFor(f.alice.UserID, model.NotificationInviteAnswered); len(got) != 1 {
		t.Errorf("creator should be told about the answer, got %d", len(got))
	}
}

func TestTeam_MentorRequiredKeepsForming(t *testing.T) {
	f := newTeamFixture()
	event := f.openEvent(2, 4, true)

	team := f.createTeam(t, f.alice, event.EventID, "Rocket", []*model.User{f.bob}, f.mentor)
	resp := f.respond(t, f.bob, team.ID, "accepted")
	if resp.Status != string(model.TeamStatusForming) {
		t.Fatalf("pending mentor must keep the team forming, got %s", resp.Status)
	}

	resp = f.respond(t, f.mentor, team.ID, "accepted")
	if resp.Status != string(model.TeamStatusReady) {
		t.Errorf("expected ready once the mentor accepts, got %s", resp.Status)
	}
}

func TestTeam_RegisterByNonCreator(t *testing.T) {
	f := newTeamFixture()
	event := f.openEvent(2, 4, false)
	team := f.createTeam(t, f.alice, event.EventID, "Rocket", []*model.User{f.bob}, nil)
	f.respond(t, f.bob, team.ID, "accepted")

	_, err := f.svc.Register(context.Background(), actorOf(f.bob), team.ID)
	if !errors.Is(err, ErrNotTeamCreator) || !errors.Is(err, pkgerrors.ErrAuthorization) {
		t.Fatalf("expected an authorization error, got %v", err)
	}
	stored := f.store.team(team.ID)
	if stored.Status != model.TeamStatusReady || stored.RegisteredAt != nil {
		t.Errorf("team must stay ready and unregistered, got %s", stored.Status)
	}
}

// ────────────────────── create ──────────────────────

func TestCreateTeam_Validation(t *testing.T) {
	f := newTeamFixture()
	event := f.openEvent(2, 3, false)
	mentorEvent := f.openEvent(2, 3, true)
	solo := f.openEvent(1, 1, false)
	unknown := "ghost@campus.test"
	studentMentor := f.dave.Email

	tests := []struct {
		name    string
		actor   *model.User
		eventID string
		req     *dto.CreateTeamRequest
		want    error
	}{
		{"staff cannot form teams", f.mentor, event.EventID, &dto.CreateTeamRequest{Name: "A"}, ErrTeamJoinForbidden},
		{"unknown event", f.alice, "missing", &dto.CreateTeamRequest{Name: "A"}, ErrEventNotFound},
		{"solo event", f.alice, solo.EventID, &dto.CreateTeamRequest{Name: "A"}, ErrSoloEvent},
		{"blank name", f.alice, event.EventID, &dto.CreateTeamRequest{Name: "   "}, ErrTeamNameRequired},
		{"unknown member", f.alice, event.EventID, &dto.CreateTeamRequest{Name: "A", MemberEmails: []string{unknown}}, ErrInviteeNotFound},
		{"creator invites self", f.alice, event.EventID, &dto.CreateTeamRequest{Name: "A", MemberEmails: []string{f.alice.Email}}, ErrInviteeIsCreator},
		{"staff as member", f.alice, event.EventID, &dto.CreateTeamRequest{Name: "A", MemberEmails: []string{f.mentor.Email}}, ErrInviteeNotStudent},
		{"too many members", f.alice, event.EventID, &dto.CreateTeamRequest{Name: "A", MemberEmails: []string{f.bob.Email, f.carol.Email, f.dave.Email}}, ErrTeamTooLarge},
		{"student as mentor", f.alice, event.EventID, &dto.CreateTeamRequest{Name: "A", MentorEmail: &studentMentor}, ErrMentorNotEligible},
		{"unknown mentor", f.alice, event.EventID, &dto.CreateTeamRequest{Name: "A", MentorEmail: &unknown}, ErrMentorNotFound},
		{"missing required mentor", f.alice, mentorEvent.EventID, &dto.CreateTeamRequest{Name: "A"}, ErrMentorRequired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Create(context.Background(), actorOf(tt.actor), tt.eventID, tt.req)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}

	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	if len(f.store.teams) != 0 {
		t.Errorf("failed creations must not write, found %d teams", len(f.store.teams))
	}
}

func TestCreateTeam_DeduplicatesMembers(t *testing.T) {
	f := newTeamFixture()
	event := f.openEvent(2, 3, false)

	resp, err := f.svc.Create(context.Background(), actorOf(f.alice), event.EventID, &dto.CreateTeamRequest{
		Name:         "Rocket",
		MemberEmails: []string{f.bob.Email, "  BOB@campus.test ", f.carol.Email},
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if len(resp.Members) != 2 {
		t.Errorf("expected 2 distinct invitees, got %d", len(resp.Members))
	}
	if got := f.store.notificationsFor(f.bob.UserID, model.NotificationTeamInvite); len(got) != 1 {
		t.Errorf("bob should get one invitation, got %d", len(got))
	}
}

func TestCreateTeam_Eligibility(t *testing.T) {
	f := newTeamFixture()
	event := f.openEvent(2, 3, false)
	f.store.mu.Lock()
	f.store.events[event.EventID].AllowedYears = model.IntArray{2}
	f.store.mu.Unlock()

	_, err := f.svc.Create(context.Background(), actorOf(f.alice), event.EventID, &dto.CreateTeamRequest{
		Name:         "Rocket",
		MemberEmails: []string{f.carol.Email},
	})
	if !errors.Is(err, ErrNotEligible) {
		t.Fatalf("third-year member: expected ErrNotEligible, got %v", err)
	}

	_, err = f.svc.Create(context.Background(), actorOf(f.carol), event.EventID, &dto.CreateTeamRequest{Name: "Solo Carol"})
	if !errors.Is(err, ErrNotEligible) {
		t.Fatalf("third-year creator: expected ErrNotEligible, got %v", err)
	}
}

func TestCreateTeam_ClosedRegistration(t *testing.T) {
	f := newTeamFixture()
	event := f.openEvent(2, 3, false)
	deadline := testNow.Add(-time.Hour)
	f.store.mu.Lock()
	f.store.events[event.EventID].RegistrationDeadline = &deadline
	f.store.mu.Unlock()

	_, err := f.svc.Create(context.Background(), actorOf(f.alice), event.EventID, &dto.CreateTeamRequest{Name: "Late"})
	if !errors.Is(err, ErrEventNotOpen) {
		t.Fatalf("expected ErrEventNotOpen, got %v", err)
	}

	pending := f.store.addEvent(&model.Event{Status: model.EventStatusPending, StartDate: testNow.Add(time.Hour), EndDate: testNow.Add(2 * time.Hour), TeamSizeMin: 1, TeamSizeMax: 3})
	_, err = f.svc.Create(context.Background(), actorOf(f.alice), pending.EventID, &dto.CreateTeamRequest{Name: "Early"})
	if !errors.Is(err, ErrEventNotOpen) {
		t.Fatalf("unapproved event: expected ErrEventNotOpen, got %v", err)
	}
}

func TestCreateTeam_NameUniquePerEvent(t *testing.T) {
	f := newTeamFixture()
	event := f.openEvent(1, 3, false)
	f.createTeam(t, f.alice, event.EventID, "Rocket", nil, nil)

	_, err := f.svc.Create(context.Background(), actorOf(f.bob), event.EventID, &dto.CreateTeamRequest{Name: "rocket"})
	if !errors.Is(err, ErrTeamNameTaken) {
		t.Fatalf("expected ErrTeamNameTaken, got %v", err)
	}

	other := f.openEvent(1, 3, false)
	f.createTeam(t, f.bob, other.EventID, "Rocket", nil, nil)
}

func TestCreateTeam_AlreadyInTeam(t *testing.T) {
	f := newTeamFixture()
	event := f.openEvent(1, 3, false)
	first := f.createTeam(t, f.alice, event.EventID, "First", []*model.User{f.bob}, nil)

	// creator of another team
	_, err := f.svc.Create(context.Background(), actorOf(f.alice), event.EventID, &dto.CreateTeamRequest{Name: "Second"})
	if !errors.Is(err, ErrAlreadyInTeam) {
		t.Fatalf("creator twice: expected ErrAlreadyInTeam, got %v", err)
	}

	// a pending invitation does not block
	f.createTeam(t, f.carol, event.EventID, "Third", []*model.User{f.bob}, nil)

	f.respond(t, f.bob, first.ID, "accepted")
	_, err = f.svc.Create(context.Background(), actorOf(f.dave), event.EventID, &dto.CreateTeamRequest{
		Name:         "Fourth",
		MemberEmails: []string{f.bob.Email},
	})
	if !errors.Is(err, ErrAlreadyInTeam) || !errors.Is(err, pkgerrors.ErrValidation) {
		t.Fatalf("accepted member invited again: expected ErrAlreadyInTeam, got %v", err)
	}
}

// ────────────────────── respond ──────────────────────

func TestRespond_SecondResponseRejected(t *testing.T) {
	f := newTeamFixture()
	event := f.openEvent(2, 4, false)
	team := f.createTeam(t, f.alice, event.EventID, "Rocket", []*model.User{f.bob}, nil)
	f.respond(t, f.bob, team.ID, "rejected")
	before := f.store.team(team.ID)

	_, err := f.svc.Respond(context.Background(), actorOf(f.bob), team.ID, "accepted")
	if !errors.Is(err, ErrAlreadyResponded) || !errors.Is(err, pkgerrors.ErrInvalidState) {
		t.Fatalf("expected ErrAlreadyResponded, got %v", err)
	}
	after := f.store.team(team.ID)
	if after.Version != before.Version || after.Members[0].Status != model.InviteStatusRejected {
		t.Error("team must be unchanged by a second response")
	}
	if after.Status != model.TeamStatusForming {
		t.Errorf("rejected member without backfill keeps the team forming, got %s", after.Status)
	}
}

func TestRespond_NotInvited(t *testing.T) {
	f := newTeamFixture()
	event := f.openEvent(2, 4, false)
	team := f.createTeam(t, f.alice, event.EventID, "Rocket", []*model.User{f.bob}, nil)

	_, err := f.svc.Respond(context.Background(), actorOf(f.carol), team.ID, "accepted")
	if !errors.Is(err, ErrNotInvited) {
		t.Fatalf("expected ErrNotInvited, got %v", err)
	}
	if _, err := f.svc.Respond(context.Background(), actorOf(f.bob), team.ID, "maybe"); !errors.Is(err, ErrInvalidResponse) {
		t.Errorf("expected ErrInvalidResponse, got %v", err)
	}
	if _, err := f.svc.Respond(context.Background(), actorOf(f.bob), "missing", "accepted"); !errors.Is(err, ErrTeamNotFound) {
		t.Errorf("expected ErrTeamNotFound, got %v", err)
	}
}

func TestRespond_AcceptedElsewhere(t *testing.T) {
	f := newTeamFixture()
	event := f.openEvent(2, 4, false)
	first := f.createTeam(t, f.alice, event.EventID, "First", []*model.User{f.bob}, nil)
	second := f.createTeam(t, f.carol, event.EventID, "Second", []*model.User{f.bob}, nil)

	f.respond(t, f.bob, first.ID, "accepted")
	_, err := f.svc.Respond(context.Background(), actorOf(f.bob), second.ID, "accepted")
	if !errors.Is(err, ErrAcceptedElsewhere) {
		t.Fatalf("expected ErrAcceptedElsewhere, got %v", err)
	}

	// rejecting the other invitation is still possible
	f.respond(t, f.bob, second.ID, "rejected")
}

func TestRespond_ConcurrentAcceptancesAllLand(t *testing.T) {
	f := newTeamFixture()
	f.svc.locker = newMemLocker()
	event := f.openEvent(4, 4, false)
	team := f.createTeam(t, f.alice, event.EventID, "Rocket", []*model.User{f.bob, f.carol, f.dave}, nil)

	var wg sync.WaitGroup
	errs := make(chan error, 3)
	for _, u := range []*model.User{f.bob, f.carol, f.dave} {
		wg.Add(1)
		go func(u *model.User) {
			defer wg.Done()
			_, err := f.svc.Respond(context.Background(), actorOf(u), team.ID, "accepted")
			errs <- err
		}(u)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Errorf("serialized response failed: %v", err)
		}
	}

	stored := f.store.team(team.ID)
	if stored.Status != model.TeamStatusReady || stored.Headcount() != 4 {
		t.Errorf("expected a full ready team, got %s with %d", stored.Status, stored.Headcount())
	}
	if stored.Version != 4 {
		t.Errorf("expected three versioned writes, got version %d", stored.Version)
	}
}

// rendezvousTeamRepo holds each membership lookup until a second lookup
// arrives or wait elapses, so two unserialized acceptances both read
// before either writes
type rendezvousTeamRepo struct {
	repository.TeamRepository
	wait time.Duration

	mu      sync.Mutex
	arrived int
	both    chan struct{}
}

func (r *rendezvousTeamRepo) FindAcceptedTeamID(ctx context.Context, eventID, userID, excludeTeamID string) (string, error) {
	r.mu.Lock()
	r.arrived++
	if r.arrived == 2 {
		close(r.both)
	}
	r.mu.Unlock()

	select {
	case <-r.both:
	case <-time.After(r.wait):
	}
	return r.TeamRepository.FindAcceptedTeamID(ctx, eventID, userID, excludeTeamID)
}

func TestRespond_OneUserAcceptingTwoTeamsConcurrently(t *testing.T) {
	f := newTeamFixture()
	f.svc.locker = newMemLocker()
	event := f.openEvent(2, 4, false)
	one := f.createTeam(t, f.alice, event.EventID, "One", []*model.User{f.carol}, nil)
	two := f.createTeam(t, f.bob, event.EventID, "Two", []*model.User{f.carol}, nil)

	repo := *f.svc.repo
	repo.Team = &rendezvousTeamRepo{TeamRepository: repo.Team, wait: 200 * time.Millisecond, both: make(chan struct{})}
	f.svc.repo = &repo

	var wg sync.WaitGroup
	errs := make(chan error, 2)
	for _, id := range []string{one.ID, two.ID} {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_, err := f.svc.Respond(context.Background(), actorOf(f.carol), id, "accepted")
			errs <- err
		}(id)
	}
	wg.Wait()
	close(errs)

	var ok, elsewhere int
	for err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrAcceptedElsewhere):
			elsewhere++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if ok != 1 || elsewhere != 1 {
		t.Fatalf("expected one acceptance and one ErrAcceptedElsewhere, got %d and %d", ok, elsewhere)
	}

	accepted := 0
	for _, id := range []string{one.ID, two.ID} {
		team := f.store.team(id)
		if team.Members[team.MemberIndex(f.carol.UserID)].Status == model.InviteStatusAccepted {
			accepted++
		}
	}
	if accepted != 1 {
		t.Errorf("carol accepted in %d teams of one event", accepted)
	}
}

func TestCreateTeam_WaitsForMembershipLocks(t *testing.T) {
	f := newTeamFixture()
	f.svc.locker = busyLocker{}
	event := f.openEvent(2, 4, false)

	req := &dto.CreateTeamRequest{Name: "Rocket", MemberEmails: []string{f.bob.Email}}
	if _, err := f.svc.Create(context.Background(), actorOf(f.alice), event.EventID, req); !errors.Is(err, ErrBusy) {
		t.Fatalf("expected ErrBusy while a participant is locked, got %v", err)
	}
	if teams, _ := f.store.repository().Team.ListByEvent(context.Background(), event.EventID); len(teams) != 0 {
		t.Errorf("no team may be written, got %d", len(teams))
	}
}

func TestLockAll_SortedAndReleased(t *testing.T) {
	f := newTeamFixture()
	rec := &recordingLocker{}
	f.svc.locker = rec

	release, err := f.svc.lockAll(context.Background(), []string{"b", "c", "a"})
	if err != nil {
		t.Fatalf("lockAll failed: %v", err)
	}
	release()
	want := []string{"lock a", "lock b", "lock c", "unlock c", "unlock b", "unlock a"}
	if len(rec.log) != len(want) {
		t.Fatalf("expected %v, got %v", want, rec.log)
	}
	for i := range want {
		if rec.log[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, rec.log)
		}
	}
}

// recordingLocker logs lock and unlock order
type recordingLocker struct {
	log []string
}

func (l *recordingLocker) Lock(_ context.Context, key string) (func(), error) {
	l.log = append(l.log, "lock "+key)
	return func() { l.log = append(l.log, "unlock "+key) }, nil
}

func TestRespond_StaleVersionConflicts(t *testing.T) {
	f := newTeamFixture()
	event := f.openEvent(2, 4, false)
	team := f.createTeam(t, f.alice, event.EventID, "Rocket", []*model.User{f.bob}, nil)

	stale, _ := f.store.repository().Team.GetByID(context.Background(), team.ID)
	f.respond(t, f.bob, team.ID, "accepted")

	stale.Name = "late rename"
	if err := f.store.repository().Team.Update(context.Background(), stale); !errors.Is(err, pkgerrors.ErrOptimisticLock) {
		t.Errorf("expected ErrOptimisticLock, got %v", err)
	}
}

func TestRespond_Locking(t *testing.T) {
	f := newTeamFixture()
	event := f.openEvent(2, 4, false)
	team := f.createTeam(t, f.alice, event.EventID, "Rocket", []*model.User{f.bob}, nil)

	f.svc.locker = busyLocker{}
	_, err := f.svc.Respond(context.Background(), actorOf(f.bob), team.ID, "accepted")
	if !errors.Is(err, ErrBusy) || !errors.Is(err, pkgerrors.ErrOptimisticLock) {
		t.Fatalf("held lock: expected ErrBusy, got %v", err)
	}

	f.svc.locker = brokenLocker{}
	resp, err := f.svc.Respond(context.Background(), actorOf(f.bob), team.ID, "accepted")
	if err != nil {
		t.Fatalf("unreachable lock backend should fall back to the version check: %v", err)
	}
	if resp.Status != string(model.TeamStatusReady) {
		t.Errorf("expected ready, got %s", resp.Status)
	}
}

func TestRespond_NotificationFailureIgnored(t *testing.T) {
	f := newTeamFixture()
	event := f.openEvent(2, 4, false)
	team := f.createTeam(t, f.alice, event.EventID, "Rocket", []*model.User{f.bob}, nil)
	f.store.failNotifications = true

	resp := f.respond(t, f.bob, team.ID, "accepted")
	if resp.Status != string(model.TeamStatusReady) {
		t.Errorf("expected ready, got %s", resp.Status)
	}
}

// ────────────────────── register ──────────────────────

func (f *teamFixture) readyTeam(t *testing.T, event *model.Event, creator *model.User, name string, members ...*model.User) string {
	t.Helper()
	team := f.createTeam(t, creator, event.EventID, name, members, nil)
	for _, m := range members {
		f.respond(t, m, team.ID, "accepted")
	}
	return team.ID
}

func TestRegister(t *testing.T) {
	f := newTeamFixture()
	event := f.openEvent(2, 4, false)
	id := f.readyTeam(t, event, f.alice, "Rocket", f.bob)

	resp, err := f.svc.Register(context.Background(), actorOf(f.alice), id)
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if resp.Status != string(model.TeamStatusRegistered) || resp.RegisteredAt == nil {
		t.Errorf("expected registered, got %s", resp.Status)
	}
	if got := f.store.notificationsFor(f.bob.UserID, model.NotificationTeamRegistered); len(got) != 1 {
		t.Errorf("members should be notified, got %d", len(got))
	}

	if _, err := f.svc.Register(context.Background(), actorOf(f.alice), id); !errors.Is(err, ErrTeamAlreadyRegistered) {
		t.Errorf("second register: expected ErrTeamAlreadyRegistered, got %v", err)
	}
}

func TestRegister_NotReady(t *testing.T) {
	f := newTeamFixture()
	event := f.openEvent(2, 4, false)
	team := f.createTeam(t, f.alice, event.EventID, "Rocket", []*model.User{f.bob}, nil)

	_, err := f.svc.Register(context.Background(), actorOf(f.alice), team.ID)
	if !errors.Is(err, ErrTeamNotReady) {
		t.Fatalf("expected ErrTeamNotReady, got %v", err)
	}
}

func TestRegister_EventClosedMeanwhile(t *testing.T) {
	f := newTeamFixture()
	event := f.openEvent(2, 4, false)
	id := f.readyTeam(t, event, f.alice, "Rocket", f.bob)
	f.svc.now = fixedClock(event.StartDate.Add(time.Minute))

	_, err := f.svc.Register(context.Background(), actorOf(f.alice), id)
	if !errors.Is(err, ErrEventNotOpen) {
		t.Fatalf("expected ErrEventNotOpen, got %v", err)
	}
}

func TestRegister_Capacity(t *testing.T) {
	f := newTeamFixture()
	event := f.openEvent(2, 2, false)
	f.store.mu.Lock()
	f.store.events[event.EventID].MaxParticipants = 3
	f.store.mu.Unlock()

	first := f.readyTeam(t, event, f.alice, "First", f.bob)
	second := f.readyTeam(t, event, f.carol, "Second", f.dave)

	if _, err := f.svc.Register(context.Background(), actorOf(f.alice), first); err != nil {
		t.Fatalf("first register: %v", err)
	}
	_, err := f.svc.Register(context.Background(), actorOf(f.carol), second)
	if !errors.Is(err, ErrEventFull) || !errors.Is(err, pkgerrors.ErrInvalidState) {
		t.Fatalf("expected ErrEventFull, got %v", err)
	}
	if f.store.team(second).RegisteredAt != nil {
		t.Error("rejected registration must not be stored")
	}
}

// ────────────────────── proof / verify ──────────────────────

func TestProofAndVerify(t *testing.T) {
	f := newTeamFixture()
	ctx := context.Background()
	event := f.openEvent(2, 4, false)
	id := f.readyTeam(t, event, f.alice, "Rocket", f.bob)

	if _, err := f.svc.SubmitProof(ctx, actorOf(f.alice), id, "https://example.com/p.pdf"); !errors.Is(err, ErrTeamNotRegistered) {
		t.Errorf("proof before registering: expected ErrTeamNotRegistered, got %v", err)
	}
	if _, err := f.svc.Register(ctx, actorOf(f.alice), id); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if _, err := f.svc.Verify(ctx, actorOf(f.cell), id); !errors.Is(err, ErrProofMissing) {
		t.Errorf("verify without proof: expected ErrProofMissing, got %v", err)
	}
	if _, err := f.svc.SubmitProof(ctx, actorOf(f.bob), id, "https://example.com/p.pdf"); !errors.Is(err, ErrNotTeamCreator) {
		t.Errorf("member proof: expected ErrNotTeamCreator, got %v", err)
	}
	if _, err := f.svc.SubmitProof(ctx, actorOf(f.alice), id, " "); !errors.Is(err, ErrProofRequired) {
		t.Errorf("blank proof: expected ErrProofRequired, got %v", err)
	}
	if _, err := f.svc.SubmitProof(ctx, actorOf(f.alice), id, "https://example.com/p.pdf"); err != nil {
		t.Fatalf("SubmitProof failed: %v", err)
	}

	if _, err := f.svc.Verify(ctx, actorOf(f.alice), id); !errors.Is(err, ErrVerifyForbidden) {
		t.Errorf("student verify: expected ErrVerifyForbidden, got %v", err)
	}
	resp, err := f.svc.Verify(ctx, actorOf(f.cell), id)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if resp.Status != string(model.TeamStatusVerified) {
		t.Errorf("expected verified, got %s", resp.Status)
	}
	if got := f.store.notificationsFor(f.alice.UserID, model.NotificationTeamVerified); len(got) != 1 {
		t.Errorf("creator should be notified, got %d", len(got))
	}
	if _, err := f.svc.Verify(ctx, actorOf(f.cell), id); !errors.Is(err, ErrTeamAlreadyVerified) {
		t.Errorf("second verify: expected ErrTeamAlreadyVerified, got %v", err)
	}
}

// ────────────────────── disband ──────────────────────

func TestDisband(t *testing.T) {
	f := newTeamFixture()
	ctx := context.Background()
	event := f.openEvent(2, 4, false)
	id := f.readyTeam(t, event, f.alice, "Rocket", f.bob)

	if err := f.svc.Disband(ctx, actorOf(f.bob), id); !errors.Is(err, ErrNotTeamCreator) {
		t.Errorf("member disband: expected ErrNotTeamCreator, got %v", err)
	}
	if err := f.svc.Disband(ctx, actorOf(f.alice), id); err != nil {
		t.Fatalf("Disband failed: %v", err)
	}
	if f.store.team(id) != nil {
		t.Error("team should be gone")
	}

	registered := f.readyTeam(t, event, f.carol, "Comet", f.dave)
	if _, err := f.svc.Register(ctx, actorOf(f.carol), registered); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if err := f.svc.Disband(ctx, actorOf(f.carol), registered); !errors.Is(err, ErrTeamAlreadyRegistered) {
		t.Errorf("registered disband: expected ErrTeamAlreadyRegistered, got %v", err)
	}
}

// ────────────────────── solo ──────────────────────

func TestRegisterSolo(t *testing.T) {
	f := newTeamFixture()
	ctx := context.Background()
	solo := f.openEvent(1, 1, false)
	teamEvent := f.openEvent(2, 4, false)
	f.store.mu.Lock()
	f.store.events[solo.EventID].MaxParticipants = 1
	f.store.mu.Unlock()

	resp, err := f.svc.RegisterSolo(ctx, actorOf(f.alice), solo.EventID)
	if err != nil {
		t.Fatalf("RegisterSolo failed: %v", err)
	}
	if resp.EventID != solo.EventID || resp.User.ID != f.alice.UserID {
		t.Errorf("unexpected registration %+v", resp)
	}

	if _, err := f.svc.RegisterSolo(ctx, actorOf(f.alice), solo.EventID); !errors.Is(err, ErrAlreadyRegistered) {
		t.Errorf("twice: expected ErrAlreadyRegistered, got %v", err)
	}
	if _, err := f.svc.RegisterSolo(ctx, actorOf(f.bob), solo.EventID); !errors.Is(err, ErrEventFull) {
		t.Errorf("over capacity: expected ErrEventFull, got %v", err)
	}
	if _, err := f.svc.RegisterSolo(ctx, actorOf(f.bob), teamEvent.EventID); !errors.Is(err, ErrNotSoloEvent) {
		t.Errorf("team event: expected ErrNotSoloEvent, got %v", err)
	}
	if _, err := f.svc.RegisterSolo(ctx, actorOf(f.mentor), solo.EventID); !errors.Is(err, ErrTeamJoinForbidden) {
		t.Errorf("staff: expected ErrTeamJoinForbidden, got %v", err)
	}
}

// ────────────────────── queries ──────────────────────

func TestTeamQueries(t *testing.T) {
	f := newTeamFixture()
	ctx := context.Background()
	event := f.openEvent(2, 4, false)
	team := f.createTeam(t, f.alice, event.EventID, "Rocket", []*model.User{f.bob}, f.mentor)

	invitations, err := f.svc.ListInvitations(ctx, actorOf(f.mentor))
	if err != nil {
		t.Fatalf("ListInvitations failed: %v", err)
	}
	if len(invitations) != 1 || !invitations[0].AsMentor || invitations[0].Event.ID != event.EventID {
		t.Errorf("unexpected invitations %+v", invitations)
	}

	mine, err := f.svc.ListMine(ctx, actorOf(f.bob))
	if err != nil || len(mine) != 1 {
		t.Errorf("invitee should see the team, got %d (%v)", len(mine), err)
	}

	if _, err := f.svc.GetByID(ctx, actorOf(f.carol), team.ID); !errors.Is(err, ErrForbidden) {
		t.Errorf("outsider: expected ErrForbidden, got %v", err)
	}
	if _, err := f.svc.GetByID(ctx, actorOf(f.cell), team.ID); err != nil {
		t.Errorf("innovation cell: %v", err)
	}
	if _, err := f.svc.ListByEvent(ctx, actorOf(f.alice), event.EventID); !errors.Is(err, ErrForbidden) {
		t.Errorf("student listing teams: expected ErrForbidden, got %v", err)
	}
	teams, err := f.svc.ListByEvent(ctx, actorOf(f.cell), event.EventID)
	if err != nil || len(teams) != 1 {
		t.Errorf("expected 1 team, got %d (%v)", len(teams), err)
	}
}

// memLocker in-process per-key mutex standing in for the Redis lock
type memLocker struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newMemLocker() *memLocker { return &memLocker{locks: make(map[string]*sync.Mutex)} }

func (l *memLocker) Lock(_ context.Context, key string) (func(), error) {
	l.mu.Lock()
	m, ok := l.locks[key]
	if !ok {
		m = &sync.Mutex{}
		l.locks[key] = m
	}
	l.mu.Unlock()
	m.Lock()
	return m.Unlock, nil
}
