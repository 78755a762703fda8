package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"campus-events/backend/internal/model"
	"campus-events/backend/internal/repository"
	pkgerrors "campus-events/backend/pkg/errors"
)

// ── in-memory store shared by every mock repository ──
//
// Reads return copies and writes store copies, so a service that mutates a
// loaded record and then fails leaves the store untouched, the way a rolled
// back transaction would.

type mockStore struct {
	mu            sync.Mutex
	seq           int
	users         map[string]*model.User
	departments   map[string]*model.Department
	classes       map[string]*model.Class
	events        map[string]*model.Event
	teams         map[string]*model.Team
	registrations []model.EventRegistration
	notifications []model.Notification

	failNotifications bool
}

func newMockStore() *mockStore {
	return &mockStore{
		users:       make(map[string]*model.User),
		departments: make(map[string]*model.Department),
		classes:     make(map[string]*model.Class),
		events:      make(map[string]*model.Event),
		teams:       make(map[string]*model.Team),
	}
}

func (s *mockStore) nextID(prefix string) string {
	s.seq++
	return fmt.Sprintf("%s-%d", prefix, s.seq)
}

// repository assembles a Repository without a database; Transaction then
// runs its callback directly against the mocks
func (s *mockStore) repository() *repository.Repository {
	return &repository.Repository{
		User:         &mockUserRepo{s},
		Department:   &mockDepartmentRepo{s},
		Class:        &mockClassRepo{s},
		Event:        &mockEventRepo{s},
		Team:         &mockTeamRepo{s},
		Registration: &mockRegistrationRepo{s},
		Notification: &mockNotificationRepo{s},
	}
}

func (s *mockStore) notificationsFor(userID, typ string) []model.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Notification
	for _, n := range s.notifications {
		if n.UserID == userID && (typ == "" || n.Type == typ) {
			out = append(out, n)
		}
	}
	return out
}

// ── fixtures ──

func (s *mockStore) addDepartment(code string) *model.Department {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := &model.Department{DepartmentID: s.nextID("dept"), Name: code + " department", Code: code, IsActive: true}
	s.departments[d.DepartmentID] = d
	return d
}

func (s *mockStore) addUser(name string, role model.Role, dept *model.Department, year int) *model.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := &model.User{
		UserID:       s.nextID("user"),
		Name:         name,
		Email:        strings.ToLower(name) + "@campus.test",
		Role:         role,
		AcademicYear: year,
	}
	if dept != nil {
		id := dept.DepartmentID
		u.DepartmentID = &id
	}
	s.users[u.UserID] = u
	return u
}

func (s *mockStore) addEvent(e *model.Event) *model.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.EventID == "" {
		e.EventID = s.nextID("event")
	}
	if e.Version == 0 {
		e.Version = 1
	}
	cp := *e
	s.events[e.EventID] = &cp
	return e
}

func (s *mockStore) event(id string) *model.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.events[id]; ok {
		cp := *e
		return &cp
	}
	return nil
}

func (s *mockStore) team(id string) *model.Team {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.teams[id]; ok {
		return s.copyTeam(t)
	}
	return nil
}

func (s *mockStore) copyUser(id string) *model.User {
	u, ok := s.users[id]
	if !ok {
		return nil
	}
	cp := *u
	if u.DepartmentID != nil {
		if d, ok := s.departments[*u.DepartmentID]; ok {
			dc := *d
			cp.Department = &dc
		}
	}
	return &cp
}

// copyTeam deep copy with associations attached; caller holds mu
func (s *mockStore) copyTeam(t *model.Team) *model.Team {
	cp := *t
	cp.Members = make([]model.TeamMember, len(t.Members))
	copy(cp.Members, t.Members)
	for i := range cp.Members {
		cp.Members[i].User = s.copyUser(cp.Members[i].UserID)
	}
	cp.Creator = s.copyUser(t.CreatorID)
	if t.MentorID != nil {
		cp.Mentor = s.copyUser(*t.MentorID)
	}
	if e, ok := s.events[t.EventID]; ok {
		ec := *e
		cp.Event = &ec
	}
	return &cp
}

// ── mockUserRepo ──

type mockUserRepo struct{ s *mockStore }

func (m *mockUserRepo) Create(_ context.Context, user *model.User) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if user.UserID == "" {
		user.UserID = m.s.nextID("user")
	}
	user.CreatedAt = time.Now()
	cp := *user
	cp.Department, cp.Class = nil, nil
	m.s.users[user.UserID] = &cp
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if u := m.s.copyUser(id); u != nil {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	email = strings.ToLower(strings.TrimSpace(email))
	for id, u := range m.s.users {
		if strings.ToLower(u.Email) == email {
			return m.s.copyUser(id), nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) Update(_ context.Context, user *model.User) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if _, ok := m.s.users[user.UserID]; !ok {
		return gorm.ErrRecordNotFound
	}
	cp := *user
	cp.Department, cp.Class = nil, nil
	m.s.users[user.UserID] = &cp
	return nil
}

func (m *mockUserRepo) Delete(_ context.Context, id string, _ string) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	delete(m.s.users, id)
	return nil
}

func (m *mockUserRepo) List(_ context.Context, filter repository.UserFilter, offset, limit int) ([]model.User, int64, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var all []model.User
	for id, u := range m.s.users {
		if filter.DepartmentID != "" && u.DepartmentIDValue() != filter.DepartmentID {
			continue
		}
		if filter.ClassID != "" && (u.ClassID == nil || *u.ClassID != filter.ClassID) {
			continue
		}
		if filter.Role != "" && u.Role != filter.Role {
			continue
		}
		if filter.Keyword != "" && !strings.Contains(strings.ToLower(u.Name+" "+u.Email), strings.ToLower(filter.Keyword)) {
			continue
		}
		all = append(all, *m.s.copyUser(id))
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Name < all[j].Name })
	return page(all, offset, limit), int64(len(all)), nil
}

func (m *mockUserRepo) Count(_ context.Context) (int64, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	return int64(len(m.s.users)), nil
}

// ── mockDepartmentRepo ──

type mockDepartmentRepo struct{ s *mockStore }

func (m *mockDepartmentRepo) Create(_ context.Context, dept *model.Department) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if dept.DepartmentID == "" {
		dept.DepartmentID = m.s.nextID("dept")
	}
	cp := *dept
	m.s.departments[dept.DepartmentID] = &cp
	return nil
}

func (m *mockDepartmentRepo) GetByID(_ context.Context, id string) (*model.Department, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if d, ok := m.s.departments[id]; ok {
		cp := *d
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockDepartmentRepo) GetByCode(_ context.Context, code string) (*model.Department, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, d := range m.s.departments {
		if strings.EqualFold(d.Code, code) {
			cp := *d
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockDepartmentRepo) List(ctx context.Context) ([]model.Department, error) {
	all, _ := m.ListAll(ctx)
	var active []model.Department
	for _, d := range all {
		if d.IsActive {
			active = append(active, d)
		}
	}
	return active, nil
}

func (m *mockDepartmentRepo) ListAll(_ context.Context) ([]model.Department, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var all []model.Department
	for _, d := range m.s.departments {
		all = append(all, *d)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Code < all[j].Code })
	return all, nil
}

func (m *mockDepartmentRepo) Update(_ context.Context, dept *model.Department) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	cp := *dept
	m.s.departments[dept.DepartmentID] = &cp
	return nil
}

func (m *mockDepartmentRepo) Delete(_ context.Context, id string, _ string) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	delete(m.s.departments, id)
	return nil
}

func (m *mockDepartmentRepo) CountMembers(_ context.Context, departmentID string) (int64, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var n int64
	for _, u := range m.s.users {
		if u.DepartmentIDValue() == departmentID {
			n++
		}
	}
	return n, nil
}

func (m *mockDepartmentRepo) BatchCountMembers(ctx context.Context, departmentIDs []string) (map[string]int64, error) {
	result := make(map[string]int64, len(departmentIDs))
	for _, id := range departmentIDs {
		n, _ := m.CountMembers(ctx, id)
		result[id] = n
	}
	return result, nil
}

func (m *mockDepartmentRepo) Count(_ context.Context) (int64, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	return int64(len(m.s.departments)), nil
}

// ── mockClassRepo ──

type mockClassRepo struct{ s *mockStore }

func (m *mockClassRepo) Create(_ context.Context, class *model.Class) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if class.ClassID == "" {
		class.ClassID = m.s.nextID("class")
	}
	cp := *class
	m.s.classes[class.ClassID] = &cp
	return nil
}

func (m *mockClassRepo) GetByID(_ context.Context, id string) (*model.Class, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	c, ok := m.s.classes[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *c
	if c.AdvisorID != nil {
		cp.Advisor = m.s.copyUser(*c.AdvisorID)
	}
	return &cp, nil
}

func (m *mockClassRepo) List(_ context.Context, departmentID string) ([]model.Class, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var all []model.Class
	for _, c := range m.s.classes {
		if departmentID == "" || c.DepartmentID == departmentID {
			all = append(all, *c)
		}
	}
	return all, nil
}

func (m *mockClassRepo) Update(_ context.Context, class *model.Class) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	cp := *class
	cp.Advisor, cp.Department = nil, nil
	m.s.classes[class.ClassID] = &cp
	return nil
}

func (m *mockClassRepo) Delete(_ context.Context, id string, _ string) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	delete(m.s.classes, id)
	return nil
}

func (m *mockClassRepo) CountStudents(_ context.Context, classID string) (int64, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var n int64
	for _, u := range m.s.users {
		if u.ClassID != nil && *u.ClassID == classID {
			n++
		}
	}
	return n, nil
}

// ── mockEventRepo ──

type mockEventRepo struct{ s *mockStore }

func (m *mockEventRepo) Create(_ context.Context, event *model.Event) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if event.EventID == "" {
		event.EventID = m.s.nextID("event")
	}
	if event.Version == 0 {
		event.Version = 1
	}
	event.CreatedAt = time.Now()
	event.UpdatedAt = event.CreatedAt
	cp := *event
	cp.Creator, cp.Department = nil, nil
	m.s.events[event.EventID] = &cp
	return nil
}

func (m *mockEventRepo) GetByID(_ context.Context, id string) (*model.Event, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	e, ok := m.s.events[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *e
	cp.Creator = m.s.copyUser(e.CreatorID)
	return &cp, nil
}

func (m *mockEventRepo) Update(_ context.Context, event *model.Event) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	stored, ok := m.s.events[event.EventID]
	if !ok || stored.Version != event.Version {
		return pkgerrors.ErrOptimisticLock
	}
	event.Version++
	cp := *event
	cp.Creator, cp.Department = nil, nil
	m.s.events[event.EventID] = &cp
	return nil
}

func (m *mockEventRepo) Delete(_ context.Context, id string) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	delete(m.s.events, id)
	return nil
}

func (m *mockEventRepo) List(_ context.Context, filter repository.EventFilter, offset, limit int) ([]model.Event, int64, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	now := filter.Now
	if now.IsZero() {
		now = time.Now()
	}
	var all []model.Event
	for _, e := range m.s.events {
		if filter.ApprovedOnly && e.Status != model.EventStatusApproved &&
			(filter.VisibleCreatorID == "" || e.CreatorID != filter.VisibleCreatorID) {
			continue
		}
		if filter.Status != "" && e.Status != filter.Status {
			continue
		}
		if filter.Type != "" && e.Type != filter.Type {
			continue
		}
		if filter.Scope != "" && e.Scope != filter.Scope {
			continue
		}
		if filter.DepartmentID != "" && (e.DepartmentID == nil || *e.DepartmentID != filter.DepartmentID) {
			continue
		}
		if filter.CreatorID != "" && e.CreatorID != filter.CreatorID {
			continue
		}
		if filter.Keyword != "" && !strings.Contains(strings.ToLower(e.Title), strings.ToLower(filter.Keyword)) {
			continue
		}
		if filter.Phase != "" && e.Phase(now) != filter.Phase {
			continue
		}
		all = append(all, *e)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].StartDate.After(all[j].StartDate) })
	return page(all, offset, limit), int64(len(all)), nil
}

func (m *mockEventRepo) ListApprovedSince(_ context.Context, since time.Time) ([]model.Event, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var out []model.Event
	for _, e := range m.s.events {
		if e.Status == model.EventStatusApproved && e.EndDate.After(since) {
			out = append(out, *e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartDate.Before(out[j].StartDate) })
	return out, nil
}

func (m *mockEventRepo) LockForRegistration(_ context.Context, id string) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if _, ok := m.s.events[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (m *mockEventRepo) CountByStatus(_ context.Context) (map[model.EventStatus]int64, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	counts := make(map[model.EventStatus]int64)
	for _, e := range m.s.events {
		counts[e.Status]++
	}
	return counts, nil
}

// ── mockTeamRepo ──

type mockTeamRepo struct{ s *mockStore }

func (m *mockTeamRepo) Create(_ context.Context, team *model.Team) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if team.TeamID == "" {
		team.TeamID = m.s.nextID("team")
	}
	if team.Version == 0 {
		team.Version = 1
	}
	team.CreatedAt = time.Now()
	for i := range team.Members {
		if team.Members[i].TeamMemberID == "" {
			team.Members[i].TeamMemberID = m.s.nextID("member")
		}
		team.Members[i].TeamID = team.TeamID
	}
	m.s.teams[team.TeamID] = stripTeam(team)
	return nil
}

func (m *mockTeamRepo) GetByID(_ context.Context, id string) (*model.Team, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	t, ok := m.s.teams[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return m.s.copyTeam(t), nil
}

func (m *mockTeamRepo) Update(_ context.Context, team *model.Team) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	stored, ok := m.s.teams[team.TeamID]
	if !ok || stored.Version != team.Version {
		return pkgerrors.ErrOptimisticLock
	}
	team.Version++
	m.s.teams[team.TeamID] = stripTeam(team)
	return nil
}

func (m *mockTeamRepo) Delete(_ context.Context, id string) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	delete(m.s.teams, id)
	return nil
}

func (m *mockTeamRepo) list(match func(t *model.Team) bool) []model.Team {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var out []model.Team
	for _, t := range m.s.teams {
		if match(t) {
			out = append(out, *m.s.copyTeam(t))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TeamID < out[j].TeamID })
	return out
}

func (m *mockTeamRepo) ListByEvent(_ context.Context, eventID string) ([]model.Team, error) {
	return m.list(func(t *model.Team) bool { return t.EventID == eventID }), nil
}

func (m *mockTeamRepo) ListByUser(_ context.Context, userID string) ([]model.Team, error) {
	return m.list(func(t *model.Team) bool { return isTeamParticipant(t, userID) }), nil
}

func (m *mockTeamRepo) ListPendingInvitations(_ context.Context, userID string) ([]model.Team, error) {
	return m.list(func(t *model.Team) bool {
		if t.IsMentor(userID) && t.MentorStatus != nil && *t.MentorStatus == model.InviteStatusPending {
			return true
		}
		idx := t.MemberIndex(userID)
		return idx >= 0 && t.Members[idx].Status == model.InviteStatusPending
	}), nil
}

func (m *mockTeamRepo) FindAcceptedTeamID(_ context.Context, eventID, userID, excludeTeamID string) (string, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, t := range m.s.teams {
		if t.EventID != eventID || t.TeamID == excludeTeamID {
			continue
		}
		if t.CreatorID == userID {
			return t.TeamID, nil
		}
		if idx := t.MemberIndex(userID); idx >= 0 && t.Members[idx].Status == model.InviteStatusAccepted {
			return t.TeamID, nil
		}
	}
	return "", nil
}

func (m *mockTeamRepo) ExistsByName(_ context.Context, eventID, name string) (bool, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, t := range m.s.teams {
		if t.EventID == eventID && strings.EqualFold(t.Name, strings.TrimSpace(name)) {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockTeamRepo) CountByEvent(_ context.Context, eventID string) (int64, error) {
	return int64(len(m.list(func(t *model.Team) bool { return t.EventID == eventID }))), nil
}

func (m *mockTeamRepo) SumRegisteredHeadcount(_ context.Context, eventID string) (int, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	n := 0
	for _, t := range m.s.teams {
		if t.EventID == eventID && t.RegisteredAt != nil {
			n += t.Headcount()
		}
	}
	return n, nil
}

func (m *mockTeamRepo) CountByStatus(_ context.Context) (map[model.TeamStatus]int64, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	counts := make(map[model.TeamStatus]int64)
	for _, t := range m.s.teams {
		counts[t.Status]++
	}
	return counts, nil
}

// stripTeam stored copy without associations
func stripTeam(t *model.Team) *model.Team {
	cp := *t
	cp.Members = make([]model.TeamMember, len(t.Members))
	copy(cp.Members, t.Members)
	for i := range cp.Members {
		cp.Members[i].User = nil
	}
	cp.Creator, cp.Mentor, cp.Event = nil, nil, nil
	return &cp
}

// ── mockRegistrationRepo ──

type mockRegistrationRepo struct{ s *mockStore }

func (m *mockRegistrationRepo) Create(_ context.Context, reg *model.EventRegistration) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, r := range m.s.registrations {
		if r.EventID == reg.EventID && r.UserID == reg.UserID {
			return gorm.ErrDuplicatedKey
		}
	}
	reg.RegistrationID = m.s.nextID("reg")
	reg.CreatedAt = time.Now()
	m.s.registrations = append(m.s.registrations, *reg)
	return nil
}

func (m *mockRegistrationRepo) Exists(_ context.Context, eventID, userID string) (bool, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, r := range m.s.registrations {
		if r.EventID == eventID && r.UserID == userID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockRegistrationRepo) ListByEvent(_ context.Context, eventID string) ([]model.EventRegistration, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var out []model.EventRegistration
	for _, r := range m.s.registrations {
		if r.EventID == eventID {
			r.User = m.s.copyUser(r.UserID)
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *mockRegistrationRepo) CountByEvent(ctx context.Context, eventID string) (int64, error) {
	regs, _ := m.ListByEvent(ctx, eventID)
	return int64(len(regs)), nil
}

func (m *mockRegistrationRepo) Count(_ context.Context) (int64, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	return int64(len(m.s.registrations)), nil
}

// ── mockNotificationRepo ──

type mockNotificationRepo struct{ s *mockStore }

func (m *mockNotificationRepo) BatchCreate(_ context.Context, items []model.Notification) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if m.s.failNotifications {
		return errors.New("connection refused")
	}
	for _, n := range items {
		n.NotificationID = m.s.nextID("notif")
		n.CreatedAt = time.Now()
		m.s.notifications = append(m.s.notifications, n)
	}
	return nil
}

func (m *mockNotificationRepo) ListByUser(_ context.Context, userID string, unreadOnly bool, offset, limit int) ([]model.Notification, int64, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var out []model.Notification
	for i := len(m.s.notifications) - 1; i >= 0; i-- {
		n := m.s.notifications[i]
		if n.UserID == userID && (!unreadOnly || !n.IsRead) {
			out = append(out, n)
		}
	}
	return page(out, offset, limit), int64(len(out)), nil
}

func (m *mockNotificationRepo) MarkRead(_ context.Context, id, userID string) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for i := range m.s.notifications {
		if m.s.notifications[i].NotificationID == id && m.s.notifications[i].UserID == userID {
			m.s.notifications[i].IsRead = true
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (m *mockNotificationRepo) MarkAllRead(_ context.Context, userID string) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for i := range m.s.notifications {
		if m.s.notifications[i].UserID == userID {
			m.s.notifications[i].IsRead = true
		}
	}
	return nil
}

func (m *mockNotificationRepo) CountUnread(_ context.Context, userID string) (int64, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var n int64
	for _, x := range m.s.notifications {
		if x.UserID == userID && !x.IsRead {
			n++
		}
	}
	return n, nil
}

// ── helpers ──

func page[T any](items []T, offset, limit int) []T {
	if offset >= len(items) {
		return nil
	}
	end := offset + limit
	if limit <= 0 || end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}

func actorOf(u *model.User) Actor {
	return Actor{UserID: u.UserID, Role: u.Role, DepartmentID: u.DepartmentIDValue()}
}

// fixedClock returns a now func pinned to t
func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

// busyLocker always reports the lock as held elsewhere
type busyLocker struct{}

func (busyLocker) Lock(context.Context, string) (func(), error) { return nil, ErrBusy }

// brokenLocker simulates an unreachable lock backend
type brokenLocker struct{}

func (brokenLocker) Lock(context.Context, string) (func(), error) {
	return nil, errors.New("dial tcp: connection refused")
}

func newTestNotifier(repo *repository.Repository) *notifier {
	return newNotifier(repo, zap.NewNop())
}
