package service

import (
	"time"

	"campus-events/backend/internal/dto"
	"campus-events/backend/internal/model"
)

// ── model → dto conversion shared by several services ──

const timeLayout = "2006-01-02T15:04:05Z07:00"

func toUserBrief(u *model.User) dto.UserBrief {
	if u == nil {
		return dto.UserBrief{}
	}
	return dto.UserBrief{
		ID:    u.UserID,
		Name:  u.Name,
		Email: u.Email,
		Role:  string(u.Role),
	}
}

func toDepartmentBrief(d *model.Department) *dto.DepartmentBrief {
	if d == nil {
		return nil
	}
	return &dto.DepartmentBrief{ID: d.DepartmentID, Name: d.Name, Code: d.Code}
}

func toUserResponse(u *model.User) *dto.UserResponse {
	return &dto.UserResponse{
		ID:                 u.UserID,
		Name:               u.Name,
		Email:              u.Email,
		Phone:              u.Phone,
		Role:               string(u.Role),
		Department:         toDepartmentBrief(u.Department),
		ClassID:            u.ClassID,
		AcademicYear:       u.AcademicYear,
		IsClassAdvisor:     u.IsClassAdvisor,
		MustChangePassword: u.MustChangePassword,
		CreatedAt:          u.CreatedAt.Format(timeLayout),
	}
}

func toEventResponse(e *model.Event, now time.Time) *dto.EventResponse {
	resp := &dto.EventResponse{
		ID:                   e.EventID,
		Title:                e.Title,
		Description:          e.Description,
		Type:                 string(e.Type),
		CustomType:           e.CustomType,
		Scope:                string(e.Scope),
		Status:               string(e.Status),
		Phase:                string(e.Phase(now)),
		Venue:                e.Venue,
		StartDate:            e.StartDate,
		EndDate:              e.EndDate,
		RegistrationDeadline: e.RegistrationDeadline,
		RegistrationOpen:     e.RegistrationOpen(now),
		TeamSizeMin:          e.TeamSizeMin,
		TeamSizeMax:          e.TeamSizeMax,
		RequiresMentor:       e.RequiresMentor,
		Solo:                 e.IsSolo(),
		AllowedDepartments:   append([]string{}, e.AllowedDepartments...),
		AllowedYears:         append([]int{}, e.AllowedYears...),
		Rounds:               make([]dto.EventRoundPayload, 0, len(e.Rounds)),
		Prizes:               make([]dto.EventPrizePayload, 0, len(e.Prizes)),
		Contacts:             make([]dto.EventContactPayload, 0, len(e.Contacts)),
		Rules:                e.Rules,
		MaxParticipants:      e.MaxParticipants,
		Images:               append([]string{}, e.Images...),
		CreatorID:            e.CreatorID,
		Department:           toDepartmentBrief(e.Department),
		ReviewedBy:           e.ReviewedBy,
		ReviewedAt:           e.ReviewedAt,
		ReviewComment:        e.ReviewComment,
		Version:              e.Version,
		CreatedAt:            e.CreatedAt,
		UpdatedAt:            e.UpdatedAt,
	}
	for _, r := range e.Rounds {
		resp.Rounds = append(resp.Rounds, dto.EventRoundPayload(r))
	}
	for _, p := range e.Prizes {
		resp.Prizes = append(resp.Prizes, dto.EventPrizePayload(p))
	}
	for _, c := range e.Contacts {
		resp.Contacts = append(resp.Contacts, dto.EventContactPayload(c))
	}
	if e.Creator != nil {
		brief := toUserBrief(e.Creator)
		resp.Creator = &brief
	}
	return resp
}

func toTeamEventBrief(e *model.Event) dto.TeamEventBrief {
	return dto.TeamEventBrief{ID: e.EventID, Title: e.Title, StartDate: e.StartDate, EndDate: e.EndDate}
}

// toTeamResponse re-derives the composite status instead of trusting the
// stored column
func toTeamResponse(t *model.Team, event *model.Event) *dto.TeamResponse {
	resp := &dto.TeamResponse{
		ID:               t.TeamID,
		EventID:          t.EventID,
		Name:             t.Name,
		Creator:          toUserBrief(t.Creator),
		Members:          make([]dto.TeamMemberResponse, 0, len(t.Members)),
		Status:           string(DeriveTeamStatus(t, event)),
		Headcount:        t.Headcount(),
		RegisteredAt:     t.RegisteredAt,
		ProofURL:         t.ProofURL,
		ProofSubmittedAt: t.ProofSubmittedAt,
		VerifiedAt:       t.VerifiedAt,
		Version:          t.Version,
		CreatedAt:        t.CreatedAt,
	}
	if t.Creator == nil {
		resp.Creator.ID = t.CreatorID
	}
	if event != nil {
		brief := toTeamEventBrief(event)
		resp.Event = &brief
	}
	for _, m := range t.Members {
		user := toUserBrief(m.User)
		if m.User == nil {
			user.ID = m.UserID
		}
		resp.Members = append(resp.Members, dto.TeamMemberResponse{
			User:        user,
			Status:      string(m.Status),
			RespondedAt: m.RespondedAt,
		})
	}
	if t.MentorID != nil {
		mentor := toUserBrief(t.Mentor)
		if t.Mentor == nil {
			mentor.ID = *t.MentorID
		}
		status := model.InviteStatusPending
		if t.MentorStatus != nil {
			status = *t.MentorStatus
		}
		resp.Mentor = &dto.MentorResponse{
			User:        mentor,
			Status:      string(status),
			RespondedAt: t.MentorRespondedAt,
		}
	}
	return resp
}
