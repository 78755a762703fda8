package dto

import "time"

// ── team DTOs ──

// CreateTeamRequest form a team for an event
type CreateTeamRequest struct {
	Name         string   `json:"name"          binding:"required,max=100"`
	MemberEmails []string `json:"member_emails" binding:"omitempty,max=20,dive,email"`
	MentorEmail  *string  `json:"mentor_email"  binding:"omitempty,email"`
}

// RespondInvitationRequest accept or reject an invitation
type RespondInvitationRequest struct {
	Response string `json:"response" binding:"required,oneof=accepted rejected"`
}

// SubmitProofRequest proof of participation
type SubmitProofRequest struct {
	ProofURL string `json:"proof_url" binding:"required,url,max=500"`
}

// TeamMemberResponse one invitee
type TeamMemberResponse struct {
	User        UserBrief  `json:"user"`
	Status      string     `json:"status"`
	RespondedAt *time.Time `json:"responded_at,omitempty"`
}

// MentorResponse mentor invitation
type MentorResponse struct {
	User        UserBrief  `json:"user"`
	Status      string     `json:"status"`
	RespondedAt *time.Time `json:"responded_at,omitempty"`
}

// TeamEventBrief event reference inside a team
type TeamEventBrief struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
}

// TeamResponse team with derived status
type TeamResponse struct {
	ID               string               `json:"id"`
	EventID          string               `json:"event_id"`
	Event            *TeamEventBrief      `json:"event,omitempty"`
	Name             string               `json:"name"`
	Creator          UserBrief            `json:"creator"`
	Members          []TeamMemberResponse `json:"members"`
	Mentor           *MentorResponse      `json:"mentor,omitempty"`
	Status           string               `json:"status"`
	Headcount        int                  `json:"headcount"`
	RegisteredAt     *time.Time           `json:"registered_at,omitempty"`
	ProofURL         string               `json:"proof_url,omitempty"`
	ProofSubmittedAt *time.Time           `json:"proof_submitted_at,omitempty"`
	VerifiedAt       *time.Time           `json:"verified_at,omitempty"`
	Version          int                  `json:"version"`
	CreatedAt        time.Time            `json:"created_at"`
}

// InvitationResponse pending invitation addressed to the caller
type InvitationResponse struct {
	TeamID   string         `json:"team_id"`
	TeamName string         `json:"team_name"`
	Event    TeamEventBrief `json:"event"`
	Creator  UserBrief      `json:"creator"`
	AsMentor bool           `json:"as_mentor"`
}

// SoloRegistrationResponse individual registration for a solo event
type SoloRegistrationResponse struct {
	ID        string    `json:"id"`
	EventID   string    `json:"event_id"`
	User      UserBrief `json:"user"`
	CreatedAt time.Time `json:"created_at"`
}
