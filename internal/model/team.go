package model

import "time"

// TeamStatus composite team status
type TeamStatus string

const (
	TeamStatusForming    TeamStatus = "forming"
	TeamStatusReady      TeamStatus = "ready"
	TeamStatusRegistered TeamStatus = "registered"
	TeamStatusVerified   TeamStatus = "verified"
)

// InviteStatus response state of a single invitee
type InviteStatus string

const (
	InviteStatusPending  InviteStatus = "pending"
	InviteStatusAccepted InviteStatus = "accepted"
	InviteStatusRejected InviteStatus = "rejected"
)

// Team a group formed for one event — table teams.
// Status is a cache of the derived composite status; the member and mentor
// entries plus the registration/verification timestamps are authoritative.
type Team struct {
	TeamID            string        `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"team_id"`
	EventID           string        `gorm:"type:uuid;not null;index"                       json:"event_id"`
	Name              string        `gorm:"type:varchar(100);not null"                     json:"name"`
	CreatorID         string        `gorm:"type:uuid;not null"                             json:"creator_id"`
	MentorID          *string       `gorm:"type:uuid"                                      json:"mentor_id,omitempty"`
	MentorStatus      *InviteStatus `gorm:"type:varchar(20)"                               json:"mentor_status,omitempty"`
	MentorRespondedAt *time.Time    `json:"mentor_responded_at,omitempty"`
	Status            TeamStatus    `gorm:"type:varchar(20);not null;default:'forming'"    json:"status"`
	RegisteredAt      *time.Time    `json:"registered_at,omitempty"`
	ProofURL          string        `gorm:"type:varchar(500)"                              json:"proof_url,omitempty"`
	ProofSubmittedAt  *time.Time    `json:"proof_submitted_at,omitempty"`
	VerifiedAt        *time.Time    `json:"verified_at,omitempty"`
	VerifiedBy        *string       `gorm:"type:uuid"                                      json:"verified_by,omitempty"`
	AggregateModel

	Members []TeamMember `gorm:"foreignKey:TeamID;references:TeamID"     json:"members"`
	Event   *Event       `gorm:"foreignKey:EventID;references:EventID"   json:"event,omitempty"`
	Creator *User        `gorm:"foreignKey:CreatorID;references:UserID"  json:"creator,omitempty"`
	Mentor  *User        `gorm:"foreignKey:MentorID;references:UserID"   json:"mentor,omitempty"`
}

func (Team) TableName() string { return "teams" }

// TeamMember invited member entry — table team_members
type TeamMember struct {
	TeamMemberID string       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"team_member_id"`
	TeamID       string       `gorm:"type:uuid;not null;uniqueIndex:uq_team_member"  json:"team_id"`
	UserID       string       `gorm:"type:uuid;not null;uniqueIndex:uq_team_member"  json:"user_id"`
	Position     int          `gorm:"type:smallint;not null"                         json:"position"`
	Status       InviteStatus `gorm:"type:varchar(20);not null;default:'pending'"    json:"status"`
	RespondedAt  *time.Time   `json:"responded_at,omitempty"`
	CreatedAt    time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"created_at"`

	User *User `gorm:"foreignKey:UserID;references:UserID" json:"user,omitempty"`
}

func (TeamMember) TableName() string { return "team_members" }

// Headcount the creator plus every accepted member
func (t *Team) Headcount() int {
	n := 1
	for _, m := range t.Members {
		if m.Status == InviteStatusAccepted {
			n++
		}
	}
	return n
}

// InvitedHeadcount the creator plus every invited member regardless of response
func (t *Team) InvitedHeadcount() int {
	return 1 + len(t.Members)
}

// MemberIndex index of userID in Members, -1 when absent
func (t *Team) MemberIndex(userID string) int {
	for i := range t.Members {
		if t.Members[i].UserID == userID {
			return i
		}
	}
	return -1
}

// IsMentor whether userID is the invited mentor
func (t *Team) IsMentor(userID string) bool {
	return t.MentorID != nil && *t.MentorID == userID
}

// MentorAccepted whether a mentor was invited and accepted
func (t *Team) MentorAccepted() bool {
	return t.MentorStatus != nil && *t.MentorStatus == InviteStatusAccepted
}

// EventRegistration individual registration for a solo event — table event_registrations
type EventRegistration struct {
	RegistrationID string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"registration_id"`
	EventID        string    `gorm:"type:uuid;not null;uniqueIndex:uq_event_registration" json:"event_id"`
	UserID         string    `gorm:"type:uuid;not null;uniqueIndex:uq_event_registration" json:"user_id"`
	CreatedAt      time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"created_at"`

	User *User `gorm:"foreignKey:UserID;references:UserID" json:"user,omitempty"`
}

func (EventRegistration) TableName() string { return "event_registrations" }
