package model

import (
	"time"

	"gorm.io/datatypes"
)

// EventType kind of event
type EventType string

const (
	EventTypeHackathon   EventType = "hackathon"
	EventTypeWorkshop    EventType = "workshop"
	EventTypeSeminar     EventType = "seminar"
	EventTypeCompetition EventType = "competition"
	EventTypeOther       EventType = "other"
)

// EventScope organizational breadth of an event
type EventScope string

const (
	EventScopeDepartment    EventScope = "department"
	EventScopeCollege       EventScope = "college"
	EventScopeInterCollege  EventScope = "inter_college"
	EventScopeNational      EventScope = "national"
	EventScopeInternational EventScope = "international"
)

// EventStatus stored lifecycle state
type EventStatus string

const (
	EventStatusDraft    EventStatus = "draft"
	EventStatusPending  EventStatus = "pending"
	EventStatusApproved EventStatus = "approved"
	EventStatusRejected EventStatus = "rejected"
)

// EventPhase display-only phase of an approved event, never stored
type EventPhase string

const (
	EventPhaseUpcoming EventPhase = "upcoming"
	EventPhaseOngoing  EventPhase = "ongoing"
	EventPhasePast     EventPhase = "past"
)

// EventRound one ordered sub-schedule of an event
type EventRound struct {
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	StartDate   time.Time `json:"start_date"`
	EndDate     time.Time `json:"end_date"`
}

// EventPrize prize for a placement
type EventPrize struct {
	Position string `json:"position"`
	Reward   string `json:"reward"`
}

// EventContact coordinator contact
type EventContact struct {
	Name  string `json:"name"`
	Phone string `json:"phone,omitempty"`
	Email string `json:"email,omitempty"`
}

// Event campus event — table events
type Event struct {
	EventID              string                            `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"event_id"`
	Title                string                            `gorm:"type:varchar(200);not null"                     json:"title"`
	Description          string                            `gorm:"type:text"                                      json:"description,omitempty"`
	Type                 EventType                         `gorm:"type:varchar(20);not null"                      json:"type"`
	CustomType           string                            `gorm:"type:varchar(100)"                              json:"custom_type,omitempty"`
	Scope                EventScope                        `gorm:"type:varchar(20);not null"                      json:"scope"`
	Status               EventStatus                       `gorm:"type:varchar(20);not null;default:'draft'"      json:"status"`
	Venue                string                            `gorm:"type:varchar(200)"                              json:"venue,omitempty"`
	StartDate            time.Time                         `gorm:"not null"                                       json:"start_date"`
	EndDate              time.Time                         `gorm:"not null"                                       json:"end_date"`
	RegistrationDeadline *time.Time                        `json:"registration_deadline,omitempty"`
	TeamSizeMin          int                               `gorm:"type:smallint;not null;default:1"               json:"team_size_min"`
	TeamSizeMax          int                               `gorm:"type:smallint;not null;default:1"               json:"team_size_max"`
	RequiresMentor       bool                              `gorm:"not null;default:false"                         json:"requires_mentor"`
	AllowedDepartments   datatypes.JSONSlice[string]       `gorm:"type:jsonb"                                     json:"allowed_departments"`
	AllowedYears         IntArray                          `gorm:"type:int[]"                                     json:"allowed_years"`
	Rounds               datatypes.JSONSlice[EventRound]   `gorm:"type:jsonb"                                     json:"rounds"`
	Prizes               datatypes.JSONSlice[EventPrize]   `gorm:"type:jsonb"                                     json:"prizes"`
	Contacts             datatypes.JSONSlice[EventContact] `gorm:"type:jsonb"                                     json:"contacts"`
	Rules                string                            `gorm:"type:text"                                      json:"rules,omitempty"`
	MaxParticipants      int                               `gorm:"not null;default:0"                             json:"max_participants"` // 0 = unlimited
	Images               datatypes.JSONSlice[string]       `gorm:"type:jsonb"                                     json:"images"`
	CreatorID            string                            `gorm:"type:uuid;not null"                             json:"creator_id"`
	DepartmentID         *string                           `gorm:"type:uuid"                                      json:"department_id,omitempty"`
	ReviewedBy           *string                           `gorm:"type:uuid"                                      json:"reviewed_by,omitempty"`
	ReviewedAt           *time.Time                        `json:"reviewed_at,omitempty"`
	ReviewComment        string                            `gorm:"type:varchar(500)"                              json:"review_comment,omitempty"`
	AggregateModel

	Creator    *User       `gorm:"foreignKey:CreatorID;references:UserID"          json:"creator,omitempty"`
	Department *Department `gorm:"foreignKey:DepartmentID;references:DepartmentID" json:"department,omitempty"`
}

func (Event) TableName() string { return "events" }

// IsSolo min == max == 1: participants register individually, no team
func (e *Event) IsSolo() bool {
	return e.TeamSizeMin == 1 && e.TeamSizeMax == 1
}

// Phase derived display phase; empty unless the event is approved
func (e *Event) Phase(now time.Time) EventPhase {
	if e.Status != EventStatusApproved {
		return ""
	}
	switch {
	case now.Before(e.StartDate):
		return EventPhaseUpcoming
	case now.Before(e.EndDate):
		return EventPhaseOngoing
	default:
		return EventPhasePast
	}
}

// RegistrationOpen approved, not yet started and before the deadline if one is set
func (e *Event) RegistrationOpen(now time.Time) bool {
	if e.Status != EventStatusApproved {
		return false
	}
	if e.RegistrationDeadline != nil {
		return !now.After(*e.RegistrationDeadline)
	}
	return now.Before(e.StartDate)
}

// Admits department and academic year eligibility for a participant.
// Empty allow-lists admit everyone.
func (e *Event) Admits(u *User) bool {
	if len(e.AllowedDepartments) > 0 {
		found := false
		for _, id := range e.AllowedDepartments {
			if id == u.DepartmentIDValue() {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if len(e.AllowedYears) > 0 && !e.AllowedYears.Contains(u.AcademicYear) {
		return false
	}
	return true
}
