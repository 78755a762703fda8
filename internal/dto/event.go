package dto

import "time"

// ── event DTOs ──

// EventRoundPayload one round of an event
type EventRoundPayload struct {
	Name        string    `json:"name"        binding:"required,max=100"`
	Description string    `json:"description" binding:"omitempty,max=500"`
	StartDate   time.Time `json:"start_date"`
	EndDate     time.Time `json:"end_date"`
}

// EventPrizePayload prize for a placement
type EventPrizePayload struct {
	Position string `json:"position" binding:"required,max=50"`
	Reward   string `json:"reward"   binding:"required,max=200"`
}

// EventContactPayload coordinator contact
type EventContactPayload struct {
	Name  string `json:"name"  binding:"required,max=100"`
	Phone string `json:"phone" binding:"omitempty,max=20"`
	Email string `json:"email" binding:"omitempty,email"`
}

// CreateEventRequest create an event. Draft keeps it out of review.
type CreateEventRequest struct {
	Title                string                `json:"title"       binding:"required,max=200"`
	Description          string                `json:"description" binding:"omitempty,max=5000"`
	Type                 string                `json:"type"        binding:"required"`
	CustomType           string                `json:"custom_type" binding:"omitempty,max=100"`
	Scope                string                `json:"scope"       binding:"required"`
	Venue                string                `json:"venue"       binding:"omitempty,max=200"`
	StartDate            time.Time             `json:"start_date"`
	EndDate              time.Time             `json:"end_date"`
	RegistrationDeadline *time.Time            `json:"registration_deadline"`
	TeamSizeMin          int                   `json:"team_size_min"`
	TeamSizeMax          int                   `json:"team_size_max"`
	RequiresMentor       bool                  `json:"requires_mentor"`
	AllowedDepartments   []string              `json:"allowed_departments" binding:"omitempty,dive,uuid"`
	AllowedYears         []int                 `json:"allowed_years"       binding:"omitempty,dive,min=1,max=5"`
	Rounds               []EventRoundPayload   `json:"rounds"              binding:"omitempty,dive"`
	Prizes               []EventPrizePayload   `json:"prizes"              binding:"omitempty,dive"`
	Contacts             []EventContactPayload `json:"contacts"            binding:"omitempty,dive"`
	Rules                string                `json:"rules"               binding:"omitempty,max=10000"`
	MaxParticipants      int                   `json:"max_participants"`
	Images               []string              `json:"images"              binding:"omitempty,dive,url"`
	DepartmentID         *string               `json:"department_id"       binding:"omitempty,uuid"`
	Draft                bool                  `json:"draft"`
}

// UpdateEventRequest partial update. Status, when present, is routed
// through the lifecycle transitions.
type UpdateEventRequest struct {
	Title                *string                `json:"title"       binding:"omitempty,min=1,max=200"`
	Description          *string                `json:"description" binding:"omitempty,max=5000"`
	Type                 *string                `json:"type"`
	CustomType           *string                `json:"custom_type" binding:"omitempty,max=100"`
	Scope                *string                `json:"scope"`
	Venue                *string                `json:"venue"       binding:"omitempty,max=200"`
	StartDate            *time.Time             `json:"start_date"`
	EndDate              *time.Time             `json:"end_date"`
	RegistrationDeadline *time.Time             `json:"registration_deadline"`
	TeamSizeMin          *int                   `json:"team_size_min"`
	TeamSizeMax          *int                   `json:"team_size_max"`
	RequiresMentor       *bool                  `json:"requires_mentor"`
	AllowedDepartments   *[]string              `json:"allowed_departments"`
	AllowedYears         *[]int                 `json:"allowed_years"`
	Rounds               *[]EventRoundPayload   `json:"rounds"`
	Prizes               *[]EventPrizePayload   `json:"prizes"`
	Contacts             *[]EventContactPayload `json:"contacts"`
	Rules                *string                `json:"rules"       binding:"omitempty,max=10000"`
	MaxParticipants      *int                   `json:"max_participants"`
	Images               *[]string              `json:"images"`
	DepartmentID         *string                `json:"department_id" binding:"omitempty,uuid"`
	Status               *string                `json:"status"`
	Comment              string                 `json:"comment"       binding:"omitempty,max=500"`
}

// RejectEventRequest review comment for a rejection
type RejectEventRequest struct {
	Comment string `json:"comment" binding:"omitempty,max=500"`
}

// EventListRequest list filters
type EventListRequest struct {
	PaginationRequest
	Status       string `form:"status"`
	Type         string `form:"type"`
	Scope        string `form:"scope"`
	DepartmentID string `form:"department_id" binding:"omitempty,uuid"`
	Phase        string `form:"phase"         binding:"omitempty,oneof=upcoming ongoing past"`
	Keyword      string `form:"keyword"       binding:"omitempty,max=50"`
	Mine         bool   `form:"mine"`
}

// EventResponse event with derived phase
type EventResponse struct {
	ID                   string                `json:"id"`
	Title                string                `json:"title"`
	Description          string                `json:"description,omitempty"`
	Type                 string                `json:"type"`
	CustomType           string                `json:"custom_type,omitempty"`
	Scope                string                `json:"scope"`
	Status               string                `json:"status"`
	Phase                string                `json:"phase,omitempty"`
	Venue                string                `json:"venue,omitempty"`
	StartDate            time.Time             `json:"start_date"`
	EndDate              time.Time             `json:"end_date"`
	RegistrationDeadline *time.Time            `json:"registration_deadline,omitempty"`
	RegistrationOpen     bool                  `json:"registration_open"`
	TeamSizeMin          int                   `json:"team_size_min"`
	TeamSizeMax          int                   `json:"team_size_max"`
	RequiresMentor       bool                  `json:"requires_mentor"`
	Solo                 bool                  `json:"solo"`
	AllowedDepartments   []string              `json:"allowed_departments"`
	AllowedYears         []int                 `json:"allowed_years"`
	Rounds               []EventRoundPayload   `json:"rounds"`
	Prizes               []EventPrizePayload   `json:"prizes"`
	Contacts             []EventContactPayload `json:"contacts"`
	Rules                string                `json:"rules,omitempty"`
	MaxParticipants      int                   `json:"max_participants"`
	Images               []string              `json:"images"`
	Creator              *UserBrief            `json:"creator,omitempty"`
	CreatorID            string                `json:"creator_id"`
	Department           *DepartmentBrief      `json:"department,omitempty"`
	ReviewedBy           *string               `json:"reviewed_by,omitempty"`
	ReviewedAt           *time.Time            `json:"reviewed_at,omitempty"`
	ReviewComment        string                `json:"review_comment,omitempty"`
	Version              int                   `json:"version"`
	CreatedAt            time.Time             `json:"created_at"`
	UpdatedAt            time.Time             `json:"updated_at"`
}

// ImportEventError one VEVENT that could not become an event
type ImportEventError struct {
	Index   int    `json:"index"` // 1-based position in the file
	Summary string `json:"summary,omitempty"`
	Reason  string `json:"reason"`
}

// ImportEventsResponse calendar import summary
type ImportEventsResponse struct {
	Total   int                `json:"total"`
	Success int                `json:"success"`
	Failed  int                `json:"failed"`
	Errors  []ImportEventError `json:"errors,omitempty"`
	Events  []EventResponse    `json:"events"`
}
