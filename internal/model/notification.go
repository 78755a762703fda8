package model

// Notification in-app message — table notifications
type Notification struct {
	NotificationID string  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"notification_id"`
	UserID         string  `gorm:"type:uuid;not null;index"                       json:"user_id"`
	Type           string  `gorm:"type:varchar(50);not null"                      json:"type"`
	Title          string  `gorm:"type:varchar(200);not null"                     json:"title"`
	Content        string  `gorm:"type:text;not null"                             json:"content"`
	IsRead         bool    `gorm:"not null;default:false"                         json:"is_read"`
	RelatedType    *string `gorm:"type:varchar(20)"                               json:"related_type,omitempty"` // event | team
	RelatedID      *string `gorm:"type:uuid"                                      json:"related_id,omitempty"`
	SoftDeleteModel
}

func (Notification) TableName() string { return "notifications" }

// Notification types
const (
	NotificationTeamInvite     = "team_invite"
	NotificationMentorInvite   = "mentor_invite"
	NotificationInviteAnswered = "invite_answered"
	NotificationTeamRegistered = "team_registered"
	NotificationTeamVerified   = "team_verified"
	NotificationEventReviewed  = "event_reviewed"
	NotificationEventSubmitted = "event_submitted"
)
