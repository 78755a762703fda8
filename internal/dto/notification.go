package dto

import "time"

// NotificationListRequest list filters
type NotificationListRequest struct {
	PaginationRequest
	UnreadOnly bool `form:"unread_only"`
}

// NotificationResponse in-app message
type NotificationResponse struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	Title       string    `json:"title"`
	Content     string    `json:"content"`
	IsRead      bool      `json:"is_read"`
	RelatedType *string   `json:"related_type,omitempty"`
	RelatedID   *string   `json:"related_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}
