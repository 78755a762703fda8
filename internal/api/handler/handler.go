package handler

import "campus-events/backend/internal/service"

// Handler aggregate of every HTTP handler
type Handler struct {
	Auth         *AuthHandler
	User         *UserHandler
	Department   *DepartmentHandler
	Event        *EventHandler
	Team         *TeamHandler
	Export       *ExportHandler
	Notification *NotificationHandler
}

// NewHandler creates the handler aggregate
func NewHandler(svc *service.Service) *Handler {
	return &Handler{
		Auth:         NewAuthHandler(svc.Auth),
		User:         NewUserHandler(svc.User),
		Department:   NewDepartmentHandler(svc.Department, svc.Class),
		Event:        NewEventHandler(svc.Event, svc.EventImport),
		Team:         NewTeamHandler(svc.Team),
		Export:       NewExportHandler(svc.Export, svc.Calendar),
		Notification: NewNotificationHandler(svc.Notification, svc.Dashboard),
	}
}
