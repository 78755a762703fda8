package handler

import (
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"campus-events/backend/internal/dto"
	"campus-events/backend/internal/service"
	"campus-events/backend/pkg/response"
)

// EventHandler event lifecycle endpoints
type EventHandler struct {
	eventSvc  service.EventService
	importSvc service.EventImportService
}

// NewEventHandler creates an EventHandler
func NewEventHandler(eventSvc service.EventService, importSvc service.EventImportService) *EventHandler {
	return &EventHandler{eventSvc: eventSvc, importSvc: importSvc}
}

// ListEvents GET /api/v1/events
func (h *EventHandler) ListEvents(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	var req dto.EventListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		bindFailed(c, err)
		return
	}

	events, total, err := h.eventSvc.List(c.Request.Context(), actor, &req)
	if err != nil {
		handleError(c, err)
		return
	}

	response.OKPage(c, events, total, req.GetPage(), req.GetPageSize())
}

// GetEvent GET /api/v1/events/:id
func (h *EventHandler) GetEvent(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	event, err := h.eventSvc.GetByID(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}

	response.OK(c, event)
}

// CreateEvent POST /api/v1/events
func (h *EventHandler) CreateEvent(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	var req dto.CreateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	event, err := h.eventSvc.Create(c.Request.Context(), actor, &req)
	if err != nil {
		handleError(c, err)
		return
	}

	response.Created(c, event)
}

// UpdateEvent PUT /api/v1/events/:id
func (h *EventHandler) UpdateEvent(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	var req dto.UpdateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	event, err := h.eventSvc.Update(c.Request.Context(), actor, c.Param("id"), &req)
	if err != nil {
		handleError(c, err)
		return
	}

	response.OK(c, event)
}

// DeleteEvent DELETE /api/v1/events/:id
func (h *EventHandler) DeleteEvent(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	if err := h.eventSvc.Delete(c.Request.Context(), actor, c.Param("id")); err != nil {
		handleError(c, err)
		return
	}

	response.OK(c, nil)
}

// SubmitEvent POST /api/v1/events/:id/submit
func (h *EventHandler) SubmitEvent(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	event, err := h.eventSvc.Submit(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}

	response.OK(c, event)
}

// ApproveEvent POST /api/v1/events/:id/approve
func (h *EventHandler) ApproveEvent(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	event, err := h.eventSvc.Approve(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}

	response.OK(c, event)
}

// RejectEvent POST /api/v1/events/:id/reject
func (h *EventHandler) RejectEvent(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	// the comment is optional, so an empty body is fine
	var req dto.RejectEventRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			bindFailed(c, err)
			return
		}
	}

	event, err := h.eventSvc.Reject(c.Request.Context(), actor, c.Param("id"), req.Comment)
	if err != nil {
		handleError(c, err)
		return
	}

	response.OK(c, event)
}

// ImportEvents POST /api/v1/events/import (multipart field "file", .ics)
func (h *EventHandler) ImportEvents(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	fh, err := c.FormFile("file")
	if err != nil {
		response.BadRequest(c, codeValidation, "an .ics file is required in the \"file\" field")
		return
	}
	if !strings.EqualFold(filepath.Ext(fh.Filename), ".ics") {
		response.BadRequest(c, codeValidation, "only .ics files are supported")
		return
	}

	f, err := fh.Open()
	if err != nil {
		bindFailed(c, err)
		return
	}
	defer f.Close()

	result, err := h.importSvc.ImportICS(c.Request.Context(), actor, f)
	if err != nil {
		handleError(c, err)
		return
	}

	response.OK(c, result)
}
