package handler

import (
	"github.com/gin-gonic/gin"

	"campus-events/backend/internal/dto"
	"campus-events/backend/internal/service"
	"campus-events/backend/pkg/response"
)

// TeamHandler team formation and registration endpoints
type TeamHandler struct {
	teamSvc service.TeamService
}

// NewTeamHandler creates a TeamHandler
func NewTeamHandler(teamSvc service.TeamService) *TeamHandler {
	return &TeamHandler{teamSvc: teamSvc}
}

// CreateTeam POST /api/v1/events/:id/teams
func (h *TeamHandler) CreateTeam(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	var req dto.CreateTeamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	team, err := h.teamSvc.Create(c.Request.Context(), actor, c.Param("id"), &req)
	if err != nil {
		handleError(c, err)
		return
	}

	response.Created(c, team)
}

// ListEventTeams GET /api/v1/events/:id/teams
func (h *TeamHandler) ListEventTeams(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	teams, err := h.teamSvc.ListByEvent(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}

	response.OK(c, gin.H{"list": teams})
}

// RegisterSolo POST /api/v1/events/:id/solo
func (h *TeamHandler) RegisterSolo(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	reg, err := h.teamSvc.RegisterSolo(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}

	response.Created(c, reg)
}

// ListMyTeams GET /api/v1/teams/my
func (h *TeamHandler) ListMyTeams(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	teams, err := h.teamSvc.ListMine(c.Request.Context(), actor)
	if err != nil {
		handleError(c, err)
		return
	}

	response.OK(c, gin.H{"list": teams})
}

// ListInvitations GET /api/v1/teams/invitations
func (h *TeamHandler) ListInvitations(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	invitations, err := h.teamSvc.ListInvitations(c.Request.Context(), actor)
	if err != nil {
		handleError(c, err)
		return
	}

	response.OK(c, gin.H{"list": invitations})
}

// GetTeam GET /api/v1/teams/:id
func (h *TeamHandler) GetTeam(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	team, err := h.teamSvc.GetByID(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}

	response.OK(c, team)
}

// Respond POST /api/v1/teams/:id/respond
func (h *TeamHandler) Respond(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	var req dto.RespondInvitationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	team, err := h.teamSvc.Respond(c.Request.Context(), actor, c.Param("id"), req.Response)
	if err != nil {
		handleError(c, err)
		return
	}

	response.OK(c, team)
}

// Register POST /api/v1/teams/:id/register
func (h *TeamHandler) Register(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	team, err := h.teamSvc.Register(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}

	response.OK(c, team)
}

// SubmitProof POST /api/v1/teams/:id/proof
func (h *TeamHandler) SubmitProof(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	var req dto.SubmitProofRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	team, err := h.teamSvc.SubmitProof(c.Request.Context(), actor, c.Param("id"), req.ProofURL)
	if err != nil {
		handleError(c, err)
		return
	}

	response.OK(c, team)
}

// Verify POST /api/v1/teams/:id/verify
func (h *TeamHandler) Verify(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	team, err := h.teamSvc.Verify(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}

	response.OK(c, team)
}

// Disband DELETE /api/v1/teams/:id
func (h *TeamHandler) Disband(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	if err := h.teamSvc.Disband(c.Request.Context(), actor, c.Param("id")); err != nil {
		handleError(c, err)
		return
	}

	response.OK(c, nil)
}
