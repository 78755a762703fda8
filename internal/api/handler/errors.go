package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	pkgerrors "campus-events/backend/pkg/errors"
	"campus-events/backend/pkg/response"
)

// Response codes shared by every module
const (
	codeValidation    = 10001
	codeUnauthorized  = 10002
	codeForbidden     = 10003
	codeNotFound      = 10006
	codeInvalidState  = 10007
	codeConcurrentMod = 10008
)

// handleError maps a service error onto the envelope by category.
// Business errors carry a client-facing message; anything else is a 500
// and is attached to the context for the access log.
func handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, pkgerrors.ErrValidation):
		response.BadRequest(c, codeValidation, err.Error())
	case errors.Is(err, pkgerrors.ErrAuthorization):
		response.Forbidden(c, codeForbidden, err.Error())
	case errors.Is(err, pkgerrors.ErrNotFound):
		response.NotFound(c, codeNotFound, err.Error())
	case errors.Is(err, pkgerrors.ErrInvalidState):
		response.Conflict(c, codeInvalidState, err.Error())
	case errors.Is(err, pkgerrors.ErrOptimisticLock):
		response.Conflict(c, codeConcurrentMod, err.Error())
	default:
		_ = c.Error(err)
		response.InternalError(c)
	}
}

// bindFailed 400 for a payload gin could not bind or validate
func bindFailed(c *gin.Context, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		response.Error(c, http.StatusRequestEntityTooLarge, 10005, "request body too large")
		return
	}
	response.ErrorWithDetails(c, http.StatusBadRequest, codeValidation, "invalid request parameters", err.Error())
}
