package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"campus-events/backend/internal/api/middleware"
	"campus-events/backend/internal/model"
	"campus-events/backend/internal/service"
	"campus-events/backend/pkg/response"
)

// MustGetUserID extracts the authenticated user id. On false a 401 has been
// written and the caller should return.
func MustGetUserID(c *gin.Context) (string, bool) {
	s := c.GetString(middleware.CtxUserID)
	if s == "" {
		response.Unauthorized(c, 10002, "not authenticated")
		return "", false
	}
	return s, true
}

// MustGetActor builds the service-level caller from the token claims.
func MustGetActor(c *gin.Context) (service.Actor, bool) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return service.Actor{}, false
	}
	role, valid := model.ParseRole(c.GetString(middleware.CtxRole))
	if !valid {
		response.Unauthorized(c, 10002, "not authenticated")
		return service.Actor{}, false
	}
	return service.Actor{
		UserID:       userID,
		Role:         role,
		DepartmentID: c.GetString(middleware.CtxDepartmentID),
	}, true
}

// tokenFromContext jti and expiry of the access token in use
func tokenFromContext(c *gin.Context) (string, time.Time) {
	return c.GetString(middleware.CtxTokenJTI), c.GetTime(middleware.CtxTokenExp)
}
