package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"campus-events/backend/config"
	"campus-events/backend/internal/api/handler"
	"campus-events/backend/internal/api/middleware"
	"campus-events/backend/internal/model"
	"campus-events/backend/pkg/jwt"
	"campus-events/backend/pkg/redis"
)

// Setup builds the gin engine. rdb and db may be nil: without Redis token
// revocation and rate limiting are skipped, without db /health reports only
// the process.
func Setup(cfg *config.Config, h *handler.Handler, jwtMgr *jwt.Manager, rdb *redis.Client, db *gorm.DB, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// nil *redis.Client must not become a non-nil interface
	var (
		blacklist middleware.Blacklist
		limiter   middleware.Limiter
	)
	if rdb != nil {
		blacklist = rdb
		limiter = rdb
	}

	// ── global middleware ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.BodyLimit(cfg.Server.MaxBodyBytes))

	r.GET("/health", func(c *gin.Context) {
		if db != nil {
			sqlDB, err := db.DB()
			if err == nil {
				err = sqlDB.PingContext(c.Request.Context())
			}
			if err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "database": "unreachable"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := r.Group("/api/v1")
	{
		auth := v1.Group("/auth")
		{
			auth.POST("/login",
				middleware.RateLimit(limiter, cfg.Event.LoginRateLimit, cfg.Event.LoginRateWindow, logger),
				h.Auth.Login)
			auth.POST("/refresh", h.Auth.RefreshToken)
		}

		authorized := v1.Group("")
		authorized.Use(middleware.JWTAuth(jwtMgr, blacklist, logger))
		{
			authorized.POST("/auth/logout", h.Auth.Logout)
			authorized.GET("/auth/me", h.Auth.Me)
			authorized.PUT("/auth/password", h.Auth.ChangePassword)

			// events: fine-grained rules (creator, visibility) live in the service
			events := authorized.Group("/events")
			{
				events.GET("", h.Event.ListEvents)
				events.POST("", middleware.Require(model.Role.CanCreateEvents), h.Event.CreateEvent)
				events.POST("/import", middleware.Require(model.Role.CanCreateEvents), h.Event.ImportEvents)
				events.GET("/calendar.ics", h.Export.Calendar)
				events.GET("/:id", h.Event.GetEvent)
				events.PUT("/:id", h.Event.UpdateEvent)
				events.DELETE("/:id", h.Event.DeleteEvent)
				events.POST("/:id/submit", h.Event.SubmitEvent)
				events.POST("/:id/approve", middleware.Require(model.Role.CanApproveEvents), h.Event.ApproveEvent)
				events.POST("/:id/reject", middleware.Require(model.Role.CanApproveEvents), h.Event.RejectEvent)
				events.GET("/:id/teams", h.Team.ListEventTeams)
				events.POST("/:id/teams", middleware.Require(model.Role.CanJoinTeams), h.Team.CreateTeam)
				events.POST("/:id/solo", middleware.Require(model.Role.CanJoinTeams), h.Team.RegisterSolo)
				events.GET("/:id/export", h.Export.ExportRegistrations)
			}

			teams := authorized.Group("/teams")
			{
				teams.GET("/my", h.Team.ListMyTeams)
				teams.GET("/invitations", h.Team.ListInvitations)
				teams.GET("/:id", h.Team.GetTeam)
				teams.POST("/:id/respond", h.Team.Respond)
				teams.POST("/:id/register", h.Team.Register)
				teams.POST("/:id/proof", h.Team.SubmitProof)
				teams.POST("/:id/verify", middleware.Require(model.Role.CanVerifyTeams), h.Team.Verify)
				teams.DELETE("/:id", h.Team.Disband)
			}

			departments := authorized.Group("/departments")
			{
				departments.GET("", h.Department.ListDepartments)
				departments.GET("/:id", h.Department.GetDepartment)
				departments.POST("", middleware.Require(model.Role.CanManageDepartments), h.Department.CreateDepartment)
				departments.PUT("/:id", middleware.Require(model.Role.CanManageDepartments), h.Department.UpdateDepartment)
				departments.DELETE("/:id", middleware.Require(model.Role.CanManageDepartments), h.Department.DeleteDepartment)
			}

			classes := authorized.Group("/classes")
			{
				classes.GET("", h.Department.ListClasses)
				classes.GET("/:id", h.Department.GetClass)
				classes.POST("", middleware.Require(model.Role.CanManageClasses), h.Department.CreateClass)
				classes.PUT("/:id", middleware.Require(model.Role.CanManageClasses), h.Department.UpdateClass)
				classes.DELETE("/:id", middleware.Require(model.Role.CanManageClasses), h.Department.DeleteClass)
			}

			users := authorized.Group("/users")
			users.Use(middleware.Require(model.Role.CanManageUsers))
			{
				users.GET("", h.User.ListUsers)
				users.POST("", h.User.CreateUser)
				users.POST("/import", h.User.ImportUsers)
				users.GET("/:id", h.User.GetUser)
				users.PUT("/:id", h.User.UpdateUser)
				users.DELETE("/:id", h.User.DeleteUser)
				users.POST("/:id/reset-password", h.User.ResetPassword)
			}

			notifications := authorized.Group("/notifications")
			{
				notifications.GET("", h.Notification.ListNotifications)
				notifications.GET("/unread-count", h.Notification.UnreadCount)
				notifications.PUT("/read-all", h.Notification.MarkAllRead)
				notifications.PUT("/:id/read", h.Notification.MarkRead)
			}

			authorized.GET("/dashboard/stats", middleware.Require(model.Role.CanViewDashboard), h.Notification.DashboardStats)
		}
	}

	return r
}
