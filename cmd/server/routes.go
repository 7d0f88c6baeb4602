package main

import (
	"github.com/gin-gonic/gin"
	"github.com/huangang/campy/internal/config"
	"github.com/huangang/campy/internal/middleware"
	"github.com/huangang/campy/pkg/logger"
)

// registerRoutes sets up all HTTP routes on the given Gin engine. The
// returned limiter must be closed on shutdown.
func registerRoutes(r *gin.Engine, cfg *config.Config, svc *appServices) *middleware.RateLimiter {
	r.Use(middleware.RequestID(), logger.GinLogger(), logger.GinRecovery())
	r.Use(middleware.CORS(cfg.Server.AllowedOrigins...))

	authLimiter := middleware.NewRateLimiter(cfg.Server.AuthRateLimit, cfg.Server.AuthRateBurst)

	r.GET("/health", svc.healthHandler.CheckHealth)

	api := r.Group("/api")
	{
		// Auth routes (public)
		auth := api.Group("/auth", authLimiter.Middleware())
		{
			auth.POST("/register", svc.authHandler.Register)
			auth.POST("/login", svc.authHandler.Login)
			auth.POST("/refresh", svc.authHandler.Refresh)
			auth.POST("/logout", svc.authHandler.Logout)
		}

		// SSE events (public route with internal token validation)
		api.GET("/events", svc.sseHandler.Stream)

		protected := api.Group("")
		protected.Use(middleware.AuthRequired(), middleware.LoadActor(svc.db), middleware.Audit(svc.audit))
		{
			protected.GET("/auth/me", svc.authHandler.GetCurrentUser)
			protected.PUT("/auth/password", svc.authHandler.ChangePassword)

			protected.GET("/dashboard", svc.dashboardHandler.GetStats)
			protected.GET("/my-activities", svc.activityHandler.Assigned)

			// Projects
			protected.GET("/projects", svc.projectHandler.List)
			protected.POST("/projects", svc.projectHandler.Create)
			protected.GET("/projects/:id", svc.projectHandler.GetByID)
			protected.PUT("/projects/:id", svc.projectHandler.Update)
			protected.DELETE("/projects/:id", svc.projectHandler.Delete)
			protected.GET("/projects/:id/gantt", svc.ganttHandler.Chart)
			protected.GET("/projects/:id/audit-logs", svc.auditHandler.List)

			// Team
			protected.GET("/projects/:id/members", svc.projectHandler.Members)
			protected.GET("/projects/:id/assignable", svc.projectHandler.AssignableMembers)
			protected.POST("/projects/:id/members", authLimiter.Middleware(), svc.membershipHandler.Add)
			protected.PUT("/projects/:id/members/:membership_id", svc.membershipHandler.UpdateRole)
			protected.DELETE("/projects/:id/members/:membership_id", svc.membershipHandler.Remove)
			protected.GET("/projects/:id/invitations", svc.membershipHandler.Invitations)
			protected.DELETE("/projects/:id/invitations/:invitation_id", svc.membershipHandler.CancelInvitation)

			// Activities
			protected.GET("/projects/:id/activities", svc.activityHandler.List)
			protected.POST("/projects/:id/activities", svc.activityHandler.Create)
			protected.GET("/activities/:id", svc.activityHandler.GetByID)
			protected.PUT("/activities/:id", svc.activityHandler.Update)
			protected.DELETE("/activities/:id", svc.activityHandler.Delete)
			protected.PATCH("/activities/:id/toggle", svc.activityHandler.ToggleDone)
			protected.PUT("/activities/:id/reschedule", svc.activityHandler.Reschedule)

			// Import
			protected.GET("/import/template", svc.importHandler.Template)
			protected.POST("/projects/:id/import/preview", svc.importHandler.Preview)
			protected.POST("/projects/:id/import", svc.importHandler.Import)

			// Comments
			protected.GET("/activities/:id/comments", svc.commentHandler.List)
			protected.POST("/activities/:id/comments", svc.commentHandler.Create)
			protected.DELETE("/comments/:id", svc.commentHandler.Delete)
			protected.POST("/comments/:id/reactions", svc.commentHandler.ToggleReaction)

			// Messaging
			protected.GET("/teammates", svc.conversationHandler.Teammates)
			protected.GET("/conversations", svc.conversationHandler.List)
			protected.POST("/conversations", svc.conversationHandler.Start)
			protected.GET("/conversations/:id", svc.conversationHandler.GetByID)
			protected.POST("/conversations/:id/messages", svc.conversationHandler.Send)

			// Calendar
			protected.GET("/calendar", svc.calendarHandler.Month)
			protected.POST("/calendar/events", svc.calendarHandler.CreateEvent)
			protected.GET("/calendar/events/:id", svc.calendarHandler.GetEvent)
			protected.PUT("/calendar/events/:id", svc.calendarHandler.UpdateEvent)
			protected.DELETE("/calendar/events/:id", svc.calendarHandler.DeleteEvent)

			// Notifications
			protected.GET("/notifications", svc.notificationHandler.List)
			protected.GET("/notifications/counts", svc.notificationHandler.Counts)
			protected.GET("/notifications/unread-count", svc.notificationHandler.UnreadCount)
			protected.POST("/notifications/read-all", svc.notificationHandler.MarkAllRead)
			protected.POST("/notifications/:id/read", svc.notificationHandler.MarkRead)
			protected.POST("/notifications/:id/unread", svc.notificationHandler.MarkUnread)
			protected.DELETE("/notifications/:id", svc.notificationHandler.Delete)

			// Reference data
			protected.GET("/disciplines", svc.referenceHandler.Disciplines)
			protected.POST("/disciplines", svc.referenceHandler.CreateDiscipline)
			protected.PUT("/disciplines/:id", svc.referenceHandler.UpdateDiscipline)
			protected.DELETE("/disciplines/:id", svc.referenceHandler.DeleteDiscipline)
			protected.GET("/zones", svc.referenceHandler.Zones)
			protected.POST("/zones", svc.referenceHandler.CreateZone)
			protected.PUT("/zones/:id", svc.referenceHandler.UpdateZone)
			protected.DELETE("/zones/:id", svc.referenceHandler.DeleteZone)
			protected.GET("/holidays/countries", svc.referenceHandler.HolidayCountries)

			// Users
			protected.GET("/users/:id", svc.userHandler.Profile)
			protected.GET("/settings", svc.userHandler.GetSettings)
			protected.PUT("/settings", svc.userHandler.UpdateSettings)
			protected.DELETE("/settings", svc.userHandler.DeleteAccount)
		}
	}

	return authLimiter
}
