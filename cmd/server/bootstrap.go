package main

import (
	"github.com/huangang/campy/internal/config"
	"github.com/huangang/campy/internal/handlers"
	"github.com/huangang/campy/internal/models"
	"github.com/huangang/campy/internal/scheduling"
	"github.com/huangang/campy/internal/services"
	"github.com/huangang/campy/internal/utils"
	"github.com/huangang/campy/pkg/logger"
	"gorm.io/gorm"
)

// appServices holds the initialized services, handlers and background
// workers of the application.
type appServices struct {
	db        *gorm.DB
	queue     services.DeliveryQueue
	worker    *services.Worker
	scheduler *services.JobScheduler
	audit     *services.AuditService

	authHandler         *handlers.AuthHandler
	projectHandler      *handlers.ProjectHandler
	membershipHandler   *handlers.MembershipHandler
	activityHandler     *handlers.ActivityHandler
	importHandler       *handlers.ImportHandler
	commentHandler      *handlers.CommentHandler
	conversationHandler *handlers.ConversationHandler
	calendarHandler     *handlers.CalendarHandler
	notificationHandler *handlers.NotificationHandler
	dashboardHandler    *handlers.DashboardHandler
	ganttHandler        *handlers.GanttHandler
	referenceHandler    *handlers.ReferenceHandler
	auditHandler        *handlers.AuditHandler
	userHandler         *handlers.UserHandler
	sseHandler          *handlers.SSEHandler
	healthHandler       *handlers.HealthHandler
}

// bootstrap initializes the database, delivery pipeline, services and
// schedulers.
func bootstrap(cfg *config.Config) *appServices {
	utils.SetJWTSecret(cfg.JWT.Secret)

	if err := models.InitDB(&cfg.Database); err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	if err := models.AutoMigrate(); err != nil {
		logger.Fatalf("Failed to migrate database: %v", err)
	}
	if err := models.SeedDefaultData(); err != nil {
		logger.Warn().Err(err).Msg("Failed to seed default data")
	}
	db := models.GetDB()

	loc := cfg.App.Location()
	clock := scheduling.SystemClock(loc)
	country := cfg.Gantt.HolidayCountry

	// Delivery runs in-process unless Redis is enabled, in which case the
	// worker below consumes the queue.
	deliverer := services.NewDeliverer(cfg.Mail)
	queue := services.InitDeliveryQueue(cfg)
	if syncQueue, ok := queue.(*services.SyncQueue); ok {
		syncQueue.SetProcessor(deliverer.Deliver)
	}
	var worker *services.Worker
	if queue.IsAsync() {
		worker = services.NewWorker(&cfg.Redis)
		worker.SetProcessor(deliverer.Deliver)
		if err := worker.Start(); err != nil {
			logger.Error().Err(err).Msg("Failed to start delivery worker")
			worker = nil
		}
	}

	hub := services.GetEventHub()
	holidays := services.NewHolidayService()
	notifications := services.NewNotificationService(db, queue, hub)
	memberships := services.NewMembershipService(db, notifications, queue, cfg.App.BaseURL)
	audit := services.NewAuditService(db)

	scheduler := services.NewJobScheduler(db, cfg.Scheduler, loc,
		services.NewDueDateChecker(db, notifications, clock, cfg.Scheduler.ReminderDays),
		services.NewDigestService(db, queue, clock),
		audit, cfg.Log.AuditRetentionDays)
	if cfg.Scheduler.Enabled {
		if err := scheduler.Start(); err != nil {
			logger.Error().Err(err).Msg("Failed to start job scheduler")
		}
	}

	return &appServices{
		db:        db,
		queue:     queue,
		worker:    worker,
		scheduler: scheduler,
		audit:     audit,

		authHandler:         handlers.NewAuthHandler(services.NewAuthService(db, &cfg.JWT, memberships)),
		projectHandler:      handlers.NewProjectHandler(services.NewProjectService(db)),
		membershipHandler:   handlers.NewMembershipHandler(memberships),
		activityHandler:     handlers.NewActivityHandler(services.NewActivityService(db, notifications, clock)),
		importHandler:       handlers.NewImportHandler(services.NewImportService(db, clock)),
		commentHandler:      handlers.NewCommentHandler(services.NewCommentService(db, notifications)),
		conversationHandler: handlers.NewConversationHandler(services.NewMessagingService(db, notifications, hub)),
		calendarHandler:     handlers.NewCalendarHandler(services.NewCalendarService(db, clock, holidays, country)),
		notificationHandler: handlers.NewNotificationHandler(notifications),
		dashboardHandler:    handlers.NewDashboardHandler(services.NewDashboardService(db, clock)),
		ganttHandler:        handlers.NewGanttHandler(services.NewGanttService(db, clock, holidays, country, cfg.Gantt.RenderWidth)),
		referenceHandler:    handlers.NewReferenceHandler(services.NewReferenceService(db), holidays),
		auditHandler:        handlers.NewAuditHandler(audit),
		userHandler:         handlers.NewUserHandler(services.NewUserService(db, clock)),
		sseHandler:          handlers.NewSSEHandler(hub, notifications),
		healthHandler:       handlers.NewHealthHandler(db, queue, hub),
	}
}

// shutdown stops the schedulers, then drains deliveries.
func (s *appServices) shutdown() {
	s.scheduler.Stop()
	logger.Info().Msg("All schedulers stopped")

	if s.worker != nil {
		s.worker.Stop()
	}
	if s.queue != nil {
		if err := s.queue.Close(); err != nil {
			logger.Warn().Err(err).Msg("Failed to close delivery queue")
		}
	}
}
