package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"anoa.com/campuscomplaint/internal/config"
	"anoa.com/campuscomplaint/internal/entity"
	"anoa.com/campuscomplaint/internal/middleware"
	"anoa.com/campuscomplaint/internal/scheduler"
	"anoa.com/campuscomplaint/pkg/ratelimiter"
	"anoa.com/campuscomplaint/pkg/storage"

	attachmentHttp "anoa.com/campuscomplaint/internal/modules/attachment/delivery/http"
	attachmentRepo "anoa.com/campuscomplaint/internal/modules/attachment/repository"
	attachmentService "anoa.com/campuscomplaint/internal/modules/attachment/service"

	auditRepo "anoa.com/campuscomplaint/internal/modules/audit/repository"

	complaintHttp "anoa.com/campuscomplaint/internal/modules/complaint/delivery/http"
	complaintRepo "anoa.com/campuscomplaint/internal/modules/complaint/repository"
	complaintService "anoa.com/campuscomplaint/internal/modules/complaint/service"

	feedbackHttp "anoa.com/campuscomplaint/internal/modules/feedback/delivery/http"
	feedbackRepo "anoa.com/campuscomplaint/internal/modules/feedback/repository"
	feedbackService "anoa.com/campuscomplaint/internal/modules/feedback/service"

	notiHttp "anoa.com/campuscomplaint/internal/modules/notification/delivery/http"
	notifRepo "anoa.com/campuscomplaint/internal/modules/notification/repository"
	notifService "anoa.com/campuscomplaint/internal/modules/notification/service"

	searchService "anoa.com/campuscomplaint/internal/modules/search/service"

	statHttp "anoa.com/campuscomplaint/internal/modules/stat/delivery/http"
	statRepo "anoa.com/campuscomplaint/internal/modules/stat/repository"
	statService "anoa.com/campuscomplaint/internal/modules/stat/service"

	userRepo "anoa.com/campuscomplaint/internal/modules/user/repository"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/meilisearch/meilisearch-go"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Dependencies are the external systems the server talks to. Redis, Storage
// and Search may be nil; the features behind them then degrade to logged
// no-ops or dependency errors.
type Dependencies struct {
	DB      *gorm.DB
	Redis   *redis.Client
	Storage storage.ObjectStorage
	Search  meilisearch.ServiceManager
	Config  *config.Config
	Log     *logrus.Logger
}

type Server struct {
	engine    *gin.Engine
	scheduler *scheduler.Scheduler
	log       logrus.FieldLogger
}

func NewServer(deps Dependencies) (*Server, error) {
	cfg := deps.Config
	log := deps.Log
	db := deps.DB

	userRepo := userRepo.NewUserRepository(db)
	auditRepo := auditRepo.NewAuditRepository(db)

	// Notification Module
	notificationRepository := notifRepo.NewNotificationRepository(db)
	notificationSvc := notifService.NewNotificationService(notificationRepository, notifService.NewRedisPublisher(deps.Redis), log)
	notificationHandler := notiHttp.NewNotificationHandler(notificationSvc, deps.Redis, log)

	attachmentRepo := attachmentRepo.NewAttachmentRepository(db)
	attachmentSvc := attachmentService.NewAttachmentService(
		deps.Storage,
		attachmentService.NewRedisPendingUploads(deps.Redis),
		cfg.CloudinaryUploadFolder,
		cfg.OrphanUploadTTL,
		log,
	)
	attachmentHandler := attachmentHttp.NewAttachmentHandler(attachmentSvc)

	var index searchService.ComplaintIndex
	if deps.Search != nil {
		index = searchService.NewMeiliSearchService(deps.Search, log)
	}

	policy := complaintService.Policy{DepartmentAdminTransitions: cfg.DepartmentAdminTransitions}

	complaintRepo := complaintRepo.NewRepository(db)
	feedbackRepo := feedbackRepo.NewFeedbackRepository(db)

	complaintSvc := complaintService.NewService(
		complaintRepo,
		auditRepo,
		attachmentRepo,
		feedbackRepo,
		userRepo,
		notificationSvc,
		attachmentSvc,
		index,
		ratelimiter.NewCooldown(deps.Redis, "submit_complaint", cfg.SubmitCooldown),
		policy,
		log,
	)
	complaintHandler := complaintHttp.NewComplaintHandler(complaintSvc)

	feedbackSvc := feedbackService.NewFeedbackService(feedbackRepo, complaintRepo, userRepo, notificationSvc, log)
	feedbackHandler := feedbackHttp.NewFeedbackHandler(feedbackSvc)

	statSvc := statService.NewStatService(statRepo.NewStatRepository(db), policy)
	statHandler := statHttp.NewStatHandler(statSvc)

	jobs := scheduler.New(log)
	if err := jobs.Register(attachmentService.NewOrphanCleanupJob(attachmentSvc, cfg.OrphanCleanupSchedule)); err != nil {
		return nil, err
	}

	router := gin.New()

	setupCORS(router, cfg.AllowedOrigins)

	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(log, "/api/notifications/ws"))

	authMiddleware := middleware.NewAuthMiddleware(userRepo, cfg.JWTSecret, log)

	api := router.Group("/api")

	api.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	protected := api.Group("")
	protected.Use(authMiddleware.RequireAuth())
	{
		adminOnly := authMiddleware.RequireRole(entity.RoleAdmin)

		// Complaint routes
		protected.POST("/complaints", complaintHandler.SubmitComplaint)
		protected.GET("/complaints", complaintHandler.ListComplaints)
		protected.GET("/complaints/search", adminOnly, complaintHandler.SearchComplaints)
		protected.GET("/complaints/:id", complaintHandler.GetComplaint)
		protected.GET("/complaints/:id/history", complaintHandler.GetHistory)
		protected.PATCH("/complaints/:id/status", complaintHandler.UpdateStatus)
		protected.PATCH("/complaints/:id/priority", complaintHandler.UpdatePriority)
		protected.PATCH("/complaints/:id/sensitive", adminOnly, complaintHandler.UpdateSensitive)
		protected.DELETE("/complaints/:id", complaintHandler.WithdrawComplaint)

		// Feedback routes
		protected.POST("/complaints/:id/feedback", feedbackHandler.SubmitFeedback)
		protected.GET("/complaints/:id/feedback", feedbackHandler.GetFeedback)
		protected.GET("/feedback", adminOnly, feedbackHandler.ListFeedback)
		protected.GET("/feedback/stats", adminOnly, feedbackHandler.GetStats)

		// Notification routes
		protected.GET("/notifications", notificationHandler.GetNotifications)
		protected.GET("/notifications/unread-count", notificationHandler.UnreadCount)
		protected.PUT("/notifications/:id/read", notificationHandler.MarkAsRead)
		protected.PUT("/notifications/read-all", notificationHandler.MarkAllAsRead)
		protected.GET("/notifications/ws", notificationHandler.HandleWebSocket)

		// Stat routes
		protected.GET("/stats/status", statHandler.GetStatusCounts)
		protected.GET("/stats/faculties", adminOnly, statHandler.GetFacultyCounts)
		protected.GET("/stats/series", statHandler.GetDateSeries)
		protected.GET("/stats/monthly", statHandler.GetMonthlySeries)

		protected.POST("/attachments/upload", attachmentHandler.UploadAttachment)
	}

	return &Server{
		engine:    router,
		scheduler: jobs,
		log:       log,
	}, nil
}

// Handler exposes the router, mainly for httptest.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves on addr and starts background jobs until ctx is cancelled, then
// shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.scheduler.Start()

	errCh := make(chan error, 1)
	go func() {
		s.log.WithField("addr", addr).Info("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		s.scheduler.Stop(context.Background())
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	s.scheduler.Stop(shutdownCtx)
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	s.log.Info("http server stopped")
	return nil
}

func setupCORS(router *gin.Engine, allowedOrigins string) {
	var origins []string
	for _, o := range strings.Split(allowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}

	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
}
