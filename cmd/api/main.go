package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/aulanet/booking-api/api/swagger"
	"github.com/aulanet/booking-api/internal/handler"
	"github.com/aulanet/booking-api/internal/middleware"
	"github.com/aulanet/booking-api/internal/models"
	"github.com/aulanet/booking-api/internal/repository"
	"github.com/aulanet/booking-api/internal/service"
	"github.com/aulanet/booking-api/pkg/cache"
	"github.com/aulanet/booking-api/pkg/config"
	"github.com/aulanet/booking-api/pkg/database"
	"github.com/aulanet/booking-api/pkg/jobs"
	"github.com/aulanet/booking-api/pkg/logger"
	corsmiddleware "github.com/aulanet/booking-api/pkg/middleware/cors"
	reqidmiddleware "github.com/aulanet/booking-api/pkg/middleware/requestid"
	"github.com/aulanet/booking-api/pkg/storage"

	"go.uber.org/zap"
)

// @title AulaNet Booking API
// @version 1.0.0
// @description Classroom reservation service
// @BasePath /
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, dashboard cache disabled", "error", err)
		redisClient = nil
	} else {
		defer redisClient.Close()
	}

	qrStore, err := storage.NewLocalStorage(cfg.QR.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init qr storage", "error", err)
	}
	qrSigner := storage.NewSignedURLSigner(cfg.QR.SignedURLSecret, cfg.QR.SignedURLTTL)

	validate := validator.New()

	// Repositories.
	reservationRepo := repository.NewReservationRepository(db)
	roomRepo := repository.NewRoomRepository(db)
	resourceRepo := repository.NewResourceRepository(db)
	userRepo := repository.NewUserRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	dashboardRepo := repository.NewDashboardRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	// Services.
	metricsSvc := service.NewMetricsService()
	auditSvc := service.NewAuditService(auditRepo, logr)

	notifySvc := service.NewNotifyService(
		&service.LogEmailSender{Logger: logr},
		&service.LogGroupMessenger{Logger: logr},
		jobs.QueueConfig{
			Workers:    cfg.Notifications.Workers,
			BufferSize: cfg.Notifications.BufferSize,
			MaxRetries: cfg.Notifications.MaxRetries,
			RetryDelay: cfg.Notifications.RetryDelay,
			Logger:     logr,
		},
		logr,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	notifySvc.Start(ctx)
	defer notifySvc.Stop()

	admins := service.AdminEmailFallback{Directory: userRepo, Email: cfg.Notifications.AdminEmail}

	availabilitySvc := service.NewAvailabilityService(reservationRepo, cfg.Booking.HorizonDays, logr)
	bookingSvc := service.NewBookingService(reservationRepo, admins, notifySvc, auditSvc, metricsSvc, validate, logr, cfg.Booking.HorizonDays)
	roomSvc := service.NewRoomService(roomRepo, reservationRepo, auditSvc, qrStore, qrSigner, cfg.PublicBaseURL, validate, logr)
	resourceSvc := service.NewResourceService(resourceRepo, roomRepo, auditSvc, validate, logr)
	dashboardSvc := service.NewDashboardService(dashboardRepo, cacheRepo, cfg.Dashboard.CacheTTL, cfg.Booking.HorizonDays, logr)
	authSvc := service.NewAuthService(userRepo, auditSvc, validate, logr, service.AuthConfig{
		Secret:     cfg.JWT.Secret,
		Expiration: cfg.JWT.Expiration,
		Issuer:     cfg.JWT.Issuer,
	})

	// Handlers.
	bookingHandler := handler.NewBookingHandler(bookingSvc, availabilitySvc)
	roomHandler := handler.NewRoomHandler(roomSvc)
	resourceHandler := handler.NewResourceHandler(resourceSvc)
	dashboardHandler := handler.NewDashboardHandler(dashboardSvc)
	auditHandler := handler.NewAuditHandler(auditSvc)
	authHandler := handler.NewAuthHandler(authSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.POST("/auth/login", authHandler.Login)
	api.GET("/qrcodes/download", roomHandler.DownloadQR)

	authed := api.Group("")
	authed.Use(middleware.JWT(authSvc))
	{
		authed.GET("/availability", bookingHandler.CheckAvailability)
		authed.GET("/reservations", bookingHandler.List)
		authed.POST("/reservations", bookingHandler.Create)
		authed.DELETE("/reservations/:id", bookingHandler.Cancel)

		authed.GET("/rooms", roomHandler.List)
		authed.GET("/rooms/:id", roomHandler.Get)

		authed.GET("/resources", resourceHandler.List)

		authed.GET("/dashboard/statistics", dashboardHandler.Statistics)
	}

	admin := api.Group("")
	admin.Use(middleware.JWT(authSvc), middleware.RequireRoles(models.RoleAdmin))
	{
		admin.POST("/rooms", roomHandler.Create)
		admin.PUT("/rooms/:id", roomHandler.Update)
		admin.POST("/rooms/:id/reconcile", roomHandler.Reconcile)
		admin.POST("/rooms/:id/qr", roomHandler.GenerateQR)

		admin.POST("/resources", resourceHandler.Create)
		admin.PATCH("/resources/:id/state", resourceHandler.UpdateState)

		admin.GET("/audit-logs", auditHandler.List)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Warn("forced shutdown", zap.Error(err))
	}
}
