package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/mentor-scheduling-api/api/swagger"
	"github.com/noah-isme/mentor-scheduling-api/internal/handler"
	internalmiddleware "github.com/noah-isme/mentor-scheduling-api/internal/middleware"
	"github.com/noah-isme/mentor-scheduling-api/internal/repository"
	"github.com/noah-isme/mentor-scheduling-api/internal/scheduling"
	"github.com/noah-isme/mentor-scheduling-api/internal/service"
	"github.com/noah-isme/mentor-scheduling-api/pkg/cache"
	"github.com/noah-isme/mentor-scheduling-api/pkg/config"
	"github.com/noah-isme/mentor-scheduling-api/pkg/database"
	"github.com/noah-isme/mentor-scheduling-api/pkg/jobs"
	"github.com/noah-isme/mentor-scheduling-api/pkg/keylock"
	"github.com/noah-isme/mentor-scheduling-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/mentor-scheduling-api/pkg/middleware/cors"
	"github.com/noah-isme/mentor-scheduling-api/pkg/middleware/ratelimit"
	reqidmiddleware "github.com/noah-isme/mentor-scheduling-api/pkg/middleware/requestid"
	"github.com/noah-isme/mentor-scheduling-api/pkg/signedurl"
)

// @title Mentor Scheduling API
// @version 1.0.0
// @description Availability, slot discovery and meeting lifecycle for mentors and students.
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

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

	policy, err := scheduling.ParseReminderPolicy(cfg.Scheduling.ReminderPolicy)
	if err != nil {
		logr.Fatal("invalid reminder policy", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, availability cache disabled", zap.Error(err))
		redisClient = nil
	}
	cacheRepo := repository.NewCacheRepository(redisClient, "mentor-scheduling")
	defer cacheRepo.Close() //nolint:errcheck

	metrics := service.NewMetricsService()
	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	availabilityRepo := repository.NewAvailabilityRepository(db)
	meetingRepo := repository.NewMeetingRepository(db)
	reminderRepo := repository.NewReminderRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Cache.AvailabilityTTL, logr, cfg.Cache.Enabled && redisClient != nil)
	authSvc := service.NewAuthService(service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		Issuer:            cfg.JWT.Issuer,
		Audience:          cfg.JWT.Audience,
	})
	notificationSvc := service.NewNotificationService(notificationRepo, metrics, validate, logr, jobs.QueueConfig{
		Workers:    cfg.Notifications.Workers,
		BufferSize: cfg.Notifications.BufferSize,
		MaxRetries: cfg.Notifications.MaxRetries,
		RetryDelay: cfg.Notifications.RetryDelay,
	})
	availabilitySvc := service.NewAvailabilityService(availabilityRepo, cacheSvc, validate, logr)
	slotSvc := service.NewSlotService(availabilitySvc, meetingRepo, logr)
	meetingSvc := service.NewMeetingService(meetingRepo, userRepo, notificationSvc, validate, logr, service.MeetingOptions{
		Policy:       policy,
		Metrics:      metrics,
		Locks:        keylock.New(),
		QueryTimeout: cfg.Scheduling.QueryTimeout,
	})
	reminderSvc := service.NewReminderService(reminderRepo, metrics, logr, cfg.Scheduling.DueBatchLimit)
	calendarSvc := service.NewCalendarService(meetingSvc, nil)
	if cfg.Calendar.FeedSecret != "" {
		calendarSvc = service.NewCalendarService(meetingSvc, signedurl.NewSigner(cfg.Calendar.FeedSecret, cfg.Calendar.FeedTTL))
	} else {
		logr.Warn("calendar feed secret empty, subscription links disabled")
	}

	notificationSvc.Start(context.Background())
	defer notificationSvc.Stop()

	var meetingLimiter *ratelimit.Limiter
	if cfg.RateLimit.Enabled {
		meetingLimiter = ratelimit.New(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
		go sweepLimiter(ctx, meetingLimiter)
	}

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metrics))

	checks := map[string]handler.Pinger{"postgres": handler.PingFunc(db.PingContext)}
	if redisClient != nil {
		checks["redis"] = cacheRepo
	}

	handler.RegisterRoutes(r, cfg.APIPrefix, handler.Router{
		Tokens:         authSvc,
		Availability:   handler.NewAvailabilityHandler(availabilitySvc),
		Slots:          handler.NewSlotHandler(slotSvc),
		Meetings:       handler.NewMeetingHandler(meetingSvc, reminderSvc, calendarSvc),
		Reminders:      handler.NewReminderHandler(reminderSvc),
		Notifications:  handler.NewNotificationHandler(notificationSvc),
		Metrics:        handler.NewMetricsHandler(metrics, checks),
		MeetingLimiter: meetingLimiter,
	})

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Error("server failed", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}

func sweepLimiter(ctx context.Context, l *ratelimit.Limiter) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.Sweep()
		}
	}
}
