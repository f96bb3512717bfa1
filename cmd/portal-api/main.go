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

	_ "github.com/hamrah-edu/school-portal-api/api/swagger"
	"github.com/hamrah-edu/school-portal-api/internal/handler"
	"github.com/hamrah-edu/school-portal-api/internal/middleware"
	"github.com/hamrah-edu/school-portal-api/internal/models"
	"github.com/hamrah-edu/school-portal-api/internal/repository"
	"github.com/hamrah-edu/school-portal-api/internal/service"
	"github.com/hamrah-edu/school-portal-api/pkg/cache"
	"github.com/hamrah-edu/school-portal-api/pkg/config"
	"github.com/hamrah-edu/school-portal-api/pkg/database"
	"github.com/hamrah-edu/school-portal-api/pkg/logger"
	corsmiddleware "github.com/hamrah-edu/school-portal-api/pkg/middleware/cors"
	reqidmiddleware "github.com/hamrah-edu/school-portal-api/pkg/middleware/requestid"
	"github.com/hamrah-edu/school-portal-api/pkg/storage"
)

// @title School Portal API
// @version 1.0.0
// @description Administration portal for a language school: accounts, terms, classes, attendance, grading and term promotion
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
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to redis", "error", err)
	}
	defer redisClient.Close() //nolint:errcheck

	uploadStore, err := storage.NewLocalStorage(cfg.Uploads.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to prepare upload storage", "error", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Uploads.SignedURLSecret, cfg.Uploads.SignedURLTTL)

	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	termRepo := repository.NewTermRepository(db)
	classRepo := repository.NewClassRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)
	scoreRepo := repository.NewScoreRepository(db)
	recordRepo := repository.NewAcademicRecordRepository(db)
	promotionRepo := repository.NewPromotionRepository(db)
	announcementRepo := repository.NewAnnouncementRepository(db)
	siteSettingsRepo := repository.NewSiteSettingsRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	metricsSvc := service.NewMetricsService()
	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             cfg.JWT.Issuer,
	})
	userSvc := service.NewUserService(userRepo, termRepo, validate, logr)
	termSvc := service.NewTermService(termRepo, validate, logr)
	classSvc := service.NewClassService(classRepo, userRepo, termRepo, attendanceRepo, validate, logr)
	attendanceSvc := service.NewAttendanceService(attendanceRepo, classRepo, validate, logr)
	promotionSvc := service.NewPromotionService(userRepo, termRepo, recordRepo, classRepo, promotionRepo, logr)
	scoreSvc := service.NewScoreService(scoreRepo, recordRepo, userRepo, termRepo, classRepo, promotionSvc, validate, logr)
	exportSvc := service.NewExportService(scoreRepo, classRepo, nil, nil, logr)
	announcementSvc := service.NewAnnouncementService(announcementRepo, uploadStore, signer, cfg.APIPrefix, validate, logr)
	siteSettingsSvc := service.NewSiteSettingsService(siteSettingsRepo, cacheRepo, signer, cfg.SiteSettings.CacheTTL, cfg.APIPrefix, validate, logr)

	authHandler := handler.NewAuthHandler(authSvc, metricsSvc)
	userHandler := handler.NewUserHandler(userSvc)
	termHandler := handler.NewTermHandler(termSvc)
	classHandler := handler.NewClassHandler(classSvc)
	attendanceHandler := handler.NewAttendanceHandler(attendanceSvc)
	scoreHandler := handler.NewScoreHandler(scoreSvc, promotionSvc, metricsSvc)
	exportHandler := handler.NewExportHandler(exportSvc)
	announcementHandler := handler.NewAnnouncementHandler(announcementSvc, cfg.Uploads.MaxFileSizeBytes, cfg.Uploads.AllowedMIMEs)
	siteSettingsHandler := handler.NewSiteSettingsHandler(siteSettingsSvc, uploadStore, cfg.Uploads.MaxFileSizeBytes, cfg.Uploads.AllowedMIMEs)
	mediaHandler := handler.NewMediaHandler(signer, uploadStore)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/metrics", metricsHandler.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	// Public surface: gateways, the landing content and signed media.
	api.POST("/auth/student/login", authHandler.LoginStudent)
	api.POST("/auth/teacher/login", authHandler.LoginTeacher)
	api.POST("/auth/refresh", authHandler.Refresh)
	api.GET("/site-settings", siteSettingsHandler.Get)
	api.GET("/announcements", announcementHandler.List)
	api.GET("/announcements/:id", announcementHandler.Get)
	api.GET("/media/:token", mediaHandler.Download)
	api.GET("/terms", termHandler.List)
	api.GET("/terms/:id", termHandler.Get)

	authed := api.Group("")
	authed.Use(middleware.JWT(authSvc))
	authed.POST("/auth/logout", authHandler.Logout)
	authed.GET("/auth/me", authHandler.Me)
	authed.GET("/profiles/:slug", userHandler.GetBySlug)
	authed.GET("/users/:id", middleware.RBAC(string(models.RoleTeacher), "SELF"), userHandler.Get)

	teacher := api.Group("")
	teacher.Use(middleware.JWT(authSvc), middleware.RequireRoles(models.RoleTeacher))
	teacher.POST("/users", userHandler.Register)
	teacher.GET("/users", userHandler.List)
	teacher.PUT("/users/:id/term", userHandler.AssignTerm)
	teacher.POST("/terms", termHandler.Create)
	teacher.GET("/classes", classHandler.List)
	teacher.GET("/classes/:id", classHandler.Get)
	teacher.POST("/classes", classHandler.Create)
	teacher.GET("/classes/:id/students", classHandler.Roster)
	teacher.POST("/classes/:id/students", classHandler.Enroll)
	teacher.DELETE("/classes/:id/students/:studentID", classHandler.Withdraw)
	teacher.GET("/classes/:id/sessions", attendanceHandler.ClassSessions)
	teacher.GET("/classes/:id/score-sheet", exportHandler.ScoreSheet)
	teacher.GET("/teacher/classes", classHandler.Mine)
	teacher.POST("/attendance/sessions/:id", attendanceHandler.Take)
	teacher.GET("/attendance/sessions/:id/roll", attendanceHandler.Roll)
	teacher.POST("/scores", scoreHandler.Set)
	teacher.GET("/students/:id/scores", scoreHandler.ListForStudent)
	teacher.GET("/students/:id/scores/:termID", scoreHandler.Get)
	teacher.POST("/students/:id/scores/:termID/reevaluate", scoreHandler.Reevaluate)
	teacher.POST("/students/:id/promote", scoreHandler.Promote)
	teacher.GET("/students/:id/classes/:classID/attendance", attendanceHandler.StudentAttendance)
	teacher.PUT("/site-settings", siteSettingsHandler.Update)
	teacher.PUT("/site-settings/logo", siteSettingsHandler.UploadLogo)
	teacher.POST("/announcements", announcementHandler.Create)
	teacher.DELETE("/announcements/:id", announcementHandler.Delete)

	student := api.Group("/student")
	student.Use(middleware.JWT(authSvc), middleware.RequireRoles(models.RoleStudent))
	student.GET("/classes", classHandler.MyHistory)
	student.GET("/classes/:id/attendance", attendanceHandler.MyAttendance)
	student.GET("/scores", scoreHandler.Mine)
	student.GET("/scores/:termID", scoreHandler.MyScore)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
