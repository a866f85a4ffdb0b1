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
	"go.uber.org/zap"

	_ "github.com/atms-platform/atms-api/api/swagger"
	"github.com/atms-platform/atms-api/internal/handler"
	"github.com/atms-platform/atms-api/internal/middleware"
	"github.com/atms-platform/atms-api/internal/models"
	"github.com/atms-platform/atms-api/internal/repository"
	"github.com/atms-platform/atms-api/internal/service"
	"github.com/atms-platform/atms-api/pkg/cache"
	"github.com/atms-platform/atms-api/pkg/config"
	"github.com/atms-platform/atms-api/pkg/database"
	"github.com/atms-platform/atms-api/pkg/export"
	"github.com/atms-platform/atms-api/pkg/logger"
	"github.com/atms-platform/atms-api/pkg/mailer"
	corsmiddleware "github.com/atms-platform/atms-api/pkg/middleware/cors"
	reqidmiddleware "github.com/atms-platform/atms-api/pkg/middleware/requestid"
	"github.com/atms-platform/atms-api/pkg/storage"
)

// @title ATMS API
// @version 1.0.0
// @description Audit training management: courses, enrollments, grades and reports
// @BasePath /api/v1
// @schemes http
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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, dashboard cache disabled", zap.Error(err))
		redisClient = nil
	}

	validate := validator.New()
	metricsSvc := service.NewMetricsService()

	userRepo := repository.NewUserRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	scoreRepo := repository.NewScoreRepository(db)
	finalGradeRepo := repository.NewFinalGradeRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)
	activityRepo := repository.NewActivityRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	var mail mailer.Mailer = mailer.NopMailer{}
	if cfg.Mail.Enabled {
		mail = mailer.NewSendgridMailer(cfg.Mail, logr)
	}
	mail = mailer.WithObserver(mail, metricsSvc.ObserveMailDelivery)

	activitySvc := service.NewActivityService(activityRepo, logr)
	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "atms-api",
	})
	reconcilerSvc := service.NewReconcilerService(courseRepo, userRepo, activityRepo, cfg.Reconciler, logr)
	reconcilerSvc.SetMetrics(metricsSvc)
	userSvc := service.NewUserService(userRepo, activityRepo, mail, reconcilerSvc, validate, logr)
	courseSvc := service.NewCourseService(courseRepo, userRepo, sessionRepo, validate, logr)
	gradeSvc := service.NewGradeService(scoreRepo, finalGradeRepo, userRepo, validate, logr)
	sessionSvc := service.NewSessionService(sessionRepo, validate, logr)
	enrollmentSvc := service.NewEnrollmentService(enrollmentRepo, courseRepo, sessionRepo, activityRepo, logr)
	attendanceSvc := service.NewAttendanceService(attendanceRepo, courseRepo, validate, logr)
	dashboardSvc := service.NewDashboardService(userRepo, courseRepo, enrollmentRepo, cacheRepo, cfg.Dashboard.CacheTTL, logr)
	reportSvc := service.NewReportService(finalGradeRepo, export.NewCSVExporter(), export.NewPDFExporter(), logr)

	materialStore, err := storage.NewLocalStorage(cfg.Storage.Dir)
	if err != nil {
		logr.Fatal("failed to init material storage", zap.Error(err))
	}
	materialSigner := storage.NewSignedURLSigner(cfg.Storage.SignSecret, cfg.Storage.LinkTTL)
	materialSvc := service.NewMaterialService(courseRepo, materialStore, materialSigner, logr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Reconciler.Enabled {
		reconcilerSvc.Start(ctx)
		defer reconcilerSvc.Stop()
	}

	authHandler := handler.NewAuthHandler(authSvc)
	userHandler := handler.NewUserHandler(userSvc)
	courseHandler := handler.NewCourseHandler(courseSvc)
	gradeHandler := handler.NewGradeHandler(gradeSvc)
	sessionHandler := handler.NewSessionHandler(sessionSvc)
	enrollmentHandler := handler.NewEnrollmentHandler(enrollmentSvc)
	attendanceHandler := handler.NewAttendanceHandler(attendanceSvc)
	dashboardHandler := handler.NewDashboardHandler(dashboardSvc, activitySvc)
	reportHandler := handler.NewReportHandler(reportSvc)
	reconcilerHandler := handler.NewReconcilerHandler(reconcilerSvc)
	materialHandler := handler.NewMaterialHandler(materialSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Health)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	auth.POST("/signup", authHandler.Signup)
	auth.POST("/login", authHandler.Login)
	auth.POST("/refresh", authHandler.Refresh)

	// Signed token is the only credential a material download needs.
	api.GET("/materials/download", materialHandler.Download)

	authed := api.Group("")
	authed.Use(middleware.JWT(authSvc))

	authed.POST("/auth/logout", authHandler.Logout)
	authed.PUT("/auth/password", authHandler.ChangePassword)
	authed.GET("/auth/me", authHandler.Me)

	users := authed.Group("/users")
	users.Use(middleware.InvalidateOnWrite(dashboardSvc))
	users.GET("", middleware.RequireRoles(models.RoleAdmin), userHandler.List)
	users.GET("/pending", middleware.RequireRoles(models.RoleAdmin), userHandler.ListPending)
	users.GET("/:id", middleware.RequireSelfOr(models.RoleAdmin), userHandler.Get)
	users.POST("/:id/approve", middleware.RequireRoles(models.RoleAdmin), middleware.Audit(userRepo, "USER_APPROVE", "users"), userHandler.Approve)
	users.POST("/:id/reject", middleware.RequireRoles(models.RoleAdmin), middleware.Audit(userRepo, "USER_REJECT", "users"), userHandler.Reject)
	users.PUT("/:id", middleware.RequireRoles(models.RoleAdmin), userHandler.Update)
	users.DELETE("/:id", middleware.RequireRoles(models.RoleAdmin), middleware.Audit(userRepo, "USER_DELETE", "users"), userHandler.Delete)

	courses := authed.Group("/courses")
	courses.Use(middleware.InvalidateOnWrite(dashboardSvc))
	courses.GET("", courseHandler.List)
	courses.GET("/:id", courseHandler.Get)
	courses.POST("", middleware.RequireRoles(models.RoleAdmin), courseHandler.Create)
	courses.PUT("/:id", middleware.RequireRoles(models.RoleAdmin), courseHandler.Update)
	courses.DELETE("/:id", middleware.RequireRoles(models.RoleAdmin), courseHandler.Delete)
	courses.POST("/:id/materials", middleware.RequireRoles(models.RoleAdmin, models.RoleTrainer), materialHandler.Upload)
	courses.GET("/:id/materials/:name/link", materialHandler.Link)
	courses.DELETE("/:id/materials/:name", middleware.RequireRoles(models.RoleAdmin, models.RoleTrainer), materialHandler.Remove)

	grades := authed.Group("/grades")
	grades.POST("", middleware.RequireRoles(models.RoleAdmin, models.RoleTrainer), gradeHandler.Save)
	grades.GET("/scores", middleware.RequireRoles(models.RoleAdmin, models.RoleTrainer), gradeHandler.ListScores)
	grades.GET("/final", middleware.RequireRoles(models.RoleAdmin, models.RoleTrainer), gradeHandler.ListFinals)
	grades.GET("/trainees/:id", middleware.RequireSelfOr(models.RoleAdmin, models.RoleTrainer), gradeHandler.TraineeReport)

	sessions := authed.Group("/sessions")
	sessions.GET("", sessionHandler.List)
	sessions.GET("/current", sessionHandler.Current)
	sessions.POST("", middleware.RequireRoles(models.RoleAdmin), sessionHandler.Create)
	sessions.PUT("/:id", middleware.RequireRoles(models.RoleAdmin), sessionHandler.Update)
	sessions.DELETE("/:id", middleware.RequireRoles(models.RoleAdmin), sessionHandler.Delete)

	enrollments := authed.Group("/enrollments")
	enrollments.Use(middleware.InvalidateOnWrite(dashboardSvc))
	enrollments.POST("", middleware.RequireRoles(models.RoleTrainee), enrollmentHandler.Enroll)
	enrollments.GET("/mine", middleware.RequireRoles(models.RoleTrainee), enrollmentHandler.Mine)
	enrollments.GET("", middleware.RequireRoles(models.RoleAdmin, models.RoleTrainer), enrollmentHandler.List)

	meetings := authed.Group("/meetings")
	meetings.GET("", attendanceHandler.ListMeetings)
	meetings.POST("", middleware.RequireRoles(models.RoleTrainer), attendanceHandler.CreateMeeting)
	meetings.POST("/:id/attendance", middleware.RequireRoles(models.RoleTrainer), attendanceHandler.Mark)
	meetings.GET("/:id/attendance", middleware.RequireRoles(models.RoleAdmin, models.RoleTrainer), attendanceHandler.Records)

	if cfg.Dashboard.Enabled {
		dashboard := authed.Group("/dashboard", middleware.RequireRoles(models.RoleAdmin))
		dashboard.GET("/stats", dashboardHandler.Stats)
		dashboard.GET("/activity", dashboardHandler.Activity)
	}

	reports := authed.Group("/reports", middleware.RequireRoles(models.RoleAdmin, models.RoleTrainer))
	reports.GET("/grades", reportHandler.GradeSummary)
	reports.GET("/grades/:id", reportHandler.TraineeReport)

	admin := authed.Group("/admin", middleware.RequireRoles(models.RoleAdmin))
	admin.POST("/reconcile", middleware.Audit(userRepo, "RECONCILE_RUN", "courses"), reconcilerHandler.Run)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("shutdown failed", zap.Error(err))
	}
}
