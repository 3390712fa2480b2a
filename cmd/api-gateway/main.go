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
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/uphsl-enrollment-api/api/swagger"
	"github.com/noah-isme/uphsl-enrollment-api/internal/handler"
	"github.com/noah-isme/uphsl-enrollment-api/internal/ledger"
	"github.com/noah-isme/uphsl-enrollment-api/internal/middleware"
	"github.com/noah-isme/uphsl-enrollment-api/internal/models"
	"github.com/noah-isme/uphsl-enrollment-api/internal/repository"
	"github.com/noah-isme/uphsl-enrollment-api/internal/service"
	"github.com/noah-isme/uphsl-enrollment-api/pkg/cache"
	"github.com/noah-isme/uphsl-enrollment-api/pkg/config"
	"github.com/noah-isme/uphsl-enrollment-api/pkg/database"
	"github.com/noah-isme/uphsl-enrollment-api/pkg/events"
	"github.com/noah-isme/uphsl-enrollment-api/pkg/events/kafka"
	"github.com/noah-isme/uphsl-enrollment-api/pkg/jobs"
	"github.com/noah-isme/uphsl-enrollment-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/uphsl-enrollment-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/uphsl-enrollment-api/pkg/middleware/requestid"
	"github.com/noah-isme/uphsl-enrollment-api/pkg/reference"
)

// @title UPHSL Enrollment API
// @version 1.0.0
// @description Student and teacher identifiers, enrollment approval and the per-term financial ledger
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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(context.Background(), cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("database connection failed", "error", err)
	}
	defer db.Close()

	metricsSvc := service.NewMetricsService()
	validate := service.NewValidator()

	var cacheSvc *service.CacheService
	checks := map[string]handler.ReadinessCheck{"postgres": db.PingContext}
	if cfg.Ledger.CacheEnabled {
		redisClient, err := cache.NewRedis(context.Background(), cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, ledger cache disabled", zap.Error(err))
		} else {
			cacheRepo := repository.NewCacheRepository(redisClient, cfg.Redis.Prefix, logr)
			defer cacheRepo.Close() //nolint:errcheck
			cacheSvc = service.NewCacheService(cacheRepo, metricsSvc, cfg.Ledger.CacheTTL, logr, true)
			checks["redis"] = cacheRepo.Ping
		}
	}

	references, err := reference.NewGenerator(cfg.Ledger.NodeID, reference.DefaultPrefix)
	if err != nil {
		logr.Sugar().Fatalw("reference generator init failed", "error", err)
	}

	var publisher events.Publisher = events.NopPublisher{}
	if len(cfg.Events.Brokers) > 0 {
		publisher = kafka.NewPublisher(cfg.Events.Brokers)
	}
	eventSvc := service.NewEventService(publisher, service.EventTopics{
		Payment:  cfg.Events.PaymentTopic,
		Approval: cfg.Events.ApprovalTopic,
	}, jobs.QueueConfig{
		Workers:       cfg.Events.Workers,
		BufferSize:    cfg.Events.Buffer,
		MaxRetries:    cfg.Events.Retries,
		RetryDelay:    cfg.Events.RetryDelay,
		MaxRetryDelay: cfg.Events.MaxRetryDelay,
	}, metricsSvc, logr)
	eventCtx, stopEvents := context.WithCancel(context.Background())
	eventSvc.Start(eventCtx)

	studentRepo := repository.NewStudentRepository(db)
	teacherRepo := repository.NewTeacherRepository(db)
	termRepo := repository.NewTermRepository(db)
	subjectRepo := repository.NewSubjectRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	financialRepo := repository.NewFinancialRecordRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	identifierSvc := service.NewIdentifierService(repository.NewSequenceRepository(db), studentRepo, teacherRepo, cfg.School.CampusCode, metricsSvc, logr)
	termSvc := service.NewTermService(termRepo, validate, logr)
	studentSvc := service.NewStudentService(studentRepo, identifierSvc, cfg.School.EmailDomain, validate, logr)
	teacherSvc := service.NewTeacherService(teacherRepo, identifierSvc, validate, logr)
	enrollmentSvc := service.NewEnrollmentService(enrollmentRepo, studentRepo, subjectRepo, termSvc, service.EnrollmentServiceConfig{
		Policy:     ledger.DefaultGradingPolicy().WithPassingMark(cfg.School.PassingMark),
		References: references,
		Events:     eventSvc,
		Cache:      cacheSvc,
		Metrics:    metricsSvc,
		Validator:  validate,
		Logger:     logr,
	})
	financialSvc := service.NewFinancialService(financialRepo, studentRepo, termSvc, service.FinancialServiceConfig{
		References: references,
		Events:     eventSvc,
		Cache:      cacheSvc,
		CacheTTL:   cfg.Ledger.CacheTTL,
		Metrics:    metricsSvc,
		Validator:  validate,
		Logger:     logr,
	})
	receiptSvc := service.NewReceiptService(cfg.School.Name, logr)
	tokenSvc := service.NewTokenService(service.TokenConfig{
		Secret:   cfg.JWT.Secret,
		Issuer:   cfg.JWT.Issuer,
		Audience: cfg.JWT.Audience,
	})

	studentHandler := handler.NewStudentHandler(studentSvc)
	teacherHandler := handler.NewTeacherHandler(teacherSvc)
	termHandler := handler.NewTermHandler(termSvc)
	enrollmentHandler := handler.NewEnrollmentHandler(enrollmentSvc, receiptSvc)
	financialHandler := handler.NewFinancialHandler(financialSvc, receiptSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc, checks)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr, "/health", "/ready", "/metrics"))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	staff := []models.UserRole{models.RoleSuperAdmin, models.RoleAdmin, models.RoleRegistrar}
	cashiers := append([]models.UserRole{models.RoleCashier}, staff...)
	readers := append([]models.UserRole{models.RoleTeacher}, cashiers...)

	audit := func(action, resource string) gin.HandlerFunc {
		return middleware.Audit(auditRepo, logr, action, resource)
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.WithResponseMeta())
	secured := api.Group("")
	secured.Use(middleware.JWT(tokenSvc))

	secured.GET("/metrics/snapshot", middleware.RequireRoles(models.RoleSuperAdmin, models.RoleAdmin), metricsHandler.Snapshot)

	terms := secured.Group("/terms")
	terms.GET("", termHandler.List)
	terms.GET("/current", termHandler.Current)
	terms.GET("/:id", termHandler.Get)
	terms.POST("", middleware.RequireRoles(staff...), termHandler.Create)

	students := secured.Group("/students")
	students.GET("", middleware.RequireRoles(readers...), studentHandler.List)
	students.POST("", middleware.RequireRoles(staff...), audit(models.AuditActionStudentRegister, "student"), studentHandler.Register)
	students.GET("/:id", middleware.RequireRolesOrSelf("id", readers...), studentHandler.Get)
	students.GET("/:id/gpa", middleware.RequireRolesOrSelf("id", readers...), enrollmentHandler.GPA)
	students.GET("/:id/financial-records", middleware.RequireRolesOrSelf("id", cashiers...), financialHandler.ListByStudent)
	students.GET("/:id/financial-summary", middleware.RequireRolesOrSelf("id", cashiers...), financialHandler.Summary)

	teachers := secured.Group("/teachers")
	teachers.POST("", middleware.RequireRoles(staff...), audit(models.AuditActionTeacherRegister, "teacher"), teacherHandler.Register)
	teachers.GET("/:id", middleware.RequireRoles(readers...), teacherHandler.Get)

	enrollments := secured.Group("/enrollments")
	enrollments.GET("", middleware.RequireRoles(readers...), enrollmentHandler.List)
	enrollments.POST("", middleware.RequireRoles(append(staff, models.RoleStudent)...), audit(models.AuditActionEnrollmentSubmit, "enrollment"), enrollmentHandler.Submit)
	enrollments.GET("/:id", middleware.RequireRoles(readers...), enrollmentHandler.Get)
	enrollments.POST("/:id/approve", middleware.RequireRoles(staff...), audit(models.AuditActionEnrollmentApprove, "enrollment"), enrollmentHandler.Approve)
	enrollments.POST("/:id/reject", middleware.RequireRoles(staff...), audit(models.AuditActionEnrollmentReject, "enrollment"), enrollmentHandler.Reject)
	enrollments.PATCH("/:id/subjects/:subjectId/status", middleware.RequireRoles(staff...), enrollmentHandler.UpdateSubjectStatus)
	enrollments.PUT("/:id/subjects/:subjectId/grades", middleware.RequireRoles(append(staff, models.RoleTeacher)...), enrollmentHandler.UpdateGrades)
	enrollments.PUT("/:id/fees", middleware.RequireRoles(staff...), audit(models.AuditActionFeesUpdate, "enrollment"), enrollmentHandler.UpdateFees)
	enrollments.POST("/:id/payments", middleware.RequireRoles(cashiers...), audit(models.AuditActionPaymentRecord, "enrollment"), enrollmentHandler.RecordPayment)
	enrollments.GET("/:id/payments/:index/receipt", middleware.RequireRoles(cashiers...), enrollmentHandler.Receipt)

	financial := secured.Group("/financial-records")
	financial.POST("", middleware.RequireRoles(staff...), audit(models.AuditActionFeesUpdate, "financial_record"), financialHandler.Create)
	financial.GET("/:id", middleware.RequireRoles(cashiers...), financialHandler.Get)
	financial.PUT("/:id/fees", middleware.RequireRoles(staff...), audit(models.AuditActionFeesUpdate, "financial_record"), financialHandler.UpdateFees)
	financial.PUT("/:id/discounts", middleware.RequireRoles(staff...), audit(models.AuditActionFeesUpdate, "financial_record"), financialHandler.SetDiscounts)
	financial.PUT("/:id/scholarship", middleware.RequireRoles(staff...), audit(models.AuditActionFeesUpdate, "financial_record"), financialHandler.SetScholarship)
	financial.POST("/:id/payments", middleware.RequireRoles(cashiers...), audit(models.AuditActionPaymentRecord, "financial_record"), financialHandler.RecordPayment)
	financial.GET("/:id/payments/:index/receipt", middleware.RequireRoles(cashiers...), financialHandler.Receipt)
	financial.GET("/:id/statement.csv", middleware.RequireRoles(cashiers...), financialHandler.Statement)
	financial.POST("/:id/refresh-status", middleware.RequireRoles(cashiers...), financialHandler.RefreshStatus)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logr.Error("server shutdown failed", zap.Error(err))
	}
	stopEvents()
	eventSvc.Stop()
	logr.Info("server stopped")
}
