package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/academix-api/api/swagger"
	"github.com/noah-isme/academix-api/internal/handler"
	"github.com/noah-isme/academix-api/internal/middleware"
	"github.com/noah-isme/academix-api/internal/models"
	"github.com/noah-isme/academix-api/internal/repository"
	"github.com/noah-isme/academix-api/internal/service"
	"github.com/noah-isme/academix-api/pkg/cache"
	"github.com/noah-isme/academix-api/pkg/config"
	"github.com/noah-isme/academix-api/pkg/database"
	"github.com/noah-isme/academix-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/academix-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/academix-api/pkg/middleware/requestid"
)

// @title Academix API
// @version 1.0.0
// @description Result computation and approval engine for academic records
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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	metricsSvc := service.NewMetricsService()

	// Redis is an optimization layer only. When unreachable the API runs
	// with the result cache disabled.
	var cacheSvc *service.CacheService
	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, result cache disabled", zap.Error(err))
		cacheSvc = service.NewCacheService(nil, metricsSvc, cfg.Results.CacheTTL, logr, false)
	} else {
		cacheRepo := repository.NewCacheRepository(redisClient, logr)
		defer cacheRepo.Close()
		cacheSvc = service.NewCacheService(cacheRepo, metricsSvc, cfg.Results.CacheTTL, logr, cfg.Results.CacheEnabled)
	}

	userRepo := repository.NewUserRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	subjectRepo := repository.NewSubjectRepository(db)
	schemaRepo := repository.NewGradingSchemaRepository(db)
	markRepo := repository.NewMarkRepository(db)
	resultRepo := repository.NewResultRepository(db)

	authSvc := service.NewAuthService(userRepo, nil, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
	})
	subjectSvc := service.NewSubjectService(subjectRepo, nil, logr)
	schemaSvc := service.NewGradingSchemaService(schemaRepo, nil, logr)
	resultSvc := service.NewResultService(resultRepo, markRepo, schemaRepo, cacheSvc, metricsSvc, nil, logr)
	markSvc := service.NewMarkService(markRepo, subjectRepo, studentRepo, resultSvc, nil, logr)
	exportSvc := service.NewExportService(cfg.Exports.Enabled, cfg.Exports.SchoolName, resultSvc, markRepo, studentRepo, logr)

	authHandler := handler.NewAuthHandler(authSvc)
	subjectHandler := handler.NewSubjectHandler(subjectSvc)
	schemaHandler := handler.NewGradingSchemaHandler(schemaSvc)
	markHandler := handler.NewMarkHandler(markSvc)
	resultHandler := handler.NewResultHandler(resultSvc, exportSvc)
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
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": err.Error()})
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

	authed := api.Group("")
	authed.Use(middleware.JWT(authSvc))
	authed.GET("/auth/me", authHandler.Me)

	subjects := authed.Group("/subjects")
	subjects.GET("", subjectHandler.List)
	subjects.GET("/:id", subjectHandler.Get)
	subjects.POST("", middleware.RequireRoles(models.RoleAdmin), subjectHandler.Create)
	subjects.PUT("/:id", middleware.RequireRoles(models.RoleAdmin), subjectHandler.Update)
	subjects.DELETE("/:id", middleware.RequireRoles(models.RoleAdmin), subjectHandler.Delete)

	schemas := authed.Group("/grading-schemas")
	schemas.GET("", schemaHandler.List)
	schemas.GET("/active", schemaHandler.Active)
	schemas.GET("/:id", schemaHandler.Get)
	schemas.POST("", middleware.RequireRoles(models.RoleAdmin), schemaHandler.Create)
	schemas.PUT("/:id", middleware.RequireRoles(models.RoleAdmin), schemaHandler.Update)
	schemas.POST("/:id/activate",
		middleware.RequireRoles(models.RoleAdmin),
		middleware.Audit(userRepo, models.AuditActionSchemaActivate, "grading_schema"),
		schemaHandler.Activate)
	schemas.DELETE("/:id",
		middleware.RequireRoles(models.RoleAdmin),
		middleware.Audit(userRepo, models.AuditActionSchemaDelete, "grading_schema"),
		schemaHandler.Delete)

	markWriters := middleware.RequireRoles(models.RoleAdmin, models.RoleTeacher, models.RoleStaff)
	students := authed.Group("/students")
	students.POST("/:id/marks", markWriters, markHandler.Add)
	students.GET("/:id/marks", middleware.RBAC(string(models.RoleAdmin), string(models.RoleTeacher), string(models.RoleStaff), string(models.RolePrincipal), "SELF"), markHandler.ListByStudent)
	students.POST("/:id/results/:semester/calculate", markWriters, resultHandler.Calculate)
	students.GET("/:id/results/:semester", middleware.RBAC(string(models.RoleAdmin), string(models.RoleTeacher), string(models.RoleStaff), string(models.RolePrincipal), "SELF"), resultHandler.Get)
	students.GET("/:id/results", middleware.RBAC(string(models.RoleAdmin), string(models.RoleTeacher), string(models.RoleStaff), string(models.RolePrincipal), "SELF"), resultHandler.ListByStudent)
	students.GET("/:id/results/:semester/export", middleware.RBAC(string(models.RoleAdmin), string(models.RoleTeacher), string(models.RoleStaff), string(models.RolePrincipal), "SELF"), resultHandler.Export)

	authed.PUT("/marks/:id", markWriters, markHandler.Update)

	results := authed.Group("/results")
	results.PATCH("/:id/status",
		middleware.RequireRoles(models.RoleAdmin, models.RolePrincipal),
		middleware.Audit(userRepo, models.AuditActionResultStatus, "result"),
		resultHandler.SetStatus)
	results.GET("/summary/:semester", middleware.RequireRoles(models.RoleAdmin, models.RolePrincipal), resultHandler.Summary)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
