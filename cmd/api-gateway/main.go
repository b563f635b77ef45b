package main

import (
	"context"
	"fmt"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/sma-adp-datatable/api/swagger"
	"github.com/noah-isme/sma-adp-datatable/internal/datatable/searchparams"
	"github.com/noah-isme/sma-adp-datatable/internal/handler"
	internalmiddleware "github.com/noah-isme/sma-adp-datatable/internal/middleware"
	"github.com/noah-isme/sma-adp-datatable/internal/models"
	"github.com/noah-isme/sma-adp-datatable/internal/repository"
	"github.com/noah-isme/sma-adp-datatable/internal/resources"
	"github.com/noah-isme/sma-adp-datatable/internal/service"
	"github.com/noah-isme/sma-adp-datatable/pkg/cache"
	"github.com/noah-isme/sma-adp-datatable/pkg/config"
	"github.com/noah-isme/sma-adp-datatable/pkg/database"
	"github.com/noah-isme/sma-adp-datatable/pkg/logger"
	corsmiddleware "github.com/noah-isme/sma-adp-datatable/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/sma-adp-datatable/pkg/middleware/requestid"
)

// @title SMA ADP Data Table API
// @version 1.0.0
// @description Filterable, sortable and paged table resources with saved views.
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

	ctx := context.Background()
	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()

	var cacheRepo *repository.CacheRepository
	if cfg.Redis.Enabled {
		client, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, caching disabled", zap.Error(err))
		} else {
			cacheRepo = repository.NewCacheRepository(client, logr)
			defer cacheRepo.Close() //nolint:errcheck
		}
	}

	validate := validator.New()
	metricsSvc := service.NewMetricsService()
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Table.CacheTTL, logr, cacheRepo != nil)
	tokenSvc := service.NewTokenService(service.TokenConfig{Secret: cfg.JWT.Secret, Issuer: cfg.JWT.Issuer, Expiry: cfg.JWT.Expiry}, logr)
	codec := searchparams.NewCodec(
		searchparams.WithValidator(validate),
		searchparams.WithPerPage(cfg.Table.DefaultPerPage, cfg.Table.MaxPerPage),
	)
	tableCfg := service.TableServiceConfig{
		Codec:     codec,
		Validator: validate,
		Cache:     cacheSvc,
		Metrics:   metricsSvc,
		Logger:    logr,
		CacheTTL:  cfg.Table.CacheTTL,
	}

	studentSvc := service.NewTableService[models.Student](resources.Students, repository.NewStudentRepository(db), resources.Defs(resources.Students), tableCfg)
	teacherSvc := service.NewTableService[models.Teacher](resources.Teachers, repository.NewTeacherRepository(db), resources.Defs(resources.Teachers), tableCfg)
	viewSvc := service.NewViewService(repository.NewViewRepository(db), resources.Defs, validate, cacheSvc, metricsSvc, logr, cfg.Views.CacheTTL)

	metricsHandler := handler.NewMetricsHandler(metricsSvc, db, cacheSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.GET("/metrics/summary", internalmiddleware.JWT(tokenSvc), internalmiddleware.RequireRoles(internalmiddleware.ViewEditors...), metricsHandler.Summary)

	routes := handler.Routes{Tokens: tokenSvc, Views: handler.NewViewHandler(viewSvc), Logger: logr}
	handler.RegisterTable(api, resources.Students, handler.NewTableHandler[models.Student](studentSvc), routes)
	handler.RegisterTable(api, resources.Teachers, handler.NewTableHandler[models.Teacher](teacherSvc), routes)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env, "cache", cacheSvc.Enabled())
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
