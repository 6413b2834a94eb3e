package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/fitsync/academia-api/api/swagger"
	"github.com/fitsync/academia-api/internal/handler"
	"github.com/fitsync/academia-api/internal/middleware"
	"github.com/fitsync/academia-api/internal/repository"
	"github.com/fitsync/academia-api/internal/service"
	"github.com/fitsync/academia-api/pkg/cache"
	"github.com/fitsync/academia-api/pkg/config"
	"github.com/fitsync/academia-api/pkg/database"
	"github.com/fitsync/academia-api/pkg/email"
	"github.com/fitsync/academia-api/pkg/export"
	"github.com/fitsync/academia-api/pkg/logger"
	corsmiddleware "github.com/fitsync/academia-api/pkg/middleware/cors"
	reqidmiddleware "github.com/fitsync/academia-api/pkg/middleware/requestid"
)

// @title Academia API
// @version 1.0.0
// @description Class scheduling, QR check-in and attendance backend for gyms and academies
// @BasePath /api/v1
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, running without cache", "error", err)
		redisClient = nil
	}

	// Repositories.
	turmaRepo := repository.NewTurmaRepository(db)
	aulaRepo := repository.NewAulaRepository(db)
	presencaRepo := repository.NewPresencaRepository(db)
	matriculaRepo := repository.NewMatriculaRepository(db)
	academiaRepo := repository.NewAcademiaRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient)

	// Background notifications.
	var notifier *service.NotificationService
	if cfg.Notifications.Enabled {
		var sender email.Sender
		if cfg.Notifications.SendGridKey != "" {
			sender = email.NewSendGridSender(cfg.Notifications.SendGridKey, cfg.Notifications.AppName, cfg.Notifications.FromEmail)
		} else {
			sender = email.NewConsoleSender(logr)
		}
		notifier = service.NewNotificationService(sender, matriculaRepo, cfg.Notifications.Workers, cfg.Notifications.BufferSize, logr)
		notifier.Start(ctx)
		defer notifier.Stop()
	}

	// Services.
	metricsSvc := service.NewMetricsService()
	authSvc := service.NewAuthService(cfg.JWT, logr)
	turmaSvc := service.NewTurmaService(turmaRepo, nil, logr)
	aulaSvc := service.NewAulaService(aulaRepo, turmaRepo, academiaRepo, cacheRepo, cfg.Checkin.QRTokenTTL, cfg.Academia.DefaultTimezone, nil, logr)

	var checkinNotifier service.CheckinNotifier
	if notifier != nil {
		checkinNotifier = notifier
	}
	checkinSvc := service.NewCheckinService(aulaRepo, presencaRepo, matriculaRepo, academiaRepo, cacheRepo, checkinNotifier, cfg.Checkin.TodayCacheTTL, cfg.Academia.DefaultTimezone, nil, logr)

	var csvExporter, pdfExporter service.SheetExporter
	if cfg.Export.Enabled {
		csvExporter = export.NewCSVExporter()
		pdfExporter = export.NewPDFExporter()
	}
	presencaSvc := service.NewPresencaService(presencaRepo, aulaRepo, matriculaRepo, academiaRepo, csvExporter, pdfExporter, cfg.Academia.DefaultTimezone, nil, logr)

	// Handlers.
	turmaHandler := handler.NewTurmaHandler(turmaSvc)
	aulaHandler := handler.NewAulaHandler(aulaSvc, metricsSvc)
	checkinHandler := handler.NewCheckinHandler(checkinSvc, metricsSvc)
	presencaHandler := handler.NewPresencaHandler(presencaSvc, metricsSvc)
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
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "db unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.JWT(authSvc))

	turmas := api.Group("/turmas")
	{
		turmas.GET("", turmaHandler.List)
		turmas.GET("/:id", turmaHandler.Get)
		turmas.POST("", middleware.RequireStaff(), turmaHandler.Create)
		turmas.PATCH("/:id", middleware.RequireStaff(), turmaHandler.Update)
		turmas.DELETE("/:id", middleware.RequireStaff(), turmaHandler.Delete)
		turmas.POST("/:id/restore", middleware.RequireStaff(), turmaHandler.Restore)
	}

	aulas := api.Group("/aulas")
	{
		aulas.GET("", aulaHandler.List)
		aulas.GET("/hoje", aulaHandler.ListToday)
		aulas.GET("/:id", aulaHandler.Get)
		aulas.POST("", middleware.RequireStaff(), aulaHandler.Create)
		aulas.POST("/lote", middleware.RequireStaff(), aulaHandler.CreateBatch)
		aulas.PATCH("/:id", middleware.RequireStaff(), aulaHandler.Update)
		aulas.POST("/:id/qrcode", middleware.RequireStaff(), aulaHandler.IssueQRCode)
		aulas.POST("/:id/cancelar", middleware.RequireStaff(), aulaHandler.Cancel)
		aulas.POST("/:id/encerrar", middleware.RequireStaff(), aulaHandler.End)
		aulas.DELETE("/:id", middleware.RequireStaff(), aulaHandler.Delete)
		aulas.POST("/:id/restore", middleware.RequireStaff(), aulaHandler.Restore)
		aulas.GET("/:id/presencas", middleware.RequireStaff(), presencaHandler.ListByAula)
		aulas.GET("/:id/presencas/export", middleware.RequireStaff(), presencaHandler.ExportAula)
	}

	checkin := api.Group("/checkin")
	{
		checkin.GET("/disponiveis", checkinHandler.ListDisponiveis)
		checkin.POST("", checkinHandler.Create)
	}

	presencas := api.Group("/presencas")
	{
		presencas.GET("/pendentes", middleware.RequireStaff(), presencaHandler.ListPendentes)
		presencas.POST("/:id/decidir", middleware.RequireStaff(), presencaHandler.Decide)
		presencas.POST("/decidir-lote", middleware.RequireStaff(), presencaHandler.DecideBatch)
		presencas.PATCH("/:id/status", middleware.RequireStaff(), presencaHandler.UpdateStatus)
		presencas.GET("/alunos/:alunoId/historico", presencaHandler.Historico)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Warn("graceful shutdown failed", zap.Error(err))
	}
}
