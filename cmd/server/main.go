package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/carebook/carebook/internal/config"
	v1 "github.com/carebook/carebook/internal/handler/v1"
	"github.com/carebook/carebook/internal/repository/postgres"
	"github.com/carebook/carebook/internal/service"
	"github.com/carebook/carebook/pkg/auth"
	"github.com/carebook/carebook/pkg/database"
	"github.com/carebook/carebook/pkg/logger"
	"github.com/carebook/carebook/pkg/metrics"
	"github.com/carebook/carebook/pkg/tracer"
)

func main() {
	// .env is optional; real deployments configure through the environment.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic("configuration error: " + err.Error())
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		panic("logger error: " + err.Error())
	}
	defer func() { _ = log.Sync() }()

	log.Info("starting carebook",
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	tp, err := tracer.Init(cfg.Tracing)
	if err != nil {
		log.Fatal("failed to initialize tracing", zap.Error(err))
	}
	defer func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			log.Warn("tracer shutdown failed", zap.Error(err))
		}
	}()

	db, err := database.Connect(cfg.Database)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}

	if err := database.Migrate(db, log); err != nil {
		log.Fatal("failed to run migrations", zap.Error(err))
	}

	collector := metrics.NewCollector("carebook")
	if sqlDB, err := db.DB(); err == nil {
		go func() {
			for range time.Tick(15 * time.Second) {
				collector.DBConnections.Set(float64(sqlDB.Stats().OpenConnections))
			}
		}()
	}

	jwtManager := auth.NewJWTManager(cfg.JWT)

	appointmentRepo := postgres.NewAppointmentRepository(db)
	doctorRepo := postgres.NewDoctorRepository(db)
	userRepo := postgres.NewUserRepository(db)
	auditRepo := postgres.NewAuditRepository(db)

	auditSvc := service.NewAuditService(auditRepo, log)
	defer auditSvc.Shutdown()

	geocoder := service.NoopGeocoder{}

	authSvc := service.NewAuthService(userRepo, jwtManager, geocoder, log)
	doctorSvc := service.NewDoctorService(doctorRepo, geocoder, jwtManager, auditSvc, log)
	appointmentSvc := service.NewAppointmentService(
		appointmentRepo, doctorRepo, userRepo, auditSvc, log,
		cfg.Booking.RequireDirectionsLink,
	)

	if cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.CORS.AllowedOrigins
	corsConfig.AllowMethods = cfg.CORS.AllowedMethods
	corsConfig.AllowHeaders = cfg.CORS.AllowedHeaders
	corsConfig.MaxAge = cfg.CORS.MaxAge
	corsConfig.AllowCredentials = true
	router.Use(cors.New(corsConfig))

	v1.SetupRoutes(router, v1.Handlers{
		Auth:        v1.NewAuthHandler(authSvc),
		Doctor:      v1.NewDoctorHandler(doctorSvc, collector),
		Appointment: v1.NewAppointmentHandler(appointmentSvc, collector),
	}, jwtManager, collector)

	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("http server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("http server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown failed", zap.Error(err))
	}
}
