package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"field-attendance-api-server/config"
	"field-attendance-api-server/internal/api/routes"
	"field-attendance-api-server/internal/attendance"
	"field-attendance-api-server/internal/auth"
	"field-attendance-api-server/internal/database"
	"field-attendance-api-server/internal/geofence"
	"field-attendance-api-server/internal/logger"
	"field-attendance-api-server/internal/metrics"
	"field-attendance-api-server/internal/s3"
	"field-attendance-api-server/internal/socket"
	"field-attendance-api-server/internal/store"
	"field-attendance-api-server/internal/taskguard"
	"field-attendance-api-server/internal/zone"

	"github.com/gin-gonic/gin"
)

func main() {
	// 1. Load configuration
	cfg, err := config.LoadConfig("./config")
	if err != nil {
		log.Fatalf("Could not load config: %v", err)
	}
	lg := logger.New(cfg.Log)
	if strings.ToLower(cfg.Log.Level) != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Persistence
	st, err := openStore(ctx, cfg, lg)
	if err != nil {
		lg.Error("failed to open store", "driver", cfg.Store.Driver, "error", err)
		os.Exit(1)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := st.Close(closeCtx); err != nil {
			lg.Warn("store close failed", "error", err)
		}
	}()

	if err := database.SeedAdmin(ctx, st, cfg.Admin, lg); err != nil {
		lg.Error("failed to seed admin", "error", err)
		os.Exit(1)
	}

	// 3. Core services
	m := metrics.New()
	hub := socket.NewHub(lg)
	zones := zone.NewService(st, zone.Config{CacheMaxAge: cfg.Geofence.CacheMaxAge}, time.Now, m, lg)
	validator := geofence.NewValidator(zones, m, lg)

	opts := []attendance.Option{
		attendance.WithNotifier(hub),
		attendance.WithMetrics(m),
		attendance.WithLogger(lg),
	}
	if cfg.S3.Bucket != "" {
		uploader, err := s3.NewUploader(ctx, cfg.S3)
		if err != nil {
			lg.Error("failed to create S3 uploader", "error", err)
			os.Exit(1)
		}
		opts = append(opts, attendance.WithPhotoStore(uploader))
	} else {
		lg.Warn("s3.bucket not set, check-in photos will be dropped")
	}
	attendanceSvc := attendance.NewService(st, validator, attendance.Config{
		LocationTimeout:    cfg.Attendance.LocationTimeout,
		MaxFixAge:          cfg.Attendance.MaxFixAge,
		PhotoUploadTimeout: cfg.Attendance.PhotoUploadTimeout,
		UnconfiguredPolicy: attendance.UnconfiguredPolicy(cfg.Geofence.UnconfiguredPolicy),
	}, opts...)
	guard := taskguard.NewGuard(st, hub, m, lg, time.Now)

	// 4. HTTP
	router := routes.SetupRouter(routes.Dependencies{
		Config:     cfg,
		Tokens:     auth.NewManager(cfg.JWT.Secret, cfg.JWT.Expiration),
		Users:      st,
		Zones:      zones,
		Validator:  validator,
		Attendance: attendanceSvc,
		Guard:      guard,
		Hub:        hub,
		Metrics:    m,
		Log:        lg,
	})
	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		lg.Info("starting API server", "port", cfg.Server.Port, "store", cfg.Store.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			lg.Error("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	lg.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		lg.Warn("graceful shutdown failed", "error", err)
	}
	// Let in-flight photo uploads link their records before the store closes.
	attendanceSvc.Wait()
}

func openStore(ctx context.Context, cfg config.Config, lg *slog.Logger) (store.Store, error) {
	switch strings.ToLower(cfg.Store.Driver) {
	case "mongo":
		connectCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
		defer cancel()
		lg.Info("connecting to MongoDB", "db", cfg.Mongo.DBName)
		return store.NewMongoStore(connectCtx, cfg.Mongo.URI, cfg.Mongo.DBName)
	case "postgres":
		lg.Info("connecting to Postgres")
		return store.ConnectPostgres(cfg.Postgres.DSN, cfg.Postgres.RetryAttempts, cfg.Postgres.RetryDelay)
	case "memory":
		lg.Warn("using in-memory store, data is lost on restart")
		return store.NewMemoryStore(), nil
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
}
