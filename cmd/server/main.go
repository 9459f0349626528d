package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"chinook-go-api/internal/config"
	"chinook-go-api/internal/db"
	"chinook-go-api/internal/httpapi"
	"chinook-go-api/internal/logging"
	"chinook-go-api/internal/service"
)

func main() {
	// -- Configs preload --
	cfg, err := config.Load(".env", ".env.local")
	if err != nil {
		logrus.Fatalf("config error: %v", err)
	}

	// -- Logger --
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		logrus.Fatalf("logger error: %v", err)
	}

	// -- Connect to DB --
	database, err := db.Connect(cfg, logger)
	if err != nil {
		logger.Fatalf("database connection error: %v", err)
	}
	if cfg.AutoMigrate {
		if err := db.Migrate(database); err != nil {
			logger.Fatalf("migration error: %v", err)
		}
		logger.Info("schema migrated")
	}

	employeeService := service.NewEmployeeService(database, logger)
	handler := httpapi.NewHandler(employeeService, logger)

	// -- Router --
	router := httpapi.NewRouter(handler, logger, cfg.MetricsEnabled)

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	// -- Startup --
	go func() {
		logger.WithField("port", cfg.Port).Info("starting server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("server failed: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	// -- Shutdown --
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Errorf("graceful shutdown failed: %v", err)
	}

	if sqlDB, err := database.DB(); err == nil {
		_ = sqlDB.Close()
	}
	logger.Info("server stopped")
}
