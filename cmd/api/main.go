package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tripsync/internal/config"
	"tripsync/internal/database"
	"tripsync/internal/logger"
	"tripsync/internal/realtime"
	"tripsync/internal/server"
	"tripsync/internal/validator"
)

// @title           TripSync API
// @version         1.0
// @description     TripSync is a collaborative trip planner: shared itineraries, budgets, expense splitting and group decisions.

// @host      localhost:8080
// @BasePath  /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	logger.Init(os.Getenv("ENV"))
	defer logger.Sync()

	if err := run(); err != nil {
		logger.Get().Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	log := logger.Get()

	appConfig, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	dbManager, err := database.NewManager(database.NewConfig(appConfig))
	if err != nil {
		return fmt.Errorf("failed to create database manager: %w", err)
	}
	defer func() {
		if err := dbManager.Close(); err != nil {
			log.Warnf("database close error: %v", err)
		}
	}()

	if appConfig.DBAutoMigrate {
		err = dbManager.AutoMigrate()
	} else {
		err = dbManager.RunMigrations("migrations")
	}
	if err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	validator.Register()

	hub := realtime.NewHub()
	defer func() {
		if err := hub.Close(); err != nil {
			log.Warnf("realtime hub close error: %v", err)
		}
	}()

	svc := server.NewServices(dbManager.DB(), hub)
	router := server.NewFromConfig(appConfig, svc, hub, dbManager.Ping)

	srv := &http.Server{
		Addr:              ":" + appConfig.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Infof("Starting TripSync server on port %s", appConfig.Port)
		log.Infof("Swagger documentation available at http://localhost:%s/swagger/index.html", appConfig.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
