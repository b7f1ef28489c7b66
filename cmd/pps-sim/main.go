package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shravan4518/ppsrest/pkg/appliance"
	"github.com/shravan4518/ppsrest/pkg/auth"
	"github.com/shravan4518/ppsrest/pkg/config"
	"github.com/shravan4518/ppsrest/pkg/database"
	"github.com/shravan4518/ppsrest/pkg/database/repositories"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := database.NewConnectionWithRetry(ctx, cfg, database.RetryConfigFromConfig(cfg))
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(); err != nil {
		db.Close()
		log.Fatalf("Failed to migrate database: %v", err)
	}
	defer db.Close()

	if err := db.BootstrapInitialAdmin(cfg); err != nil {
		log.Fatalf("Failed to bootstrap initial admin: %v", err)
	}

	adminRepo := repositories.NewAdminUserRepository(db.DB)
	deviceRepo := repositories.NewDeviceRepository(db.DB)
	profilerRepo := repositories.NewProfilerConfigRepository(db.DB)

	tokenManager := auth.NewTokenManager(cfg.Auth.TokenSecret, cfg.Auth.TokenExpiry)
	authSvc := auth.NewService(adminRepo, tokenManager, cfg.Auth.Realms)

	server := appliance.NewServer(cfg, db, authSvc, tokenManager, deviceRepo, profilerRepo)

	go func() {
		if err := server.Start(); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Stop(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}
