package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"contactdesk/config"
	"contactdesk/db"
	"contactdesk/pkg/logger"
	"contactdesk/pkg/metrics"
	"contactdesk/server"
	"contactdesk/services/token"
	"contactdesk/utils"

	"github.com/joho/godotenv"
)

// Credentials of the account seeded on first run. Change the password
// after the first login.
const (
	seedAdminUsername = "admin"
	seedAdminPassword = "admin123"
)

const version = "1.0.0"

func main() {
	if err := run(); err != nil {
		log.Fatalf("Application failed: %v", err)
	}
}

func run() error {
	// Load environment
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Warning: .env file not found: %v", err)
	}

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	log.Println("✓ Configuration loaded and validated")
	cfg.PrintSummary()

	// Application logger with rotation
	appLogger := logger.New(cfg.Server.LogFile)
	defer appLogger.Close()
	logger.SetDefault(appLogger)

	// Open the database; migrations run here
	store, err := db.Open(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer store.Close()
	log.Println("✓ Database opened and migrated")

	if err := seedAdmin(store); err != nil {
		return fmt.Errorf("failed to seed admin account: %w", err)
	}

	if cfg.Token.Secret == "" {
		appLogger.Warn("TOKEN_SECRET is not set; using the insecure built-in default")
	}
	tokens := token.NewManager(cfg.Token.Secret, cfg.Token.TTL)

	metrics.SystemInfo.WithLabelValues(version, runtime.Version(), time.Now().Format(time.RFC3339)).Set(1)

	// Create server
	srv, err := server.NewServer(cfg, store, tokens, appLogger)
	if err != nil {
		return fmt.Errorf("failed to create server; err: %w", err)
	}

	// Start server in goroutine
	errChan := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil {
			errChan <- err
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	case sig := <-quit:
		log.Printf("Received signal: %v. Shutting down gracefully...", sig)
	}

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Println("✓ Server shutdown complete")
	return nil
}

// seedAdmin creates the initial admin account when no account with the
// seed username exists yet.
func seedAdmin(store *db.Store) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := store.GetUserByUsername(ctx, seedAdminUsername)
	if err == nil {
		return nil
	}
	if !errors.Is(err, db.ErrNotFound) {
		return err
	}

	hash, appErr := utils.HashPassword(seedAdminPassword)
	if appErr != nil {
		return appErr
	}

	if _, err := store.CreateUser(ctx, seedAdminUsername, hash, db.RoleAdmin); err != nil {
		// Lost a race with a concurrent boot; the account exists.
		if errors.Is(err, db.ErrUsernameTaken) {
			return nil
		}
		return err
	}

	log.Printf("✓ Seeded initial admin account %q", seedAdminUsername)
	return nil
}
