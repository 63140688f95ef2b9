package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"crypto-desk-go/internal/api"
	"crypto-desk-go/internal/config"
	"crypto-desk-go/internal/database"
	"crypto-desk-go/internal/desk"
	"crypto-desk-go/internal/logger"
	"crypto-desk-go/internal/session"
	"go.uber.org/zap"
)

func main() {
	// Load application configuration
	cfg, err := config.LoadConfig("./configs")
	if err != nil {
		// We can't use the logger here because it's not initialized yet.
		panic(fmt.Sprintf("could not load config: %v", err))
	}

	// Initialize logger
	log, err := logger.NewLogger(cfg.Logger.Level, cfg.Logger.Format)
	if err != nil {
		panic(err)
	}
	defer log.Sync()
	log.Info("Configuration loaded")

	// Open the local database (session + trade journal)
	db, err := database.NewDatabase(cfg.Database.DSN)
	if err != nil {
		log.Fatal("Failed to open local database", zap.Error(err))
	}

	// Initialize the exchange REST client
	client := api.NewRestClient(&cfg.API, cfg.Admin.Password, log)

	// Setup context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		sigchan := make(chan os.Signal, 1)
		signal.Notify(sigchan, syscall.SIGINT, syscall.SIGTERM)
		<-sigchan
		log.Info("Shutdown signal received, gracefully shutting down...")
		cancel()
	}()

	// Restore the persisted session, or log in with the configured name.
	sessions := session.NewManager(db, client, log)
	user, err := sessions.Current()
	if err != nil {
		log.Fatal("Failed to read session", zap.Error(err))
	}
	if user == nil {
		user, err = sessions.Login(ctx, cfg.Desk.Username)
		if err != nil {
			log.Fatal("Failed to log in", zap.Error(err))
		}
	}
	log.Info("Session active", zap.Int("user_id", user.ID), zap.String("username", user.Username))

	// Start the trading view and its status server
	interval := time.Duration(cfg.Desk.PollInterval) * time.Second
	view := desk.NewTradingView(log, client, db, *user, interval)
	view.Start(ctx)

	status := desk.NewStatusServer(view, cfg.Server.Port, log)
	status.Start()

	<-ctx.Done()
	view.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := status.Stop(shutdownCtx); err != nil {
		log.Error("Failed to stop status server", zap.Error(err))
	}

	log.Info("Desk has been shut down.")
}
