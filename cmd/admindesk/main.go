package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"crypto-desk-go/internal/api"
	"crypto-desk-go/internal/config"
	"crypto-desk-go/internal/desk"
	"crypto-desk-go/internal/logger"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig("./configs")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.NewLogger(cfg.Logger.Level, cfg.Logger.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Initialize the exchange REST client and the admin view
	client := api.NewRestClient(&cfg.API, cfg.Admin.Password, log)

	interval := time.Duration(cfg.Admin.PollInterval) * time.Second
	view := desk.NewAdminView(log, client, cfg.Admin.Password, interval)
	if err := view.Unlock(cfg.Admin.Password); err != nil {
		log.Fatal("Failed to unlock admin view", zap.Error(err))
	}

	// Setup context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		sigchan := make(chan os.Signal, 1)
		signal.Notify(sigchan, syscall.SIGINT, syscall.SIGTERM)
		<-sigchan
		log.Info("Shutdown signal received, gracefully shutting down...")
		cancel()
	}()

	if err := view.Start(ctx); err != nil {
		log.Fatal("Failed to start admin poll loop", zap.Error(err))
	}

	// Serve the cached admin snapshot over local HTTP
	mux := http.NewServeMux()
	apiHandler := NewAPIHandler(log, view)
	mux.HandleFunc("/api/users", apiHandler.UsersHandler)
	mux.HandleFunc("/api/promotions", apiHandler.PromotionsHandler)
	mux.HandleFunc("/api/lotteries", apiHandler.LotteriesHandler)
	mux.HandleFunc("/api/requests", apiHandler.RequestsHandler)

	addr := fmt.Sprintf(":%d", cfg.Admin.Port)
	server := &http.Server{Addr: addr, Handler: mux}

	log.Info("Starting admin console server", zap.String("address", addr))
	go func() {
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			log.Fatal("Admin console server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	view.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Failed to stop admin console server", zap.Error(err))
	}

	log.Info("Admin console has been shut down.")
}
