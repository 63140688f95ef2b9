package desk

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// StatusServer exposes the desk's cached state over local HTTP.
type StatusServer struct {
	server *http.Server
	view   *TradingView
	logger *zap.Logger
}

// NewStatusServer creates a StatusServer for the given trading view.
func NewStatusServer(view *TradingView, port int, logger *zap.Logger) *StatusServer {
	s := &StatusServer{
		view:   view,
		logger: logger.Named("status-server"),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/status", s.statusHandler)
	mux.HandleFunc("/health", s.healthHandler)
	mux.HandleFunc("/api/snapshot", s.snapshotHandler)
	mux.HandleFunc("/api/journal", s.journalHandler)

	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}
	return s
}

// Start runs the HTTP server in a new goroutine.
func (s *StatusServer) Start() {
	s.logger.Info("Starting status server", zap.String("address", s.server.Addr))
	go func() {
		if err := s.server.ListenAndServe(); err != http.ErrServerClosed {
			s.logger.Error("Status server failed", zap.Error(err))
		}
	}()
}

// Stop gracefully shuts down the server.
func (s *StatusServer) Stop(ctx context.Context) error {
	s.logger.Info("Stopping status server...")
	return s.server.Shutdown(ctx)
}

func (s *StatusServer) statusHandler(w http.ResponseWriter, r *http.Request) {
	snapshot := s.view.Snapshot()
	status := struct {
		UUID      string `json:"uuid"`
		Username  string `json:"username"`
		StartTime string `json:"start_time"`
		Uptime    string `json:"uptime"`
		LastSync  string `json:"last_sync"`
	}{
		UUID:      s.view.UUID,
		Username:  s.view.User().Username,
		StartTime: s.view.StartTime.Format(time.RFC3339),
		Uptime:    time.Since(s.view.StartTime).String(),
		LastSync:  snapshot.LastSync.Format(time.RFC3339),
	}

	s.writeJSON(w, status)
}

func (s *StatusServer) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "OK")
}

func (s *StatusServer) snapshotHandler(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, s.view.Snapshot())
}

func (s *StatusServer) journalHandler(w http.ResponseWriter, r *http.Request) {
	records, err := s.view.Journal()
	if err != nil {
		s.logger.Error("Failed to read trade journal", zap.Error(err))
		http.Error(w, "Failed to read trade journal", http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, records)
}

func (s *StatusServer) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Failed to write response", zap.Error(err))
	}
}
