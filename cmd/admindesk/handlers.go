package main

import (
	"encoding/json"
	"net/http"

	"crypto-desk-go/internal/desk"
	"go.uber.org/zap"
)

// APIHandler serves the admin view's cached snapshot.
type APIHandler struct {
	log  *zap.Logger
	view *desk.AdminView
}

// NewAPIHandler creates a new APIHandler.
func NewAPIHandler(log *zap.Logger, view *desk.AdminView) *APIHandler {
	return &APIHandler{log: log, view: view}
}

// UsersHandler returns the last-polled user list with balances.
func (h *APIHandler) UsersHandler(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, h.view.Snapshot().Users)
}

// PromotionsHandler returns the last-polled promotions.
func (h *APIHandler) PromotionsHandler(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, h.view.Snapshot().Promotions)
}

// LotteriesHandler returns the last-polled lotteries, winners included.
func (h *APIHandler) LotteriesHandler(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, h.view.Snapshot().Lotteries)
}

// RequestsHandler returns the pending purchase requests.
func (h *APIHandler) RequestsHandler(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, h.view.Snapshot().Requests)
}

func (h *APIHandler) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Error("Failed to write response", zap.Error(err))
	}
}
