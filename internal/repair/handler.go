package repair

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

const (
	DefaultListLimit = 50
	maxListLimit     = 500
)

// Handlers serves the read-only admin API.
type Handlers struct {
	Store      Store
	AdminToken string
	Logger     *zap.Logger
}

func NewHandlers(store Store, adminToken string, logger *zap.Logger) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{Store: store, AdminToken: adminToken, Logger: logger.Named("admin")}
}

// AuthMiddleware checks for the correct admin token
func (h *Handlers) AuthMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if h.AdminToken != "" {
			authHeader := r.Header.Get("Authorization")
			if !strings.HasPrefix(authHeader, "Bearer ") {
				http.Error(w, "Unauthorized: Missing or invalid token", http.StatusUnauthorized)
				return
			}
			if strings.TrimPrefix(authHeader, "Bearer ") != h.AdminToken {
				http.Error(w, "Unauthorized: Invalid token", http.StatusUnauthorized)
				return
			}
		}
		next(w, r)
	}
}

// HandleList handles GET /api/admin/repair-requests
func (h *Handlers) HandleList(w http.ResponseWriter, r *http.Request) {
	limit := DefaultListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			http.Error(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		limit = min(n, maxListLimit)
	}

	requests, err := h.Store.List(r.Context(), limit)
	if err != nil {
		h.Logger.Error("list repair requests failed", zap.Error(err))
		http.Error(w, "Failed to list repair requests", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(requests); err != nil {
		h.Logger.Warn("encode response failed", zap.Error(err))
	}
}

// HandleGet handles GET /api/admin/repair-requests/{id}
func (h *Handlers) HandleGet(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return
	}

	req, err := h.Store.Get(r.Context(), id)
	if errors.Is(err, ErrNotFound) {
		http.Error(w, "Repair request not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.Logger.Error("get repair request failed", zap.String("id", id), zap.Error(err))
		http.Error(w, "Failed to get repair request", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(req); err != nil {
		h.Logger.Warn("encode response failed", zap.Error(err))
	}
}
