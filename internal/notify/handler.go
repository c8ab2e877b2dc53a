package notify

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Handler serves POST /send-confirmation-email.
type Handler struct {
	Service *Service
	Logger  *zap.Logger
	now     func() time.Time
}

func NewHandler(s *Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{Service: s, Logger: logger.Named("notify.http"), now: time.Now}
}

func setCORS(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "authorization, x-client-info, apikey, content-type")
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	setCORS(w)
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if !strings.Contains(r.Header.Get("Content-Type"), "application/json") {
		h.writeJSON(w, http.StatusUnsupportedMediaType, map[string]any{"error": "Content-Type must be application/json"})
		return
	}

	// 非 JSON 请求体与错误的 Content-Type 一样按 415 处理
	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSON(w, http.StatusUnsupportedMediaType, map[string]any{"error": "Request body must be valid JSON"})
		return
	}

	resp, err := h.Service.Send(r.Context(), req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var missing *MissingFieldsError
	var provider *ProviderError
	ts := h.now().UTC().Format(time.RFC3339Nano)

	switch {
	case errors.As(err, &missing):
		h.Logger.Warn("missing required fields", zap.Strings("fields", missing.Fields))
		h.writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":   "Missing required fields: email, name, phoneModel, urgency, requestId",
			"missing": missing.Fields,
		})
	case errors.As(err, &provider):
		h.Logger.Error("email provider rejected send", zap.Int("status", provider.Status), zap.ByteString("payload", provider.Payload))
		h.writeJSON(w, http.StatusBadGateway, map[string]any{
			"success":   false,
			"error":     provider.Payload,
			"note":      "Email service temporarily unavailable",
			"timestamp": ts,
		})
	default:
		h.Logger.Error("send confirmation email failed", zap.Error(err))
		h.writeJSON(w, http.StatusInternalServerError, map[string]any{
			"success":   false,
			"error":     err.Error(),
			"note":      "Unexpected error occurred",
			"timestamp": ts,
		})
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.Logger.Warn("encode response failed", zap.Error(err))
	}
}
