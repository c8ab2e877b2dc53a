package catalog

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"
)

// Handlers serves the static reference tables used to populate the form.
type Handlers struct {
	Logger *zap.Logger
}

// HandlePhoneModels handles GET /api/phone-models
func (h *Handlers) HandlePhoneModels(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, PhoneModels())
}

// HandleUrgencyLevels handles GET /api/urgency-levels
func (h *Handlers) HandleUrgencyLevels(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, UrgencyLevels())
}

func (h *Handlers) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	if err := json.NewEncoder(w).Encode(v); err != nil && h.Logger != nil {
		h.Logger.Warn("encode catalog response", zap.Error(err))
	}
}
