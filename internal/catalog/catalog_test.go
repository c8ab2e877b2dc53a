package catalog

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUrgencyTable(t *testing.T) {
	levels := UrgencyLevels()
	require.Len(t, levels, 3)

	high, ok := LookupUrgency(UrgencyHigh)
	require.True(t, ok)
	assert.Equal(t, "24-48 hours", high.Turnaround)
	assert.Equal(t, "High Priority", high.Label)

	_, ok = LookupUrgency("critical")
	assert.False(t, ok)
	assert.True(t, IsUrgency(DefaultUrgency))
}

func TestPhoneModelLabel(t *testing.T) {
	assert.Equal(t, "iPhone 15", PhoneModelLabel("iphone-15"))
	assert.Equal(t, "nokia-3310", PhoneModelLabel("nokia-3310"))

	models := PhoneModels()
	assert.Equal(t, PhoneModelOther, models[len(models)-1].Value)
}

func TestTablesAreCopies(t *testing.T) {
	levels := UrgencyLevels()
	levels[0].Label = "changed"
	again := UrgencyLevels()
	assert.Equal(t, "Low Priority", again[0].Label)
}

func TestHandlers(t *testing.T) {
	h := &Handlers{}

	rec := httptest.NewRecorder()
	h.HandleUrgencyLevels(rec, httptest.NewRequest(http.MethodGet, "/api/urgency-levels", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var levels []UrgencyLevel
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&levels))
	assert.Len(t, levels, 3)

	rec = httptest.NewRecorder()
	h.HandlePhoneModels(rec, httptest.NewRequest(http.MethodGet, "/api/phone-models", nil))
	var models []PhoneModel
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&models))
	assert.Len(t, models, 21)
}
