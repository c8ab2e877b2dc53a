package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusTeapot)
	_, _ = w.Write([]byte("ok"))
})

func TestCORSPreflight(t *testing.T) {
	h := CORS(okHandler)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/api/repair-requests", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Empty(t, rec.Body.String())

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRateLimiterPerIP(t *testing.T) {
	rl := NewRateLimiter(1, 2)
	h := rl.Middleware(okHandler)

	do := func(addr string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusTeapot, do("10.0.0.1:1234"))
	assert.Equal(t, http.StatusTeapot, do("10.0.0.1:1235"))
	assert.Equal(t, http.StatusTooManyRequests, do("10.0.0.1:1236"))
	assert.Equal(t, http.StatusTeapot, do("10.0.0.2:1234"))
}

func TestRateLimiterPrune(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	now := time.Now()
	rl.now = func() time.Time { return now }
	rl.limiterFor("a")

	now = now.Add(5 * time.Minute)
	rl.limiterFor("b")
	rl.prune(3 * time.Minute)

	rl.mu.Lock()
	defer rl.mu.Unlock()
	assert.NotContains(t, rl.visitors, "a")
	assert.Contains(t, rl.visitors, "b")
}

type fakeRecorder struct {
	route  string
	status int
}

func (f *fakeRecorder) RecordRequest(ctx context.Context, method, route string, status int, d time.Duration) {
	f.route = route
	f.status = status
}

func TestAccessLog(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	rec := &fakeRecorder{}

	mux := http.NewServeMux()
	mux.Handle("GET /api/phone-models", okHandler)
	h := AccessLog(zap.New(core), rec)(mux)

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/phone-models", nil))

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "http request", entry.Message)
	assert.EqualValues(t, http.StatusTeapot, entry.ContextMap()["status"])
	assert.Equal(t, "GET /api/phone-models", rec.route)
	assert.Equal(t, http.StatusTeapot, rec.status)
}
