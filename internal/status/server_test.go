package status

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"showdown-bot/internal/session"
)

type fixedReporter session.Snapshot

func (f fixedReporter) Snapshot() session.Snapshot { return session.Snapshot(f) }

func newTestHandler() http.Handler {
	return New(fixedReporter{
		ID:        "0b6c9c9e-1b7a-4c1e-9d61-2f1f7a9d8c10",
		State:     "in-battle",
		Cycles:    42,
		Dropped:   3,
		StartedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}, zerolog.Nop()).Handler()
}

func TestServer_Health(t *testing.T) {
	req := httptest.NewRequest("GET", "/healthz", nil)
	w := httptest.NewRecorder()
	newTestHandler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestServer_Session(t *testing.T) {
	req := httptest.NewRequest("GET", "/session", nil)
	w := httptest.NewRecorder()
	newTestHandler().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var snap session.Snapshot
	require.NoError(t, json.NewDecoder(w.Body).Decode(&snap))
	assert.Equal(t, "in-battle", snap.State)
	assert.Equal(t, int64(42), snap.Cycles)
	assert.Equal(t, int64(3), snap.Dropped)
	assert.Equal(t, 2026, snap.StartedAt.Year())
}

func TestServer_MethodNotAllowed(t *testing.T) {
	req := httptest.NewRequest("POST", "/session", nil)
	w := httptest.NewRecorder()
	newTestHandler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestServer_UnknownRoute(t *testing.T) {
	req := httptest.NewRequest("GET", "/sessions", nil)
	w := httptest.NewRecorder()
	newTestHandler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
