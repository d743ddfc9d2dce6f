package web

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"

	"gsi-service/services"
)

func newTestRegistry(t *testing.T) *services.SessionRegistry {
	t.Helper()
	store := services.NewMemoryStore()
	t.Cleanup(func() { store.Close() })
	return services.NewSessionRegistry(store, nil, 30*time.Minute)
}

func TestRemoveSessionHandler(t *testing.T) {
	registry := newTestRegistry(t)
	registry.Register("tok-remove")
	s := &Server{registry: registry}

	req := httptest.NewRequest("DELETE", "/api/sessions/tok-remove", nil)
	req = mux.SetURLVars(req, map[string]string{"token": "tok-remove"})
	rec := httptest.NewRecorder()

	s.handleRemoveSession(rec, req)

	if rec.Code != 200 {
		t.Errorf("Expected status 200, got %d", rec.Code)
	}
	if registry.Get("tok-remove") != nil {
		t.Error("Expected session to be gone after removal")
	}
}

func TestRemoveSessionHandlerUnknownToken(t *testing.T) {
	s := &Server{registry: newTestRegistry(t)}

	req := httptest.NewRequest("DELETE", "/api/sessions/ghost", nil)
	req = mux.SetURLVars(req, map[string]string{"token": "ghost"})
	rec := httptest.NewRecorder()

	s.handleRemoveSession(rec, req)

	if rec.Code != 404 {
		t.Errorf("Expected status 404 for unknown token, got %d", rec.Code)
	}
}

func TestSessionPredictionsWithoutPersistence(t *testing.T) {
	s := &Server{registry: newTestRegistry(t)}

	req := httptest.NewRequest("GET", "/api/sessions/tok-pred/predictions", nil)
	req = mux.SetURLVars(req, map[string]string{"token": "tok-pred"})
	rec := httptest.NewRecorder()

	s.handleSessionPredictions(rec, req)

	if rec.Code != 503 {
		t.Errorf("Expected status 503 without persistence, got %d", rec.Code)
	}
}
