package web

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"sportcal/internal/config"
	"sportcal/internal/model"
	"sportcal/internal/store"
)

func testServer(t *testing.T, auth *config.BasicAuthConfig) *Server {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.CalendarPath = filepath.Join(t.TempDir(), "calendar.ics")
	cfg.BasicAuth = auth

	now := time.Date(2025, 8, 19, 12, 0, 0, 0, time.UTC)
	ev := model.Event{
		UID:      model.EventUID("Jogos de 1 Rodada", now),
		Summary:  "Jogos de 1 Rodada",
		Start:    time.Date(2025, 8, 19, 9, 0, 0, 0, time.UTC),
		Duration: 2 * time.Hour,
	}
	s := store.New()
	s.Merge([]model.Event{ev}, now, 30*24*time.Hour)
	if err := s.Save(cfg.CalendarPath, now); err != nil {
		t.Fatalf("seed calendar: %v", err)
	}

	return NewServer(cfg)
}

func TestHealthEndpoint(t *testing.T) {
	srv := testServer(t, nil)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestEventsEndpoint(t *testing.T) {
	srv := testServer(t, nil)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/events", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp eventsResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Count != 1 {
		t.Errorf("count = %d, want 1", resp.Count)
	}
	if len(resp.Events) != 1 || resp.Events[0].Summary != "Jogos de 1 Rodada" {
		t.Errorf("events = %+v", resp.Events)
	}
}

func TestCalendarEndpoint(t *testing.T) {
	srv := testServer(t, nil)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/calendar.ics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); got != "text/calendar; charset=utf-8" {
		t.Errorf("content type = %q", got)
	}
}

func TestBasicAuth(t *testing.T) {
	srv := testServer(t, &config.BasicAuthConfig{Username: "user", Password: "secret"})
	h := srv.Handler()

	// /health stays open.
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("/health status = %d, want 200 without credentials", rec.Code)
	}

	// /api/events requires credentials.
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/events", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("unauthenticated status = %d, want 401", rec.Code)
	}

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/events", nil)
	req.SetBasicAuth("user", "secret")
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("authenticated status = %d, want 200", rec.Code)
	}
}
