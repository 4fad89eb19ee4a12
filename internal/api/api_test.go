/*
Copyright (C) 2026 Moodify HQ

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/moodifyhq/moodify/internal/catalog"
	"github.com/moodifyhq/moodify/internal/dialogue"
	"github.com/moodifyhq/moodify/internal/events"
	"github.com/moodifyhq/moodify/internal/models"
	"github.com/moodifyhq/moodify/internal/preference"
	"github.com/moodifyhq/moodify/internal/recommend"
	"github.com/moodifyhq/moodify/internal/session"
)

type stubAssistant struct{}

func (stubAssistant) Extract(context.Context, string) preference.Extraction {
	return preference.Extraction{}
}

func (stubAssistant) Render(context.Context, recommend.Result) (string, error) {
	return "", errors.New("render unavailable")
}

func testRouter(t *testing.T) http.Handler {
	t.Helper()
	songs := []models.Song{
		{ID: "t1", Title: "Upbeat Anthem", Artist: "Nova Ray", Genre: "pop", ModeCategory: "happy/energetic", Tempo: 118, Valence: 0.95, Energy: 0.9, Danceability: 0.8, Acousticness: 0.1, Popularity: 80},
		{ID: "t2", Title: "Quiet Rain", Artist: "Nova Ray", Genre: "pop", ModeCategory: "sad/calm", Tempo: 75, Valence: 0.15, Energy: 0.2, Danceability: 0.2, Acousticness: 0.8, Popularity: 60},
	}
	ix, err := catalog.NewIndex(songs, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewIndex() error = %v", err)
	}
	controller := dialogue.NewController(
		session.NewStore(),
		recommend.New(ix, 1, zerolog.Nop()),
		stubAssistant{},
		nil,
		events.NewBus(),
		4,
		zerolog.Nop(),
	)

	r := chi.NewRouter()
	New(controller, zerolog.Nop()).Routes(r)
	return r
}

func doJSON(t *testing.T, h http.Handler, method, path, body string) (*httptest.ResponseRecorder, map[string]string) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	out := map[string]string{}
	_ = json.Unmarshal(rec.Body.Bytes(), &out)
	return rec, out
}

func TestHealthz(t *testing.T) {
	rec, out := doJSON(t, testRouter(t), http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if out["status"] != "ok" {
		t.Errorf("status field = %q, want ok", out["status"])
	}
}

func TestRecommendRequiresSessionID(t *testing.T) {
	rec, out := doJSON(t, testRouter(t), http.MethodPost, "/recommend", `{"mood": "happy"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if out["error"] != "missing_session_id" {
		t.Errorf("error = %q, want missing_session_id", out["error"])
	}
}

func TestRecommendRejectsBadJSON(t *testing.T) {
	rec, out := doJSON(t, testRouter(t), http.MethodPost, "/recommend", `{"session_id":`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if out["error"] != "invalid_json" {
		t.Errorf("error = %q, want invalid_json", out["error"])
	}
}

func TestRecommendReturnsReply(t *testing.T) {
	rec, out := doJSON(t, testRouter(t), http.MethodPost, "/recommend", `{"session_id": "s1", "mood": "happy"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if out["response"] == "" {
		t.Error("response is empty")
	}
}

func TestCommandRequiresCommand(t *testing.T) {
	rec, out := doJSON(t, testRouter(t), http.MethodPost, "/command", `{"session_id": "s1"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if out["error"] != "missing_command" {
		t.Errorf("error = %q, want missing_command", out["error"])
	}
}

func TestResetFlow(t *testing.T) {
	h := testRouter(t)

	if rec, _ := doJSON(t, h, http.MethodPost, "/recommend", `{"session_id": "s1", "genre": "pop"}`); rec.Code != http.StatusOK {
		t.Fatalf("recommend status = %d, want 200", rec.Code)
	}

	rec, out := doJSON(t, h, http.MethodPost, "/reset", `{"session_id": "s1"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("reset status = %d, want 200", rec.Code)
	}
	if out["response"] == "" {
		t.Error("reset response is empty")
	}
}

func TestSessionInspection(t *testing.T) {
	h := testRouter(t)
	doJSON(t, h, http.MethodPost, "/recommend", `{"session_id": "s1", "mood": "happy"}`)

	req := httptest.NewRequest(http.MethodGet, "/session/s1", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var state session.State
	if err := json.Unmarshal(rec.Body.Bytes(), &state); err != nil {
		t.Fatalf("unmarshal session state: %v", err)
	}
	if state.ID != "s1" {
		t.Errorf("session ID = %q, want s1", state.ID)
	}
}
