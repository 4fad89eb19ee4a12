/*
Copyright (C) 2026 Moodify HQ

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package api exposes the conversational recommendation endpoints.
package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/moodifyhq/moodify/internal/dialogue"
	"github.com/moodifyhq/moodify/internal/version"
)

// API exposes HTTP handlers.
type API struct {
	controller *dialogue.Controller
	logger     zerolog.Logger
}

// New creates the API router wrapper.
func New(controller *dialogue.Controller, logger zerolog.Logger) *API {
	return &API{
		controller: controller,
		logger:     logger,
	}
}

// Routes mounts API routes on the provided router.
func (a *API) Routes(r chi.Router) {
	r.Get("/healthz", a.handleHealth)
	r.Post("/recommend", a.handleRecommend)
	r.Post("/command", a.handleCommand)
	r.Post("/reset", a.handleReset)
	r.Get("/session/{sessionID}", a.handleSession)
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": version.Version})
}

// recommendRequest is one user turn. The form fields mirror the chat
// client's input boxes; the first non-empty one is taken as the message.
type recommendRequest struct {
	SessionID    string `json:"session_id"`
	ArtistOrSong string `json:"artist_or_song"`
	Genre        string `json:"genre"`
	Mood         string `json:"mood"`
	Tempo        string `json:"tempo"`
	Message      string `json:"message"`
}

func (req recommendRequest) message() string {
	for _, candidate := range []string{req.Message, req.ArtistOrSong, req.Genre, req.Mood, req.Tempo} {
		if s := strings.TrimSpace(candidate); s != "" {
			return s
		}
	}
	return ""
}

func (a *API) handleRecommend(w http.ResponseWriter, r *http.Request) {
	var req recommendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	if strings.TrimSpace(req.SessionID) == "" {
		writeError(w, http.StatusBadRequest, "missing_session_id")
		return
	}

	reply := a.controller.HandleMessage(r.Context(), req.SessionID, req.message())
	writeJSON(w, http.StatusOK, map[string]string{"response": reply})
}

type commandRequest struct {
	SessionID string `json:"session_id"`
	Command   string `json:"command"`
}

func (a *API) handleCommand(w http.ResponseWriter, r *http.Request) {
	var req commandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	if strings.TrimSpace(req.SessionID) == "" {
		writeError(w, http.StatusBadRequest, "missing_session_id")
		return
	}
	if strings.TrimSpace(req.Command) == "" {
		writeError(w, http.StatusBadRequest, "missing_command")
		return
	}

	reply := a.controller.HandleCommand(r.Context(), req.SessionID, req.Command)
	writeJSON(w, http.StatusOK, map[string]string{"response": reply})
}

type resetRequest struct {
	SessionID string `json:"session_id"`
}

func (a *API) handleReset(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	if strings.TrimSpace(req.SessionID) == "" {
		writeError(w, http.StatusBadRequest, "missing_session_id")
		return
	}

	reply := a.controller.Reset(req.SessionID)
	writeJSON(w, http.StatusOK, map[string]string{"response": reply})
}

func (a *API) handleSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if sessionID == "" {
		writeError(w, http.StatusBadRequest, "missing_session_id")
		return
	}

	writeJSON(w, http.StatusOK, a.controller.SessionState(sessionID))
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}
