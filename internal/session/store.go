/*
Copyright (C) 2026 Moodify HQ

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package session holds per-conversation dialogue state in memory.
package session

import (
	"sync"
	"time"

	"github.com/moodifyhq/moodify/internal/preference"
	"github.com/moodifyhq/moodify/internal/recommend"
)

// State is the dialogue state of one conversation. All fields are owned by
// the store; callers only ever see snapshots or mutate under the store's
// per-session lock.
type State struct {
	ID    string         `json:"id"`
	Prefs preference.Set `json:"preferences"`

	LastSong   string                   `json:"last_song,omitempty"`
	LastArtist string                   `json:"last_artist,omitempty"`
	History    []recommend.HistoryEntry `json:"history,omitempty"`

	// PendingQuestions are the preference fields queued to be asked, in
	// canonical order. The head is the field the next user message answers.
	PendingQuestions []preference.Field `json:"pending_questions,omitempty"`
	AwaitingFeedback bool               `json:"awaiting_feedback,omitempty"`
	FollowupCount    int                `json:"followup_count,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type entry struct {
	mu    sync.Mutex
	state State
}

// Store is a concurrency-safe in-memory session store. Sessions are created
// lazily on first reference.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*entry
}

// NewStore creates an empty session store.
func NewStore() *Store {
	return &Store{sessions: make(map[string]*entry)}
}

func (s *Store) entryFor(id string) *entry {
	s.mu.RLock()
	e, ok := s.sessions[id]
	s.mu.RUnlock()
	if ok {
		return e
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.sessions[id]; ok {
		return e
	}
	now := time.Now()
	e = &entry{state: State{ID: id, CreatedAt: now, UpdatedAt: now}}
	s.sessions[id] = e
	return e
}

// Get returns a snapshot of the session, creating it if needed. Slices are
// copied so the caller can read without holding any lock.
func (s *Store) Get(id string) State {
	e := s.entryFor(id)
	e.mu.Lock()
	defer e.mu.Unlock()
	return snapshot(&e.state)
}

// Mutate runs fn with exclusive access to the session state and returns a
// snapshot of the result. The per-session lock serializes concurrent turns
// of the same conversation while leaving other sessions untouched.
func (s *Store) Mutate(id string, fn func(*State)) State {
	e := s.entryFor(id)
	e.mu.Lock()
	defer e.mu.Unlock()
	fn(&e.state)
	e.state.UpdatedAt = time.Now()
	return snapshot(&e.state)
}

// Reset clears everything but the session's identity and creation time.
func (s *Store) Reset(id string) State {
	return s.Mutate(id, func(st *State) {
		created := st.CreatedAt
		*st = State{ID: id, CreatedAt: created}
	})
}

// Len reports the number of live sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func snapshot(st *State) State {
	out := *st
	out.History = append([]recommend.HistoryEntry(nil), st.History...)
	out.PendingQuestions = append([]preference.Field(nil), st.PendingQuestions...)
	return out
}
