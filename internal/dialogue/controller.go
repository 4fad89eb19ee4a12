/*
Copyright (C) 2026 Moodify HQ

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package dialogue drives the per-session conversation state machine: it
// merges each user turn into the session's preferences, asks clarifying
// questions for what is still missing, and hands complete preference sets
// to the recommendation engine.
package dialogue

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"github.com/moodifyhq/moodify/internal/events"
	"github.com/moodifyhq/moodify/internal/preference"
	"github.com/moodifyhq/moodify/internal/recommend"
	"github.com/moodifyhq/moodify/internal/session"
	"github.com/moodifyhq/moodify/internal/telemetry"
)

// Assistant extracts preferences from free text and phrases
// recommendations. Both operations degrade: extraction may come back empty
// and rendering may fail, and the controller covers for either.
type Assistant interface {
	Extract(ctx context.Context, message string) preference.Extraction
	Render(ctx context.Context, res recommend.Result) (string, error)
}

// LinkResolver turns a chosen song into a public streaming link, or "".
type LinkResolver interface {
	TrackURL(ctx context.Context, song, artist string) string
}

// Controller owns the dialogue flow. Collaborator calls happen outside the
// session lock; only the in-memory engine runs under it.
type Controller struct {
	sessions     *session.Store
	engine       *recommend.Engine
	assistant    Assistant
	links        LinkResolver
	resolver     *preference.Resolver
	bus          *events.Bus
	maxFollowups int
	logger       zerolog.Logger
}

// NewController wires the dialogue controller. links may be nil.
func NewController(sessions *session.Store, engine *recommend.Engine, assistant Assistant, links LinkResolver, bus *events.Bus, maxFollowups int, logger zerolog.Logger) *Controller {
	return &Controller{
		sessions:     sessions,
		engine:       engine,
		assistant:    assistant,
		links:        links,
		resolver:     preference.NewResolver(),
		bus:          bus,
		maxFollowups: maxFollowups,
		logger:       logger.With().Str("component", "dialogue").Logger(),
	}
}

// turn is the outcome decided under the session lock; the reply text is
// composed afterwards.
type turn struct {
	reply    string           // final when not a recommendation
	question preference.Field // set when a clarification was queued
	result   recommend.Result // set when recommended
	isResult bool
}

// HandleMessage processes one free-text user turn and returns the reply.
func (c *Controller) HandleMessage(ctx context.Context, sessionID, message string) string {
	message = strings.TrimSpace(message)

	if isGreeting(message) {
		state := c.sessions.Get(sessionID)
		if !state.AwaitingFeedback && state.LastSong == "" {
			return greetingReply
		}
	}

	// Extraction talks to the model, so it runs before taking the lock.
	ex := c.assistant.Extract(ctx, message)

	var t turn
	state := c.sessions.Mutate(sessionID, func(st *session.State) {
		t = c.advance(st, ex, message)
	})

	return c.compose(ctx, sessionID, state, t)
}

// advance is the state machine step. It runs under the session lock and
// must not block.
func (c *Controller) advance(st *session.State, ex preference.Extraction, message string) turn {
	if st.AwaitingFeedback {
		st.AwaitingFeedback = false

		switch {
		case isAffirmative(message) && ex.IsEmpty():
			telemetry.FeedbackTotal.WithLabelValues("positive").Inc()
			c.bus.Publish(events.EventFeedback, events.Payload{"session_id": st.ID, "verdict": "positive"})
			return turn{reply: feedbackThanks}
		case isNegative(message) && ex.IsEmpty():
			telemetry.FeedbackTotal.WithLabelValues("negative").Inc()
			c.bus.Publish(events.EventFeedback, events.Payload{"session_id": st.ID, "verdict": "negative"})
			// Same preferences, next-best song.
			return c.recommend(st)
		}
		// Anything else is a fresh request; fall through with the
		// extraction applied below.
	}

	if field, ok := changeRequest(message); ok {
		st.Prefs.Put(field, preference.Unknown())
		st.PendingQuestions = []preference.Field{field}
		return c.ask(st, field)
	}

	var target preference.Field
	if len(st.PendingQuestions) > 0 {
		target = st.PendingQuestions[0]
		st.PendingQuestions = st.PendingQuestions[1:]
	}

	// Keyword fallback when the model extracted nothing from a free turn.
	if target == "" && ex.IsEmpty() {
		ex = preference.ScanText(message)
	}

	c.resolver.Apply(&st.Prefs, ex, message, target)

	missing := st.Prefs.Missing()
	if len(missing) > 0 && st.FollowupCount < c.maxFollowups {
		st.FollowupCount++
		st.PendingQuestions = []preference.Field{missing[0]}
		return c.ask(st, missing[0])
	}

	// A free turn that extracted nothing and never mentions music is off
	// topic; redirect instead of spending a recommendation on it.
	if target == "" && ex.IsEmpty() && !isMusicRelated(message) {
		return turn{reply: offTopicReply}
	}

	// Enough questions. Treat whatever is still missing as no-preference
	// and recommend.
	for _, f := range missing {
		st.Prefs.Put(f, preference.None())
	}

	return c.recommend(st)
}

func (c *Controller) ask(st *session.State, field preference.Field) turn {
	telemetry.QuestionsAskedTotal.WithLabelValues(string(field)).Inc()
	c.bus.Publish(events.EventQuestionAsked, events.Payload{"session_id": st.ID, "field": string(field)})
	return turn{reply: questionPrompts[field], question: field}
}

// recommend runs the engine under the session lock and applies the outcome
// to the session.
func (c *Controller) recommend(st *session.State) turn {
	req := recommend.Request{
		Genre:        st.Prefs.Genre.OrEmpty(),
		Mood:         st.Prefs.Mood.OrEmpty(),
		Tempo:        st.Prefs.Tempo.OrEmpty(),
		ArtistOrSong: st.Prefs.ArtistOrSong.OrEmpty(),
		History:      st.History,
	}

	res, err := c.engine.Recommend(req)
	if err != nil {
		if !errors.Is(err, recommend.ErrNoMatch) {
			c.logger.Error().Err(err).Str("session_id", st.ID).Msg("recommendation failed")
		}
		telemetry.RecommendationsTotal.WithLabelValues("no_match").Inc()
		c.bus.Publish(events.EventNoMatch, events.Payload{"session_id": st.ID})
		// Re-open the artist slot; it is the likeliest culprit.
		st.Prefs.ArtistOrSong = preference.Unknown()
		st.PendingQuestions = []preference.Field{preference.FieldArtistOrSong}
		return turn{reply: noMatchReply}
	}

	st.History = append(st.History, recommend.HistoryEntry{Song: res.Song, Artist: res.Artist})
	st.LastSong = res.Song
	st.LastArtist = res.Artist
	st.AwaitingFeedback = true
	st.FollowupCount = 0
	st.PendingQuestions = nil

	telemetry.RecommendationsTotal.WithLabelValues("served").Inc()
	c.bus.Publish(events.EventRecommendation, events.Payload{
		"session_id": st.ID,
		"song":       res.Song,
		"artist":     res.Artist,
	})

	return turn{result: res, isResult: true}
}

// compose renders the final reply text outside the session lock.
func (c *Controller) compose(ctx context.Context, sessionID string, state session.State, t turn) string {
	if !t.isResult {
		return t.reply
	}

	res := t.result
	if res.SpotifyURL == "" && c.links != nil {
		res.SpotifyURL = c.links.TrackURL(ctx, res.Song, res.Artist)
	}
	if res.SpotifyURL == "" {
		res.SpotifyURL = directTrackURL(res.TrackID)
	}

	text, err := c.assistant.Render(ctx, res)
	if err != nil {
		text = renderFallback(res, len(state.History))
	}

	var b strings.Builder
	if res.ArtistNotFound {
		b.WriteString(artistNotFoundPreamble(res.RequestedArtist))
	}
	b.WriteString(text)
	if res.SpotifyURL != "" {
		b.WriteString(" Listen here: ")
		b.WriteString(res.SpotifyURL)
	}
	b.WriteString(" ")
	b.WriteString(feedbackPrompt)

	c.logger.Info().
		Str("session_id", sessionID).
		Str("song", res.Song).
		Str("artist", res.Artist).
		Msg("recommendation delivered")

	return b.String()
}

// HandleCommand processes a slash command and returns the reply.
func (c *Controller) HandleCommand(ctx context.Context, sessionID, command string) string {
	norm := strings.ToLower(strings.TrimSpace(command))
	norm = strings.TrimPrefix(norm, "/")

	switch {
	case norm == "another" || norm == "again" || norm == "next":
		var t turn
		state := c.sessions.Mutate(sessionID, func(st *session.State) {
			if st.LastSong == "" {
				t = turn{reply: nothingYetReply}
				return
			}
			st.AwaitingFeedback = false
			t = c.recommend(st)
		})
		return c.compose(ctx, sessionID, state, t)

	case norm == "help":
		return helpReply

	case norm == "reset":
		return c.Reset(sessionID)

	case strings.HasPrefix(norm, "change"):
		if field, ok := changeRequest(norm); ok {
			var t turn
			c.sessions.Mutate(sessionID, func(st *session.State) {
				st.Prefs.Put(field, preference.Unknown())
				st.PendingQuestions = []preference.Field{field}
				st.AwaitingFeedback = false
				t = c.ask(st, field)
			})
			return t.reply
		}
		return changePrompt

	default:
		return helpReply
	}
}

// Reset clears the session and returns the confirmation reply.
func (c *Controller) Reset(sessionID string) string {
	c.sessions.Reset(sessionID)
	telemetry.SessionResetsTotal.Inc()
	c.bus.Publish(events.EventSessionReset, events.Payload{"session_id": sessionID})
	c.logger.Info().Str("session_id", sessionID).Msg("session reset")
	return resetReply
}

// SessionState returns a snapshot of the session for inspection endpoints.
func (c *Controller) SessionState(sessionID string) session.State {
	return c.sessions.Get(sessionID)
}

// directTrackURL derives a public link from the catalog's track ID. IDs
// imported from the source dataset are Spotify track IDs (22 base62 chars);
// rows that fell back to generated UUIDs produce no link.
func directTrackURL(trackID string) string {
	if len(trackID) != 22 {
		return ""
	}
	for _, r := range trackID {
		switch {
		case r >= '0' && r <= '9':
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		default:
			return ""
		}
	}
	return "https://open.spotify.com/track/" + trackID
}

// changeRequest detects "change genre"-style messages and maps them onto
// the preference field to re-collect.
func changeRequest(message string) (preference.Field, bool) {
	norm := strings.ToLower(strings.TrimSpace(message))
	norm = strings.TrimPrefix(norm, "/")
	if !strings.HasPrefix(norm, "change") {
		return "", false
	}
	rest := strings.TrimSpace(strings.TrimPrefix(norm, "change"))
	switch {
	case strings.Contains(rest, "genre"):
		return preference.FieldGenre, true
	case strings.Contains(rest, "mood") || strings.Contains(rest, "vibe"):
		return preference.FieldMood, true
	case strings.Contains(rest, "tempo") || strings.Contains(rest, "speed"):
		return preference.FieldTempo, true
	case strings.Contains(rest, "artist") || strings.Contains(rest, "song"):
		return preference.FieldArtistOrSong, true
	}
	return "", false
}
