/*
Copyright (C) 2026 Moodify HQ

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package llm talks to a Groq-hosted chat model through its
// OpenAI-compatible API. It extracts music preferences from free text and
// phrases recommendations conversationally. Every call degrades gracefully:
// extraction returns an empty result and rendering returns an error the
// caller templates around, so the dialogue keeps working without a model.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"

	"github.com/moodifyhq/moodify/internal/preference"
	"github.com/moodifyhq/moodify/internal/recommend"
	"github.com/moodifyhq/moodify/internal/telemetry"
)

// ErrDisabled is returned by Render when no API key is configured.
var ErrDisabled = errors.New("llm collaborator is disabled")

const extractSystemPrompt = `You extract music preferences from a user message.
Respond with a single JSON object and nothing else, using exactly these keys:
{"genre": string or null, "mood": string or null, "tempo": string or null, "artist_or_song": string or null}
Rules:
- genre is a music genre such as pop, rock, rap, latin, r&b or edm.
- mood is an emotional state such as happy, sad, energetic or calm.
- tempo is slow, medium or fast.
- artist_or_song is an artist name, song title, or a "similar to X" phrase, quoted verbatim.
- Use null for anything the message does not mention. Never invent values.`

const renderSystemPrompt = `You are a friendly music recommendation assistant.
Given a chosen song, write one or two warm conversational sentences presenting it.
Mention the song title and artist. Do not use markdown, lists or emoji.
Never claim the song has qualities you were not given.`

// Config carries the collaborator settings.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// Client wraps the chat-completion API. The zero APIKey disables it.
type Client struct {
	api     *openai.Client
	model   string
	timeout time.Duration
	logger  zerolog.Logger
}

// New builds a client. When cfg.APIKey is empty the client is disabled and
// every method short-circuits.
func New(cfg Config, logger zerolog.Logger) *Client {
	c := &Client{
		model:   cfg.Model,
		timeout: cfg.Timeout,
		logger:  logger,
	}
	if cfg.APIKey == "" {
		logger.Warn().Msg("no Groq API key configured, running without language model")
		return c
	}
	apiCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		apiCfg.BaseURL = cfg.BaseURL
	}
	c.api = openai.NewClientWithConfig(apiCfg)
	return c
}

// Enabled reports whether an API key was configured.
func (c *Client) Enabled() bool { return c.api != nil }

// Extract pulls structured preferences out of a free-text message. It never
// fails: any transport or parse problem yields an empty extraction and the
// caller falls back to keyword matching.
func (c *Client) Extract(ctx context.Context, message string) preference.Extraction {
	if c.api == nil || strings.TrimSpace(message) == "" {
		return preference.Extraction{}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: 0,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: extractSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: message},
		},
	})
	if err != nil {
		telemetry.CollaboratorFailuresTotal.WithLabelValues("llm").Inc()
		c.logger.Warn().Err(err).Msg("preference extraction call failed")
		return preference.Extraction{}
	}
	if len(resp.Choices) == 0 {
		return preference.Extraction{}
	}

	ex, err := parseExtraction(resp.Choices[0].Message.Content)
	if err != nil {
		telemetry.CollaboratorFailuresTotal.WithLabelValues("llm").Inc()
		c.logger.Warn().Err(err).Msg("unparseable extraction response")
		return preference.Extraction{}
	}
	return ex
}

// Render asks the model to phrase a recommendation. Callers must fall back
// to a fixed template on error.
func (c *Client) Render(ctx context.Context, res recommend.Result) (string, error) {
	if c.api == nil {
		return "", ErrDisabled
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	user := fmt.Sprintf("Song: %q by %s. Genre: %s. Mood: %s. Tempo: %s.",
		res.Song, res.Artist, res.Genre, res.Mood, res.Tempo)

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: 0.7,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: renderSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
	})
	if err != nil {
		telemetry.CollaboratorFailuresTotal.WithLabelValues("llm").Inc()
		return "", fmt.Errorf("render recommendation: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("render recommendation: empty response")
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", errors.New("render recommendation: blank message")
	}
	return text, nil
}

// parseExtraction is strict about shape but tolerant of models that wrap
// JSON in a markdown code fence.
func parseExtraction(raw string) (preference.Extraction, error) {
	raw = stripCodeFence(raw)

	var ex preference.Extraction
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&ex); err != nil {
		return preference.Extraction{}, fmt.Errorf("decode extraction: %w", err)
	}
	return ex, nil
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
