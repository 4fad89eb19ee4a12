/*
Copyright (C) 2026 Moodify HQ

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package spotify resolves public track links through the Spotify Web API
// using the client-credentials flow. The collaborator is best-effort: every
// failure yields an empty link and the recommendation goes out without one.
package spotify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/moodifyhq/moodify/internal/telemetry"
)

const (
	tokenURL  = "https://accounts.spotify.com/api/token"
	searchURL = "https://api.spotify.com/v1/search"

	// Tokens are refreshed slightly before Spotify expires them.
	tokenSlack = 30 * time.Second
)

// URLCache stores resolved track links. Implemented by the redis cache;
// a nil cache disables caching.
type URLCache interface {
	GetTrackURL(ctx context.Context, key string) (string, bool)
	SetTrackURL(ctx context.Context, key, link string)
}

// Client is a Spotify Web API client. The zero credentials disable it.
type Client struct {
	clientID     string
	clientSecret string
	httpClient   *http.Client
	cache        URLCache
	logger       zerolog.Logger

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

// New creates a client. cache may be nil.
func New(clientID, clientSecret string, cache URLCache, logger zerolog.Logger) *Client {
	c := &Client{
		clientID:     clientID,
		clientSecret: clientSecret,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		cache:  cache,
		logger: logger.With().Str("component", "spotify").Logger(),
	}
	if !c.Enabled() {
		logger.Warn().Msg("no Spotify credentials configured, recommendations will carry no track links")
	}
	return c
}

// Enabled reports whether credentials were configured.
func (c *Client) Enabled() bool {
	return c.clientID != "" && c.clientSecret != ""
}

// TrackURL searches for the song and returns its public link, or "" when
// the client is disabled, the search fails, or nothing matches.
func (c *Client) TrackURL(ctx context.Context, song, artist string) string {
	if !c.Enabled() || song == "" {
		return ""
	}

	key := cacheKey(song, artist)
	if c.cache != nil {
		if link, ok := c.cache.GetTrackURL(ctx, key); ok {
			return link
		}
	}

	link, err := c.search(ctx, song, artist)
	if err != nil {
		telemetry.CollaboratorFailuresTotal.WithLabelValues("spotify").Inc()
		c.logger.Warn().Err(err).Str("song", song).Str("artist", artist).Msg("track search failed")
		return ""
	}

	if c.cache != nil && link != "" {
		c.cache.SetTrackURL(ctx, key, link)
	}
	return link
}

type searchResponse struct {
	Tracks struct {
		Items []struct {
			ExternalURLs struct {
				Spotify string `json:"spotify"`
			} `json:"external_urls"`
		} `json:"items"`
	} `json:"tracks"`
}

func (c *Client) search(ctx context.Context, song, artist string) (string, error) {
	token, err := c.token(ctx)
	if err != nil {
		return "", err
	}

	query := fmt.Sprintf("track:%s", song)
	if artist != "" {
		query += fmt.Sprintf(" artist:%s", artist)
	}
	params := url.Values{}
	params.Set("q", query)
	params.Set("type", "track")
	params.Set("limit", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL+"?"+params.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("build search request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("search tracks: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("search tracks: unexpected status %d", resp.StatusCode)
	}

	var out searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode search response: %w", err)
	}
	if len(out.Tracks.Items) == 0 {
		return "", nil
	}
	return out.Tracks.Items[0].ExternalURLs.Spotify, nil
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

func (c *Client) token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.accessToken != "" && time.Now().Before(c.tokenExpiry) {
		return c.accessToken, nil
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("build token request: %w", err)
	}
	req.SetBasicAuth(c.clientID, c.clientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("request token: unexpected status %d", resp.StatusCode)
	}

	var out tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}
	if out.AccessToken == "" {
		return "", fmt.Errorf("request token: empty access token")
	}

	c.accessToken = out.AccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(out.ExpiresIn)*time.Second - tokenSlack)
	return c.accessToken, nil
}

func cacheKey(song, artist string) string {
	return strings.ToLower(song) + "|" + strings.ToLower(artist)
}
