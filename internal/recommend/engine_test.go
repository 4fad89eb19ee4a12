/*
Copyright (C) 2026 Moodify HQ

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package recommend

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/moodifyhq/moodify/internal/catalog"
	"github.com/moodifyhq/moodify/internal/models"
)

func testSongs() []models.Song {
	return []models.Song{
		{ID: "t1", Title: "Upbeat Anthem", Artist: "Nova Ray", Genre: "pop", ModeCategory: "happy/energetic", Tempo: 118, Valence: 0.95, Energy: 0.9, Danceability: 0.8, Acousticness: 0.1, Popularity: 80},
		{ID: "t2", Title: "Quiet Rain", Artist: "Nova Ray", Genre: "pop", ModeCategory: "sad/calm", Tempo: 75, Valence: 0.15, Energy: 0.2, Danceability: 0.2, Acousticness: 0.8, Popularity: 60},
		{ID: "t3", Title: "Midnight Drive", Artist: "The Vantas", Genre: "rock", ModeCategory: "calm/energetic", Tempo: 100, Valence: 0.5, Energy: 0.5, Danceability: 0.4, Acousticness: 0.5, Popularity: 70},
		{ID: "t4", Title: "Stone Garden", Artist: "The Vantas", Genre: "rock", ModeCategory: "calm/energetic", Tempo: 105, Valence: 0.45, Energy: 0.55, Danceability: 0.35, Acousticness: 0.55, Popularity: 50},
		{ID: "t5", Title: "Neon Rush", Artist: "Pulse Theory", Genre: "edm", ModeCategory: "energetic/energetic", Tempo: 128, Valence: 0.7, Energy: 0.95, Danceability: 0.9, Acousticness: 0.05, Popularity: 90},
	}
}

func testEngine(t *testing.T) *Engine {
	t.Helper()
	ix, err := catalog.NewIndex(testSongs(), zerolog.Nop())
	if err != nil {
		t.Fatalf("NewIndex() error = %v", err)
	}
	return New(ix, 1, zerolog.Nop())
}

func TestRecommendRelaxesTempoThenGenre(t *testing.T) {
	e := testEngine(t)

	// No pop song is fast, so the tempo constraint must be dropped while the
	// genre constraint survives.
	res, err := e.Recommend(Request{Genre: "pop", Mood: "happy", Tempo: "fast"})
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	if res.Genre != "pop" {
		t.Errorf("Genre = %q, want pop", res.Genre)
	}
	if res.Song != "Upbeat Anthem" {
		t.Errorf("Song = %q, want Upbeat Anthem", res.Song)
	}
}

func TestRecommendHistoryExclusion(t *testing.T) {
	e := testEngine(t)
	req := Request{Genre: "pop", Mood: "happy"}

	first, err := e.Recommend(req)
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	if first.Song != "Upbeat Anthem" {
		t.Fatalf("first Song = %q, want Upbeat Anthem", first.Song)
	}

	req.History = []HistoryEntry{{Song: first.Song, Artist: first.Artist}}
	second, err := e.Recommend(req)
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	if second.Song != "Quiet Rain" {
		t.Errorf("second Song = %q, want Quiet Rain", second.Song)
	}
}

func TestRecommendExhaustedHistoryRepeatsTopPick(t *testing.T) {
	e := testEngine(t)
	req := Request{
		Genre: "pop",
		Mood:  "happy",
		History: []HistoryEntry{
			{Song: "Upbeat Anthem", Artist: "Nova Ray"},
			{Song: "Quiet Rain", Artist: "Nova Ray"},
		},
	}

	res, err := e.Recommend(req)
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	if res.Song != "Upbeat Anthem" {
		t.Errorf("Song = %q, want the top-ranked repeat Upbeat Anthem", res.Song)
	}
}

func TestRecommendDeterministicRanking(t *testing.T) {
	e := testEngine(t)
	req := Request{Mood: "energetic"}

	first, err := e.Recommend(req)
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	for i := 0; i < 5; i++ {
		res, err := e.Recommend(req)
		if err != nil {
			t.Fatalf("Recommend() error = %v", err)
		}
		if res.Song != first.Song || res.Artist != first.Artist {
			t.Fatalf("run %d picked %q by %q, want %q by %q", i, res.Song, res.Artist, first.Song, first.Artist)
		}
	}
}

func TestRecommendArtistMatch(t *testing.T) {
	e := testEngine(t)

	res, err := e.Recommend(Request{ArtistOrSong: "Nova Ray"})
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	if res.Artist != "Nova Ray" {
		t.Errorf("Artist = %q, want Nova Ray", res.Artist)
	}
	// Without a mood the ranking falls back to popularity.
	if res.Song != "Upbeat Anthem" {
		t.Errorf("Song = %q, want the more popular Upbeat Anthem", res.Song)
	}
	if res.ArtistNotFound {
		t.Error("ArtistNotFound = true for an exact artist match")
	}
}

func TestRecommendSimilarToExcludesArtist(t *testing.T) {
	e := testEngine(t)

	for i := 0; i < 3; i++ {
		res, err := e.Recommend(Request{ArtistOrSong: "something similar to Nova Ray"})
		if err != nil {
			t.Fatalf("Recommend() error = %v", err)
		}
		if res.Artist == "Nova Ray" {
			t.Fatalf("run %d recommended the excluded artist", i)
		}
		if res.ArtistNotFound {
			t.Errorf("run %d: ArtistNotFound set for a similarity request", i)
		}
	}
}

func TestRecommendUnknownArtistFallsBackToBucket(t *testing.T) {
	e := testEngine(t)

	res, err := e.Recommend(Request{ArtistOrSong: "zzzz nobody"})
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	// The fallback bucket is rock/calm/energetic/medium: Midnight Drive or
	// Stone Garden.
	if res.Song != "Midnight Drive" && res.Song != "Stone Garden" {
		t.Errorf("Song = %q, want a track from the fallback bucket", res.Song)
	}
	if !res.ArtistNotFound {
		t.Error("ArtistNotFound = false, want true for an unknown artist")
	}
	if res.RequestedArtist != "zzzz nobody" {
		t.Errorf("RequestedArtist = %q, want the original query", res.RequestedArtist)
	}
}

func TestRecommendBucketFallbackPrefersUnseen(t *testing.T) {
	e := testEngine(t)
	req := Request{
		ArtistOrSong: "zzzz nobody",
		History:      []HistoryEntry{{Song: "Midnight Drive", Artist: "The Vantas"}},
	}

	for i := 0; i < 5; i++ {
		res, err := e.Recommend(req)
		if err != nil {
			t.Fatalf("Recommend() error = %v", err)
		}
		if res.Song != "Stone Garden" {
			t.Fatalf("run %d Song = %q, want the unseen Stone Garden", i, res.Song)
		}
	}
}

func TestRecommendNoMatch(t *testing.T) {
	songs := []models.Song{
		{ID: "only", Title: "Lone Star", Artist: "Solo Act", Genre: "pop", ModeCategory: "happy/energetic", Tempo: 130, Valence: 0.9, Energy: 0.9, Danceability: 0.8, Acousticness: 0.1, Popularity: 40},
	}
	ix, err := catalog.NewIndex(songs, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewIndex() error = %v", err)
	}
	e := New(ix, 1, zerolog.Nop())

	// An unmatched artist query empties every stage, and the fallback bucket
	// has no rock tracks either.
	_, err = e.Recommend(Request{ArtistOrSong: "qqqq"})
	if !errors.Is(err, ErrNoMatch) {
		t.Fatalf("Recommend() error = %v, want ErrNoMatch", err)
	}
}

func TestRecommendTempoBoundariesMatchCategories(t *testing.T) {
	// 90 and 120 BPM are medium; they must not leak into the slow or fast
	// filters even when they are the more popular picks.
	songs := []models.Song{
		{ID: "b1", Title: "Edge Slow", Artist: "Border Club", Genre: "pop", ModeCategory: "calm/chill", Tempo: 89, Valence: 0.4, Energy: 0.3, Danceability: 0.3, Acousticness: 0.6, Popularity: 10},
		{ID: "b2", Title: "Edge Medium Low", Artist: "Border Club", Genre: "pop", ModeCategory: "calm/chill", Tempo: 90, Valence: 0.5, Energy: 0.4, Danceability: 0.4, Acousticness: 0.5, Popularity: 99},
		{ID: "b3", Title: "Edge Medium High", Artist: "Border Club", Genre: "pop", ModeCategory: "happy/energetic", Tempo: 120, Valence: 0.7, Energy: 0.7, Danceability: 0.6, Acousticness: 0.3, Popularity: 98},
		{ID: "b4", Title: "Edge Fast", Artist: "Border Club", Genre: "pop", ModeCategory: "happy/energetic", Tempo: 121, Valence: 0.8, Energy: 0.8, Danceability: 0.7, Acousticness: 0.2, Popularity: 10},
	}
	ix, err := catalog.NewIndex(songs, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewIndex() error = %v", err)
	}
	e := New(ix, 1, zerolog.Nop())

	slow, err := e.Recommend(Request{Tempo: "slow"})
	if err != nil {
		t.Fatalf("Recommend(slow) error = %v", err)
	}
	if slow.Song != "Edge Slow" {
		t.Errorf("slow pick = %q, want Edge Slow", slow.Song)
	}

	fast, err := e.Recommend(Request{Tempo: "fast"})
	if err != nil {
		t.Fatalf("Recommend(fast) error = %v", err)
	}
	if fast.Song != "Edge Fast" {
		t.Errorf("fast pick = %q, want Edge Fast", fast.Song)
	}
}

func TestRecommendUnparseableTempoIsWildcard(t *testing.T) {
	e := testEngine(t)

	res, err := e.Recommend(Request{Genre: "pop", Mood: "happy", Tempo: "waltz"})
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	if res.Genre != "pop" {
		t.Errorf("Genre = %q, want pop", res.Genre)
	}
}

func TestRecommendNormalizesMoodAlias(t *testing.T) {
	e := testEngine(t)

	res, err := e.Recommend(Request{Genre: "pop", Mood: "joyful"})
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	if res.Mood != "happy" {
		t.Errorf("Mood = %q, want happy", res.Mood)
	}
	if res.Song != "Upbeat Anthem" {
		t.Errorf("Song = %q, want Upbeat Anthem", res.Song)
	}
}
