/*
Copyright (C) 2026 Moodify HQ

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package catalog

import (
	"testing"

	"github.com/rs/zerolog"

	"github.com/moodifyhq/moodify/internal/models"
)

func testSongs() []models.Song {
	return []models.Song{
		{ID: "1", Title: "Sunrise", Artist: "Adele", Genre: "pop", ModeCategory: "happy/energetic", Tempo: 128, Valence: 0.9, Energy: 0.8, Danceability: 0.7, Acousticness: 0.2, Popularity: 90},
		{ID: "2", Title: "Midnight Rain", Artist: "The Weeknd", Genre: "pop", ModeCategory: "sad/chill", Tempo: 80, Valence: 0.2, Energy: 0.3, Danceability: 0.2, Acousticness: 0.6, Popularity: 85},
		{ID: "3", Title: "Thunder Road", Artist: "Arctic Monkeys", Genre: "rock", ModeCategory: "energetic/energetic", Tempo: 140, Valence: 0.7, Energy: 0.95, Danceability: 0.8, Acousticness: 0.1, Popularity: 70},
		{ID: "4", Title: "Slow Burn", Artist: "Norah Jones", Genre: "rock", ModeCategory: "calm/energetic", Tempo: 95, Valence: 0.5, Energy: 0.4, Danceability: 0.3, Acousticness: 0.7, Popularity: 60},
		{ID: "5", Title: "City Lights", Artist: "Adele", Genre: "pop", ModeCategory: "happy/energetic", Tempo: 110, Valence: 0.8, Energy: 0.7, Danceability: 0.65, Acousticness: 0.25, Popularity: 95},
	}
}

func testIndex(t *testing.T) *Index {
	t.Helper()
	ix, err := NewIndex(testSongs(), zerolog.Nop())
	if err != nil {
		t.Fatalf("NewIndex() error = %v", err)
	}
	return ix
}

func TestCategoryForBPM(t *testing.T) {
	tests := []struct {
		bpm  float64
		want TempoCategory
	}{
		{60, TempoSlow},
		{89.9, TempoSlow},
		{90, TempoMedium},
		{120, TempoMedium},
		{120.1, TempoFast},
		{180, TempoFast},
	}
	for _, tt := range tests {
		if got := CategoryForBPM(tt.bpm); got != tt.want {
			t.Errorf("CategoryForBPM(%v) = %q, want %q", tt.bpm, got, tt.want)
		}
	}
}

func TestNewIndexNormalizesFeatures(t *testing.T) {
	ix := testIndex(t)

	for _, track := range ix.All() {
		for i, v := range track.Features {
			if v < 0 || v > 1 {
				t.Errorf("track %s feature %d = %v, want within [0,1]", track.ID, i, v)
			}
		}
	}

	// The min and max of each feature column must map to 0 and 1.
	var sawZero, sawOne bool
	for _, track := range ix.All() {
		if track.Features[0] == 0 {
			sawZero = true
		}
		if track.Features[0] == 1 {
			sawOne = true
		}
	}
	if !sawZero || !sawOne {
		t.Error("min-max normalization did not span [0,1] for valence")
	}
}

func TestNewIndexDropsUnusableRows(t *testing.T) {
	songs := append(testSongs(),
		models.Song{ID: "bad1", Title: "", Artist: "Ghost", Tempo: 100},
		models.Song{ID: "bad2", Title: "No Tempo", Artist: "Ghost", Tempo: 0},
	)
	ix, err := NewIndex(songs, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewIndex() error = %v", err)
	}
	if ix.Size() != 5 {
		t.Errorf("Size() = %d, want 5", ix.Size())
	}
}

func TestNewIndexEmptyCatalog(t *testing.T) {
	if _, err := NewIndex(nil, zerolog.Nop()); err != ErrEmptyCatalog {
		t.Fatalf("NewIndex(nil) error = %v, want ErrEmptyCatalog", err)
	}
}

func TestFilter(t *testing.T) {
	ix := testIndex(t)

	pop := ix.Filter("pop", "")
	if len(pop) != 3 {
		t.Errorf("Filter(pop) returned %d tracks, want 3", len(pop))
	}

	popFast := ix.Filter("pop", TempoFast)
	if len(popFast) != 1 || popFast[0].ID != "1" {
		t.Errorf("Filter(pop, fast) = %v, want just track 1", popFast)
	}

	all := ix.Filter("", "")
	if len(all) != 5 {
		t.Errorf("Filter with wildcards returned %d tracks, want 5", len(all))
	}
}

func TestBucket(t *testing.T) {
	ix := testIndex(t)

	bucket := ix.Bucket("rock", "calm", "energetic", TempoMedium)
	if len(bucket) != 1 || bucket[0].ID != "4" {
		t.Fatalf("Bucket(rock,calm,energetic,medium) = %v, want track 4", bucket)
	}

	if got := ix.Bucket("jazz", "calm", "energetic", TempoMedium); got != nil {
		t.Errorf("Bucket for unknown genre = %v, want nil", got)
	}
}

func TestSplitModeCategory(t *testing.T) {
	tests := []struct {
		label  string
		mood   string
		energy string
	}{
		{"happy/energetic", "happy", "energetic"},
		{"sad_chill", "sad", "chill"},
		{"Calm Energetic", "calm", "energetic"},
		{"melancholy", "melancholy", ""},
		{"", "", ""},
	}
	for _, tt := range tests {
		mood, energy := splitModeCategory(tt.label)
		if mood != tt.mood || energy != tt.energy {
			t.Errorf("splitModeCategory(%q) = (%q, %q), want (%q, %q)", tt.label, mood, energy, tt.mood, tt.energy)
		}
	}
}

func TestMatchText(t *testing.T) {
	ix := testIndex(t)

	adele := ix.MatchText("adele")
	if len(adele) != 2 {
		t.Fatalf("MatchText(adele) returned %d tracks, want 2", len(adele))
	}
	for _, track := range adele {
		if track.Artist != "Adele" {
			t.Errorf("MatchText(adele) returned artist %q", track.Artist)
		}
	}

	// Title matches also count.
	if got := ix.MatchText("midnight rain"); len(got) == 0 || got[0].ID != "2" {
		t.Errorf("MatchText(midnight rain) = %v, want track 2 first", got)
	}

	if got := ix.MatchText("zzzzz nonexistent"); got != nil {
		t.Errorf("MatchText(nonexistent) = %v, want nil", got)
	}
}

func TestResolveArtist(t *testing.T) {
	ix := testIndex(t)

	artist, ok := ix.ResolveArtist("something similar to the weeknd please")
	if !ok || artist != "The Weeknd" {
		t.Errorf("ResolveArtist = (%q, %v), want (The Weeknd, true)", artist, ok)
	}

	if _, ok := ix.ResolveArtist("similar to nobody known"); ok {
		t.Error("ResolveArtist matched an unknown artist")
	}
}
