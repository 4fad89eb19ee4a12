/*
Copyright (C) 2026 Moodify HQ

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package recommend implements the staged filter-relax-fallback song
// selection pipeline.
package recommend

import (
	"errors"
	"math"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/moodifyhq/moodify/internal/catalog"
	"github.com/moodifyhq/moodify/internal/preference"
)

// ErrNoMatch indicates every relaxation stage and the bucket fallback came
// up empty.
var ErrNoMatch = errors.New("no song satisfies the requested preferences")

// HistoryEntry identifies a song already shown this session.
type HistoryEntry struct {
	Song   string `json:"song"`
	Artist string `json:"artist"`
}

// Request carries the resolved preferences of one recommendation turn.
// Empty strings are wildcards.
type Request struct {
	Genre        string
	Mood         string
	Tempo        string
	ArtistOrSong string
	History      []HistoryEntry
}

// Result is one recommendation.
type Result struct {
	TrackID    string                `json:"track_id,omitempty"`
	Song       string                `json:"song"`
	Artist     string                `json:"artist"`
	Genre      string                `json:"genre"`
	Mood       string                `json:"mood"`
	Tempo      catalog.TempoCategory `json:"tempo"`
	SpotifyURL string                `json:"spotify_url,omitempty"`

	// ArtistNotFound is set when the user asked for an artist but the chosen
	// song is by someone else, so the caller can render a substitute message.
	ArtistNotFound  bool   `json:"artist_not_found,omitempty"`
	RequestedArtist string `json:"requested_artist,omitempty"`
}

// moodVectors are the reference points in normalized feature space
// (valence, energy, danceability, acousticness, tempo).
var moodVectors = map[string][catalog.FeatureCount]float64{
	"happy":     {0.9, 0.8, 0.7, 0.2, 0.6},
	"sad":       {0.2, 0.3, 0.2, 0.6, 0.4},
	"energetic": {0.7, 0.9, 0.8, 0.1, 0.8},
	"calm":      {0.5, 0.4, 0.3, 0.7, 0.5},
}

// similarityKeywords mark an artist request as similarity-seeking: the user
// wants something like X, not X itself.
var similarityKeywords = []string{
	"similar to",
	"like",
	"vibe like",
	"in the style of",
	"another artist like",
	"by a similar artist",
	"reminiscent of",
	"same vibe as",
	"any artist",
}

// Defaults for the bucket fallback key when a preference is a wildcard.
const (
	fallbackGenre  = "rock"
	fallbackMood   = "calm"
	fallbackEnergy = "energetic"
	fallbackTempo  = catalog.TempoMedium
)

// Engine selects songs from the catalog index.
type Engine struct {
	catalog *catalog.Index
	logger  zerolog.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

// New creates a recommendation engine. Seed 0 seeds the bucket fallback RNG
// from the wall clock.
func New(ix *catalog.Index, seed int64, logger zerolog.Logger) *Engine {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Engine{
		catalog: ix,
		logger:  logger,
		rng:     rand.New(rand.NewSource(seed)),
	}
}

// Recommend runs the staged pipeline and returns one unseen song, a seen
// song when everything is exhausted, or ErrNoMatch.
func (e *Engine) Recommend(req Request) (Result, error) {
	mood := req.Mood
	if _, ok := moodVectors[mood]; !ok && mood != "" {
		mood = preference.NormalizeMood(mood)
	}

	artistQuery := strings.TrimSpace(req.ArtistOrSong)
	excludeArtist := ""
	if artistQuery != "" && isSimilarityRequest(artistQuery) {
		if artist, ok := e.catalog.ResolveArtist(artistQuery); ok {
			// Similarity-seeking: search the whole catalog but keep the
			// named artist out of the results.
			excludeArtist = artist
			artistQuery = ""
		}
	}

	candidates := e.stage(artistQuery, req.Genre, req.Tempo, excludeArtist, true, true)
	if len(candidates) == 0 {
		candidates = e.stage(artistQuery, req.Genre, req.Tempo, excludeArtist, false, true)
	}
	if len(candidates) == 0 {
		candidates = e.stage(artistQuery, req.Genre, req.Tempo, excludeArtist, false, false)
	}

	var top catalog.Track
	if len(candidates) > 0 {
		ranked := rank(candidates, mood)
		top = firstUnseen(ranked, req.History)
	} else {
		track, err := e.bucketFallback(req, mood)
		if err != nil {
			return Result{}, err
		}
		top = track
	}

	res := Result{
		TrackID: top.ID,
		Song:    top.Title,
		Artist:  top.Artist,
		Genre:   top.Genre,
		Mood:    mood,
		Tempo:   catalog.CategoryForBPM(top.TempoBPM),
	}
	if res.Mood == "" {
		res.Mood = top.Mood
	}

	if artistQuery != "" && !strings.EqualFold(top.Artist, artistQuery) {
		res.ArtistNotFound = true
		res.RequestedArtist = artistQuery
	}

	e.logger.Debug().
		Str("song", res.Song).
		Str("artist", res.Artist).
		Bool("artist_not_found", res.ArtistNotFound).
		Msg("recommendation selected")

	return res, nil
}

// stage applies one relaxation stage. The artist filter and exclusion apply
// at every stage; tempo and genre are dropped in turn as withTempo and
// withGenre are cleared, so a relaxed stage always covers a stricter one.
func (e *Engine) stage(artistQuery, genre, tempo, excludeArtist string, withTempo, withGenre bool) []catalog.Track {
	genre = strings.ToLower(strings.TrimSpace(genre))
	if !withGenre {
		genre = ""
	}
	// An unparseable tempo string is recovered silently as a wildcard.
	tempoCat, _ := catalog.ParseTempoCategory(tempo)
	if !withTempo {
		tempoCat = ""
	}

	if artistQuery == "" && excludeArtist == "" {
		return e.catalog.Filter(genre, tempoCat)
	}

	tracks := e.catalog.All()
	if artistQuery != "" {
		tracks = e.catalog.MatchText(artistQuery)
	}

	var out []catalog.Track
	for _, t := range tracks {
		if genre != "" && t.Genre != genre {
			continue
		}
		if tempoCat != "" && t.Tempo != tempoCat {
			continue
		}
		if excludeArtist != "" && strings.EqualFold(t.Artist, excludeArtist) {
			continue
		}
		out = append(out, t)
	}
	return out
}

// rank orders candidates by cosine similarity to the mood's reference vector
// when the mood is canonical, by popularity otherwise. Ties break on
// popularity then title so ranking is deterministic.
func rank(tracks []catalog.Track, mood string) []catalog.Track {
	ranked := append([]catalog.Track(nil), tracks...)
	vec, hasMood := moodVectors[mood]

	if hasMood {
		sort.SliceStable(ranked, func(i, j int) bool {
			si := cosine(vec, ranked[i].Features)
			sj := cosine(vec, ranked[j].Features)
			if si != sj {
				return si > sj
			}
			if ranked[i].Popularity != ranked[j].Popularity {
				return ranked[i].Popularity > ranked[j].Popularity
			}
			return ranked[i].Title < ranked[j].Title
		})
		return ranked
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Popularity != ranked[j].Popularity {
			return ranked[i].Popularity > ranked[j].Popularity
		}
		return ranked[i].Title < ranked[j].Title
	})
	return ranked
}

// firstUnseen walks the ranked list and returns the first track not in
// history; when everything has been shown a repeat of the top pick is
// preferred over returning nothing.
func firstUnseen(ranked []catalog.Track, history []HistoryEntry) catalog.Track {
	for _, t := range ranked {
		if !inHistory(history, t) {
			return t
		}
	}
	return ranked[0]
}

func inHistory(history []HistoryEntry, t catalog.Track) bool {
	for _, h := range history {
		if strings.EqualFold(h.Song, t.Title) && strings.EqualFold(h.Artist, t.Artist) {
			return true
		}
	}
	return false
}

// bucketFallback keys into the precomputed bucket map with coarse defaults
// for any wildcard field and picks randomly, preferring unseen entries.
func (e *Engine) bucketFallback(req Request, mood string) (catalog.Track, error) {
	genre := strings.ToLower(strings.TrimSpace(req.Genre))
	if genre == "" {
		genre = fallbackGenre
	}
	if mood == "" {
		mood = fallbackMood
	}
	tempoCat, ok := catalog.ParseTempoCategory(req.Tempo)
	if !ok {
		tempoCat = fallbackTempo
	}

	bucket := e.catalog.Bucket(genre, mood, fallbackEnergy, tempoCat)
	if len(bucket) == 0 {
		return catalog.Track{}, ErrNoMatch
	}

	var unseen []catalog.Track
	for _, t := range bucket {
		if !inHistory(req.History, t) {
			unseen = append(unseen, t)
		}
	}

	pool := unseen
	if len(pool) == 0 {
		pool = bucket
	}

	e.mu.Lock()
	pick := pool[e.rng.Intn(len(pool))]
	e.mu.Unlock()

	e.logger.Debug().
		Str("genre", genre).
		Str("mood", mood).
		Str("tempo", string(tempoCat)).
		Int("bucket_size", len(bucket)).
		Msg("bucket fallback used")

	return pick, nil
}

func isSimilarityRequest(artistPref string) bool {
	lowered := strings.ToLower(artistPref)
	for _, kw := range similarityKeywords {
		if strings.Contains(lowered, kw) {
			return true
		}
	}
	return false
}

func cosine(a, b [catalog.FeatureCount]float64) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
