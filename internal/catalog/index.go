/*
Copyright (C) 2026 Moodify HQ

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package catalog owns the static song table: it loads songs once at startup,
// normalizes their audio features, and answers filter, bucket and text-lookup
// queries for the recommendation engine. The index is read-only after load
// and safe for concurrent use without locking.
package catalog

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/moodifyhq/moodify/internal/models"
)

// ErrEmptyCatalog indicates no usable songs were found at startup.
var ErrEmptyCatalog = errors.New("catalog contains no usable songs")

// TempoCategory buckets raw BPM into the three categories users speak in.
type TempoCategory string

const (
	TempoSlow   TempoCategory = "slow"
	TempoMedium TempoCategory = "medium"
	TempoFast   TempoCategory = "fast"
)

// CategoryForBPM derives the tempo category from raw BPM.
// Slow is below 90, medium 90-120, fast above 120.
func CategoryForBPM(bpm float64) TempoCategory {
	switch {
	case bpm < 90:
		return TempoSlow
	case bpm <= 120:
		return TempoMedium
	default:
		return TempoFast
	}
}

// ParseTempoCategory validates a canonical tempo string.
func ParseTempoCategory(s string) (TempoCategory, bool) {
	switch TempoCategory(strings.ToLower(strings.TrimSpace(s))) {
	case TempoSlow:
		return TempoSlow, true
	case TempoMedium:
		return TempoMedium, true
	case TempoFast:
		return TempoFast, true
	}
	return "", false
}

// FeatureCount is the number of normalized audio features per track:
// valence, energy, danceability, acousticness, tempo.
const FeatureCount = 5

// Track is an immutable catalog row with precomputed derived fields.
type Track struct {
	ID          string
	Title       string
	Artist      string
	Genre       string
	Mood        string // first half of the combined mode_category label
	EnergyLabel string // second half of the combined mode_category label
	TempoBPM    float64
	Tempo       TempoCategory
	Features    [FeatureCount]float64 // min-max normalized over the catalog
	Popularity  float64
}

type bucketKey struct {
	Genre  string
	Mood   string
	Energy string
	Tempo  TempoCategory
}

// Index is the in-memory catalog.
type Index struct {
	tracks  []Track
	buckets map[bucketKey][]int
	artists []string
	logger  zerolog.Logger
}

// Load reads every song row and builds the index. Called once at startup;
// an unusable catalog is a fatal precondition failure, not a runtime error.
func Load(db *gorm.DB, logger zerolog.Logger) (*Index, error) {
	var songs []models.Song
	if err := db.Find(&songs).Error; err != nil {
		return nil, fmt.Errorf("load songs: %w", err)
	}
	return NewIndex(songs, logger)
}

// NewIndex builds the catalog index from raw song rows.
func NewIndex(songs []models.Song, logger zerolog.Logger) (*Index, error) {
	raw := make([]models.Song, 0, len(songs))
	for _, s := range songs {
		if s.Title == "" || s.Artist == "" || s.Tempo <= 0 {
			continue
		}
		raw = append(raw, s)
	}
	if len(raw) == 0 {
		return nil, ErrEmptyCatalog
	}

	mins := [FeatureCount]float64{}
	maxs := [FeatureCount]float64{}
	for i := range mins {
		mins[i] = math.MaxFloat64
		maxs[i] = -math.MaxFloat64
	}
	for _, s := range raw {
		for i, v := range rawFeatures(s) {
			if v < mins[i] {
				mins[i] = v
			}
			if v > maxs[i] {
				maxs[i] = v
			}
		}
	}

	ix := &Index{
		buckets: make(map[bucketKey][]int),
		logger:  logger,
	}

	seenArtists := make(map[string]struct{})
	for _, s := range raw {
		mood, energy := splitModeCategory(s.ModeCategory)
		track := Track{
			ID:          s.ID,
			Title:       s.Title,
			Artist:      s.Artist,
			Genre:       strings.ToLower(strings.TrimSpace(s.Genre)),
			Mood:        mood,
			EnergyLabel: energy,
			TempoBPM:    s.Tempo,
			Tempo:       CategoryForBPM(s.Tempo),
			Popularity:  s.Popularity,
		}
		for i, v := range rawFeatures(s) {
			if span := maxs[i] - mins[i]; span > 0 {
				track.Features[i] = (v - mins[i]) / span
			}
		}

		idx := len(ix.tracks)
		ix.tracks = append(ix.tracks, track)
		ix.buckets[keyFor(track)] = append(ix.buckets[keyFor(track)], idx)

		norm := normalizeMatchText(track.Artist)
		if _, ok := seenArtists[norm]; !ok && norm != "" {
			seenArtists[norm] = struct{}{}
			ix.artists = append(ix.artists, track.Artist)
		}
	}

	logger.Info().
		Int("tracks", len(ix.tracks)).
		Int("buckets", len(ix.buckets)).
		Int("artists", len(ix.artists)).
		Msg("catalog index built")

	return ix, nil
}

func rawFeatures(s models.Song) [FeatureCount]float64 {
	return [FeatureCount]float64{s.Valence, s.Energy, s.Danceability, s.Acousticness, s.Tempo}
}

func keyFor(t Track) bucketKey {
	return bucketKey{
		Genre:  t.Genre,
		Mood:   t.Mood,
		Energy: t.EnergyLabel,
		Tempo:  t.Tempo,
	}
}

// splitModeCategory splits a combined label like "happy/energetic" into its
// mood and energy halves. Labels with a single part carry no energy half.
func splitModeCategory(label string) (mood, energy string) {
	label = strings.ToLower(strings.TrimSpace(label))
	if label == "" {
		return "", ""
	}
	parts := strings.FieldsFunc(label, func(r rune) bool {
		return r == '/' || r == '_' || r == '-' || r == ' '
	})
	if len(parts) == 0 {
		return "", ""
	}
	mood = parts[0]
	if len(parts) > 1 {
		energy = parts[1]
	}
	return mood, energy
}

// Size returns the number of indexed tracks.
func (ix *Index) Size() int {
	return len(ix.tracks)
}

// All returns every indexed track. The slice is shared and must be treated
// as read-only.
func (ix *Index) All() []Track {
	return ix.tracks
}

// Artists returns the distinct artist names of the catalog.
func (ix *Index) Artists() []string {
	return ix.artists
}

// Filter returns tracks matching the given genre and tempo category.
// Empty arguments are wildcards.
func (ix *Index) Filter(genre string, tempo TempoCategory) []Track {
	genre = strings.ToLower(strings.TrimSpace(genre))
	var out []Track
	for _, t := range ix.tracks {
		if genre != "" && t.Genre != genre {
			continue
		}
		if tempo != "" && t.Tempo != tempo {
			continue
		}
		out = append(out, t)
	}
	return out
}

// Bucket returns the precomputed fallback bucket for the given coarse key.
func (ix *Index) Bucket(genre, mood, energy string, tempo TempoCategory) []Track {
	key := bucketKey{
		Genre:  strings.ToLower(strings.TrimSpace(genre)),
		Mood:   strings.ToLower(strings.TrimSpace(mood)),
		Energy: strings.ToLower(strings.TrimSpace(energy)),
		Tempo:  tempo,
	}
	idxs := ix.buckets[key]
	if len(idxs) == 0 {
		return nil
	}
	out := make([]Track, 0, len(idxs))
	for _, i := range idxs {
		out = append(out, ix.tracks[i])
	}
	return out
}

// MatchText returns the subset of tracks whose artist or title fuzzily
// matches the query, best matches first. Returns nil when nothing clears
// the match threshold.
func (ix *Index) MatchText(query string) []Track {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}

	type scored struct {
		idx   int
		score float64
	}
	var matches []scored
	for i, t := range ix.tracks {
		score := matchScore(query, t.Artist)
		if s := matchScore(query, t.Title); s > score {
			score = s
		}
		if score >= matchThreshold {
			matches = append(matches, scored{idx: i, score: score})
		}
	}
	if len(matches) == 0 {
		return nil
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].score != matches[j].score {
			return matches[i].score > matches[j].score
		}
		return ix.tracks[matches[i].idx].Popularity > ix.tracks[matches[j].idx].Popularity
	})

	out := make([]Track, 0, len(matches))
	for _, m := range matches {
		out = append(out, ix.tracks[m.idx])
	}
	return out
}

// ResolveArtist finds a known catalog artist mentioned inside free text,
// e.g. "similar to Adele" resolves to "Adele". Longer artist names win so
// "The Weeknd" is preferred over a shorter accidental substring.
func (ix *Index) ResolveArtist(text string) (string, bool) {
	norm := normalizeMatchText(text)
	if norm == "" {
		return "", false
	}
	best := ""
	for _, artist := range ix.artists {
		na := normalizeMatchText(artist)
		if na == "" || !strings.Contains(norm, na) {
			continue
		}
		if len(artist) > len(best) {
			best = artist
		}
	}
	return best, best != ""
}

const matchThreshold = 0.6

var matchNormalizer = strings.NewReplacer(
	" ", "",
	".", "",
	"-", "",
	"_", "",
	"'", "",
	"\"", "",
	"/", "",
	"\\", "",
	"(", "",
	")", "",
	"[", "",
	"]", "",
	",", "",
	";", "",
	":", "",
	"!", "",
	"?", "",
)

func normalizeMatchText(s string) string {
	return matchNormalizer.Replace(strings.ToLower(strings.TrimSpace(s)))
}

// matchScore rates how well a free-text query matches a candidate name.
// 1.0 is an exact normalized match; containment and token overlap score
// proportionally lower.
func matchScore(query, candidate string) float64 {
	nq := normalizeMatchText(query)
	nc := normalizeMatchText(candidate)
	if nq == "" || nc == "" {
		return 0
	}
	if nq == nc {
		return 1
	}

	if strings.Contains(nc, nq) || strings.Contains(nq, nc) {
		shorter, longer := len(nq), len(nc)
		if shorter > longer {
			shorter, longer = longer, shorter
		}
		return 0.7 + 0.3*float64(shorter)/float64(longer)
	}

	qTokens := strings.Fields(strings.ToLower(query))
	cTokens := strings.Fields(strings.ToLower(candidate))
	if len(qTokens) == 0 || len(cTokens) == 0 {
		return 0
	}
	cSet := make(map[string]struct{}, len(cTokens))
	for _, tok := range cTokens {
		cSet[normalizeMatchText(tok)] = struct{}{}
	}
	hits := 0
	for _, tok := range qTokens {
		if _, ok := cSet[normalizeMatchText(tok)]; ok {
			hits++
		}
	}
	return 0.8 * float64(hits) / float64(len(qTokens))
}
