/*
Copyright (C) 2026 Moodify HQ

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package preference

import "strings"

// Extraction is the structured guess of the external text-to-preferences
// collaborator. Nil fields mean the collaborator saw nothing for them.
type Extraction struct {
	Genre        *string `json:"genre"`
	Mood         *string `json:"mood"`
	Tempo        *string `json:"tempo"`
	ArtistOrSong *string `json:"artist_or_song"`
}

// IsEmpty reports whether the extraction carries no concrete field at all.
func (e Extraction) IsEmpty() bool {
	return deref(e.Genre) == "" && deref(e.Mood) == "" && deref(e.Tempo) == "" && deref(e.ArtistOrSong) == ""
}

func (e Extraction) field(f Field) string {
	switch f {
	case FieldGenre:
		return deref(e.Genre)
	case FieldMood:
		return deref(e.Mood)
	case FieldTempo:
		return deref(e.Tempo)
	case FieldArtistOrSong:
		return deref(e.ArtistOrSong)
	}
	return ""
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return strings.TrimSpace(*p)
}

// nonePhrases classify a whole utterance as "explicitly no preference".
var nonePhrases = map[string]struct{}{
	"no":              {},
	"none":            {},
	"nah":             {},
	"nope":            {},
	"nothing":         {},
	"not really":      {},
	"anything":        {},
	"any":             {},
	"whatever":        {},
	"doesnt matter":   {},
	"doesn't matter":  {},
	"dont care":       {},
	"don't care":      {},
	"idc":             {},
	"no preference":   {},
	"no idea":         {},
	"surprise me":     {},
	"dealers choice":  {},
	"dealer's choice": {},
	"up to you":       {},
	"you choose":      {},
	"you pick":        {},
}

// IsNoneLike reports whether the utterance declines to state a preference.
func IsNoneLike(text string) bool {
	norm := strings.ToLower(strings.TrimSpace(text))
	norm = strings.Trim(norm, ".,!?")
	_, ok := nonePhrases[norm]
	return ok
}

// tempoAliases maps common tempo phrasings and misspellings to the canonical
// slow/medium/fast set.
var tempoAliases = map[string]string{
	"slow":        "slow",
	"slowly":      "slow",
	"slow-paced":  "slow",
	"slow paced":  "slow",
	"slowish":     "slow",
	"ballad":      "slow",
	"chill":       "slow",
	"relaxed":     "slow",
	"medium":      "medium",
	"meduim":      "medium",
	"mid":         "medium",
	"midtempo":    "medium",
	"mid-tempo":   "medium",
	"moderate":    "medium",
	"average":     "medium",
	"normal":      "medium",
	"fast":        "fast",
	"fastt":       "fast",
	"fast-paced":  "fast",
	"fast paced":  "fast",
	"quick":       "fast",
	"upbeat":      "fast",
	"up-tempo":    "fast",
	"uptempo":     "fast",
	"energetic":   "fast",
	"high energy": "fast",
}

// NormalizeTempo maps a tempo utterance to the canonical set. Unrecognized
// strings are returned unchanged in lowercase; the engine treats them as a
// non-matching filter and relaxes through its stages.
func NormalizeTempo(raw string) string {
	norm := strings.ToLower(strings.TrimSpace(raw))
	if canonical, ok := tempoAliases[norm]; ok {
		return canonical
	}
	return norm
}

// moodKeywords map free-text mood words onto the four canonical moods the
// engine has reference vectors for.
var moodKeywords = map[string]string{
	"happy":       "happy",
	"joy":         "happy",
	"joyful":      "happy",
	"glad":        "happy",
	"cheerful":    "happy",
	"upbeat":      "happy",
	"good":        "happy",
	"great":       "happy",
	"sad":         "sad",
	"down":        "sad",
	"blue":        "sad",
	"depressed":   "sad",
	"melancholy":  "sad",
	"melancholic": "sad",
	"gloomy":      "sad",
	"heartbroken": "sad",
	"heartbreak":  "sad",
	"emotional":   "sad",
	"crying":      "sad",
	"energetic":   "energetic",
	"hyped":       "energetic",
	"hype":        "energetic",
	"pumped":      "energetic",
	"excited":     "energetic",
	"party":       "energetic",
	"dance":       "energetic",
	"intense":     "energetic",
	"angry":       "energetic",
	"calm":        "calm",
	"chill":       "calm",
	"relaxed":     "calm",
	"relaxing":    "calm",
	"peaceful":    "calm",
	"mellow":      "calm",
	"tired":       "calm",
	"sleepy":      "calm",
	"focus":       "calm",
	"studying":    "calm",
}

// NormalizeMood maps a free-text mood onto the canonical set where possible.
// Unmapped moods are kept as lowercase free text; the engine then ranks by
// popularity instead of mood similarity.
func NormalizeMood(raw string) string {
	norm := strings.ToLower(strings.TrimSpace(raw))
	if canonical, ok := moodKeywords[norm]; ok {
		return canonical
	}
	// A multi-word mood like "a bit down" still maps if any word does.
	for _, word := range strings.Fields(norm) {
		if canonical, ok := moodKeywords[strings.Trim(word, ".,!?")]; ok {
			return canonical
		}
	}
	return norm
}

// KnownGenres is the fixed genre vocabulary of the catalog's source dataset.
var KnownGenres = []string{"pop", "rock", "rap", "latin", "r&b", "edm"}

var genreAliases = map[string]string{
	"hip hop":    "rap",
	"hip-hop":    "rap",
	"hiphop":     "rap",
	"rnb":        "r&b",
	"r and b":    "r&b",
	"electronic": "edm",
	"dance":      "edm",
	"house":      "edm",
	"techno":     "edm",
	"reggaeton":  "latin",
	"indie":      "rock",
	"metal":      "rock",
}

// NormalizeGenre maps genre phrasings onto the known-genre set where
// possible, keeping free text otherwise.
func NormalizeGenre(raw string) string {
	norm := strings.ToLower(strings.TrimSpace(raw))
	if canonical, ok := genreAliases[norm]; ok {
		return canonical
	}
	return norm
}

// ScanText keyword-matches a free-text message against the lexicons above.
// It backs up the language model: when extraction comes back empty, a plain
// "something happy and fast" still resolves.
func ScanText(text string) Extraction {
	var ex Extraction
	norm := strings.ToLower(text)

	for _, genre := range KnownGenres {
		if containsWord(norm, genre) {
			g := genre
			ex.Genre = &g
			break
		}
	}
	if ex.Genre == nil {
		for alias, genre := range genreAliases {
			if containsWord(norm, alias) {
				g := genre
				ex.Genre = &g
				break
			}
		}
	}

	for _, word := range strings.Fields(norm) {
		word = strings.Trim(word, ".,!?")
		if ex.Mood == nil {
			if mood, ok := moodKeywords[word]; ok {
				m := mood
				ex.Mood = &m
			}
		}
		if ex.Tempo == nil {
			if tempo, ok := tempoAliases[word]; ok {
				t := tempo
				ex.Tempo = &t
			}
		}
	}

	return ex
}

func containsWord(haystack, needle string) bool {
	idx := strings.Index(haystack, needle)
	if idx < 0 {
		return false
	}
	before := idx == 0 || !isWordChar(rune(haystack[idx-1]))
	end := idx + len(needle)
	after := end == len(haystack) || !isWordChar(rune(haystack[end]))
	return before && after
}

func isWordChar(r rune) bool {
	return r >= 'a' && r <= 'z' || r >= '0' && r <= '9'
}

func normalizeFor(f Field, raw string) string {
	switch f {
	case FieldTempo:
		return NormalizeTempo(raw)
	case FieldMood:
		return NormalizeMood(raw)
	case FieldGenre:
		return NormalizeGenre(raw)
	default:
		return strings.TrimSpace(raw)
	}
}

// Resolver reconciles extractor output, raw user text and the session's
// current preferences into an updated preference set.
type Resolver struct{}

// NewResolver creates a preference resolver.
func NewResolver() *Resolver {
	return &Resolver{}
}

// Apply merges one turn into the set and returns the fields changed.
//
// target names the field a pending clarification question asked about; the
// raw text is taken as that field's answer ("doesn't matter"-style answers
// mark it explicitly none). Extractor values always win newest-first,
// including over a previous explicit none. Fields the extractor leaves null
// are untouched.
func (r *Resolver) Apply(set *Set, ex Extraction, rawText string, target Field) []Field {
	var changed []Field
	mark := func(f Field) {
		for _, c := range changed {
			if c == f {
				return
			}
		}
		changed = append(changed, f)
	}

	if target != "" {
		if IsNoneLike(rawText) {
			if !set.Get(target).IsNone() {
				set.Put(target, None())
				mark(target)
			}
		} else if answer := strings.TrimSpace(rawText); answer != "" {
			value := normalizeFor(target, answer)
			if prev, ok := set.Get(target).Get(); !ok || prev != value {
				set.Put(target, Value(value))
				mark(target)
			}
		}
	}

	for _, f := range Fields {
		raw := ex.field(f)
		if raw == "" {
			continue
		}
		value := normalizeFor(f, raw)
		if value == "" {
			continue
		}
		if prev, ok := set.Get(f).Get(); ok && prev == value {
			continue
		}
		set.Put(f, Value(value))
		mark(f)
	}

	return changed
}
