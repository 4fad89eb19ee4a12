/*
Copyright (C) 2026 Moodify HQ

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package dialogue

import (
	"fmt"
	"strings"

	"github.com/moodifyhq/moodify/internal/preference"
	"github.com/moodifyhq/moodify/internal/recommend"
)

// greetings are openers that get a welcome back instead of a preference
// parse.
var greetings = map[string]struct{}{
	"hi":             {},
	"hello":          {},
	"hey":            {},
	"yo":             {},
	"sup":            {},
	"what's up":      {},
	"whats up":       {},
	"good morning":   {},
	"good afternoon": {},
	"good evening":   {},
	"howdy":          {},
}

const greetingReply = "Hey there! I'm Moodify, your music matchmaker. " +
	"Tell me what you're in the mood for, like a genre, a vibe, or an artist you love, and I'll find you a song."

// questionPrompts ask for one missing preference each. The highlighted
// examples are rendered by the web client.
var questionPrompts = map[preference.Field]string{
	preference.FieldGenre: "What genre are you in the mood for? " +
		"For example <span style='color:green'>pop, rock, rap, latin, r&b or edm</span>. " +
		"Say <span style='color:green'>any</span> if you don't mind.",
	preference.FieldMood: "How are you feeling right now? " +
		"Something like <span style='color:green'>happy, sad, energetic or calm</span>, or <span style='color:green'>any</span>.",
	preference.FieldTempo: "Do you want something <span style='color:green'>slow, medium or fast</span>? " +
		"Say <span style='color:green'>any</span> if tempo doesn't matter.",
	preference.FieldArtistOrSong: "Any artist or song you'd like this to sound like? " +
		"You can also say <span style='color:green'>no preference</span>.",
}

const feedbackPrompt = "Was that a good fit for you?"

const feedbackThanks = "Glad you liked it! Tell me a new mood, genre or artist whenever you want another song."

const noMatchReply = "I'm sorry, I couldn't find a song matching that artist or track in my catalog. " +
	"Could you try a different artist, or say <span style='color:green'>no preference</span>?"

const nothingYetReply = "I haven't recommended anything yet. Tell me a genre, mood or artist and I'll get started."

const offTopicReply = "Sorry, I can't help with that. Let's get back to your music vibe: " +
	"what kind of mood or song are you into?"

const changePrompt = "Sure, what would you like to change? You can say " +
	"<span style='color:green'>change genre</span>, <span style='color:green'>change mood</span>, " +
	"<span style='color:green'>change tempo</span> or <span style='color:green'>change artist</span>."

const helpReply = "Here's what I can do: tell me a genre, mood, tempo or artist and I'll recommend a song. " +
	"Use <span style='color:green'>/another</span> for a different song, " +
	"<span style='color:green'>/change</span> to adjust a preference, or " +
	"<span style='color:green'>/reset</span> to start over."

const resetReply = "Done, clean slate! What kind of music are you in the mood for?"

// fallbackTemplates phrase a recommendation when no language model is
// available.
var fallbackTemplates = []string{
	"How about %q by %s? It should match the %s vibe you're after.",
	"Give %q by %s a spin, I think it fits your %s mood nicely.",
	"You might enjoy %q by %s, a solid pick for feeling %s.",
}

// renderFallback deterministically picks a template so repeated turns don't
// read identically.
func renderFallback(res recommend.Result, turn int) string {
	tpl := fallbackTemplates[turn%len(fallbackTemplates)]
	mood := res.Mood
	if mood == "" {
		mood = string(res.Tempo)
	}
	return fmt.Sprintf(tpl, res.Song, res.Artist, mood)
}

func artistNotFoundPreamble(requested string) string {
	return fmt.Sprintf("I couldn't find anything by %s in my catalog, so here's something close. ", requested)
}

// musicKeywords decide whether a free turn that extracted nothing is about
// music at all.
var musicKeywords = []string{"music", "song", "artist", "genre", "playlist", "recommend", "mood", "tempo"}

func isMusicRelated(message string) bool {
	lowered := strings.ToLower(message)
	for _, kw := range musicKeywords {
		if strings.Contains(lowered, kw) {
			return true
		}
	}
	return false
}

func isGreeting(message string) bool {
	norm := strings.ToLower(strings.TrimSpace(message))
	norm = strings.Trim(norm, "!.? ")
	_, ok := greetings[norm]
	return ok
}

// affirmatives and negatives interpret the answer to the feedback prompt.
var affirmatives = map[string]struct{}{
	"yes":        {},
	"yeah":       {},
	"yep":        {},
	"yup":        {},
	"sure":       {},
	"good":       {},
	"great":      {},
	"perfect":    {},
	"loved it":   {},
	"love it":    {},
	"like it":    {},
	"liked it":   {},
	"nice":       {},
	"awesome":    {},
	"thanks":     {},
	"thank you":  {},
	"that works": {},
}

var negatives = map[string]struct{}{
	"no":             {},
	"nope":           {},
	"nah":            {},
	"not really":     {},
	"didn't like":    {},
	"didnt like":     {},
	"don't like":     {},
	"dont like":      {},
	"not a fan":      {},
	"something else": {},
	"another":        {},
	"another one":    {},
	"next":           {},
}

func isAffirmative(message string) bool {
	norm := strings.ToLower(strings.TrimSpace(message))
	norm = strings.Trim(norm, "!.? ")
	_, ok := affirmatives[norm]
	return ok
}

func isNegative(message string) bool {
	norm := strings.ToLower(strings.TrimSpace(message))
	norm = strings.Trim(norm, "!.? ")
	if _, ok := negatives[norm]; ok {
		return true
	}
	for phrase := range negatives {
		if len(phrase) > 4 && strings.Contains(norm, phrase) {
			return true
		}
	}
	return false
}
