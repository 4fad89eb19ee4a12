/*
Copyright (C) 2026 Moodify HQ

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package preference models what a user wants to hear. Each of the four
// preference fields is a three-state option: unknown (ask the user),
// explicitly none (wildcard, never ask again), or a concrete value.
package preference

import "encoding/json"

// Field names one of the four preference dimensions.
type Field string

const (
	FieldGenre        Field = "genre"
	FieldMood         Field = "mood"
	FieldTempo        Field = "tempo"
	FieldArtistOrSong Field = "artist_or_song"
)

// Fields lists all preference fields in canonical asking order.
var Fields = []Field{FieldGenre, FieldMood, FieldTempo, FieldArtistOrSong}

type state int

const (
	stateUnknown state = iota
	stateNone
	stateSet
)

// Option is a preference field value with explicit-none tracking.
// The zero value is unknown.
type Option struct {
	st  state
	val string
}

// Unknown returns the not-yet-asked option.
func Unknown() Option { return Option{} }

// None returns the explicitly-declined option.
func None() Option { return Option{st: stateNone} }

// Value returns a concrete option.
func Value(v string) Option { return Option{st: stateSet, val: v} }

// IsUnknown reports whether the user has not been asked yet.
func (o Option) IsUnknown() bool { return o.st == stateUnknown }

// IsNone reports whether the user explicitly declined this field.
func (o Option) IsNone() bool { return o.st == stateNone }

// IsSet reports whether a concrete value is present.
func (o Option) IsSet() bool { return o.st == stateSet }

// Get returns the concrete value, if any.
func (o Option) Get() (string, bool) {
	return o.val, o.st == stateSet
}

// OrEmpty returns the concrete value or "" for unknown and none, which is
// how the recommendation engine spells a wildcard.
func (o Option) OrEmpty() string {
	if o.st == stateSet {
		return o.val
	}
	return ""
}

type optionJSON struct {
	State string `json:"state"`
	Value string `json:"value,omitempty"`
}

// MarshalJSON serializes the option for the session debug endpoint.
func (o Option) MarshalJSON() ([]byte, error) {
	out := optionJSON{State: "unknown"}
	switch o.st {
	case stateNone:
		out.State = "none"
	case stateSet:
		out.State = "set"
		out.Value = o.val
	}
	return json.Marshal(out)
}

// UnmarshalJSON restores an option serialized by MarshalJSON.
func (o *Option) UnmarshalJSON(data []byte) error {
	var in optionJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	switch in.State {
	case "none":
		*o = None()
	case "set":
		*o = Value(in.Value)
	default:
		*o = Unknown()
	}
	return nil
}

// Set holds the four preference fields of one session.
type Set struct {
	Genre        Option `json:"genre"`
	Mood         Option `json:"mood"`
	Tempo        Option `json:"tempo"`
	ArtistOrSong Option `json:"artist_or_song"`
}

// Get returns the option for a field.
func (s *Set) Get(f Field) Option {
	switch f {
	case FieldGenre:
		return s.Genre
	case FieldMood:
		return s.Mood
	case FieldTempo:
		return s.Tempo
	case FieldArtistOrSong:
		return s.ArtistOrSong
	}
	return Unknown()
}

// Put replaces the option for a field.
func (s *Set) Put(f Field, o Option) {
	switch f {
	case FieldGenre:
		s.Genre = o
	case FieldMood:
		s.Mood = o
	case FieldTempo:
		s.Tempo = o
	case FieldArtistOrSong:
		s.ArtistOrSong = o
	}
}

// Missing returns the fields still unknown, in canonical asking order.
// Explicitly-none fields are settled and never reported missing.
func (s *Set) Missing() []Field {
	var out []Field
	for _, f := range Fields {
		if s.Get(f).IsUnknown() {
			out = append(out, f)
		}
	}
	return out
}

// Complete reports whether every field is either set or explicitly none.
func (s *Set) Complete() bool {
	return len(s.Missing()) == 0
}
