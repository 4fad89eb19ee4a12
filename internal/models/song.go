/*
Copyright (C) 2026 Moodify HQ

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package models

import "time"

// Song is one row of the static catalog. Rows are written by the import
// command and never mutated by the server.
type Song struct {
	ID           string  `gorm:"primaryKey" json:"id"`
	Title        string  `gorm:"index;not null" json:"title"`
	Artist       string  `gorm:"index;not null" json:"artist"`
	Genre        string  `gorm:"index" json:"genre"`
	ModeCategory string  `json:"mode_category"` // combined mood/energy label, e.g. "happy/energetic"
	Tempo        float64 `json:"tempo"`         // raw BPM
	Valence      float64 `json:"valence"`
	Energy       float64 `json:"energy"`
	Danceability float64 `json:"danceability"`
	Acousticness float64 `json:"acousticness"`
	Popularity   float64 `json:"popularity"` // 0-100

	ImportedAt time.Time `gorm:"autoCreateTime" json:"imported_at"`
}
