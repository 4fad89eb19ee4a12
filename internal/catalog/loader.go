/*
Copyright (C) 2026 Moodify HQ

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package catalog

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/moodifyhq/moodify/internal/models"
)

// Column names accepted in the source CSV. The required set is a startup
// precondition; rows missing feature values are dropped individually.
var requiredColumns = []string{
	"track_name",
	"track_artist",
	"playlist_genre",
	"tempo",
	"valence",
	"energy",
	"danceability",
	"acousticness",
}

// ImportStats summarizes a catalog import.
type ImportStats struct {
	Imported int
	Skipped  int
}

// ImportCSVFile reads a catalog CSV from disk and upserts it into the songs
// table.
func ImportCSVFile(db *gorm.DB, path string, logger zerolog.Logger) (ImportStats, error) {
	f, err := os.Open(path)
	if err != nil {
		return ImportStats{}, fmt.Errorf("open catalog csv: %w", err)
	}
	defer f.Close()
	return ImportCSV(db, f, logger)
}

// ImportCSV parses the catalog CSV and upserts the usable rows.
func ImportCSV(db *gorm.DB, r io.Reader, logger zerolog.Logger) (ImportStats, error) {
	songs, stats, err := parseCSV(r)
	if err != nil {
		return ImportStats{}, err
	}

	if len(songs) > 0 {
		err = db.Clauses(clause.OnConflict{UpdateAll: true}).CreateInBatches(songs, 500).Error
		if err != nil {
			return ImportStats{}, fmt.Errorf("write songs: %w", err)
		}
	}

	logger.Info().
		Int("imported", stats.Imported).
		Int("skipped", stats.Skipped).
		Msg("catalog import complete")

	return stats, nil
}

func parseCSV(r io.Reader) ([]models.Song, ImportStats, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, ImportStats{}, fmt.Errorf("read csv header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}

	var missing []string
	for _, name := range requiredColumns {
		if _, ok := cols[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, ImportStats{}, fmt.Errorf("catalog csv missing required columns: %s", strings.Join(missing, ", "))
	}

	field := func(record []string, name string) string {
		idx, ok := cols[name]
		if !ok || idx >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[idx])
	}

	var songs []models.Song
	var stats ImportStats
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			stats.Skipped++
			continue
		}

		title := field(record, "track_name")
		artist := field(record, "track_artist")
		if title == "" || artist == "" {
			stats.Skipped++
			continue
		}

		tempo, tempoErr := strconv.ParseFloat(field(record, "tempo"), 64)
		valence, vErr := strconv.ParseFloat(field(record, "valence"), 64)
		energy, eErr := strconv.ParseFloat(field(record, "energy"), 64)
		dance, dErr := strconv.ParseFloat(field(record, "danceability"), 64)
		acoustic, aErr := strconv.ParseFloat(field(record, "acousticness"), 64)
		if tempoErr != nil || vErr != nil || eErr != nil || dErr != nil || aErr != nil || tempo <= 0 {
			stats.Skipped++
			continue
		}

		id := field(record, "track_id")
		if id == "" {
			id = uuid.NewString()
		}

		mode := field(record, "mode_category")
		if mode == "" {
			mode = field(record, "mood")
		}

		popularity, _ := strconv.ParseFloat(firstNonEmpty(field(record, "track_popularity"), field(record, "popularity")), 64)

		songs = append(songs, models.Song{
			ID:           id,
			Title:        title,
			Artist:       artist,
			Genre:        field(record, "playlist_genre"),
			ModeCategory: mode,
			Tempo:        tempo,
			Valence:      valence,
			Energy:       energy,
			Danceability: dance,
			Acousticness: acoustic,
			Popularity:   popularity,
		})
		stats.Imported++
	}

	return songs, stats, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
