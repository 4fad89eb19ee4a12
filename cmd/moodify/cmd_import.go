/*
Copyright (C) 2026 Moodify HQ

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/moodifyhq/moodify/internal/catalog"
	"github.com/moodifyhq/moodify/internal/db"
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import the song catalog from a CSV dataset",
	Long:  "Import songs with audio features (valence, energy, danceability, acousticness, tempo) from a CSV file into the catalog database",
	RunE:  runImport,
}

var importFilePath string

func init() {
	rootCmd.AddCommand(importCmd)

	importCmd.Flags().StringVar(&importFilePath, "file", "", "Path to the songs CSV file (required)")
	importCmd.MarkFlagRequired("file")
}

func runImport(cmd *cobra.Command, args []string) error {
	if err := loadConfig(); err != nil {
		return err
	}

	logger.Info().Str("file", importFilePath).Msg("starting catalog import")

	database, err := initDatabase()
	if err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}
	defer db.Close(database)

	if err := db.Migrate(database); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}

	stats, err := catalog.ImportCSVFile(database, importFilePath, logger)
	if err != nil {
		return fmt.Errorf("import catalog: %w", err)
	}

	fmt.Printf("\nImport Complete!\n")
	fmt.Printf("  Songs:   %d imported\n", stats.Imported)
	fmt.Printf("  Skipped: %d rows\n", stats.Skipped)

	logger.Info().
		Int("imported", stats.Imported).
		Int("skipped", stats.Skipped).
		Msg("catalog import completed")
	return nil
}
