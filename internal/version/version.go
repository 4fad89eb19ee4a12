/*
Copyright (C) 2026 Moodify HQ

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package version provides build version information.
package version

// Version is the current version of Moodify.
// This is set at build time via ldflags:
//
//	-X github.com/moodifyhq/moodify/internal/version.Version=X.Y.Z
var Version = "0.3.0"

// Commit is the git commit the binary was built from, set via ldflags.
var Commit = "unknown"
