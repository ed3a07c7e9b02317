// SPDX-License-Identifier: MPL-2.0

// Package config handles application configuration using Viper with CUE as the file format.
//
// Configuration is loaded from ~/.config/pipstage/config.cue (or XDG equivalent on Linux,
// ~/Library/Application Support/pipstage/config.cue on macOS, %APPDATA%\pipstage\config.cue
// on Windows). The package provides type-safe configuration access covering container
// engine selection, the default build target, UI settings, and build behavior.
//
// Configuration validation is performed against a CUE schema (config_schema.cue) to ensure
// type safety and provide clear error messages for invalid configurations.
package config
