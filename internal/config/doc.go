// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides unified configuration loading and management
// for tata.
//
// Supports both TOML and JSON configuration formats, with sensible
// defaults, environment variable overrides, and validation.
//
// # Key Types
//
//   - Config: Main configuration structure with all settings
//   - Profile: One API endpoint profile (base URL, key, model)
//   - StorageConfig: Database location
//   - LogConfig: Logging level, format and destination
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (TATA_*)
//   - ~/.tata/config.toml
//   - ~/.tata/config.json
//   - Built-in defaults
//
// # Usage
//
// Load configuration:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Access the active profile:
//
//	profile := cfg.Active()
//	client := cloud.NewClient(profile.APIKey).WithBaseURL(profile.BaseURL)
package config
