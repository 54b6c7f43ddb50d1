// tata - chat synthesis for OpenAI-compatible endpoints.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/jeranaias/tata/internal/chat"
	"github.com/jeranaias/tata/internal/cli"
	"github.com/jeranaias/tata/internal/cloud"
	"github.com/jeranaias/tata/internal/config"
	"github.com/jeranaias/tata/internal/notify"
	"github.com/jeranaias/tata/internal/store"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func main() {
	// A .env beside the binary seeds TATA_* overrides; absence is fine.
	_ = godotenv.Load()

	cfg := config.Global()
	log := newLogger(cfg.Log)
	log.Debug().
		Str("version", Version).
		Str("commit", GitCommit).
		Str("built", BuildDate).
		Msg("starting tata")

	// =========================================================================
	// PERSISTENCE
	// =========================================================================
	dbPath := cfg.Storage.DatabasePath
	if dbPath == "" {
		p, err := config.DefaultDatabasePath()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: cannot resolve database path: %v\n", err)
			os.Exit(1)
		}
		dbPath = p
	}

	db, err := store.OpenDB(dbPath)
	if err != nil {
		// Sessions won't survive restarts, but the app still works.
		log.Warn().Err(err).Str("path", dbPath).Msg("database unavailable, running in-memory")
		db = nil
	} else {
		defer db.Close()
	}

	st, err := store.New(db)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: cannot load session store: %v\n", err)
		os.Exit(1)
	}
	st.WithLogger(log)

	// =========================================================================
	// SYNTHESIS PIPELINE
	// =========================================================================
	center := notify.NewCenter().WithLogger(log)

	client, stream := buildClient(cfg)
	client.WithLogger(log)
	orch := chat.NewOrchestrator(st, client, center).
		WithStreaming(stream).
		WithLogger(log)

	// Hot reload: edits to the config file swap the endpoint client
	// under running cycles.
	watcher, err := config.NewWatcher(func(c *config.Config) {
		cl, str := buildClient(c)
		cl.WithLogger(log)
		orch.Reconfigure(cl, str)
		log.Info().Str("key", cl.KeyFingerprint()).Msg("configuration reloaded")
	})
	if err != nil {
		log.Warn().Err(err).Msg("config hot reload unavailable")
	} else {
		if werr := watcher.Watch(); werr != nil {
			log.Warn().Err(werr).Msg("config hot reload unavailable")
		}
		defer watcher.Close()
	}

	app := cli.New(st, orch, center).WithLogger(log)
	if err := app.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// buildClient constructs the endpoint client from the active profile.
func buildClient(cfg *config.Config) (*cloud.Client, bool) {
	profile, ok := cfg.Active()
	if !ok {
		return cloud.NewClient(""), false
	}

	client := cloud.NewClient(profile.APIKey)
	if profile.BaseURL != "" {
		client.WithBaseURL(profile.BaseURL)
	}
	if profile.Model != "" {
		client.WithModel(profile.Model)
	}
	if profile.Temperature != 0 {
		client.WithTemperature(profile.Temperature)
	}
	if profile.MaxTokens != 0 {
		client.WithMaxTokens(profile.MaxTokens)
	}
	return client, profile.Stream
}

// newLogger builds the process logger from the log section.
func newLogger(lc config.LogConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(lc.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	var out io.Writer = os.Stderr
	if lc.Path != "" {
		if f, ferr := os.OpenFile(lc.Path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600); ferr == nil {
			out = f
		}
	}
	if lc.Format != "json" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen}
	}

	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}
