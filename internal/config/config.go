// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"

	"github.com/jeranaias/tata/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete tata configuration.
type Config struct {
	// Version of the config schema.
	Version string `toml:"version" json:"version"`

	// ActiveProfile is the id of the endpoint profile in use.
	ActiveProfile string `toml:"active_profile" json:"active_profile"`

	// Profiles are the configured chat-completion endpoints.
	Profiles []Profile `toml:"profiles" json:"profiles"`

	// Storage configuration.
	Storage StorageConfig `toml:"storage" json:"storage"`

	// Log configuration.
	Log LogConfig `toml:"log" json:"log"`
}

// Profile describes one OpenAI-compatible endpoint.
type Profile struct {
	// ID uniquely identifies the profile.
	ID string `toml:"id" json:"id"`
	// Name is the display name.
	Name string `toml:"name" json:"name"`
	// BaseURL is the endpoint base, without /chat/completions.
	BaseURL string `toml:"base_url" json:"base_url"`
	// APIKey is the bearer credential for the endpoint.
	APIKey string `toml:"api_key" json:"api_key"`
	// Model is the model identifier sent on every request.
	Model string `toml:"model" json:"model"`
	// Temperature is the sampling temperature (0 = use default).
	Temperature float64 `toml:"temperature" json:"temperature"`
	// MaxTokens bounds the completion length (0 = use default).
	MaxTokens int `toml:"max_tokens" json:"max_tokens"`
	// Stream selects SSE streaming over batch JSON.
	Stream bool `toml:"stream" json:"stream"`
}

// StorageConfig contains persistence configuration.
type StorageConfig struct {
	// DatabasePath is the SQLite database location (empty = default
	// ~/.tata/tata.db).
	DatabasePath string `toml:"database_path" json:"database_path"`
}

// LogConfig contains logging configuration.
type LogConfig struct {
	// Level is the minimum level: "debug", "info", "warn", "error".
	Level string `toml:"level" json:"level"`
	// Format is "console" or "json".
	Format string `toml:"format" json:"format"`
	// Path is the log file (empty = stderr).
	Path string `toml:"path" json:"path"`
}

// Default returns the built-in default configuration.
func Default() *Config {
	return &Config{
		Version: "1",
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// =============================================================================
// PATHS
// =============================================================================

// ConfigDir returns the tata configuration directory.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".tata"), nil
}

// ConfigPathTOML returns the path to the TOML config file.
func ConfigPathTOML() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// ConfigPathJSON returns the path to the JSON config file.
func ConfigPathJSON() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// DefaultDatabasePath returns the default SQLite location.
func DefaultDatabasePath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "tata.db"), nil
}

// EnsureConfigDir ensures the config directory exists.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0755)
}

// ensureSecurePermissions checks and fixes permissions on config
// files. Config files hold API keys and must stay owner-only.
func ensureSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if mode := info.Mode().Perm(); mode != 0600 {
		if err := os.Chmod(path, 0600); err != nil {
			return fmt.Errorf("failed to fix insecure permissions (was %o): %w", mode, err)
		}
	}
	return nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads configuration from the config file(s).
// Tries TOML first, then JSON, and falls back to defaults.
// Environment overrides are applied last.
func Load() (*Config, error) {
	cfg := Default()
	var loadErr error

	if tomlPath, err := ConfigPathTOML(); err == nil {
		if _, statErr := os.Stat(tomlPath); statErr == nil {
			if err := LoadTOML(cfg, tomlPath); err != nil {
				loadErr = fmt.Errorf("failed to load TOML config: %w", err)
			} else {
				return finishLoad(cfg)
			}
		}
	}

	if jsonPath, err := ConfigPathJSON(); err == nil {
		if _, statErr := os.Stat(jsonPath); statErr == nil {
			if err := LoadJSON(cfg, jsonPath); err != nil {
				loadErr = fmt.Errorf("failed to load JSON config: %w", err)
			} else {
				return finishLoad(cfg)
			}
		}
	}

	cfg, err := finishLoad(cfg)
	if err != nil {
		return nil, err
	}
	return cfg, loadErr
}

// finishLoad applies env overrides, defaults, and validation.
func finishLoad(cfg *Config) (*Config, error) {
	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadTOML loads configuration from a TOML file.
func LoadTOML(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to parse TOML: %w", err)
	}
	return nil
}

// LoadJSON loads configuration from a JSON file.
func LoadJSON(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse JSON: %w", err)
	}
	return nil
}

// LoadFromPath loads configuration from an explicit path, choosing the
// decoder by extension.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()
	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		err = LoadTOML(cfg, path)
	case ".json":
		err = LoadJSON(cfg, path)
	default:
		return nil, fmt.Errorf("unsupported config format: %s", path)
	}
	if err != nil {
		return nil, err
	}
	return finishLoad(cfg)
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save writes the configuration to the default TOML path.
func Save(cfg *Config) error {
	path, err := ConfigPathTOML()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML saves the configuration to a TOML file with owner-only
// permissions.
func SaveTOML(cfg *Config, path string) error {
	if err := EnsureConfigDir(); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()

	if err := os.Chmod(path, 0600); err != nil {
		return fmt.Errorf("failed to set config file permissions: %w", err)
	}

	fmt.Fprintln(file, "# tata configuration file")
	fmt.Fprintln(file, "# Generated by tata - edit with care")
	fmt.Fprintln(file, "")

	encoder := toml.NewEncoder(file)
	if err := encoder.Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// SaveJSON saves the configuration to a JSON file atomically with
// owner-only permissions.
func SaveJSON(cfg *Config, path string) error {
	if err := EnsureConfigDir(); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	var errs ValidateErrors

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Log.Level] {
		errs = append(errs, ValidationError{
			Field:   "log.level",
			Message: fmt.Sprintf("unknown level %q", c.Log.Level),
		})
	}
	if c.Log.Format != "console" && c.Log.Format != "json" {
		errs = append(errs, ValidationError{
			Field:   "log.format",
			Message: fmt.Sprintf("must be console or json, got %q", c.Log.Format),
		})
	}

	seen := make(map[string]bool)
	for i, p := range c.Profiles {
		field := fmt.Sprintf("profiles[%d]", i)
		if p.ID == "" {
			errs = append(errs, ValidationError{Field: field + ".id", Message: "must not be empty"})
		} else if seen[p.ID] {
			errs = append(errs, ValidationError{Field: field + ".id", Message: "duplicate id " + p.ID})
		}
		seen[p.ID] = true

		if p.BaseURL != "" {
			if u, err := url.Parse(p.BaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
				errs = append(errs, ValidationError{
					Field:   field + ".base_url",
					Message: fmt.Sprintf("must be an http(s) URL, got %q", p.BaseURL),
				})
			}
		}
		if p.Temperature < 0 || p.Temperature > 2 {
			errs = append(errs, ValidationError{
				Field:   field + ".temperature",
				Message: fmt.Sprintf("must be in [0, 2], got %g", p.Temperature),
			})
		}
		if p.MaxTokens < 0 {
			errs = append(errs, ValidationError{
				Field:   field + ".max_tokens",
				Message: fmt.Sprintf("must be >= 0, got %d", p.MaxTokens),
			})
		}
	}

	if c.ActiveProfile != "" && !seen[c.ActiveProfile] {
		errs = append(errs, ValidationError{
			Field:   "active_profile",
			Message: fmt.Sprintf("no profile with id %q", c.ActiveProfile),
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// SetDefaults fills empty fields with sensible values.
func (c *Config) SetDefaults() {
	if c.Version == "" {
		c.Version = "1"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "console"
	}
	if c.Storage.DatabasePath == "" {
		if path, err := DefaultDatabasePath(); err == nil {
			c.Storage.DatabasePath = path
		}
	}
	if c.ActiveProfile == "" && len(c.Profiles) > 0 {
		c.ActiveProfile = c.Profiles[0].ID
	}
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies TATA_* environment variables on top of the
// loaded configuration. Profile overrides target the active profile,
// creating an "env" profile when none exists.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("TATA_ACTIVE_PROFILE"); v != "" {
		c.ActiveProfile = v
	}
	if v := os.Getenv("TATA_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("TATA_LOG_FORMAT"); v != "" {
		c.Log.Format = v
	}
	if v := os.Getenv("TATA_DB_PATH"); v != "" {
		c.Storage.DatabasePath = v
	}

	apiKey := os.Getenv("TATA_API_KEY")
	baseURL := os.Getenv("TATA_BASE_URL")
	model := os.Getenv("TATA_MODEL")
	stream := os.Getenv("TATA_STREAM")
	if apiKey == "" && baseURL == "" && model == "" && stream == "" {
		return
	}

	p := c.activeProfileRef()
	if p == nil {
		c.Profiles = append(c.Profiles, Profile{ID: "env", Name: "env"})
		c.ActiveProfile = "env"
		p = &c.Profiles[len(c.Profiles)-1]
	}
	if apiKey != "" {
		p.APIKey = apiKey
	}
	if baseURL != "" {
		p.BaseURL = baseURL
	}
	if model != "" {
		p.Model = model
	}
	if stream != "" {
		if b, err := strconv.ParseBool(stream); err == nil {
			p.Stream = b
		}
	}
}

// activeProfileRef returns a pointer into Profiles for the active id.
func (c *Config) activeProfileRef() *Profile {
	for i := range c.Profiles {
		if c.Profiles[i].ID == c.ActiveProfile {
			return &c.Profiles[i]
		}
	}
	return nil
}

// Active returns a copy of the active profile.
func (c *Config) Active() (Profile, bool) {
	if p := c.activeProfileRef(); p != nil {
		return *p, true
	}
	return Profile{}, false
}

// =============================================================================
// GLOBAL CONFIG
// =============================================================================

var (
	globalConfig *Config
	globalMu     sync.RWMutex
)

// Global returns the global configuration, loading it on first use.
func Global() *Config {
	globalMu.RLock()
	if globalConfig != nil {
		defer globalMu.RUnlock()
		return globalConfig
	}
	globalMu.RUnlock()

	globalMu.Lock()
	defer globalMu.Unlock()
	if globalConfig == nil {
		cfg, err := Load()
		if err != nil || cfg == nil {
			cfg = Default()
			cfg.SetDefaults()
		}
		globalConfig = cfg
	}
	return globalConfig
}

// ReloadGlobal reloads the global configuration from disk.
func ReloadGlobal() error {
	cfg, err := Load()
	if err != nil {
		return err
	}
	SetGlobal(cfg)
	return nil
}

// SetGlobal replaces the global configuration.
func SetGlobal(cfg *Config) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalConfig = cfg
}

// ResetGlobalForTesting clears the global config. Tests only.
func ResetGlobalForTesting() {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalConfig = nil
}
