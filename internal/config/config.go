// Package config provides configuration loading and validation for cvchat.
package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
)

// Config holds everything the server and CLI need. All fields are optional in
// the file; missing values fall back to environment variables or defaults.
type Config struct {
	// Intent service
	IntentBaseURL string `json:"intent_base_url,omitempty"` // analysis service base URL
	IntentAPIKey  string `json:"intent_api_key,omitempty"`  // bearer key for analyze/start
	UserID        string `json:"user_id,omitempty"`         // opaque user identifier for session starts

	// Optional collaborators
	GeminiAPIKey string `json:"gemini_api_key,omitempty"` // rephrase-suggestion LLM
	DatabaseURL  string `json:"database_url,omitempty"`   // transcript store; empty disables
	JWTSecret    string `json:"jwt_secret,omitempty"`     // local token verification; empty disables

	// Server
	Port     int    `json:"port,omitempty"`
	LogLevel string `json:"log_level,omitempty"` // debug|info|warn|error
	LogJSON  bool   `json:"log_json,omitempty"`

	// Behavior
	UseBrowser         bool  `json:"use_browser,omitempty"`          // headless rendering for SPA job boards
	MaxAttachmentBytes int64 `json:"max_attachment_bytes,omitempty"` // per-attachment size cap
}

// Load loads configuration from a JSON file.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	return &cfg, nil
}

// FromEnv builds a Config from environment variables.
func FromEnv() *Config {
	cfg := &Config{
		IntentBaseURL: os.Getenv("INTENT_BASE_URL"),
		IntentAPIKey:  os.Getenv("INTENT_API_KEY"),
		UserID:        os.Getenv("INTENT_USER_ID"),
		GeminiAPIKey:  os.Getenv("GEMINI_API_KEY"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		JWTSecret:     os.Getenv("JWT_SECRET"),
		LogLevel:      os.Getenv("LOG_LEVEL"),
	}
	if port, err := strconv.Atoi(os.Getenv("PORT")); err == nil {
		cfg.Port = port
	}
	cfg.LogJSON = os.Getenv("LOG_JSON") == "true"
	cfg.UseBrowser = os.Getenv("USE_BROWSER") == "true"
	return cfg
}

// Merge returns a new Config with empty fields filled from defaults.
// File values win over environment values when both are present.
func (c *Config) Merge(defaults *Config) *Config {
	result := *c
	if result.IntentBaseURL == "" {
		result.IntentBaseURL = defaults.IntentBaseURL
	}
	if result.IntentAPIKey == "" {
		result.IntentAPIKey = defaults.IntentAPIKey
	}
	if result.UserID == "" {
		result.UserID = defaults.UserID
	}
	if result.GeminiAPIKey == "" {
		result.GeminiAPIKey = defaults.GeminiAPIKey
	}
	if result.DatabaseURL == "" {
		result.DatabaseURL = defaults.DatabaseURL
	}
	if result.JWTSecret == "" {
		result.JWTSecret = defaults.JWTSecret
	}
	if result.Port == 0 {
		result.Port = defaults.Port
	}
	if result.LogLevel == "" {
		result.LogLevel = defaults.LogLevel
	}
	if result.MaxAttachmentBytes == 0 {
		result.MaxAttachmentBytes = defaults.MaxAttachmentBytes
	}
	// Bool fields: cannot distinguish unset from false, so file wins only
	// when true.
	result.LogJSON = result.LogJSON || defaults.LogJSON
	result.UseBrowser = result.UseBrowser || defaults.UseBrowser
	return &result
}

// Validate checks that the configuration has usable values.
func (c *Config) Validate() error {
	if c.IntentBaseURL == "" {
		return fmt.Errorf("config error: intent_base_url is required")
	}
	if parsed, err := url.Parse(c.IntentBaseURL); err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("config error: intent_base_url is not a valid URL: %s", c.IntentBaseURL)
	}
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("config error: port must be in 0..65535")
	}
	if c.MaxAttachmentBytes < 0 {
		return fmt.Errorf("config error: max_attachment_bytes must be non-negative")
	}
	switch c.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config error: unknown log_level %q", c.LogLevel)
	}
	return nil
}
