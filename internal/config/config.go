// Package config loads application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// DefaultTargetURL is the review listing checked when TARGET_URL is unset.
const DefaultTargetURL = "https://map.naver.com/p/search/%EB%B6%84%EB%8B%B9%EC%A0%9C%EC%9D%BC%EC%97%AC%EC%84%B1%EB%B3%91%EC%9B%90/place/11830416"

// Config holds the application configuration loaded from environment variables.
type Config struct {
	// Notification decision knobs.
	TestMode           bool
	MinChangeThreshold int
	QuietMode          bool
	NotifyNoChange     bool
	NotifyStartup      bool

	// Mail transport.
	RecipientEmail string
	GmailAddress   string
	GmailPassword  string

	// Result-file publishing.
	GitHubToken   string
	PublishRepo   string // "owner/name"; empty disables publishing.
	PublishBranch string

	// Runtime.
	CheckInterval  time.Duration
	ListenAddr     string
	TargetURL      string
	DBPath         string
	HistoryBackend string // "sqlite" or "json"
	HistoryPath    string
	HistoryLimit   int
	LogPath        string
}

// HasMailCredentials returns true when recipient, address, and password are
// all present. A due notification with missing credentials is a run failure.
func (c *Config) HasMailCredentials() bool {
	return c.RecipientEmail != "" && c.GmailAddress != "" && c.GmailPassword != ""
}

// HasPublisher returns true when publishing back to a repository is configured.
func (c *Config) HasPublisher() bool {
	return c.GitHubToken != "" && c.PublishRepo != ""
}

// Load reads configuration from environment variables and returns a validated
// Config. Mail credentials (RECIPIENT_EMAIL, GMAIL_ADDRESS, GMAIL_PASSWORD)
// and the publisher settings (GITHUB_TOKEN, PUBLISH_REPO) are optional; the
// monitor runs without them but fails a run that needs to notify or publish.
// Boolean variables accept "true"/"false" (case-insensitive).
func Load() (*Config, error) {
	cfg := &Config{
		RecipientEmail: os.Getenv("RECIPIENT_EMAIL"),
		GmailAddress:   os.Getenv("GMAIL_ADDRESS"),
		GmailPassword:  os.Getenv("GMAIL_PASSWORD"),
		GitHubToken:    os.Getenv("GITHUB_TOKEN"),
		PublishRepo:    os.Getenv("PUBLISH_REPO"),

		MinChangeThreshold: 1,
		QuietMode:          true,
		PublishBranch:      "main",
		CheckInterval:      5 * time.Minute,
		ListenAddr:         "127.0.0.1:8080",
		TargetURL:          DefaultTargetURL,
		DBPath:             "monitor.db",
		HistoryBackend:     "sqlite",
		HistoryPath:        "review_history.json",
		HistoryLimit:       200,
		LogPath:            "monitor.log",
	}

	var err error
	if cfg.TestMode, err = boolEnv("TEST_MODE", false); err != nil {
		return nil, err
	}
	if cfg.QuietMode, err = boolEnv("QUIET_MODE", true); err != nil {
		return nil, err
	}
	if cfg.NotifyNoChange, err = boolEnv("NOTIFY_NO_CHANGE", false); err != nil {
		return nil, err
	}
	if cfg.NotifyStartup, err = boolEnv("NOTIFY_STARTUP", false); err != nil {
		return nil, err
	}

	if v, ok := os.LookupEnv("MIN_CHANGE_THRESHOLD"); ok {
		threshold, err := ParseThreshold(v)
		if err != nil {
			return nil, fmt.Errorf("MIN_CHANGE_THRESHOLD: %w", err)
		}
		cfg.MinChangeThreshold = threshold
	}

	if v, ok := os.LookupEnv("CHECK_INTERVAL"); ok {
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("CHECK_INTERVAL has invalid duration %q: %w", v, err)
		}
		if parsed <= 0 {
			return nil, fmt.Errorf("CHECK_INTERVAL must be positive, got %q", v)
		}
		cfg.CheckInterval = parsed
	}

	if v, ok := os.LookupEnv("HISTORY_LIMIT"); ok {
		limit, err := strconv.Atoi(v)
		if err != nil || limit <= 0 {
			return nil, fmt.Errorf("HISTORY_LIMIT must be a positive integer, got %q", v)
		}
		cfg.HistoryLimit = limit
	}

	if v, ok := os.LookupEnv("HISTORY_BACKEND"); ok {
		backend := strings.ToLower(strings.TrimSpace(v))
		if backend != "sqlite" && backend != "json" {
			return nil, fmt.Errorf(`HISTORY_BACKEND must be "sqlite" or "json", got %q`, v)
		}
		cfg.HistoryBackend = backend
	}

	if cfg.PublishRepo != "" && len(strings.Split(cfg.PublishRepo, "/")) != 2 {
		return nil, fmt.Errorf("PUBLISH_REPO must be in owner/name form, got %q", cfg.PublishRepo)
	}

	stringEnv("PUBLISH_BRANCH", &cfg.PublishBranch)
	stringEnv("LISTEN_ADDR", &cfg.ListenAddr)
	stringEnv("TARGET_URL", &cfg.TargetURL)
	stringEnv("DB_PATH", &cfg.DBPath)
	stringEnv("HISTORY_PATH", &cfg.HistoryPath)

	// LOG_PATH may be explicitly set to empty to disable the file log.
	if v, ok := os.LookupEnv("LOG_PATH"); ok {
		cfg.LogPath = v
	}

	return cfg, nil
}

// ParseThreshold parses a string-encoded minimum change threshold, rejecting
// non-numeric and negative values. Shared by the env loader and the manual
// dispatch surface, which both receive the threshold as text.
func ParseThreshold(v string) (int, error) {
	threshold, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, fmt.Errorf("threshold %q is not an integer", v)
	}
	if threshold < 0 {
		return 0, fmt.Errorf("threshold must be non-negative, got %d", threshold)
	}
	return threshold, nil
}

func boolEnv(name string, def bool) (bool, error) {
	v, ok := os.LookupEnv(name)
	if !ok || v == "" {
		return def, nil
	}
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "true", "1":
		return true, nil
	case "false", "0":
		return false, nil
	}
	return false, fmt.Errorf("%s must be true or false, got %q", name, v)
}

func stringEnv(name string, dst *string) {
	if v, ok := os.LookupEnv(name); ok && v != "" {
		*dst = v
	}
}
