// Package config loads runtime settings from the environment and the
// sources list from a YAML file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	// Source settings
	SourcesConfigPath     string
	DefaultTimeframeHours int // freshness window applied when a source has no override
	// FallbackMaxAgeHours is the hard ceiling for the zero-recent fallback.
	// It is deliberately allowed to exceed the freshness window: the
	// fallback only fires when nothing passed the window, so a ceiling at
	// or below it would never admit anything. Validate enforces
	// ceiling >= window.
	FallbackMaxAgeHours int
	MinSourceDelay      time.Duration
	MaxSourceDelay      time.Duration
	DisableDomainDedup  bool

	// LLM settings
	Provider     string // "openai" or "gemini"
	OpenAIAPIKey string
	GeminiAPIKey string
	Model        string
	MaxOpenAI    int // per-run request ceilings (0 = unlimited)
	MaxGemini    int
	MaxLLMTotal  int

	// Pipeline settings
	TranslateMaxChars int
	SummarizeMaxChars int
	CacheTTL          time.Duration
	Concurrency       int // parallel LLM calls within a batch

	// Storage settings
	DatabaseURL  string // empty disables full-content storage
	SeenLogPath  string
	SeenTTLHours int

	// Sink settings
	WebhookURL     string
	DocsToken      string // document sink integration token
	DocsDatabaseID string

	// App settings
	Debug          bool
	RequestTimeout time.Duration
	RunTimeout     time.Duration
	RetryAttempts  int
	RetryDelay     time.Duration
	MonitorPort    string // empty disables the health endpoint
}

// Source is one crawl target from the YAML sources file.
type Source struct {
	Name           string `yaml:"name"`
	URL            string `yaml:"url"`
	Kind           string `yaml:"kind"` // "page" or "feed"
	MaxItems       int    `yaml:"max_items"`
	TimeframeHours int    `yaml:"timeframe_hours"` // 0 = use the default window
}

type sourcesFile struct {
	Sources []Source `yaml:"sources"`
}

func Load() (*Config, error) {
	cfg := &Config{
		SourcesConfigPath:     "configs/sources.yaml",
		DefaultTimeframeHours: 36,
		FallbackMaxAgeHours:   72,
		MinSourceDelay:        2 * time.Second,
		MaxSourceDelay:        5 * time.Second,
		Provider:              "openai",
		MaxOpenAI:             100,
		MaxGemini:             50,
		MaxLLMTotal:           120,
		TranslateMaxChars:     12000,
		SummarizeMaxChars:     6000,
		CacheTTL:              24 * time.Hour,
		Concurrency:           4,
		RequestTimeout:        30 * time.Second,
		RunTimeout:            15 * time.Minute,
		RetryAttempts:         3,
		RetryDelay:            5 * time.Second,
		SeenLogPath:           "sent_stories.json",
		SeenTTLHours:          48,
	}

	// Load from environment
	cfg.OpenAIAPIKey = os.Getenv("OPENAI_API_KEY")
	cfg.GeminiAPIKey = os.Getenv("GEMINI_API_KEY")
	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	cfg.WebhookURL = os.Getenv("WEBHOOK_URL")
	cfg.DocsToken = os.Getenv("DOCS_TOKEN")
	cfg.DocsDatabaseID = os.Getenv("DOCS_DATABASE_ID")
	cfg.MonitorPort = os.Getenv("MONITOR_PORT")

	cfg.SourcesConfigPath = getEnvOrDefault("SOURCES_CONFIG_PATH", cfg.SourcesConfigPath)
	cfg.SeenLogPath = getEnvOrDefault("SEEN_LOG_PATH", cfg.SeenLogPath)
	cfg.SeenTTLHours = getEnvIntOrDefault("SEEN_TTL_HOURS", cfg.SeenTTLHours)
	cfg.DefaultTimeframeHours = getEnvIntOrDefault("TIMEFRAME_HOURS", cfg.DefaultTimeframeHours)
	cfg.FallbackMaxAgeHours = getEnvIntOrDefault("FALLBACK_MAX_AGE_HOURS", cfg.FallbackMaxAgeHours)
	cfg.TranslateMaxChars = getEnvIntOrDefault("TRANSLATE_MAX_CHARS", cfg.TranslateMaxChars)
	cfg.SummarizeMaxChars = getEnvIntOrDefault("SUMMARIZE_MAX_CHARS", cfg.SummarizeMaxChars)
	cfg.MaxOpenAI = getEnvIntOrDefault("MAX_OPENAI_REQUESTS", cfg.MaxOpenAI)
	cfg.MaxGemini = getEnvIntOrDefault("MAX_GEMINI_REQUESTS", cfg.MaxGemini)
	cfg.MaxLLMTotal = getEnvIntOrDefault("MAX_LLM_REQUESTS", cfg.MaxLLMTotal)

	if p := os.Getenv("LLM_PROVIDER"); p != "" {
		cfg.Provider = p
	}
	if m := os.Getenv("LLM_MODEL"); m != "" {
		cfg.Model = m
	}
	if v := os.Getenv("CACHE_TTL_HOURS"); v != "" {
		if val, err := strconv.Atoi(v); err == nil && val > 0 {
			cfg.CacheTTL = time.Duration(val) * time.Hour
		}
	}
	if v := os.Getenv("LLM_CONCURRENCY"); v != "" {
		if val, err := strconv.Atoi(v); err == nil && val > 0 {
			cfg.Concurrency = val
		}
	}
	if v := os.Getenv("MIN_SOURCE_DELAY_SECONDS"); v != "" {
		if val, err := strconv.Atoi(v); err == nil && val >= 0 {
			cfg.MinSourceDelay = time.Duration(val) * time.Second
		}
	}
	if v := os.Getenv("MAX_SOURCE_DELAY_SECONDS"); v != "" {
		if val, err := strconv.Atoi(v); err == nil && val >= 0 {
			cfg.MaxSourceDelay = time.Duration(val) * time.Second
		}
	}
	if v := os.Getenv("RUN_TIMEOUT_MINUTES"); v != "" {
		if val, err := strconv.Atoi(v); err == nil && val > 0 {
			cfg.RunTimeout = time.Duration(val) * time.Minute
		}
	}
	if os.Getenv("DISABLE_DOMAIN_DEDUP") == "true" {
		cfg.DisableDomainDedup = true
	}
	if os.Getenv("DEBUG") == "true" {
		cfg.Debug = true
	}

	return cfg, cfg.Validate()
}

// LoadSources reads the crawl target list from the YAML sources file.
func LoadSources(path string) ([]Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var file sourcesFile
	dec := yaml.NewDecoder(f)
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("parse sources file %s: %w", path, err)
	}
	if len(file.Sources) == 0 {
		return nil, fmt.Errorf("sources file %s lists no sources", path)
	}
	for i := range file.Sources {
		s := &file.Sources[i]
		if s.URL == "" {
			return nil, fmt.Errorf("source %d in %s has no url", i, path)
		}
		if s.Kind == "" {
			s.Kind = "page"
		}
		if s.Kind != "page" && s.Kind != "feed" {
			return nil, fmt.Errorf("source %s: kind must be 'page' or 'feed', got %q", s.URL, s.Kind)
		}
		if s.MaxItems <= 0 {
			s.MaxItems = 10
		}
	}
	return file.Sources, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func (c *Config) Validate() error {
	switch c.Provider {
	case "openai":
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required when LLM_PROVIDER=openai")
		}
	case "gemini":
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY is required when LLM_PROVIDER=gemini")
		}
	default:
		return fmt.Errorf("LLM_PROVIDER must be 'openai' or 'gemini', got %q", c.Provider)
	}
	if c.WebhookURL == "" && (c.DocsToken == "" || c.DocsDatabaseID == "") {
		return fmt.Errorf("at least one sink is required: WEBHOOK_URL or DOCS_TOKEN+DOCS_DATABASE_ID")
	}
	if c.FallbackMaxAgeHours < c.DefaultTimeframeHours {
		return fmt.Errorf("FALLBACK_MAX_AGE_HOURS (%d) must be >= TIMEFRAME_HOURS (%d)",
			c.FallbackMaxAgeHours, c.DefaultTimeframeHours)
	}
	if c.MaxSourceDelay < c.MinSourceDelay {
		return fmt.Errorf("MAX_SOURCE_DELAY_SECONDS must be >= MIN_SOURCE_DELAY_SECONDS")
	}
	return nil
}

// TimeframeFor resolves the freshness window for a source, falling back to
// the global default when the source has no override.
func (c *Config) TimeframeFor(s Source) int {
	if s.TimeframeHours > 0 {
		return s.TimeframeHours
	}
	return c.DefaultTimeframeHours
}
