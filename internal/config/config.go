package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dgallion1/docoutline/internal/outline"
)

type Config struct {
	Port string

	// Pathstore connection. Empty URL or key disables persistence.
	PathstoreURL    string
	PathstoreAPIKey string

	// Auth
	DocoutlineAPIKey string

	// Worker pool
	WorkerCount  int
	MaxQueueSize int

	// Upload limits
	MaxUploadBytes int64

	// Job state
	JobTTL time.Duration

	// Batch mode
	InputDir     string
	OutputDir    string
	OutputFormat string

	// Outline rules
	TitlePageWindow    int
	TitleMaxWords      int
	TitleMaxChars      int
	HeadingMaxWords    int
	HeadingMaxChars    int
	MaxHeadingsPerPage int
	ExcludedKeywords   []string
	IncludeStats       bool

	// Readers
	FlowLinesPerPage     int
	PDFFallbackPdftotext bool
}

func Load() Config {
	def := outline.DefaultRulesConfig()

	cfg := Config{
		Port: envOr("PORT", "8090"),

		PathstoreURL:    os.Getenv("PATHSTORE_URL"),
		PathstoreAPIKey: os.Getenv("PATHSTORE_API_KEY"),

		DocoutlineAPIKey: os.Getenv("DOCOUTLINE_API_KEY"),

		WorkerCount:  envInt("WORKER_COUNT", 4),
		MaxQueueSize: envInt("MAX_QUEUE_SIZE", 100),

		MaxUploadBytes: envInt64("MAX_UPLOAD_BYTES", 52428800), // 50MB

		JobTTL: envDuration("JOB_TTL", 1*time.Hour),

		InputDir:     envOr("INPUT_DIR", "/app/input"),
		OutputDir:    envOr("OUTPUT_DIR", "/app/output"),
		OutputFormat: strings.ToLower(envOr("OUTPUT_FORMAT", "json")),

		TitlePageWindow:    envInt("TITLE_PAGE_WINDOW", def.TitlePageWindow),
		TitleMaxWords:      envInt("TITLE_MAX_WORDS", def.TitleMaxWords),
		TitleMaxChars:      envInt("TITLE_MAX_CHARS", def.TitleMaxChars),
		HeadingMaxWords:    envInt("HEADING_MAX_WORDS", def.HeadingMaxWords),
		HeadingMaxChars:    envInt("HEADING_MAX_CHARS", def.HeadingMaxChars),
		MaxHeadingsPerPage: envInt("MAX_HEADINGS_PER_PAGE", def.MaxHeadingsPerPage),
		ExcludedKeywords:   envList("EXCLUDED_KEYWORDS"),
		IncludeStats:       envBool("INCLUDE_STATS", true),

		FlowLinesPerPage:     envInt("FLOW_LINES_PER_PAGE", 40),
		PDFFallbackPdftotext: envBool("PDF_FALLBACK_PDFTOTEXT", true),
	}

	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 4
	}
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = 100
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 52428800
	}
	if cfg.JobTTL <= 0 {
		cfg.JobTTL = 1 * time.Hour
	}
	if cfg.FlowLinesPerPage <= 0 {
		cfg.FlowLinesPerPage = 40
	}

	return cfg
}

// Validate checks settings shared by every mode.
func (c Config) Validate() error {
	switch c.OutputFormat {
	case "json", "yaml":
	default:
		return fmt.Errorf("OUTPUT_FORMAT must be json or yaml, got %q", c.OutputFormat)
	}
	if (c.PathstoreURL == "") != (c.PathstoreAPIKey == "") {
		return fmt.Errorf("PATHSTORE_URL and PATHSTORE_API_KEY must be set together")
	}
	return nil
}

// ValidateServer adds the checks the HTTP server needs.
func (c Config) ValidateServer() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.DocoutlineAPIKey == "" {
		return fmt.Errorf("DOCOUTLINE_API_KEY is required")
	}
	return nil
}

// PathstoreEnabled reports whether outlines are persisted.
func (c Config) PathstoreEnabled() bool {
	return c.PathstoreURL != "" && c.PathstoreAPIKey != ""
}

// Rules converts the engine settings into outline rules.
func (c Config) Rules() outline.RulesConfig {
	cfg := outline.DefaultRulesConfig()
	cfg.TitlePageWindow = c.TitlePageWindow
	cfg.TitleMaxWords = c.TitleMaxWords
	cfg.TitleMaxChars = c.TitleMaxChars
	cfg.HeadingMaxWords = c.HeadingMaxWords
	cfg.HeadingMaxChars = c.HeadingMaxChars
	cfg.MaxHeadingsPerPage = c.MaxHeadingsPerPage
	cfg.ExcludedKeywords = c.ExcludedKeywords
	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

// envList splits a comma-separated value, dropping empty items.
func envList(key string) []string {
	var out []string
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
