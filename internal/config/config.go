package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

type Config struct {
	// Notion connection
	NotionToken        string
	NotionAPIURL       string
	NotionVersion      string
	NotionRequestDelay time.Duration
	NotionHTTPTimeout  time.Duration
	NotionPageSize     int

	// Export
	OutputsDir           string
	ExternalParentPolicy string

	// Logging
	LogLevel  string
	LogFormat string

	// HTTP surface
	Port           string
	ExporterAPIKey string
	MaxQueueSize   int
	JobTTL         time.Duration

	// MkDocs
	MkdocsYMLPath string
	MkdocsVars    map[string]string
}

func Load() Config {
	cfg := Config{
		NotionToken:        os.Getenv("NOTION_TOKEN"),
		NotionAPIURL:       envOr("NOTION_API_URL", "https://api.notion.com/v1"),
		NotionVersion:      envOr("NOTION_VERSION", "2022-06-28"),
		NotionRequestDelay: envDuration("NOTION_REQUEST_DELAY", 350*time.Millisecond),
		NotionHTTPTimeout:  envDuration("NOTION_HTTP_TIMEOUT", 30*time.Second),
		NotionPageSize:     envInt("NOTION_PAGE_SIZE", 100),

		OutputsDir:           envOr("OUTPUTS_DIR", "wiki_processed_files"),
		ExternalParentPolicy: envOr("EXTERNAL_PARENT_POLICY", "ignore"),

		LogLevel:  envOr("LOG_LEVEL", "info"),
		LogFormat: envOr("LOG_FORMAT", "text"),

		Port:           envOr("PORT", "8090"),
		ExporterAPIKey: os.Getenv("EXPORTER_API_KEY"),
		MaxQueueSize:   envInt("MAX_QUEUE_SIZE", 10),
		JobTTL:         envDuration("JOB_TTL", 1*time.Hour),

		MkdocsYMLPath: envOr("MKDOCS_YML_PATH", "mkdocs.yml"),
		MkdocsVars:    envPrefixed("MKDOCS_", "MKDOCS_YML_PATH"),
	}

	if cfg.NotionRequestDelay < 0 {
		cfg.NotionRequestDelay = 350 * time.Millisecond
	}
	if cfg.NotionHTTPTimeout <= 0 {
		cfg.NotionHTTPTimeout = 30 * time.Second
	}
	if cfg.NotionPageSize <= 0 || cfg.NotionPageSize > 100 {
		cfg.NotionPageSize = 100
	}
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = 10
	}
	if cfg.JobTTL <= 0 {
		cfg.JobTTL = 1 * time.Hour
	}

	return cfg
}

// Validate checks the settings every command needs.
func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.NotionToken, validation.Required.Error("NOTION_TOKEN is required")),
		validation.Field(&c.NotionAPIURL, validation.Required, is.URL),
		validation.Field(&c.OutputsDir, validation.Required),
		validation.Field(&c.ExternalParentPolicy, validation.In("ignore", "prepend")),
		validation.Field(&c.LogLevel, validation.In("debug", "info", "warn", "error")),
		validation.Field(&c.LogFormat, validation.In("text", "json")),
	)
}

// ValidateServer additionally checks the HTTP surface settings.
func (c Config) ValidateServer() error {
	if err := c.Validate(); err != nil {
		return err
	}
	return validation.ValidateStruct(&c,
		validation.Field(&c.ExporterAPIKey, validation.Required.Error("EXPORTER_API_KEY is required")),
		validation.Field(&c.Port, validation.Required, is.Port),
	)
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

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

// envPrefixed collects every set variable starting with prefix, except skip.
func envPrefixed(prefix string, skip ...string) map[string]string {
	out := make(map[string]string)
	for _, kv := range os.Environ() {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(k, prefix) {
			continue
		}
		skipped := false
		for _, s := range skip {
			if k == s {
				skipped = true
			}
		}
		if !skipped {
			out[k] = v
		}
	}
	return out
}
