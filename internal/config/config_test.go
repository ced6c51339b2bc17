package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("NOTION_TOKEN", "secret")

	cfg := Load()
	if cfg.OutputsDir != "wiki_processed_files" {
		t.Errorf("expected default outputs dir, got %q", cfg.OutputsDir)
	}
	if cfg.NotionRequestDelay != 350*time.Millisecond {
		t.Errorf("expected default request delay, got %s", cfg.NotionRequestDelay)
	}
	if cfg.NotionPageSize != 100 || cfg.MaxQueueSize != 10 || cfg.JobTTL != time.Hour {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if cfg.ExternalParentPolicy != "ignore" {
		t.Errorf("expected ignore policy by default, got %q", cfg.ExternalParentPolicy)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected defaults to validate, got %v", err)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("NOTION_TOKEN", "secret")
	t.Setenv("NOTION_REQUEST_DELAY", "1s")
	t.Setenv("NOTION_PAGE_SIZE", "500")
	t.Setenv("OUTPUTS_DIR", "site/docs")
	t.Setenv("MAX_QUEUE_SIZE", "-1")
	t.Setenv("JOB_TTL", "garbage")
	t.Setenv("MKDOCS_SITE_NAME", "Team Docs")
	t.Setenv("MKDOCS_YML_PATH", "/app/mkdocs.yml")

	cfg := Load()
	if cfg.NotionRequestDelay != time.Second {
		t.Errorf("expected 1s delay, got %s", cfg.NotionRequestDelay)
	}
	if cfg.NotionPageSize != 100 {
		t.Errorf("expected page size clamped to 100, got %d", cfg.NotionPageSize)
	}
	if cfg.OutputsDir != "site/docs" {
		t.Errorf("expected outputs dir override, got %q", cfg.OutputsDir)
	}
	if cfg.MaxQueueSize != 10 || cfg.JobTTL != time.Hour {
		t.Errorf("expected invalid values to fall back, got queue=%d ttl=%s", cfg.MaxQueueSize, cfg.JobTTL)
	}
	if cfg.MkdocsVars["MKDOCS_SITE_NAME"] != "Team Docs" {
		t.Errorf("expected mkdocs placeholder var, got %v", cfg.MkdocsVars)
	}
	if _, ok := cfg.MkdocsVars["MKDOCS_YML_PATH"]; ok {
		t.Error("expected yml path to be excluded from placeholder vars")
	}
	if cfg.MkdocsYMLPath != "/app/mkdocs.yml" {
		t.Errorf("unexpected yml path %q", cfg.MkdocsYMLPath)
	}
}

func TestValidate(t *testing.T) {
	base := func() Config {
		return Config{
			NotionToken:          "secret",
			NotionAPIURL:         "https://api.notion.com/v1",
			OutputsDir:           "out",
			ExternalParentPolicy: "ignore",
			LogLevel:             "info",
			LogFormat:            "text",
			Port:                 "8090",
			ExporterAPIKey:       "key",
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		server  bool
		wantErr bool
	}{
		{"valid", func(*Config) {}, false, false},
		{"valid server", func(*Config) {}, true, false},
		{"missing token", func(c *Config) { c.NotionToken = "" }, false, true},
		{"bad policy", func(c *Config) { c.ExternalParentPolicy = "merge" }, false, true},
		{"bad level", func(c *Config) { c.LogLevel = "loud" }, false, true},
		{"bad url", func(c *Config) { c.NotionAPIURL = "not a url" }, false, true},
		{"server without key", func(c *Config) { c.ExporterAPIKey = "" }, true, true},
		{"cli without key", func(c *Config) { c.ExporterAPIKey = "" }, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(&cfg)
			var err error
			if tt.server {
				err = cfg.ValidateServer()
			} else {
				err = cfg.Validate()
			}
			if (err != nil) != tt.wantErr {
				t.Errorf("wantErr=%v, got %v", tt.wantErr, err)
			}
		})
	}
}
