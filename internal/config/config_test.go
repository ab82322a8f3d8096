package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("API_HOST", "http://localhost:9210")
	t.Setenv("CALL_INTERVAL", "60")
	t.Setenv("TIMEOUT_SECONDS", "5")
	t.Setenv("STORAGE_TYPE", "none")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.APIHost != "http://localhost:9210" {
		t.Fatalf("unexpected api host %q", cfg.APIHost)
	}
	if cfg.CallInterval != time.Minute {
		t.Fatalf("expected 1m interval, got %s", cfg.CallInterval)
	}
	if cfg.Timeout != 5*time.Second || cfg.ConnectTimeout != 30*time.Second {
		t.Fatalf("unexpected timeouts %s/%s", cfg.Timeout, cfg.ConnectTimeout)
	}
	if cfg.MaxRedirects != 5 || !cfg.FollowRedirects {
		t.Fatalf("unexpected redirect defaults: %d %v", cfg.MaxRedirects, cfg.FollowRedirects)
	}
	if cfg.ContentType != "application/json" {
		t.Fatalf("unexpected content type %q", cfg.ContentType)
	}
}

func TestLoadRequiresHost(t *testing.T) {
	t.Setenv("API_HOST", "")

	_, err := Load()
	if err == nil || !strings.Contains(err.Error(), "APIHost") {
		t.Fatalf("expected api host validation error, got %v", err)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	base := Config{
		AppName:               "x",
		LogLevel:              "info",
		APIHost:               "https://api.example",
		ContentType:           "application/json",
		CallsFile:             "calls.yaml",
		ConnectTimeoutSeconds: 1,
		TimeoutSeconds:        1,
		StorageType:           "none",
		JournalTTLSeconds:     1,
		JournalCleanupSeconds: 1,
	}
	if err := base.Validate(); err != nil {
		t.Fatalf("expected base config to be valid: %v", err)
	}

	cases := map[string]func(c *Config){
		"log level":     func(c *Config) { c.LogLevel = "loud" },
		"timeout":       func(c *Config) { c.TimeoutSeconds = 0 },
		"redirects":     func(c *Config) { c.MaxRedirects = -1 },
		"interval":      func(c *Config) { c.CallIntervalSeconds = -5 },
		"storage":       func(c *Config) { c.StorageType = "redis" },
		"bbolt path":    func(c *Config) { c.StorageType = "bbolt"; c.BBoltPath = "" },
		"host not url":  func(c *Config) { c.APIHost = "not a url" },
		"missing calls": func(c *Config) { c.CallsFile = "" },
	}
	for name, mutate := range cases {
		cfg := base
		mutate(&cfg)
		if err := cfg.Validate(); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
}
