package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfig_ExpandsEnv(t *testing.T) {
	t.Setenv("SW_TEST_TOKEN", "ghp_test")

	path := filepath.Join(t.TempDir(), "scanwatch.yaml")
	data := `api:
  base_url: http://scanner.internal:5000
  max_retries: 5
state:
  profile: ci
github:
  token: ${SW_TEST_TOKEN}
poll:
  interval: 2s
log:
  level: debug
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg := defaultConfig()
	if err := loadConfig(path, cfg); err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}

	if cfg.API.BaseURL != "http://scanner.internal:5000" {
		t.Errorf("API.BaseURL = %q", cfg.API.BaseURL)
	}
	if cfg.API.MaxRetries != 5 {
		t.Errorf("API.MaxRetries = %d, want 5", cfg.API.MaxRetries)
	}
	if cfg.API.RateLimit != 10 {
		t.Errorf("defaults not kept: RateLimit = %v", cfg.API.RateLimit)
	}
	if cfg.State.Profile != "ci" {
		t.Errorf("State.Profile = %q", cfg.State.Profile)
	}
	if cfg.GitHub.Token != "ghp_test" {
		t.Errorf("GitHub.Token = %q", cfg.GitHub.Token)
	}
	if cfg.Poll.Interval != 2*time.Second {
		t.Errorf("Poll.Interval = %v", cfg.Poll.Interval)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q", cfg.Log.Level)
	}
}

func TestLoadConfig_Errors(t *testing.T) {
	if err := loadConfig(filepath.Join(t.TempDir(), "missing.yaml"), defaultConfig()); err == nil {
		t.Error("missing file should fail")
	}

	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("api: [unterminated"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := loadConfig(path, defaultConfig()); err == nil {
		t.Error("invalid YAML should fail")
	}
}

func TestOverrides_Apply(t *testing.T) {
	t.Setenv("SCANWATCH_API_URL", "http://from-env:5000")
	t.Setenv("SCANWATCH_PROFILE", "")
	t.Setenv("SCANWATCH_GITHUB_TOKEN", "")
	t.Setenv("GITHUB_TOKEN", "ghp_fallback")
	t.Setenv("SCANWATCH_POLL_INTERVAL", "")
	t.Setenv("SCANWATCH_LOG_LEVEL", "")

	cfg := defaultConfig()
	o := overrides{profile: "staging", interval: "5", verbose: true}
	if err := o.apply(cfg); err != nil {
		t.Fatalf("apply() error = %v", err)
	}

	if cfg.API.BaseURL != "http://from-env:5000" {
		t.Errorf("API.BaseURL = %q, want env value", cfg.API.BaseURL)
	}
	if cfg.State.Profile != "staging" {
		t.Errorf("State.Profile = %q, want flag value", cfg.State.Profile)
	}
	if cfg.GitHub.Token != "ghp_fallback" {
		t.Errorf("GitHub.Token = %q, want GITHUB_TOKEN fallback", cfg.GitHub.Token)
	}
	if cfg.Poll.Interval != 5*time.Second {
		t.Errorf("Poll.Interval = %v, want 5s", cfg.Poll.Interval)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("verbose should force debug, got %q", cfg.Log.Level)
	}

	o = overrides{apiURL: "http://from-flag:5000"}
	if err := o.apply(cfg); err != nil {
		t.Fatal(err)
	}
	if cfg.API.BaseURL != "http://from-flag:5000" {
		t.Errorf("flag should win over env, got %q", cfg.API.BaseURL)
	}

	o = overrides{interval: "soon"}
	if err := o.apply(cfg); err == nil {
		t.Error("invalid interval should fail")
	}
}

func TestParseInterval(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{"3s", 3 * time.Second, false},
		{"500ms", 500 * time.Millisecond, false},
		{"10", 10 * time.Second, false},
		{"0", 0, true},
		{"-1s", 0, true},
		{"", 0, true},
		{"fast", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseInterval(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseInterval(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("parseInterval(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestIsYes(t *testing.T) {
	for in, want := range map[string]bool{"y": true, "YES": true, " yes ": true, "": false, "n": false, "yep": false} {
		if got := isYes(in); got != want {
			t.Errorf("isYes(%q) = %v, want %v", in, got, want)
		}
	}
}
