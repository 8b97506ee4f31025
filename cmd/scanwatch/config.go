package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sentrixio/scanwatch/pkg/client"
	"github.com/sentrixio/scanwatch/pkg/poller"
	"github.com/sentrixio/scanwatch/pkg/state"
	"github.com/sentrixio/scanwatch/pkg/verify"
)

// Config is the scanwatch configuration file.
type Config struct {
	API    client.Config `yaml:"api"`
	State  state.Config  `yaml:"state"`
	GitHub verify.Config `yaml:"github"`

	Poll struct {
		Interval time.Duration `yaml:"interval"`
	} `yaml:"poll"`

	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`

	Metrics struct {
		Addr string `yaml:"addr"`
	} `yaml:"metrics"`
}

// defaultConfig returns the configuration used when no file is given.
func defaultConfig() *Config {
	cfg := &Config{
		API:   *client.DefaultConfig(),
		State: *state.DefaultConfig(),
	}
	cfg.Poll.Interval = poller.DefaultInterval
	cfg.Log.Level = "warn"
	return cfg
}

func loadConfig(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	// Expand environment variables in config
	expanded := os.ExpandEnv(string(data))

	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}

	return nil
}

func getEnvOrFlag(flagVal, envName string) string {
	if flagVal != "" {
		return flagVal
	}
	return os.Getenv(envName)
}

// overrides are the flag values that take precedence over the file.
type overrides struct {
	apiURL      string
	profile     string
	stateDB     string
	githubToken string
	metricsAddr string
	logLevel    string
	verbose     bool
	interval    string
}

// apply overlays flags, then SCANWATCH_* environment variables, on cfg.
func (o *overrides) apply(cfg *Config) error {
	if v := getEnvOrFlag(o.apiURL, "SCANWATCH_API_URL"); v != "" {
		cfg.API.BaseURL = v
	}
	if v := getEnvOrFlag(o.profile, "SCANWATCH_PROFILE"); v != "" {
		cfg.State.Profile = v
	}
	if v := getEnvOrFlag(o.stateDB, "SCANWATCH_STATE_DB"); v != "" {
		cfg.State.DatabasePath = v
	}
	if v := getEnvOrFlag(o.githubToken, "SCANWATCH_GITHUB_TOKEN"); v != "" {
		cfg.GitHub.Token = v
	} else if cfg.GitHub.Token == "" {
		cfg.GitHub.Token = os.Getenv("GITHUB_TOKEN")
	}
	if v := getEnvOrFlag(o.metricsAddr, "SCANWATCH_METRICS_ADDR"); v != "" {
		cfg.Metrics.Addr = v
	}
	if v := getEnvOrFlag(o.logLevel, "SCANWATCH_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if o.verbose {
		cfg.Log.Level = "debug"
	}
	if v := getEnvOrFlag(o.interval, "SCANWATCH_POLL_INTERVAL"); v != "" {
		d, err := parseInterval(v)
		if err != nil {
			return err
		}
		cfg.Poll.Interval = d
	}
	return nil
}

// parseInterval accepts a Go duration or a whole number of seconds.
func parseInterval(s string) (time.Duration, error) {
	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return d, nil
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return time.Duration(n) * time.Second, nil
	}
	return 0, fmt.Errorf("invalid poll interval %q", s)
}
