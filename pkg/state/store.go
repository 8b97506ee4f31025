// Package state provides the durable per-profile state of the monitor: the
// active scan marker and the theme preference.
//
// State lives in a small SQLite key-value table so that a restarted process
// resumes the scan it was watching.
//
// Example usage:
//
//	store, err := state.Open(state.DefaultConfig())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer store.Close()
//
//	marker, err := store.ActiveScan(ctx)
package state

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/sentrixio/scanwatch/pkg/errors"
	"github.com/sentrixio/scanwatch/pkg/types"
)

// DefaultProfile is used when no profile is configured.
const DefaultProfile = "default"

const (
	keyActiveScan = "active_scan"
	keyTheme      = "theme"
)

// Theme is the rendering theme preference.
type Theme string

const (
	ThemeDark  Theme = "dark"
	ThemeLight Theme = "light"
)

// ParseTheme validates a theme name.
func ParseTheme(s string) (Theme, error) {
	switch t := Theme(strings.ToLower(strings.TrimSpace(s))); t {
	case ThemeDark, ThemeLight:
		return t, nil
	default:
		return "", errors.E(errors.KindInvalidInput, "state.ParseTheme", fmt.Sprintf("unknown theme %q", s))
	}
}

// Config configures the state store.
type Config struct {
	// DatabasePath is the SQLite file (default: ~/.scanwatch/state.db)
	DatabasePath string `yaml:"path" json:"path"`

	// Profile scopes every key; separate profiles monitor separate scans.
	Profile string `yaml:"profile" json:"profile"`
}

// DefaultConfig returns the default state configuration.
func DefaultConfig() *Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = os.TempDir()
	}
	return &Config{
		DatabasePath: filepath.Join(home, ".scanwatch", "state.db"),
		Profile:      DefaultProfile,
	}
}

// Store is a SQLite-backed key-value store scoped to one profile.
type Store struct {
	db      *sql.DB
	mu      sync.RWMutex
	profile string
}

// Open opens (creating if needed) the state database.
func Open(cfg *Config) (*Store, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	profile := strings.TrimSpace(cfg.Profile)
	if profile == "" {
		profile = DefaultProfile
	}

	dir := filepath.Dir(cfg.DatabasePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create state directory: %w", err)
	}

	db, err := sql.Open("sqlite", cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("set pragma: %w", err)
		}
	}

	s := &Store{db: db, profile: profile}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return s, nil
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS kv (
		profile TEXT NOT NULL,
		key TEXT NOT NULL,
		value TEXT NOT NULL,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (profile, key)
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Profile returns the profile this store is scoped to.
func (s *Store) Profile() string {
	return s.profile
}

// Get returns the value stored under key. The boolean is false when the key
// is absent.
func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM kv WHERE profile = ? AND key = ?`, s.profile, key,
	).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get %s: %w", key, err)
	}
	return value, true, nil
}

// Set stores value under key.
func (s *Store) Set(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO kv (profile, key, value, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(profile, key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at
	`, s.profile, key, value, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

// Delete removes key. Deleting an absent key is not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM kv WHERE profile = ? AND key = ?`, s.profile, key,
	); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// ActiveScan returns the active scan marker, or nil when none is stored.
// A marker that cannot be decoded is treated as absent and removed.
func (s *Store) ActiveScan(ctx context.Context) (*types.ActiveScan, error) {
	raw, ok, err := s.Get(ctx, keyActiveScan)
	if err != nil || !ok {
		return nil, err
	}
	var marker types.ActiveScan
	if err := json.Unmarshal([]byte(raw), &marker); err != nil || marker.TaskID == "" {
		return nil, s.Delete(ctx, keyActiveScan)
	}
	return &marker, nil
}

// SetActiveScan persists the marker of the scan being monitored.
func (s *Store) SetActiveScan(ctx context.Context, marker types.ActiveScan) error {
	if marker.TaskID == "" {
		return errors.E(errors.KindInvalidInput, "state.SetActiveScan", "task ID is required")
	}
	data, err := json.Marshal(marker)
	if err != nil {
		return fmt.Errorf("encode marker: %w", err)
	}
	return s.Set(ctx, keyActiveScan, string(data))
}

// ClearActiveScan removes the marker.
func (s *Store) ClearActiveScan(ctx context.Context) error {
	return s.Delete(ctx, keyActiveScan)
}

// Theme returns the stored theme, or ThemeDark when none is stored.
func (s *Store) Theme(ctx context.Context) (Theme, error) {
	raw, ok, err := s.Get(ctx, keyTheme)
	if err != nil {
		return ThemeDark, err
	}
	if !ok {
		return ThemeDark, nil
	}
	t, err := ParseTheme(raw)
	if err != nil {
		return ThemeDark, nil
	}
	return t, nil
}

// SetTheme persists the theme preference.
func (s *Store) SetTheme(ctx context.Context, t Theme) error {
	if _, err := ParseTheme(string(t)); err != nil {
		return err
	}
	return s.Set(ctx, keyTheme, string(t))
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
