package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains local directories used for state and logs.
type Paths struct {
	StateDir string `toml:"state_dir"`
	LogDir   string `toml:"log_dir"`
}

// Numista contains configuration for the Numista catalog API.
type Numista struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Language       string `toml:"language"`
	UserAgent      string `toml:"user_agent"`
	RequestDelayMS int    `toml:"request_delay_ms"`
	MaxRetries     int    `toml:"max_retries"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// RequestDelay returns the pacing interval between Numista requests.
func (n Numista) RequestDelay() time.Duration {
	return time.Duration(n.RequestDelayMS) * time.Millisecond
}

// Store selects and addresses the document store holding coin records.
type Store struct {
	Backend          string `toml:"backend"`
	SQLitePath       string `toml:"sqlite_path"`
	ProjectID        string `toml:"project_id"`
	DatabaseID       string `toml:"database_id"`
	FirestoreBaseURL string `toml:"firestore_base_url"`
	AccessToken      string `toml:"access_token"`
	PostgresDSN      string `toml:"postgres_dsn"`
	Collection       string `toml:"collection"`
	RulersCollection string `toml:"rulers_collection"`
}

// Enrichment contains run options for the enrichment pipeline.
type Enrichment struct {
	Profile       string `toml:"profile"`
	Gate          string `toml:"gate"`
	BatchSize     int    `toml:"batch_size"`
	Limit         int    `toml:"limit"`
	DryRun        bool   `toml:"dry_run"`
	Force         bool   `toml:"force"`
	EnableSearch  bool   `toml:"enable_search"`
	FailFast      bool   `toml:"fail_fast"`
	ProgressEvery int    `toml:"progress_every"`
}

// ScoringOverrides replaces individual weights of a built-in scoring profile.
// Nil fields keep the profile value.
type ScoringOverrides struct {
	TitleExact       *int  `toml:"title_exact"`
	TitleContains    *int  `toml:"title_contains"`
	TokenWeight      *int  `toml:"token_weight"`
	TokenCap         *int  `toml:"token_cap"`
	IssuerExact      *int  `toml:"issuer_exact"`
	IssuerPartial    *int  `toml:"issuer_partial"`
	YearInRange      *int  `toml:"year_in_range"`
	YearNear         *int  `toml:"year_near"`
	YearTolerance    *int  `toml:"year_tolerance"`
	CoinBonus        *int  `toml:"coin_bonus"`
	UnitMatch        *int  `toml:"unit_match"`
	ValueMatch       *int  `toml:"value_match"`
	RulerTokenWeight *int  `toml:"ruler_token_weight"`
	RulerTokenCap    *int  `toml:"ruler_token_cap"`
	Floor            *int  `toml:"floor"`
	Gap              *int  `toml:"gap"`
	Consistency      *bool `toml:"consistency_check"`
}

// Scoring holds per-profile overrides.
type Scoring struct {
	General ScoringOverrides `toml:"general"`
	Ruler   ScoringOverrides `toml:"ruler"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for coinenrich.
//
// Configuration sections by subsystem:
//   - Paths: state and log directories
//   - Numista: catalog API credentials, language, pacing, and retries
//   - Store: document store backend and collection names
//   - Enrichment: run options (profile, gate, batching, dry-run, force)
//   - Scoring: per-profile weight overrides
//   - Logging: log format and level
type Config struct {
	Paths      Paths      `toml:"paths"`
	Numista    Numista    `toml:"numista"`
	Store      Store      `toml:"store"`
	Enrichment Enrichment `toml:"enrichment"`
	Scoring    Scoring    `toml:"scoring"`
	Logging    Logging    `toml:"logging"`
}

// DefaultConfigPath returns ~/.config/coinenrich/config.toml as an absolute path.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigRelativePath)
}

// Load reads the configuration at path, or the first of the default path and
// ./coinenrich.toml that exists when path is empty. Missing files fall back to
// Default(). It returns the config, the path it resolved and whether that file
// existed. Unknown keys are rejected so typos do not pass silently.
func Load(path string) (*Config, string, bool, error) {
	resolved, err := locateConfig(path)
	if err != nil {
		return nil, "", false, err
	}

	cfg := Default()
	data, err := os.ReadFile(resolved)
	exists := err == nil
	switch {
	case exists:
		decoder := toml.NewDecoder(bytes.NewReader(data))
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, resolved, true, fmt.Errorf("parse config %s: %w", resolved, err)
		}
	case !errors.Is(err, fs.ErrNotExist):
		return nil, resolved, false, fmt.Errorf("read config %s: %w", resolved, err)
	}

	if err := cfg.normalize(); err != nil {
		return nil, resolved, exists, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, resolved, exists, err
	}
	return &cfg, resolved, exists, nil
}

func locateConfig(path string) (string, error) {
	if path = strings.TrimSpace(path); path != "" {
		return expandPath(path)
	}
	home, err := DefaultConfigPath()
	if err != nil {
		return "", err
	}
	local, err := filepath.Abs(projectConfigName)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", projectConfigName, err)
	}
	for _, candidate := range []string{home, local} {
		if info, statErr := os.Stat(candidate); statErr == nil && info.Mode().IsRegular() {
			return candidate, nil
		}
	}
	return home, nil
}

// EnsureDirectories creates the state and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StateDir, c.Paths.LogDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return nil
}

// StatePath joins name onto the state directory.
func (c *Config) StatePath(name string) string {
	return filepath.Join(c.Paths.StateDir, name)
}

// expandPath resolves a leading ~ and makes the result absolute. Empty stays
// empty.
func expandPath(p string) (string, error) {
	if p == "" {
		return "", nil
	}
	if p == "~" || strings.HasPrefix(p, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("expand %s: %w", p, err)
		}
		p = home + strings.TrimPrefix(p, "~")
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", fmt.Errorf("expand %s: %w", p, err)
	}
	return abs, nil
}

// ExpandPath applies the same ~ and absolute-path rules used for config paths.
func ExpandPath(p string) (string, error) {
	return expandPath(p)
}

// CreateSample writes the commented sample configuration to path, creating
// parent directories.
func CreateSample(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
