package testsupport

import (
	"path/filepath"
	"testing"

	"coinenrich/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Numista.APIKey = "test"
	cfgVal.Numista.Language = "en"
	cfgVal.Numista.RequestDelayMS = 1
	cfgVal.Numista.MaxRetries = 2
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Store.SQLitePath = filepath.Join(base, "state", "coins.db")
	cfgVal.Enrichment.Gate = config.DefaultGate(cfgVal.Enrichment.Profile)

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithNumistaKey sets the Numista API key on the test config.
func WithNumistaKey(key string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Numista.APIKey = key
	}
}

// WithNumistaBaseURL points the test config at a fake catalog server.
func WithNumistaBaseURL(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Numista.BaseURL = url
	}
}

// WithProfile switches the scoring profile and its paired gate.
func WithProfile(profile string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Enrichment.Profile = profile
		b.cfg.Enrichment.Gate = config.DefaultGate(profile)
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StateDir)
}
