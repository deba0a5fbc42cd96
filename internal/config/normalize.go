package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeNumista()
	if err := c.normalizeStore(); err != nil {
		return err
	}
	c.normalizeEnrichment()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeNumista() {
	c.Numista.APIKey = strings.TrimSpace(c.Numista.APIKey)
	if c.Numista.APIKey == "" {
		if value, ok := os.LookupEnv("NUMISTA_API_KEY"); ok {
			c.Numista.APIKey = strings.TrimSpace(value)
		}
	}
	c.Numista.Language = strings.ToLower(strings.TrimSpace(c.Numista.Language))
	if c.Numista.Language == "" {
		if value, ok := os.LookupEnv("NUMISTA_LANG"); ok {
			c.Numista.Language = strings.ToLower(strings.TrimSpace(value))
		}
	}
	if c.Numista.Language == "" {
		c.Numista.Language = defaultNumistaLanguage
	}
	c.Numista.BaseURL = strings.TrimRight(strings.TrimSpace(c.Numista.BaseURL), "/")
	if c.Numista.BaseURL == "" {
		c.Numista.BaseURL = defaultNumistaBaseURL
	}
	c.Numista.UserAgent = strings.TrimSpace(c.Numista.UserAgent)
	if c.Numista.UserAgent == "" {
		c.Numista.UserAgent = defaultNumistaUserAgent
	}
}

func (c *Config) normalizeStore() error {
	c.Store.Backend = strings.ToLower(strings.TrimSpace(c.Store.Backend))
	if c.Store.Backend == "" {
		c.Store.Backend = defaultBackend
	}

	if strings.TrimSpace(c.Store.SQLitePath) == "" {
		c.Store.SQLitePath = c.StatePath(defaultSQLiteFile)
	}
	var err error
	if c.Store.SQLitePath, err = expandPath(c.Store.SQLitePath); err != nil {
		return fmt.Errorf("store.sqlite_path: %w", err)
	}

	c.Store.ProjectID = strings.TrimSpace(c.Store.ProjectID)
	if c.Store.ProjectID == "" {
		if value, ok := os.LookupEnv("FIREBASE_PROJECT_ID"); ok {
			c.Store.ProjectID = strings.TrimSpace(value)
		}
	}
	c.Store.AccessToken = strings.TrimSpace(c.Store.AccessToken)
	if c.Store.AccessToken == "" {
		if value, ok := os.LookupEnv("FIRESTORE_ACCESS_TOKEN"); ok {
			c.Store.AccessToken = strings.TrimSpace(value)
		}
	}
	c.Store.PostgresDSN = strings.TrimSpace(c.Store.PostgresDSN)
	if c.Store.PostgresDSN == "" {
		if value, ok := os.LookupEnv("DATABASE_URL"); ok {
			c.Store.PostgresDSN = strings.TrimSpace(value)
		}
	}
	c.Store.DatabaseID = strings.TrimSpace(c.Store.DatabaseID)
	if c.Store.DatabaseID == "" {
		c.Store.DatabaseID = defaultFirestoreDatabase
	}
	c.Store.FirestoreBaseURL = strings.TrimRight(strings.TrimSpace(c.Store.FirestoreBaseURL), "/")
	if c.Store.FirestoreBaseURL == "" {
		c.Store.FirestoreBaseURL = defaultFirestoreBaseURL
	}
	c.Store.Collection = strings.TrimSpace(c.Store.Collection)
	if c.Store.Collection == "" {
		c.Store.Collection = defaultCollection
	}
	c.Store.RulersCollection = strings.TrimSpace(c.Store.RulersCollection)
	if c.Store.RulersCollection == "" {
		c.Store.RulersCollection = defaultRulersCollection
	}
	return nil
}

func (c *Config) normalizeEnrichment() {
	c.Enrichment.Profile = strings.ToLower(strings.TrimSpace(c.Enrichment.Profile))
	if c.Enrichment.Profile == "" {
		c.Enrichment.Profile = defaultProfile
	}
	c.Enrichment.Gate = strings.ToLower(strings.TrimSpace(c.Enrichment.Gate))
	if c.Enrichment.Gate == "" {
		c.Enrichment.Gate = DefaultGate(c.Enrichment.Profile)
	}
	if c.Enrichment.ProgressEvery <= 0 {
		c.Enrichment.ProgressEvery = defaultProgressEvery
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

// DefaultGate returns the enrichment gate paired with a scoring profile.
func DefaultGate(profile string) string {
	if profile == ProfileRuler {
		return GateImagesIdentifier
	}
	return GateNameImages
}
