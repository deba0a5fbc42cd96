package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Validate ensures the configuration is usable. The Numista API key is checked
// separately by RequireNumistaKey so store-only commands work without it.
func (c *Config) Validate() error {
	if err := c.validateNumista(); err != nil {
		return err
	}
	if err := c.validateStore(); err != nil {
		return err
	}
	if err := c.validateEnrichment(); err != nil {
		return err
	}
	return c.validateLogging()
}

// RequireNumistaKey reports a configuration error when no Numista API key is
// available.
func (c *Config) RequireNumistaKey() error {
	if strings.TrimSpace(c.Numista.APIKey) != "" {
		return nil
	}
	defaultPath, err := DefaultConfigPath()
	if err != nil {
		defaultPath = defaultConfigRelativePath
	}
	return fmt.Errorf("numista.api_key is required. Set NUMISTA_API_KEY env var or edit %s (create with 'coinenrich config init')", defaultPath)
}

func (c *Config) validateNumista() error {
	if !slices.Contains(SupportedLanguages, c.Numista.Language) {
		return fmt.Errorf("numista.language %q is not supported (supported: %s)", c.Numista.Language, strings.Join(SupportedLanguages, ", "))
	}
	if err := ensurePositiveMap(map[string]int{
		"numista.request_delay_ms": c.Numista.RequestDelayMS,
		"numista.max_retries":      c.Numista.MaxRetries,
		"numista.timeout_seconds":  c.Numista.TimeoutSeconds,
	}); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateStore() error {
	switch c.Store.Backend {
	case BackendSQLite:
		if c.Store.SQLitePath == "" {
			return errors.New("store.sqlite_path must be set when store.backend is sqlite")
		}
	case BackendFirestore:
		if c.Store.ProjectID == "" {
			return errors.New("store.project_id is required when store.backend is firestore. Set FIREBASE_PROJECT_ID or edit the config")
		}
	case BackendPostgres:
		if c.Store.PostgresDSN == "" {
			return errors.New("store.postgres_dsn is required when store.backend is postgres. Set DATABASE_URL or edit the config")
		}
	default:
		return fmt.Errorf("store.backend %q is not supported (use %s, %s or %s)", c.Store.Backend, BackendSQLite, BackendFirestore, BackendPostgres)
	}
	if strings.Contains(c.Store.Collection, "/") {
		return fmt.Errorf("store.collection %q must be a top-level collection name", c.Store.Collection)
	}
	return nil
}

func (c *Config) validateEnrichment() error {
	switch c.Enrichment.Profile {
	case ProfileGeneral, ProfileRuler:
	default:
		return fmt.Errorf("enrichment.profile %q is not supported (use %s or %s)", c.Enrichment.Profile, ProfileGeneral, ProfileRuler)
	}
	switch c.Enrichment.Gate {
	case GateNameImages, GateImagesIdentifier:
	default:
		return fmt.Errorf("enrichment.gate %q is not supported (use %s or %s)", c.Enrichment.Gate, GateNameImages, GateImagesIdentifier)
	}
	if c.Enrichment.BatchSize < 1 || c.Enrichment.BatchSize > maxBatchSize {
		return fmt.Errorf("enrichment.batch_size must be an integer in range 1..%d (got %d)", maxBatchSize, c.Enrichment.BatchSize)
	}
	if c.Enrichment.Limit < 0 {
		return errors.New("enrichment.limit must not be negative")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json", "auto":
	default:
		return fmt.Errorf("logging.format %q is not supported (use console, json or auto)", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level %q is not supported", c.Logging.Level)
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	for _, key := range keys {
		if values[key] <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
