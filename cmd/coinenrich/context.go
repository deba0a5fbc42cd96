package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"coinenrich/internal/config"
	"coinenrich/internal/docstore"
	"coinenrich/internal/docstore/firestore"
	"coinenrich/internal/docstore/postgres"
	"coinenrich/internal/docstore/sqlite"
	"coinenrich/internal/logging"
	"coinenrich/internal/numista"
)

// dotEnvFiles are loaded in order; earlier files win because godotenv never
// overrides variables that are already set.
var dotEnvFiles = []string{".env.local", ".env"}

type commandContext struct {
	configFlag  *string
	verboseFlag *bool

	configOnce sync.Once
	config     *config.Config
	configPath string
	configErr  error
}

func newCommandContext(configFlag *string, verboseFlag *bool) *commandContext {
	return &commandContext{
		configFlag:  configFlag,
		verboseFlag: verboseFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolved, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = resolved
	})
	return c.config, c.configErr
}

// configCopy returns a copy of the loaded configuration that a command may
// adjust with its flags.
func (c *commandContext) configCopy() (*config.Config, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	clone := *cfg
	return &clone, nil
}

func (c *commandContext) verbose() bool {
	return c.verboseFlag != nil && *c.verboseFlag
}

func (c *commandContext) logger(cfg *config.Config) (*slog.Logger, error) {
	logger, err := logging.NewFromConfig(cfg, c.verbose())
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return logger, nil
}

func loadDotEnv() {
	for _, name := range dotEnvFiles {
		if err := godotenv.Load(name); err != nil && !errors.Is(err, fs.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "warning: ignoring %s: %v\n", name, err)
		}
	}
}

// openDocumentStore opens the configured backend. The returned closer is
// never nil.
func openDocumentStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (docstore.Store, func() error, error) {
	switch cfg.Store.Backend {
	case config.BackendPostgres:
		store, err := postgres.Open(ctx, cfg.Store.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	case config.BackendFirestore:
		client, err := firestore.New(
			cfg.Store.ProjectID,
			cfg.Store.DatabaseID,
			cfg.Store.FirestoreBaseURL,
			cfg.Store.AccessToken,
			firestore.WithHTTPClient(&http.Client{Timeout: numistaTimeout(cfg)}),
			firestore.WithRequestDelay(cfg.Numista.RequestDelay()),
			firestore.WithMaxRetries(cfg.Numista.MaxRetries),
			firestore.WithLogger(logging.NewComponentLogger(logger, "firestore")),
		)
		if err != nil {
			return nil, nil, err
		}
		return client, func() error { return nil }, nil
	default:
		store, err := openLocalStore(cfg)
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	}
}

func openLocalStore(cfg *config.Config) (*sqlite.Store, error) {
	store, err := sqlite.Open(cfg.Store.SQLitePath)
	if err != nil {
		return nil, fmt.Errorf("open local store: %w", err)
	}
	return store, nil
}

func requireLocalBackend(cfg *config.Config, command string) error {
	if cfg.Store.Backend != config.BackendSQLite {
		return fmt.Errorf("%s works on the sqlite backend only (configured backend: %s)", command, cfg.Store.Backend)
	}
	return nil
}

func newCatalog(cfg *config.Config, logger *slog.Logger) (*numista.Client, error) {
	if err := cfg.RequireNumistaKey(); err != nil {
		return nil, err
	}
	return numista.New(cfg.Numista.APIKey, cfg.Numista.BaseURL, cfg.Numista.Language,
		numista.WithHTTPClient(&http.Client{Timeout: numistaTimeout(cfg)}),
		numista.WithRequestDelay(cfg.Numista.RequestDelay()),
		numista.WithMaxRetries(cfg.Numista.MaxRetries),
		numista.WithUserAgent(cfg.Numista.UserAgent),
		numista.WithLogger(logging.NewComponentLogger(logger, "numista")),
	)
}

func numistaTimeout(cfg *config.Config) time.Duration {
	if cfg.Numista.TimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(cfg.Numista.TimeoutSeconds) * time.Second
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
