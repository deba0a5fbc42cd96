package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"coinenrich/internal/config"
	"coinenrich/internal/docstore/sqlite"
	"coinenrich/internal/enrichment"
	"coinenrich/internal/logging"
)

const enrichLockName = "enrich.lock"

type enrichFlags struct {
	collection    string
	limit         int
	batchSize     int
	lang          string
	dryRun        bool
	force         bool
	enableSearch  bool
	disableSearch bool
	requestDelay  int
	maxRetries    int
	failFast      bool
	profile       string
	gate          string
	backend       string
	jsonOutput    bool
}

type enrichReport struct {
	RunID      string `json:"runId"`
	Profile    string `json:"profile"`
	Backend    string `json:"backend"`
	Collection string `json:"collection"`
	DryRun     bool   `json:"dryRun"`
	enrichment.Stats
}

func newEnrichCommand(ctx *commandContext) *cobra.Command {
	var flags enrichFlags

	cmd := &cobra.Command{
		Use:   "enrich",
		Short: "Enrich coin records with Numista catalog data",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.configCopy()
			if err != nil {
				return err
			}
			if err := flags.apply(cmd, cfg); err != nil {
				return err
			}
			return runEnrich(cmd, ctx, cfg, flags.jsonOutput)
		},
	}

	f := cmd.Flags()
	f.StringVar(&flags.collection, "collection", "", "Collection holding coin records")
	f.IntVar(&flags.limit, "limit", 0, "Stop after scanning this many records (0 = all)")
	f.IntVar(&flags.batchSize, "batch-size", 0, "Documents per batched write (1-500)")
	f.StringVar(&flags.lang, "lang", "", "Numista response language (en, es, fr, ru)")
	f.BoolVar(&flags.dryRun, "dry-run", false, "Resolve and merge without writing")
	f.BoolVar(&flags.force, "force", false, "Enrich every record and overwrite existing fields")
	f.BoolVar(&flags.enableSearch, "enable-search", false, "Search the catalog when no type id is stored")
	f.BoolVar(&flags.disableSearch, "disable-search", false, "Only use stored type ids")
	f.IntVar(&flags.requestDelay, "request-delay", 0, "Milliseconds between Numista requests")
	f.IntVar(&flags.maxRetries, "max-retries", 0, "Attempts per request for throttled or failed calls")
	f.BoolVar(&flags.failFast, "fail-fast", false, "Abort on the first record error")
	f.StringVar(&flags.profile, "profile", "", "Scoring profile (general, ruler)")
	f.StringVar(&flags.gate, "gate", "", "Enrichment gate (name_images, images_identifier)")
	f.StringVar(&flags.backend, "backend", "", "Document store backend (sqlite, firestore, postgres)")
	f.BoolVar(&flags.jsonOutput, "json", false, "Print run statistics as JSON")
	cmd.MarkFlagsMutuallyExclusive("enable-search", "disable-search")

	return cmd
}

// apply overlays explicitly set flags onto cfg and revalidates it.
func (f enrichFlags) apply(cmd *cobra.Command, cfg *config.Config) error {
	changed := cmd.Flags().Changed
	if changed("collection") {
		cfg.Store.Collection = f.collection
	}
	if changed("limit") {
		cfg.Enrichment.Limit = f.limit
	}
	if changed("batch-size") {
		cfg.Enrichment.BatchSize = f.batchSize
	}
	if changed("lang") {
		cfg.Numista.Language = f.lang
	}
	if changed("dry-run") {
		cfg.Enrichment.DryRun = f.dryRun
	}
	if changed("force") {
		cfg.Enrichment.Force = f.force
	}
	if changed("enable-search") {
		cfg.Enrichment.EnableSearch = f.enableSearch
	}
	if changed("disable-search") && f.disableSearch {
		cfg.Enrichment.EnableSearch = false
	}
	if changed("request-delay") {
		cfg.Numista.RequestDelayMS = f.requestDelay
	}
	if changed("max-retries") {
		cfg.Numista.MaxRetries = f.maxRetries
	}
	if changed("fail-fast") {
		cfg.Enrichment.FailFast = f.failFast
	}
	if changed("profile") {
		cfg.Enrichment.Profile = f.profile
		if !changed("gate") {
			cfg.Enrichment.Gate = config.DefaultGate(f.profile)
		}
	}
	if changed("gate") {
		cfg.Enrichment.Gate = f.gate
	}
	if changed("backend") {
		cfg.Store.Backend = f.backend
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	return cfg.RequireNumistaKey()
}

func runEnrich(cmd *cobra.Command, ctx *commandContext, cfg *config.Config, jsonOutput bool) error {
	logger, err := ctx.logger(cfg)
	if err != nil {
		return err
	}

	lock := flock.New(cfg.StatePath(enrichLockName))
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire run lock: %w", err)
	}
	if !locked {
		return errors.New("another enrichment run is already in progress")
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			logger.Warn("failed to release run lock", logging.Error(err))
		}
	}()

	store, closeStore, err := openDocumentStore(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	catalog, err := newCatalog(cfg, logger)
	if err != nil {
		return err
	}
	opts, err := enrichment.OptionsFromConfig(cfg)
	if err != nil {
		return err
	}

	runner := enrichment.NewRunner(store, catalog, opts, logger)
	result, runErr := runner.Run(cmd.Context())
	recordRun(cmd.Context(), cfg, result, runErr, logger)

	report := enrichReport{
		RunID:      result.RunID,
		Profile:    opts.Profile.Name,
		Backend:    cfg.Store.Backend,
		Collection: opts.Collection,
		DryRun:     opts.DryRun,
		Stats:      result.Stats,
	}
	out := cmd.OutOrStdout()
	if jsonOutput {
		if err := writeJSON(out, report); err != nil {
			return err
		}
	} else {
		fmt.Fprintf(out, "Run %s (%s profile, %s backend, collection %s, dry run: %s)\n",
			report.RunID, report.Profile, report.Backend, report.Collection, yesNo(report.DryRun))
		fmt.Fprintln(out, renderStats(result.Stats))
	}
	return runErr
}

func renderStats(stats enrichment.Stats) string {
	rows := make([][]string, 0, 12)
	for _, row := range stats.Rows() {
		rows = append(rows, []string{row.Name, strconv.Itoa(row.Value)})
	}
	return renderTable([]column{left("Counter"), right("Value")}, rows)
}

// recordRun stores the run in the local history database. Failures are
// logged and never fail the command.
func recordRun(ctx context.Context, cfg *config.Config, result enrichment.Result, runErr error, logger *slog.Logger) {
	store, err := openLocalStore(cfg)
	if err != nil {
		logger.Warn("run history unavailable", logging.Error(err))
		return
	}
	defer store.Close()

	statsJSON, err := json.Marshal(result.Stats)
	if err != nil {
		logger.Warn("encode run stats", logging.Error(err))
		return
	}
	run := sqlite.Run{
		ID:         result.RunID,
		StartedAt:  result.StartedAt,
		FinishedAt: result.FinishedAt,
		Profile:    cfg.Enrichment.Profile,
		Backend:    cfg.Store.Backend,
		Collection: cfg.Store.Collection,
		DryRun:     cfg.Enrichment.DryRun,
		StatsJSON:  string(statsJSON),
	}
	if runErr != nil {
		run.Error = runErr.Error()
	}
	if err := store.RecordRun(context.WithoutCancel(ctx), run); err != nil {
		logger.Warn("failed to record run", logging.Error(err))
	}
}
