package enrichment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"coinenrich/internal/coin"
	"coinenrich/internal/config"
	"coinenrich/internal/docstore"
	"coinenrich/internal/logging"
	"coinenrich/internal/matching"
	"coinenrich/internal/numista"
	"coinenrich/internal/services"
)

const stageName = "enrichment"

// Reasons a record is left unchanged.
const (
	SkipComplete     = "complete"
	SkipNoTypeID     = "no_type_id"
	SkipInconsistent = "inconsistent"
	SkipNoChanges    = "no_changes"
)

// Options configures a Runner.
type Options struct {
	Collection       string
	RulersCollection string
	Profile          matching.Profile
	Gate             string
	Language         string
	BatchSize        int
	Limit            int
	DryRun           bool
	Force            bool
	EnableSearch     bool
	FailFast         bool
	ProgressEvery    int
}

// OptionsFromConfig derives run options from the loaded configuration.
func OptionsFromConfig(cfg *config.Config) (Options, error) {
	if cfg == nil {
		return Options{}, services.Wrap(services.ErrConfiguration, stageName, "options", "configuration required", nil)
	}
	profile, err := matching.ProfileFromConfig(cfg.Enrichment.Profile, cfg.Scoring)
	if err != nil {
		return Options{}, err
	}
	return Options{
		Collection:       cfg.Store.Collection,
		RulersCollection: cfg.Store.RulersCollection,
		Profile:          profile,
		Gate:             cfg.Enrichment.Gate,
		Language:         cfg.Numista.Language,
		BatchSize:        cfg.Enrichment.BatchSize,
		Limit:            cfg.Enrichment.Limit,
		DryRun:           cfg.Enrichment.DryRun,
		Force:            cfg.Enrichment.Force,
		EnableSearch:     cfg.Enrichment.EnableSearch,
		FailFast:         cfg.Enrichment.FailFast,
		ProgressEvery:    cfg.Enrichment.ProgressEvery,
	}, nil
}

// Result is the summary of a finished or aborted run.
type Result struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time
	Stats      Stats
}

// Outcome describes how one document was, or would be, handled.
type Outcome struct {
	DocumentID string
	Coin       coin.Coin
	Resolution coin.Resolution
	Resolved   bool
	// Selection is set when a search ran for this document.
	Selection *matching.Selection
	Query     matching.Query
	Detail    *numista.Type
	Update    Update
	Skip      string
	Reason    string
}

// Runner executes enrichment runs against one store and catalog.
type Runner struct {
	store   docstore.Store
	catalog numista.Catalog
	opts    Options
	logger  *slog.Logger
	now     func() time.Time
	newID   func() string
}

// RunnerOption customizes a Runner.
type RunnerOption func(*Runner)

// WithClock overrides the clock used for sync stamps and run times.
func WithClock(now func() time.Time) RunnerOption {
	return func(r *Runner) {
		if now != nil {
			r.now = now
		}
	}
}

// WithRunIDs overrides run id generation.
func WithRunIDs(newID func() string) RunnerOption {
	return func(r *Runner) {
		if newID != nil {
			r.newID = newID
		}
	}
}

// NewRunner creates a Runner.
func NewRunner(store docstore.Store, catalog numista.Catalog, opts Options, logger *slog.Logger, runnerOpts ...RunnerOption) *Runner {
	if logger == nil {
		logger = logging.NewNop()
	}
	if opts.BatchSize <= 0 || opts.BatchSize > docstore.MaxBatchSize {
		opts.BatchSize = docstore.MaxBatchSize
	}
	if opts.Profile.Name == "" {
		opts.Profile = matching.GeneralProfile()
	}
	r := &Runner{
		store:   store,
		catalog: catalog,
		opts:    opts,
		logger:  logging.NewComponentLogger(logger, stageName),
		now:     time.Now,
		newID:   uuid.NewString,
	}
	for _, opt := range runnerOpts {
		opt(r)
	}
	return r
}

// Options returns the effective run options.
func (r *Runner) Options() Options {
	return r.opts
}

// run holds the state owned by a single run.
type run struct {
	*Runner
	logger   *slog.Logger
	stats    Stats
	pending  []docstore.Patch
	details  map[int64]*numista.Type
	searches map[string]searchResult
	rulers   map[string]Ruler
}

type searchResult struct {
	resolution coin.Resolution
	found      bool
}

func (r *Runner) newRun(ctx context.Context, logger *slog.Logger) (*run, error) {
	state := &run{
		Runner:   r,
		logger:   logger,
		details:  make(map[int64]*numista.Type),
		searches: make(map[string]searchResult),
		rulers:   map[string]Ruler{},
	}
	if r.opts.EnableSearch && r.opts.Profile.Name == config.ProfileRuler {
		rulers, err := LoadRulers(ctx, r.store, r.opts.RulersCollection)
		if err != nil {
			return nil, err
		}
		state.rulers = rulers
		logger.Debug("rulers loaded", logging.Int("count", len(rulers)))
	}
	return state, nil
}

// Run enriches the collection. Per-record failures are counted and logged;
// with FailFast the first one aborts the run and is returned. Batches flushed
// before an abort stay committed. The returned Result is valid even when an
// error is returned.
func (r *Runner) Run(ctx context.Context) (Result, error) {
	result := Result{RunID: r.newID(), StartedAt: r.now()}
	ctx = services.WithRunID(ctx, result.RunID)
	ctx = services.WithStage(ctx, stageName)
	logger := logging.WithContext(ctx, r.logger)

	finish := func(state *run, err error) (Result, error) {
		if state != nil {
			result.Stats = state.stats
		}
		result.FinishedAt = r.now()
		return result, err
	}

	state, err := r.newRun(ctx, logger)
	if err != nil {
		return finish(nil, err)
	}
	docs, err := r.store.List(ctx, r.opts.Collection)
	if err != nil {
		return finish(state, fmt.Errorf("list %s: %w", r.opts.Collection, err))
	}
	state.stats.TotalDocsRead = len(docs)

	logger.Info("enrichment started",
		logging.String("collection", r.opts.Collection),
		logging.String("profile", r.opts.Profile.Name),
		logging.String("gate", r.opts.Gate),
		logging.Int("documents", len(docs)),
		logging.Bool("dry_run", r.opts.DryRun),
		logging.Bool("force", r.opts.Force),
		logging.Bool("enable_search", r.opts.EnableSearch),
	)

	for _, doc := range docs {
		if ctx.Err() != nil {
			break
		}
		if r.opts.Limit > 0 && state.stats.Scanned >= r.opts.Limit {
			break
		}
		state.stats.Scanned++
		docCtx := services.WithDocumentID(ctx, doc.ID)

		out, err := state.process(docCtx, doc)
		if err == nil {
			err = state.account(docCtx, out)
		}
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			var batchErr *batchError
			if !errors.As(err, &batchErr) {
				state.stats.Errors++
			}
			logging.ErrorWithContext(logging.WithContext(docCtx, r.logger), "record enrichment failed", "record_failed",
				logging.Error(err),
				logging.String("error_kind", services.Classify(err)),
				logging.Bool("retryable", services.IsRetryable(err)),
				logging.String(logging.FieldErrorHint, errorHint(err)),
			)
			if r.opts.FailFast {
				return finish(state, err)
			}
		}
		state.progress()
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		if err := state.flush(context.WithoutCancel(ctx)); err != nil {
			logger.Warn("final flush after cancellation failed", logging.Error(err))
		}
		logger.Warn("enrichment interrupted", logging.Int("scanned", state.stats.Scanned))
		return finish(state, ctxErr)
	}
	if err := state.flush(ctx); err != nil {
		logging.ErrorWithContext(logger, "final batch commit failed", "batch_failed",
			logging.Error(err),
			logging.String("error_kind", services.Classify(err)),
			logging.String(logging.FieldErrorHint, errorHint(err)),
		)
		if r.opts.FailFast {
			return finish(state, err)
		}
	}

	logger.Info("enrichment complete",
		logging.Int("scanned", state.stats.Scanned),
		logging.Int("updated", state.stats.Updated),
		logging.Int("would_update", state.stats.WouldUpdate),
		logging.Int("skipped_no_type_id", state.stats.SkippedNoTypeID),
		logging.Int("errors", state.stats.Errors),
	)
	return finish(state, nil)
}

// Inspect runs resolution and merging for one stored document without
// writing anything.
func (r *Runner) Inspect(ctx context.Context, id string) (Outcome, error) {
	ctx = services.WithDocumentID(ctx, id)
	logger := logging.WithContext(ctx, r.logger)
	state, err := r.newRun(ctx, logger)
	if err != nil {
		return Outcome{}, err
	}
	doc, err := r.store.Get(ctx, r.opts.Collection, id)
	if err != nil {
		return Outcome{}, err
	}
	return state.process(ctx, doc)
}

func (s *run) process(ctx context.Context, doc docstore.Document) (Outcome, error) {
	logger := logging.WithContext(ctx, s.Runner.logger)
	c := coin.FromFields(doc.Fields)
	out := Outcome{DocumentID: doc.ID, Coin: c}

	if !ShouldEnrich(s.opts.Gate, c, s.opts.Force) {
		out.Skip = SkipComplete
		return out, nil
	}

	res, ok := coin.ExtractTypeID(c, doc.ID)
	if ok {
		s.stats.TypeResolvedByField++
	} else if s.opts.EnableSearch {
		var err error
		res, ok, err = s.search(ctx, c, &out)
		if err != nil {
			return out, err
		}
		if ok {
			s.stats.TypeResolvedBySearch++
		}
	}
	if !ok {
		out.Skip = SkipNoTypeID
		out.Reason = "type id not resolved"
		if out.Selection != nil && out.Selection.Reason != "" {
			out.Reason = out.Selection.Reason
		}
		logger.Debug("no catalog type id", logging.String("reason", out.Reason))
		return out, nil
	}
	out.Resolution = res
	out.Resolved = true

	detail, err := s.detail(ctx, res.TypeID)
	if err != nil {
		return out, err
	}
	out.Detail = detail

	if res.BySearch() && s.opts.Profile.Consistency {
		if consistent, reason := matching.Consistent(out.Query, detail); !consistent {
			out.Skip = SkipInconsistent
			out.Reason = reason
			logging.WarnWithContext(logger, "search match failed consistency check", "search_match_inconsistent",
				logging.Int64(logging.FieldTypeID, res.TypeID),
				logging.String("source", res.Source),
				logging.String("reason", reason),
				logging.String(logging.FieldErrorHint, "set numistaTypeId on the record to pin the type"),
			)
			return out, nil
		}
	}

	out.Update = BuildUpdate(c, detail, MergeOptions{
		Force:    s.opts.Force,
		Language: s.opts.Language,
		Now:      s.now(),
	})
	if out.Update.Empty() {
		out.Skip = SkipNoChanges
	}
	return out, nil
}

func (s *run) search(ctx context.Context, c coin.Coin, out *Outcome) (coin.Resolution, bool, error) {
	var plan SearchPlan
	if s.opts.Profile.Name == config.ProfileRuler {
		var ruler *Ruler
		if entry, ok := s.rulers[c.RulerID]; ok {
			ruler = &entry
		}
		plan = RulerPlan(c, ruler)
	} else {
		var ok bool
		if plan, ok = TextPlan(c); !ok {
			return coin.Resolution{}, false, nil
		}
	}
	out.Query = plan.Query

	if cached, ok := s.searches[plan.Key]; ok {
		return cached.resolution, cached.found, nil
	}
	resp, err := s.catalog.SearchTypes(ctx, plan.Params)
	if err != nil {
		return coin.Resolution{}, false, fmt.Errorf("search catalog: %w", err)
	}
	s.stats.NumistaSearchRequests++

	sel, found := matching.Select(logging.WithContext(ctx, s.Runner.logger), s.opts.Profile, plan.Query, resp.Types)
	out.Selection = &sel
	result := searchResult{found: found}
	if found {
		result.resolution = sel.Resolution()
	}
	s.searches[plan.Key] = result
	return result.resolution, result.found, nil
}

func (s *run) detail(ctx context.Context, id int64) (*numista.Type, error) {
	if cached, ok := s.details[id]; ok {
		return cached, nil
	}
	detail, err := s.catalog.GetType(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("fetch type %d: %w", id, err)
	}
	s.stats.NumistaDetailRequests++
	s.details[id] = detail
	return detail, nil
}

func (s *run) account(ctx context.Context, out Outcome) error {
	switch out.Skip {
	case SkipComplete:
		s.stats.SkippedComplete++
		return nil
	case SkipNoTypeID, SkipInconsistent:
		s.stats.SkippedNoTypeID++
		return nil
	case SkipNoChanges:
		s.stats.SkippedNoChanges++
		return nil
	}

	logger := logging.WithContext(ctx, s.Runner.logger)
	if s.opts.DryRun {
		s.stats.WouldUpdate++
		logger.Info("dry run update",
			logging.Int64(logging.FieldTypeID, out.Resolution.TypeID),
			logging.String("source", out.Resolution.Source),
			logging.String("fields", strings.Join(out.Update.Changed, ", ")),
		)
		return nil
	}

	s.pending = append(s.pending, docstore.Patch{ID: out.DocumentID, Fields: out.Update.Fields})
	logger.Debug("update queued",
		logging.Int64(logging.FieldTypeID, out.Resolution.TypeID),
		logging.String("source", out.Resolution.Source),
		logging.Int("changed_fields", len(out.Update.Changed)),
	)
	if len(s.pending) >= s.opts.BatchSize {
		return s.flush(ctx)
	}
	return nil
}

// batchError reports a failed commit. Its records are already counted.
type batchError struct {
	size int
	err  error
}

func (e *batchError) Error() string {
	return fmt.Sprintf("commit batch of %d: %v", e.size, e.err)
}

func (e *batchError) Unwrap() error {
	return e.err
}

// flush commits the pending patches. A failed batch counts every record in it
// as an error and is dropped.
func (s *run) flush(ctx context.Context) error {
	if len(s.pending) == 0 {
		return nil
	}
	batch := s.pending
	s.pending = nil
	if err := s.store.Commit(ctx, s.opts.Collection, batch); err != nil {
		s.stats.Errors += len(batch)
		return &batchError{size: len(batch), err: err}
	}
	s.stats.Updated += len(batch)
	s.logger.Debug("batch committed", logging.Int("documents", len(batch)))
	return nil
}

func (s *run) progress() {
	every := s.opts.ProgressEvery
	if every <= 0 || s.stats.Scanned%every != 0 {
		return
	}
	s.logger.Info("enrichment progress",
		logging.Int("scanned", s.stats.Scanned),
		logging.Int("total", s.stats.TotalDocsRead),
		logging.Int("updated", s.stats.Updated),
		logging.Int("would_update", s.stats.WouldUpdate),
		logging.Int("errors", s.stats.Errors),
	)
}

func errorHint(err error) string {
	switch {
	case errors.Is(err, services.ErrTransient):
		return "catalog or store unavailable; rerun later or raise request_delay_ms"
	case errors.Is(err, services.ErrNotFound):
		return "stored type id does not exist in the catalog"
	case errors.Is(err, services.ErrDecode):
		return "unexpected response payload"
	case errors.Is(err, services.ErrExternalService):
		return "check the Numista API key and quota"
	default:
		return "check logs for details"
	}
}
