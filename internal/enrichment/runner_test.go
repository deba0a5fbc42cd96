package enrichment_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"coinenrich/internal/config"
	"coinenrich/internal/docstore"
	"coinenrich/internal/enrichment"
	"coinenrich/internal/logging"
	"coinenrich/internal/matching"
	"coinenrich/internal/numista"
	"coinenrich/internal/services"
	"coinenrich/internal/testsupport"
)

func intPtr(v int) *int { return &v }

func generalOptions() enrichment.Options {
	return enrichment.Options{
		Collection:       "coins",
		RulersCollection: "rulers",
		Profile:          matching.GeneralProfile(),
		Gate:             config.GateNameImages,
		Language:         "en",
		BatchSize:        10,
		EnableSearch:     true,
	}
}

func newRunner(store docstore.Store, catalog numista.Catalog, opts enrichment.Options) *enrichment.Runner {
	return enrichment.NewRunner(store, catalog, opts, logging.NewNop(),
		enrichment.WithClock(func() time.Time { return syncTime }),
		enrichment.WithRunIDs(func() string { return "run-1" }),
	)
}

// seedGeneral stores four coins: one linked by url, one complete, one without
// any searchable text, and one that needs a search.
func seedGeneral(t *testing.T) (docstore.Store, *testsupport.FakeNumista) {
	t.Helper()

	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	testsupport.SeedDocument(t, store, "coins", "c-field", map[string]any{
		"numistaUrl": "https://en.numista.com/catalogue/pieces12345.html",
	})
	testsupport.SeedDocument(t, store, "coins", "c-complete", map[string]any{"name": "Medal", "image": "m.jpg"})
	testsupport.SeedDocument(t, store, "coins", "c-none", map[string]any{"image": "x.jpg"})
	testsupport.SeedDocument(t, store, "coins", "c-search", map[string]any{
		"title":      "1 Ruble",
		"issuerName": "Russia",
		"year":       1724,
	})

	fake := testsupport.NewFakeNumista(t)
	fake.AddType(rubleType())
	fake.SetSearchResults(
		numista.SearchType{ID: 12345, Title: "1 Ruble", Category: "coin", Issuer: &numista.Issuer{Name: "Russia"}, MinYear: intPtr(1704), MaxYear: intPtr(1725)},
		numista.SearchType{ID: 999, Title: "Medal", Category: "coin", Issuer: &numista.Issuer{Name: "Poland"}},
	)
	return store, fake
}

func TestRunEnrichesCollection(t *testing.T) {
	store, fake := seedGeneral(t)

	result, err := newRunner(store, fake.Client(t), generalOptions()).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := enrichment.Stats{
		Scanned:               4,
		Updated:               2,
		SkippedComplete:       1,
		SkippedNoTypeID:       1,
		TypeResolvedByField:   1,
		TypeResolvedBySearch:  1,
		NumistaDetailRequests: 1,
		NumistaSearchRequests: 1,
		TotalDocsRead:         4,
	}
	if diff := cmp.Diff(want, result.Stats); diff != "" {
		t.Fatalf("stats (-want +got):\n%s", diff)
	}
	if result.RunID != "run-1" {
		t.Fatalf("run id = %q", result.RunID)
	}
	if fake.DetailCalls() != 1 {
		t.Fatalf("detail should be fetched once per type, got %d calls", fake.DetailCalls())
	}

	linked := testsupport.MustGet(t, store, "coins", "c-field")
	if got := linked.Fields["numistaTypeId"]; got != float64(12345) {
		t.Fatalf("numistaTypeId = %#v", got)
	}
	if got := linked.Fields["title"]; got != "1 Ruble" {
		t.Fatalf("title = %#v", got)
	}
	if got := linked.Fields[enrichment.SyncedAtField]; got != "2024-05-01T10:00:00Z" {
		t.Fatalf("sync stamp = %#v", got)
	}
	if got := linked.Fields["year"]; got != float64(1704) {
		t.Fatalf("blank year should be filled from minYear, got %#v", got)
	}
	if got := linked.Fields["denomination"]; got != "1 Ruble" {
		t.Fatalf("blank denomination should be filled, got %#v", got)
	}

	searched := testsupport.MustGet(t, store, "coins", "c-search")
	if got := searched.Fields["numistaId"]; got != float64(12345) {
		t.Fatalf("searched numistaId = %#v", got)
	}
	if got := searched.Fields["year"]; got != float64(1724) {
		t.Fatalf("stored year must be kept, got %#v", got)
	}
	if got := searched.Fields["issuerName"]; got != "Russia" {
		t.Fatalf("stored issuer must be kept, got %#v", got)
	}
	if got := searched.Fields["denomination"]; got != "1 Ruble" {
		t.Fatalf("blank denomination should be filled, got %#v", got)
	}
	snapshot, ok := searched.Fields[enrichment.SnapshotField].(map[string]any)
	if !ok || snapshot["title"] != "1 Ruble" {
		t.Fatalf("snapshot = %#v", searched.Fields[enrichment.SnapshotField])
	}

	queries := fake.SearchQueries()
	if len(queries) != 1 {
		t.Fatalf("expected one search, got %d", len(queries))
	}
	if got := queries[0].Get("q"); got != "1 Ruble Russia" {
		t.Fatalf("search q = %q", got)
	}
	if got := queries[0].Get("date"); got != "1724" {
		t.Fatalf("search date = %q", got)
	}

	untouched := testsupport.MustGet(t, store, "coins", "c-complete")
	if _, ok := untouched.Fields[enrichment.SnapshotField]; ok {
		t.Fatal("complete coin must not be written")
	}
}

func TestRunDryRunWritesNothing(t *testing.T) {
	store, fake := seedGeneral(t)
	opts := generalOptions()
	opts.DryRun = true

	result, err := newRunner(store, fake.Client(t), opts).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Stats.WouldUpdate != 2 || result.Stats.Updated != 0 {
		t.Fatalf("unexpected stats: %+v", result.Stats)
	}
	doc := testsupport.MustGet(t, store, "coins", "c-field")
	if _, ok := doc.Fields["numistaTypeId"]; ok {
		t.Fatal("dry run must not write")
	}
}

func TestRunWithoutSearch(t *testing.T) {
	store, fake := seedGeneral(t)
	opts := generalOptions()
	opts.EnableSearch = false

	result, err := newRunner(store, fake.Client(t), opts).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Stats.SkippedNoTypeID != 2 || result.Stats.NumistaSearchRequests != 0 {
		t.Fatalf("unexpected stats: %+v", result.Stats)
	}
}

func TestRunSecondPassHasNoChanges(t *testing.T) {
	store, fake := seedGeneral(t)
	opts := generalOptions()
	opts.Force = true
	if _, err := newRunner(store, fake.Client(t), opts).Run(context.Background()); err != nil {
		t.Fatalf("first Run: %v", err)
	}

	result, err := newRunner(store, fake.Client(t), opts).Run(context.Background())
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if result.Stats.Updated != 0 {
		t.Fatalf("expected no updates on the second pass, got %+v", result.Stats)
	}
	if result.Stats.SkippedNoChanges == 0 {
		t.Fatalf("expected records counted as unchanged, got %+v", result.Stats)
	}
}

func TestRunHonorsLimit(t *testing.T) {
	store, fake := seedGeneral(t)
	opts := generalOptions()
	opts.Limit = 2

	result, err := newRunner(store, fake.Client(t), opts).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Stats.Scanned != 2 || result.Stats.TotalDocsRead != 4 {
		t.Fatalf("unexpected stats: %+v", result.Stats)
	}
}

type countingStore struct {
	docstore.Store
	commits []int
	fail    error
}

func (s *countingStore) Commit(ctx context.Context, collection string, patches []docstore.Patch) error {
	s.commits = append(s.commits, len(patches))
	if s.fail != nil {
		return s.fail
	}
	return s.Store.Commit(ctx, collection, patches)
}

func TestRunFlushesInBatches(t *testing.T) {
	store, fake := seedGeneral(t)
	counting := &countingStore{Store: store}
	opts := generalOptions()
	opts.BatchSize = 1

	result, err := newRunner(counting, fake.Client(t), opts).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if diff := cmp.Diff([]int{1, 1}, counting.commits); diff != "" {
		t.Fatalf("commit sizes (-want +got):\n%s", diff)
	}
	if result.Stats.Updated != 2 {
		t.Fatalf("updated = %d", result.Stats.Updated)
	}
}

func TestRunCountsFailedBatch(t *testing.T) {
	store, fake := seedGeneral(t)
	counting := &countingStore{Store: store, fail: errors.New("disk full")}

	result, err := newRunner(counting, fake.Client(t), generalOptions()).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Stats.Errors != 2 || result.Stats.Updated != 0 {
		t.Fatalf("unexpected stats: %+v", result.Stats)
	}
}

func TestRunFailFast(t *testing.T) {
	for _, failFast := range []bool{false, true} {
		cfg := testsupport.NewConfig(t)
		store := testsupport.MustOpenStore(t, cfg)
		testsupport.SeedDocument(t, store, "coins", "a-bad", map[string]any{"numistaTypeId": 777})
		testsupport.SeedDocument(t, store, "coins", "b-good", map[string]any{"numistaTypeId": 12345})

		fake := testsupport.NewFakeNumista(t)
		fake.AddType(rubleType())
		fake.FailType(777, http.StatusInternalServerError)

		opts := generalOptions()
		opts.FailFast = failFast
		result, err := newRunner(store, fake.Client(t), opts).Run(context.Background())

		if !failFast {
			if err != nil {
				t.Fatalf("Run: %v", err)
			}
			if result.Stats.Errors != 1 || result.Stats.Updated != 1 {
				t.Fatalf("unexpected stats: %+v", result.Stats)
			}
			continue
		}
		if !errors.Is(err, services.ErrTransient) {
			t.Fatalf("expected transient error, got %v", err)
		}
		if result.Stats.Scanned != 1 || result.Stats.Errors != 1 {
			t.Fatalf("unexpected stats: %+v", result.Stats)
		}
		doc := testsupport.MustGet(t, store, "coins", "b-good")
		if _, ok := doc.Fields[enrichment.SnapshotField]; ok {
			t.Fatal("records after the failure must not be written")
		}
	}
}

func TestRunStopsOnCancelledContext(t *testing.T) {
	store, fake := seedGeneral(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := newRunner(store, fake.Client(t), generalOptions()).Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
	if result.Stats.Scanned != 0 {
		t.Fatalf("scanned = %d", result.Stats.Scanned)
	}
}

func TestRulerRunRejectsInconsistentMatch(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	testsupport.SeedDocument(t, store, "rulers", "peter", map[string]any{
		"name":     "Пётр I",
		"nameEn":   "Peter I",
		"periodId": "russian_empire",
	})
	testsupport.SeedDocument(t, store, "coins", "coin-1", map[string]any{
		"rulerId":      "peter",
		"year":         1724,
		"denomination": "1 рубль",
	})

	fake := testsupport.NewFakeNumista(t)
	fake.SetSearchResults(numista.SearchType{
		ID: 12345, Title: "1 Ruble - Peter I", Category: "coin", MinYear: intPtr(1704), MaxYear: intPtr(1725),
	})
	detail := rubleType()
	detail.Value = &numista.Value{Text: "1 Kopek"}
	fake.AddType(detail)

	opts := generalOptions()
	opts.Profile = matching.RulerProfile()
	opts.Gate = config.GateImagesIdentifier

	result, err := newRunner(store, fake.Client(t), opts).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Stats.TypeResolvedBySearch != 1 || result.Stats.SkippedNoTypeID != 1 || result.Stats.Updated != 0 {
		t.Fatalf("unexpected stats: %+v", result.Stats)
	}

	queries := fake.SearchQueries()
	if len(queries) != 1 {
		t.Fatalf("expected one search, got %d", len(queries))
	}
	q := queries[0]
	for key, want := range map[string]string{
		"issuer": "russia-empire",
		"date":   "1724",
		"year":   "1724",
		"count":  "50",
		"q":      "1 рубль",
		"lang":   "en",
	} {
		if got := q.Get(key); got != want {
			t.Errorf("search %s = %q, want %q", key, got, want)
		}
	}
}

func TestInspectDoesNotWrite(t *testing.T) {
	store, fake := seedGeneral(t)
	runner := newRunner(store, fake.Client(t), generalOptions())

	out, err := runner.Inspect(context.Background(), "c-search")
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	if !out.Resolved || out.Resolution.Source != "search(score=79)" {
		t.Fatalf("unexpected resolution: %+v", out.Resolution)
	}
	if out.Selection == nil || len(out.Selection.Ranked) != 2 {
		t.Fatalf("expected ranked candidates, got %+v", out.Selection)
	}
	if out.Update.Empty() {
		t.Fatal("expected pending changes")
	}
	doc := testsupport.MustGet(t, store, "coins", "c-search")
	if _, ok := doc.Fields["numistaTypeId"]; ok {
		t.Fatal("Inspect must not write")
	}

	if _, err := runner.Inspect(context.Background(), "missing"); !errors.Is(err, docstore.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
