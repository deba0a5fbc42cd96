package sqlite_test

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"coinenrich/internal/docstore"
	"coinenrich/internal/docstore/sqlite"
	"coinenrich/internal/services"
	"coinenrich/internal/testsupport"
)

func TestOpenAppliesMigrationsTwice(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "coins.db")
	store, err := sqlite.Open(path)
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	store.Close()

	reopened, err := sqlite.Open(path)
	if err != nil {
		t.Fatalf("reopen returned error: %v", err)
	}
	t.Cleanup(func() { reopened.Close() })
	if reopened.Path() != path {
		t.Fatalf("unexpected path %q", reopened.Path())
	}
}

func TestPatchMergesTopLevelFields(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	testsupport.SeedDocument(t, store, "coins", "c1", map[string]any{
		"name":  "1 Ruble",
		"year":  1720,
		"notes": map[string]any{"grade": "VF"},
	})
	if err := store.Patch(ctx, "coins", docstore.Patch{ID: "c1", Fields: map[string]any{
		"numistaTypeId": 1234,
		"notes":         map[string]any{"source": "numista"},
	}}); err != nil {
		t.Fatalf("Patch returned error: %v", err)
	}

	doc := testsupport.MustGet(t, store, "coins", "c1")
	want := map[string]any{
		"name":          "1 Ruble",
		"year":          float64(1720),
		"numistaTypeId": float64(1234),
		"notes":         map[string]any{"source": "numista"},
	}
	if diff := cmp.Diff(want, doc.Fields); diff != "" {
		t.Fatalf("unexpected fields (-want +got):\n%s", diff)
	}
	if doc.Name != "coins/c1" {
		t.Fatalf("unexpected document name %q", doc.Name)
	}
}

func TestGetMissingDocument(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	_, err := store.Get(context.Background(), "coins", "missing")
	if !errors.Is(err, docstore.ErrNotFound) || !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestCommitAndListAreCollectionScoped(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	patches := []docstore.Patch{
		{ID: "b", Fields: map[string]any{"name": "B"}},
		{ID: "a", Fields: map[string]any{"name": "A"}},
	}
	if err := store.Commit(ctx, "coins", patches); err != nil {
		t.Fatalf("Commit returned error: %v", err)
	}
	testsupport.SeedDocument(t, store, "rulers", "peter_1", map[string]any{"name": "Пётр I"})

	docs, err := store.List(ctx, "coins")
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(docs) != 2 || docs[0].ID != "a" || docs[1].ID != "b" {
		t.Fatalf("expected ordered coins a, b; got %+v", docs)
	}
	counts, err := store.Collections(ctx)
	if err != nil {
		t.Fatalf("Collections returned error: %v", err)
	}
	if counts["coins"] != 2 || counts["rulers"] != 1 {
		t.Fatalf("unexpected counts %v", counts)
	}
}

func TestCommitRejectsOversizedBatch(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	patches := make([]docstore.Patch, docstore.MaxBatchSize+1)
	for i := range patches {
		patches[i] = docstore.Patch{ID: "x"}
	}
	if err := store.Commit(context.Background(), "coins", patches); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestImportExport(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	input := `[
		{"id": "c1", "fields": {"title": "1 Ruble Peter I", "year": 1720}},
		{"id": "c2", "fields": {"numistaUrl": "https://en.numista.com/catalogue/pieces1234.html"}}
	]`
	n, err := store.Import(ctx, "coins", strings.NewReader(input))
	if err != nil {
		t.Fatalf("Import returned error: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 imported, got %d", n)
	}

	var buf bytes.Buffer
	n, err = store.Export(ctx, "coins", &buf)
	if err != nil {
		t.Fatalf("Export returned error: %v", err)
	}
	if n != 2 || !strings.Contains(buf.String(), `"title": "1 Ruble Peter I"`) {
		t.Fatalf("unexpected export (%d): %s", n, buf.String())
	}

	if _, err := store.Import(ctx, "coins", strings.NewReader(`[{"fields": {}}]`)); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected missing id validation error, got %v", err)
	}
	if _, err := store.Import(ctx, "coins", strings.NewReader(`{"id": "c3"}`)); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected non-array validation error, got %v", err)
	}
}

func TestRunHistory(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	started := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	first := sqlite.Run{ID: "run-1", StartedAt: started, Profile: "general", Backend: "sqlite", Collection: "coins", DryRun: true}
	if err := store.RecordRun(ctx, first); err != nil {
		t.Fatalf("RecordRun returned error: %v", err)
	}
	first.FinishedAt = started.Add(time.Minute)
	first.StatsJSON = `{"scanned":3}`
	if err := store.RecordRun(ctx, first); err != nil {
		t.Fatalf("RecordRun update returned error: %v", err)
	}
	second := sqlite.Run{ID: "run-2", StartedAt: started.Add(time.Hour), Profile: "ruler", Backend: "sqlite", Collection: "coins", Error: "boom"}
	if err := store.RecordRun(ctx, second); err != nil {
		t.Fatalf("RecordRun returned error: %v", err)
	}

	runs, err := store.ListRuns(ctx, 0)
	if err != nil {
		t.Fatalf("ListRuns returned error: %v", err)
	}
	if len(runs) != 2 || runs[0].ID != "run-2" || runs[1].ID != "run-1" {
		t.Fatalf("expected newest first, got %+v", runs)
	}
	if !runs[1].DryRun || runs[1].StatsJSON != `{"scanned":3}` || !runs[1].FinishedAt.Equal(first.FinishedAt) {
		t.Fatalf("unexpected updated run %+v", runs[1])
	}
	if runs[0].Error != "boom" || !runs[0].FinishedAt.IsZero() {
		t.Fatalf("unexpected failed run %+v", runs[0])
	}

	limited, err := store.ListRuns(ctx, 1)
	if err != nil || len(limited) != 1 {
		t.Fatalf("expected one run with limit, got %d (%v)", len(limited), err)
	}
}
