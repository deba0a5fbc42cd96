package testsupport

import (
	"context"
	"testing"

	"coinenrich/internal/config"
	"coinenrich/internal/docstore"
	"coinenrich/internal/docstore/sqlite"
)

// MustOpenStore opens a sqlite document store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *sqlite.Store {
	t.Helper()

	store, err := sqlite.Open(cfg.Store.SQLitePath)
	if err != nil {
		t.Fatalf("sqlite.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// SeedDocument writes a document into the named collection.
func SeedDocument(t testing.TB, store *sqlite.Store, collection, id string, fields map[string]any) {
	t.Helper()

	err := store.Patch(context.Background(), collection, docstore.Patch{ID: id, Fields: fields})
	if err != nil {
		t.Fatalf("store.Patch %s/%s: %v", collection, id, err)
	}
}

// MustGet loads a document or fails the test.
func MustGet(t testing.TB, store docstore.Store, collection, id string) docstore.Document {
	t.Helper()

	doc, err := store.Get(context.Background(), collection, id)
	if err != nil {
		t.Fatalf("store.Get %s/%s: %v", collection, id, err)
	}
	return doc
}
