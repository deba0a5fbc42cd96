package docstore

import (
	"context"
	"errors"
	"maps"
	"slices"
)

// MaxBatchSize is the largest number of patches one Commit accepts.
const MaxBatchSize = 500

// ErrNotFound reports a missing document.
var ErrNotFound = errors.New("document not found")

// Document is one stored record.
type Document struct {
	ID     string
	Name   string
	Fields map[string]any
}

// Patch merges Fields into the top level of document ID.
type Patch struct {
	ID     string
	Fields map[string]any
}

// FieldPaths returns the patched field names in sorted order.
func (p Patch) FieldPaths() []string {
	return slices.Sorted(maps.Keys(p.Fields))
}

// Store is the document store contract.
type Store interface {
	List(ctx context.Context, collection string) ([]Document, error)
	Get(ctx context.Context, collection, id string) (Document, error)
	Patch(ctx context.Context, collection string, patch Patch) error
	Commit(ctx context.Context, collection string, patches []Patch) error
}
