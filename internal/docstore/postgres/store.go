package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"coinenrich/internal/docstore"
	"coinenrich/internal/services"
)

const stageName = "postgres"

const schemaSQL = `
CREATE TABLE IF NOT EXISTS coinenrich_documents (
	collection TEXT NOT NULL,
	id         TEXT NOT NULL,
	data       JSONB NOT NULL DEFAULT '{}'::jsonb,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (collection, id)
)`

const upsertSQL = `
INSERT INTO coinenrich_documents (collection, id, data)
VALUES ($1, $2, $3::jsonb)
ON CONFLICT (collection, id) DO UPDATE SET
	data = coinenrich_documents.data || EXCLUDED.data,
	updated_at = now()`

// Store is a docstore.Store backed by PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

var _ docstore.Store = (*Store)(nil)

// Open connects to dsn and creates the documents table when missing.
func Open(ctx context.Context, dsn string) (*Store, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, services.Wrap(services.ErrConfiguration, stageName, "open", "connection string required", nil)
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, stageName, "open", "parse connection string", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, classify("open", "ping", err)
	}
	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		pool.Close()
		return nil, classify("open", "create documents table", err)
	}
	return &Store{pool: pool}, nil
}

// Close releases the pool.
func (s *Store) Close() error {
	if s != nil && s.pool != nil {
		s.pool.Close()
	}
	return nil
}

// List returns every document of a collection ordered by id.
func (s *Store) List(ctx context.Context, collection string) ([]docstore.Document, error) {
	rows, err := s.pool.Query(ctx, "SELECT id, data FROM coinenrich_documents WHERE collection = $1 ORDER BY id", collection)
	if err != nil {
		return nil, classify("list", collection, err)
	}
	defer rows.Close()

	var docs []docstore.Document
	for rows.Next() {
		var id string
		var data []byte
		if err := rows.Scan(&id, &data); err != nil {
			return nil, classify("list", collection, err)
		}
		fields, err := decode(data)
		if err != nil {
			return nil, services.Wrap(services.ErrDecode, stageName, "list", collection+"/"+id, err)
		}
		docs = append(docs, docstore.Document{ID: id, Name: collection + "/" + id, Fields: fields})
	}
	if err := rows.Err(); err != nil {
		return nil, classify("list", collection, err)
	}
	return docs, nil
}

// Get loads one document.
func (s *Store) Get(ctx context.Context, collection, id string) (docstore.Document, error) {
	var data []byte
	err := s.pool.QueryRow(ctx, "SELECT data FROM coinenrich_documents WHERE collection = $1 AND id = $2", collection, id).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return docstore.Document{}, services.Wrap(services.ErrNotFound, stageName, "get", collection+"/"+id, docstore.ErrNotFound)
	}
	if err != nil {
		return docstore.Document{}, classify("get", collection+"/"+id, err)
	}
	fields, err := decode(data)
	if err != nil {
		return docstore.Document{}, services.Wrap(services.ErrDecode, stageName, "get", collection+"/"+id, err)
	}
	return docstore.Document{ID: id, Name: collection + "/" + id, Fields: fields}, nil
}

// Patch merges one patch, creating the document when missing.
func (s *Store) Patch(ctx context.Context, collection string, patch docstore.Patch) error {
	return s.Commit(ctx, collection, []docstore.Patch{patch})
}

// Commit applies all patches in one transaction, sent as a single pgx batch.
func (s *Store) Commit(ctx context.Context, collection string, patches []docstore.Patch) error {
	if len(patches) == 0 {
		return nil
	}
	if len(patches) > docstore.MaxBatchSize {
		return services.Wrap(services.ErrValidation, stageName, "commit",
			fmt.Sprintf("batch of %d exceeds %d writes", len(patches), docstore.MaxBatchSize), nil)
	}

	batch := &pgx.Batch{}
	for _, patch := range patches {
		if strings.TrimSpace(patch.ID) == "" {
			return services.Wrap(services.ErrValidation, stageName, "commit", "document id required", nil)
		}
		body, err := json.Marshal(patch.Fields)
		if err != nil {
			return services.Wrap(services.ErrValidation, stageName, "commit", "encode "+collection+"/"+patch.ID, err)
		}
		batch.Queue(upsertSQL, collection, patch.ID, string(body))
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return classify("commit", "begin", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return classify("commit", collection, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return classify("commit", collection, err)
	}
	return nil
}

func decode(data []byte) (map[string]any, error) {
	fields := map[string]any{}
	if len(data) == 0 {
		return fields, nil
	}
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, err
	}
	return fields, nil
}

// classify marks connection-level failures transient; everything else is an
// external service error.
func classify(operation, detail string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if pgconn.SafeToRetry(err) || pgconn.Timeout(err) {
		return services.Wrap(services.ErrTransient, stageName, operation, detail, err)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && strings.HasPrefix(pgErr.Code, "08") {
		return services.Wrap(services.ErrTransient, stageName, operation, detail, err)
	}
	return services.Wrap(services.ErrExternalService, stageName, operation, detail, err)
}
