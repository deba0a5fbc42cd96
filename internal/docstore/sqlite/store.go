package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"coinenrich/internal/docstore"
	"coinenrich/internal/services"
)

const (
	stageName               = "sqlite"
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

// Store is a docstore.Store backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

var _ docstore.Store = (*Store)(nil)

// Open initializes or connects to the document database at path.
func Open(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, services.Wrap(services.ErrConfiguration, stageName, "open", "database path required", nil)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure database dir: %w", err)
	}

	// Pragmas go in the DSN so every pooled connection gets them.
	dsn := "file:" + path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connect sqlite db %s: %w", path, err)
	}

	store := &Store{db: db, path: path, now: time.Now}
	if err := store.applyMigrations(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// List returns every document of a collection ordered by id.
func (s *Store) List(ctx context.Context, collection string) ([]docstore.Document, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, data FROM documents WHERE collection = ? ORDER BY id", collection)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", collection, err)
	}
	defer rows.Close()

	var docs []docstore.Document
	for rows.Next() {
		var id, data string
		if err := rows.Scan(&id, &data); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		fields, err := decodeFields(data)
		if err != nil {
			return nil, services.Wrap(services.ErrDecode, stageName, "list", collection+"/"+id, err)
		}
		docs = append(docs, docstore.Document{ID: id, Name: collection + "/" + id, Fields: fields})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", collection, err)
	}
	return docs, nil
}

// Get loads one document.
func (s *Store) Get(ctx context.Context, collection, id string) (docstore.Document, error) {
	var data string
	err := s.db.QueryRowContext(ctx, "SELECT data FROM documents WHERE collection = ? AND id = ?", collection, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return docstore.Document{}, services.Wrap(services.ErrNotFound, stageName, "get", collection+"/"+id, docstore.ErrNotFound)
	}
	if err != nil {
		return docstore.Document{}, fmt.Errorf("get %s/%s: %w", collection, id, err)
	}
	fields, err := decodeFields(data)
	if err != nil {
		return docstore.Document{}, services.Wrap(services.ErrDecode, stageName, "get", collection+"/"+id, err)
	}
	return docstore.Document{ID: id, Name: collection + "/" + id, Fields: fields}, nil
}

// Patch merges one patch, creating the document when missing.
func (s *Store) Patch(ctx context.Context, collection string, patch docstore.Patch) error {
	return s.Commit(ctx, collection, []docstore.Patch{patch})
}

// Commit applies all patches in one transaction.
func (s *Store) Commit(ctx context.Context, collection string, patches []docstore.Patch) error {
	if len(patches) == 0 {
		return nil
	}
	if len(patches) > docstore.MaxBatchSize {
		return services.Wrap(services.ErrValidation, stageName, "commit",
			fmt.Sprintf("batch of %d exceeds %d writes", len(patches), docstore.MaxBatchSize), nil)
	}
	for _, patch := range patches {
		if strings.TrimSpace(patch.ID) == "" {
			return services.Wrap(services.ErrValidation, stageName, "commit", "document id required", nil)
		}
	}
	ctx = ensureContext(ctx)
	return retryOnBusy(ctx, func() error {
		return s.commitOnce(ctx, collection, patches)
	})
}

func (s *Store) commitOnce(ctx context.Context, collection string, patches []docstore.Patch) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin commit tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := s.now().UTC().Format(time.RFC3339Nano)
	for _, patch := range patches {
		var data string
		err := tx.QueryRowContext(ctx, "SELECT data FROM documents WHERE collection = ? AND id = ?", collection, patch.ID).Scan(&data)
		existing := map[string]any{}
		switch {
		case errors.Is(err, sql.ErrNoRows):
		case err != nil:
			return fmt.Errorf("load %s/%s: %w", collection, patch.ID, err)
		default:
			if existing, err = decodeFields(data); err != nil {
				return services.Wrap(services.ErrDecode, stageName, "commit", collection+"/"+patch.ID, err)
			}
		}
		for key, value := range patch.Fields {
			existing[key] = value
		}
		encoded, err := json.Marshal(existing)
		if err != nil {
			return fmt.Errorf("encode %s/%s: %w", collection, patch.ID, err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO documents (collection, id, data, created_at, updated_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(collection, id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
			collection, patch.ID, string(encoded), now, now); err != nil {
			return fmt.Errorf("write %s/%s: %w", collection, patch.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// Collections returns the collection names with their document counts.
func (s *Store) Collections(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT collection, COUNT(1) FROM documents GROUP BY collection")
	if err != nil {
		return nil, fmt.Errorf("count collections: %w", err)
	}
	defer rows.Close()
	counts := map[string]int{}
	for rows.Next() {
		var name string
		var count int
		if err := rows.Scan(&name, &count); err != nil {
			return nil, fmt.Errorf("scan collection count: %w", err)
		}
		counts[name] = count
	}
	return counts, rows.Err()
}

func decodeFields(data string) (map[string]any, error) {
	fields := map[string]any{}
	if strings.TrimSpace(data) == "" {
		return fields, nil
	}
	if err := json.Unmarshal([]byte(data), &fields); err != nil {
		return nil, err
	}
	return fields, nil
}

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := range busyRetryAttempts {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}
