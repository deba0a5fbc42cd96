package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"coinenrich/internal/docstore"
	"coinenrich/internal/services"
)

// Record is the JSON shape of one document in import and export files.
type Record struct {
	ID     string         `json:"id"`
	Fields map[string]any `json:"fields"`
}

// Import reads a JSON array of records and merges them into collection in
// batches. It returns the number of documents written.
func (s *Store) Import(ctx context.Context, collection string, r io.Reader) (int, error) {
	var records []Record
	decoder := json.NewDecoder(r)
	if err := decoder.Decode(&records); err != nil {
		return 0, services.Wrap(services.ErrValidation, stageName, "import", "expected a JSON array of {id, fields} records", err)
	}

	batch := make([]docstore.Patch, 0, docstore.MaxBatchSize)
	written := 0
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := s.Commit(ctx, collection, batch); err != nil {
			return err
		}
		written += len(batch)
		batch = batch[:0]
		return nil
	}
	for idx, record := range records {
		id := strings.TrimSpace(record.ID)
		if id == "" {
			return written, services.Wrap(services.ErrValidation, stageName, "import", fmt.Sprintf("record %d has no id", idx), nil)
		}
		fields := record.Fields
		if fields == nil {
			fields = map[string]any{}
		}
		batch = append(batch, docstore.Patch{ID: id, Fields: fields})
		if len(batch) == docstore.MaxBatchSize {
			if err := flush(); err != nil {
				return written, err
			}
		}
	}
	if err := flush(); err != nil {
		return written, err
	}
	return written, nil
}

// Export writes every document of collection as an indented JSON array and
// returns the number of documents written.
func (s *Store) Export(ctx context.Context, collection string, w io.Writer) (int, error) {
	docs, err := s.List(ctx, collection)
	if err != nil {
		return 0, err
	}
	records := make([]Record, 0, len(docs))
	for _, doc := range docs {
		records = append(records, Record{ID: doc.ID, Fields: doc.Fields})
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(records); err != nil {
		return 0, fmt.Errorf("encode export: %w", err)
	}
	return len(records), nil
}
