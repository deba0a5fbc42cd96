package enrichment

import (
	"context"
	"fmt"
	"strings"

	"coinenrich/internal/docstore"
)

// Ruler is an entry of the rulers collection.
type Ruler struct {
	ID       string
	Name     string
	NameEn   string
	PeriodID string
}

// DisplayName returns the English name, falling back to the native one.
func (r Ruler) DisplayName() string {
	if name := strings.TrimSpace(r.NameEn); name != "" {
		return name
	}
	return strings.TrimSpace(r.Name)
}

// RulerFromDocument decodes a rulers collection document.
func RulerFromDocument(doc docstore.Document) Ruler {
	text := func(key string) string {
		value, _ := doc.Fields[key].(string)
		return strings.TrimSpace(value)
	}
	return Ruler{
		ID:       doc.ID,
		Name:     text("name"),
		NameEn:   text("nameEn"),
		PeriodID: text("periodId"),
	}
}

// LoadRulers reads every ruler of the collection keyed by document id.
func LoadRulers(ctx context.Context, store docstore.Store, collection string) (map[string]Ruler, error) {
	docs, err := store.List(ctx, collection)
	if err != nil {
		return nil, fmt.Errorf("list rulers: %w", err)
	}
	rulers := make(map[string]Ruler, len(docs))
	for _, doc := range docs {
		rulers[doc.ID] = RulerFromDocument(doc)
	}
	return rulers, nil
}
