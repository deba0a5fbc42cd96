package enrichment

import (
	"math"
	"strconv"
	"strings"
	"time"

	"coinenrich/internal/coin"
	"coinenrich/internal/numista"
)

// Fields written on every update regardless of the merge policy.
const (
	SnapshotField = "numista"
	SyncedAtField = "numistaLastSyncedAt"
)

// MergeOptions controls BuildUpdate.
type MergeOptions struct {
	Force    bool
	Language string
	Now      time.Time
}

// Update is the patch produced for one coin. Changed lists the top-level
// attributes that differ from the stored record, in merge order; the snapshot
// and sync stamp are in Fields but never in Changed.
type Update struct {
	Fields  map[string]any
	Changed []string
}

// Empty reports whether the update changes no top-level attribute. Empty
// updates are not written.
func (u Update) Empty() bool {
	return len(u.Changed) == 0
}

// BuildUpdate merges catalog detail into a coin. A field is set only when the
// catalog value is non-blank and either force is on or the stored field is
// blank. Values equal to the stored ones are left out.
func BuildUpdate(c coin.Coin, detail *numista.Type, opts MergeOptions) Update {
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}
	update := Update{
		Fields: map[string]any{
			SnapshotField: Snapshot(detail, opts.Language, now),
			SyncedAtField: now.UTC().Format(time.RFC3339),
		},
	}
	if detail == nil {
		return update
	}

	maybeSet := func(field string, value any) {
		if coin.IsBlank(value) {
			return
		}
		existing := c.Fields[field]
		if !opts.Force && !coin.IsBlank(existing) {
			return
		}
		if sameValue(existing, value) {
			return
		}
		update.Fields[field] = value
		update.Changed = append(update.Changed, field)
	}

	var obverse, reverse numista.Face
	if detail.Obverse != nil {
		obverse = *detail.Obverse
	}
	if detail.Reverse != nil {
		reverse = *detail.Reverse
	}
	obverseImage := firstNonBlank(obverse.Picture, obverse.Thumbnail)
	reverseImage := firstNonBlank(reverse.Picture, reverse.Thumbnail)

	var minYear, maxYear any
	if detail.MinYear != nil {
		minYear = *detail.MinYear
	}
	if detail.MaxYear != nil {
		maxYear = *detail.MaxYear
	}
	var numericValue any
	var currency string
	if detail.Value != nil {
		numericValue = floatValue(detail.Value.NumericValue)
		if detail.Value.Currency != nil {
			currency = detail.Value.Currency.Name
		}
	}
	var mint string
	if len(detail.Mints) > 0 {
		mint = detail.Mints[0].Name
	}

	var typeID any
	if detail.ID > 0 {
		typeID = detail.ID
	}
	maybeSet("numistaTypeId", typeID)
	maybeSet("numistaId", typeID)
	maybeSet("numistaUrl", detail.URL)
	maybeSet("title", detail.Title)
	maybeSet("name", detail.Title)
	if opts.Language == "en" {
		maybeSet("nameEn", detail.Title)
	}
	maybeSet("image", firstNonBlank(obverseImage, reverseImage))
	maybeSet("imageObverse", obverseImage)
	maybeSet("imageReverse", reverseImage)
	maybeSet("obverseImage", obverseImage)
	maybeSet("reverseImage", reverseImage)
	maybeSet("obverseThumbnail", obverse.Thumbnail)
	maybeSet("reverseThumbnail", reverse.Thumbnail)
	maybeSet("year", minYear)
	maybeSet("minYear", minYear)
	maybeSet("maxYear", maxYear)
	maybeSet("denomination", detail.ValueText())
	maybeSet("denominationValue", numericValue)
	maybeSet("currency", currency)
	maybeSet("metal", detail.CompositionText())
	maybeSet("weight", floatValue(detail.Weight))
	maybeSet("diameter", floatValue(detail.Size))
	maybeSet("size", floatValue(detail.Size))
	maybeSet("thickness", floatValue(detail.Thickness))
	maybeSet("shape", detail.Shape)
	maybeSet("orientation", detail.Orientation)
	maybeSet("composition", detail.CompositionText())
	maybeSet("mint", mint)
	maybeSet("catalogNumber", catalogNumber(detail.References))
	maybeSet("issuerName", detail.IssuerName())
	maybeSet("valueText", detail.ValueText())
	maybeSet("description", firstNonBlank(obverse.Description, reverse.Description))
	return update
}

func catalogNumber(refs []numista.Reference) string {
	if len(refs) == 0 {
		return ""
	}
	code := strings.TrimSpace(refs[0].Catalogue.Code)
	number := strings.TrimSpace(refs[0].Number)
	if code == "" || number == "" {
		return ""
	}
	return code + " " + number
}

func firstNonBlank(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}

func floatValue(p *float64) any {
	if p == nil || math.IsNaN(*p) || math.IsInf(*p, 0) {
		return nil
	}
	return *p
}

// sameValue compares a stored value with a catalog value. Numbers compare by
// value whatever their Go type, since stored documents decode them as float64
// or int64 depending on the backend.
func sameValue(existing, value any) bool {
	if existing == nil {
		return false
	}
	if a, ok := numeric(existing); ok {
		b, ok := numeric(value)
		return ok && a == b
	}
	if a, ok := existing.(string); ok {
		b, ok := value.(string)
		return ok && strings.TrimSpace(a) == strings.TrimSpace(b)
	}
	return false
}

func numeric(v any) (float64, bool) {
	switch value := v.(type) {
	case int:
		return float64(value), true
	case int64:
		return float64(value), true
	case float64:
		return value, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		return f, err == nil
	default:
		return 0, false
	}
}
