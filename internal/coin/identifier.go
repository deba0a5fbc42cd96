package coin

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Provenance tags carried by a Resolution.
const (
	SourceField = "field"
)

// TypeIDPaths lists the identifier synonyms in priority order: direct ids,
// nested ids, then url-shaped fields. The document id is tried last.
var TypeIDPaths = []string{
	"numistaTypeId",
	"numistaId",
	"numista_type_id",
	"typeId",
	"catalogCoinId",
	"numista.id",
	"numista.typeId",
	"numistaUrl",
	"url",
	"numista.url",
}

var (
	digitsPattern       = regexp.MustCompile(`^\d+$`)
	catalogHostPattern  = regexp.MustCompile(`(?i)numista\.com`)
	documentIDPattern   = regexp.MustCompile(`(?i)^numista[-_].*?(\d{3,})$`)
	catalogPathPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)/(\d{3,})(?:\.html)?(?:[/?#]|$)`),
		regexp.MustCompile(`(?i)/catalogue/(?:pieces?|banknotes?|exonumia)(\d{3,})\.html`),
	}
)

// Resolution is a resolved catalog type id and where it came from.
type Resolution struct {
	TypeID int64
	Source string
}

// SearchSource formats the provenance tag of a search-resolved match.
func SearchSource(score int) string {
	return fmt.Sprintf("search(score=%d)", score)
}

// BySearch reports whether the resolution came from a scored search.
func (r Resolution) BySearch() bool {
	return strings.HasPrefix(r.Source, "search(")
}

// ExtractTypeID recovers a catalog type id from the coin's stored fields or
// its document id. Malformed candidates are skipped.
func ExtractTypeID(c Coin, docID string) (Resolution, bool) {
	for _, path := range TypeIDPaths {
		value, ok := Lookup(c.Fields, path)
		if !ok {
			continue
		}
		if id, ok := TypeIDFromValue(value); ok {
			return Resolution{TypeID: id, Source: SourceField}, true
		}
	}
	if id, ok := TypeIDFromValue(docID); ok {
		return Resolution{TypeID: id, Source: SourceField}, true
	}
	if match := documentIDPattern.FindStringSubmatch(strings.TrimSpace(docID)); match != nil {
		if id, ok := positiveID(match[1]); ok {
			return Resolution{TypeID: id, Source: SourceField}, true
		}
	}
	return Resolution{}, false
}

// TypeIDFromValue accepts a positive integer, a string of digits, or a string
// referencing numista.com with a numeric path segment of three or more digits.
func TypeIDFromValue(v any) (int64, bool) {
	switch value := v.(type) {
	case int:
		if value <= 0 {
			return 0, false
		}
		return int64(value), true
	case int64:
		if value <= 0 {
			return 0, false
		}
		return value, true
	case float64:
		if value > 0 && value < math.MaxInt64 && math.Trunc(value) == value {
			return int64(value), true
		}
		return 0, false
	case string:
		return typeIDFromText(value)
	default:
		return 0, false
	}
}

func typeIDFromText(text string) (int64, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0, false
	}
	if digitsPattern.MatchString(text) {
		return positiveID(text)
	}
	if !catalogHostPattern.MatchString(text) {
		return 0, false
	}
	for _, pattern := range catalogPathPatterns {
		match := pattern.FindStringSubmatch(text)
		if match == nil {
			continue
		}
		if id, ok := positiveID(match[1]); ok {
			return id, true
		}
	}
	return 0, false
}

func positiveID(digits string) (int64, bool) {
	id, err := strconv.ParseInt(digits, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
