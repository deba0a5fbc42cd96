package coin

import (
	"math"
	"slices"
	"strconv"
	"strings"
)

// Coin is a stored coin record. Named fields hold the attributes consulted by
// resolution and scoring; Fields keeps the full decoded document.
type Coin struct {
	Title        string
	Name         string
	CoinName     string
	Nominal      string
	ValueText    string
	Denomination string
	Issuer       string
	RulerID      string
	Year         int
	Fields       map[string]any
}

// SearchQueryPaths lists the attributes joined into a free-text search query.
var SearchQueryPaths = []string{"title", "name", "coinName", "nominal", "valueText"}

// IssuerPaths lists the issuing authority synonyms in priority order.
var IssuerPaths = []string{"issuerName", "countryName", "country", "issuer.name", "numista.issuer.name", "issuer"}

// NamePaths lists the fields that give a coin a display name.
var NamePaths = []string{"title", "name", "numista.title"}

// ImagePaths lists every image field recognized by the name_images gate.
var ImagePaths = []string{
	"image",
	"imageObverse",
	"imageReverse",
	"obverseImage",
	"reverseImage",
	"numista.obverse.picture",
	"numista.reverse.picture",
}

// FaceImagePaths lists the face image fields recognized by the
// images_identifier gate.
var FaceImagePaths = []string{"obverseImage", "reverseImage", "imageObverse", "imageReverse"}

// CatalogReferencePaths lists the fields that mark a coin as already linked to
// the catalog.
var CatalogReferencePaths = []string{"numistaId", "numistaTypeId", "numistaUrl"}

// FromFields decodes a document attribute bag into a Coin. A nil map yields a
// coin with an empty field bag.
func FromFields(fields map[string]any) Coin {
	if fields == nil {
		fields = map[string]any{}
	}
	c := Coin{
		Title:        textValue(fields["title"]),
		Name:         textValue(fields["name"]),
		CoinName:     textValue(fields["coinName"]),
		Nominal:      textValue(fields["nominal"]),
		ValueText:    textValue(fields["valueText"]),
		Denomination: textValue(fields["denomination"]),
		RulerID:      textValue(fields["rulerId"]),
		Fields:       fields,
	}
	c.Issuer = issuerText(fields)
	if year, ok := ExtractYear(fields); ok {
		c.Year = year
	}
	return c
}

// IssuerText returns the first non-empty issuing authority synonym.
func (c Coin) IssuerText() string {
	return c.Issuer
}

// SearchQuery joins the coin's title, name, coin name, nominal, value text and
// issuer into one free-text query. Duplicate parts are dropped in order.
func (c Coin) SearchQuery() string {
	parts := make([]string, 0, len(SearchQueryPaths)+1)
	for _, value := range []string{c.Title, c.Name, c.CoinName, c.Nominal, c.ValueText, c.Issuer} {
		value = strings.TrimSpace(value)
		if value == "" || slices.Contains(parts, value) {
			continue
		}
		parts = append(parts, value)
	}
	return strings.TrimSpace(strings.Join(parts, " "))
}

// DenominationText returns the denomination, falling back to the name.
func (c Coin) DenominationText() string {
	if strings.TrimSpace(c.Denomination) != "" {
		return c.Denomination
	}
	return c.Name
}

// HasName reports whether any name field is set.
func (c Coin) HasName() bool {
	return anySet(c.Fields, NamePaths)
}

// HasImages reports whether any image field is set.
func (c Coin) HasImages() bool {
	return anySet(c.Fields, ImagePaths)
}

// HasFaceImages reports whether any obverse or reverse image field is set.
func (c Coin) HasFaceImages() bool {
	return anySet(c.Fields, FaceImagePaths)
}

// HasCatalogReference reports whether the coin already carries a catalog id or
// url.
func (c Coin) HasCatalogReference() bool {
	return anySet(c.Fields, CatalogReferencePaths)
}

// IsBlank reports whether the top-level field is absent, null or a
// whitespace-only string.
func (c Coin) IsBlank(field string) bool {
	return IsBlank(c.Fields[field])
}

// Lookup resolves a dotted path through nested maps.
func Lookup(fields map[string]any, path string) (any, bool) {
	var current any = fields
	for part := range strings.SplitSeq(path, ".") {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

// IsBlank reports whether v is nil or a whitespace-only string.
func IsBlank(v any) bool {
	switch value := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(value) == ""
	default:
		return false
	}
}

func anySet(fields map[string]any, paths []string) bool {
	for _, path := range paths {
		if value, ok := Lookup(fields, path); ok && !IsBlank(value) {
			return true
		}
	}
	return false
}

func issuerText(fields map[string]any) string {
	for _, path := range IssuerPaths {
		value, ok := Lookup(fields, path)
		if !ok {
			continue
		}
		if text, ok := value.(string); ok && strings.TrimSpace(text) != "" {
			return strings.TrimSpace(text)
		}
	}
	return ""
}

// textValue renders strings and numbers; other kinds are treated as absent.
func textValue(v any) string {
	switch value := v.(type) {
	case string:
		return strings.TrimSpace(value)
	case int:
		return strconv.Itoa(value)
	case int64:
		return strconv.FormatInt(value, 10)
	case float64:
		if math.IsNaN(value) || math.IsInf(value, 0) {
			return ""
		}
		return strconv.FormatFloat(value, 'f', -1, 64)
	default:
		return ""
	}
}
