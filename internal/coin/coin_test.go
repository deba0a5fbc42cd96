package coin_test

import (
	"testing"

	"coinenrich/internal/coin"
)

func TestFromFieldsAccessors(t *testing.T) {
	c := coin.FromFields(map[string]any{
		"title":       "1 Ruble Peter I",
		"name":        "1 Ruble Peter I",
		"nominal":     "1 ruble",
		"countryName": "  ",
		"issuer":      map[string]any{"name": "Russian Empire"},
		"date":        "1720-1725",
		"rulerId":     "peter_1",
	})

	if c.Issuer != "Russian Empire" {
		t.Fatalf("expected nested issuer name, got %q", c.Issuer)
	}
	if c.Year != 1720 {
		t.Fatalf("expected year from range, got %d", c.Year)
	}
	if got := c.SearchQuery(); got != "1 Ruble Peter I 1 ruble Russian Empire" {
		t.Fatalf("unexpected search query %q", got)
	}
	if c.RulerID != "peter_1" {
		t.Fatalf("unexpected ruler id %q", c.RulerID)
	}
	if got := c.DenominationText(); got != "1 Ruble Peter I" {
		t.Fatalf("expected name fallback for denomination, got %q", got)
	}
}

func TestParseYear(t *testing.T) {
	cases := []struct {
		value any
		want  int
		ok    bool
	}{
		{1720, 1720, true},
		{float64(1899), 1899, true},
		{int64(2001), 2001, true},
		{" 1812 ", 1812, true},
		{"1700 - 1725", 1700, true},
		{499, 0, false},
		{"2500", 0, false},
		{"circa 1720", 0, false},
		{1720.5, 0, false},
		{nil, 0, false},
	}
	for _, tc := range cases {
		got, ok := coin.ParseYear(tc.value)
		if ok != tc.ok || got != tc.want {
			t.Fatalf("ParseYear(%v): expected (%d, %v), got (%d, %v)", tc.value, tc.want, tc.ok, got, ok)
		}
	}
}

func TestExtractYearPriority(t *testing.T) {
	fields := map[string]any{
		"year":    "unknown",
		"minYear": 1801,
		"numista": map[string]any{"years": map[string]any{"min": 1700}},
	}
	year, ok := coin.ExtractYear(fields)
	if !ok || year != 1801 {
		t.Fatalf("expected minYear 1801, got %d ok=%v", year, ok)
	}
}

func TestGatePredicates(t *testing.T) {
	bare := coin.FromFields(nil)
	if bare.HasName() || bare.HasImages() || bare.HasFaceImages() || bare.HasCatalogReference() {
		t.Fatal("expected empty coin to have nothing")
	}

	c := coin.FromFields(map[string]any{
		"numista":    map[string]any{"title": "5 Kopeks", "obverse": map[string]any{"picture": "https://img/1.jpg"}},
		"numistaUrl": "",
		"numistaId":  float64(12),
	})
	if !c.HasName() {
		t.Fatal("expected snapshot title to count as a name")
	}
	if !c.HasImages() {
		t.Fatal("expected snapshot picture to count as an image")
	}
	if c.HasFaceImages() {
		t.Fatal("snapshot picture is not a face image field")
	}
	if !c.HasCatalogReference() {
		t.Fatal("expected numistaId to count as a catalog reference")
	}
	if !c.IsBlank("numistaUrl") || !c.IsBlank("missing") || c.IsBlank("numistaId") {
		t.Fatal("unexpected blankness")
	}
}

func TestParseDenomination(t *testing.T) {
	cases := []struct {
		text  string
		value float64
		unit  string
	}{
		{"1 рубль", 1, coin.UnitRouble},
		{"2,5 Kopeks", 2.5, coin.UnitKopek},
		{"Polushka", -1, coin.UnitPolushka},
		{"1 Denga", 1, coin.UnitDenga},
		{"3 алтына", 3, coin.UnitAltyn},
		{"10 Mark", 10, ""},
	}
	for _, tc := range cases {
		d := coin.ParseDenomination(tc.text)
		if d.Unit != tc.unit {
			t.Fatalf("%q: expected unit %q, got %q", tc.text, tc.unit, d.Unit)
		}
		if tc.value < 0 {
			if d.HasValue() {
				t.Fatalf("%q: expected no value, got %v", tc.text, *d.Value)
			}
			continue
		}
		if !d.HasValue() || *d.Value != tc.value {
			t.Fatalf("%q: expected value %v, got %+v", tc.text, tc.value, d)
		}
	}
	if d := coin.ParseDenomination(""); d.HasValue() || d.Unit != "" {
		t.Fatalf("expected empty signature, got %+v", d)
	}
}
