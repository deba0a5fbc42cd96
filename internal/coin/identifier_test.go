package coin_test

import (
	"testing"

	"coinenrich/internal/coin"
)

func TestTypeIDFromValue(t *testing.T) {
	cases := []struct {
		name  string
		value any
		want  int64
		ok    bool
	}{
		{"catalog url with segment", "https://en.numista.com/catalogue/1234/", 1234, true},
		{"catalog url with html suffix", "https://en.numista.com/1234.html", 1234, true},
		{"catalogue pieces page", "https://en.numista.com/catalogue/pieces20744.html", 20744, true},
		{"bare digits", "777", 777, true},
		{"integer", 95, 95, true},
		{"integral float", float64(4321), 4321, true},
		{"zero", "0", 0, false},
		{"negative", -5, 0, false},
		{"negative int64", int64(-9), 0, false},
		{"zero int", 0, 0, false},
		{"fractional float", 12.5, 0, false},
		{"foreign host", "https://example.com/catalogue/1234/", 0, false},
		{"short segment", "https://numista.com/12/", 0, false},
		{"unrelated text", "a silver rouble", 0, false},
		{"bool", true, 0, false},
		{"nil", nil, 0, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := coin.TypeIDFromValue(tc.value)
			if ok != tc.ok || got != tc.want {
				t.Fatalf("expected (%d, %v), got (%d, %v)", tc.want, tc.ok, got, ok)
			}
		})
	}
}

func TestExtractTypeIDPriority(t *testing.T) {
	c := coin.FromFields(map[string]any{
		"numistaUrl":    "https://en.numista.com/catalogue/pieces555.html",
		"catalogCoinId": "not-an-id",
		"numista":       map[string]any{"id": float64(444)},
	})
	res, ok := coin.ExtractTypeID(c, "doc-1")
	if !ok {
		t.Fatal("expected resolution")
	}
	if res.TypeID != 444 || res.Source != coin.SourceField {
		t.Fatalf("expected nested id 444 from field, got %+v", res)
	}
	if res.BySearch() {
		t.Fatal("field resolution must not report search provenance")
	}
}

func TestExtractTypeIDFallsBackToDocumentID(t *testing.T) {
	c := coin.FromFields(map[string]any{"title": "1 Ruble"})

	res, ok := coin.ExtractTypeID(c, "numista_ruble_98765")
	if !ok || res.TypeID != 98765 {
		t.Fatalf("expected document id pattern to resolve 98765, got %+v ok=%v", res, ok)
	}
	res, ok = coin.ExtractTypeID(c, "12345")
	if !ok || res.TypeID != 12345 {
		t.Fatalf("expected numeric document id to resolve, got %+v ok=%v", res, ok)
	}
	if _, ok := coin.ExtractTypeID(c, "Xb3kQ9aa"); ok {
		t.Fatal("expected opaque document id to yield nothing")
	}
}

func TestSearchSource(t *testing.T) {
	res := coin.Resolution{TypeID: 1, Source: coin.SearchSource(62)}
	if res.Source != "search(score=62)" {
		t.Fatalf("unexpected source %q", res.Source)
	}
	if !res.BySearch() {
		t.Fatal("expected search provenance")
	}
}
