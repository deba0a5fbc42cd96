package main

import (
	"strings"
	"testing"
)

func TestRenderTableKeepsHeaderCase(t *testing.T) {
	out := renderTable([]column{left("Collection"), right("Scanned")}, [][]string{
		{"coins", "12"},
		{"medals"},
	})
	for _, want := range []string{"Collection", "Scanned", "coins", "12", "medals"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in table:\n%s", want, out)
		}
	}
	if strings.Contains(out, "COLLECTION") {
		t.Fatalf("header was upper-cased:\n%s", out)
	}
}

func TestRenderTableWithoutColumns(t *testing.T) {
	if out := renderTable(nil, [][]string{{"x"}}); out != "" {
		t.Fatalf("expected empty output, got %q", out)
	}
}
