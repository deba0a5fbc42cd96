package matching

import (
	"fmt"
	"math"
	"strings"

	"coinenrich/internal/coin"
	"coinenrich/internal/numista"
)

// Consistent re-validates a search-resolved match against the fetched detail.
// It fails when the coin year falls outside the type's range, when the
// denomination units disagree, or when the face values differ by more than
// 0.0001. The detail denomination comes from value.text, else the title.
func Consistent(q Query, detail *numista.Type) (bool, string) {
	if detail == nil {
		return false, "missing detail"
	}
	if q.Year != 0 && detail.MinYear != nil && detail.MaxYear != nil {
		if q.Year < *detail.MinYear || q.Year > *detail.MaxYear {
			return false, fmt.Sprintf("year %d outside %d-%d", q.Year, *detail.MinYear, *detail.MaxYear)
		}
	}

	text := detail.ValueText()
	if strings.TrimSpace(text) == "" {
		text = detail.Title
	}
	got := coin.ParseDenomination(text)
	want := q.Denomination
	if want.Unit != "" && got.Unit != "" && want.Unit != got.Unit {
		return false, fmt.Sprintf("denomination unit %s does not match %s", want.Unit, got.Unit)
	}
	if want.HasValue() && got.HasValue() && math.Abs(*want.Value-*got.Value) > valueTolerance {
		return false, fmt.Sprintf("face value %g does not match %g", *want.Value, *got.Value)
	}
	return true, ""
}
