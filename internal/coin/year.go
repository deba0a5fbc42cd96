package coin

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

const (
	minPlausibleYear = 500
	maxPlausibleYear = 2100
)

// YearPaths lists the year synonyms in priority order.
var YearPaths = []string{
	"year",
	"issueYear",
	"mintedYear",
	"date",
	"minYear",
	"maxYear",
	"numista.years.min",
	"numista.years.max",
}

var (
	yearPattern      = regexp.MustCompile(`^\d{4}$`)
	yearRangePattern = regexp.MustCompile(`^(\d{4})\s*-\s*(\d{4})$`)
)

// ParseYear accepts an integer between 500 and 2100, a four digit string, or
// a "YYYY-YYYY" range (the first year is returned).
func ParseYear(v any) (int, bool) {
	switch value := v.(type) {
	case nil:
		return 0, false
	case int:
		return plausibleYear(value)
	case int64:
		return plausibleYear(int(value))
	case float64:
		if math.Trunc(value) == value && !math.IsInf(value, 0) {
			return plausibleYear(int(value))
		}
		return 0, false
	case string:
		text := strings.TrimSpace(value)
		if yearPattern.MatchString(text) {
			year, _ := strconv.Atoi(text)
			return plausibleYear(year)
		}
		if match := yearRangePattern.FindStringSubmatch(text); match != nil {
			year, _ := strconv.Atoi(match[1])
			return plausibleYear(year)
		}
	}
	return 0, false
}

// ExtractYear returns the first plausible year found under YearPaths.
func ExtractYear(fields map[string]any) (int, bool) {
	for _, path := range YearPaths {
		value, ok := Lookup(fields, path)
		if !ok {
			continue
		}
		if year, ok := ParseYear(value); ok {
			return year, true
		}
	}
	return 0, false
}

func plausibleYear(year int) (int, bool) {
	if year < minPlausibleYear || year > maxPlausibleYear {
		return 0, false
	}
	return year, true
}
