package coin

import (
	"regexp"
	"strconv"
	"strings"
)

// Denomination units recognized by ParseDenomination.
const (
	UnitRouble   = "rouble"
	UnitKopek    = "kopek"
	UnitPolushka = "polushka"
	UnitDenga    = "denga"
	UnitAltyn    = "altyn"
)

// Denomination is the face value signature of a coin or catalog title.
type Denomination struct {
	Value *float64
	Unit  string
}

var denominationNumber = regexp.MustCompile(`(\d+(?:\.\d+)?)`)

var denominationUnits = []struct {
	unit    string
	pattern *regexp.Regexp
}{
	{UnitRouble, regexp.MustCompile(`руб|rouble|ruble|rubl`)},
	{UnitKopek, regexp.MustCompile(`коп|kopek|kopeck`)},
	{UnitPolushka, regexp.MustCompile(`полушк|polushka`)},
	{UnitDenga, regexp.MustCompile(`деньг|denga`)},
	{UnitAltyn, regexp.MustCompile(`алтын|altyn`)},
}

// ParseDenomination extracts the first number and the unit from text such as
// "1 рубль" or "2,5 kopeks". The first comma is read as a decimal point.
func ParseDenomination(text string) Denomination {
	var d Denomination
	normalized := strings.Replace(strings.ToLower(strings.TrimSpace(text)), ",", ".", 1)
	if normalized == "" {
		return d
	}
	if match := denominationNumber.FindString(normalized); match != "" {
		if value, err := strconv.ParseFloat(match, 64); err == nil {
			d.Value = &value
		}
	}
	for _, candidate := range denominationUnits {
		if candidate.pattern.MatchString(normalized) {
			d.Unit = candidate.unit
			break
		}
	}
	return d
}

// HasValue reports whether a numeric face value was parsed.
func (d Denomination) HasValue() bool {
	return d.Value != nil
}
