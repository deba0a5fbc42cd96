package enrichment

import (
	"strconv"
	"strings"

	"coinenrich/internal/coin"
	"coinenrich/internal/matching"
	"coinenrich/internal/numista"
)

const (
	textSearchCount  = 10
	rulerSearchCount = 50
)

var issuerCodesByPeriod = map[string]string{
	"russian_empire": "russia-empire",
	"ussr":           "ancienne_urss",
	"modern_russia":  "russia",
	"modern_israel":  "israel",
}

// IssuerCodeForPeriod maps a ruler period id to a Numista issuer code, or ""
// for unknown periods.
func IssuerCodeForPeriod(periodID string) string {
	return issuerCodesByPeriod[strings.TrimSpace(periodID)]
}

// SearchPlan is one catalog search and the query its results are scored
// against. Key identifies equivalent searches within a run.
type SearchPlan struct {
	Key    string
	Params numista.SearchParams
	Query  matching.Query
}

// TextPlan searches by the coin's joined free text and year. It reports false
// when the coin has no text to search for.
func TextPlan(c coin.Coin) (SearchPlan, bool) {
	text := c.SearchQuery()
	if text == "" {
		return SearchPlan{}, false
	}
	return SearchPlan{
		Key: text + "::" + yearKey(c.Year),
		Params: numista.SearchParams{
			Query: text,
			Date:  c.Year,
			Count: textSearchCount,
			Page:  1,
		},
		Query: matching.QueryFromCoin(c, ""),
	}, true
}

// RulerPlan searches within the issuer of the ruler's period, filtered by the
// coin year, for the coin's denomination or name. ruler may be nil.
func RulerPlan(c coin.Coin, ruler *Ruler) SearchPlan {
	var issuer, rulerName string
	if ruler != nil {
		issuer = IssuerCodeForPeriod(ruler.PeriodID)
		rulerName = ruler.DisplayName()
	}
	key := strings.Join([]string{c.RulerID, yearKey(c.Year), c.Denomination, c.Name}, "|")
	return SearchPlan{
		Key: key,
		Params: numista.SearchParams{
			Query:  strings.TrimSpace(c.DenominationText()),
			Issuer: issuer,
			Date:   c.Year,
			Year:   c.Year,
			Count:  rulerSearchCount,
		},
		Query: matching.QueryFromCoin(c, rulerName),
	}
}

func yearKey(year int) string {
	if year == 0 {
		return ""
	}
	return strconv.Itoa(year)
}
