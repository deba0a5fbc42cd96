package matching

import (
	"math"
	"strings"

	"coinenrich/internal/coin"
	"coinenrich/internal/numista"
	"coinenrich/internal/textutil"
)

const (
	categoryCoin   = "coin"
	valueTolerance = 0.0001
)

// Score sums the profile's terms for one candidate. The result is never
// negative.
func Score(p Profile, q Query, cand numista.SearchType) int {
	title := textutil.Normalize(cand.Title)
	if p.TitleGated && title == "" {
		return 0
	}

	score := 0
	score += titleScore(p, q, title)
	score += tokenScore(p, q, title)
	score += issuerScore(p, q, textutil.Normalize(cand.IssuerName()))
	score += yearScore(p, q.Year, cand.MinYear, cand.MaxYear)
	if cand.Category == categoryCoin {
		score += p.CoinBonus
	}
	score += denominationScore(p, q.Denomination, coin.ParseDenomination(cand.Title))
	score += rulerScore(p, q.RulerTokens, title)
	return max(score, 0)
}

func titleScore(p Profile, q Query, title string) int {
	if title == "" || q.Text == "" {
		return 0
	}
	switch {
	case title == q.Text:
		return p.TitleExact
	case strings.Contains(title, q.Text):
		return p.TitleContains
	}
	return 0
}

func tokenScore(p Profile, q Query, title string) int {
	if p.TokenWeight == 0 || len(q.Tokens) == 0 {
		return 0
	}
	overlap := q.Tokens.Overlap(textutil.NewTokenSet(title))
	return min(overlap*p.TokenWeight, p.TokenCap)
}

func issuerScore(p Profile, q Query, candIssuer string) int {
	if q.Issuer == "" || candIssuer == "" {
		return 0
	}
	switch {
	case candIssuer == q.Issuer:
		return p.IssuerExact
	case strings.Contains(candIssuer, q.Issuer), strings.Contains(q.Issuer, candIssuer):
		return p.IssuerPartial
	}
	return 0
}

func yearScore(p Profile, year int, minYear, maxYear *int) int {
	if year == 0 || minYear == nil || maxYear == nil {
		return 0
	}
	switch {
	case year >= *minYear && year <= *maxYear:
		return p.YearInRange
	case abs(year-*minYear) <= p.YearTolerance, abs(year-*maxYear) <= p.YearTolerance:
		return p.YearNear
	}
	return 0
}

func denominationScore(p Profile, want, got coin.Denomination) int {
	score := 0
	if want.Unit != "" && got.Unit != "" && want.Unit == got.Unit {
		score += p.UnitMatch
	}
	if want.HasValue() && got.HasValue() && math.Abs(*want.Value-*got.Value) < valueTolerance {
		score += p.ValueMatch
	}
	return score
}

func rulerScore(p Profile, tokens []string, title string) int {
	if p.RulerTokenWeight == 0 || title == "" || len(tokens) == 0 {
		return 0
	}
	matched := 0
	for _, token := range tokens {
		if strings.Contains(title, token) {
			matched++
		}
	}
	return min(matched*p.RulerTokenWeight, p.RulerTokenCap)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
