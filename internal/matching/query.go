package matching

import (
	"coinenrich/internal/coin"
	"coinenrich/internal/textutil"
)

// rulerTokenMinLen is exclusive: ruler name tokens must be longer.
const rulerTokenMinLen = 2

// Query is the normalized description of a coin that candidates are scored
// against.
type Query struct {
	Text         string
	Tokens       textutil.TokenSet
	Issuer       string
	Year         int
	Denomination coin.Denomination
	RulerTokens  []string
}

// NewQuery builds a query from free text, an issuer hint and a year. A zero
// year means unknown.
func NewQuery(text, issuer string, year int) Query {
	normalized := textutil.Normalize(text)
	return Query{
		Text:   normalized,
		Tokens: textutil.NewTokenSet(normalized),
		Issuer: textutil.Normalize(issuer),
		Year:   year,
	}
}

// QueryFromCoin builds the query for a stored coin. rulerName is the ruler's
// English or native name, or "" when unknown.
func QueryFromCoin(c coin.Coin, rulerName string) Query {
	q := NewQuery(c.SearchQuery(), c.IssuerText(), c.Year)
	q.Denomination = coin.ParseDenomination(c.DenominationText())
	return q.WithRuler(rulerName)
}

// WithDenomination returns a copy of q with the denomination parsed from text.
func (q Query) WithDenomination(text string) Query {
	q.Denomination = coin.ParseDenomination(text)
	return q
}

// WithRuler returns a copy of q carrying the significant tokens of a ruler
// name.
func (q Query) WithRuler(name string) Query {
	q.RulerTokens = nil
	for _, token := range textutil.Tokens(name) {
		if len(token) > rulerTokenMinLen {
			q.RulerTokens = append(q.RulerTokens, token)
		}
	}
	return q
}
