package matching_test

import (
	"strings"
	"testing"

	"coinenrich/internal/coin"
	"coinenrich/internal/config"
	"coinenrich/internal/logging"
	"coinenrich/internal/matching"
	"coinenrich/internal/numista"
)

func years(minYear, maxYear int) (*int, *int) {
	return &minYear, &maxYear
}

func candidate(id int64, title, category, issuer string, minYear, maxYear int) numista.SearchType {
	cand := numista.SearchType{ID: id, Title: title, Category: category}
	if issuer != "" {
		cand.Issuer = &numista.Issuer{Name: issuer}
	}
	if minYear > 0 {
		cand.MinYear, cand.MaxYear = years(minYear, maxYear)
	}
	return cand
}

func TestGeneralScoreRubleScenario(t *testing.T) {
	c := coin.FromFields(map[string]any{"title": "1 Ruble Peter I", "year": 1720})
	q := matching.QueryFromCoin(c, "")
	p := matching.GeneralProfile()

	peter := candidate(101, "1 Ruble Peter the Great", "coin", "Russia", 1700, 1725)
	kopeks := candidate(202, "5 Kopeks", "coin", "Russia", 1800, 1810)

	if got := matching.Score(p, q, peter); got != 62 {
		t.Fatalf("expected 62 (24 tokens + 30 year + 8 coin), got %d", got)
	}
	if got := matching.Score(p, q, kopeks); got != 8 {
		t.Fatalf("expected 8 for the coin bonus only, got %d", got)
	}

	sel, ok := matching.Select(logging.NewNop(), p, q, []numista.SearchType{kopeks, peter})
	if !ok {
		t.Fatalf("expected selection, rejected: %s", sel.Reason)
	}
	res := sel.Resolution()
	if res.TypeID != 101 || res.Source != "search(score=62)" {
		t.Fatalf("unexpected resolution %+v", res)
	}
	if len(sel.Ranked) != 2 || sel.Ranked[0].Type.ID != 101 || sel.RunnerUp != 8 {
		t.Fatalf("unexpected ranking %+v", sel.Ranked)
	}
}

func TestGeneralScoreExactTitleWithIssuerAndYear(t *testing.T) {
	c := coin.FromFields(map[string]any{"title": "1 Ruble Peter", "issuerName": "Russia", "year": "1720"})
	q := matching.QueryFromCoin(c, "")
	p := matching.GeneralProfile()

	exact := candidate(1, "1 Ruble Peter Russia", "coin", "Russia", 1700, 1725)
	partial := candidate(2, "Ruble", "coin", "Russian Empire", 1700, 1725)

	exactScore := matching.Score(p, q, exact)
	if exactScore < 70+32+25+30 {
		t.Fatalf("expected at least %d, got %d", 70+32+25+30, exactScore)
	}
	// 8 token + 12 issuer containment + 30 year + 8 coin
	if got := matching.Score(p, q, partial); got != 58 {
		t.Fatalf("expected 58 for the partial candidate, got %d", got)
	}
	sel, ok := matching.Select(logging.NewNop(), p, q, []numista.SearchType{partial, exact})
	if !ok || sel.TypeID != 1 {
		t.Fatalf("expected exact candidate selected, got %+v ok=%v", sel, ok)
	}
}

func TestScoreContainsAndTitleGate(t *testing.T) {
	q := matching.NewQuery("thaler", "", 0)
	p := matching.GeneralProfile()

	// 45 contains + 8 token
	if got := matching.Score(p, q, candidate(1, "Reichs-Thaler", "", "", 0, 0)); got != 45+8 {
		t.Fatalf("expected %d, got %d", 45+8, got)
	}
	if got := matching.Score(p, q, candidate(2, "  ", "coin", "", 0, 0)); got != 0 {
		t.Fatalf("expected untitled candidate to score 0, got %d", got)
	}
}

func TestScoreFoldsDiacritics(t *testing.T) {
	q := matching.NewQuery("Réal", "España", 0)
	p := matching.GeneralProfile()
	got := matching.Score(p, q, candidate(1, "Real", "", "Espana", 0, 0))
	if got < p.TitleExact {
		t.Fatalf("expected exact title after folding, got %d", got)
	}
}

func TestSelectRejectsNarrowGap(t *testing.T) {
	p := matching.Profile{Name: "custom", YearInRange: 55, CoinBonus: 5, Floor: 55, Gap: 10}
	q := matching.NewQuery("", "", 1720)
	cands := []numista.SearchType{
		candidate(1, "A", "coin", "", 1700, 1725),
		candidate(2, "B", "banknote", "", 1700, 1725),
	}
	ranked := matching.Rank(p, q, cands)
	if ranked[0].Score != 60 || ranked[1].Score != 55 {
		t.Fatalf("expected scores {60, 55}, got %+v", ranked)
	}
	sel, ok := matching.Select(logging.NewNop(), p, q, cands)
	if ok {
		t.Fatalf("expected gap rejection, got %+v", sel)
	}
	if !strings.Contains(sel.Reason, "gap") {
		t.Fatalf("expected gap reason, got %q", sel.Reason)
	}
	if sel.Score != 60 || sel.RunnerUp != 55 {
		t.Fatalf("expected rejected selection to keep scores, got %+v", sel)
	}
}

func TestSelectRejectsBelowFloor(t *testing.T) {
	p := matching.GeneralProfile()
	q := matching.NewQuery("1 Ruble Peter I", "", 0)
	lone := candidate(9, "Peter I Ruble 1 novodel", "coin", "", 0, 0)

	if got := matching.Score(p, q, lone); got != 40 {
		t.Fatalf("expected 40, got %d", got)
	}
	sel, ok := matching.Select(logging.NewNop(), p, q, []numista.SearchType{lone})
	if ok {
		t.Fatalf("expected floor rejection, got %+v", sel)
	}
	if !strings.Contains(sel.Reason, "floor") {
		t.Fatalf("expected floor reason, got %q", sel.Reason)
	}
}

func TestSelectRejectsMissingID(t *testing.T) {
	p := matching.GeneralProfile()
	q := matching.NewQuery("1 Ruble", "", 0)
	sel, ok := matching.Select(logging.NewNop(), p, q, []numista.SearchType{candidate(0, "1 Ruble", "coin", "", 0, 0)})
	if ok || sel.Reason != "best candidate has no id" {
		t.Fatalf("expected missing id rejection, got %+v ok=%v", sel, ok)
	}
}

func TestSelectRejectsEmptyQueryAndNoCandidates(t *testing.T) {
	p := matching.GeneralProfile()
	if _, ok := matching.Select(nil, p, matching.NewQuery("", "", 0), []numista.SearchType{candidate(1, "x", "", "", 0, 0)}); ok {
		t.Fatal("expected empty query rejection")
	}
	if _, ok := matching.Select(nil, p, matching.NewQuery("x", "", 0), nil); ok {
		t.Fatal("expected rejection without candidates")
	}
}

func TestRulerScoreScenario(t *testing.T) {
	c := coin.FromFields(map[string]any{"denomination": "1 рубль", "year": 1720, "rulerId": "peter_1"})
	q := matching.QueryFromCoin(c, "Peter I")
	p := matching.RulerProfile()

	ruble := candidate(11, "1 Ruble - Peter I", "coin", "", 1718, 1725)
	poltina := candidate(12, "1 Poltina - Peter I", "coin", "", 1718, 1725)
	kopeks := candidate(13, "5 Kopeks - Peter I", "coin", "", 1721, 1725)

	// 12 coin + 30 year + 20 unit + 20 value + 8 ruler token
	if got := matching.Score(p, q, ruble); got != 90 {
		t.Fatalf("expected 90, got %d", got)
	}
	if got := matching.Score(p, q, poltina); got != 70 {
		t.Fatalf("expected 70, got %d", got)
	}
	// 12 coin + 10 near year + 8 ruler token
	if got := matching.Score(p, q, kopeks); got != 30 {
		t.Fatalf("expected 30, got %d", got)
	}

	sel, ok := matching.Select(logging.NewNop(), p, q, []numista.SearchType{kopeks, poltina, ruble})
	if !ok || sel.TypeID != 11 {
		t.Fatalf("expected ruble selected, got %+v ok=%v", sel, ok)
	}
}

func TestRulerScoreIgnoresTitleTerms(t *testing.T) {
	q := matching.NewQuery("1 Ruble", "Russia", 1720)
	p := matching.RulerProfile()
	got := matching.Score(p, q, candidate(1, "", "coin", "Russia", 1720, 1720))
	if got != 12+30 {
		t.Fatalf("expected only coin and year terms, got %d", got)
	}
}

func TestConsistent(t *testing.T) {
	q := matching.NewQuery("", "", 1720).WithDenomination("1 рубль")
	minYear, maxYear := years(1718, 1725)

	ok, reason := matching.Consistent(q, &numista.Type{
		Title: "1 Ruble", MinYear: minYear, MaxYear: maxYear,
		Value: &numista.Value{Text: "1 Rouble"},
	})
	if !ok {
		t.Fatalf("expected consistent match, got %q", reason)
	}

	late, lateMax := years(1730, 1740)
	if ok, _ := matching.Consistent(q, &numista.Type{Title: "1 Ruble", MinYear: late, MaxYear: lateMax}); ok {
		t.Fatal("expected year mismatch to fail")
	}
	if ok, reason := matching.Consistent(q, &numista.Type{Title: "1 Ruble", Value: &numista.Value{Text: "1 Kopek"}}); ok || !strings.Contains(reason, "unit") {
		t.Fatalf("expected unit mismatch, got ok=%v reason=%q", ok, reason)
	}
	if ok, reason := matching.Consistent(q, &numista.Type{Title: "2 Roubles"}); ok || !strings.Contains(reason, "face value") {
		t.Fatalf("expected title fallback value mismatch, got ok=%v reason=%q", ok, reason)
	}
}

func TestProfileFromConfigOverrides(t *testing.T) {
	floor := 60
	off := false
	p, err := matching.ProfileFromConfig(config.ProfileRuler, config.Scoring{
		Ruler: config.ScoringOverrides{Floor: &floor, Consistency: &off},
	})
	if err != nil {
		t.Fatalf("ProfileFromConfig returned error: %v", err)
	}
	if p.Floor != 60 || p.Consistency || p.Gap != 8 {
		t.Fatalf("unexpected profile %+v", p)
	}
	general, err := matching.ProfileFromConfig(config.ProfileGeneral, config.Scoring{Ruler: config.ScoringOverrides{Floor: &floor}})
	if err != nil {
		t.Fatalf("ProfileFromConfig returned error: %v", err)
	}
	if general.Floor != 55 {
		t.Fatalf("ruler override leaked into general profile: %+v", general)
	}
	if _, err := matching.ProfileFromConfig("fuzzy", config.Scoring{}); err == nil {
		t.Fatal("expected unknown profile error")
	}
}
