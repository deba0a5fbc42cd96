package matching

import (
	"fmt"
	"log/slog"
	"slices"

	"coinenrich/internal/coin"
	"coinenrich/internal/logging"
	"coinenrich/internal/numista"
)

const decisionType = "numista_search_match"

// Candidate is a scored search result.
type Candidate struct {
	Type  numista.SearchType
	Score int
}

// Selection is the outcome of Select. Ranked and Reason are filled even when
// the match is rejected.
type Selection struct {
	TypeID      int64
	Title       string
	Score       int
	RunnerUp    int
	HasRunnerUp bool
	Ranked      []Candidate
	Reason      string
}

// Resolution returns the search provenance for an accepted selection.
func (s Selection) Resolution() coin.Resolution {
	return coin.Resolution{TypeID: s.TypeID, Source: coin.SearchSource(s.Score)}
}

// Rank scores every candidate and sorts them by descending score. Ties keep
// the catalog order.
func Rank(p Profile, q Query, cands []numista.SearchType) []Candidate {
	ranked := make([]Candidate, 0, len(cands))
	for _, cand := range cands {
		ranked = append(ranked, Candidate{Type: cand, Score: Score(p, q, cand)})
	}
	slices.SortStableFunc(ranked, func(a, b Candidate) int {
		return b.Score - a.Score
	})
	return ranked
}

// Select ranks the candidates and accepts the best one only when it has an id,
// reaches the profile floor, and leads the runner-up by at least the gap.
func Select(logger *slog.Logger, p Profile, q Query, cands []numista.SearchType) (Selection, bool) {
	if logger == nil {
		logger = logging.NewNop()
	}
	var sel Selection
	if len(cands) == 0 {
		sel.Reason = "no candidates"
		return sel, false
	}
	if p.TitleGated && q.Text == "" {
		sel.Reason = "empty query"
		return sel, false
	}

	sel.Ranked = Rank(p, q, cands)
	for idx, cand := range sel.Ranked {
		logger.Debug("candidate score",
			logging.Int("rank", idx+1),
			logging.Int64(logging.FieldTypeID, cand.Type.ID),
			logging.String("title", cand.Type.Title),
			logging.String("issuer", cand.Type.IssuerName()),
			logging.String("category", cand.Type.Category),
			logging.Int("score", cand.Score),
		)
	}

	best := sel.Ranked[0]
	sel.TypeID = best.Type.ID
	sel.Title = best.Type.Title
	sel.Score = best.Score
	if len(sel.Ranked) > 1 {
		sel.RunnerUp = sel.Ranked[1].Score
		sel.HasRunnerUp = true
	}

	attrs := []logging.Attr{
		logging.String("profile", p.Name),
		logging.String("query", q.Text),
		logging.Int64(logging.FieldTypeID, best.Type.ID),
		logging.String("title", best.Type.Title),
		logging.Int("best_score", sel.Score),
		logging.Int("runner_up_score", sel.RunnerUp),
		logging.Int("candidates", len(sel.Ranked)),
	}

	switch {
	case best.Type.ID <= 0:
		sel.Reason = "best candidate has no id"
	case sel.Score < p.Floor:
		sel.Reason = fmt.Sprintf("best score %d below floor %d", sel.Score, p.Floor)
		attrs = append(attrs, logging.Int("floor", p.Floor))
	case sel.HasRunnerUp && sel.Score-sel.RunnerUp < p.Gap:
		sel.Reason = fmt.Sprintf("gap %d to runner-up below %d", sel.Score-sel.RunnerUp, p.Gap)
		attrs = append(attrs, logging.Int("gap", p.Gap))
	}

	if sel.Reason != "" {
		attrs = append(attrs, logging.DecisionAttrs(decisionType, "rejected", sel.Reason)...)
		logging.WarnWithContext(logger, "search match rejected", "search_match_rejected",
			append(attrs, logging.String(logging.FieldErrorHint, "add a numistaTypeId or numistaUrl to the record"))...)
		sel.TypeID = 0
		return sel, false
	}

	sel.Reason = "thresholds passed"
	attrs = append(attrs, logging.DecisionAttrs(decisionType, "accepted", sel.Reason)...)
	logger.Info("search match accepted", logging.Args(attrs...)...)
	return sel, true
}
