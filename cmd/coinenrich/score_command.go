package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"coinenrich/internal/coin"
	"coinenrich/internal/config"
	"coinenrich/internal/enrichment"
	"coinenrich/internal/matching"
)

type scoreFlags struct {
	title        string
	issuer       string
	year         int
	denomination string
	ruler        string
	period       string
	profile      string
	jsonOutput   bool
}

type scoredCandidate struct {
	Rank   int    `json:"rank"`
	TypeID int64  `json:"typeId"`
	Title  string `json:"title"`
	Issuer string `json:"issuer,omitempty"`
	Years  string `json:"years,omitempty"`
	Score  int    `json:"score"`
}

type scoreReport struct {
	Profile    string            `json:"profile"`
	Accepted   bool              `json:"accepted"`
	TypeID     int64             `json:"typeId,omitempty"`
	Source     string            `json:"source,omitempty"`
	Reason     string            `json:"reason"`
	Candidates []scoredCandidate `json:"candidates"`
}

func newScoreCommand(ctx *commandContext) *cobra.Command {
	var flags scoreFlags

	cmd := &cobra.Command{
		Use:   "score",
		Short: "Run a live catalog search and show how candidates score",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.configCopy()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("profile") {
				cfg.Enrichment.Profile = flags.profile
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			logger, err := ctx.logger(cfg)
			if err != nil {
				return err
			}
			catalog, err := newCatalog(cfg, logger)
			if err != nil {
				return err
			}
			profile, err := matching.ProfileFromConfig(cfg.Enrichment.Profile, cfg.Scoring)
			if err != nil {
				return err
			}

			plan, err := flags.plan(profile)
			if err != nil {
				return err
			}
			resp, err := catalog.SearchTypes(cmd.Context(), plan.Params)
			if err != nil {
				return err
			}
			sel, accepted := matching.Select(logger, profile, plan.Query, resp.Types)

			report := scoreReport{Profile: profile.Name, Accepted: accepted, Reason: sel.Reason}
			if accepted {
				res := sel.Resolution()
				report.TypeID = res.TypeID
				report.Source = res.Source
			}
			for idx, cand := range sel.Ranked {
				report.Candidates = append(report.Candidates, scoredCandidate{
					Rank:   idx + 1,
					TypeID: cand.Type.ID,
					Title:  cand.Type.Title,
					Issuer: cand.Type.IssuerName(),
					Years:  yearRange(cand.Type.MinYear, cand.Type.MaxYear),
					Score:  cand.Score,
				})
			}
			if flags.jsonOutput {
				return writeJSON(cmd.OutOrStdout(), report)
			}
			printScoreReport(cmd.OutOrStdout(), report)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&flags.title, "title", "", "Coin title or free-text description")
	f.StringVar(&flags.issuer, "issuer", "", "Issuing authority name")
	f.IntVar(&flags.year, "year", 0, "Coin year")
	f.StringVar(&flags.denomination, "denomination", "", "Face value text, e.g. \"1 рубль\" (ruler profile)")
	f.StringVar(&flags.ruler, "ruler", "", "Ruler name (ruler profile)")
	f.StringVar(&flags.period, "period", "", "Ruler period id, e.g. russian_empire (ruler profile)")
	f.StringVar(&flags.profile, "profile", "", "Scoring profile (general, ruler)")
	f.BoolVar(&flags.jsonOutput, "json", false, "Print the ranking as JSON")

	return cmd
}

// plan builds the search the enrichment run would issue for an equivalent
// stored coin.
func (f scoreFlags) plan(profile matching.Profile) (enrichment.SearchPlan, error) {
	fields := map[string]any{
		"title":        f.title,
		"issuerName":   f.issuer,
		"denomination": f.denomination,
	}
	if f.year != 0 {
		fields["year"] = f.year
	}
	c := coin.FromFields(fields)

	if profile.Name == config.ProfileRuler {
		ruler := enrichment.Ruler{NameEn: f.ruler, PeriodID: f.period}
		return enrichment.RulerPlan(c, &ruler), nil
	}
	plan, ok := enrichment.TextPlan(c)
	if !ok {
		return enrichment.SearchPlan{}, fmt.Errorf("--title or --issuer is required for the %s profile", profile.Name)
	}
	return plan, nil
}

func printScoreReport(w io.Writer, report scoreReport) {
	rows := make([][]string, 0, len(report.Candidates))
	for _, cand := range report.Candidates {
		rows = append(rows, []string{
			strconv.Itoa(cand.Rank),
			strconv.FormatInt(cand.TypeID, 10),
			cand.Title,
			cand.Issuer,
			cand.Years,
			strconv.Itoa(cand.Score),
		})
	}
	if len(rows) > 0 {
		fmt.Fprintln(w, renderTable([]column{
			right("#"), right("Type"), left("Title"), left("Issuer"), left("Years"), right("Score"),
		}, rows))
	}
	if report.Accepted {
		fmt.Fprintf(w, "Accepted type %d via %s (%s profile)\n", report.TypeID, report.Source, report.Profile)
		return
	}
	fmt.Fprintf(w, "Rejected: %s (%s profile)\n", report.Reason, report.Profile)
}

func yearRange(minYear, maxYear *int) string {
	var parts []string
	if minYear != nil {
		parts = append(parts, strconv.Itoa(*minYear))
	}
	if maxYear != nil && (minYear == nil || *maxYear != *minYear) {
		parts = append(parts, strconv.Itoa(*maxYear))
	}
	return strings.Join(parts, "-")
}
