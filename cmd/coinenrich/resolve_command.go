package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"coinenrich/internal/enrichment"
)

type resolveReport struct {
	DocumentID    string   `json:"documentId"`
	Resolved      bool     `json:"resolved"`
	TypeID        int64    `json:"typeId,omitempty"`
	Source        string   `json:"source,omitempty"`
	Skip          string   `json:"skip,omitempty"`
	Reason        string   `json:"reason,omitempty"`
	ChangedFields []string `json:"changedFields,omitempty"`
	Candidates    int      `json:"candidates,omitempty"`
}

func newResolveCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool
	var profile string
	var force bool

	cmd := &cobra.Command{
		Use:   "resolve <doc-id>",
		Short: "Show how a stored coin would be resolved and merged, without writing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.configCopy()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("profile") {
				cfg.Enrichment.Profile = profile
			}
			if cmd.Flags().Changed("force") {
				cfg.Enrichment.Force = force
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			logger, err := ctx.logger(cfg)
			if err != nil {
				return err
			}
			store, closeStore, err := openDocumentStore(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer closeStore()
			catalog, err := newCatalog(cfg, logger)
			if err != nil {
				return err
			}
			opts, err := enrichment.OptionsFromConfig(cfg)
			if err != nil {
				return err
			}
			opts.DryRun = true

			out, err := enrichment.NewRunner(store, catalog, opts, logger).Inspect(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			report := resolveReport{
				DocumentID:    out.DocumentID,
				Resolved:      out.Resolved,
				TypeID:        out.Resolution.TypeID,
				Source:        out.Resolution.Source,
				Skip:          out.Skip,
				Reason:        out.Reason,
				ChangedFields: out.Update.Changed,
			}
			if out.Selection != nil {
				report.Candidates = len(out.Selection.Ranked)
			}
			if jsonOutput {
				return writeJSON(cmd.OutOrStdout(), report)
			}
			printResolveReport(cmd.OutOrStdout(), report)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the outcome as JSON")
	cmd.Flags().StringVar(&profile, "profile", "", "Scoring profile (general, ruler)")
	cmd.Flags().BoolVar(&force, "force", false, "Evaluate as if --force were given to enrich")
	return cmd
}

func printResolveReport(w io.Writer, report resolveReport) {
	rows := [][]string{{"Document", report.DocumentID}}
	if report.Resolved {
		rows = append(rows,
			[]string{"Type id", strconv.FormatInt(report.TypeID, 10)},
			[]string{"Source", report.Source},
		)
	} else {
		rows = append(rows, []string{"Type id", "unresolved"})
	}
	if report.Candidates > 0 {
		rows = append(rows, []string{"Candidates", strconv.Itoa(report.Candidates)})
	}
	outcome := "would update"
	if report.Skip != "" {
		outcome = "skip: " + report.Skip
	}
	rows = append(rows, []string{"Outcome", outcome})
	if report.Reason != "" {
		rows = append(rows, []string{"Reason", report.Reason})
	}
	if len(report.ChangedFields) > 0 {
		rows = append(rows, []string{"Fields", strings.Join(report.ChangedFields, ", ")})
	}
	fmt.Fprintln(w, renderTable([]column{left("Field"), left("Value")}, rows))
}
