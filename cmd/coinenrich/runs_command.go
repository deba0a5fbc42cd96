package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"coinenrich/internal/docstore/sqlite"
	"coinenrich/internal/enrichment"
)

type runView struct {
	ID         string            `json:"id"`
	StartedAt  time.Time         `json:"startedAt"`
	FinishedAt *time.Time        `json:"finishedAt,omitempty"`
	Profile    string            `json:"profile"`
	Backend    string            `json:"backend"`
	Collection string            `json:"collection"`
	DryRun     bool              `json:"dryRun"`
	Stats      *enrichment.Stats `json:"stats,omitempty"`
	Error      string            `json:"error,omitempty"`
}

func newRunsCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recent enrichment runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := openLocalStore(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			views := make([]runView, 0, len(runs))
			for _, run := range runs {
				views = append(views, newRunView(run))
			}
			if jsonOutput {
				return writeJSON(cmd.OutOrStdout(), views)
			}
			printRuns(cmd.OutOrStdout(), views)
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of runs to show (0 = all)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print runs as JSON")
	return cmd
}

func newRunView(run sqlite.Run) runView {
	view := runView{
		ID:         run.ID,
		StartedAt:  run.StartedAt,
		Profile:    run.Profile,
		Backend:    run.Backend,
		Collection: run.Collection,
		DryRun:     run.DryRun,
		Error:      run.Error,
	}
	if !run.FinishedAt.IsZero() {
		finished := run.FinishedAt
		view.FinishedAt = &finished
	}
	if run.StatsJSON != "" {
		var stats enrichment.Stats
		if err := json.Unmarshal([]byte(run.StatsJSON), &stats); err == nil {
			view.Stats = &stats
		}
	}
	return view
}

func printRuns(w io.Writer, views []runView) {
	if len(views) == 0 {
		fmt.Fprintln(w, "No runs recorded")
		return
	}
	rows := make([][]string, 0, len(views))
	for _, view := range views {
		duration := "-"
		if view.FinishedAt != nil {
			duration = view.FinishedAt.Sub(view.StartedAt).Round(time.Second).String()
		}
		scanned, updated, errs := "-", "-", "-"
		if view.Stats != nil {
			scanned = strconv.Itoa(view.Stats.Scanned)
			updated = strconv.Itoa(view.Stats.Updated + view.Stats.WouldUpdate)
			errs = strconv.Itoa(view.Stats.Errors)
		}
		status := "ok"
		if view.Error != "" {
			status = "failed"
		}
		rows = append(rows, []string{
			shortID(view.ID),
			view.StartedAt.Local().Format("2006-01-02 15:04"),
			duration,
			view.Profile,
			view.Backend,
			view.Collection,
			yesNo(view.DryRun),
			scanned,
			updated,
			errs,
			status,
		})
	}
	fmt.Fprintln(w, renderTable([]column{
		left("Run"), left("Started"), right("Duration"), left("Profile"), left("Backend"),
		left("Collection"), left("Dry run"), right("Scanned"), right("Updated"), right("Errors"), left("Status"),
	}, rows))
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
