package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
)

type prefetchSummary struct {
	Task       string        `json:"task"`
	Runs       int           `json:"runs"`
	Frames     int           `json:"frames"`
	LoadedRuns int           `json:"loaded_runs"`
	Cached     int           `json:"cached"`
	Failed     int           `json:"failed"`
	Fetches    int64         `json:"fetches"`
	Elapsed    time.Duration `json:"elapsed_ns"`
}

func newPrefetchCmd(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "prefetch",
		Short: "Load every frame of every run without a UI",
		Long:  "Run the sparse pre-scan and a full load of each run, then print a summary. Useful to warm a cache or check a deployment for missing frames.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			summary, err := a.runPrefetch(cmd.Context())
			if err != nil {
				return err
			}
			return writeSummary(cmd.OutOrStdout(), summary, asJSON)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the summary as JSON")
	return cmd
}

func (a *app) runPrefetch(ctx context.Context) (prefetchSummary, error) {
	sess, err := a.openSession(ctx)
	if err != nil {
		return prefetchSummary{}, err
	}
	sched, err := a.newScheduler(sess, 0)
	if err != nil {
		return prefetchSummary{}, err
	}
	defer sched.Stop()

	started := time.Now()
	if err := sched.SparseScan(ctx); err != nil {
		return prefetchSummary{}, err
	}
	for i := range sess.runs {
		if err := sched.LoadRunCompletely(ctx, i); err != nil {
			return prefetchSummary{}, err
		}
	}

	stats := sched.Stats()
	summary := prefetchSummary{
		Task:       a.cfg.Source.Task,
		Runs:       stats.Runs,
		LoadedRuns: stats.LoadedRuns,
		Cached:     stats.Cached,
		Failed:     stats.Failed,
		Fetches:    stats.Fetches,
		Elapsed:    time.Since(started),
	}
	for _, run := range sess.runs {
		summary.Frames += run.FrameCount
	}
	a.logger.Info().
		Int("runs", summary.Runs).
		Int("cached", summary.Cached).
		Int("failed", summary.Failed).
		Dur("elapsed", summary.Elapsed).
		Msg("prefetch complete")
	return summary, nil
}

func writeSummary(out io.Writer, summary prefetchSummary, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	}

	cell := lipgloss.NewStyle().Padding(0, 1)
	t := table.New().
		Border(lipgloss.NormalBorder()).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == 0 {
				return cell.Bold(true)
			}
			return cell
		}).
		Headers("METRIC", "VALUE").
		Row("task", summary.Task).
		Row("runs", strconv.Itoa(summary.Runs)).
		Row("frames", strconv.Itoa(summary.Frames)).
		Row("complete runs", strconv.Itoa(summary.LoadedRuns)).
		Row("cached images", strconv.Itoa(summary.Cached)).
		Row("failed images", strconv.Itoa(summary.Failed)).
		Row("fetches", strconv.FormatInt(summary.Fetches, 10)).
		Row("elapsed", summary.Elapsed.Round(time.Millisecond).String())
	_, err := fmt.Fprintln(out, t.Render())
	return err
}
