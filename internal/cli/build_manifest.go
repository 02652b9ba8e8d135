package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/tOgg1/runviewer/internal/manifest"
	"github.com/tOgg1/runviewer/internal/models"
)

func newBuildManifestCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "build-manifest",
		Aliases: []string{"manifest"},
		Short:   "Regenerate runs.json from the images on disk",
		Long:    "Count env frames per run under <dir>/static/runs/<task> and write runs.json. Both tasks are rebuilt unless --task is given.",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runBuildManifest(cmd.OutOrStdout())
		},
	}
}

func (a *app) runBuildManifest(out io.Writer) error {
	if a.cfg.Source.Dir == "" {
		return &PreflightError{
			Message: "build-manifest needs a site root",
			Hint:    "pass --dir or set RUNVIEWER_SOURCE_DIR",
		}
	}

	tasks := models.TaskTypes
	if a.root.PersistentFlags().Changed("task") {
		tasks = []models.TaskType{a.cfg.TaskType()}
	}

	for _, task := range tasks {
		runs, err := manifest.Build(a.cfg.Source.Dir, task)
		if err != nil {
			return fmt.Errorf("build %s manifest: %w", task, err)
		}
		path, err := manifest.Write(a.cfg.Source.Dir, task, runs)
		if err != nil {
			return fmt.Errorf("write %s manifest: %w", task, err)
		}
		a.logger.Info().Str("task", string(task)).Int("runs", len(runs)).Str("path", path).Msg("manifest written")
		fmt.Fprintf(out, "%s: %d runs -> %s\n", task, len(runs), path)
	}
	return nil
}
