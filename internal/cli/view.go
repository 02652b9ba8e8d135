package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/tOgg1/runviewer/internal/config"
	"github.com/tOgg1/runviewer/internal/logging"
	"github.com/tOgg1/runviewer/internal/viewer"
	"github.com/tOgg1/runviewer/internal/viewtui"
)

type viewOptions struct {
	run      string
	frame    int
	fps      int
	theme    string
	noResume bool
}

func newViewCmd(a *app) *cobra.Command {
	opts := viewOptions{}
	cmd := &cobra.Command{
		Use:   "view",
		Short: "Open the terminal viewer",
		Long:  "Load the task's runs and play them back in the terminal while frames prefetch in the background.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runView(cmd.Context(), opts)
		},
	}
	cmd.Flags().StringVar(&opts.run, "run", "", "run id to open (default: last viewed, else the first run)")
	cmd.Flags().IntVar(&opts.frame, "frame", 0, "frame to open at")
	cmd.Flags().IntVar(&opts.fps, "fps", 0, "playback speed in frames per second")
	cmd.Flags().StringVar(&opts.theme, "theme", "", "theme: default|high-contrast")
	cmd.Flags().BoolVar(&opts.noResume, "no-resume", false, "ignore the saved position")
	return cmd
}

func hasTTY() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}

func (a *app) runView(ctx context.Context, opts viewOptions) error {
	if !hasTTY() {
		return &PreflightError{
			Message: "view requires an interactive terminal",
			Hint:    "use `runviewer prefetch` to load frames headlessly",
		}
	}

	closeLog, err := a.redirectLogs()
	if err != nil {
		return err
	}
	defer closeLog()

	sess, loadErr := a.openSession(ctx)
	if sess == nil {
		return loadErr
	}

	store := config.NewPositionStore(a.cfg.Resume.Path)
	start, err := a.startPosition(store, sess, opts)
	if err != nil {
		return err
	}

	sched, err := a.newScheduler(sess, start.run)
	if err != nil {
		return err
	}
	defer sched.Stop()

	state := viewer.NewState(sess.runs, start.run, start.fps)
	state, _ = viewer.SetCurrentFrame(state, start.frame)
	viewerLogger := a.componentLogger("viewer")
	ctrl, err := viewer.NewController(viewer.ControllerConfig{
		State:        state,
		Scheduler:    sched,
		Cache:        sess.fetcher.Cache(),
		Paths:        sess.paths,
		SearchRadius: a.cfg.Loader.SearchRadius,
		Logger:       &viewerLogger,
	})
	if err != nil {
		return err
	}

	if loadErr == nil {
		go func() {
			if err := sched.Start(ctx); err != nil && ctx.Err() == nil {
				a.logger.Warn().Err(err).Msg("initial load stopped")
			}
		}()
	}

	theme := a.cfg.TUI.Theme
	if opts.theme != "" {
		theme = opts.theme
	}
	err = viewtui.Run(ctx, viewtui.Config{
		Controller:      ctrl,
		Updates:         sched.Updates(),
		Task:            a.cfg.TaskType(),
		Theme:           theme,
		RefreshInterval: a.cfg.TUI.RefreshInterval,
		Err:             loadErr,
	})

	if a.cfg.Resume.Enabled {
		final := ctrl.State()
		if run, ok := final.CurrentRun(); ok {
			pos := config.Position{RunID: run.ID, Frame: final.Frame, FPS: final.FPS}
			if saveErr := store.Save(a.cfg.Source.Task, pos); saveErr != nil {
				a.logger.Warn().Err(saveErr).Str("path", store.Path()).Msg("failed to save position")
			}
		}
	}
	return err
}

type startPosition struct {
	run   int
	frame int
	fps   int
}

// startPosition resolves where the viewer opens: explicit flags first, then
// the saved position, then run 0 frame 0.
func (a *app) startPosition(store *config.PositionStore, sess *viewerSession, opts viewOptions) (startPosition, error) {
	start := startPosition{frame: opts.frame, fps: a.cfg.Playback.FPS}
	if opts.fps > 0 {
		start.fps = opts.fps
	}

	if opts.run != "" {
		idx := runIndex(sess.runs, opts.run)
		if idx < 0 && len(sess.runs) > 0 {
			return start, fmt.Errorf("run %q not found in %s manifest", opts.run, a.cfg.Source.Task)
		}
		start.run = max(idx, 0)
		return start, nil
	}

	if !a.cfg.Resume.Enabled || opts.noResume {
		return start, nil
	}
	pos, err := store.Get(a.cfg.Source.Task)
	if err != nil {
		a.logger.Warn().Err(err).Msg("ignoring saved position")
		return start, nil
	}
	if idx := runIndex(sess.runs, pos.RunID); idx >= 0 {
		start.run = idx
		if opts.frame == 0 {
			start.frame = pos.Frame
		}
		if opts.fps == 0 && pos.FPS > 0 {
			start.fps = pos.FPS
		}
	}
	return start, nil
}

// redirectLogs keeps log output off the screen the viewer draws on: into the
// configured log file, or nowhere.
func (a *app) redirectLogs() (func(), error) {
	if a.cfg.Logging.File == "" {
		logging.Discard()
		a.logger = logging.WithSession(logging.Component("cli"), a.session)
		return func() {}, nil
	}

	file, err := logging.InitFile(logging.Config{
		Level:        a.cfg.Logging.Level,
		Format:       a.cfg.Logging.Format,
		EnableCaller: a.cfg.Logging.EnableCaller,
	}, a.cfg.Logging.File)
	if err != nil {
		return nil, err
	}
	a.logger = logging.WithSession(logging.Component("cli"), a.session)
	return func() { _ = file.Close() }, nil
}
