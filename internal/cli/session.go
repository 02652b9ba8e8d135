package cli

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/tOgg1/runviewer/internal/fetch"
	"github.com/tOgg1/runviewer/internal/logging"
	"github.com/tOgg1/runviewer/internal/manifest"
	"github.com/tOgg1/runviewer/internal/models"
	"github.com/tOgg1/runviewer/internal/scheduler"
)

// viewerSession is one task's manifest plus the machinery that loads its frames.
type viewerSession struct {
	paths   models.Paths
	runs    []models.Run
	fetcher *fetch.Fetcher
	logger  zerolog.Logger
}

func (a *app) componentLogger(name string) zerolog.Logger {
	logger := logging.WithSession(logging.Component(name), a.session)
	return logging.WithTask(logger, a.cfg.Source.Task)
}

// newSource reads from the configured origin, falling back to the directory.
func (a *app) newSource(paths models.Paths) (fetch.Source, error) {
	if err := a.cfg.RequireSource(); err != nil {
		return nil, err
	}
	if a.cfg.Source.Origin != "" {
		a.logger.Debug().Str("origin", logging.RedactURL(a.cfg.Source.Origin)).Msg("reading frames over http")
		return fetch.NewHTTPSource(a.cfg.Source.Origin, nil)
	}
	a.logger.Debug().Str("dir", a.cfg.Source.Dir).Msg("reading frames from disk")
	return fetch.NewDirSource(a.cfg.Source.Dir, paths)
}

// openSession builds the fetcher and loads the manifest. A manifest failure is
// returned together with a usable session holding no runs, so callers can
// still show an empty state.
func (a *app) openSession(ctx context.Context) (*viewerSession, error) {
	paths := a.cfg.Paths()
	source, err := a.newSource(paths)
	if err != nil {
		return nil, err
	}

	fetchLogger := a.componentLogger("fetch")
	fetcher, err := fetch.New(fetch.Config{
		Source:  source,
		Paths:   paths,
		Cache:   fetch.NewCache(),
		Timeout: a.cfg.Loader.FetchTimeout,
		Logger:  &fetchLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("init fetcher: %w", err)
	}

	sess := &viewerSession{
		paths:   paths,
		runs:    []models.Run{},
		fetcher: fetcher,
		logger:  a.componentLogger("session"),
	}
	runs, err := manifest.Load(ctx, source, paths)
	if err != nil {
		sess.logger.Error().Err(err).Str("manifest", logging.Redact(paths.Manifest())).Msg("failed to load manifest")
		return sess, err
	}
	sess.runs = runs
	sess.logger.Info().Int("runs", len(runs)).Msg("manifest loaded")
	return sess, nil
}

func (a *app) newScheduler(sess *viewerSession, initialRun int) (*scheduler.Scheduler, error) {
	logger := a.componentLogger("scheduler")
	return scheduler.New(scheduler.Config{
		Runs:          sess.runs,
		Fetcher:       sess.fetcher,
		InitialRun:    initialRun,
		SparseStride:  a.cfg.Loader.SparseStride,
		YieldInterval: a.cfg.Loader.YieldInterval,
		Logger:        &logger,
	})
}

// runIndex finds a run by id, or -1.
func runIndex(runs []models.Run, id string) int {
	for i, run := range runs {
		if run.ID == id {
			return i
		}
	}
	return -1
}
