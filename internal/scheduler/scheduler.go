// Package scheduler decides the order in which frame images are fetched.
//
// Startup runs three phases, strictly in order:
//
//  1. Sparse pre-scan: every stride-th frame of every run, so scrubbing has a
//     coarse preview everywhere.
//  2. Active-run full load: every frame of the selected run.
//  3. Background fill: a loop that fills gaps in the active run, then fully
//     loads every run not yet loaded, yielding between passes.
//
// Frames are requested one at a time, in index order; the two images of a frame
// load in parallel. Load failures are contained in the fetcher and never abort
// a phase. Switching runs reprioritizes the new run without cancelling work
// already in flight for others.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/tOgg1/runviewer/internal/fetch"
	"github.com/tOgg1/runviewer/internal/logging"
	"github.com/tOgg1/runviewer/internal/models"
)

const (
	DefaultSparseStride  = 10
	DefaultYieldInterval = 100 * time.Millisecond
)

// Phase is what the scheduler is doing at the moment.
type Phase int32

const (
	PhaseIdle Phase = iota
	PhaseSparse
	PhaseActiveRun
	PhaseBackground
	PhaseStopped
)

func (p Phase) String() string {
	switch p {
	case PhaseSparse:
		return "sparse"
	case PhaseActiveRun:
		return "active-run"
	case PhaseBackground:
		return "background"
	case PhaseStopped:
		return "stopped"
	default:
		return "idle"
	}
}

// Config configures a Scheduler.
type Config struct {
	Runs    []models.Run
	Fetcher *fetch.Fetcher

	// InitialRun is the run made active at startup; clamped into range.
	InitialRun int

	// SparseStride is the frame step of the pre-scan. Zero uses 10.
	SparseStride int

	// YieldInterval is the pause between background passes. Zero uses 100ms.
	YieldInterval time.Duration

	// Logger defaults to the "scheduler" component logger.
	Logger *zerolog.Logger
}

// Stats is a snapshot of scheduler progress.
type Stats struct {
	Runs       int
	LoadedRuns int
	Cached     int
	Failed     int
	Fetches    int64
	ActiveRun  int
	Phase      Phase
	Loading    bool
	Background bool
}

// Scheduler orchestrates fetch order across runs.
type Scheduler struct {
	runs    []models.Run
	fetcher *fetch.Fetcher
	cache   *fetch.Cache
	stride  int
	yield   time.Duration
	logger  zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu         sync.Mutex
	active     int
	started    bool
	processing bool

	loading atomic.Int32
	phase   atomic.Int32
	updates chan struct{}
}

// New builds a scheduler. The run list is copied and never mutated.
func New(cfg Config) (*Scheduler, error) {
	if cfg.Fetcher == nil {
		return nil, fmt.Errorf("fetcher required")
	}
	for i, run := range cfg.Runs {
		if err := run.Validate(); err != nil {
			return nil, fmt.Errorf("runs[%d]: %w", i, err)
		}
	}
	stride := cfg.SparseStride
	if stride <= 0 {
		stride = DefaultSparseStride
	}
	yield := cfg.YieldInterval
	if yield <= 0 {
		yield = DefaultYieldInterval
	}
	logger := logging.Component("scheduler")
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}

	runs := make([]models.Run, len(cfg.Runs))
	copy(runs, cfg.Runs)

	active := cfg.InitialRun
	if active < 0 || active >= len(runs) {
		active = 0
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		runs:    runs,
		fetcher: cfg.Fetcher,
		cache:   cfg.Fetcher.Cache(),
		stride:  stride,
		yield:   yield,
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
		active:  active,
		updates: make(chan struct{}, 1),
	}, nil
}

// Runs returns a copy of the run list.
func (s *Scheduler) Runs() []models.Run {
	out := make([]models.Run, len(s.runs))
	copy(out, s.runs)
	return out
}

// ActiveRun returns the index of the run being prioritized.
func (s *Scheduler) ActiveRun() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Loading reports whether a blocking fetch phase is in progress. It is the
// signal the rendering layer uses for its loading indicator.
func (s *Scheduler) Loading() bool {
	return s.loading.Load() > 0
}

// Phase returns the current phase.
func (s *Scheduler) Phase() Phase {
	return Phase(s.phase.Load())
}

// Processing reports whether the background loop is running.
func (s *Scheduler) Processing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.processing
}

// Updates delivers a coalesced signal whenever a frame lands or the loading
// state changes. Consumers re-render on receipt.
func (s *Scheduler) Updates() <-chan struct{} {
	return s.updates
}

// Stats returns a progress snapshot.
func (s *Scheduler) Stats() Stats {
	cache := s.cache.Stats()
	return Stats{
		Runs:       len(s.runs),
		LoadedRuns: cache.LoadedRuns,
		Cached:     cache.Entries,
		Failed:     cache.Failed,
		Fetches:    s.fetcher.Fetches(),
		ActiveRun:  s.ActiveRun(),
		Phase:      s.Phase(),
		Loading:    s.Loading(),
		Background: s.Processing(),
	}
}

// Start runs the sparse pre-scan and the active-run full load, then starts the
// background loop and returns. Cancelling ctx stops the scheduler as Stop does.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return fmt.Errorf("scheduler already started")
	}
	if s.ctx.Err() != nil {
		s.mu.Unlock()
		return fmt.Errorf("scheduler stopped")
	}
	s.started = true
	s.mu.Unlock()

	context.AfterFunc(ctx, s.cancel)

	s.beginLoading()
	defer s.endLoading()

	if len(s.runs) == 0 {
		s.logger.Info().Msg("no runs to load")
		return nil
	}

	started := time.Now()
	s.setPhase(PhaseSparse)
	if err := s.SparseScan(s.ctx); err != nil {
		return err
	}
	s.logger.Debug().Dur("elapsed", time.Since(started)).Msg("sparse pre-scan complete")

	s.setPhase(PhaseActiveRun)
	active := s.ActiveRun()
	if err := s.LoadRunCompletely(s.ctx, active); err != nil {
		return err
	}
	s.logger.Info().
		Int("run", active).
		Dur("elapsed", time.Since(started)).
		Msg("initial load complete")

	s.StartBackground()
	return nil
}

// SparseScan loads every stride-th frame (0, stride, 2*stride, ...) of every
// run, in run order.
func (s *Scheduler) SparseScan(ctx context.Context) error {
	for i, run := range s.runs {
		for frame := 0; frame < run.FrameCount; frame += s.stride {
			if err := s.loadFrame(ctx, i, frame); err != nil {
				return err
			}
		}
	}
	return nil
}

// LoadRunCompletely loads every frame of a run in increasing order. The run
// joins the loaded-runs set only when every image of every frame is cached.
func (s *Scheduler) LoadRunCompletely(ctx context.Context, index int) error {
	run, err := s.run(index)
	if err != nil {
		return err
	}
	for frame := 0; frame < run.FrameCount; frame++ {
		if err := s.loadFrame(ctx, index, frame); err != nil {
			return err
		}
	}
	s.markIfComplete(index, run)
	return nil
}

// FillGaps loads the frames of a run that are neither cached nor known to fail.
func (s *Scheduler) FillGaps(ctx context.Context, index int) error {
	run, err := s.run(index)
	if err != nil {
		return err
	}
	for frame := 0; frame < run.FrameCount; frame++ {
		if s.fetcher.FrameSettled(run.ID, frame) {
			continue
		}
		if err := s.loadFrame(ctx, index, frame); err != nil {
			return err
		}
	}
	s.markIfComplete(index, run)
	return nil
}

// BackgroundPass is one iteration of the background loop: fill gaps in the
// active run, then fully load each other run not yet loaded, in run order.
func (s *Scheduler) BackgroundPass(ctx context.Context) error {
	if len(s.runs) == 0 {
		return nil
	}
	if err := s.FillGaps(ctx, s.ActiveRun()); err != nil {
		return err
	}
	for i := range s.runs {
		if i == s.ActiveRun() || s.cache.RunLoaded(i) {
			continue
		}
		if err := s.LoadRunCompletely(ctx, i); err != nil {
			return err
		}
	}
	return nil
}

// StartBackground starts the background loop unless it is already running or
// the scheduler is stopped. Reports whether a loop was started.
func (s *Scheduler) StartBackground() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.processing || s.ctx.Err() != nil {
		return false
	}
	s.processing = true
	s.wg.Add(1)
	go s.backgroundLoop()
	return true
}

func (s *Scheduler) backgroundLoop() {
	defer s.wg.Done()
	defer func() {
		s.mu.Lock()
		s.processing = false
		s.mu.Unlock()
	}()

	s.setPhase(PhaseBackground)
	s.logger.Debug().Dur("yield", s.yield).Msg("background loading started")

	timer := time.NewTimer(s.yield)
	defer timer.Stop()
	for {
		if err := s.BackgroundPass(s.ctx); err != nil {
			if !errors.Is(err, context.Canceled) {
				s.logger.Error().Err(err).Msg("background pass failed")
			}
			return
		}
		timer.Reset(s.yield)
		select {
		case <-s.ctx.Done():
			return
		case <-timer.C:
		}
	}
}

// ChangeRun moves the active run by delta, circularly: the new index is
// (current + delta + N) mod N. See ActivateRun.
func (s *Scheduler) ChangeRun(ctx context.Context, delta int) (int, error) {
	if len(s.runs) == 0 {
		return 0, fmt.Errorf("%w: no runs", models.ErrRunOutOfRange)
	}
	index := models.WrapRunIndex(s.ActiveRun(), delta, len(s.runs))
	return index, s.ActivateRun(ctx, index)
}

// ActivateRun makes index the active run. It blocks, with the loading flag set,
// until frame 0 of the run is available, then loads the rest of the run in the
// background and afterwards (re)starts the background loop.
func (s *Scheduler) ActivateRun(ctx context.Context, index int) error {
	run, err := s.run(index)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.active = index
	s.mu.Unlock()
	runLogger := logging.WithRun(s.logger, index, run.ID)
	runLogger.Debug().Msg("run activated")

	s.beginLoading()
	if !s.cache.RunLoaded(index) && run.FrameCount > 0 {
		if err := s.loadFrame(ctx, index, 0); err != nil {
			s.endLoading()
			return err
		}
	}
	s.endLoading()

	s.spawn(func(ctx context.Context) {
		if err := s.LoadRunCompletely(ctx, index); err != nil {
			return
		}
		runLogger.Debug().Msg("priority load complete")
		s.StartBackground()
	})
	return nil
}

// Stop cancels all scheduler work and waits for its goroutines to exit.
// In-flight image loads finish on their own, bounded by the fetch timeout.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.cancel()
	s.mu.Unlock()
	s.wg.Wait()
	s.setPhase(PhaseStopped)
}

// Done is closed once the scheduler is stopped or its Start context ends.
func (s *Scheduler) Done() <-chan struct{} {
	return s.ctx.Done()
}

func (s *Scheduler) spawn(fn func(ctx context.Context)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ctx.Err() != nil {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		fn(s.ctx)
	}()
}

func (s *Scheduler) run(index int) (models.Run, error) {
	if index < 0 || index >= len(s.runs) {
		return models.Run{}, fmt.Errorf("%w: %d (have %d runs)", models.ErrRunOutOfRange, index, len(s.runs))
	}
	return s.runs[index], nil
}

// loadFrame fetches one frame. Only context errors are returned; image
// failures were already logged by the fetcher and the phase moves on.
func (s *Scheduler) loadFrame(ctx context.Context, index, frame int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	run := s.runs[index]
	if s.fetcher.FrameSettled(run.ID, frame) {
		return nil
	}
	err := s.fetcher.EnsureFrameLoaded(ctx, run, frame)
	s.notify()
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	s.logger.Debug().Err(err).Int("run", index).Int("frame", frame).Msg("frame incomplete")
	return nil
}

func (s *Scheduler) markIfComplete(index int, run models.Run) {
	if s.cache.RunLoaded(index) {
		return
	}
	if !s.fetcher.RunComplete(run) {
		return
	}
	s.cache.MarkRunLoaded(index)
	s.notify()
	runLogger := logging.WithRun(s.logger, index, run.ID)
	runLogger.Info().Int("frames", run.FrameCount).Msg("run fully loaded")
}

func (s *Scheduler) beginLoading() {
	s.loading.Add(1)
	s.notify()
}

func (s *Scheduler) endLoading() {
	s.loading.Add(-1)
	s.notify()
}

func (s *Scheduler) setPhase(phase Phase) {
	if Phase(s.phase.Load()) == PhaseStopped {
		return
	}
	s.phase.Store(int32(phase))
}

func (s *Scheduler) notify() {
	select {
	case s.updates <- struct{}{}:
	default:
	}
}
