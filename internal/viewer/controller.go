package viewer

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"github.com/tOgg1/runviewer/internal/fetch"
	"github.com/tOgg1/runviewer/internal/framecache"
	"github.com/tOgg1/runviewer/internal/logging"
	"github.com/tOgg1/runviewer/internal/models"
)

// RunActivator prioritizes a run for loading. *scheduler.Scheduler implements it.
type RunActivator interface {
	ActivateRun(ctx context.Context, index int) error
	Loading() bool
}

// ControllerConfig configures a Controller.
type ControllerConfig struct {
	State     State
	Scheduler RunActivator
	Cache     *fetch.Cache
	Paths     models.Paths

	// SearchRadius bounds the nearest-frame fallback; zero uses the default.
	SearchRadius int

	Logger *zerolog.Logger
}

// Controller owns viewer state, applies transitions, carries out run
// activation effects and resolves the image pair to display.
type Controller struct {
	mu    sync.Mutex
	state State

	sched    RunActivator
	cache    *fetch.Cache
	paths    models.Paths
	resolver *framecache.Resolver
	logger   zerolog.Logger
}

// NewController builds a controller.
func NewController(cfg ControllerConfig) (*Controller, error) {
	if cfg.Scheduler == nil {
		return nil, errors.New("scheduler required")
	}
	if cfg.Cache == nil {
		return nil, errors.New("cache required")
	}
	logger := logging.Component("viewer")
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}
	return &Controller{
		state:    cfg.State,
		sched:    cfg.Scheduler,
		cache:    cfg.Cache,
		paths:    cfg.Paths,
		resolver: framecache.NewResolver(cfg.Cache, cfg.Paths, cfg.SearchRadius),
		logger:   logger,
	}, nil
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Apply runs a transition and returns its effects without executing them.
func (c *Controller) Apply(t Transition) []Effect {
	c.mu.Lock()
	defer c.mu.Unlock()
	next, effects := t(c.state)
	c.state = next
	return effects
}

// Execute carries out the run activation effects. Render and playback effects
// belong to the rendering layer and are ignored here.
func (c *Controller) Execute(ctx context.Context, effects []Effect) error {
	for _, effect := range effects {
		if effect.Kind != EffectActivateRun {
			continue
		}
		if err := c.sched.ActivateRun(ctx, effect.Run); err != nil {
			return err
		}
		c.logger.Debug().Int("run", effect.Run).Msg("run switched")
	}
	return nil
}

// Do applies a transition and executes its effects.
func (c *Controller) Do(ctx context.Context, t Transition) ([]Effect, error) {
	effects := c.Apply(t)
	return effects, c.Execute(ctx, effects)
}

// Frame is what the rendering surface shows for the current state.
type Frame struct {
	RunIndex int
	RunID    string

	// Requested is the current frame; Shown is the frame whose images are
	// returned, which differs when the exact frame is not cached yet.
	Requested int
	Shown     int
	Exact     bool

	// Env and Memory are nil when nothing suitable is cached.
	Env    *fetch.Image
	Memory *fetch.Image

	MaxFrame int
	RunText  string
	Loading  bool
	Playing  bool
	FPS      int
}

// Current resolves the image pair for the current state. When the exact env
// image is missing, both images come from the nearest cached frame.
func (c *Controller) Current() Frame {
	state := c.State()
	frame := Frame{
		RunIndex:  state.Run,
		Requested: state.Frame,
		Shown:     state.Frame,
		MaxFrame:  state.MaxFrame(),
		RunText:   state.RunText(),
		Loading:   c.sched.Loading(),
		Playing:   state.Playing,
		FPS:       state.FPS,
	}
	run, ok := state.CurrentRun()
	if !ok {
		return frame
	}
	frame.RunID = run.ID

	envID, memoryID := c.paths.FramePair(run.ID, state.Frame)
	if env, ok := c.cache.Get(envID); ok {
		frame.Exact = true
		frame.Env = env
		frame.Memory, _ = c.cache.Get(memoryID)
		return frame
	}

	frame.Shown = c.resolver.FindNearestLoadedFrame(run.ID, state.Frame)
	envID, memoryID = c.paths.FramePair(run.ID, frame.Shown)
	frame.Env, _ = c.cache.Get(envID)
	frame.Memory, _ = c.cache.Get(memoryID)
	return frame
}

// Coverage is the load state of one frame.
type Coverage int

const (
	CoverageMissing Coverage = iota
	CoveragePartial
	CoverageLoaded
	CoverageFailed
)

// Coverage reports the load state of every frame of the current run.
func (c *Controller) Coverage() []Coverage {
	state := c.State()
	run, ok := state.CurrentRun()
	if !ok {
		return nil
	}
	out := make([]Coverage, run.FrameCount)
	for frame := range out {
		envID, memoryID := c.paths.FramePair(run.ID, frame)
		env, memory := c.cache.Has(envID), c.cache.Has(memoryID)
		switch {
		case env && memory:
			out[frame] = CoverageLoaded
		case c.cache.Failed(envID) || c.cache.Failed(memoryID):
			out[frame] = CoverageFailed
		case env || memory:
			out[frame] = CoveragePartial
		}
	}
	return out
}
