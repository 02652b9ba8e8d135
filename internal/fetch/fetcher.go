package fetch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/tOgg1/runviewer/internal/framecache"
	"github.com/tOgg1/runviewer/internal/logging"
	"github.com/tOgg1/runviewer/internal/models"
)

const defaultFetchTimeout = 15 * time.Second

// ErrPreviouslyFailed is returned for identifiers whose load already failed
// this session. They are not requested again.
var ErrPreviouslyFailed = errors.New("load previously failed")

// Cache is the image cache the fetcher fills.
type Cache = framecache.Cache[*Image]

// NewCache returns an empty image cache.
func NewCache() *Cache {
	return framecache.New[*Image]()
}

// Config configures a Fetcher.
type Config struct {
	Source Source
	Paths  models.Paths
	Cache  *Cache

	// Timeout bounds a single image load. Zero uses 15s.
	Timeout time.Duration

	// Logger defaults to the "fetch" component logger.
	Logger *zerolog.Logger
}

// Fetcher ensures frame images are present in the cache. Concurrent requests
// for the same identifier share one underlying load.
type Fetcher struct {
	source  Source
	paths   models.Paths
	cache   *Cache
	timeout time.Duration
	logger  zerolog.Logger

	flights singleflight.Group
	fetches atomic.Int64
}

// LoadError is a failed load of one identifier.
type LoadError struct {
	ID  string
	Err error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s: %v", e.ID, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// FrameError reports the identifiers of a frame that could not be loaded.
type FrameError struct {
	RunID  string
	Frame  int
	Failed []*LoadError
}

func (e *FrameError) Error() string {
	ids := make([]string, 0, len(e.Failed))
	for _, failed := range e.Failed {
		ids = append(ids, failed.Error())
	}
	return fmt.Sprintf("run %s frame %d: %s", e.RunID, e.Frame, strings.Join(ids, "; "))
}

func (e *FrameError) Unwrap() []error {
	out := make([]error, 0, len(e.Failed))
	for _, failed := range e.Failed {
		out = append(out, failed)
	}
	return out
}

// New builds a fetcher.
func New(cfg Config) (*Fetcher, error) {
	if cfg.Source == nil {
		return nil, fmt.Errorf("source required")
	}
	if _, err := models.ParseTaskType(string(cfg.Paths.Task)); err != nil {
		return nil, err
	}
	cache := cfg.Cache
	if cache == nil {
		cache = NewCache()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultFetchTimeout
	}
	logger := logging.Component("fetch")
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}
	return &Fetcher{
		source:  cfg.Source,
		paths:   cfg.Paths,
		cache:   cache,
		timeout: timeout,
		logger:  logger,
	}, nil
}

// Cache returns the cache the fetcher fills.
func (f *Fetcher) Cache() *Cache {
	return f.cache
}

// Paths returns the identifier scheme used by the fetcher.
func (f *Fetcher) Paths() models.Paths {
	return f.paths
}

// Fetches returns the number of loads issued against the source.
func (f *Fetcher) Fetches() int64 {
	return f.fetches.Load()
}

// Load returns the image for id, loading it at most once per session.
//
// The load itself runs detached from ctx, bounded by the fetch timeout, so a
// caller giving up does not fail the load for others waiting on it.
func (f *Fetcher) Load(ctx context.Context, id string) (*Image, error) {
	if img, ok := f.cache.Get(id); ok {
		return img, nil
	}
	if f.cache.Failed(id) {
		return nil, &LoadError{ID: id, Err: ErrPreviouslyFailed}
	}

	ch := f.flights.DoChan(id, func() (any, error) {
		// Re-check: a flight for id may have completed since the fast path.
		if img, ok := f.cache.Get(id); ok {
			return img, nil
		}
		if f.cache.Failed(id) {
			return nil, &LoadError{ID: id, Err: ErrPreviouslyFailed}
		}
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), f.timeout)
		defer cancel()

		img, err := f.fetch(loadCtx, id)
		if err != nil {
			f.cache.MarkFailed(id)
			f.logger.Warn().Err(err).Str("id", id).Msg("frame image load failed")
			return nil, &LoadError{ID: id, Err: err}
		}
		f.cache.Put(id, img)
		f.logger.Trace().Str("id", id).Int64("bytes", img.Size).Msg("frame image loaded")
		return img, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Image), nil
	}
}

func (f *Fetcher) fetch(ctx context.Context, id string) (*Image, error) {
	f.fetches.Add(1)
	body, err := f.source.Open(ctx, id)
	if err != nil {
		return nil, err
	}
	defer body.Close()
	return DecodeImage(id, body)
}

// EnsureFrameLoaded loads both images of a frame, in parallel, and returns once
// each is cached or has terminally failed. A failure of one image does not stop
// the other; failures come back as a *FrameError. An out-of-range frame is
// rejected with models.ErrFrameOutOfRange before any identifier is formed.
func (f *Fetcher) EnsureFrameLoaded(ctx context.Context, run models.Run, frame int) error {
	if !run.HasFrame(frame) {
		return fmt.Errorf("%w: run %s frame %d (frame_count %d)", models.ErrFrameOutOfRange, run.ID, frame, run.FrameCount)
	}
	env, memory := f.paths.FramePair(run.ID, frame)
	ids := [2]string{env, memory}

	var (
		wg   sync.WaitGroup
		errs [2]error
	)
	for i, id := range ids {
		if f.cache.Has(id) {
			continue
		}
		if f.cache.Failed(id) {
			errs[i] = &LoadError{ID: id, Err: ErrPreviouslyFailed}
			continue
		}
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			_, errs[i] = f.Load(ctx, id)
		}(i, id)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return err
	}
	frameErr := &FrameError{RunID: run.ID, Frame: frame}
	for _, err := range errs {
		var loadErr *LoadError
		if errors.As(err, &loadErr) {
			frameErr.Failed = append(frameErr.Failed, loadErr)
		} else if err != nil {
			return err
		}
	}
	if len(frameErr.Failed) > 0 {
		return frameErr
	}
	return nil
}

// FrameLoaded reports whether both images of a frame are cached.
func (f *Fetcher) FrameLoaded(runID string, frame int) bool {
	env, memory := f.paths.FramePair(runID, frame)
	return f.cache.Has(env) && f.cache.Has(memory)
}

// FrameSettled reports whether both images of a frame are cached or failed.
func (f *Fetcher) FrameSettled(runID string, frame int) bool {
	env, memory := f.paths.FramePair(runID, frame)
	return f.cache.Settled(env) && f.cache.Settled(memory)
}

// RunComplete reports whether every frame of run has both images cached.
func (f *Fetcher) RunComplete(run models.Run) bool {
	for frame := 0; frame < run.FrameCount; frame++ {
		if !f.FrameLoaded(run.ID, frame) {
			return false
		}
	}
	return true
}
