package fetch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tOgg1/runviewer/internal/models"
	"github.com/tOgg1/runviewer/internal/testutil"
)

var testPaths = models.Paths{BasePath: "/ppo_lstm_viewer", Task: models.TaskMaze}

func newTestFetcher(t *testing.T, src Source) *Fetcher {
	t.Helper()
	fetcher, err := New(Config{Source: src, Paths: testPaths, Timeout: 2 * time.Second})
	require.NoError(t, err)
	return fetcher
}

func TestEnsureFrameLoadedCachesBothImages(t *testing.T) {
	run := models.Run{ID: "run_a", FrameCount: 3}
	src := testutil.NewMemorySource()
	src.AddRuns(t, testPaths, []models.Run{run})
	fetcher := newTestFetcher(t, src)

	require.NoError(t, fetcher.EnsureFrameLoaded(context.Background(), run, 1))

	env, memory := testPaths.FramePair("run_a", 1)
	img, ok := fetcher.Cache().Get(env)
	require.True(t, ok)
	require.Equal(t, env, img.ID)
	require.Equal(t, 4, img.Width)
	require.Equal(t, 4, img.Height)
	require.Positive(t, img.Size)
	require.True(t, fetcher.Cache().Has(memory))
	require.True(t, fetcher.FrameLoaded("run_a", 1))
	require.False(t, fetcher.FrameLoaded("run_a", 0))

	require.NoError(t, fetcher.EnsureFrameLoaded(context.Background(), run, 1))
	require.Equal(t, 1, src.Opens(env))
	require.Equal(t, 1, src.Opens(memory))
	require.EqualValues(t, 2, fetcher.Fetches())
}

func TestEnsureFrameLoadedRejectsOutOfRange(t *testing.T) {
	src := testutil.NewMemorySource()
	fetcher := newTestFetcher(t, src)
	run := models.Run{ID: "run_a", FrameCount: 3}

	require.ErrorIs(t, fetcher.EnsureFrameLoaded(context.Background(), run, 3), models.ErrFrameOutOfRange)
	require.ErrorIs(t, fetcher.EnsureFrameLoaded(context.Background(), run, -1), models.ErrFrameOutOfRange)
	require.Zero(t, src.TotalOpens())
}

func TestEnsureFrameLoadedPartialFailure(t *testing.T) {
	run := models.Run{ID: "run_a", FrameCount: 1}
	src := testutil.NewMemorySource()
	src.AddRuns(t, testPaths, []models.Run{run})
	env, memory := testPaths.FramePair("run_a", 0)
	src.Remove(memory)
	fetcher := newTestFetcher(t, src)

	err := fetcher.EnsureFrameLoaded(context.Background(), run, 0)
	require.Error(t, err)

	var frameErr *FrameError
	require.True(t, errors.As(err, &frameErr))
	require.Len(t, frameErr.Failed, 1)
	require.Equal(t, memory, frameErr.Failed[0].ID)

	require.True(t, fetcher.Cache().Has(env))
	require.True(t, fetcher.Cache().Failed(memory))
	require.True(t, fetcher.FrameSettled("run_a", 0))
	require.False(t, fetcher.FrameLoaded("run_a", 0))

	// A failed identifier is never requested again this session.
	err = fetcher.EnsureFrameLoaded(context.Background(), run, 0)
	require.ErrorIs(t, err, ErrPreviouslyFailed)
	require.Equal(t, 1, src.Opens(memory))
}

func TestUndecodableImageIsAFailure(t *testing.T) {
	run := models.Run{ID: "run_a", FrameCount: 1}
	src := testutil.NewMemorySource()
	src.AddRuns(t, testPaths, []models.Run{run})
	env, _ := testPaths.FramePair("run_a", 0)
	src.Set(env, []byte("not a png"))
	fetcher := newTestFetcher(t, src)

	err := fetcher.EnsureFrameLoaded(context.Background(), run, 0)
	require.Error(t, err)
	require.True(t, fetcher.Cache().Failed(env))
}

func TestConcurrentLoadsShareOneRequest(t *testing.T) {
	run := models.Run{ID: "run_a", FrameCount: 1}
	src := testutil.NewMemorySource()
	src.AddRuns(t, testPaths, []models.Run{run})
	src.Block()
	fetcher := newTestFetcher(t, src)

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- fetcher.EnsureFrameLoaded(context.Background(), run, 0)
		}()
	}

	env, memory := testPaths.FramePair("run_a", 0)
	require.Eventually(t, func() bool {
		return src.Opens(env) == 1 && src.Opens(memory) == 1
	}, time.Second, 5*time.Millisecond)
	src.Release()
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	require.Empty(t, src.Duplicates())
	require.EqualValues(t, 2, fetcher.Fetches())
}

func TestLoadCallerCancelDoesNotFailSharedLoad(t *testing.T) {
	run := models.Run{ID: "run_a", FrameCount: 1}
	src := testutil.NewMemorySource()
	src.AddRuns(t, testPaths, []models.Run{run})
	src.Block()
	fetcher := newTestFetcher(t, src)
	env, _ := testPaths.FramePair("run_a", 0)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := fetcher.Load(ctx, env)
		done <- err
	}()
	require.Eventually(t, func() bool { return src.Opens(env) == 1 }, time.Second, 5*time.Millisecond)
	cancel()
	require.ErrorIs(t, <-done, context.Canceled)

	src.Release()
	require.Eventually(t, func() bool { return fetcher.Cache().Has(env) }, time.Second, 5*time.Millisecond)
	require.False(t, fetcher.Cache().Failed(env))
	require.Equal(t, 1, src.Opens(env))
}

func TestLoadTimeoutMarksFailed(t *testing.T) {
	run := models.Run{ID: "run_a", FrameCount: 1}
	src := testutil.NewMemorySource()
	src.AddRuns(t, testPaths, []models.Run{run})
	src.Block()
	t.Cleanup(src.Release)

	fetcher, err := New(Config{Source: src, Paths: testPaths, Timeout: 20 * time.Millisecond})
	require.NoError(t, err)

	env, _ := testPaths.FramePair("run_a", 0)
	_, err = fetcher.Load(context.Background(), env)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.True(t, fetcher.Cache().Failed(env))
}

func TestNewValidatesConfig(t *testing.T) {
	_, err := New(Config{Paths: testPaths})
	require.Error(t, err)

	_, err = New(Config{Source: testutil.NewMemorySource(), Paths: models.Paths{Task: "cartpole"}})
	require.ErrorIs(t, err, models.ErrInvalidTaskType)
}

func TestRunComplete(t *testing.T) {
	run := models.Run{ID: "run_a", FrameCount: 2}
	src := testutil.NewMemorySource()
	src.AddRuns(t, testPaths, []models.Run{run})
	fetcher := newTestFetcher(t, src)

	require.False(t, fetcher.RunComplete(run))
	for frame := 0; frame < run.FrameCount; frame++ {
		require.NoError(t, fetcher.EnsureFrameLoaded(context.Background(), run, frame))
	}
	require.True(t, fetcher.RunComplete(run))
	require.True(t, fetcher.RunComplete(models.Run{ID: "empty"}))
}
