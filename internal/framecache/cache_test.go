package framecache

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tOgg1/runviewer/internal/models"
)

func TestCachePutIsFirstWriteWins(t *testing.T) {
	cache := New[string]()
	require.False(t, cache.Has("a"))

	require.True(t, cache.Put("a", "first"))
	require.False(t, cache.Put("a", "second"))

	got, ok := cache.Get("a")
	require.True(t, ok)
	require.Equal(t, "first", got)
	require.Equal(t, 1, cache.Len())
}

func TestCacheFailedAndSettled(t *testing.T) {
	cache := New[int]()
	cache.MarkFailed("missing")
	require.True(t, cache.Failed("missing"))
	require.True(t, cache.Settled("missing"))
	require.False(t, cache.Has("missing"))

	cache.Put("missing", 1)
	require.False(t, cache.Failed("missing"))
	require.True(t, cache.Has("missing"))

	cache.MarkFailed("missing")
	require.False(t, cache.Failed("missing"))
	require.Equal(t, Stats{Entries: 1}, cache.Stats())
}

func TestCacheLoadedRuns(t *testing.T) {
	cache := New[int]()
	cache.MarkRunLoaded(2)
	cache.MarkRunLoaded(0)
	cache.MarkRunLoaded(2)
	require.True(t, cache.RunLoaded(0))
	require.False(t, cache.RunLoaded(1))
	require.Equal(t, []int{0, 2}, cache.LoadedRuns())
}

func TestCacheConcurrentPut(t *testing.T) {
	cache := New[int]()
	var wg sync.WaitGroup
	stored := make(chan bool, 64)
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			stored <- cache.Put("shared", i)
			cache.Put(fmt.Sprintf("k%d", i), i)
		}(i)
	}
	wg.Wait()
	close(stored)

	wins := 0
	for ok := range stored {
		if ok {
			wins++
		}
	}
	require.Equal(t, 1, wins)
	require.Equal(t, 65, cache.Len())
}

func TestNearestLoadedFrame(t *testing.T) {
	only := func(frames ...int) func(int) bool {
		set := make(map[int]bool, len(frames))
		for _, f := range frames {
			set[f] = true
		}
		return func(frame int) bool { return set[frame] }
	}

	tests := []struct {
		name   string
		has    func(int) bool
		target int
		want   int
	}{
		{name: "exact", has: only(7), target: 7, want: 7},
		{name: "below at step two", has: only(5), target: 7, want: 5},
		{name: "above", has: only(9), target: 7, want: 9},
		{name: "prefers below on tie", has: only(6, 8), target: 7, want: 6},
		{name: "empty", has: only(), target: 42, want: 0},
		{name: "skips negatives", has: only(3), target: 0, want: 3},
		{name: "outside radius", has: only(30), target: 7, want: 0},
		{name: "edge of radius", has: only(26), target: 7, want: 26},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, NearestLoadedFrame(tt.has, tt.target, SearchRadius))
		})
	}
}

func TestNearestLoadedFrameSmallRadius(t *testing.T) {
	has := func(frame int) bool { return frame == 7 || frame == 9 }

	// radius 1 has no outward steps but still finds the target itself
	require.Equal(t, 7, NearestLoadedFrame(has, 7, 1))
	require.Equal(t, 0, NearestLoadedFrame(has, 8, 1))
	require.Equal(t, 7, NearestLoadedFrame(has, 8, 2))
	require.Equal(t, 0, NearestLoadedFrame(has, 11, 2))
}

func TestResolverUsesEnvIdentifier(t *testing.T) {
	paths := models.Paths{BasePath: "/viewer", Task: models.TaskMaze}
	cache := New[struct{}]()
	cache.Put(paths.Frame("run_a", models.KindEnv, 5), struct{}{})
	cache.Put(paths.Frame("run_a", models.KindMemory, 7), struct{}{})
	cache.Put(paths.Frame("run_b", models.KindEnv, 7), struct{}{})

	resolver := NewResolver(cache, paths, 0)
	require.Equal(t, 5, resolver.FindNearestLoadedFrame("run_a", 7))
	require.Equal(t, 0, resolver.FindNearestLoadedFrame("run_c", 7))

	empty := NewResolver(New[struct{}](), paths, 0)
	require.Equal(t, 0, empty.FindNearestLoadedFrame("run_a", 13))
}
