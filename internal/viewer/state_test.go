package viewer

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tOgg1/runviewer/internal/models"
)

func testRuns() []models.Run {
	return []models.Run{
		{ID: "run_a", FrameCount: 4},
		{ID: "run_b", FrameCount: 2},
		{ID: "run_c", FrameCount: 6},
	}
}

func kinds(effects []Effect) []EffectKind {
	out := make([]EffectKind, 0, len(effects))
	for _, e := range effects {
		out = append(out, e.Kind)
	}
	return out
}

func TestStepNeverLeavesRange(t *testing.T) {
	s := NewState(testRuns(), 0, 0)
	for i := 0; i < 10; i++ {
		s, _ = Step(s, 1)
	}
	require.Equal(t, 3, s.Frame)

	s, effects := Step(s, 1)
	require.Equal(t, 3, s.Frame)
	require.Empty(t, effects)

	for i := 0; i < 10; i++ {
		s, _ = Step(s, -1)
	}
	require.Equal(t, 0, s.Frame)
}

func TestStepStopsPlayback(t *testing.T) {
	s := NewState(testRuns(), 0, 0)
	s, effects := TogglePlayback(s)
	require.True(t, s.Playing)
	require.Equal(t, []EffectKind{EffectStartPlayback}, kinds(effects))

	s, effects = Step(s, 1)
	require.False(t, s.Playing)
	require.Equal(t, 1, s.Frame)
	require.Equal(t, []EffectKind{EffectStopPlayback, EffectRender}, kinds(effects))
}

func TestSetCurrentFrameClamps(t *testing.T) {
	s := NewState(testRuns(), 2, 0)
	s, effects := SetCurrentFrame(s, 99)
	require.Equal(t, 5, s.Frame)
	require.Equal(t, []EffectKind{EffectRender}, kinds(effects))

	s, _ = SetCurrentFrame(s, -4)
	require.Equal(t, 0, s.Frame)
}

func TestFirstAndLast(t *testing.T) {
	s := NewState(testRuns(), 0, 0)
	s, _ = Last(s)
	require.Equal(t, 3, s.Frame)
	s, _ = First(s)
	require.Equal(t, 0, s.Frame)
}

func TestTickPlaysToEndThenStops(t *testing.T) {
	s := NewState(testRuns(), 1, 0)
	s, _ = TogglePlayback(s)

	s, effects := Tick(s)
	require.Equal(t, 1, s.Frame)
	require.Equal(t, []EffectKind{EffectRender}, kinds(effects))

	s, effects = Tick(s)
	require.Equal(t, 1, s.Frame)
	require.False(t, s.Playing)
	require.Equal(t, []EffectKind{EffectStopPlayback}, kinds(effects))

	s, effects = Tick(s)
	require.Empty(t, effects)
}

func TestChangeRunWrapsAndResetsFrame(t *testing.T) {
	s := NewState(testRuns(), 0, 0)
	s, _ = SetCurrentFrame(s, 3)

	s, effects := ChangeRun(s, -1)
	require.Equal(t, 2, s.Run)
	require.Equal(t, 0, s.Frame)
	require.Equal(t, []Effect{{Kind: EffectActivateRun, Run: 2}, {Kind: EffectRender}}, effects)
	require.Equal(t, "Run 3 of 3", s.RunText())

	s, _ = ChangeRun(s, 1)
	require.Equal(t, 0, s.Run)
}

func TestSetCurrentRunRejectsOutOfRange(t *testing.T) {
	s := NewState(testRuns(), 1, 0)
	next, effects := SetCurrentRun(s, 3)
	require.Equal(t, s, next)
	require.Empty(t, effects)
}

func TestSetSpeedClampsAndRestarts(t *testing.T) {
	s := NewState(testRuns(), 0, 0)
	require.Equal(t, DefaultFPS, s.FPS)

	s, effects := SetSpeed(s, 500)
	require.Equal(t, MaxFPS, s.FPS)
	require.Empty(t, effects)

	s, _ = TogglePlayback(s)
	s, effects = SetSpeed(s, -3)
	require.Equal(t, MinFPS, s.FPS)
	require.Equal(t, []EffectKind{EffectStopPlayback, EffectStartPlayback}, kinds(effects))
}

func TestEmptyStateIsInert(t *testing.T) {
	s := NewState(nil, 0, 0)
	require.True(t, s.Empty())
	require.Equal(t, "No runs", s.RunText())

	for _, transition := range []Transition{
		func(s State) (State, []Effect) { return Step(s, 1) },
		First, Last, TogglePlayback, Tick,
		func(s State) (State, []Effect) { return ChangeRun(s, 1) },
		func(s State) (State, []Effect) { return SetCurrentFrame(s, 2) },
	} {
		next, effects := transition(s)
		require.Equal(t, s, next)
		require.Empty(t, effects)
	}
}
