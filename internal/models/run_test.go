package models

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWrapRunIndex(t *testing.T) {
	tests := []struct {
		current, delta, n, want int
	}{
		{0, -1, 3, 2},
		{2, 1, 3, 0},
		{1, 1, 3, 2},
		{0, 4, 3, 1},
		{0, -7, 3, 2},
		{0, 1, 1, 0},
		{5, 1, 0, 0},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, WrapRunIndex(tt.current, tt.delta, tt.n), "current=%d delta=%d n=%d", tt.current, tt.delta, tt.n)
	}
}

func TestRunClampFrame(t *testing.T) {
	run := Run{ID: "r1", FrameCount: 12}
	require.Equal(t, 0, run.ClampFrame(-3))
	require.Equal(t, 7, run.ClampFrame(7))
	require.Equal(t, 11, run.ClampFrame(12))
	require.Equal(t, 11, run.LastFrame())

	empty := Run{ID: "empty"}
	require.Equal(t, 0, empty.ClampFrame(4))
	require.False(t, empty.HasFrame(0))
}

func TestRunValidate(t *testing.T) {
	require.NoError(t, Run{ID: "run_001", FrameCount: 3}.Validate())

	err := Run{ID: " ", FrameCount: -1}.Validate()
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrInvalidRunID))
	require.True(t, errors.Is(err, ErrInvalidRunFrames))

	require.ErrorIs(t, Run{ID: "../etc", FrameCount: 1}.Validate(), ErrInvalidRunID)
}

func TestParseTaskType(t *testing.T) {
	task, err := ParseTaskType(" Maze ")
	require.NoError(t, err)
	require.Equal(t, TaskMaze, task)

	_, err = ParseTaskType("cartpole")
	require.ErrorIs(t, err, ErrInvalidTaskType)
}

func TestPathsFrameIdentifiers(t *testing.T) {
	paths := Paths{BasePath: "/ppo_lstm_viewer/", Task: TaskMemory}
	env, memory := paths.FramePair("run_3", 7)
	require.Equal(t, "/ppo_lstm_viewer/static/runs/memory/run_3/images/env_0007.png", env)
	require.Equal(t, "/ppo_lstm_viewer/static/runs/memory/run_3/images/memory_0007.png", memory)
	require.Equal(t, "/ppo_lstm_viewer/static/runs/memory/runs.json", paths.Manifest())
	require.Equal(t, "static/runs/memory/run_3/images/env_0007.png", paths.Relative(env))

	root := Paths{Task: TaskMaze}
	require.Equal(t, "/static/runs/maze/a/images/env_1234.png", root.Frame("a", KindEnv, 1234))
	require.Equal(t, "static/runs/maze/runs.json", root.Relative(root.Manifest()))
}

func TestNormalizeBasePath(t *testing.T) {
	require.Equal(t, "", NormalizeBasePath(""))
	require.Equal(t, "", NormalizeBasePath("/"))
	require.Equal(t, "/viewer", NormalizeBasePath("viewer/"))
}
