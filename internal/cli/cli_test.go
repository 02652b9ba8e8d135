package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/tOgg1/runviewer/internal/config"
	"github.com/tOgg1/runviewer/internal/fetch"
	"github.com/tOgg1/runviewer/internal/manifest"
	"github.com/tOgg1/runviewer/internal/models"
	"github.com/tOgg1/runviewer/internal/testutil"
)

var testRuns = []models.Run{
	{ID: "run_0000", FrameCount: 12},
	{ID: "run_0001", FrameCount: 3},
}

func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, ".config"))
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(home); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
	return home
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd("test")
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func siteWithRuns(t *testing.T, task models.TaskType, runs []models.Run) string {
	t.Helper()
	root := t.TempDir()
	testutil.WriteRunTree(t, root, task, runs)
	_, err := manifest.Write(root, task, runs)
	require.NoError(t, err)
	return root
}

func TestRootCommandAliases(t *testing.T) {
	root := newRootCmd("dev")

	for _, name := range []string{"view", "prefetch", "serve"} {
		found, _, err := root.Find([]string{name})
		require.NoError(t, err)
		require.Equal(t, name, found.Name())
	}

	found, _, err := root.Find([]string{"manifest"})
	require.NoError(t, err)
	require.Equal(t, "build-manifest", found.Name())
}

func TestBuildManifestWritesBothTasks(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	testutil.WriteRunTree(t, dir, models.TaskMaze, testRuns)

	out, err := execute(t, "build-manifest", "--dir", dir)
	require.NoError(t, err)
	require.Contains(t, out, "maze: 2 runs")
	require.Contains(t, out, "memory: 0 runs")

	payload, err := os.ReadFile(filepath.Join(manifest.TaskDir(dir, models.TaskMaze), manifest.FileName))
	require.NoError(t, err)
	runs, err := manifest.Decode(bytes.NewReader(payload))
	require.NoError(t, err)
	require.Equal(t, testRuns, runs)

	payload, err = os.ReadFile(filepath.Join(manifest.TaskDir(dir, models.TaskMemory), manifest.FileName))
	require.NoError(t, err)
	require.JSONEq(t, "[]", string(payload))
}

func TestBuildManifestSingleTask(t *testing.T) {
	isolate(t)
	dir := t.TempDir()

	out, err := execute(t, "build-manifest", "--dir", dir, "--task", "memory")
	require.NoError(t, err)
	require.Contains(t, out, "memory: 0 runs")
	require.NotContains(t, out, "maze")
}

func TestBuildManifestRequiresDir(t *testing.T) {
	isolate(t)
	_, err := execute(t, "build-manifest")
	var preflight *PreflightError
	require.True(t, errors.As(err, &preflight))
}

func TestPrefetchLoadsEveryFrame(t *testing.T) {
	isolate(t)
	dir := siteWithRuns(t, models.TaskMaze, testRuns)

	out, err := execute(t, "prefetch", "--dir", dir, "--json")
	require.NoError(t, err)

	var summary prefetchSummary
	require.NoError(t, json.Unmarshal([]byte(out), &summary))
	require.Equal(t, "maze", summary.Task)
	require.Equal(t, 2, summary.Runs)
	require.Equal(t, 15, summary.Frames)
	require.Equal(t, 2, summary.LoadedRuns)
	require.Equal(t, 30, summary.Cached)
	require.Equal(t, 0, summary.Failed)
	require.Equal(t, int64(30), summary.Fetches)
}

func TestPrefetchCountsMissingFrames(t *testing.T) {
	isolate(t)
	dir := siteWithRuns(t, models.TaskMaze, testRuns)
	paths := models.Paths{Task: models.TaskMaze}
	missing := filepath.Join(dir, filepath.FromSlash(paths.Relative(paths.Frame("run_0001", models.KindMemory, 2))))
	require.NoError(t, os.Remove(missing))

	out, err := execute(t, "prefetch", "--dir", dir, "--json")
	require.NoError(t, err)

	var summary prefetchSummary
	require.NoError(t, json.Unmarshal([]byte(out), &summary))
	require.Equal(t, 1, summary.LoadedRuns)
	require.Equal(t, 29, summary.Cached)
	require.Equal(t, 1, summary.Failed)
}

func TestPrefetchTableOutput(t *testing.T) {
	isolate(t)
	dir := siteWithRuns(t, models.TaskMemory, testRuns[:1])

	out, err := execute(t, "prefetch", "--dir", dir, "--task", "memory")
	require.NoError(t, err)
	require.Contains(t, out, "METRIC")
	require.Contains(t, out, "cached images")
	require.Contains(t, out, "24")
}

func TestWriteSummaryTableShowsFullCells(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, writeSummary(&out, prefetchSummary{
		Task:       "memory",
		Runs:       12,
		Frames:     3456,
		LoadedRuns: 11,
		Cached:     6910,
		Failed:     2,
		Fetches:    6912,
		Elapsed:    1500 * time.Millisecond,
	}, false))

	table := out.String()
	require.NotContains(t, table, "…")
	for _, want := range []string{
		"METRIC", "VALUE", "memory", "complete runs", "cached images",
		"failed images", "3456", "6910", "6912", "1.5s",
	} {
		require.Contains(t, table, want)
	}
}

func TestPrefetchErrors(t *testing.T) {
	isolate(t)

	_, err := execute(t, "prefetch")
	require.ErrorIs(t, err, config.ErrNoSource)

	_, err = execute(t, "prefetch", "--dir", t.TempDir())
	require.ErrorIs(t, err, manifest.ErrManifest)

	_, err = execute(t, "prefetch", "--dir", t.TempDir(), "--task", "chess")
	require.ErrorIs(t, err, models.ErrInvalidTaskType)
}

func TestViewRequiresTerminal(t *testing.T) {
	if hasTTY() {
		t.Skip("running attached to a terminal")
	}
	isolate(t)
	_, err := execute(t, "view", "--dir", t.TempDir())
	var preflight *PreflightError
	require.True(t, errors.As(err, &preflight))
}

func TestStartPosition(t *testing.T) {
	home := isolate(t)
	cfg := config.DefaultConfig()
	cfg.Resume.Path = filepath.Join(home, "position.yaml")
	a := &app{cfg: cfg, logger: zerolog.Nop()}
	sess := &viewerSession{runs: testRuns}
	store := config.NewPositionStore(cfg.Resume.Path)

	start, err := a.startPosition(store, sess, viewOptions{})
	require.NoError(t, err)
	require.Equal(t, startPosition{run: 0, frame: 0, fps: 5}, start)

	require.NoError(t, store.Save("maze", config.Position{RunID: "run_0001", Frame: 2, FPS: 20}))
	start, err = a.startPosition(store, sess, viewOptions{})
	require.NoError(t, err)
	require.Equal(t, startPosition{run: 1, frame: 2, fps: 20}, start)

	start, err = a.startPosition(store, sess, viewOptions{noResume: true})
	require.NoError(t, err)
	require.Equal(t, 0, start.run)

	start, err = a.startPosition(store, sess, viewOptions{run: "run_0001", frame: 1, fps: 10})
	require.NoError(t, err)
	require.Equal(t, startPosition{run: 1, frame: 1, fps: 10}, start)

	_, err = a.startPosition(store, sess, viewOptions{run: "run_9999"})
	require.Error(t, err)
}

func TestStaticHandlerServesBasePath(t *testing.T) {
	testutil.SkipIfNoNetwork(t)
	dir := siteWithRuns(t, models.TaskMaze, testRuns)
	server := httptest.NewServer(newStaticHandler(dir, "/ppo_lstm_viewer", zerolog.Nop()))
	t.Cleanup(server.Close)

	src, err := fetch.NewHTTPSource(server.URL, server.Client())
	require.NoError(t, err)
	paths := models.Paths{BasePath: "/ppo_lstm_viewer", Task: models.TaskMaze}

	runs, err := manifest.Load(context.Background(), src, paths)
	require.NoError(t, err)
	require.Equal(t, testRuns, runs)

	body, err := src.Open(context.Background(), paths.Frame("run_0000", models.KindEnv, 11))
	require.NoError(t, err)
	img, err := fetch.DecodeImage("frame", body)
	require.NoError(t, body.Close())
	require.NoError(t, err)
	require.Equal(t, 2, img.Width)

	_, err = src.Open(context.Background(), paths.Frame("run_0000", models.KindEnv, 12))
	require.ErrorIs(t, err, fetch.ErrNotFound)
}
