package fetch

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tOgg1/runviewer/internal/models"
	"github.com/tOgg1/runviewer/internal/testutil"
)

func TestHTTPSourceFetchesAndMapsStatus(t *testing.T) {
	testutil.SkipIfNoNetwork(t)

	root := t.TempDir()
	run := models.Run{ID: "run_a", FrameCount: 2}
	testutil.WriteRunTree(t, root, models.TaskMaze, []models.Run{run})

	var requests atomic.Int64
	mux := http.NewServeMux()
	mux.Handle("/ppo_lstm_viewer/", http.StripPrefix("/ppo_lstm_viewer", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		http.FileServer(http.Dir(root)).ServeHTTP(w, r)
	})))
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	src, err := NewHTTPSource(server.URL+"/", nil)
	require.NoError(t, err)

	fetcher, err := New(Config{Source: src, Paths: testPaths})
	require.NoError(t, err)
	require.NoError(t, fetcher.EnsureFrameLoaded(context.Background(), run, 1))
	require.True(t, fetcher.FrameLoaded("run_a", 1))
	require.EqualValues(t, 2, requests.Load())

	missing := testPaths.Frame("run_a", models.KindEnv, 9)
	_, err = src.Open(context.Background(), missing)
	require.ErrorIs(t, err, ErrNotFound)
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	require.Equal(t, http.StatusNotFound, statusErr.StatusCode)
}

func TestNewHTTPSourceValidatesOrigin(t *testing.T) {
	_, err := NewHTTPSource("", nil)
	require.Error(t, err)
	_, err = NewHTTPSource("ftp://example.com", nil)
	require.Error(t, err)

	src, err := NewHTTPSource("https://example.com/mirror/?x=1", nil)
	require.NoError(t, err)
	require.Equal(t, "https://example.com/mirror/static/runs/maze/runs.json", src.URL("/static/runs/maze/runs.json"))
}

func TestDirSourceStripsBasePath(t *testing.T) {
	root := t.TempDir()
	run := models.Run{ID: "run_a", FrameCount: 1}
	testutil.WriteRunTree(t, root, models.TaskMaze, []models.Run{run})

	src, err := NewDirSource(root, testPaths)
	require.NoError(t, err)

	env := testPaths.Frame("run_a", models.KindEnv, 0)
	require.Equal(t, filepath.Join(root, "static", "runs", "maze", "run_a", "images", "env_0000.png"), src.Path(env))

	body, err := src.Open(context.Background(), env)
	require.NoError(t, err)
	payload, err := io.ReadAll(body)
	require.NoError(t, err)
	require.NoError(t, body.Close())
	require.NotEmpty(t, payload)

	_, err = src.Open(context.Background(), testPaths.Frame("run_a", models.KindEnv, 1))
	require.ErrorIs(t, err, ErrNotFound)
}

func TestNewDirSourceRequiresDirectory(t *testing.T) {
	_, err := NewDirSource("", testPaths)
	require.Error(t, err)

	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))
	_, err = NewDirSource(file, testPaths)
	require.Error(t, err)
}
