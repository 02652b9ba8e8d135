// Package manifest loads and builds runs.json, the list of recorded runs for a
// task type.
package manifest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"

	"github.com/tOgg1/runviewer/internal/fetch"
	"github.com/tOgg1/runviewer/internal/models"
)

// FileName is the manifest file inside each task directory.
const FileName = "runs.json"

// ErrManifest marks a failure to load a task's manifest. It is fatal for that
// task: the viewer shows an empty state and does not schedule loads.
var ErrManifest = errors.New("manifest unavailable")

const maxManifestBytes = 16 << 20

// Load fetches and decodes the manifest identified by paths.Manifest().
func Load(ctx context.Context, src fetch.Source, paths models.Paths) ([]models.Run, error) {
	id := paths.Manifest()
	body, err := src.Open(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrManifest, id, err)
	}
	defer body.Close()

	runs, err := Decode(io.LimitReader(body, maxManifestBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrManifest, id, err)
	}
	return runs, nil
}

// Decode parses a JSON array of runs and validates each entry.
func Decode(r io.Reader) ([]models.Run, error) {
	var runs []models.Run
	if err := json.NewDecoder(r).Decode(&runs); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	validation := &models.ValidationErrors{}
	for i, run := range runs {
		validation.Add(fmt.Sprintf("runs[%d]", i), run.Validate())
	}
	if err := validation.Err(); err != nil {
		return nil, err
	}
	if runs == nil {
		runs = []models.Run{}
	}
	return runs, nil
}

var envFramePattern = regexp.MustCompile(`^env_\d{4}\.png$`)

// TaskDir is where a task's runs live under a site root.
func TaskDir(root string, task models.TaskType) string {
	return filepath.Join(root, "static", "runs", string(task))
}

// Build scans {root}/static/runs/{task}/*/images and counts env frames per run.
// Runs without an images directory or without frames are skipped. A missing
// task directory yields an empty list.
func Build(root string, task models.TaskType) ([]models.Run, error) {
	taskDir := TaskDir(root, task)
	entries, err := os.ReadDir(taskDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []models.Run{}, nil
		}
		return nil, fmt.Errorf("read %s: %w", taskDir, err)
	}

	runs := []models.Run{}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		imagesDir := filepath.Join(taskDir, entry.Name(), "images")
		images, err := os.ReadDir(imagesDir)
		if err != nil {
			continue
		}
		frames := 0
		for _, image := range images {
			if !image.IsDir() && envFramePattern.MatchString(image.Name()) {
				frames++
			}
		}
		if frames > 0 {
			runs = append(runs, models.Run{ID: entry.Name(), FrameCount: frames})
		}
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i].ID < runs[j].ID })
	return runs, nil
}

// Write stores runs as indented JSON at {root}/static/runs/{task}/runs.json,
// creating the task directory. An empty list is still written.
func Write(root string, task models.TaskType, runs []models.Run) (string, error) {
	taskDir := TaskDir(root, task)
	if err := os.MkdirAll(taskDir, 0o755); err != nil {
		return "", fmt.Errorf("create %s: %w", taskDir, err)
	}
	if runs == nil {
		runs = []models.Run{}
	}
	payload, err := json.MarshalIndent(runs, "", "  ")
	if err != nil {
		return "", err
	}
	path := filepath.Join(taskDir, FileName)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, append(payload, '\n'), 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return "", fmt.Errorf("rename %s: %w", path, err)
	}
	return path, nil
}
