// Package testutil provides fixtures shared by runviewer tests: encoded frame
// images, in-memory sources that count requests, and on-disk run trees.
package testutil

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"

	"github.com/tOgg1/runviewer/internal/models"
)

// PNG encodes a solid w x h image.
func PNG(t testing.TB, w, h int, c color.Color) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

// FrameColor gives each frame a distinct, deterministic color.
func FrameColor(frame int) color.RGBA {
	return color.RGBA{R: uint8(frame * 37), G: uint8(frame * 11), B: uint8(255 - frame), A: 255}
}

// MemorySource serves resources from memory and counts every Open call.
type MemorySource struct {
	mu    sync.Mutex
	data  map[string][]byte
	opens map[string]int
	order []string
	gate  chan struct{}
}

// NewMemorySource returns an empty source.
func NewMemorySource() *MemorySource {
	return &MemorySource{
		data:  make(map[string][]byte),
		opens: make(map[string]int),
	}
}

// Set stores the payload served for id.
func (s *MemorySource) Set(id string, payload []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[id] = payload
}

// Remove makes id unavailable.
func (s *MemorySource) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, id)
}

// Block makes every Open wait until Release is called.
func (s *MemorySource) Block() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gate = make(chan struct{})
}

// Release unblocks pending and future Open calls.
func (s *MemorySource) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gate != nil {
		close(s.gate)
		s.gate = nil
	}
}

// AddRuns stores env and memory images for every frame of runs.
func (s *MemorySource) AddRuns(t testing.TB, paths models.Paths, runs []models.Run) {
	t.Helper()
	for _, run := range runs {
		for frame := 0; frame < run.FrameCount; frame++ {
			env, memory := paths.FramePair(run.ID, frame)
			s.Set(env, PNG(t, 4, 4, FrameColor(frame)))
			s.Set(memory, PNG(t, 4, 4, color.Gray{Y: uint8(frame)}))
		}
	}
}

// Open implements the fetch source contract.
func (s *MemorySource) Open(ctx context.Context, id string) (io.ReadCloser, error) {
	s.mu.Lock()
	s.opens[id]++
	s.order = append(s.order, id)
	gate := s.gate
	s.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	s.mu.Lock()
	payload, ok := s.data[id]
	s.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%s: %w", id, os.ErrNotExist)
	}
	return io.NopCloser(bytes.NewReader(payload)), nil
}

// Opens returns how many times id was requested.
func (s *MemorySource) Opens(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opens[id]
}

// TotalOpens returns the number of requests across all ids.
func (s *MemorySource) TotalOpens() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.order)
}

// Order returns requested ids in request order.
func (s *MemorySource) Order() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Duplicates returns ids requested more than once, sorted.
func (s *MemorySource) Duplicates() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for id, n := range s.opens {
		if n > 1 {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

// WriteRunTree lays out runs under root the way the static site does:
// root/static/runs/{task}/{run}/images/{env,memory}_NNNN.png.
func WriteRunTree(t testing.TB, root string, task models.TaskType, runs []models.Run) {
	t.Helper()
	for _, run := range runs {
		dir := filepath.Join(root, "static", "runs", string(task), run.ID, "images")
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", dir, err)
		}
		for frame := 0; frame < run.FrameCount; frame++ {
			for _, kind := range models.FrameKinds {
				name := filepath.Join(dir, fmt.Sprintf("%s_%04d.png", kind, frame))
				if err := os.WriteFile(name, PNG(t, 2, 2, FrameColor(frame)), 0o644); err != nil {
					t.Fatalf("write %s: %v", name, err)
				}
			}
		}
	}
}
