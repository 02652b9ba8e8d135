// Package models defines the core data types for runviewer.
package models

import (
	"errors"
	"fmt"
	"strings"
)

// TaskType identifies which family of recorded episodes is being viewed.
type TaskType string

const (
	TaskMaze   TaskType = "maze"
	TaskMemory TaskType = "memory"
)

// TaskTypes lists every known task type in display order.
var TaskTypes = []TaskType{TaskMaze, TaskMemory}

var (
	ErrInvalidTaskType  = errors.New("invalid task type")
	ErrInvalidRunID     = errors.New("invalid run id")
	ErrInvalidRunFrames = errors.New("invalid frame count")
	ErrFrameOutOfRange  = errors.New("frame index out of range")
	ErrRunOutOfRange    = errors.New("run index out of range")
)

// ParseTaskType normalizes and validates a task type name.
func ParseTaskType(raw string) (TaskType, error) {
	value := TaskType(strings.ToLower(strings.TrimSpace(raw)))
	switch value {
	case TaskMaze, TaskMemory:
		return value, nil
	default:
		return "", fmt.Errorf("%w: %q (want maze or memory)", ErrInvalidTaskType, raw)
	}
}

// Run is one recorded episode.
type Run struct {
	// ID names the run directory under the task root.
	ID string `json:"id"`

	// FrameCount is the number of recorded timesteps.
	FrameCount int `json:"frame_count"`
}

// Validate checks that the run can be used to form resource identifiers.
func (r Run) Validate() error {
	validation := &ValidationErrors{}
	id := strings.TrimSpace(r.ID)
	if id == "" {
		validation.Add("id", ErrInvalidRunID)
	} else if strings.ContainsAny(id, `/\`) || id == "." || id == ".." {
		validation.Add("id", fmt.Errorf("%w: %q", ErrInvalidRunID, r.ID))
	}
	if r.FrameCount < 0 {
		validation.Add("frame_count", fmt.Errorf("%w: %d", ErrInvalidRunFrames, r.FrameCount))
	}
	return validation.Err()
}

// LastFrame returns the highest valid frame index, or 0 for an empty run.
func (r Run) LastFrame() int {
	if r.FrameCount <= 0 {
		return 0
	}
	return r.FrameCount - 1
}

// HasFrame reports whether frame is a valid index for the run.
func (r Run) HasFrame(frame int) bool {
	return frame >= 0 && frame < r.FrameCount
}

// ClampFrame forces frame into [0, LastFrame()].
func (r Run) ClampFrame(frame int) int {
	if frame < 0 {
		return 0
	}
	if last := r.LastFrame(); frame > last {
		return last
	}
	return frame
}

// WrapRunIndex moves circularly through n runs: (current + delta + n) mod n.
// The result is always in [0, n) for any delta; n <= 0 yields 0.
func WrapRunIndex(current, delta, n int) int {
	if n <= 0 {
		return 0
	}
	next := (current + delta%n + n) % n
	if next < 0 {
		next += n
	}
	return next
}
