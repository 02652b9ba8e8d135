package models

import (
	"fmt"
	"path"
	"strings"
)

// Kind selects one of the two images recorded per frame.
type Kind string

const (
	KindEnv    Kind = "env"
	KindMemory Kind = "memory"
)

// FrameKinds lists the image kinds in fetch order.
var FrameKinds = []Kind{KindEnv, KindMemory}

// Paths forms resource identifiers for one task under a base path.
type Paths struct {
	BasePath string
	Task     TaskType
}

// NormalizeBasePath trims trailing slashes and ensures a leading one.
// An empty or "/" base path means the site root.
func NormalizeBasePath(basePath string) string {
	trimmed := strings.TrimSpace(basePath)
	trimmed = strings.TrimRight(trimmed, "/")
	if trimmed == "" {
		return ""
	}
	if !strings.HasPrefix(trimmed, "/") {
		trimmed = "/" + trimmed
	}
	return trimmed
}

// TaskRoot is the directory holding runs.json and one directory per run.
func (p Paths) TaskRoot() string {
	return NormalizeBasePath(p.BasePath) + "/static/runs/" + string(p.Task)
}

// Manifest is the identifier of the task's runs.json.
func (p Paths) Manifest() string {
	return p.TaskRoot() + "/runs.json"
}

// Frame is the identifier of one image of one frame.
func (p Paths) Frame(runID string, kind Kind, frame int) string {
	return fmt.Sprintf("%s/%s/images/%s_%04d.png", p.TaskRoot(), runID, kind, frame)
}

// FramePair returns the env and memory identifiers of a frame.
func (p Paths) FramePair(runID string, frame int) (env, memory string) {
	return p.Frame(runID, KindEnv, frame), p.Frame(runID, KindMemory, frame)
}

// Relative strips the base path so an identifier can be resolved against a
// directory laid out like the site root.
func (p Paths) Relative(id string) string {
	base := NormalizeBasePath(p.BasePath)
	rel := strings.TrimPrefix(id, base)
	return strings.TrimPrefix(path.Clean("/"+rel), "/")
}
