package framecache

import "github.com/tOgg1/runviewer/internal/models"

// SearchRadius bounds the outward search for a substitute frame.
const SearchRadius = 20

// NearestLoadedFrame searches outward from target for a frame accepted by has.
//
// The target itself is checked first. Then for step 1..radius-1 it checks
// target-step and target+step, skipping negative indices, and returns the
// first hit. With no hit inside the radius it returns 0, the first frame.
func NearestLoadedFrame(has func(frame int) bool, target, radius int) int {
	if radius <= 0 {
		radius = SearchRadius
	}
	if target >= 0 && has(target) {
		return target
	}
	for step := 1; step < radius; step++ {
		for _, frame := range [2]int{target - step, target + step} {
			if frame < 0 {
				continue
			}
			if has(frame) {
				return frame
			}
		}
	}
	return 0
}

// Presence is the read side of a cache.
type Presence interface {
	Has(id string) bool
}

// Resolver finds substitute frames for a task using env image presence.
type Resolver struct {
	cache  Presence
	paths  models.Paths
	radius int
}

// NewResolver binds a resolver to a cache. radius <= 0 uses SearchRadius.
func NewResolver(cache Presence, paths models.Paths, radius int) *Resolver {
	if radius <= 0 {
		radius = SearchRadius
	}
	return &Resolver{cache: cache, paths: paths, radius: radius}
}

// FindNearestLoadedFrame returns the closest frame of runID whose env image is
// cached, or 0 when none is within the search radius. It never triggers loads.
func (r *Resolver) FindNearestLoadedFrame(runID string, targetFrame int) int {
	return NearestLoadedFrame(func(frame int) bool {
		return r.cache.Has(r.paths.Frame(runID, models.KindEnv, frame))
	}, targetFrame, r.radius)
}
