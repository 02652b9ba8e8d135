// Package viewer models the episode viewer as explicit state transitions.
//
// Each transition takes the current State and returns the next State plus the
// side effects the caller must carry out (render, activate a run, start or
// stop the playback clock). Transitions never touch the network or a UI.
package viewer

import (
	"fmt"

	"github.com/tOgg1/runviewer/internal/models"
)

const (
	DefaultFPS = 5
	MinFPS     = 1
	MaxFPS     = 60
)

// SpeedPresets are the selectable playback speeds, in frames per second.
var SpeedPresets = []int{1, 2, 5, 10, 20, 30}

// EffectKind enumerates side effects requested by a transition.
type EffectKind int

const (
	// EffectRender asks the rendering layer to redraw the current frame.
	EffectRender EffectKind = iota
	// EffectActivateRun asks the scheduler to prioritize Effect.Run.
	EffectActivateRun
	// EffectStartPlayback asks for the playback clock to (re)start at State.FPS.
	EffectStartPlayback
	// EffectStopPlayback asks for the playback clock to stop.
	EffectStopPlayback
)

func (k EffectKind) String() string {
	switch k {
	case EffectRender:
		return "render"
	case EffectActivateRun:
		return "activate-run"
	case EffectStartPlayback:
		return "start-playback"
	case EffectStopPlayback:
		return "stop-playback"
	default:
		return fmt.Sprintf("effect(%d)", int(k))
	}
}

// Effect is one requested side effect.
type Effect struct {
	Kind EffectKind
	Run  int
}

// Transition maps a state to its successor.
type Transition func(State) (State, []Effect)

// State is the viewer's position and transport state.
type State struct {
	Runs    []models.Run
	Run     int
	Frame   int
	Playing bool
	FPS     int
}

// NewState starts at frame 0 of run, clamped into range.
func NewState(runs []models.Run, run, fps int) State {
	s := State{Runs: runs, FPS: clampFPS(fps)}
	if run >= 0 && run < len(runs) {
		s.Run = run
	}
	return s
}

// Empty reports whether there are no runs to show.
func (s State) Empty() bool {
	return len(s.Runs) == 0
}

// CurrentRun returns the selected run.
func (s State) CurrentRun() (models.Run, bool) {
	if s.Run < 0 || s.Run >= len(s.Runs) {
		return models.Run{}, false
	}
	return s.Runs[s.Run], true
}

// MaxFrame is the last valid frame index of the current run.
func (s State) MaxFrame() int {
	run, ok := s.CurrentRun()
	if !ok {
		return 0
	}
	return run.LastFrame()
}

// RunText is the "Run i of N" caption.
func (s State) RunText() string {
	if s.Empty() {
		return "No runs"
	}
	return fmt.Sprintf("Run %d of %d", s.Run+1, len(s.Runs))
}

func (s State) withFrame(frame int) State {
	run, _ := s.CurrentRun()
	s.Frame = run.ClampFrame(frame)
	return s
}

func (s State) stopped() (State, []Effect) {
	if !s.Playing {
		return s, nil
	}
	s.Playing = false
	return s, []Effect{{Kind: EffectStopPlayback}}
}

// SetCurrentFrame moves to frame n, clamped into range. Playback continues, as
// when the slider is dragged.
func SetCurrentFrame(s State, n int) (State, []Effect) {
	if s.Empty() {
		return s, nil
	}
	return s.withFrame(n), []Effect{{Kind: EffectRender}}
}

// Step moves delta frames, stopping playback. The frame never leaves
// [0, MaxFrame()].
func Step(s State, delta int) (State, []Effect) {
	if s.Empty() {
		return s, nil
	}
	s, effects := s.stopped()
	next := s.withFrame(s.Frame + delta)
	if next.Frame != s.Frame {
		effects = append(effects, Effect{Kind: EffectRender})
	}
	return next, effects
}

// First jumps to frame 0, stopping playback.
func First(s State) (State, []Effect) {
	if s.Empty() {
		return s, nil
	}
	s, effects := s.stopped()
	return s.withFrame(0), append(effects, Effect{Kind: EffectRender})
}

// Last jumps to the final frame, stopping playback.
func Last(s State) (State, []Effect) {
	if s.Empty() {
		return s, nil
	}
	s, effects := s.stopped()
	return s.withFrame(s.MaxFrame()), append(effects, Effect{Kind: EffectRender})
}

// TogglePlayback starts or stops playback.
func TogglePlayback(s State) (State, []Effect) {
	if s.Playing {
		return s.stopped()
	}
	if s.Empty() {
		return s, nil
	}
	s.Playing = true
	return s, []Effect{{Kind: EffectStartPlayback}}
}

// Tick advances playback by one frame and stops at the last frame.
func Tick(s State) (State, []Effect) {
	if !s.Playing || s.Empty() {
		return s, nil
	}
	if s.Frame < s.MaxFrame() {
		return s.withFrame(s.Frame + 1), []Effect{{Kind: EffectRender}}
	}
	return s.stopped()
}

// SetSpeed changes playback speed, restarting the clock when playing.
func SetSpeed(s State, fps int) (State, []Effect) {
	s.FPS = clampFPS(fps)
	if !s.Playing {
		return s, nil
	}
	return s, []Effect{{Kind: EffectStopPlayback}, {Kind: EffectStartPlayback}}
}

// SetCurrentRun selects run i at frame 0. An out-of-range index is rejected:
// the state is returned unchanged with no effects.
func SetCurrentRun(s State, i int) (State, []Effect) {
	if i < 0 || i >= len(s.Runs) {
		return s, nil
	}
	s.Run = i
	s.Frame = 0
	return s, []Effect{{Kind: EffectActivateRun, Run: i}, {Kind: EffectRender}}
}

// ChangeRun moves circularly through runs: (current + delta + N) mod N.
func ChangeRun(s State, delta int) (State, []Effect) {
	if s.Empty() {
		return s, nil
	}
	return SetCurrentRun(s, models.WrapRunIndex(s.Run, delta, len(s.Runs)))
}

func clampFPS(fps int) int {
	switch {
	case fps == 0:
		return DefaultFPS
	case fps < MinFPS:
		return MinFPS
	case fps > MaxFPS:
		return MaxFPS
	default:
		return fps
	}
}
