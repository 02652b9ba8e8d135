package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Position is where the viewer was left for one task.
type Position struct {
	RunID     string    `yaml:"run"`
	Frame     int       `yaml:"frame"`
	FPS       int       `yaml:"fps,omitempty"`
	UpdatedAt time.Time `yaml:"updated_at,omitempty"`
}

// Positions maps task type to its last position.
type Positions map[string]Position

// IsEmpty returns true if no run is recorded.
func (p Position) IsEmpty() bool {
	return p.RunID == ""
}

// String returns a human-readable representation of the position.
func (p Position) String() string {
	if p.IsEmpty() {
		return "(no position saved)"
	}
	return fmt.Sprintf("%s@%d", p.RunID, p.Frame)
}

// PositionStore manages loading and saving viewer positions.
type PositionStore struct {
	path string
	mu   sync.RWMutex
}

// NewPositionStore creates a store. If path is empty, uses
// ~/.config/runviewer/position.yaml.
func NewPositionStore(path string) *PositionStore {
	if path == "" {
		homeDir, _ := os.UserHomeDir()
		path = filepath.Join(homeDir, ".config", "runviewer", "position.yaml")
	}
	return &PositionStore{path: path}
}

// Path returns the position file path.
func (s *PositionStore) Path() string {
	return s.path
}

// Load reads all positions from disk.
// Returns an empty map if the file doesn't exist.
func (s *PositionStore) Load() (Positions, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.load()
}

func (s *PositionStore) load() (Positions, error) {
	positions := Positions{}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return positions, nil
		}
		return nil, fmt.Errorf("failed to read position file: %w", err)
	}

	if err := yaml.Unmarshal(data, &positions); err != nil {
		return nil, fmt.Errorf("failed to parse position file: %w", err)
	}
	if positions == nil {
		positions = Positions{}
	}
	return positions, nil
}

// Get returns the saved position for task.
func (s *PositionStore) Get(task string) (Position, error) {
	positions, err := s.Load()
	if err != nil {
		return Position{}, err
	}
	return positions[task], nil
}

// Save records the position for task, keeping other tasks' entries.
func (s *PositionStore) Save(task string, pos Position) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	positions, err := s.load()
	if err != nil {
		return err
	}
	if pos.UpdatedAt.IsZero() {
		pos.UpdatedAt = time.Now().UTC()
	}
	positions[task] = pos

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("failed to create position directory: %w", err)
	}

	data, err := yaml.Marshal(positions)
	if err != nil {
		return fmt.Errorf("failed to serialize positions: %w", err)
	}

	if err := os.WriteFile(s.path, data, 0644); err != nil {
		return fmt.Errorf("failed to write position file: %w", err)
	}
	return nil
}

// Clear removes the position file.
func (s *PositionStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove position file: %w", err)
	}
	return nil
}
