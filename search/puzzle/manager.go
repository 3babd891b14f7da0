package puzzle

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
)

var (
	ErrPuzzleNotFound = errors.New("puzzle not found")
	ErrInvalidPuzzle  = errors.New("invalid puzzle")
	ErrInvalidName    = errors.New("invalid puzzle name")
)

// DefaultPuzzleID is loaded as the default when present on disk
const DefaultPuzzleID = "reference"

// Manager handles puzzle loading and caching
type Manager struct {
	puzzleDir     string
	defaultPuzzle *Puzzle
	puzzles       map[string]*Puzzle
	logger        *zap.Logger
	mu            sync.RWMutex
}

// NewManager creates a new puzzle manager over an existing directory
func NewManager(puzzleDir string, logger *zap.Logger) (*Manager, error) {
	if _, err := os.Stat(puzzleDir); os.IsNotExist(err) {
		return nil, fmt.Errorf("puzzle directory does not exist: %s", puzzleDir)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	m := &Manager{
		puzzleDir: puzzleDir,
		puzzles:   make(map[string]*Puzzle),
		logger:    logger,
	}

	m.defaultPuzzle = m.resolveDefault()
	return m, nil
}

// LoadPuzzle loads a puzzle by ID (file name without .json)
func (m *Manager) LoadPuzzle(id string) (*Puzzle, error) {
	id = strings.TrimSuffix(id, ".json")
	if err := checkName(id); err != nil {
		return nil, err
	}

	m.mu.RLock()
	if p, exists := m.puzzles[id]; exists {
		m.mu.RUnlock()
		return p, nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	// Double-check after acquiring write lock
	if p, exists := m.puzzles[id]; exists {
		return p, nil
	}

	p, err := m.readPuzzle(id)
	if err != nil {
		return nil, err
	}

	m.puzzles[id] = p
	return p, nil
}

// ListPuzzles returns information about all valid puzzles on disk, sorted by ID
func (m *Manager) ListPuzzles() ([]*Info, error) {
	entries, err := os.ReadDir(m.puzzleDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read puzzle directory: %w", err)
	}

	var infos []*Info
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		id := strings.TrimSuffix(entry.Name(), ".json")
		p, err := m.LoadPuzzle(id)
		if err != nil {
			m.logger.Debug("Skipping invalid puzzle", zap.String("puzzle", id), zap.Error(err))
			continue
		}

		infos = append(infos, p.Info(id, entry.Name()))
	}

	sort.Slice(infos, func(i, j int) bool { return infos[i].PuzzleID < infos[j].PuzzleID })
	return infos, nil
}

// GetDefault returns the default puzzle
func (m *Manager) GetDefault() *Puzzle {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.defaultPuzzle
}

// SetDefault sets the default puzzle by ID
func (m *Manager) SetDefault(id string) error {
	p, err := m.LoadPuzzle(id)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultPuzzle = p
	return nil
}

// RefreshCache drops every cached puzzle and re-resolves the default
func (m *Manager) RefreshCache() {
	m.mu.Lock()
	m.puzzles = make(map[string]*Puzzle)
	m.mu.Unlock()

	def := m.resolveDefault()

	m.mu.Lock()
	m.defaultPuzzle = def
	m.mu.Unlock()
}

// SavePuzzle validates a puzzle and writes it to disk
func (m *Manager) SavePuzzle(id string, p *Puzzle) error {
	id = strings.TrimSuffix(id, ".json")
	if err := checkName(id); err != nil {
		return err
	}
	if err := Validate(p); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPuzzle, err)
	}

	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal puzzle: %w", err)
	}

	path := filepath.Join(m.puzzleDir, id+".json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write puzzle file: %w", err)
	}

	m.mu.Lock()
	m.puzzles[id] = p
	m.mu.Unlock()

	m.logger.Info("Saved puzzle", zap.String("puzzle", id), zap.String("path", path))
	return nil
}

// IDForName returns the puzzle ID whose display name matches, or the name
// itself when no stored puzzle carries it.
func (m *Manager) IDForName(name string) string {
	infos, err := m.ListPuzzles()
	if err == nil {
		for _, info := range infos {
			if info.Name == name {
				return info.PuzzleID
			}
		}
	}
	return name
}

func (m *Manager) readPuzzle(id string) (*Puzzle, error) {
	path := filepath.Join(m.puzzleDir, id+".json")

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrPuzzleNotFound
		}
		return nil, fmt.Errorf("failed to read puzzle file: %w", err)
	}

	var p Puzzle
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("%w: failed to parse %s: %v", ErrInvalidPuzzle, id, err)
	}

	if err := Validate(&p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPuzzle, err)
	}

	return &p, nil
}

// resolveDefault prefers the reference puzzle on disk, then the first valid
// puzzle, then the built-in reference grid.
func (m *Manager) resolveDefault() *Puzzle {
	if p, err := m.LoadPuzzle(DefaultPuzzleID); err == nil {
		return p
	}

	infos, err := m.ListPuzzles()
	if err == nil && len(infos) > 0 {
		if p, err := m.LoadPuzzle(infos[0].PuzzleID); err == nil {
			return p
		}
	}

	m.logger.Debug("No puzzles on disk, using built-in reference puzzle", zap.String("dir", m.puzzleDir))
	return Reference()
}

// checkName rejects IDs that would escape the puzzle directory
func checkName(id string) error {
	if id == "" || id == "." || id == ".." || strings.ContainsAny(id, `/\`) {
		return fmt.Errorf("%w: %q", ErrInvalidName, id)
	}
	return nil
}

// Reference returns the built-in 13x13 reference puzzle
func Reference() *Puzzle {
	return &Puzzle{
		Name:        "Reference",
		Description: "13x13 reference grid, max run 3, seeded right and down",
		Layout: []string{
			"2413432311323",
			"3215453535623",
			"3255245654254",
			"3446585845452",
			"4546657867536",
			"1438598798454",
			"4457876987766",
			"3637877979653",
			"4654967986887",
			"4564679986453",
			"1224686865563",
			"2546548887735",
			"4322674655533",
		},
		MaxRun:          IntPtr(3),
		StartDirections: []string{"right", "down"},
		ExpectedCost:    IntPtr(102),
	}
}
