package puzzle

import (
	"fmt"
	"strings"

	"github.com/wricardo/crucible/search/engine"
)

const (
	// Validation constants
	MaxGridSide = 512
	MaxRunLimit = 64
)

// Puzzle is a stored cost grid together with its solver settings
type Puzzle struct {
	Name              string   `json:"name"`
	Description       string   `json:"description"`
	Layout            []string `json:"layout"`
	MaxRun            *int     `json:"max_run,omitempty"`
	MinRun            *int     `json:"min_run,omitempty"`
	StartDirections   []string `json:"start_directions,omitempty"`
	OriginCostCounted bool     `json:"origin_cost_counted,omitempty"`

	// ExpectedCost, when set, is the known minimal cost used by verification
	ExpectedCost *int `json:"expected_cost,omitempty"`
}

// Info summarizes a puzzle for listings
type Info struct {
	Filename     string `json:"filename"`
	PuzzleID     string `json:"puzzle_id"` // The identifier to use when solving
	Name         string `json:"name"`      // Display name
	Description  string `json:"description"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	MaxRun       int    `json:"max_run"`
	MinRun       int    `json:"min_run"`
	ExpectedCost *int   `json:"expected_cost,omitempty"`
}

// Validate checks a puzzle for structural correctness and solver settings
func Validate(p *Puzzle) error {
	if p == nil {
		return fmt.Errorf("puzzle validation: puzzle is nil")
	}
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("puzzle validation: name is required")
	}

	grid, err := engine.NewCostGrid(p.Layout)
	if err != nil {
		return fmt.Errorf("puzzle validation: layout: %w", err)
	}
	if grid.Width() > MaxGridSide || grid.Height() > MaxGridSide {
		return fmt.Errorf("puzzle validation: layout must be at most %dx%d, got %dx%d",
			MaxGridSide, MaxGridSide, grid.Width(), grid.Height())
	}

	if p.MaxRun != nil && *p.MaxRun > MaxRunLimit {
		return fmt.Errorf("puzzle validation: max_run must be at most %d, got %d", MaxRunLimit, *p.MaxRun)
	}

	cfg, err := p.Config()
	if err != nil {
		return fmt.Errorf("puzzle validation: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("puzzle validation: %w", err)
	}

	if p.ExpectedCost != nil && *p.ExpectedCost < 0 {
		return fmt.Errorf("puzzle validation: expected_cost must be non-negative, got %d", *p.ExpectedCost)
	}

	return nil
}

// Grid builds the puzzle's cost grid
func (p *Puzzle) Grid() (*engine.CostGrid, error) {
	return engine.NewCostGrid(p.Layout)
}

// Config resolves the puzzle settings on top of the engine defaults
func (p *Puzzle) Config() (engine.Config, error) {
	cfg := engine.DefaultConfig()
	if p.MaxRun != nil {
		cfg.MaxRun = *p.MaxRun
	}
	if p.MinRun != nil {
		cfg.MinRun = *p.MinRun
	}
	if len(p.StartDirections) > 0 {
		dirs, err := engine.ParseDirections(p.StartDirections)
		if err != nil {
			return engine.Config{}, &engine.ConfigError{Field: "start_directions", Reason: err.Error()}
		}
		cfg.StartDirections = dirs
	}
	cfg.OriginCostCounted = p.OriginCostCounted
	return cfg, nil
}

// Info builds a listing entry for the puzzle stored under id
func (p *Puzzle) Info(id, filename string) *Info {
	info := &Info{
		Filename:     filename,
		PuzzleID:     id,
		Name:         p.Name,
		Description:  p.Description,
		Height:       len(p.Layout),
		ExpectedCost: p.ExpectedCost,
	}
	if len(p.Layout) > 0 {
		info.Width = len(p.Layout[0])
	}
	if cfg, err := p.Config(); err == nil {
		info.MaxRun = cfg.MaxRun
		info.MinRun = cfg.MinRun
	}
	return info
}

// IntPtr is a helper for the optional integer fields
func IntPtr(v int) *int {
	return &v
}
