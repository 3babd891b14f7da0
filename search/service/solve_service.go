package service

import (
	"context"
	"errors"

	"github.com/wricardo/crucible/search/puzzle"
)

// ErrRunNotFound is returned when no run carries the requested ID
var ErrRunNotFound = errors.New("run not found")

// SolveService defines all solver-related operations
type SolveService interface {
	// Solving
	Solve(ctx context.Context, req SolveRequest) (*SolveResult, error)
	SolveBatch(ctx context.Context, reqs []SolveRequest) (*BatchResult, error)

	// Run records
	GetRun(ctx context.Context, runID string) (*Run, error)
	ListRuns(ctx context.Context) ([]*Run, error)
	DeleteRun(ctx context.Context, runID string) error

	// Puzzles
	ListPuzzles(ctx context.Context) ([]*puzzle.Info, error)
	GetPuzzle(ctx context.Context, puzzleID string) (*puzzle.Puzzle, error)
	SavePuzzle(ctx context.Context, puzzleID string, p *puzzle.Puzzle) error
}

// RunStore defines run storage operations
type RunStore interface {
	Create(run *Run) (*Run, error)
	Get(id string) (*Run, error)
	List() []*Run
	Delete(id string) error
	UpdateLastAccessed(id string) error
}

// PuzzleStore handles puzzle loading
type PuzzleStore interface {
	LoadPuzzle(id string) (*puzzle.Puzzle, error)
	ListPuzzles() ([]*puzzle.Info, error)
	GetDefault() *puzzle.Puzzle
	SavePuzzle(id string, p *puzzle.Puzzle) error
	IDForName(name string) string
}

// Notifier receives run lifecycle events
type Notifier interface {
	BroadcastEvent(channel string, event string, data interface{})
}
