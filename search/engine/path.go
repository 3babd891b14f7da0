package engine

import (
	"errors"
	"fmt"
)

// ErrInvalidPath is returned by ValidatePath for a move sequence that breaks
// a movement rule.
var ErrInvalidPath = errors.New("invalid path")

// PathFromMoves expands a move sequence into the visited positions,
// starting at the origin.
func PathFromMoves(moves []Direction) []Position {
	path := make([]Position, 0, len(moves)+1)
	pos := Position{}
	path = append(path, pos)
	for _, d := range moves {
		pos = pos.Step(d)
		path = append(path, pos)
	}
	return path
}

// ValidatePath replays moves from the top-left corner and checks every
// movement rule: bounds, no reversal, MaxRun, MinRun at each turn and at
// the goal, and arrival at the bottom-right corner. It returns the cost of
// the path under cfg.
func ValidatePath(grid *CostGrid, cfg Config, moves []Direction) (int, error) {
	if err := cfg.Validate(); err != nil {
		return 0, err
	}

	pos := Position{}
	cost := 0
	if cfg.OriginCostCounted {
		cost = grid.costAt(pos)
	}

	run := 0
	var heading Direction
	for i, d := range moves {
		if !d.Valid() {
			return 0, fmt.Errorf("%w: move %d has invalid direction %d", ErrInvalidPath, i+1, uint8(d))
		}

		switch {
		case i == 0:
			if !containsDirection(cfg.StartDirections, d) {
				return 0, fmt.Errorf("%w: first move %s is not a start direction", ErrInvalidPath, d)
			}
			run = 1
		case d == heading:
			run++
		case d == heading.Opposite():
			return 0, fmt.Errorf("%w: move %d reverses %s into %s", ErrInvalidPath, i+1, heading, d)
		default:
			if run < cfg.MinRun {
				return 0, fmt.Errorf("%w: move %d turns after a run of %d, minimum is %d", ErrInvalidPath, i+1, run, cfg.MinRun)
			}
			run = 1
		}

		if run > cfg.MaxRun {
			return 0, fmt.Errorf("%w: move %d extends a run past %d", ErrInvalidPath, i+1, cfg.MaxRun)
		}

		heading = d
		pos = pos.Step(d)
		if !grid.InBounds(pos) {
			return 0, fmt.Errorf("%w: move %d leaves the grid at %s", ErrInvalidPath, i+1, pos)
		}
		cost += grid.costAt(pos)
	}

	if pos != grid.Goal() {
		return 0, fmt.Errorf("%w: path ends at %s, goal is %s", ErrInvalidPath, pos, grid.Goal())
	}
	if len(moves) > 0 && run < cfg.MinRun {
		return 0, fmt.Errorf("%w: path ends with a run of %d, minimum is %d", ErrInvalidPath, run, cfg.MinRun)
	}

	return cost, nil
}

// LongestRun returns the length of the longest run of identical moves
func LongestRun(moves []Direction) int {
	longest, run := 0, 0
	for i, d := range moves {
		if i > 0 && d == moves[i-1] {
			run++
		} else {
			run = 1
		}
		if run > longest {
			longest = run
		}
	}
	return longest
}

func containsDirection(dirs []Direction, d Direction) bool {
	for _, candidate := range dirs {
		if candidate == d {
			return true
		}
	}
	return false
}
