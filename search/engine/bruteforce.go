package engine

import (
	"context"
	"fmt"
)

// MaxBruteForceCells bounds the grids BruteForce accepts
const MaxBruteForceCells = 100

// bruteForcer enumerates move sequences depth-first. A partial sequence is
// cut when it already costs at least the best complete path, or when the
// same (position, heading, run) was reached earlier at no greater cost:
// every continuation of the cut sequence is matched by the same
// continuation of the cheaper one.
type bruteForcer struct {
	ctx  context.Context
	grid *CostGrid
	cfg  Config

	best      int
	bestMoves []Direction
	found     bool
	labels    map[StateKey]int
	moves     []Direction
	calls     int
	err       error
}

// BruteForce computes the minimal cost without a priority queue or closed
// set. It exists to cross-check Solver on small grids.
func BruteForce(ctx context.Context, grid *CostGrid, opts ...Option) (*Result, error) {
	if grid == nil {
		return nil, &InputError{Reason: "grid cannot be nil"}
	}
	if grid.Width()*grid.Height() > MaxBruteForceCells {
		return nil, &InputError{Reason: fmt.Sprintf("%dx%d grid is too large for exhaustive search (max %d cells)",
			grid.Width(), grid.Height(), MaxBruteForceCells)}
	}

	cfg := NewConfig(opts...)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	origin := 0
	if cfg.OriginCostCounted {
		origin = grid.costAt(Position{})
	}
	if grid.Goal() == (Position{}) {
		return &Result{Cost: origin, Path: []Position{{}}, Moves: []Direction{}}, nil
	}

	bf := &bruteForcer{
		ctx:    ctx,
		grid:   grid,
		cfg:    cfg,
		labels: make(map[StateKey]int),
	}
	bf.walk(State{Pos: Position{}, G: origin})
	if bf.err != nil {
		return nil, bf.err
	}

	if !bf.found {
		return nil, &NoPathError{Goal: grid.Goal(), MaxRun: cfg.MaxRun, Expanded: bf.calls}
	}

	return &Result{
		Cost:  bf.best,
		Path:  PathFromMoves(bf.bestMoves),
		Moves: bf.bestMoves,
		Stats: Stats{Expanded: bf.calls},
	}, nil
}

func (bf *bruteForcer) walk(st State) {
	if bf.err != nil {
		return
	}
	bf.calls++
	if bf.calls%4096 == 0 {
		if err := bf.ctx.Err(); err != nil {
			bf.err = fmt.Errorf("exhaustive search cancelled: %w", err)
			return
		}
	}

	if bf.found && st.G >= bf.best {
		return
	}
	key := st.Key()
	if label, ok := bf.labels[key]; ok && label <= st.G {
		return
	}
	bf.labels[key] = st.G

	if len(bf.moves) > 0 && st.Pos == bf.grid.Goal() && st.Run >= bf.cfg.MinRun {
		bf.best = st.G
		bf.bestMoves = append(bf.bestMoves[:0], bf.moves...)
		bf.found = true
		return
	}

	// Movement rules are checked inline; NextStates is not used here.
	first := len(bf.moves) == 0
	for _, d := range AllDirections {
		run := 1
		switch {
		case first:
			if !containsDirection(bf.cfg.StartDirections, d) {
				continue
			}
		case d == st.Heading.Opposite():
			continue
		case d == st.Heading:
			run = st.Run + 1
		case st.Run < bf.cfg.MinRun:
			continue
		}
		if run > bf.cfg.MaxRun {
			continue
		}

		pos := st.Pos.Step(d)
		if !bf.grid.InBounds(pos) {
			continue
		}

		bf.moves = append(bf.moves, d)
		bf.walk(State{Pos: pos, Heading: d, Run: run, G: st.G + bf.grid.costAt(pos)})
		bf.moves = bf.moves[:len(bf.moves)-1]
	}
}
