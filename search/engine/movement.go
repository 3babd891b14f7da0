package engine

// Successors is a fixed-capacity set of at most three candidate states:
// one straight continuation and two turns.
type Successors struct {
	items [3]State
	n     int
}

// Len returns the number of candidates
func (s *Successors) Len() int { return s.n }

// At returns the i-th candidate
func (s *Successors) At(i int) State { return s.items[i] }

// Slice exposes the candidates; it aliases s and must not outlive it.
func (s *Successors) Slice() []State { return s.items[:s.n] }

func (s *Successors) add(st State) {
	s.items[s.n] = st
	s.n++
}

// heuristic returns the Manhattan distance from p to the goal, or zero when
// zero-cost cells would make that estimate inadmissible.
func heuristic(grid *CostGrid, p Position) int {
	if grid.MinCost() == 0 {
		return 0
	}
	return ManhattanDistance(p, grid.Goal())
}

// enter builds the state reached by moving from parent in direction d with
// the given run, or reports false when the move leaves the grid.
func enter(grid *CostGrid, parent State, d Direction, run int) (State, bool) {
	next := parent.Pos.Step(d)
	if !grid.InBounds(next) {
		return State{}, false
	}
	return State{
		Pos:     next,
		Heading: d,
		Run:     run,
		G:       parent.G + grid.costAt(next),
		H:       heuristic(grid, next),
	}, true
}

// NextStates returns the valid states reachable from s. Straight moves are
// offered while the run is below MaxRun; turns are offered once the run has
// reached MinRun. Reversal is never offered.
func NextStates(grid *CostGrid, cfg Config, s State) Successors {
	var out Successors

	if s.Run < cfg.MaxRun {
		if st, ok := enter(grid, s, s.Heading, s.Run+1); ok {
			out.add(st)
		}
	}

	if s.Run >= cfg.MinRun {
		for _, d := range s.Heading.Turns() {
			if st, ok := enter(grid, s, d, 1); ok {
				out.add(st)
			}
		}
	}

	return out
}

// seedStates returns the initial states entered from the start corner
func seedStates(grid *CostGrid, cfg Config) []State {
	origin := State{Pos: Position{}}
	if cfg.OriginCostCounted {
		origin.G = grid.costAt(origin.Pos)
	}

	seeds := make([]State, 0, len(cfg.StartDirections))
	if cfg.MaxRun < 1 {
		return seeds
	}
	for _, d := range cfg.StartDirections {
		if st, ok := enter(grid, origin, d, 1); ok {
			seeds = append(seeds, st)
		}
	}
	return seeds
}
