package engine

import (
	"context"
	"fmt"
)

// Phase is the solver's position in its state machine
type Phase int

const (
	PhaseInit Phase = iota
	PhaseRunning
	PhaseGoalFound
	PhaseExhausted
	PhaseCancelled
)

func (p Phase) String() string {
	switch p {
	case PhaseInit:
		return "init"
	case PhaseRunning:
		return "running"
	case PhaseGoalFound:
		return "goal_found"
	case PhaseExhausted:
		return "exhausted"
	case PhaseCancelled:
		return "cancelled"
	}
	return fmt.Sprintf("Phase(%d)", int(p))
}

// Terminal reports whether no further steps will change the outcome
func (p Phase) Terminal() bool {
	return p == PhaseGoalFound || p == PhaseExhausted || p == PhaseCancelled
}

// Stats counts the work done by a search
type Stats struct {
	Expanded  int `json:"expanded"`
	Pushed    int `json:"pushed"`
	Discarded int `json:"discarded"`
	Pending   int `json:"pending"`
}

// Result contains the outcome of a successful search
type Result struct {
	Cost  int         `json:"cost"`
	Path  []Position  `json:"path"`
	Moves []Direction `json:"moves"`
	Stats Stats       `json:"stats"`
}

// Solver runs one search over one grid. It owns its Frontier and
// VisitedSet and must not be driven from more than one goroutine.
type Solver struct {
	grid     *CostGrid
	cfg      Config
	frontier *Frontier
	visited  *VisitedSet

	phase     Phase
	result    *Result
	err       error
	expanded  int
	discarded int
}

// NewSolver validates the grid and options and returns a solver in PhaseInit
func NewSolver(grid *CostGrid, opts ...Option) (*Solver, error) {
	if grid == nil {
		return nil, &InputError{Reason: "grid cannot be nil"}
	}

	cfg := NewConfig(opts...)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &Solver{
		grid:     grid,
		cfg:      cfg,
		frontier: NewFrontier(),
		visited:  NewVisitedSet(),
		phase:    PhaseInit,
	}, nil
}

// Solve runs a fresh solver to completion
func Solve(ctx context.Context, grid *CostGrid, opts ...Option) (*Result, error) {
	s, err := NewSolver(grid, opts...)
	if err != nil {
		return nil, err
	}
	return s.Run(ctx)
}

// Config returns the effective configuration
func (s *Solver) Config() Config { return s.cfg }

// Phase returns the current phase
func (s *Solver) Phase() Phase { return s.phase }

// Stats returns the work counters so far
func (s *Solver) Stats() Stats {
	return Stats{
		Expanded:  s.expanded,
		Pushed:    s.frontier.Pushed(),
		Discarded: s.discarded,
		Pending:   s.frontier.Len(),
	}
}

// Result returns the result once the phase is PhaseGoalFound
func (s *Solver) Result() *Result { return s.result }

// Err returns the terminal error, if any
func (s *Solver) Err() error { return s.err }

// Run steps the search until it terminates. The context is checked once per
// pop iteration; cancellation never interrupts an expansion midway.
func (s *Solver) Run(ctx context.Context) (*Result, error) {
	for {
		if s.phase.Terminal() {
			return s.result, s.err
		}
		if err := ctx.Err(); err != nil {
			s.phase = PhaseCancelled
			s.err = fmt.Errorf("search cancelled after %d expansions: %w", s.expanded, err)
			return nil, s.err
		}
		s.Step()
	}
}

// Step performs one iteration: seeding on the first call, then one frontier
// pop per call. It reports whether the search has terminated.
func (s *Solver) Step() (bool, error) {
	switch {
	case s.phase.Terminal():
		return true, s.err
	case s.phase == PhaseInit:
		s.seed()
		return s.phase.Terminal(), s.err
	}

	current, ok := s.frontier.pop()
	if !ok {
		s.phase = PhaseExhausted
		s.err = &NoPathError{Goal: s.grid.Goal(), MaxRun: s.cfg.MaxRun, Expanded: s.expanded}
		return true, s.err
	}

	st := current.state
	if !s.visited.Visit(st.Key()) {
		s.discarded++
		return false, nil
	}
	s.expanded++

	if s.isGoal(st) {
		s.phase = PhaseGoalFound
		s.result = s.buildResult(current)
		return true, nil
	}

	next := NextStates(s.grid, s.cfg, st)
	for _, candidate := range next.Slice() {
		if s.visited.Contains(candidate.Key()) {
			continue
		}
		s.frontier.push(candidate, current)
	}

	return false, nil
}

func (s *Solver) seed() {
	s.phase = PhaseRunning

	if s.grid.Goal() == (Position{}) {
		cost := 0
		if s.cfg.OriginCostCounted {
			cost = s.grid.costAt(Position{})
		}
		s.phase = PhaseGoalFound
		s.result = &Result{Cost: cost, Path: []Position{{}}, Moves: []Direction{}, Stats: s.Stats()}
		return
	}

	for _, st := range seedStates(s.grid, s.cfg) {
		s.frontier.Push(st)
	}
}

func (s *Solver) isGoal(st State) bool {
	return st.Pos == s.grid.Goal() && st.Run >= s.cfg.MinRun
}

// buildResult walks the parent links back to a seed and prepends the origin
func (s *Solver) buildResult(goal *node) *Result {
	var chain []*node
	for n := goal; n != nil; n = n.parent {
		chain = append(chain, n)
	}

	path := make([]Position, 0, len(chain)+1)
	moves := make([]Direction, 0, len(chain))
	path = append(path, Position{})
	for i := len(chain) - 1; i >= 0; i-- {
		path = append(path, chain[i].state.Pos)
		moves = append(moves, chain[i].state.Heading)
	}

	return &Result{
		Cost:  goal.state.G,
		Path:  path,
		Moves: moves,
		Stats: s.Stats(),
	}
}
