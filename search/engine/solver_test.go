package engine

import (
	"context"
	"errors"
	"math/rand"
	"testing"
)

var referenceRows = []string{
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
}

func TestSolve_ReferenceGrid(t *testing.T) {
	grid := mustGrid(t, referenceRows...)

	result, err := Solve(context.Background(), grid)
	if err != nil {
		t.Fatalf("Solve failed: %v", err)
	}
	if result.Cost != 102 {
		t.Errorf("Expected minimal cost 102, got %d", result.Cost)
	}

	cost, err := ValidatePath(grid, DefaultConfig(), result.Moves)
	if err != nil {
		t.Fatalf("Returned path is invalid: %v", err)
	}
	if cost != result.Cost {
		t.Errorf("Path cost %d does not match reported cost %d", cost, result.Cost)
	}
	if len(result.Path) != len(result.Moves)+1 {
		t.Errorf("Expected %d positions for %d moves, got %d", len(result.Moves)+1, len(result.Moves), len(result.Path))
	}
	if result.Path[0] != (Position{}) || result.Path[len(result.Path)-1] != grid.Goal() {
		t.Errorf("Path should run from origin to goal, got %s..%s", result.Path[0], result.Path[len(result.Path)-1])
	}
	if result.Stats.Expanded == 0 || result.Stats.Pushed == 0 {
		t.Errorf("Expected non-zero work counters, got %+v", result.Stats)
	}
}

func TestSolve_MinRun(t *testing.T) {
	tests := []struct {
		name string
		rows []string
		want int
	}{
		{name: "reference", rows: referenceRows, want: 94},
		{name: "long corridor", rows: []string{
			"111111111111",
			"999999999991",
			"999999999991",
			"999999999991",
			"999999999991",
		}, want: 71},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			grid := mustGrid(t, tt.rows...)
			result, err := Solve(context.Background(), grid, WithMaxRun(10), WithMinRun(4))
			if err != nil {
				t.Fatalf("Solve failed: %v", err)
			}
			if result.Cost != tt.want {
				t.Errorf("Expected cost %d, got %d", tt.want, result.Cost)
			}
			if _, err := ValidatePath(grid, NewConfig(WithMaxRun(10), WithMinRun(4)), result.Moves); err != nil {
				t.Errorf("Returned path is invalid: %v", err)
			}
		})
	}
}

func TestSolve_SmallGrid(t *testing.T) {
	grid := mustGrid(t,
		"19",
		"11",
	)
	result, err := Solve(context.Background(), grid)
	if err != nil {
		t.Fatalf("Solve failed: %v", err)
	}
	if result.Cost != 2 {
		t.Errorf("Expected cost 2, got %d", result.Cost)
	}
	if len(result.Moves) != 2 || result.Moves[0] != Down || result.Moves[1] != Right {
		t.Errorf("Expected moves [down right], got %v", result.Moves)
	}
}

func TestSolve_SingleCell(t *testing.T) {
	grid := mustGrid(t, "7")

	result, err := Solve(context.Background(), grid)
	if err != nil {
		t.Fatalf("Solve failed: %v", err)
	}
	if result.Cost != 0 {
		t.Errorf("Expected cost 0 for 1x1 grid, got %d", result.Cost)
	}
	if len(result.Moves) != 0 || len(result.Path) != 1 {
		t.Errorf("Expected no moves, got %v", result.Moves)
	}

	result, err = Solve(context.Background(), grid, WithOriginCost(true))
	if err != nil {
		t.Fatalf("Solve failed: %v", err)
	}
	if result.Cost != 7 {
		t.Errorf("Expected origin cost 7 when counted, got %d", result.Cost)
	}

	result, err = Solve(context.Background(), grid, WithMaxRun(0))
	if err != nil {
		t.Fatalf("Solve with max run 0 on 1x1 grid failed: %v", err)
	}
	if result.Cost != 0 {
		t.Errorf("Expected cost 0, got %d", result.Cost)
	}
}

func TestSolve_OriginCostCounted(t *testing.T) {
	grid := mustGrid(t, referenceRows...)
	result, err := Solve(context.Background(), grid, WithOriginCost(true))
	if err != nil {
		t.Fatalf("Solve failed: %v", err)
	}
	if result.Cost != 104 {
		t.Errorf("Expected 102 plus origin cost 2, got %d", result.Cost)
	}
}

func TestSolve_NoPath(t *testing.T) {
	tests := []struct {
		name string
		rows []string
		opts []Option
	}{
		{name: "max run zero", rows: []string{"12"}, opts: []Option{WithMaxRun(0)}},
		{name: "corridor too long", rows: []string{"12345"}, opts: []Option{WithMaxRun(3)}},
		{name: "column too long", rows: []string{"1", "2", "3", "4", "5"}, opts: []Option{WithMaxRun(3)}},
		{name: "seeds leave grid", rows: []string{"11", "11"}, opts: []Option{WithStartDirections(Up, Left)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			grid := mustGrid(t, tt.rows...)
			result, err := Solve(context.Background(), grid, tt.opts...)
			if result != nil {
				t.Errorf("Expected no result, got cost %d", result.Cost)
			}
			if !errors.Is(err, ErrNoPath) {
				t.Fatalf("Expected ErrNoPath, got %v", err)
			}
			var noPath *NoPathError
			if !errors.As(err, &noPath) {
				t.Fatalf("Expected *NoPathError, got %T", err)
			}
			if noPath.Goal != grid.Goal() {
				t.Errorf("Expected goal %s in error, got %s", grid.Goal(), noPath.Goal)
			}
		})
	}
}

func TestSolve_CorridorExactlyReachable(t *testing.T) {
	grid := mustGrid(t, "11111")
	result, err := Solve(context.Background(), grid, WithMaxRun(4))
	if err != nil {
		t.Fatalf("Solve failed: %v", err)
	}
	if result.Cost != 4 {
		t.Errorf("Expected cost 4, got %d", result.Cost)
	}
}

func TestNewSolver_InvalidConfig(t *testing.T) {
	grid := mustGrid(t, "12", "34")

	tests := []struct {
		name  string
		opts  []Option
		field string
	}{
		{name: "negative max run", opts: []Option{WithMaxRun(-1)}, field: "max_run"},
		{name: "zero min run", opts: []Option{WithMinRun(0)}, field: "min_run"},
		{name: "min above max", opts: []Option{WithMaxRun(3), WithMinRun(4)}, field: "min_run"},
		{name: "no start directions", opts: []Option{WithStartDirections()}, field: "start_directions"},
		{name: "duplicate start", opts: []Option{WithStartDirections(Right, Right)}, field: "start_directions"},
		{name: "bogus start", opts: []Option{WithStartDirections(Direction(9))}, field: "start_directions"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSolver(grid, tt.opts...)
			if !errors.Is(err, ErrConfig) {
				t.Fatalf("Expected ErrConfig, got %v", err)
			}
			var cfgErr *ConfigError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("Expected *ConfigError, got %T", err)
			}
			if cfgErr.Field != tt.field {
				t.Errorf("Expected field %s, got %s", tt.field, cfgErr.Field)
			}
		})
	}

	if _, err := NewSolver(nil); !errors.Is(err, ErrInput) {
		t.Errorf("Expected ErrInput for nil grid, got %v", err)
	}
}

func TestSolver_StepPhases(t *testing.T) {
	grid := mustGrid(t, "123", "456", "789")
	s, err := NewSolver(grid)
	if err != nil {
		t.Fatalf("Failed to create solver: %v", err)
	}

	if s.Phase() != PhaseInit {
		t.Errorf("Expected init phase, got %s", s.Phase())
	}

	done, err := s.Step()
	if done || err != nil {
		t.Fatalf("Seeding step should not terminate, got done=%v err=%v", done, err)
	}
	if s.Phase() != PhaseRunning {
		t.Errorf("Expected running phase after seeding, got %s", s.Phase())
	}
	if s.Stats().Pending != 2 {
		t.Errorf("Expected 2 seeds pending, got %d", s.Stats().Pending)
	}

	steps := 0
	for !done {
		done, err = s.Step()
		steps++
		if steps > 1000 {
			t.Fatal("Solver did not terminate")
		}
	}
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if s.Phase() != PhaseGoalFound {
		t.Errorf("Expected goal_found phase, got %s", s.Phase())
	}
	if s.Result() == nil || s.Result().Cost != 20 {
		t.Errorf("Expected cost 20 (2+3+6+9), got %+v", s.Result())
	}

	done, err = s.Step()
	if !done || err != nil {
		t.Errorf("Steps after termination should be no-ops, got done=%v err=%v", done, err)
	}
}

func TestSolver_Cancelled(t *testing.T) {
	grid := mustGrid(t, referenceRows...)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s, err := NewSolver(grid)
	if err != nil {
		t.Fatalf("Failed to create solver: %v", err)
	}
	_, err = s.Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}
	if s.Phase() != PhaseCancelled {
		t.Errorf("Expected cancelled phase, got %s", s.Phase())
	}
}

func TestSolve_Deterministic(t *testing.T) {
	grid := mustGrid(t, referenceRows...)

	first, err := Solve(context.Background(), grid)
	if err != nil {
		t.Fatalf("Solve failed: %v", err)
	}
	for i := 0; i < 5; i++ {
		again, err := Solve(context.Background(), grid)
		if err != nil {
			t.Fatalf("Solve failed: %v", err)
		}
		if again.Cost != first.Cost {
			t.Errorf("Run %d: expected cost %d, got %d", i, first.Cost, again.Cost)
		}
		if len(again.Moves) != len(first.Moves) {
			t.Errorf("Run %d: expected identical path length", i)
		}
	}
}

func TestSolve_MonotonicInMaxRun(t *testing.T) {
	grid := mustGrid(t, referenceRows...)
	want := []int{133, 113, 102, 97, 92, 89, 86}

	prev := -1
	for i, expected := range want {
		maxRun := i + 1
		result, err := Solve(context.Background(), grid, WithMaxRun(maxRun))
		if err != nil {
			t.Fatalf("Solve with max run %d failed: %v", maxRun, err)
		}
		if result.Cost != expected {
			t.Errorf("Max run %d: expected cost %d, got %d", maxRun, expected, result.Cost)
		}
		if prev >= 0 && result.Cost > prev {
			t.Errorf("Cost increased from %d to %d when max run grew to %d", prev, result.Cost, maxRun)
		}
		if LongestRun(result.Moves) > maxRun {
			t.Errorf("Max run %d: path contains a run of %d", maxRun, LongestRun(result.Moves))
		}
		prev = result.Cost
	}
}

func randomGrid(rng *rand.Rand, width, height, minCost int) []string {
	rows := make([]string, height)
	for y := range rows {
		row := make([]byte, width)
		for x := range row {
			row[x] = byte('0' + minCost + rng.Intn(10-minCost))
		}
		rows[y] = string(row)
	}
	return rows
}

func TestSolve_MatchesBruteForce(t *testing.T) {
	rng := rand.New(rand.NewSource(17))
	ctx := context.Background()

	for trial := 0; trial < 150; trial++ {
		width, height := 1+rng.Intn(6), 1+rng.Intn(6)
		minCost := 1
		if trial%3 == 0 {
			minCost = 0
		}
		rows := randomGrid(rng, width, height, minCost)
		grid := mustGrid(t, rows...)

		for maxRun := 0; maxRun <= 4; maxRun++ {
			for minRun := 1; minRun <= maxRun || minRun == 1; minRun++ {
				opts := []Option{WithMaxRun(maxRun), WithMinRun(minRun)}

				got, gotErr := Solve(ctx, grid, opts...)
				want, wantErr := BruteForce(ctx, grid, opts...)

				if errors.Is(wantErr, ErrNoPath) {
					if !errors.Is(gotErr, ErrNoPath) {
						t.Errorf("%v max=%d min=%d: brute force found no path, solver returned %v", rows, maxRun, minRun, gotErr)
					}
					continue
				}
				if wantErr != nil {
					t.Fatalf("%v: brute force failed: %v", rows, wantErr)
				}
				if gotErr != nil {
					t.Errorf("%v max=%d min=%d: solver failed: %v, brute force cost %d", rows, maxRun, minRun, gotErr, want.Cost)
					continue
				}
				if got.Cost != want.Cost {
					t.Errorf("%v max=%d min=%d: solver cost %d, brute force cost %d", rows, maxRun, minRun, got.Cost, want.Cost)
				}

				cfg := NewConfig(opts...)
				for _, moves := range [][]Direction{got.Moves, want.Moves} {
					cost, err := ValidatePath(grid, cfg, moves)
					if err != nil {
						t.Errorf("%v max=%d min=%d: invalid path %v: %v", rows, maxRun, minRun, moves, err)
					} else if cost != want.Cost {
						t.Errorf("%v: path cost %d differs from minimum %d", rows, cost, want.Cost)
					}
				}
			}
		}
	}
}

func TestSolve_SharedGridConcurrently(t *testing.T) {
	grid := mustGrid(t, referenceRows...)

	results := make(chan int, 8)
	for i := 0; i < 8; i++ {
		go func() {
			r, err := Solve(context.Background(), grid)
			if err != nil {
				results <- -1
				return
			}
			results <- r.Cost
		}()
	}
	for i := 0; i < 8; i++ {
		if cost := <-results; cost != 102 {
			t.Errorf("Concurrent search returned %d, want 102", cost)
		}
	}
}
