package engine

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestValidatePath(t *testing.T) {
	grid, err := NewCostGrid([]string{"19", "11"})
	if err != nil {
		t.Fatalf("Failed to build grid: %v", err)
	}

	cost, err := ValidatePath(grid, DefaultConfig(), []Direction{Down, Right})
	if err != nil {
		t.Fatalf("Expected valid path, got %v", err)
	}
	if cost != 2 {
		t.Errorf("Expected cost 2, got %d", cost)
	}

	cost, err = ValidatePath(grid, DefaultConfig(), []Direction{Right, Down})
	if err != nil {
		t.Fatalf("Expected valid path, got %v", err)
	}
	if cost != 10 {
		t.Errorf("Expected cost 10, got %d", cost)
	}

	cost, err = ValidatePath(grid, NewConfig(WithOriginCost(true)), []Direction{Down, Right})
	if err != nil {
		t.Fatalf("Expected valid path, got %v", err)
	}
	if cost != 3 {
		t.Errorf("Expected cost 3 with origin counted, got %d", cost)
	}
}

func TestValidatePath_Violations(t *testing.T) {
	square, _ := NewCostGrid([]string{"111", "111", "111"})
	line, _ := NewCostGrid([]string{"11111"})

	tests := []struct {
		name  string
		grid  *CostGrid
		cfg   Config
		moves []Direction
		want  string
	}{
		{"reversal", square, DefaultConfig(), []Direction{Right, Left, Right, Right, Down, Down}, "reverses"},
		{"run too long", line, DefaultConfig(), []Direction{Right, Right, Right, Right}, "past 3"},
		{"turn too early", square, NewConfig(WithMinRun(2)), []Direction{Right, Down, Right, Down}, "minimum is 2"},
		{"leaves grid", square, DefaultConfig(), []Direction{Down, Down, Down}, "leaves the grid"},
		{"stops short", square, DefaultConfig(), []Direction{Down}, "goal is"},
		{"bad first move", square, NewConfig(WithStartDirections(Right)), []Direction{Down, Down, Right, Right}, "not a start direction"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ValidatePath(tt.grid, tt.cfg, tt.moves)
			if !errors.Is(err, ErrInvalidPath) {
				t.Fatalf("Expected ErrInvalidPath, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestPathFromMoves(t *testing.T) {
	path := PathFromMoves([]Direction{Right, Right, Down})
	want := []Position{{0, 0}, {1, 0}, {2, 0}, {2, 1}}
	if len(path) != len(want) {
		t.Fatalf("Expected %d positions, got %d", len(want), len(path))
	}
	for i := range want {
		if path[i] != want[i] {
			t.Errorf("Expected %v at %d, got %v", want[i], i, path[i])
		}
	}
}

func TestLongestRun(t *testing.T) {
	if got := LongestRun([]Direction{Right, Right, Down, Down, Down, Right}); got != 3 {
		t.Errorf("Expected longest run 3, got %d", got)
	}
	if got := LongestRun(nil); got != 0 {
		t.Errorf("Expected 0 for no moves, got %d", got)
	}
}

func TestBruteForce_TooLarge(t *testing.T) {
	rows := make([]string, 11)
	for i := range rows {
		rows[i] = "1111111111"
	}
	grid, err := NewCostGrid(rows)
	if err != nil {
		t.Fatalf("Failed to build grid: %v", err)
	}
	if _, err := BruteForce(context.Background(), grid); !errors.Is(err, ErrInput) {
		t.Errorf("Expected ErrInput for oversized grid, got %v", err)
	}
}
