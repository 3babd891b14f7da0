package engine

import (
	"errors"
	"strings"
	"testing"
)

func TestNewCostGrid(t *testing.T) {
	grid, err := NewCostGrid([]string{
		"123",
		"456",
	})
	if err != nil {
		t.Fatalf("Failed to create grid: %v", err)
	}

	if grid.Width() != 3 || grid.Height() != 2 {
		t.Errorf("Expected 3x2 grid, got %dx%d", grid.Width(), grid.Height())
	}
	if grid.Goal() != (Position{X: 2, Y: 1}) {
		t.Errorf("Expected goal (2,1), got %s", grid.Goal())
	}

	tests := []struct {
		x, y int
		want int
	}{
		{0, 0, 1},
		{2, 0, 3},
		{0, 1, 4},
		{2, 1, 6},
	}
	for _, tt := range tests {
		got, err := grid.Cost(tt.x, tt.y)
		if err != nil {
			t.Errorf("Cost(%d,%d) returned error: %v", tt.x, tt.y, err)
			continue
		}
		if got != tt.want {
			t.Errorf("Cost(%d,%d) = %d, want %d", tt.x, tt.y, got, tt.want)
		}
	}

	if grid.MinCost() != 1 {
		t.Errorf("Expected min cost 1, got %d", grid.MinCost())
	}
}

func TestNewCostGrid_InvalidInput(t *testing.T) {
	tests := []struct {
		name    string
		rows    []string
		wantRow int
		wantCol int
	}{
		{name: "no rows", rows: nil},
		{name: "empty row", rows: []string{""}, wantRow: 1},
		{name: "ragged", rows: []string{"123", "45"}, wantRow: 2},
		{name: "non-digit", rows: []string{"123", "4x6"}, wantRow: 2, wantCol: 2},
		{name: "space", rows: []string{"1 3"}, wantRow: 1, wantCol: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewCostGrid(tt.rows)
			if err == nil {
				t.Fatal("Expected error for invalid grid")
			}
			if !errors.Is(err, ErrInput) {
				t.Errorf("Expected ErrInput, got %v", err)
			}

			var inputErr *InputError
			if !errors.As(err, &inputErr) {
				t.Fatalf("Expected *InputError, got %T", err)
			}
			if inputErr.Row != tt.wantRow || inputErr.Col != tt.wantCol {
				t.Errorf("Expected location row %d col %d, got row %d col %d",
					tt.wantRow, tt.wantCol, inputErr.Row, inputErr.Col)
			}
		})
	}
}

func TestCostGrid_CostOutOfRange(t *testing.T) {
	grid, err := NewCostGrid([]string{"12", "34"})
	if err != nil {
		t.Fatalf("Failed to create grid: %v", err)
	}

	for _, p := range []Position{{-1, 0}, {0, -1}, {2, 0}, {0, 2}} {
		if _, err := grid.Cost(p.X, p.Y); !errors.Is(err, ErrInput) {
			t.Errorf("Expected ErrInput for %s, got %v", p, err)
		}
	}
}

func TestParseCostGrid(t *testing.T) {
	input := "241\r\n321\r\n325\r\n\r\n\n"
	grid, err := ParseCostGrid(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Failed to parse grid: %v", err)
	}

	want := []string{"241", "321", "325"}
	got := grid.Rows()
	if len(got) != len(want) {
		t.Fatalf("Expected %d rows, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Row %d: expected %q, got %q", i, want[i], got[i])
		}
	}

	if grid.String() != "241\n321\n325" {
		t.Errorf("Unexpected string form %q", grid.String())
	}
}

func TestParseCostGrid_BlankLineBetweenRows(t *testing.T) {
	_, err := ParseCostGrid(strings.NewReader("12\n\n34\n"))
	if !errors.Is(err, ErrInput) {
		t.Errorf("Expected ErrInput for blank interior line, got %v", err)
	}
}

func TestParseCostGrid_LongRows(t *testing.T) {
	wide := strings.Repeat("1", 70000)
	grid, err := ParseCostGrid(strings.NewReader(wide + "\n" + wide + "\n"))
	if err != nil {
		t.Fatalf("Failed to parse wide grid: %v", err)
	}
	if grid.Width() != 70000 {
		t.Errorf("Expected width 70000, got %d", grid.Width())
	}

	_, err = ParseCostGrid(strings.NewReader("11\n" + strings.Repeat("1", MaxRowBytes+1) + "\n"))
	if !errors.Is(err, ErrInput) {
		t.Fatalf("Expected ErrInput for oversized row, got %v", err)
	}
	var inputErr *InputError
	if !errors.As(err, &inputErr) || inputErr.Row != 2 {
		t.Errorf("Expected error on row 2, got %v", err)
	}
}

func TestParseCostGrid_Empty(t *testing.T) {
	_, err := ParseCostGrid(strings.NewReader("\n\n"))
	if !errors.Is(err, ErrInput) {
		t.Errorf("Expected ErrInput for empty input, got %v", err)
	}
}

func TestCostGrid_MinCostZero(t *testing.T) {
	grid, err := NewCostGrid([]string{"10", "99"})
	if err != nil {
		t.Fatalf("Failed to create grid: %v", err)
	}
	if grid.MinCost() != 0 {
		t.Errorf("Expected min cost 0, got %d", grid.MinCost())
	}
	if h := heuristic(grid, Position{}); h != 0 {
		t.Errorf("Expected heuristic disabled on zero-cost grid, got %d", h)
	}
}
