package engine

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

// MaxRowBytes bounds a single line read by ParseCostGrid
const MaxRowBytes = 1 << 20

// CostGrid is an immutable table of per-cell entry costs
type CostGrid struct {
	width  int
	height int
	cells  []uint8
	min    int
}

// NewCostGrid builds a grid from equal-length rows of ASCII digits
func NewCostGrid(rows []string) (*CostGrid, error) {
	if len(rows) == 0 {
		return nil, &InputError{Reason: "grid has no rows"}
	}

	width := len(rows[0])
	if width == 0 {
		return nil, &InputError{Row: 1, Reason: "grid has no columns"}
	}

	g := &CostGrid{
		width:  width,
		height: len(rows),
		cells:  make([]uint8, 0, width*len(rows)),
		min:    MaxCellCost,
	}

	for i, row := range rows {
		if len(row) != width {
			return nil, &InputError{
				Row:    i + 1,
				Reason: fmt.Sprintf("ragged row: expected %d characters, got %d", width, len(row)),
			}
		}
		for j := 0; j < len(row); j++ {
			c := row[j]
			if c < '0' || c > '9' {
				return nil, &InputError{Row: i + 1, Col: j + 1, Reason: fmt.Sprintf("non-digit symbol %q", c)}
			}
			cost := c - '0'
			g.cells = append(g.cells, cost)
			if int(cost) < g.min {
				g.min = int(cost)
			}
		}
	}

	return g, nil
}

// ParseCostGrid reads one grid row per line. Carriage returns and trailing
// blank lines are ignored; a blank line between rows is an error.
func ParseCostGrid(r io.Reader) (*CostGrid, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), MaxRowBytes)
	var rows []string
	for scanner.Scan() {
		rows = append(rows, strings.TrimRight(scanner.Text(), "\r"))
	}
	if err := scanner.Err(); err != nil {
		if errors.Is(err, bufio.ErrTooLong) {
			return nil, &InputError{Row: len(rows) + 1, Reason: fmt.Sprintf("row longer than %d bytes", MaxRowBytes)}
		}
		return nil, fmt.Errorf("failed to read grid: %w", err)
	}

	for len(rows) > 0 && strings.TrimSpace(rows[len(rows)-1]) == "" {
		rows = rows[:len(rows)-1]
	}

	return NewCostGrid(rows)
}

// Width returns the number of columns
func (g *CostGrid) Width() int { return g.width }

// Height returns the number of rows
func (g *CostGrid) Height() int { return g.height }

// Goal returns the bottom-right corner
func (g *CostGrid) Goal() Position {
	return Position{X: g.width - 1, Y: g.height - 1}
}

// InBounds reports whether p lies inside the grid
func (g *CostGrid) InBounds(p Position) bool {
	return p.X >= 0 && p.Y >= 0 && p.X < g.width && p.Y < g.height
}

// Cost returns the cost of entering (x, y)
func (g *CostGrid) Cost(x, y int) (int, error) {
	p := Position{X: x, Y: y}
	if !g.InBounds(p) {
		return 0, &InputError{Reason: fmt.Sprintf("cell %s outside %dx%d grid", p, g.width, g.height)}
	}
	return g.costAt(p), nil
}

// costAt skips the bounds check; callers filter positions first.
func (g *CostGrid) costAt(p Position) int {
	return int(g.cells[p.Y*g.width+p.X])
}

// MinCost returns the smallest cell cost in the grid
func (g *CostGrid) MinCost() int { return g.min }

// Rows renders the grid back into its textual rows
func (g *CostGrid) Rows() []string {
	rows := make([]string, g.height)
	var b strings.Builder
	for y := 0; y < g.height; y++ {
		b.Reset()
		for x := 0; x < g.width; x++ {
			b.WriteByte('0' + g.cells[y*g.width+x])
		}
		rows[y] = b.String()
	}
	return rows
}

// String renders the grid one row per line
func (g *CostGrid) String() string {
	return strings.Join(g.Rows(), "\n")
}
