package engine

import (
	"fmt"
	"strings"
)

// Direction is a heading on the grid
type Direction uint8

const (
	Up Direction = iota
	Down
	Left
	Right

	// Solver defaults
	DefaultMaxRun = 3
	DefaultMinRun = 1

	// Largest cost a single cell may carry
	MaxCellCost = 9
)

// directionTable gives, for each direction, its unit offset, its opposite and
// its two perpendiculars.
var directionTable = [...]struct {
	name     string
	dx, dy   int
	opposite Direction
	turns    [2]Direction
}{
	Up:    {name: "up", dx: 0, dy: -1, opposite: Down, turns: [2]Direction{Left, Right}},
	Down:  {name: "down", dx: 0, dy: 1, opposite: Up, turns: [2]Direction{Left, Right}},
	Left:  {name: "left", dx: -1, dy: 0, opposite: Right, turns: [2]Direction{Up, Down}},
	Right: {name: "right", dx: 1, dy: 0, opposite: Left, turns: [2]Direction{Up, Down}},
}

// AllDirections lists every direction in table order
var AllDirections = []Direction{Up, Down, Left, Right}

// Valid reports whether d is one of the four directions
func (d Direction) Valid() bool {
	return int(d) < len(directionTable)
}

// Offset returns the unit step for d
func (d Direction) Offset() (dx, dy int) {
	e := directionTable[d]
	return e.dx, e.dy
}

// Opposite returns the direction a path may never reverse into
func (d Direction) Opposite() Direction {
	return directionTable[d].opposite
}

// Turns returns the two directions perpendicular to d
func (d Direction) Turns() [2]Direction {
	return directionTable[d].turns
}

func (d Direction) String() string {
	if !d.Valid() {
		return fmt.Sprintf("Direction(%d)", uint8(d))
	}
	return directionTable[d].name
}

// MarshalText encodes the direction as its lowercase name
func (d Direction) MarshalText() ([]byte, error) {
	if !d.Valid() {
		return nil, fmt.Errorf("invalid direction %d", uint8(d))
	}
	return []byte(d.String()), nil
}

// UnmarshalText decodes a direction name
func (d *Direction) UnmarshalText(text []byte) error {
	parsed, err := ParseDirection(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// ParseDirection accepts up/down/left/right (case-insensitive) and the
// single-letter forms u/d/l/r.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "up", "u":
		return Up, nil
	case "down", "d":
		return Down, nil
	case "left", "l":
		return Left, nil
	case "right", "r":
		return Right, nil
	}
	return 0, fmt.Errorf("unknown direction %q", s)
}

// ParseDirections parses a list of direction names
func ParseDirections(names []string) ([]Direction, error) {
	dirs := make([]Direction, 0, len(names))
	for _, name := range names {
		d, err := ParseDirection(name)
		if err != nil {
			return nil, err
		}
		dirs = append(dirs, d)
	}
	return dirs, nil
}

// Position represents x,y coordinates; x is the column and y the row
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Step returns the position one move away in direction d
func (p Position) Step(d Direction) Position {
	dx, dy := d.Offset()
	return Position{X: p.X + dx, Y: p.Y + dy}
}

func (p Position) String() string {
	return fmt.Sprintf("(%d,%d)", p.X, p.Y)
}

// StateKey identifies a state in the closed set
type StateKey struct {
	Pos     Position
	Heading Direction
	Run     int
}

// State is a node of the augmented search space
type State struct {
	Pos     Position
	Heading Direction
	Run     int

	// G is the accumulated cost of entering every cell since the start
	G int
	// H is the heuristic estimate of the remaining cost
	H int
}

// Key returns the closed-set key for s
func (s State) Key() StateKey {
	return StateKey{Pos: s.Pos, Heading: s.Heading, Run: s.Run}
}

// F is the frontier priority g + h
func (s State) F() int {
	return s.G + s.H
}
