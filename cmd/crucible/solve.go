package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/wricardo/crucible/search/engine"
	"github.com/wricardo/crucible/search/puzzle"
)

// solveOutput is the --json rendering of a solve
type solveOutput struct {
	Name            string             `json:"name,omitempty"`
	Width           int                `json:"width"`
	Height          int                `json:"height"`
	Config          engine.Config      `json:"config"`
	Solved          bool               `json:"solved"`
	Cost            *int               `json:"cost,omitempty"`
	Moves           []engine.Direction `json:"moves,omitempty"`
	Path            []engine.Position  `json:"path,omitempty"`
	Stats           engine.Stats       `json:"stats"`
	ExpectedCost    *int               `json:"expected_cost,omitempty"`
	MatchesExpected *bool              `json:"matches_expected,omitempty"`
	Duration        string             `json:"duration"`
}

func solveCommand() *cli.Command {
	return &cli.Command{
		Name:      "solve",
		Usage:     "solve a grid file (digit rows) or puzzle JSON; '-' or no argument reads stdin",
		ArgsUsage: "[file|-]",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "max-run", Value: engine.DefaultMaxRun, Usage: "longest run of moves in one direction"},
			&cli.IntFlag{Name: "min-run", Value: engine.DefaultMinRun, Usage: "shortest run before a turn or the goal"},
			&cli.StringSliceFlag{Name: "start", Usage: "starting headings (repeatable; default right and down)"},
			&cli.BoolFlag{Name: "origin-cost", Usage: "count the start cell's cost"},
			&cli.BoolFlag{Name: "json", Usage: "print the result as JSON"},
			&cli.BoolFlag{Name: "render", Usage: "draw the path over the grid"},
			&cli.DurationFlag{Name: "timeout", Value: 30 * time.Second, Usage: "abandon the search after this long"},
		},
		Action: runSolve,
	}
}

func runSolve(ctx context.Context, cmd *cli.Command) error {
	name := cmd.Args().First()
	grid, cfg, p, err := loadInput(cmd.Root().Reader, name)
	if err != nil {
		return err
	}

	cfg, err = applyFlags(cmd, cfg)
	if err != nil {
		return err
	}
	// Overridden settings invalidate the stored answer
	if p != nil && anySolveFlagSet(cmd) {
		p.ExpectedCost = nil
	}

	if timeout := cmd.Duration("timeout"); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	solver, err := engine.NewSolver(grid, engine.WithConfig(cfg))
	if err != nil {
		return err
	}

	start := time.Now()
	result, err := solver.Run(ctx)
	elapsed := time.Since(start)

	if err != nil && !errors.Is(err, engine.ErrNoPath) {
		return err
	}

	out := solveOutput{
		Width:    grid.Width(),
		Height:   grid.Height(),
		Config:   solver.Config(),
		Stats:    solver.Stats(),
		Duration: elapsed.Round(time.Microsecond).String(),
	}
	if p != nil {
		out.Name = p.Name
		out.ExpectedCost = p.ExpectedCost
	}
	if result != nil {
		cost := result.Cost
		out.Solved = true
		out.Cost = &cost
		out.Moves = result.Moves
		out.Path = result.Path
		out.Stats = result.Stats
		if out.ExpectedCost != nil {
			matches := cost == *out.ExpectedCost
			out.MatchesExpected = &matches
		}
	}

	w := cmd.Root().Writer
	if cmd.Bool("json") {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if encErr := enc.Encode(out); encErr != nil {
			return encErr
		}
	} else {
		printSolve(w, grid, out, cmd.Bool("render"))
	}

	if err != nil {
		return err
	}
	if out.MatchesExpected != nil && !*out.MatchesExpected {
		return fmt.Errorf("cost %d does not match expected %d", *out.Cost, *out.ExpectedCost)
	}
	return nil
}

// loadInput reads a puzzle JSON document or a plain digit grid
func loadInput(stdin io.Reader, name string) (*engine.CostGrid, engine.Config, *puzzle.Puzzle, error) {
	var data []byte
	var err error
	if name == "" || name == "-" {
		if stdin == nil {
			stdin = os.Stdin
		}
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(name)
	}
	if err != nil {
		return nil, engine.Config{}, nil, fmt.Errorf("failed to read input: %w", err)
	}

	if strings.HasPrefix(strings.TrimSpace(string(data)), "{") {
		var p puzzle.Puzzle
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, engine.Config{}, nil, fmt.Errorf("failed to parse puzzle: %w", err)
		}
		if err := puzzle.Validate(&p); err != nil {
			return nil, engine.Config{}, nil, fmt.Errorf("%w: %w", puzzle.ErrInvalidPuzzle, err)
		}
		grid, err := p.Grid()
		if err != nil {
			return nil, engine.Config{}, nil, err
		}
		cfg, err := p.Config()
		if err != nil {
			return nil, engine.Config{}, nil, err
		}
		return grid, cfg, &p, nil
	}

	grid, err := engine.ParseCostGrid(strings.NewReader(string(data)))
	if err != nil {
		return nil, engine.Config{}, nil, err
	}
	return grid, engine.DefaultConfig(), nil, nil
}

var solveFlags = []string{"max-run", "min-run", "start", "origin-cost"}

func anySolveFlagSet(cmd *cli.Command) bool {
	for _, name := range solveFlags {
		if cmd.IsSet(name) {
			return true
		}
	}
	return false
}

// applyFlags layers explicitly set flags over cfg
func applyFlags(cmd *cli.Command, cfg engine.Config) (engine.Config, error) {
	if cmd.IsSet("max-run") {
		cfg.MaxRun = cmd.Int("max-run")
	}
	if cmd.IsSet("min-run") {
		cfg.MinRun = cmd.Int("min-run")
	}
	if cmd.IsSet("start") {
		var names []string
		for _, v := range cmd.StringSlice("start") {
			names = append(names, strings.Split(v, ",")...)
		}
		dirs, err := engine.ParseDirections(names)
		if err != nil {
			return cfg, &engine.ConfigError{Field: "start", Reason: err.Error()}
		}
		cfg.StartDirections = dirs
	}
	if cmd.IsSet("origin-cost") {
		cfg.OriginCostCounted = cmd.Bool("origin-cost")
	}
	return cfg, nil
}

func printSolve(w io.Writer, grid *engine.CostGrid, out solveOutput, render bool) {
	if out.Name != "" {
		fmt.Fprintf(w, "Puzzle: %s\n", out.Name)
	}
	fmt.Fprintf(w, "Grid: %dx%d, max run %d, min run %d\n", out.Width, out.Height, out.Config.MaxRun, out.Config.MinRun)

	if !out.Solved {
		fmt.Fprintf(w, "No path found (%d states expanded)\n", out.Stats.Expanded)
		return
	}

	fmt.Fprintf(w, "Cost: %d\n", *out.Cost)
	if out.MatchesExpected != nil {
		mark := "✅"
		if !*out.MatchesExpected {
			mark = "❌"
		}
		fmt.Fprintf(w, "Expected: %d %s\n", *out.ExpectedCost, mark)
	}
	fmt.Fprintf(w, "Moves: %d (%s)\n", len(out.Moves), compactMoves(out.Moves))
	fmt.Fprintf(w, "Longest run: %d\n", engine.LongestRun(out.Moves))
	fmt.Fprintf(w, "States: %d expanded, %d pushed, %d discarded\n", out.Stats.Expanded, out.Stats.Pushed, out.Stats.Discarded)
	fmt.Fprintf(w, "Time: %s\n", out.Duration)

	if render {
		fmt.Fprintln(w)
		fmt.Fprint(w, renderPath(grid, out.Path))
	}
}

// compactMoves groups consecutive moves: "right x2, down x1"
func compactMoves(moves []engine.Direction) string {
	if len(moves) == 0 {
		return "none"
	}
	var parts []string
	count := 1
	for i := 1; i <= len(moves); i++ {
		if i < len(moves) && moves[i] == moves[i-1] {
			count++
			continue
		}
		parts = append(parts, fmt.Sprintf("%s x%d", moves[i-1], count))
		count = 1
	}
	return strings.Join(parts, ", ")
}

// renderPath draws the grid with path cells replaced by '#'
func renderPath(grid *engine.CostGrid, path []engine.Position) string {
	rows := grid.Rows()
	cells := make([][]byte, len(rows))
	for y, row := range rows {
		cells[y] = []byte(row)
	}
	for _, p := range path {
		if grid.InBounds(p) {
			cells[p.Y][p.X] = '#'
		}
	}

	var b strings.Builder
	for _, row := range cells {
		b.Write(row)
		b.WriteByte('\n')
	}
	return b.String()
}
