package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/urfave/cli/v3"

	"github.com/wricardo/crucible/search/engine"
	"github.com/wricardo/crucible/search/puzzle"
)

func analyzeCommand() *cli.Command {
	return &cli.Command{
		Name:      "analyze",
		Usage:     "print cost statistics and search effort for every puzzle in a directory",
		ArgsUsage: "[dir]",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return runAnalyze(ctx, cmd.Root().Writer, puzzleDirArg(cmd))
		},
	}
}

func runAnalyze(ctx context.Context, w io.Writer, dir string) error {
	manager, err := puzzle.NewManager(dir, nil)
	if err != nil {
		return err
	}
	infos, err := manager.ListPuzzles()
	if err != nil {
		return err
	}

	for _, info := range infos {
		fmt.Fprintf(w, "\n=== Analyzing %s ===\n", info.Filename)
		p, err := manager.LoadPuzzle(info.PuzzleID)
		if err != nil {
			fmt.Fprintf(w, "Error loading puzzle: %v\n", err)
			continue
		}
		analyzePuzzle(ctx, w, p)
	}
	return nil
}

// Analysis summarizes one puzzle
type Analysis struct {
	Width, Height int
	MinCell       int
	MaxCell       int
	MeanCell      float64
	// LowerBound is the Manhattan distance times the cheapest cell
	LowerBound int
	Config     engine.Config

	Cost        int
	Solved      bool
	Moves       int
	LongestRun  int
	Stats       engine.Stats
	Unlimited   int
	UnlimitedOK bool
}

func analyze(ctx context.Context, p *puzzle.Puzzle) (*Analysis, error) {
	grid, err := p.Grid()
	if err != nil {
		return nil, err
	}
	cfg, err := p.Config()
	if err != nil {
		return nil, err
	}

	a := &Analysis{
		Width:   grid.Width(),
		Height:  grid.Height(),
		MinCell: grid.MinCost(),
		Config:  cfg,
	}

	total := 0
	for y := 0; y < grid.Height(); y++ {
		for x := 0; x < grid.Width(); x++ {
			c, _ := grid.Cost(x, y)
			total += c
			if c > a.MaxCell {
				a.MaxCell = c
			}
		}
	}
	a.MeanCell = float64(total) / float64(grid.Width()*grid.Height())
	a.LowerBound = engine.ManhattanDistance(engine.Position{}, grid.Goal()) * a.MinCell

	result, err := engine.Solve(ctx, grid, engine.WithConfig(cfg))
	switch {
	case errors.Is(err, engine.ErrNoPath):
	case err != nil:
		return nil, err
	default:
		a.Solved = true
		a.Cost = result.Cost
		a.Moves = len(result.Moves)
		a.LongestRun = engine.LongestRun(result.Moves)
		a.Stats = result.Stats
	}

	// The same grid with runs effectively unbounded shows what the
	// constraint costs
	free := cfg
	free.MaxRun = max(grid.Width(), grid.Height(), cfg.MaxRun)
	if unlimited, err := engine.Solve(ctx, grid, engine.WithConfig(free)); err == nil {
		a.Unlimited = unlimited.Cost
		a.UnlimitedOK = true
	}
	return a, nil
}

func analyzePuzzle(ctx context.Context, w io.Writer, p *puzzle.Puzzle) {
	a, err := analyze(ctx, p)
	if err != nil {
		fmt.Fprintf(w, "Error analyzing puzzle: %v\n", err)
		return
	}

	fmt.Fprintf(w, "Name: %s\n", p.Name)
	fmt.Fprintf(w, "Grid Size: %d x %d\n", a.Width, a.Height)
	fmt.Fprintf(w, "Max Run: %d, Min Run: %d\n", a.Config.MaxRun, a.Config.MinRun)
	fmt.Fprintf(w, "Cell Costs: min %d, max %d, mean %.2f\n", a.MinCell, a.MaxCell, a.MeanCell)
	fmt.Fprintf(w, "Lower Bound: %d\n", a.LowerBound)

	if !a.Solved {
		fmt.Fprintf(w, "⚠️  No path exists under these settings\n")
		return
	}

	fmt.Fprintf(w, "Optimal Cost: %d (%d moves, longest run %d)\n", a.Cost, a.Moves, a.LongestRun)
	fmt.Fprintf(w, "Search: %d expanded, %d pushed, %d discarded\n", a.Stats.Expanded, a.Stats.Pushed, a.Stats.Discarded)
	if a.UnlimitedOK {
		fmt.Fprintf(w, "Unconstrained Cost: %d (run limit adds %d)\n", a.Unlimited, a.Cost-a.Unlimited)
	}
	if p.ExpectedCost != nil {
		if *p.ExpectedCost == a.Cost {
			fmt.Fprintf(w, "✅ Matches expected cost %d\n", *p.ExpectedCost)
		} else {
			fmt.Fprintf(w, "❌ Expected cost %d\n", *p.ExpectedCost)
		}
	}
}
