package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/wricardo/crucible/search/engine"
	"github.com/wricardo/crucible/search/puzzle"
)

// maxVerifySide keeps generated grids inside engine.MaxBruteForceCells
const maxVerifySide = 10

func verifyCommand() *cli.Command {
	return &cli.Command{
		Name:  "verify",
		Usage: "cross-check the heap search against exhaustive search on random small grids",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "count", Value: 200, Usage: "number of random grids"},
			&cli.IntFlag{Name: "max-side", Value: 6, Usage: "largest grid side (at most 10)"},
			&cli.IntFlag{Name: "max-run", Value: 4, Usage: "largest max run to draw"},
			&cli.IntFlag{Name: "seed", Value: 1, Usage: "random seed"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			opts := verifyOptions{
				Count:   cmd.Int("count"),
				MaxSide: cmd.Int("max-side"),
				MaxRun:  cmd.Int("max-run"),
				Seed:    int64(cmd.Int("seed")),
			}
			return runVerify(ctx, cmd.Root().Writer, opts)
		},
	}
}

type verifyOptions struct {
	Count   int
	MaxSide int
	MaxRun  int
	Seed    int64
}

// verifyCase is one generated grid and its settings
type verifyCase struct {
	Rows []string
	Cfg  engine.Config
}

func runVerify(ctx context.Context, w io.Writer, opts verifyOptions) error {
	if opts.MaxSide < 1 || opts.MaxSide > maxVerifySide {
		return fmt.Errorf("max-side must be between 1 and %d, got %d", maxVerifySide, opts.MaxSide)
	}
	if opts.MaxRun < 1 {
		return fmt.Errorf("max-run must be positive, got %d", opts.MaxRun)
	}

	ref := puzzle.Reference()
	if err := verifyReference(ctx, ref); err != nil {
		fmt.Fprintf(w, "❌ %s: %v\n", ref.Name, err)
		return err
	}
	fmt.Fprintf(w, "✅ %s: cost %d\n", ref.Name, *ref.ExpectedCost)

	rng := rand.New(rand.NewSource(opts.Seed))
	var failures []string
	solved, noPath := 0, 0
	for i := 0; i < opts.Count; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		c := randomCase(rng, opts)
		found, err := compareCase(ctx, c)
		if err != nil {
			failures = append(failures, fmt.Sprintf("case %d (max run %d, min run %d, origin %t):\n%s\n  %v",
				i, c.Cfg.MaxRun, c.Cfg.MinRun, c.Cfg.OriginCostCounted, strings.Join(c.Rows, "\n"), err))
			continue
		}
		if found {
			solved++
		} else {
			noPath++
		}
	}

	fmt.Fprintf(w, "Checked %d grids: %d solved, %d without a path, %d mismatches\n", opts.Count, solved, noPath, len(failures))
	for _, f := range failures {
		fmt.Fprintf(w, "❌ %s\n", f)
	}
	if len(failures) > 0 {
		return fmt.Errorf("%d of %d grids disagree with exhaustive search", len(failures), opts.Count)
	}
	return nil
}

func verifyReference(ctx context.Context, p *puzzle.Puzzle) error {
	grid, err := p.Grid()
	if err != nil {
		return err
	}
	cfg, err := p.Config()
	if err != nil {
		return err
	}
	result, err := engine.Solve(ctx, grid, engine.WithConfig(cfg))
	if err != nil {
		return err
	}
	if result.Cost != *p.ExpectedCost {
		return fmt.Errorf("expected cost %d, got %d", *p.ExpectedCost, result.Cost)
	}
	return nil
}

func randomCase(rng *rand.Rand, opts verifyOptions) verifyCase {
	width := 1 + rng.Intn(opts.MaxSide)
	height := 1 + rng.Intn(opts.MaxSide)

	rows := make([]string, height)
	for y := range rows {
		row := make([]byte, width)
		for x := range row {
			row[x] = byte('1' + rng.Intn(9))
		}
		rows[y] = string(row)
	}

	cfg := engine.DefaultConfig()
	cfg.MaxRun = 1 + rng.Intn(opts.MaxRun)
	cfg.MinRun = 1 + rng.Intn(cfg.MaxRun)
	cfg.OriginCostCounted = rng.Intn(2) == 0
	return verifyCase{Rows: rows, Cfg: cfg}
}

// compareCase reports whether a path exists, or an error when the two
// searches disagree or the returned path does not replay to its cost
func compareCase(ctx context.Context, c verifyCase) (bool, error) {
	grid, err := engine.NewCostGrid(c.Rows)
	if err != nil {
		return false, err
	}

	got, err := engine.Solve(ctx, grid, engine.WithConfig(c.Cfg))
	gotNoPath := errors.Is(err, engine.ErrNoPath)
	if err != nil && !gotNoPath {
		return false, fmt.Errorf("heap search: %w", err)
	}

	want, err := engine.BruteForce(ctx, grid, engine.WithConfig(c.Cfg))
	wantNoPath := errors.Is(err, engine.ErrNoPath)
	if err != nil && !wantNoPath {
		return false, fmt.Errorf("exhaustive search: %w", err)
	}

	switch {
	case gotNoPath && wantNoPath:
		return false, nil
	case gotNoPath:
		return false, fmt.Errorf("heap search found no path, exhaustive found cost %d", want.Cost)
	case wantNoPath:
		return false, fmt.Errorf("heap search found cost %d, exhaustive found no path", got.Cost)
	case got.Cost != want.Cost:
		return false, fmt.Errorf("heap search cost %d, exhaustive cost %d", got.Cost, want.Cost)
	}

	replayed, err := engine.ValidatePath(grid, c.Cfg, got.Moves)
	if err != nil {
		return false, fmt.Errorf("returned path is invalid: %w", err)
	}
	if replayed != got.Cost {
		return false, fmt.Errorf("returned path replays to %d, reported %d", replayed, got.Cost)
	}
	return true, nil
}
