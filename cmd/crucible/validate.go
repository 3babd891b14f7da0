package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/wricardo/crucible/search/engine"
	"github.com/wricardo/crucible/search/puzzle"
)

// ValidationResult captures the outcome of validating a single puzzle file.
// Errors holds informational lines prefixed with "✓" alongside failures.
type ValidationResult struct {
	File   string
	Valid  bool
	Errors []string
}

func validateCommand() *cli.Command {
	return &cli.Command{
		Name:      "validate",
		Usage:     "check every puzzle in a directory and solve it against its expected cost",
		ArgsUsage: "[dir]",
		Flags: []cli.Flag{
			&cli.DurationFlag{Name: "timeout", Value: 30 * time.Second, Usage: "per-puzzle search limit"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return runValidate(ctx, cmd.Root().Writer, puzzleDirArg(cmd), cmd.Duration("timeout"))
		},
	}
}

func runValidate(ctx context.Context, w io.Writer, dir string, timeout time.Duration) error {
	files, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return fmt.Errorf("error finding puzzle files: %w", err)
	}
	if len(files) == 0 {
		return fmt.Errorf("no puzzle files in %s", dir)
	}

	allValid := true
	for _, file := range files {
		result := validatePuzzleFile(ctx, file, timeout)

		fmt.Fprintf(w, "\n%s %s\n", strings.Repeat("=", 20), result.File)

		if result.Valid {
			fmt.Fprintln(w, "✅ VALID")
			for _, info := range result.Errors {
				fmt.Fprintln(w, "  "+info)
			}
		} else {
			fmt.Fprintln(w, "❌ INVALID")
			allValid = false
			for _, e := range result.Errors {
				if !strings.HasPrefix(e, "✓") {
					fmt.Fprintln(w, "  ❌ "+e)
				}
			}
		}
	}

	fmt.Fprintf(w, "\n%s\n", strings.Repeat("=", 40))
	if !allValid {
		fmt.Fprintln(w, "❌ Some puzzles have errors")
		return errors.New("validation failed")
	}
	fmt.Fprintln(w, "✅ All puzzles are valid!")
	return nil
}

// validatePuzzleFile loads one puzzle, checks its structure and settings,
// then solves it and compares against the expected cost when one is given.
func validatePuzzleFile(ctx context.Context, path string, timeout time.Duration) ValidationResult {
	result := ValidationResult{
		File:   filepath.Base(path),
		Valid:  true,
		Errors: []string{},
	}
	fail := func(format string, args ...interface{}) ValidationResult {
		result.Valid = false
		result.Errors = append(result.Errors, fmt.Sprintf(format, args...))
		return result
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fail("Failed to read file: %v", err)
	}

	var p puzzle.Puzzle
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&p); err != nil {
		return fail("Invalid JSON: %v", err)
	}

	if err := puzzle.Validate(&p); err != nil {
		return fail("%v", err)
	}
	result.Errors = append(result.Errors, fmt.Sprintf("✓ Grid: %dx%d", len(p.Layout[0]), len(p.Layout)))

	grid, err := p.Grid()
	if err != nil {
		return fail("%v", err)
	}
	cfg, err := p.Config()
	if err != nil {
		return fail("%v", err)
	}
	result.Errors = append(result.Errors, fmt.Sprintf("✓ Settings: max run %d, min run %d, start %v", cfg.MaxRun, cfg.MinRun, cfg.StartDirections))

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	solved, err := engine.Solve(ctx, grid, engine.WithConfig(cfg))
	switch {
	case errors.Is(err, engine.ErrNoPath):
		if p.ExpectedCost != nil {
			return fail("No path found, expected cost %d", *p.ExpectedCost)
		}
		result.Errors = append(result.Errors, "✓ No path exists under these settings")
		return result
	case err != nil:
		return fail("Solve failed: %v", err)
	}

	if p.ExpectedCost != nil && solved.Cost != *p.ExpectedCost {
		return fail("Cost %d does not match expected cost %d", solved.Cost, *p.ExpectedCost)
	}
	result.Errors = append(result.Errors, fmt.Sprintf("✓ Solved: cost %d in %d moves", solved.Cost, len(solved.Moves)))
	if p.ExpectedCost != nil {
		result.Errors = append(result.Errors, "✓ Matches expected cost")
	}
	return result
}
