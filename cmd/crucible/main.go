// Command crucible is the operator CLI for the path solver. It solves grids
// from files or stdin, cross-checks the heap search against exhaustive
// search, and validates or analyzes puzzle directories.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"
)

const version = "1.0.0"

func main() {
	// Optional; PUZZLE_DIR may come from .env
	_ = godotenv.Load()

	if err := newApp().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:    "crucible",
		Usage:   "minimal-cost paths under a maximum run constraint",
		Version: version,
		Commands: []*cli.Command{
			solveCommand(),
			verifyCommand(),
			validateCommand(),
			analyzeCommand(),
		},
	}
}

// puzzleDirArg returns the first argument, then PUZZLE_DIR, then "puzzles"
func puzzleDirArg(cmd *cli.Command) string {
	if dir := cmd.Args().First(); dir != "" {
		return dir
	}
	if dir := os.Getenv("PUZZLE_DIR"); dir != "" {
		return dir
	}
	return "puzzles"
}
