// Package engine provides the constrained directional shortest-path solver.
//
// The engine package implements:
//   - An immutable cost grid parsed from rows of ASCII digits
//   - Heading/run-length aware search states
//   - Successor generation under a maximum (and optional minimum) run
//   - A lowest-f-first frontier and a (position, heading, run) closed set
//   - A step-wise Solver state machine and a one-shot Solve helper
//   - Path validation and an exhaustive reference solver for cross-checks
//
// Core Types:
//
// CostGrid holds the per-cell cost of entering a cell. Solver owns the
// Frontier and VisitedSet of exactly one search; a CostGrid may be shared by
// any number of concurrent solvers because nothing mutates it.
//
// Usage:
//
//	grid, err := engine.NewCostGrid([]string{
//		"2413",
//		"3215",
//		"3255",
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	result, err := engine.Solve(ctx, grid, engine.WithMaxRun(3))
//	if errors.Is(err, engine.ErrNoPath) {
//		// legitimate outcome: no path satisfies the run constraint
//	}
//
// Movement Rules:
//
// A path starts at the top-left cell and ends at the bottom-right cell.
// Entering a cell costs that cell's digit; the start cell is free unless
// WithOriginCost(true) is given. A path may move at most MaxRun consecutive
// steps in one direction, may only turn after MinRun steps, and never
// reverses into the direction it came from.
package engine
