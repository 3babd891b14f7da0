// Package service provides the solve orchestration layer for the path solver.
//
// The service package implements:
//   - Solving stored puzzles, the default puzzle or inline layouts
//   - Per-request overrides of run limits, start headings and origin cost
//   - Bounded-concurrency batch solves
//   - Run history lookup and deletion
//   - Run lifecycle events for live subscribers
//
// Core Interfaces:
//
// SolveService is the main service interface used by the HTTP API, the MCP
// tools and the server binary. RunStore records every run, including those
// that found no path or were cancelled. PuzzleStore resolves puzzle IDs to
// layouts and settings. Notifier receives run_started and run_completed
// events keyed by puzzle ID.
//
// Usage:
//
//	runMgr := runs.NewManager()
//	puzzleMgr, _ := puzzle.NewManager("puzzles", logger)
//	solveService := service.NewSolveService(runMgr, puzzleMgr,
//		service.WithLogger(logger),
//		service.WithNotifier(hub))
//
//	result, err := solveService.Solve(ctx, service.SolveRequest{PuzzleID: "reference"})
//	if err != nil {
//		log.Fatal(err)
//	}
//	fmt.Println(*result.Run.Cost) // 102
//
// A search that finds no path is a normal result with Solved set to false.
// Invalid input and cancellation are returned as errors.
package service
