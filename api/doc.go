// Package api provides the HTTP REST API for the solver.
//
// Endpoints:
//
// Solving:
//   - POST /api/solve - Solve an inline layout or a stored puzzle
//   - POST /api/solve/batch - Solve several requests concurrently
//   - POST /api/puzzles/{name}/solve - Solve a stored puzzle, optional overrides in the body
//
// Run history:
//   - GET /api/runs - List runs (query: puzzle, outcome, limit)
//   - GET /api/runs/{id} - Get one run
//   - DELETE /api/runs/{id} - Delete a run
//
// Puzzles:
//   - GET /api/puzzles - List stored puzzles
//   - POST /api/puzzles - Save a puzzle (ID from ?id= or derived from its name)
//   - GET /api/puzzles/{name} - Get a stored puzzle
//
// Other:
//   - GET /api/health - Liveness and counters
//   - GET /ws?channel=<puzzle|all> - WebSocket event stream
//
// A solve request looks like:
//
//	{
//	  "puzzle_id": "reference",
//	  "layout": ["2413...", "..."],
//	  "max_run": 3,
//	  "min_run": 1,
//	  "start_directions": ["right", "down"],
//	  "origin_cost_counted": false,
//	  "timeout_ms": 5000
//	}
//
// Every field is optional; layout wins over puzzle_id, and with neither the
// default puzzle is solved. An unreachable goal is a normal 200 response
// with "solved": false.
//
// Errors are returned as {"error": "..."} with 400 for invalid grids,
// settings or bodies, 404 for unknown runs and puzzles, 408 for solves that
// hit their timeout, and 500 otherwise.
package api
