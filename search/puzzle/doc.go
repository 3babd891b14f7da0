// Package puzzle provides the puzzle catalogue for the solver.
//
// A puzzle is a JSON document holding a cost grid layout and the solver
// settings to use with it:
//
//	{
//	  "name": "Reference",
//	  "description": "13x13 reference grid",
//	  "layout": ["2413...", "3215..."],
//	  "max_run": 3,
//	  "min_run": 1,
//	  "start_directions": ["right", "down"],
//	  "origin_cost_counted": false,
//	  "expected_cost": 102
//	}
//
// Omitted settings fall back to the engine defaults. Manager loads puzzles
// from a directory, caches them, lists them, saves new ones and tracks a
// default puzzle. It is safe for concurrent use.
package puzzle
