// Package runs stores the records of completed solves.
//
// Manager keeps runs in memory keyed by a lower-cased UUID and, when given a
// RunPersistence, writes each run through to storage so the history
// survives restarts. FilePersistence stores one indented JSON file per run.
package runs
