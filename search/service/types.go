package service

import (
	"time"

	"github.com/wricardo/crucible/search/engine"
)

// Outcome classifies how a run ended
type Outcome string

const (
	OutcomeSolved    Outcome = "solved"
	OutcomeNoPath    Outcome = "no_path"
	OutcomeCancelled Outcome = "cancelled"
	OutcomeFailed    Outcome = "failed"
)

// Event names published to the Notifier
const (
	EventRunStarted   = "run_started"
	EventRunCompleted = "run_completed"
	EventPuzzleSaved  = "puzzle_saved"

	// ChannelAll receives every event regardless of puzzle
	ChannelAll = "all"
)

// Run is the recorded outcome of one solve
type Run struct {
	ID           string             `json:"id"`
	PuzzleID     string             `json:"puzzle_id"`
	PuzzleName   string             `json:"puzzle_name"`
	Layout       []string           `json:"layout"`
	Width        int                `json:"width"`
	Height       int                `json:"height"`
	Config       engine.Config      `json:"config"`
	Outcome      Outcome            `json:"outcome"`
	Cost         *int               `json:"cost,omitempty"`
	Moves        []engine.Direction `json:"moves,omitempty"`
	Path         []engine.Position  `json:"path,omitempty"`
	Stats        engine.Stats       `json:"stats"`
	Error        string             `json:"error,omitempty"`
	ExpectedCost *int               `json:"expected_cost,omitempty"`
	Duration     time.Duration      `json:"duration_ns"`

	CreatedAt      time.Time `json:"created_at"`
	LastAccessedAt time.Time `json:"last_accessed_at"`
}

// SolveRequest selects a grid and optionally overrides its settings.
// Layout takes precedence over PuzzleID; with neither, the default puzzle
// is solved.
type SolveRequest struct {
	PuzzleID          string   `json:"puzzle_id,omitempty"`
	Layout            []string `json:"layout,omitempty"`
	MaxRun            *int     `json:"max_run,omitempty"`
	MinRun            *int     `json:"min_run,omitempty"`
	StartDirections   []string `json:"start_directions,omitempty"`
	OriginCostCounted *bool    `json:"origin_cost_counted,omitempty"`
	TimeoutMs         int      `json:"timeout_ms,omitempty"`
}

// SolveResult contains the result of a solve
type SolveResult struct {
	Run             *Run   `json:"run"`
	Solved          bool   `json:"solved"`
	Message         string `json:"message"`
	MatchesExpected *bool  `json:"matches_expected,omitempty"`
}

// BatchItem is one entry of a batch solve, in request order
type BatchItem struct {
	Index  int          `json:"index"`
	Result *SolveResult `json:"result,omitempty"`
	Error  string       `json:"error,omitempty"`
}

// BatchResult contains the results of a batch solve
type BatchResult struct {
	Items     []BatchItem `json:"items"`
	Solved    int         `json:"solved"`
	NoPath    int         `json:"no_path"`
	Failed    int         `json:"failed"`
	Requested int         `json:"requested"`
}
