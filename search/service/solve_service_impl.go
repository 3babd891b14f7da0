package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/wricardo/crucible/search/engine"
	"github.com/wricardo/crucible/search/puzzle"
)

const (
	// InlinePuzzleID labels runs solved from a layout sent with the request
	InlinePuzzleID = "inline"

	DefaultBatchLimit = 4
	MaxBatchSize      = 64
)

var (
	ErrEmptyBatch    = errors.New("batch contains no requests")
	ErrBatchTooLarge = errors.New("batch too large")
)

// solveServiceImpl implements the SolveService interface
type solveServiceImpl struct {
	runs     RunStore
	puzzles  PuzzleStore
	notifier Notifier
	logger   *zap.Logger
	tracer   trace.Tracer

	batchLimit     int
	defaultTimeout time.Duration
}

// Option configures the solve service
type Option func(*solveServiceImpl)

// WithNotifier publishes run events to n
func WithNotifier(n Notifier) Option {
	return func(s *solveServiceImpl) { s.notifier = n }
}

// WithLogger sets the service logger
func WithLogger(logger *zap.Logger) Option {
	return func(s *solveServiceImpl) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithTracer overrides the tracer taken from the global provider
func WithTracer(tracer trace.Tracer) Option {
	return func(s *solveServiceImpl) {
		if tracer != nil {
			s.tracer = tracer
		}
	}
}

// WithBatchLimit bounds how many batch entries are solved at once
func WithBatchLimit(n int) Option {
	return func(s *solveServiceImpl) {
		if n > 0 {
			s.batchLimit = n
		}
	}
}

// WithDefaultTimeout bounds solves whose request carries no timeout
func WithDefaultTimeout(d time.Duration) Option {
	return func(s *solveServiceImpl) { s.defaultTimeout = d }
}

// NewSolveService creates a new solve service instance
func NewSolveService(runs RunStore, puzzles PuzzleStore, opts ...Option) SolveService {
	s := &solveServiceImpl{
		runs:       runs,
		puzzles:    puzzles,
		logger:     zap.NewNop(),
		tracer:     otel.Tracer("github.com/wricardo/crucible/search/service"),
		batchLimit: DefaultBatchLimit,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Solve resolves the requested grid, runs the search and records the run
func (s *solveServiceImpl) Solve(ctx context.Context, req SolveRequest) (*SolveResult, error) {
	ctx, span := s.tracer.Start(ctx, "SolveService.Solve")
	defer span.End()

	puzzleID, p, err := s.resolve(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	// resolve validated both, so these cannot fail
	grid, _ := p.Grid()
	cfg, _ := p.Config()

	span.SetAttributes(
		attribute.String("puzzle.id", puzzleID),
		attribute.Int("grid.width", grid.Width()),
		attribute.Int("grid.height", grid.Height()),
		attribute.Int("solver.max_run", cfg.MaxRun),
		attribute.Int("solver.min_run", cfg.MinRun),
	)

	timeout := s.defaultTimeout
	if req.TimeoutMs > 0 {
		timeout = time.Duration(req.TimeoutMs) * time.Millisecond
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	run := &Run{
		ID:           uuid.NewString(),
		PuzzleID:     puzzleID,
		PuzzleName:   p.Name,
		Layout:       grid.Rows(),
		Width:        grid.Width(),
		Height:       grid.Height(),
		Config:       cfg,
		ExpectedCost: p.ExpectedCost,
		CreatedAt:    time.Now(),
	}
	run.LastAccessedAt = run.CreatedAt

	s.notify(puzzleID, EventRunStarted, map[string]interface{}{
		"run_id":    run.ID,
		"puzzle_id": puzzleID,
		"width":     run.Width,
		"height":    run.Height,
		"config":    cfg,
	})

	solver, err := engine.NewSolver(grid, engine.WithConfig(cfg))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	start := time.Now()
	result, solveErr := solver.Run(ctx)
	run.Duration = time.Since(start)
	run.Stats = solver.Stats()

	switch {
	case solveErr == nil:
		cost := result.Cost
		run.Outcome = OutcomeSolved
		run.Cost = &cost
		run.Moves = result.Moves
		run.Path = result.Path
	case errors.Is(solveErr, engine.ErrNoPath):
		run.Outcome = OutcomeNoPath
		run.Error = solveErr.Error()
	case errors.Is(solveErr, context.Canceled), errors.Is(solveErr, context.DeadlineExceeded):
		run.Outcome = OutcomeCancelled
		run.Error = solveErr.Error()
	default:
		run.Outcome = OutcomeFailed
		run.Error = solveErr.Error()
	}

	if _, err := s.runs.Create(run); err != nil {
		s.logger.Warn("Failed to record run", zap.String("run_id", run.ID), zap.Error(err))
	}

	span.SetAttributes(
		attribute.String("run.id", run.ID),
		attribute.String("run.outcome", string(run.Outcome)),
		attribute.Int("solver.expanded", run.Stats.Expanded),
		attribute.Int("solver.pushed", run.Stats.Pushed),
	)

	s.logger.Info("Solve finished",
		zap.String("run_id", run.ID),
		zap.String("puzzle_id", puzzleID),
		zap.String("outcome", string(run.Outcome)),
		zap.Intp("cost", run.Cost),
		zap.Int("expanded", run.Stats.Expanded),
		zap.Duration("duration", run.Duration),
	)

	s.notify(puzzleID, EventRunCompleted, run)

	if run.Outcome == OutcomeCancelled || run.Outcome == OutcomeFailed {
		span.RecordError(solveErr)
		span.SetStatus(codes.Error, solveErr.Error())
		return nil, fmt.Errorf("run %s %s: %w", run.ID, run.Outcome, solveErr)
	}

	return buildSolveResult(run), nil
}

// SolveBatch solves every request with bounded concurrency. A failing entry
// is reported in its item and does not stop the others.
func (s *solveServiceImpl) SolveBatch(ctx context.Context, reqs []SolveRequest) (*BatchResult, error) {
	if len(reqs) == 0 {
		return nil, ErrEmptyBatch
	}
	if len(reqs) > MaxBatchSize {
		return nil, fmt.Errorf("%w: %d requests, limit is %d", ErrBatchTooLarge, len(reqs), MaxBatchSize)
	}

	ctx, span := s.tracer.Start(ctx, "SolveService.SolveBatch")
	defer span.End()
	span.SetAttributes(attribute.Int("batch.size", len(reqs)))

	items := make([]BatchItem, len(reqs))

	var g errgroup.Group
	g.SetLimit(s.batchLimit)
	for i, req := range reqs {
		g.Go(func() error {
			item := BatchItem{Index: i}
			res, err := s.Solve(ctx, req)
			if err != nil {
				item.Error = err.Error()
			} else {
				item.Result = res
			}
			items[i] = item
			return nil
		})
	}
	g.Wait()

	batch := &BatchResult{Items: items, Requested: len(reqs)}
	for _, item := range items {
		switch {
		case item.Error != "":
			batch.Failed++
		case item.Result.Solved:
			batch.Solved++
		default:
			batch.NoPath++
		}
	}

	span.SetAttributes(
		attribute.Int("batch.solved", batch.Solved),
		attribute.Int("batch.no_path", batch.NoPath),
		attribute.Int("batch.failed", batch.Failed),
	)
	s.logger.Info("Batch finished",
		zap.Int("requested", batch.Requested),
		zap.Int("solved", batch.Solved),
		zap.Int("no_path", batch.NoPath),
		zap.Int("failed", batch.Failed),
	)

	return batch, nil
}

// GetRun retrieves a recorded run
func (s *solveServiceImpl) GetRun(ctx context.Context, runID string) (*Run, error) {
	run, err := s.runs.Get(runID)
	if err != nil {
		return nil, fmt.Errorf("run %s: %w", runID, err)
	}

	s.runs.UpdateLastAccessed(runID)
	return run, nil
}

// ListRuns returns the recorded runs, newest first
func (s *solveServiceImpl) ListRuns(ctx context.Context) ([]*Run, error) {
	return s.runs.List(), nil
}

// DeleteRun removes a recorded run
func (s *solveServiceImpl) DeleteRun(ctx context.Context, runID string) error {
	if err := s.runs.Delete(runID); err != nil {
		return fmt.Errorf("run %s: %w", runID, err)
	}
	s.logger.Info("Deleted run", zap.String("run_id", runID))
	return nil
}

// ListPuzzles returns the puzzle catalogue
func (s *solveServiceImpl) ListPuzzles(ctx context.Context) ([]*puzzle.Info, error) {
	return s.puzzles.ListPuzzles()
}

// GetPuzzle loads one puzzle by ID
func (s *solveServiceImpl) GetPuzzle(ctx context.Context, puzzleID string) (*puzzle.Puzzle, error) {
	p, err := s.puzzles.LoadPuzzle(puzzleID)
	if err != nil {
		return nil, s.puzzleError(puzzleID, err)
	}
	return p, nil
}

// SavePuzzle validates and stores a puzzle
func (s *solveServiceImpl) SavePuzzle(ctx context.Context, puzzleID string, p *puzzle.Puzzle) error {
	if err := s.puzzles.SavePuzzle(puzzleID, p); err != nil {
		return err
	}
	s.notify(puzzleID, EventPuzzleSaved, map[string]interface{}{
		"puzzle_id": puzzleID,
		"name":      p.Name,
	})
	return nil
}

// resolve picks the puzzle a request targets and applies its overrides to a
// copy. The returned puzzle is validated.
func (s *solveServiceImpl) resolve(req SolveRequest) (string, *puzzle.Puzzle, error) {
	var (
		puzzleID string
		base     *puzzle.Puzzle
	)

	switch {
	case len(req.Layout) > 0:
		puzzleID = InlinePuzzleID
		base = &puzzle.Puzzle{Name: InlinePuzzleID, Layout: req.Layout}
	case req.PuzzleID != "":
		p, err := s.puzzles.LoadPuzzle(req.PuzzleID)
		if err != nil {
			return "", nil, s.puzzleError(req.PuzzleID, err)
		}
		puzzleID = strings.TrimSuffix(req.PuzzleID, ".json")
		base = p
	default:
		base = s.puzzles.GetDefault()
		if base == nil {
			return "", nil, fmt.Errorf("%w: no default puzzle configured", puzzle.ErrPuzzleNotFound)
		}
		puzzleID = s.puzzles.IDForName(base.Name)
	}

	p := *base
	if req.MaxRun != nil {
		p.MaxRun = req.MaxRun
	}
	if req.MinRun != nil {
		p.MinRun = req.MinRun
	}
	if len(req.StartDirections) > 0 {
		p.StartDirections = req.StartDirections
	}
	if req.OriginCostCounted != nil {
		p.OriginCostCounted = *req.OriginCostCounted
	}

	// Settings that differ from the stored puzzle void its known answer
	if req.MaxRun != nil || req.MinRun != nil || len(req.StartDirections) > 0 || req.OriginCostCounted != nil {
		p.ExpectedCost = nil
	}

	if err := puzzle.Validate(&p); err != nil {
		return "", nil, fmt.Errorf("%w: %w", puzzle.ErrInvalidPuzzle, err)
	}

	return puzzleID, &p, nil
}

// puzzleError adds the available IDs to a not-found error
func (s *solveServiceImpl) puzzleError(puzzleID string, err error) error {
	if !errors.Is(err, puzzle.ErrPuzzleNotFound) {
		return fmt.Errorf("failed to load puzzle %s: %w", puzzleID, err)
	}

	infos, listErr := s.puzzles.ListPuzzles()
	if listErr == nil && len(infos) > 0 {
		ids := make([]string, 0, len(infos))
		for _, info := range infos {
			ids = append(ids, info.PuzzleID)
		}
		return fmt.Errorf("%w: '%s'. Available puzzles: %v", puzzle.ErrPuzzleNotFound, puzzleID, ids)
	}
	return fmt.Errorf("%w: '%s'. Use /api/puzzles to list available puzzles", puzzle.ErrPuzzleNotFound, puzzleID)
}

func (s *solveServiceImpl) notify(puzzleID, event string, data interface{}) {
	if s.notifier == nil {
		return
	}
	s.notifier.BroadcastEvent(puzzleID, event, data)
}

func buildSolveResult(run *Run) *SolveResult {
	res := &SolveResult{Run: run, Solved: run.Outcome == OutcomeSolved}

	if res.Solved {
		res.Message = fmt.Sprintf("Solved with cost %d in %d moves (%d states expanded)",
			*run.Cost, len(run.Moves), run.Stats.Expanded)
	} else {
		res.Message = fmt.Sprintf("No path to (%d,%d) with max run %d (%d states expanded)",
			run.Width-1, run.Height-1, run.Config.MaxRun, run.Stats.Expanded)
	}

	if run.ExpectedCost != nil {
		matches := res.Solved && *run.Cost == *run.ExpectedCost
		res.MatchesExpected = &matches
	}
	return res
}
