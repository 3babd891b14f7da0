package service_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/wricardo/crucible/search/engine"
	"github.com/wricardo/crucible/search/puzzle"
	"github.com/wricardo/crucible/search/runs"
	"github.com/wricardo/crucible/search/service"
)

// MockRunStore implements service.RunStore for testing
type MockRunStore struct {
	mu   sync.Mutex
	runs map[string]*service.Run
}

func NewMockRunStore() *MockRunStore {
	return &MockRunStore{runs: make(map[string]*service.Run)}
}

func (m *MockRunStore) Create(run *service.Run) (*service.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.runs[run.ID]; exists {
		return nil, errors.New("run already exists")
	}
	m.runs[run.ID] = run
	return run, nil
}

func (m *MockRunStore) Get(id string) (*service.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	run, exists := m.runs[id]
	if !exists {
		return nil, service.ErrRunNotFound
	}
	return run, nil
}

func (m *MockRunStore) List() []*service.Run {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]*service.Run, 0, len(m.runs))
	for _, run := range m.runs {
		result = append(result, run)
	}
	return result
}

func (m *MockRunStore) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.runs[id]; !exists {
		return service.ErrRunNotFound
	}
	delete(m.runs, id)
	return nil
}

func (m *MockRunStore) UpdateLastAccessed(id string) error {
	return nil
}

// MockPuzzleStore implements service.PuzzleStore for testing
type MockPuzzleStore struct {
	mu      sync.Mutex
	puzzles map[string]*puzzle.Puzzle
}

func NewMockPuzzleStore() *MockPuzzleStore {
	return &MockPuzzleStore{
		puzzles: map[string]*puzzle.Puzzle{
			"reference": puzzle.Reference(),
			"small": {
				Name:         "Small",
				Layout:       []string{"123", "456", "789"},
				ExpectedCost: puzzle.IntPtr(20),
			},
		},
	}
}

func (m *MockPuzzleStore) LoadPuzzle(id string) (*puzzle.Puzzle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, exists := m.puzzles[strings.TrimSuffix(id, ".json")]
	if !exists {
		return nil, puzzle.ErrPuzzleNotFound
	}
	return p, nil
}

func (m *MockPuzzleStore) ListPuzzles() ([]*puzzle.Info, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var infos []*puzzle.Info
	for id, p := range m.puzzles {
		infos = append(infos, p.Info(id, id+".json"))
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].PuzzleID < infos[j].PuzzleID })
	return infos, nil
}

func (m *MockPuzzleStore) GetDefault() *puzzle.Puzzle {
	return m.puzzles["reference"]
}

func (m *MockPuzzleStore) SavePuzzle(id string, p *puzzle.Puzzle) error {
	if err := puzzle.Validate(p); err != nil {
		return fmt.Errorf("%w: %v", puzzle.ErrInvalidPuzzle, err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.puzzles[id] = p
	return nil
}

func (m *MockPuzzleStore) IDForName(name string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, p := range m.puzzles {
		if p.Name == name {
			return id
		}
	}
	return name
}

type recordedEvent struct {
	channel string
	event   string
}

// MockNotifier records broadcast events
type MockNotifier struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (n *MockNotifier) BroadcastEvent(channel string, event string, data interface{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, recordedEvent{channel: channel, event: event})
}

func (n *MockNotifier) count(event string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	c := 0
	for _, e := range n.events {
		if e.event == event {
			c++
		}
	}
	return c
}

func newTestService(opts ...service.Option) (service.SolveService, *MockRunStore, *MockNotifier) {
	runs := NewMockRunStore()
	notifier := &MockNotifier{}
	opts = append([]service.Option{service.WithNotifier(notifier)}, opts...)
	return service.NewSolveService(runs, NewMockPuzzleStore(), opts...), runs, notifier
}

func TestSolveService_SolveDefault(t *testing.T) {
	svc, runs, notifier := newTestService()
	ctx := context.Background()

	res, err := svc.Solve(ctx, service.SolveRequest{})
	if err != nil {
		t.Fatalf("Failed to solve default puzzle: %v", err)
	}
	if !res.Solved {
		t.Fatalf("Expected solved result, got %s", res.Message)
	}
	if res.Run.Cost == nil || *res.Run.Cost != 102 {
		t.Errorf("Expected cost 102, got %v", res.Run.Cost)
	}
	if res.Run.PuzzleID != "reference" {
		t.Errorf("Expected puzzle ID reference, got %s", res.Run.PuzzleID)
	}
	if res.MatchesExpected == nil || !*res.MatchesExpected {
		t.Error("Expected result to match the known cost")
	}
	if res.Run.Stats.Expanded == 0 {
		t.Error("Expected expansion counters to be recorded")
	}

	if _, err := runs.Get(res.Run.ID); err != nil {
		t.Errorf("Expected run to be recorded: %v", err)
	}
	if notifier.count(service.EventRunStarted) != 1 || notifier.count(service.EventRunCompleted) != 1 {
		t.Errorf("Expected one started and one completed event, got %+v", notifier.events)
	}
	if notifier.events[0].channel != "reference" {
		t.Errorf("Expected events on channel reference, got %s", notifier.events[0].channel)
	}
}

func TestSolveService_SolveInlineLayout(t *testing.T) {
	svc, _, _ := newTestService()

	res, err := svc.Solve(context.Background(), service.SolveRequest{
		Layout: []string{"19", "11"},
	})
	if err != nil {
		t.Fatalf("Failed to solve inline layout: %v", err)
	}
	if res.Run.PuzzleID != service.InlinePuzzleID {
		t.Errorf("Expected inline puzzle ID, got %s", res.Run.PuzzleID)
	}
	if *res.Run.Cost != 2 {
		t.Errorf("Expected cost 2, got %d", *res.Run.Cost)
	}
	want := []engine.Direction{engine.Down, engine.Right}
	if len(res.Run.Moves) != 2 || res.Run.Moves[0] != want[0] || res.Run.Moves[1] != want[1] {
		t.Errorf("Expected moves %v, got %v", want, res.Run.Moves)
	}
	if res.MatchesExpected != nil {
		t.Error("Expected no comparison for a layout without known cost")
	}
}

func TestSolveService_Overrides(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	res, err := svc.Solve(ctx, service.SolveRequest{
		PuzzleID: "reference",
		MaxRun:   puzzle.IntPtr(10),
		MinRun:   puzzle.IntPtr(4),
	})
	if err != nil {
		t.Fatalf("Failed to solve with overrides: %v", err)
	}
	if *res.Run.Cost != 94 {
		t.Errorf("Expected cost 94 with runs 4..10, got %d", *res.Run.Cost)
	}
	if res.MatchesExpected != nil {
		t.Error("Expected overrides to drop the known cost")
	}

	counted := true
	res, err = svc.Solve(ctx, service.SolveRequest{PuzzleID: "small", OriginCostCounted: &counted})
	if err != nil {
		t.Fatalf("Failed to solve with origin cost: %v", err)
	}
	if *res.Run.Cost != 21 {
		t.Errorf("Expected cost 21 with origin counted, got %d", *res.Run.Cost)
	}
}

func TestSolveService_NoPath(t *testing.T) {
	svc, runs, _ := newTestService()

	res, err := svc.Solve(context.Background(), service.SolveRequest{
		Layout: []string{"12345"},
		MaxRun: puzzle.IntPtr(3),
	})
	if err != nil {
		t.Fatalf("Expected no-path to be a result, got error %v", err)
	}
	if res.Solved {
		t.Error("Expected unsolved result")
	}
	if res.Run.Outcome != service.OutcomeNoPath {
		t.Errorf("Expected outcome no_path, got %s", res.Run.Outcome)
	}
	if res.Run.Cost != nil {
		t.Errorf("Expected no cost, got %d", *res.Run.Cost)
	}
	if len(runs.List()) != 1 {
		t.Error("Expected no-path run to be recorded")
	}
}

func TestSolveService_InvalidRequests(t *testing.T) {
	svc, runs, _ := newTestService()
	ctx := context.Background()

	tests := []struct {
		name string
		req  service.SolveRequest
		want error
	}{
		{"unknown puzzle", service.SolveRequest{PuzzleID: "nope"}, puzzle.ErrPuzzleNotFound},
		{"ragged layout", service.SolveRequest{Layout: []string{"12", "3"}}, engine.ErrInput},
		{"letter in layout", service.SolveRequest{Layout: []string{"1x"}}, engine.ErrInput},
		{"negative max run", service.SolveRequest{MaxRun: puzzle.IntPtr(-1)}, engine.ErrConfig},
		{"min above max", service.SolveRequest{MaxRun: puzzle.IntPtr(2), MinRun: puzzle.IntPtr(3)}, engine.ErrConfig},
		{"bad direction", service.SolveRequest{StartDirections: []string{"north"}}, engine.ErrConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Solve(ctx, tt.req)
			if !errors.Is(err, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, err)
			}
		})
	}

	if len(runs.List()) != 0 {
		t.Errorf("Expected rejected requests not to be recorded, got %d runs", len(runs.List()))
	}

	_, err := svc.Solve(ctx, service.SolveRequest{PuzzleID: "nope"})
	if err == nil || !strings.Contains(err.Error(), "small") {
		t.Errorf("Expected available puzzles in error, got %v", err)
	}
}

func TestSolveService_Cancelled(t *testing.T) {
	svc, runs, _ := newTestService()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Solve(ctx, service.SolveRequest{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}

	list := runs.List()
	if len(list) != 1 || list[0].Outcome != service.OutcomeCancelled {
		t.Errorf("Expected one cancelled run recorded, got %+v", list)
	}
}

func TestSolveService_SolveBatch(t *testing.T) {
	svc, runs, notifier := newTestService(service.WithBatchLimit(2))

	reqs := []service.SolveRequest{
		{PuzzleID: "reference"},
		{PuzzleID: "small"},
		{Layout: []string{"12345"}, MaxRun: puzzle.IntPtr(3)},
		{PuzzleID: "missing"},
		{Layout: []string{"19", "11"}},
	}

	batch, err := svc.SolveBatch(context.Background(), reqs)
	if err != nil {
		t.Fatalf("Failed to solve batch: %v", err)
	}
	if batch.Requested != 5 || batch.Solved != 3 || batch.NoPath != 1 || batch.Failed != 1 {
		t.Errorf("Unexpected tallies %+v", batch)
	}
	for i, item := range batch.Items {
		if item.Index != i {
			t.Errorf("Expected item %d in request order, got index %d", i, item.Index)
		}
	}
	if *batch.Items[0].Result.Run.Cost != 102 || *batch.Items[1].Result.Run.Cost != 20 {
		t.Error("Expected batch results in request order")
	}
	if batch.Items[3].Error == "" {
		t.Error("Expected error for missing puzzle")
	}
	if len(runs.List()) != 4 {
		t.Errorf("Expected 4 recorded runs, got %d", len(runs.List()))
	}
	if notifier.count(service.EventRunCompleted) != 4 {
		t.Errorf("Expected 4 completed events, got %d", notifier.count(service.EventRunCompleted))
	}
}

func TestSolveService_SolveBatchLimits(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	if _, err := svc.SolveBatch(ctx, nil); !errors.Is(err, service.ErrEmptyBatch) {
		t.Errorf("Expected ErrEmptyBatch, got %v", err)
	}

	reqs := make([]service.SolveRequest, service.MaxBatchSize+1)
	if _, err := svc.SolveBatch(ctx, reqs); !errors.Is(err, service.ErrBatchTooLarge) {
		t.Errorf("Expected ErrBatchTooLarge, got %v", err)
	}
}

func TestSolveService_Runs(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	res, err := svc.Solve(ctx, service.SolveRequest{PuzzleID: "small"})
	if err != nil {
		t.Fatalf("Failed to solve: %v", err)
	}

	run, err := svc.GetRun(ctx, res.Run.ID)
	if err != nil {
		t.Fatalf("Failed to get run: %v", err)
	}
	if run.PuzzleName != "Small" {
		t.Errorf("Expected puzzle name Small, got %s", run.PuzzleName)
	}

	list, _ := svc.ListRuns(ctx)
	if len(list) != 1 {
		t.Errorf("Expected 1 run, got %d", len(list))
	}

	if err := svc.DeleteRun(ctx, res.Run.ID); err != nil {
		t.Fatalf("Failed to delete run: %v", err)
	}
	if _, err := svc.GetRun(ctx, res.Run.ID); !errors.Is(err, service.ErrRunNotFound) {
		t.Errorf("Expected ErrRunNotFound, got %v", err)
	}
	if err := svc.DeleteRun(ctx, res.Run.ID); !errors.Is(err, service.ErrRunNotFound) {
		t.Errorf("Expected ErrRunNotFound on second delete, got %v", err)
	}
}

func TestSolveService_Puzzles(t *testing.T) {
	svc, _, notifier := newTestService()
	ctx := context.Background()

	infos, err := svc.ListPuzzles(ctx)
	if err != nil {
		t.Fatalf("Failed to list puzzles: %v", err)
	}
	if len(infos) != 2 {
		t.Errorf("Expected 2 puzzles, got %d", len(infos))
	}

	p := &puzzle.Puzzle{Name: "Tiny", Layout: []string{"11", "11"}}
	if err := svc.SavePuzzle(ctx, "tiny", p); err != nil {
		t.Fatalf("Failed to save puzzle: %v", err)
	}
	if notifier.count(service.EventPuzzleSaved) != 1 {
		t.Error("Expected puzzle_saved event")
	}

	got, err := svc.GetPuzzle(ctx, "tiny")
	if err != nil {
		t.Fatalf("Failed to get puzzle: %v", err)
	}
	if got.Name != "Tiny" {
		t.Errorf("Expected Tiny, got %s", got.Name)
	}

	if _, err := svc.GetPuzzle(ctx, "nope"); !errors.Is(err, puzzle.ErrPuzzleNotFound) {
		t.Errorf("Expected ErrPuzzleNotFound, got %v", err)
	}
	if err := svc.SavePuzzle(ctx, "bad", &puzzle.Puzzle{Name: "Bad"}); !errors.Is(err, puzzle.ErrInvalidPuzzle) {
		t.Errorf("Expected ErrInvalidPuzzle, got %v", err)
	}
}

func TestSolveService_ResultIndependentOfRunStore(t *testing.T) {
	svc := service.NewSolveService(runs.NewManager(), NewMockPuzzleStore())

	res, err := svc.Solve(context.Background(), service.SolveRequest{
		Layout: []string{"19", "11"},
	})
	if err != nil {
		t.Fatalf("Failed to solve: %v", err)
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			if _, err := svc.GetRun(context.Background(), res.Run.ID); err != nil {
				t.Errorf("Failed to get run: %v", err)
				return
			}
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			if _, err := json.Marshal(res); err != nil {
				t.Errorf("Failed to marshal result: %v", err)
				return
			}
		}
	}()
	wg.Wait()

	if !res.Run.LastAccessedAt.Equal(res.Run.CreatedAt) {
		t.Error("Expected lookups not to touch the returned run")
	}
}
