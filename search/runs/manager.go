package runs

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wricardo/crucible/search/service"
)

var (
	ErrRunNotFound      = service.ErrRunNotFound
	ErrRunAlreadyExists = errors.New("run already exists")
	ErrInvalidRunID     = errors.New("invalid run ID")
)

// Manager handles the run history
type Manager struct {
	runs        map[string]*service.Run
	unsaved     map[string]struct{} // runs whose write-through failed
	persistence RunPersistence
	logger      *zap.Logger
	mu          sync.RWMutex
}

// ManagerOption configures a Manager
type ManagerOption func(*Manager)

// WithPersistence writes every run through to p
func WithPersistence(p RunPersistence) ManagerOption {
	return func(m *Manager) { m.persistence = p }
}

// WithLogger sets the manager's logger
func WithLogger(logger *zap.Logger) ManagerOption {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// NewManager creates a new run manager
func NewManager(opts ...ManagerOption) *Manager {
	m := &Manager{
		runs:    make(map[string]*service.Run),
		unsaved: make(map[string]struct{}),
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Create records a copy of run, assigning an ID and timestamps when missing.
// The returned run is a snapshot the caller may read freely.
func (m *Manager) Create(run *service.Run) (*service.Run, error) {
	if run == nil {
		return nil, fmt.Errorf("run cannot be nil")
	}
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if strings.ContainsAny(run.ID, `/\.`) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidRunID, run.ID)
	}

	now := time.Now()
	if run.CreatedAt.IsZero() {
		run.CreatedAt = now
	}
	if run.LastAccessedAt.IsZero() {
		run.LastAccessedAt = now
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	key := strings.ToLower(run.ID)
	if _, exists := m.runs[key]; exists {
		return nil, ErrRunAlreadyExists
	}
	stored := *run
	m.runs[key] = &stored

	if m.persistence != nil {
		if err := m.persistence.Save(&stored); err != nil {
			// Keep the in-memory record; the next SaveAll retries it
			m.unsaved[key] = struct{}{}
			m.logger.Warn("Failed to persist run", zap.String("run_id", run.ID), zap.Error(err))
		}
	}

	snapshot := stored
	return &snapshot, nil
}

// Get returns a snapshot of a run, falling back to persistence (case-insensitive)
func (m *Manager) Get(id string) (*service.Run, error) {
	key := strings.ToLower(id)

	m.mu.RLock()
	run, exists := m.runs[key]
	if exists {
		cp := *run
		m.mu.RUnlock()
		return &cp, nil
	}
	m.mu.RUnlock()

	if m.persistence != nil && m.persistence.Exists(key) {
		run, err := m.persistence.Load(key)
		if err != nil {
			return nil, fmt.Errorf("failed to load persisted run: %w", err)
		}

		m.mu.Lock()
		m.runs[key] = run
		cp := *run
		m.mu.Unlock()

		return &cp, nil
	}

	return nil, ErrRunNotFound
}

// List returns snapshots of the in-memory runs, newest first
func (m *Manager) List() []*service.Run {
	m.mu.RLock()
	result := make([]*service.Run, 0, len(m.runs))
	for _, run := range m.runs {
		cp := *run
		result = append(result, &cp)
	}
	m.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID < result[j].ID
	})
	return result
}

// Delete removes a run from memory and persistence
func (m *Manager) Delete(id string) error {
	key := strings.ToLower(id)

	m.mu.Lock()
	defer m.mu.Unlock()

	_, inMemory := m.runs[key]
	delete(m.runs, key)
	delete(m.unsaved, key)

	if m.persistence != nil && m.persistence.Exists(key) {
		if err := m.persistence.Delete(key); err != nil {
			return fmt.Errorf("failed to delete persisted run: %w", err)
		}
		return nil
	}

	if !inMemory {
		return ErrRunNotFound
	}
	return nil
}

// DeleteFromMemory removes a run from memory only
func (m *Manager) DeleteFromMemory(id string) error {
	key := strings.ToLower(id)

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.runs[key]; !exists {
		return ErrRunNotFound
	}
	delete(m.runs, key)
	delete(m.unsaved, key)
	return nil
}

// UpdateLastAccessed touches a run so expiry keeps it in memory
func (m *Manager) UpdateLastAccessed(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	run, exists := m.runs[strings.ToLower(id)]
	if !exists {
		return ErrRunNotFound
	}
	run.LastAccessedAt = time.Now()
	return nil
}

// CleanupExpiredRuns evicts runs not accessed within maxAge from memory.
// Persisted copies stay on disk and are reloaded on demand by Get.
func (m *Manager) CleanupExpiredRuns(maxAge time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for key, run := range m.runs {
		if _, pending := m.unsaved[key]; pending {
			continue
		}
		if run.LastAccessedAt.Before(cutoff) {
			delete(m.runs, key)
			removed++
		}
	}

	if removed > 0 {
		m.logger.Debug("Evicted expired runs", zap.Int("count", removed))
	}
	return removed
}

// Count returns the number of runs held in memory
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.runs)
}

// LoadPersistedRuns loads every persisted run into memory
func (m *Manager) LoadPersistedRuns() error {
	if m.persistence == nil {
		return nil
	}

	ids, err := m.persistence.ListAll()
	if err != nil {
		return fmt.Errorf("failed to list persisted runs: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	loaded := 0
	for _, id := range ids {
		key := strings.ToLower(id)
		if _, exists := m.runs[key]; exists {
			continue
		}

		run, err := m.persistence.Load(id)
		if err != nil {
			m.logger.Warn("Failed to load persisted run", zap.String("run_id", id), zap.Error(err))
			continue
		}

		m.runs[key] = run
		loaded++
	}

	if loaded > 0 {
		m.logger.Info("Loaded persisted runs", zap.Int("count", loaded))
	}
	return nil
}

// SaveAllRuns writes every in-memory run to persistence
func (m *Manager) SaveAllRuns() error {
	if m.persistence == nil {
		return nil
	}

	m.mu.RLock()
	runs := make([]*service.Run, 0, len(m.runs))
	for _, run := range m.runs {
		cp := *run
		runs = append(runs, &cp)
	}
	m.mu.RUnlock()

	failed := 0
	for _, run := range runs {
		key := strings.ToLower(run.ID)
		if err := m.persistence.Save(run); err != nil {
			m.logger.Warn("Failed to save run", zap.String("run_id", run.ID), zap.Error(err))
			failed++
			continue
		}
		m.mu.Lock()
		delete(m.unsaved, key)
		m.mu.Unlock()
	}

	if failed > 0 {
		return fmt.Errorf("failed to save %d runs", failed)
	}
	return nil
}

// PruneOrphaned drops in-memory runs whose persisted file was removed behind
// the manager's back. Runs still waiting for a successful save are kept.
func (m *Manager) PruneOrphaned() int {
	if m.persistence == nil {
		return 0
	}

	m.mu.RLock()
	keys := make([]string, 0, len(m.runs))
	for key := range m.runs {
		if _, pending := m.unsaved[key]; !pending {
			keys = append(keys, key)
		}
	}
	m.mu.RUnlock()

	var orphaned []string
	for _, key := range keys {
		if !m.persistence.Exists(key) {
			orphaned = append(orphaned, key)
		}
	}
	if len(orphaned) == 0 {
		return 0
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	pruned := 0
	for _, key := range orphaned {
		if _, pending := m.unsaved[key]; pending {
			continue
		}
		if _, exists := m.runs[key]; exists {
			delete(m.runs, key)
			pruned++
		}
	}
	return pruned
}
