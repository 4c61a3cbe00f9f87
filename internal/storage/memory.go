package storage

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"

	"xcs/internal/model"
)

var errNotInitialized = errors.New("store is not initialized")

type MemoryStore struct {
	mu          sync.RWMutex
	initialized bool
	populations map[string]model.PopulationSnapshot
	runs        map[string]model.RunSummary
	performance map[string][]model.PerformancePoint
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.initialized = true
	s.populations = make(map[string]model.PopulationSnapshot)
	s.runs = make(map[string]model.RunSummary)
	s.performance = make(map[string][]model.PerformancePoint)
	return nil
}

func (s *MemoryStore) SavePopulation(_ context.Context, snapshot model.PopulationSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return errNotInitialized
	}
	snapshot.Rules = slices.Clone(snapshot.Rules)
	s.populations[snapshot.ID] = snapshot
	return nil
}

func (s *MemoryStore) GetPopulation(_ context.Context, id string) (model.PopulationSnapshot, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.initialized {
		return model.PopulationSnapshot{}, false, errNotInitialized
	}
	snapshot, ok := s.populations[id]
	if !ok {
		return model.PopulationSnapshot{}, false, nil
	}
	snapshot.Rules = slices.Clone(snapshot.Rules)
	return snapshot, true, nil
}

func (s *MemoryStore) SaveRun(_ context.Context, run model.RunSummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return errNotInitialized
	}
	s.runs[run.ID] = run
	return nil
}

func (s *MemoryStore) GetRun(_ context.Context, id string) (model.RunSummary, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.initialized {
		return model.RunSummary{}, false, errNotInitialized
	}
	run, ok := s.runs[id]
	return run, ok, nil
}

func (s *MemoryStore) ListRuns(_ context.Context) ([]model.RunSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.initialized {
		return nil, errNotInitialized
	}
	runs := make([]model.RunSummary, 0, len(s.runs))
	for _, run := range s.runs {
		runs = append(runs, run)
	}
	sortRuns(runs)
	return runs, nil
}

func (s *MemoryStore) SavePerformance(_ context.Context, runID string, points []model.PerformancePoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return errNotInitialized
	}
	s.performance[runID] = slices.Clone(points)
	return nil
}

func (s *MemoryStore) GetPerformance(_ context.Context, runID string) ([]model.PerformancePoint, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.initialized {
		return nil, false, errNotInitialized
	}
	points, ok := s.performance[runID]
	if !ok {
		return nil, false, nil
	}
	return slices.Clone(points), true, nil
}

// sortRuns orders runs by creation time. RFC 3339 UTC timestamps sort
// lexically; ids break ties.
func sortRuns(runs []model.RunSummary) {
	slices.SortFunc(runs, func(a, b model.RunSummary) int {
		if c := strings.Compare(a.CreatedAtUTC, b.CreatedAtUTC); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
}
