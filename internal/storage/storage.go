package storage

import (
	"errors"
	"slices"
	"sync"

	"github.com/eugenenazirov/litrun/internal/runner"
	"github.com/eugenenazirov/litrun/internal/shtest"
)

const defaultHistory = 10

var (
	// ErrRunNotFound indicates no stored run matches the request.
	ErrRunNotFound = errors.New("test run not found")
	// ErrInvalidRun indicates the run cannot be stored.
	ErrInvalidRun = errors.New("test run must have an ID")
)

// Storage keeps the completed test runs.
type Storage interface {
	SaveRun(run runner.Run) error
	Latest() (runner.Run, error)
	GetRun(id string) (runner.Run, error)
	ListRuns() ([]runner.Run, error)
}

// MemoryStorage keeps a bounded history of runs in-memory and guards access with a RWMutex.
type MemoryStorage struct {
	mu      sync.RWMutex
	limit   int
	history []runner.Run
}

// NewMemoryStorage initialises storage that retains up to limit runs.
// A non-positive limit uses the default history size.
func NewMemoryStorage(limit int) *MemoryStorage {
	if limit <= 0 {
		limit = defaultHistory
	}
	return &MemoryStorage{
		limit:   limit,
		history: make([]runner.Run, 0, limit),
	}
}

// SaveRun stores a copy of run as the newest entry, evicting the oldest when full.
func (s *MemoryStorage) SaveRun(run runner.Run) error {
	if run.ID == "" {
		return ErrInvalidRun
	}

	stored := cloneRun(run)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.history = slices.Insert(s.history, 0, stored)
	if len(s.history) > s.limit {
		s.history = s.history[:s.limit]
	}
	return nil
}

// Latest returns a copy of the newest run.
func (s *MemoryStorage) Latest() (runner.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.history) == 0 {
		return runner.Run{}, ErrRunNotFound
	}
	return cloneRun(s.history[0]), nil
}

// GetRun returns a copy of the run with the given ID.
func (s *MemoryStorage) GetRun(id string) (runner.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, run := range s.history {
		if run.ID == id {
			return cloneRun(run), nil
		}
	}
	return runner.Run{}, ErrRunNotFound
}

// ListRuns returns copies of the stored runs, newest first.
func (s *MemoryStorage) ListRuns() ([]runner.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]runner.Run, 0, len(s.history))
	for _, run := range s.history {
		out = append(out, cloneRun(run))
	}
	return out, nil
}

func cloneRun(src runner.Run) runner.Run {
	out := src
	out.Results = slices.Clone(src.Results)
	if out.Results == nil {
		out.Results = []shtest.Result{}
	}
	if src.Summary.Counts != nil {
		out.Summary.Counts = make(map[shtest.Status]int, len(src.Summary.Counts))
		for status, count := range src.Summary.Counts {
			out.Summary.Counts[status] = count
		}
	}
	return out
}
