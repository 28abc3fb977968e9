// Package store persists load test run records.
package store

import (
	"sort"
	"sync"

	"github.com/pkg/errors"

	"loadtest-server/models"
)

// ErrNotFound is returned when no record exists for an ID
var ErrNotFound = errors.New("load test run not found")

// Store is implemented by every run record backend
type Store interface {
	// Add inserts or replaces a record
	Add(rec *models.RunRecord) error
	Get(id string) (*models.RunRecord, error)
	// GetAll returns every record, oldest first
	GetAll() ([]*models.RunRecord, error)
	Delete(id string) error
	Close() error
}

// LocalStore keeps records in memory
type LocalStore struct {
	mu   sync.RWMutex
	runs map[string]models.RunRecord
}

func NewLocalStore() *LocalStore {
	return &LocalStore{
		runs: make(map[string]models.RunRecord),
	}
}

func (s *LocalStore) Add(rec *models.RunRecord) error {
	if rec == nil || rec.ID == "" {
		return errors.New("record has no id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[rec.ID] = *rec
	return nil
}

func (s *LocalStore) Get(id string) (*models.RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.runs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &rec, nil
}

func (s *LocalStore) GetAll() ([]*models.RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]*models.RunRecord, 0, len(s.runs))
	for id := range s.runs {
		rec := s.runs[id]
		result = append(result, &rec)
	}
	sortByStart(result)
	return result, nil
}

func (s *LocalStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.runs[id]; !ok {
		return ErrNotFound
	}
	delete(s.runs, id)
	return nil
}

func (s *LocalStore) Close() error {
	return nil
}

func sortByStart(recs []*models.RunRecord) {
	sort.SliceStable(recs, func(i, j int) bool {
		if recs[i].StartedAt.Equal(recs[j].StartedAt) {
			return recs[i].ID < recs[j].ID
		}
		return recs[i].StartedAt.Before(recs[j].StartedAt)
	})
}
