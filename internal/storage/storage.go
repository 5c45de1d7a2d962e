package storage

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"ambient-light-meter/internal/model"
)

// Store keeps the latest reading and meter counters in a JSON file so they
// survive restarts.
type Store struct {
	path  string
	mu    sync.RWMutex
	state model.StoredState
}

func NewStore(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("store path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	s := &Store{path: path}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.state = defaultState()
			return s.saveLocked()
		}
		return err
	}
	if len(b) == 0 {
		s.state = defaultState()
		return s.saveLocked()
	}

	var state model.StoredState
	if err := json.Unmarshal(b, &state); err != nil {
		return err
	}
	if state.CreatedAt.IsZero() {
		state.CreatedAt = time.Now().UTC()
	}
	s.state = state
	return nil
}

func defaultState() model.StoredState {
	return model.StoredState{CreatedAt: time.Now().UTC()}
}

// saveLocked writes a temp file and renames it over the state file.
func (s *Store) saveLocked() error {
	s.state.LastUpdatedUnixMS = time.Now().UnixMilli()
	b, err := json.MarshalIndent(s.state, "", "  ")
	if err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

func (s *Store) Snapshot() model.StoredState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := s.state
	if st.LatestReading != nil {
		r := *st.LatestReading
		st.LatestReading = &r
	}
	return st
}

// RecordReading stores r as the latest reading and updates the counters.
func (s *Store) RecordReading(r model.Reading) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.LatestReading = &r
	s.state.RangeIndex = r.Attributes.RangeIndex
	s.state.MeasurementCount++
	if r.Attributes.RangeAdjusted {
		s.state.RangeChangeCount++
	}
	if r.Attributes.IsSaturated {
		s.state.SaturatedCount++
	}
	return s.saveLocked()
}

func (s *Store) GetLatestReading() *model.Reading {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state.LatestReading == nil {
		return nil
	}
	r := *s.state.LatestReading
	return &r
}
