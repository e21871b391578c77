// Package jobmanager is the job queue service behind POST /jobs. Records are
// kept in memory in creation order.
package jobmanager

import (
	"errors"
	"sync"

	"github.com/google/uuid"
)

const StatusPending = "pending"

var ErrNotFound = errors.New("job not found")

type Record struct {
	JobID    string  `json:"job_id"`
	Prompt   string  `json:"prompt"`
	Style    string  `json:"style"`
	Seed     any     `json:"seed"`
	Status   string  `json:"status"`
	ImageURL *string `json:"image_url"`
}

type Store struct {
	mu    sync.RWMutex
	order []string
	byID  map[string]Record
	newID func() string
}

func NewStore() *Store {
	return &Store{
		byID:  make(map[string]Record),
		newID: func() string { return uuid.NewString() },
	}
}

func (s *Store) Create(prompt, style string, seed any) Record {
	rec := Record{
		JobID:  s.newID(),
		Prompt: prompt,
		Style:  style,
		Seed:   seed,
		Status: StatusPending,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.order = append(s.order, rec.JobID)
	s.byID[rec.JobID] = rec
	return rec
}

func (s *Store) Get(id string) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.byID[id]
	if !ok {
		return Record{}, ErrNotFound
	}
	return rec, nil
}

func (s *Store) List() []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Record, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.byID[id])
	}
	return out
}
