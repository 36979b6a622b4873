package health

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/jrsteele09/go-tourbook/api"
)

// Data is the backend's health report.
type Data struct {
	Status    string `json:"status"`
	Version   string `json:"version"`
	Timestamp string `json:"timestamp"`
}

// Store mirrors the backend health status.
type Store struct {
	client *api.Client

	mu      sync.RWMutex
	data    *Data
	loading bool
	errMsg  string
}

func NewStore(client *api.Client) *Store {
	return &Store{client: client}
}

// Fetch loads the backend health report.
func (s *Store) Fetch(ctx context.Context) error {
	s.mu.Lock()
	s.loading = true
	s.errMsg = ""
	s.mu.Unlock()

	var data Data
	err := s.client.Get(ctx, "/health", &data)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false

	if err != nil {
		s.errMsg = api.Message(err, "Failed to fetch health status")
		return errors.Wrap(err, "[Store.Fetch]")
	}
	s.data = &data
	return nil
}

func (s *Store) Data() *Data {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.data == nil {
		return nil
	}
	copied := *s.data
	return &copied
}

func (s *Store) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

func (s *Store) Err() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.errMsg
}
