package carousel

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/jrsteele09/go-tourbook/api"
)

// Action types for carousel items.
const (
	ActionInternal = "INTERNAL"
	ActionExternal = "EXTERNAL"
)

// Item is a home-screen carousel entry.
type Item struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Description *string `json:"description,omitempty"`
	ImageURL    string  `json:"imageUrl"`
	ActionType  string  `json:"actionType"`
	ActionValue string  `json:"actionValue"`
	Priority    int     `json:"priority"`
	IsActive    bool    `json:"isActive"`
	CreatedAt   string  `json:"createdAt"`
	UpdatedAt   string  `json:"updatedAt"`
}

// Store mirrors the active carousel items.
type Store struct {
	client *api.Client

	mu      sync.RWMutex
	items   []Item
	loading bool
	errMsg  string
}

func NewStore(client *api.Client) *Store {
	return &Store{client: client}
}

// FetchActive loads the currently active carousel items.
func (s *Store) FetchActive(ctx context.Context) error {
	s.mu.Lock()
	s.loading = true
	s.errMsg = ""
	s.mu.Unlock()

	var items []Item
	err := s.client.Get(ctx, "/carousel/active", &items)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false

	if err != nil {
		s.errMsg = api.Message(err, "Failed to fetch carousel items")
		return errors.Wrap(err, "[Store.FetchActive]")
	}
	s.items = items
	return nil
}

func (s *Store) Items() []Item {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Item(nil), s.items...)
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
