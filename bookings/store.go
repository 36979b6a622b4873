package bookings

import (
	"context"
	"net/url"
	"strconv"
	"sync"

	"github.com/pkg/errors"

	"github.com/jrsteele09/go-tourbook/api"
	errs "github.com/jrsteele09/go-tourbook/internal/errors"
)

// Store mirrors the current user's bookings as observable client-side state.
type Store struct {
	client *api.Client

	mu         sync.RWMutex
	bookings   []Booking
	selected   *Booking
	loading    bool
	errMsg     string
	pagination *api.Pagination
}

func NewStore(client *api.Client) *Store {
	return &Store{client: client}
}

// Fetch loads a page of the user's bookings. Page one replaces the held
// list; later pages append. Session-expiry failures are not stored as a
// display error since they resolve to a forced logout.
func (s *Store) Fetch(ctx context.Context, page, limit int) error {
	s.mu.Lock()
	s.loading = true
	s.errMsg = ""
	s.mu.Unlock()

	query := url.Values{}
	query.Set("page", strconv.Itoa(page))
	query.Set("limit", strconv.Itoa(limit))

	var resp ListResponse
	err := s.client.Get(ctx, "/bookings/user-bookings", &resp, api.WithQuery(query))

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false

	if err != nil {
		if !errs.Is(err, errs.ErrSessionExpired) && !errs.Is(err, errs.ErrNoRefreshToken) {
			s.errMsg = api.Message(err, "Failed to fetch bookings")
		}
		return errors.Wrap(err, "[Store.Fetch]")
	}

	if page <= 1 {
		s.bookings = resp.Data
	} else {
		s.bookings = append(s.bookings, resp.Data...)
	}
	s.pagination = &resp.Pagination
	return nil
}

// FetchByID loads a single booking as the selected one.
func (s *Store) FetchByID(ctx context.Context, id string) error {
	s.mu.Lock()
	s.loading = true
	s.errMsg = ""
	s.mu.Unlock()

	var booking Booking
	err := s.client.Get(ctx, "/bookings/"+id, &booking)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false

	if err != nil {
		s.errMsg = api.Message(err, "Failed to fetch booking")
		return errors.Wrap(err, "[Store.FetchByID]")
	}
	s.selected = &booking
	return nil
}

// Create posts a new booking and prepends it to the held list, returning its
// identifier.
func (s *Store) Create(ctx context.Context, input CreateBooking) (string, error) {
	s.mu.Lock()
	s.loading = true
	s.errMsg = ""
	s.mu.Unlock()

	var created Booking
	err := s.client.Post(ctx, "/bookings", input, &created)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false

	if err != nil {
		s.errMsg = api.Message(err, "Failed to create booking")
		return "", errors.Wrap(err, "[Store.Create]")
	}

	s.bookings = append([]Booking{created}, s.bookings...)
	return created.ID, nil
}

// UpdateStatus patches a booking's status and updates the held copies.
func (s *Store) UpdateStatus(ctx context.Context, id, status string) error {
	body := struct {
		Status string `json:"status"`
	}{Status: status}

	var updated Booking
	if err := s.client.Patch(ctx, "/bookings/"+id+"/status", body, &updated); err != nil {
		s.mu.Lock()
		s.errMsg = api.Message(err, "Failed to update booking")
		s.mu.Unlock()
		return errors.Wrap(err, "[Store.UpdateStatus]")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.bookings {
		if s.bookings[i].ID == id {
			s.bookings[i] = updated
		}
	}
	if s.selected != nil && s.selected.ID == id {
		s.selected = &updated
	}
	return nil
}

// Cancel marks a booking cancelled.
func (s *Store) Cancel(ctx context.Context, id string) error {
	return s.UpdateStatus(ctx, id, StatusCancelled)
}

// Clear resets the held bookings, selection, error and pagination.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bookings = nil
	s.selected = nil
	s.errMsg = ""
	s.pagination = nil
}

func (s *Store) Bookings() []Booking {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Booking(nil), s.bookings...)
}

func (s *Store) Selected() *Booking {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.selected == nil {
		return nil
	}
	copied := *s.selected
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

func (s *Store) Pagination() *api.Pagination {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.pagination == nil {
		return nil
	}
	copied := *s.pagination
	return &copied
}
