package tours

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/jrsteele09/go-tourbook/api"
)

// Store mirrors the backend's tour packages as observable client-side state:
// data, a loading flag and a display error. All reads go through snapshot
// accessors; mutation happens only inside the fetch methods.
type Store struct {
	client *api.Client

	mu          sync.RWMutex
	packages    []Package
	selected    *Package
	categories  []string
	popular     []Package
	loading     bool
	loadingMore bool
	errMsg      string
	filters     Filters
	pagination  *api.Pagination
}

func NewStore(client *api.Client) *Store {
	return &Store{client: client}
}

// FetchPackages loads a page of packages. Page one (or an unset page)
// replaces the held list; later pages append to it.
func (s *Store) FetchPackages(ctx context.Context, filters Filters) error {
	s.mu.Lock()
	appending := s.loadingMore
	if !appending {
		s.loading = true
		s.errMsg = ""
	}
	s.mu.Unlock()

	var resp ListResponse
	err := s.client.Get(ctx, "/packages", &resp, api.WithQuery(filters.Values()))

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false
	s.loadingMore = false

	if err != nil {
		s.errMsg = api.Message(err, "Failed to fetch packages")
		return errors.Wrap(err, "[Store.FetchPackages]")
	}

	if filters.Page <= 1 {
		s.packages = resp.Data
	} else {
		s.packages = append(s.packages, resp.Data...)
	}
	s.pagination = &resp.Pagination
	s.filters = filters
	return nil
}

// LoadMore fetches the next page and appends it. It is a no-op when a fetch
// is already running or no further page exists.
func (s *Store) LoadMore(ctx context.Context) error {
	s.mu.Lock()
	if s.loading || s.loadingMore || s.pagination == nil || !s.pagination.HasMore() {
		s.mu.Unlock()
		return nil
	}
	s.loadingMore = true
	next := s.filters
	next.Page = s.pagination.Page + 1
	s.mu.Unlock()

	return s.FetchPackages(ctx, next)
}

// FetchByID loads a single package as the selected one.
func (s *Store) FetchByID(ctx context.Context, id string) error {
	return s.fetchSelected(ctx, "/packages/"+id)
}

// FetchBySlug loads a single package by its slug as the selected one.
func (s *Store) FetchBySlug(ctx context.Context, slug string) error {
	return s.fetchSelected(ctx, "/packages/slug/"+slug)
}

func (s *Store) fetchSelected(ctx context.Context, path string) error {
	s.mu.Lock()
	s.loading = true
	s.errMsg = ""
	s.mu.Unlock()

	var pkg Package
	err := s.client.Get(ctx, path, &pkg)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false

	if err != nil {
		s.errMsg = api.Message(err, "Failed to fetch package")
		return errors.Wrap(err, "[Store.fetchSelected]")
	}
	s.selected = &pkg
	return nil
}

// FetchCategories loads the category list. Failures are logged by the
// caller's error; the held categories stay untouched.
func (s *Store) FetchCategories(ctx context.Context) error {
	var categories []string
	if err := s.client.Get(ctx, "/packages/categories", &categories); err != nil {
		return errors.Wrap(err, "[Store.FetchCategories]")
	}

	s.mu.Lock()
	s.categories = categories
	s.mu.Unlock()
	return nil
}

// FetchPopular loads the six most popular packages.
func (s *Store) FetchPopular(ctx context.Context) error {
	var resp ListResponse
	query := Filters{Limit: 6, SortBy: "popularity"}.Values()
	if err := s.client.Get(ctx, "/packages", &resp, api.WithQuery(query)); err != nil {
		return errors.Wrap(err, "[Store.FetchPopular]")
	}

	s.mu.Lock()
	s.popular = resp.Data
	s.mu.Unlock()
	return nil
}

// Search fetches the first page matching the query string.
func (s *Store) Search(ctx context.Context, query string) error {
	return s.FetchPackages(ctx, Filters{Search: query, Page: 1})
}

// SetFilters merges the given filters into the held ones without fetching.
func (s *Store) SetFilters(filters Filters) {
	s.mu.Lock()
	s.filters = filters
	s.mu.Unlock()
}

// Clear resets the held packages, selection, error and pagination.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.packages = nil
	s.selected = nil
	s.errMsg = ""
	s.pagination = nil
	s.filters = Filters{}
}

func (s *Store) Packages() []Package {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Package(nil), s.packages...)
}

func (s *Store) Selected() *Package {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.selected == nil {
		return nil
	}
	copied := *s.selected
	return &copied
}

func (s *Store) Categories() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.categories...)
}

func (s *Store) Popular() []Package {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Package(nil), s.popular...)
}

func (s *Store) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading || s.loadingMore
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
