package reviews

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/jrsteele09/go-tourbook/api"
	"github.com/jrsteele09/go-tourbook/internal/utils"
)

const defaultPageLimit = 10

// pendingIDPrefix marks a locally-constructed placeholder review awaiting
// server confirmation.
const pendingIDPrefix = "pending-"

// Store mirrors a package's reviews as observable client-side state.
// Submission is optimistic: a placeholder with a client-generated identifier
// is shown immediately and reconciled by a re-fetch.
type Store struct {
	client *api.Client

	mu         sync.RWMutex
	reviews    []Review
	loading    bool
	errMsg     string
	pagination *api.Pagination
}

func NewStore(client *api.Client) *Store {
	return &Store{client: client}
}

// Fetch loads a page of reviews for a package. Page one replaces the held
// list; later pages append.
func (s *Store) Fetch(ctx context.Context, packageID string, page, limit int) error {
	s.mu.Lock()
	s.loading = true
	s.errMsg = ""
	s.mu.Unlock()

	query := url.Values{}
	query.Set("page", strconv.Itoa(page))
	query.Set("limit", strconv.Itoa(limit))

	var resp ListResponse
	err := s.client.Get(ctx, "/packages/"+packageID+"/reviews", &resp, api.WithQuery(query))

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false

	if err != nil {
		s.errMsg = api.Message(err, "Failed to fetch reviews")
		return errors.Wrap(err, "[Store.Fetch]")
	}

	if page <= 1 {
		s.reviews = resp.Reviews
	} else {
		s.reviews = append(s.reviews, resp.Reviews...)
	}
	s.pagination = &resp.Pagination
	return nil
}

// Create submits a review. A placeholder entry is inserted locally first so
// the submission is visible immediately; a reconciling re-fetch then either
// replaces it with the server's copy or discards it on failure. The re-fetch
// is the only removal mechanism; the placeholder is never surgically
// removed.
func (s *Store) Create(ctx context.Context, input CreateReview) (*Review, error) {
	placeholder := Review{
		ID:        pendingIDPrefix + uuid.NewString(),
		PackageID: input.PackageID,
		Rating:    input.Rating,
		Title:     optional(input.Title),
		Comment:   optional(input.Comment),
		Images:    input.Images,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	}

	s.mu.Lock()
	s.errMsg = ""
	s.reviews = append([]Review{placeholder}, s.reviews...)
	s.mu.Unlock()

	var created Review
	err := s.client.Post(ctx, "/packages/"+input.PackageID+"/reviews", input, &created)

	// Reconcile regardless of outcome: on success the server copy replaces
	// the placeholder, on failure the placeholder is discarded. A failed
	// reconcile records its own error through Fetch.
	_ = s.Fetch(ctx, input.PackageID, 1, defaultPageLimit)

	if err != nil {
		message := api.Message(err, "Failed to create review")
		if api.IsStatus(err, http.StatusConflict) {
			message = "You have already reviewed this tour package"
		}
		s.mu.Lock()
		s.errMsg = message
		s.mu.Unlock()
		return nil, errors.Wrap(err, "[Store.Create]")
	}

	return &created, nil
}

// Clear resets the held reviews, error and pagination.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reviews = nil
	s.errMsg = ""
	s.pagination = nil
}

func (s *Store) Reviews() []Review {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Review(nil), s.reviews...)
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

func optional(value string) *string {
	if value == "" {
		return nil
	}
	return utils.Ptr(value)
}
