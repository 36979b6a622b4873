package apitest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/jrsteele09/go-tourbook/api"
	"github.com/jrsteele09/go-tourbook/bookings"
	"github.com/jrsteele09/go-tourbook/carousel"
	"github.com/jrsteele09/go-tourbook/internal/utils"
	"github.com/jrsteele09/go-tourbook/reviews"
	"github.com/jrsteele09/go-tourbook/session"
	"github.com/jrsteele09/go-tourbook/tours"
)

// Default credentials accepted by the fake backend.
const (
	UserEmail    = "john.doe@example.com"
	UserPassword = "password123"
	UserID       = "user-1"
)

var signingSecret = []byte("apitest-signing-secret")

// Backend is an in-process Tourbook backend double. Token issuance, refresh
// rotation, refresh failure and forced 401s are all scriptable so tests can
// drive the client's recovery protocol deterministically.
type Backend struct {
	server *httptest.Server

	mu            sync.Mutex
	user          session.UserProfile
	accessToken   string
	refreshToken  string
	googleIDToken string
	refreshCalls  int
	failRefresh   bool
	rotateRefresh bool
	refreshDelay  time.Duration
	unauthorized  map[string]bool

	packageList  []tours.Package
	bookingList  []bookings.Booking
	reviewsByPkg map[string][]reviews.Review
	carouselList []carousel.Item
}

// New starts a fake backend with one known user and a small tour catalogue.
func New() *Backend {
	b := &Backend{
		user: session.UserProfile{
			ID:        UserID,
			Email:     UserEmail,
			FirstName: utils.Ptr("John"),
			LastName:  utils.Ptr("Doe"),
			Role:      "USER",
		},
		unauthorized: make(map[string]bool),
		reviewsByPkg: make(map[string][]reviews.Review),
		packageList:  samplePackages(),
		carouselList: sampleCarousel(),
	}
	b.accessToken = MintAccessToken(15 * time.Minute)
	b.refreshToken = uuid.NewString()

	r := chi.NewRouter()
	r.Post("/auth/login", b.handleLogin)
	r.Post("/auth/register", b.handleRegister)
	r.Post("/auth/google", b.handleGoogle)
	r.Post("/auth/refresh", b.handleRefresh)
	r.Get("/auth/profile", b.requireAuth(b.handleProfile))

	r.Get("/packages", b.handleListPackages)
	r.Get("/packages/categories", b.handleCategories)
	r.Get("/packages/slug/{slug}", b.handlePackageBySlug)
	r.Get("/packages/{id}", b.handlePackageByID)
	r.Get("/packages/{id}/reviews", b.handleListReviews)
	r.Post("/packages/{id}/reviews", b.requireAuth(b.handleCreateReview))

	r.Get("/bookings/user-bookings", b.requireAuth(b.handleListBookings))
	r.Get("/bookings/{id}", b.requireAuth(b.handleBookingByID))
	r.Post("/bookings", b.requireAuth(b.handleCreateBooking))
	r.Patch("/bookings/{id}/status", b.requireAuth(b.handleUpdateBookingStatus))

	r.Get("/carousel/active", b.handleCarousel)
	r.Get("/health", b.handleHealth)

	b.server = httptest.NewServer(r)
	return b
}

func (b *Backend) URL() string { return b.server.URL }
func (b *Backend) Close()      { b.server.Close() }

// AccessToken returns the access token the backend currently accepts.
func (b *Backend) AccessToken() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.accessToken
}

// RefreshToken returns the refresh token the backend currently accepts.
func (b *Backend) RefreshToken() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.refreshToken
}

// RefreshCalls returns how many refresh requests the backend has received.
func (b *Backend) RefreshCalls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.refreshCalls
}

// SetFailRefresh makes every refresh request fail with 401.
func (b *Backend) SetFailRefresh(fail bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failRefresh = fail
}

// SetRotateRefresh makes each successful refresh rotate the refresh token.
func (b *Backend) SetRotateRefresh(rotate bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rotateRefresh = rotate
}

// SetRefreshDelay delays refresh responses, widening the window in which
// concurrent 401s pile onto one in-flight refresh.
func (b *Backend) SetRefreshDelay(d time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refreshDelay = d
}

// SetGoogleIDToken sets the single ID token /auth/google accepts.
func (b *Backend) SetGoogleIDToken(token string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.googleIDToken = token
}

// ExpireAccessToken invalidates the currently issued access token, as if it
// had expired server-side. Clients holding the old token get 401s until they
// refresh.
func (b *Backend) ExpireAccessToken() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.accessToken = MintAccessToken(15 * time.Minute)
}

// ForceUnauthorized makes an authenticated path return 401 regardless of the
// presented token.
func (b *Backend) ForceUnauthorized(path string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.unauthorized[path] = true
}

// SeedBookings replaces the booking fixtures.
func (b *Backend) SeedBookings(list []bookings.Booking) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.bookingList = list
}

// SeedPackages replaces the tour package fixtures.
func (b *Backend) SeedPackages(list []tours.Package) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.packageList = list
}

// SeedReviews replaces the review fixtures for a package.
func (b *Backend) SeedReviews(packageID string, list []reviews.Review) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.reviewsByPkg[packageID] = list
}

// MintAccessToken mints a signed token with the given lifetime without
// registering it as the accepted one. Negative lifetimes produce tokens that
// are already expired.
func MintAccessToken(ttl time.Duration) string {
	claims := jwtlib.RegisteredClaims{
		Subject:   UserID,
		IssuedAt:  jwtlib.NewNumericDate(time.Now()),
		ExpiresAt: jwtlib.NewNumericDate(time.Now().Add(ttl)),
		ID:        uuid.NewString(),
	}
	token, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString(signingSecret)
	if err != nil {
		panic(err)
	}
	return token
}

func (b *Backend) issueSession(w http.ResponseWriter) {
	b.mu.Lock()
	b.accessToken = MintAccessToken(15 * time.Minute)
	b.refreshToken = uuid.NewString()
	payload := map[string]any{
		"access_token":  b.accessToken,
		"refresh_token": b.refreshToken,
		"user":          b.user,
	}
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, payload)
}

func (b *Backend) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeMessage(w, http.StatusBadRequest, "Malformed request")
		return
	}
	if body.Email != UserEmail || body.Password != UserPassword {
		writeMessage(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}
	b.issueSession(w)
}

func (b *Backend) handleRegister(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email     string `json:"email"`
		Password  string `json:"password"`
		FirstName string `json:"firstName"`
		LastName  string `json:"lastName"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeMessage(w, http.StatusBadRequest, "Malformed request")
		return
	}
	if body.Email == UserEmail {
		writeMessage(w, http.StatusBadRequest, "Email already registered")
		return
	}

	b.mu.Lock()
	b.user = session.UserProfile{
		ID:        uuid.NewString(),
		Email:     body.Email,
		FirstName: utils.Ptr(body.FirstName),
		LastName:  utils.Ptr(body.LastName),
		Role:      "USER",
	}
	b.mu.Unlock()
	b.issueSession(w)
}

func (b *Backend) handleGoogle(w http.ResponseWriter, r *http.Request) {
	var body struct {
		IDToken string `json:"idToken"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeMessage(w, http.StatusBadRequest, "Malformed request")
		return
	}

	b.mu.Lock()
	accepted := b.googleIDToken != "" && body.IDToken == b.googleIDToken
	b.mu.Unlock()

	if !accepted {
		writeMessage(w, http.StatusUnauthorized, "Google token verification failed")
		return
	}
	b.issueSession(w)
}

func (b *Backend) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var body struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeMessage(w, http.StatusBadRequest, "Malformed request")
		return
	}

	b.mu.Lock()
	b.refreshCalls++
	delay := b.refreshDelay
	fail := b.failRefresh || body.RefreshToken != b.refreshToken
	b.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}

	if fail {
		writeMessage(w, http.StatusUnauthorized, "Invalid refresh token")
		return
	}

	b.mu.Lock()
	b.accessToken = MintAccessToken(15 * time.Minute)
	payload := map[string]any{"access_token": b.accessToken}
	if b.rotateRefresh {
		b.refreshToken = uuid.NewString()
		payload["refresh_token"] = b.refreshToken
	}
	b.mu.Unlock()

	writeJSON(w, http.StatusOK, payload)
}

func (b *Backend) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		forced := b.unauthorized[r.URL.Path]
		current := b.accessToken
		b.mu.Unlock()

		if forced {
			writeMessage(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		header := r.Header.Get("Authorization")
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] != current {
			writeMessage(w, http.StatusUnauthorized, "Invalid or expired token")
			return
		}
		next(w, r)
	}
}

func (b *Backend) handleProfile(w http.ResponseWriter, _ *http.Request) {
	b.mu.Lock()
	user := b.user
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, user)
}

func (b *Backend) handleListPackages(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	list := append([]tours.Package(nil), b.packageList...)
	b.mu.Unlock()

	if search := r.URL.Query().Get("search"); search != "" {
		filtered := list[:0]
		for _, pkg := range list {
			if strings.Contains(strings.ToLower(pkg.Title), strings.ToLower(search)) {
				filtered = append(filtered, pkg)
			}
		}
		list = filtered
	}

	page, pagination := paginate(list, r)
	writeJSON(w, http.StatusOK, map[string]any{"data": page, "pagination": pagination})
}

func (b *Backend) handleCategories(w http.ResponseWriter, _ *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()

	seen := make(map[string]bool)
	categories := make([]string, 0)
	for _, pkg := range b.packageList {
		if !seen[pkg.Category] {
			seen[pkg.Category] = true
			categories = append(categories, pkg.Category)
		}
	}
	writeJSON(w, http.StatusOK, categories)
}

func (b *Backend) handlePackageByID(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, pkg := range b.packageList {
		if pkg.ID == id {
			writeJSON(w, http.StatusOK, pkg)
			return
		}
	}
	writeMessage(w, http.StatusNotFound, "Package not found")
}

func (b *Backend) handlePackageBySlug(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, pkg := range b.packageList {
		if pkg.Slug != nil && *pkg.Slug == slug {
			writeJSON(w, http.StatusOK, pkg)
			return
		}
	}
	writeMessage(w, http.StatusNotFound, "Package not found")
}

func (b *Backend) handleListReviews(w http.ResponseWriter, r *http.Request) {
	packageID := chi.URLParam(r, "id")
	b.mu.Lock()
	list := append([]reviews.Review(nil), b.reviewsByPkg[packageID]...)
	b.mu.Unlock()

	page, pagination := paginate(list, r)
	writeJSON(w, http.StatusOK, map[string]any{"reviews": page, "pagination": pagination})
}

func (b *Backend) handleCreateReview(w http.ResponseWriter, r *http.Request) {
	packageID := chi.URLParam(r, "id")
	var body reviews.CreateReview
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeMessage(w, http.StatusBadRequest, "Malformed request")
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	for _, existing := range b.reviewsByPkg[packageID] {
		if existing.UserID == b.user.ID {
			writeMessage(w, http.StatusConflict, "Review already exists")
			return
		}
	}

	created := reviews.Review{
		ID:         uuid.NewString(),
		UserID:     b.user.ID,
		PackageID:  packageID,
		Rating:     body.Rating,
		Images:     body.Images,
		IsApproved: true,
		CreatedAt:  time.Now().UTC().Format(time.RFC3339),
		UpdatedAt:  time.Now().UTC().Format(time.RFC3339),
		User: reviews.ReviewAuthor{
			ID:        b.user.ID,
			FirstName: utils.Value(b.user.FirstName),
			LastName:  utils.Value(b.user.LastName),
		},
	}
	if body.Title != "" {
		created.Title = utils.Ptr(body.Title)
	}
	if body.Comment != "" {
		created.Comment = utils.Ptr(body.Comment)
	}
	b.reviewsByPkg[packageID] = append([]reviews.Review{created}, b.reviewsByPkg[packageID]...)

	writeJSON(w, http.StatusCreated, created)
}

func (b *Backend) handleListBookings(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	list := append([]bookings.Booking(nil), b.bookingList...)
	b.mu.Unlock()

	page, pagination := paginate(list, r)
	writeJSON(w, http.StatusOK, map[string]any{"data": page, "pagination": pagination})
}

func (b *Backend) handleBookingByID(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, booking := range b.bookingList {
		if booking.ID == id {
			writeJSON(w, http.StatusOK, booking)
			return
		}
	}
	writeMessage(w, http.StatusNotFound, "Booking not found")
}

func (b *Backend) handleCreateBooking(w http.ResponseWriter, r *http.Request) {
	var body bookings.CreateBooking
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeMessage(w, http.StatusBadRequest, "Malformed request")
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	created := bookings.Booking{
		ID:            uuid.NewString(),
		UserID:        b.user.ID,
		PackageID:     body.PackageID,
		Status:        bookings.StatusPending,
		StartDate:     body.StartDate,
		Guests:        body.Guests,
		TotalPrice:    strconv.FormatFloat(body.TotalPrice, 'f', 2, 64),
		Currency:      body.Currency,
		GuestNames:    body.GuestNames,
		PaymentStatus: bookings.PaymentPending,
		CreatedAt:     time.Now().UTC().Format(time.RFC3339),
		UpdatedAt:     time.Now().UTC().Format(time.RFC3339),
	}
	b.bookingList = append([]bookings.Booking{created}, b.bookingList...)

	writeJSON(w, http.StatusCreated, created)
}

func (b *Backend) handleUpdateBookingStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeMessage(w, http.StatusBadRequest, "Malformed request")
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.bookingList {
		if b.bookingList[i].ID == id {
			b.bookingList[i].Status = body.Status
			writeJSON(w, http.StatusOK, b.bookingList[i])
			return
		}
	}
	writeMessage(w, http.StatusNotFound, "Booking not found")
}

func (b *Backend) handleCarousel(w http.ResponseWriter, _ *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	writeJSON(w, http.StatusOK, b.carouselList)
}

func (b *Backend) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"version":   "1.0.0",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func paginate[T any](items []T, r *http.Request) ([]T, api.Pagination) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit < 1 {
		limit = 10
	}

	total := len(items)
	pages := (total + limit - 1) / limit
	start := (page - 1) * limit
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}

	return items[start:end], api.Pagination{Page: page, Limit: limit, Total: total, Pages: pages}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}

func samplePackages() []tours.Package {
	return []tours.Package{
		{
			ID:           "pkg-1",
			Title:        "Highland Trek",
			Price:        "499.00",
			Currency:     "USD",
			Duration:     5,
			MaxGuests:    12,
			Difficulty:   "MODERATE",
			Category:     "Hiking",
			LocationName: "Scottish Highlands",
			Slug:         utils.Ptr("highland-trek"),
			IsActive:     true,
			IsAvailable:  true,
			ReviewCount:  2,
		},
		{
			ID:           "pkg-2",
			Title:        "Coastal Kayak Adventure",
			Price:        "299.00",
			Currency:     "USD",
			Duration:     3,
			MaxGuests:    8,
			Difficulty:   "EASY",
			Category:     "Water Sports",
			LocationName: "Algarve Coast",
			Slug:         utils.Ptr("coastal-kayak-adventure"),
			IsActive:     true,
			IsAvailable:  true,
		},
		{
			ID:           "pkg-3",
			Title:        "Desert Stargazing Camp",
			Price:        "799.00",
			Currency:     "USD",
			Duration:     2,
			MaxGuests:    20,
			Difficulty:   "EASY",
			Category:     "Camping",
			LocationName: "Atacama Desert",
			Slug:         utils.Ptr("desert-stargazing-camp"),
			IsActive:     true,
			IsAvailable:  true,
		},
	}
}

func sampleCarousel() []carousel.Item {
	return []carousel.Item{
		{
			ID:          "car-1",
			Title:       "Summer Specials",
			ImageURL:    "https://cdn.example.com/banners/summer.jpg",
			ActionType:  carousel.ActionInternal,
			ActionValue: "pkg-1",
			Priority:    1,
			IsActive:    true,
		},
	}
}
