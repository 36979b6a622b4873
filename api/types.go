package api

import "context"

// TokenAuthority is the session manager's interface as seen by the client.
// The client never caches tokens locally; it reads them through the authority
// on every request so a refresh is visible to all in-flight callers.
type TokenAuthority interface {
	// AccessToken returns the current access token, or "" when logged out.
	AccessToken() string
	// RefreshToken returns the current refresh token, or "" when logged out.
	RefreshToken() string
	// RefreshAccessToken obtains a new access token. Concurrent callers
	// converge on a single underlying refresh.
	RefreshAccessToken(ctx context.Context) (string, error)
	// Logout clears the session unconditionally. It never fails observably.
	Logout()
}

// Pagination is the uniform paging envelope used by list endpoints.
type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

// HasMore reports whether a further page can be requested.
func (p Pagination) HasMore() bool {
	return p.Page < p.Pages
}
