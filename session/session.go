package session

import "time"

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

// UserProfile is the authenticated user as returned by the backend. It is
// immutable once fetched; only a login, register or sign-in response
// replaces it.
type UserProfile struct {
	ID        string  `json:"id"`
	Email     string  `json:"email"`
	FirstName *string `json:"firstName,omitempty"`
	LastName  *string `json:"lastName,omitempty"`
	Role      string  `json:"role"`
}

// Session is the authenticated identity state of the current user. Both
// tokens are either present or absent; a partial session is invalid and is
// treated as logged out.
type Session struct {
	AccessToken  string
	RefreshToken string
	User         UserProfile
}

// Valid reports whether the session holds both tokens.
func (s *Session) Valid() bool {
	return s != nil && s.AccessToken != "" && s.RefreshToken != ""
}

// ProfileClaims are the identity-provider claims forwarded alongside a
// social sign-in token.
type ProfileClaims struct {
	Subject    string
	Email      string
	GivenName  string
	FamilyName string
	Picture    string
}
