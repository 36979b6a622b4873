package session

import (
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

// AccessTokenInfo is the client-visible metadata of an access token.
type AccessTokenInfo struct {
	Subject   string
	ExpiresAt time.Time
}

// Expired reports whether the token's expiry has passed. Tokens without an
// exp claim never report expired.
func (i *AccessTokenInfo) Expired(now time.Time) bool {
	return !i.ExpiresAt.IsZero() && i.ExpiresAt.Before(now)
}

// InspectAccessToken parses the registered claims of an access token without
// verifying its signature. Verification is the backend's job; the client
// only inspects the subject and expiry for logging and status display.
func InspectAccessToken(raw string) (*AccessTokenInfo, error) {
	var claims jwtlib.RegisteredClaims
	if _, _, err := jwtlib.NewParser().ParseUnverified(raw, &claims); err != nil {
		return nil, errors.Wrap(err, "[InspectAccessToken] parse token")
	}

	info := &AccessTokenInfo{Subject: claims.Subject}
	if claims.ExpiresAt != nil {
		info.ExpiresAt = claims.ExpiresAt.Time
	}
	return info, nil
}
