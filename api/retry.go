package api

import "context"

// recover implements the 401 recovery protocol: mark the request retried,
// refresh the access token through the authority, and replay the original
// request once with the updated bearer. The original caller never observes
// the intermediate 401 when recovery succeeds.
//
// A 401 is propagated as-is when:
//   - the request was already replayed once (single retry invariant),
//   - the request is itself the refresh endpoint (no refresh-of-refresh),
//   - no authority is bound,
//   - no refresh token is held (logout, then propagate the original failure).
func (c *Client) recover(ctx context.Context, req request, out any, cause *Error) error {
	if req.retried {
		return cause
	}
	if req.path == c.refreshPath {
		return cause
	}
	if c.authority == nil {
		return cause
	}

	if c.authority.RefreshToken() == "" {
		c.log.Debug().Str("path", req.path).Msg("401 with no refresh token held, logging out")
		c.authority.Logout()
		return cause
	}

	c.log.Debug().Str("path", req.path).Msg("401 received, refreshing access token")

	if _, err := c.authority.RefreshAccessToken(ctx); err != nil {
		// The authority has already logged out on rejection; its error is
		// the result of the original request.
		return err
	}

	replay := req
	replay.retried = true
	return c.send(ctx, replay, out)
}
