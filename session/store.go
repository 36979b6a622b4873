package session

// Fixed keys under which the session fields are persisted.
const (
	KeyAccessToken  = "access_token"
	KeyRefreshToken = "refresh_token"
	KeyUser         = "user"
)

// TokenStore is durable, process-restart-surviving storage for the session
// fields. Implementations do no validation; absent keys read back as "".
type TokenStore interface {
	Get(key string) (string, error)
	Set(key, value string) error
	Remove(keys ...string) error
}
