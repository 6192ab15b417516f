package security

import "time"

// NewTestTokenProvider returns a TokenProvider with fixed secrets and short
// TTLs. For unit tests only; callers must not use in production.
func NewTestTokenProvider() *TokenProvider {
	return NewTokenProvider(
		[]byte("test-access-secret"),
		[]byte("test-refresh-secret"),
		"test-issuer",
		15*time.Minute,
		7*24*time.Hour,
	)
}
