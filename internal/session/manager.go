// Package session owns the refresh-token lifecycle on the user record:
// bounded list, expiry pruning, and revocation. Tokens are looked up by
// recomputing a deterministic fingerprint and scanning the short bounded list
// rather than through a keyed store; the write-time cap keeps the scan cheap.
package session

import (
	"context"
	"time"

	"hattbooks/backend/internal/security"
	"hattbooks/backend/internal/user/domain"
	"hattbooks/backend/internal/user/repository"
)

// Manager mutates a user's refresh-token list and performs exactly one
// repository write per operation.
type Manager struct {
	users      repository.Repository
	refreshTTL time.Duration
}

// NewManager returns a Manager persisting through users. refreshTTL is the
// lifetime applied to new records (must match the token issuer's refresh TTL).
func NewManager(users repository.Repository, refreshTTL time.Duration) *Manager {
	return &Manager{users: users, refreshTTL: refreshTTL}
}

// Add prunes expired records, FIFO-evicts over capacity, appends a record for
// the fingerprinted token with the request's IP and user agent, and persists.
func (m *Manager) Add(ctx context.Context, u *domain.User, tokenPlaintext, ipAddress, userAgent string) error {
	now := time.Now().UTC()
	u.AddRefreshToken(security.FingerprintToken(tokenPlaintext), ipAddress, userAgent, now, now.Add(m.refreshTTL))
	return m.users.Update(ctx, u)
}

// IsValid reports whether an unexpired record matching the token's
// fingerprint exists. A token whose record was revoked or evicted is invalid
// here even when its signature and expiry still verify.
func (m *Manager) IsValid(u *domain.User, tokenPlaintext string) bool {
	return u.HasRefreshToken(security.FingerprintToken(tokenPlaintext), time.Now().UTC())
}

// Revoke removes the record matching the token's fingerprint and persists.
// Revoking an unknown token is a no-op, not an error.
func (m *Manager) Revoke(ctx context.Context, u *domain.User, tokenPlaintext string) error {
	u.RemoveRefreshToken(security.FingerprintToken(tokenPlaintext))
	return m.users.Update(ctx, u)
}

// RevokeAll clears the entire list and persists (global logout).
func (m *Manager) RevokeAll(ctx context.Context, u *domain.User) error {
	u.ClearRefreshTokens()
	return m.users.Update(ctx, u)
}
