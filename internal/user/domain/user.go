package domain

import (
	"errors"
	"regexp"
	"time"

	"hattbooks/backend/internal/security"
)

// AuthProvider identifies the credential path used to create the account.
type AuthProvider string

const (
	ProviderLocal    AuthProvider = "local"
	ProviderAuth0    AuthProvider = "auth0"
	ProviderGoogle   AuthProvider = "google"
	ProviderFacebook AuthProvider = "facebook"
)

// MaxRefreshTokens caps the per-user refresh-token list; it bounds storage and
// limits concurrent sessions to five devices. The oldest record is evicted
// first (FIFO) when the cap is reached.
const MaxRefreshTokens = 5

// MaxBioLength is the maximum bio length in characters.
const MaxBioLength = 500

var usernameRe = regexp.MustCompile(`^[a-zA-Z0-9_]{3,30}$`)

// RefreshTokenRecord is one device session. Token holds the SHA-256
// fingerprint of the refresh token, never the plaintext.
type RefreshTokenRecord struct {
	Token     string    `json:"token"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
	IPAddress string    `json:"ipAddress,omitempty"`
	UserAgent string    `json:"userAgent,omitempty"`
}

// User is the account aggregate: identity, credential, profile, and session
// state. PasswordHash is empty for external-identity-only accounts.
type User struct {
	ID           string
	Auth0ID      string // external-identity id; empty when none
	Email        string // unique, lowercase
	Username     string // unique, lowercase, 3–30 chars, alphanumeric + underscore
	DisplayName  string
	PasswordHash string // never serialized outward
	AuthProvider AuthProvider

	Avatar      string
	Bio         string
	Preferences map[string]any
	Followers   []string
	Following   []string

	IsActive  bool
	LastLogin time.Time

	RefreshTokens []RefreshTokenRecord

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Validate validates the user for persistence. Returns an error describing the
// first validation failure.
func (u *User) Validate() error {
	if u.Email == "" {
		return errors.New("email is required")
	}
	if !usernameRe.MatchString(u.Username) {
		return errors.New("username must be 3-30 characters, letters, numbers and underscore only")
	}
	if u.DisplayName == "" {
		return errors.New("display name is required")
	}
	if len([]rune(u.Bio)) > MaxBioLength {
		return errors.New("bio must be at most 500 characters")
	}
	if u.AuthProvider == "" {
		u.AuthProvider = ProviderLocal
	}
	return nil
}

// PruneRefreshTokens drops records whose expiry is not after now. Mutates the
// user value only; the caller persists.
func (u *User) PruneRefreshTokens(now time.Time) {
	kept := u.RefreshTokens[:0]
	for _, rt := range u.RefreshTokens {
		if rt.ExpiresAt.After(now) {
			kept = append(kept, rt)
		}
	}
	u.RefreshTokens = kept
}

// AddRefreshToken prunes expired records, evicts the single oldest when the
// list is at capacity, and appends a record for the given fingerprint.
func (u *User) AddRefreshToken(fingerprint, ipAddress, userAgent string, now, expiresAt time.Time) {
	u.PruneRefreshTokens(now)
	if len(u.RefreshTokens) >= MaxRefreshTokens {
		u.RefreshTokens = u.RefreshTokens[1:]
	}
	u.RefreshTokens = append(u.RefreshTokens, RefreshTokenRecord{
		Token:     fingerprint,
		CreatedAt: now,
		ExpiresAt: expiresAt,
		IPAddress: ipAddress,
		UserAgent: userAgent,
	})
}

// HasRefreshToken reports whether an unexpired record with the given
// fingerprint exists. Fingerprints are compared in constant time.
func (u *User) HasRefreshToken(fingerprint string, now time.Time) bool {
	for _, rt := range u.RefreshTokens {
		if security.FingerprintEqual(rt.Token, fingerprint) && rt.ExpiresAt.After(now) {
			return true
		}
	}
	return false
}

// RemoveRefreshToken drops the record matching the fingerprint, if present.
// Matching is by fingerprint value equality, not by decoding the token.
func (u *User) RemoveRefreshToken(fingerprint string) {
	kept := u.RefreshTokens[:0]
	for _, rt := range u.RefreshTokens {
		if rt.Token != fingerprint {
			kept = append(kept, rt)
		}
	}
	u.RefreshTokens = kept
}

// ClearRefreshTokens drops every session record (global logout).
func (u *User) ClearRefreshTokens() {
	u.RefreshTokens = nil
}

// PublicProfile is the outward user projection. It never includes the
// password hash or the refresh-token list.
type PublicProfile struct {
	ID             string       `json:"id"`
	Username       string       `json:"username"`
	DisplayName    string       `json:"displayName"`
	Avatar         string       `json:"avatar,omitempty"`
	Bio            string       `json:"bio"`
	AuthProvider   AuthProvider `json:"authProvider"`
	FollowersCount int          `json:"followersCount"`
	FollowingCount int          `json:"followingCount"`
	CreatedAt      time.Time    `json:"createdAt"`
}

// ToPublicProfile returns the public-safe projection with computed
// follower/following counts.
func (u *User) ToPublicProfile() PublicProfile {
	return PublicProfile{
		ID:             u.ID,
		Username:       u.Username,
		DisplayName:    u.DisplayName,
		Avatar:         u.Avatar,
		Bio:            u.Bio,
		AuthProvider:   u.AuthProvider,
		FollowersCount: len(u.Followers),
		FollowingCount: len(u.Following),
		CreatedAt:      u.CreatedAt,
	}
}
