package security

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	// ErrInvalidToken is returned when a token is malformed, tampered with,
	// expired, or signed for a different purpose. Callers must not expose
	// which of these it was.
	ErrInvalidToken = errors.New("invalid token")
)

// TokenPurpose tags a token as usable per-request (access) or only for
// minting new access tokens (refresh).
type TokenPurpose string

const (
	PurposeAccess  TokenPurpose = "access"
	PurposeRefresh TokenPurpose = "refresh"
)

// SessionClaims holds the JWT claims for locally issued tokens.
type SessionClaims struct {
	jwt.RegisteredClaims
	Purpose TokenPurpose `json:"purpose"`
}

// TokenProvider issues and validates HS256 access and refresh JWTs. Access and
// refresh tokens are signed with separate secrets so a refresh token can never
// be replayed as an access token even if purpose checking were skipped; the
// purpose claim is still checked explicitly at validation time.
type TokenProvider struct {
	accessSecret  []byte
	refreshSecret []byte
	issuer        string
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

// NewTokenProvider returns a TokenProvider signing with the given secrets.
// The secrets must differ; tests supply deterministic values.
func NewTokenProvider(accessSecret, refreshSecret []byte, issuer string, accessTTL, refreshTTL time.Duration) *TokenProvider {
	return &TokenProvider{
		accessSecret:  accessSecret,
		refreshSecret: refreshSecret,
		issuer:        issuer,
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
	}
}

// RefreshTTL returns the refresh token lifetime, shared with the session
// manager so stored record expiry matches token expiry.
func (p *TokenProvider) RefreshTTL() time.Duration { return p.refreshTTL }

// IssueAccess issues a short-lived access JWT for the user. Returns the token
// string and its expiration time.
func (p *TokenProvider) IssueAccess(userID string) (token string, expiresAt time.Time, err error) {
	return p.issue(userID, PurposeAccess, p.accessSecret, p.accessTTL)
}

// IssueRefresh issues a long-lived refresh JWT for the user. The caller must
// record its fingerprint in the user's session list; the plaintext is returned
// to the client exactly once.
func (p *TokenProvider) IssueRefresh(userID string) (token string, expiresAt time.Time, err error) {
	return p.issue(userID, PurposeRefresh, p.refreshSecret, p.refreshTTL)
}

func (p *TokenProvider) issue(userID string, purpose TokenPurpose, secret []byte, ttl time.Duration) (string, time.Time, error) {
	now := time.Now().UTC()
	expiresAt := now.Add(ttl)
	claims := SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			// The jti keeps tokens issued within the same second distinct,
			// which keeps their fingerprints distinct in the session list.
			ID:        uuid.New().String(),
			Subject:   userID,
			Issuer:    p.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Purpose: purpose,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	return token, expiresAt, err
}

// ValidateAccess parses and validates an access token (signature, exp, iss,
// purpose) against the access secret. Returns the user ID or ErrInvalidToken.
func (p *TokenProvider) ValidateAccess(tokenString string) (userID string, err error) {
	claims, err := p.validate(tokenString, p.accessSecret)
	if err != nil {
		return "", err
	}
	if claims.Purpose != PurposeAccess {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}

// ValidateRefresh parses and validates a refresh token against the refresh
// secret. Returns the user ID or ErrInvalidToken.
func (p *TokenProvider) ValidateRefresh(tokenString string) (userID string, err error) {
	claims, err := p.validate(tokenString, p.refreshSecret)
	if err != nil {
		return "", err
	}
	if claims.Purpose != PurposeRefresh {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}

// DecodeLocal parses tokenString against the access secret and, if that
// signature fails, the refresh secret. Used by the authenticator to detect a
// refresh token presented on a protected route, which must be rejected without
// falling through to external verification.
func (p *TokenProvider) DecodeLocal(tokenString string) (userID string, purpose TokenPurpose, err error) {
	claims, err := p.validate(tokenString, p.accessSecret)
	if err != nil {
		claims, err = p.validate(tokenString, p.refreshSecret)
	}
	if err != nil {
		return "", "", ErrInvalidToken
	}
	return claims.Subject, claims.Purpose, nil
}

// validate collapses every library decode failure (bad signature, malformed,
// expired) to ErrInvalidToken so callers cannot leak which one occurred.
func (p *TokenProvider) validate(tokenString string, secret []byte) (*SessionClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return secret, nil
	})
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if p.issuer != "" && claims.Issuer != p.issuer {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
