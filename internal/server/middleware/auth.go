package middleware

import (
	"context"
	"net/http"
	"strings"

	"hattbooks/backend/internal/api"
	"hattbooks/backend/internal/auth0"
	"hattbooks/backend/internal/security"
	"hattbooks/backend/internal/user/repository"
)

const bearerPrefix = "bearer "

// ExternalVerifier checks an externally-signed token and returns its subject.
// *auth0.Verifier satisfies it; tests supply a fake.
type ExternalVerifier interface {
	Verify(tokenString string) (subject string, err error)
}

// Authenticator resolves a bearer token to a user through two branches: the
// local issuer first, then the external identity provider when configured.
// The branches are explicit, never a silent fallthrough: a token the local
// issuer recognizes is judged by the local branch alone.
type Authenticator struct {
	users    repository.Repository
	tokens   *security.TokenProvider
	verifier ExternalVerifier
}

// NewAuthenticator returns an Authenticator. verifier may be nil when no
// external identity provider is configured; external tokens are then rejected.
func NewAuthenticator(users repository.Repository, tokens *security.TokenProvider, verifier ExternalVerifier) *Authenticator {
	return &Authenticator{users: users, tokens: tokens, verifier: verifier}
}

var _ ExternalVerifier = (*auth0.Verifier)(nil)

// Require wraps next so it only runs for authenticated requests, with the
// resolved identity in the request context.
func (a *Authenticator) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := extractBearer(r)
		if token == "" {
			api.Fail(w, api.Unauthorized("No token provided"))
			return
		}
		userID, mode, err := a.resolve(r.Context(), token)
		if err != nil {
			api.Fail(w, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), userID, mode)))
	})
}

// Optional wraps next so it always runs; if a bearer token is present and
// resolves, the identity is attached, otherwise the request proceeds
// anonymous. Used by routes that personalize output but don't require login.
func (a *Authenticator) Optional(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if token := extractBearer(r); token != "" {
			if userID, mode, err := a.resolve(r.Context(), token); err == nil {
				r = r.WithContext(WithIdentity(r.Context(), userID, mode))
			}
		}
		next.ServeHTTP(w, r)
	})
}

// resolve runs the two-branch check and returns the user id and auth mode.
func (a *Authenticator) resolve(ctx context.Context, token string) (string, string, error) {
	userID, purpose, localErr := a.tokens.DecodeLocal(token)
	if localErr == nil {
		// The local branch is authoritative for any token our issuer signed.
		if purpose == security.PurposeRefresh {
			return "", "", api.Unauthorized("Refresh tokens cannot be used for authentication. Use /api/auth/refresh endpoint.")
		}
		if purpose != security.PurposeAccess {
			return "", "", api.Unauthorized("Invalid token")
		}
		user, err := a.users.GetByID(ctx, userID)
		if err != nil {
			return "", "", err
		}
		if user == nil {
			return "", "", api.NotFound("User not found")
		}
		if !user.IsActive {
			return "", "", api.Forbidden("Account is deactivated")
		}
		return user.ID, ModeLocal, nil
	}

	if a.verifier == nil {
		return "", "", api.Unauthorized("Invalid token")
	}
	subject, err := a.verifier.Verify(token)
	if err != nil {
		return "", "", api.Unauthorized("Invalid or expired token")
	}

	// Signature verified but no account: surface NOT_FOUND so the client
	// registers instead of retrying auth.
	user, err := a.users.GetByAuth0ID(ctx, subject)
	if err != nil {
		return "", "", err
	}
	if user == nil {
		return "", "", api.NotFound("User not found in database. Please register first.")
	}
	if !user.IsActive {
		return "", "", api.Forbidden("Account is deactivated")
	}
	return user.ID, ModeExternal, nil
}

// extractBearer returns the Bearer token from the Authorization header, or ""
// if missing or malformed.
func extractBearer(r *http.Request) string {
	v := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(v) < len(bearerPrefix) {
		return ""
	}
	if !strings.EqualFold(v[:len(bearerPrefix)], bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(v[len(bearerPrefix):])
}
