// Package auth orchestrates registration, login, profile, and refresh-token
// operations over the user store, credential codec, token issuer, and session
// manager.
package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"hattbooks/backend/internal/api"
	"hattbooks/backend/internal/audit"
	auditdomain "hattbooks/backend/internal/audit/domain"
	"hattbooks/backend/internal/security"
	"hattbooks/backend/internal/session"
	"hattbooks/backend/internal/user/domain"
	"hattbooks/backend/internal/user/repository"
)

// RequestMeta carries per-request origin data recorded on session records and
// audit entries.
type RequestMeta struct {
	IPAddress string
	UserAgent string
}

// Service implements the account and session operations. It holds no mutable
// state; every operation is a single linear flow with early-exit validation.
type Service struct {
	users    repository.Repository
	sessions *session.Manager
	hasher   *security.Hasher
	tokens   *security.TokenProvider
	audit    audit.AuditLogger
}

// NewService returns a Service with the given dependencies. auditLogger may be
// nil to disable the audit trail.
func NewService(
	users repository.Repository,
	sessions *session.Manager,
	hasher *security.Hasher,
	tokens *security.TokenProvider,
	auditLogger audit.AuditLogger,
) *Service {
	if auditLogger == nil {
		auditLogger = (*audit.Logger)(nil)
	}
	return &Service{
		users:    users,
		sessions: sessions,
		hasher:   hasher,
		tokens:   tokens,
		audit:    auditLogger,
	}
}

// RegisterLocalInput is the register-local request body.
type RegisterLocalInput struct {
	Email       string `json:"email"`
	Username    string `json:"username"`
	DisplayName string `json:"displayName"`
	Password    string `json:"password"`
	Avatar      string `json:"avatar"`
}

// RegisterSocialInput is the register-social request body. Provider defaults
// to auth0 when empty.
type RegisterSocialInput struct {
	Auth0ID     string `json:"auth0Id"`
	Email       string `json:"email"`
	Username    string `json:"username"`
	DisplayName string `json:"displayName"`
	Avatar      string `json:"avatar"`
	Provider    string `json:"provider"`
}

// UpdateProfileInput is a partial profile update: only non-nil fields mutate;
// Preferences merges shallowly over the existing object.
type UpdateProfileInput struct {
	DisplayName *string        `json:"displayName"`
	Bio         *string        `json:"bio"`
	Avatar      *string        `json:"avatar"`
	Preferences map[string]any `json:"preferences"`
}

// SessionPayload is the response for local register and login: the public
// profile plus both tokens.
type SessionPayload struct {
	User         domain.PublicProfile `json:"user"`
	AccessToken  string               `json:"accessToken"`
	RefreshToken string               `json:"refreshToken"`
	Message      string               `json:"message"`
}

// ProfilePayload is the response for operations that return the user only.
type ProfilePayload struct {
	User    domain.PublicProfile `json:"user"`
	Message string               `json:"message"`
}

// MeView is the authenticated user's own account view: the full record minus
// the password hash and refresh-token list.
type MeView struct {
	ID             string              `json:"id"`
	Auth0ID        string              `json:"auth0Id,omitempty"`
	Email          string              `json:"email"`
	Username       string              `json:"username"`
	DisplayName    string              `json:"displayName"`
	Avatar         string              `json:"avatar,omitempty"`
	Bio            string              `json:"bio"`
	AuthProvider   domain.AuthProvider `json:"authProvider"`
	Preferences    map[string]any      `json:"preferences"`
	IsActive       bool                `json:"isActive"`
	LastLogin      time.Time           `json:"lastLogin"`
	FollowersCount int                 `json:"followersCount"`
	FollowingCount int                 `json:"followingCount"`
	CreatedAt      time.Time           `json:"createdAt"`
	UpdatedAt      time.Time           `json:"updatedAt"`
}

// RefreshPayload is the response for a successful token refresh.
type RefreshPayload struct {
	AccessToken string `json:"accessToken"`
	Message     string `json:"message"`
}

// MessagePayload is the response for operations with no data beyond a message.
type MessagePayload struct {
	Message string `json:"message"`
}

const welcomeMessage = "¡Bienvenido a HattBooks! Tu cuenta ha sido creada exitosamente."

var validProviders = map[domain.AuthProvider]bool{
	domain.ProviderLocal:    true,
	domain.ProviderAuth0:    true,
	domain.ProviderGoogle:   true,
	domain.ProviderFacebook: true,
}

// RegisterLocal creates a local-credential account, issues a token pair, and
// records the session.
func (s *Service) RegisterLocal(ctx context.Context, in RegisterLocalInput, meta RequestMeta) (*SessionPayload, error) {
	if in.Email == "" || in.Username == "" || in.DisplayName == "" || in.Password == "" {
		return nil, api.BadRequest("Missing required fields", map[string]any{
			"required": []string{"email", "username", "displayName", "password"},
		})
	}
	if len(in.Password) < 8 {
		return nil, api.BadRequest("Password must be at least 8 characters long", nil)
	}

	email := strings.ToLower(strings.TrimSpace(in.Email))
	username := strings.ToLower(strings.TrimSpace(in.Username))

	// Email takes priority when both collide.
	if existing, err := s.users.GetByEmail(ctx, email); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, api.Conflict("Email already in use")
	}
	if existing, err := s.users.GetByUsername(ctx, username); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, api.Conflict("Username already taken")
	}

	now := time.Now().UTC()
	user := &domain.User{
		ID:           uuid.New().String(),
		Email:        email,
		Username:     username,
		DisplayName:  strings.TrimSpace(in.DisplayName),
		AuthProvider: domain.ProviderLocal,
		Avatar:       in.Avatar,
		IsActive:     true,
		LastLogin:    now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := user.Validate(); err != nil {
		return nil, api.BadRequest(err.Error(), nil)
	}

	// The slow hash runs once, here; saves never re-hash.
	hashed, err := s.hasher.Hash([]byte(in.Password))
	if err != nil {
		return nil, err
	}
	user.PasswordHash = hashed

	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	accessToken, refreshToken, err := s.issueTokenPair(ctx, user, meta)
	if err != nil {
		return nil, err
	}
	s.audit.LogEvent(ctx, user.ID, auditdomain.ActionRegister, "user", meta.IPAddress, "")

	return &SessionPayload{
		User:         user.ToPublicProfile(),
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		Message:      welcomeMessage,
	}, nil
}

// LoginLocal authenticates email/password, updates last-login, issues a token
// pair, and records the session. Unknown email and wrong password return the
// same message so account existence never leaks.
func (s *Service) LoginLocal(ctx context.Context, email, password string, meta RequestMeta) (*SessionPayload, error) {
	if email == "" || password == "" {
		return nil, api.BadRequest("Email and password are required", nil)
	}

	user, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, api.Unauthorized("Invalid email or password")
	}
	if user.AuthProvider != domain.ProviderLocal {
		return nil, api.BadRequest(fmt.Sprintf(
			"This account uses %s login. Please use the %q button to sign in.",
			user.AuthProvider, user.AuthProvider), nil)
	}
	if !s.hasher.Verify(password, user.PasswordHash) {
		s.audit.LogEvent(ctx, user.ID, auditdomain.ActionLoginFailure, "user", meta.IPAddress, "")
		return nil, api.Unauthorized("Invalid email or password")
	}

	user.LastLogin = time.Now().UTC()
	accessToken, refreshToken, err := s.issueTokenPair(ctx, user, meta)
	if err != nil {
		return nil, err
	}
	s.audit.LogEvent(ctx, user.ID, auditdomain.ActionLoginSuccess, "user", meta.IPAddress, "")

	return &SessionPayload{
		User:         user.ToPublicProfile(),
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		Message:      fmt.Sprintf("¡Bienvenido de vuelta, %s!", user.DisplayName),
	}, nil
}

// RegisterSocial creates an account backed by an external identity. No local
// tokens are issued; the caller already holds an externally issued token.
func (s *Service) RegisterSocial(ctx context.Context, in RegisterSocialInput, meta RequestMeta) (*ProfilePayload, error) {
	if in.Auth0ID == "" || in.Email == "" || in.Username == "" || in.DisplayName == "" {
		return nil, api.BadRequest("Missing required fields", map[string]any{
			"required": []string{"auth0Id", "email", "username", "displayName"},
		})
	}
	provider := domain.ProviderAuth0
	if in.Provider != "" {
		provider = domain.AuthProvider(in.Provider)
		if !validProviders[provider] {
			return nil, api.BadRequest("Unknown auth provider", nil)
		}
	}

	email := strings.ToLower(strings.TrimSpace(in.Email))
	username := strings.ToLower(strings.TrimSpace(in.Username))

	// Conflict priority: external id, then email, then username.
	if existing, err := s.users.GetByAuth0ID(ctx, in.Auth0ID); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, api.Conflict("User already registered")
	}
	if existing, err := s.users.GetByEmail(ctx, email); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, api.Conflict("Email already in use")
	}
	if existing, err := s.users.GetByUsername(ctx, username); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, api.Conflict("Username already taken")
	}

	now := time.Now().UTC()
	user := &domain.User{
		ID:           uuid.New().String(),
		Auth0ID:      in.Auth0ID,
		Email:        email,
		Username:     username,
		DisplayName:  strings.TrimSpace(in.DisplayName),
		AuthProvider: provider,
		Avatar:       in.Avatar,
		IsActive:     true,
		LastLogin:    now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := user.Validate(); err != nil {
		return nil, api.BadRequest(err.Error(), nil)
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	s.audit.LogEvent(ctx, user.ID, auditdomain.ActionSocialRegister, "user", meta.IPAddress, string(provider))

	return &ProfilePayload{User: user.ToPublicProfile(), Message: welcomeMessage}, nil
}

// LoginSocial resolves an external identity to its account and updates
// last-login. An unknown identity is NOT_FOUND ("register first"), not 401.
func (s *Service) LoginSocial(ctx context.Context, auth0ID string, meta RequestMeta) (*ProfilePayload, error) {
	if auth0ID == "" {
		return nil, api.BadRequest("Auth0 ID is required", nil)
	}
	user, err := s.users.GetByAuth0ID(ctx, auth0ID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, api.NotFound("User not found. Please register first.")
	}
	if !user.IsActive {
		return nil, api.Forbidden("Account is deactivated")
	}

	user.LastLogin = time.Now().UTC()
	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}
	s.audit.LogEvent(ctx, user.ID, auditdomain.ActionSocialLogin, "user", meta.IPAddress, "")

	return &ProfilePayload{
		User:    user.ToPublicProfile(),
		Message: fmt.Sprintf("¡Bienvenido de vuelta, %s!", user.DisplayName),
	}, nil
}

// GetProfile returns the caller's own account view with computed counts.
func (s *Service) GetProfile(ctx context.Context, userID string) (*MeView, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, api.NotFound("User not found")
	}
	prefs := user.Preferences
	if prefs == nil {
		prefs = map[string]any{}
	}
	return &MeView{
		ID:             user.ID,
		Auth0ID:        user.Auth0ID,
		Email:          user.Email,
		Username:       user.Username,
		DisplayName:    user.DisplayName,
		Avatar:         user.Avatar,
		Bio:            user.Bio,
		AuthProvider:   user.AuthProvider,
		Preferences:    prefs,
		IsActive:       user.IsActive,
		LastLogin:      user.LastLogin,
		FollowersCount: len(user.Followers),
		FollowingCount: len(user.Following),
		CreatedAt:      user.CreatedAt,
		UpdatedAt:      user.UpdatedAt,
	}, nil
}

// UpdateProfile applies a partial update: only provided fields mutate, and
// preferences merge shallowly over the existing object.
func (s *Service) UpdateProfile(ctx context.Context, userID string, updates UpdateProfileInput, meta RequestMeta) (*ProfilePayload, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, api.NotFound("User not found")
	}

	if updates.DisplayName != nil && *updates.DisplayName != "" {
		user.DisplayName = *updates.DisplayName
	}
	if updates.Bio != nil {
		user.Bio = *updates.Bio
	}
	if updates.Avatar != nil {
		user.Avatar = *updates.Avatar
	}
	if updates.Preferences != nil {
		if user.Preferences == nil {
			user.Preferences = map[string]any{}
		}
		for k, v := range updates.Preferences {
			user.Preferences[k] = v
		}
	}
	if err := user.Validate(); err != nil {
		return nil, api.BadRequest(err.Error(), nil)
	}
	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}
	s.audit.LogEvent(ctx, user.ID, auditdomain.ActionProfileUpdate, "user", meta.IPAddress, "")

	return &ProfilePayload{User: user.ToPublicProfile(), Message: "Profile updated successfully"}, nil
}

// RefreshAccessToken verifies a refresh token against both the token issuer
// and the stored session list, then issues a new access token. The refresh
// token is not rotated. A syntactically valid, unexpired token whose
// fingerprint was revoked or evicted still fails.
func (s *Service) RefreshAccessToken(ctx context.Context, refreshToken string, meta RequestMeta) (*RefreshPayload, error) {
	if refreshToken == "" {
		return nil, api.BadRequest("Refresh token is required", nil)
	}

	userID, err := s.tokens.ValidateRefresh(refreshToken)
	if err != nil {
		return nil, api.Unauthorized("Invalid or expired refresh token")
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, api.NotFound("User not found")
	}
	if !user.IsActive {
		return nil, api.Forbidden("Account is deactivated")
	}
	if !s.sessions.IsValid(user, refreshToken) {
		return nil, api.Unauthorized("Invalid or expired refresh token")
	}

	accessToken, _, err := s.tokens.IssueAccess(user.ID)
	if err != nil {
		return nil, err
	}
	s.audit.LogEvent(ctx, user.ID, auditdomain.ActionTokenRefresh, "token", meta.IPAddress, "")

	return &RefreshPayload{
		AccessToken: accessToken,
		Message:     "Access token refreshed successfully",
	}, nil
}

// RevokeRefreshToken removes one session record. userID is always the
// authenticated caller's id, never taken from the request body.
func (s *Service) RevokeRefreshToken(ctx context.Context, userID, refreshToken string, meta RequestMeta) (*MessagePayload, error) {
	if refreshToken == "" {
		return nil, api.BadRequest("Refresh token is required", nil)
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, api.NotFound("User not found")
	}
	if err := s.sessions.Revoke(ctx, user, refreshToken); err != nil {
		return nil, err
	}
	s.audit.LogEvent(ctx, user.ID, auditdomain.ActionTokenRevoke, "token", meta.IPAddress, "")

	return &MessagePayload{Message: "Refresh token revoked successfully"}, nil
}

// RevokeAllRefreshTokens clears every session record for the caller.
func (s *Service) RevokeAllRefreshTokens(ctx context.Context, userID string, meta RequestMeta) (*MessagePayload, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, api.NotFound("User not found")
	}
	if err := s.sessions.RevokeAll(ctx, user); err != nil {
		return nil, err
	}
	s.audit.LogEvent(ctx, user.ID, auditdomain.ActionTokenRevokeAll, "token", meta.IPAddress, "")

	return &MessagePayload{Message: "All refresh tokens revoked successfully. You have been logged out from all devices."}, nil
}

// activityLimit caps how many audit entries RecentActivity returns.
const activityLimit = 50

// ActivityEntry is one audited auth event in the caller's activity trail.
type ActivityEntry struct {
	Action    string    `json:"action"`
	Resource  string    `json:"resource"`
	IP        string    `json:"ip"`
	Metadata  string    `json:"metadata,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// ActivityPayload is the response for the activity trail.
type ActivityPayload struct {
	Events []ActivityEntry `json:"events"`
}

// RecentActivity returns the caller's newest audited auth events (logins,
// token refreshes, revocations, profile updates).
func (s *Service) RecentActivity(ctx context.Context, userID string) (*ActivityPayload, error) {
	logs, err := s.audit.Recent(ctx, userID, activityLimit)
	if err != nil {
		return nil, err
	}
	events := make([]ActivityEntry, 0, len(logs))
	for _, l := range logs {
		events = append(events, ActivityEntry{
			Action:    l.Action,
			Resource:  l.Resource,
			IP:        l.IP,
			Metadata:  l.Metadata,
			CreatedAt: l.CreatedAt,
		})
	}
	return &ActivityPayload{Events: events}, nil
}

// issueTokenPair issues both tokens and records the refresh session; the
// session write also persists any pending user mutations (e.g. last-login).
func (s *Service) issueTokenPair(ctx context.Context, user *domain.User, meta RequestMeta) (accessToken, refreshToken string, err error) {
	accessToken, _, err = s.tokens.IssueAccess(user.ID)
	if err != nil {
		return "", "", err
	}
	refreshToken, _, err = s.tokens.IssueRefresh(user.ID)
	if err != nil {
		return "", "", err
	}
	if err := s.sessions.Add(ctx, user, refreshToken, meta.IPAddress, meta.UserAgent); err != nil {
		return "", "", err
	}
	return accessToken, refreshToken, nil
}
