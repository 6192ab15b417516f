package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"hattbooks/backend/internal/security"
	"hattbooks/backend/internal/user/domain"
)

type memUserRepo struct {
	mu    sync.Mutex
	users map[string]*domain.User
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: make(map[string]*domain.User)}
}

func (r *memUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, nil
}

func (r *memUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *memUserRepo) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *memUserRepo) GetByAuth0ID(_ context.Context, auth0ID string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Auth0ID == auth0ID {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *memUserRepo) Create(_ context.Context, u *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *u
	r.users[u.ID] = &cp
	return nil
}

func (r *memUserRepo) Update(_ context.Context, u *domain.User) error {
	return r.Create(context.Background(), u)
}

type fakeVerifier struct {
	subject string
	err     error
}

func (f *fakeVerifier) Verify(string) (string, error) {
	return f.subject, f.err
}

func seedUser(t *testing.T, repo *memUserRepo, u domain.User) *domain.User {
	t.Helper()
	if u.Email == "" {
		u.Email = u.ID + "@example.com"
	}
	u.IsActive = true
	if err := repo.Create(context.Background(), &u); err != nil {
		t.Fatalf("seed: %v", err)
	}
	return &u
}

// probe records the identity the wrapped handler observed.
type probe struct {
	called bool
	userID string
	mode   string
}

func (p *probe) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p.called = true
		p.userID, _ = UserID(r.Context())
		p.mode, _ = AuthMode(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
}

func doRequest(h http.Handler, authorization string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return body.Error.Message
}

func TestRequireNoToken(t *testing.T) {
	a := NewAuthenticator(newMemUserRepo(), security.NewTestTokenProvider(), nil)
	p := &probe{}

	for _, header := range []string{"", "Token abc", "Bearer"} {
		rec := doRequest(a.Require(p.handler()), header)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("header %q: status = %d, want 401", header, rec.Code)
		}
	}
	if p.called {
		t.Fatal("handler must not run without a token")
	}
}

func TestRequireLocalAccessToken(t *testing.T) {
	repo := newMemUserRepo()
	tokens := security.NewTestTokenProvider()
	user := seedUser(t, repo, domain.User{ID: "user-1", Username: "reader", DisplayName: "R", AuthProvider: domain.ProviderLocal})
	access, _, err := tokens.IssueAccess(user.ID)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	p := &probe{}
	a := NewAuthenticator(repo, tokens, nil)
	rec := doRequest(a.Require(p.handler()), "Bearer "+access)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
	if p.userID != user.ID || p.mode != ModeLocal {
		t.Fatalf("identity = %q/%q, want %q/local", p.userID, p.mode, user.ID)
	}
}

func TestRequireRefreshTokenRejectedWithoutFallthrough(t *testing.T) {
	repo := newMemUserRepo()
	tokens := security.NewTestTokenProvider()
	user := seedUser(t, repo, domain.User{ID: "user-1", Username: "reader", DisplayName: "R", AuthProvider: domain.ProviderLocal})
	refresh, _, err := tokens.IssueRefresh(user.ID)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	// The verifier would accept anything; it must never be consulted.
	a := NewAuthenticator(repo, tokens, &fakeVerifier{subject: "auth0|anything"})
	rec := doRequest(a.Require(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})), "Bearer "+refresh)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if msg := errorMessage(t, rec); !strings.Contains(msg, "Refresh tokens cannot be used") {
		t.Fatalf("unexpected message %q", msg)
	}
}

func TestRequireUnrecognizedPurposeRejected(t *testing.T) {
	repo := newMemUserRepo()
	tokens := security.NewTestTokenProvider()
	user := seedUser(t, repo, domain.User{ID: "user-1", Username: "reader", DisplayName: "R", AuthProvider: domain.ProviderLocal})

	// Signed with our access secret but carrying a purpose the issuer never
	// mints. Must be rejected by the local branch, not passed to the verifier.
	now := time.Now()
	odd, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":     user.ID,
		"iss":     "test-issuer",
		"iat":     now.Unix(),
		"exp":     now.Add(time.Hour).Unix(),
		"purpose": "session",
	}).SignedString([]byte("test-access-secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	p := &probe{}
	a := NewAuthenticator(repo, tokens, &fakeVerifier{subject: "auth0|anything"})
	rec := doRequest(a.Require(p.handler()), "Bearer "+odd)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if p.called {
		t.Fatal("handler must not run for a token with an unknown purpose")
	}
	if msg := errorMessage(t, rec); msg != "Invalid token" {
		t.Fatalf("unexpected message %q", msg)
	}
}

func TestRequireLocalTokenUnknownUser(t *testing.T) {
	tokens := security.NewTestTokenProvider()
	access, _, _ := tokens.IssueAccess("ghost-user")

	a := NewAuthenticator(newMemUserRepo(), tokens, nil)
	rec := doRequest(a.Require(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})), "Bearer "+access)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestRequireDeactivatedUser(t *testing.T) {
	repo := newMemUserRepo()
	tokens := security.NewTestTokenProvider()
	user := seedUser(t, repo, domain.User{ID: "user-1", Username: "reader", DisplayName: "R", AuthProvider: domain.ProviderLocal})
	user.IsActive = false
	_ = repo.Update(context.Background(), user)
	access, _, _ := tokens.IssueAccess(user.ID)

	a := NewAuthenticator(repo, tokens, nil)
	rec := doRequest(a.Require(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})), "Bearer "+access)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
}

func TestRequireExpiredLocalTokenNoExternalConfig(t *testing.T) {
	repo := newMemUserRepo()
	tokens := security.NewTestTokenProvider()
	expired := security.NewTokenProvider(
		[]byte("test-access-secret"), []byte("test-refresh-secret"),
		"test-issuer", -time.Minute, -time.Minute)
	access, _, _ := expired.IssueAccess("user-1")

	a := NewAuthenticator(repo, tokens, nil)
	rec := doRequest(a.Require(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})), "Bearer "+access)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestRequireExternalToken(t *testing.T) {
	repo := newMemUserRepo()
	tokens := security.NewTestTokenProvider()
	user := seedUser(t, repo, domain.User{ID: "user-2", Auth0ID: "auth0|ext", Username: "extreader", DisplayName: "E", AuthProvider: domain.ProviderAuth0})

	p := &probe{}
	a := NewAuthenticator(repo, tokens, &fakeVerifier{subject: "auth0|ext"})
	rec := doRequest(a.Require(p.handler()), "Bearer some.external.token")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
	if p.userID != user.ID || p.mode != ModeExternal {
		t.Fatalf("identity = %q/%q, want %q/external", p.userID, p.mode, user.ID)
	}
}

func TestRequireExternalTokenNoAccountIs404(t *testing.T) {
	a := NewAuthenticator(newMemUserRepo(), security.NewTestTokenProvider(), &fakeVerifier{subject: "auth0|unregistered"})
	rec := doRequest(a.Require(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})), "Bearer some.external.token")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if msg := errorMessage(t, rec); !strings.Contains(msg, "register first") {
		t.Fatalf("unexpected message %q", msg)
	}
}

func TestRequireExternalVerifyFailure(t *testing.T) {
	a := NewAuthenticator(newMemUserRepo(), security.NewTestTokenProvider(), &fakeVerifier{err: errors.New("bad signature")})
	rec := doRequest(a.Require(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})), "Bearer some.external.token")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestOptional(t *testing.T) {
	repo := newMemUserRepo()
	tokens := security.NewTestTokenProvider()
	user := seedUser(t, repo, domain.User{ID: "user-1", Username: "reader", DisplayName: "R", AuthProvider: domain.ProviderLocal})
	access, _, _ := tokens.IssueAccess(user.ID)

	a := NewAuthenticator(repo, tokens, nil)

	// Bad token still reaches the handler, anonymous.
	p := &probe{}
	rec := doRequest(a.Optional(p.handler()), "Bearer garbage")
	if rec.Code != http.StatusNoContent || !p.called {
		t.Fatalf("optional with bad token: status = %d, called = %v", rec.Code, p.called)
	}
	if p.userID != "" {
		t.Fatalf("anonymous request should carry no identity, got %q", p.userID)
	}

	// Good token attaches the identity.
	p = &probe{}
	rec = doRequest(a.Optional(p.handler()), "Bearer "+access)
	if rec.Code != http.StatusNoContent || p.userID != user.ID {
		t.Fatalf("optional with good token: status = %d, userID = %q", rec.Code, p.userID)
	}
}
