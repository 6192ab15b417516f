// Package handler exposes the auth service over HTTP under /api/auth.
package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"hattbooks/backend/internal/api"
	"hattbooks/backend/internal/auth"
	"hattbooks/backend/internal/server/middleware"
)

// maxBodyBytes caps request bodies; profile updates carry at most a few KB.
const maxBodyBytes = 1 << 20

// HTTP serves the auth routes. Protected routes are wrapped with the
// authenticator at registration time.
type HTTP struct {
	svc   *auth.Service
	authn *middleware.Authenticator
}

// NewHTTP returns an HTTP handler for the auth service.
func NewHTTP(svc *auth.Service, authn *middleware.Authenticator) *HTTP {
	return &HTTP{svc: svc, authn: authn}
}

// Register mounts all auth routes on mux.
func (h *HTTP) Register(mux *http.ServeMux) {
	mux.Handle("POST /api/auth/register-local", http.HandlerFunc(h.registerLocal))
	mux.Handle("POST /api/auth/login-local", http.HandlerFunc(h.loginLocal))
	mux.Handle("POST /api/auth/register", http.HandlerFunc(h.registerSocial))
	mux.Handle("POST /api/auth/login", http.HandlerFunc(h.loginSocial))
	mux.Handle("POST /api/auth/refresh", http.HandlerFunc(h.refresh))
	mux.Handle("POST /api/auth/logout", h.authn.Require(http.HandlerFunc(h.logout)))
	mux.Handle("GET /api/auth/me", h.authn.Require(http.HandlerFunc(h.getMe)))
	mux.Handle("PUT /api/auth/me", h.authn.Require(http.HandlerFunc(h.updateMe)))
	mux.Handle("GET /api/auth/activity", h.authn.Require(http.HandlerFunc(h.activity)))
	mux.Handle("POST /api/auth/revoke", h.authn.Require(http.HandlerFunc(h.revoke)))
	mux.Handle("POST /api/auth/revoke-all", h.authn.Require(http.HandlerFunc(h.revokeAll)))
}

func (h *HTTP) registerLocal(w http.ResponseWriter, r *http.Request) {
	var in auth.RegisterLocalInput
	if err := decodeJSON(r, &in); err != nil {
		api.Fail(w, err)
		return
	}
	out, err := h.svc.RegisterLocal(r.Context(), in, requestMeta(r))
	if err != nil {
		api.Fail(w, err)
		return
	}
	api.Success(w, http.StatusCreated, out)
}

func (h *HTTP) loginLocal(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &in); err != nil {
		api.Fail(w, err)
		return
	}
	out, err := h.svc.LoginLocal(r.Context(), in.Email, in.Password, requestMeta(r))
	if err != nil {
		api.Fail(w, err)
		return
	}
	api.Success(w, http.StatusOK, out)
}

func (h *HTTP) registerSocial(w http.ResponseWriter, r *http.Request) {
	var in auth.RegisterSocialInput
	if err := decodeJSON(r, &in); err != nil {
		api.Fail(w, err)
		return
	}
	out, err := h.svc.RegisterSocial(r.Context(), in, requestMeta(r))
	if err != nil {
		api.Fail(w, err)
		return
	}
	api.Success(w, http.StatusCreated, out)
}

func (h *HTTP) loginSocial(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Auth0ID string `json:"auth0Id"`
	}
	if err := decodeJSON(r, &in); err != nil {
		api.Fail(w, err)
		return
	}
	out, err := h.svc.LoginSocial(r.Context(), in.Auth0ID, requestMeta(r))
	if err != nil {
		api.Fail(w, err)
		return
	}
	api.Success(w, http.StatusOK, out)
}

// logout is stateless: clients discard their tokens, and /revoke or
// /revoke-all invalidate sessions server-side.
func (h *HTTP) logout(w http.ResponseWriter, r *http.Request) {
	api.Success(w, http.StatusOK, auth.MessagePayload{Message: "Logged out successfully"})
}

func (h *HTTP) getMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		api.Fail(w, api.Unauthorized("User not authenticated"))
		return
	}
	me, err := h.svc.GetProfile(r.Context(), userID)
	if err != nil {
		api.Fail(w, err)
		return
	}
	api.Success(w, http.StatusOK, map[string]any{"user": me})
}

func (h *HTTP) updateMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		api.Fail(w, api.Unauthorized("User not authenticated"))
		return
	}
	var in auth.UpdateProfileInput
	if err := decodeJSON(r, &in); err != nil {
		api.Fail(w, err)
		return
	}
	out, err := h.svc.UpdateProfile(r.Context(), userID, in, requestMeta(r))
	if err != nil {
		api.Fail(w, err)
		return
	}
	api.Success(w, http.StatusOK, out)
}

func (h *HTTP) refresh(w http.ResponseWriter, r *http.Request) {
	var in struct {
		RefreshToken string `json:"refreshToken"`
	}
	if err := decodeJSON(r, &in); err != nil {
		api.Fail(w, err)
		return
	}
	out, err := h.svc.RefreshAccessToken(r.Context(), in.RefreshToken, requestMeta(r))
	if err != nil {
		api.Fail(w, err)
		return
	}
	api.Success(w, http.StatusOK, out)
}

// activity returns the caller's recent audited auth events.
func (h *HTTP) activity(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		api.Fail(w, api.Unauthorized("User not authenticated"))
		return
	}
	out, err := h.svc.RecentActivity(r.Context(), userID)
	if err != nil {
		api.Fail(w, err)
		return
	}
	api.Success(w, http.StatusOK, out)
}

func (h *HTTP) revoke(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		api.Fail(w, api.Unauthorized("User not authenticated"))
		return
	}
	var in struct {
		RefreshToken string `json:"refreshToken"`
	}
	if err := decodeJSON(r, &in); err != nil {
		api.Fail(w, err)
		return
	}
	out, err := h.svc.RevokeRefreshToken(r.Context(), userID, in.RefreshToken, requestMeta(r))
	if err != nil {
		api.Fail(w, err)
		return
	}
	api.Success(w, http.StatusOK, out)
}

func (h *HTTP) revokeAll(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		api.Fail(w, api.Unauthorized("User not authenticated"))
		return
	}
	out, err := h.svc.RevokeAllRefreshTokens(r.Context(), userID, requestMeta(r))
	if err != nil {
		api.Fail(w, err)
		return
	}
	api.Success(w, http.StatusOK, out)
}

// decodeJSON reads the request body into v. An empty body decodes to the zero
// value so field-level validation produces the usual missing-field errors.
func decodeJSON(r *http.Request, v any) error {
	body := http.MaxBytesReader(nil, r.Body, maxBodyBytes)
	defer body.Close()
	if err := json.NewDecoder(body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return api.BadRequest("Invalid request body", nil)
	}
	return nil
}

// requestMeta extracts the requester IP and user agent for session records
// and audit entries.
func requestMeta(r *http.Request) auth.RequestMeta {
	return auth.RequestMeta{
		IPAddress: middleware.ClientIP(r),
		UserAgent: r.UserAgent(),
	}
}
