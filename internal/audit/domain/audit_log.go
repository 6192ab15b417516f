package domain

import "time"

// AuditLog represents one recorded auth event.
type AuditLog struct {
	ID        string
	UserID    string
	Action    string
	Resource  string
	IP        string
	Metadata  string
	CreatedAt time.Time
}

// Actions recorded by the auth flows.
const (
	ActionRegister       = "register"
	ActionLoginSuccess   = "login_success"
	ActionLoginFailure   = "login_failure"
	ActionSocialRegister = "social_register"
	ActionSocialLogin    = "social_login"
	ActionTokenRefresh   = "token_refresh"
	ActionTokenRevoke    = "token_revoke"
	ActionTokenRevokeAll = "token_revoke_all"
	ActionProfileUpdate  = "profile_update"
)
