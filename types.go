package session

import (
	"context"
	"fmt"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// CredentialStore is durable client-side key-value persistence for the
// session token and the serialized user profile. It survives restarts;
// staleness is resolved by the bootstrap profile fetch, never by local TTL.
type CredentialStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

// AuthResult is returned by the identity gateway on successful
// authentication: the canonical user record plus a bearer token.
type AuthResult struct {
	User  *User  `json:"user"`
	Token string `json:"token"`
}

// IdentityGateway is the remote identity service contract. Every call is a
// network round trip; failures come back classified (see errors.go).
type IdentityGateway interface {
	Login(ctx context.Context, payload LoginPayload) (*AuthResult, error)
	Register(ctx context.Context, payload RegistrationPayload) (*AuthResult, error)
	Logout(ctx context.Context) error
	Profile(ctx context.Context) (*User, error)
	UpdateProfile(ctx context.Context, patch ProfilePatch) (*User, error)
	ChangePassword(ctx context.Context, current, next string) error
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, password string) error
	VerifyEmail(ctx context.Context, token string) error
	ResendVerification(ctx context.Context) error
}

type LoginPayload interface {
	GetIdentifier() string
	GetPassword() string
	GetExtendedSession() bool
}

// SessionSource exposes the current session snapshot to consumers that only
// read state, such as the route gate.
type SessionSource interface {
	Current() Session
}

// Config holds session layer options
type Config interface {
	GetBaseURL() string
	GetTokenKey() string
	GetUserKey() string
	GetLoginRoute() string
	GetLandingRoute() string
	GetRejectedRouteKey() string
	GetRejectedRouteDefault() string
	GetRequestTimeout() int
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] SESSION "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] SESSION "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] SESSION "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] SESSION "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
