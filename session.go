package session

import (
	"fmt"
)

// State names the phase of the session lifecycle. AuthError is not terminal:
// it carries logged-out semantics and the next attempt re-enters
// Authenticating (or Bootstrapping).
type State string

const (
	StateBootstrapping   State = "bootstrapping"
	StateUnauthenticated State = "unauthenticated"
	StateAuthenticating  State = "authenticating"
	StateAuthenticated   State = "authenticated"
	StateAuthError       State = "auth_error"
)

// Session is the in-memory record of current authentication status. It is a
// value: the Manager hands out copies, so consumers can never mutate shared
// state. Invariant: Authenticated implies User != nil.
type Session struct {
	User          *User
	Authenticated bool
	Loading       bool
	Err           string
	State         State
}

// HasRole reports whether the authenticated user carries the given role.
// Unauthenticated sessions never have a role.
func (s Session) HasRole(role UserRole) bool {
	if !s.Authenticated || s.User == nil {
		return false
	}
	return s.User.Role == role
}

// HasAnyRole reports whether the authenticated user carries one of the given
// roles.
func (s Session) HasAnyRole(roles ...UserRole) bool {
	for _, role := range roles {
		if s.HasRole(role) {
			return true
		}
	}
	return false
}

func (s Session) String() string {
	user := "<nil>"
	if s.User != nil {
		user = s.User.Email
	}
	return fmt.Sprintf(
		"state=%s user=%s authenticated=%t loading=%t err=%q",
		s.State,
		user,
		s.Authenticated,
		s.Loading,
		s.Err,
	)
}
