package session_test

import (
	"testing"

	session "github.com/goliatone/go-session"
	"github.com/stretchr/testify/assert"
)

func snap(user *session.User, authenticated, loading bool) session.Session {
	state := session.StateUnauthenticated
	if authenticated {
		state = session.StateAuthenticated
	}
	if loading {
		state = session.StateBootstrapping
	}
	return session.Session{
		User:          user,
		Authenticated: authenticated,
		Loading:       loading,
		State:         state,
	}
}

func TestEvaluateLoadingIsUnknownRegardlessOfRoles(t *testing.T) {
	s := snap(nil, false, true)

	assert.Equal(t, session.DecisionUnknown, session.Evaluate(s, []session.UserRole{session.RoleAdmin}, false))
	assert.Equal(t, session.DecisionUnknown, session.Evaluate(s, nil, false))
	assert.Equal(t, session.DecisionUnknown, session.Evaluate(s, session.GetAllRoles(), true))
}

func TestEvaluateUnauthenticatedIsDeny(t *testing.T) {
	s := snap(nil, false, false)

	assert.Equal(t, session.DecisionDeny, session.Evaluate(s, nil, false))
	assert.Equal(t, session.DecisionDeny, session.Evaluate(s, []session.UserRole{session.RoleAdmin}, false))
}

func TestEvaluateEmptyRoleSetAllowsAnyAuthenticatedUser(t *testing.T) {
	s := snap(&session.User{Role: session.RoleSupplier}, true, false)
	assert.Equal(t, session.DecisionAllow, session.Evaluate(s, nil, false))
	assert.Equal(t, session.DecisionAllow, session.Evaluate(s, []session.UserRole{}, true))
}

func TestEvaluateAnyOfMembership(t *testing.T) {
	s := snap(&session.User{Role: session.RoleEmployee}, true, false)

	roles := []session.UserRole{session.RoleAdmin, session.RoleEmployee}
	assert.Equal(t, session.DecisionAllow, session.Evaluate(s, roles, false))

	assert.Equal(t, session.DecisionDeny, session.Evaluate(s, []session.UserRole{session.RoleAdmin}, false))
}

// Users carry exactly one role, so requireAll with two or more distinct
// roles is unsatisfiable. That is policy, not a bug: multi-capability users
// need a richer user model, not a looser evaluator.
func TestEvaluateRequireAllDegeneratesToSingleton(t *testing.T) {
	s := snap(&session.User{Role: session.RoleEmployee}, true, false)

	assert.Equal(t, session.DecisionAllow, session.Evaluate(s, []session.UserRole{session.RoleEmployee}, true))
	assert.Equal(t, session.DecisionDeny, session.Evaluate(s,
		[]session.UserRole{session.RoleAdmin, session.RoleEmployee}, true))
	// duplicates of the user's role still satisfy "all"
	assert.Equal(t, session.DecisionAllow, session.Evaluate(s,
		[]session.UserRole{session.RoleEmployee, session.RoleEmployee}, true))
}

func TestEvaluateUnrecognizedRoleAlwaysDenies(t *testing.T) {
	s := snap(&session.User{Role: "superuser"}, true, false)

	assert.Equal(t, session.DecisionDeny, session.Evaluate(s, []session.UserRole{session.RoleAdmin}, false))
	assert.Equal(t, session.DecisionDeny, session.Evaluate(s, []session.UserRole{"superuser"}, false))
	// but a non-role-gated check only needs authentication
	assert.Equal(t, session.DecisionAllow, session.Evaluate(s, nil, false))
}

func TestEvaluateNeverPanicsOnInconsistentInput(t *testing.T) {
	assert.NotPanics(t, func() {
		// authenticated with nil user would violate the manager invariant;
		// the evaluator still answers Deny
		broken := session.Session{Authenticated: true, User: nil}
		assert.Equal(t, session.DecisionDeny, session.Evaluate(broken, []session.UserRole{session.RoleAdmin}, false))
	})
}

func TestDecisionString(t *testing.T) {
	assert.Equal(t, "allow", session.DecisionAllow.String())
	assert.Equal(t, "deny", session.DecisionDeny.String())
	assert.Equal(t, "unknown", session.DecisionUnknown.String())
}
