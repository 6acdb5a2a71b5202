package session

// Decision is the three-valued outcome of a policy check. Unknown means the
// session is still resolving and the caller should hold rendering.
type Decision int8

const (
	DecisionUnknown Decision = iota
	DecisionAllow
	DecisionDeny
)

func (d Decision) String() string {
	switch d {
	case DecisionAllow:
		return "allow"
	case DecisionDeny:
		return "deny"
	default:
		return "unknown"
	}
}

// Evaluate is the access policy check. It is pure and synchronous and never
// panics regardless of input.
//
// A loading session is Unknown. An unauthenticated one is Deny. With no
// required roles any authenticated user is allowed. With requireAll a user
// must satisfy every required role; since users carry exactly one role this
// degenerates to a singleton role set matching the user's role, so asking
// for two or more distinct roles with requireAll is unsatisfiable by
// construction. Multi-capability users would need a richer user model, not a
// change here. With requireAll false, membership in the set suffices.
//
// Unrecognized or missing roles always evaluate to Deny under role-gated
// checks, never Allow.
func Evaluate(s Session, required []UserRole, requireAll bool) Decision {
	if s.Loading {
		return DecisionUnknown
	}

	if !s.Authenticated || s.User == nil {
		return DecisionDeny
	}

	if len(required) == 0 {
		return DecisionAllow
	}

	role := s.User.Role
	if !IsValidRole(role) {
		return DecisionDeny
	}

	if requireAll {
		for _, r := range required {
			if r != role {
				return DecisionDeny
			}
		}
		return DecisionAllow
	}

	for _, r := range required {
		if r == role {
			return DecisionAllow
		}
	}
	return DecisionDeny
}
