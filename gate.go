package session

import (
	"net/http"
	"time"

	"github.com/goliatone/go-router"
)

// ContextUserKey is the Locals key under which the gate exposes the current
// user to downstream handlers and templates.
var ContextUserKey = "current_user"

// RouteGateViews names the templates rendered for non-Allow outcomes.
type RouteGateViews struct {
	Loading string
	Denied  string
}

// RouteGate consumes the session (through the policy evaluator) to decide
// whether a protected view renders, redirects, or waits. Exactly one outcome
// is produced per request: the handler (allow), the loading view (unknown),
// a redirect to the login route carrying the originating location (denied,
// unauthenticated), or an access-denied response (denied, wrong role).
type RouteGate struct {
	sessions SessionSource
	cfg      Config
	Logger   Logger
	Views    *RouteGateViews
}

// NewRouteGate builds a gate over a session source, typically a *Manager.
func NewRouteGate(sessions SessionSource, cfg Config) (*RouteGate, error) {
	return &RouteGate{
		sessions: sessions,
		cfg:      cfg,
		Logger:   defLogger{},
		Views: &RouteGateViews{
			Loading: "loading",
			Denied:  "errors/403",
		},
	}, nil
}

// Protected gates a route on the given role set. An empty role set admits
// any authenticated user. With requireAll, the user's single role must
// satisfy every required role (see Evaluate for the degenerate case).
func (a *RouteGate) Protected(requireAll bool, roles ...UserRole) router.MiddlewareFunc {
	return func(hf router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			current := a.sessions.Current()

			switch Evaluate(current, roles, requireAll) {
			case DecisionUnknown:
				return c.Render(a.Views.Loading, router.ViewContext{})
			case DecisionAllow:
				c.Locals(ContextUserKey, current.User)
				c.SetContext(WithContext(c.Context(), current.User))
				return c.Next()
			default:
				return a.denied(c, current)
			}
		}
	}
}

// PublicOnly inverts the authenticated case for views like login and
// register: signed-in visitors are sent to the landing route instead.
func (a *RouteGate) PublicOnly() router.MiddlewareFunc {
	return func(hf router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			current := a.sessions.Current()

			if current.Loading {
				return c.Render(a.Views.Loading, router.ViewContext{})
			}

			if current.Authenticated {
				return c.Redirect(a.landingRoute(), http.StatusSeeOther)
			}

			return c.Next()
		}
	}
}

func (a *RouteGate) denied(c router.Context, current Session) error {
	if !current.Authenticated {
		a.SetRedirect(c)

		statusCode := http.StatusSeeOther
		if c.Method() == string(router.GET) {
			statusCode = http.StatusFound
		}
		return c.Redirect(a.loginRoute(), statusCode)
	}

	role := ""
	if current.User != nil {
		role = current.User.Role
	}
	a.Logger.Info("access denied", "path", c.OriginalURL(), "role", role)

	if a.Views.Denied != "" {
		return c.Status(http.StatusForbidden).Render(a.Views.Denied, router.ViewContext{
			"user":    current.User,
			"landing": a.landingRoute(),
		})
	}

	return c.Redirect(a.landingRoute(), http.StatusSeeOther)
}

// SetRedirect captures where the visitor was trying to go so the login flow
// can return them there afterwards.
func (a *RouteGate) SetRedirect(c router.Context) {
	rejectedRoute := a.rejectedRouteKey()

	a.Logger.Info("setting redirect cookie", "key", rejectedRoute, "path", c.OriginalURL())

	c.Cookie(&router.Cookie{
		Name:     rejectedRoute,
		Value:    c.OriginalURL(),
		Expires:  time.Now().Add(time.Minute * 5),
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Lax",
	})
}

// GetRedirect consumes the captured route, falling back to the given default.
func (a *RouteGate) GetRedirect(c router.Context, def ...string) string {
	rejectedRoute := a.rejectedRouteKey()
	r := c.Cookies(rejectedRoute)
	if r == "" {
		if len(def) > 0 {
			return def[0]
		}
		return a.landingRoute()
	}
	a.cookieDel(c, rejectedRoute)
	return r
}

// GetRedirectOrDefault consumes the captured route, trying the referer
// header before the configured default.
func (a *RouteGate) GetRedirectOrDefault(c router.Context) string {
	rejectedRoute := a.rejectedRouteKey()
	refererHeader := c.Referer()

	r := c.Cookies(rejectedRoute, refererHeader)
	if r == "" {
		r = a.cfg.GetRejectedRouteDefault()
	}
	if r == "" {
		r = a.landingRoute()
	}
	a.cookieDel(c, rejectedRoute)
	return r
}

func (a *RouteGate) cookieDel(c router.Context, name string) {
	c.Cookie(&router.Cookie{
		Name:     name,
		Value:    "",
		Expires:  time.Now().Add(-time.Hour * (24 * 365)),
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Lax",
	})
}

func (a *RouteGate) rejectedRouteKey() string {
	if key := a.cfg.GetRejectedRouteKey(); key != "" {
		return key
	}
	return "rejected_route"
}

func (a *RouteGate) loginRoute() string {
	if route := a.cfg.GetLoginRoute(); route != "" {
		return route
	}
	return "/login"
}

func (a *RouteGate) landingRoute() string {
	if route := a.cfg.GetLandingRoute(); route != "" {
		return route
	}
	return "/"
}
