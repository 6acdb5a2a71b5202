package session

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
)

// ManagerOption customizes Manager construction.
type ManagerOption func(*Manager)

// WithLogger overrides the manager logger.
func WithLogger(logger Logger) ManagerOption {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithActivitySink sets the ActivitySink used to publish session events.
func WithActivitySink(sink ActivitySink) ManagerOption {
	return func(m *Manager) {
		m.sink = normalizeActivitySink(sink)
	}
}

// WithClock injects a custom clock (useful for tests).
func WithClock(clock func() time.Time) ManagerOption {
	return func(m *Manager) {
		if clock != nil {
			m.now = clock
		}
	}
}

// WithCredentialKeys overrides the credential store keys for the token and
// the serialized user.
func WithCredentialKeys(tokenKey, userKey string) ManagerOption {
	return func(m *Manager) {
		if tokenKey != "" {
			m.tokenKey = tokenKey
		}
		if userKey != "" {
			m.userKey = userKey
		}
	}
}

// WithDebug enables snapshot logging on every session change.
func WithDebug(debug bool) ManagerOption {
	return func(m *Manager) {
		m.debug = debug
	}
}

// Manager is the session state machine. It owns the in-memory Session, drives
// transitions in response to gateway responses, and keeps the credential
// store in lockstep: token and serialized user are written when a session
// becomes authenticated and removed when it logs out.
//
// Operations are independent round trips with no sequence numbers. Issuing a
// second operation while one is in flight is permitted; the last settled
// response wins in the exposed Session value. There is no ordering guarantee.
type Manager struct {
	gateway  IdentityGateway
	store    CredentialStore
	tokenKey string
	userKey  string

	transitions map[State]map[State]struct{}

	mu        sync.Mutex
	session   Session
	prevState State

	subMu       sync.Mutex
	subscribers map[int]func(Session)
	nextSubID   int

	logger Logger
	sink   ActivitySink
	now    func() time.Time
	debug  bool
}

// NewManager returns a session Manager in the Bootstrapping state. Callers
// are expected to invoke Bootstrap once at process start.
func NewManager(gateway IdentityGateway, store CredentialStore, opts ...ManagerOption) *Manager {
	m := &Manager{
		gateway:  gateway,
		store:    store,
		tokenKey: DefaultTokenKey,
		userKey:  DefaultUserKey,
		transitions: map[State]map[State]struct{}{
			StateBootstrapping: {
				StateAuthenticated:   {},
				StateUnauthenticated: {},
				StateAuthError:       {},
			},
			StateUnauthenticated: {
				StateAuthenticating: {},
				StateBootstrapping:  {},
			},
			StateAuthenticating: {
				StateAuthenticated:   {},
				StateUnauthenticated: {},
				StateAuthError:       {},
			},
			StateAuthenticated: {
				StateAuthenticating:  {},
				StateUnauthenticated: {},
			},
			StateAuthError: {
				StateAuthenticating:  {},
				StateBootstrapping:   {},
				StateUnauthenticated: {},
			},
		},
		session: Session{
			State:   StateBootstrapping,
			Loading: true,
		},
		subscribers: map[int]func(Session){},
		logger:      defLogger{},
		sink:        noopActivitySink{},
		now:         time.Now,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}

	return m
}

// Current returns a copy of the session. The returned value shares nothing
// with the manager's state.
func (m *Manager) Current() Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshot()
}

// HasRole reports whether the current session carries the given role.
func (m *Manager) HasRole(role UserRole) bool {
	return m.Current().HasRole(role)
}

// HasAnyRole reports whether the current session carries one of the given roles.
func (m *Manager) HasAnyRole(roles ...UserRole) bool {
	return m.Current().HasAnyRole(roles...)
}

// Subscribe registers a callback invoked with a session snapshot after every
// change. The returned function removes the subscription.
func (m *Manager) Subscribe(fn func(Session)) func() {
	m.subMu.Lock()
	defer m.subMu.Unlock()

	id := m.nextSubID
	m.nextSubID++
	m.subscribers[id] = fn

	return func() {
		m.subMu.Lock()
		defer m.subMu.Unlock()
		delete(m.subscribers, id)
	}
}

// Bootstrap reconstructs the session from the credential store. Absence of a
// stored token is not an error: the session settles Unauthenticated without
// any network call. A stored token is verified with a profile fetch; if the
// gateway rejects it the store is cleared and the session settles logged out,
// surfacing the failure only transiently.
func (m *Manager) Bootstrap(ctx context.Context) error {
	m.begin(StateBootstrapping)

	token, ok, err := m.store.Get(ctx, m.tokenKey)
	if err != nil {
		m.logger.Warn("bootstrap credential read error: %v", err)
	}

	if !ok || token == "" {
		m.settleLoggedOut("")
		return nil
	}

	user, err := m.gateway.Profile(ctx)
	if err == nil && user == nil {
		err = classified(ErrServer, "identity service returned no user", nil)
	}

	if err != nil {
		m.clearCredentials(ctx)
		m.applyFailure(err)
		m.settleLoggedOut(displayMessage(err))
		m.emit(ctx, ActivityEventBootstrapFailure, "", map[string]any{
			"error": err.Error(),
		})
		return err
	}

	m.adopt(ctx, user, token)
	m.emit(ctx, ActivityEventBootstrapSuccess, user.ID.String(), nil)
	return nil
}

// Login authenticates against the gateway and, on success, persists the
// token and user. Field validation failures are returned synchronously and
// never mutate the session or reach the gateway.
func (m *Manager) Login(ctx context.Context, payload LoginPayload) error {
	if err := validatePayload(payload); err != nil {
		return err
	}

	m.begin(StateAuthenticating)

	result, err := m.gateway.Login(ctx, payload)
	if err == nil && (result == nil || result.User == nil) {
		err = classified(ErrServer, "identity service returned no user", nil)
	}

	if err != nil {
		m.applyFailure(err)
		m.emit(ctx, ActivityEventLoginFailure, "", map[string]any{
			"identifier": payload.GetIdentifier(),
			"error":      err.Error(),
		})
		return err
	}

	m.adopt(ctx, result.User, result.Token)
	m.emit(ctx, ActivityEventLoginSuccess, result.User.ID.String(), map[string]any{
		"identifier": payload.GetIdentifier(),
	})
	return nil
}

// Register creates an account and adopts the returned session, following the
// same transition pattern as Login.
func (m *Manager) Register(ctx context.Context, payload RegistrationPayload) error {
	if err := payload.Validate(); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid registration payload")
	}

	m.begin(StateAuthenticating)

	result, err := m.gateway.Register(ctx, payload)
	if err == nil && (result == nil || result.User == nil) {
		err = classified(ErrServer, "identity service returned no user", nil)
	}

	if err != nil {
		m.applyFailure(err)
		m.emit(ctx, ActivityEventRegisterFailure, "", map[string]any{
			"email": payload.Email,
			"error": err.Error(),
		})
		return err
	}

	m.adopt(ctx, result.User, result.Token)
	m.emit(ctx, ActivityEventRegisterSuccess, result.User.ID.String(), map[string]any{
		"email": payload.Email,
	})
	return nil
}

// Logout invalidates the remote session best-effort, then clears the
// credential store and resets the session. It never surfaces a failure: from
// the caller's point of view logout always succeeds.
func (m *Manager) Logout(ctx context.Context) {
	m.mu.Lock()
	userID := ""
	if m.session.User != nil {
		userID = m.session.User.ID.String()
	}
	m.session.Loading = true
	m.session.Err = ""
	snap := m.snapshot()
	m.mu.Unlock()
	m.notify(snap)

	if err := m.gateway.Logout(ctx); err != nil {
		m.logger.Warn("remote logout failed, clearing local session anyway: %v", err)
	}

	m.mu.Lock()
	m.clearCredentials(ctx)
	m.setState(StateUnauthenticated)
	m.session.User = nil
	m.session.Authenticated = false
	m.session.Loading = false
	m.session.Err = ""
	snap = m.snapshot()
	m.mu.Unlock()
	m.notify(snap)

	m.emit(ctx, ActivityEventLogout, userID, nil)
}

// UpdateProfile replaces the locally cached user with the server's canonical
// copy on success and re-persists it. Authentication is not affected either
// way; on failure the previous user is retained and only Err is set.
func (m *Manager) UpdateProfile(ctx context.Context, patch ProfilePatch) error {
	if err := patch.Validate(); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid profile patch")
	}

	if err := m.requireAuthenticated(); err != nil {
		return err
	}

	m.begin(StateAuthenticating)

	user, err := m.gateway.UpdateProfile(ctx, patch)
	if err == nil && user == nil {
		err = classified(ErrServer, "identity service returned no user", nil)
	}

	if err != nil {
		m.applyFailure(err)
		return err
	}

	m.adopt(ctx, user, "")
	m.emit(ctx, ActivityEventProfileUpdated, user.ID.String(), nil)
	return nil
}

// ChangePassword changes the authenticated user's password. The session and
// cached user are unchanged on success.
func (m *Manager) ChangePassword(ctx context.Context, current, next string) error {
	payload := PasswordChangePayload{
		Current:         current,
		Password:        next,
		ConfirmPassword: next,
	}
	if err := payload.Validate(); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid password change payload")
	}

	if err := m.requireAuthenticated(); err != nil {
		return err
	}

	m.begin(StateAuthenticating)

	if err := m.gateway.ChangePassword(ctx, current, next); err != nil {
		m.applyFailure(err)
		return err
	}

	m.succeedKeepUser()
	m.emit(ctx, ActivityEventPasswordChanged, m.currentUserID(), nil)
	return nil
}

// ForgotPassword requests a password reset email. It toggles Loading/Err but
// never changes the authentication state.
func (m *Manager) ForgotPassword(ctx context.Context, email string) error {
	if err := validation.Validate(email, validation.Required, is.Email); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid email")
	}

	return m.auxiliary(ctx, ActivityEventPasswordResetRequest, func() error {
		return m.gateway.ForgotPassword(ctx, email)
	})
}

// ResetPassword finalizes a token-based password reset.
func (m *Manager) ResetPassword(ctx context.Context, token, password string) error {
	payload := PasswordResetPayload{
		Token:           token,
		Password:        password,
		ConfirmPassword: password,
	}
	if err := payload.Validate(); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid password reset payload")
	}

	return m.auxiliary(ctx, ActivityEventPasswordReset, func() error {
		return m.gateway.ResetPassword(ctx, token, password)
	})
}

// VerifyEmail confirms an email verification token. If a user is signed in,
// the cached profile is marked verified and re-persisted.
func (m *Manager) VerifyEmail(ctx context.Context, token string) error {
	if token == "" {
		return goerrors.New("verification token is required", goerrors.CategoryValidation).
			WithCode(goerrors.CodeBadRequest)
	}

	err := m.auxiliary(ctx, ActivityEventEmailVerified, func() error {
		return m.gateway.VerifyEmail(ctx, token)
	})
	if err != nil {
		return err
	}

	m.mu.Lock()
	if m.session.Authenticated && m.session.User != nil {
		m.session.User.EmailVerified = true
		m.persistUser(ctx, m.session.User)
	}
	snap := m.snapshot()
	m.mu.Unlock()
	m.notify(snap)

	return nil
}

// ResendVerification asks the gateway to send a fresh verification email to
// the authenticated user.
func (m *Manager) ResendVerification(ctx context.Context) error {
	if err := m.requireAuthenticated(); err != nil {
		return err
	}

	return m.auxiliary(ctx, "", func() error {
		return m.gateway.ResendVerification(ctx)
	})
}

// ClearError clears the last failure. A session sitting in AuthError settles
// at Unauthenticated: AuthError already carries logged-out semantics, and
// once the error is dismissed the two are indistinguishable. Every other
// state is left unchanged.
func (m *Manager) ClearError() {
	m.mu.Lock()
	m.session.Err = ""
	if m.session.State == StateAuthError {
		m.setState(StateUnauthenticated)
	}
	snap := m.snapshot()
	m.mu.Unlock()
	m.notify(snap)
}

// begin marks the start of a session-affecting operation: Loading on, Err
// cleared, state moved to target. Nothing here serializes operations; a
// second begin while another call is in flight simply overwrites.
func (m *Manager) begin(target State) {
	m.mu.Lock()
	m.session.Loading = true
	m.session.Err = ""
	m.setState(target)
	snap := m.snapshot()
	m.mu.Unlock()
	m.notify(snap)
}

// applyFailure settles a failed attempt. A session that was authenticated
// before the attempt stays authenticated with its user intact; otherwise the
// session lands in AuthError with logged-out semantics.
func (m *Manager) applyFailure(err error) {
	m.mu.Lock()
	m.session.Loading = false
	m.session.Err = displayMessage(err)

	if m.session.Authenticated && m.session.User != nil {
		m.setState(StateAuthenticated)
	} else {
		m.setState(StateAuthError)
		m.session.User = nil
		m.session.Authenticated = false
	}

	snap := m.snapshot()
	m.mu.Unlock()
	m.notify(snap)
}

// adopt installs a gateway-confirmed user as the authenticated session and
// persists credentials in lockstep. An empty token keeps the stored token
// untouched (profile refresh path).
func (m *Manager) adopt(ctx context.Context, user *User, token string) {
	m.mu.Lock()
	m.setState(StateAuthenticated)
	m.session.User = user.Clone()
	m.session.Authenticated = true
	m.session.Loading = false
	m.session.Err = ""

	if token != "" {
		if err := m.store.Set(ctx, m.tokenKey, token); err != nil {
			m.logger.Warn("failed to persist session token: %v", err)
		}
	}
	m.persistUser(ctx, m.session.User)

	snap := m.snapshot()
	m.mu.Unlock()
	m.notify(snap)
}

// succeedKeepUser settles a successful operation that does not replace the
// cached user (e.g. password change).
func (m *Manager) succeedKeepUser() {
	m.mu.Lock()
	m.session.Loading = false
	m.session.Err = ""
	if m.session.Authenticated && m.session.User != nil {
		m.setState(StateAuthenticated)
	} else {
		m.setState(StateUnauthenticated)
	}
	snap := m.snapshot()
	m.mu.Unlock()
	m.notify(snap)
}

// settleLoggedOut resets to Unauthenticated, optionally carrying a transient
// error message (bootstrap failure path).
func (m *Manager) settleLoggedOut(errMsg string) {
	m.mu.Lock()
	m.setState(StateUnauthenticated)
	m.session.User = nil
	m.session.Authenticated = false
	m.session.Loading = false
	m.session.Err = errMsg
	snap := m.snapshot()
	m.mu.Unlock()
	m.notify(snap)
}

// auxiliary runs a gateway call that affects Loading/Err but never the
// authentication boolean or the cached user.
func (m *Manager) auxiliary(ctx context.Context, event ActivityEventType, call func() error) error {
	m.mu.Lock()
	m.session.Loading = true
	m.session.Err = ""
	snap := m.snapshot()
	m.mu.Unlock()
	m.notify(snap)

	err := call()

	m.mu.Lock()
	m.session.Loading = false
	if err != nil {
		m.session.Err = displayMessage(err)
	}
	snap = m.snapshot()
	m.mu.Unlock()
	m.notify(snap)

	if err != nil {
		return err
	}

	if event != "" {
		m.emit(ctx, event, m.currentUserID(), nil)
	}
	return nil
}

func (m *Manager) requireAuthenticated() error {
	current := m.Current()
	if !current.Authenticated || current.User == nil {
		return classified(ErrTokenRejected, "not authenticated", nil)
	}
	return nil
}

// setState moves the state machine. Callers hold m.mu. Same-state moves are
// no-ops; a move missing from the table is logged and applied anyway, since
// a stale settlement must still win (last write wins).
func (m *Manager) setState(target State) {
	from := m.session.State
	if from == target {
		return
	}

	if allowed, ok := m.transitions[from]; ok {
		if _, exists := allowed[target]; exists {
			m.prevState = from
			m.session.State = target
			return
		}
	}

	m.logger.Warn("unexpected session transition from=%s to=%s", from, target)
	m.prevState = from
	m.session.State = target
}

func (m *Manager) snapshot() Session {
	snap := m.session
	snap.User = m.session.User.Clone()
	return snap
}

func (m *Manager) notify(snap Session) {
	if m.debug {
		m.logger.Debug("session changed: %s", print.MaybePrettyJSON(map[string]any{
			"state":         snap.State,
			"authenticated": snap.Authenticated,
			"loading":       snap.Loading,
			"error":         snap.Err,
		}))
	}

	m.subMu.Lock()
	subscribers := make([]func(Session), 0, len(m.subscribers))
	for _, fn := range m.subscribers {
		subscribers = append(subscribers, fn)
	}
	m.subMu.Unlock()

	for _, fn := range subscribers {
		if fn != nil {
			fn(snap)
		}
	}
}

// persistUser serializes the cached user. Callers hold m.mu.
func (m *Manager) persistUser(ctx context.Context, user *User) {
	raw, err := json.Marshal(user)
	if err != nil {
		m.logger.Warn("failed to serialize user: %v", err)
		return
	}
	if err := m.store.Set(ctx, m.userKey, string(raw)); err != nil {
		m.logger.Warn("failed to persist user: %v", err)
	}
}

// clearCredentials removes both keys. Callers may or may not hold m.mu; the
// store has its own synchronization.
func (m *Manager) clearCredentials(ctx context.Context) {
	if err := m.store.Remove(ctx, m.tokenKey); err != nil {
		m.logger.Warn("failed to remove session token: %v", err)
	}
	if err := m.store.Remove(ctx, m.userKey); err != nil {
		m.logger.Warn("failed to remove cached user: %v", err)
	}
}

func (m *Manager) currentUserID() string {
	current := m.Current()
	if current.User == nil {
		return ""
	}
	return current.User.ID.String()
}

func (m *Manager) emit(ctx context.Context, eventType ActivityEventType, userID string, metadata map[string]any) {
	m.mu.Lock()
	from, to := m.prevState, m.session.State
	m.mu.Unlock()

	event := ActivityEvent{
		EventType:  eventType,
		UserID:     userID,
		FromState:  from,
		ToState:    to,
		Metadata:   metadata,
		OccurredAt: m.now(),
	}
	if event.Metadata == nil {
		event.Metadata = map[string]any{}
	}

	sink := normalizeActivitySink(m.sink)
	if err := sink.Record(ctx, event); err != nil {
		m.logger.Warn("activity sink record error: %v", err)
	}
}

func validatePayload(payload LoginPayload) error {
	if v, ok := payload.(interface{ Validate() error }); ok {
		if err := v.Validate(); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid login payload")
		}
	}
	return nil
}
