package session

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

const (
	routeLogin          = "/auth/login"
	routeRegister       = "/auth/register"
	routeLogout         = "/auth/logout"
	routeProfile        = "/auth/profile"
	routePasswordChange = "/auth/password/change"
	routePasswordForgot = "/auth/password/forgot"
	routePasswordReset  = "/auth/password/reset"
	routeVerifyEmail    = "/auth/verify-email"
	routeResendVerify   = "/auth/verify-email/resend"
)

// HTTPGateway talks to the remote identity service over its JSON contract.
// Authorized calls read the bearer token from the credential store; the token
// itself is treated as opaque.
type HTTPGateway struct {
	baseURL  string
	client   *http.Client
	store    CredentialStore
	tokenKey string
	logger   Logger
}

var _ IdentityGateway = &HTTPGateway{}

// GatewayOption customizes HTTPGateway construction.
type GatewayOption func(*HTTPGateway)

// WithGatewayHTTPClient overrides the http.Client used for round trips.
func WithGatewayHTTPClient(client *http.Client) GatewayOption {
	return func(g *HTTPGateway) {
		if client != nil {
			g.client = client
		}
	}
}

// WithGatewayLogger overrides the gateway logger.
func WithGatewayLogger(logger Logger) GatewayOption {
	return func(g *HTTPGateway) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// NewHTTPGateway returns an IdentityGateway over the configured base URL.
func NewHTTPGateway(cfg Config, store CredentialStore, opts ...GatewayOption) *HTTPGateway {
	timeout := 30 * time.Second
	if cfg.GetRequestTimeout() > 0 {
		timeout = time.Duration(cfg.GetRequestTimeout()) * time.Second
	}

	tokenKey := cfg.GetTokenKey()
	if tokenKey == "" {
		tokenKey = DefaultTokenKey
	}

	g := &HTTPGateway{
		baseURL:  strings.TrimRight(cfg.GetBaseURL(), "/"),
		client:   &http.Client{Timeout: timeout},
		store:    store,
		tokenKey: tokenKey,
		logger:   defLogger{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}

	return g
}

type authResponse struct {
	User  *User  `json:"user"`
	Token string `json:"token"`
}

type errorResponse struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

func (g *HTTPGateway) Login(ctx context.Context, payload LoginPayload) (*AuthResult, error) {
	body := map[string]any{
		"identifier":  payload.GetIdentifier(),
		"password":    payload.GetPassword(),
		"remember_me": payload.GetExtendedSession(),
	}

	out := &authResponse{}
	if err := g.do(ctx, http.MethodPost, routeLogin, body, out, false); err != nil {
		return nil, err
	}

	return &AuthResult{User: out.User, Token: out.Token}, nil
}

func (g *HTTPGateway) Register(ctx context.Context, payload RegistrationPayload) (*AuthResult, error) {
	out := &authResponse{}
	if err := g.do(ctx, http.MethodPost, routeRegister, payload, out, false); err != nil {
		return nil, err
	}

	return &AuthResult{User: out.User, Token: out.Token}, nil
}

func (g *HTTPGateway) Logout(ctx context.Context) error {
	return g.do(ctx, http.MethodPost, routeLogout, nil, nil, true)
}

func (g *HTTPGateway) Profile(ctx context.Context) (*User, error) {
	out := &authResponse{}
	if err := g.do(ctx, http.MethodGet, routeProfile, nil, out, true); err != nil {
		return nil, err
	}
	return out.User, nil
}

func (g *HTTPGateway) UpdateProfile(ctx context.Context, patch ProfilePatch) (*User, error) {
	out := &authResponse{}
	if err := g.do(ctx, http.MethodPut, routeProfile, patch, out, true); err != nil {
		return nil, err
	}
	return out.User, nil
}

func (g *HTTPGateway) ChangePassword(ctx context.Context, current, next string) error {
	body := map[string]string{
		"current_password": current,
		"password":         next,
	}
	return g.do(ctx, http.MethodPost, routePasswordChange, body, nil, true)
}

func (g *HTTPGateway) ForgotPassword(ctx context.Context, email string) error {
	body := map[string]string{"email": email}
	return g.do(ctx, http.MethodPost, routePasswordForgot, body, nil, false)
}

func (g *HTTPGateway) ResetPassword(ctx context.Context, token, password string) error {
	body := map[string]string{
		"token":    token,
		"password": password,
	}
	return g.do(ctx, http.MethodPost, routePasswordReset, body, nil, false)
}

func (g *HTTPGateway) VerifyEmail(ctx context.Context, token string) error {
	body := map[string]string{"token": token}
	return g.do(ctx, http.MethodPost, routeVerifyEmail, body, nil, false)
}

func (g *HTTPGateway) ResendVerification(ctx context.Context) error {
	return g.do(ctx, http.MethodPost, routeResendVerify, nil, nil, true)
}

func (g *HTTPGateway) do(ctx context.Context, method, path string, body, out any, authorized bool) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to encode request body")
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, reader)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to build request")
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if authorized {
		token, ok, err := g.store.Get(ctx, g.tokenKey)
		if err != nil {
			g.logger.Warn("credential store read error: %v", err)
		}
		if !ok || token == "" {
			return classified(ErrTokenRejected, "no session token available", map[string]any{
				"path": path,
			})
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	res, err := g.client.Do(req)
	if err != nil {
		g.logger.Error("identity gateway transport error path=%s: %v", path, err)
		return goerrors.Wrap(err, goerrors.CategoryOperation, "identity service unreachable").
			WithTextCode(textCodeNetworkFailure)
	}
	defer res.Body.Close()

	if res.StatusCode >= 200 && res.StatusCode < 300 {
		if out == nil {
			return nil
		}
		if err := json.NewDecoder(res.Body).Decode(out); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to decode identity service response")
		}
		return nil
	}

	return g.classifyStatus(path, res.StatusCode, res.Body)
}

func (g *HTTPGateway) classifyStatus(path string, status int, body io.Reader) error {
	payload := errorResponse{}
	if err := json.NewDecoder(body).Decode(&payload); err != nil {
		g.logger.Debug("identity gateway error body not JSON path=%s status=%d", path, status)
	}

	message := payload.Message
	if message == "" {
		message = payload.Error
	}

	meta := map[string]any{
		"path":   path,
		"status": status,
	}

	switch {
	case status == http.StatusUnauthorized && path == routeLogin:
		return classified(ErrInvalidCredentials, message, meta)
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return classified(ErrTokenRejected, message, meta)
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		if message == "" {
			message = "identity service rejected the request"
		}
		return goerrors.New(message, goerrors.CategoryBadInput).
			WithCode(goerrors.CodeBadRequest).
			WithMetadata(meta)
	case status >= 500:
		return classified(ErrServer, message, meta)
	default:
		if message == "" {
			message = fmt.Sprintf("unexpected identity service response: %d", status)
		}
		return classified(ErrServer, message, meta)
	}
}

// classified clones a sentinel so per-call context can be attached while
// errors.Is against the sentinel keeps matching.
func classified(base *goerrors.Error, message string, meta map[string]any) error {
	clone := base.Clone()
	if clone == nil {
		return base
	}
	if message != "" {
		clone.Message = message
	}
	clone.Source = base
	return clone.WithMetadata(meta)
}
