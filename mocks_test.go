package session_test

import (
	"context"
	"io"
	"mime/multipart"
	"sync"

	session "github.com/goliatone/go-session"
	"github.com/goliatone/go-router"
	"github.com/stretchr/testify/mock"
)

// MockGateway implements session.IdentityGateway
type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) Login(ctx context.Context, payload session.LoginPayload) (*session.AuthResult, error) {
	args := m.Called(ctx, payload)
	res, _ := args.Get(0).(*session.AuthResult)
	return res, args.Error(1)
}

func (m *MockGateway) Register(ctx context.Context, payload session.RegistrationPayload) (*session.AuthResult, error) {
	args := m.Called(ctx, payload)
	res, _ := args.Get(0).(*session.AuthResult)
	return res, args.Error(1)
}

func (m *MockGateway) Logout(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockGateway) Profile(ctx context.Context) (*session.User, error) {
	args := m.Called(ctx)
	user, _ := args.Get(0).(*session.User)
	return user, args.Error(1)
}

func (m *MockGateway) UpdateProfile(ctx context.Context, patch session.ProfilePatch) (*session.User, error) {
	args := m.Called(ctx, patch)
	user, _ := args.Get(0).(*session.User)
	return user, args.Error(1)
}

func (m *MockGateway) ChangePassword(ctx context.Context, current, next string) error {
	args := m.Called(ctx, current, next)
	return args.Error(0)
}

func (m *MockGateway) ForgotPassword(ctx context.Context, email string) error {
	args := m.Called(ctx, email)
	return args.Error(0)
}

func (m *MockGateway) ResetPassword(ctx context.Context, token, password string) error {
	args := m.Called(ctx, token, password)
	return args.Error(0)
}

func (m *MockGateway) VerifyEmail(ctx context.Context, token string) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

func (m *MockGateway) ResendVerification(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// funcGateway lets individual tests wire behavior per operation without
// testify expectations; unset operations fail loudly.
type funcGateway struct {
	login   func(ctx context.Context, payload session.LoginPayload) (*session.AuthResult, error)
	profile func(ctx context.Context) (*session.User, error)
	logout  func(ctx context.Context) error
}

func (f *funcGateway) Login(ctx context.Context, payload session.LoginPayload) (*session.AuthResult, error) {
	return f.login(ctx, payload)
}

func (f *funcGateway) Register(ctx context.Context, payload session.RegistrationPayload) (*session.AuthResult, error) {
	panic("funcGateway: Register not wired")
}

func (f *funcGateway) Logout(ctx context.Context) error {
	if f.logout == nil {
		return nil
	}
	return f.logout(ctx)
}

func (f *funcGateway) Profile(ctx context.Context) (*session.User, error) {
	return f.profile(ctx)
}

func (f *funcGateway) UpdateProfile(ctx context.Context, patch session.ProfilePatch) (*session.User, error) {
	panic("funcGateway: UpdateProfile not wired")
}

func (f *funcGateway) ChangePassword(ctx context.Context, current, next string) error {
	panic("funcGateway: ChangePassword not wired")
}

func (f *funcGateway) ForgotPassword(ctx context.Context, email string) error {
	panic("funcGateway: ForgotPassword not wired")
}

func (f *funcGateway) ResetPassword(ctx context.Context, token, password string) error {
	panic("funcGateway: ResetPassword not wired")
}

func (f *funcGateway) VerifyEmail(ctx context.Context, token string) error {
	panic("funcGateway: VerifyEmail not wired")
}

func (f *funcGateway) ResendVerification(ctx context.Context) error {
	panic("funcGateway: ResendVerification not wired")
}

// recordingSink collects activity events for assertions.
type recordingSink struct {
	mu     sync.Mutex
	events []session.ActivityEvent
}

func (r *recordingSink) Record(_ context.Context, event session.ActivityEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *recordingSink) types() []session.ActivityEventType {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]session.ActivityEventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.EventType)
	}
	return out
}

// staticSource satisfies session.SessionSource with a fixed snapshot.
type staticSource struct {
	snap session.Session
}

func (s staticSource) Current() session.Session {
	return s.snap
}

// fakeContext is a recording router.Context for gate tests.
type fakeContext struct {
	ctx         context.Context
	method      string
	originalURL string
	referer     string
	cookies     map[string]string
	locals      map[any]any

	nextCalled   bool
	setCookies   []*router.Cookie
	renderedView string
	renderedBind any
	redirectPath string
	redirectCode int
	statusCode   int
}

func newFakeContext(method, url string) *fakeContext {
	return &fakeContext{
		ctx:         context.Background(),
		method:      method,
		originalURL: url,
		cookies:     map[string]string{},
		locals:      map[any]any{},
	}
}

func (f *fakeContext) Next() error {
	f.nextCalled = true
	return nil
}

func (f *fakeContext) Context() context.Context { return f.ctx }

func (f *fakeContext) SetContext(ctx context.Context) { f.ctx = ctx }

func (f *fakeContext) Path() string { return f.originalURL }

func (f *fakeContext) Method() string { return f.method }

func (f *fakeContext) Body() []byte { return nil }

func (f *fakeContext) Status(code int) router.Context {
	f.statusCode = code
	return f
}

func (f *fakeContext) SendString(string) error { return nil }

func (f *fakeContext) Send([]byte) error { return nil }

func (f *fakeContext) JSON(int, any) error { return nil }

func (f *fakeContext) NoContent(int) error { return nil }

func (f *fakeContext) Render(name string, bind any, _ ...string) error {
	f.renderedView = name
	f.renderedBind = bind
	return nil
}

func (f *fakeContext) Redirect(path string, status ...int) error {
	f.redirectPath = path
	if len(status) > 0 {
		f.redirectCode = status[0]
	}
	return nil
}

func (f *fakeContext) RedirectToRoute(string, router.ViewContext, ...int) error { return nil }

func (f *fakeContext) RedirectBack(string, ...int) error { return nil }

func (f *fakeContext) SetHeader(string, string) router.Context { return f }

func (f *fakeContext) Header(string) string { return "" }

func (f *fakeContext) Get(key string, def any) any { return def }

func (f *fakeContext) GetBool(key string, def bool) bool { return def }

func (f *fakeContext) GetInt(key string, def int) int { return def }

func (f *fakeContext) GetString(key string, def string) string { return def }

func (f *fakeContext) Set(string, any) {}

func (f *fakeContext) Bind(any) error { return nil }

func (f *fakeContext) BindJSON(any) error { return nil }

func (f *fakeContext) BindXML(any) error { return nil }

func (f *fakeContext) BindQuery(any) error { return nil }

func (f *fakeContext) CookieParser(any) error { return nil }

func (f *fakeContext) Cookie(cookie *router.Cookie) {
	f.setCookies = append(f.setCookies, cookie)
	if cookie.Value == "" {
		delete(f.cookies, cookie.Name)
		return
	}
	f.cookies[cookie.Name] = cookie.Value
}

func (f *fakeContext) Cookies(key string, def ...string) string {
	if val, ok := f.cookies[key]; ok && val != "" {
		return val
	}
	if len(def) > 0 {
		return def[0]
	}
	return ""
}

func (f *fakeContext) Param(key string, def ...string) string {
	if len(def) > 0 {
		return def[0]
	}
	return ""
}

func (f *fakeContext) ParamsInt(key string, def int) int { return def }

func (f *fakeContext) Query(key string, def ...string) string {
	if len(def) > 0 {
		return def[0]
	}
	return ""
}

func (f *fakeContext) QueryInt(key string, def int) int { return def }

func (f *fakeContext) Queries() map[string]string { return nil }

func (f *fakeContext) Locals(key any, value ...any) any {
	if len(value) > 0 {
		f.locals[key] = value[0]
		return nil
	}
	return f.locals[key]
}

func (f *fakeContext) OriginalURL() string { return f.originalURL }

func (f *fakeContext) OnNext(func() error) {}

func (f *fakeContext) Referer() string { return f.referer }

func (f *fakeContext) QueryValues(string) []string { return nil }

func (f *fakeContext) LocalsMerge(key any, value map[string]any) map[string]any { return value }

func (f *fakeContext) FormFile(string) (*multipart.FileHeader, error) { return nil, nil }

func (f *fakeContext) FormValue(key string, def ...string) string {
	if len(def) > 0 {
		return def[0]
	}
	return ""
}

func (f *fakeContext) IP() string { return "" }

func (f *fakeContext) SendStatus(code int) error {
	f.statusCode = code
	return nil
}

func (f *fakeContext) SendStream(io.Reader) error { return nil }

func (f *fakeContext) RouteName() string { return "" }

func (f *fakeContext) RouteParams() map[string]string { return nil }
