package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/adminpanel/internal/apiclient"
	"github.com/hitoshi/adminpanel/internal/dashboard"
	"github.com/hitoshi/adminpanel/internal/middleware"
	"github.com/hitoshi/adminpanel/internal/model"
)

// --- 外部APIのモック ---

type apiCall struct {
	method string
	path   string
	body   any
	token  string
}

type mockAPI struct {
	mu    sync.Mutex
	calls []apiCall
	doFn  func(method, path string, body any) (*apiclient.Result, error)
}

func (m *mockAPI) Do(_ context.Context, auth apiclient.Auth, method, path string, body any) (*apiclient.Result, error) {
	token := ""
	if auth != nil {
		token = auth.BearerToken()
	}
	m.mu.Lock()
	m.calls = append(m.calls, apiCall{method: method, path: path, body: body, token: token})
	m.mu.Unlock()
	if m.doFn != nil {
		return m.doFn(method, path, body)
	}
	return &apiclient.Result{StatusCode: http.StatusOK, JSON: json.RawMessage(`[]`)}, nil
}

func (m *mockAPI) callsOf(method string) []apiCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []apiCall
	for _, c := range m.calls {
		if c.method == method {
			out = append(out, c)
		}
	}
	return out
}

func jsonResult(t *testing.T, v any) *apiclient.Result {
	t.Helper()
	raw, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return &apiclient.Result{StatusCode: http.StatusOK, JSON: raw}
}

var sampleUsers = []map[string]any{
	{"id": 1, "name": "Ana", "email": "ana@x.com", "username": "ana", "plan": "Pro", "role": "admin"},
	{"id": 2, "name": "Bo", "email": "bo@x.com", "username": "bo", "plan": "Free", "role": "user"},
	{"id": 3, "name": "Cy", "email": "cy@x.com", "username": "cy", "plan": "Premium", "role": "superadmin"},
	{"id": 4, "name": "Di", "email": "di@x.com", "username": "di", "plan": "Pro"},
}

// usersAPI はGET usersにsampleUsersを返し、それ以外の書き込みを成功させるモック。
func usersAPI(t *testing.T) *mockAPI {
	return &mockAPI{doFn: func(method, path string, body any) (*apiclient.Result, error) {
		if method == http.MethodGet && path == "users" {
			return jsonResult(t, sampleUsers), nil
		}
		return &apiclient.Result{StatusCode: http.StatusOK, JSON: json.RawMessage(`{}`)}, nil
	}}
}

// --- 認証サービスのモック ---

type mockAuthService struct {
	loginFn          func(ctx context.Context, identifier, password string) (*model.Session, error)
	logoutFn         func(ctx context.Context, sessionID string) error
	currentSessionFn func(ctx context.Context, sessionID string) (*model.Session, error)

	mu        sync.Mutex
	loggedOut []string
	revoked   []string
}

func (m *mockAuthService) Login(ctx context.Context, identifier, password string) (*model.Session, error) {
	if m.loginFn != nil {
		return m.loginFn(ctx, identifier, password)
	}
	return nil, nil
}

func (m *mockAuthService) Logout(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	m.loggedOut = append(m.loggedOut, sessionID)
	m.mu.Unlock()
	if m.logoutFn != nil {
		return m.logoutFn(ctx, sessionID)
	}
	return nil
}

func (m *mockAuthService) CurrentSession(ctx context.Context, sessionID string) (*model.Session, error) {
	if m.currentSessionFn != nil {
		return m.currentSessionFn(ctx, sessionID)
	}
	return nil, nil
}

func (m *mockAuthService) RevokeUserSessions(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.revoked = append(m.revoked, userID)
	return nil
}

func (m *mockAuthService) revokedUsers() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.revoked...)
}

func (m *mockAuthService) logoutCalls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.loggedOut...)
}

// --- ダッシュボードサービスのモック ---

type mockDashboardService struct {
	overviewFn   func(ctx context.Context, auth apiclient.Auth) (*dashboard.Overview, error)
	conversionFn func(ctx context.Context, auth apiclient.Auth) (*dashboard.Conversion, error)
	engagementFn func(ctx context.Context, auth apiclient.Auth) (*dashboard.Engagement, error)
	supportFn    func(ctx context.Context, auth apiclient.Auth, detail dashboard.SupportDetail) (*dashboard.Support, error)
}

func (m *mockDashboardService) Overview(ctx context.Context, auth apiclient.Auth) (*dashboard.Overview, error) {
	if m.overviewFn != nil {
		return m.overviewFn(ctx, auth)
	}
	return &dashboard.Overview{}, nil
}

func (m *mockDashboardService) Conversion(ctx context.Context, auth apiclient.Auth) (*dashboard.Conversion, error) {
	if m.conversionFn != nil {
		return m.conversionFn(ctx, auth)
	}
	return &dashboard.Conversion{}, nil
}

func (m *mockDashboardService) Engagement(ctx context.Context, auth apiclient.Auth) (*dashboard.Engagement, error) {
	if m.engagementFn != nil {
		return m.engagementFn(ctx, auth)
	}
	return &dashboard.Engagement{}, nil
}

func (m *mockDashboardService) Support(ctx context.Context, auth apiclient.Auth, detail dashboard.SupportDetail) (*dashboard.Support, error) {
	if m.supportFn != nil {
		return m.supportFn(ctx, auth, detail)
	}
	return &dashboard.Support{Detail: detail}, nil
}

// --- セッション ---

type mockSessionFinder struct {
	sessions map[string]*model.Session
}

func (m *mockSessionFinder) FindByID(_ context.Context, id string) (*model.Session, error) {
	if s, ok := m.sessions[id]; ok {
		return s, nil
	}
	return nil, nil
}

func testSession() *model.Session {
	return &model.Session{
		ID:        "sess-1",
		Token:     "tok-1",
		UserID:    "42",
		Role:      model.RoleAdmin,
		ExpiresAt: time.Now().Add(time.Hour),
	}
}

// serve はpatternにhandlerを登録したルーターでリクエストを処理する。
// セッションをコンテキストに注入し、pageがtrueなら画面ルートとして扱う。
func serve(method, pattern string, handler http.HandlerFunc, req *http.Request, page bool) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(middleware.ContextWithSession(r.Context(), testSession())))
		})
	})
	if page {
		r.Use(markPage)
	}
	r.Method(method, pattern, handler)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("レスポンスのデコードに失敗: %v (body=%q)", err, w.Body.String())
	}
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body middleware.ErrorResponseBody
	decodeBody(t, w, &body)
	return body.Code
}

func findCookie(w *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}
