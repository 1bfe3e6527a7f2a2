package handler

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/adminpanel/internal/apiclient"
	"github.com/hitoshi/adminpanel/internal/dashboard"
	"github.com/hitoshi/adminpanel/internal/model"
)

func newTestDashboardHandler(svc *mockDashboardService, auth *mockAuthService) *DashboardHandler {
	return NewDashboardHandler(svc, newResponder(auth, AuthHandlerConfig{}))
}

func TestDashboardHandler_Overview_PassesSessionToken(t *testing.T) {
	var gotToken string
	svc := &mockDashboardService{
		overviewFn: func(ctx context.Context, auth apiclient.Auth) (*dashboard.Overview, error) {
			gotToken = auth.BearerToken()
			return &dashboard.Overview{TotalUsers: 12, ProUsers: 3}, nil
		},
	}
	h := newTestDashboardHandler(svc, &mockAuthService{})

	w := serve(http.MethodGet, "/api/dashboard", h.Overview, httptest.NewRequest(http.MethodGet, "/api/dashboard", nil), false)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if gotToken != "tok-1" {
		t.Errorf("token = %q, want tok-1", gotToken)
	}
	var resp dashboard.Overview
	decodeBody(t, w, &resp)
	if resp.TotalUsers != 12 || resp.ProUsers != 3 {
		t.Errorf("response = %+v", resp)
	}
}

func TestDashboardHandler_FailureFailsWholeView(t *testing.T) {
	svc := &mockDashboardService{
		conversionFn: func(ctx context.Context, auth apiclient.Auth) (*dashboard.Conversion, error) {
			return nil, fmt.Errorf("failed to load conversion: %w", &apiclient.RequestError{StatusCode: 500, Message: "feedback offline"})
		},
	}
	h := newTestDashboardHandler(svc, &mockAuthService{})

	w := serve(http.MethodGet, "/api/conversion", h.Conversion, httptest.NewRequest(http.MethodGet, "/api/conversion", nil), false)

	if w.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadGateway)
	}
	if code := errorCode(t, w); code != model.ErrCodeUpstreamError {
		t.Errorf("code = %q, want %q", code, model.ErrCodeUpstreamError)
	}
}

func TestDashboardHandler_UnauthorizedExpiresSession(t *testing.T) {
	svc := &mockDashboardService{
		engagementFn: func(ctx context.Context, auth apiclient.Auth) (*dashboard.Engagement, error) {
			return nil, fmt.Errorf("failed to load engagement: %w", &apiclient.RequestError{StatusCode: 401, Message: "expired"})
		},
	}
	auth := &mockAuthService{}
	h := newTestDashboardHandler(svc, auth)

	w := serve(http.MethodGet, "/engagement", h.Engagement, httptest.NewRequest(http.MethodGet, "/engagement", nil), true)

	if w.Code != http.StatusSeeOther {
		t.Errorf("status = %d, want %d", w.Code, http.StatusSeeOther)
	}
	if loc := w.Header().Get("Location"); loc != "/login" {
		t.Errorf("Location = %q, want /login", loc)
	}
	if len(auth.logoutCalls()) != 1 {
		t.Error("session should be deleted when the upstream rejects the token")
	}
}

func TestDashboardHandler_Support_Detail(t *testing.T) {
	var gotDetail dashboard.SupportDetail
	svc := &mockDashboardService{
		supportFn: func(ctx context.Context, auth apiclient.Auth, detail dashboard.SupportDetail) (*dashboard.Support, error) {
			gotDetail = detail
			return &dashboard.Support{Detail: detail}, nil
		},
	}
	h := newTestDashboardHandler(svc, &mockAuthService{})

	w := serve(http.MethodGet, "/api/support", h.Support, httptest.NewRequest(http.MethodGet, "/api/support?view=bugs", nil), false)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if gotDetail != dashboard.SupportBugs {
		t.Errorf("detail = %q, want bugs", gotDetail)
	}

	w = serve(http.MethodGet, "/api/support", h.Support, httptest.NewRequest(http.MethodGet, "/api/support?view=everything", nil), false)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestDashboardHandler_ConfigurationError(t *testing.T) {
	svc := &mockDashboardService{
		overviewFn: func(ctx context.Context, auth apiclient.Auth) (*dashboard.Overview, error) {
			return nil, fmt.Errorf("failed to load dashboard: %w", &apiclient.ConfigurationError{})
		},
	}
	h := newTestDashboardHandler(svc, &mockAuthService{})

	w := serve(http.MethodGet, "/api/dashboard", h.Overview, httptest.NewRequest(http.MethodGet, "/api/dashboard", nil), false)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
	if code := errorCode(t, w); code != model.ErrCodeConfigurationError {
		t.Errorf("code = %q, want %q", code, model.ErrCodeConfigurationError)
	}
}

func TestMapAPIErrorToHTTPStatus(t *testing.T) {
	tests := []struct {
		err  *model.APIError
		want int
	}{
		{model.NewInvalidRequestError(), http.StatusBadRequest},
		{model.NewValidationFailedError("x"), http.StatusUnprocessableEntity},
		{model.NewInvalidCredentialsError(), http.StatusUnauthorized},
		{model.NewAccessDeniedError(), http.StatusForbidden},
		{model.NewSessionExpiredError(), http.StatusUnauthorized},
		{model.NewConfirmationRequiredError(), http.StatusBadRequest},
		{model.NewEmptyReplyError(), http.StatusUnprocessableEntity},
		{model.NewRecordNotFoundError("1"), http.StatusNotFound},
		{model.NewRateLimitExceededError(), http.StatusTooManyRequests},
		{model.NewUpstreamError("x"), http.StatusBadGateway},
		{model.NewConfigurationError(), http.StatusInternalServerError},
		{model.NewInternalError(), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := mapAPIErrorToHTTPStatus(tt.err); got != tt.want {
			t.Errorf("%s: status = %d, want %d", tt.err.Code, got, tt.want)
		}
	}
}
