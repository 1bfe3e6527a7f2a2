package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hitoshi/adminpanel/internal/apiclient"
	"github.com/hitoshi/adminpanel/internal/model"
	"github.com/hitoshi/adminpanel/internal/security"
	"github.com/hitoshi/adminpanel/internal/view"
)

func feedbackAPI(t *testing.T) *mockAPI {
	items := []map[string]any{
		{"id": 1, "rating": 9, "comment": "<p>Ótimo</p><script>x()</script>", "createdAt": "2024-01-01"},
		{"id": 2, "rating": 6, "comment": "ok", "createdAt": "2024-01-02"},
		{"id": 3, "rating": 2, "comment": "ruim", "createdAt": "2024-01-03"},
	}
	return &mockAPI{doFn: func(method, path string, body any) (*apiclient.Result, error) {
		if method == http.MethodGet {
			return jsonResult(t, items), nil
		}
		return &apiclient.Result{StatusCode: http.StatusOK, JSON: json.RawMessage(`{}`)}, nil
	}}
}

func newTestFeedbackHandler(api *mockAPI) *FeedbackHandler {
	return NewFeedbackHandler(api, security.NewContentSanitizer(), newResponder(&mockAuthService{}, AuthHandlerConfig{}))
}

func TestFeedbackHandler_List_FilterAndSanitize(t *testing.T) {
	h := newTestFeedbackHandler(feedbackAPI(t))

	w := serve(http.MethodGet, "/api/feedback", h.List, httptest.NewRequest(http.MethodGet, "/api/feedback?filter=high", nil), false)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	var resp view.FeedbackOverview
	decodeBody(t, w, &resp)
	if resp.Total != 3 || len(resp.Items) != 1 {
		t.Fatalf("total = %d, items = %d; want 3 and 1", resp.Total, len(resp.Items))
	}
	if strings.Contains(resp.Items[0].Comment, "<script>") {
		t.Errorf("comment not sanitized: %q", resp.Items[0].Comment)
	}
	if resp.Filter != model.RatingHigh {
		t.Errorf("Filter = %q, want high", resp.Filter)
	}
}

func TestFeedbackHandler_List_InvalidFilter(t *testing.T) {
	api := feedbackAPI(t)
	h := newTestFeedbackHandler(api)

	w := serve(http.MethodGet, "/api/feedback", h.List, httptest.NewRequest(http.MethodGet, "/api/feedback?filter=great", nil), false)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
	if code := errorCode(t, w); code != model.ErrCodeInvalidFilter {
		t.Errorf("code = %q, want %q", code, model.ErrCodeInvalidFilter)
	}
}

func TestFeedbackHandler_Reply(t *testing.T) {
	api := feedbackAPI(t)
	h := newTestFeedbackHandler(api)

	req := httptest.NewRequest(http.MethodPatch, "/api/feedback/2/reply", strings.NewReader(`{"reply":"Obrigado <b>pelo</b> retorno<script>x()</script>"}`))
	w := serve(http.MethodPatch, "/api/feedback/{id}/reply", h.Reply, req, false)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d (body=%s)", w.Code, http.StatusOK, w.Body.String())
	}
	patches := api.callsOf(http.MethodPatch)
	if len(patches) != 1 || patches[0].path != "feedback/2/reply" {
		t.Fatalf("PATCH calls = %+v", patches)
	}
	sent, ok := patches[0].body.(map[string]string)
	if !ok || strings.Contains(sent["reply"], "<script>") || !strings.Contains(sent["reply"], "Obrigado") {
		t.Errorf("PATCH body = %+v", patches[0].body)
	}
	if len(api.callsOf(http.MethodGet)) != 1 {
		t.Error("feedback list should be reloaded after reply")
	}
}

func TestFeedbackHandler_Reply_Blank(t *testing.T) {
	api := feedbackAPI(t)
	h := newTestFeedbackHandler(api)

	req := httptest.NewRequest(http.MethodPatch, "/api/feedback/2/reply", strings.NewReader(`{"reply":"  <script></script> "}`))
	w := serve(http.MethodPatch, "/api/feedback/{id}/reply", h.Reply, req, false)

	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnprocessableEntity)
	}
	if code := errorCode(t, w); code != model.ErrCodeEmptyReply {
		t.Errorf("code = %q, want %q", code, model.ErrCodeEmptyReply)
	}
	if len(api.callsOf(http.MethodPatch)) != 0 {
		t.Error("blank reply must not be sent upstream")
	}
}

func TestFeedbackHandler_Archive(t *testing.T) {
	api := feedbackAPI(t)
	h := newTestFeedbackHandler(api)

	w := serve(http.MethodPatch, "/api/feedback/{id}/archive", h.Archive, httptest.NewRequest(http.MethodPatch, "/api/feedback/3/archive", nil), false)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	patches := api.callsOf(http.MethodPatch)
	if len(patches) != 1 || patches[0].path != "feedback/3/archive" || patches[0].body != nil {
		t.Errorf("PATCH calls = %+v", patches)
	}
}

func TestFeedbackHandler_Archive_UpstreamFailure(t *testing.T) {
	api := &mockAPI{doFn: func(method, path string, body any) (*apiclient.Result, error) {
		return nil, &apiclient.RequestError{StatusCode: http.StatusServiceUnavailable, Message: "maintenance"}
	}}
	h := newTestFeedbackHandler(api)

	w := serve(http.MethodPatch, "/api/feedback/{id}/archive", h.Archive, httptest.NewRequest(http.MethodPatch, "/api/feedback/3/archive", nil), false)

	if w.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadGateway)
	}
	var resp view.FeedbackOverview
	decodeBody(t, w, &resp)
	if resp.Error != "maintenance" {
		t.Errorf("Error = %q, want maintenance", resp.Error)
	}
}

func TestFeedbackHandler_Archive_FailureKeepsList(t *testing.T) {
	items := []map[string]any{
		{"id": 1, "rating": 9, "comment": "bom"},
		{"id": 2, "rating": 3, "comment": "ruim"},
	}
	api := &mockAPI{doFn: func(method, path string, body any) (*apiclient.Result, error) {
		if method == http.MethodPatch {
			return nil, &apiclient.RequestError{StatusCode: http.StatusConflict, Message: "already archived"}
		}
		return jsonResult(t, items), nil
	}}
	h := newTestFeedbackHandler(api)

	w := serve(http.MethodPatch, "/api/feedback/{id}/archive", h.Archive, httptest.NewRequest(http.MethodPatch, "/api/feedback/2/archive", nil), false)

	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusUnprocessableEntity)
	}
	var resp view.FeedbackOverview
	decodeBody(t, w, &resp)
	if resp.Total != 2 || len(resp.Items) != 2 {
		t.Errorf("total = %d, items = %d; want the 2 existing records kept", resp.Total, len(resp.Items))
	}
	if resp.Error != "already archived" {
		t.Errorf("Error = %q, want already archived", resp.Error)
	}
}
