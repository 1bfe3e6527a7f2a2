package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/adminpanel/internal/apiclient"
	"github.com/hitoshi/adminpanel/internal/dashboard"
	"github.com/hitoshi/adminpanel/internal/model"
)

// DashboardServiceInterface はダッシュボードハンドラーが必要とするサービスインターフェース。
type DashboardServiceInterface interface {
	Overview(ctx context.Context, auth apiclient.Auth) (*dashboard.Overview, error)
	Conversion(ctx context.Context, auth apiclient.Auth) (*dashboard.Conversion, error)
	Engagement(ctx context.Context, auth apiclient.Auth) (*dashboard.Engagement, error)
	Support(ctx context.Context, auth apiclient.Auth, detail dashboard.SupportDetail) (*dashboard.Support, error)
}

// DashboardHandler は指標ページのHTTPハンドラー。
// いずれかのコレクションの取得に失敗した場合はページ全体をエラーとする。
type DashboardHandler struct {
	service DashboardServiceInterface
	resp    *responder
}

// NewDashboardHandler はDashboardHandlerを生成する。
func NewDashboardHandler(service DashboardServiceInterface, resp *responder) *DashboardHandler {
	return &DashboardHandler{service: service, resp: resp}
}

// Overview はダッシュボードの集計を返す。
// GET /api/dashboard
func (h *DashboardHandler) Overview(w http.ResponseWriter, r *http.Request) {
	session, ok := h.resp.session(w, r)
	if !ok {
		return
	}
	result, err := h.service.Overview(r.Context(), session)
	h.render(w, r, session, result, err)
}

// Conversion はコンバージョン指標を返す。
// GET /api/conversion
func (h *DashboardHandler) Conversion(w http.ResponseWriter, r *http.Request) {
	session, ok := h.resp.session(w, r)
	if !ok {
		return
	}
	result, err := h.service.Conversion(r.Context(), session)
	h.render(w, r, session, result, err)
}

// Engagement はエンゲージメント指標を返す。
// GET /api/engagement
func (h *DashboardHandler) Engagement(w http.ResponseWriter, r *http.Request) {
	session, ok := h.resp.session(w, r)
	if !ok {
		return
	}
	result, err := h.service.Engagement(r.Context(), session)
	h.render(w, r, session, result, err)
}

// Support はサポート指標と、viewで選択された明細を返す。
// GET /api/support?view=commands|bugs|cancellations|feedbacks
func (h *DashboardHandler) Support(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("view")
	detail, err := dashboard.ParseSupportDetail(q)
	if err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidFilterError(q))
		return
	}
	session, ok := h.resp.session(w, r)
	if !ok {
		return
	}
	result, err := h.service.Support(r.Context(), session, detail)
	h.render(w, r, session, result, err)
}

func (h *DashboardHandler) render(w http.ResponseWriter, r *http.Request, session *model.Session, result any, err error) {
	if err != nil {
		h.resp.fail(w, r, session, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
