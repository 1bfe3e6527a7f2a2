package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/adminpanel/internal/apiclient"
	"github.com/hitoshi/adminpanel/internal/model"
	"github.com/hitoshi/adminpanel/internal/security"
	"github.com/hitoshi/adminpanel/internal/view"
)

// FeedbackHandler はフィードバック管理のHTTPハンドラー。
type FeedbackHandler struct {
	api       apiclient.Requester
	sanitizer security.ContentSanitizer
	resp      *responder
}

// NewFeedbackHandler はFeedbackHandlerを生成する。
func NewFeedbackHandler(api apiclient.Requester, sanitizer security.ContentSanitizer, resp *responder) *FeedbackHandler {
	return &FeedbackHandler{api: api, sanitizer: sanitizer, resp: resp}
}

type replyRequest struct {
	Reply string `json:"reply"`
}

// List はフィードバック一覧を評価区分で絞り込んで返す。
// GET /api/feedback?filter=all|high|medium|low
func (h *FeedbackHandler) List(w http.ResponseWriter, r *http.Request) {
	bucket, ok := parseBucket(w, r)
	if !ok {
		return
	}
	session, ok := h.resp.session(w, r)
	if !ok {
		return
	}

	v := view.NewFeedbackView(h.api, session, h.sanitizer)
	defer v.Close()

	err := v.Load(r.Context())
	h.resp.respond(w, r, session, err, http.StatusOK, v.Overview(bucket))
}

// Reply は管理者の返信を送信し、再読み込みした一覧を返す。
// PATCH /api/feedback/{id}/reply
func (h *FeedbackHandler) Reply(w http.ResponseWriter, r *http.Request) {
	bucket, ok := parseBucket(w, r)
	if !ok {
		return
	}
	session, ok := h.resp.session(w, r)
	if !ok {
		return
	}
	var req replyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError())
		return
	}

	v := view.NewFeedbackView(h.api, session, h.sanitizer)
	defer v.Close()

	if err := v.Reply(r.Context(), chi.URLParam(r, "id"), req.Reply); err != nil {
		// 空の返信はリクエスト前に拒否されるため、一覧ではなくエラーのみを返す
		h.resp.fail(w, r, session, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, v.Overview(bucket))
}

// Archive はフィードバックをアーカイブし、再読み込みした一覧を返す。
// PATCH /api/feedback/{id}/archive
func (h *FeedbackHandler) Archive(w http.ResponseWriter, r *http.Request) {
	bucket, ok := parseBucket(w, r)
	if !ok {
		return
	}
	session, ok := h.resp.session(w, r)
	if !ok {
		return
	}

	v := view.NewFeedbackView(h.api, session, h.sanitizer)
	defer v.Close()

	err := v.Archive(r.Context(), chi.URLParam(r, "id"))
	reloadAfterFailure(r.Context(), err, v)
	h.resp.respond(w, r, session, err, http.StatusOK, v.Overview(bucket))
}

// parseBucket はfilterクエリを解析する。不正な値の場合は400を書き込みfalseを返す。
func parseBucket(w http.ResponseWriter, r *http.Request) (model.RatingBucket, bool) {
	q := r.URL.Query().Get("filter")
	bucket, err := model.ParseRatingBucket(q)
	if err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidFilterError(q))
		return "", false
	}
	return bucket, true
}
