package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/adminpanel/internal/apiclient"
	"github.com/hitoshi/adminpanel/internal/model"
	"github.com/hitoshi/adminpanel/internal/view"
)

// AdminHandler は管理者管理のHTTPハンドラー。
type AdminHandler struct {
	api  apiclient.Requester
	resp *responder
}

// NewAdminHandler はAdminHandlerを生成する。
func NewAdminHandler(api apiclient.Requester, resp *responder) *AdminHandler {
	return &AdminHandler{api: api, resp: resp}
}

// List は管理者ロールのユーザー一覧を返す。
// GET /api/admins
func (h *AdminHandler) List(w http.ResponseWriter, r *http.Request) {
	session, ok := h.resp.session(w, r)
	if !ok {
		return
	}

	v := view.NewAdminsView(h.api, session)
	defer v.Close()

	err := v.Load(r.Context())
	h.resp.respond(w, r, session, err, http.StatusOK, v.Overview())
}

// Edit は指定した管理者でフォームを埋めた編集状態を返す。パスワードは常に空。
// GET /api/admins/{id}/edit
func (h *AdminHandler) Edit(w http.ResponseWriter, r *http.Request) {
	session, ok := h.resp.session(w, r)
	if !ok {
		return
	}

	v := view.NewAdminsView(h.api, session)
	defer v.Close()

	if err := v.Load(r.Context()); err != nil {
		h.resp.fail(w, r, session, err, v.Overview())
		return
	}
	if err := v.BeginEdit(chi.URLParam(r, "id")); err != nil {
		h.resp.fail(w, r, session, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, v.Overview())
}

// Create は管理者を作成する。
// POST /api/admins
func (h *AdminHandler) Create(w http.ResponseWriter, r *http.Request) {
	h.write(w, r, http.StatusCreated, func(ctx context.Context, v *view.AdminsView, form model.UserForm) error {
		return v.Create(ctx, form)
	})
}

// Update は管理者を更新する。
// PUT /api/admins/{id}
func (h *AdminHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	h.write(w, r, http.StatusOK, func(ctx context.Context, v *view.AdminsView, form model.UserForm) error {
		if err := v.Update(ctx, id, form); err != nil {
			return err
		}
		if revokesAdmin(form) {
			h.resp.revokeSessions(ctx, id)
		}
		return nil
	})
}

// Delete はconfirm=trueが指定された場合のみ管理者を削除する。
// DELETE /api/admins/{id}?confirm=true
func (h *AdminHandler) Delete(w http.ResponseWriter, r *http.Request) {
	session, ok := h.resp.session(w, r)
	if !ok {
		return
	}

	v := view.NewAdminsView(h.api, session)
	defer v.Close()

	id := chi.URLParam(r, "id")
	err := v.Remove(r.Context(), id, confirmFromQuery(r))
	if err == nil {
		h.resp.revokeSessions(r.Context(), id)
	}
	reloadAfterFailure(r.Context(), err, v)
	h.resp.respond(w, r, session, err, http.StatusOK, v.Overview())
}

func (h *AdminHandler) write(w http.ResponseWriter, r *http.Request, statusCode int, op func(context.Context, *view.AdminsView, model.UserForm) error) {
	session, ok := h.resp.session(w, r)
	if !ok {
		return
	}
	var form model.UserForm
	if err := decodeJSON(w, r, &form); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError())
		return
	}

	v := view.NewAdminsView(h.api, session)
	defer v.Close()

	err := op(r.Context(), v, form)
	reloadAfterFailure(r.Context(), err, v)
	h.resp.respond(w, r, session, err, statusCode, v.Overview())
}
