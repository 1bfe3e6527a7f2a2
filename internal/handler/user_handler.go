package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/adminpanel/internal/apiclient"
	"github.com/hitoshi/adminpanel/internal/model"
	"github.com/hitoshi/adminpanel/internal/view"
)

// UserHandler はユーザー管理のHTTPハンドラー。
// リクエストごとにビューを生成し、セッションのトークンで外部APIを呼び出す。
type UserHandler struct {
	api  apiclient.Requester
	resp *responder
}

// NewUserHandler はUserHandlerを生成する。
func NewUserHandler(api apiclient.Requester, resp *responder) *UserHandler {
	return &UserHandler{api: api, resp: resp}
}

// List はユーザー一覧をプランで絞り込んで返す。
// GET /api/users?plan=all|free|pro|premium
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("plan")
	filter, err := view.ParsePlanFilter(q)
	if err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidFilterError(q))
		return
	}
	session, ok := h.resp.session(w, r)
	if !ok {
		return
	}

	v := view.NewUsersView(h.api, session)
	defer v.Close()

	err = v.Load(r.Context())
	h.resp.respond(w, r, session, err, http.StatusOK, v.Overview(filter))
}

// Create はユーザーを作成する。
// POST /api/users
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	h.write(w, r, http.StatusCreated, func(ctx context.Context, v *view.UsersView, form model.UserForm) error {
		return v.Create(ctx, form)
	})
}

// Update はユーザーを更新する。
// PUT /api/users/{id}
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	h.write(w, r, http.StatusOK, func(ctx context.Context, v *view.UsersView, form model.UserForm) error {
		if err := v.Update(ctx, id, form); err != nil {
			return err
		}
		if revokesAdmin(form) {
			h.resp.revokeSessions(ctx, id)
		}
		return nil
	})
}

// Delete はconfirm=trueが指定された場合のみユーザーを削除する。
// DELETE /api/users/{id}?confirm=true
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	session, ok := h.resp.session(w, r)
	if !ok {
		return
	}

	v := view.NewUsersView(h.api, session)
	defer v.Close()

	id := chi.URLParam(r, "id")
	err := v.Remove(r.Context(), id, confirmFromQuery(r))
	if err == nil {
		h.resp.revokeSessions(r.Context(), id)
	}
	reloadAfterFailure(r.Context(), err, v)
	h.resp.respond(w, r, session, err, http.StatusOK, v.Overview(view.PlanFilterAll))
}

func (h *UserHandler) write(w http.ResponseWriter, r *http.Request, statusCode int, op func(context.Context, *view.UsersView, model.UserForm) error) {
	session, ok := h.resp.session(w, r)
	if !ok {
		return
	}
	var form model.UserForm
	if err := decodeJSON(w, r, &form); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError())
		return
	}

	v := view.NewUsersView(h.api, session)
	defer v.Close()

	err := op(r.Context(), v, form)
	reloadAfterFailure(r.Context(), err, v)
	h.resp.respond(w, r, session, err, statusCode, v.Overview(view.PlanFilterAll))
}

// confirmFromQuery はconfirm=trueのときだけ削除を承認するConfirmerを返す。
func confirmFromQuery(r *http.Request) view.Confirmer {
	confirmed := r.URL.Query().Get("confirm") == "true"
	return view.ConfirmFunc(func(context.Context, string) bool {
		return confirmed
	})
}
