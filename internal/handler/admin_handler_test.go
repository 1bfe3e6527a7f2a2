package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hitoshi/adminpanel/internal/model"
	"github.com/hitoshi/adminpanel/internal/view"
)

type adminSnapshot = view.Snapshot[model.User, model.UserForm]

func newTestAdminHandler(api *mockAPI) *AdminHandler {
	return NewAdminHandler(api, newResponder(&mockAuthService{}, AuthHandlerConfig{}))
}

func TestAdminHandler_List_OnlyAdminRoles(t *testing.T) {
	h := newTestAdminHandler(usersAPI(t))

	w := serve(http.MethodGet, "/api/admins", h.List, httptest.NewRequest(http.MethodGet, "/api/admins", nil), false)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	var resp adminSnapshot
	decodeBody(t, w, &resp)
	if len(resp.Items) != 2 {
		t.Fatalf("items = %d, want 2", len(resp.Items))
	}
	for _, u := range resp.Items {
		if !model.IsAdmin(u.Role) {
			t.Errorf("non-admin %q in admin list", u.Name)
		}
	}
}

func TestAdminHandler_Edit_FillsFormWithoutPassword(t *testing.T) {
	h := newTestAdminHandler(usersAPI(t))

	w := serve(http.MethodGet, "/api/admins/{id}/edit", h.Edit, httptest.NewRequest(http.MethodGet, "/api/admins/3/edit", nil), false)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d (body=%s)", w.Code, http.StatusOK, w.Body.String())
	}
	var resp adminSnapshot
	decodeBody(t, w, &resp)
	if resp.Editing != "3" {
		t.Errorf("Editing = %q, want 3", resp.Editing)
	}
	if resp.Form.Name != "Cy" || resp.Form.Role != model.RoleSuperAdmin || resp.Form.Password != "" {
		t.Errorf("Form = %+v", resp.Form)
	}
}

func TestAdminHandler_Edit_UnknownOrNonAdmin(t *testing.T) {
	h := newTestAdminHandler(usersAPI(t))

	for _, id := range []string{"99", "2"} {
		w := serve(http.MethodGet, "/api/admins/{id}/edit", h.Edit, httptest.NewRequest(http.MethodGet, "/api/admins/"+id+"/edit", nil), false)
		if w.Code != http.StatusNotFound {
			t.Errorf("id %s: status = %d, want %d", id, w.Code, http.StatusNotFound)
		}
		if code := errorCode(t, w); code != model.ErrCodeRecordNotFound {
			t.Errorf("id %s: code = %q, want %q", id, code, model.ErrCodeRecordNotFound)
		}
	}
}

func TestAdminHandler_CreateUpdateDelete(t *testing.T) {
	api := usersAPI(t)
	h := newTestAdminHandler(api)

	body := `{"name":"Fe","email":"fe@x.com","username":"fe","password":"pw","role":"admin"}`
	w := serve(http.MethodPost, "/api/admins", h.Create, httptest.NewRequest(http.MethodPost, "/api/admins", strings.NewReader(body)), false)
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d (body=%s)", w.Code, w.Body.String())
	}
	if posts := api.callsOf(http.MethodPost); len(posts) != 1 || posts[0].path != "users" {
		t.Errorf("POST calls = %+v", posts)
	}

	body = `{"name":"Ana","email":"ana@x.com","username":"ana","role":"superadmin"}`
	w = serve(http.MethodPut, "/api/admins/{id}", h.Update, httptest.NewRequest(http.MethodPut, "/api/admins/1", strings.NewReader(body)), false)
	if w.Code != http.StatusOK {
		t.Fatalf("update status = %d (body=%s)", w.Code, w.Body.String())
	}
	if puts := api.callsOf(http.MethodPut); len(puts) != 1 || puts[0].path != "users/1" {
		t.Errorf("PUT calls = %+v", puts)
	}

	w = serve(http.MethodDelete, "/api/admins/{id}", h.Delete, httptest.NewRequest(http.MethodDelete, "/api/admins/1?confirm=true", nil), false)
	if w.Code != http.StatusOK {
		t.Fatalf("delete status = %d", w.Code)
	}
	if deletes := api.callsOf(http.MethodDelete); len(deletes) != 1 || deletes[0].path != "users/1" {
		t.Errorf("DELETE calls = %+v", deletes)
	}
}

func TestAdminHandler_Create_InvalidRole(t *testing.T) {
	api := usersAPI(t)
	h := newTestAdminHandler(api)

	body := `{"name":"Fe","email":"fe@x.com","username":"fe","role":"owner"}`
	w := serve(http.MethodPost, "/api/admins", h.Create, httptest.NewRequest(http.MethodPost, "/api/admins", strings.NewReader(body)), false)

	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnprocessableEntity)
	}
	if len(api.callsOf(http.MethodPost)) != 0 {
		t.Error("invalid role must not be sent upstream")
	}
}

func TestAdminHandler_FailedDeleteKeepsAdminList(t *testing.T) {
	api := rejectingUsersAPI(t, http.MethodDelete)
	auth := &mockAuthService{}
	h := NewAdminHandler(api, newResponder(auth, AuthHandlerConfig{}))

	w := serve(http.MethodDelete, "/api/admins/{id}", h.Delete, httptest.NewRequest(http.MethodDelete, "/api/admins/1?confirm=true", nil), false)

	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusUnprocessableEntity)
	}
	var resp adminSnapshot
	decodeBody(t, w, &resp)
	if len(resp.Items) != 2 {
		t.Errorf("items = %d, want the 2 existing admins kept", len(resp.Items))
	}
	if resp.Error != "user has open invoices" {
		t.Errorf("Error = %q", resp.Error)
	}
	if len(auth.revokedUsers()) != 0 {
		t.Error("sessions must not be revoked when the delete fails")
	}
}

func TestAdminHandler_DeleteAndDemotionRevokeSessions(t *testing.T) {
	auth := &mockAuthService{}
	h := NewAdminHandler(usersAPI(t), newResponder(auth, AuthHandlerConfig{}))

	body := `{"name":"Cy","email":"cy@x.com","username":"cy","role":"user"}`
	w := serve(http.MethodPut, "/api/admins/{id}", h.Update, httptest.NewRequest(http.MethodPut, "/api/admins/3", strings.NewReader(body)), false)
	if w.Code != http.StatusOK {
		t.Fatalf("update status = %d (body=%s)", w.Code, w.Body.String())
	}

	w = serve(http.MethodDelete, "/api/admins/{id}", h.Delete, httptest.NewRequest(http.MethodDelete, "/api/admins/1?confirm=true", nil), false)
	if w.Code != http.StatusOK {
		t.Fatalf("delete status = %d", w.Code)
	}

	got := auth.revokedUsers()
	if len(got) != 2 || got[0] != "3" || got[1] != "1" {
		t.Errorf("revoked = %v, want [3 1]", got)
	}
}
