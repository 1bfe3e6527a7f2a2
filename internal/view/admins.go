package view

import (
	"github.com/hitoshi/adminpanel/internal/apiclient"
	"github.com/hitoshi/adminpanel/internal/model"
)

// newAdminForm は管理者フォームの初期値を返す。
func newAdminForm() model.UserForm {
	return model.UserForm{Role: model.RoleUser}
}

// AdminsView は管理者管理ページの状態。
// ユーザーコレクション全体を読み込み、管理者ロールのみを表示する。
type AdminsView struct {
	*CollectionView[model.User, model.UserForm]
}

// NewAdminsView はAdminsViewを生成する。
func NewAdminsView(api apiclient.Requester, auth apiclient.Auth) *AdminsView {
	return &AdminsView{
		CollectionView: newCollectionView[model.User](api, auth, collectionConfig[model.UserForm]{
			path:          usersPath,
			newForm:       newAdminForm,
			redact:        model.UserForm.Redacted,
			removeMessage: "Tem certeza que deseja excluir este administrador?",
		}),
	}
}

// FilterAdmins は管理者ロール（admin, superadmin）のユーザーのみを返す。
func FilterAdmins(users []model.User) []model.User {
	out := make([]model.User, 0, len(users))
	for _, u := range users {
		if model.IsAdmin(u.Role) {
			out = append(out, u)
		}
	}
	return out
}

// Admins は読み込み済みの管理者一覧を返す。
func (v *AdminsView) Admins() []model.User {
	return FilterAdmins(v.Items())
}

// BeginEdit は指定IDの管理者でフォームを埋めて編集モードに入る。パスワードは空にする。
func (v *AdminsView) BeginEdit(id string) error {
	for _, u := range v.Admins() {
		if u.ID.String() != id {
			continue
		}
		role := u.Role
		if role == "" {
			role = model.RoleUser
		}
		v.beginEdit(id, model.UserForm{
			Name:     u.Name,
			Email:    u.Email,
			Username: u.Username,
			Phone:    u.Phone,
			Address:  u.Address,
			Role:     role,
		})
		return nil
	}
	return model.NewRecordNotFoundError(id)
}

// Overview は一覧を管理者のみに絞り込んだ状態を返す。
func (v *AdminsView) Overview() Snapshot[model.User, model.UserForm] {
	snap := v.Snapshot()
	snap.Items = FilterAdmins(snap.Items)
	return snap
}
