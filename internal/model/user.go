package model

import "time"

// ロール
const (
	RoleUser       = "user"
	RoleAdmin      = "admin"
	RoleSuperAdmin = "superadmin"
)

// プラン区分
const (
	PlanFree    = "Free"
	PlanPro     = "Pro"
	PlanPremium = "Premium"
)

// DefaultSegment は新規ユーザー作成フォームのセグメント初期値。
const DefaultSegment = "Autônomo"

// User は外部APIが管理するユーザー（管理者を含む）レコードを表す。
// passwordは書き込み専用のため読み取りモデルには含めない。
type User struct {
	ID       ID     `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Username string `json:"username,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Address  string `json:"address,omitempty"`
	Role     string `json:"role,omitempty"`
	Plan     string `json:"plan,omitempty"`
	Source   string `json:"source,omitempty"`
	Segment  string `json:"segment,omitempty"`
	Churned  bool   `json:"churned,omitempty"`
}

// IsAdmin は管理画面にログインできるロールかどうかを判定する。
func IsAdmin(role string) bool {
	return role == RoleAdmin || role == RoleSuperAdmin
}

// UserForm はユーザー作成・更新時に外部APIへ送信するフォーム。
// passwordは送信のみで、レスポンスやビューには返さない。
type UserForm struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Username string `json:"username" validate:"required"`
	Password string `json:"password,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Address  string `json:"address,omitempty"`
	Role     string `json:"role,omitempty" validate:"omitempty,oneof=user admin superadmin"`
	Plan     string `json:"plan,omitempty" validate:"omitempty,oneof=Free Pro Premium"`
	Source   string `json:"source,omitempty"`
	Segment  string `json:"segment,omitempty"`
}

// Redacted はパスワードを除いたフォームを返す。
// 失敗時にフォームを画面へ戻す際に使用する。
func (f UserForm) Redacted() UserForm {
	f.Password = ""
	return f
}

// Session は管理者のログインセッションを表す。
// 外部APIのアクセストークンとユーザーIDを組で保持する。
type Session struct {
	ID        string
	Token     string
	UserID    string
	Role      string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// BearerToken はAPI呼び出し時に付与するトークンを返す。
func (s *Session) BearerToken() string {
	if s == nil {
		return ""
	}
	return s.Token
}
