package view

import (
	"fmt"

	"github.com/hitoshi/adminpanel/internal/apiclient"
	"github.com/hitoshi/adminpanel/internal/model"
)

// usersPath は外部APIのユーザーコレクション。管理者もこのコレクションに含まれる。
const usersPath = "users"

// PlanFilter はユーザー一覧のプラン絞り込み。
type PlanFilter string

const (
	PlanFilterAll     PlanFilter = "all"
	PlanFilterFree    PlanFilter = "free"
	PlanFilterPro     PlanFilter = "pro"
	PlanFilterPremium PlanFilter = "premium"
)

// ParsePlanFilter はクエリパラメータからプラン絞り込みを解析する。空文字列はallとして扱う。
func ParsePlanFilter(s string) (PlanFilter, error) {
	switch PlanFilter(s) {
	case "", PlanFilterAll:
		return PlanFilterAll, nil
	case PlanFilterFree, PlanFilterPro, PlanFilterPremium:
		return PlanFilter(s), nil
	default:
		return "", fmt.Errorf("unknown plan filter: %q", s)
	}
}

// planOf は絞り込みに対応するプラン名を返す。
func (f PlanFilter) planOf() string {
	switch f {
	case PlanFilterFree:
		return model.PlanFree
	case PlanFilterPro:
		return model.PlanPro
	case PlanFilterPremium:
		return model.PlanPremium
	default:
		return ""
	}
}

// PlanCounts はプラン別のユーザー数。
type PlanCounts struct {
	Free    int `json:"free"`
	Pro     int `json:"pro"`
	Premium int `json:"premium"`
}

// CountPlans はプラン別のユーザー数を数える。プラン未設定のユーザーはどこにも数えない。
func CountPlans(users []model.User) PlanCounts {
	var c PlanCounts
	for _, u := range users {
		switch u.Plan {
		case model.PlanFree:
			c.Free++
		case model.PlanPro:
			c.Pro++
		case model.PlanPremium:
			c.Premium++
		}
	}
	return c
}

// FilterByPlan はプランで一覧を絞り込む。allの場合はそのまま返す。
func FilterByPlan(users []model.User, f PlanFilter) []model.User {
	plan := f.planOf()
	if plan == "" {
		return users
	}
	out := make([]model.User, 0, len(users))
	for _, u := range users {
		if u.Plan == plan {
			out = append(out, u)
		}
	}
	return out
}

// newUserForm はユーザー作成フォームの初期値を返す。
func newUserForm() model.UserForm {
	return model.UserForm{Plan: model.PlanFree, Segment: model.DefaultSegment}
}

// UsersView はユーザー一覧ページの状態。
type UsersView struct {
	*CollectionView[model.User, model.UserForm]
}

// NewUsersView はUsersViewを生成する。
func NewUsersView(api apiclient.Requester, auth apiclient.Auth) *UsersView {
	return &UsersView{
		CollectionView: newCollectionView[model.User](api, auth, collectionConfig[model.UserForm]{
			path:          usersPath,
			newForm:       newUserForm,
			redact:        model.UserForm.Redacted,
			removeMessage: "Tem certeza que deseja excluir este usuário?",
		}),
	}
}

// UsersOverview はユーザー一覧ページのレスポンス。
type UsersOverview struct {
	Snapshot[model.User, model.UserForm]
	Filter  PlanFilter   `json:"filter"`
	Counts  PlanCounts   `json:"counts"`
	Total   int          `json:"total"`
	Visible []model.User `json:"visible"`
}

// Overview は絞り込みとプラン別件数を含む状態を返す。
func (v *UsersView) Overview(f PlanFilter) UsersOverview {
	snap := v.Snapshot()
	return UsersOverview{
		Snapshot: snap,
		Filter:   f,
		Counts:   CountPlans(snap.Items),
		Total:    len(snap.Items),
		Visible:  FilterByPlan(snap.Items, f),
	}
}
