// Package view は管理画面の各ページが表示する一覧とフォームの状態を管理する。
// 一覧の読み込み、作成・更新・削除と、その後の再読み込みを一箇所にまとめる。
package view

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/hitoshi/adminpanel/internal/apiclient"
	"github.com/hitoshi/adminpanel/internal/model"
)

var (
	// ErrNotConfirmed は削除確認が拒否されたことを示す。リクエストは送信されない。
	ErrNotConfirmed = errors.New("view: removal not confirmed")
	// ErrStale は結果が届く前にビューが閉じられたか、より新しい読み込みが始まったことを示す。
	ErrStale = errors.New("view: result discarded")
)

// FormStatus はフォーム送信の結果。
type FormStatus string

const (
	FormIdle    FormStatus = ""
	FormSuccess FormStatus = "success"
	FormError   FormStatus = "error"
)

// Confirmer は削除などの破壊的操作の前に確認を求める。
type Confirmer interface {
	Confirm(ctx context.Context, message string) bool
}

// ConfirmFunc は関数をConfirmerとして扱うための型。
type ConfirmFunc func(ctx context.Context, message string) bool

// Confirm はConfirmerインターフェースを実装する。
func (f ConfirmFunc) Confirm(ctx context.Context, message string) bool {
	return f(ctx, message)
}

// Snapshot はビューのある時点の状態。JSONとしてそのままブラウザに返す。
type Snapshot[T, F any] struct {
	Items      []T        `json:"items"`
	Loading    bool       `json:"loading"`
	Error      string     `json:"error,omitempty"`
	Form       F          `json:"form"`
	FormStatus FormStatus `json:"form_status,omitempty"`
	FormError  string     `json:"form_error,omitempty"`
	Editing    string     `json:"editing,omitempty"`
}

// collectionConfig はCollectionViewの振る舞いを決める設定。
type collectionConfig[F any] struct {
	path          string
	newForm       func() F
	redact        func(F) F
	removeMessage string
}

// CollectionView は外部APIの1コレクションに対する一覧とフォームの状態を保持する。
// 読み込みごとに世代を進め、古い世代や閉じた後に届いた結果は破棄する。
type CollectionView[T, F any] struct {
	api      apiclient.Requester
	auth     apiclient.Auth
	validate *validator.Validate
	cfg      collectionConfig[F]

	mu         sync.Mutex
	gen        uint64
	closed     bool
	items      []T
	loading    bool
	err        string
	form       F
	formStatus FormStatus
	formErr    string
	editing    string
}

func newCollectionView[T, F any](api apiclient.Requester, auth apiclient.Auth, cfg collectionConfig[F]) *CollectionView[T, F] {
	if cfg.newForm == nil {
		cfg.newForm = func() F {
			var f F
			return f
		}
	}
	if cfg.redact == nil {
		cfg.redact = func(f F) F { return f }
	}
	return &CollectionView[T, F]{
		api:      api,
		auth:     auth,
		validate: newValidator(),
		cfg:      cfg,
		items:    []T{},
		form:     cfg.newForm(),
	}
}

// Load はコレクションを取得して一覧を置き換える。
// 失敗時は一覧を空にしてエラーメッセージを保持する。読み込み中フラグは必ず解除する。
func (v *CollectionView[T, F]) Load(ctx context.Context) error {
	return v.load(ctx, false)
}

// Reload は書き込みの失敗後に一覧を読み直す。
// 失敗した書き込みのエラーメッセージは上書きせず、読み直しに失敗した場合は一覧もそのまま残す。
func (v *CollectionView[T, F]) Reload(ctx context.Context) error {
	return v.load(ctx, true)
}

func (v *CollectionView[T, F]) load(ctx context.Context, keepErr bool) error {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return ErrStale
	}
	v.gen++
	gen := v.gen
	v.loading = true
	v.mu.Unlock()

	items, err := apiclient.Fetch[[]T](ctx, v.api, v.auth, http.MethodGet, v.cfg.path, nil)

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed || gen != v.gen {
		return ErrStale
	}
	v.loading = false
	if err != nil {
		if keepErr {
			return err
		}
		v.items = []T{}
		v.err = ErrorMessage(err)
		return err
	}
	if items == nil {
		items = []T{}
	}
	v.items = items
	if !keepErr {
		v.err = ""
	}
	return nil
}

// Create はフォームを検証してPOSTする。
// 成功時はフォームを初期化して再読み込みし、失敗時はフォームを保持してエラーを記録する。
func (v *CollectionView[T, F]) Create(ctx context.Context, form F) error {
	return v.submit(ctx, http.MethodPost, v.cfg.path, form)
}

// Update はフォームを検証して指定IDのレコードをPUTする。成功時は編集モードを抜ける。
func (v *CollectionView[T, F]) Update(ctx context.Context, id string, form F) error {
	if id == "" {
		return model.NewRecordNotFoundError(id)
	}
	return v.submit(ctx, http.MethodPut, v.recordPath(id), form)
}

// Remove は確認が得られた場合のみ指定IDのレコードを削除する。
// 確認が拒否された場合はリクエストを送らずErrNotConfirmedを返す。
// 失敗時は一覧を変更せずエラーを記録する。
func (v *CollectionView[T, F]) Remove(ctx context.Context, id string, c Confirmer) error {
	if c == nil || !c.Confirm(ctx, v.cfg.removeMessage) {
		return ErrNotConfirmed
	}

	if _, err := v.api.Do(ctx, v.auth, http.MethodDelete, v.recordPath(id), nil); err != nil {
		v.mu.Lock()
		if !v.closed {
			v.err = ErrorMessage(err)
		}
		v.mu.Unlock()
		return err
	}

	v.reloadAfterWrite(ctx)
	return nil
}

// Snapshot は現在の状態のコピーを返す。
func (v *CollectionView[T, F]) Snapshot() Snapshot[T, F] {
	v.mu.Lock()
	defer v.mu.Unlock()
	return Snapshot[T, F]{
		Items:      slices.Clone(v.items),
		Loading:    v.loading,
		Error:      v.err,
		Form:       v.cfg.redact(v.form),
		FormStatus: v.formStatus,
		FormError:  v.formErr,
		Editing:    v.editing,
	}
}

// Items は読み込み済みの一覧のコピーを返す。
func (v *CollectionView[T, F]) Items() []T {
	v.mu.Lock()
	defer v.mu.Unlock()
	return slices.Clone(v.items)
}

// Close はビューを閉じる。以降に届いた結果はすべて破棄される。
func (v *CollectionView[T, F]) Close() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.closed = true
	v.loading = false
}

func (v *CollectionView[T, F]) submit(ctx context.Context, method, path string, form F) error {
	if err := v.validate.Struct(form); err != nil {
		apiErr := validationError(err)
		v.failForm(form, apiErr.Message)
		return apiErr
	}

	if _, err := v.api.Do(ctx, v.auth, method, path, form); err != nil {
		v.failForm(form, ErrorMessage(err))
		return err
	}

	v.mu.Lock()
	if !v.closed {
		v.form = v.cfg.newForm()
		v.formStatus = FormSuccess
		v.formErr = ""
		v.editing = ""
	}
	v.mu.Unlock()

	v.reloadAfterWrite(ctx)
	return nil
}

// failForm は送信失敗を記録する。フォームの内容はパスワードを除いて保持する。
func (v *CollectionView[T, F]) failForm(form F, msg string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return
	}
	v.form = v.cfg.redact(form)
	v.formStatus = FormError
	v.formErr = msg
}

// reloadAfterWrite は書き込み成功後に一覧を読み直す。
// 読み込みの失敗はスナップショットのエラーとして残り、書き込み自体は成功扱いとする。
func (v *CollectionView[T, F]) reloadAfterWrite(ctx context.Context) {
	_ = v.Load(ctx)
}

func (v *CollectionView[T, F]) beginEdit(id string, form F) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.editing = id
	v.form = form
	v.formStatus = FormIdle
	v.formErr = ""
}

// CancelEdit は編集モードを抜けてフォームを初期化する。
func (v *CollectionView[T, F]) CancelEdit() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.editing = ""
	v.form = v.cfg.newForm()
	v.formStatus = FormIdle
	v.formErr = ""
}

func (v *CollectionView[T, F]) recordPath(id string) string {
	return fmt.Sprintf("%s/%s", v.cfg.path, url.PathEscape(id))
}

// ErrorMessage はエラーから画面に表示するメッセージを取り出す。
func ErrorMessage(err error) string {
	var reqErr *apiclient.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.Message
	}
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return err.Error()
}
