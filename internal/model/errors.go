// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, upstream, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeInvalidRequest       = "INVALID_REQUEST"
	ErrCodeValidationFailed     = "VALIDATION_FAILED"
	ErrCodeInvalidCredentials   = "INVALID_CREDENTIALS"
	ErrCodeAccessDenied         = "ACCESS_DENIED"
	ErrCodeUnauthorized         = "UNAUTHORIZED"
	ErrCodeSessionExpired       = "SESSION_EXPIRED"
	ErrCodeUpstreamError        = "UPSTREAM_ERROR"
	ErrCodeConfigurationError   = "CONFIGURATION_ERROR"
	ErrCodeConfirmationRequired = "CONFIRMATION_REQUIRED"
	ErrCodeInvalidFilter        = "INVALID_FILTER"
	ErrCodeEmptyReply           = "EMPTY_REPLY"
	ErrCodeRecordNotFound       = "RECORD_NOT_FOUND"
	ErrCodeCSRFInvalid          = "CSRF_INVALID"
	ErrCodeRateLimitExceeded    = "RATE_LIMIT_EXCEEDED"
	ErrCodeInternal             = "INTERNAL_ERROR"
)

// NewInvalidRequestError はリクエストボディ解析失敗エラーを生成する。
func NewInvalidRequestError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  "リクエストボディの解析に失敗しました。",
		Category: "validation",
		Action:   "正しいJSON形式でリクエストしてください。",
	}
}

// NewValidationFailedError は入力値検証エラーを生成する。
func NewValidationFailedError(detail string) *APIError {
	return &APIError{
		Code:     ErrCodeValidationFailed,
		Message:  fmt.Sprintf("入力内容に誤りがあります: %s", detail),
		Category: "validation",
		Action:   "必須項目とメールアドレスの形式を確認してください。",
	}
}

// NewInvalidCredentialsError はログイン失敗エラーを生成する。
func NewInvalidCredentialsError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCredentials,
		Message:  "ユーザー名またはパスワードが正しくありません。",
		Category: "auth",
		Action:   "入力内容を確認して再度ログインしてください。",
	}
}

// NewAccessDeniedError は管理者以外のログインを拒否するエラーを生成する。
func NewAccessDeniedError() *APIError {
	return &APIError{
		Code:     ErrCodeAccessDenied,
		Message:  "アクセスが拒否されました。管理者のみログインできます。",
		Category: "auth",
		Action:   "管理者アカウントでログインしてください。",
	}
}

// NewUnauthorizedError は未認証エラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "認証が必要です。",
		Category: "auth",
		Action:   "ログインしてください。",
	}
}

// NewSessionExpiredError は外部APIがトークンを拒否した場合のエラーを生成する。
func NewSessionExpiredError() *APIError {
	return &APIError{
		Code:     ErrCodeSessionExpired,
		Message:  "セッションの有効期限が切れました。",
		Category: "auth",
		Action:   "再度ログインしてください。",
	}
}

// NewUpstreamError は外部APIのエラーメッセージをそのまま伝えるエラーを生成する。
func NewUpstreamError(message string) *APIError {
	return &APIError{
		Code:     ErrCodeUpstreamError,
		Message:  message,
		Category: "upstream",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewConfigurationError はAPIベースURL未設定エラーを生成する。
func NewConfigurationError() *APIError {
	return &APIError{
		Code:     ErrCodeConfigurationError,
		Message:  "APIのベースURLが設定されていません。",
		Category: "system",
		Action:   "API_BASE_URLを設定してください。",
	}
}

// NewConfirmationRequiredError は削除確認が行われていない場合のエラーを生成する。
func NewConfirmationRequiredError() *APIError {
	return &APIError{
		Code:     ErrCodeConfirmationRequired,
		Message:  "削除の確認が必要です。",
		Category: "validation",
		Action:   "confirm=true を指定して再度実行してください。",
	}
}

// NewInvalidFilterError は無効なフィルタエラーを生成する。
func NewInvalidFilterError(filter string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidFilter,
		Message:  fmt.Sprintf("無効なフィルタです: %s", filter),
		Category: "validation",
		Action:   "指定可能な値を確認してください。",
	}
}

// NewEmptyReplyError は空の返信を拒否するエラーを生成する。
func NewEmptyReplyError() *APIError {
	return &APIError{
		Code:     ErrCodeEmptyReply,
		Message:  "返信内容が空です。",
		Category: "validation",
		Action:   "返信内容を入力してください。",
	}
}

// NewRecordNotFoundError は読み込み済みの一覧にレコードが存在しない場合のエラーを生成する。
func NewRecordNotFoundError(id string) *APIError {
	return &APIError{
		Code:     ErrCodeRecordNotFound,
		Message:  fmt.Sprintf("指定されたレコードが見つかりません: %s", id),
		Category: "validation",
		Action:   "一覧を再読み込みしてください。",
	}
}

// NewCSRFInvalidError はCSRFトークン検証失敗エラーを生成する。
func NewCSRFInvalidError() *APIError {
	return &APIError{
		Code:     ErrCodeCSRFInvalid,
		Message:  "CSRFトークンの検証に失敗しました。",
		Category: "auth",
		Action:   "ページを再読み込みしてから再度お試しください。",
	}
}

// NewRateLimitExceededError はレート制限超過エラーを生成する。
func NewRateLimitExceededError() *APIError {
	return &APIError{
		Code:     ErrCodeRateLimitExceeded,
		Message:  "リクエストが多すぎます。",
		Category: "system",
		Action:   "Retry-Afterの秒数だけ待ってから再度お試しください。",
	}
}

// NewInternalError は内部エラーを生成する。詳細はログのみに記録する。
func NewInternalError() *APIError {
	return &APIError{
		Code:     ErrCodeInternal,
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}
