package apiclient

import (
	"errors"
	"net/http"
)

// ErrUnauthorized は外部APIがトークンを拒否した（401）ことを示す。
// errors.Is(err, ErrUnauthorized) で判定する。
var ErrUnauthorized = errors.New("apiclient: unauthorized")

// ConfigurationError はAPIのベースURLを解決できなかったことを表す。
// すべてのリクエストに対して致命的なエラー。
type ConfigurationError struct{}

// Error はerrorインターフェースを実装する。
func (e *ConfigurationError) Error() string {
	return "API base URL is not configured (API_BASE_URL)"
}

// RequestError は外部APIが2xx以外のステータスを返したことを表す。
// Messageにはレスポンスボディから抽出した人が読めるメッセージが入る。
type RequestError struct {
	StatusCode int
	Message    string
}

// Error はerrorインターフェースを実装する。
func (e *RequestError) Error() string {
	return e.Message
}

// Is は401応答をErrUnauthorizedとして扱う。
func (e *RequestError) Is(target error) bool {
	return target == ErrUnauthorized && e.StatusCode == http.StatusUnauthorized
}
