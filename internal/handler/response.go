package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/hitoshi/adminpanel/internal/apiclient"
	"github.com/hitoshi/adminpanel/internal/auth"
	"github.com/hitoshi/adminpanel/internal/middleware"
	"github.com/hitoshi/adminpanel/internal/model"
	"github.com/hitoshi/adminpanel/internal/view"
)

// maxRequestBodySize はJSONリクエストボディの上限（1MB）。
const maxRequestBodySize = 1 << 20

type pageContextKey struct{}

// markPage は画面ルートであることをコンテキストに記録するミドルウェア。
// セッション失効時の応答（リダイレクトか401か）の切り替えに使う。
func markPage(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), pageContextKey{}, true)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func isPageRequest(r *http.Request) bool {
	page, _ := r.Context().Value(pageContextKey{}).(bool)
	return page
}

// writeJSON はボディをJSONとして書き込む。
func writeJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to encode response", slog.String("error", err.Error()))
	}
}

// writeAPIErrorResponse は統一エラーフォーマットでエラーを返す。
func writeAPIErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	middleware.WriteErrorResponse(w, statusCode, apiErr)
}

// decodeJSON はリクエストボディをvにデコードする。
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	body := http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	dec := json.NewDecoder(body)
	if err := dec.Decode(v); err != nil {
		return err
	}
	// 末尾に余計な値が続くボディは拒否する
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return errors.New("unexpected data after JSON body")
	}
	return nil
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeInvalidRequest, model.ErrCodeConfirmationRequired, model.ErrCodeInvalidFilter:
		return http.StatusBadRequest
	case model.ErrCodeValidationFailed, model.ErrCodeEmptyReply:
		return http.StatusUnprocessableEntity
	case model.ErrCodeInvalidCredentials, model.ErrCodeUnauthorized, model.ErrCodeSessionExpired:
		return http.StatusUnauthorized
	case model.ErrCodeAccessDenied, model.ErrCodeCSRFInvalid:
		return http.StatusForbidden
	case model.ErrCodeRecordNotFound:
		return http.StatusNotFound
	case model.ErrCodeRateLimitExceeded:
		return http.StatusTooManyRequests
	case model.ErrCodeUpstreamError:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// SessionTerminator は外部APIがトークンを拒否したとき、またはユーザーが削除・降格されたときにセッションを破棄する。
type SessionTerminator interface {
	Logout(ctx context.Context, sessionID string) error
	RevokeUserSessions(ctx context.Context, userID string) error
}

// responder はビュー・ダッシュボードの結果をHTTPレスポンスに変換する。
// 外部APIの401はセッション失効として扱い、セッションとCookieを破棄する。
type responder struct {
	sessions SessionTerminator
	cookies  AuthHandlerConfig
}

func newResponder(sessions SessionTerminator, cookies AuthHandlerConfig) *responder {
	return &responder{sessions: sessions, cookies: cookies}
}

// session はコンテキストからセッションを取り出す。存在しない場合は401を書き込みfalseを返す。
func (rs *responder) session(w http.ResponseWriter, r *http.Request) (*model.Session, bool) {
	session, err := middleware.SessionFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return nil, false
	}
	return session, true
}

// respond はerrがnilならstatusCodeでbodyを返し、そうでなければfailに委ねる。
func (rs *responder) respond(w http.ResponseWriter, r *http.Request, session *model.Session, err error, statusCode int, body any) {
	if err == nil {
		writeJSON(w, statusCode, body)
		return
	}
	rs.fail(w, r, session, err, body)
}

// fail はエラーを分類して応答する。
// snapshotがnil以外なら、エラー内容を含むビューの状態をボディとして返す。
func (rs *responder) fail(w http.ResponseWriter, r *http.Request, session *model.Session, err error, snapshot any) {
	if errors.Is(err, apiclient.ErrUnauthorized) {
		rs.expire(w, r, session)
		return
	}
	if errors.Is(err, view.ErrNotConfirmed) {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewConfirmationRequiredError())
		return
	}
	var cfgErr *apiclient.ConfigurationError
	if errors.As(err, &cfgErr) {
		writeAPIErrorResponse(w, http.StatusInternalServerError, model.NewConfigurationError())
		return
	}

	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		statusCode := mapAPIErrorToHTTPStatus(apiErr)
		if snapshot != nil {
			writeJSON(w, statusCode, snapshot)
			return
		}
		writeAPIErrorResponse(w, statusCode, apiErr)
		return
	}

	// 外部APIが入力を拒否した場合は422、それ以外（5xx・通信失敗）は502
	statusCode := http.StatusBadGateway
	var reqErr *apiclient.RequestError
	if errors.As(err, &reqErr) && reqErr.StatusCode < 500 {
		statusCode = http.StatusUnprocessableEntity
	}
	slog.Warn("upstream request failed",
		slog.String("path", r.URL.Path),
		slog.Int("status", statusCode),
		slog.String("error", err.Error()),
	)
	if snapshot != nil {
		writeJSON(w, statusCode, snapshot)
		return
	}
	writeAPIErrorResponse(w, statusCode, model.NewUpstreamError(view.ErrorMessage(err)))
}

// revokeSessions は削除または管理者権限を外されたユーザーのセッションを破棄する。
// 破棄の失敗は書き込み自体の成否に影響させず、ログのみ残す。
func (rs *responder) revokeSessions(ctx context.Context, userID string) {
	if rs.sessions == nil || userID == "" {
		return
	}
	if err := rs.sessions.RevokeUserSessions(ctx, userID); err != nil {
		slog.Error("failed to revoke user sessions",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
	}
}

// revokesAdmin はフォームのロールが管理者権限を持たない値に変更されるかを判定する。
// ロールを送らない更新は権限を変えない。
func revokesAdmin(form model.UserForm) bool {
	return form.Role != "" && !model.IsAdmin(form.Role)
}

// listReloader は書き込み失敗後に一覧を読み直せるビュー。
type listReloader interface {
	Reload(ctx context.Context) error
}

// reloadAfterFailure は書き込みが失敗した場合に一覧を読み直し、応答の一覧が空にならないようにする。
// セッション失効・削除未確認・設定不備は一覧を返さないため読み直さない。
func reloadAfterFailure(ctx context.Context, err error, v listReloader) {
	if err == nil || errors.Is(err, apiclient.ErrUnauthorized) || errors.Is(err, view.ErrNotConfirmed) {
		return
	}
	var cfgErr *apiclient.ConfigurationError
	if errors.As(err, &cfgErr) {
		return
	}
	if rerr := v.Reload(ctx); rerr != nil && !errors.Is(rerr, view.ErrStale) {
		slog.Warn("failed to reload list after write failure", slog.String("error", rerr.Error()))
	}
}

// expire はセッションを破棄してCookieを削除する。
// 画面ルートはログインページへ、JSON APIは401とSESSION_EXPIREDを返す。
func (rs *responder) expire(w http.ResponseWriter, r *http.Request, session *model.Session) {
	if session != nil && rs.sessions != nil {
		if err := rs.sessions.Logout(r.Context(), session.ID); err != nil {
			slog.Error("failed to delete expired session", slog.String("error", err.Error()))
		}
		slog.Info("session expired by upstream", slog.String("user_id", session.UserID))
	}
	clearSessionCookie(w, rs.cookies)

	if isPageRequest(r) {
		http.Redirect(w, r, auth.LoginPath, http.StatusSeeOther)
		return
	}
	writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewSessionExpiredError())
}
