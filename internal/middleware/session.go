// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/hitoshi/adminpanel/internal/auth"
	"github.com/hitoshi/adminpanel/internal/metrics"
	"github.com/hitoshi/adminpanel/internal/model"
)

// SessionCookieName はセッションIDを保持するHTTP Only Cookieの名前。
const SessionCookieName = "admin_session"

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

var (
	userIDContextKey       = contextKey("user_id")
	sessionContextKey      = contextKey("session")
	userIDHolderContextKey = contextKey("user_id_holder")
)

// userIDHolder は内側のミドルウェアで判明したユーザーIDをロギングミドルウェアに渡す。
type userIDHolder struct {
	userID string
}

func contextWithUserIDHolder(ctx context.Context, h *userIDHolder) context.Context {
	return context.WithValue(ctx, userIDHolderContextKey, h)
}

// SessionFinder はセッションの検索に必要なインターフェース。
// repository.SessionRepositoryの部分集合として定義する。
type SessionFinder interface {
	FindByID(ctx context.Context, id string) (*model.Session, error)
}

// lookupSession はCookieのセッションIDから有効なセッションを取得する。
// Cookieがない、期限切れ、トークンが空の場合はnilを返す。
func lookupSession(r *http.Request, finder SessionFinder) *model.Session {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil || cookie.Value == "" {
		return nil
	}
	session, err := finder.FindByID(r.Context(), cookie.Value)
	if err != nil {
		slog.Error("failed to find session",
			slog.String("error", err.Error()),
		)
		return nil
	}
	if session == nil || session.Token == "" {
		return nil
	}
	return session
}

// NewSessionMiddleware はJSON APIのセッション検証ミドルウェアを返す。
// 有効なセッションがない場合は401とUNAUTHORIZEDを返す。
// 認証済みのセッションとユーザーIDをリクエストコンテキストに注入する。
func NewSessionMiddleware(finder SessionFinder) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session := lookupSession(r, finder)
			if session == nil {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
				return
			}
			next.ServeHTTP(w, r.WithContext(ContextWithSession(r.Context(), session)))
		})
	}
}

// NewPageGuardMiddleware は画面ルートのガードミドルウェアを返す。
// 判定が確定するまでページは描画せず、未認証は/loginへ、
// 認証済みでログインページを開いた場合は/usersへリダイレクトする。
func NewPageGuardMiddleware(finder SessionFinder, mc metrics.MetricsCollector) func(next http.Handler) http.Handler {
	if mc == nil {
		mc = metrics.Nop{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session := lookupSession(r, finder)
			decision := auth.EvaluateGuard(r.URL.Path, session != nil)
			if !decision.Render() {
				mc.RecordGuardRedirect(decision.Redirect)
				http.Redirect(w, r, decision.Redirect, http.StatusSeeOther)
				return
			}

			ctx := r.Context()
			if session != nil {
				ctx = ContextWithSession(ctx, session)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ContextWithSession はコンテキストにセッションとユーザーIDを注入する。
func ContextWithSession(ctx context.Context, session *model.Session) context.Context {
	if h, ok := ctx.Value(userIDHolderContextKey).(*userIDHolder); ok {
		h.userID = session.UserID
	}
	ctx = context.WithValue(ctx, sessionContextKey, session)
	return context.WithValue(ctx, userIDContextKey, session.UserID)
}

// SessionFromContext はリクエストコンテキストからセッションを取得する。
// セッションミドルウェアを通過したリクエストでのみ有効。
func SessionFromContext(ctx context.Context) (*model.Session, error) {
	session, ok := ctx.Value(sessionContextKey).(*model.Session)
	if !ok || session == nil {
		return nil, fmt.Errorf("session not found in context")
	}
	return session, nil
}

// UserIDFromContext はリクエストコンテキストからユーザーIDを取得する。
func UserIDFromContext(ctx context.Context) (string, error) {
	userID, ok := ctx.Value(userIDContextKey).(string)
	if !ok || userID == "" {
		return "", fmt.Errorf("user ID not found in context")
	}
	return userID, nil
}

// ContextWithUserID はコンテキストにユーザーIDを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDContextKey, userID)
}
