// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/hitoshi/adminpanel/internal/auth"
	"github.com/hitoshi/adminpanel/internal/middleware"
	"github.com/hitoshi/adminpanel/internal/model"
)

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	Login(ctx context.Context, identifier, password string) (*model.Session, error)
	Logout(ctx context.Context, sessionID string) error
	CurrentSession(ctx context.Context, sessionID string) (*model.Session, error)
	RevokeUserSessions(ctx context.Context, userID string) error
}

// AuthHandlerConfig は認証ハンドラーの設定。
type AuthHandlerConfig struct {
	CookieDomain  string
	CookieSecure  bool
	SessionMaxAge int // セッションCookieの有効期間（秒）
}

// AuthHandler はログイン・ログアウト関連のHTTPハンドラー。
type AuthHandler struct {
	service AuthServiceInterface
	config  AuthHandlerConfig
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface, config AuthHandlerConfig) *AuthHandler {
	return &AuthHandler{
		service: service,
		config:  config,
	}
}

// loginRequest はログインフォーム。identifierの代わりにusernameまたはemailも受け付ける。
type loginRequest struct {
	Identifier string `json:"identifier"`
	Username   string `json:"username"`
	Email      string `json:"email"`
	Password   string `json:"password"`
}

func (req loginRequest) identifier() string {
	for _, v := range []string{req.Identifier, req.Username, req.Email} {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}

// sessionResponse はログイン中のセッション情報。トークンは含めない。
type sessionResponse struct {
	UserID    string    `json:"user_id"`
	Role      string    `json:"role"`
	ExpiresAt time.Time `json:"expires_at"`
	Redirect  string    `json:"redirect,omitempty"`
}

// guardResponse はガード判定の結果。ログアウト後の遷移先をフロントエンドに伝える。
type guardResponse struct {
	State    string `json:"state"`
	Redirect string `json:"redirect,omitempty"`
}

// Login は管理者ログインを処理し、成功時にセッションCookieを発行する。
// POST /auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError())
		return
	}

	session, err := h.service.Login(r.Context(), req.identifier(), req.Password)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	setSessionCookie(w, h.config, session.ID)
	writeJSON(w, http.StatusOK, sessionResponse{
		UserID:    session.UserID,
		Role:      session.Role,
		ExpiresAt: session.ExpiresAt,
		Redirect:  auth.HomePath,
	})
}

// Logout はセッションを破棄する。セッションの削除に失敗してもCookieはクリアする。
// POST /auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(middleware.SessionCookieName)
	if err == nil && cookie.Value != "" {
		if logoutErr := h.service.Logout(r.Context(), cookie.Value); logoutErr != nil {
			slog.Error("failed to logout", slog.String("error", logoutErr.Error()))
		}
	}

	clearSessionCookie(w, h.config)

	decision := auth.LogoutDecision()
	writeJSON(w, http.StatusOK, guardResponse{
		State:    decision.State.String(),
		Redirect: decision.Redirect,
	})
}

// Me は現在のログインセッションの情報を返す。
// GET /auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(middleware.SessionCookieName)
	if err != nil || cookie.Value == "" {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	session, err := h.service.CurrentSession(r.Context(), cookie.Value)
	if err != nil {
		slog.Error("failed to get current session", slog.String("error", err.Error()))
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}
	if session == nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	writeJSON(w, http.StatusOK, sessionResponse{
		UserID:    session.UserID,
		Role:      session.Role,
		ExpiresAt: session.ExpiresAt,
	})
}

// LoginPage はログインページのビューモデルを返す。
// ページガードを通過した時点で未認証であることが確定している。
// GET /login
func (h *AuthHandler) LoginPage(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"page":  "login",
		"state": auth.GuardUnauthenticated.String(),
	})
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
func handleServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		writeAPIErrorResponse(w, mapAPIErrorToHTTPStatus(apiErr), apiErr)
		return
	}

	// APIError以外のエラーは内部サーバーエラーとして扱う
	slog.Error("internal server error", slog.String("error", err.Error()))
	middleware.WriteInternalServerError(w)
}

func setSessionCookie(w http.ResponseWriter, config AuthHandlerConfig, sessionID string) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    sessionID,
		Path:     "/",
		Domain:   config.CookieDomain,
		MaxAge:   config.SessionMaxAge,
		HttpOnly: true,
		Secure:   config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func clearSessionCookie(w http.ResponseWriter, config AuthHandlerConfig) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		Domain:   config.CookieDomain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}
