// Package auth は管理者ログイン、セッション管理、ページガードの判定を提供する。
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/hitoshi/adminpanel/internal/apiclient"
	"github.com/hitoshi/adminpanel/internal/metrics"
	"github.com/hitoshi/adminpanel/internal/model"
	"github.com/hitoshi/adminpanel/internal/repository"
)

// loginPath は外部APIのログインエンドポイント。
const loginPath = "auth/login"

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	SessionMaxAge int // セッション有効期間（秒）
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	api         apiclient.Requester
	sessionRepo repository.SessionRepository
	metrics     metrics.MetricsCollector
	config      ServiceConfig
	now         func() time.Time
}

// NewService はServiceを生成する。
func NewService(
	api apiclient.Requester,
	sessionRepo repository.SessionRepository,
	mc metrics.MetricsCollector,
	config ServiceConfig,
) *Service {
	if mc == nil {
		mc = metrics.Nop{}
	}
	if config.SessionMaxAge <= 0 {
		config.SessionMaxAge = 86400
	}
	return &Service{
		api:         api,
		sessionRepo: sessionRepo,
		metrics:     mc,
		config:      config,
		now:         time.Now,
	}
}

type loginRequest struct {
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken string `json:"access_token"`
	User        struct {
		ID   model.ID `json:"id"`
		Role string   `json:"role"`
	} `json:"user"`
}

// Login は外部APIで認証し、管理者であればセッションを発行する。
// 管理者以外のロールはトークンが発行されてもセッションを保存せずに拒否する。
func (s *Service) Login(ctx context.Context, identifier, password string) (*model.Session, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || password == "" {
		return nil, model.NewValidationFailedError("ユーザー名とパスワードは必須です")
	}

	req := loginRequest{Username: identifier, Password: password}
	if strings.Contains(identifier, "@") {
		req.Email = identifier
	}

	resp, err := apiclient.Fetch[loginResponse](ctx, s.api, nil, http.MethodPost, loginPath, req)
	if err != nil {
		return nil, s.classifyLoginError(err)
	}

	if resp.AccessToken == "" {
		s.metrics.RecordLogin(metrics.LoginFailed)
		return nil, model.NewUpstreamError("ログイン応答にアクセストークンが含まれていません。")
	}

	if !model.IsAdmin(resp.User.Role) {
		s.metrics.RecordLogin(metrics.LoginRejected)
		slog.Warn("non-admin login rejected",
			slog.String("user_id", resp.User.ID.String()),
			slog.String("role", resp.User.Role),
		)
		return nil, model.NewAccessDeniedError()
	}

	session, err := s.createSession(ctx, resp.AccessToken, resp.User.ID.String(), resp.User.Role)
	if err != nil {
		s.metrics.RecordLogin(metrics.LoginFailed)
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	s.metrics.RecordLogin(metrics.LoginSucceeded)
	slog.Info("admin logged in",
		slog.String("user_id", session.UserID),
		slog.String("role", session.Role),
	)
	return session, nil
}

// classifyLoginError はログインAPIのエラーを利用者向けのエラーに変換する。
func (s *Service) classifyLoginError(err error) error {
	var cfgErr *apiclient.ConfigurationError
	if errors.As(err, &cfgErr) {
		s.metrics.RecordLogin(metrics.LoginFailed)
		return model.NewConfigurationError()
	}

	var reqErr *apiclient.RequestError
	if errors.As(err, &reqErr) && reqErr.StatusCode >= 400 && reqErr.StatusCode < 500 {
		s.metrics.RecordLogin(metrics.LoginRejected)
		return model.NewInvalidCredentialsError()
	}

	s.metrics.RecordLogin(metrics.LoginFailed)
	slog.Error("login request failed", slog.String("error", err.Error()))
	if reqErr != nil {
		return model.NewUpstreamError(reqErr.Message)
	}
	return model.NewUpstreamError("認証サーバーに接続できませんでした。")
}

// Logout はセッションを破棄する。トークンとユーザーIDは同時に失われる。
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("session ID is required")
	}

	if err := s.sessionRepo.DeleteByID(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	slog.Info("admin logged out", slog.String("session_id", sessionID))
	return nil
}

// RevokeUserSessions は指定ユーザーの全セッションを破棄する。
// 外部APIでユーザーが削除された場合や管理者権限を外された場合に呼ばれる。
func (s *Service) RevokeUserSessions(ctx context.Context, userID string) error {
	if userID == "" {
		return fmt.Errorf("user ID is required")
	}

	if err := s.sessionRepo.DeleteByUserID(ctx, userID); err != nil {
		return fmt.Errorf("failed to delete user sessions: %w", err)
	}

	slog.Info("admin sessions revoked", slog.String("user_id", userID))
	return nil
}

// CurrentSession はセッションIDから有効なセッションを取得する。
// 見つからない場合や期限切れの場合はSESSION_EXPIREDを返す。
func (s *Service) CurrentSession(ctx context.Context, sessionID string) (*model.Session, error) {
	if sessionID == "" {
		return nil, model.NewUnauthorizedError()
	}

	session, err := s.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}
	if session == nil {
		return nil, model.NewSessionExpiredError()
	}
	return session, nil
}

// createSession はセッションを作成し永続化する。
// 有効期限はSessionMaxAgeとトークンのexpクレームの早い方。
func (s *Service) createSession(ctx context.Context, token, userID, role string) (*model.Session, error) {
	sessionID, err := generateSessionID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session ID: %w", err)
	}

	now := s.now()
	expiresAt := now.Add(time.Duration(s.config.SessionMaxAge) * time.Second)
	if exp, ok := tokenExpiry(token); ok && exp.Before(expiresAt) {
		expiresAt = exp
	}
	if !expiresAt.After(now) {
		return nil, model.NewSessionExpiredError()
	}

	session := &model.Session{
		ID:        sessionID,
		Token:     token,
		UserID:    userID,
		Role:      role,
		ExpiresAt: expiresAt,
		CreatedAt: now,
	}

	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	return session, nil
}

// tokenExpiry はJWTのexpクレームを署名検証なしで読み取る。
// 署名の検証は発行元の外部APIが行うため、ここでは有効期限の上限としてのみ使う。
// JWTでないトークンやexpのないトークンはfalseを返す。
func tokenExpiry(token string) (time.Time, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

// generateSessionID は暗号的に安全なセッションIDを生成する。
func generateSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
