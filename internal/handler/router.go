package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/adminpanel/internal/apiclient"
	"github.com/hitoshi/adminpanel/internal/metrics"
	"github.com/hitoshi/adminpanel/internal/middleware"
	"github.com/hitoshi/adminpanel/internal/security"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	SessionFinder     middleware.SessionFinder
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	CSRFConfig        middleware.CSRFConfig
	TrustProxy        bool // X-Forwarded-For等からクライアントIPを取得する
	Logger            *slog.Logger

	// 認証
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig

	// 外部API
	API       apiclient.Requester
	Sanitizer security.ContentSanitizer

	// 指標
	Dashboard DashboardServiceInterface

	// 運用
	Metrics       metrics.MetricsCollector
	Gatherer      prometheus.Gatherer
	HealthChecker HealthChecker
}

// NewRouter は画面・認証・JSON APIのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → RequestID → (RealIP) → Logging → SecurityHeaders → CORS
//	  画面:     PageGuard
//	  JSON API: Session → RateLimit(General) → CSRF
//
// /health、/metrics、/api/csrf-token、/auth/* はセッション検証の外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(middleware.NewRecoveryMiddleware(logger))
	r.Use(middleware.NewRequestIDMiddleware())
	if deps.TrustProxy {
		r.Use(chimw.RealIP)
	}
	r.Use(middleware.NewLoggingMiddleware(logger))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	resp := newResponder(deps.AuthService, deps.AuthConfig)
	authHandler := NewAuthHandler(deps.AuthService, deps.AuthConfig)
	userHandler := NewUserHandler(deps.API, resp)
	adminHandler := NewAdminHandler(deps.API, resp)
	feedbackHandler := NewFeedbackHandler(deps.API, deps.Sanitizer, resp)
	dashboardHandler := NewDashboardHandler(deps.Dashboard, resp)

	// --- 運用エンドポイント ---
	r.Method(http.MethodGet, "/health", NewHealthHandler(deps.HealthChecker))
	if deps.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(deps.Gatherer))
	}
	r.Method(http.MethodGet, "/api/csrf-token", middleware.NewCSRFTokenHandler(deps.CSRFConfig))

	// --- 認証ルート ---
	r.Route("/auth", func(r chi.Router) {
		r.With(deps.RateLimiter.LoginMiddleware()).Post("/login", authHandler.Login)
		r.Post("/logout", authHandler.Logout)
		r.Get("/me", authHandler.Me)
	})

	// --- 画面ルート ---
	// 判定が確定するまで描画しない。未認証は/loginへ、ログイン済みで/loginを開くと/usersへ遷移する
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewPageGuardMiddleware(deps.SessionFinder, deps.Metrics))
		r.Use(markPage)

		r.Get("/login", authHandler.LoginPage)
		r.Get("/", adminHandler.List)
		r.Get("/admins", adminHandler.List)
		r.Get("/users", userHandler.List)
		r.Get("/feedback", feedbackHandler.List)
		r.Get("/dashboard", dashboardHandler.Overview)
		r.Get("/conversion", dashboardHandler.Conversion)
		r.Get("/engagement", dashboardHandler.Engagement)
		r.Get("/support", dashboardHandler.Support)
	})

	// --- JSON API ---
	// ミドルウェアスタック: Session → RateLimit(General) → CSRF
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewSessionMiddleware(deps.SessionFinder))
		r.Use(deps.RateLimiter.GeneralMiddleware())
		r.Use(middleware.NewCSRFMiddleware(deps.CSRFConfig))

		r.Route("/api/users", func(r chi.Router) {
			r.Get("/", userHandler.List)
			r.Post("/", userHandler.Create)
			r.Put("/{id}", userHandler.Update)
			r.Delete("/{id}", userHandler.Delete)
		})

		r.Route("/api/admins", func(r chi.Router) {
			r.Get("/", adminHandler.List)
			r.Post("/", adminHandler.Create)
			r.Get("/{id}/edit", adminHandler.Edit)
			r.Put("/{id}", adminHandler.Update)
			r.Delete("/{id}", adminHandler.Delete)
		})

		r.Route("/api/feedback", func(r chi.Router) {
			r.Get("/", feedbackHandler.List)
			r.Patch("/{id}/reply", feedbackHandler.Reply)
			r.Patch("/{id}/archive", feedbackHandler.Archive)
		})

		r.Get("/api/dashboard", dashboardHandler.Overview)
		r.Get("/api/conversion", dashboardHandler.Conversion)
		r.Get("/api/engagement", dashboardHandler.Engagement)
		r.Get("/api/support", dashboardHandler.Support)
	})

	return r
}
