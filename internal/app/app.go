package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/hitoshi/adminpanel/internal/apiclient"
	"github.com/hitoshi/adminpanel/internal/auth"
	"github.com/hitoshi/adminpanel/internal/config"
	"github.com/hitoshi/adminpanel/internal/dashboard"
	"github.com/hitoshi/adminpanel/internal/database"
	"github.com/hitoshi/adminpanel/internal/handler"
	"github.com/hitoshi/adminpanel/internal/logger"
	"github.com/hitoshi/adminpanel/internal/metrics"
	"github.com/hitoshi/adminpanel/internal/middleware"
	"github.com/hitoshi/adminpanel/internal/repository"
	"github.com/hitoshi/adminpanel/internal/security"
	"github.com/hitoshi/adminpanel/internal/worker/cleanup"
)

// shutdownTimeout はグレースフルシャットダウンの待機上限。
const shutdownTimeout = 30 * time.Second

// Init はアプリケーションの初期化を行う。
// .envと環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. .envの読み込み（既存の環境変数が優先）
	if err := config.LoadDotEnv(); err != nil {
		return nil, err
	}

	// 2. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w, logger.ParseLevel(os.Getenv("LOG_LEVEL")))

	// 3. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd, err := ParseCommand(args)
	if err != nil {
		return err
	}

	var migrateAction database.MigrateAction
	if cmd == CommandMigrate {
		if migrateAction, err = ParseMigrateAction(args); err != nil {
			return err
		}
	}

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("base_url", cfg.BaseURL),
		slog.String("session_store", cfg.SessionStore),
	)

	// SIGINT/SIGTERMでキャンセルされるコンテキスト
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch cmd {
	case CommandWorker:
		return runWorker(ctx, cfg)
	case CommandCleanup:
		return runCleanup(ctx, cfg)
	case CommandMigrate:
		return runMigrate(cfg, migrateAction)
	default:
		return runServe(ctx, cfg)
	}
}

// sessionStore は選択されたセッションストアと付随リソースをまとめる。
type sessionStore struct {
	repo   repository.SessionRepository
	health handler.HealthChecker
	close  func() error
}

// pingFunc は関数をhandler.HealthCheckerとして扱うアダプタ。
type pingFunc func(ctx context.Context) error

func (f pingFunc) PingContext(ctx context.Context) error { return f(ctx) }

// openSessionStore はSESSION_STOREの設定に応じてセッションストアを開く。
// memoryはプロセス内のみで有効なため、単一インスタンスの開発用途に限る。
func openSessionStore(ctx context.Context, cfg *config.Config) (*sessionStore, error) {
	switch cfg.SessionStore {
	case config.SessionStoreRedis:
		client, err := repository.NewRedisClient(cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		repo := repository.NewRedisSessionRepo(client)
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := repo.Ping(pingCtx); err != nil {
			client.Close()
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		slog.Info("redis connection established")
		return &sessionStore{repo: repo, health: pingFunc(repo.Ping), close: client.Close}, nil

	case config.SessionStoreMemory:
		slog.Warn("using in-memory session store; sessions are lost on restart")
		return &sessionStore{
			repo:  repository.NewMemorySessionRepo(),
			close: func() error { return nil },
		}, nil

	default:
		db, err := database.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		slog.Info("database connection established",
			slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
		)
		return &sessionStore{repo: repository.NewPostgresSessionRepo(db), health: db, close: db.Close}, nil
	}
}

// newRouter は全依存関係をワイヤリングしてHTTPハンドラーを構築する。
// 返却する関数はレートリミッターのクリーンアップgoroutineを停止する。
func newRouter(cfg *config.Config, store *sessionStore, reg *prometheus.Registry) (http.Handler, func()) {
	log := slog.Default()
	collector := metrics.NewCollector(reg)

	// 1. 外部APIクライアント
	client := apiclient.NewClient(
		&http.Client{Timeout: cfg.APITimeout},
		apiclient.NewBaseURLResolver(cfg.APIBaseURL, cfg.BaseURL, cfg.TrustProxy),
		log,
		collector,
	)

	// 2. ドメインサービス
	authService := auth.NewService(client, store.repo, collector, auth.ServiceConfig{
		SessionMaxAge: cfg.SessionMaxAge,
	})
	sanitizer := security.NewContentSanitizer()
	dashboardService := dashboard.NewService(client, sanitizer, log)

	// 3. ルーター
	rateLimiter := middleware.NewRateLimiter(
		middleware.RateLimiterConfigPerMinute(cfg.RateLimitGeneral, cfg.RateLimitLogin),
	)

	deps := &handler.RouterDeps{
		SessionFinder:     store.repo,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       rateLimiter,
		CSRFConfig: middleware.CSRFConfig{
			CookieSecure: cfg.CookieSecure,
			CookieDomain: cfg.CookieDomain,
		},
		TrustProxy: cfg.TrustProxy,
		Logger:     log,

		AuthService: authService,
		AuthConfig: handler.AuthHandlerConfig{
			CookieDomain:  cfg.CookieDomain,
			CookieSecure:  cfg.CookieSecure,
			SessionMaxAge: cfg.SessionMaxAge,
		},

		API:       client,
		Sanitizer: sanitizer,
		Dashboard: dashboardService,

		Metrics:       collector,
		Gatherer:      reg,
		HealthChecker: store.health,
	}

	return handler.NewRouter(deps), rateLimiter.Stop
}

// newRegistry はGoランタイムとプロセスの標準メトリクスを登録したレジストリを返す。
func newRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// runServe は管理パネルのHTTPサーバーを起動する。
// ctxがキャンセルされるとグレースフルシャットダウンを行う。
func runServe(ctx context.Context, cfg *config.Config) error {
	store, err := openSessionStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.close()

	router, stopLimiter := newRouter(cfg, store, newRegistry())
	defer stopLimiter()

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("admin panel server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server listen error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down admin panel server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("admin panel server stopped gracefully")
	return nil
}

// runWorker は期限切れセッションの定期削除ワーカーを起動する。
// ctxがキャンセルされるまでブロックする。
func runWorker(ctx context.Context, cfg *config.Config) error {
	store, err := openSessionStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.close()

	reg := newRegistry()
	job := cleanup.NewCleanupJob(store.repo, slog.Default(), metrics.NewCollector(reg))

	server := &http.Server{
		Addr:              ":" + cfg.WorkerMetricsPort,
		Handler:           newWorkerMux(reg, store.health),
		ReadHeaderTimeout: 5 * time.Second,
	}

	slog.Info("worker starting",
		slog.Duration("cleanup_interval", cfg.SessionCleanupInterval),
		slog.String("metrics_addr", server.Addr),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("worker metrics listen error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		job.Start(gctx, cfg.SessionCleanupInterval)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	if err := g.Wait(); err != nil {
		return err
	}

	slog.Info("worker stopped gracefully")
	return nil
}

// newWorkerMux はworkerモードで公開する/metricsと/healthのハンドラーを返す。
func newWorkerMux(reg *prometheus.Registry, health handler.HealthChecker) http.Handler {
	r := chi.NewRouter()
	r.Method(http.MethodGet, "/metrics", metrics.Handler(reg))
	r.Method(http.MethodGet, "/health", handler.NewHealthHandler(health))
	return r
}

// runCleanup は期限切れセッションの削除を1回実行する。
// cronなど外部スケジューラから起動する用途を想定する。
func runCleanup(ctx context.Context, cfg *config.Config) error {
	store, err := openSessionStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.close()

	return cleanup.NewCleanupJob(store.repo, slog.Default(), metrics.Nop{}).Run(ctx)
}

// runMigrate はセッションテーブルのマイグレーションを実行する。
// PostgreSQLストア以外ではテーブルが存在しないためエラーにする。
func runMigrate(cfg *config.Config, action database.MigrateAction) error {
	if cfg.SessionStore != config.SessionStorePostgres {
		return fmt.Errorf("migrate requires SESSION_STORE=%s, got %q", config.SessionStorePostgres, cfg.SessionStore)
	}

	slog.Info("running session migrations",
		slog.String("action", string(action)),
		slog.String("migrations_table", database.SessionMigrationsTable),
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	var err error
	switch action {
	case database.MigrateDown:
		err = database.MigrateSessionsDown(cfg.DatabaseURL)
	case database.MigrateVersion:
		var v database.SchemaVersion
		if v, err = database.SessionSchemaVersion(cfg.DatabaseURL); err == nil {
			slog.Info("session schema version",
				slog.Uint64("version", uint64(v.Version)),
				slog.Bool("dirty", v.Dirty),
			)
			return nil
		}
	default:
		err = database.MigrateSessionsUp(cfg.DatabaseURL)
	}
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("session migrations completed successfully")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(fmt.Sprintf("http://localhost:%s/health", port))
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLのパスワードをマスクする。
func maskDatabaseURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "***"
	}
	return u.Redacted()
}
