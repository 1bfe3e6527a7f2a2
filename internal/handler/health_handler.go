package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// HealthChecker はセッションストアの疎通確認を行う。*sql.DBはそのまま満たす。
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

// healthCheckTimeout はヘルスチェック1回あたりの上限時間。
const healthCheckTimeout = 3 * time.Second

// NewHealthHandler は/healthのハンドラーを返す。
// checkerがnilの場合（メモリストア）は常に正常を返す。
func NewHealthHandler(checker HealthChecker) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if checker != nil {
			ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
			defer cancel()
			if err := checker.PingContext(ctx); err != nil {
				slog.Error("health check failed", slog.String("error", err.Error()))
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
}
