// Package cleanup は期限切れセッションの自動削除ジョブを提供する。
// セッションストアから有効期限を過ぎたセッションを定期的に削除する。
package cleanup

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/adminpanel/internal/metrics"
)

// DefaultInterval はクリーンアップのデフォルト実行間隔。
const DefaultInterval = time.Hour

// SessionPurger は期限切れセッションを削除するインターフェース。
// repository.SessionRepositoryの部分集合として定義する。
type SessionPurger interface {
	DeleteExpired(ctx context.Context) (int64, error)
}

// CleanupJob は期限切れセッションの削除ジョブ。
// 冪等で、削除対象がない場合もエラーにならない。
type CleanupJob struct {
	purger  SessionPurger
	logger  *slog.Logger
	metrics metrics.MetricsCollector
}

// NewCleanupJob は新しいCleanupJobを生成する。
func NewCleanupJob(purger SessionPurger, logger *slog.Logger, mc metrics.MetricsCollector) *CleanupJob {
	if mc == nil {
		mc = metrics.Nop{}
	}
	return &CleanupJob{
		purger:  purger,
		logger:  logger,
		metrics: mc,
	}
}

// Run は期限切れセッションを1回削除する。
func (j *CleanupJob) Run(ctx context.Context) error {
	start := time.Now()

	deletedCount, err := j.purger.DeleteExpired(ctx)
	if err != nil {
		j.logger.Error("セッションクリーンアップジョブの実行に失敗しました",
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("セッションクリーンアップの実行に失敗: %w", err)
	}

	j.metrics.RecordSessionsPurged(deletedCount)
	j.logger.Info("セッションクリーンアップジョブが完了しました",
		slog.Int64("deleted_count", deletedCount),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)
	return nil
}

// Start は起動直後に1回実行し、以降interval間隔で実行する。
// ctxがキャンセルされるまでブロックする。1回の失敗でループは止めない。
func (j *CleanupJob) Start(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultInterval
	}

	_ = j.Run(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			j.logger.Info("セッションクリーンアップジョブを停止しました")
			return
		case <-ticker.C:
			_ = j.Run(ctx)
		}
	}
}
