// Package logger は管理パネル全体で使うslogのJSONロガーを構築する。
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// serviceName はすべてのログ行に付与するサービス名。
const serviceName = "adminpanel"

// ParseLevel はLOG_LEVELの値をslog.Levelに変換する。
// 未知の値はINFOとして扱う。
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// SetupWithLevel は指定レベル以上を出力するJSON構造化ロガーを生成する。
// 各ログ行にはservice属性が付く。
func SetupWithLevel(w io.Writer, level slog.Level) *slog.Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	})
	return slog.New(handler).With(slog.String("service", serviceName))
}

// SetupDefault はJSON構造化ログ出力をグローバルロガーとして設定する。
// wがnilの場合はos.Stdoutに出力する。
func SetupDefault(w io.Writer, level slog.Level) *slog.Logger {
	if w == nil {
		w = os.Stdout
	}
	logger := SetupWithLevel(w, level)
	slog.SetDefault(logger)
	return logger
}
