package app

import (
	"fmt"

	"github.com/hitoshi/adminpanel/internal/database"
)

// Command はアプリケーションの起動モードを表す。
type Command string

const (
	// CommandServe は管理パネルのHTTPサーバーを起動する。
	CommandServe Command = "serve"
	// CommandWorker は期限切れセッションの定期削除ワーカーを起動する。
	CommandWorker Command = "worker"
	// CommandCleanup は期限切れセッションの削除を1回だけ実行して終了する。
	CommandCleanup Command = "cleanup"
	// CommandMigrate はセッションテーブルのマイグレーションを実行する（migrate [up|down|version]）。
	CommandMigrate Command = "migrate"
	// CommandHealthcheck はdistroless環境でのDockerヘルスチェック用。
	CommandHealthcheck Command = "healthcheck"
)

// ParseCommand はコマンドライン引数からサブコマンドを解析する。
// 引数が空の場合はCommandServeを返す。未知のコマンドはエラーになる。
func ParseCommand(args []string) (Command, error) {
	if len(args) == 0 || args[0] == "" {
		return CommandServe, nil
	}

	switch cmd := Command(args[0]); cmd {
	case CommandServe, CommandWorker, CommandCleanup, CommandMigrate, CommandHealthcheck:
		return cmd, nil
	default:
		return "", fmt.Errorf("unknown command: %q (want serve, worker, cleanup, migrate or healthcheck)", args[0])
	}
}

// ParseMigrateAction はmigrateサブコマンドの2番目の引数から操作を解析する。
// 省略時はupとして扱う。
func ParseMigrateAction(args []string) (database.MigrateAction, error) {
	if len(args) < 2 {
		return database.MigrateUp, nil
	}
	return database.ParseMigrateAction(args[1])
}
