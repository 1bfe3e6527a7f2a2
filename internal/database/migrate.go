// Package database はデータベース接続とマイグレーション管理を提供する。
package database

import (
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SessionMigrationsTable はセッションストアのスキーマ履歴を記録するテーブル。
// 同じデータベースを他のアプリケーションと共有しても履歴が衝突しないよう既定のschema_migrationsを使わない。
const SessionMigrationsTable = "adminpanel_session_migrations"

// MigrateAction はmigrateサブコマンドの操作を表す。
type MigrateAction string

const (
	// MigrateUp は未適用のマイグレーションをすべて適用する。
	MigrateUp MigrateAction = "up"
	// MigrateDown は直近のマイグレーションを1つだけ戻す。
	MigrateDown MigrateAction = "down"
	// MigrateVersion は現在のスキーマバージョンを表示する。
	MigrateVersion MigrateAction = "version"
)

// ParseMigrateAction は操作名を解析する。空文字列はMigrateUpとして扱う。
func ParseMigrateAction(s string) (MigrateAction, error) {
	switch a := MigrateAction(s); a {
	case "":
		return MigrateUp, nil
	case MigrateUp, MigrateDown, MigrateVersion:
		return a, nil
	default:
		return "", fmt.Errorf("unknown migrate action: %q (want up, down or version)", s)
	}
}

// SchemaVersion はセッションテーブルのスキーマ状態。
// Versionが0の場合はマイグレーションが一度も適用されていない。
type SchemaVersion struct {
	Version uint
	Dirty   bool
}

// newSessionMigrator はセッションストア専用の履歴テーブルを使うmigrateインスタンスを生成する。
func newSessionMigrator(databaseURL string) (*migrate.Migrate, error) {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to create migration source: %w", err)
	}

	db, err := Open(databaseURL)
	if err != nil {
		return nil, err
	}
	driver, err := postgres.WithInstance(db, &postgres.Config{MigrationsTable: SessionMigrationsTable})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		driver.Close()
		return nil, fmt.Errorf("failed to create migrator: %w", err)
	}
	return m, nil
}

// MigrateSessionsUp はセッションテーブルのマイグレーションをすべて適用する。
// すでに最新の場合はエラーなしで返る。
func MigrateSessionsUp(databaseURL string) error {
	m, err := newSessionMigrator(databaseURL)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to apply session migrations: %w", err)
	}
	return nil
}

// MigrateSessionsDown は直近のセッションテーブルのマイグレーションを1つ戻す。
// 適用済みのマイグレーションがない場合はエラーなしで返る。
func MigrateSessionsDown(databaseURL string) error {
	m, err := newSessionMigrator(databaseURL)
	if err != nil {
		return err
	}
	defer m.Close()

	if _, _, err := m.Version(); errors.Is(err, migrate.ErrNilVersion) {
		return nil
	}
	if err := m.Steps(-1); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to roll back session migration: %w", err)
	}
	return nil
}

// SessionSchemaVersion はセッションテーブルの現在のスキーマバージョンを返す。
func SessionSchemaVersion(databaseURL string) (SchemaVersion, error) {
	m, err := newSessionMigrator(databaseURL)
	if err != nil {
		return SchemaVersion{}, err
	}
	defer m.Close()

	v, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return SchemaVersion{}, nil
	}
	if err != nil {
		return SchemaVersion{}, fmt.Errorf("failed to read session schema version: %w", err)
	}
	return SchemaVersion{Version: v, Dirty: dirty}, nil
}
