// Package database はデータベース接続とマイグレーション管理を提供する。
package database

import (
	"embed"
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

// migrations/ には users, favorite_players, sessions の順にスキーマを定義する。
//
//go:embed migrations/*.sql
var migrationsFS embed.FS

// NewMigrator は埋め込みのマイグレーションを使うmigrateインスタンスを生成する。
func NewMigrator(databaseURL string) (*migrate.Migrate, error) {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to load embedded migrations: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", source, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrator: %w", err)
	}
	m.Log = migrateLogger{}

	return m, nil
}

// RunMigrations は未適用のマイグレーションをすべて適用する。
// すでに最新の場合はエラーなしで返る。dirtyな状態の場合は手動での復旧が必要なためエラーを返す。
func RunMigrations(databaseURL string) error {
	m, err := NewMigrator(databaseURL)
	if err != nil {
		return err
	}
	defer m.Close()

	if _, dirty, err := m.Version(); err == nil && dirty {
		return errors.New("database schema is dirty; fix the failed migration and force the version")
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	version, _, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	slog.Info("database schema is up to date", slog.Uint64("version", uint64(version)))

	return nil
}

// migrateLogger はgolang-migrateのログをslogに流す。
type migrateLogger struct{}

func (migrateLogger) Printf(format string, v ...interface{}) {
	slog.Debug(fmt.Sprintf(format, v...), slog.String("component", "migrate"))
}

func (migrateLogger) Verbose() bool { return false }
