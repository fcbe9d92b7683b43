package postgres

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"regexp"
	"slices"
	"strconv"
	"strings"
)

const (
	migrationsDir     = "sql/migrations"
	migrationLockKey  = int64(20260314)
	migrationTableDDL = `
CREATE TABLE IF NOT EXISTS schema_migrations (
    version BIGINT PRIMARY KEY,
    name TEXT NOT NULL,
    applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`
)

var (
	//go:embed sql/migrations/*.sql
	embeddedMigrations embed.FS

	migrationFilePattern = regexp.MustCompile(`^(\d+)_([a-z0-9_]+)\.(up|down)\.sql$`)
)

// Migration — пара up/down скриптов одной версии схемы.
type Migration struct {
	Version int64
	Name    string
	Up      string
	Down    string
}

// MigrationStatus — состояние схемы.
type MigrationStatus struct {
	CurrentVersion int64
	Applied        int
	Pending        []Migration
}

// Migrator применяет миграции из fs.FS под advisory lock.
type Migrator struct {
	db         *sql.DB
	migrations []Migration
}

// NewMigrator читает миграции, встроенные в бинарник.
func NewMigrator(store *Store) (*Migrator, error) {
	return NewMigratorFromFS(store, embeddedMigrations)
}

// NewMigratorFromFS читает миграции из каталога sql/migrations в fsys.
func NewMigratorFromFS(store *Store, fsys fs.FS) (*Migrator, error) {
	if store == nil || store.db == nil {
		return nil, errors.New("postgres store is not initialized")
	}
	migrations, err := loadMigrations(fsys)
	if err != nil {
		return nil, err
	}
	return &Migrator{db: store.db, migrations: migrations}, nil
}

// MigrateUp применяет все недостающие миграции. Удобная обёртка для старта сервиса.
func (s *Store) MigrateUp(ctx context.Context) error {
	m, err := NewMigrator(s)
	if err != nil {
		return err
	}
	_, err = m.Up(ctx, 0)
	return err
}

// Up применяет до steps недостающих миграций (0 — все) и возвращает применённые.
func (m *Migrator) Up(ctx context.Context, steps int) ([]Migration, error) {
	var done []Migration
	err := m.locked(ctx, func(conn *sql.Conn) error {
		applied, err := appliedVersions(ctx, conn)
		if err != nil {
			return err
		}
		for _, migration := range m.migrations {
			if _, ok := applied[migration.Version]; ok {
				continue
			}
			if steps > 0 && len(done) >= steps {
				break
			}
			if err := execMigration(ctx, conn, migration, migration.Up,
				`INSERT INTO schema_migrations (version, name) VALUES ($1, $2)`, migration.Version, migration.Name); err != nil {
				return err
			}
			done = append(done, migration)
		}
		return nil
	})
	return done, err
}

// Down откатывает steps последних миграций; steps <= 0 означает один шаг.
func (m *Migrator) Down(ctx context.Context, steps int) ([]Migration, error) {
	if steps <= 0 {
		steps = 1
	}
	byVersion := make(map[int64]Migration, len(m.migrations))
	for _, migration := range m.migrations {
		byVersion[migration.Version] = migration
	}

	var done []Migration
	err := m.locked(ctx, func(conn *sql.Conn) error {
		applied, err := appliedVersions(ctx, conn)
		if err != nil {
			return err
		}
		versions := make([]int64, 0, len(applied))
		for version := range applied {
			versions = append(versions, version)
		}
		slices.Sort(versions)
		slices.Reverse(versions)

		for _, version := range versions[:min(steps, len(versions))] {
			migration, ok := byVersion[version]
			if !ok {
				return fmt.Errorf("cannot rollback unknown migration version %d", version)
			}
			if err := execMigration(ctx, conn, migration, migration.Down,
				`DELETE FROM schema_migrations WHERE version = $1`, migration.Version); err != nil {
				return err
			}
			done = append(done, migration)
		}
		return nil
	})
	return done, err
}

// Status возвращает текущую версию, число применённых и список ожидающих миграций.
func (m *Migrator) Status(ctx context.Context) (MigrationStatus, error) {
	var status MigrationStatus
	if _, err := m.db.ExecContext(ctx, migrationTableDDL); err != nil {
		return status, fmt.Errorf("ensure migration table: %w", err)
	}
	conn, err := m.db.Conn(ctx)
	if err != nil {
		return status, fmt.Errorf("acquire db connection: %w", err)
	}
	defer conn.Close()

	applied, err := appliedVersions(ctx, conn)
	if err != nil {
		return status, err
	}
	status.Applied = len(applied)
	for version := range applied {
		status.CurrentVersion = max(status.CurrentVersion, version)
	}
	for _, migration := range m.migrations {
		if _, ok := applied[migration.Version]; !ok {
			status.Pending = append(status.Pending, migration)
		}
	}
	return status, nil
}

// locked выполняет fn на выделенном соединении под pg_advisory_lock.
func (m *Migrator) locked(ctx context.Context, fn func(conn *sql.Conn) error) error {
	conn, err := m.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("acquire db connection: %w", err)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, "SELECT pg_advisory_lock($1)", migrationLockKey); err != nil {
		return fmt.Errorf("acquire migration lock: %w", err)
	}
	defer func() {
		_, _ = conn.ExecContext(context.WithoutCancel(ctx), "SELECT pg_advisory_unlock($1)", migrationLockKey)
	}()

	if _, err := conn.ExecContext(ctx, migrationTableDDL); err != nil {
		return fmt.Errorf("ensure migration table: %w", err)
	}
	return fn(conn)
}

// execMigration выполняет скрипт и запись в schema_migrations в одной транзакции.
func execMigration(ctx context.Context, conn *sql.Conn, migration Migration, script, record string, args ...any) error {
	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration tx %d: %w", migration.Version, err)
	}
	if _, err := tx.ExecContext(ctx, script); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("execute migration %d_%s: %w", migration.Version, migration.Name, err)
	}
	if _, err := tx.ExecContext(ctx, record, args...); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("record migration %d_%s: %w", migration.Version, migration.Name, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migration %d_%s: %w", migration.Version, migration.Name, err)
	}
	return nil
}

func appliedVersions(ctx context.Context, conn *sql.Conn) (map[int64]struct{}, error) {
	rows, err := conn.QueryContext(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, fmt.Errorf("query applied migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[int64]struct{})
	for rows.Next() {
		var version int64
		if err := rows.Scan(&version); err != nil {
			return nil, fmt.Errorf("scan applied migration version: %w", err)
		}
		applied[version] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate applied migrations: %w", err)
	}
	return applied, nil
}

// loadMigrations собирает пары NNNN_name.up.sql / NNNN_name.down.sql.
func loadMigrations(fsys fs.FS) ([]Migration, error) {
	entries, err := fs.ReadDir(fsys, migrationsDir)
	if err != nil {
		return nil, fmt.Errorf("list migrations: %w", err)
	}

	byVersion := make(map[int64]*Migration)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		matches := migrationFilePattern.FindStringSubmatch(name)
		if matches == nil {
			return nil, fmt.Errorf("invalid migration file name: %s", name)
		}
		version, err := strconv.ParseInt(matches[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse migration version from %s: %w", name, err)
		}

		body, err := fs.ReadFile(fsys, path.Join(migrationsDir, name))
		if err != nil {
			return nil, fmt.Errorf("read migration file %s: %w", name, err)
		}
		script := strings.TrimSpace(string(body))
		if script == "" {
			return nil, fmt.Errorf("migration file is empty: %s", name)
		}

		migration, ok := byVersion[version]
		if !ok {
			migration = &Migration{Version: version, Name: matches[2]}
			byVersion[version] = migration
		} else if migration.Name != matches[2] {
			return nil, fmt.Errorf("migration name mismatch for version %d: %s vs %s", version, migration.Name, matches[2])
		}

		target := &migration.Up
		if matches[3] == "down" {
			target = &migration.Down
		}
		if *target != "" {
			return nil, fmt.Errorf("duplicate %s migration for version %d", matches[3], version)
		}
		*target = script
	}
	if len(byVersion) == 0 {
		return nil, errors.New("no migration files found")
	}

	migrations := make([]Migration, 0, len(byVersion))
	for _, migration := range byVersion {
		if migration.Up == "" || migration.Down == "" {
			return nil, fmt.Errorf("migration %d_%s must have both up and down files", migration.Version, migration.Name)
		}
		migrations = append(migrations, *migration)
	}
	slices.SortFunc(migrations, func(a, b Migration) int {
		switch {
		case a.Version < b.Version:
			return -1
		case a.Version > b.Version:
			return 1
		}
		return 0
	})
	return migrations, nil
}
