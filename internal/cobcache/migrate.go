package cobcache

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ApplyMigrations runs every *.up.sql file in migrationsDir that has not been
// recorded yet, each in its own transaction, in file name order.
func ApplyMigrations(ctx context.Context, db *sql.DB, migrationsDir string) error {
	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`); err != nil {
		return fmt.Errorf("ensure schema_migrations: %w", err)
	}

	applied, err := appliedVersions(ctx, db)
	if err != nil {
		return err
	}
	files, err := migrationFiles(migrationsDir, ".up.sql")
	if err != nil {
		return err
	}
	for _, file := range files {
		version := filepath.Base(file)
		if applied[version] {
			continue
		}
		if err := applyFile(ctx, db, file, `INSERT INTO schema_migrations(version) VALUES($1)`, version); err != nil {
			return err
		}
	}
	return nil
}

func appliedVersions(ctx context.Context, db *sql.DB) (map[string]bool, error) {
	rows, err := db.QueryContext(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, fmt.Errorf("list applied migrations: %w", err)
	}
	defer rows.Close()
	applied := make(map[string]bool)
	for rows.Next() {
		var version string
		if err := rows.Scan(&version); err != nil {
			return nil, fmt.Errorf("scan applied migration: %w", err)
		}
		applied[version] = true
	}
	return applied, rows.Err()
}

// RevertMigrations runs every *.down.sql file in reverse order and clears the
// migration record.
func RevertMigrations(ctx context.Context, db *sql.DB, migrationsDir string) error {
	files, err := migrationFiles(migrationsDir, ".down.sql")
	if err != nil {
		return err
	}
	for i := len(files) - 1; i >= 0; i-- {
		version := strings.TrimSuffix(filepath.Base(files[i]), ".down.sql") + ".up.sql"
		if err := applyFile(ctx, db, files[i], `DELETE FROM schema_migrations WHERE version=$1`, version); err != nil {
			return err
		}
	}
	return nil
}

func migrationFiles(dir, suffix string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read migrations dir: %w", err)
	}
	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), suffix) {
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

func applyFile(ctx context.Context, db *sql.DB, file, record, version string) error {
	contents, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("read migration %s: %w", version, err)
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration tx %s: %w", version, err)
	}
	if _, err := tx.ExecContext(ctx, string(contents)); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("execute migration %s: %w", filepath.Base(file), err)
	}
	if _, err := tx.ExecContext(ctx, record, version); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("record migration %s: %w", version, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migration %s: %w", version, err)
	}
	return nil
}
