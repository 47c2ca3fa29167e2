// Package cobcache serves materialized collaborative objects from Postgres.
// Rows are written by the loader and read by the API; bodies are stored as
// JSON documents in cob package shape.
package cobcache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"seedhttpd/api/internal/cob"
	"seedhttpd/api/internal/identity"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *PostgresStore) Issue(ctx context.Context, rid identity.RepoID, id string) (cob.Issue, error) {
	var issue cob.Issue
	if err := s.get(ctx, `SELECT body FROM cob_issues WHERE repo_id = $1 AND id = $2`, rid, id, &issue); err != nil {
		return cob.Issue{}, fmt.Errorf("get issue %s: %w", id, err)
	}
	return issue, nil
}

func (s *PostgresStore) Patch(ctx context.Context, rid identity.RepoID, id string) (cob.Patch, error) {
	var patch cob.Patch
	if err := s.get(ctx, `SELECT body FROM cob_patches WHERE repo_id = $1 AND id = $2`, rid, id, &patch); err != nil {
		return cob.Patch{}, fmt.Errorf("get patch %s: %w", id, err)
	}
	return patch, nil
}

func (s *PostgresStore) Issues(ctx context.Context, rid identity.RepoID) ([]cob.Issue, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT body FROM cob_issues WHERE repo_id = $1 ORDER BY position, id`, rid.Canonical())
	if err != nil {
		return nil, fmt.Errorf("list issues: %w", err)
	}
	defer rows.Close()

	items := make([]cob.Issue, 0)
	for rows.Next() {
		var body []byte
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("scan issue: %w", err)
		}
		var issue cob.Issue
		if err := json.Unmarshal(body, &issue); err != nil {
			return nil, fmt.Errorf("decode issue: %w", err)
		}
		items = append(items, issue)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate issues: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) Patches(ctx context.Context, rid identity.RepoID) ([]cob.Patch, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT body FROM cob_patches WHERE repo_id = $1 ORDER BY position, id`, rid.Canonical())
	if err != nil {
		return nil, fmt.Errorf("list patches: %w", err)
	}
	defer rows.Close()

	items := make([]cob.Patch, 0)
	for rows.Next() {
		var body []byte
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("scan patch: %w", err)
		}
		var patch cob.Patch
		if err := json.Unmarshal(body, &patch); err != nil {
			return nil, fmt.Errorf("decode patch: %w", err)
		}
		items = append(items, patch)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate patches: %w", err)
	}
	return items, nil
}

// PutIssue inserts or replaces an issue. New rows are appended after the
// existing ones of the repository.
func (s *PostgresStore) PutIssue(ctx context.Context, rid identity.RepoID, issue cob.Issue) error {
	return s.put(ctx, "cob_issues", rid, issue.ID, issue.Title, issue)
}

func (s *PostgresStore) PutPatch(ctx context.Context, rid identity.RepoID, patch cob.Patch) error {
	return s.put(ctx, "cob_patches", rid, patch.ID, patch.Title, patch)
}

func (s *PostgresStore) get(ctx context.Context, query string, rid identity.RepoID, id string, dest any) error {
	var body []byte
	err := s.db.QueryRowContext(ctx, query, rid.Canonical(), id).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return cob.ErrNotFound
	}
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, dest); err != nil {
		return fmt.Errorf("decode body: %w", err)
	}
	return nil
}

func (s *PostgresStore) put(ctx context.Context, table string, rid identity.RepoID, id, title string, value any) error {
	body, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s body: %w", table, err)
	}
	query := fmt.Sprintf(`
		INSERT INTO %s (repo_id, id, title, body, position)
		VALUES ($1, $2, $3, $4, (SELECT COALESCE(MAX(position), 0) + 1 FROM %s WHERE repo_id = $1))
		ON CONFLICT (repo_id, id) DO UPDATE SET title = EXCLUDED.title, body = EXCLUDED.body, updated_at = NOW()
	`, table, table)
	if _, err := s.db.ExecContext(ctx, query, rid.Canonical(), id, title, body); err != nil {
		return fmt.Errorf("upsert %s %s: %w", table, id, err)
	}
	return nil
}

func (s *PostgresStore) Counts(ctx context.Context, rid identity.RepoID, kind string) (map[string]int, error) {
	var table string
	switch kind {
	case cob.TypeIssue:
		table = "cob_issues"
	case cob.TypePatch:
		table = "cob_patches"
	default:
		return nil, fmt.Errorf("count %s: unknown object type", kind)
	}
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`SELECT state, COUNT(*) FROM %s WHERE repo_id = $1 GROUP BY state`, table), rid.Canonical())
	if err != nil {
		return nil, fmt.Errorf("count %s: %w", table, err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var state sql.NullString
		var n int
		if err := rows.Scan(&state, &n); err != nil {
			return nil, fmt.Errorf("scan %s count: %w", table, err)
		}
		counts[state.String] += n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s counts: %w", table, err)
	}
	return counts, nil
}
