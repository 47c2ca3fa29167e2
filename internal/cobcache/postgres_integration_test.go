package cobcache

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"seedhttpd/api/internal/cob"
	"seedhttpd/api/internal/identity"
)

func openTestDB(t *testing.T) (*sql.DB, context.Context) {
	t.Helper()
	dsn := strings.TrimSpace(os.Getenv("SEED_TEST_DATABASE_URL"))
	if dsn == "" {
		t.Skip("SEED_TEST_DATABASE_URL is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	t.Cleanup(cancel)

	db, err := Open(ctx, dsn)
	if err != nil {
		t.Fatalf("open postgres: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if _, err := db.ExecContext(ctx, `DROP SCHEMA IF EXISTS public CASCADE; CREATE SCHEMA public;`); err != nil {
		t.Fatalf("reset schema: %v", err)
	}
	return db, ctx
}

func TestMigrationsRoundTripPostgres(t *testing.T) {
	db, ctx := openTestDB(t)

	if err := ApplyMigrations(ctx, db, migrationsDir); err != nil {
		t.Fatalf("apply up migrations (pass 1): %v", err)
	}
	if err := RevertMigrations(ctx, db, migrationsDir); err != nil {
		t.Fatalf("apply down migrations: %v", err)
	}
	if err := ApplyMigrations(ctx, db, migrationsDir); err != nil {
		t.Fatalf("apply up migrations (pass 2): %v", err)
	}
	if err := ApplyMigrations(ctx, db, migrationsDir); err != nil {
		t.Fatalf("apply up migrations must be idempotent: %v", err)
	}
}

func TestPostgresStoreIssuesAndPatches(t *testing.T) {
	db, ctx := openTestDB(t)
	if err := ApplyMigrations(ctx, db, migrationsDir); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	s := NewPostgresStore(db)
	rid := identity.RepoID{9}
	author := identity.PublicKey{1}
	when := time.Unix(1673001014, 0).UTC()

	second := cob.Issue{ID: "b", Title: "Second", Author: author, State: cob.IssueState{Status: cob.IssueClosed, Reason: "solved"},
		Thread: []cob.Comment{{ID: "b0", Author: author, Body: "done", Timestamp: when}}}
	first := cob.Issue{ID: "a", Title: "First", Author: author, State: cob.IssueState{Status: cob.IssueOpen},
		Thread: []cob.Comment{{ID: "a0", Author: author, Body: "open", Timestamp: when, Reactions: []cob.Reaction{{Author: author, Emoji: "👍"}}}}}
	for _, issue := range []cob.Issue{second, first} {
		if err := s.PutIssue(ctx, rid, issue); err != nil {
			t.Fatalf("PutIssue(%s) error = %v", issue.ID, err)
		}
	}

	issues, err := s.Issues(ctx, rid)
	if err != nil {
		t.Fatalf("Issues() error = %v", err)
	}
	if len(issues) != 2 || issues[0].ID != "b" || issues[1].ID != "a" {
		t.Fatalf("expected insertion order, got %+v", issues)
	}

	got, err := s.Issue(ctx, rid, "a")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	if got.Thread[0].Reactions[0].Emoji != "👍" || !got.Thread[0].Timestamp.Equal(when) {
		t.Fatalf("unexpected stored issue %+v", got)
	}
	if _, err := s.Issue(ctx, rid, "missing"); !errors.Is(err, cob.ErrNotFound) {
		t.Fatalf("expected cob.ErrNotFound, got %v", err)
	}

	counts, err := s.Counts(ctx, rid, cob.TypeIssue)
	if err != nil {
		t.Fatalf("Counts() error = %v", err)
	}
	if counts[cob.IssueOpen] != 1 || counts[cob.IssueClosed] != 1 {
		t.Fatalf("unexpected counts %v", counts)
	}

	patch := cob.Patch{ID: "p", Title: "Patch", Author: author, State: cob.PatchState{Status: cob.PatchOpen}, Target: "delegates",
		Revisions: []cob.Revision{{ID: "r", Author: author, Base: "b", Head: "h", Timestamp: when}}}
	if err := s.PutPatch(ctx, rid, patch); err != nil {
		t.Fatalf("PutPatch() error = %v", err)
	}
	patches, err := s.Patches(ctx, rid)
	if err != nil {
		t.Fatalf("Patches() error = %v", err)
	}
	if len(patches) != 1 || patches[0].Revisions[0].Head != "h" {
		t.Fatalf("unexpected patches %+v", patches)
	}
	if _, err := s.Counts(ctx, rid, "xyz.radicle.unknown"); err == nil {
		t.Fatal("expected error for unknown object type")
	}
}
