// Package gitrepo reads repositories out of node storage. Storage is shared
// with the node and treated as read-only here.
package gitrepo

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	git "github.com/go-git/go-git/v5"

	"seedhttpd/api/internal/identity"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrInvalidRef = errors.New("invalid object id")
	// ErrInvalidDoc marks an identity document in storage that cannot be used.
	ErrInvalidDoc = errors.New("invalid identity document")
)

type Storage struct {
	baseDir string
}

func New(baseDir string) *Storage {
	return &Storage{baseDir: baseDir}
}

func (s *Storage) Path() string {
	return s.baseDir
}

// Repository opens the repository stored under rid.
func (s *Storage) Repository(rid identity.RepoID) (*Repository, error) {
	path := s.repoPath(rid)
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("repository %s: %w", rid, ErrNotFound)
		}
		return nil, fmt.Errorf("stat repo path: %w", err)
	}
	repo, err := git.PlainOpen(path)
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			return nil, fmt.Errorf("repository %s: %w", rid, ErrNotFound)
		}
		return nil, fmt.Errorf("open repo: %w", err)
	}
	return &Repository{id: rid, repo: repo}, nil
}

// Repositories lists the ids of all repositories in storage, sorted.
func (s *Storage) Repositories() ([]identity.RepoID, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []identity.RepoID{}, nil
		}
		return nil, fmt.Errorf("read storage dir: %w", err)
	}
	ids := make([]identity.RepoID, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		rid, err := identity.ParseRepoID(entry.Name())
		if err != nil {
			continue
		}
		ids = append(ids, rid)
	}
	sort.Slice(ids, func(i, j int) bool {
		return ids[i].Canonical() < ids[j].Canonical()
	})
	return ids, nil
}

func (s *Storage) repoPath(rid identity.RepoID) string {
	return filepath.Join(s.baseDir, rid.Canonical())
}
