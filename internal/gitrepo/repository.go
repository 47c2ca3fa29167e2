package gitrepo

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/utils/binary"

	"seedhttpd/api/internal/identity"
)

var hexOid = regexp.MustCompile(`^[0-9a-f]{4,40}$`)

type Repository struct {
	id   identity.RepoID
	repo *git.Repository
}

func (r *Repository) ID() identity.RepoID {
	return r.id
}

// Head resolves the canonical head: the default branch at the top level, or
// failing that the first delegate's copy of it.
func (r *Repository) Head() (*object.Commit, error) {
	doc, err := r.Identity()
	if err != nil {
		return nil, err
	}
	candidates := []plumbing.ReferenceName{plumbing.NewBranchReferenceName(doc.DefaultBranch)}
	if len(doc.Delegates) > 0 {
		candidates = append(candidates, namespaced(doc.Delegates[0], plumbing.NewBranchReferenceName(doc.DefaultBranch)))
	}
	for _, name := range candidates {
		ref, err := r.repo.Reference(name, true)
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("resolve %s: %w", name, err)
		}
		return r.commitObject(ref.Hash())
	}
	return nil, fmt.Errorf("canonical head of %s: %w", r.id, ErrNotFound)
}

// Commit looks up a commit by full or abbreviated id.
func (r *Repository) Commit(sha string) (*object.Commit, error) {
	if !hexOid.MatchString(sha) {
		return nil, fmt.Errorf("commit %q: %w", sha, ErrInvalidRef)
	}
	if len(sha) == 40 {
		return r.commitObject(plumbing.NewHash(sha))
	}
	resolved, err := r.repo.ResolveRevision(plumbing.Revision(sha))
	if err != nil {
		return nil, fmt.Errorf("resolve commit %s: %w", sha, ErrNotFound)
	}
	return r.commitObject(*resolved)
}

func (r *Repository) commitObject(hash plumbing.Hash) (*object.Commit, error) {
	commit, err := r.repo.CommitObject(hash)
	if err != nil {
		if errors.Is(err, plumbing.ErrObjectNotFound) {
			return nil, fmt.Errorf("commit %s: %w", hash, ErrNotFound)
		}
		return nil, fmt.Errorf("read commit %s: %w", hash, err)
	}
	return commit, nil
}

// Tree returns the directory at path in commit. An empty path is the root.
func (r *Repository) Tree(commit *object.Commit, path string) (*object.Tree, error) {
	root, err := commit.Tree()
	if err != nil {
		return nil, fmt.Errorf("load root tree: %w", err)
	}
	path = strings.Trim(path, "/")
	if path == "" {
		return root, nil
	}
	entry, err := root.FindEntry(path)
	if err != nil || entry.Mode != filemode.Dir {
		return nil, fmt.Errorf("tree %s: %w", path, ErrNotFound)
	}
	tree, err := r.repo.TreeObject(entry.Hash)
	if err != nil {
		return nil, fmt.Errorf("load tree %s: %w", path, err)
	}
	return tree, nil
}

// File returns the blob at path in commit without reading its content.
func (r *Repository) File(commit *object.Commit, path string) (*object.File, error) {
	file, err := commit.File(strings.Trim(path, "/"))
	if err != nil {
		if errors.Is(err, object.ErrFileNotFound) || errors.Is(err, object.ErrDirectoryNotFound) || errors.Is(err, object.ErrEntryNotFound) {
			return nil, fmt.Errorf("file %s: %w", path, ErrNotFound)
		}
		return nil, fmt.Errorf("load file %s: %w", path, err)
	}
	return file, nil
}

// Blob looks up a blob by its own object id.
func (r *Repository) Blob(oid string) (*object.Blob, error) {
	if !hexOid.MatchString(oid) || len(oid) != 40 {
		return nil, fmt.Errorf("blob %q: %w", oid, ErrInvalidRef)
	}
	blob, err := r.repo.BlobObject(plumbing.NewHash(oid))
	if err != nil {
		if errors.Is(err, plumbing.ErrObjectNotFound) {
			return nil, fmt.Errorf("blob %s: %w", oid, ErrNotFound)
		}
		return nil, fmt.Errorf("read blob %s: %w", oid, err)
	}
	return blob, nil
}

// LastCommit finds the most recent commit reachable from commit that touched
// path. The commit itself is returned for the root.
func (r *Repository) LastCommit(commit *object.Commit, path string) (*object.Commit, error) {
	path = strings.Trim(path, "/")
	if path == "" {
		return commit, nil
	}
	iter, err := r.repo.Log(&git.LogOptions{
		From: commit.Hash,
		PathFilter: func(p string) bool {
			return p == path || strings.HasPrefix(p, path+"/")
		},
	})
	if err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}
	defer iter.Close()

	last, err := iter.Next()
	if errors.Is(err, io.EOF) {
		return commit, nil
	}
	if err != nil {
		return nil, fmt.Errorf("iterate log: %w", err)
	}
	return last, nil
}

// ReadBlob reads the full content of blob and classifies it as binary the way
// git does.
func ReadBlob(blob *object.Blob) ([]byte, bool, error) {
	reader, err := blob.Reader()
	if err != nil {
		return nil, false, fmt.Errorf("open blob reader: %w", err)
	}
	defer reader.Close()

	content, err := io.ReadAll(reader)
	if err != nil {
		return nil, false, fmt.Errorf("read blob bytes: %w", err)
	}
	isBinary, err := binary.IsBinary(bytes.NewReader(content))
	if err != nil {
		return nil, false, fmt.Errorf("classify blob: %w", err)
	}
	return content, isBinary, nil
}
