// Package testkit builds on-disk repositories in node storage layout for
// tests: content-addressed objects written with go-git, namespaced remote
// refs and an identity document.
package testkit

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"

	"seedhttpd/api/internal/gitrepo"
	"seedhttpd/api/internal/identity"
)

var (
	AliceKey = identity.PublicKey{0x03, 0xa1, 0x07, 0xbf, 0xf3, 0xce, 0x10, 0xbe, 0x1d, 0x70, 0xdd, 0x18, 0xe7, 0x4b, 0xc0, 0x99, 0x67, 0xe4, 0xd6, 0x30, 0x9b, 0xa5, 0x0d, 0x5f, 0x1d, 0xdc, 0x86, 0x64, 0x12, 0x55, 0x31, 0xb8}
	BobKey   = identity.PublicKey{0xb0, 0xb0}

	// Epoch is the author and committer time of every fixture commit, so
	// object ids are stable across runs.
	Epoch = time.Unix(1673001014, 0).UTC()
)

func Signature() object.Signature {
	return object.Signature{Name: "Alice Liddell", Email: "alice@radicle.xyz", When: Epoch}
}

// Storage is a temporary storage directory.
type Storage struct {
	t   testing.TB
	Dir string
}

func NewStorage(t testing.TB) *Storage {
	t.Helper()
	return &Storage{t: t, Dir: t.TempDir()}
}

func (s *Storage) Open() *gitrepo.Storage {
	return gitrepo.New(s.Dir)
}

// Repo is a bare repository under construction.
type Repo struct {
	t    testing.TB
	RID  identity.RepoID
	Path string
	repo *git.Repository
}

func (s *Storage) Repo(rid identity.RepoID) *Repo {
	s.t.Helper()
	path := filepath.Join(s.Dir, rid.Canonical())
	if err := os.MkdirAll(path, 0o755); err != nil {
		s.t.Fatalf("create repo dir: %v", err)
	}
	repo, err := git.PlainInit(path, true)
	if err != nil {
		s.t.Fatalf("init repo: %v", err)
	}
	return &Repo{t: s.t, RID: rid, Path: path, repo: repo}
}

// Commit writes files as the complete tree of a new commit. Paths use "/" to
// nest directories.
func (r *Repo) Commit(message string, files map[string][]byte, parents ...plumbing.Hash) plumbing.Hash {
	r.t.Helper()
	commit := &object.Commit{
		Author:       Signature(),
		Committer:    Signature(),
		Message:      message,
		TreeHash:     r.writeTree(files),
		ParentHashes: parents,
	}
	obj := r.repo.Storer.NewEncodedObject()
	if err := commit.Encode(obj); err != nil {
		r.t.Fatalf("encode commit: %v", err)
	}
	return r.store(obj)
}

// Ref points name at hash.
func (r *Repo) Ref(name string, hash plumbing.Hash) {
	r.t.Helper()
	if err := r.repo.Storer.SetReference(plumbing.NewHashReference(plumbing.ReferenceName(name), hash)); err != nil {
		r.t.Fatalf("set ref %s: %v", name, err)
	}
}

// RemoteRef points name inside the namespace of nid at hash.
func (r *Repo) RemoteRef(nid identity.PublicKey, name string, hash plumbing.Hash) {
	r.t.Helper()
	r.Ref("refs/namespaces/"+nid.String()+"/"+name, hash)
}

type Doc struct {
	Name          string
	Description   string
	DefaultBranch string
	Delegates     []identity.PublicKey
	Private       bool
}

// Identity commits doc as the repository identity and points refs/rad/id at it.
func (r *Repo) Identity(doc Doc) plumbing.Hash {
	r.t.Helper()
	delegates := make([]string, 0, len(doc.Delegates))
	for _, d := range doc.Delegates {
		delegates = append(delegates, d.DID())
	}
	raw := map[string]any{
		"payload": map[string]any{
			gitrepo.ProjectKey: map[string]any{
				"name":          doc.Name,
				"description":   doc.Description,
				"defaultBranch": doc.DefaultBranch,
			},
		},
		"delegates": delegates,
		"threshold": 1,
	}
	if doc.Private {
		raw["visibility"] = map[string]any{"type": gitrepo.VisibilityPrivate}
	}
	payload, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		r.t.Fatalf("marshal identity doc: %v", err)
	}
	hash := r.Commit("Initialize identity", map[string][]byte{gitrepo.IdentityFile: payload})
	r.Ref(gitrepo.IdentityRef.String(), hash)
	return hash
}

func (r *Repo) writeBlob(content []byte) plumbing.Hash {
	obj := r.repo.Storer.NewEncodedObject()
	obj.SetType(plumbing.BlobObject)
	obj.SetSize(int64(len(content)))
	w, err := obj.Writer()
	if err != nil {
		r.t.Fatalf("open blob writer: %v", err)
	}
	if _, err := w.Write(content); err != nil {
		r.t.Fatalf("write blob: %v", err)
	}
	if err := w.Close(); err != nil {
		r.t.Fatalf("close blob writer: %v", err)
	}
	return r.store(obj)
}

func (r *Repo) writeTree(files map[string][]byte) plumbing.Hash {
	entries := make([]object.TreeEntry, 0, len(files))
	dirs := make(map[string]map[string][]byte)
	for path, content := range files {
		head, rest, nested := strings.Cut(path, "/")
		if !nested {
			entries = append(entries, object.TreeEntry{Name: head, Mode: filemode.Regular, Hash: r.writeBlob(content)})
			continue
		}
		if dirs[head] == nil {
			dirs[head] = make(map[string][]byte)
		}
		dirs[head][rest] = content
	}
	for name, sub := range dirs {
		entries = append(entries, object.TreeEntry{Name: name, Mode: filemode.Dir, Hash: r.writeTree(sub)})
	}
	// git orders directories as if their name ended in "/".
	sort.Slice(entries, func(i, j int) bool {
		return sortName(entries[i]) < sortName(entries[j])
	})

	obj := r.repo.Storer.NewEncodedObject()
	if err := (&object.Tree{Entries: entries}).Encode(obj); err != nil {
		r.t.Fatalf("encode tree: %v", err)
	}
	return r.store(obj)
}

func (r *Repo) store(obj plumbing.EncodedObject) plumbing.Hash {
	hash, err := r.repo.Storer.SetEncodedObject(obj)
	if err != nil {
		r.t.Fatalf("store object: %v", err)
	}
	return hash
}

func sortName(e object.TreeEntry) string {
	if e.Mode == filemode.Dir {
		return e.Name + "/"
	}
	return e.Name
}
