package render

import (
	"encoding/base64"
	"strings"
	"unicode/utf8"

	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"
)

type Person struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type Committer struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Time  int64  `json:"time"`
}

type Commit struct {
	ID          string    `json:"id"`
	Author      Person    `json:"author"`
	Summary     string    `json:"summary"`
	Description string    `json:"description"`
	Parents     []string  `json:"parents"`
	Committer   Committer `json:"committer"`
}

type TreeEntry struct {
	Path string `json:"path"`
	Oid  string `json:"oid"`
	Name string `json:"name"`
	Kind string `json:"kind"`
}

type Tree struct {
	Entries    []TreeEntry `json:"entries"`
	LastCommit Commit      `json:"lastCommit"`
	Name       string      `json:"name"`
	Path       string      `json:"path"`
}

type Blob struct {
	Binary     bool   `json:"binary"`
	Name       string `json:"name"`
	Content    string `json:"content"`
	Path       string `json:"path"`
	LastCommit Commit `json:"lastCommit"`
}

const (
	KindTree      = "tree"
	KindBlob      = "blob"
	KindSubmodule = "submodule"
)

func CommitHeader(c *object.Commit) Commit {
	summary, rest, _ := strings.Cut(c.Message, "\n")
	parents := make([]string, 0, len(c.ParentHashes))
	for _, h := range c.ParentHashes {
		parents = append(parents, h.String())
	}
	return Commit{
		ID:          c.Hash.String(),
		Author:      Person{Name: c.Author.Name, Email: c.Author.Email},
		Summary:     strings.TrimSpace(summary),
		Description: strings.TrimSpace(rest),
		Parents:     parents,
		Committer: Committer{
			Name:  c.Committer.Name,
			Email: c.Committer.Email,
			Time:  c.Committer.When.Unix(),
		},
	}
}

// TreeView renders the entries of tree found at path, in stored order. Entry
// paths are a plain string join with no segment interpretation.
func TreeView(tree *object.Tree, lastCommit *object.Commit, path string) Tree {
	entries := make([]TreeEntry, 0, len(tree.Entries))
	for _, e := range tree.Entries {
		entries = append(entries, TreeEntry{
			Path: joinPath(path, e.Name),
			Oid:  e.Hash.String(),
			Name: e.Name,
			Kind: entryKind(e.Mode),
		})
	}
	return Tree{
		Entries:    entries,
		LastCommit: CommitHeader(lastCommit),
		Name:       nameInPath(path),
		Path:       path,
	}
}

// BlobView renders file content inline. Valid UTF-8 is returned as is, any
// other content is base64 encoded in full.
func BlobView(content []byte, binary bool, lastCommit *object.Commit, path string) Blob {
	return Blob{
		Binary:     binary,
		Name:       nameInPath(path),
		Content:    BlobContent(content),
		Path:       path,
		LastCommit: CommitHeader(lastCommit),
	}
}

func BlobContent(content []byte) string {
	if utf8.Valid(content) {
		return string(content)
	}
	return base64.StdEncoding.EncodeToString(content)
}

func entryKind(mode filemode.FileMode) string {
	switch mode {
	case filemode.Dir:
		return KindTree
	case filemode.Submodule:
		return KindSubmodule
	default:
		return KindBlob
	}
}

func joinPath(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "/" + name
}

func nameInPath(path string) string {
	if i := strings.LastIndex(path, "/"); i >= 0 {
		return path[i+1:]
	}
	return path
}
