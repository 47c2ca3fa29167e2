package gitrepo

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"seedhttpd/api/internal/identity"
)

const (
	IdentityRef  = plumbing.ReferenceName("refs/rad/id")
	IdentityFile = "radicle.json"
	ProjectKey   = "xyz.radicle.project"

	VisibilityPublic  = "public"
	VisibilityPrivate = "private"
)

type Project struct {
	Name          string `json:"name"`
	Description   string `json:"description"`
	DefaultBranch string `json:"defaultBranch"`
}

type Visibility struct {
	Type  string   `json:"type"`
	Allow []string `json:"allow,omitempty"`
}

// Doc is the identity document of a repository.
type Doc struct {
	Project
	Delegates  []identity.PublicKey
	Threshold  int
	Visibility Visibility
}

func (d Doc) Private() bool {
	return d.Visibility.Type == VisibilityPrivate
}

type rawDoc struct {
	Payload    map[string]json.RawMessage `json:"payload"`
	Delegates  []identity.PublicKey       `json:"delegates"`
	Threshold  int                        `json:"threshold"`
	Visibility *Visibility                `json:"visibility"`
}

// Identity loads the identity document at the current identity head.
func (r *Repository) Identity() (Doc, error) {
	ref, err := r.repo.Reference(IdentityRef, true)
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return Doc{}, fmt.Errorf("identity of %s: %w", r.id, ErrNotFound)
		}
		return Doc{}, fmt.Errorf("resolve identity ref: %w", err)
	}
	commit, err := r.commitObject(ref.Hash())
	if err != nil {
		return Doc{}, err
	}
	file, err := commit.File(IdentityFile)
	if errors.Is(err, object.ErrFileNotFound) {
		return Doc{}, fmt.Errorf("identity of %s has no %s: %w", r.id, IdentityFile, ErrNotFound)
	}
	if err != nil {
		return Doc{}, fmt.Errorf("load %s: %w", IdentityFile, err)
	}
	reader, err := file.Reader()
	if err != nil {
		return Doc{}, fmt.Errorf("open identity reader: %w", err)
	}
	defer reader.Close()

	payload, err := io.ReadAll(reader)
	if err != nil {
		return Doc{}, fmt.Errorf("read identity bytes: %w", err)
	}
	return decodeDoc(payload)
}

func decodeDoc(payload []byte) (Doc, error) {
	var raw rawDoc
	if err := json.Unmarshal(payload, &raw); err != nil {
		return Doc{}, fmt.Errorf("%w: %v", ErrInvalidDoc, err)
	}
	doc := Doc{
		Delegates:  raw.Delegates,
		Threshold:  raw.Threshold,
		Visibility: Visibility{Type: VisibilityPublic},
	}
	if raw.Visibility != nil {
		doc.Visibility = *raw.Visibility
	}
	if project, ok := raw.Payload[ProjectKey]; ok {
		if err := json.Unmarshal(project, &doc.Project); err != nil {
			return Doc{}, fmt.Errorf("%w: project payload: %v", ErrInvalidDoc, err)
		}
	}
	if doc.DefaultBranch == "" {
		return Doc{}, fmt.Errorf("%w: no default branch", ErrInvalidDoc)
	}
	return doc, nil
}
