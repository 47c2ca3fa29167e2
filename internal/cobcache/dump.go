package cobcache

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"seedhttpd/api/internal/cob"
	"seedhttpd/api/internal/identity"
)

// Dump is the loader input: the collaborative objects of one repository, in
// the order they should be listed.
type Dump struct {
	RID     identity.RepoID               `json:"rid"`
	Issues  []cob.Issue                   `json:"issues"`
	Patches []cob.Patch                   `json:"patches"`
	Aliases map[identity.PublicKey]string `json:"aliases,omitempty"`
}

type writer interface {
	PutIssue(ctx context.Context, rid identity.RepoID, issue cob.Issue) error
	PutPatch(ctx context.Context, rid identity.RepoID, patch cob.Patch) error
}

func DecodeDump(r io.Reader) (Dump, error) {
	var d Dump
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&d); err != nil {
		return Dump{}, fmt.Errorf("decode dump: %w", err)
	}
	if d.RID == (identity.RepoID{}) {
		return Dump{}, fmt.Errorf("decode dump: %w: missing rid", identity.ErrInvalid)
	}
	for i, issue := range d.Issues {
		if issue.ID == "" {
			return Dump{}, fmt.Errorf("decode dump: issue %d has no id", i)
		}
	}
	for i, patch := range d.Patches {
		if patch.ID == "" {
			return Dump{}, fmt.Errorf("decode dump: patch %d has no id", i)
		}
	}
	return d, nil
}

// Import writes every object of d. Objects already present keep their
// position.
func Import(ctx context.Context, w writer, d Dump) (issues, patches int, err error) {
	for _, issue := range d.Issues {
		if err := w.PutIssue(ctx, d.RID, issue); err != nil {
			return issues, patches, err
		}
		issues++
	}
	for _, patch := range d.Patches {
		if err := w.PutPatch(ctx, d.RID, patch); err != nil {
			return issues, patches, err
		}
		patches++
	}
	return issues, patches, nil
}
