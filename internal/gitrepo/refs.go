package gitrepo

import (
	"fmt"
	"sort"
	"strings"

	"github.com/go-git/go-git/v5/plumbing"

	"seedhttpd/api/internal/identity"
)

const sigrefs = "refs/rad/sigrefs"

type Ref struct {
	Name string `json:"name"`
	Oid  string `json:"oid"`
}

func namespace(nid identity.PublicKey) string {
	return "refs/namespaces/" + nid.String() + "/"
}

func namespaced(nid identity.PublicKey, name plumbing.ReferenceName) plumbing.ReferenceName {
	return plumbing.ReferenceName(namespace(nid) + name.String())
}

// RemoteRefs lists the refs of a node's copy of the repository with the
// namespace stripped, sorted by name. A node without refs has no remote.
func (r *Repository) RemoteRefs(nid identity.PublicKey) ([]Ref, error) {
	iter, err := r.repo.References()
	if err != nil {
		return nil, fmt.Errorf("list references: %w", err)
	}
	defer iter.Close()

	prefix := namespace(nid)
	refs := make([]Ref, 0)
	err = iter.ForEach(func(ref *plumbing.Reference) error {
		name, ok := strings.CutPrefix(ref.Name().String(), prefix)
		if !ok || name == sigrefs || ref.Type() != plumbing.HashReference {
			return nil
		}
		refs = append(refs, Ref{Name: name, Oid: ref.Hash().String()})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("iterate references: %w", err)
	}
	if len(refs) == 0 {
		return nil, fmt.Errorf("remote %s: %w", nid, ErrNotFound)
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i].Name < refs[j].Name })
	return refs, nil
}

// Remotes lists the nodes that have a copy of the repository.
func (r *Repository) Remotes() ([]identity.PublicKey, error) {
	iter, err := r.repo.References()
	if err != nil {
		return nil, fmt.Errorf("list references: %w", err)
	}
	defer iter.Close()

	seen := make(map[identity.PublicKey]struct{})
	remotes := make([]identity.PublicKey, 0)
	err = iter.ForEach(func(ref *plumbing.Reference) error {
		rest, ok := strings.CutPrefix(ref.Name().String(), "refs/namespaces/")
		if !ok {
			return nil
		}
		encoded, _, _ := strings.Cut(rest, "/")
		nid, err := identity.ParsePublicKey(encoded)
		if err != nil {
			return nil
		}
		if _, dup := seen[nid]; dup {
			return nil
		}
		seen[nid] = struct{}{}
		remotes = append(remotes, nid)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("iterate references: %w", err)
	}
	sort.Slice(remotes, func(i, j int) bool { return remotes[i].String() < remotes[j].String() })
	return remotes, nil
}

// RefsAt returns the names of the remote's refs pointing at oid.
func (r *Repository) RefsAt(remote identity.PublicKey, oid string) ([]string, error) {
	refs, err := r.RemoteRefs(remote)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0)
	for _, ref := range refs {
		if ref.Oid == oid {
			names = append(names, ref.Name)
		}
	}
	return names, nil
}
