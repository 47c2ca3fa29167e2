// Package alias resolves node ids to locally known display aliases.
package alias

import (
	"context"
	"fmt"
	"strings"

	"seedhttpd/api/internal/identity"
)

// Map is an immutable alias snapshot.
type Map map[identity.PublicKey]string

func (m Map) Alias(id identity.PublicKey) (string, bool) {
	alias, ok := m[id]
	return alias, ok && alias != ""
}

// ParseStatic reads "nid=alias" pairs separated by commas.
func ParseStatic(input string) (Map, error) {
	out := make(Map)
	for _, pair := range strings.Split(input, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		encoded, name, ok := strings.Cut(pair, "=")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("alias %q: expected nid=alias", pair)
		}
		nid, err := identity.ParsePublicKey(strings.TrimSpace(encoded))
		if err != nil {
			return nil, fmt.Errorf("alias %q: %w", pair, err)
		}
		out[nid] = strings.TrimSpace(name)
	}
	return out, nil
}

// Directory is a remote alias source, such as the node's address book.
type Directory interface {
	All(ctx context.Context) (Map, error)
}

// Resolver overlays static aliases on a directory.
type Resolver struct {
	static    Map
	directory Directory
}

func NewResolver(static Map, directory Directory) *Resolver {
	return &Resolver{static: static, directory: directory}
}

// Snapshot returns the aliases to use for one request. When the directory
// fails the static aliases are still returned together with the error.
func (r *Resolver) Snapshot(ctx context.Context) (Map, error) {
	out := make(Map, len(r.static))
	var dirErr error
	if r.directory != nil {
		remote, err := r.directory.All(ctx)
		if err != nil {
			dirErr = fmt.Errorf("load alias directory: %w", err)
		}
		for id, name := range remote {
			out[id] = name
		}
	}
	for id, name := range r.static {
		out[id] = name
	}
	return out, dirErr
}
