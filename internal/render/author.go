// Package render projects stored objects into the JSON views served by the
// API. Every value is built fresh per call and shares nothing with its input.
package render

import "seedhttpd/api/internal/identity"

// Aliases looks up a locally known display alias for a node.
type Aliases interface {
	Alias(id identity.PublicKey) (string, bool)
}

// NoAliases resolves nothing.
type NoAliases struct{}

func (NoAliases) Alias(identity.PublicKey) (string, bool) { return "", false }

// Author is the display record of an actor. Without an alias it is exactly
// the canonical identity record.
type Author struct {
	ID    string `json:"id"`
	Alias string `json:"alias,omitempty"`
}

func author(id identity.PublicKey, aliases Aliases) Author {
	out := Author{ID: id.DID()}
	if aliases == nil {
		return out
	}
	if alias, ok := aliases.Alias(id); ok && alias != "" {
		out.Alias = alias
	}
	return out
}

func authors(ids []identity.PublicKey, aliases Aliases) []Author {
	out := make([]Author, 0, len(ids))
	for _, id := range ids {
		out = append(out, author(id, aliases))
	}
	return out
}
