// Package cob holds the materialized collaborative objects (issues and
// patches) read from storage. Values are owned by the store and only read by
// this service.
package cob

import (
	"context"
	"errors"
	"time"

	"seedhttpd/api/internal/identity"
)

const (
	TypeIssue = "xyz.radicle.issue"
	TypePatch = "xyz.radicle.patch"
)

var ErrNotFound = errors.New("collaborative object not found")

// Store is the read side of the collaborative object machinery. Listing
// methods return objects in the store's own order.
type Store interface {
	Issue(ctx context.Context, rid identity.RepoID, id string) (Issue, error)
	Patch(ctx context.Context, rid identity.RepoID, id string) (Patch, error)
	Issues(ctx context.Context, rid identity.RepoID) ([]Issue, error)
	Patches(ctx context.Context, rid identity.RepoID) ([]Patch, error)
	// Counts returns the number of objects of kind per state status.
	Counts(ctx context.Context, rid identity.RepoID, kind string) (map[string]int, error)
}

// Embed is an attachment reference carried verbatim.
type Embed struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

type Edit struct {
	Author    identity.PublicKey `json:"author"`
	Body      string             `json:"body"`
	Timestamp time.Time          `json:"timestamp"`
	Embeds    []Embed            `json:"embeds,omitempty"`
}

// Reaction is a single (author, emoji) pair, optionally anchored to a code
// location. Duplicates are kept as the store returns them.
type Reaction struct {
	Author   identity.PublicKey `json:"author"`
	Emoji    string             `json:"emoji"`
	Location *CodeLocation      `json:"location,omitempty"`
}

type Comment struct {
	ID        string             `json:"id"`
	Author    identity.PublicKey `json:"author"`
	Body      string             `json:"body"`
	Timestamp time.Time          `json:"timestamp"`
	Edits     []Edit             `json:"edits,omitempty"`
	Embeds    []Embed            `json:"embeds,omitempty"`
	Reactions []Reaction         `json:"reactions,omitempty"`
	ReplyTo   *string            `json:"replyTo,omitempty"`
	Resolved  bool               `json:"resolved,omitempty"`
	// Location is only set on patch discussion and review comments.
	Location *CodeLocation `json:"location,omitempty"`
}
