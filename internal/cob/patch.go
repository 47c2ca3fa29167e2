package cob

import (
	"time"

	"seedhttpd/api/internal/identity"
)

const (
	PatchDraft    = "draft"
	PatchOpen     = "open"
	PatchArchived = "archived"
	PatchMerged   = "merged"
)

type PatchState struct {
	Status    string   `json:"status"`
	Revision  string   `json:"revision,omitempty"`
	Commit    string   `json:"commit,omitempty"`
	Conflicts []string `json:"conflicts,omitempty"`
}

type Patch struct {
	ID        string               `json:"id"`
	Title     string               `json:"title"`
	Author    identity.PublicKey   `json:"author"`
	State     PatchState           `json:"state"`
	Target    string               `json:"target"`
	Labels    []string             `json:"labels,omitempty"`
	Assignees []identity.PublicKey `json:"assignees,omitempty"`
	Revisions []Revision           `json:"revisions"`
	Merges    []Merge              `json:"merges,omitempty"`
}

// Revision is one proposed version of the patch, anchored by base and head.
type Revision struct {
	ID          string             `json:"id"`
	Author      identity.PublicKey `json:"author"`
	Description string             `json:"description"`
	Edits       []Edit             `json:"edits,omitempty"`
	Reactions   []Reaction         `json:"reactions,omitempty"`
	Base        string             `json:"base"`
	Head        string             `json:"head"`
	Timestamp   time.Time          `json:"timestamp"`
	Discussion  []Comment          `json:"discussion,omitempty"`
	Reviews     []Review           `json:"reviews,omitempty"`
}

type Review struct {
	ID        string             `json:"id"`
	Author    identity.PublicKey `json:"author"`
	Verdict   *string            `json:"verdict,omitempty"`
	Summary   *string            `json:"summary,omitempty"`
	Comments  []Comment          `json:"comments,omitempty"`
	Timestamp time.Time          `json:"timestamp"`
}

type Merge struct {
	Actor     identity.PublicKey `json:"actor"`
	Commit    string             `json:"commit"`
	Revision  string             `json:"revision"`
	Timestamp time.Time          `json:"timestamp"`
}
