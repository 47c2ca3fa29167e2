package cob

import "seedhttpd/api/internal/identity"

const (
	IssueOpen   = "open"
	IssueClosed = "closed"
)

type IssueState struct {
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
}

// Issue is a materialized issue. Thread[0] is the opening comment.
type Issue struct {
	ID        string               `json:"id"`
	Title     string               `json:"title"`
	Author    identity.PublicKey   `json:"author"`
	State     IssueState           `json:"state"`
	Assignees []identity.PublicKey `json:"assignees,omitempty"`
	Labels    []string             `json:"labels,omitempty"`
	Thread    []Comment            `json:"thread"`
}
