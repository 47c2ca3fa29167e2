package render

import (
	"seedhttpd/api/internal/cob"
	"seedhttpd/api/internal/identity"
)

type Edit struct {
	Author    Author      `json:"author"`
	Body      string      `json:"body"`
	Timestamp int64       `json:"timestamp"`
	Embeds    []cob.Embed `json:"embeds"`
}

// Comment is the shape shared by issue comments, patch discussion and review
// comments.
type Comment struct {
	ID        string      `json:"id"`
	Author    Author      `json:"author"`
	Body      string      `json:"body"`
	Edits     []Edit      `json:"edits"`
	Embeds    []cob.Embed `json:"embeds"`
	Reactions []Reaction  `json:"reactions"`
	Timestamp int64       `json:"timestamp"`
	ReplyTo   *string     `json:"replyTo"`
	Resolved  bool        `json:"resolved"`
}

// LocatedComment is a Comment in a context that can anchor it to code. The
// location is always present in the output, null when unanchored.
type LocatedComment struct {
	Comment
	Location *cob.CodeLocation `json:"location"`
}

type Issue struct {
	ID         string         `json:"id"`
	Author     Author         `json:"author"`
	Title      string         `json:"title"`
	State      cob.IssueState `json:"state"`
	Assignees  []Author       `json:"assignees"`
	Discussion []Comment      `json:"discussion"`
	Labels     []string       `json:"labels"`
}

type Patch struct {
	ID        string         `json:"id"`
	Author    Author         `json:"author"`
	Title     string         `json:"title"`
	State     cob.PatchState `json:"state"`
	Target    string         `json:"target"`
	Labels    []string       `json:"labels"`
	Merges    []Merge        `json:"merges"`
	Assignees []Author       `json:"assignees"`
	Revisions []Revision     `json:"revisions"`
}

type Revision struct {
	ID          string           `json:"id"`
	Author      Author           `json:"author"`
	Description string           `json:"description"`
	Edits       []Edit           `json:"edits"`
	Reactions   []Reaction       `json:"reactions"`
	Base        string           `json:"base"`
	Oid         string           `json:"oid"`
	Refs        []string         `json:"refs"`
	Discussions []LocatedComment `json:"discussions"`
	Timestamp   int64            `json:"timestamp"`
	Reviews     []Review         `json:"reviews"`
}

type Review struct {
	ID        string           `json:"id"`
	Author    Author           `json:"author"`
	Verdict   *string          `json:"verdict"`
	Summary   *string          `json:"summary"`
	Comments  []LocatedComment `json:"comments"`
	Timestamp int64            `json:"timestamp"`
}

type Merge struct {
	Author    Author `json:"author"`
	Commit    string `json:"commit"`
	Timestamp int64  `json:"timestamp"`
	Revision  string `json:"revision"`
}

// RefLister finds the refs of a node's remote that point at a commit.
type RefLister interface {
	RefsAt(remote identity.PublicKey, oid string) ([]string, error)
}

// Projector renders collaborative objects with a fixed alias snapshot.
type Projector struct {
	aliases Aliases
}

func NewProjector(aliases Aliases) *Projector {
	if aliases == nil {
		aliases = NoAliases{}
	}
	return &Projector{aliases: aliases}
}

func (p *Projector) Author(id identity.PublicKey) Author {
	return author(id, p.aliases)
}

func (p *Projector) Issue(issue cob.Issue) Issue {
	discussion := make([]Comment, 0, len(issue.Thread))
	for _, c := range issue.Thread {
		discussion = append(discussion, p.comment(c))
	}
	return Issue{
		ID:         issue.ID,
		Author:     p.Author(issue.Author),
		Title:      issue.Title,
		State:      issue.State,
		Assignees:  authors(issue.Assignees, p.aliases),
		Discussion: discussion,
		Labels:     cloneStrings(issue.Labels),
	}
}

// Patch renders a patch. Revision refs are looked up live through refs; a
// lookup failure or a missing remote yields an empty list.
func (p *Projector) Patch(patch cob.Patch, refs RefLister) Patch {
	merges := make([]Merge, 0, len(patch.Merges))
	for _, m := range patch.Merges {
		merges = append(merges, Merge{
			Author:    p.Author(m.Actor),
			Commit:    m.Commit,
			Timestamp: m.Timestamp.Unix(),
			Revision:  m.Revision,
		})
	}
	revisions := make([]Revision, 0, len(patch.Revisions))
	for _, rev := range patch.Revisions {
		revisions = append(revisions, p.revision(patch.Author, rev, refs))
	}
	return Patch{
		ID:        patch.ID,
		Author:    p.Author(patch.Author),
		Title:     patch.Title,
		State:     patch.State,
		Target:    patch.Target,
		Labels:    cloneStrings(patch.Labels),
		Merges:    merges,
		Assignees: authors(patch.Assignees, p.aliases),
		Revisions: revisions,
	}
}

func (p *Projector) revision(patchAuthor identity.PublicKey, rev cob.Revision, refs RefLister) Revision {
	discussions := make([]LocatedComment, 0, len(rev.Discussion))
	for _, c := range rev.Discussion {
		discussions = append(discussions, p.locatedComment(c))
	}
	reviews := make([]Review, 0, len(rev.Reviews))
	for _, r := range rev.Reviews {
		reviews = append(reviews, p.review(r))
	}
	return Revision{
		ID:          rev.ID,
		Author:      p.Author(rev.Author),
		Description: rev.Description,
		Edits:       p.edits(rev.Edits),
		Reactions:   locatedReactions(rev.Reactions, p.aliases),
		Base:        rev.Base,
		Oid:         rev.Head,
		Refs:        liveRefs(refs, patchAuthor, rev.Head),
		Discussions: discussions,
		Timestamp:   rev.Timestamp.Unix(),
		Reviews:     reviews,
	}
}

func (p *Projector) review(r cob.Review) Review {
	comments := make([]LocatedComment, 0, len(r.Comments))
	for _, c := range r.Comments {
		comments = append(comments, p.locatedComment(c))
	}
	return Review{
		ID:        r.ID,
		Author:    p.Author(r.Author),
		Verdict:   r.Verdict,
		Summary:   r.Summary,
		Comments:  comments,
		Timestamp: r.Timestamp.Unix(),
	}
}

func (p *Projector) comment(c cob.Comment) Comment {
	return Comment{
		ID:        c.ID,
		Author:    p.Author(c.Author),
		Body:      c.Body,
		Edits:     p.edits(c.Edits),
		Embeds:    embeds(c.Embeds),
		Reactions: groupReactions(c.Reactions, nil, p.aliases),
		Timestamp: c.Timestamp.Unix(),
		ReplyTo:   c.ReplyTo,
		Resolved:  c.Resolved,
	}
}

func (p *Projector) locatedComment(c cob.Comment) LocatedComment {
	return LocatedComment{Comment: p.comment(c), Location: c.Location}
}

func (p *Projector) edits(edits []cob.Edit) []Edit {
	out := make([]Edit, 0, len(edits))
	for _, e := range edits {
		out = append(out, Edit{
			Author:    p.Author(e.Author),
			Body:      e.Body,
			Timestamp: e.Timestamp.Unix(),
			Embeds:    embeds(e.Embeds),
		})
	}
	return out
}

func liveRefs(refs RefLister, remote identity.PublicKey, oid string) []string {
	if refs == nil {
		return []string{}
	}
	names, err := refs.RefsAt(remote, oid)
	if err != nil || names == nil {
		return []string{}
	}
	return names
}

func embeds(in []cob.Embed) []cob.Embed {
	out := make([]cob.Embed, len(in))
	copy(out, in)
	return out
}

func cloneStrings(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	return out
}
