package render

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"seedhttpd/api/internal/cob"
	"seedhttpd/api/internal/identity"
)

var (
	alice = identity.PublicKey{1}
	bob   = identity.PublicKey{2}
)

type aliasMap map[identity.PublicKey]string

func (m aliasMap) Alias(id identity.PublicKey) (string, bool) {
	alias, ok := m[id]
	return alias, ok
}

type fakeRefs struct {
	refsAtFn func(identity.PublicKey, string) ([]string, error)
}

func (f *fakeRefs) RefsAt(remote identity.PublicKey, oid string) ([]string, error) {
	if f.refsAtFn != nil {
		return f.refsAtFn(remote, oid)
	}
	return nil, nil
}

func at(sec int64) time.Time { return time.Unix(sec, 0).UTC() }

func sampleIssue() cob.Issue {
	reply := "c1"
	return cob.Issue{
		ID:        "d87dcfe8c2b3200e78b128d9b959cfdf7063fefe",
		Title:     "Flux capacitor underpowered",
		Author:    alice,
		State:     cob.IssueState{Status: cob.IssueOpen},
		Assignees: []identity.PublicKey{bob},
		Labels:    []string{"bug"},
		Thread: []cob.Comment{
			{
				ID:        "c1",
				Author:    alice,
				Body:      "Flux capacitor power requirements exceed current supply",
				Timestamp: at(1673001014),
				Reactions: []cob.Reaction{
					{Author: alice, Emoji: "👍"},
					{Author: bob, Emoji: "👍"},
					{Author: alice, Emoji: "🎉"},
				},
			},
			{
				ID:        "c2",
				Author:    bob,
				Body:      "Use a plutonium battery",
				Timestamp: at(1673001100),
				ReplyTo:   &reply,
				Edits: []cob.Edit{
					{Author: bob, Body: "Use a plutonium battery", Timestamp: at(1673001100)},
				},
			},
		},
	}
}

func TestGroupReactionsOrdersByEmoji(t *testing.T) {
	got := groupReactions([]cob.Reaction{
		{Author: alice, Emoji: "👍"},
		{Author: bob, Emoji: "👍"},
		{Author: alice, Emoji: "🎉"},
	}, nil, NoAliases{})

	if len(got) != 2 {
		t.Fatalf("expected 2 groups, got %d: %+v", len(got), got)
	}
	if got[0].Emoji != "🎉" || len(got[0].Authors) != 1 || got[0].Authors[0].ID != alice.DID() {
		t.Fatalf("unexpected first group: %+v", got[0])
	}
	if got[1].Emoji != "👍" || len(got[1].Authors) != 2 {
		t.Fatalf("unexpected second group: %+v", got[1])
	}
	if got[1].Authors[0].ID != alice.DID() || got[1].Authors[1].ID != bob.DID() {
		t.Fatalf("expected encounter order of authors, got %+v", got[1].Authors)
	}
}

func TestGroupReactionsKeepsDuplicates(t *testing.T) {
	got := groupReactions([]cob.Reaction{
		{Author: alice, Emoji: "🚀"},
		{Author: alice, Emoji: "🚀"},
	}, nil, NoAliases{})
	if len(got) != 1 || len(got[0].Authors) != 2 {
		t.Fatalf("expected duplicate authors preserved, got %+v", got)
	}
}

func TestLocatedReactionsPutsUnanchoredFirst(t *testing.T) {
	loc := &cob.CodeLocation{Commit: "a", Path: "README"}
	got := locatedReactions([]cob.Reaction{
		{Author: alice, Emoji: "👀", Location: loc},
		{Author: bob, Emoji: "👍"},
	}, NoAliases{})

	if len(got) != 2 {
		t.Fatalf("expected 2 groups, got %+v", got)
	}
	if got[0].Location != nil || got[0].Emoji != "👍" {
		t.Fatalf("expected unanchored group first, got %+v", got[0])
	}
	if got[1].Location == nil || got[1].Location.Path != "README" {
		t.Fatalf("expected located group second, got %+v", got[1])
	}
}

func TestLocatedReactionsOrderLinesNumerically(t *testing.T) {
	line := func(start int) *cob.CodeLocation {
		return &cob.CodeLocation{
			Commit: "a",
			Path:   "main.go",
			New:    &cob.CodeRange{Type: cob.RangeLines, Range: cob.Span{Start: start, End: start + 1}},
		}
	}
	got := locatedReactions([]cob.Reaction{
		{Author: alice, Emoji: "👍", Location: line(10)},
		{Author: bob, Emoji: "👍", Location: line(9)},
		{Author: bob, Emoji: "🎉", Location: line(10)},
	}, NoAliases{})

	if len(got) != 3 {
		t.Fatalf("expected 3 groups, got %+v", got)
	}
	if got[0].Location.New.Range.Start != 9 {
		t.Fatalf("expected line 9 first, got %d", got[0].Location.New.Range.Start)
	}
	if got[1].Emoji != "🎉" || got[2].Emoji != "👍" || got[2].Location.New.Range.Start != 10 {
		t.Fatalf("expected line 10 groups in emoji order, got %+v %+v", got[1], got[2])
	}
}

func TestAuthorAliasOverlay(t *testing.T) {
	withAlias, err := json.Marshal(NewProjector(aliasMap{alice: "alice"}).Author(alice))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	without, err := json.Marshal(NewProjector(nil).Author(alice))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	want := `{"id":"` + alice.DID() + `","alias":"alice"}`
	if string(withAlias) != want {
		t.Fatalf("got %s, want %s", withAlias, want)
	}
	if string(without) != `{"id":"`+alice.DID()+`"}` {
		t.Fatalf("unexpected canonical record %s", without)
	}
}

func TestIssueProjectionIsIdempotent(t *testing.T) {
	p := NewProjector(aliasMap{alice: "alice"})
	issue := sampleIssue()

	first, err := json.Marshal(p.Issue(issue))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	second, err := json.Marshal(p.Issue(issue))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Fatalf("projection not reproducible:\n%s\n%s", first, second)
	}
}

func TestIssueProjectionShape(t *testing.T) {
	raw, err := json.Marshal(NewProjector(aliasMap{alice: "alice"}).Issue(sampleIssue()))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var got map[string]any
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	for _, key := range []string{"id", "author", "title", "state", "assignees", "discussion", "labels"} {
		if _, ok := got[key]; !ok {
			t.Fatalf("missing key %q in %s", key, raw)
		}
	}
	discussion := got["discussion"].([]any)
	first := discussion[0].(map[string]any)
	if _, ok := first["location"]; ok {
		t.Fatalf("issue comments must not carry a location: %s", raw)
	}
	if first["replyTo"] != nil {
		t.Fatalf("expected null replyTo, got %v", first["replyTo"])
	}
	if first["timestamp"].(float64) != 1673001014 {
		t.Fatalf("expected unix seconds, got %v", first["timestamp"])
	}
	if edits := first["edits"].([]any); len(edits) != 0 {
		t.Fatalf("expected empty edits, got %v", edits)
	}
	reactions := first["reactions"].([]any)
	if reactions[0].(map[string]any)["emoji"] != "🎉" {
		t.Fatalf("unexpected reaction order: %v", reactions)
	}
	second := discussion[1].(map[string]any)
	if second["replyTo"] != "c1" {
		t.Fatalf("expected replyTo c1, got %v", second["replyTo"])
	}
	author := second["author"].(map[string]any)
	if _, ok := author["alias"]; ok {
		t.Fatalf("bob has no alias: %v", author)
	}
}

func samplePatch() cob.Patch {
	verdict := "accept"
	loc := &cob.CodeLocation{Commit: "3e674d1a1df90807e934f9ae5da2591dd6848a33", Path: "main.go"}
	return cob.Patch{
		ID:     "a1b2",
		Title:  "Add flux",
		Author: alice,
		State:  cob.PatchState{Status: cob.PatchMerged, Revision: "r1", Commit: "cafe"},
		Target: "delegates",
		Revisions: []cob.Revision{{
			ID:          "r1",
			Author:      alice,
			Description: "First try",
			Base:        "ee8d6a29304623a78ebfa5eeed5af674d0e58f83",
			Head:        "3e674d1a1df90807e934f9ae5da2591dd6848a33",
			Timestamp:   at(1673001200),
			Discussion: []cob.Comment{
				{ID: "d1", Author: bob, Body: "Looks fine", Timestamp: at(1673001300), Location: loc},
			},
			Reviews: []cob.Review{
				{ID: "v1", Author: bob, Verdict: &verdict, Timestamp: at(1673001400)},
			},
		}},
		Merges: []cob.Merge{
			{Actor: bob, Commit: "cafe", Revision: "r1", Timestamp: at(1673001500)},
		},
	}
}

func TestPatchProjectionRefs(t *testing.T) {
	var gotRemote identity.PublicKey
	refs := &fakeRefs{refsAtFn: func(remote identity.PublicKey, oid string) ([]string, error) {
		gotRemote = remote
		if oid != "3e674d1a1df90807e934f9ae5da2591dd6848a33" {
			t.Fatalf("unexpected oid %s", oid)
		}
		return []string{"refs/heads/patches/a1b2"}, nil
	}}

	got := NewProjector(nil).Patch(samplePatch(), refs)
	if gotRemote != alice {
		t.Fatalf("expected lookup against patch author remote")
	}
	rev := got.Revisions[0]
	if len(rev.Refs) != 1 || rev.Refs[0] != "refs/heads/patches/a1b2" {
		t.Fatalf("unexpected refs %v", rev.Refs)
	}
	if rev.Oid != "3e674d1a1df90807e934f9ae5da2591dd6848a33" {
		t.Fatalf("unexpected oid %s", rev.Oid)
	}
	if len(rev.Reviews) != 1 || *rev.Reviews[0].Verdict != "accept" {
		t.Fatalf("unexpected reviews %+v", rev.Reviews)
	}
	if len(got.Merges) != 1 || got.Merges[0].Author.ID != bob.DID() || got.Merges[0].Timestamp != 1673001500 {
		t.Fatalf("unexpected merges %+v", got.Merges)
	}
}

func TestPatchProjectionMissingRemoteYieldsEmptyRefs(t *testing.T) {
	refs := &fakeRefs{refsAtFn: func(identity.PublicKey, string) ([]string, error) {
		return nil, errors.New("remote not found")
	}}

	raw, err := json.Marshal(NewProjector(nil).Patch(samplePatch(), refs))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !bytes.Contains(raw, []byte(`"refs":[]`)) {
		t.Fatalf("expected empty refs, got %s", raw)
	}
	if !bytes.Contains(raw, []byte(`"labels":[]`)) || !bytes.Contains(raw, []byte(`"assignees":[]`)) {
		t.Fatalf("expected empty lists rather than null, got %s", raw)
	}
}

func TestPatchCommentsCarryLocation(t *testing.T) {
	raw, err := json.Marshal(NewProjector(nil).Patch(samplePatch(), nil))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var got struct {
		Revisions []struct {
			Discussions []map[string]any `json:"discussions"`
			Reviews     []struct {
				Summary *string `json:"summary"`
			} `json:"reviews"`
		} `json:"revisions"`
	}
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	location, ok := got.Revisions[0].Discussions[0]["location"].(map[string]any)
	if !ok || location["path"] != "main.go" {
		t.Fatalf("expected discussion location, got %s", raw)
	}
	if got.Revisions[0].Reviews[0].Summary != nil {
		t.Fatalf("expected null summary")
	}
}
