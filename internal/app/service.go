package app

import (
	"context"
	"errors"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/object"

	"seedhttpd/api/internal/alias"
	"seedhttpd/api/internal/cob"
	"seedhttpd/api/internal/config"
	"seedhttpd/api/internal/gitrepo"
	"seedhttpd/api/internal/identity"
	"seedhttpd/api/internal/logger"
	"seedhttpd/api/internal/render"
)

type aliasSource interface {
	Snapshot(ctx context.Context) (alias.Map, error)
}

type pinger interface {
	Ping(ctx context.Context) error
}

type Service struct {
	cfg     config.Config
	storage *gitrepo.Storage
	cobs    cob.Store
	aliases aliasSource
}

func New(cfg config.Config, storage *gitrepo.Storage, cobs cob.Store, aliases aliasSource) *Service {
	return &Service{cfg: cfg, storage: storage, cobs: cobs, aliases: aliases}
}

type IssueCounts struct {
	Open   int `json:"open"`
	Closed int `json:"closed"`
}

type PatchCounts struct {
	Open     int `json:"open"`
	Draft    int `json:"draft"`
	Archived int `json:"archived"`
	Merged   int `json:"merged"`
}

type ProjectInfo struct {
	ID            string             `json:"id"`
	Name          string             `json:"name"`
	Description   string             `json:"description"`
	DefaultBranch string             `json:"defaultBranch"`
	Head          string             `json:"head"`
	Delegates     []render.Author    `json:"delegates"`
	Threshold     int                `json:"threshold"`
	Visibility    gitrepo.Visibility `json:"visibility"`
	Issues        IssueCounts        `json:"issues"`
	Patches       PatchCounts        `json:"patches"`
}

type Remote struct {
	ID       string            `json:"id"`
	Alias    string            `json:"alias,omitempty"`
	Heads    map[string]string `json:"heads"`
	Delegate bool              `json:"delegate"`
}

func (s *Service) Ping(ctx context.Context) error {
	if p, ok := s.cobs.(pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

func (s *Service) NodeID() string {
	return s.cfg.NodeID
}

func (s *Service) StoragePath() string {
	return s.storage.Path()
}

// repository opens a public repository. Private and missing repositories are
// indistinguishable to the caller.
func (s *Service) repository(rawID string) (*gitrepo.Repository, gitrepo.Doc, error) {
	rid, err := identity.ParseRepoID(rawID)
	if err != nil {
		return nil, gitrepo.Doc{}, err
	}
	repo, err := s.storage.Repository(rid)
	if err != nil {
		return nil, gitrepo.Doc{}, err
	}
	doc, err := repo.Identity()
	if err != nil {
		return nil, gitrepo.Doc{}, err
	}
	if doc.Private() {
		return nil, gitrepo.Doc{}, errNotFound
	}
	return repo, doc, nil
}

// projector takes the alias snapshot used for the rest of the request.
func (s *Service) projector(ctx context.Context) *render.Projector {
	if s.aliases == nil {
		return render.NewProjector(nil)
	}
	aliases, err := s.aliases.Snapshot(ctx)
	if err != nil {
		logger.C(ctx).Warn().Err(err).Msg("alias directory unavailable, using static aliases")
	}
	return render.NewProjector(aliases)
}

func (s *Service) Node(ctx context.Context, rawNID string) (*string, error) {
	nid, err := identity.ParsePublicKey(rawNID)
	if err != nil {
		return nil, err
	}
	a := s.projector(ctx).Author(nid)
	if a.Alias == "" {
		return nil, nil
	}
	return &a.Alias, nil
}

func (s *Service) Projects(ctx context.Context) ([]ProjectInfo, error) {
	ids, err := s.storage.Repositories()
	if err != nil {
		return nil, err
	}
	projector := s.projector(ctx)
	items := make([]ProjectInfo, 0, len(ids))
	for _, rid := range ids {
		repo, doc, err := s.repository(rid.String())
		if errors.Is(err, errNotFound) {
			continue
		}
		if errors.Is(err, gitrepo.ErrNotFound) || errors.Is(err, gitrepo.ErrInvalidDoc) {
			logger.C(ctx).Warn().Err(err).Str("rid", rid.String()).Msg("skipping repository without usable identity")
			continue
		}
		if err != nil {
			return nil, err
		}
		info, err := s.projectInfo(ctx, projector, repo, doc)
		if err != nil {
			return nil, err
		}
		items = append(items, info)
	}
	return items, nil
}

func (s *Service) Project(ctx context.Context, rid string) (ProjectInfo, error) {
	repo, doc, err := s.repository(rid)
	if err != nil {
		return ProjectInfo{}, err
	}
	return s.projectInfo(ctx, s.projector(ctx), repo, doc)
}

func (s *Service) projectInfo(ctx context.Context, projector *render.Projector, repo *gitrepo.Repository, doc gitrepo.Doc) (ProjectInfo, error) {
	info := ProjectInfo{
		ID:            repo.ID().String(),
		Name:          doc.Name,
		Description:   doc.Description,
		DefaultBranch: doc.DefaultBranch,
		Threshold:     doc.Threshold,
		Visibility:    doc.Visibility,
		Delegates:     make([]render.Author, 0, len(doc.Delegates)),
	}
	for _, d := range doc.Delegates {
		info.Delegates = append(info.Delegates, projector.Author(d))
	}
	head, err := repo.Head()
	if err != nil && !errors.Is(err, gitrepo.ErrNotFound) {
		return ProjectInfo{}, err
	}
	if head != nil {
		info.Head = head.Hash.String()
	}

	issues, err := s.cobs.Counts(ctx, repo.ID(), cob.TypeIssue)
	if err != nil {
		return ProjectInfo{}, err
	}
	info.Issues = IssueCounts{Open: issues[cob.IssueOpen], Closed: issues[cob.IssueClosed]}
	patches, err := s.cobs.Counts(ctx, repo.ID(), cob.TypePatch)
	if err != nil {
		return ProjectInfo{}, err
	}
	info.Patches = PatchCounts{
		Open:     patches[cob.PatchOpen],
		Draft:    patches[cob.PatchDraft],
		Archived: patches[cob.PatchArchived],
		Merged:   patches[cob.PatchMerged],
	}
	return info, nil
}

func (s *Service) Commit(ctx context.Context, rid, sha string) (render.Commit, error) {
	repo, _, err := s.repository(rid)
	if err != nil {
		return render.Commit{}, err
	}
	commit, err := repo.Commit(sha)
	if err != nil {
		return render.Commit{}, err
	}
	return render.CommitHeader(commit), nil
}

func (s *Service) Tree(ctx context.Context, rid, sha, path string) (render.Tree, error) {
	repo, _, err := s.repository(rid)
	if err != nil {
		return render.Tree{}, err
	}
	commit, err := repo.Commit(sha)
	if err != nil {
		return render.Tree{}, err
	}
	path = strings.Trim(path, "/")
	tree, err := repo.Tree(commit, path)
	if err != nil {
		return render.Tree{}, err
	}
	last, err := repo.LastCommit(commit, path)
	if err != nil {
		return render.Tree{}, err
	}
	return render.TreeView(tree, last, path), nil
}

func (s *Service) Blob(ctx context.Context, rid, sha, path string) (render.Blob, error) {
	repo, _, err := s.repository(rid)
	if err != nil {
		return render.Blob{}, err
	}
	commit, err := repo.Commit(sha)
	if err != nil {
		return render.Blob{}, err
	}
	path = strings.Trim(path, "/")
	file, err := repo.File(commit, path)
	if err != nil {
		return render.Blob{}, err
	}
	content, binary, err := gitrepo.ReadBlob(&file.Blob)
	if err != nil {
		return render.Blob{}, err
	}
	last, err := repo.LastCommit(commit, path)
	if err != nil {
		return render.Blob{}, err
	}
	return render.BlobView(content, binary, last, path), nil
}

func (s *Service) Issues(ctx context.Context, rid string, q issueQuery) ([]render.Issue, error) {
	repo, _, err := s.repository(rid)
	if err != nil {
		return nil, err
	}
	issues, err := s.cobs.Issues(ctx, repo.ID())
	if err != nil {
		return nil, err
	}
	matching := make([]cob.Issue, 0, len(issues))
	for _, issue := range issues {
		if q.State == "" || issue.State.Status == q.State {
			matching = append(matching, issue)
		}
	}
	projector := s.projector(ctx)
	items := make([]render.Issue, 0, q.PerPage)
	for _, issue := range page(matching, q.listQuery) {
		items = append(items, projector.Issue(issue))
	}
	return items, nil
}

func (s *Service) Issue(ctx context.Context, rid, id string) (render.Issue, error) {
	repo, _, err := s.repository(rid)
	if err != nil {
		return render.Issue{}, err
	}
	issue, err := s.cobs.Issue(ctx, repo.ID(), id)
	if err != nil {
		return render.Issue{}, err
	}
	return s.projector(ctx).Issue(issue), nil
}

func (s *Service) Patches(ctx context.Context, rid string, q patchQuery) ([]render.Patch, error) {
	repo, _, err := s.repository(rid)
	if err != nil {
		return nil, err
	}
	patches, err := s.cobs.Patches(ctx, repo.ID())
	if err != nil {
		return nil, err
	}
	matching := make([]cob.Patch, 0, len(patches))
	for _, patch := range patches {
		if q.State == "" || patch.State.Status == q.State {
			matching = append(matching, patch)
		}
	}
	projector := s.projector(ctx)
	items := make([]render.Patch, 0, q.PerPage)
	for _, patch := range page(matching, q.listQuery) {
		items = append(items, projector.Patch(patch, repo))
	}
	return items, nil
}

func (s *Service) Patch(ctx context.Context, rid, id string) (render.Patch, error) {
	repo, _, err := s.repository(rid)
	if err != nil {
		return render.Patch{}, err
	}
	patch, err := s.cobs.Patch(ctx, repo.ID(), id)
	if err != nil {
		return render.Patch{}, err
	}
	return s.projector(ctx).Patch(patch, repo), nil
}

func (s *Service) Remotes(ctx context.Context, rid string) ([]Remote, error) {
	repo, doc, err := s.repository(rid)
	if err != nil {
		return nil, err
	}
	nids, err := repo.Remotes()
	if err != nil {
		return nil, err
	}
	projector := s.projector(ctx)
	items := make([]Remote, 0, len(nids))
	for _, nid := range nids {
		remote, err := remoteOf(projector, repo, doc, nid)
		if err != nil {
			return nil, err
		}
		items = append(items, remote)
	}
	return items, nil
}

func (s *Service) Remote(ctx context.Context, rid, rawNID string) (Remote, error) {
	repo, doc, err := s.repository(rid)
	if err != nil {
		return Remote{}, err
	}
	nid, err := identity.ParsePublicKey(rawNID)
	if err != nil {
		return Remote{}, err
	}
	return remoteOf(s.projector(ctx), repo, doc, nid)
}

func remoteOf(projector *render.Projector, repo *gitrepo.Repository, doc gitrepo.Doc, nid identity.PublicKey) (Remote, error) {
	refs, err := repo.RemoteRefs(nid)
	if err != nil {
		return Remote{}, err
	}
	heads := make(map[string]string)
	for _, ref := range refs {
		if name, ok := strings.CutPrefix(ref.Name, "refs/heads/"); ok {
			heads[name] = ref.Oid
		}
	}
	remote := Remote{ID: nid.String(), Alias: projector.Author(nid).Alias, Heads: heads}
	for _, d := range doc.Delegates {
		if d == nid {
			remote.Delegate = true
		}
	}
	return remote, nil
}

// RawBlobAt resolves the blob at path in commit sha without reading it.
func (s *Service) RawBlobAt(ctx context.Context, rid, sha, path string) (*object.Blob, error) {
	repo, _, err := s.repository(rid)
	if err != nil {
		return nil, err
	}
	commit, err := repo.Commit(sha)
	if err != nil {
		return nil, err
	}
	return fileBlob(repo, commit, path)
}

func (s *Service) RawBlobAtHead(ctx context.Context, rid, path string) (*object.Blob, error) {
	repo, _, err := s.repository(rid)
	if err != nil {
		return nil, err
	}
	head, err := repo.Head()
	if err != nil {
		return nil, err
	}
	return fileBlob(repo, head, path)
}

func (s *Service) RawBlob(ctx context.Context, rid, oid string) (*object.Blob, error) {
	repo, _, err := s.repository(rid)
	if err != nil {
		return nil, err
	}
	return repo.Blob(oid)
}

func fileBlob(repo *gitrepo.Repository, commit *object.Commit, path string) (*object.Blob, error) {
	file, err := repo.File(commit, path)
	if err != nil {
		return nil, err
	}
	return &file.Blob, nil
}

func page[T any](items []T, q listQuery) []T {
	if q.PerPage <= 0 || q.Page < 0 || q.Page > len(items)/q.PerPage {
		return nil
	}
	start := q.Page * q.PerPage
	if start >= len(items) {
		return nil
	}
	end := start + q.PerPage
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}
