package app

import (
	"context"
	"testing"

	"seedhttpd/api/internal/alias"
	"seedhttpd/api/internal/cob"
	"seedhttpd/api/internal/config"
	"seedhttpd/api/internal/identity"
	"seedhttpd/api/internal/testkit"
)

type fakeCobs struct {
	issueFn   func(context.Context, identity.RepoID, string) (cob.Issue, error)
	patchFn   func(context.Context, identity.RepoID, string) (cob.Patch, error)
	issuesFn  func(context.Context, identity.RepoID) ([]cob.Issue, error)
	patchesFn func(context.Context, identity.RepoID) ([]cob.Patch, error)
	countsFn  func(context.Context, identity.RepoID, string) (map[string]int, error)
	pingFn    func(context.Context) error
}

func (f *fakeCobs) Issue(ctx context.Context, rid identity.RepoID, id string) (cob.Issue, error) {
	if f.issueFn != nil {
		return f.issueFn(ctx, rid, id)
	}
	return cob.Issue{}, cob.ErrNotFound
}

func (f *fakeCobs) Patch(ctx context.Context, rid identity.RepoID, id string) (cob.Patch, error) {
	if f.patchFn != nil {
		return f.patchFn(ctx, rid, id)
	}
	return cob.Patch{}, cob.ErrNotFound
}

func (f *fakeCobs) Issues(ctx context.Context, rid identity.RepoID) ([]cob.Issue, error) {
	if f.issuesFn != nil {
		return f.issuesFn(ctx, rid)
	}
	return nil, nil
}

func (f *fakeCobs) Patches(ctx context.Context, rid identity.RepoID) ([]cob.Patch, error) {
	if f.patchesFn != nil {
		return f.patchesFn(ctx, rid)
	}
	return nil, nil
}

func (f *fakeCobs) Counts(ctx context.Context, rid identity.RepoID, kind string) (map[string]int, error) {
	if f.countsFn != nil {
		return f.countsFn(ctx, rid, kind)
	}
	return map[string]int{}, nil
}

func (f *fakeCobs) Ping(ctx context.Context) error {
	if f.pingFn != nil {
		return f.pingFn(ctx)
	}
	return nil
}

type testEnv struct {
	seed   testkit.Seed
	cobs   *fakeCobs
	server *HTTPServer
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	seed := testkit.SeedStorage(testkit.NewStorage(t))
	cobs := &fakeCobs{}
	aliases := alias.NewResolver(alias.Map{testkit.AliceKey: "alice"}, nil)
	svc := New(config.Config{NodeID: testkit.AliceKey.String()}, seed.Storage, cobs, aliases)
	return &testEnv{seed: seed, cobs: cobs, server: NewHTTPServer(svc, "*", 0)}
}
