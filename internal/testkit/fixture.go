package testkit

import (
	"github.com/go-git/go-git/v5/plumbing"

	"seedhttpd/api/internal/gitrepo"
	"seedhttpd/api/internal/identity"
)

var (
	PublicRID  = identity.RepoID{0x0f, 0x5a, 0x1d, 0x3b}
	PrivateRID = identity.RepoID{0x0f, 0x5a, 0x1d, 0x3c}
	MissingRID = identity.RepoID{0x0f, 0x5a, 0x1d, 0x3d}
)

// BinaryContent is the content of bin/true in the seeded repository.
var BinaryContent = []byte{0x7f, 'E', 'L', 'F', 0x02, 0x01, 0x00, 0xff, 0xfe}

// Seed holds the object ids of the seeded repositories.
type Seed struct {
	Storage *gitrepo.Storage
	Dir     string

	Initial plumbing.Hash
	Head    plumbing.Hash
	// PatchHead is only reachable from Alice's patch branch.
	PatchHead plumbing.Hash
	Private   plumbing.Hash
}

// SeedStorage creates a public repository with two commits on master, a
// patch branch in Alice's namespace, and a private repository.
func SeedStorage(s *Storage) Seed {
	s.t.Helper()

	pub := s.Repo(PublicRID)
	pub.Identity(Doc{
		Name:          "hello-world",
		Description:   "Rad repository for tests",
		DefaultBranch: "master",
		Delegates:     []identity.PublicKey{AliceKey},
	})
	initial := pub.Commit("Initial commit\n", map[string][]byte{
		"README": []byte("Hello World!\n"),
	})
	files := map[string][]byte{
		"README":                   []byte("Hello World!\n"),
		"LICENSE":                  []byte("MIT\n"),
		"bin/true":                 BinaryContent,
		"src/main.css":             []byte("body { margin: 0; }\n"),
		"src/notes.xyz123":         []byte("unknown extension\n"),
		"src/nested/deep/file.txt": []byte("deep\n"),
	}
	head := pub.Commit("Add another folder\n\nBinaries and styles.\n", files, initial)
	pub.Ref("refs/heads/master", head)
	pub.RemoteRef(AliceKey, "refs/heads/master", head)

	files["README"] = []byte("Hello Radicle!\n")
	patchHead := pub.Commit("Update README\n", files, head)
	pub.RemoteRef(AliceKey, "refs/heads/patches/flux", patchHead)
	pub.RemoteRef(AliceKey, "refs/heads/feature", patchHead)

	priv := s.Repo(PrivateRID)
	priv.Identity(Doc{
		Name:          "secret",
		DefaultBranch: "master",
		Delegates:     []identity.PublicKey{AliceKey},
		Private:       true,
	})
	secret := priv.Commit("Secret\n", map[string][]byte{"README": []byte("hush\n")})
	priv.Ref("refs/heads/master", secret)

	return Seed{
		Storage:   s.Open(),
		Dir:       s.Dir,
		Initial:   initial,
		Head:      head,
		PatchHead: patchHead,
		Private:   secret,
	}
}
