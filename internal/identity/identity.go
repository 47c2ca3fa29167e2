// Package identity encodes node and repository identifiers.
//
// Node and actor ids are ed25519 public keys rendered as multibase base58btc
// strings carrying the ed25519 multicodec prefix (z6Mk...). The DID form adds
// the did:key: scheme. Repository ids are 20 byte object ids rendered as
// rad:z... strings.
package identity

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"strings"

	"github.com/multiformats/go-multibase"
	"github.com/multiformats/go-varint"
)

const (
	ed25519Codec = 0xed
	didPrefix    = "did:key:"
	repoPrefix   = "rad:"
	repoIDSize   = 20
)

// ErrInvalid is returned when an identifier cannot be decoded.
var ErrInvalid = errors.New("invalid identifier")

// PublicKey identifies a node or an actor.
type PublicKey [ed25519.PublicKeySize]byte

// PublicKeyFromBytes copies a raw 32 byte ed25519 key.
func PublicKeyFromBytes(raw []byte) (PublicKey, error) {
	var key PublicKey
	if len(raw) != len(key) {
		return PublicKey{}, fmt.Errorf("%w: public key is %d bytes, want %d", ErrInvalid, len(raw), len(key))
	}
	copy(key[:], raw)
	return key, nil
}

// ParsePublicKey accepts both the bare (z6Mk...) and the did:key: form.
func ParsePublicKey(input string) (PublicKey, error) {
	encoded := strings.TrimPrefix(strings.TrimSpace(input), didPrefix)
	encoding, data, err := multibase.Decode(encoded)
	if err != nil {
		return PublicKey{}, fmt.Errorf("%w: decode public key %q: %v", ErrInvalid, input, err)
	}
	if encoding != multibase.Base58BTC {
		return PublicKey{}, fmt.Errorf("%w: public key %q is not base58btc", ErrInvalid, input)
	}
	codec, n, err := varint.FromUvarint(data)
	if err != nil {
		return PublicKey{}, fmt.Errorf("%w: read multicodec of %q: %v", ErrInvalid, input, err)
	}
	if codec != ed25519Codec {
		return PublicKey{}, fmt.Errorf("%w: unsupported key codec 0x%x", ErrInvalid, codec)
	}
	return PublicKeyFromBytes(data[n:])
}

func (k PublicKey) String() string {
	prefixed := append(varint.ToUvarint(ed25519Codec), k[:]...)
	encoded, _ := multibase.Encode(multibase.Base58BTC, prefixed)
	return encoded
}

// DID returns the did:key: form used in author records.
func (k PublicKey) DID() string {
	return didPrefix + k.String()
}

func (k PublicKey) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *PublicKey) UnmarshalText(text []byte) error {
	parsed, err := ParsePublicKey(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// RepoID identifies a repository in storage.
type RepoID [repoIDSize]byte

// ParseRepoID accepts rad:z... as well as the bare multibase string.
func ParseRepoID(input string) (RepoID, error) {
	encoded := strings.TrimPrefix(strings.TrimSpace(input), repoPrefix)
	encoding, data, err := multibase.Decode(encoded)
	if err != nil {
		return RepoID{}, fmt.Errorf("%w: decode repository id %q: %v", ErrInvalid, input, err)
	}
	if encoding != multibase.Base58BTC {
		return RepoID{}, fmt.Errorf("%w: repository id %q is not base58btc", ErrInvalid, input)
	}
	var id RepoID
	if len(data) != len(id) {
		return RepoID{}, fmt.Errorf("%w: repository id is %d bytes, want %d", ErrInvalid, len(data), len(id))
	}
	copy(id[:], data)
	return id, nil
}

// Canonical is the bare multibase form, also used as the storage directory name.
func (id RepoID) Canonical() string {
	encoded, _ := multibase.Encode(multibase.Base58BTC, id[:])
	return encoded
}

func (id RepoID) String() string {
	return repoPrefix + id.Canonical()
}

func (id RepoID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

func (id *RepoID) UnmarshalText(text []byte) error {
	parsed, err := ParseRepoID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
