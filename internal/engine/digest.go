package engine

import (
	"github.com/mr-tron/base58"
	"github.com/multiformats/go-multihash"
	"lukechampine.com/blake3"
)

// Digest renders a content hash of data as a base58-encoded self-describing
// multihash, the same two-step encoding the teacher's cmd/emptytree uses
// for its CIDs (sha256 + multihash.Encode + base58.Encode). Here the
// underlying hash is blake3 — the fast hash multihash already has a table
// entry for — since this is a derived display identifier computed fresh
// on every call, never a format the backing file's bytes depend on.
func Digest(data []byte) (string, error) {
	sum := blake3.Sum256(data)

	encoded, err := multihash.Encode(sum[:], multihash.BLAKE3)
	if err != nil {
		return "", Internal("", err)
	}

	return base58.Encode(encoded), nil
}
