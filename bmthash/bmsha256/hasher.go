package bmsha256

import (
	"crypto/sha256"

	"github.com/gordian-engine/bmt/bmthash"
)

const HashSize = sha256.Size

// Hasher is a [bmthash.Hasher] backed by SHA256 hashes.
//
// Leaves and nodes are hashed with distinct one-byte prefixes,
// so that an internal node can never be presented as a leaf.
type Hasher struct{}

var _ bmthash.Hasher = Hasher{}

const (
	leafPrefix byte = 0x00
	nodePrefix byte = 0x01
)

func (Hasher) Leaf(in []byte, dst []byte) []byte {
	h := sha256.New()
	_, _ = h.Write([]byte{leafPrefix})
	_, _ = h.Write(in)
	return h.Sum(dst)
}

func (Hasher) Node(left, right []byte, dst []byte) []byte {
	h := sha256.New()
	_, _ = h.Write([]byte{nodePrefix})
	_, _ = h.Write(left)
	_, _ = h.Write(right)
	return h.Sum(dst)
}
