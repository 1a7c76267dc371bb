// Package bmsha3 provides a SHA3-256 [bmthash.Hasher].
//
// Nodes are the plain SHA3-256 of the left digest concatenated with the right digest,
// with no domain separation prefix.
// That layout is shared with other fixed-depth Merkle tools
// that publish SHA3-256 roots, so roots and proofs produced here
// can be checked against theirs byte for byte.
package bmsha3

import (
	"github.com/gordian-engine/bmt/bmthash"
	"golang.org/x/crypto/sha3"
)

const HashSize = 32

type Hasher struct{}

var _ bmthash.Hasher = Hasher{}

func (Hasher) Leaf(in []byte, dst []byte) []byte {
	h := sha3.New256()
	_, _ = h.Write(in)
	return h.Sum(dst)
}

func (Hasher) Node(left, right []byte, dst []byte) []byte {
	h := sha3.New256()
	_, _ = h.Write(left)
	_, _ = h.Write(right)
	return h.Sum(dst)
}
