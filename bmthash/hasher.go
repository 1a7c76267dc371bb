// Package bmthash defines the hash primitive consumed by a [bmt.Tree].
//
// The tree never hashes application data itself;
// callers hash leaf payloads with [Hasher.Leaf] before handing them to the tree,
// and the tree derives every internal node with [Hasher.Node].
//
// [bmt.Tree]: https://pkg.go.dev/github.com/gordian-engine/bmt/bmt#Tree
package bmthash

// Hasher is the user-defined interface for hashing leaves and nodes.
//
// To be allocation-efficient, the Hasher implementation
// must append its hash output to dst and return the resulting slice,
// in the same manner as [hash.Hash.Sum].
// Every call must append exactly the same number of bytes,
// which is the hash size configured alongside the Hasher.
// Hasher must not retain references to the dst slice.
//
// Node is order-sensitive: Node(a, b) and Node(b, a)
// must not produce the same output for distinct a and b.
//
// Furthermore, Hasher methods must be safe to call concurrently.
type Hasher interface {
	// Leaf appends the digest of arbitrary input bytes to dst.
	Leaf(in []byte, dst []byte) []byte

	// Node appends the digest of left followed by right to dst.
	Node(left, right []byte, dst []byte) []byte
}
