// Package bmt contains a fixed-depth binary Merkle tree
// whose nodes may be individually absent.
//
// A [Tree] is created with a depth that never changes.
// Leaves are supplied one at a time with [*Tree.SetLeaf],
// or in bulk with [*Tree.SetLeaves] or [*Tree.Fill],
// and every internal node is kept consistent with its children:
// an internal node holds combine(left, right) when both children are present,
// and is absent otherwise.
// Absence propagates all the way to the root,
// so [*Tree.Root] reports [ErrRootNotReady]
// until every leaf has been supplied.
// A zero-valued digest is never substituted for a missing one.
//
// Inclusion proofs are produced with [*Tree.ProveInclusion]
// and checked with [VerifyProof], which does not need access to the tree.
//
// A Tree has no internal locking.
// Any number of goroutines may read from a Tree concurrently,
// but writes must be externally serialized with respect to
// all other reads and writes.
package bmt
