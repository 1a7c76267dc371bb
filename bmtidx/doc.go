// Package bmtidx contains the index arithmetic for a perfect binary tree
// stored in a flat, 1-based layout.
//
// The root is index 1, and the nodes at depth d occupy
// the indices [2^d, 2^(d+1)).
// Index 0 is reserved and never refers to a node.
// Reserving index 0 is what lets every parent, child, and sibling
// calculation be a single shift or xor, with no special case for the root:
//
//	depth 0:            1
//	                 /     \
//	depth 1:        2       3
//	               / \     / \
//	depth 2:      4   5   6   7
//
// Every function in this package is pure and allocation-free,
// and none of them know the depth of any particular tree.
// Callers holding a tree are responsible for checking
// that a computed index is within that tree's capacity.
package bmtidx
