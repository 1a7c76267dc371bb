package bmtidx

import (
	"errors"
	"fmt"
	"math/bits"
)

// RootIndex is the index of the root of every tree.
const RootIndex uint64 = 1

// MaxDepth is the deepest tree that can be addressed with a uint64 index.
// A tree of depth 62 has 2^63 - 1 nodes,
// so that the capacity itself still fits in a uint64
// and the children of every node are representable.
const MaxDepth uint8 = 62

var (
	ErrInvalidIndex      = errors.New("invalid index")
	ErrInvalidCoordinate = errors.New("invalid depth and offset")
	ErrNoParent          = errors.New("root has no parent")
	ErrNoSibling         = errors.New("root has no sibling")
)

// DepthOf returns the depth of index i, which is floor(log2(i)).
func DepthOf(i uint64) (uint8, error) {
	if i == 0 {
		return 0, ErrInvalidIndex
	}
	return uint8(bits.Len64(i) - 1), nil
}

// OffsetOf returns the position of i within its level,
// counting from zero at the leftmost node.
func OffsetOf(i uint64) (uint64, error) {
	d, err := DepthOf(i)
	if err != nil {
		return 0, err
	}
	return i - (1 << d), nil
}

// Coordinates returns both the depth and offset of i.
func Coordinates(i uint64) (depth uint8, offset uint64, err error) {
	depth, err = DepthOf(i)
	if err != nil {
		return 0, 0, err
	}
	return depth, i - (1 << depth), nil
}

// IndexOf returns the index of the node at the given depth and offset.
func IndexOf(depth uint8, offset uint64) (uint64, error) {
	if depth > MaxDepth {
		return 0, fmt.Errorf(
			"%w: depth %d exceeds maximum %d", ErrInvalidCoordinate, depth, MaxDepth,
		)
	}
	if offset >= 1<<depth {
		return 0, fmt.Errorf(
			"%w: offset %d not in range [0, %d) at depth %d",
			ErrInvalidCoordinate, offset, uint64(1)<<depth, depth,
		)
	}
	return (1 << depth) + offset, nil
}

// ParentOf returns the index of the parent of i.
func ParentOf(i uint64) (uint64, error) {
	switch i {
	case 0:
		return 0, ErrInvalidIndex
	case RootIndex:
		return 0, ErrNoParent
	}
	return i >> 1, nil
}

// ChildrenOf returns the indices of the left and right children of i.
// It does not check whether a tree is deep enough to hold them.
func ChildrenOf(i uint64) (left, right uint64) {
	left = i << 1
	return left, left | 1
}

// SiblingOf returns the index of the other child of i's parent.
func SiblingOf(i uint64) (uint64, error) {
	switch i {
	case 0:
		return 0, ErrInvalidIndex
	case RootIndex:
		return 0, ErrNoSibling
	}
	return i ^ 1, nil
}

// Capacity returns the number of nodes in a tree of the given depth,
// which is also the largest valid index in that tree.
func Capacity(depth uint8) uint64 {
	if depth > MaxDepth {
		panic(fmt.Errorf(
			"BUG: depth %d exceeds maximum %d", depth, MaxDepth,
		))
	}
	return (1 << (depth + 1)) - 1
}

// LevelRange returns the first and last index, inclusive,
// of the nodes at the given depth.
// In a tree of depth d, LevelRange(d) is the range of its leaves.
func LevelRange(depth uint8) (first, last uint64) {
	if depth > MaxDepth {
		panic(fmt.Errorf(
			"BUG: depth %d exceeds maximum %d", depth, MaxDepth,
		))
	}
	first = 1 << depth
	return first, (first << 1) - 1
}

// LeafRange is an alias for [LevelRange],
// for call sites that are specifically addressing leaves.
func LeafRange(treeDepth uint8) (first, last uint64) {
	return LevelRange(treeDepth)
}
