package bmt

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"math"
	"runtime"

	"github.com/bits-and-blooms/bitset"
	"github.com/gordian-engine/bmt/bmthash"
	"github.com/gordian-engine/bmt/bmtidx"
)

// Tree is a binary Merkle tree of fixed depth.
// See the package documentation for the presence rules
// and the concurrency contract.
type Tree struct {
	log *slog.Logger

	// View into the backing mem slice, indexed the same as bmtidx.
	// nodes[0] is the reserved sentinel and is always nil.
	nodes [][]byte

	// Bit i is set iff nodes[i] holds a value.
	// The node bytes of an absent slot are meaningless,
	// so presence must always be checked here first.
	have *bitset.BitSet

	hasher   bmthash.Hasher
	hashSize int

	depth    uint8
	capacity uint64

	workers int

	// Single-writer scratch space for change detection
	// while walking ancestors.
	scratch []byte
}

// TreeConfig is the configuration for [NewTree].
type TreeConfig struct {
	// Number of levels below the root.
	// A tree of depth d has 2^d leaves.
	Depth uint8

	Hasher bmthash.Hasher

	// The size, in bytes, of every digest produced by Hasher.
	HashSize int

	// Optional logger. Nil discards all output.
	Log *slog.Logger

	// Maximum number of goroutines used by [*Tree.SetLeaves]
	// when recomputing a wide level.
	// Zero means runtime.GOMAXPROCS(0).
	Workers int
}

// NewTree returns a tree with every slot absent.
func NewTree(cfg TreeConfig) (*Tree, error) {
	if cfg.Hasher == nil {
		return nil, fmt.Errorf("%w: Hasher must be set", ErrInvalidConfig)
	}
	if cfg.HashSize <= 0 {
		return nil, fmt.Errorf(
			"%w: HashSize must be positive (got %d)", ErrInvalidConfig, cfg.HashSize,
		)
	}
	if cfg.Depth > bmtidx.MaxDepth {
		return nil, fmt.Errorf(
			"%w: Depth %d exceeds maximum %d", ErrInvalidConfig, cfg.Depth, bmtidx.MaxDepth,
		)
	}
	if cfg.Workers < 0 {
		return nil, fmt.Errorf(
			"%w: Workers must not be negative (got %d)", ErrInvalidConfig, cfg.Workers,
		)
	}

	capacity := bmtidx.Capacity(cfg.Depth)
	if capacity >= math.MaxInt/uint64(cfg.HashSize) {
		return nil, fmt.Errorf(
			"%w: depth %d with %d-byte hashes cannot be allocated",
			ErrInvalidConfig, cfg.Depth, cfg.HashSize,
		)
	}

	log := cfg.Log
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	workers := cfg.Workers
	if workers == 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	// The shape of the tree is fixed,
	// so back every node with a single allocation.
	hs := cfg.HashSize
	mem := make([]byte, int(capacity)*hs)

	nodes := make([][]byte, capacity+1)
	for i := 1; i <= int(capacity); i++ {
		start := (i - 1) * hs
		end := start + hs

		// Capping each view at its own end means a misbehaving hasher
		// cannot spill into the neighboring node.
		nodes[i] = mem[start:end:end]
	}

	return &Tree{
		log: log,

		nodes: nodes,
		have:  bitset.New(uint(capacity) + 1),

		hasher:   cfg.Hasher,
		hashSize: hs,

		depth:    cfg.Depth,
		capacity: capacity,

		workers: workers,

		scratch: make([]byte, 0, hs),
	}, nil
}

// Depth returns the number of levels below the root.
func (t *Tree) Depth() uint8 { return t.depth }

// Capacity returns the number of nodes in the tree,
// which is also the largest valid index.
func (t *Tree) Capacity() uint64 { return t.capacity }

// LeafCount returns the number of leaves, 2^Depth.
func (t *Tree) LeafCount() uint64 { return 1 << t.depth }

// HashSize returns the configured digest size.
func (t *Tree) HashSize() int { return t.hashSize }

// PresentLeaves returns how many leaves currently hold a value.
func (t *Tree) PresentLeaves() uint64 {
	first, last := bmtidx.LeafRange(t.depth)
	var n uint64
	for i, ok := t.have.NextSet(uint(first)); ok && uint64(i) <= last; i, ok = t.have.NextSet(i + 1) {
		n++
	}
	return n
}

// Node returns the digest at index i, if present.
// The returned slice references the tree's memory;
// it must not be modified, and it is only valid until the next write.
func (t *Tree) Node(i uint64) (Digest, bool) {
	if i == 0 || i > t.capacity || !t.have.Test(uint(i)) {
		return nil, false
	}
	return t.nodes[i], true
}

// Leaf returns the digest of the leaf at offset, if present.
// The same aliasing rules as [*Tree.Node] apply.
func (t *Tree) Leaf(offset uint64) (Digest, bool) {
	idx, err := t.leafIndex(offset)
	if err != nil {
		return nil, false
	}
	return t.Node(idx)
}

// Root returns a copy of the root digest.
// If any leaf is still absent, Root returns [ErrRootNotReady].
func (t *Tree) Root() (Digest, error) {
	if !t.have.Test(uint(bmtidx.RootIndex)) {
		return nil, fmt.Errorf(
			"%w: %d of %d leaves present",
			ErrRootNotReady, t.PresentLeaves(), t.LeafCount(),
		)
	}
	return Digest(t.nodes[bmtidx.RootIndex]).Clone(), nil
}

// SetLeaf writes d into the leaf at offset
// and brings every ancestor of that leaf up to date.
// The digest is copied; the caller may reuse d afterwards.
func (t *Tree) SetLeaf(offset uint64, d Digest) error {
	idx, err := t.leafIndex(offset)
	if err != nil {
		return err
	}
	if len(d) != t.hashSize {
		return fmt.Errorf(
			"%w: leaf %d has %d bytes, want %d", ErrDigestSize, offset, len(d), t.hashSize,
		)
	}

	copy(t.nodes[idx], d)
	t.have.Set(uint(idx))

	return t.RecomputeAncestors(idx)
}

// RecomputeAncestors walks from the parent of start up to the root,
// recomputing each ancestor from its children.
//
// An ancestor becomes present with combine(left, right)
// if both children are present, and absent otherwise.
// The walk stops at the first ancestor whose state does not change,
// since nothing above it can change either.
// Calling RecomputeAncestors again without an intervening write has no effect.
func (t *Tree) RecomputeAncestors(start uint64) error {
	if start == 0 || start > t.capacity {
		return fmt.Errorf(
			"%w: %d not in range [1, %d]", bmtidx.ErrInvalidIndex, start, t.capacity,
		)
	}

	rootWasPresent := t.have.Test(uint(bmtidx.RootIndex))

	for i := start >> 1; i >= bmtidx.RootIndex; i >>= 1 {
		if !t.recompute(i) {
			break
		}
	}

	t.logRootTransition(rootWasPresent)
	return nil
}

// recompute updates the single internal node i from its children,
// reporting whether its presence or value changed.
func (t *Tree) recompute(i uint64) bool {
	l, r := bmtidx.ChildrenOf(i)
	had := t.have.Test(uint(i))

	if !t.have.Test(uint(l)) || !t.have.Test(uint(r)) {
		if !had {
			return false
		}
		t.have.Clear(uint(i))
		clear(t.nodes[i])
		return true
	}

	t.scratch = t.hashNode(l, r, t.scratch[:0])
	if had && bytes.Equal(t.scratch, t.nodes[i]) {
		return false
	}

	copy(t.nodes[i], t.scratch)
	t.have.Set(uint(i))
	return true
}

// hashNode appends combine(nodes[l], nodes[r]) to dst,
// which must be empty.
func (t *Tree) hashNode(l, r uint64, dst []byte) []byte {
	out := t.hasher.Node(t.nodes[l], t.nodes[r], dst)
	if len(out) != t.hashSize {
		panic(fmt.Errorf(
			"BUG: hasher produced %d bytes, configured hash size is %d",
			len(out), t.hashSize,
		))
	}
	return out
}

// Fill sets every leaf to d and computes every internal node.
// Because each level is uniform, only one digest is computed per level.
func (t *Tree) Fill(d Digest) error {
	if len(d) != t.hashSize {
		return fmt.Errorf(
			"%w: fill digest has %d bytes, want %d", ErrDigestSize, len(d), t.hashSize,
		)
	}

	rootWasPresent := t.have.Test(uint(bmtidx.RootIndex))

	level := make([]byte, t.hashSize)
	copy(level, d)
	next := make([]byte, 0, t.hashSize)

	for depth := int(t.depth); depth >= 0; depth-- {
		first, last := bmtidx.LevelRange(uint8(depth))
		for i := first; i <= last; i++ {
			copy(t.nodes[i], level)
		}

		if depth > 0 {
			next = t.hasher.Node(level, level, next[:0])
			if len(next) != t.hashSize {
				panic(fmt.Errorf(
					"BUG: hasher produced %d bytes, configured hash size is %d",
					len(next), t.hashSize,
				))
			}
			level, next = next, level
		}
	}

	// Every node is now present.
	// The bitset was possibly partially set,
	// so clear it before flipping the whole range on.
	t.have.ClearAll()
	t.have.FlipRange(uint(bmtidx.RootIndex), uint(t.capacity)+1)

	t.logRootTransition(rootWasPresent)
	return nil
}

// Dump writes one line per node to w:
// the index, depth, offset, and digest (or "absent").
func (t *Tree) Dump(w io.Writer) error {
	for i := bmtidx.RootIndex; i <= t.capacity; i++ {
		d, o, err := bmtidx.Coordinates(i)
		if err != nil {
			panic(fmt.Errorf("BUG: index %d has no coordinates: %w", i, err))
		}

		val := "absent"
		if t.have.Test(uint(i)) {
			val = Digest(t.nodes[i]).String()
		}

		if _, err := fmt.Fprintf(w, "%d\t%d\t%d\t%s\n", i, d, o, val); err != nil {
			return fmt.Errorf("failed to dump node %d: %w", i, err)
		}
	}
	return nil
}

// leafIndex converts a leaf offset to a tree index.
func (t *Tree) leafIndex(offset uint64) (uint64, error) {
	idx, err := bmtidx.IndexOf(t.depth, offset)
	if err != nil {
		return 0, fmt.Errorf(
			"%w: offset %d not in range [0, %d)", ErrOffsetOutOfRange, offset, t.LeafCount(),
		)
	}
	return idx, nil
}

func (t *Tree) logRootTransition(wasPresent bool) {
	isPresent := t.have.Test(uint(bmtidx.RootIndex))
	switch {
	case isPresent && !wasPresent:
		t.log.Debug("Merkle root became available", "depth", t.depth)
	case !isPresent && wasPresent:
		t.log.Debug("Merkle root invalidated", "depth", t.depth)
	}
}
