package bmt

import (
	"fmt"
	"sync"

	"github.com/gordian-engine/bmt/bmtidx"
)

// minNodesPerWorker is the smallest slice of a level
// worth handing to its own goroutine.
// Below this, the goroutine overhead outweighs a handful of hashes.
const minNodesPerWorker = 64

// SetLeaves writes ds into consecutive leaves starting at offset first,
// then recomputes every affected ancestor.
//
// Unlike calling [*Tree.SetLeaf] in a loop,
// SetLeaves recomputes one level at a time,
// so every affected ancestor is hashed exactly once.
// Nodes within a level only depend on the level below,
// so wide levels are split across up to [TreeConfig.Workers] goroutines,
// and each level completes before the next one begins.
//
// Every digest is validated before any leaf is written,
// so on error the tree is unchanged.
func (t *Tree) SetLeaves(first uint64, ds []Digest) error {
	if len(ds) == 0 {
		return nil
	}

	n := uint64(len(ds))
	if first >= t.LeafCount() || n > t.LeafCount()-first {
		return fmt.Errorf(
			"%w: leaves [%d, %d] not in range [0, %d)",
			ErrOffsetOutOfRange, first, first+n-1, t.LeafCount(),
		)
	}
	for i, d := range ds {
		if len(d) != t.hashSize {
			return fmt.Errorf(
				"%w: leaf %d has %d bytes, want %d",
				ErrDigestSize, first+uint64(i), len(d), t.hashSize,
			)
		}
	}

	rootWasPresent := t.have.Test(uint(bmtidx.RootIndex))

	firstLeaf, _ := bmtidx.LeafRange(t.depth)
	lo := firstLeaf + first
	hi := lo + n - 1

	for i, d := range ds {
		idx := lo + uint64(i)
		copy(t.nodes[idx], d)
		t.have.Set(uint(idx))
	}

	// The touched leaves are contiguous,
	// so the touched ancestors on each level are contiguous too.
	for lo > bmtidx.RootIndex {
		lo >>= 1
		hi >>= 1
		t.recomputeLevel(lo, hi)
	}

	t.logRootTransition(rootWasPresent)
	return nil
}

// recomputeLevel recomputes the nodes in [lo, hi],
// all of which must be at the same depth.
func (t *Tree) recomputeLevel(lo, hi uint64) {
	// Presence is settled first, on this goroutine,
	// so that the hashing goroutines only read the bitset.
	// Neighboring bits share a word, so concurrent writes would race.
	for i := lo; i <= hi; i++ {
		l, r := bmtidx.ChildrenOf(i)
		if t.have.Test(uint(l)) && t.have.Test(uint(r)) {
			t.have.Set(uint(i))
		} else {
			t.have.Clear(uint(i))
			clear(t.nodes[i])
		}
	}

	count := hi - lo + 1
	workers := uint64(t.workers)
	if maxWorkers := count / minNodesPerWorker; workers > maxWorkers {
		workers = maxWorkers
	}

	if workers <= 1 {
		t.hashRange(lo, hi)
		return
	}

	depth, _ := bmtidx.DepthOf(lo)
	t.log.Debug(
		"Recomputing level in parallel",
		"depth", depth, "nodes", count, "workers", workers,
	)

	chunk := (count + workers - 1) / workers

	var wg sync.WaitGroup
	for start := lo; start <= hi; start += chunk {
		end := min(start+chunk-1, hi)

		wg.Add(1)
		go func() {
			defer wg.Done()
			t.hashRange(start, end)
		}()
	}
	wg.Wait()
}

// hashRange writes combine(left, right) into each present node in [lo, hi].
// Distinct ranges write disjoint memory, so it is safe to call concurrently
// for non-overlapping ranges.
func (t *Tree) hashRange(lo, hi uint64) {
	for i := lo; i <= hi; i++ {
		if !t.have.Test(uint(i)) {
			continue
		}
		l, r := bmtidx.ChildrenOf(i)
		out := t.hashNode(l, r, t.nodes[i][:0])

		// A hasher that returns its own buffer instead of appending to dst
		// has not written into the node.
		if &out[0] != &t.nodes[i][0] {
			copy(t.nodes[i], out)
		}
	}
}
