package bmt

import (
	"bytes"
	"fmt"

	"github.com/gordian-engine/bmt/bmthash"
	"github.com/gordian-engine/bmt/bmtidx"
)

// Proof is an inclusion proof for a single leaf.
// It is self-contained: verifying it requires only the hasher,
// the leaf digest, and the expected root.
type Proof struct {
	// Depth of the tree the proof was generated from.
	Depth uint8

	// Offset of the proven leaf within the leaf level.
	Offset uint64

	// Digest of the proven leaf.
	Leaf Digest

	// Sibling digests from the leaf's level upward,
	// excluding the root, so len(Steps) == Depth.
	Steps []ProofStep
}

// ProofStep is one level of a [Proof].
type ProofStep struct {
	Sibling Digest

	// Which child of the parent the node on the proven path is.
	// The sibling is on the opposite side.
	Dir bmtidx.Direction
}

// ProveInclusion returns the inclusion proof for the leaf at offset.
//
// The leaf and every sibling along its path to the root must be present;
// otherwise the proof could not be checked against any root,
// and ProveInclusion returns [ErrLeafAbsent] or [ErrSiblingAbsent].
//
// The digests in the returned proof are copies,
// so the proof remains valid after further writes to the tree.
func (t *Tree) ProveInclusion(offset uint64) (Proof, error) {
	idx, err := t.leafIndex(offset)
	if err != nil {
		return Proof{}, err
	}
	if !t.have.Test(uint(idx)) {
		return Proof{}, fmt.Errorf("%w: offset %d", ErrLeafAbsent, offset)
	}

	path, err := bmtidx.AppendPathToRoot(make([]bmtidx.Step, 0, t.depth), idx)
	if err != nil {
		panic(fmt.Errorf("BUG: leaf index %d has no path: %w", idx, err))
	}

	// Back the leaf and all siblings with one allocation.
	hs := t.hashSize
	mem := make([]byte, (len(path)+1)*hs)

	p := Proof{
		Depth:  t.depth,
		Offset: offset,
		Leaf:   Digest(mem[:hs:hs]),
		Steps:  make([]ProofStep, len(path)),
	}
	copy(p.Leaf, t.nodes[idx])

	for i, s := range path {
		if !t.have.Test(uint(s.Sibling)) {
			return Proof{}, fmt.Errorf(
				"%w: node %d needed to prove offset %d", ErrSiblingAbsent, s.Sibling, offset,
			)
		}

		start := (i + 1) * hs
		end := start + hs
		sib := mem[start:end:end]
		copy(sib, t.nodes[s.Sibling])

		p.Steps[i] = ProofStep{
			Sibling: Digest(sib),
			Dir:     s.Dir,
		}
	}

	return p, nil
}

// Verify is shorthand for [VerifyProof] using p.Leaf as the leaf digest.
func (p Proof) Verify(h bmthash.Hasher, expectedRoot Digest) (bool, error) {
	return VerifyProof(h, p.Leaf, p, expectedRoot)
}

// VerifyProof reports whether leaf, combined with the siblings in p,
// reproduces expectedRoot.
//
// Each step combines the running digest with the step's sibling:
// combine(running, sibling) when the running node is a left child,
// and combine(sibling, running) when it is a right child.
//
// A proof that is well-formed but does not reproduce expectedRoot,
// including one whose Leaf differs from leaf,
// returns false with a nil error.
// A structurally invalid proof returns [ErrMalformedProof].
func VerifyProof(h bmthash.Hasher, leaf Digest, p Proof, expectedRoot Digest) (bool, error) {
	if h == nil {
		panic("BUG: VerifyProof called with nil hasher")
	}

	if err := checkProofShape(leaf, p); err != nil {
		return false, err
	}

	if !bytes.Equal(leaf, p.Leaf) {
		return false, nil
	}

	// Alternate between two buffers so the hasher
	// never writes into the slice it is reading.
	sz := len(leaf)
	var bufs [2][]byte
	bufs[0] = make([]byte, 0, sz)
	bufs[1] = make([]byte, 0, sz)

	running := []byte(leaf)
	for i, s := range p.Steps {
		dst := bufs[i&1][:0]
		if s.Dir == bmtidx.Left {
			running = h.Node(running, s.Sibling, dst)
		} else {
			running = h.Node(s.Sibling, running, dst)
		}
		bufs[i&1] = running
	}

	return bytes.Equal(running, expectedRoot), nil
}

func checkProofShape(leaf Digest, p Proof) error {
	if len(leaf) == 0 {
		return fmt.Errorf("%w: empty leaf digest", ErrMalformedProof)
	}
	if p.Depth > bmtidx.MaxDepth {
		return fmt.Errorf(
			"%w: depth %d exceeds maximum %d", ErrMalformedProof, p.Depth, bmtidx.MaxDepth,
		)
	}
	if len(p.Steps) != int(p.Depth) {
		return fmt.Errorf(
			"%w: %d steps for a tree of depth %d", ErrMalformedProof, len(p.Steps), p.Depth,
		)
	}

	idx, err := bmtidx.IndexOf(p.Depth, p.Offset)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedProof, err)
	}

	// The directions are fully determined by the leaf index,
	// so any disagreement means the proof was built for another leaf.
	for i, s := range p.Steps {
		if want := bmtidx.Direction(idx & 1); s.Dir != want {
			return fmt.Errorf(
				"%w: step %d has direction %s, offset %d requires %s",
				ErrMalformedProof, i, s.Dir, p.Offset, want,
			)
		}
		if len(s.Sibling) != len(leaf) {
			return fmt.Errorf(
				"%w: step %d sibling has %d bytes, leaf has %d",
				ErrMalformedProof, i, len(s.Sibling), len(leaf),
			)
		}
		idx >>= 1
	}

	return nil
}
