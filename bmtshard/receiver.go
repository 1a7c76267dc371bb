package bmtshard

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"

	"github.com/bits-and-blooms/bitset"
	"github.com/gordian-engine/bmt/bmt"
	"github.com/gordian-engine/bmt/bmthash"
	"github.com/klauspost/reedsolomon"
)

// ReceiverConfig is the configuration for [NewReceiver].
// Every field other than Log must match the originating [Commitment].
type ReceiverConfig struct {
	Root bmt.Digest

	Depth      uint8
	DataShards int
	DataLen    int

	Hasher   bmthash.Hasher
	HashSize int

	Log *slog.Logger
}

// Receiver collects shards of a committed payload
// and rebuilds the payload once it has enough of them.
//
// A Receiver is not safe for concurrent use.
type Receiver struct {
	log *slog.Logger

	root    bmt.Digest
	hasher  bmthash.Hasher
	dataLen int
	nData   int

	// Nil when there are no parity shards,
	// in which case every shard must be received.
	enc reedsolomon.Encoder

	// Partial tree of the accepted shards' leaves.
	// It is completed on reconstruction,
	// which confirms the rebuilt shards against the root.
	tree *bmt.Tree

	shards [][]byte
	have   *bitset.BitSet

	// All shards are the same size,
	// so the first accepted shard sets the size for the rest.
	shardSize int

	// Tail of the accepted shard stream; the next node to publish.
	accepted *ShardStream

	// Set once reconstruction succeeds.
	data []byte
}

// NewReceiver returns a Receiver holding no shards.
func NewReceiver(cfg ReceiverConfig) (*Receiver, error) {
	nParity, err := validateShape(cfg.Depth, cfg.DataShards)
	if err != nil {
		return nil, err
	}
	if cfg.DataLen <= 0 {
		return nil, fmt.Errorf("data length must be positive (got %d)", cfg.DataLen)
	}
	if len(cfg.Root) != cfg.HashSize {
		return nil, fmt.Errorf(
			"root has %d bytes, configured hash size is %d", len(cfg.Root), cfg.HashSize,
		)
	}

	log := cfg.Log
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	enc, err := newEncoder(cfg.DataShards, nParity)
	if err != nil {
		return nil, err
	}

	t, err := bmt.NewTree(bmt.TreeConfig{
		Depth:    cfg.Depth,
		Hasher:   cfg.Hasher,
		HashSize: cfg.HashSize,
		Log:      log.With("sys", "tree"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create tree: %w", err)
	}

	total := cfg.DataShards + nParity

	return &Receiver{
		log: log,

		root:    cfg.Root.Clone(),
		hasher:  cfg.Hasher,
		dataLen: cfg.DataLen,
		nData:   cfg.DataShards,

		enc: enc,

		tree: t,

		shards: make([][]byte, total),
		have:   bitset.New(uint(total)),

		accepted: newShardStream(),
	}, nil
}

// AddShard verifies shard against the committed root using proof,
// and holds on to it if it is valid.
//
// The shard is copied, so the caller may reuse it afterwards.
func (r *Receiver) AddShard(idx int, shard []byte, proof bmt.Proof) error {
	if idx < 0 || idx >= len(r.shards) {
		return fmt.Errorf(
			"%w: index %d not in range [0, %d)", ErrShardRejected, idx, len(r.shards),
		)
	}
	if r.have.Test(uint(idx)) {
		return fmt.Errorf("%w: index %d", ErrAlreadyHaveShard, idx)
	}
	if proof.Offset != uint64(idx) || proof.Depth != r.tree.Depth() {
		return fmt.Errorf(
			"%w: proof is for offset %d at depth %d, want offset %d at depth %d",
			ErrShardRejected, proof.Offset, proof.Depth, idx, r.tree.Depth(),
		)
	}
	if r.shardSize != 0 && len(shard) != r.shardSize {
		return fmt.Errorf(
			"%w: shard %d has %d bytes, want %d",
			ErrShardRejected, idx, len(shard), r.shardSize,
		)
	}

	leaf := bmt.Digest(r.hasher.Leaf(shard, nil))
	ok, err := bmt.VerifyProof(r.hasher, leaf, proof, r.root)
	if err != nil {
		return fmt.Errorf("%w: shard %d: %w", ErrShardRejected, idx, err)
	}
	if !ok {
		r.log.Info("Rejected shard that does not match root", "idx", idx)
		return fmt.Errorf(
			"%w: shard %d does not prove against root %s", ErrShardRejected, idx, r.root,
		)
	}

	if err := r.tree.SetLeaf(uint64(idx), leaf); err != nil {
		return fmt.Errorf("failed to set leaf for shard %d: %w", idx, err)
	}

	r.shards[idx] = bytes.Clone(shard)
	r.have.Set(uint(idx))
	r.shardSize = len(shard)
	r.accepted = r.accepted.publish(idx)

	r.log.Debug(
		"Accepted shard",
		"idx", idx, "have", r.have.Count(), "need", r.nData,
	)

	return nil
}

// Accepted returns the current tail of the stream of accepted shard indices.
// The returned node is published when the next shard is accepted.
// Shards rebuilt by [*Receiver.Reconstruct] are not published.
func (r *Receiver) Accepted() *ShardStream {
	return r.accepted
}

// HaveShards returns the number of accepted shards.
func (r *Receiver) HaveShards() int {
	return int(r.have.Count())
}

// Ready reports whether enough shards are held to call [*Receiver.Reconstruct].
func (r *Receiver) Ready() bool {
	return r.HaveShards() >= r.nData
}

// Reconstruct rebuilds the payload from the accepted shards.
//
// Before returning the payload, the missing shards are rebuilt
// and added to the tree, and the completed tree's root
// is checked against the committed root.
// Once Reconstruct succeeds, later calls return the same payload.
func (r *Receiver) Reconstruct() ([]byte, error) {
	if r.data != nil {
		return r.data, nil
	}
	if !r.Ready() {
		return nil, fmt.Errorf(
			"%w: have %d of %d", ErrNotEnoughShards, r.HaveShards(), r.nData,
		)
	}

	// Work on a copy so that a failed reconstruction
	// leaves the accepted shards as they were.
	shards := make([][]byte, len(r.shards))
	copy(shards, r.shards)

	if r.enc != nil {
		if err := r.enc.Reconstruct(shards); err != nil {
			return nil, fmt.Errorf("failed to reconstruct shards: %w", err)
		}
	}

	// We have every shard now,
	// which means we can complete the partial tree.
	var missed int
	for u, ok := r.have.NextClear(0); ok && u < uint(len(shards)); u, ok = r.have.NextClear(u + 1) {
		leaf := bmt.Digest(r.hasher.Leaf(shards[u], nil))
		if err := r.tree.SetLeaf(uint64(u), leaf); err != nil {
			return nil, fmt.Errorf("failed to set leaf for rebuilt shard %d: %w", u, err)
		}
		missed++
	}

	got, err := r.tree.Root()
	if err != nil {
		panic(fmt.Errorf("BUG: root not ready after completing tree: %w", err))
	}
	if !got.Equal(r.root) {
		return nil, fmt.Errorf(
			"%w: rebuilt root %s, committed root %s", ErrInconsistentEncoding, got, r.root,
		)
	}

	var buf bytes.Buffer
	buf.Grow(r.dataLen)
	if r.enc == nil {
		err = joinUncoded(&buf, shards, r.dataLen)
	} else {
		err = r.enc.Join(&buf, shards, r.dataLen)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to join data shards: %w", err)
	}

	r.data = buf.Bytes()
	r.shards = shards
	r.have.ClearAll()
	r.have.FlipRange(0, uint(len(shards)))

	r.log.Debug("Reconstructed payload", "rebuilt_shards", missed, "data_len", r.dataLen)

	return r.data, nil
}
