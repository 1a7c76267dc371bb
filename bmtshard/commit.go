package bmtshard

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/gordian-engine/bmt/bmt"
	"github.com/gordian-engine/bmt/bmthash"
	"github.com/klauspost/reedsolomon"
)

// CommitConfig is the configuration for [Commit].
type CommitConfig struct {
	// Depth of the tree. There is one shard per leaf,
	// so the total shard count is 2^Depth.
	Depth uint8

	// How many of the shards hold payload data.
	// The remaining 2^Depth - DataShards shards are parity,
	// and any DataShards of the total are enough to rebuild the payload.
	DataShards int

	Hasher   bmthash.Hasher
	HashSize int

	Log *slog.Logger

	// Passed through to [bmt.TreeConfig].
	Workers int
}

// Commitment is the output of [Commit].
type Commitment struct {
	Root bmt.Digest

	DataShards, ParityShards int

	// Length of the original payload.
	// The final data shard is padded,
	// so the receiver needs this to trim the reconstructed payload.
	DataLen int

	// Every shard, data first, then parity.
	// Shards[i] is the leaf at offset i.
	Shards [][]byte

	// Proofs[i] proves Shards[i] against Root.
	Proofs []bmt.Proof
}

// Commit erasure codes data and builds a Merkle tree over the shards.
func Commit(data []byte, cfg CommitConfig) (Commitment, error) {
	if len(data) == 0 {
		return Commitment{}, ErrEmptyData
	}
	nParity, err := validateShape(cfg.Depth, cfg.DataShards)
	if err != nil {
		return Commitment{}, err
	}

	log := cfg.Log
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	shardSize := (len(data) + cfg.DataShards - 1) / cfg.DataShards
	enc, err := newEncoder(
		cfg.DataShards, nParity,
		reedsolomon.WithAutoGoroutines(shardSize),
	)
	if err != nil {
		return Commitment{}, err
	}

	var shards [][]byte
	if enc == nil {
		shards = splitUncoded(data, cfg.DataShards)
	} else {
		shards, err = enc.Split(data)
		if err != nil {
			return Commitment{}, fmt.Errorf(
				"failed to split data for sharding: %w", err,
			)
		}

		if err := enc.Encode(shards); err != nil {
			return Commitment{}, fmt.Errorf(
				"failed to erasure-code data: %w", err,
			)
		}
	}

	// Now that the data is erasure-coded,
	// we can build the Merkle tree.
	t, err := bmt.NewTree(bmt.TreeConfig{
		Depth:    cfg.Depth,
		Hasher:   cfg.Hasher,
		HashSize: cfg.HashSize,
		Log:      log.With("sys", "tree"),
		Workers:  cfg.Workers,
	})
	if err != nil {
		return Commitment{}, fmt.Errorf("failed to create tree: %w", err)
	}

	leaves, err := hashShards(cfg.Hasher, cfg.HashSize, shards)
	if err != nil {
		return Commitment{}, err
	}
	if err := t.SetLeaves(0, leaves); err != nil {
		return Commitment{}, fmt.Errorf("failed to set shard leaves: %w", err)
	}

	root, err := t.Root()
	if err != nil {
		panic(fmt.Errorf("BUG: root not ready after setting every leaf: %w", err))
	}

	proofs := make([]bmt.Proof, len(shards))
	for i := range shards {
		proofs[i], err = t.ProveInclusion(uint64(i))
		if err != nil {
			panic(fmt.Errorf("BUG: failed to prove shard %d in complete tree: %w", i, err))
		}
	}

	log.Debug(
		"Committed payload",
		"root", root.String(),
		"data_len", len(data),
		"data_shards", cfg.DataShards,
		"parity_shards", nParity,
		"shard_size", len(shards[0]),
	)

	return Commitment{
		Root: root,

		DataShards:   cfg.DataShards,
		ParityShards: nParity,

		DataLen: len(data),

		Shards: shards,
		Proofs: proofs,
	}, nil
}

// hashShards returns the leaf digest of every shard,
// backed by a single allocation.
func hashShards(h bmthash.Hasher, hashSize int, shards [][]byte) ([]bmt.Digest, error) {
	mem := make([]byte, 0, len(shards)*hashSize)
	out := make([]bmt.Digest, len(shards))
	for i, s := range shards {
		start := len(mem)
		mem = h.Leaf(s, mem)
		if len(mem)-start != hashSize {
			return nil, fmt.Errorf(
				"hasher produced %d bytes for shard %d, configured hash size is %d",
				len(mem)-start, i, hashSize,
			)
		}
		out[i] = bmt.Digest(mem[start:len(mem):len(mem)])
	}
	return out, nil
}
