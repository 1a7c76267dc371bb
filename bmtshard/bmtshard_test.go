package bmtshard_test

import (
	"testing"

	"github.com/gordian-engine/bmt/bmt"
	"github.com/gordian-engine/bmt/bmthash/bmsha256"
	"github.com/gordian-engine/bmt/bmtshard"
	"github.com/gordian-engine/bmt/internal/bmttest"
	"github.com/stretchr/testify/require"
)

func commitForTest(t *testing.T, data []byte, depth uint8, nData int) bmtshard.Commitment {
	t.Helper()

	c, err := bmtshard.Commit(data, bmtshard.CommitConfig{
		Depth:      depth,
		DataShards: nData,
		Hasher:     bmsha256.Hasher{},
		HashSize:   bmsha256.HashSize,
		Log:        bmttest.NewLogger(t),
	})
	require.NoError(t, err)
	return c
}

func receiverFor(t *testing.T, c bmtshard.Commitment, depth uint8) *bmtshard.Receiver {
	t.Helper()

	r, err := bmtshard.NewReceiver(bmtshard.ReceiverConfig{
		Root:       c.Root,
		Depth:      depth,
		DataShards: c.DataShards,
		DataLen:    c.DataLen,
		Hasher:     bmsha256.Hasher{},
		HashSize:   bmsha256.HashSize,
		Log:        bmttest.NewLogger(t),
	})
	require.NoError(t, err)
	return r
}

func TestCommit(t *testing.T) {
	t.Parallel()

	data := bmttest.RandomDataForTest(t, 1000)
	c := commitForTest(t, data, 3, 5)

	require.Equal(t, 5, c.DataShards)
	require.Equal(t, 3, c.ParityShards)
	require.Equal(t, 1000, c.DataLen)
	require.Len(t, c.Shards, 8)
	require.Len(t, c.Proofs, 8)

	for i, s := range c.Shards {
		require.Len(t, s, len(c.Shards[0]))

		leaf := bmt.Digest(bmsha256.Hasher{}.Leaf(s, nil))
		ok, err := bmt.VerifyProof(bmsha256.Hasher{}, leaf, c.Proofs[i], c.Root)
		require.NoError(t, err)
		require.True(t, ok, "shard %d", i)
	}
}

func TestCommit_invalid(t *testing.T) {
	t.Parallel()

	cfg := bmtshard.CommitConfig{
		Depth:      2,
		DataShards: 5,
		Hasher:     bmsha256.Hasher{},
		HashSize:   bmsha256.HashSize,
	}
	_, err := bmtshard.Commit([]byte("hello"), cfg)
	require.Error(t, err)

	cfg.DataShards = 0
	_, err = bmtshard.Commit([]byte("hello"), cfg)
	require.Error(t, err)

	cfg.DataShards = 2
	_, err = bmtshard.Commit(nil, cfg)
	require.ErrorIs(t, err, bmtshard.ErrEmptyData)
}

func TestCommit_gf16ShapeLimit(t *testing.T) {
	t.Parallel()

	// 64536 parity shards pad to 65536,
	// leaving no room in the field for 1000 data shards.
	_, err := bmtshard.Commit(bmttest.RandomDataForTest(t, 5000), bmtshard.CommitConfig{
		Depth:      16,
		DataShards: 1000,
		Hasher:     bmsha256.Hasher{},
		HashSize:   bmsha256.HashSize,
	})
	require.ErrorIs(t, err, bmtshard.ErrUnsupportedShape)

	_, err = bmtshard.NewReceiver(bmtshard.ReceiverConfig{
		Root:       make(bmt.Digest, bmsha256.HashSize),
		Depth:      16,
		DataShards: 1000,
		DataLen:    5000,
		Hasher:     bmsha256.Hasher{},
		HashSize:   bmsha256.HashSize,
	})
	require.ErrorIs(t, err, bmtshard.ErrUnsupportedShape)

	// An even split fits exactly.
	_, err = bmtshard.NewReceiver(bmtshard.ReceiverConfig{
		Root:       make(bmt.Digest, bmsha256.HashSize),
		Depth:      16,
		DataShards: 1 << 15,
		DataLen:    5000,
		Hasher:     bmsha256.Hasher{},
		HashSize:   bmsha256.HashSize,
	})
	require.NoError(t, err)
}

func TestReceiver_noParity(t *testing.T) {
	t.Parallel()

	for _, depth := range []uint8{2, 9} {
		data := bmttest.RandomDataForTest(t, 3001)
		nData := 1 << depth
		c := commitForTest(t, data, depth, nData)
		require.Zero(t, c.ParityShards)
		require.Len(t, c.Shards, nData)

		r := receiverFor(t, c, depth)

		// Skip the first shard until the end; every shard is required.
		for idx := 1; idx < nData; idx++ {
			require.NoError(t, r.AddShard(idx, c.Shards[idx], c.Proofs[idx]))
		}
		require.False(t, r.Ready())
		_, err := r.Reconstruct()
		require.ErrorIs(t, err, bmtshard.ErrNotEnoughShards)

		require.NoError(t, r.AddShard(0, c.Shards[0], c.Proofs[0]))

		got, err := r.Reconstruct()
		require.NoError(t, err)
		require.Equal(t, data, got, "depth %d", depth)
	}
}

func TestReceiver_gf16Reconstruct(t *testing.T) {
	t.Parallel()

	const depth = 9
	data := bmttest.RandomDataForTest(t, 20_000)
	c := commitForTest(t, data, depth, 300)
	require.Equal(t, 212, c.ParityShards)

	r := receiverFor(t, c, depth)

	// Use the highest-numbered shards, so every parity shard is needed.
	for idx := len(c.Shards) - 1; !r.Ready(); idx-- {
		require.NoError(t, r.AddShard(idx, c.Shards[idx], c.Proofs[idx]))
	}

	got, err := r.Reconstruct()
	require.NoError(t, err)
	require.Equal(t, data, got)
}

func TestReceiver_reconstructFromAnySubset(t *testing.T) {
	t.Parallel()

	data := bmttest.RandomDataForTest(t, 1000)
	c := commitForTest(t, data, 3, 5)

	for _, subset := range [][]int{
		{0, 1, 2, 3, 4},
		{7, 6, 5, 4, 3},
		{1, 3, 5, 6, 7},
	} {
		r := receiverFor(t, c, 3)

		for n, idx := range subset {
			_, err := r.Reconstruct()
			require.ErrorIs(t, err, bmtshard.ErrNotEnoughShards)
			require.False(t, r.Ready())
			require.Equal(t, n, r.HaveShards())

			require.NoError(t, r.AddShard(idx, c.Shards[idx], c.Proofs[idx]))
		}

		require.True(t, r.Ready())

		got, err := r.Reconstruct()
		require.NoError(t, err)
		require.Equal(t, data, got, "subset %v", subset)

		// Every shard is held after reconstruction.
		require.Equal(t, 8, r.HaveShards())

		again, err := r.Reconstruct()
		require.NoError(t, err)
		require.Equal(t, data, again)
	}
}

func TestReceiver_AddShard_rejections(t *testing.T) {
	t.Parallel()

	data := bmttest.RandomDataForTest(t, 256)
	c := commitForTest(t, data, 2, 2)
	r := receiverFor(t, c, 2)

	// Tampered shard.
	bad := append([]byte(nil), c.Shards[0]...)
	bad[0] ^= 1
	require.ErrorIs(t, r.AddShard(0, bad, c.Proofs[0]), bmtshard.ErrShardRejected)

	// Proof for another index.
	require.ErrorIs(t, r.AddShard(0, c.Shards[1], c.Proofs[1]), bmtshard.ErrShardRejected)

	// Out of range.
	require.ErrorIs(t, r.AddShard(4, c.Shards[0], c.Proofs[0]), bmtshard.ErrShardRejected)
	require.ErrorIs(t, r.AddShard(-1, c.Shards[0], c.Proofs[0]), bmtshard.ErrShardRejected)

	// Malformed proof.
	short := c.Proofs[2]
	short.Steps = short.Steps[:1]
	require.ErrorIs(t, r.AddShard(2, c.Shards[2], short), bmtshard.ErrShardRejected)

	require.Zero(t, r.HaveShards())

	require.NoError(t, r.AddShard(0, c.Shards[0], c.Proofs[0]))
	require.ErrorIs(t, r.AddShard(0, c.Shards[0], c.Proofs[0]), bmtshard.ErrAlreadyHaveShard)

	// Wrong size, after the first shard has fixed the size.
	require.ErrorIs(
		t,
		r.AddShard(1, c.Shards[1][:len(c.Shards[1])-1], c.Proofs[1]),
		bmtshard.ErrShardRejected,
	)

	require.Equal(t, 1, r.HaveShards())
}

func TestReceiver_inconsistentEncoding(t *testing.T) {
	t.Parallel()

	const depth = 3
	data := bmttest.RandomDataForTest(t, 1000)
	c := commitForTest(t, data, depth, 5)

	// Corrupt a parity shard, then commit to the corrupted set directly,
	// so that every shard proves against the root
	// but the shards are no longer a valid encoding.
	shards := make([][]byte, len(c.Shards))
	for i, s := range c.Shards {
		shards[i] = append([]byte(nil), s...)
	}
	shards[7][0] ^= 0xff

	tree, err := bmt.NewTree(bmt.TreeConfig{
		Depth:    depth,
		Hasher:   bmsha256.Hasher{},
		HashSize: bmsha256.HashSize,
	})
	require.NoError(t, err)
	for i, s := range shards {
		require.NoError(t, tree.SetLeaf(uint64(i), bmsha256.Hasher{}.Leaf(s, nil)))
	}
	root, err := tree.Root()
	require.NoError(t, err)

	r, err := bmtshard.NewReceiver(bmtshard.ReceiverConfig{
		Root:       root,
		Depth:      depth,
		DataShards: 5,
		DataLen:    len(data),
		Hasher:     bmsha256.Hasher{},
		HashSize:   bmsha256.HashSize,
		Log:        bmttest.NewLogger(t),
	})
	require.NoError(t, err)

	// Data shard 4 is missing, so it must be rebuilt using the corrupt parity.
	for _, idx := range []int{0, 1, 2, 3, 7} {
		p, err := tree.ProveInclusion(uint64(idx))
		require.NoError(t, err)
		require.NoError(t, r.AddShard(idx, shards[idx], p))
	}

	_, err = r.Reconstruct()
	require.ErrorIs(t, err, bmtshard.ErrInconsistentEncoding)
}

func TestNewReceiver_invalid(t *testing.T) {
	t.Parallel()

	base := bmtshard.ReceiverConfig{
		Root:       make(bmt.Digest, bmsha256.HashSize),
		Depth:      2,
		DataShards: 2,
		DataLen:    10,
		Hasher:     bmsha256.Hasher{},
		HashSize:   bmsha256.HashSize,
	}

	_, err := bmtshard.NewReceiver(base)
	require.NoError(t, err)

	cfg := base
	cfg.Root = cfg.Root[:4]
	_, err = bmtshard.NewReceiver(cfg)
	require.Error(t, err)

	cfg = base
	cfg.DataLen = 0
	_, err = bmtshard.NewReceiver(cfg)
	require.Error(t, err)

	cfg = base
	cfg.DataShards = 5
	_, err = bmtshard.NewReceiver(cfg)
	require.Error(t, err)
}

func TestReceiver_Accepted(t *testing.T) {
	t.Parallel()

	data := bmttest.RandomDataForTest(t, 300)
	c := commitForTest(t, data, 2, 2)
	r := receiverFor(t, c, 2)

	s := r.Accepted()

	order := []int{3, 0}
	got := make(chan []int, 1)
	go func() {
		var idxs []int
		for range order {
			<-s.Ready
			idxs = append(idxs, s.Idx)
			s = s.Next
		}
		got <- idxs
	}()

	// A rejected shard is not published.
	require.Error(t, r.AddShard(1, c.Shards[2], c.Proofs[1]))

	for _, idx := range order {
		require.NoError(t, r.AddShard(idx, c.Shards[idx], c.Proofs[idx]))
	}

	require.Equal(t, order, <-got)

	tail := r.Accepted()
	select {
	case <-tail.Ready:
		t.Fatal("tail of stream should not be ready")
	default:
	}
}
