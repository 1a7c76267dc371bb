package bmthashtest

import (
	"sync"
	"testing"

	"github.com/gordian-engine/bmt/bmthash"
	"github.com/stretchr/testify/require"
)

type HasherFactory func() (h bmthash.Hasher, hashSize int)

// TestHasherCompliance runs the set of tests that every [bmthash.Hasher]
// must pass in order to back a tree.
func TestHasherCompliance(t *testing.T, f HasherFactory) {
	t.Run("leaf is deterministic", func(t *testing.T) {
		t.Parallel()

		h, sz := f()

		dst01 := h.Leaf([]byte("deterministic_data"), make([]byte, 0, sz))
		dst02 := h.Leaf([]byte("deterministic_data"), make([]byte, 0, sz))

		require.Equal(t, dst01, dst02)
	})

	t.Run("leaf respects input", func(t *testing.T) {
		t.Parallel()

		h, sz := f()

		dst01 := h.Leaf([]byte("hello"), make([]byte, 0, sz))
		dst02 := h.Leaf([]byte("world"), make([]byte, 0, sz))

		require.NotEqual(t, dst01, dst02)
	})

	t.Run("output appends exactly the hash size", func(t *testing.T) {
		t.Parallel()

		h, sz := f()

		prefix := []byte("prefix")

		leaf := h.Leaf([]byte("data"), append([]byte(nil), prefix...))
		require.Len(t, leaf, len(prefix)+sz)
		require.Equal(t, prefix, leaf[:len(prefix)])

		node := h.Node(leaf[len(prefix):], leaf[len(prefix):], append([]byte(nil), prefix...))
		require.Len(t, node, len(prefix)+sz)
		require.Equal(t, prefix, node[:len(prefix)])
	})

	t.Run("output is written in place when capacity allows", func(t *testing.T) {
		t.Parallel()

		h, sz := f()

		dst := make([]byte, sz)
		out := h.Leaf([]byte("in place"), dst[:0])
		require.Same(t, &dst[0], &out[0])
		require.Equal(t, dst, out)

		out = h.Node(dst, dst, make([]byte, 0, sz))
		require.Len(t, out, sz)
	})

	t.Run("node is deterministic", func(t *testing.T) {
		t.Parallel()

		h, _ := f()

		left := h.Leaf([]byte("left"), nil)
		right := h.Leaf([]byte("right"), nil)

		require.Equal(t, h.Node(left, right, nil), h.Node(left, right, nil))
	})

	t.Run("node respects order", func(t *testing.T) {
		t.Parallel()

		h, _ := f()

		left := h.Leaf([]byte("left"), nil)
		right := h.Leaf([]byte("right"), nil)

		require.NotEqual(t, h.Node(left, right, nil), h.Node(right, left, nil))
	})

	t.Run("concurrent use", func(t *testing.T) {
		t.Parallel()

		h, sz := f()

		left := h.Leaf([]byte("a"), nil)
		right := h.Leaf([]byte("b"), nil)
		want := h.Node(left, right, nil)

		const n = 8
		got := make([][]byte, n)

		var wg sync.WaitGroup
		wg.Add(n)
		for i := range n {
			go func() {
				defer wg.Done()
				got[i] = h.Node(left, right, make([]byte, 0, sz))
			}()
		}
		wg.Wait()

		for i := range n {
			require.Equal(t, want, got[i])
		}
	})
}
