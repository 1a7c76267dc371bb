package bmtshard

import (
	"fmt"
	"io"
	"math/bits"

	"github.com/klauspost/reedsolomon"
)

const (
	// maxDepth bounds the shard count to what the Reed-Solomon encoder supports.
	maxDepth = 16

	// Above this many shards, the encoder switches from GF(2^8)
	// to the Leopard GF(2^16) codec.
	maxGF8Shards = 256

	// Size of the GF(2^16) field.
	// The Leopard codec pads the parity count to a power of two,
	// and the padded parity plus the data shards must fit in the field.
	gf16Order = 1 << 16
)

// validateShape returns the parity shard count for the given shape,
// or an [ErrUnsupportedShape] error if the shape cannot be erasure coded.
func validateShape(depth uint8, nData int) (nParity int, err error) {
	if depth > maxDepth {
		return 0, fmt.Errorf(
			"%w: depth %d exceeds maximum %d for erasure coding",
			ErrUnsupportedShape, depth, maxDepth,
		)
	}
	total := 1 << depth
	if nData < 1 || nData > total {
		return 0, fmt.Errorf(
			"%w: data shard count must be in [1, %d] for depth %d (got %d)",
			ErrUnsupportedShape, total, depth, nData,
		)
	}

	nParity = total - nData
	if nParity > 0 && total > maxGF8Shards {
		if padded := ceilPow2(nParity); padded+nData > gf16Order {
			return 0, fmt.Errorf(
				"%w: %d parity shards pad to %d, which with %d data shards exceeds %d",
				ErrUnsupportedShape, nParity, padded, nData, gf16Order,
			)
		}
	}
	return nParity, nil
}

func ceilPow2(n int) int {
	if n <= 1 {
		return 1
	}
	return 1 << bits.Len(uint(n-1))
}

// newEncoder returns the Reed-Solomon encoder for a validated shape.
// With no parity shards there is nothing to encode,
// so newEncoder returns a nil encoder
// and callers use [splitUncoded] and [joinUncoded] instead.
func newEncoder(nData, nParity int, opts ...reedsolomon.Option) (reedsolomon.Encoder, error) {
	if nParity == 0 {
		return nil, nil
	}
	enc, err := reedsolomon.New(nData, nParity, opts...)
	if err != nil {
		return nil, fmt.Errorf(
			"failed to build Reed-Solomon encoder: %w", err,
		)
	}
	return enc, nil
}

// splitUncoded splits data into n equally sized shards,
// zero-padding the final shard.
// The shards share one backing allocation.
func splitUncoded(data []byte, n int) [][]byte {
	size := (len(data) + n - 1) / n
	mem := make([]byte, size*n)
	copy(mem, data)

	shards := make([][]byte, n)
	for i := range shards {
		shards[i] = mem[i*size : (i+1)*size : (i+1)*size]
	}
	return shards
}

// joinUncoded writes the first size bytes of the concatenated shards to w.
func joinUncoded(w io.Writer, shards [][]byte, size int) error {
	for _, s := range shards {
		if size == 0 {
			break
		}
		s = s[:min(len(s), size)]
		if _, err := w.Write(s); err != nil {
			return err
		}
		size -= len(s)
	}
	if size > 0 {
		return fmt.Errorf("shards too short: %d bytes missing", size)
	}
	return nil
}
