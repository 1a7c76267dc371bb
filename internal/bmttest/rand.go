package bmttest

import (
	"crypto/sha256"
	"math/rand/v2"
	"testing"
)

// RandomDataForTest returns a byte slice of size sz
// containing pseudorandom data, derived from a seed based on the test name.
func RandomDataForTest(t testing.TB, sz int) []byte {
	// Sha256 happens to be the right size for the chacha8 seed,
	// and this fits well anyway since that means
	// we are not limited by the length of any particular test name.
	seed := sha256.Sum256([]byte(t.Name()))
	chacha := rand.NewChaCha8(seed)

	out := make([]byte, sz)

	if _, err := chacha.Read(out); err != nil {
		panic(err)
	}

	return out
}

// RandomDigestsForTest returns n pseudorandom digests of size hashSize,
// derived from the test name in the same way as [RandomDataForTest].
// The digests share one backing allocation.
func RandomDigestsForTest(t testing.TB, n, hashSize int) [][]byte {
	mem := RandomDataForTest(t, n*hashSize)

	out := make([][]byte, n)
	for i := range out {
		out[i] = mem[i*hashSize : (i+1)*hashSize : (i+1)*hashSize]
	}
	return out
}
