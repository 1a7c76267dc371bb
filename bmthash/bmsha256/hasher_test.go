package bmsha256_test

import (
	"testing"

	"github.com/gordian-engine/bmt/bmthash"
	"github.com/gordian-engine/bmt/bmthash/bmsha256"
	"github.com/gordian-engine/bmt/bmthash/bmthashtest"
)

func TestCompliance(t *testing.T) {
	t.Parallel()

	bmthashtest.TestHasherCompliance(t, func() (bmthash.Hasher, int) {
		return bmsha256.Hasher{}, bmsha256.HashSize
	})
}
