package bmt

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"strings"
)

// Digest is the output of a [bmthash.Hasher].
//
// [bmthash.Hasher]: https://pkg.go.dev/github.com/gordian-engine/bmt/bmthash#Hasher
type Digest []byte

// String renders d as 0x-prefixed lowercase hex.
func (d Digest) String() string {
	return "0x" + hex.EncodeToString(d)
}

// Equal reports whether d and o contain the same bytes.
func (d Digest) Equal(o Digest) bool {
	return bytes.Equal(d, o)
}

// Clone returns a copy of d that does not share memory with d.
func (d Digest) Clone() Digest {
	if d == nil {
		return nil
	}
	return bytes.Clone(d)
}

// ParseDigest decodes a hex string, with or without a 0x prefix.
func ParseDigest(s string) (Digest, error) {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		s = s[2:]
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("failed to parse digest: %w", err)
	}
	if len(b) == 0 {
		return nil, fmt.Errorf("failed to parse digest: %w: empty", ErrDigestSize)
	}
	return Digest(b), nil
}
