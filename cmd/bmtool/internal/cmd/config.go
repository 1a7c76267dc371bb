package cmd

import (
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/gordian-engine/bmt/bmt"
	"github.com/gordian-engine/bmt/bmthash"
	"github.com/gordian-engine/bmt/bmthash/bmsha256"
	"github.com/gordian-engine/bmt/bmthash/bmsha3"
)

// DefaultHash is the hash used when a tree description does not name one.
const DefaultHash = "sha3-256"

// MaxDepth is the deepest tree bmtool will build.
// The whole tree is held in memory, and at this depth
// a tree of 32-byte digests already takes 1 GiB.
const MaxDepth = 24

// TreeFile is the TOML description of a tree.
//
//	depth = 2
//	hash = "sha3-256"
//	fill = "0x00..."
//
//	[leaves]
//	"0" = "0xab..."
//
// Fill, if set, is applied first, and then each entry in Leaves
// overrides the leaf at its decimal offset.
type TreeFile struct {
	Depth  uint8             `toml:"depth"`
	Hash   string            `toml:"hash"`
	Fill   string            `toml:"fill"`
	Leaves map[string]string `toml:"leaves"`
}

// LoadTreeFile decodes the tree description at path.
// Keys that do not belong to a tree description are an error,
// so that a misspelled key is not silently ignored.
func LoadTreeFile(path string) (*TreeFile, error) {
	var tf TreeFile
	md, err := toml.DecodeFile(path, &tf)
	if err != nil {
		return nil, fmt.Errorf("failed to decode tree description %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf(
			"unknown keys in tree description %s: %s", path, strings.Join(keys, ", "),
		)
	}
	if tf.Hash == "" {
		tf.Hash = DefaultHash
	}
	return &tf, nil
}

// HasherByName returns the hasher and its digest size for a hash name
// as used in a tree description.
func HasherByName(name string) (bmthash.Hasher, int, error) {
	switch strings.ToLower(name) {
	case "sha3-256", "sha3":
		return bmsha3.Hasher{}, bmsha3.HashSize, nil
	case "sha256", "sha-256":
		return bmsha256.Hasher{}, bmsha256.HashSize, nil
	default:
		return nil, 0, fmt.Errorf("unknown hash %q (want sha3-256 or sha256)", name)
	}
}

// Build creates the described tree and populates it.
func (tf *TreeFile) Build(log *slog.Logger) (*bmt.Tree, error) {
	if tf.Depth > MaxDepth {
		return nil, fmt.Errorf("depth %d exceeds maximum %d", tf.Depth, MaxDepth)
	}

	h, hashSize, err := HasherByName(tf.Hash)
	if err != nil {
		return nil, err
	}

	t, err := bmt.NewTree(bmt.TreeConfig{
		Depth:    tf.Depth,
		Hasher:   h,
		HashSize: hashSize,
		Log:      log,
	})
	if err != nil {
		return nil, err
	}

	if tf.Fill != "" {
		d, err := bmt.ParseDigest(tf.Fill)
		if err != nil {
			return nil, fmt.Errorf("invalid fill: %w", err)
		}
		if err := t.Fill(d); err != nil {
			return nil, fmt.Errorf("invalid fill: %w", err)
		}
	}

	// Apply leaves in offset order so that the log output is stable.
	offsets := make([]uint64, 0, len(tf.Leaves))
	byOffset := make(map[uint64]string, len(tf.Leaves))
	for k, v := range tf.Leaves {
		o, err := strconv.ParseUint(k, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid leaf offset %q: %w", k, err)
		}
		if _, dup := byOffset[o]; dup {
			return nil, fmt.Errorf("leaf offset %d given more than once", o)
		}
		offsets = append(offsets, o)
		byOffset[o] = v
	}
	slices.Sort(offsets)

	for _, o := range offsets {
		d, err := bmt.ParseDigest(byOffset[o])
		if err != nil {
			return nil, fmt.Errorf("invalid leaf %d: %w", o, err)
		}
		if err := t.SetLeaf(o, d); err != nil {
			return nil, fmt.Errorf("invalid leaf %d: %w", o, err)
		}
	}

	log.Info(
		"Built tree",
		"depth", tf.Depth, "hash", tf.Hash,
		"present_leaves", t.PresentLeaves(), "leaf_count", t.LeafCount(),
	)

	return t, nil
}
