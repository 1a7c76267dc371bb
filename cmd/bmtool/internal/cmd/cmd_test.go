package cmd_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gordian-engine/bmt/bmt"
	"github.com/gordian-engine/bmt/bmthash/bmsha3"
	"github.com/gordian-engine/bmt/cmd/bmtool/internal/cmd"
	"github.com/gordian-engine/bmt/internal/bmttest"
	"github.com/stretchr/testify/require"
)

const fillRoot = "0x699fc94ff1ec83f1abf531030e324003e7758298281645245f7c698425a5e0e7"

var abDigest = "0x" + strings.Repeat("ab", 32)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	root := cmd.NewRootCommand()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)

	err := root.Execute()
	t.Log(errOut.String())
	return out.String(), err
}

func TestLoadTreeFile(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "tree.toml", `
depth = 1
fill = "`+abDigest+`"
`)

	tf, err := cmd.LoadTreeFile(path)
	require.NoError(t, err)
	require.Equal(t, uint8(1), tf.Depth)
	require.Equal(t, cmd.DefaultHash, tf.Hash)

	tree, err := tf.Build(bmttest.NewLogger(t))
	require.NoError(t, err)

	root, err := tree.Root()
	require.NoError(t, err)
	require.Equal(t, fillRoot, root.String())
}

func TestLoadTreeFile_unknownKey(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "tree.toml", `
depth = 1
dpeth = 2
`)
	_, err := cmd.LoadTreeFile(path)
	require.ErrorContains(t, err, "dpeth")
}

func TestTreeFile_Build_leaves(t *testing.T) {
	t.Parallel()

	l0 := "0x" + strings.Repeat("00", 32)
	l1 := "0x" + strings.Repeat("11", 32)

	tf := &cmd.TreeFile{
		Depth: 1,
		Hash:  "sha3-256",
		Leaves: map[string]string{
			"0": l0,
			"1": l1,
		},
	}
	tree, err := tf.Build(bmttest.NewLogger(t))
	require.NoError(t, err)

	a, err := bmt.ParseDigest(l0)
	require.NoError(t, err)
	b, err := bmt.ParseDigest(l1)
	require.NoError(t, err)

	root, err := tree.Root()
	require.NoError(t, err)
	require.Equal(t, bmt.Digest(bmsha3.Hasher{}.Node(a, b, nil)), root)

	tf.Leaves["2"] = l0
	_, err = tf.Build(bmttest.NewLogger(t))
	require.ErrorIs(t, err, bmt.ErrOffsetOutOfRange)

	tf.Leaves = map[string]string{"x": l0}
	_, err = tf.Build(bmttest.NewLogger(t))
	require.Error(t, err)

	tf.Leaves = nil
	tf.Hash = "md5"
	_, err = tf.Build(bmttest.NewLogger(t))
	require.Error(t, err)
}

func TestProofText_roundTrip(t *testing.T) {
	t.Parallel()

	tf := &cmd.TreeFile{Depth: 3, Hash: "sha256", Fill: abDigest}
	tree, err := tf.Build(bmttest.NewLogger(t))
	require.NoError(t, err)

	p, err := tree.ProveInclusion(5)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, cmd.WriteProofText(&buf, p))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3+3)
	require.Equal(t, "depth 3", lines[0])
	require.Equal(t, "offset 5", lines[1])
	require.True(t, strings.HasPrefix(lines[3], "right 0x"))
	require.True(t, strings.HasPrefix(lines[4], "left 0x"))
	require.True(t, strings.HasPrefix(lines[5], "right 0x"))

	got, err := cmd.ReadProofText(strings.NewReader("# comment\n\n" + buf.String()))
	require.NoError(t, err)
	require.Equal(t, p, got)
}

func TestReadProofText_errors(t *testing.T) {
	t.Parallel()

	for _, in := range []string{
		"",
		"depth 1\noffset 0\n",
		"depth x\noffset 0\nleaf 0xab\n",
		"depth 1\noffset 0\nleaf 0xab\nup 0xab\n",
		"depth 1\noffset 0\nleaf 0xab\nleft zz\n",
		"depth1\n",
	} {
		_, err := cmd.ReadProofText(strings.NewReader(in))
		require.Error(t, err, "input %q", in)
	}
}

func TestCommands_proveThenVerify(t *testing.T) {
	t.Parallel()

	cfg := writeFile(t, "tree.toml", `
depth = 1
hash = "sha3-256"
fill = "`+abDigest+`"
`)

	out, err := run(t, "root", "-c", cfg)
	require.NoError(t, err)
	require.Equal(t, fillRoot+"\n", out)

	out, err = run(t, "dump", "-c", cfg, "--log-level", "debug")
	require.NoError(t, err)
	require.Equal(t, 3, strings.Count(out, "\n"))
	require.True(t, strings.HasPrefix(out, "1\t0\t0\t"+fillRoot))

	proofText, err := run(t, "prove", "-c", cfg, "--offset", "1")
	require.NoError(t, err)
	proofPath := writeFile(t, "proof.txt", proofText)

	out, err = run(t, "verify", "--root", fillRoot, "--proof", proofPath)
	require.NoError(t, err)
	require.Equal(t, "OK\n", out)

	// Wrong root.
	badRoot := "0x" + strings.Repeat("00", 32)
	_, err = run(t, "verify", "--root", badRoot, "--proof", proofPath)
	require.Error(t, err)

	// Wrong hash.
	_, err = run(t, "verify", "--hash", "sha256", "--root", fillRoot, "--proof", proofPath)
	require.Error(t, err)
}

func TestCommands_rootNotReady(t *testing.T) {
	t.Parallel()

	cfg := writeFile(t, "tree.toml", `
depth = 1

[leaves]
"0" = "`+abDigest+`"
`)

	_, err := run(t, "root", "-c", cfg)
	require.ErrorIs(t, err, bmt.ErrRootNotReady)

	_, err = run(t, "prove", "-c", cfg, "--offset", "0")
	require.ErrorIs(t, err, bmt.ErrSiblingAbsent)

	_, err = run(t, "root", "-c", cfg, "--log-level", "loud")
	require.Error(t, err)
}

func TestTreeFile_Build_depthLimit(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "tree.toml", `
depth = 40
`)
	tf, err := cmd.LoadTreeFile(path)
	require.NoError(t, err)

	_, err = tf.Build(bmttest.NewLogger(t))
	require.ErrorContains(t, err, "exceeds maximum")

	_, err = run(t, "root", "-c", path)
	require.ErrorContains(t, err, "exceeds maximum")
}
