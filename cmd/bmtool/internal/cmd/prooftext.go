package cmd

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/gordian-engine/bmt/bmt"
	"github.com/gordian-engine/bmt/bmtidx"
)

// WriteProofText writes p as text, one field per line:
//
//	depth 2
//	offset 1
//	leaf 0x...
//	right 0x...
//	left 0x...
//
// Each step line names the direction of the node on the proven path,
// followed by the sibling digest, from the leaf upward.
func WriteProofText(w io.Writer, p bmt.Proof) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "depth %d\n", p.Depth)
	fmt.Fprintf(bw, "offset %d\n", p.Offset)
	fmt.Fprintf(bw, "leaf %s\n", p.Leaf)
	for _, s := range p.Steps {
		fmt.Fprintf(bw, "%s %s\n", s.Dir, s.Sibling)
	}
	return bw.Flush()
}

// ReadProofText parses the output of [WriteProofText].
// Blank lines and lines starting with '#' are ignored.
//
// ReadProofText only checks the syntax of each line;
// structural checks are left to [bmt.VerifyProof].
func ReadProofText(r io.Reader) (bmt.Proof, error) {
	var (
		p bmt.Proof

		haveDepth, haveOffset, haveLeaf bool
	)

	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, val, ok := strings.Cut(line, " ")
		if !ok {
			return bmt.Proof{}, fmt.Errorf("line %d: expected \"key value\", got %q", lineNo, line)
		}
		val = strings.TrimSpace(val)

		switch key {
		case "depth":
			d, err := strconv.ParseUint(val, 10, 8)
			if err != nil {
				return bmt.Proof{}, fmt.Errorf("line %d: invalid depth: %w", lineNo, err)
			}
			p.Depth = uint8(d)
			haveDepth = true

		case "offset":
			o, err := strconv.ParseUint(val, 10, 64)
			if err != nil {
				return bmt.Proof{}, fmt.Errorf("line %d: invalid offset: %w", lineNo, err)
			}
			p.Offset = o
			haveOffset = true

		case "leaf":
			d, err := bmt.ParseDigest(val)
			if err != nil {
				return bmt.Proof{}, fmt.Errorf("line %d: invalid leaf: %w", lineNo, err)
			}
			p.Leaf = d
			haveLeaf = true

		case bmtidx.Left.String(), bmtidx.Right.String():
			d, err := bmt.ParseDigest(val)
			if err != nil {
				return bmt.Proof{}, fmt.Errorf("line %d: invalid sibling: %w", lineNo, err)
			}
			dir := bmtidx.Left
			if key == bmtidx.Right.String() {
				dir = bmtidx.Right
			}
			p.Steps = append(p.Steps, bmt.ProofStep{Sibling: d, Dir: dir})

		default:
			return bmt.Proof{}, fmt.Errorf("line %d: unknown key %q", lineNo, key)
		}
	}
	if err := sc.Err(); err != nil {
		return bmt.Proof{}, fmt.Errorf("failed to read proof: %w", err)
	}

	if !haveDepth || !haveOffset || !haveLeaf {
		return bmt.Proof{}, fmt.Errorf("proof must contain depth, offset, and leaf lines")
	}

	return p, nil
}
