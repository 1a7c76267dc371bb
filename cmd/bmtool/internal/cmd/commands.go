package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/gordian-engine/bmt/bmt"
	"github.com/spf13/cobra"
)

func newRootHashCommand(log func() *slog.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "root",
		Short: "Print the root of the described tree",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tf, err := loadTreeFromFlags(cmd, log())
			if err != nil {
				return err
			}
			t, err := tf.Build(log())
			if err != nil {
				return err
			}

			root, err := t.Root()
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), root)
			return err
		},
	}
	addConfigFlag(cmd)
	return cmd
}

func newDumpCommand(log func() *slog.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dump",
		Short: "Print every slot of the described tree",
		Long: `Print one line per slot of the described tree, in index order.
Each line has the index, depth, offset within the level,
and either the digest or "absent".`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tf, err := loadTreeFromFlags(cmd, log())
			if err != nil {
				return err
			}
			t, err := tf.Build(log())
			if err != nil {
				return err
			}
			return t.Dump(cmd.OutOrStdout())
		},
	}
	addConfigFlag(cmd)
	return cmd
}

func newProveCommand(log func() *slog.Logger) *cobra.Command {
	var offset uint64

	cmd := &cobra.Command{
		Use:   "prove",
		Short: "Print the inclusion proof for one leaf of the described tree",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tf, err := loadTreeFromFlags(cmd, log())
			if err != nil {
				return err
			}
			t, err := tf.Build(log())
			if err != nil {
				return err
			}

			p, err := t.ProveInclusion(offset)
			if err != nil {
				return err
			}
			return WriteProofText(cmd.OutOrStdout(), p)
		},
	}
	addConfigFlag(cmd)
	cmd.Flags().Uint64Var(&offset, "offset", 0, "Offset of the leaf to prove")
	return cmd
}

func newVerifyCommand(log func() *slog.Logger) *cobra.Command {
	var hashName, rootHex, proofPath string

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check an inclusion proof against a root",
		Long: `Check an inclusion proof, in the format printed by "bmtool prove",
against the given root. Exits with a non-zero status if the proof does not match.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			h, _, err := HasherByName(hashName)
			if err != nil {
				return err
			}

			root, err := bmt.ParseDigest(rootHex)
			if err != nil {
				return fmt.Errorf("invalid --root: %w", err)
			}

			in := cmd.InOrStdin()
			if proofPath != "-" {
				f, err := os.Open(proofPath)
				if err != nil {
					return fmt.Errorf("failed to open proof: %w", err)
				}
				defer f.Close()
				in = f
			}

			p, err := ReadProofText(in)
			if err != nil {
				return err
			}

			ok, err := p.Verify(h, root)
			if err != nil {
				return err
			}
			if !ok {
				log().Info("Proof mismatch", "offset", p.Offset, "root", root.String())
				return fmt.Errorf("proof for offset %d does not match root %s", p.Offset, root)
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), "OK")
			return err
		},
	}
	cmd.Flags().StringVar(&hashName, "hash", DefaultHash, "Hash used to build the tree (sha3-256 or sha256)")
	cmd.Flags().StringVar(&rootHex, "root", "", "Expected root, in hex")
	cmd.Flags().StringVar(&proofPath, "proof", "-", `Path to the proof file, or "-" for standard input`)
	_ = cmd.MarkFlagRequired("root")
	return cmd
}
