// Package cmd implements the bmtool subcommands.
package cmd

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"
)

// NewRootCommand returns the "bmtool" command with every subcommand attached.
func NewRootCommand() *cobra.Command {
	var logLevel string

	// Replaced in PersistentPreRunE, once the flag has been parsed.
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	logFn := func() *slog.Logger { return log }

	root := &cobra.Command{
		Use:   "bmtool",
		Short: "Build fixed-depth binary Merkle trees and check inclusion proofs",
		Long: `bmtool builds a fixed-depth binary Merkle tree from a TOML description,
prints its root or every slot, and produces and verifies inclusion proofs.`,

		SilenceUsage: true,

		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			var lvl slog.Level
			if err := lvl.UnmarshalText([]byte(logLevel)); err != nil {
				return fmt.Errorf("invalid --log-level %q: %w", logLevel, err)
			}
			log = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
				Level: lvl,
			}))
			return nil
		},
	}

	root.PersistentFlags().StringVar(
		&logLevel, "log-level", "warn", "Minimum level of log output (debug, info, warn, error)",
	)

	root.AddCommand(
		newRootHashCommand(logFn),
		newDumpCommand(logFn),
		newProveCommand(logFn),
		newVerifyCommand(logFn),
	)

	return root
}

func addConfigFlag(cmd *cobra.Command) {
	cmd.Flags().StringP("config", "c", "tree.toml", "Path to the TOML tree description")
}

// loadTreeFromFlags loads the tree described by the --config flag.
func loadTreeFromFlags(cmd *cobra.Command, log *slog.Logger) (*TreeFile, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	tf, err := LoadTreeFile(path)
	if err != nil {
		return nil, err
	}
	log.Debug("Loaded tree description", "path", path, "depth", tf.Depth, "hash", tf.Hash)
	return tf, nil
}
