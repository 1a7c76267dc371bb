// Command bmtool builds fixed-depth binary Merkle trees
// from TOML descriptions, and produces and checks inclusion proofs.
package main

import (
	"os"

	"github.com/gordian-engine/bmt/cmd/bmtool/internal/cmd"
)

func main() {
	if err := cmd.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
