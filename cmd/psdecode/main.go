// Command psdecode is the CLI driver around the recognition core: a batch
// "decode" mode that mirrors the original's sphinx_decode/pocketsphinx CLI
// (spec.md §6's flag surface, the `cmd/psdecode` leg of SPEC_FULL.md §1.E),
// plus a "serve" mode exposing the same decoder over WebSocket and MCP
// (SPEC_FULL.md §6.E).
package main

import "os"

// version and commit are set at build time via -ldflags, in the same
// convention USA-RedDragon/DMRHub's cmd/root.go uses for its own
// NewCommand(version, commit) constructor.
var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	if err := NewRootCommand(version, commit).Execute(); err != nil {
		os.Exit(1)
	}
}
