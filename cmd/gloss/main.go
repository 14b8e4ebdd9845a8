// gloss builds tree-sitter grammars for syntax highlighting: it fetches
// grammar repositories, compiles parsers and scanners to static libraries,
// and generates the language registry they link into.
package main

import (
	"os"

	"github.com/glosslang/gloss/cmd/gloss/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
