// Package langs exposes the compiled grammar registry and a runtime loader
// for grammars shipped as shared libraries.
//
// langs.go and langs_test.go are generated by `gloss build --regen` from
// languages.toml and the fetched query files. Everything else in the package
// is written by hand.
package langs

import (
	highlight "github.com/noClaps/go-tree-sitter-highlight"
)

// Factory builds a fresh highlight configuration for one language. The
// generated registry maps every language name and alias to one.
type Factory func() *highlight.Configuration
