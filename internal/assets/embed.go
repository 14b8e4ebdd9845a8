// Package assets embeds the starter grammar manifest for compile-time
// inclusion. This is a standalone package with no imports so anything can
// pull from it.
//
// Usage:
//
//	os.WriteFile("languages.toml", []byte(assets.Manifest), 0644)
package assets

import _ "embed"

//go:embed languages.toml
var Manifest string
