// Package manifest loads and validates languages.toml, the declarative list
// of grammars the build pipeline fetches, compiles, and registers.
package manifest

import (
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// Language describes a single grammar in the manifest.
type Language struct {
	Name    string   `toml:"name"`
	Repo    string   `toml:"repo"`
	Aliases []string `toml:"aliases,omitempty"`
	Command string   `toml:"command,omitempty"`
}

// Manifest is the parsed grammar manifest. Languages keep their declaration
// order; generated output depends on it.
type Manifest struct {
	Languages []Language `toml:"languages"`
}

// ParseError reports a manifest that could not be read, parsed, or validated.
type ParseError struct {
	Path string
	Msg  string
	Err  error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("manifest %s: %s: %v", e.Path, e.Msg, e.Err)
	}
	return fmt.Sprintf("manifest %s: %s", e.Path, e.Msg)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Load reads a manifest from a TOML file and validates it.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ParseError{Path: path, Msg: "read", Err: err}
	}
	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, &ParseError{Path: path, Msg: "parse", Err: err}
	}
	if err := m.validate(path); err != nil {
		return nil, err
	}
	return &m, nil
}

// validate enforces the structural rules the rest of the pipeline relies on:
// names are present, well-formed, and unique; every entry has a way to be
// fetched. The name "temp" is reserved for the fetch staging directory.
func (m *Manifest) validate(path string) error {
	seen := make(map[string]bool, len(m.Languages))
	for i, lang := range m.Languages {
		if lang.Name == "" {
			return &ParseError{Path: path, Msg: fmt.Sprintf("languages[%d]: missing name", i)}
		}
		if !validName(lang.Name) {
			return &ParseError{Path: path, Msg: fmt.Sprintf("language %q: name must match [a-z][a-z0-9_-]*", lang.Name)}
		}
		if lang.Name == "temp" {
			return &ParseError{Path: path, Msg: `language "temp": name is reserved for staging`}
		}
		if seen[lang.Name] {
			return &ParseError{Path: path, Msg: fmt.Sprintf("language %q: duplicate name", lang.Name)}
		}
		seen[lang.Name] = true
		if lang.Repo == "" && lang.Command == "" {
			return &ParseError{Path: path, Msg: fmt.Sprintf("language %q: needs a repo or a command", lang.Name)}
		}
	}
	return nil
}

// validName reports whether a language name is safe to use as a directory
// name and as the base of a generated identifier. Names start with a letter
// so the derived identifiers do too.
func validName(name string) bool {
	if name == "" || name[0] < 'a' || name[0] > 'z' {
		return false
	}
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= '0' && r <= '9':
		case r == '-' || r == '_':
		default:
			return false
		}
	}
	return true
}

// Get returns the language declared under name.
func (m *Manifest) Get(name string) (Language, bool) {
	for _, lang := range m.Languages {
		if lang.Name == name {
			return lang, true
		}
	}
	return Language{}, false
}

// Ident returns the language name with dashes replaced by underscores.
// It is the suffix of the grammar's C entry point (tree_sitter_<ident>)
// and the base of its generated identifiers.
func (l Language) Ident() string {
	return strings.ReplaceAll(l.Name, "-", "_")
}

// Keys returns every registry key the language claims: its name followed by
// its aliases.
func (l Language) Keys() []string {
	keys := make([]string, 0, 1+len(l.Aliases))
	keys = append(keys, l.Name)
	keys = append(keys, l.Aliases...)
	return keys
}
