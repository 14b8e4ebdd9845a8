// Package pipeline orchestrates a grammar build end to end: load the
// manifest, optionally wipe and refetch every grammar and regenerate the
// langs registry, then compile whatever is out of date.
package pipeline

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/glosslang/gloss/internal/buildstate"
	"github.com/glosslang/gloss/internal/codegen"
	"github.com/glosslang/gloss/internal/fetch"
	"github.com/glosslang/gloss/internal/manifest"
	"github.com/glosslang/gloss/internal/native"
)

// RebuildEnv forces a wipe, refetch and registry regeneration when set in
// the environment, even to an empty value. It is equivalent to --regen and
// exists so CI and maintainer scripts can opt in without flag plumbing.
const RebuildEnv = "GLOSS_REBUILD_LANGS"

// Options configures one pipeline run.
type Options struct {
	Root     string
	Manifest string // manifest path, Root/languages.toml when empty
	Regen    bool   // fetch and regenerate regardless of environment

	CC   string
	CXX  string
	Jobs int

	State *buildstate.Store // nil disables compile skip detection
	Out   io.Writer         // progress lines, nil for silent
}

// Run executes the build. Fetching and regeneration only happen when asked
// for; compilation always runs and is cheap when nothing changed.
func Run(opts Options) error {
	out := opts.Out
	if out == nil {
		out = io.Discard
	}

	manifestPath := opts.Manifest
	if manifestPath == "" {
		manifestPath = filepath.Join(opts.Root, "languages.toml")
	}
	m, err := manifest.Load(manifestPath)
	if err != nil {
		return err
	}

	_, rebuild := os.LookupEnv(RebuildEnv)
	if opts.Regen || rebuild {
		f := &fetch.Fetcher{Root: opts.Root, Out: out}
		if err := f.FetchAll(m); err != nil {
			return err
		}

		g := &codegen.Generator{Root: opts.Root}
		if err := g.Generate(m); err != nil {
			return err
		}
		fmt.Fprintf(out, "  regenerated registry for %d languages\n", len(m.Languages))
	}

	fmt.Fprintf(out, "  compiling %d grammars\n", len(m.Languages))
	c := &native.Compiler{
		Root:  opts.Root,
		CC:    opts.CC,
		CXX:   opts.CXX,
		Jobs:  opts.Jobs,
		State: opts.State,
		Out:   out,
	}
	return c.CompileAll(m)
}
