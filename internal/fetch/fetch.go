// Package fetch wipes and re-downloads the grammar repositories declared in
// the manifest. Each language is cloned (or fetched by its override command)
// into a shared staging area, then only its src/ and queries/ directories are
// relocated into languages/<name>/. Fetching is destructive: the whole
// languages/ tree is rebuilt from scratch on every run.
package fetch

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/glosslang/gloss/internal/manifest"
)

// stagingName is the directory under languages/ that holds full checkouts
// before relocation. The manifest loader rejects it as a language name.
const stagingName = "temp"

// LanguagesDir returns the directory that holds all vendored grammars.
func LanguagesDir(root string) string {
	return filepath.Join(root, "languages")
}

// LanguageDir returns the canonical directory for one grammar.
func LanguageDir(root, name string) string {
	return filepath.Join(root, "languages", name)
}

// FetchError reports a clone or override command that failed for one
// language. Stderr carries whatever the child process wrote.
type FetchError struct {
	Lang   string
	Stderr string
	Err    error
}

func (e *FetchError) Error() string {
	if s := strings.TrimSpace(e.Stderr); s != "" {
		return fmt.Sprintf("fetch %s: %v\n%s", e.Lang, e.Err, s)
	}
	return fmt.Sprintf("fetch %s: %v", e.Lang, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// RelocateError reports a fetched checkout that could not be moved into its
// canonical directory, usually because it has no src/ at the expected path.
type RelocateError struct {
	Lang string
	Path string
	Err  error
}

func (e *RelocateError) Error() string {
	return fmt.Sprintf("relocate %s: %s: %v", e.Lang, e.Path, e.Err)
}

func (e *RelocateError) Unwrap() error { return e.Err }

// Fetcher downloads grammar sources into Root/languages/.
type Fetcher struct {
	Root string    // project root; fetch commands run here
	Out  io.Writer // progress lines, nil for silent
}

type job struct {
	lang     manifest.Language
	cmd      *exec.Cmd
	stderr   *bytes.Buffer
	startErr error
}

// FetchAll replaces the languages/ tree with fresh checkouts of every
// manifest entry. All fetch commands are started up front and collected in
// declaration order; clones are network-bound, so the overlap is where the
// time goes. The first failure is returned after every child has been
// reaped. Relocation only runs once every fetch has succeeded.
func (f *Fetcher) FetchAll(m *manifest.Manifest) error {
	out := f.Out
	if out == nil {
		out = io.Discard
	}

	langRoot := LanguagesDir(f.Root)
	staging := filepath.Join(langRoot, stagingName)

	if err := os.RemoveAll(langRoot); err != nil {
		return fmt.Errorf("wipe %s: %w", langRoot, err)
	}
	if err := os.MkdirAll(staging, 0755); err != nil {
		return fmt.Errorf("create %s: %w", staging, err)
	}

	fmt.Fprintf(out, "  fetching %d grammars\n", len(m.Languages))

	jobs := make([]job, len(m.Languages))
	for i, lang := range m.Languages {
		cmd, stderr := f.command(lang)
		jobs[i] = job{lang: lang, cmd: cmd, stderr: stderr, startErr: cmd.Start()}
	}

	var firstErr error
	for i := range jobs {
		j := &jobs[i]
		err := j.startErr
		if err == nil {
			err = j.cmd.Wait()
		}
		if err != nil {
			fmt.Fprintf(out, "    %-14s failed\n", j.lang.Name)
			if firstErr == nil {
				firstErr = &FetchError{Lang: j.lang.Name, Stderr: j.stderr.String(), Err: err}
			}
			continue
		}
		fmt.Fprintf(out, "    %-14s fetched\n", j.lang.Name)
	}
	if firstErr != nil {
		return firstErr
	}

	for _, lang := range m.Languages {
		if err := f.relocate(lang.Name); err != nil {
			return err
		}
	}

	if err := os.RemoveAll(staging); err != nil {
		return fmt.Errorf("remove %s: %w", staging, err)
	}
	return nil
}

// command builds the fetch command for one language. Commands run with the
// project root as working directory and a relative destination, so an
// override command in the manifest composes the same way the default clone
// does.
func (f *Fetcher) command(lang manifest.Language) (*exec.Cmd, *bytes.Buffer) {
	var cmd *exec.Cmd
	if lang.Command != "" {
		cmd = exec.Command("sh", "-c", lang.Command)
	} else {
		dest := filepath.Join("languages", stagingName, lang.Name)
		cmd = exec.Command("git", "clone", lang.Repo, dest)
	}
	cmd.Dir = f.Root
	stderr := &bytes.Buffer{}
	cmd.Stderr = stderr
	return cmd, stderr
}

// relocate moves src/ and queries/ out of the staged checkout into the
// language's canonical directory. Everything else in the checkout (git
// history, bindings, docs) is discarded with the staging area.
func (f *Fetcher) relocate(name string) error {
	staged := filepath.Join(LanguagesDir(f.Root), stagingName, name)
	dest := LanguageDir(f.Root, name)

	if err := os.MkdirAll(dest, 0755); err != nil {
		return fmt.Errorf("create %s: %w", dest, err)
	}

	// A grammar without src/ cannot be compiled; fail loudly.
	src := filepath.Join(staged, "src")
	if _, err := os.Stat(src); err != nil {
		return &RelocateError{Lang: name, Path: src, Err: err}
	}
	if err := os.Rename(src, filepath.Join(dest, "src")); err != nil {
		return &RelocateError{Lang: name, Path: src, Err: err}
	}

	// queries/ is optional upstream. Keep the directory present either
	// way so downstream code never special-cases its absence.
	queries := filepath.Join(staged, "queries")
	destQueries := filepath.Join(dest, "queries")
	if _, err := os.Stat(queries); err == nil {
		if err := os.Rename(queries, destQueries); err != nil {
			return &RelocateError{Lang: name, Path: queries, Err: err}
		}
	} else if err := os.MkdirAll(destQueries, 0755); err != nil {
		return fmt.Errorf("create %s: %w", destQueries, err)
	}

	return nil
}
