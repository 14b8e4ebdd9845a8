// Package native compiles vendored grammar sources into per-language static
// libraries. Each grammar yields lib<name>-parser.a, plus a separate
// lib<name>-scanner.a when it ships a C++ external scanner. Content hashes
// persisted in the build state let unchanged grammars be skipped entirely.
package native

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/glosslang/gloss/internal/buildstate"
	"github.com/glosslang/gloss/internal/manifest"
)

// ScannerKind classifies a grammar's external scanner.
type ScannerKind int

const (
	ScannerNone ScannerKind = iota
	ScannerC
	ScannerCPP
)

// DetectScanner reports which external scanner a grammar ships. A C++
// scanner (scanner.cc) takes precedence when both files are present.
func DetectScanner(srcDir string) ScannerKind {
	if _, err := os.Stat(filepath.Join(srcDir, "scanner.cc")); err == nil {
		return ScannerCPP
	}
	if _, err := os.Stat(filepath.Join(srcDir, "scanner.c")); err == nil {
		return ScannerC
	}
	return ScannerNone
}

// ParserArchive returns the path of a grammar's parser static library.
func ParserArchive(root, name string) string {
	return filepath.Join(root, "languages", name, "lib"+name+"-parser.a")
}

// ScannerArchive returns the path of a grammar's C++ scanner static library.
func ScannerArchive(root, name string) string {
	return filepath.Join(root, "languages", name, "lib"+name+"-scanner.a")
}

// CompileError reports a failed compiler or archiver invocation. Output
// carries the tool's combined stdout and stderr.
type CompileError struct {
	Lang   string
	Output string
	Err    error
}

func (e *CompileError) Error() string {
	if s := strings.TrimSpace(e.Output); s != "" {
		return fmt.Sprintf("compile %s: %v\n%s", e.Lang, e.Err, s)
	}
	return fmt.Sprintf("compile %s: %v", e.Lang, e.Err)
}

func (e *CompileError) Unwrap() error { return e.Err }

// Status reports what Compile did for one grammar.
type Status int

const (
	StatusBuilt   Status = iota
	StatusCached         // hashes matched and archives exist
	StatusSkipped        // no src/ on disk, grammar not fetched yet
)

func (s Status) String() string {
	switch s {
	case StatusCached:
		return "cached"
	case StatusSkipped:
		return "skipped"
	default:
		return "built"
	}
}

// Compiler builds grammar archives under Root/languages/.
type Compiler struct {
	Root string
	CC   string // C compiler, "cc" when empty
	CXX  string // C++ compiler, "c++" when empty
	AR   string // archiver, "ar" when empty
	Jobs int    // parallel CompileAll workers, NumCPU when <= 0

	State *buildstate.Store // nil disables skip detection
	Out   io.Writer         // progress lines, nil for silent
}

func (c *Compiler) cc() string {
	if c.CC != "" {
		return c.CC
	}
	return "cc"
}

func (c *Compiler) cxx() string {
	if c.CXX != "" {
		return c.CXX
	}
	return "c++"
}

func (c *Compiler) ar() string {
	if c.AR != "" {
		return c.AR
	}
	return "ar"
}

// Compile builds one grammar's static libraries. It returns StatusCached
// without touching the toolchain when every source hash matches the build
// state and the archives are already on disk, and StatusSkipped when the
// grammar has no src/ directory at all.
func (c *Compiler) Compile(lang manifest.Language) (Status, error) {
	name := lang.Name
	srcDir := filepath.Join(c.Root, "languages", name, "src")

	if _, err := os.Stat(srcDir); err != nil {
		return StatusSkipped, nil
	}

	kind := DetectScanner(srcDir)
	srcs := sources(srcDir, kind)

	hashes := make(map[string]string, len(srcs))
	for _, src := range srcs {
		h, err := buildstate.HashFile(src)
		if err != nil {
			return 0, &CompileError{Lang: name, Err: err}
		}
		hashes[src] = h
	}

	if c.upToDate(name, srcs, hashes, kind) {
		return StatusCached, nil
	}

	scratch, err := os.MkdirTemp("", "gloss-"+name+"-")
	if err != nil {
		return 0, &CompileError{Lang: name, Err: err}
	}
	defer os.RemoveAll(scratch)

	// A C++ scanner is archived separately so the link line can pull in
	// the C++ runtime for just the grammars that need it.
	if kind == ScannerCPP {
		obj := filepath.Join(scratch, "scanner.o")
		err := c.run(name, c.cxx(),
			"-c", "-o", obj, "-O2", "-w", "-fPIC", "-I", srcDir,
			filepath.Join(srcDir, "scanner.cc"))
		if err != nil {
			return 0, err
		}
		if err := c.archive(name, ScannerArchive(c.Root, name), obj); err != nil {
			return 0, err
		}
	} else {
		// Drop a scanner archive left behind by an earlier C++ scanner.
		os.Remove(ScannerArchive(c.Root, name))
	}

	parserObj := filepath.Join(scratch, "parser.o")
	err = c.run(name, c.cc(),
		"-c", "-o", parserObj, "-O1", "-w", "-fPIC", "-I", srcDir,
		filepath.Join(srcDir, "parser.c"))
	if err != nil {
		return 0, err
	}
	objs := []string{parserObj}

	if kind == ScannerC {
		obj := filepath.Join(scratch, "scanner.o")
		err := c.run(name, c.cc(),
			"-c", "-o", obj, "-O1", "-w", "-fPIC", "-I", srcDir,
			filepath.Join(srcDir, "scanner.c"))
		if err != nil {
			return 0, err
		}
		objs = append(objs, obj)
	}

	if err := c.archive(name, ParserArchive(c.Root, name), objs...); err != nil {
		return 0, err
	}

	if c.State != nil {
		if err := c.State.RecordSources(hashes); err != nil {
			return 0, fmt.Errorf("record %s sources: %w", name, err)
		}
	}
	return StatusBuilt, nil
}

// CompileAll compiles every manifest entry with a bounded worker pool and
// returns the first error once all workers have finished.
func (c *Compiler) CompileAll(m *manifest.Manifest) error {
	out := c.Out
	if out == nil {
		out = io.Discard
	}

	jobs := c.Jobs
	if jobs <= 0 {
		jobs = runtime.NumCPU()
	}

	type result struct {
		lang   string
		status Status
		err    error
	}

	sem := make(chan struct{}, jobs)
	results := make(chan result, len(m.Languages))
	var wg sync.WaitGroup

	for _, lang := range m.Languages {
		wg.Add(1)
		go func(lang manifest.Language) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			status, err := c.Compile(lang)
			results <- result{lang: lang.Name, status: status, err: err}
		}(lang)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	var firstErr error
	for r := range results {
		switch {
		case r.err != nil:
			fmt.Fprintf(out, "    %-14s failed\n", r.lang)
			if firstErr == nil {
				firstErr = r.err
			}
		case r.status == StatusSkipped:
			fmt.Fprintf(out, "    %-14s no sources\n", r.lang)
		case r.status == StatusCached:
			fmt.Fprintf(out, "    %-14s cached\n", r.lang)
		default:
			fmt.Fprintf(out, "    %-14s compiled\n", r.lang)
		}
	}
	return firstErr
}

// sources lists the inputs that feed a grammar's archives.
func sources(srcDir string, kind ScannerKind) []string {
	srcs := []string{filepath.Join(srcDir, "parser.c")}
	switch kind {
	case ScannerC:
		srcs = append(srcs, filepath.Join(srcDir, "scanner.c"))
	case ScannerCPP:
		srcs = append(srcs, filepath.Join(srcDir, "scanner.cc"))
	}
	return srcs
}

func (c *Compiler) upToDate(name string, srcs []string, hashes map[string]string, kind ScannerKind) bool {
	if c.State == nil {
		return false
	}
	for _, src := range srcs {
		recorded, err := c.State.SourceHash(src)
		if err != nil || recorded == "" || recorded != hashes[src] {
			return false
		}
	}
	if _, err := os.Stat(ParserArchive(c.Root, name)); err != nil {
		return false
	}
	if kind == ScannerCPP {
		if _, err := os.Stat(ScannerArchive(c.Root, name)); err != nil {
			return false
		}
	}
	return true
}

func (c *Compiler) run(lang string, tool string, args ...string) error {
	cmd := exec.Command(tool, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return &CompileError{Lang: lang, Output: string(out), Err: err}
	}
	return nil
}

// archive replaces dest with a fresh static library over objs.
func (c *Compiler) archive(lang, dest string, objs ...string) error {
	os.Remove(dest)
	args := append([]string{"rcs", dest}, objs...)
	return c.run(lang, c.ar(), args...)
}
