package native

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glosslang/gloss/internal/buildstate"
	"github.com/glosslang/gloss/internal/manifest"
)

// shims holds paths to stand-in toolchain scripts. Each script appends its
// invocation to $COMPILE_LOG; cc and cxx create whatever file -o names, ar
// creates its destination archive.
type shims struct {
	cc     string
	cxx    string
	ar     string
	ccFail string
	log    string
}

func installShims(t *testing.T) shims {
	t.Helper()
	dir := t.TempDir()
	log := filepath.Join(dir, "invocations.log")
	t.Setenv("COMPILE_LOG", log)

	write := func(name, body string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(body), 0755))
		return path
	}

	compiler := func(label string) string {
		return `#!/bin/sh
echo "` + label + ` $*" >> "$COMPILE_LOG"
prev=""
for a in "$@"; do
	[ "$prev" = "-o" ] && : > "$a"
	prev="$a"
done
exit 0
`
	}

	return shims{
		cc:  write("cc", compiler("cc")),
		cxx: write("cxx", compiler("cxx")),
		ar: write("ar", `#!/bin/sh
echo "ar $*" >> "$COMPILE_LOG"
shift
: > "$1"
exit 0
`),
		ccFail: write("cc-fail", `#!/bin/sh
echo "parser.c:1:1: error: something broke" >&2
exit 1
`),
		log: log,
	}
}

func (s shims) logged(t *testing.T) string {
	t.Helper()
	data, err := os.ReadFile(s.log)
	if os.IsNotExist(err) {
		return ""
	}
	require.NoError(t, err)
	return string(data)
}

func writeGrammar(t *testing.T, root, name string, files ...string) {
	t.Helper()
	srcDir := filepath.Join(root, "languages", name, "src")
	require.NoError(t, os.MkdirAll(srcDir, 0755))
	for _, f := range files {
		content := "int " + strings.ReplaceAll(name, "-", "_") + ";\n"
		require.NoError(t, os.WriteFile(filepath.Join(srcDir, f), []byte(content), 0644))
	}
}

func newCompiler(t *testing.T, root string, s shims) *Compiler {
	t.Helper()
	store, err := buildstate.Open(filepath.Join(t.TempDir(), "build.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return &Compiler{Root: root, CC: s.cc, CXX: s.cxx, AR: s.ar, State: store}
}

func TestDetectScanner(t *testing.T) {
	cases := []struct {
		name  string
		files []string
		want  ScannerKind
	}{
		{"no scanner", []string{"parser.c"}, ScannerNone},
		{"c scanner", []string{"parser.c", "scanner.c"}, ScannerC},
		{"cpp scanner", []string{"parser.c", "scanner.cc"}, ScannerCPP},
		{"cpp wins over c", []string{"parser.c", "scanner.c", "scanner.cc"}, ScannerCPP},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			root := t.TempDir()
			writeGrammar(t, root, "x", tc.files...)
			got := DetectScanner(filepath.Join(root, "languages", "x", "src"))
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestArchivePaths(t *testing.T) {
	assert.Equal(t,
		filepath.Join("/w", "languages", "json", "libjson-parser.a"),
		ParserArchive("/w", "json"))
	assert.Equal(t,
		filepath.Join("/w", "languages", "cpp", "libcpp-scanner.a"),
		ScannerArchive("/w", "cpp"))
}

func TestCompile_ParserOnly(t *testing.T) {
	s := installShims(t)
	root := t.TempDir()
	writeGrammar(t, root, "json", "parser.c")

	c := newCompiler(t, root, s)
	status, err := c.Compile(manifest.Language{Name: "json"})
	require.NoError(t, err)
	assert.Equal(t, StatusBuilt, status)

	assert.FileExists(t, ParserArchive(root, "json"))
	assert.NoFileExists(t, ScannerArchive(root, "json"))

	log := s.logged(t)
	assert.Contains(t, log, "-O1")
	assert.Contains(t, log, "parser.c")
	assert.NotContains(t, log, "cxx ")
}

func TestCompile_CScannerSharesParserArchive(t *testing.T) {
	s := installShims(t)
	root := t.TempDir()
	writeGrammar(t, root, "bash", "parser.c", "scanner.c")

	c := newCompiler(t, root, s)
	status, err := c.Compile(manifest.Language{Name: "bash"})
	require.NoError(t, err)
	assert.Equal(t, StatusBuilt, status)

	assert.FileExists(t, ParserArchive(root, "bash"))
	assert.NoFileExists(t, ScannerArchive(root, "bash"))

	// Both translation units compiled as C at -O1, archived once.
	log := s.logged(t)
	assert.Contains(t, log, "scanner.c\n")
	assert.NotContains(t, log, "cxx ")
	assert.Equal(t, 1, strings.Count(log, "ar "))
}

func TestCompile_CPPScannerGetsOwnArchive(t *testing.T) {
	s := installShims(t)
	root := t.TempDir()
	writeGrammar(t, root, "cpp", "parser.c", "scanner.cc")

	c := newCompiler(t, root, s)
	status, err := c.Compile(manifest.Language{Name: "cpp"})
	require.NoError(t, err)
	assert.Equal(t, StatusBuilt, status)

	assert.FileExists(t, ParserArchive(root, "cpp"))
	assert.FileExists(t, ScannerArchive(root, "cpp"))

	log := s.logged(t)
	assert.Contains(t, log, "cxx ")
	assert.Contains(t, log, "-O2")
	assert.Contains(t, log, "scanner.cc")

	// Scanner archive is produced before the parser archive.
	assert.Less(t,
		strings.Index(log, "libcpp-scanner.a"),
		strings.Index(log, "libcpp-parser.a"))
}

func TestCompile_CPPScannerWinsOverC(t *testing.T) {
	s := installShims(t)
	root := t.TempDir()
	writeGrammar(t, root, "mixed", "parser.c", "scanner.c", "scanner.cc")

	c := newCompiler(t, root, s)
	_, err := c.Compile(manifest.Language{Name: "mixed"})
	require.NoError(t, err)

	log := s.logged(t)
	assert.Contains(t, log, "scanner.cc")
	assert.NotContains(t, log, "scanner.c\n")
}

func TestCompile_SkipsWhenUnchanged(t *testing.T) {
	s := installShims(t)
	root := t.TempDir()
	writeGrammar(t, root, "go", "parser.c")

	c := newCompiler(t, root, s)
	status, err := c.Compile(manifest.Language{Name: "go"})
	require.NoError(t, err)
	require.Equal(t, StatusBuilt, status)
	linesAfterBuild := strings.Count(s.logged(t), "\n")

	// Unchanged sources with archives on disk never reach the toolchain.
	// A broken compiler proves it.
	c.CC = s.ccFail
	status, err = c.Compile(manifest.Language{Name: "go"})
	require.NoError(t, err)
	assert.Equal(t, StatusCached, status)
	assert.Equal(t, linesAfterBuild, strings.Count(s.logged(t), "\n"))

	// An edited source forces a rebuild, which now fails.
	src := filepath.Join(root, "languages", "go", "src", "parser.c")
	require.NoError(t, os.WriteFile(src, []byte("int changed;\n"), 0644))

	_, err = c.Compile(manifest.Language{Name: "go"})
	require.Error(t, err)

	var ce *CompileError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "go", ce.Lang)
	assert.Contains(t, ce.Output, "something broke")
}

func TestCompile_RebuildsWhenArchiveMissing(t *testing.T) {
	s := installShims(t)
	root := t.TempDir()
	writeGrammar(t, root, "css", "parser.c")

	c := newCompiler(t, root, s)
	_, err := c.Compile(manifest.Language{Name: "css"})
	require.NoError(t, err)

	// Matching hashes alone are not enough; the archive must exist too.
	require.NoError(t, os.Remove(ParserArchive(root, "css")))

	status, err := c.Compile(manifest.Language{Name: "css"})
	require.NoError(t, err)
	assert.Equal(t, StatusBuilt, status)
	assert.FileExists(t, ParserArchive(root, "css"))
}

func TestCompile_RemovesStaleScannerArchive(t *testing.T) {
	s := installShims(t)
	root := t.TempDir()
	writeGrammar(t, root, "regex", "parser.c")

	// Leftover from when this grammar still had a C++ scanner.
	stale := ScannerArchive(root, "regex")
	require.NoError(t, os.WriteFile(stale, []byte("old"), 0644))

	c := newCompiler(t, root, s)
	_, err := c.Compile(manifest.Language{Name: "regex"})
	require.NoError(t, err)
	assert.NoFileExists(t, stale)
}

func TestCompile_NoSourcesSkips(t *testing.T) {
	s := installShims(t)
	c := newCompiler(t, t.TempDir(), s)

	status, err := c.Compile(manifest.Language{Name: "ghost"})
	require.NoError(t, err)
	assert.Equal(t, StatusSkipped, status)
	assert.Empty(t, s.logged(t))
}

func TestCompileAll_CompilesEverything(t *testing.T) {
	s := installShims(t)
	root := t.TempDir()
	writeGrammar(t, root, "json", "parser.c")
	writeGrammar(t, root, "bash", "parser.c", "scanner.c")

	m := &manifest.Manifest{Languages: []manifest.Language{
		{Name: "json", Repo: "r"},
		{Name: "bash", Repo: "r"},
		{Name: "unfetched", Repo: "r"},
	}}

	var out bytes.Buffer
	c := newCompiler(t, root, s)
	c.Out = &out
	c.Jobs = 2

	require.NoError(t, c.CompileAll(m))

	assert.FileExists(t, ParserArchive(root, "json"))
	assert.FileExists(t, ParserArchive(root, "bash"))
	assert.Equal(t, 2, strings.Count(out.String(), "compiled"))
	assert.Contains(t, out.String(), "no sources")
}

func TestCompileAll_ReturnsFirstError(t *testing.T) {
	s := installShims(t)
	root := t.TempDir()
	writeGrammar(t, root, "good", "parser.c")
	writeGrammar(t, root, "bad", "parser.c")

	m := &manifest.Manifest{Languages: []manifest.Language{
		{Name: "good", Repo: "r"},
		{Name: "bad", Repo: "r"},
	}}

	c := newCompiler(t, root, s)
	c.Jobs = 1

	// Poison only the bad grammar by making its parser.c unreadable to
	// the hasher.
	require.NoError(t, os.Remove(filepath.Join(root, "languages", "bad", "src", "parser.c")))
	require.NoError(t, os.Mkdir(filepath.Join(root, "languages", "bad", "src", "parser.c"), 0755))

	err := c.CompileAll(m)
	require.Error(t, err)

	var ce *CompileError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "bad", ce.Lang)

	// The healthy grammar still built.
	assert.FileExists(t, ParserArchive(root, "good"))
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "built", StatusBuilt.String())
	assert.Equal(t, "cached", StatusCached.String())
	assert.Equal(t, "skipped", StatusSkipped.String())
}
