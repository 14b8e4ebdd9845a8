package langs

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"unsafe"

	"github.com/ebitengine/purego"
	highlight "github.com/noClaps/go-tree-sitter-highlight"
	tree_sitter "github.com/tree-sitter/go-tree-sitter"
)

// Loader loads tree-sitter grammars from shared libraries (.so on Linux,
// .dylib on macOS) using purego. It covers languages that are not compiled
// into the registry: drop a grammar library into a search path and it
// becomes loadable without regenerating anything. Loaded languages are
// cached for reuse.
type Loader struct {
	searchPaths []string
	mu          sync.Mutex
	loaded      map[string]*tree_sitter.Language
	handles     []uintptr
}

// NewLoader creates a loader that searches the given paths for grammar
// shared libraries. Paths are searched in order; first match wins.
func NewLoader(searchPaths []string) *Loader {
	return &Loader{
		searchPaths: searchPaths,
		loaded:      make(map[string]*tree_sitter.Language),
	}
}

// DefaultSearchPaths returns the default search paths for grammar shared
// libraries. Project-local (.gloss/grammars/) is searched first, then
// global (~/.gloss/grammars/).
func DefaultSearchPaths(root string) []string {
	var paths []string
	if root != "" {
		paths = append(paths, filepath.Join(root, ".gloss", "grammars"))
	}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".gloss", "grammars"))
	}
	return paths
}

// LibExtension returns the shared library extension for the current platform.
func LibExtension() string {
	if runtime.GOOS == "darwin" {
		return ".dylib"
	}
	return ".so"
}

// CSymbolName returns the C function name for a language's tree-sitter
// grammar, tree_sitter_{name} with dashes mapped to underscores.
func CSymbolName(lang string) string {
	return "tree_sitter_" + strings.ReplaceAll(lang, "-", "_")
}

// Load loads a grammar from a shared library for the given language.
// Results are cached; subsequent calls for the same language return the
// cached value.
func (l *Loader) Load(lang string) (*tree_sitter.Language, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if cached, ok := l.loaded[lang]; ok {
		return cached, nil
	}

	soPath := l.Path(lang)
	if soPath == "" {
		return nil, fmt.Errorf("grammar %q: shared library not found in search paths", lang)
	}

	handle, err := purego.Dlopen(soPath, purego.RTLD_LAZY)
	if err != nil {
		return nil, fmt.Errorf("grammar %q: dlopen %s: %w", lang, soPath, err)
	}
	l.handles = append(l.handles, handle)

	symName := CSymbolName(lang)
	var langFunc func() uintptr
	purego.RegisterLibFunc(&langFunc, handle, symName)

	ptr := langFunc()
	if ptr == 0 {
		return nil, fmt.Errorf("grammar %q: %s() returned null", lang, symName)
	}

	// Convert uintptr from C (purego) to unsafe.Pointer without triggering
	// go vet's unsafeptr check. Safe because ptr is a static TSLanguage*
	// from the grammar library, not a Go-managed pointer that could be
	// moved by GC.
	language := tree_sitter.NewLanguage(*(*unsafe.Pointer)(unsafe.Pointer(&ptr)))
	l.loaded[lang] = language
	return language, nil
}

// Config builds a highlight configuration for a dynamically loaded grammar,
// pairing it with caller-provided queries.
func (l *Loader) Config(lang, highlights, injections, locals string) (*highlight.Configuration, error) {
	language, err := l.Load(lang)
	if err != nil {
		return nil, err
	}
	return highlight.NewConfiguration(language, lang, highlights, injections, locals)
}

// Path returns the path to the shared library for a language, or "" if not
// found.
func (l *Loader) Path(lang string) string {
	ext := LibExtension()
	for _, dir := range l.searchPaths {
		candidate := filepath.Join(dir, lang+ext)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

// Installed returns language names found as shared libraries in the search
// paths.
func (l *Loader) Installed() []string {
	ext := LibExtension()
	seen := make(map[string]bool)
	var names []string
	for _, dir := range l.searchPaths {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			name := e.Name()
			if strings.HasSuffix(name, ext) {
				lang := strings.TrimSuffix(name, ext)
				if !seen[lang] {
					seen[lang] = true
					names = append(names, lang)
				}
			}
		}
	}
	return names
}

// Close drops all cached languages and dlopen handles.
func (l *Loader) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.handles = nil
	l.loaded = make(map[string]*tree_sitter.Language)
}

// SearchPaths returns the configured search paths.
func (l *Loader) SearchPaths() []string {
	return l.searchPaths
}
