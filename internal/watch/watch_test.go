package watch

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// waitForCallback waits up to timeout for the callback channel to receive a value.
func waitForCallback(ch <-chan string, timeout time.Duration) (string, bool) {
	select {
	case v := <-ch:
		return v, true
	case <-time.After(timeout):
		return "", false
	}
}

func writeSrc(t *testing.T, root, lang, file, content string) string {
	t.Helper()
	dir := filepath.Join(root, "languages", lang, "src")
	require.NoError(t, os.MkdirAll(dir, 0755))
	path := filepath.Join(dir, file)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestWatcher_ReportsChangedLanguage(t *testing.T) {
	root := t.TempDir()
	parserC := writeSrc(t, root, "foo", "parser.c", "int a;\n")

	w, err := NewWatcher()
	require.NoError(t, err)
	defer w.Stop()

	changed := make(chan string, 10)
	require.NoError(t, w.Watch(root, func(lang string) {
		changed <- lang
	}))

	// Give watcher time to start
	time.Sleep(50 * time.Millisecond)

	require.NoError(t, os.WriteFile(parserC, []byte("int b;\n"), 0644))

	lang, ok := waitForCallback(changed, 2*time.Second)
	assert.True(t, ok, "expected callback for source change")
	assert.Equal(t, "foo", lang)
}

func TestWatcher_DebouncesBurstPerLanguage(t *testing.T) {
	root := t.TempDir()
	parserC := writeSrc(t, root, "foo", "parser.c", "int a;\n")
	scannerC := writeSrc(t, root, "foo", "scanner.c", "int s;\n")

	w, err := NewWatcher()
	require.NoError(t, err)
	defer w.Stop()

	changed := make(chan string, 10)
	require.NoError(t, w.Watch(root, func(lang string) {
		changed <- lang
	}))

	time.Sleep(50 * time.Millisecond)

	// Two writes well inside one debounce window.
	require.NoError(t, os.WriteFile(parserC, []byte("int b;\n"), 0644))
	require.NoError(t, os.WriteFile(scannerC, []byte("int t;\n"), 0644))

	_, ok := waitForCallback(changed, 2*time.Second)
	assert.True(t, ok, "expected first callback")

	_, ok = waitForCallback(changed, 300*time.Millisecond)
	assert.False(t, ok, "burst should collapse into one callback")
}

func TestWatcher_IgnoresArchivesAndStaging(t *testing.T) {
	root := t.TempDir()
	writeSrc(t, root, "foo", "parser.c", "int a;\n")
	tempDir := filepath.Join(root, "languages", "temp", "bar", "src")
	require.NoError(t, os.MkdirAll(tempDir, 0755))

	w, err := NewWatcher()
	require.NoError(t, err)
	defer w.Stop()

	changed := make(chan string, 10)
	require.NoError(t, w.Watch(root, func(lang string) {
		changed <- lang
	}))

	time.Sleep(50 * time.Millisecond)

	// Archive writes (our own compile output) and staging churn must not
	// trigger rebuilds.
	require.NoError(t, os.WriteFile(
		filepath.Join(root, "languages", "foo", "libfoo-parser.a"), []byte("ar"), 0644))
	require.NoError(t, os.WriteFile(
		filepath.Join(root, "languages", "foo", "src", "grammar.json"), []byte("{}"), 0644))
	require.NoError(t, os.WriteFile(
		filepath.Join(tempDir, "parser.c"), []byte("int x;\n"), 0644))

	_, ok := waitForCallback(changed, 500*time.Millisecond)
	assert.False(t, ok, "should not have received callback for non-source files")

	// A real source change still comes through.
	writeSrc(t, root, "foo", "parser.c", "int changed;\n")
	lang, ok := waitForCallback(changed, 2*time.Second)
	assert.True(t, ok, "expected callback for source change")
	assert.Equal(t, "foo", lang)
}

func TestWatcher_MissingLanguagesDir(t *testing.T) {
	w, err := NewWatcher()
	require.NoError(t, err)
	defer w.Stop()

	err = w.Watch(t.TempDir(), func(string) {})
	assert.Error(t, err)
}

func TestWatcher_StopCleanup(t *testing.T) {
	root := t.TempDir()
	writeSrc(t, root, "foo", "parser.c", "int a;\n")

	w, err := NewWatcher()
	require.NoError(t, err)

	changed := make(chan string, 10)
	require.NoError(t, w.Watch(root, func(lang string) {
		changed <- lang
	}))

	time.Sleep(50 * time.Millisecond)
	require.NoError(t, w.Stop())

	// A write after Stop must not fire the callback.
	writeSrc(t, root, "foo", "parser.c", "int b;\n")
	_, ok := waitForCallback(changed, 300*time.Millisecond)
	assert.False(t, ok, "callbacks fired after Stop()")

	// Double-stop should be safe
	assert.NoError(t, w.Stop())
}

func TestLangFor(t *testing.T) {
	base := filepath.FromSlash("/work/languages")
	cases := []struct {
		path string
		want string
	}{
		{"/work/languages/bash/src/parser.c", "bash"},
		{"/work/languages/bash/src/scanner.cc", "bash"},
		{"/work/languages/bash/src/tree_sitter/parser.h", "bash"},
		{"/work/languages/bash/src/grammar.json", ""},
		{"/work/languages/bash/libbash-parser.a", ""},
		{"/work/languages/bash/queries/highlights.scm", ""},
		{"/work/languages/temp/bash/src/parser.c", ""},
		{"/work/languages/parser.c", ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, langFor(base, filepath.FromSlash(tc.path)), tc.path)
	}
}

func TestWatchable(t *testing.T) {
	base := filepath.FromSlash("/work/languages")
	assert.True(t, watchable(base, base))
	assert.True(t, watchable(base, filepath.FromSlash("/work/languages/bash")))
	assert.True(t, watchable(base, filepath.FromSlash("/work/languages/bash/src")))
	assert.True(t, watchable(base, filepath.FromSlash("/work/languages/bash/src/tree_sitter")))
	assert.False(t, watchable(base, filepath.FromSlash("/work/languages/bash/queries")))
	assert.False(t, watchable(base, filepath.FromSlash("/work/languages/temp")))
	assert.False(t, watchable(base, filepath.FromSlash("/work/languages/temp/bash")))
}
