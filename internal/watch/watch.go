// Package watch monitors the languages/ tree with fsnotify and reports which
// grammar's sources changed. Events are debounced per language, not per
// file, because a git checkout or editor save often touches parser.c and
// scanner.c in one burst and a single rebuild covers both.
package watch

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// sourceExts are the file extensions that can trigger a rebuild.
var sourceExts = map[string]bool{
	".c":  true,
	".cc": true,
	".h":  true,
}

const debounceInterval = 200 * time.Millisecond

// Watcher monitors grammar source directories.
type Watcher struct {
	fw      *fsnotify.Watcher
	done    chan struct{}
	stopped bool
	mu      sync.Mutex
}

// NewWatcher creates a watcher. Call Watch to start it.
func NewWatcher() (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		fw:   fw,
		done: make(chan struct{}),
	}, nil
}

// Watch starts monitoring every grammar src/ tree under root/languages/.
// onChange is called with the language whose sources changed, at most once
// per debounce window. Archive writes and the staging area never trigger it,
// so a rebuild started by onChange cannot re-trigger itself.
func (w *Watcher) Watch(root string, onChange func(lang string)) error {
	languagesDir, err := filepath.Abs(filepath.Join(root, "languages"))
	if err != nil {
		return err
	}
	if _, err := os.Stat(languagesDir); err != nil {
		return fmt.Errorf("watch %s: %w", languagesDir, err)
	}

	// Walk and add the languages root plus every src/ tree.
	err = filepath.Walk(languagesDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // skip inaccessible paths
		}
		if !info.IsDir() {
			return nil
		}
		if !watchable(languagesDir, path) {
			return filepath.SkipDir
		}
		return w.fw.Add(path)
	})
	if err != nil {
		return err
	}

	// Debounce state: last rebuild trigger per language.
	debounce := make(map[string]time.Time)
	var dmu sync.Mutex

	go func() {
		for {
			select {
			case event, ok := <-w.fw.Events:
				if !ok {
					return
				}
				path := event.Name

				// A refetch recreates src/ directories; pick them up.
				if event.Has(fsnotify.Create) {
					if info, err := os.Stat(path); err == nil && info.IsDir() {
						if watchable(languagesDir, path) {
							w.fw.Add(path)
						}
					}
				}

				lang := langFor(languagesDir, path)
				if lang == "" {
					continue
				}

				dmu.Lock()
				last, exists := debounce[lang]
				now := time.Now()
				if exists && now.Sub(last) < debounceInterval {
					dmu.Unlock()
					continue
				}
				debounce[lang] = now
				dmu.Unlock()

				if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) ||
					event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
					onChange(lang)
				}

			case _, ok := <-w.fw.Errors:
				if !ok {
					return
				}
				// Errors are swallowed; fsnotify recovers automatically

			case <-w.done:
				return
			}
		}
	}()

	return nil
}

// Stop ends monitoring and releases all resources.
// Safe to call multiple times.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped {
		return nil
	}
	w.stopped = true
	close(w.done)
	return w.fw.Close()
}

// watchable reports whether a directory should be on the watch list: the
// languages root, a language directory, or anything inside its src/ tree.
// The staging area is excluded.
func watchable(languagesDir, path string) bool {
	rel, err := filepath.Rel(languagesDir, path)
	if err != nil {
		return false
	}
	if rel == "." {
		return true
	}
	parts := strings.Split(rel, string(filepath.Separator))
	if parts[0] == "temp" {
		return false
	}
	if len(parts) == 1 {
		return true
	}
	return parts[1] == "src"
}

// langFor maps an event path to its language, or "" when the path is not a
// grammar source file.
func langFor(languagesDir, path string) string {
	if !sourceExts[filepath.Ext(path)] {
		return ""
	}
	rel, err := filepath.Rel(languagesDir, path)
	if err != nil {
		return ""
	}
	parts := strings.Split(rel, string(filepath.Separator))
	if len(parts) < 3 || parts[0] == "temp" || parts[1] != "src" {
		return ""
	}
	return parts[0]
}
