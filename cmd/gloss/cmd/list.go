package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/glosslang/gloss/internal/fetch"
	"github.com/glosslang/gloss/internal/manifest"
	"github.com/glosslang/gloss/internal/native"
	"github.com/glosslang/gloss/langs"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Show manifest languages and their build status",
	RunE:  runList,
}

func runList(cmd *cobra.Command, args []string) error {
	root := projectRoot()

	m, err := manifest.Load(manifestFile(root))
	if err != nil {
		return err
	}

	entries := make([]langEntry, 0, len(m.Languages))
	for _, lang := range m.Languages {
		e := langEntry{name: lang.Name, aliases: lang.Aliases}
		srcDir := filepath.Join(fetch.LanguageDir(root, lang.Name), "src")
		if _, err := os.Stat(srcDir); err == nil {
			e.state = stateFetched
			if _, err := os.Stat(native.ParserArchive(root, lang.Name)); err == nil {
				e.state = stateCompiled
			}
		}
		entries = append(entries, e)
	}
	fmt.Print(formatLanguages(entries))

	// Grammars installed as shared libraries, outside the manifest.
	loader := langs.NewLoader(langs.DefaultSearchPaths(root))
	if installed := loader.Installed(); len(installed) > 0 {
		fmt.Printf("\n%s⚡ %d dynamic grammars%s %s%s%s\n",
			colorBold, len(installed), colorReset,
			colorGray, strings.Join(loader.SearchPaths(), " "), colorReset)
		fmt.Printf("  %s\n", strings.Join(installed, " "))
	}
	return nil
}
