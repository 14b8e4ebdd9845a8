package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/glosslang/gloss/internal/manifest"
	"github.com/glosslang/gloss/internal/native"
	"github.com/glosslang/gloss/internal/watch"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Recompile grammars as their sources change",
	Long:  "Watches languages/*/src and recompiles a grammar whenever its parser or scanner sources change. Ctrl-C stops.",
	RunE:  runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	root := projectRoot()

	m, err := manifest.Load(manifestFile(root))
	if err != nil {
		return err
	}
	byName := make(map[string]manifest.Language, len(m.Languages))
	for _, lang := range m.Languages {
		byName[lang.Name] = lang
	}

	store, err := openState(root)
	if err != nil {
		return err
	}
	defer store.Close()

	compiler := &native.Compiler{
		Root:  root,
		CC:    os.Getenv("CC"),
		CXX:   os.Getenv("CXX"),
		State: store,
	}

	w, err := watch.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Stop()

	err = w.Watch(root, func(name string) {
		lang, ok := byName[name]
		if !ok {
			return // on disk but not in the manifest, nothing to build
		}
		status, err := compiler.Compile(lang)
		switch {
		case err != nil:
			fmt.Printf("  %s%-14s%s %sfailed%s\n    %v\n",
				colorCyan, name, colorReset, colorYellow, colorReset, err)
		case status == native.StatusBuilt:
			fmt.Printf("  %s%-14s%s recompiled\n", colorCyan, name, colorReset)
		}
	})
	if err != nil {
		return err
	}

	fmt.Printf("%s⚡ watching %d grammars%s %s(ctrl-c to stop)%s\n",
		colorBold, len(m.Languages), colorReset, colorGray, colorReset)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig
	fmt.Println("\n⚡ stopped")
	return nil
}
