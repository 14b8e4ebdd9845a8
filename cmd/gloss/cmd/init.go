package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/glosslang/gloss/internal/assets"
	"github.com/glosslang/gloss/internal/manifest"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter languages.toml",
	Long:  "Creates a manifest with a curated set of grammars in the current directory. Refuses to overwrite an existing manifest.",
	RunE:  runInit,
}

func runInit(cmd *cobra.Command, args []string) error {
	root := projectRoot()
	path := manifestFile(root)

	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	}

	if err := os.WriteFile(path, []byte(assets.Manifest), 0644); err != nil {
		return err
	}

	m, err := manifest.Load(path)
	if err != nil {
		return err
	}

	fmt.Printf("%s⚡ wrote languages.toml%s │ %d grammars\n", colorBold, colorReset, len(m.Languages))
	fmt.Println("")
	fmt.Println("  Next:")
	fmt.Println("")
	fmt.Println("    gloss build --regen")
	fmt.Println("")
	return nil
}
