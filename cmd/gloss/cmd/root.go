package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "gloss",
	Short: "gloss — tree-sitter grammar build tool",
	Long:  "Fetches grammar repositories, compiles parsers and scanners to static libraries, and generates the language registry.",
}

var manifestFlag string

// projectRoot returns the project root (cwd by default).
func projectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	return dir
}

// manifestFile resolves the manifest path against the project root.
func manifestFile(root string) string {
	if filepath.IsAbs(manifestFlag) {
		return manifestFlag
	}
	return filepath.Join(root, manifestFlag)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&manifestFlag, "manifest", "languages.toml", "Manifest file, relative to the project root")
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(cleanCmd)
}
