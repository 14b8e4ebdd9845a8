package cmd

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/glosslang/gloss/internal/fetch"
)

var (
	cleanAll   bool
	cleanForce bool
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove build state, with --all also the fetched grammars",
	Long: "Deletes .gloss/ (build state and source hashes), forcing full recompiles.\n" +
		"With --all the languages/ tree goes too; the next `gloss build --regen` refetches everything.",
	RunE: runClean,
}

func init() {
	cleanCmd.Flags().BoolVar(&cleanAll, "all", false, "Also delete the languages/ tree")
	cleanCmd.Flags().BoolVar(&cleanForce, "force", false, "Skip confirmation prompt")
}

func runClean(cmd *cobra.Command, args []string) error {
	root := projectRoot()

	target := ".gloss/"
	if cleanAll {
		target = ".gloss/ and languages/"
	}
	if !cleanForce {
		fmt.Printf("⚠ This will delete %s in %s. Continue? [y/N] ", target, filepath.Base(root))
		reader := bufio.NewReader(os.Stdin)
		answer, _ := reader.ReadString('\n')
		answer = strings.TrimSpace(strings.ToLower(answer))
		if answer != "y" && answer != "yes" {
			fmt.Println("cancelled")
			return nil
		}
	}

	if err := os.RemoveAll(filepath.Join(root, ".gloss")); err != nil {
		return err
	}
	if cleanAll {
		if err := os.RemoveAll(fetch.LanguagesDir(root)); err != nil {
			return err
		}
	}

	fmt.Println("⚡ cleaned")
	return nil
}
