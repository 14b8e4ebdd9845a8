package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/glosslang/gloss/internal/buildstate"
	"github.com/glosslang/gloss/internal/pipeline"
)

var (
	buildRegen bool
	buildJobs  int
	buildCC    string
	buildCXX   string
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Compile grammar archives, regenerating the registry on demand",
	Long: "Compiles every manifest grammar to static libraries, skipping grammars whose\n" +
		"sources are unchanged. With --regen (or GLOSS_REBUILD_LANGS set) it first wipes\n" +
		"languages/, refetches every grammar repository and regenerates the langs package.",
	RunE: runBuild,
}

func init() {
	buildCmd.Flags().BoolVar(&buildRegen, "regen", false, "Wipe, refetch and regenerate before compiling")
	buildCmd.Flags().IntVarP(&buildJobs, "jobs", "j", runtime.NumCPU(), "Parallel compile jobs")
	buildCmd.Flags().StringVar(&buildCC, "cc", os.Getenv("CC"), "C compiler")
	buildCmd.Flags().StringVar(&buildCXX, "cxx", os.Getenv("CXX"), "C++ compiler")
}

// openState opens the build state database under .gloss/, creating the
// directory on first use.
func openState(root string) (*buildstate.Store, error) {
	dir := filepath.Join(root, ".gloss")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	store, err := buildstate.Open(filepath.Join(dir, "build.db"))
	if err != nil {
		if isDBLockError(err) {
			return nil, errors.New(diagnoseDBLock())
		}
		return nil, err
	}
	return store, nil
}

func runBuild(cmd *cobra.Command, args []string) error {
	root := projectRoot()

	store, err := openState(root)
	if err != nil {
		return err
	}
	defer store.Close()

	fmt.Printf("%s⚡ gloss build%s\n", colorBold, colorReset)
	err = pipeline.Run(pipeline.Options{
		Root:     root,
		Manifest: manifestFile(root),
		Regen:    buildRegen,
		CC:       buildCC,
		CXX:      buildCXX,
		Jobs:     buildJobs,
		State:    store,
		Out:      os.Stdout,
	})
	if err != nil {
		return err
	}
	fmt.Println("⚡ done")
	return nil
}
