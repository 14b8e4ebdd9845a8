package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glosslang/gloss/internal/manifest"
)

func TestInit_WritesStarterManifest(t *testing.T) {
	root := t.TempDir()
	t.Chdir(root)

	require.NoError(t, runInit(initCmd, nil))

	m, err := manifest.Load(filepath.Join(root, "languages.toml"))
	require.NoError(t, err)
	assert.NotEmpty(t, m.Languages)

	_, ok := m.Get("bash")
	assert.True(t, ok, "starter set should include bash")
}

func TestInit_RefusesToOverwrite(t *testing.T) {
	root := t.TempDir()
	t.Chdir(root)

	path := filepath.Join(root, "languages.toml")
	require.NoError(t, os.WriteFile(path, []byte("# hand-tuned\n"), 0644))

	err := runInit(initCmd, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	// The existing manifest survives untouched.
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "# hand-tuned\n", string(data))
}
