package cmd

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/distpack/internal/config"
)

// TestConfigInit writes defaults once and refuses to overwrite without the flag.
func TestConfigInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "distpack.yaml")

	rootCmd.SetArgs([]string{"config", "init", path})
	require.NoError(t, rootCmd.Execute())

	cfg, err := config.Load("", path)
	require.NoError(t, err)
	require.Equal(t, config.Default(), cfg)

	rootCmd.SetArgs([]string{"config", "init", path})
	require.ErrorIs(t, rootCmd.Execute(), errConfigExists)

	rootCmd.SetArgs([]string{"config", "init", "--overwrite", path})
	require.NoError(t, rootCmd.Execute())

	overwriteConfig = false
}

// TestRootRequiresTwoRevisions rejects a wrong number of arguments.
func TestRootRequiresTwoRevisions(t *testing.T) {
	rootCmd.SetArgs([]string{"v1"})
	require.Error(t, rootCmd.Execute())

	rootCmd.SetArgs([]string{"v1", "v2", "v3"})
	require.Error(t, rootCmd.Execute())
}
