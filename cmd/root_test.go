package cmd

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPersistentFlagsRegistered(t *testing.T) {
	assert.NotNil(t, rootCmd.PersistentFlags().Lookup("config"))
	assert.NotNil(t, rootCmd.PersistentFlags().Lookup("debug"))
}

func TestDebugFlagEntersEnvironment(t *testing.T) {
	t.Setenv("APP_DEBUG", "")

	rootCmd.SetOut(io.Discard)
	rootCmd.SetArgs([]string{"--debug"})
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		debug = false
	})

	require.NoError(t, rootCmd.Execute())

	assert.Equal(t, "true", os.Getenv("APP_DEBUG"))
}

func TestConfigFlagLoadsEnvFile(t *testing.T) {
	envFile := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(envFile, []byte("LINKHOUND_TEST_SENTINEL=from-file\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("LINKHOUND_TEST_SENTINEL") })

	rootCmd.SetOut(io.Discard)
	rootCmd.SetArgs([]string{"--config", envFile})
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		cfgFile = ""
	})

	require.NoError(t, rootCmd.Execute())

	assert.Equal(t, "from-file", os.Getenv("LINKHOUND_TEST_SENTINEL"))
}

func TestConfigFlagMissingFileFails(t *testing.T) {
	rootCmd.SetOut(io.Discard)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs([]string{"--config", filepath.Join(t.TempDir(), "absent.env")})
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		cfgFile = ""
	})

	assert.Error(t, rootCmd.Execute())
}
