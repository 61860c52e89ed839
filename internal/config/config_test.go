package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBoolEnv_TruthySpellings(t *testing.T) {
	for _, val := range []string{"1", "true", "TRUE", "yes", "Yes", "on", "ON"} {
		t.Setenv(EnvDisableSSL, val)
		assert.True(t, BoolEnv(EnvDisableSSL, false), "value %q", val)
	}
}

func TestBoolEnv_FalsySpellings(t *testing.T) {
	for _, val := range []string{"0", "false", "no", "off", "", "nonsense"} {
		t.Setenv(EnvDisableSSL, val)
		assert.False(t, BoolEnv(EnvDisableSSL, true), "value %q", val)
	}
}

func TestBoolEnv_UnsetReturnsDefault(t *testing.T) {
	require.NoError(t, os.Unsetenv(EnvDisableSSL))

	assert.True(t, BoolEnv(EnvDisableSSL, true))
	assert.False(t, BoolEnv(EnvDisableSSL, false))
}

func TestResolve_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(
		"server_url = \"https://file.example.org\"\nworkspace = \"file-ws\"\n"), 0o644))

	env := EnvOverrides{ServerURL: "https://env.example.org", ConfigPath: path}

	s, err := Resolve(env, CLIOverrides{})
	require.NoError(t, err)
	assert.Equal(t, "https://env.example.org", s.ServerURL)
	assert.Equal(t, "file-ws", s.Workspace)
}

func TestResolve_CLIConfigPathWinsOverEnv(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, "env.toml")
	cliPath := filepath.Join(dir, "cli.toml")
	require.NoError(t, os.WriteFile(envPath, []byte("workspace = \"from-env-file\"\n"), 0o644))
	require.NoError(t, os.WriteFile(cliPath, []byte("workspace = \"from-cli-file\"\n"), 0o644))

	s, err := Resolve(EnvOverrides{ConfigPath: envPath}, CLIOverrides{ConfigPath: cliPath})
	require.NoError(t, err)
	assert.Equal(t, "from-cli-file", s.Workspace)
}

func TestResolve_CLIDisableSSLWins(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("disable_ssl = true\n"), 0o644))

	off := false

	s, err := Resolve(EnvOverrides{ConfigPath: path}, CLIOverrides{DisableSSL: &off})
	require.NoError(t, err)
	assert.False(t, s.DisableSSL)
}

func TestResolve_DefaultClientID(t *testing.T) {
	s, err := Resolve(EnvOverrides{ConfigPath: filepath.Join(t.TempDir(), "none.toml")}, CLIOverrides{})
	require.NoError(t, err)
	assert.Equal(t, DefaultClientID, s.ClientID)
}

func TestResolve_TokenPassedThroughOpaque(t *testing.T) {
	s, err := Resolve(EnvOverrides{
		Token:      "not even a jwt",
		ConfigPath: filepath.Join(t.TempDir(), "none.toml"),
	}, CLIOverrides{})
	require.NoError(t, err)
	assert.Equal(t, "not even a jwt", s.Token)
}

func TestResolve_BadTOMLFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("server_url = [broken\n"), 0o644))

	_, err := Resolve(EnvOverrides{ConfigPath: path}, CLIOverrides{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing")
}

func TestValidate(t *testing.T) {
	err := Validate(&Settings{Workspace: "ws"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), EnvServerURL)

	err = Validate(&Settings{ServerURL: "https://h.example.org"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), EnvWorkspace)

	assert.NoError(t, Validate(&Settings{ServerURL: "https://h.example.org", Workspace: "ws"}))
}

// chdir changes the working directory for the duration of the test.
// It stands in for t.Chdir, which requires Go 1.24.
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
}

func TestLoadDotenv_MissingFileIsNoError(t *testing.T) {
	chdir(t, t.TempDir())

	assert.NoError(t, LoadDotenv())
}

func TestLoadDotenv_LoadsValues(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"),
		[]byte("HYPHA_WORKSPACE=dotenv-ws\n"), 0o644))

	chdir(t, dir)
	t.Setenv(EnvWorkspace, "")
	require.NoError(t, os.Unsetenv(EnvWorkspace))

	require.NoError(t, LoadDotenv())
	assert.Equal(t, "dotenv-ws", os.Getenv(EnvWorkspace))
}
