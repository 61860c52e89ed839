package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeManifest(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	return path
}

func TestLoadManifest_JSON(t *testing.T) {
	path := writeManifest(t, "manifest.json", `{"name":"demo","type":"web-python"}`)

	m, err := loadManifest(path)
	require.NoError(t, err)
	assert.Equal(t, "demo", m["name"])
	assert.Equal(t, "web-python", m["type"])
}

func TestLoadManifest_YAMLFallback(t *testing.T) {
	path := writeManifest(t, "manifest.yaml", "name: demo\ntype: web-python\nrequirements:\n  - numpy\n")

	m, err := loadManifest(path)
	require.NoError(t, err)
	assert.Equal(t, "demo", m["name"])
	assert.Equal(t, []any{"numpy"}, m["requirements"])
}

func TestLoadManifest_InvalidBoth(t *testing.T) {
	path := writeManifest(t, "manifest.yaml", "name: [unclosed\n\tmixed tabs")

	_, err := loadManifest(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing manifest")
}

func TestLoadManifest_MissingFile(t *testing.T) {
	_, err := loadManifest(filepath.Join(t.TempDir(), "absent.json"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading manifest")
}
