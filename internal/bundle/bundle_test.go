package bundle

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeFile creates path (and parent directories) with the given content.
func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// entryNames extracts the names from a collection in order.
func entryNames(entries []Entry) []string {
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name)
	}

	return names
}

func TestCollect_SingleFileNoAnchor(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "docs", "readme.txt")
	writeFile(t, path, "hello")

	entries, err := Collect(path, "")
	require.NoError(t, err)
	require.Len(t, entries, 1)

	// Without an anchor, a single file is named by basename only.
	assert.Equal(t, "readme.txt", entries[0].Name)
	assert.Equal(t, FormatText, entries[0].Format)
	assert.Equal(t, "hello", entries[0].Content)
}

func TestCollect_SingleFileWithContainingAnchor(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "docs", "readme.txt")
	writeFile(t, path, "hello")

	entries, err := Collect(path, filepath.Join(dir, "docs"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "readme.txt", entries[0].Name)
}

func TestCollect_SingleFileWithOuterAnchor(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "project", "docs", "readme.txt")
	writeFile(t, path, "hello")

	entries, err := Collect(path, filepath.Join(dir, "project"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "docs/readme.txt", entries[0].Name)
}

func TestCollect_FileAnchorRootsAtParent(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "app", "main.py")
	extra := filepath.Join(dir, "app", "assets", "logo.txt")
	writeFile(t, source, "print()")
	writeFile(t, extra, "logo")

	// Anchoring at a file means anchoring at its containing directory.
	entries, err := Collect(extra, source)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "assets/logo.txt", entries[0].Name)
}

func TestCollect_DirectoryWalk(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "files", "a.json"), `{"k":1}`)
	writeFile(t, filepath.Join(dir, "files", "b.txt"), "text")
	writeFile(t, filepath.Join(dir, "files", "nested", "c.bin"), "\x00\x01")

	entries, err := Collect(filepath.Join(dir, "files"), "")
	require.NoError(t, err)
	require.Len(t, entries, 3)

	byName := make(map[string]Entry, len(entries))
	for _, e := range entries {
		byName[e.Name] = e
	}

	require.Contains(t, byName, "a.json")
	require.Contains(t, byName, "b.txt")
	require.Contains(t, byName, "nested/c.bin")

	assert.Equal(t, FormatJSON, byName["a.json"].Format)
	assert.Equal(t, map[string]any{"k": float64(1)}, byName["a.json"].Content)
	assert.Equal(t, FormatText, byName["b.txt"].Format)
	assert.Equal(t, FormatBase64, byName["nested/c.bin"].Format)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("\x00\x01")), byName["nested/c.bin"].Content)
}

func TestCollect_DirectoryWithAnchor(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "project", "files", "a.txt"), "a")

	entries, err := Collect(filepath.Join(dir, "project", "files"), filepath.Join(dir, "project"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "files/a.txt", entries[0].Name)
}

func TestCollect_GlobNonRecursive(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "one.txt"), "1")
	writeFile(t, filepath.Join(dir, "two.txt"), "2")
	writeFile(t, filepath.Join(dir, "three.json"), "{}")
	writeFile(t, filepath.Join(dir, "sub", "four.txt"), "4")

	entries, err := Collect(filepath.Join(dir, "*.txt"), "")
	require.NoError(t, err)

	// Glob matches only the base directory, never subdirectories.
	assert.ElementsMatch(t, []string{"one.txt", "two.txt"}, entryNames(entries))
}

func TestCollect_GlobQuestionMark(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a1.txt"), "1")
	writeFile(t, filepath.Join(dir, "a22.txt"), "2")

	entries, err := Collect(filepath.Join(dir, "a?.txt"), "")
	require.NoError(t, err)
	assert.Equal(t, []string{"a1.txt"}, entryNames(entries))
}

func TestCollect_GlobSkipsDirectories(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "match.txt"), "m")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "match.dir"), 0o755))

	entries, err := Collect(filepath.Join(dir, "match*"), "")
	require.NoError(t, err)
	assert.Equal(t, []string{"match.txt"}, entryNames(entries))
}

func TestCollect_NonexistentPathYieldsEmpty(t *testing.T) {
	entries, err := Collect(filepath.Join(t.TempDir(), "no-such-dir"), "")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestCollect_GlobWithNoMatchesYieldsEmpty(t *testing.T) {
	entries, err := Collect(filepath.Join(t.TempDir(), "*.xyz"), "")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestCollect_FileOutsideAnchorFails(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "outside", "file.txt")
	writeFile(t, path, "x")

	_, err := Collect(path, filepath.Join(dir, "elsewhere"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "outside source root")
}

func TestCollect_NamesUseForwardSlashes(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "root", "a", "b", "c.txt"), "c")

	entries, err := Collect(filepath.Join(dir, "root"), "")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "a/b/c.txt", entries[0].Name)
	assert.NotContains(t, entries[0].Name, `\`)
}

func TestClassify_JSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manifest.json")
	writeFile(t, path, `{"name":"app","version":2}`)

	format, content, err := Classify(path)
	require.NoError(t, err)
	assert.Equal(t, FormatJSON, format)
	assert.Equal(t, map[string]any{"name": "app", "version": float64(2)}, content)
}

func TestClassify_InvalidJSONIsAnError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.json")
	writeFile(t, path, `{not json`)

	_, _, err := Classify(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing")
}

func TestClassify_Text(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	writeFile(t, path, "plain text")

	format, content, err := Classify(path)
	require.NoError(t, err)
	assert.Equal(t, FormatText, format)
	assert.Equal(t, "plain text", content)
}

func TestClassify_UnknownExtensionFallsBackToBase64(t *testing.T) {
	// Text content with an unrecognized extension still packages as base64:
	// classification is extension-driven, never sniffed from the bytes.
	path := filepath.Join(t.TempDir(), "data.zzquux")
	writeFile(t, path, "looks like text")

	format, content, err := Classify(path)
	require.NoError(t, err)
	assert.Equal(t, FormatBase64, format)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("looks like text")), content)
}

func TestClassify_NoExtensionFallsBackToBase64(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Makefile")
	writeFile(t, path, "all:")

	format, _, err := Classify(path)
	require.NoError(t, err)
	assert.Equal(t, FormatBase64, format)
}

func TestClassify_MissingFile(t *testing.T) {
	_, _, err := Classify(filepath.Join(t.TempDir(), "nope.txt"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading")
}
