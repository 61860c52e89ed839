// Package bundle turns a filesystem location — a single file, a directory
// tree, or a glob pattern — into the flat list of named content entries the
// server-apps controller expects in an install payload. Entry names are
// always forward-slash relative paths, anchored either to an explicit
// source root or to the directory being collected.
package bundle

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io/fs"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Format tags the content representation of an entry.
type Format string

// Content formats understood by the deployment service.
const (
	FormatJSON   Format = "json"
	FormatText   Format = "text"
	FormatBase64 Format = "base64"
)

// globMeta are the metacharacters that mark a path's last segment as a
// glob pattern rather than a literal name.
const globMeta = "*?[]"

// Entry is one file packaged for upload. Content holds a parsed value,
// a decoded string, or a base64 string depending on Format.
type Entry struct {
	Name    string `json:"name"`
	Content any    `json:"content"`
	Format  Format `json:"format"`
}

// Collect resolves pathInput into a sequence of entries. When sourceAnchor
// is non-empty, entry names are computed relative to it (or to its parent
// directory when the anchor is a file). A pathInput that matches nothing
// yields an empty slice, not an error. Ordering follows filesystem
// enumeration order.
func Collect(pathInput, sourceAnchor string) ([]Entry, error) {
	anchorRoot, err := resolveAnchor(sourceAnchor)
	if err != nil {
		return nil, err
	}

	// Single regular file: one entry. Without an anchor the entry is named
	// by bare filename — directory structure is deliberately discarded.
	if fi, statErr := os.Stat(pathInput); statErr == nil && fi.Mode().IsRegular() {
		name := filepath.Base(pathInput)

		if anchorRoot != "" {
			name, err = relativeName(anchorRoot, pathInput)
			if err != nil {
				return nil, err
			}
		}

		entry, err := entryFor(pathInput, name)
		if err != nil {
			return nil, err
		}

		return []Entry{entry}, nil
	}

	paths, baseDir, err := matchPaths(pathInput)
	if err != nil {
		return nil, err
	}

	root := baseDir
	if anchorRoot != "" {
		root = anchorRoot
	}

	entries := make([]Entry, 0, len(paths))

	for _, p := range paths {
		fi, statErr := os.Stat(p)
		if statErr != nil || !fi.Mode().IsRegular() {
			continue
		}

		name, relErr := relativeName(root, p)
		if relErr != nil {
			return nil, relErr
		}

		entry, entryErr := entryFor(p, name)
		if entryErr != nil {
			return nil, entryErr
		}

		entries = append(entries, entry)
	}

	return entries, nil
}

// Classify reads the file and chooses its content representation from the
// media type inferred from the filename extension. Exactly
// application/json parses as structured data, text/* reads as a string,
// and everything else — including text files with unrecognized extensions —
// falls back to base64. The extension heuristic is deliberate: the
// receiving service resolves content the same way, so sniffing file bytes
// here would diverge from it.
func Classify(path string) (Format, any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", nil, fmt.Errorf("bundle: reading %s: %w", path, err)
	}

	mt := mediaType(path)

	switch {
	case mt == "application/json":
		var parsed any
		if err := json.Unmarshal(data, &parsed); err != nil {
			return "", nil, fmt.Errorf("bundle: parsing %s as JSON: %w", path, err)
		}

		return FormatJSON, parsed, nil
	case strings.HasPrefix(mt, "text/"):
		return FormatText, string(data), nil
	default:
		return FormatBase64, base64.StdEncoding.EncodeToString(data), nil
	}
}

// resolveAnchor resolves the source anchor to an absolute root directory.
// A file anchor roots at its containing directory. Empty anchor means no
// anchoring.
func resolveAnchor(sourceAnchor string) (string, error) {
	if sourceAnchor == "" {
		return "", nil
	}

	abs, err := filepath.Abs(sourceAnchor)
	if err != nil {
		return "", fmt.Errorf("bundle: resolving anchor %s: %w", sourceAnchor, err)
	}

	if fi, statErr := os.Stat(abs); statErr == nil && !fi.IsDir() {
		return filepath.Dir(abs), nil
	}

	return abs, nil
}

// matchPaths expands pathInput into candidate paths plus the base directory
// used for relative naming when no anchor applies. The last path segment
// holding a glob metacharacter switches to non-recursive pattern matching
// against the parent directory; otherwise the input is walked as a
// directory tree. A base that does not exist matches nothing.
func matchPaths(pathInput string) ([]string, string, error) {
	if strings.ContainsAny(filepath.Base(pathInput), globMeta) {
		baseDir, err := filepath.Abs(filepath.Dir(pathInput))
		if err != nil {
			return nil, "", fmt.Errorf("bundle: resolving %s: %w", pathInput, err)
		}

		matches, err := filepath.Glob(filepath.Join(baseDir, filepath.Base(pathInput)))
		if err != nil {
			return nil, "", fmt.Errorf("bundle: bad glob pattern %s: %w", pathInput, err)
		}

		return matches, baseDir, nil
	}

	baseDir, err := filepath.Abs(pathInput)
	if err != nil {
		return nil, "", fmt.Errorf("bundle: resolving %s: %w", pathInput, err)
	}

	var paths []string

	walkErr := filepath.WalkDir(baseDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// A missing or unreadable root means nothing to package.
			return nil
		}

		if !d.IsDir() {
			paths = append(paths, path)
		}

		return nil
	})
	if walkErr != nil {
		return nil, "", fmt.Errorf("bundle: walking %s: %w", baseDir, walkErr)
	}

	return paths, baseDir, nil
}

// entryFor classifies path and builds its entry under the given name.
func entryFor(path, name string) (Entry, error) {
	format, content, err := Classify(path)
	if err != nil {
		return Entry{}, err
	}

	return Entry{Name: normalizeName(name), Content: content, Format: format}, nil
}

// relativeName computes path relative to root, rejecting paths that escape
// it. Entry names must never point outside the declared root.
func relativeName(root, path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("bundle: resolving %s: %w", path, err)
	}

	rel, err := filepath.Rel(root, abs)
	if err != nil {
		return "", fmt.Errorf("bundle: relating %s to %s: %w", path, root, err)
	}

	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("bundle: %s is outside source root %s", path, root)
	}

	return rel, nil
}

// normalizeName produces the stored entry name: forward slashes regardless
// of host conventions, NFC-normalized so names are byte-stable across
// platforms that decompose Unicode filenames.
func normalizeName(name string) string {
	return norm.NFC.String(filepath.ToSlash(name))
}

// mediaType returns the media type for a filename extension with any
// parameters (charset) stripped, or "" when the extension is unknown.
func mediaType(path string) string {
	raw := mime.TypeByExtension(filepath.Ext(path))
	if raw == "" {
		return ""
	}

	mt, _, err := mime.ParseMediaType(raw)
	if err != nil {
		return ""
	}

	return mt
}
