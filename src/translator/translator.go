// Package translator maps between local library URIs, file URIs and
// filesystem paths. All functions are pure.
package translator

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// URI prefixes understood by this package.
const (
	DirectoryPrefix = "local:directory:"
	TrackPrefix     = "local:track:"

	fileScheme = "file://"
)

var (
	// ErrInvalidURI is returned for URIs which are not local track or directory
	// URIs.
	ErrInvalidURI = errors.New("invalid URI")

	// ErrRelativePath is returned when an absolute path is required but a
	// relative one was given.
	ErrRelativePath = errors.New("path must be absolute")
)

// LocalURIToPath converts a local track or directory URI into a path inside
// mediaDir.
func LocalURIToPath(uri, mediaDir string) (string, error) {
	var rest string
	switch {
	case strings.HasPrefix(uri, DirectoryPrefix):
		rest = uri[len(DirectoryPrefix):]
	case strings.HasPrefix(uri, TrackPrefix):
		rest = uri[len(TrackPrefix):]
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidURI, uri)
	}

	if i := strings.IndexAny(rest, "?#"); i >= 0 {
		rest = rest[:i]
	}

	unquoted, err := Unquote(rest)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrInvalidURI, err)
	}

	return filepath.Join(mediaDir, filepath.FromSlash(unquoted)), nil
}

// LocalURIToFileURI converts a local track or directory URI into a file URI
// for the file under mediaDir.
func LocalURIToFileURI(uri, mediaDir string) (string, error) {
	path, err := LocalURIToPath(uri, mediaDir)
	if err != nil {
		return "", err
	}
	return PathToFileURI(path)
}

// PathToFileURI returns the file URI for an absolute path. Relative paths are
// refused with ErrRelativePath.
func PathToFileURI(path string) (string, error) {
	if !filepath.IsAbs(path) {
		return "", fmt.Errorf("%w: %q", ErrRelativePath, path)
	}

	slashed := filepath.ToSlash(path)
	if !strings.HasPrefix(slashed, "/") {
		// Windows volume paths such as C:/Music.
		slashed = "/" + slashed
	}

	return fileScheme + Quote(slashed, "/"), nil
}

// FileURIToPath is the inverse of PathToFileURI.
func FileURIToPath(uri string) (string, error) {
	if !strings.HasPrefix(uri, fileScheme) {
		return "", fmt.Errorf("%w: %q", ErrInvalidURI, uri)
	}

	rest := uri[len(fileScheme):]
	if i := strings.IndexAny(rest, "?#"); i >= 0 {
		rest = rest[:i]
	}

	// Skip the authority part, it is expected to be empty or "localhost".
	if i := strings.IndexByte(rest, '/'); i > 0 {
		rest = rest[i:]
	}

	unquoted, err := Unquote(rest)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrInvalidURI, err)
	}

	return filepath.FromSlash(unquoted), nil
}

// PathToLocalTrackURI returns the local track URI for path. Absolute paths are
// made relative to mediaDir first.
func PathToLocalTrackURI(path, mediaDir string) (string, error) {
	if filepath.IsAbs(path) {
		rel, err := filepath.Rel(mediaDir, path)
		if err != nil {
			return "", fmt.Errorf("making %s relative to %s: %w", path, mediaDir, err)
		}
		path = rel
	}

	return TrackPrefix + Quote(filepath.ToSlash(path), "/"), nil
}
