package scan

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"sync"

	"github.com/charlievieth/fastwalk"
)

// Per path errors recorded by FindMtimes.
var (
	ErrSymlinkLoop  = errors.New("sym/hardlink loop found")
	ErrNotFollowing = errors.New("not following symlinks")
	ErrNotRegular   = errors.New("not a file or directory")
)

// FindMtimes walks root and returns the modification time in milliseconds of
// every regular file found under it. Paths which could not be examined are
// returned with their errors instead of stopping the walk. Symbolic links are
// only followed with follow set.
func FindMtimes(root string, follow bool) (map[string]int64, map[string]error, error) {
	var (
		mu     sync.Mutex
		mtimes = make(map[string]int64)
		errs   = make(map[string]error)
	)

	record := func(path string, err error) {
		mu.Lock()
		errs[path] = err
		mu.Unlock()
	}

	conf := fastwalk.Config{
		Follow: follow,
	}

	err := fastwalk.Walk(&conf, root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			record(path, err)
			return nil
		}

		if d.IsDir() {
			return nil
		}

		var info fs.FileInfo
		if d.Type()&fs.ModeSymlink != 0 {
			if !follow {
				record(path, ErrNotFollowing)
				return nil
			}
			info, err = fastwalk.StatDirEntry(path, d)
			if err != nil {
				record(path, err)
				return nil
			}
			if info.IsDir() {
				if isLoop(path) {
					record(path, ErrSymlinkLoop)
				}
				return nil
			}
		} else {
			info, err = d.Info()
			if err != nil {
				record(path, err)
				return nil
			}
		}

		if !info.Mode().IsRegular() {
			record(path, ErrNotRegular)
			return nil
		}

		mu.Lock()
		mtimes[path] = info.ModTime().UnixMilli()
		mu.Unlock()

		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("walking %s: %w", root, err)
	}

	return mtimes, errs, nil
}

// isLoop reports whether the directory link at path points to one of its own
// parents.
func isLoop(path string) bool {
	target, err := filepath.EvalSymlinks(path)
	if err != nil {
		return false
	}
	parent, err := filepath.EvalSymlinks(filepath.Dir(path))
	if err != nil {
		return false
	}
	return parent == target || strings.HasPrefix(parent, target+string(filepath.Separator))
}
