package assets

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"asset-sync/core/reconcile"
)

// CollectFiles walks root and returns its regular files with slash-separated
// paths relative to root, sorted. Dotfiles and dot-directories are skipped.
func CollectFiles(root string) ([]reconcile.LocalFile, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", root)
	}

	var files []reconcile.LocalFile
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		fi, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		files = append(files, reconcile.LocalFile{
			RelPath: filepath.ToSlash(rel),
			Size:    fi.Size(),
			Open:    openFile(path),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", root, err)
	}

	sort.Slice(files, func(i, j int) bool { return files[i].RelPath < files[j].RelPath })
	return files, nil
}

func openFile(path string) reconcile.Opener {
	return func() (io.ReadCloser, error) {
		return os.Open(path)
	}
}
