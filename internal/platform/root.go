package platform

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/aretw0/strata/pkg/entity"
)

// MarkerDir flags a data root explicitly.
const MarkerDir = ".strata"

// ErrRootNotFound is returned by FindRoot when no data root encloses the start directory.
var ErrRootNotFound = errors.New("data root not found")

// FindRoot walks upwards from startDir looking for a data root: a directory
// holding the marker directory or any entity collection.
func FindRoot(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	for {
		if isRoot(dir) {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", ErrRootNotFound
		}
		dir = parent
	}
}

func isRoot(dir string) bool {
	if isDir(filepath.Join(dir, MarkerDir)) {
		return true
	}
	for _, k := range entity.All() {
		if isDir(filepath.Join(dir, k.Collection())) {
			return true
		}
	}
	return false
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
